package service

import (
	"context"
	"strings"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductStore interface {
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Save(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id int64) error
}

type ProductInput struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       *string         `json:"image"`
}

// CatalogService serves the public product list and the admin edits. Edits
// never touch existing orders, which keep their own item snapshots.
type CatalogService struct {
	products ProductStore
	logger   *zap.Logger
}

func NewCatalogService(products ProductStore, logger *zap.Logger) *CatalogService {
	return &CatalogService{products: products, logger: logger}
}

func (s *CatalogService) List(ctx context.Context) ([]models.Product, error) {
	return s.products.List(ctx)
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Product, error) {
	return s.products.Get(ctx, id)
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := validateProduct("catalog.create", &in); err != nil {
		return nil, err
	}
	product := &models.Product{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price.Round(2),
		Image:       in.Image,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("title", product.Title))
	return product, nil
}

func (s *CatalogService) Update(ctx context.Context, id int64, in ProductInput) (*models.Product, error) {
	if err := validateProduct("catalog.update", &in); err != nil {
		return nil, err
	}
	product, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Title = in.Title
	product.Description = in.Description
	product.Price = in.Price.Round(2)
	product.Image = in.Image
	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}
	s.logger.Info("Product updated", zap.Int64("product_id", product.ID))
	return product, nil
}

func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

func validateProduct(op string, in *ProductInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = trimmedOrNil(in.Description)
	in.Image = trimmedOrNil(in.Image)

	if in.Title == "" {
		return apperr.New(apperr.Validation, op, "title is required")
	}
	if in.Price.IsNegative() {
		return apperr.New(apperr.Validation, op, "price must not be negative")
	}
	return nil
}
