package repository

import (
	"context"
	"time"

	"github.com/example/storefront/pkg/models"
	"go.uber.org/zap"
)

// invalidationHold bounds how long a read may take and still be refused
// when it tries to cache what it read before a write.
const invalidationHold = 30 * time.Second

// CachedOrderRepository reads orders through Redis. Writes go to the
// database first and then replace the cached copy with an invalidation
// marker; cache failures are logged and never fail the call. FindByIDFresh
// is not overridden and always reads the database.
type CachedOrderRepository struct {
	*OrderRepository
	redis  *RedisRepository
	logger *zap.Logger
}

func NewCachedOrderRepository(store *OrderRepository, redis *RedisRepository, logger *zap.Logger) *CachedOrderRepository {
	return &CachedOrderRepository{OrderRepository: store, redis: redis, logger: logger}
}

func (r *CachedOrderRepository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var cached models.Order
	found, err := r.redis.GetJSON(ctx, orderKey(id), &cached)
	if err != nil {
		r.logger.Warn("Failed to read order cache", zap.Int64("order_id", id), zap.Error(err))
	} else if found {
		return &cached, nil
	}

	order, err := r.OrderRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, order)
	return order, nil
}

func (r *CachedOrderRepository) CreateOrder(ctx context.Context, draft *models.OrderDraft) (*models.Order, error) {
	order, err := r.OrderRepository.CreateOrder(ctx, draft)
	if err != nil {
		return nil, err
	}
	r.cache(ctx, order)
	return order, nil
}

func (r *CachedOrderRepository) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	if err := r.OrderRepository.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedOrderRepository) AttachPaymentReference(ctx context.Context, id int64, ref string) error {
	if err := r.OrderRepository.AttachPaymentReference(ctx, id, ref); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedOrderRepository) cache(ctx context.Context, order *models.Order) {
	if err := r.redis.SetJSON(ctx, orderKey(order.ID), order, r.redis.config.OrderTTL); err != nil {
		r.logger.Warn("Failed to cache order", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// fill caches a database read unless a write invalidated the key meanwhile.
func (r *CachedOrderRepository) fill(ctx context.Context, order *models.Order) {
	if _, err := r.redis.SetJSONNX(ctx, orderKey(order.ID), order, r.redis.config.OrderTTL); err != nil {
		r.logger.Warn("Failed to cache order", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

func (r *CachedOrderRepository) invalidate(ctx context.Context, id int64) {
	if err := r.redis.Invalidate(ctx, orderKey(id), invalidationHold); err != nil {
		r.logger.Warn("Failed to invalidate order cache", zap.Int64("order_id", id), zap.Error(err))
	}
}
