package gateway

import (
	"net/http"
	"strconv"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
)

const defaultAuditLimit = 100

// listProducts godoc
// @Summary  List catalog products, newest first
// @Tags     products
// @Produce  json
// @Success  200 {array} models.Product
// @Router   /api/products [get]
func (g *Gateway) listProducts(c *gin.Context) {
	products, err := g.deps.Catalog.List(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, products)
}

// getProduct godoc
// @Summary  Get a product
// @Tags     products
// @Produce  json
// @Param    id path int true "Product id"
// @Success  200 {object} models.Product
// @Failure  404 {object} errorResponse
// @Router   /api/products/{id} [get]
func (g *Gateway) getProduct(c *gin.Context) {
	id, ok := g.pathID(c)
	if !ok {
		return
	}
	product, err := g.deps.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (g *Gateway) createProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		g.respondError(c, apperr.Wrap(apperr.Validation, "product.bind", err, "invalid request body"))
		return
	}
	product, err := g.deps.Catalog.Create(c.Request.Context(), in)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (g *Gateway) updateProduct(c *gin.Context) {
	id, ok := g.pathID(c)
	if !ok {
		return
	}
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		g.respondError(c, apperr.Wrap(apperr.Validation, "product.bind", err, "invalid request body"))
		return
	}
	product, err := g.deps.Catalog.Update(c.Request.Context(), id, in)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (g *Gateway) deleteProduct(c *gin.Context) {
	id, ok := g.pathID(c)
	if !ok {
		return
	}
	if err := g.deps.Catalog.Delete(c.Request.Context(), id); err != nil {
		g.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// orderAudit returns the lifecycle audit trail of any order.
func (g *Gateway) orderAudit(c *gin.Context) {
	if g.deps.Audit == nil {
		g.respondError(c, apperr.New(apperr.Configuration, "audit.list", "audit log is not enabled"))
		return
	}
	id, ok := g.pathID(c)
	if !ok {
		return
	}
	limit := int64(defaultAuditLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			g.respondError(c, apperr.New(apperr.Validation, "audit.list", "invalid limit %q", raw))
			return
		}
		limit = n
	}

	logs, err := g.deps.Audit.GetAuditLogs(c.Request.Context(), id, limit)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if logs == nil {
		logs = []*repository.AuditLog{}
	}
	c.JSON(http.StatusOK, logs)
}
