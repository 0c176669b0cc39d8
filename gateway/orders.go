package gateway

import (
	"net/http"
	"strconv"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
)

type orderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type createOrderRequest struct {
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone"`
	CustomerAddress *string            `json:"customer_address"`
	DeliveryType    string             `json:"delivery_type"`
	PaymentType     string             `json:"payment_type"`
	Comment         *string            `json:"comment"`
	Items           []orderItemRequest `json:"items"`
}

func (r createOrderRequest) input() service.CreateOrderInput {
	items := make([]service.ItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, service.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return service.CreateOrderInput{
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		CustomerAddress: r.CustomerAddress,
		DeliveryMode:    models.DeliveryMode(r.DeliveryType),
		PaymentMode:     models.PaymentMode(r.PaymentType),
		Comment:         r.Comment,
		Items:           items,
	}
}

// createOrder godoc
// @Summary  Place an order
// @Tags     orders
// @Accept   json
// @Produce  json
// @Param    X-Telegram-Id header int true "Customer id"
// @Param    order body createOrderRequest true "Order"
// @Success  201 {object} models.Order
// @Failure  400,404 {object} errorResponse
// @Router   /api/orders [post]
func (g *Gateway) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.respondError(c, apperr.Wrap(apperr.Validation, "order.bind", err, "invalid request body"))
		return
	}

	order, err := g.deps.Orders.CreateOrder(c.Request.Context(), customerID(c), req.input())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// listOrders godoc
// @Summary  List the caller's orders, newest first
// @Tags     orders
// @Produce  json
// @Param    X-Telegram-Id header int true "Customer id"
// @Success  200 {array} models.Order
// @Router   /api/orders [get]
func (g *Gateway) listOrders(c *gin.Context) {
	orders, err := g.deps.Orders.ListOrders(c.Request.Context(), customerID(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// getOrder godoc
// @Summary  Get one of the caller's orders
// @Tags     orders
// @Produce  json
// @Param    X-Telegram-Id header int true "Customer id"
// @Param    id path int true "Order id"
// @Success  200 {object} models.Order
// @Failure  404 {object} errorResponse
// @Router   /api/orders/{id} [get]
func (g *Gateway) getOrder(c *gin.Context) {
	id, ok := g.pathID(c)
	if !ok {
		return
	}
	order, err := g.deps.Orders.GetOrder(c.Request.Context(), id, customerID(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// initiatePayment godoc
// @Summary  Start online payment for an order
// @Tags     payments
// @Produce  json
// @Param    X-Telegram-Id header int true "Customer id"
// @Param    id path int true "Order id"
// @Success  200 {object} service.PaymentResult
// @Failure  404,409,412,502,503 {object} errorResponse
// @Router   /api/orders/{id}/payment [post]
func (g *Gateway) initiatePayment(c *gin.Context) {
	id, ok := g.pathID(c)
	if !ok {
		return
	}
	res, err := g.deps.Payments.InitiatePayment(c.Request.Context(), id, customerID(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (g *Gateway) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		g.respondError(c, apperr.New(apperr.Validation, "path", "invalid id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
