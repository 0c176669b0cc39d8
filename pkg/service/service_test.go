package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/pricing"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/yookassa"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	orders   *repository.OrderRepository
	products *repository.ProductRepository
	gateway  *fakeGateway
	notifier *fakeNotifier
	auditor  *fakeAuditor
	orderSvc *OrderService
	paySvc   *PaymentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	db, err := repository.OpenDatabase(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxOpenConns: 1,
	}, logger)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	f := &fixture{
		db:       db,
		orders:   repository.NewOrderRepository(db),
		products: repository.NewProductRepository(db),
		gateway:  &fakeGateway{},
		notifier: &fakeNotifier{},
		auditor:  newFakeAuditor(),
	}
	policy := pricing.NewPolicy(config.PricingConfig{
		FreeDeliveryThreshold: decimal.NewFromInt(1500),
		DeliveryFee:           decimal.NewFromInt(500),
		Currency:              "RUB",
	})
	f.orderSvc = NewOrderService(f.orders, f.products, policy, logger,
		WithNotifier(f.notifier),
		WithOrderAuditor(f.auditor))
	f.paySvc = NewPaymentService(f.orders, f.gateway, repository.NewLocalLocker(), "https://t.me/shop_bot", logger,
		WithPaymentAuditor(f.auditor))
	return f
}

func (f *fixture) addProduct(t *testing.T, title string, price int64) models.Product {
	t.Helper()
	p := models.Product{Title: title, Price: decimal.NewFromInt(price)}
	require.NoError(t, f.products.Create(context.Background(), &p))
	return p
}

func (f *fixture) countOrders(t *testing.T) (orders, items int64) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, f.db.Model(&models.OrderItem{}).Count(&items).Error)
	return orders, items
}

type fakeGateway struct {
	mu        sync.Mutex
	created   []yookassa.PaymentRequest
	lookups   []string
	nextID    int
	createErr error
	existing  map[string]*yookassa.Payment

	// entered is signalled and block awaited by CreatePayment when set.
	entered chan struct{}
	block   chan struct{}
}

func (g *fakeGateway) CreatePayment(_ context.Context, req yookassa.PaymentRequest) (*yookassa.Payment, error) {
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, req)
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.nextID++
	id := fmt.Sprintf("pay-%d", g.nextID)
	return &yookassa.Payment{
		ID:     id,
		Status: models.PaymentPending,
		Confirmation: &yookassa.Confirmation{
			Type:            "redirect",
			ConfirmationURL: "https://yoomoney.ru/checkout/" + id,
		},
	}, nil
}

func (g *fakeGateway) GetPayment(_ context.Context, id string) (*yookassa.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups = append(g.lookups, id)
	if p, ok := g.existing[id]; ok {
		return p, nil
	}
	return nil, errors.New("payment not found")
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.created)
}

type fakeNotifier struct {
	mu     sync.Mutex
	orders []int64
	err    error
	panics bool
}

func (n *fakeNotifier) OrderPlaced(_ context.Context, order *models.Order) error {
	if n.panics {
		panic("sink exploded")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order.ID)
	return n.err
}

func (n *fakeNotifier) notified() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.orders...)
}

type auditEntry struct {
	action  string
	orderID int64
	data    map[string]interface{}
}

type fakeAuditor struct {
	entries chan auditEntry
}

func newFakeAuditor() *fakeAuditor {
	return &fakeAuditor{entries: make(chan auditEntry, 32)}
}

func (a *fakeAuditor) Record(_ context.Context, action string, orderID int64, data map[string]interface{}) error {
	a.entries <- auditEntry{action: action, orderID: orderID, data: data}
	return nil
}

func strPtr(s string) *string { return &s }
