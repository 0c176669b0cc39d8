package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func sampleOrder() *models.Order {
	address := "1 <Baker> St"
	comment := "ring twice"
	return &models.Order{
		ID:              12,
		CustomerID:      5,
		CustomerName:    "Anna & Co",
		CustomerPhone:   "+70000000000",
		CustomerAddress: &address,
		Comment:         &comment,
		DeliveryMode:    models.DeliveryCourier,
		PaymentMode:     models.PaymentCash,
		Subtotal:        decimal.NewFromInt(200),
		DeliveryCost:    decimal.NewFromInt(500),
		Total:           decimal.NewFromInt(700),
		Status:          models.StatusPending,
		Items: []models.OrderItem{
			{ProductID: 1, ProductName: "Croissant", ProductPrice: decimal.NewFromInt(100), Quantity: 2},
		},
	}
}

type recordingSink struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (s *recordingSink) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

func TestRenderOrderPlaced(t *testing.T) {
	text := RenderOrderPlaced(sampleOrder(), "RUB")

	assert.Contains(t, text, "<b>New order #12 (Cash)</b>")
	assert.Contains(t, text, "Anna &amp; Co")
	assert.Contains(t, text, "<b>Address:</b> 1 &lt;Baker&gt; St")
	assert.Contains(t, text, "<b>Comment:</b> ring twice")
	assert.Contains(t, text, "- Croissant x 2 (100.00 RUB each) = 200.00 RUB")
	assert.Contains(t, text, "<b>Subtotal:</b> 200.00 RUB")
	assert.Contains(t, text, "<b>Delivery:</b> 500.00 RUB")
	assert.Contains(t, text, "<b>Total:</b> 700.00 RUB")
	assert.Contains(t, text, "<b>Status:</b> pending")
}

func TestRenderPickupOmitsAddress(t *testing.T) {
	order := sampleOrder()
	order.DeliveryMode = models.DeliveryPickup
	order.Comment = nil

	text := RenderOrderPlaced(order, "RUB")
	assert.Contains(t, text, "<b>Delivery type:</b> Pickup")
	assert.NotContains(t, text, "Address")
	assert.NotContains(t, text, "Comment")
}

func TestDispatcherDelivers(t *testing.T) {
	sink := &recordingSink{}
	done := make(chan error, 1)
	d := NewDispatcher(sink, "RUB", zaptest.NewLogger(t), WithDeliveryHook(func(_ Message, err error) {
		done <- err
	}))

	require.NoError(t, d.OrderPlaced(context.Background(), sampleOrder()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}

	require.NoError(t, d.Stop())
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.msgs, 1)
	assert.Equal(t, EventOrderPlaced, sink.msgs[0].Event)
	assert.Equal(t, int64(12), sink.msgs[0].Order.ID)
	assert.Contains(t, sink.msgs[0].Text, "New order #12")
}

func TestDispatcherSwallowsSinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("chat not found")}
	done := make(chan error, 1)
	d := NewDispatcher(sink, "RUB", zaptest.NewLogger(t), WithDeliveryHook(func(_ Message, err error) {
		done <- err
	}))

	require.NoError(t, d.OrderPlaced(context.Background(), sampleOrder()))

	select {
	case err := <-done:
		assert.EqualError(t, err, "chat not found")
	case <-time.After(2 * time.Second):
		t.Fatal("notification not attempted")
	}

	require.NoError(t, d.Stop())
	assert.ErrorIs(t, d.OrderPlaced(context.Background(), sampleOrder()), ErrDispatcherStopped)
}

type stallingSink struct{}

func (stallingSink) Send(ctx context.Context, _ Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDispatcherSendTimeout(t *testing.T) {
	done := make(chan error, 1)
	d := NewDispatcher(stallingSink{}, "RUB", zaptest.NewLogger(t),
		WithSendTimeout(50*time.Millisecond),
		WithDeliveryHook(func(_ Message, err error) {
			done <- err
		}))
	defer d.Stop()

	require.NoError(t, d.OrderPlaced(context.Background(), sampleOrder()))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("send was not cut off by the timeout")
	}
}

func TestTelegramSink(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	sink := NewTelegramSink(config.TelegramConfig{APIURL: srv.URL, BotToken: "TOKEN", ChatID: 777})
	err := sink.Send(context.Background(), Message{Event: EventOrderPlaced, Order: sampleOrder(), Text: "<b>hi</b>"})
	require.NoError(t, err)
	assert.Equal(t, int64(777), got.ChatID)
	assert.Equal(t, "<b>hi</b>", got.Text)
	assert.Equal(t, "HTML", got.ParseMode)
}

func TestTelegramSinkRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	sink := NewTelegramSink(config.TelegramConfig{APIURL: srv.URL, BotToken: "TOKEN", ChatID: 1})
	err := sink.Send(context.Background(), Message{Order: sampleOrder(), Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSink(t *testing.T) {
	writer := &fakeWriter{}
	sink := &KafkaSink{writer: writer}

	require.NoError(t, sink.Send(context.Background(), Message{Event: EventOrderPlaced, Order: sampleOrder(), Text: "txt"}))
	require.Len(t, writer.msgs, 1)
	assert.Equal(t, "12", string(writer.msgs[0].Key))

	var event Event
	require.NoError(t, json.Unmarshal(writer.msgs[0].Value, &event))
	assert.Equal(t, EventOrderPlaced, event.Type)
	assert.Equal(t, int64(12), event.OrderID)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "700.00", event.Payload["total_amount"])
	assert.Equal(t, "cash", event.Payload["payment_type"])
	assert.Equal(t, "txt", event.Payload["text"])
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("down")}

	err := MultiSink{bad, ok}.Send(context.Background(), Message{Order: sampleOrder()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Len(t, ok.msgs, 1)
}
