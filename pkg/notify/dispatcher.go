package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/storefront/pkg/models"
	"go.uber.org/zap"
)

var ErrDispatcherStopped = errors.New("notification dispatcher stopped")

// deliver is the only message the notification actor acts on.
type deliver struct {
	msg Message
}

// notificationActor sends one message at a time to the sink. Failures are
// logged and dropped; there are no retries.
type notificationActor struct {
	sink    Sink
	timeout time.Duration
	logger  *zap.Logger
	onDone  func(Message, error)
}

func (a *notificationActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *deliver:
		sendCtx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.sink.Send(sendCtx, msg.msg)
		cancel()

		if err != nil {
			a.logger.Error("Failed to send notification",
				zap.String("event", msg.msg.Event),
				zap.Int64("order_id", msg.msg.Order.ID),
				zap.Error(err))
		} else {
			a.logger.Info("Notification sent",
				zap.String("event", msg.msg.Event),
				zap.Int64("order_id", msg.msg.Order.ID))
		}
		if a.onDone != nil {
			a.onDone(msg.msg, err)
		}

	case *actor.Started:
		a.logger.Info("Notification actor started")

	case *actor.Stopped:
		a.logger.Info("Notification actor stopped")
	}
}

// Dispatcher is the post-commit hook for new orders. OrderPlaced renders the
// message and hands it to an actor mailbox without waiting for delivery.
type Dispatcher struct {
	system   *actor.ActorSystem
	pid      *actor.PID
	currency string
	logger   *zap.Logger
	stopped  atomic.Bool
}

type DispatcherOption func(*notificationActor)

// WithSendTimeout bounds each send attempt. Non-positive values keep the default.
func WithSendTimeout(d time.Duration) DispatcherOption {
	return func(a *notificationActor) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithDeliveryHook is called after every send attempt, from the actor.
func WithDeliveryHook(fn func(Message, error)) DispatcherOption {
	return func(a *notificationActor) { a.onDone = fn }
}

func NewDispatcher(sink Sink, currency string, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	system := actor.NewActorSystem()

	props := actor.PropsFromProducer(func() actor.Actor {
		a := &notificationActor{
			sink:    sink,
			timeout: 10 * time.Second,
			logger:  logger.Named("notification-actor"),
		}
		for _, opt := range opts {
			opt(a)
		}
		return a
	})

	return &Dispatcher{
		system:   system,
		pid:      system.Root.Spawn(props),
		currency: currency,
		logger:   logger,
	}
}

func (d *Dispatcher) OrderPlaced(_ context.Context, order *models.Order) error {
	if d.stopped.Load() {
		return ErrDispatcherStopped
	}
	d.system.Root.Send(d.pid, &deliver{msg: Message{
		Event: EventOrderPlaced,
		Order: order,
		Text:  RenderOrderPlaced(order, d.currency),
	}})
	return nil
}

// Stop drains queued notifications and stops the actor.
func (d *Dispatcher) Stop() error {
	if d.stopped.Swap(true) {
		return nil
	}
	return d.system.Root.PoisonFuture(d.pid).Wait()
}
