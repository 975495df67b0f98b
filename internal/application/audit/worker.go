package audit

import (
	"context"

	domorder "github.com/Zhima-Mochi/ministore/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/ministore/internal/domain/outbox"
	"github.com/Zhima-Mochi/ministore/internal/observability"
)

// Worker subscribes to order lifecycle events and keeps an operator-visible
// trail: one structured log line and one counter tick per event.
type Worker struct {
	subscriber domoutbox.Subscriber
	log        observability.Logger
	events     observability.Counter
}

func New(subscriber domoutbox.Subscriber, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		subscriber: subscriber,
		log:        tel.Logger().With(observability.F("component", "audit")),
		events:     tel.Metrics().Counter(observability.MOrderEvents),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderCreatedEvent{}.EventName(), w.handle)
	w.subscriber.Subscribe(domorder.OrderPaidEvent{}.EventName(), w.handle)
	w.subscriber.Subscribe(domorder.OrderPaymentFailedEvent{}.EventName(), w.handle)
}

func (w *Worker) handle(ctx context.Context, e domoutbox.Event) error {
	_ = ctx
	w.events.Add(1, observability.L("event", e.EventName()))

	switch evt := e.(type) {
	case domorder.OrderCreatedEvent:
		w.log.Info("order_event",
			observability.F("event", evt.EventName()),
			observability.F("order_id", evt.OrderID),
			observability.F("total_amount", evt.TotalAmount),
			observability.F("items", evt.ItemCount),
		)
	case domorder.OrderPaidEvent:
		w.log.Info("order_event",
			observability.F("event", evt.EventName()),
			observability.F("order_id", evt.OrderID),
			observability.F("provider", evt.Provider),
			observability.F("total_amount", evt.TotalAmount),
		)
	case domorder.OrderPaymentFailedEvent:
		w.log.Warn("order_event",
			observability.F("event", evt.EventName()),
			observability.F("order_id", evt.OrderID),
			observability.F("provider", evt.Provider),
			observability.F("status", string(evt.Status)),
		)
	default:
		w.log.Debug("order_event_unrecognized",
			observability.F("event", e.EventName()),
		)
	}
	return nil
}
