package order

import "time"

// OrderCreatedEvent is emitted after checkout persists a new pending order.
type OrderCreatedEvent struct {
	OrderID     string
	TotalAmount int64
	ItemCount   int
	OccurredAt  time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:     o.ID,
		TotalAmount: o.TotalAmount,
		ItemCount:   len(o.Items),
		OccurredAt:  time.Now().UTC(),
	}
}

// OrderPaidEvent is emitted exactly once per order, on the first transition
// into the paid state.
type OrderPaidEvent struct {
	OrderID     string
	Provider    string
	TotalAmount int64
	OccurredAt  time.Time
}

func (OrderPaidEvent) EventName() string { return "order.paid" }

func NewOrderPaidEvent(o *Order) OrderPaidEvent {
	return OrderPaidEvent{
		OrderID:     o.ID,
		Provider:    o.ProviderName,
		TotalAmount: o.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
}

// OrderPaymentFailedEvent is emitted when reconciliation observes a non-paid
// terminal provider outcome (canceled, expired or failed).
type OrderPaymentFailedEvent struct {
	OrderID    string
	Provider   string
	Status     Status
	OccurredAt time.Time
}

func (OrderPaymentFailedEvent) EventName() string { return "order.payment_failed" }

func NewOrderPaymentFailedEvent(o *Order, status Status) OrderPaymentFailedEvent {
	return OrderPaymentFailedEvent{
		OrderID:    o.ID,
		Provider:   o.ProviderName,
		Status:     status,
		OccurredAt: time.Now().UTC(),
	}
}
