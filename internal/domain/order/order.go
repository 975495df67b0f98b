package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("order: not found")
	ErrConflict      = errors.New("order: already exists")
	ErrEmptyCart     = errors.New("order: cart must contain at least one item")
	ErrInvalidStatus = errors.New("order: unknown status")
	ErrPaymentSet    = errors.New("order: provider payment reference already set")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusCanceled   Status = "canceled"
	StatusExpired    Status = "expired"
	StatusFailed     Status = "failed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCanceled, StatusExpired,
		StatusFailed, StatusProcessing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

// Item is a checkout-time snapshot of a cart line. Title and UnitPrice are
// copied from the catalog when the order is created and never re-derived.
type Item struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"` // minor units
	Quantity  int    `json:"quantity"`   // raw requested quantity, kept as received
}

// EffectiveQuantity normalizes non-positive requested quantities to 1,
// matching what checkout charged for.
func (i Item) EffectiveQuantity() int {
	if i.Quantity < 1 {
		return 1
	}
	return i.Quantity
}

func (i Item) Subtotal() int64 {
	return i.UnitPrice * int64(i.EffectiveQuantity())
}

type Order struct {
	ID             string
	CustomerEmail  string
	Items          []Item
	TotalAmount    int64 // minor units, fixed at creation
	Status         Status
	TrackingNumber string
	ProviderName   string
	ProviderRef    string // external payment id, set at most once
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func New(id, customerEmail string, items []Item) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}

	now := time.Now().UTC()
	return &Order{
		ID:            id,
		CustomerEmail: customerEmail,
		Items:         append([]Item(nil), items...),
		TotalAmount:   total,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// AttachPayment records the external payment created for this order.
// The reference is immutable once set; it is the sole reconciliation join key.
func (o *Order) AttachPayment(providerName, reference string) error {
	if o.ProviderRef != "" {
		return ErrPaymentSet
	}
	o.ProviderName = providerName
	o.ProviderRef = reference
	o.touch()
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
