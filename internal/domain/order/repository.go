package order

import "context"

// FulfillmentPatch is an admin-side partial update. Nil fields are untouched.
type FulfillmentPatch struct {
	Status         *Status
	TrackingNumber *string
}

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	GetByProviderRef(ctx context.Context, reference string) (*Order, error)
	List(ctx context.Context) ([]*Order, error)

	// AttachPayment persists the provider name and external payment reference.
	// Implementations must reject a second reference for the same order.
	AttachPayment(ctx context.Context, id, providerName, reference string) error

	// MarkPaid transitions the order into the paid state if and only if it is
	// not already paid, as a single atomic check-and-set serialized per order.
	// It reports whether this call performed the transition.
	MarkPaid(ctx context.Context, id string) (bool, error)

	// UpdateStatus overwrites the status unconditionally.
	UpdateStatus(ctx context.Context, id string, status Status) error

	// UpdateFulfillment applies an admin patch and reports whether any row changed.
	UpdateFulfillment(ctx context.Context, id string, patch FulfillmentPatch) (bool, error)

	// Delete removes the order entirely and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}
