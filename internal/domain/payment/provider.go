package payment

import (
	"context"
	"errors"
)

var (
	ErrProvider            = errors.New("payment: provider request failed")
	ErrNotFound            = errors.New("payment: payment not found")
	ErrUnsupportedProvider = errors.New("payment: unsupported provider")
)

// Status is the provider-side view of a payment. Only the four terminal
// statuses drive order transitions; open and pending are informational.
type Status string

const (
	StatusOpen     Status = "open"
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
	StatusFailed   Status = "failed"
)

type CreatePaymentRequest struct {
	Amount      int64 // minor units
	Currency    string
	Description string
	// Metadata is round-tripped through the provider; checkout embeds the
	// order id here as the reconciliation join key.
	Metadata    map[string]string
	RedirectURL string
	WebhookURL  string
}

type CreatePaymentResult struct {
	ExternalID  string
	RedirectURL string
}

// Resolver selects a configured provider by name, failing fast with
// ErrUnsupportedProvider for unknown names.
type Resolver interface {
	Lookup(name string) (Provider, error)
}

// Provider is the boundary to an external payment gateway. Implementations
// must verify anything they return; the core trusts adapter output only.
type Provider interface {
	Name() string
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error)
	GetPaymentStatus(ctx context.Context, externalID string) (Status, error)
}
