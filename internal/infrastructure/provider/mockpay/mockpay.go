package mockpay

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Zhima-Mochi/ministore/internal/domain/payment"
	"github.com/google/uuid"
)

const ProviderName = "mockpay"

type record struct {
	status payment.Status
	amount int64
}

// Provider is an in-memory payment gateway simulation for local development
// and tests. Payments start open; they settle either explicitly via Settle or,
// with auto-settle enabled, on the first status fetch with a dice roll.
type Provider struct {
	mu          sync.Mutex
	payments    map[string]*record
	random      *rand.Rand
	autoSettle  bool
	successRate float64
	checkoutURL string
}

type Option func(*Provider)

// WithAutoSettle makes open payments settle on first status fetch, succeeding
// with the given rate.
func WithAutoSettle(successRate float64) Option {
	return func(p *Provider) {
		p.autoSettle = true
		p.successRate = successRate
	}
}

func New(opts ...Option) *Provider {
	p := &Provider{
		payments:    make(map[string]*record),
		random:      rand.New(rand.NewSource(time.Now().UnixNano())),
		successRate: 0.7,
		checkoutURL: "https://pay.mockpay.test/checkout",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ payment.Provider = (*Provider)(nil)

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) CreatePayment(ctx context.Context, req payment.CreatePaymentRequest) (*payment.CreatePaymentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", payment.ErrProvider, err)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", payment.ErrProvider)
	}

	externalID := "mp_" + uuid.NewString()

	p.mu.Lock()
	p.payments[externalID] = &record{status: payment.StatusOpen, amount: req.Amount}
	p.mu.Unlock()

	return &payment.CreatePaymentResult{
		ExternalID:  externalID,
		RedirectURL: p.checkoutURL + "/" + externalID,
	}, nil
}

func (p *Provider) GetPaymentStatus(ctx context.Context, externalID string) (payment.Status, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", payment.ErrProvider, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.payments[externalID]
	if !ok {
		return "", payment.ErrNotFound
	}
	if p.autoSettle && rec.status == payment.StatusOpen {
		if p.random.Float64() <= p.successRate {
			rec.status = payment.StatusPaid
		} else {
			rec.status = payment.StatusFailed
		}
	}
	return rec.status, nil
}

// Settle forces a payment into the given status. Dev/test hook.
func (p *Provider) Settle(externalID string, status payment.Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.payments[externalID]
	if !ok {
		return payment.ErrNotFound
	}
	rec.status = status
	return nil
}
