package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/ministore/internal/domain/order"
)

// OrderRepository is an in-memory order store. All mutations run under one
// mutex, which makes MarkPaid a true per-order compare-and-set.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	byRef  map[string]string // provider payment reference -> order id
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
		byRef:  make(map[string]string),
	}
}

var _ domain.Repository = (*OrderRepository)(nil)

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}

	r.orders[order.ID] = order.Clone()
	if order.ProviderRef != "" {
		r.byRef[order.ProviderRef] = order.ID
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) GetByProviderRef(ctx context.Context, reference string) (*domain.Order, error) {
	_ = ctx
	if reference == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byRef[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	order, found := r.orders[id]
	if !found {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *OrderRepository) AttachPayment(ctx context.Context, id, providerName, reference string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := order.AttachPayment(providerName, reference); err != nil {
		return err
	}
	r.byRef[reference] = id
	return nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string) (bool, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if order.Status == domain.StatusPaid {
		return false, nil
	}
	order.Status = domain.StatusPaid
	order.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *OrderRepository) UpdateFulfillment(ctx context.Context, id string, patch domain.FulfillmentPatch) (bool, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return false, domain.ErrNotFound
	}

	changed := false
	if patch.Status != nil && *patch.Status != order.Status {
		order.Status = *patch.Status
		changed = true
	}
	if patch.TrackingNumber != nil && *patch.TrackingNumber != order.TrackingNumber {
		order.TrackingNumber = *patch.TrackingNumber
		changed = true
	}
	if changed {
		order.UpdatedAt = time.Now().UTC()
	}
	return changed, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	if order.ProviderRef != "" {
		delete(r.byRef, order.ProviderRef)
	}
	delete(r.orders, id)
	return true, nil
}
