package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/ministore/internal/domain/catalog"
)

// ProductRepository is an in-memory catalog store. The core only reads
// products and decrements inventory; seeding is done by the embedding
// application (or tests).
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]*domain.Product),
	}
}

var _ domain.Repository = (*ProductRepository)(nil)

// Seed inserts or replaces a product. Intended for bootstrap and tests.
func (r *ProductRepository) Seed(products ...domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range products {
		clone := p
		clone.UpdatedAt = time.Now().UTC()
		r.products[p.ID] = &clone
	}
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			clone := *p
			out[id] = &clone
		}
	}
	return out, nil
}

func (r *ProductRepository) Decrement(ctx context.Context, productID string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		// The sale already happened; a vanished product is tolerated.
		return nil
	}
	p.Inventory -= quantity
	if p.Inventory < 0 {
		p.Inventory = 0
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}
