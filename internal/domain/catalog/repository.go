package catalog

import "context"

// Repository is the narrow catalog surface the core consumes. Product
// lifecycle (create/update/search) belongs to the catalog collaborator and is
// not part of this module.
type Repository interface {
	// FindByIDs resolves products in one batched lookup. Ids absent from the
	// catalog are simply missing from the result; callers decide whether that
	// is fatal.
	FindByIDs(ctx context.Context, ids []string) (map[string]*Product, error)

	// Decrement lowers a product's inventory by quantity, floored at zero.
	// A missing product is not an error.
	Decrement(ctx context.Context, productID string, quantity int) error
}
