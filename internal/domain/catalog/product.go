package catalog

import (
	"errors"
	"math"
	"time"
)

var (
	ErrUnknownProduct = errors.New("catalog: unknown product")
)

type Product struct {
	ID        string
	Title     string
	Price     float64 // major units, as stored by the catalog collaborator
	Inventory int
	UpdatedAt time.Time
}

// PriceMinorUnits converts the stored major-unit price to integer minor units,
// rounding to the nearest integer exactly once. All money math after this
// point stays in int64.
func (p Product) PriceMinorUnits() int64 {
	return int64(math.Round(p.Price * 100))
}
