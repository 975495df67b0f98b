package inventory

import (
	"context"

	domcatalog "github.com/Zhima-Mochi/ministore/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/ministore/internal/domain/order"
	"github.com/Zhima-Mochi/ministore/internal/observability"
	"github.com/Zhima-Mochi/ministore/internal/observability/logctx"
)

// Adjuster applies inventory decrements for paid orders. Decrements are
// best-effort: the sale already happened, so failures are logged and never
// propagated back to reconciliation.
type Adjuster struct {
	catalog domcatalog.Repository

	log        observability.Logger
	decCounter observability.Counter
}

func NewAdjuster(catalog domcatalog.Repository, tel observability.Observability) *Adjuster {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Adjuster{
		catalog:    catalog,
		log:        tel.Logger().With(observability.F("component", "inventory_adjuster")),
		decCounter: tel.Metrics().Counter(observability.MInventoryDecrements),
	}
}

// ReleaseForOrder decrements each snapshot item's product by the quantity the
// customer paid for, floored at zero by the store. The caller guarantees this
// runs at most once per order.
func (a *Adjuster) ReleaseForOrder(ctx context.Context, o *domorder.Order) {
	logger := logctx.FromOr(ctx, a.log).With(observability.F("order_id", o.ID))

	for _, item := range o.Items {
		qty := item.EffectiveQuantity()
		err := a.catalog.Decrement(ctx, item.ProductID, qty)

		outcome := "success"
		if err != nil {
			outcome = "error"
			logger.Warn("inventory_decrement_failed",
				observability.F("product_id", item.ProductID),
				observability.F("quantity", qty),
				observability.F("error", err.Error()),
			)
		}
		a.decCounter.Add(1, observability.L("outcome", outcome))
	}
}
