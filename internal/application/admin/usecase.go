package admin

import (
	"context"
	"errors"
	"fmt"

	domorder "github.com/Zhima-Mochi/ministore/internal/domain/order"
	"github.com/Zhima-Mochi/ministore/internal/observability"
	"github.com/Zhima-Mochi/ministore/internal/observability/logctx"
)

var ErrUnauthorized = errors.New("admin: unauthorized")

// Authorizer is the admin-gate capability. Credential checking and session
// issuance live outside this module; the core only asks whether the request
// context is an administrator.
type Authorizer interface {
	IsAdmin(ctx context.Context) bool
}

type UpdateOrderInput struct {
	Status         *string
	TrackingNumber *string
}

// UseCase is the admin order-management surface. Every operation checks the
// gate first; unauthorized calls cause no state change.
type UseCase struct {
	orders domorder.Repository
	auth   Authorizer

	log        observability.Logger
	reqCounter observability.Counter
}

func NewUseCase(orders domorder.Repository, auth Authorizer, tel observability.Observability) *UseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	return &UseCase{
		orders:     orders,
		auth:       auth,
		log:        tel.Logger().With(observability.F("service", "admin")),
		reqCounter: tel.Metrics().Counter(observability.MUsecaseRequests),
	}
}

func (uc *UseCase) ListOrders(ctx context.Context) ([]*domorder.Order, error) {
	if err := uc.guard(ctx, "admin.orders.list"); err != nil {
		return nil, err
	}
	return uc.orders.List(ctx)
}

// UpdateOrder applies a partial status/tracking update and reports whether
// anything changed.
func (uc *UseCase) UpdateOrder(ctx context.Context, id string, input UpdateOrderInput) (bool, error) {
	if err := uc.guard(ctx, "admin.orders.update"); err != nil {
		return false, err
	}

	patch := domorder.FulfillmentPatch{TrackingNumber: input.TrackingNumber}
	if input.Status != nil {
		status := domorder.Status(*input.Status)
		if !status.Valid() {
			return false, fmt.Errorf("%w: %q", domorder.ErrInvalidStatus, *input.Status)
		}
		patch.Status = &status
	}
	if patch.Status == nil && patch.TrackingNumber == nil {
		return false, nil
	}

	changed, err := uc.orders.UpdateFulfillment(ctx, id, patch)
	if err != nil {
		return false, err
	}
	if changed {
		logctx.FromOr(ctx, uc.log).Info("order_updated_by_admin",
			observability.F("order_id", id),
		)
	}
	return changed, nil
}

// DeleteOrder removes the order entirely. A later webhook for a deleted order
// is handled as an unknown reference.
func (uc *UseCase) DeleteOrder(ctx context.Context, id string) (bool, error) {
	if err := uc.guard(ctx, "admin.orders.delete"); err != nil {
		return false, err
	}

	deleted, err := uc.orders.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		logctx.FromOr(ctx, uc.log).Info("order_deleted_by_admin",
			observability.F("order_id", id),
		)
	}
	return deleted, nil
}

func (uc *UseCase) guard(ctx context.Context, useCase string) error {
	if uc.auth != nil && uc.auth.IsAdmin(ctx) {
		uc.reqCounter.Add(1,
			observability.L("use_case", useCase),
			observability.L("outcome", "success"),
		)
		return nil
	}
	uc.reqCounter.Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", "unauthorized"),
	)
	logctx.FromOr(ctx, uc.log).Warn("admin_call_unauthorized",
		observability.F("use_case", useCase),
	)
	return ErrUnauthorized
}
