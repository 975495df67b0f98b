package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	domorder "github.com/Zhima-Mochi/ministore/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/ministore/internal/domain/outbox"
	dompayment "github.com/Zhima-Mochi/ministore/internal/domain/payment"
	"github.com/Zhima-Mochi/ministore/internal/observability"
	"github.com/Zhima-Mochi/ministore/internal/observability/logctx"
	"github.com/Zhima-Mochi/ministore/internal/pkg/cache"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	reconcileService = "reconcile"
	useCaseWebhook   = "reconcile.webhook"
	useCaseVerify    = "reconcile.verify"
	spanPrefix       = "UC."
	publishTimeout   = 300 * time.Millisecond
	dedupTTL         = 24 * time.Hour
)

// InventoryReleaser is the inventory side effect fired exactly once per order,
// on the first transition into paid.
type InventoryReleaser interface {
	ReleaseForOrder(ctx context.Context, o *domorder.Order)
}

// UseCase reflects external payment outcomes onto local order state. Push
// (webhook) and pull (verify) converge on one transition routine; the order
// store's MarkPaid compare-and-set is the only idempotence guard.
type UseCase struct {
	orders    domorder.Repository
	providers dompayment.Resolver
	inventory InventoryReleaser
	publisher domoutbox.Publisher
	dedup     cache.Cache
	tel       observability.Observability

	log         observability.Logger
	reqCounter  observability.Counter
	durHist     observability.Histogram
	webhooks    observability.Counter
	provCounter observability.Counter
	provHist    observability.Histogram
}

func NewUseCase(
	orders domorder.Repository,
	providers dompayment.Resolver,
	inventory InventoryReleaser,
	publisher domoutbox.Publisher,
	dedup cache.Cache,
	tel observability.Observability,
) *UseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return &UseCase{
		orders:      orders,
		providers:   providers,
		inventory:   inventory,
		publisher:   publisher,
		dedup:       dedup,
		tel:         tel,
		log:         tel.Logger().With(observability.F("service", reconcileService)),
		reqCounter:  metrics.Counter(observability.MUsecaseRequests),
		durHist:     metrics.Histogram(observability.MUsecaseDuration),
		webhooks:    metrics.Counter(observability.MWebhookEvents),
		provCounter: metrics.Counter(observability.MProviderRequests),
		provHist:    metrics.Histogram(observability.MProviderRequestDuration),
	}
}

// HandleCallback processes one provider webhook delivery. The payload carries
// only the external payment id; the authoritative status is always re-fetched
// through the adapter, so a forged callback can at worst trigger an extra
// lookup. Errors are returned for logging but the HTTP layer acknowledges
// regardless; the provider's redelivery is the safety net.
func (uc *UseCase) HandleCallback(ctx context.Context, providerName, externalID string) (err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseWebhook),
		observability.F("provider", providerName),
		observability.F("provider_ref", externalID),
	)

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"HandleCallback",
		attribute.String("use_case", useCaseWebhook),
		attribute.String("payment.provider", providerName),
	)
	start := time.Now()
	outcome := "applied"

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, outcome)
		}
		span.End()

		uc.webhooks.Add(1,
			observability.L("provider", providerName),
			observability.L("outcome", outcome),
		)
		uc.durHist.Observe(time.Since(start).Seconds(),
			observability.L("use_case", useCaseWebhook),
		)
		logger.Info("webhook_done", observability.F("outcome", outcome))
	}()

	if externalID == "" {
		outcome = "ignored"
		return nil
	}

	dedupKey := uc.dedupKey(providerName, externalID)
	if uc.dedup != nil {
		if prior, cacheErr := uc.dedup.Get(ctx, dedupKey); cacheErr == nil && prior != "" {
			outcome = "duplicate"
			logger.Debug("webhook_duplicate_skipped",
				observability.F("prior_status", prior),
			)
			return nil
		}
	}

	ord, err := uc.orders.GetByProviderRef(ctx, externalID)
	if errors.Is(err, domorder.ErrNotFound) {
		// Provider events may reference foreign or deleted orders.
		outcome = "unknown_reference"
		logger.Info("webhook_unknown_reference")
		return nil
	}
	if err != nil {
		outcome = "store_error"
		return fmt.Errorf("reconcile: lookup order: %w", err)
	}
	logger = logger.With(observability.F("order_id", ord.ID))

	status, err := uc.fetchStatus(ctx, ord)
	if err != nil {
		outcome = "provider_error"
		return err
	}
	span.SetAttributes(attribute.String("payment.status", string(status)))

	if err := uc.applyStatus(ctx, ord, status); err != nil {
		outcome = "transition_error"
		return err
	}

	if uc.dedup != nil && isTerminal(status) {
		if cacheErr := uc.dedup.Set(ctx, dedupKey, string(status), dedupTTL); cacheErr != nil {
			logger.Debug("webhook_dedup_store_failed",
				observability.F("error", cacheErr.Error()),
			)
		}
	}
	return nil
}

// VerifyPayment is the synchronous pull path: it fetches the live provider
// status for the order's payment, applies the shared transition, and returns
// the provider status whether or not a transition occurred. Failures propagate
// to the caller.
func (uc *UseCase) VerifyPayment(ctx context.Context, orderID string) (_ dompayment.Status, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseVerify),
		observability.F("order_id", orderID),
	)

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"VerifyPayment",
		attribute.String("use_case", useCaseVerify),
		attribute.String("order.id", orderID),
	)
	start := time.Now()
	outcome := "success"

	defer func() {
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseVerify),
			observability.L("outcome", outcome),
		)
		uc.durHist.Observe(time.Since(start).Seconds(),
			observability.L("use_case", useCaseVerify),
		)
		logger.Info("verify_done", observability.F("outcome", outcome))
	}()

	ord, err := uc.orders.Get(ctx, orderID)
	if err != nil {
		return "", err
	}
	if ord.ProviderRef == "" {
		return "", fmt.Errorf("%w: order has no payment", dompayment.ErrNotFound)
	}

	status, err := uc.fetchStatus(ctx, ord)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("payment.status", string(status)))

	if err := uc.applyStatus(ctx, ord, status); err != nil {
		return "", err
	}
	return status, nil
}

// applyStatus maps the provider status onto the order and performs the paid
// side effects at most once. Non-paid terminal statuses overwrite
// unconditionally; reapplying them is harmless.
func (uc *UseCase) applyStatus(ctx context.Context, ord *domorder.Order, status dompayment.Status) error {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("order_id", ord.ID))

	target, ok := mapProviderStatus(status)
	if !ok {
		logger.Debug("provider_status_no_transition",
			observability.F("provider_status", string(status)),
		)
		return nil
	}

	if target == domorder.StatusPaid {
		transitioned, err := uc.orders.MarkPaid(ctx, ord.ID)
		if err != nil {
			return fmt.Errorf("reconcile: mark paid: %w", err)
		}
		if !transitioned {
			logger.Debug("paid_already_applied")
			return nil
		}

		uc.inventory.ReleaseForOrder(ctx, ord)
		uc.publish(ctx, domorder.NewOrderPaidEvent(ord))
		logger.Info("order_paid",
			observability.F("total_amount", ord.TotalAmount),
		)
		return nil
	}

	if err := uc.orders.UpdateStatus(ctx, ord.ID, target); err != nil {
		return fmt.Errorf("reconcile: update status: %w", err)
	}
	uc.publish(ctx, domorder.NewOrderPaymentFailedEvent(ord, target))
	logger.Info("order_payment_terminal",
		observability.F("status", string(target)),
	)
	return nil
}

func (uc *UseCase) fetchStatus(ctx context.Context, ord *domorder.Order) (dompayment.Status, error) {
	prov, err := uc.providers.Lookup(ord.ProviderName)
	if err != nil {
		return "", err
	}

	callStart := time.Now()
	status, err := prov.GetPaymentStatus(ctx, ord.ProviderRef)

	callOutcome := "success"
	if err != nil {
		callOutcome = "error"
	}
	uc.provCounter.Add(1,
		observability.L("provider", ord.ProviderName),
		observability.L("operation", "get_status"),
		observability.L("outcome", callOutcome),
	)
	uc.provHist.Observe(time.Since(callStart).Seconds(),
		observability.L("provider", ord.ProviderName),
		observability.L("operation", "get_status"),
	)
	return status, err
}

func (uc *UseCase) publish(ctx context.Context, e domoutbox.Event) {
	if uc.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := uc.publisher.Publish(pubCtx, e); err != nil {
		logctx.FromOr(ctx, uc.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
}

func (uc *UseCase) dedupKey(providerName, externalID string) string {
	key := providerName + ":" + externalID
	if uc.dedup != nil {
		return uc.dedup.GenerateKey("webhook", key)
	}
	return key
}

func mapProviderStatus(s dompayment.Status) (domorder.Status, bool) {
	switch s {
	case dompayment.StatusPaid:
		return domorder.StatusPaid, true
	case dompayment.StatusCanceled:
		return domorder.StatusCanceled, true
	case dompayment.StatusExpired:
		return domorder.StatusExpired, true
	case dompayment.StatusFailed:
		return domorder.StatusFailed, true
	default:
		return "", false
	}
}

func isTerminal(s dompayment.Status) bool {
	_, ok := mapProviderStatus(s)
	return ok
}
