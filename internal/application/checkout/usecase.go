package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	domcatalog "github.com/Zhima-Mochi/ministore/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/ministore/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/ministore/internal/domain/outbox"
	dompayment "github.com/Zhima-Mochi/ministore/internal/domain/payment"
	"github.com/Zhima-Mochi/ministore/internal/observability"
	"github.com/Zhima-Mochi/ministore/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	checkoutService = "checkout"
	useCaseCheckout = "checkout.create"
	spanPrefix      = "UC."
	publishTimeout  = 300 * time.Millisecond
)

// Config carries the checkout-time provider wiring.
type Config struct {
	ProviderName string
	Currency     string
	// RedirectBaseURL is where the provider sends the customer back;
	// the order id is appended as a query parameter.
	RedirectBaseURL string
	// WebhookBaseURL is the publicly reachable webhook prefix; the provider
	// name is appended as the final path segment.
	WebhookBaseURL  string
	ProviderTimeout time.Duration
}

type CartItem struct {
	ProductID string
	Quantity  int
}

type Input struct {
	Items         []CartItem
	CustomerEmail string
}

type Result struct {
	OrderID     string
	RedirectURL string
}

// UseCase turns a cart into a priced, immutable order plus a provider payment
// and returns the provider's redirect target.
type UseCase struct {
	orders    domorder.Repository
	products  domcatalog.Repository
	providers dompayment.Resolver
	publisher domoutbox.Publisher
	idGen     IDGenerator
	cfg       Config
	tel       observability.Observability

	log         observability.Logger
	reqCounter  observability.Counter
	durHist     observability.Histogram
	provCounter observability.Counter
	provHist    observability.Histogram
}

func NewUseCase(
	orders domorder.Repository,
	products domcatalog.Repository,
	providers dompayment.Resolver,
	publisher domoutbox.Publisher,
	idGen IDGenerator,
	cfg Config,
	tel observability.Observability,
) *UseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}
	metrics := tel.Metrics()
	return &UseCase{
		orders:      orders,
		products:    products,
		providers:   providers,
		publisher:   publisher,
		idGen:       idGen,
		cfg:         cfg,
		tel:         tel,
		log:         tel.Logger().With(observability.F("service", checkoutService)),
		reqCounter:  metrics.Counter(observability.MUsecaseRequests),
		durHist:     metrics.Histogram(observability.MUsecaseDuration),
		provCounter: metrics.Counter(observability.MProviderRequests),
		provHist:    metrics.Histogram(observability.MProviderRequestDuration),
	}
}

// Execute runs the checkout pipeline: resolve, price, persist, create payment,
// persist reference. It aborts on the first failure; no partial orders exist
// past step two.
func (uc *UseCase) Execute(ctx context.Context, cmd Input) (_ *Result, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseCheckout))

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"Checkout",
		attribute.String("use_case", useCaseCheckout),
		attribute.Int("cart.lines", len(cmd.Items)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseCheckout),
			observability.L("outcome", outcome),
		)
		uc.durHist.Observe(lat, observability.L("use_case", useCaseCheckout))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("checkout_done", fields...)
	}()

	if len(cmd.Items) == 0 {
		outcome, statusText = "error", "EMPTY_CART"
		return nil, domorder.ErrEmptyCart
	}

	items, err := uc.snapshotItems(ctx, cmd.Items)
	if err != nil {
		outcome, statusText = "error", "PRODUCT_RESOLUTION_FAILED"
		return nil, err
	}

	entity, err := domorder.New(uc.idGen.NewID(), strings.TrimSpace(cmd.CustomerEmail), items)
	if err != nil {
		outcome, statusText = "error", "ORDER_CONSTRUCTION_FAILED"
		return nil, err
	}

	if err := uc.orders.Insert(ctx, entity); err != nil {
		outcome, statusText = "error", "ORDER_INSERT_FAILED"
		return nil, fmt.Errorf("checkout: insert order: %w", err)
	}
	logger = logger.With(observability.F("order_id", entity.ID))

	created, err := uc.createPayment(ctx, entity)
	if err != nil {
		// The order stays pending with no reference; the customer may retry
		// checkout, producing a fresh order.
		outcome, statusText = "error", "PROVIDER_CREATE_FAILED"
		logger.Warn("payment_create_failed_order_abandoned",
			observability.F("provider", uc.cfg.ProviderName),
			observability.F("error", err.Error()),
		)
		return nil, err
	}

	if err := uc.orders.AttachPayment(ctx, entity.ID, uc.cfg.ProviderName, created.ExternalID); err != nil {
		outcome, statusText = "error", "REFERENCE_PERSIST_FAILED"
		logger.Error("payment_reference_persist_failed",
			observability.F("provider_ref", created.ExternalID),
			observability.F("error", err.Error()),
		)
		return nil, fmt.Errorf("checkout: attach payment: %w", err)
	}
	entity.ProviderName = uc.cfg.ProviderName
	entity.ProviderRef = created.ExternalID

	if uc.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		if pubErr := uc.publisher.Publish(pubCtx, domorder.NewOrderCreatedEvent(entity)); pubErr != nil {
			logger.Warn("order_created_event_publish_failed",
				observability.F("error", pubErr.Error()),
			)
		}
		cancel()
	}

	span.SetAttributes(
		attribute.String("order.id", entity.ID),
		attribute.Int64("order.total_amount", entity.TotalAmount),
	)

	return &Result{OrderID: entity.ID, RedirectURL: created.RedirectURL}, nil
}

// snapshotItems resolves every distinct product in one batched lookup and
// freezes title and minor-unit price per line. Any unresolved id fails the
// whole cart.
func (uc *UseCase) snapshotItems(ctx context.Context, lines []CartItem) ([]domorder.Item, error) {
	distinct := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if line.ProductID == "" {
			return nil, fmt.Errorf("%w: empty product id", domcatalog.ErrUnknownProduct)
		}
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		distinct = append(distinct, line.ProductID)
	}

	resolved, err := uc.products.FindByIDs(ctx, distinct)
	if err != nil {
		return nil, fmt.Errorf("checkout: resolve products: %w", err)
	}

	items := make([]domorder.Item, 0, len(lines))
	for _, line := range lines {
		product, ok := resolved[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domcatalog.ErrUnknownProduct, line.ProductID)
		}
		items = append(items, domorder.Item{
			ProductID: product.ID,
			Title:     product.Title,
			UnitPrice: product.PriceMinorUnits(),
			Quantity:  line.Quantity,
		})
	}
	return items, nil
}

func (uc *UseCase) createPayment(ctx context.Context, entity *domorder.Order) (*dompayment.CreatePaymentResult, error) {
	prov, err := uc.providers.Lookup(uc.cfg.ProviderName)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.cfg.ProviderTimeout)
	defer cancel()

	callStart := time.Now()
	created, err := prov.CreatePayment(callCtx, dompayment.CreatePaymentRequest{
		Amount:      entity.TotalAmount,
		Currency:    uc.cfg.Currency,
		Description: fmt.Sprintf("order %s", entity.ID),
		Metadata:    map[string]string{"order_id": entity.ID},
		RedirectURL: uc.cfg.RedirectBaseURL + "?order=" + entity.ID,
		WebhookURL:  uc.cfg.WebhookBaseURL + "/" + uc.cfg.ProviderName,
	})

	callOutcome := "success"
	if err != nil {
		callOutcome = "error"
	}
	uc.provCounter.Add(1,
		observability.L("provider", uc.cfg.ProviderName),
		observability.L("operation", "create_payment"),
		observability.L("outcome", callOutcome),
	)
	uc.provHist.Observe(time.Since(callStart).Seconds(),
		observability.L("provider", uc.cfg.ProviderName),
		observability.L("operation", "create_payment"),
	)
	return created, err
}
