package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appAdmin "github.com/Zhima-Mochi/ministore/internal/application/admin"
	appAudit "github.com/Zhima-Mochi/ministore/internal/application/audit"
	appCheckout "github.com/Zhima-Mochi/ministore/internal/application/checkout"
	appInventory "github.com/Zhima-Mochi/ministore/internal/application/inventory"
	appReconcile "github.com/Zhima-Mochi/ministore/internal/application/reconcile"
	domcatalog "github.com/Zhima-Mochi/ministore/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/ministore/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/ministore/internal/domain/payment"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/id"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/provider"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/provider/mockpay"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/provider/mollie"
	"github.com/Zhima-Mochi/ministore/internal/observability"
	"github.com/Zhima-Mochi/ministore/internal/pkg/cache"
	"github.com/Zhima-Mochi/ministore/internal/pkg/config"
	httppresentation "github.com/Zhima-Mochi/ministore/internal/presentation/http"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.FromEnv()

	logger := zaplogger.New(
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	defer func() {
		if s, ok := logger.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	}()

	registry := prometrics.New(cfg.ServiceName, "")
	tel := telemetry.New(
		oteltrace.New(cfg.ServiceName),
		logger,
		map[observability.MetricKey]observability.Counter{
			observability.MUsecaseRequests:     registry.Counter(string(observability.MUsecaseRequests), "Total number of use case invocations.", "use_case", "outcome"),
			observability.MHTTPRequests:        registry.Counter(string(observability.MHTTPRequests), "Total number of HTTP requests.", "method", "route", "status"),
			observability.MProviderRequests:    registry.Counter(string(observability.MProviderRequests), "Outbound payment provider calls.", "provider", "operation", "outcome"),
			observability.MWebhookEvents:       registry.Counter(string(observability.MWebhookEvents), "Provider webhook deliveries by outcome.", "provider", "outcome"),
			observability.MInventoryDecrements: registry.Counter(string(observability.MInventoryDecrements), "Inventory decrements applied for paid orders.", "outcome"),
			observability.MOrderEvents:         registry.Counter(string(observability.MOrderEvents), "Order lifecycle events observed.", "event"),
		},
		map[observability.MetricKey]observability.Histogram{
			observability.MUsecaseDuration:         registry.Histogram(string(observability.MUsecaseDuration), "Duration of use case execution in seconds.", nil, "use_case"),
			observability.MHTTPRequestDuration:     registry.Histogram(string(observability.MHTTPRequestDuration), "Duration of HTTP requests in seconds.", nil, "method", "route"),
			observability.MProviderRequestDuration: registry.Histogram(string(observability.MProviderRequestDuration), "Duration of provider calls in seconds.", nil, "provider", "operation"),
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orders, products := buildStores(ctx, cfg, logger)

	dedup := buildDedupCache(cfg)

	providers := provider.NewRegistry(buildProviders(cfg)...)

	bus := outbox.NewBus(logger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	adjuster := appInventory.NewAdjuster(products, tel)
	checkoutUC := appCheckout.NewUseCase(orders, products, providers, bus, id.NewUUIDGenerator(), appCheckout.Config{
		ProviderName:    cfg.Provider,
		Currency:        cfg.Currency,
		RedirectBaseURL: cfg.PublicBaseURL + "/checkout/complete",
		WebhookBaseURL:  cfg.PublicBaseURL + "/webhooks",
	}, tel)
	reconcileUC := appReconcile.NewUseCase(orders, providers, adjuster, bus, dedup, tel)
	adminUC := appAdmin.NewUseCase(orders, httppresentation.NewTokenAuthorizer(cfg.AdminToken), tel)

	auditWorker := appAudit.New(bus, tel)
	auditWorker.Start()

	handler := httppresentation.NewHandler(checkoutUC, reconcileUC, adminUC, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	go func() {
		logger.Info("http_server_start",
			observability.F("addr", server.Addr),
			observability.F("provider", cfg.Provider),
			observability.F("order_store", cfg.OrderStore),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error",
				observability.F("error", err.Error()),
			)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error",
			observability.F("error", err.Error()),
		)
	} else {
		logger.Info("http_server_stopped")
	}
}

func buildStores(ctx context.Context, cfg config.Config, logger observability.Logger) (domorder.Repository, domcatalog.Repository) {
	if cfg.OrderStore == "postgres" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("postgres_connect_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			logger.Error("postgres_schema_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
		return postgres.NewOrderRepository(pool), postgres.NewProductRepository(pool)
	}

	orders := memory.NewOrderRepository()
	products := memory.NewProductRepository()
	products.Seed(
		domcatalog.Product{ID: "p-espresso", Title: "Espresso Beans 1kg", Price: 18.50, Inventory: 40},
		domcatalog.Product{ID: "p-grinder", Title: "Hand Grinder", Price: 64.99, Inventory: 12},
		domcatalog.Product{ID: "p-mug", Title: "Stoneware Mug", Price: 9.99, Inventory: 100},
	)
	return orders, products
}

func buildDedupCache(cfg config.Config) cache.Cache {
	if cfg.RedisAddr != "" {
		return cache.NewRedisCache(cfg.RedisAddr, cfg.ServiceName)
	}
	return cache.NewMemoryCache(cfg.ServiceName)
}

func buildProviders(cfg config.Config) []dompayment.Provider {
	providers := []dompayment.Provider{
		mockpay.New(mockpay.WithAutoSettle(0.7)),
	}
	if cfg.MollieAPIKey != "" {
		providers = append(providers, mollie.New(cfg.MollieAPIKey, cfg.MollieBaseURL))
	}
	return providers
}
