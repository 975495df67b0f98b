package httppresentation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/ministore/internal/observability"
	"github.com/Zhima-Mochi/ministore/internal/observability/logctx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const headerRequestID = "X-Request-ID"

// ObservabilityMiddleware combines, per request:
// - W3C trace context extraction + a server span
// - X-Request-ID generation + echo
// - request-scoped logger injection (dynamic fields only)
// - HTTP RED metrics with the low-cardinality chi route template
// - a single access log line after the handler completes
func ObservabilityMiddleware(base observability.Logger, tel observability.Observability) func(http.Handler) http.Handler {
	if base == nil {
		base = observability.NopLogger()
	}
	if tel == nil {
		tel = observability.Nop()
	}
	prop := otel.GetTextMapPropagator() // W3C by default
	tracer := otel.Tracer("ministore.http")
	requests := tel.Metrics().Counter(observability.MHTTPRequests)
	durations := tel.Metrics().Histogram(observability.MHTTPRequestDuration)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.Path),
					attribute.String("http.user_agent", r.UserAgent()),
				),
			)
			defer span.End()

			rid := r.Header.Get(headerRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set(headerRequestID, rid)

			fields := []observability.Field{observability.F("request_id", rid)}
			if sc := span.SpanContext(); sc.IsValid() {
				fields = append(fields,
					observability.F("trace_id", sc.TraceID().String()),
					observability.F("span_id", sc.SpanID().String()),
				)
			}
			reqLogger := base.With(fields...)
			ctx = logctx.With(ctx, reqLogger)

			start := time.Now()
			lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(lrw, r.WithContext(ctx))

			// The route template is only known after chi has matched.
			route := r.URL.Path
			if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", lrw.status),
			)

			statusLabel := strconv.Itoa(lrw.status)
			requests.Add(1,
				observability.L("method", r.Method),
				observability.L("route", route),
				observability.L("status", statusLabel),
			)
			durations.Observe(time.Since(start).Seconds(),
				observability.L("method", r.Method),
				observability.L("route", route),
			)

			reqLogger.Info("http_access",
				observability.F("method", r.Method),
				observability.F("route", route),
				observability.F("path", r.URL.Path),
				observability.F("status", lrw.status),
				observability.F("latency_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
