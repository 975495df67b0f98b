package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	appAdmin "github.com/Zhima-Mochi/ministore/internal/application/admin"
	appCheckout "github.com/Zhima-Mochi/ministore/internal/application/checkout"
	appReconcile "github.com/Zhima-Mochi/ministore/internal/application/reconcile"
	domainCatalog "github.com/Zhima-Mochi/ministore/internal/domain/catalog"
	domainOrder "github.com/Zhima-Mochi/ministore/internal/domain/order"
	domainPayment "github.com/Zhima-Mochi/ministore/internal/domain/payment"
	"github.com/Zhima-Mochi/ministore/internal/observability"
	"github.com/Zhima-Mochi/ministore/internal/observability/logctx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const componentHTTPHandler = "http_server"

type Handler struct {
	checkout  *appCheckout.UseCase
	reconcile *appReconcile.UseCase
	admin     *appAdmin.UseCase
	log       observability.Logger
	tel       observability.Observability
}

func NewHandler(
	checkout *appCheckout.UseCase,
	reconcile *appReconcile.UseCase,
	admin *appAdmin.UseCase,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		checkout:  checkout,
		reconcile: reconcile,
		admin:     admin,
		log:       tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:       tel,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(ObservabilityMiddleware(h.log, h.tel))

	r.Post("/checkout", h.handleCheckout)
	r.Get("/payments/verify", h.handleVerifyPayment)
	r.Post("/webhooks/{provider}", h.handleProviderWebhook)
	r.Get("/health", h.handleHealth)

	r.Route("/admin", func(r chi.Router) {
		r.Use(WithAdminToken)
		r.Get("/orders", h.handleListOrders)
		r.Patch("/orders/{id}", h.handleUpdateOrder)
		r.Delete("/orders/{id}", h.handleDeleteOrder)
	})

	return r
}

type checkoutItemRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type checkoutRequest struct {
	Items         []checkoutItemRequest `json:"items"`
	CustomerEmail string                `json:"customer_email"`
}

type checkoutResponse struct {
	OrderID string `json:"order_id"`
	URL     string `json:"url"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	items := make([]appCheckout.CartItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, appCheckout.CartItem{ProductID: it.ID, Quantity: it.Quantity})
	}

	result, err := h.checkout.Execute(r.Context(), appCheckout.Input{
		Items:         items,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID: result.OrderID,
		URL:     result.RedirectURL,
	})
}

type verifyPaymentResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(r.URL.Query().Get("order"))
	if orderID == "" {
		writeError(w, http.StatusBadRequest, errors.New("order query parameter is required"))
		return
	}

	status, err := h.reconcile.VerifyPayment(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyPaymentResponse{
		OrderID: orderID,
		Status:  string(status),
	})
}

// handleProviderWebhook accepts provider callbacks carrying the external
// payment id either as a form field or a JSON body. It acknowledges with 200
// no matter what: the provider's redelivery schedule is the retry mechanism,
// and processing failures are logged server-side.
func (h *Handler) handleProviderWebhook(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")
	externalID := extractPaymentID(r)

	if err := h.reconcile.HandleCallback(r.Context(), providerName, externalID); err != nil {
		logctx.FromOr(r.Context(), h.log).Error("webhook_processing_failed",
			observability.F("provider", providerName),
			observability.F("error", err.Error()),
		)
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type orderResponse struct {
	ID             string             `json:"id"`
	CustomerEmail  string             `json:"customer_email,omitempty"`
	Items          []domainOrder.Item `json:"items"`
	TotalAmount    int64              `json:"total_amount"`
	Status         string             `json:"status"`
	TrackingNumber string             `json:"tracking_number,omitempty"`
	ProviderName   string             `json:"provider_name,omitempty"`
	ProviderRef    string             `json:"provider_ref,omitempty"`
	CreatedAt      string             `json:"created_at"`
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.admin.ListOrders(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateOrderRequest struct {
	Status         *string `json:"status"`
	TrackingNumber *string `json:"tracking_number"`
}

type updateOrderResponse struct {
	Changed bool `json:"changed"`
}

func (h *Handler) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	changed, err := h.admin.UpdateOrder(r.Context(), chi.URLParam(r, "id"), appAdmin.UpdateOrderInput{
		Status:         req.Status,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updateOrderResponse{Changed: changed})
}

type deleteOrderResponse struct {
	Deleted bool `json:"deleted"`
}

func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.admin.DeleteOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteOrderResponse{Deleted: deleted})
}

func toOrderResponse(o *domainOrder.Order) orderResponse {
	return orderResponse{
		ID:             o.ID,
		CustomerEmail:  o.CustomerEmail,
		Items:          o.Items,
		TotalAmount:    o.TotalAmount,
		Status:         string(o.Status),
		TrackingNumber: o.TrackingNumber,
		ProviderName:   o.ProviderName,
		ProviderRef:    o.ProviderRef,
		CreatedAt:      o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func extractPaymentID(r *http.Request) string {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var body struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			return strings.TrimSpace(body.ID)
		}
		return ""
	}
	if err := r.ParseForm(); err != nil {
		return ""
	}
	return strings.TrimSpace(r.PostFormValue("id"))
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appAdmin.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, domainOrder.ErrNotFound),
		errors.Is(err, domainPayment.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domainOrder.ErrEmptyCart),
		errors.Is(err, domainOrder.ErrInvalidStatus),
		errors.Is(err, domainCatalog.ErrUnknownProduct),
		errors.Is(err, domainPayment.ErrUnsupportedProvider):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domainPayment.ErrProvider):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
