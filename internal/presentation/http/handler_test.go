package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	appAdmin "github.com/Zhima-Mochi/ministore/internal/application/admin"
	appCheckout "github.com/Zhima-Mochi/ministore/internal/application/checkout"
	appInventory "github.com/Zhima-Mochi/ministore/internal/application/inventory"
	appReconcile "github.com/Zhima-Mochi/ministore/internal/application/reconcile"
	domcatalog "github.com/Zhima-Mochi/ministore/internal/domain/catalog"
	dompayment "github.com/Zhima-Mochi/ministore/internal/domain/payment"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/provider"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/provider/mockpay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "sekrit"

var idCounter int64

type testIDGen struct{}

func (testIDGen) NewID() string {
	return "o-" + strconv.FormatInt(atomic.AddInt64(&idCounter, 1), 10)
}

type env struct {
	server   *httptest.Server
	orders   *memory.OrderRepository
	products *memory.ProductRepository
	mockpay  *mockpay.Provider
}

func newEnv(t *testing.T) *env {
	t.Helper()

	orders := memory.NewOrderRepository()
	products := memory.NewProductRepository()
	products.Seed(
		domcatalog.Product{ID: "p-mug", Title: "Stoneware Mug", Price: 9.99, Inventory: 10},
		domcatalog.Product{ID: "p-grinder", Title: "Hand Grinder", Price: 64.99, Inventory: 2},
	)

	gateway := mockpay.New()
	registry := provider.NewRegistry(gateway)

	checkoutUC := appCheckout.NewUseCase(orders, products, registry, nil, testIDGen{}, appCheckout.Config{
		ProviderName:    mockpay.ProviderName,
		Currency:        "EUR",
		RedirectBaseURL: "https://shop.test/checkout/complete",
		WebhookBaseURL:  "https://shop.test/webhooks",
	}, nil)
	reconcileUC := appReconcile.NewUseCase(orders, registry, appInventory.NewAdjuster(products, nil), nil, nil, nil)
	adminUC := appAdmin.NewUseCase(orders, NewTokenAuthorizer(testAdminToken), nil)

	handler := NewHandler(checkoutUC, reconcileUC, adminUC, nil)
	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)

	return &env{server: server, orders: orders, products: products, mockpay: gateway}
}

func (e *env) postJSON(t *testing.T, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *env) checkout(t *testing.T, items ...map[string]any) (orderID string) {
	t.Helper()
	resp := e.postJSON(t, "/checkout", map[string]any{"items": items}, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		OrderID string `json:"order_id"`
		URL     string `json:"url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.OrderID)
	require.NotEmpty(t, body.URL)
	return body.OrderID
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCheckoutEndpoint(t *testing.T) {
	e := newEnv(t)

	orderID := e.checkout(t, map[string]any{"id": "p-mug", "quantity": 2})

	ord, err := e.orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(1998), ord.TotalAmount)
	assert.NotEmpty(t, ord.ProviderRef)
}

func TestCheckoutEndpointEmptyCart(t *testing.T) {
	e := newEnv(t)

	resp := e.postJSON(t, "/checkout", map[string]any{"items": []any{}}, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckoutEndpointUnknownProduct(t *testing.T) {
	e := newEnv(t)

	resp := e.postJSON(t, "/checkout", map[string]any{
		"items": []map[string]any{{"id": "p-vanished", "quantity": 1}},
	}, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookSettlesOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	orderID := e.checkout(t, map[string]any{"id": "p-mug", "quantity": 2})
	ord, err := e.orders.Get(ctx, orderID)
	require.NoError(t, err)
	require.NoError(t, e.mockpay.Settle(ord.ProviderRef, dompayment.StatusPaid))

	form := url.Values{"id": {ord.ProviderRef}}
	resp, err := http.PostForm(e.server.URL+"/webhooks/mockpay", form)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ord, err = e.orders.Get(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, "paid", string(ord.Status))

	found, err := e.products.FindByIDs(ctx, []string{"p-mug"})
	require.NoError(t, err)
	assert.Equal(t, 8, found["p-mug"].Inventory)
}

func TestWebhookAcknowledgesGarbage(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Post(e.server.URL+"/webhooks/mockpay", "application/json",
		strings.NewReader(`{"id":"mp_forged"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(e.server.URL+"/webhooks/mockpay", "text/plain",
		strings.NewReader("not a payload"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVerifyEndpoint(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	orderID := e.checkout(t, map[string]any{"id": "p-mug", "quantity": 1})
	ord, err := e.orders.Get(ctx, orderID)
	require.NoError(t, err)
	require.NoError(t, e.mockpay.Settle(ord.ProviderRef, dompayment.StatusPaid))

	resp, err := http.Get(e.server.URL + "/payments/verify?order=" + orderID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, orderID, body["order_id"])
	assert.Equal(t, "paid", body["status"])
}

func TestVerifyEndpointMissingParam(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.server.URL + "/payments/verify")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVerifyEndpointUnknownOrder(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.server.URL + "/payments/verify?order=missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminRequiresToken(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.server.URL + "/admin/orders")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, e.server.URL+"/admin/orders", nil)
	require.NoError(t, err)
	req.Header.Set("X-Admin-Token", "wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminListOrders(t *testing.T) {
	e := newEnv(t)
	e.checkout(t, map[string]any{"id": "p-mug", "quantity": 1})

	req, err := http.NewRequest(http.MethodGet, e.server.URL+"/admin/orders", nil)
	require.NoError(t, err)
	req.Header.Set("X-Admin-Token", testAdminToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[[]map[string]any](t, resp)
	assert.Len(t, body, 1)
}

func TestAdminUpdateAndDeleteOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	orderID := e.checkout(t, map[string]any{"id": "p-mug", "quantity": 1})

	patch, err := json.Marshal(map[string]any{"status": "shipped", "tracking_number": "TRACK-1"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPatch, e.server.URL+"/admin/orders/"+orderID, bytes.NewReader(patch))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", testAdminToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	ord, err := e.orders.Get(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, "shipped", string(ord.Status))
	assert.Equal(t, "TRACK-1", ord.TrackingNumber)

	req, err = http.NewRequest(http.MethodDelete, e.server.URL+"/admin/orders/"+orderID, nil)
	require.NoError(t, err)
	req.Header.Set("X-Admin-Token", testAdminToken)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	_, err = e.orders.Get(ctx, orderID)
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
