package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	domcatalog "github.com/Zhima-Mochi/ministore/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/ministore/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/ministore/internal/domain/payment"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/provider"
	"github.com/Zhima-Mochi/ministore/internal/infrastructure/provider/mockpay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sequentialIDs struct{ n int }

func (g *sequentialIDs) NewID() string {
	g.n++
	return fmt.Sprintf("o-%d", g.n)
}

type failingProvider struct{}

func (failingProvider) Name() string { return "mockpay" }

func (failingProvider) CreatePayment(context.Context, dompayment.CreatePaymentRequest) (*dompayment.CreatePaymentResult, error) {
	return nil, fmt.Errorf("%w: gateway down", dompayment.ErrProvider)
}

func (failingProvider) GetPaymentStatus(context.Context, string) (dompayment.Status, error) {
	return "", fmt.Errorf("%w: gateway down", dompayment.ErrProvider)
}

type fixture struct {
	uc       *UseCase
	orders   *memory.OrderRepository
	products *memory.ProductRepository
}

func newFixture(t *testing.T, prov dompayment.Provider) *fixture {
	t.Helper()

	orders := memory.NewOrderRepository()
	products := memory.NewProductRepository()
	products.Seed(
		domcatalog.Product{ID: "p-mug", Title: "Stoneware Mug", Price: 9.99, Inventory: 100},
		domcatalog.Product{ID: "p-grinder", Title: "Hand Grinder", Price: 64.99, Inventory: 12},
	)

	uc := NewUseCase(orders, products, provider.NewRegistry(prov), nil, &sequentialIDs{}, Config{
		ProviderName:    "mockpay",
		Currency:        "EUR",
		RedirectBaseURL: "https://shop.test/checkout/complete",
		WebhookBaseURL:  "https://shop.test/webhooks",
	}, nil)

	return &fixture{uc: uc, orders: orders, products: products}
}

func TestExecutePricesInMinorUnits(t *testing.T) {
	f := newFixture(t, mockpay.New())
	ctx := context.Background()

	result, err := f.uc.Execute(ctx, Input{Items: []CartItem{
		{ProductID: "p-mug", Quantity: 2},
		{ProductID: "p-grinder", Quantity: 1},
	}})
	require.NoError(t, err)
	require.NotEmpty(t, result.OrderID)
	assert.Contains(t, result.RedirectURL, "mockpay")

	ord, err := f.orders.Get(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(2*999+6499), ord.TotalAmount)
	assert.Equal(t, domorder.StatusPending, ord.Status)
	assert.Equal(t, "mockpay", ord.ProviderName)
	assert.NotEmpty(t, ord.ProviderRef)
}

func TestExecuteRejectsEmptyCart(t *testing.T) {
	f := newFixture(t, mockpay.New())

	_, err := f.uc.Execute(context.Background(), Input{})
	assert.ErrorIs(t, err, domorder.ErrEmptyCart)
}

func TestExecuteUnknownProductCreatesNoOrder(t *testing.T) {
	f := newFixture(t, mockpay.New())
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, Input{Items: []CartItem{
		{ProductID: "p-mug", Quantity: 1},
		{ProductID: "p-vanished", Quantity: 1},
	}})
	assert.ErrorIs(t, err, domcatalog.ErrUnknownProduct)

	orders, err := f.orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestExecuteMissingQuantityChargedAsOne(t *testing.T) {
	f := newFixture(t, mockpay.New())
	ctx := context.Background()

	result, err := f.uc.Execute(ctx, Input{Items: []CartItem{
		{ProductID: "p-mug"},
	}})
	require.NoError(t, err)

	ord, err := f.orders.Get(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(999), ord.TotalAmount)
	// the snapshot keeps the raw requested quantity
	assert.Equal(t, 0, ord.Items[0].Quantity)
}

func TestExecuteProviderFailureLeavesOrderPending(t *testing.T) {
	f := newFixture(t, failingProvider{})
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, Input{Items: []CartItem{
		{ProductID: "p-mug", Quantity: 1},
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dompayment.ErrProvider))

	orders, err := f.orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domorder.StatusPending, orders[0].Status)
	assert.Empty(t, orders[0].ProviderRef)
}

func TestExecuteUnknownProviderName(t *testing.T) {
	f := newFixture(t, mockpay.New())
	f.uc.cfg.ProviderName = "stripe"

	_, err := f.uc.Execute(context.Background(), Input{Items: []CartItem{
		{ProductID: "p-mug", Quantity: 1},
	}})
	assert.ErrorIs(t, err, dompayment.ErrUnsupportedProvider)
}

func TestExecuteSnapshotSurvivesPriceChange(t *testing.T) {
	f := newFixture(t, mockpay.New())
	ctx := context.Background()

	result, err := f.uc.Execute(ctx, Input{Items: []CartItem{
		{ProductID: "p-mug", Quantity: 1},
	}})
	require.NoError(t, err)

	f.products.Seed(domcatalog.Product{ID: "p-mug", Title: "Stoneware Mug", Price: 19.99, Inventory: 100})

	ord, err := f.orders.Get(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(999), ord.TotalAmount)
	assert.Equal(t, int64(999), ord.Items[0].UnitPrice)
}
