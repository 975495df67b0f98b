package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComputesTotalInMinorUnits(t *testing.T) {
	o, err := New("o-1", "buyer@example.com", []Item{
		{ProductID: "p-1", Title: "Mug", UnitPrice: 999, Quantity: 2},
		{ProductID: "p-2", Title: "Grinder", UnitPrice: 6499, Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2*999+6499), o.TotalAmount)
	assert.Equal(t, StatusPending, o.Status)
	assert.Len(t, o.Items, 2)
}

func TestNewRejectsEmptyCart(t *testing.T) {
	_, err := New("o-1", "", nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestItemQuantityNormalization(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		want     int
	}{
		{"positive kept", 3, 3},
		{"zero defaults to one", 0, 1},
		{"negative defaults to one", -4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := Item{ProductID: "p", UnitPrice: 100, Quantity: tt.quantity}
			assert.Equal(t, tt.want, item.EffectiveQuantity())
			assert.Equal(t, int64(tt.want)*100, item.Subtotal())
			// the raw requested value stays on the snapshot
			assert.Equal(t, tt.quantity, item.Quantity)
		})
	}
}

func TestAttachPaymentIsSetOnce(t *testing.T) {
	o, err := New("o-1", "", []Item{{ProductID: "p", UnitPrice: 100, Quantity: 1}})
	require.NoError(t, err)

	require.NoError(t, o.AttachPayment("mockpay", "mp_123"))
	assert.Equal(t, "mockpay", o.ProviderName)
	assert.Equal(t, "mp_123", o.ProviderRef)

	err = o.AttachPayment("mockpay", "mp_456")
	assert.ErrorIs(t, err, ErrPaymentSet)
	assert.Equal(t, "mp_123", o.ProviderRef)
}

func TestCloneIsIndependent(t *testing.T) {
	o, err := New("o-1", "", []Item{{ProductID: "p", UnitPrice: 100, Quantity: 1}})
	require.NoError(t, err)

	clone := o.Clone()
	clone.Items[0].UnitPrice = 1
	clone.Status = StatusPaid

	assert.Equal(t, int64(100), o.Items[0].UnitPrice)
	assert.Equal(t, StatusPending, o.Status)
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusPaid, StatusCanceled, StatusExpired,
		StatusFailed, StatusProcessing, StatusShipped, StatusDelivered} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, Status("refunded").Valid())
	assert.False(t, Status("").Valid())
}
