package dwayee

import (
	"context"
	"io"
	"net/http"
	"testing"

	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutSendsMultipartForm(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders/checkout", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "3", r.FormValue("user_address_id"))
		assert.Equal(t, "cash_on_delivery", r.FormValue("payment_method"))
		assert.Equal(t, "ring twice", r.FormValue("notes"))
		_, _ = io.WriteString(w, `{"success":true,"message":"Order placed","data":{"id":991}}`)
	})

	res, err := client.Checkout(context.Background(), "tok", CheckoutForm{
		AddressID:     "3",
		PaymentMethod: "cash_on_delivery",
		Notes:         "ring twice",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Order placed", res.Message)
	assert.Equal(t, "991", res.OrderID)
}

func TestCheckoutPrefersOrderID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":1,"order_id":"ORD-7"}}`)
	})
	res, err := client.Checkout(context.Background(), "tok", CheckoutForm{AddressID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "ORD-7", res.OrderID)
}

func TestCheckoutReportsRefusal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"Cart is empty"}`)
	})
	res, err := client.Checkout(context.Background(), "tok", CheckoutForm{AddressID: "1"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Cart is empty", res.Message)
}

func TestCheckoutMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	_, err := client.Checkout(context.Background(), "tok", CheckoutForm{AddressID: "1"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNetwork))
}
