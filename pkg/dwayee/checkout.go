package dwayee

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"

	pkgerrors "github.com/dwayee/storefront/pkg/errors"
)

// CheckoutForm is sent to POST /orders/checkout as multipart/form-data.
type CheckoutForm struct {
	AddressID     string
	PaymentMethod string
	Notes         string
}

// CheckoutResult carries the API's verdict on an order submission.
type CheckoutResult struct {
	Success bool
	Message string
	OrderID string
}

// Checkout submits an order for the current remote cart.
func (c *Client) Checkout(ctx context.Context, token string, form CheckoutForm) (*CheckoutResult, error) {
	const op = "checkout"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := []struct{ name, value string }{
		{"user_address_id", form.AddressID},
		{"payment_method", form.PaymentMethod},
		{"notes", form.Notes},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout form")
		}
	}
	if err := mw.Close(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout form")
	}

	raw, err := c.send(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        "/orders/checkout",
		token:       token,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return nil, err
	}
	if err := ensureOK(op, raw); err != nil {
		return nil, err
	}

	var env checkoutEnvelope
	if err := decode(op, raw, &env); err != nil {
		return nil, err
	}
	result := &CheckoutResult{
		Success: env.Succeeded(),
		Message: env.Message,
	}
	if env.Data != nil {
		result.OrderID = env.Data.OrderID.String()
		if result.OrderID == "" {
			result.OrderID = env.Data.ID.String()
		}
	}
	return result, nil
}
