package dwayee

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/shopspring/decimal"
)

const emptyCartMessage = "Cart is empty"

// CartItem is one validated line of the remote cart.
type CartItem struct {
	MedicationID string
	Name         string
	Image        string
	PharmacyName string
	Price        decimal.Decimal
	Quantity     int
}

// CartPayload is the validated body of GET /cart.
type CartPayload struct {
	Items []CartItem
}

// DeleteCartResult reports the outcome of POST /cart/delete.
type DeleteCartResult struct {
	Cleared bool
	Message string
}

type cartMutation struct {
	MedicationID string `json:"medication_id"`
	Quantity     int    `json:"quantity,omitempty"`
}

// GetCart fetches the authoritative cart of the token's owner.
func (c *Client) GetCart(ctx context.Context, token string) (*CartPayload, error) {
	const op = "get cart"
	raw, err := c.send(ctx, request{op: op, method: http.MethodGet, path: "/cart", token: token})
	if err != nil {
		return nil, err
	}
	if err := ensureOK(op, raw); err != nil {
		return nil, err
	}

	var env cartEnvelope
	if err := json.Unmarshal(raw.body, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "decode get cart response")
	}
	if env.Data == nil {
		if isEmptyCartMessage(env.Message) {
			return &CartPayload{Items: []CartItem{}}, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeNetwork, "malformed get cart response: missing data")
	}
	if err := decode(op, raw, &env); err != nil {
		return nil, err
	}

	items := make([]CartItem, 0, len(env.Data.Items))
	for _, it := range env.Data.Items {
		item := CartItem{
			MedicationID: it.Medication.ID.String(),
			Name:         it.Medication.Name,
			Image:        it.Medication.Image,
			Price:        it.Medication.Price,
			Quantity:     it.Quantity,
		}
		if it.Medication.Pharmacy != nil {
			item.PharmacyName = it.Medication.Pharmacy.Name
		}
		items = append(items, item)
	}
	return &CartPayload{Items: items}, nil
}

// AddToCart asks the API to add quantity units of a medication.
func (c *Client) AddToCart(ctx context.Context, token, medicationID string, quantity int) error {
	return c.mutateCart(ctx, "add to cart", "/cart/add", token, cartMutation{MedicationID: medicationID, Quantity: quantity})
}

// UpdateCartItem sets the absolute quantity of a line.
func (c *Client) UpdateCartItem(ctx context.Context, token, medicationID string, quantity int) error {
	return c.mutateCart(ctx, "update cart item", "/cart/update", token, cartMutation{MedicationID: medicationID, Quantity: quantity})
}

// RemoveCartItem drops a line.
func (c *Client) RemoveCartItem(ctx context.Context, token, medicationID string) error {
	return c.mutateCart(ctx, "remove cart item", "/cart/remove-item", token, cartMutation{MedicationID: medicationID})
}

func (c *Client) mutateCart(ctx context.Context, op, path, token string, payload cartMutation) error {
	req, err := jsonRequest(op, path, token, payload)
	if err != nil {
		return err
	}
	raw, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	return ensureOK(op, raw)
}

// DeleteCart empties the remote cart. An already empty cart counts as cleared
// whatever status code carries that answer.
func (c *Client) DeleteCart(ctx context.Context, token string) (*DeleteCartResult, error) {
	const op = "delete cart"
	req, err := jsonRequest(op, "/cart/delete", token, struct{}{})
	if err != nil {
		return nil, err
	}
	raw, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if raw.status == http.StatusUnauthorized {
		return nil, ensureOK(op, raw)
	}

	var env cartEnvelope
	if err := json.Unmarshal(raw.body, &env); err != nil {
		if okErr := ensureOK(op, raw); okErr != nil {
			return nil, okErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "decode delete cart response")
	}

	result := &DeleteCartResult{Message: strings.TrimSpace(env.Message)}
	if env.Succeeded() || isEmptyCartMessage(env.Message) {
		result.Cleared = true
		return result, nil
	}
	if err := ensureOK(op, raw); err != nil {
		return nil, err
	}
	msg := result.Message
	if msg == "" {
		msg = "failed to delete cart"
	}
	return nil, pkgerrors.New(pkgerrors.CodeNetwork, msg)
}

func isEmptyCartMessage(msg string) bool {
	return strings.EqualFold(strings.TrimSpace(msg), emptyCartMessage)
}
