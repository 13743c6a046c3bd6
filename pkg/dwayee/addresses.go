package dwayee

import (
	"context"
	"net/http"
)

// Address is a saved shipping address of the shopper.
type Address struct {
	ID          string
	Name        string
	Line        string
	PostalCode  string
	Phone       string
	City        string
	Governorate string
	IsDefault   bool
}

// ListAddresses returns the shopper's saved addresses.
func (c *Client) ListAddresses(ctx context.Context, token string) ([]Address, error) {
	const op = "list addresses"
	raw, err := c.send(ctx, request{op: op, method: http.MethodGet, path: "/user/addresses", token: token})
	if err != nil {
		return nil, err
	}
	if err := ensureOK(op, raw); err != nil {
		return nil, err
	}

	var env addressEnvelope
	if err := decode(op, raw, &env); err != nil {
		return nil, err
	}

	out := make([]Address, 0, len(env.Data))
	for _, a := range env.Data {
		addr := Address{
			ID:         a.ID.String(),
			Name:       a.Name,
			Line:       a.Address,
			PostalCode: a.PostalCode.String(),
			Phone:      a.Phone.String(),
			IsDefault:  bool(a.IsDefault),
		}
		if a.City != nil {
			addr.City = a.City.Name
		}
		if a.Governorate != nil {
			addr.Governorate = a.Governorate.Name
		}
		out = append(out, addr)
	}
	return out, nil
}
