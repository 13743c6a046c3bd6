package address

import (
	"context"
	"strings"

	"github.com/dwayee/storefront/internal/session"
	"github.com/dwayee/storefront/pkg/dwayee"
	"github.com/dwayee/storefront/pkg/errors"
)

// Address is a shipping destination offered on the checkout page.
type Address struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Line        string `json:"address"`
	City        string `json:"city,omitempty"`
	Governorate string `json:"governorate,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	Phone       string `json:"phone,omitempty"`
	IsDefault   bool   `json:"is_default"`
}

// Label renders the address the way the checkout picker shows it.
func (a Address) Label() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Name, a.City, a.Governorate, a.Line, a.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type lister interface {
	ListAddresses(ctx context.Context, token string) ([]dwayee.Address, error)
}

type Service interface {
	List(ctx context.Context, sess *session.Session) ([]Address, error)
	// Default is the address flagged default, else the first one. It is nil when none exist.
	Default(ctx context.Context, sess *session.Session) (*Address, error)
}

type service struct {
	api lister
}

func NewService(client lister) Service {
	return &service{api: client}
}

func (s *service) List(ctx context.Context, sess *session.Session) ([]Address, error) {
	if s == nil || s.api == nil {
		return nil, errors.New(errors.CodeInternal, "address client unavailable")
	}
	if !sess.Valid() {
		return nil, errors.New(errors.CodeUnauthenticated, "please sign in to see your addresses")
	}

	resp, err := s.api.ListAddresses(ctx, sess.Token)
	if err != nil {
		return nil, err
	}

	out := make([]Address, 0, len(resp))
	for _, a := range resp {
		out = append(out, Address{
			ID:          a.ID,
			Name:        a.Name,
			Line:        a.Line,
			City:        a.City,
			Governorate: a.Governorate,
			PostalCode:  a.PostalCode,
			Phone:       a.Phone,
			IsDefault:   a.IsDefault,
		})
	}
	return out, nil
}

func (s *service) Default(ctx context.Context, sess *session.Session) (*Address, error) {
	all, err := s.List(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	for i := range all {
		if all[i].IsDefault {
			return &all[i], nil
		}
	}
	return &all[0], nil
}
