package address

import (
	"context"
	"testing"

	"github.com/dwayee/storefront/internal/session"
	"github.com/dwayee/storefront/pkg/dwayee"
	"github.com/dwayee/storefront/pkg/errors"
)

type stubLister struct {
	addrs []dwayee.Address
	err   error
	calls int
}

func (s *stubLister) ListAddresses(ctx context.Context, token string) ([]dwayee.Address, error) {
	s.calls++
	return s.addrs, s.err
}

var shopper = &session.Session{Token: "tok"}

func TestListRequiresSession(t *testing.T) {
	api := &stubLister{}
	svc := NewService(api)
	_, err := svc.List(context.Background(), nil)
	if !errors.IsCode(err, errors.CodeUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if api.calls != 0 {
		t.Fatalf("expected no api call, got %d", api.calls)
	}
}

func TestListMapsAddresses(t *testing.T) {
	svc := NewService(&stubLister{addrs: []dwayee.Address{
		{ID: "1", Name: "Home", Line: "12 Nile St", City: "Cairo", Governorate: "Cairo", PostalCode: "11511"},
	}})
	got, err := svc.List(context.Background(), shopper)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("unexpected addresses %+v", got)
	}
	if label := got[0].Label(); label != "Home, Cairo, Cairo, 12 Nile St, 11511" {
		t.Fatalf("unexpected label %q", label)
	}
}

func TestDefault(t *testing.T) {
	cases := []struct {
		name  string
		addrs []dwayee.Address
		want  string
	}{
		{name: "flagged", addrs: []dwayee.Address{{ID: "1"}, {ID: "2", IsDefault: true}}, want: "2"},
		{name: "first", addrs: []dwayee.Address{{ID: "1"}, {ID: "2"}}, want: "1"},
		{name: "none", addrs: nil, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewService(&stubLister{addrs: tc.addrs}).Default(context.Background(), shopper)
			if err != nil {
				t.Fatalf("default: %v", err)
			}
			if tc.want == "" {
				if got != nil {
					t.Fatalf("expected no default, got %+v", got)
				}
				return
			}
			if got == nil || got.ID != tc.want {
				t.Fatalf("expected %s, got %+v", tc.want, got)
			}
		})
	}
}

func TestListPropagatesErrors(t *testing.T) {
	svc := NewService(&stubLister{err: errors.New(errors.CodeNetwork, "list addresses failed")})
	_, err := svc.List(context.Background(), shopper)
	if !errors.IsCode(err, errors.CodeNetwork) {
		t.Fatalf("expected network failure, got %v", err)
	}
}
