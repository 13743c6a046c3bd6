package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dwayee/storefront/internal/cart"
	"github.com/dwayee/storefront/internal/session"
	"github.com/dwayee/storefront/pkg/dwayee"
	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shopper = &session.Session{Token: "tok", Profile: session.Profile{ID: "4"}}

type stubCart struct {
	mu       sync.Mutex
	snap     cart.Snapshot
	clearErr error
	events   *[]string
}

func (c *stubCart) Snapshot() cart.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *stubCart) Clear(ctx context.Context, sess *session.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.events = append(*c.events, "clear")
	return c.clearErr
}

func (c *stubCart) ResetLocal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.events = append(*c.events, "reset")
	c.snap = cart.Snapshot{}
}

type stubRemote struct {
	mu      sync.Mutex
	result  *dwayee.CheckoutResult
	err     error
	forms   []dwayee.CheckoutForm
	events  *[]string
	gate    chan struct{}
	entered chan struct{}
}

func (r *stubRemote) Checkout(ctx context.Context, token string, form dwayee.CheckoutForm) (*dwayee.CheckoutResult, error) {
	r.mu.Lock()
	r.forms = append(r.forms, form)
	*r.events = append(*r.events, "checkout")
	gate := r.gate
	r.mu.Unlock()
	if gate != nil {
		r.entered <- struct{}{}
		<-gate
	}
	return r.result, r.err
}

func fixture(t *testing.T) (*Service, *stubCart, *stubRemote, *[]string) {
	t.Helper()
	events := &[]string{}
	c := &stubCart{
		events: events,
		snap: cart.Snapshot{Lines: []cart.Line{
			{MedicationID: "1", UnitPrice: decimal.NewFromInt(50), Quantity: 2},
		}},
	}
	r := &stubRemote{events: events, result: &dwayee.CheckoutResult{Success: true, Message: "Order placed", OrderID: "991"}}
	svc, err := NewService(c, r, Options{})
	require.NoError(t, err)
	return svc, c, r, events
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(nil, &stubRemote{}, Options{})
	require.Error(t, err)
	_, err = NewService(&stubCart{}, nil, Options{})
	require.Error(t, err)
}

func TestCheckoutSuccessSequence(t *testing.T) {
	svc, c, r, events := fixture(t)

	res, err := svc.Checkout(context.Background(), shopper, Request{AddressID: " 3 ", Notes: "ring twice"})
	require.NoError(t, err)
	assert.Equal(t, &Result{OrderID: "991", Message: "Order placed", CartCleared: true}, res)
	assert.Equal(t, []string{"checkout", "clear", "reset"}, *events)
	assert.Equal(t, []dwayee.CheckoutForm{{AddressID: "3", PaymentMethod: "cash_on_delivery", Notes: "ring twice"}}, r.forms)
	assert.True(t, c.Snapshot().IsEmpty())
}

func TestCheckoutSucceedsWhenCleanupFails(t *testing.T) {
	svc, c, _, events := fixture(t)
	c.clearErr = pkgerrors.New(pkgerrors.CodeNetwork, "delete cart failed")

	res, err := svc.Checkout(context.Background(), shopper, Request{AddressID: "3", PaymentMethod: PaymentCreditCard})
	require.NoError(t, err)
	assert.False(t, res.CartCleared)
	assert.Equal(t, []string{"checkout", "clear", "reset"}, *events)
	assert.True(t, c.Snapshot().IsEmpty())
}

func TestCheckoutPreconditionsMakeNoCalls(t *testing.T) {
	cases := []struct {
		name  string
		sess  *session.Session
		empty bool
		req   Request
		code  pkgerrors.Code
		msg   string
	}{
		{name: "no session", sess: nil, req: Request{AddressID: "3"}, code: pkgerrors.CodeUnauthenticated},
		{name: "empty cart", sess: shopper, empty: true, req: Request{AddressID: "3"}, code: pkgerrors.CodeEmptyCart, msg: msgEmptyCart},
		{name: "empty cart wins over missing address", sess: shopper, empty: true, req: Request{}, code: pkgerrors.CodeEmptyCart},
		{name: "missing address", sess: shopper, req: Request{AddressID: "  "}, code: pkgerrors.CodeMissingAddress, msg: msgMissingAddress},
		{name: "unknown payment method", sess: shopper, req: Request{AddressID: "3", PaymentMethod: "bitcoin"}, code: pkgerrors.CodeValidation},
		{name: "notes too long", sess: shopper, req: Request{AddressID: "3", Notes: strings.Repeat("n", 1001)}, code: pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, c, r, events := fixture(t)
			if tc.empty {
				c.snap = cart.Snapshot{}
			}
			_, err := svc.Checkout(context.Background(), tc.sess, tc.req)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, pkgerrors.PublicMessage(err))
			}
			assert.Empty(t, *events)
			assert.Empty(t, r.forms)
		})
	}
}

func TestCheckoutRejectedLeavesCart(t *testing.T) {
	cases := map[string]struct {
		result *dwayee.CheckoutResult
		err    error
		msg    string
	}{
		"api refusal with message": {result: &dwayee.CheckoutResult{Success: false, Message: "Cart is empty"}, msg: "Cart is empty"},
		"api refusal silent":       {result: &dwayee.CheckoutResult{Success: false}, msg: msgRejected},
		"network failure":          {err: pkgerrors.New(pkgerrors.CodeNetwork, "checkout request failed"), msg: msgRejected},
		"untyped failure":          {err: errors.New("boom"), msg: msgRejected},
		"address refused by api": {
			err: pkgerrors.Wrap(pkgerrors.CodeNetwork, &pkgerrors.UpstreamError{Status: 422, Message: "Selected address does not belong to you"}, "checkout failed"),
			msg: "Selected address does not belong to you",
		},
		"server error with message": {
			err: pkgerrors.Wrap(pkgerrors.CodeNetwork, &pkgerrors.UpstreamError{Status: 500, Message: "SQLSTATE[23000] integrity violation"}, "checkout failed"),
			msg: msgRejected,
		},
		"client error with html body": {
			err: pkgerrors.Wrap(pkgerrors.CodeNetwork, &pkgerrors.UpstreamError{Status: 422, Message: "<html><body>Unprocessable</body></html>"}, "checkout failed"),
			msg: msgRejected,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, c, r, events := fixture(t)
			r.result, r.err = tc.result, tc.err

			_, err := svc.Checkout(context.Background(), shopper, Request{AddressID: "3"})
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCheckoutRejected))
			assert.Equal(t, tc.msg, pkgerrors.PublicMessage(err))
			assert.Equal(t, []string{"checkout"}, *events)
			assert.False(t, c.Snapshot().IsEmpty())
		})
	}
}

func TestCheckoutPassesThroughExpiredSession(t *testing.T) {
	svc, _, r, events := fixture(t)
	r.result, r.err = nil, pkgerrors.New(pkgerrors.CodeUnauthenticated, "session expired, please sign in again")

	_, err := svc.Checkout(context.Background(), shopper, Request{AddressID: "3"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthenticated))
	assert.Equal(t, []string{"checkout"}, *events)
}

func TestConcurrentCheckoutConflicts(t *testing.T) {
	svc, _, r, _ := fixture(t)
	r.gate = make(chan struct{})
	r.entered = make(chan struct{}, 1)

	first := make(chan error, 1)
	go func() {
		_, err := svc.Checkout(context.Background(), shopper, Request{AddressID: "3"})
		first <- err
	}()
	<-r.entered

	_, err := svc.Checkout(context.Background(), shopper, Request{AddressID: "3"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	close(r.gate)
	require.NoError(t, <-first)
	r.mu.Lock()
	assert.Len(t, r.forms, 1)
	r.mu.Unlock()
}
