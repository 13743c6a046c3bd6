package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dwayee/storefront/internal/cart"
	"github.com/dwayee/storefront/internal/session"
)

var testPresenter = CartPresenter{FreeShippingThreshold: decimal.NewFromInt(200), Currency: "EGP"}

func signedIn() *session.Session {
	return &session.Session{
		Token:    "tok-1",
		UserType: "patient",
		Profile:  session.Profile{ID: "u1", Name: "Mona", Email: "mona@example.com", UserType: "patient"},
	}
}

type stubSessions struct {
	mu          sync.Mutex
	current     *session.Session
	invalidated []string
	signInErr   error
	signOutErr  error
	signInArgs  []string
}

func (s *stubSessions) Current() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

func (s *stubSessions) Invalidate(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, token)
	if s.current != nil && s.current.Token == token {
		s.current = nil
	}
	return nil
}

func (s *stubSessions) SignIn(_ context.Context, email, password string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signInArgs = append(s.signInArgs, email, password)
	if s.signInErr != nil {
		return nil, s.signInErr
	}
	s.current = signedIn()
	return s.current.Clone(), nil
}

func (s *stubSessions) SignOut(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signOutErr != nil {
		return s.signOutErr
	}
	s.current = nil
	return nil
}

type engineCall struct {
	op       string
	id       string
	quantity int
	token    string
}

type stubEngine struct {
	mu       sync.Mutex
	snap     cart.Snapshot
	err      error
	calls    []engineCall
	listener func(cart.Snapshot)
}

func (e *stubEngine) Snapshot() cart.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

func (e *stubEngine) MaxQuantity() int { return 10 }

func (e *stubEngine) Subscribe(fn func(cart.Snapshot)) func() {
	e.mu.Lock()
	e.listener = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		e.listener = nil
		e.mu.Unlock()
	}
}

func (e *stubEngine) publish(snap cart.Snapshot) bool {
	e.mu.Lock()
	fn := e.listener
	e.snap = snap
	e.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(snap)
	return true
}

func (e *stubEngine) record(op, id string, qty int, sess *session.Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	token := ""
	if sess != nil {
		token = sess.Token
	}
	e.calls = append(e.calls, engineCall{op: op, id: id, quantity: qty, token: token})
	return e.err
}

func (e *stubEngine) Reload(_ context.Context, sess *session.Session) error {
	return e.record("reload", "", 0, sess)
}

func (e *stubEngine) AddItem(_ context.Context, sess *session.Session, id string, qty int) error {
	return e.record("add", id, qty, sess)
}

func (e *stubEngine) UpdateQuantity(_ context.Context, sess *session.Session, id string, delta int) error {
	return e.record("update", id, delta, sess)
}

func (e *stubEngine) RemoveItem(_ context.Context, sess *session.Session, id string) error {
	return e.record("remove", id, 0, sess)
}

func (e *stubEngine) Clear(_ context.Context, sess *session.Session) error {
	return e.record("clear", "", 0, sess)
}

func serve(t *testing.T, h http.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}
