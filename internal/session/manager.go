package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dwayee/storefront/pkg/auth"
	"github.com/dwayee/storefront/pkg/dwayee"
	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/dwayee/storefront/pkg/logger"
)

// Authenticator exchanges credentials for a session token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*dwayee.LoginResult, error)
}

// Listener observes session transitions. prev and next are copies; either may be nil.
type Listener func(prev, next *Session)

// Manager owns the current session and tells subscribers when it changes.
type Manager struct {
	store Store
	auth  Authenticator
	logg  *logger.Logger
	now   func() time.Time

	// transition serializes state changes so listeners see them in order.
	transition sync.Mutex

	mu        sync.RWMutex
	current   *Session
	listeners map[uint64]Listener
	nextID    uint64
}

// NewManager wires a session manager; logg may be nil.
func NewManager(store Store, authenticator Authenticator, logg *logger.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if authenticator == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Manager{
		store:     store,
		auth:      authenticator,
		logg:      logg,
		now:       time.Now,
		listeners: make(map[uint64]Listener),
	}, nil
}

// Current returns a copy of the active session, or nil.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

// Subscribe registers fn for every later transition. Listeners must not call
// SignIn, SignOut or Invalidate.
func (m *Manager) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// Bootstrap restores the persisted session. An expired token is discarded.
func (m *Manager) Bootstrap(ctx context.Context) (*Session, error) {
	m.transition.Lock()
	defer m.transition.Unlock()

	stored, err := m.store.Load(ctx)
	if err != nil {
		m.logg.WarnErr(ctx, "session.bootstrap.load_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stored session")
	}
	if !stored.Valid() {
		return nil, nil
	}
	if auth.Expired(stored.Token, m.now()) {
		m.logg.Info(ctx, "session.bootstrap.expired")
		if err := m.store.Clear(ctx); err != nil {
			m.logg.WarnErr(ctx, "session.bootstrap.clear_failed", err)
		}
		return nil, nil
	}

	m.set(stored)
	m.logg.Info(m.logg.WithUserID(ctx, stored.Profile.ID), "session.bootstrap.restored")
	return stored.Clone(), nil
}

// SignIn authenticates against the API, persists the session and notifies listeners.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	res, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	next := &Session{
		Token:        res.AccessToken,
		RefreshToken: res.RefreshToken,
		UserType:     res.User.UserType,
		Profile: Profile{
			ID:         res.User.ID,
			Name:       res.User.Name,
			Email:      res.User.Email,
			UserType:   res.User.UserType,
			PharmacyID: res.User.PharmacyID,
		},
	}
	if info, err := auth.Inspect(next.Token); err == nil && next.Profile.ID == "" {
		next.Profile.ID = info.UserID
	}

	m.transition.Lock()
	defer m.transition.Unlock()

	if err := m.store.Save(ctx, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist session")
	}
	m.set(next)
	m.logg.Info(m.logg.WithUserID(ctx, next.Profile.ID), "session.signed_in")
	return next.Clone(), nil
}

// SignOut forgets the session locally and in the store.
func (m *Manager) SignOut(ctx context.Context) error {
	m.transition.Lock()
	defer m.transition.Unlock()
	return m.drop(ctx, "session.signed_out")
}

// Invalidate drops the session whose token the API refused. A newer session is kept.
func (m *Manager) Invalidate(ctx context.Context, token string) error {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.RLock()
	current := m.current
	m.mu.RUnlock()
	if current == nil || (token != "" && current.Token != token) {
		return nil
	}
	return m.drop(ctx, "session.invalidated")
}

func (m *Manager) drop(ctx context.Context, event string) error {
	err := m.store.Clear(ctx)
	if err != nil {
		m.logg.WarnErr(ctx, event+".clear_failed", err)
	}
	m.set(nil)
	m.logg.Info(ctx, event)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear stored session")
	}
	return nil
}

// set swaps the current session and notifies listeners. Callers hold transition.
func (m *Manager) set(next *Session) {
	m.mu.Lock()
	prev := m.current
	m.current = next.Clone()
	listeners := make([]Listener, 0, len(m.listeners))
	for id := uint64(0); id < m.nextID; id++ {
		if fn, ok := m.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	m.mu.Unlock()

	if sameToken(prev, next) {
		return
	}
	for _, fn := range listeners {
		fn(prev.Clone(), next.Clone())
	}
}
