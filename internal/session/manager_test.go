package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dwayee/storefront/pkg/dwayee"
	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	result *dwayee.LoginResult
	err    error
	calls  int
}

func (s *stubAuth) Login(ctx context.Context, email, password string) (*dwayee.LoginResult, error) {
	s.calls++
	return s.result, s.err
}

type transition struct {
	prev, next string
}

func recordTransitions(m *Manager) *[]transition {
	var seen []transition
	m.Subscribe(func(prev, next *Session) {
		var tr transition
		if prev != nil {
			tr.prev = prev.Token
		}
		if next != nil {
			tr.next = next.Token
		}
		seen = append(seen, tr)
	})
	return &seen
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "9",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("k"))
	require.NoError(t, err)
	return signed
}

func TestNewManagerRequiresCollaborators(t *testing.T) {
	_, err := NewManager(nil, &stubAuth{}, nil)
	require.Error(t, err)
	_, err = NewManager(NewMemoryStore(), nil, nil)
	require.Error(t, err)
}

func TestSignInPersistsAndNotifies(t *testing.T) {
	store := NewMemoryStore()
	authn := &stubAuth{result: &dwayee.LoginResult{
		AccessToken:  "acc",
		RefreshToken: "ref",
		User:         dwayee.User{ID: "4", Name: "Sara", Email: "sara@example.com", UserType: "user"},
	}}
	m, err := NewManager(store, authn, nil)
	require.NoError(t, err)
	seen := recordTransitions(m)

	sess, err := m.SignIn(context.Background(), "sara@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "acc", sess.Token)
	assert.Equal(t, "user", sess.UserType)
	assert.Equal(t, "Sara", sess.Profile.Name)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc", stored.Token)
	assert.Equal(t, "acc", m.Current().Token)
	assert.Equal(t, []transition{{prev: "", next: "acc"}}, *seen)
}

func TestSignInValidationAndFailure(t *testing.T) {
	authn := &stubAuth{err: pkgerrors.New(pkgerrors.CodeUnauthenticated, "invalid email or password")}
	m, err := NewManager(NewMemoryStore(), authn, nil)
	require.NoError(t, err)
	seen := recordTransitions(m)

	_, err = m.SignIn(context.Background(), " ", "pw")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 0, authn.calls)

	_, err = m.SignIn(context.Background(), "a@b.c", "pw")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthenticated))
	assert.Nil(t, m.Current())
	assert.Empty(t, *seen)
}

func TestSignOutAndInvalidate(t *testing.T) {
	store := NewMemoryStore()
	m, err := NewManager(store, &stubAuth{result: &dwayee.LoginResult{AccessToken: "acc"}}, nil)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = m.SignIn(ctx, "a@b.c", "pw")
	require.NoError(t, err)
	seen := recordTransitions(m)

	require.NoError(t, m.Invalidate(ctx, "older-token"))
	assert.NotNil(t, m.Current(), "a refusal of another token keeps the session")

	require.NoError(t, m.Invalidate(ctx, "acc"))
	assert.Nil(t, m.Current())
	stored, _ := store.Load(ctx)
	assert.Nil(t, stored)

	require.NoError(t, m.SignOut(ctx))
	assert.Equal(t, []transition{{prev: "acc", next: ""}}, *seen, "signing out twice notifies once")
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("restores live session", func(t *testing.T) {
		store := NewMemoryStore()
		token := signedToken(t, time.Now().Add(time.Hour))
		require.NoError(t, store.Save(ctx, &Session{Token: token}))
		m, err := NewManager(store, &stubAuth{}, nil)
		require.NoError(t, err)
		seen := recordTransitions(m)

		sess, err := m.Bootstrap(ctx)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, token, m.Current().Token)
		assert.Len(t, *seen, 1)
	})

	t.Run("discards expired jwt", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, &Session{Token: signedToken(t, time.Now().Add(-time.Hour))}))
		m, err := NewManager(store, &stubAuth{}, nil)
		require.NoError(t, err)

		sess, err := m.Bootstrap(ctx)
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Nil(t, m.Current())
		stored, _ := store.Load(ctx)
		assert.Nil(t, stored)
	})

	t.Run("keeps opaque token", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, &Session{Token: "opaque-sanctum-token"}))
		m, err := NewManager(store, &stubAuth{}, nil)
		require.NoError(t, err)

		sess, err := m.Bootstrap(ctx)
		require.NoError(t, err)
		require.NotNil(t, sess)
	})

	t.Run("load failure", func(t *testing.T) {
		m, err := NewManager(failingStore{}, &stubAuth{}, nil)
		require.NoError(t, err)
		_, err = m.Bootstrap(ctx)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
	})
}

func TestUnsubscribe(t *testing.T) {
	m, err := NewManager(NewMemoryStore(), &stubAuth{result: &dwayee.LoginResult{AccessToken: "acc"}}, nil)
	require.NoError(t, err)
	calls := 0
	unsubscribe := m.Subscribe(func(prev, next *Session) { calls++ })
	unsubscribe()
	unsubscribe()

	_, err = m.SignIn(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

type failingStore struct{}

func (failingStore) Load(context.Context) (*Session, error) { return nil, errors.New("redis down") }
func (failingStore) Save(context.Context, *Session) error { return errors.New("redis down") }
func (failingStore) Clear(context.Context) error { return errors.New("redis down") }
