package cart

import (
	"context"
	"testing"

	"github.com/dwayee/storefront/internal/session"
	"github.com/dwayee/storefront/pkg/dwayee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginStub struct {
	token string
}

func (l *loginStub) Login(ctx context.Context, email, password string) (*dwayee.LoginResult, error) {
	return &dwayee.LoginResult{AccessToken: l.token, User: dwayee.User{ID: email}}, nil
}

func TestBindSessionsFollowsSignInAndOut(t *testing.T) {
	api := newFakeAPI(item("1", "10", 2))
	e := newEngine(t, api)
	login := &loginStub{token: "tok-a"}
	sessions, err := session.NewManager(session.NewMemoryStore(), login, nil)
	require.NoError(t, err)

	unbind := BindSessions(context.Background(), e, sessions)
	defer unbind()

	ctx := context.Background()
	_, err = sessions.SignIn(ctx, "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"1": 2}, quantities(e.Snapshot()), "signing in loads the cart")

	require.NoError(t, sessions.SignOut(ctx))
	assert.True(t, e.Snapshot().IsEmpty(), "signing out clears the local cart")
	assert.Equal(t, []string{"get"}, api.callLog(), "signing out makes no API call")
}

func TestBindSessionsSwitchingUsersResetsFirst(t *testing.T) {
	api := newFakeAPI(item("1", "10", 2))
	e := newEngine(t, api)
	login := &loginStub{token: "tok-a"}
	sessions, err := session.NewManager(session.NewMemoryStore(), login, nil)
	require.NoError(t, err)
	BindSessions(context.Background(), e, sessions)

	ctx := context.Background()
	_, err = sessions.SignIn(ctx, "a@example.com", "pw")
	require.NoError(t, err)

	var sizes []int
	e.Subscribe(func(s Snapshot) { sizes = append(sizes, len(s.Lines)) })

	api.getErr = assert.AnError
	login.token = "tok-b"
	_, err = sessions.SignIn(ctx, "b@example.com", "pw")
	require.NoError(t, err)

	assert.True(t, e.Snapshot().IsEmpty(), "the previous shopper's lines are gone even if the reload fails")
	assert.Equal(t, []int{0}, sizes)
}
