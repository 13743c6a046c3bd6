package cart

import (
	"context"

	"github.com/dwayee/storefront/internal/session"
)

type sessionSource interface {
	Subscribe(fn session.Listener) func()
}

// BindSessions keeps the engine in step with the session: a new or changed token
// reloads the cart, signing out resets it locally. ctx is used for the reloads.
func BindSessions(ctx context.Context, engine *Engine, sessions sessionSource) func() {
	return sessions.Subscribe(func(prev, next *session.Session) {
		if !next.Valid() {
			engine.ResetLocal()
			return
		}
		if prev.Valid() && prev.Token != next.Token {
			// another shopper's cart must never show while the new one loads
			engine.ResetLocal()
		}
		if err := engine.Reload(ctx, next); err != nil {
			engine.logg.WarnErr(engine.logg.WithOperation(ctx, opReload), "cart.session_reload_failed", err)
		}
	})
}
