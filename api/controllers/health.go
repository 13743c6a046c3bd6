package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dwayee/storefront/api/responses"
	"github.com/dwayee/storefront/pkg/config"
	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/dwayee/storefront/pkg/logger"
	"github.com/dwayee/storefront/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Dwayee-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the session store when one is configured; redis may be nil.
func HealthReady(cfg *config.Config, store redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Dwayee-Env", cfg.App.Env)
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "session store unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
