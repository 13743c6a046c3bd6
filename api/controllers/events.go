package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dwayee/storefront/internal/cart"
	"github.com/dwayee/storefront/pkg/logger"
)

const (
	eventBuffer       = 16
	heartbeatInterval = 25 * time.Second
)

// CartEvents streams every committed cart snapshot as server-sent events.
// A slow reader misses intermediate snapshots but always gets the newest one.
func CartEvents(engine CartEngine, presenter CartPresenter, logg *logger.Logger) http.HandlerFunc {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		ctx := r.Context()

		updates := make(chan cart.Snapshot, eventBuffer)
		unsubscribe := engine.Subscribe(func(snap cart.Snapshot) {
			select {
			case updates <- snap:
			default:
				// drop the oldest pending snapshot to make room
				select {
				case <-updates:
				default:
				}
				select {
				case updates <- snap:
				default:
				}
			}
		})
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		send := func(snap cart.Snapshot) error {
			payload, err := json.Marshal(presenter.view(snap, engine.MaxQuantity()))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: cart\ndata: %s\n\n", payload); err != nil {
				return err
			}
			return rc.Flush()
		}

		if err := send(engine.Snapshot()); err != nil {
			logg.WarnErr(ctx, "cart.events.write_failed", err)
			return
		}

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-updates:
				if err := send(snap); err != nil {
					logg.WarnErr(ctx, "cart.events.write_failed", err)
					return
				}
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}
