package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dwayee/storefront/api/controllers"
	"github.com/dwayee/storefront/api/middleware"
	"github.com/dwayee/storefront/api/responses"
	"github.com/dwayee/storefront/internal/address"
	"github.com/dwayee/storefront/pkg/config"
	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/dwayee/storefront/pkg/logger"
	"github.com/dwayee/storefront/pkg/redis"
)

// NewRouter mounts the storefront facade. redisPinger and gatherer may be nil.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisPinger redis.Pinger,
	gatherer prometheus.Gatherer,
	sessions controllers.SessionManager,
	cartEngine controllers.CartEngine,
	checkoutService controllers.CheckoutService,
	addressService address.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeMethodNotAllowed, "method not allowed"))
	})

	presenter := controllers.CartPresenter{
		FreeShippingThreshold: cfg.Cart.Threshold(),
		Currency:              cfg.Cart.Currency,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, redisPinger, logg))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", controllers.SessionShow(sessions))
			r.Post("/", controllers.SessionSignIn(sessions, logg))
			r.Delete("/", controllers.SessionSignOut(sessions, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartShow(cartEngine, presenter))
			r.Delete("/", controllers.CartClear(cartEngine, sessions, presenter, logg))
			r.Get("/events", controllers.CartEvents(cartEngine, presenter, logg))
			r.Post("/reload", controllers.CartReload(cartEngine, sessions, presenter, logg))
			r.Post("/items", controllers.CartAddItem(cartEngine, sessions, presenter, logg))
			r.Patch("/items/{medicationID}", controllers.CartUpdateQuantity(cartEngine, sessions, presenter, logg))
			r.Delete("/items/{medicationID}", controllers.CartRemoveItem(cartEngine, sessions, presenter, logg))
		})

		r.Get("/addresses", controllers.AddressList(addressService, sessions, logg))
		r.Post("/checkout", controllers.CheckoutPlaceOrder(checkoutService, sessions, logg))
	})

	return r
}
