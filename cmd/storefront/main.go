package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/dwayee/storefront/api/routes"
	"github.com/dwayee/storefront/internal/address"
	"github.com/dwayee/storefront/internal/cart"
	"github.com/dwayee/storefront/internal/checkout"
	"github.com/dwayee/storefront/internal/session"
	"github.com/dwayee/storefront/pkg/config"
	"github.com/dwayee/storefront/pkg/dwayee"
	"github.com/dwayee/storefront/pkg/instance"
	"github.com/dwayee/storefront/pkg/logger"
	"github.com/dwayee/storefront/pkg/metrics"
	"github.com/dwayee/storefront/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "storefront stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store       session.Store
		redisPinger redis.Pinger
	)
	if cfg.Redis.Enabled() {
		redisClient, rerr := redis.New(ctx, cfg.Redis, logg)
		if rerr != nil {
			return rerr
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		if store, rerr = session.NewRedisStore(redisClient, cfg.Session.Device, cfg.Session.TTL); rerr != nil {
			return rerr
		}
		redisPinger = redisClient
	} else {
		logg.Warn(ctx, "redis not configured, sessions will not survive a restart")
		store = session.NewMemoryStore()
	}

	breaker := dwayee.BreakerSettingsFromConfig(cfg.Breaker)
	breaker.OnStateChange = func(from, to string) {
		logg.Warn(logg.WithFields(ctx, map[string]any{"from": from, "to": to}), "dwayee.breaker.state_change")
	}
	client, err := dwayee.NewClient(cfg.API.BaseURL,
		dwayee.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		dwayee.WithBreaker(breaker),
		dwayee.WithLogger(logg),
	)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cartMetrics := metrics.NewCartMetrics(registry)

	sessions, err := session.NewManager(store, client, logg)
	if err != nil {
		return err
	}

	engine, err := cart.NewEngine(client, cart.EngineOptions{
		Logger:      logg,
		Metrics:     cartMetrics,
		MaxQuantity: cfg.Cart.MaxQuantity,
	})
	if err != nil {
		return err
	}
	unbind := cart.BindSessions(ctx, engine, sessions)
	defer unbind()

	// restoring a session notifies BindSessions, which loads its cart
	if _, err := sessions.Bootstrap(ctx); err != nil {
		logg.WarnErr(ctx, "session bootstrap failed, starting signed out", err)
	}

	checkoutService, err := checkout.NewService(engine, client, checkout.Options{Logger: logg, Metrics: cartMetrics})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting storefront server")

	// request contexts end at shutdown so open event streams let go
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		Handler: routes.NewRouter(
			cfg,
			logg,
			redisPinger,
			registry,
			sessions,
			engine,
			checkoutService,
			address.NewService(client),
		),
	}

	server.RegisterOnShutdown(cancelBase)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down storefront server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
