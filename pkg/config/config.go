package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/dwayee/storefront/pkg/enums"
)

const (
	EnvPrefix = "DWAYEE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                = "DWAYEE_APP_ENV"
	EnvPort                  = "DWAYEE_APP_PORT"
	EnvLogLevel              = "DWAYEE_LOG_LEVEL"
	EnvAPIBaseURL            = "DWAYEE_API_BASE_URL"
	EnvAPITimeout            = "DWAYEE_API_TIMEOUT"
	EnvRedisURL              = "DWAYEE_REDIS_URL"
	EnvSessionDevice         = "DWAYEE_SESSION_DEVICE"
	EnvCartMaxQuantity       = "DWAYEE_CART_MAX_QUANTITY"
	EnvFreeShippingThreshold = "DWAYEE_CART_FREE_SHIPPING_THRESHOLD"
	EnvBreakerFailures       = "DWAYEE_BREAKER_CONSECUTIVE_FAILURES"
	EnvCartCurrency          = "DWAYEE_CART_CURRENCY"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Breaker BreakerConfig
	Redis   RedisConfig
	Session SessionConfig
	Cart    CartConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DWAYEE_APP_ENV" required:"true"`
	Port         string `envconfig:"DWAYEE_APP_PORT" default:"8085"`
	LogLevel     string `envconfig:"DWAYEE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DWAYEE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig points the client at the Dwayee REST API.
type APIConfig struct {
	BaseURL string        `envconfig:"DWAYEE_API_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"DWAYEE_API_TIMEOUT" default:"15s"`
}

func (a APIConfig) validate() error {
	u, err := url.Parse(strings.TrimSpace(a.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvAPIBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url, got %q", EnvAPIBaseURL, a.BaseURL)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvAPITimeout)
	}
	return nil
}

// BreakerConfig tunes the circuit breaker in front of the REST API.
type BreakerConfig struct {
	MaxRequests         uint32        `envconfig:"DWAYEE_BREAKER_MAX_REQUESTS" default:"1"`
	Interval            time.Duration `envconfig:"DWAYEE_BREAKER_INTERVAL" default:"60s"`
	Timeout             time.Duration `envconfig:"DWAYEE_BREAKER_TIMEOUT" default:"30s"`
	ConsecutiveFailures uint32        `envconfig:"DWAYEE_BREAKER_CONSECUTIVE_FAILURES" default:"5"`
}

// RedisConfig is optional; an empty URL and address selects the in-memory session store.
type RedisConfig struct {
	URL          string        `envconfig:"DWAYEE_REDIS_URL"`
	Address      string        `envconfig:"DWAYEE_REDIS_ADDR"`
	Password     string        `envconfig:"DWAYEE_REDIS_PASSWORD"`
	DB           int           `envconfig:"DWAYEE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DWAYEE_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"DWAYEE_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"DWAYEE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DWAYEE_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"DWAYEE_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type SessionConfig struct {
	Device string        `envconfig:"DWAYEE_SESSION_DEVICE" default:"default"`
	TTL    time.Duration `envconfig:"DWAYEE_SESSION_TTL" default:"720h"`
}

type CartConfig struct {
	MaxQuantity           int    `envconfig:"DWAYEE_CART_MAX_QUANTITY" default:"10"`
	FreeShippingThreshold string `envconfig:"DWAYEE_CART_FREE_SHIPPING_THRESHOLD" default:"200"`
	Currency              string `envconfig:"DWAYEE_CART_CURRENCY" default:"EGP"`
}

// Threshold returns the free-shipping threshold as a decimal amount.
func (c CartConfig) Threshold() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.FreeShippingThreshold))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (c CartConfig) validate() error {
	if c.MaxQuantity < 1 {
		return fmt.Errorf("%s must be at least 1", EnvCartMaxQuantity)
	}
	if _, err := decimal.NewFromString(strings.TrimSpace(c.FreeShippingThreshold)); err != nil {
		return fmt.Errorf("parsing %s: %w", EnvFreeShippingThreshold, err)
	}
	if _, err := enums.ParseCurrency(c.Currency); err != nil {
		return fmt.Errorf("parsing %s: %w", EnvCartCurrency, err)
	}
	return nil
}
