package dwayee

import (
	"context"
	"errors"
	"time"

	"github.com/dwayee/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
)

const breakerName = "dwayee-api"

// BreakerSettings tunes the circuit breaker guarding the API.
type BreakerSettings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
	// OnStateChange is invoked on every breaker transition.
	OnStateChange func(from, to string)
}

// BreakerSettingsFromConfig maps the env-driven breaker config.
func BreakerSettingsFromConfig(cfg config.BreakerConfig) BreakerSettings {
	return BreakerSettings{
		MaxRequests:         cfg.MaxRequests,
		Interval:            cfg.Interval,
		Timeout:             cfg.Timeout,
		ConsecutiveFailures: cfg.ConsecutiveFailures,
	}
}

func newBreaker(s BreakerSettings) *gobreaker.CircuitBreaker[*rawResponse] {
	if s.MaxRequests == 0 {
		s.MaxRequests = 1
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	threshold := s.ConsecutiveFailures
	onChange := s.OnStateChange

	return gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up says nothing about the API's health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if onChange != nil {
				onChange(from.String(), to.String())
			}
		},
	})
}
