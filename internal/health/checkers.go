package health

import (
	"context"
	"errors"
	"fmt"
)

// Pinger is implemented by the Postgres and SQLite corpus stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter is implemented by provider fallback groups.
type HealthReporter interface {
	Healthy() bool
}

// PingChecker wraps a [Pinger] under the given name.
func PingChecker(name string, p Pinger) Checker {
	return Checker{
		Name: name,
		Check: func(ctx context.Context) error {
			if err := p.Ping(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
	}
}

// ProviderChecker fails when every entry of the provider group has an open
// circuit breaker.
func ProviderChecker(name string, r HealthReporter) Checker {
	return Checker{
		Name: name,
		Check: func(_ context.Context) error {
			if !r.Healthy() {
				return errors.New("all providers unavailable")
			}
			return nil
		},
	}
}
