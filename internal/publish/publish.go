// Package publish emits change observations to downstream consumers.
package publish

import (
	"context"

	"github.com/stridewatch/stridewatch/internal/catalog"
)

// Publisher delivers observation rows that represent genuine changes.
type Publisher interface {
	Publish(ctx context.Context, obs catalog.PriceObservation) (string, error)
	Close() error
}

// Config selects and configures the publication backend.
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Project string `mapstructure:"project"`
	Topic   string `mapstructure:"topic"`
}

// NoOp drops observations. Used when publication is disabled.
type NoOp struct{}

func (NoOp) Publish(context.Context, catalog.PriceObservation) (string, error) { return "", nil }

func (NoOp) Close() error { return nil }
