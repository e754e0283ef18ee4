// Package probe performs a cheap plain-HTTP reachability check on the listing
// page before the headless browser is spun up.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Prober checks that the listing endpoint answers before a crawl starts.
type Prober struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Prober {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Prober{cfg: cfg, logger: logger}
}

// CheckListing issues a single GET against url and returns an error when the
// site is unreachable or answers with a non-2xx status.
func (p *Prober) CheckListing(ctx context.Context, url string) error {
	collector := colly.NewCollector(colly.Async(false))
	collector.IgnoreRobotsTxt = true
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	collector.SetRequestTimeout(p.cfg.Timeout)

	var status int
	var fetchErr error
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("listing probe canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("listing probe failed: %w", err)
		}
	}
	if fetchErr != nil {
		return fmt.Errorf("listing probe failed: %w", fetchErr)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("listing probe returned status %d", status)
	}
	p.logger.Debug("listing reachable", zap.String("url", url), zap.Int("status", status))
	return nil
}
