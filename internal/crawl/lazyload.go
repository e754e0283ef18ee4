// Package crawl implements the hierarchical crawl pipeline: listing-page lazy
// loading, the per-product fit/color/size walk, and the bounded-concurrency
// orchestration across products.
package crawl

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/pagedriver"
)

// LazyLoadConfig bounds the scroll loop on a listing page.
type LazyLoadConfig struct {
	MaxAttempts   int
	IdleThreshold int
	SettleEvery   int
	ScrollDelay   time.Duration
	SettleDelay   time.Duration
	// CardCeiling stops scrolling once this many cards are visible.
	// Zero means unbounded.
	CardCeiling int
}

// LazyLoader drives a listing page through scroll/measure cycles until the
// card count stabilizes or the attempt budget runs out. It never returns an
// error: page failures count as a round without growth.
type LazyLoader struct {
	cfg    LazyLoadConfig
	logger *zap.Logger
}

// NewLazyLoader builds a LazyLoader, applying defaults for unset knobs.
func NewLazyLoader(cfg LazyLoadConfig, logger *zap.Logger) *LazyLoader {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 200
	}
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = 5
	}
	if cfg.SettleEvery <= 0 {
		cfg.SettleEvery = 20
	}
	return &LazyLoader{cfg: cfg, logger: logger}
}

// Run scrolls until the card count stops growing and returns the final count.
func (l *LazyLoader) Run(ctx context.Context, page pagedriver.Page, cardSelectors []string) int {
	lastCount := 0
	idleRounds := 0

	for attempt := 1; attempt <= l.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		if err := page.ScrollToBottom(ctx); err != nil {
			l.logger.Warn("scroll failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		sleep(ctx, l.cfg.ScrollDelay)

		count := CountCards(ctx, page, cardSelectors)
		switch {
		case count > lastCount:
			l.logger.Debug("cards loaded",
				zap.Int("attempt", attempt),
				zap.Int("new", count-lastCount),
				zap.Int("total", count))
			lastCount = count
			idleRounds = 0
			if l.cfg.CardCeiling > 0 && count >= l.cfg.CardCeiling {
				l.logger.Info("card ceiling reached, stopping scroll",
					zap.Int("count", count), zap.Int("ceiling", l.cfg.CardCeiling))
				return count
			}
		default:
			idleRounds++
			if idleRounds >= l.cfg.IdleThreshold {
				l.logger.Debug("card count stable, stopping scroll",
					zap.Int("attempts", attempt), zap.Int("count", lastCount))
				return lastCount
			}
		}

		if attempt%l.cfg.SettleEvery == 0 {
			sleep(ctx, l.cfg.SettleDelay)
		}
	}

	return CountCards(ctx, page, cardSelectors)
}

// CountCards returns the count from the first selector that matches anything.
// Page errors are swallowed and count as zero.
func CountCards(ctx context.Context, page pagedriver.Page, cardSelectors []string) int {
	for _, selector := range cardSelectors {
		cards, err := page.QueryAll(ctx, selector)
		if err == nil && len(cards) > 0 {
			return len(cards)
		}
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
