package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/catalog"
	"github.com/stridewatch/stridewatch/internal/extract"
	"github.com/stridewatch/stridewatch/internal/metrics"
	"github.com/stridewatch/stridewatch/internal/pagedriver"
)

// ErrNoProducts is the fatal listing outcome: the search page rendered no
// product cards at all.
var ErrNoProducts = errors.New("no products found on listing page")

// ArtifactSink stores postmortem artifacts captured on fatal failures.
type ArtifactSink interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// OrchestratorConfig controls the two-phase crawl run.
type OrchestratorConfig struct {
	ListingURL    string
	MaxConcurrent int
	// ProductLimit caps phase 2 for bounded/test runs. Zero means no cap.
	ProductLimit int
	PageSettle   time.Duration
}

// RunResult aggregates everything one crawl run collected. It is always
// populated as far as the run got, even when Run also returns an error.
type RunResult struct {
	Products  []catalog.Product
	Fits      []catalog.FitVariant
	Colors    []catalog.ColorVariant
	Sizes     []catalog.SizeVariant
	Snapshots []catalog.Snapshot
}

// Orchestrator runs phase 1 (listing) and phase 2 (per-product detail walks
// under a concurrency bound) and collects the flat record sets.
type Orchestrator struct {
	browser   pagedriver.Browser
	lazy      *LazyLoader
	products  *extract.ProductExtractor
	worker    *Worker
	sel       extract.Selectors
	artifacts ArtifactSink
	metrics   *metrics.Metrics
	cfg       OrchestratorConfig
	logger    *zap.Logger
}

// NewOrchestrator builds an Orchestrator. artifacts and m may be nil.
func NewOrchestrator(
	browser pagedriver.Browser,
	lazy *LazyLoader,
	products *extract.ProductExtractor,
	worker *Worker,
	sel extract.Selectors,
	artifacts ArtifactSink,
	m *metrics.Metrics,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Orchestrator{
		browser:   browser,
		lazy:      lazy,
		products:  products,
		worker:    worker,
		sel:       sel,
		artifacts: artifacts,
		metrics:   m,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes both phases. A fatal phase-1 failure returns the partial
// result alongside the error; phase-2 task failures only cost their own
// product.
func (o *Orchestrator) Run(ctx context.Context) (RunResult, error) {
	var result RunResult

	products, err := o.runListing(ctx)
	if err != nil {
		return result, err
	}
	result.Products = products

	o.logger.Info("phase 2: crawling product details",
		zap.Int("products", len(products)),
		zap.Int("max_concurrent", o.cfg.MaxConcurrent))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.cfg.MaxConcurrent)
	)
	for _, product := range products {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			o.logger.Warn("run canceled, not dispatching remaining products",
				zap.String("product_id", product.ProductID))
			wg.Wait()
			return result, ctx.Err()
		}

		wg.Add(1)
		go func(p catalog.Product) {
			defer wg.Done()
			defer func() { <-sem }()
			partial := o.crawlProduct(ctx, p)
			mu.Lock()
			result.Fits = append(result.Fits, partial.Fits...)
			result.Colors = append(result.Colors, partial.Colors...)
			result.Sizes = append(result.Sizes, partial.Sizes...)
			result.Snapshots = append(result.Snapshots, partial.Snapshots...)
			mu.Unlock()
		}(product)
	}
	wg.Wait()

	o.logger.Info("crawl run complete",
		zap.Int("products", len(result.Products)),
		zap.Int("fits", len(result.Fits)),
		zap.Int("colors", len(result.Colors)),
		zap.Int("sizes", len(result.Sizes)),
		zap.Int("snapshots", len(result.Snapshots)))
	return result, nil
}

func (o *Orchestrator) runListing(ctx context.Context) ([]catalog.Product, error) {
	page, err := o.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open listing page: %w", err)
	}
	defer page.Close()

	o.logger.Info("phase 1: loading listing", zap.String("url", o.cfg.ListingURL))
	if err := page.Navigate(ctx, o.cfg.ListingURL); err != nil {
		o.captureDebugArtifacts(ctx, page, "listing-unreachable")
		return nil, fmt.Errorf("navigate listing: %w", err)
	}
	sleep(ctx, o.cfg.PageSettle)

	count := o.lazy.Run(ctx, page, o.sel.ProductCards)
	if count == 0 {
		o.captureDebugArtifacts(ctx, page, "no-products")
		return nil, ErrNoProducts
	}

	cards := o.findCards(ctx, page)
	if len(cards) == 0 {
		o.logger.Error("card count and card query disagree", zap.Int("counted", count))
		o.captureDebugArtifacts(ctx, page, "no-cards")
		return nil, ErrNoProducts
	}
	if o.cfg.ProductLimit > 0 && len(cards) > o.cfg.ProductLimit {
		o.logger.Warn("bounded mode: capping products",
			zap.Int("found", len(cards)), zap.Int("limit", o.cfg.ProductLimit))
		cards = cards[:o.cfg.ProductLimit]
	}

	// Colorway cards of one product share a canonical URL and thus a
	// product ID. The first card wins; crawling the product once covers
	// every colorway on its detail page.
	var products []catalog.Product
	seen := make(map[string]struct{})
	duplicates := 0
	for _, card := range cards {
		product, err := o.products.Extract(ctx, card)
		if err != nil {
			continue
		}
		if _, ok := seen[product.ProductID]; ok {
			duplicates++
			continue
		}
		seen[product.ProductID] = struct{}{}
		products = append(products, product)
		o.metrics.ProductDiscovered()
	}
	o.logger.Info("listing extracted",
		zap.Int("cards", len(cards)),
		zap.Int("products", len(products)),
		zap.Int("duplicate_cards", duplicates))
	return products, nil
}

func (o *Orchestrator) findCards(ctx context.Context, page pagedriver.Page) []pagedriver.Element {
	for _, selector := range o.sel.ProductCards {
		cards, err := page.QueryAll(ctx, selector)
		if err == nil && len(cards) > 0 {
			o.logger.Debug("cards found", zap.String("selector", selector), zap.Int("count", len(cards)))
			return cards
		}
	}
	return nil
}

// crawlProduct runs one product task. Panics and page errors are contained
// here: a failed task contributes an empty result and nothing else.
func (o *Orchestrator) crawlProduct(ctx context.Context, product catalog.Product) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			o.metrics.ProductTaskFailed()
			o.logger.Error("product task panicked",
				zap.String("product_id", product.ProductID),
				zap.Any("panic", r))
			result = Result{}
		}
	}()

	page, err := o.browser.NewPage(ctx)
	if err != nil {
		o.metrics.ProductTaskFailed()
		o.logger.Error("open product page failed",
			zap.String("product_id", product.ProductID), zap.Error(err))
		return Result{}
	}
	defer page.Close()

	result = o.worker.Crawl(ctx, page, product)
	o.metrics.ProductCrawled(len(result.Sizes), len(result.Snapshots))
	return result
}

func (o *Orchestrator) captureDebugArtifacts(ctx context.Context, page pagedriver.Page, reason string) {
	if o.artifacts == nil {
		return
	}
	stamp := time.Now().UTC().Format("20060102T150405Z")
	if shot, err := page.Screenshot(ctx); err == nil {
		name := fmt.Sprintf("debug/%s-%s.png", reason, stamp)
		if uri, err := o.artifacts.Put(ctx, name, "image/png", shot); err == nil {
			o.logger.Info("debug screenshot saved", zap.String("uri", uri))
		} else {
			o.logger.Warn("debug screenshot save failed", zap.Error(err))
		}
	}
	if html, err := page.HTML(ctx); err == nil {
		name := fmt.Sprintf("debug/%s-%s.html", reason, stamp)
		if uri, err := o.artifacts.Put(ctx, name, "text/html; charset=utf-8", []byte(html)); err == nil {
			o.logger.Info("debug page html saved", zap.String("uri", uri))
		} else {
			o.logger.Warn("debug page html save failed", zap.Error(err))
		}
	}
}
