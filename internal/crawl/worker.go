package crawl

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/catalog"
	"github.com/stridewatch/stridewatch/internal/extract"
	"github.com/stridewatch/stridewatch/internal/pagedriver"
)

// WorkerConfig bounds one product's detail walk.
type WorkerConfig struct {
	PageSettle      time.Duration
	SizeGridTimeout time.Duration
}

// Result is the flat output of one product walk. Partial results survive
// inner failures: a skipped fit or color removes only its own subtree.
type Result struct {
	Fits      []catalog.FitVariant
	Colors    []catalog.ColorVariant
	Sizes     []catalog.SizeVariant
	Snapshots []catalog.Snapshot
}

func (r *Result) merge(other Result) {
	r.Fits = append(r.Fits, other.Fits...)
	r.Colors = append(r.Colors, other.Colors...)
	r.Sizes = append(r.Sizes, other.Sizes...)
	r.Snapshots = append(r.Snapshots, other.Snapshots...)
}

// Worker walks one product's detail page: fits, then colors within each fit,
// then pricing and sizes within each color. All page interaction is strictly
// sequential because selecting a fit or color mutates the page.
type Worker struct {
	fits    *extract.FitExtractor
	colors  *extract.ColorExtractor
	sizes   *extract.SizeExtractor
	pricing *extract.PricingExtractor
	sel     extract.Selectors
	cfg     WorkerConfig
	logger  *zap.Logger
}

// NewWorker builds a Worker.
func NewWorker(
	fits *extract.FitExtractor,
	colors *extract.ColorExtractor,
	sizes *extract.SizeExtractor,
	pricing *extract.PricingExtractor,
	sel extract.Selectors,
	cfg WorkerConfig,
	logger *zap.Logger,
) *Worker {
	if cfg.SizeGridTimeout <= 0 {
		cfg.SizeGridTimeout = 30 * time.Second
	}
	return &Worker{
		fits:    fits,
		colors:  colors,
		sizes:   sizes,
		pricing: pricing,
		sel:     sel,
		cfg:     cfg,
		logger:  logger,
	}
}

// Crawl walks one product and returns whatever it managed to extract.
func (w *Worker) Crawl(ctx context.Context, page pagedriver.Page, product catalog.Product) Result {
	var result Result

	if err := page.Navigate(ctx, product.URL); err != nil {
		w.logger.Warn("product page unreachable",
			zap.String("product_id", product.ProductID),
			zap.String("url", product.URL),
			zap.Error(err))
		return result
	}
	sleep(ctx, w.cfg.PageSettle)

	for _, fit := range w.fits.Extract(ctx, page, product.ProductID) {
		if fit.FitSlug != catalog.DefaultFitSlug && !w.selectFit(ctx, page, fit) {
			w.logger.Warn("fit not selectable, skipping",
				zap.String("fit_id", fit.FitID))
			continue
		}
		result.Fits = append(result.Fits, fit)
		result.merge(w.crawlFit(ctx, page, fit))
	}

	w.logger.Debug("product walk complete",
		zap.String("product_id", product.ProductID),
		zap.Int("fits", len(result.Fits)),
		zap.Int("colors", len(result.Colors)),
		zap.Int("sizes", len(result.Sizes)))
	return result
}

func (w *Worker) crawlFit(ctx context.Context, page pagedriver.Page, fit catalog.FitVariant) Result {
	var result Result
	for _, color := range w.colors.Extract(ctx, page, fit.FitID) {
		colorResult, ok := w.crawlColor(ctx, page, color)
		if !ok {
			continue
		}
		result.merge(colorResult)
	}
	return result
}

func (w *Worker) crawlColor(ctx context.Context, page pagedriver.Page, color catalog.ColorVariant) (Result, bool) {
	var result Result

	if color.DetailURL != "" {
		if current, err := page.URL(ctx); err != nil || current != color.DetailURL {
			if err := page.Navigate(ctx, color.DetailURL); err != nil {
				w.logger.Warn("color page unreachable, skipping color",
					zap.String("color_id", color.ColorID), zap.Error(err))
				return Result{}, false
			}
			sleep(ctx, w.cfg.PageSettle)
		}
	}

	if err := page.WaitVisible(ctx, w.sel.SizeGrid, w.cfg.SizeGridTimeout); err != nil {
		w.logger.Warn("size grid never appeared, skipping color",
			zap.String("color_id", color.ColorID), zap.Error(err))
		return Result{}, false
	}

	// Captions are color-specific; refresh them from the color's own page.
	color.Shown, color.Style = w.colors.ShownAndStyle(ctx, page)
	result.Colors = append(result.Colors, color)

	pricing := w.pricing.Extract(ctx, page)
	for _, entry := range w.sizes.Extract(ctx, page, color.ColorID) {
		result.Sizes = append(result.Sizes, entry.Variant)
		result.Snapshots = append(result.Snapshots, catalog.Snapshot{
			SizeID:          entry.Variant.SizeID,
			Available:       entry.Available,
			Price:           pricing.Price,
			OriginalPrice:   pricing.OriginalPrice,
			DiscountPercent: pricing.DiscountPercent,
		})
	}
	return result, true
}

// selectFit clicks the fit option whose label matches the variant's slug.
func (w *Worker) selectFit(ctx context.Context, page pagedriver.Page, fit catalog.FitVariant) bool {
	container, err := page.Query(ctx, w.sel.FitContainer)
	if err != nil || container == nil {
		return false
	}
	items, err := container.QueryAll(ctx, w.sel.FitItems)
	if err != nil {
		return false
	}
	for _, item := range items {
		label, err := item.Query(ctx, w.sel.FitLabel)
		if err != nil || label == nil {
			continue
		}
		name, err := label.Text(ctx)
		if err != nil || catalog.Slug(name) != fit.FitSlug {
			continue
		}
		if err := item.Click(ctx); err != nil {
			w.logger.Warn("fit click failed", zap.String("fit_id", fit.FitID), zap.Error(err))
			return false
		}
		sleep(ctx, w.cfg.PageSettle)
		return true
	}
	return false
}
