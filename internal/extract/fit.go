package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/catalog"
	"github.com/stridewatch/stridewatch/internal/pagedriver"
)

// FitExtractor reads the fit picker on a product detail page. Pages without a
// fit picker get a single synthesized default fit so the hierarchy always has
// this level.
type FitExtractor struct {
	sel    Selectors
	logger *zap.Logger
}

// NewFitExtractor builds a FitExtractor.
func NewFitExtractor(sel Selectors, logger *zap.Logger) *FitExtractor {
	return &FitExtractor{sel: sel, logger: logger}
}

// Extract never fails: any page error degrades to the default fit.
func (e *FitExtractor) Extract(ctx context.Context, page pagedriver.Page, productID string) []catalog.FitVariant {
	fits := e.fromPicker(ctx, page, productID)
	if len(fits) == 0 {
		e.logger.Debug("no fit picker found, synthesizing default fit",
			zap.String("product_id", productID))
		fits = []catalog.FitVariant{defaultFit(productID)}
	}
	return fits
}

func (e *FitExtractor) fromPicker(ctx context.Context, page pagedriver.Page, productID string) []catalog.FitVariant {
	container, err := page.Query(ctx, e.sel.FitContainer)
	if err != nil || container == nil {
		return nil
	}
	items, err := container.QueryAll(ctx, e.sel.FitItems)
	if err != nil {
		e.logger.Warn("fit items query failed", zap.String("product_id", productID), zap.Error(err))
		return nil
	}

	var fits []catalog.FitVariant
	for _, item := range items {
		label, err := item.Query(ctx, e.sel.FitLabel)
		if err != nil || label == nil {
			e.logger.Warn("fit item has no label, skipping", zap.String("product_id", productID))
			continue
		}
		name, err := label.Text(ctx)
		if err != nil || name == "" {
			continue
		}
		slug := catalog.Slug(name)
		fits = append(fits, catalog.FitVariant{
			FitID:     catalog.FitID(productID, slug),
			ProductID: productID,
			FitSlug:   slug,
			FitName:   name,
		})
	}
	return fits
}

func defaultFit(productID string) catalog.FitVariant {
	return catalog.FitVariant{
		FitID:     catalog.FitID(productID, catalog.DefaultFitSlug),
		ProductID: productID,
		FitSlug:   catalog.DefaultFitSlug,
		FitName:   catalog.DefaultFitName,
	}
}
