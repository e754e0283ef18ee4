package extract

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/catalog"
	"github.com/stridewatch/stridewatch/internal/pagedriver"
)

// SizeEntry pairs a size variant with its availability at extraction time.
// Pricing does not vary by size; the worker merges the per-color pricing into
// every entry's snapshot.
type SizeEntry struct {
	Variant   catalog.SizeVariant
	Available bool
}

// SizeExtractor reads the size grid for the current fit/color context. A page
// without a usable grid yields one synthesized one-size entry so the tree is
// never missing the size level.
type SizeExtractor struct {
	sel    Selectors
	logger *zap.Logger
}

// NewSizeExtractor builds a SizeExtractor.
func NewSizeExtractor(sel Selectors, logger *zap.Logger) *SizeExtractor {
	return &SizeExtractor{sel: sel, logger: logger}
}

// Extract never fails: grid errors degrade to the default size entry.
func (e *SizeExtractor) Extract(ctx context.Context, page pagedriver.Page, colorID string) []SizeEntry {
	entries := e.fromGrid(ctx, page, colorID)
	if len(entries) == 0 {
		e.logger.Debug("no size grid found, synthesizing one-size entry",
			zap.String("color_id", colorID))
		entries = []SizeEntry{defaultSize(colorID)}
	}
	return entries
}

func (e *SizeExtractor) fromGrid(ctx context.Context, page pagedriver.Page, colorID string) []SizeEntry {
	grid, err := page.Query(ctx, e.sel.SizeGrid)
	if err != nil || grid == nil {
		return nil
	}
	items, err := grid.QueryAll(ctx, e.sel.SizeItems)
	if err != nil {
		e.logger.Warn("size items query failed", zap.String("color_id", colorID), zap.Error(err))
		return nil
	}

	var entries []SizeEntry
	for _, item := range items {
		entries = append(entries, e.fromItem(ctx, item, colorID))
	}
	return entries
}

func (e *SizeExtractor) fromItem(ctx context.Context, item pagedriver.Element, colorID string) SizeEntry {
	// Availability is the absence of the disabled marker.
	class, err := item.Attr(ctx, "class")
	available := err == nil && !strings.Contains(class, "disabled")

	label := catalog.NotAvailable
	if el, err := item.Query(ctx, e.sel.SizeLabel); err == nil && el != nil {
		if text, err := el.Text(ctx); err == nil && text != "" {
			label = text
		}
	}

	token := catalog.NotAvailable
	if input, err := item.Query(ctx, e.sel.SizeInput); err == nil && input != nil {
		if value, err := input.Attr(ctx, "value"); err == nil && value != "" {
			token = value
		}
	}

	return SizeEntry{
		Variant: catalog.SizeVariant{
			SizeID:    catalog.SizeID(colorID, token),
			ColorID:   colorID,
			SizeToken: token,
			SizeLabel: label,
		},
		Available: available,
	}
}

func defaultSize(colorID string) SizeEntry {
	return SizeEntry{
		Variant: catalog.SizeVariant{
			SizeID:    catalog.SizeID(colorID, catalog.DefaultSizeToken),
			ColorID:   colorID,
			SizeToken: catalog.DefaultSizeToken,
			SizeLabel: catalog.DefaultSizeLabel,
		},
		Available: true,
	}
}
