package extract

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/catalog"
	"github.com/stridewatch/stridewatch/internal/pagedriver"
)

// ColorExtractor reads the colorway picker on a product detail page, one
// level below fits. Pages without a picker get a synthesized default color
// bound to the current page URL.
type ColorExtractor struct {
	sel     Selectors
	baseURL string
	logger  *zap.Logger
}

// NewColorExtractor builds a ColorExtractor.
func NewColorExtractor(sel Selectors, baseURL string, logger *zap.Logger) *ColorExtractor {
	return &ColorExtractor{sel: sel, baseURL: baseURL, logger: logger}
}

// Extract never fails: any page error degrades to the default color.
func (e *ColorExtractor) Extract(ctx context.Context, page pagedriver.Page, fitID string) []catalog.ColorVariant {
	colors := e.fromPicker(ctx, page, fitID)
	if len(colors) == 0 {
		e.logger.Debug("no color picker found, synthesizing default color",
			zap.String("fit_id", fitID))
		colors = []catalog.ColorVariant{e.defaultColor(ctx, page, fitID)}
	}
	return colors
}

func (e *ColorExtractor) fromPicker(ctx context.Context, page pagedriver.Page, fitID string) []catalog.ColorVariant {
	container, err := page.Query(ctx, e.sel.ColorContainer)
	if err != nil || container == nil {
		return nil
	}
	links, err := container.QueryAll(ctx, e.sel.ColorLinks)
	if err != nil {
		e.logger.Warn("color links query failed", zap.String("fit_id", fitID), zap.Error(err))
		return nil
	}

	pageURL, err := page.URL(ctx)
	if err != nil {
		pageURL = e.baseURL
	}
	shown, style := e.ShownAndStyle(ctx, page)

	var colors []catalog.ColorVariant
	for _, link := range links {
		color, ok := e.fromLink(ctx, link, fitID, pageURL)
		if !ok {
			continue
		}
		color.Shown = shown
		color.Style = style
		colors = append(colors, color)
	}
	return colors
}

func (e *ColorExtractor) fromLink(ctx context.Context, link pagedriver.Element, fitID, pageURL string) (catalog.ColorVariant, bool) {
	id, err := link.Attr(ctx, e.sel.ColorLinkIDAttr)
	if err != nil {
		return catalog.ColorVariant{}, false
	}
	slug := strings.TrimPrefix(id, e.sel.ColorLinkIDPrefix)
	if slug == "" {
		slug = "UNKNOWN"
	}

	color := catalog.ColorVariant{
		ColorID:   catalog.ColorID(fitID, slug),
		FitID:     fitID,
		ColorSlug: slug,
		ColorName: catalog.UnknownColorName,
	}

	if img, err := link.Query(ctx, e.sel.ColorImage); err == nil && img != nil {
		if alt, err := img.Attr(ctx, "alt"); err == nil && alt != "" {
			color.ColorName = alt
		}
		if src, err := img.Attr(ctx, "src"); err == nil {
			color.ImageURL = src
		}
	}

	if href, err := link.Attr(ctx, "href"); err == nil {
		color.DetailURL = resolveHref(e.baseURL, pageURL, href)
	}
	return color, true
}

// ShownAndStyle reads the "Shown:"/"Style:" caption pair from the product
// description, degrading each independently to the sentinel. The worker calls
// this again after navigating to a color detail page since the captions are
// color-specific.
func (e *ColorExtractor) ShownAndStyle(ctx context.Context, page pagedriver.Page) (shown, style string) {
	return e.caption(ctx, page, e.sel.ShownCaption, "Shown:"),
		e.caption(ctx, page, e.sel.StyleCaption, "Style:")
}

func (e *ColorExtractor) caption(ctx context.Context, page pagedriver.Page, selector, label string) string {
	el, err := page.Query(ctx, selector)
	if err != nil || el == nil {
		return catalog.NotAvailable
	}
	text, err := el.Text(ctx)
	if err != nil {
		return catalog.NotAvailable
	}
	text = strings.TrimSpace(strings.TrimPrefix(text, label))
	if text == "" {
		return catalog.NotAvailable
	}
	return text
}

func (e *ColorExtractor) defaultColor(ctx context.Context, page pagedriver.Page, fitID string) catalog.ColorVariant {
	pageURL, err := page.URL(ctx)
	if err != nil {
		pageURL = ""
	}
	shown, style := e.ShownAndStyle(ctx, page)
	return catalog.ColorVariant{
		ColorID:   catalog.ColorID(fitID, catalog.DefaultColorSlug),
		FitID:     fitID,
		ColorSlug: catalog.DefaultColorSlug,
		ColorName: catalog.DefaultColorName,
		DetailURL: pageURL,
		Shown:     shown,
		Style:     style,
	}
}
