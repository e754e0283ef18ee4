package extract

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/catalog"
	"github.com/stridewatch/stridewatch/internal/pagedriver"
)

var discountPattern = regexp.MustCompile(`(\d+)%`)

// PricingExtractor reads the price block once per fit/color context. Each of
// the three fields degrades independently to its sentinel.
type PricingExtractor struct {
	sel    Selectors
	logger *zap.Logger
}

// NewPricingExtractor builds a PricingExtractor.
func NewPricingExtractor(sel Selectors, logger *zap.Logger) *PricingExtractor {
	return &PricingExtractor{sel: sel, logger: logger}
}

// Extract never fails; missing fields carry sentinels.
func (e *PricingExtractor) Extract(ctx context.Context, page pagedriver.Page) catalog.Pricing {
	pricing := catalog.Pricing{
		Price:           catalog.NotAvailable,
		OriginalPrice:   catalog.NotAvailable,
		DiscountPercent: catalog.NoDiscount,
	}

	if container, err := page.Query(ctx, e.sel.PriceContainer); err == nil && container != nil {
		pricing.Price = e.priceFrom(ctx, container, e.sel.CurrentPrice)
		pricing.OriginalPrice = e.priceFrom(ctx, container, e.sel.OriginalPrice)
		pricing.DiscountPercent = e.discountFrom(ctx, container)
	}

	// Alternative page-level locations when the container missed.
	if pricing.Price == catalog.NotAvailable {
		pricing.Price = e.pagePrice(ctx, page, e.sel.CurrentPrice)
	}
	if pricing.OriginalPrice == catalog.NotAvailable {
		pricing.OriginalPrice = e.pagePrice(ctx, page, e.sel.OriginalPrice)
	}

	if pricing.Price != catalog.NotAvailable &&
		pricing.OriginalPrice != catalog.NotAvailable &&
		pricing.DiscountPercent == catalog.NoDiscount {
		pricing.DiscountPercent = calculateDiscount(pricing.Price, pricing.OriginalPrice)
	}
	if pricing.Price != catalog.NotAvailable && pricing.OriginalPrice == catalog.NotAvailable {
		pricing.OriginalPrice = pricing.Price
	}
	return pricing
}

func (e *PricingExtractor) priceFrom(ctx context.Context, container pagedriver.Element, selector string) string {
	el, err := container.Query(ctx, selector)
	if err != nil || el == nil {
		return catalog.NotAvailable
	}
	text, err := el.Text(ctx)
	if err != nil {
		return catalog.NotAvailable
	}
	return priceNumber(text)
}

func (e *PricingExtractor) pagePrice(ctx context.Context, page pagedriver.Page, selector string) string {
	el, err := page.Query(ctx, selector)
	if err != nil || el == nil {
		return catalog.NotAvailable
	}
	text, err := el.Text(ctx)
	if err != nil {
		return catalog.NotAvailable
	}
	return priceNumber(text)
}

func (e *PricingExtractor) discountFrom(ctx context.Context, container pagedriver.Element) string {
	el, err := container.Query(ctx, e.sel.Discount)
	if err != nil || el == nil {
		return catalog.NoDiscount
	}
	text, err := el.Text(ctx)
	if err != nil {
		return catalog.NoDiscount
	}
	if m := discountPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return catalog.NoDiscount
}

// priceNumber strips a display string down to digits plus one decimal point.
// "$1,234.56" becomes "1234.56"; unusable input becomes the sentinel.
func priceNumber(text string) string {
	var b strings.Builder
	sawDot := false
	for _, r := range strings.TrimSpace(text) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !sawDot:
			b.WriteRune(r)
			sawDot = true
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "." {
		return catalog.NotAvailable
	}
	return cleaned
}

// calculateDiscount derives the rounded percent saved when the current price
// undercuts the original; anything else is no discount.
func calculateDiscount(current, original string) string {
	cur, err := strconv.ParseFloat(current, 64)
	if err != nil {
		return catalog.NoDiscount
	}
	orig, err := strconv.ParseFloat(original, 64)
	if err != nil {
		return catalog.NoDiscount
	}
	if orig > 0 && cur < orig {
		return strconv.Itoa(int(math.Round((orig - cur) / orig * 100)))
	}
	return catalog.NoDiscount
}
