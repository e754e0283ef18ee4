package extract

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/catalog"
	"github.com/stridewatch/stridewatch/internal/pagedriver"
)

// ErrProductRejected marks a listing card that failed the required-field
// contract (unreadable name or link). Callers drop the card and move on.
var ErrProductRejected = errors.New("product card rejected")

// ProductExtractor reads one listing card into a Product record.
type ProductExtractor struct {
	sel     Selectors
	baseURL string
	logger  *zap.Logger
}

// NewProductExtractor builds a ProductExtractor. baseURL is the storefront
// origin used to absolutize root-relative hrefs.
func NewProductExtractor(sel Selectors, baseURL string, logger *zap.Logger) *ProductExtractor {
	return &ProductExtractor{sel: sel, baseURL: baseURL, logger: logger}
}

// Extract reads a single product card. A card without a readable name or
// detail link returns ErrProductRejected.
func (e *ProductExtractor) Extract(ctx context.Context, card pagedriver.Element) (catalog.Product, error) {
	name := e.elementText(ctx, card, e.sel.ProductTitle)
	if name == "" {
		e.logger.Warn("product card has no readable name, dropping")
		return catalog.Product{}, ErrProductRejected
	}

	url := e.extractURL(ctx, card)
	if url == "" {
		e.logger.Warn("product card has no detail link, dropping", zap.String("name", name))
		return catalog.Product{}, ErrProductRejected
	}

	category := e.elementText(ctx, card, e.sel.ProductSubtitle)
	if category == "" {
		category = catalog.NotAvailable
	}

	return catalog.Product{
		ProductID: catalog.ProductID(url),
		Name:      name,
		Category:  category,
		URL:       url,
		Tag:       e.elementText(ctx, card, e.sel.ProductMessaging),
	}, nil
}

func (e *ProductExtractor) extractURL(ctx context.Context, card pagedriver.Element) string {
	link, err := card.Query(ctx, e.sel.ProductLink)
	if err != nil || link == nil {
		return ""
	}
	href, err := link.Attr(ctx, "href")
	if err != nil || href == "" {
		return ""
	}
	full := resolveHref(e.baseURL, e.baseURL, href)
	return canonicalListingURL(full)
}

func (e *ProductExtractor) elementText(ctx context.Context, el pagedriver.Element, selector string) string {
	child, err := el.Query(ctx, selector)
	if err != nil || child == nil {
		return ""
	}
	text, err := child.Text(ctx)
	if err != nil {
		return ""
	}
	return text
}
