package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/catalog"
	"github.com/stridewatch/stridewatch/internal/pagedriver"
)

const baseURL = "https://example.com"

func loadPage(t *testing.T, url, html string) pagedriver.Page {
	t.Helper()
	browser := pagedriver.NewStaticBrowser(map[string]string{url: html})
	page, err := browser.NewPage(context.Background())
	require.NoError(t, err)
	require.NoError(t, page.Navigate(context.Background(), url))
	return page
}

func firstCard(t *testing.T, page pagedriver.Page) pagedriver.Element {
	t.Helper()
	card, err := page.Query(context.Background(), "figure")
	require.NoError(t, err)
	require.NotNil(t, card)
	return card
}

func TestProductExtract(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<figure>
  <a class="product-card__link-overlay" href="/t/air-runner-3/FQ1234-001"></a>
  <div class="product-card__title">Air Runner 3</div>
  <div class="product-card__subtitle">Men's Road Running Shoes</div>
  <div data-testid="product-card__messaging">Just In</div>
</figure>
</body></html>`
	page := loadPage(t, baseURL+"/w/mens-shoes", html)
	e := NewProductExtractor(DefaultSelectors(), baseURL, zap.NewNop())

	product, err := e.Extract(context.Background(), firstCard(t, page))
	require.NoError(t, err)
	require.Equal(t, "Air Runner 3", product.Name)
	require.Equal(t, "Men's Road Running Shoes", product.Category)
	require.Equal(t, "Just In", product.Tag)
	// Variant segment is stripped so all colorways share one product URL.
	require.Equal(t, baseURL+"/t/air-runner-3", product.URL)
	require.Equal(t, catalog.ProductID(product.URL), product.ProductID)
}

func TestProductExtractRejectsMissingName(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<figure>
  <a class="product-card__link-overlay" href="/t/nameless/CV0000-100"></a>
</figure>
</body></html>`
	page := loadPage(t, baseURL+"/w/mens-shoes", html)
	e := NewProductExtractor(DefaultSelectors(), baseURL, zap.NewNop())

	_, err := e.Extract(context.Background(), firstCard(t, page))
	require.ErrorIs(t, err, ErrProductRejected)
}

func TestProductExtractRejectsMissingLink(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<figure>
  <div class="product-card__title">Linkless</div>
</figure>
</body></html>`
	page := loadPage(t, baseURL+"/w/mens-shoes", html)
	e := NewProductExtractor(DefaultSelectors(), baseURL, zap.NewNop())

	_, err := e.Extract(context.Background(), firstCard(t, page))
	require.ErrorIs(t, err, ErrProductRejected)
}

func TestProductExtractCategoryFallback(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<figure>
  <a class="product-card__link-overlay" href="/t/bare/AA0000-001"></a>
  <div class="product-card__title">Bare</div>
</figure>
</body></html>`
	page := loadPage(t, baseURL+"/w/mens-shoes", html)
	e := NewProductExtractor(DefaultSelectors(), baseURL, zap.NewNop())

	product, err := e.Extract(context.Background(), firstCard(t, page))
	require.NoError(t, err)
	require.Equal(t, catalog.NotAvailable, product.Category)
	require.Empty(t, product.Tag)
}

func TestFitExtract(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<div id="fit-picker-container">
  <div class="nds-radio"><label>Regular</label></div>
  <div class="nds-radio"><label>Extra Wide</label></div>
</div>
</body></html>`
	page := loadPage(t, baseURL+"/t/air-runner-3", html)
	e := NewFitExtractor(DefaultSelectors(), zap.NewNop())

	fits := e.Extract(context.Background(), page, "PROD-AAAA0000")
	require.Len(t, fits, 2)
	require.Equal(t, "REGULAR", fits[0].FitSlug)
	require.Equal(t, "Regular", fits[0].FitName)
	require.Equal(t, "PROD-AAAA0000_REGULAR", fits[0].FitID)
	require.Equal(t, "EXTRA_WIDE", fits[1].FitSlug)
	require.Equal(t, "PROD-AAAA0000_EXTRA_WIDE", fits[1].FitID)
}

func TestFitExtractSynthesizesDefault(t *testing.T) {
	t.Parallel()

	page := loadPage(t, baseURL+"/t/air-runner-3", `<html><body><p>no picker</p></body></html>`)
	e := NewFitExtractor(DefaultSelectors(), zap.NewNop())

	fits := e.Extract(context.Background(), page, "PROD-AAAA0000")
	require.Len(t, fits, 1)
	require.Equal(t, catalog.DefaultFitSlug, fits[0].FitSlug)
	require.Equal(t, catalog.DefaultFitName, fits[0].FitName)
	require.Equal(t, "PROD-AAAA0000_DEFAULT", fits[0].FitID)
}

func TestColorExtract(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<div id="colorway-picker-container">
  <a data-testid="colorway-link-BLACK" href="?color=black">
    <img alt="Black/White" src="https://img.example.com/black.jpg">
  </a>
  <a data-testid="colorway-link-RED" href="/t/air-runner-3/FQ1234-600">
    <img alt="University Red" src="https://img.example.com/red.jpg">
  </a>
</div>
<ul>
  <li data-testid="product-description-color-description">Shown: Black/White</li>
  <li data-testid="product-description-style-color">Style: FQ1234-001</li>
</ul>
</body></html>`
	pageURL := baseURL + "/t/air-runner-3?fit=regular"
	page := loadPage(t, pageURL, html)
	e := NewColorExtractor(DefaultSelectors(), baseURL, zap.NewNop())

	colors := e.Extract(context.Background(), page, "PROD-AAAA0000_DEFAULT")
	require.Len(t, colors, 2)

	black := colors[0]
	require.Equal(t, "PROD-AAAA0000_DEFAULT_BLACK", black.ColorID)
	require.Equal(t, "BLACK", black.ColorSlug)
	require.Equal(t, "Black/White", black.ColorName)
	require.Equal(t, "https://img.example.com/black.jpg", black.ImageURL)
	// Query-only href resolves against the page path, dropping its query.
	require.Equal(t, baseURL+"/t/air-runner-3?color=black", black.DetailURL)
	require.Equal(t, "Black/White", black.Shown)
	require.Equal(t, "FQ1234-001", black.Style)

	red := colors[1]
	require.Equal(t, "RED", red.ColorSlug)
	require.Equal(t, "University Red", red.ColorName)
	require.Equal(t, baseURL+"/t/air-runner-3/FQ1234-600", red.DetailURL)
}

func TestColorExtractSynthesizesDefault(t *testing.T) {
	t.Parallel()

	pageURL := baseURL + "/t/air-runner-3"
	page := loadPage(t, pageURL, `<html><body><p>no picker</p></body></html>`)
	e := NewColorExtractor(DefaultSelectors(), baseURL, zap.NewNop())

	colors := e.Extract(context.Background(), page, "PROD-AAAA0000_DEFAULT")
	require.Len(t, colors, 1)
	require.Equal(t, catalog.DefaultColorSlug, colors[0].ColorSlug)
	require.Equal(t, catalog.DefaultColorName, colors[0].ColorName)
	require.Equal(t, pageURL, colors[0].DetailURL)
	require.Equal(t, catalog.NotAvailable, colors[0].Shown)
	require.Equal(t, catalog.NotAvailable, colors[0].Style)
}

func TestSizeExtract(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<div data-testid="pdp-grid-selector-grid">
  <div data-testid="pdp-grid-selector-item" class="size-cell">
    <input value="9"><label>M 9 / W 10.5</label>
  </div>
  <div data-testid="pdp-grid-selector-item" class="size-cell disabled">
    <input value="10"><label>M 10 / W 11.5</label>
  </div>
</div>
</body></html>`
	page := loadPage(t, baseURL+"/t/air-runner-3", html)
	e := NewSizeExtractor(DefaultSelectors(), zap.NewNop())

	entries := e.Extract(context.Background(), page, "PROD-AAAA0000_DEFAULT_BLACK")
	require.Len(t, entries, 2)

	require.Equal(t, "PROD-AAAA0000_DEFAULT_BLACK_9", entries[0].Variant.SizeID)
	require.Equal(t, "9", entries[0].Variant.SizeToken)
	require.Equal(t, "M 9 / W 10.5", entries[0].Variant.SizeLabel)
	require.True(t, entries[0].Available)

	require.Equal(t, "10", entries[1].Variant.SizeToken)
	require.False(t, entries[1].Available)
}

func TestSizeExtractSynthesizesOneSize(t *testing.T) {
	t.Parallel()

	page := loadPage(t, baseURL+"/t/air-runner-3", `<html><body><p>no grid</p></body></html>`)
	e := NewSizeExtractor(DefaultSelectors(), zap.NewNop())

	entries := e.Extract(context.Background(), page, "PROD-AAAA0000_DEFAULT_BLACK")
	require.Len(t, entries, 1)
	require.Equal(t, catalog.DefaultSizeToken, entries[0].Variant.SizeToken)
	require.Equal(t, "PROD-AAAA0000_DEFAULT_BLACK_ONE_SIZE", entries[0].Variant.SizeID)
	require.True(t, entries[0].Available)
}

func TestPricingExtract(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<div id="price-container">
  <div data-testid="currentPrice-container">$199.97</div>
  <div data-testid="initialPrice-container">$250</div>
  <div data-testid="OfferPercentage">20% off</div>
</div>
</body></html>`
	page := loadPage(t, baseURL+"/t/air-runner-3", html)
	e := NewPricingExtractor(DefaultSelectors(), zap.NewNop())

	pricing := e.Extract(context.Background(), page)
	require.Equal(t, "199.97", pricing.Price)
	require.Equal(t, "250", pricing.OriginalPrice)
	require.Equal(t, "20", pricing.DiscountPercent)
}

func TestPricingExtractDerivesDiscount(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<div id="price-container">
  <div data-testid="currentPrice-container">$180</div>
  <div data-testid="initialPrice-container">$200</div>
</div>
</body></html>`
	page := loadPage(t, baseURL+"/t/air-runner-3", html)
	e := NewPricingExtractor(DefaultSelectors(), zap.NewNop())

	pricing := e.Extract(context.Background(), page)
	require.Equal(t, "180", pricing.Price)
	require.Equal(t, "10", pricing.DiscountPercent)
}

func TestPricingExtractOriginalDefaultsToCurrent(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<div id="price-container">
  <div data-testid="currentPrice-container">$220</div>
</div>
</body></html>`
	page := loadPage(t, baseURL+"/t/air-runner-3", html)
	e := NewPricingExtractor(DefaultSelectors(), zap.NewNop())

	pricing := e.Extract(context.Background(), page)
	require.Equal(t, "220", pricing.Price)
	require.Equal(t, "220", pricing.OriginalPrice)
	require.Equal(t, catalog.NoDiscount, pricing.DiscountPercent)
}

func TestPricingExtractAllMissing(t *testing.T) {
	t.Parallel()

	page := loadPage(t, baseURL+"/t/air-runner-3", `<html><body><p>no prices</p></body></html>`)
	e := NewPricingExtractor(DefaultSelectors(), zap.NewNop())

	pricing := e.Extract(context.Background(), page)
	require.Equal(t, catalog.NotAvailable, pricing.Price)
	require.Equal(t, catalog.NotAvailable, pricing.OriginalPrice)
	require.Equal(t, catalog.NoDiscount, pricing.DiscountPercent)
}

func TestResolveHref(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		pageURL string
		href    string
		want    string
	}{
		{"empty", baseURL + "/t/p", "", ""},
		{"query only", baseURL + "/t/p?fit=wide", "?color=red", baseURL + "/t/p?color=red"},
		{"query only without existing query", baseURL + "/t/p", "?color=red", baseURL + "/t/p?color=red"},
		{"root relative", baseURL + "/t/p", "/t/other/ZZ9999-100", baseURL + "/t/other/ZZ9999-100"},
		{"absolute", baseURL + "/t/p", "https://other.example.com/x", "https://other.example.com/x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, resolveHref(baseURL, tc.pageURL, tc.href))
		})
	}
}

func TestPriceNumber(t *testing.T) {
	t.Parallel()

	require.Equal(t, "1234.56", priceNumber("$1,234.56"))
	require.Equal(t, "220", priceNumber("  $220  "))
	require.Equal(t, catalog.NotAvailable, priceNumber("Sold Out"))
	require.Equal(t, catalog.NotAvailable, priceNumber(""))
}
