package crawl

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/pagedriver"
)

func listingHTML(cards int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < cards; i++ {
		fmt.Fprintf(&b, `<figure><div class="product-card__title">P%d</div></figure>`, i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func openListing(t *testing.T, browser *pagedriver.StaticBrowser, url string) pagedriver.Page {
	t.Helper()
	page, err := browser.NewPage(context.Background())
	require.NoError(t, err)
	require.NoError(t, page.Navigate(context.Background(), url))
	return page
}

func TestLazyLoadStopsWhenStable(t *testing.T) {
	t.Parallel()

	const url = "https://example.com/w/shoes"
	browser := pagedriver.NewStaticBrowser(map[string]string{url: listingHTML(12)})
	scrolls := 0
	browser.ScrollHook = func(int) string {
		scrolls++
		return ""
	}
	page := openListing(t, browser, url)

	lazy := NewLazyLoader(LazyLoadConfig{MaxAttempts: 40, IdleThreshold: 5, SettleEvery: 20}, zap.NewNop())
	count := lazy.Run(context.Background(), page, []string{"figure"})

	require.Equal(t, 12, count)
	// One growth round plus five idle rounds, well under the attempt budget.
	require.Equal(t, 6, scrolls)
}

func TestLazyLoadFollowsGrowth(t *testing.T) {
	t.Parallel()

	const url = "https://example.com/w/shoes"
	browser := pagedriver.NewStaticBrowser(map[string]string{url: listingHTML(24)})
	browser.ScrollHook = func(scrolls int) string {
		// Each of the first three scrolls loads another chunk of cards.
		if scrolls <= 3 {
			return listingHTML(24 * (scrolls + 1))
		}
		return ""
	}
	page := openListing(t, browser, url)

	lazy := NewLazyLoader(LazyLoadConfig{MaxAttempts: 40, IdleThreshold: 5, SettleEvery: 20}, zap.NewNop())
	count := lazy.Run(context.Background(), page, []string{"figure"})

	require.Equal(t, 96, count)
}

func TestLazyLoadHonorsCardCeiling(t *testing.T) {
	t.Parallel()

	const url = "https://example.com/w/shoes"
	browser := pagedriver.NewStaticBrowser(map[string]string{url: listingHTML(10)})
	browser.ScrollHook = func(scrolls int) string {
		return listingHTML(10 * (scrolls + 1))
	}
	page := openListing(t, browser, url)

	lazy := NewLazyLoader(LazyLoadConfig{MaxAttempts: 40, IdleThreshold: 5, SettleEvery: 20, CardCeiling: 30}, zap.NewNop())
	count := lazy.Run(context.Background(), page, []string{"figure"})

	require.GreaterOrEqual(t, count, 30)
	require.Less(t, count, 50)
}

func TestLazyLoadBoundedByMaxAttempts(t *testing.T) {
	t.Parallel()

	const url = "https://example.com/w/shoes"
	browser := pagedriver.NewStaticBrowser(map[string]string{url: listingHTML(1)})
	scrolls := 0
	browser.ScrollHook = func(n int) string {
		scrolls = n
		// Never stabilizes: every scroll adds a card.
		return listingHTML(n + 1)
	}
	page := openListing(t, browser, url)

	lazy := NewLazyLoader(LazyLoadConfig{MaxAttempts: 8, IdleThreshold: 5, SettleEvery: 20}, zap.NewNop())
	count := lazy.Run(context.Background(), page, []string{"figure"})

	require.Equal(t, 8, scrolls)
	require.Equal(t, 9, count)
}

func TestCountCardsTriesSelectorsInOrder(t *testing.T) {
	t.Parallel()

	const url = "https://example.com/w/shoes"
	html := `<html><body><div class="product-card"></div><div class="product-card"></div></body></html>`
	browser := pagedriver.NewStaticBrowser(map[string]string{url: html})
	page := openListing(t, browser, url)

	count := CountCards(context.Background(), page, []string{"figure", ".product-card"})
	require.Equal(t, 2, count)
}
