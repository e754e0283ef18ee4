package pagedriver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// StaticBrowser serves canned HTML documents keyed by URL. It backs extractor
// tests and offline replays of captured pages without a real browser.
type StaticBrowser struct {
	pages map[string]string

	// ScrollHook, when set, is invoked on every ScrollToBottom with the
	// current attempt count and may return replacement HTML for the page,
	// simulating lazy loading. Returning "" leaves the page unchanged.
	ScrollHook func(scrolls int) string
}

// NewStaticBrowser builds a browser over a url -> HTML map.
func NewStaticBrowser(pages map[string]string) *StaticBrowser {
	copied := make(map[string]string, len(pages))
	for url, html := range pages {
		copied[url] = html
	}
	return &StaticBrowser{pages: copied}
}

// SetPage registers or replaces a document.
func (b *StaticBrowser) SetPage(url, html string) {
	b.pages[url] = html
}

// NewPage opens a tab over the shared document corpus.
func (b *StaticBrowser) NewPage(_ context.Context) (Page, error) {
	return &staticPage{browser: b}, nil
}

// Close is a no-op for the static browser.
func (b *StaticBrowser) Close() {}

type staticPage struct {
	browser *StaticBrowser
	doc     *goquery.Document
	url     string
	scrolls int
}

func (p *staticPage) Navigate(_ context.Context, url string) error {
	html, ok := p.browser.pages[url]
	if !ok {
		return fmt.Errorf("no document registered for %s", url)
	}
	return p.load(url, html)
}

func (p *staticPage) load(url, html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parse document %s: %w", url, err)
	}
	p.doc = doc
	p.url = url
	return nil
}

func (p *staticPage) URL(_ context.Context) (string, error) {
	return p.url, nil
}

func (p *staticPage) Query(_ context.Context, selector string) (Element, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, nil
	}
	return &staticElement{sel: sel}, nil
}

func (p *staticPage) QueryAll(_ context.Context, selector string) ([]Element, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	var elements []Element
	p.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		elements = append(elements, &staticElement{sel: sel})
	})
	return elements, nil
}

func (p *staticPage) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	el, err := p.Query(ctx, selector)
	if err != nil {
		return err
	}
	if el == nil {
		return fmt.Errorf("selector %q not present", selector)
	}
	return nil
}

func (p *staticPage) ScrollToBottom(_ context.Context) error {
	p.scrolls++
	if p.browser.ScrollHook != nil {
		if html := p.browser.ScrollHook(p.scrolls); html != "" {
			return p.load(p.url, html)
		}
	}
	return nil
}

func (p *staticPage) Screenshot(_ context.Context) ([]byte, error) {
	return nil, fmt.Errorf("static pages cannot be screenshotted")
}

func (p *staticPage) HTML(_ context.Context) (string, error) {
	if p.doc == nil {
		return "", fmt.Errorf("no document loaded")
	}
	html, err := goquery.OuterHtml(p.doc.Selection)
	if err != nil {
		return "", fmt.Errorf("serialize document: %w", err)
	}
	return html, nil
}

func (p *staticPage) Close() {}

type staticElement struct {
	sel *goquery.Selection
}

func (e *staticElement) Text(_ context.Context) (string, error) {
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e *staticElement) Attr(_ context.Context, name string) (string, error) {
	return e.sel.AttrOr(name, ""), nil
}

func (e *staticElement) Click(_ context.Context) error {
	// Static documents have no behavior to trigger.
	return nil
}

func (e *staticElement) Query(_ context.Context, selector string) (Element, error) {
	sel := e.sel.Find(selector).First()
	if sel.Length() == 0 {
		return nil, nil
	}
	return &staticElement{sel: sel}, nil
}

func (e *staticElement) QueryAll(_ context.Context, selector string) ([]Element, error) {
	var elements []Element
	e.sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &staticElement{sel: s})
	})
	return elements, nil
}
