// Package pagedriver defines the page-automation capability consumed by the
// crawl pipeline. The core only ever talks to these interfaces; the real
// browser lives behind them.
package pagedriver

import (
	"context"
	"time"
)

// Element is a handle to one DOM node on a live page.
//
// Query and QueryAll scope their selectors to the element's subtree. A
// selector that matches nothing returns (nil, nil) / an empty slice, not an
// error; errors mean the page itself failed.
type Element interface {
	Text(ctx context.Context) (string, error)
	Attr(ctx context.Context, name string) (string, error)
	Click(ctx context.Context) error
	Query(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Page is one browser tab. Navigation and element selection are stateful, so
// a Page must only be used from one goroutine at a time.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	Query(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	ScrollToBottom(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
	HTML(ctx context.Context) (string, error)
	Close()
}

// Browser opens pages. Implementations own the underlying browser process or
// document corpus and release it on Close.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close()
}
