package pagedriver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromeConfig controls the headless Chrome browser.
type ChromeConfig struct {
	UserAgent         string
	NavigationTimeout time.Duration
	ViewportWidth     int64
	ViewportHeight    int64
}

// ChromeBrowser implements Browser on top of chromedp and headless Chrome.
type ChromeBrowser struct {
	cfg         ChromeConfig
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChrome starts a headless Chrome allocator.
func NewChrome(cfg ChromeConfig) (*ChromeBrowser, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 60 * time.Second
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1920
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 1080
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeBrowser{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close shuts down the browser allocator.
func (b *ChromeBrowser) Close() {
	b.allocCancel()
}

// NewPage opens a fresh tab configured with the viewport and user agent.
func (b *ChromeBrowser) NewPage(ctx context.Context) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.allocator)

	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(b.cfg.ViewportWidth, b.cfg.ViewportHeight, 1, false),
	}
	if b.cfg.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(b.cfg.UserAgent))
	}
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		tabCancel()
		return nil, fmt.Errorf("configure tab: %w", err)
	}

	return &chromePage{
		ctx:        tabCtx,
		cancel:     tabCancel,
		navTimeout: b.cfg.NavigationTimeout,
	}, nil
}

type chromePage struct {
	ctx        context.Context
	cancel     context.CancelFunc
	navTimeout time.Duration
}

func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := p.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(p.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(p.ctx, p.navTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

func (p *chromePage) Query(ctx context.Context, selector string) (Element, error) {
	nodes, err := p.queryNodes(ctx, selector, chromedp.ByQuery)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &chromeElement{page: p, node: nodes[0]}, nil
}

func (p *chromePage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	nodes, err := p.queryNodes(ctx, selector, chromedp.ByQueryAll)
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &chromeElement{page: p, node: n})
	}
	return elements, nil
}

func (p *chromePage) queryNodes(ctx context.Context, selector string, by chromedp.QueryOption) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return nodes, nil
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (p *chromePage) ScrollToBottom(ctx context.Context) error {
	if err := p.run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil)); err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	return nil
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.ActionFunc(func(actionCtx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().Do(actionCtx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

func (p *chromePage) Close() {
	p.cancel()
}

type chromeElement struct {
	page *chromePage
	node *cdp.Node
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.page.run(ctx, chromedp.ActionFunc(func(actionCtx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(actionCtx)
		if err != nil {
			return err
		}
		res, exc, err := runtime.CallFunctionOn(`function() { return this.innerText; }`).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(actionCtx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		if res != nil && len(res.Value) > 0 {
			if err := json.Unmarshal(res.Value, &text); err != nil {
				return err
			}
		}
		return nil
	}))
	if err != nil {
		return "", fmt.Errorf("element text: %w", err)
	}
	return text, nil
}

func (e *chromeElement) Attr(_ context.Context, name string) (string, error) {
	return e.node.AttributeValue(name), nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	if err := e.page.run(ctx, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("click node: %w", err)
	}
	return nil
}

func (e *chromeElement) Query(ctx context.Context, selector string) (Element, error) {
	nodes, err := e.childNodes(ctx, selector, chromedp.ByQuery)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &chromeElement{page: e.page, node: nodes[0]}, nil
}

func (e *chromeElement) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	nodes, err := e.childNodes(ctx, selector, chromedp.ByQueryAll)
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &chromeElement{page: e.page, node: n})
	}
	return elements, nil
}

func (e *chromeElement) childNodes(ctx context.Context, selector string, by chromedp.QueryOption) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	err := e.page.run(ctx, chromedp.Nodes(selector, &nodes, by, chromedp.FromNode(e.node), chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("query %q in node: %w", selector, err)
	}
	return nodes, nil
}
