// Package headless implements the rendered listing source using chromedp
// and headless Chrome.
package headless

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/leadharvest/leadharvest/internal/harvest"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Config controls the behavior of the headless browser.
type Config struct {
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
	WindowWidth       int
	WindowHeight      int
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 45 * time.Second
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = 15 * time.Second
	}
	if c.WindowWidth <= 0 {
		c.WindowWidth = 1920
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 1080
	}
	return c
}

// Browser opens provider result views in headless Chrome tabs sharing
// one exec allocator.
type Browser struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a Browser backed by chromedp.
func New(cfg Config) *Browser {
	cfg = cfg.withDefaults()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Browser{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// Close cancels the allocator context and every tab derived from it.
func (b *Browser) Close() {
	b.allocCancel()
}

// Open navigates a fresh tab to the provider's search results for the
// query and waits for the results container to render. The returned view
// owns the tab until Close.
func (b *Browser) Open(ctx context.Context, src harvest.Source, keyword, location string) (harvest.ResultsView, error) {
	sel, err := providerSelectors(src)
	if err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(b.allocator)

	navCtx, cancelNav := context.WithTimeout(tabCtx, b.cfg.NavigationTimeout)
	defer cancelNav()
	stopForward := forwardCancel(ctx, cancelNav)
	defer stopForward()

	searchURL := sel.searchURL(keyword, location)
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(b.cfg.UserAgent),
		chromedp.Navigate(searchURL),
		chromedp.WaitVisible(sel.container, chromedp.ByQuery),
	}
	if err := chromedp.Run(navCtx, tasks); err != nil {
		tabCancel()
		return nil, fmt.Errorf("navigate %s: %w", searchURL, err)
	}

	return &resultsView{
		tabCtx:        tabCtx,
		tabCancel:     tabCancel,
		sel:           sel,
		actionTimeout: b.cfg.ActionTimeout,
	}, nil
}

// resultsView is one open tab showing a provider's search results.
type resultsView struct {
	tabCtx        context.Context
	tabCancel     context.CancelFunc
	sel           selectors
	actionTimeout time.Duration
}

// Scroll advances the results container to reveal lazily rendered
// listings.
func (v *resultsView) Scroll(ctx context.Context) error {
	if err := v.run(ctx, chromedp.Evaluate(v.sel.scrollScript, nil)); err != nil {
		return fmt.Errorf("scroll results: %w", err)
	}
	return nil
}

// Listings snapshots the outer HTML of every listing element currently
// in the DOM.
func (v *resultsView) Listings(ctx context.Context) ([]string, error) {
	var listings []string
	if err := v.run(ctx, chromedp.Evaluate(v.sel.listingsScript, &listings)); err != nil {
		return nil, fmt.Errorf("snapshot listings: %w", err)
	}
	return listings, nil
}

// Close tears down the tab.
func (v *resultsView) Close(context.Context) error {
	v.tabCancel()
	return nil
}

func (v *resultsView) run(ctx context.Context, action chromedp.Action) error {
	taskCtx, cancel := context.WithTimeout(v.tabCtx, v.actionTimeout)
	defer cancel()
	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()
	return chromedp.Run(taskCtx, action)
}

// forwardCancel propagates the caller's cancellation into a chromedp
// task context derived from the long-lived tab context.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// selectors bundles the per-provider page structure: the search URL
// shape, the results container to wait on, and the scripts that scroll
// it and snapshot listing elements.
type selectors struct {
	searchURL      func(keyword, location string) string
	container      string
	scrollScript   string
	listingsScript string
}

func providerSelectors(src harvest.Source) (selectors, error) {
	switch src {
	case harvest.SourceGoogleMaps:
		return selectors{
			searchURL:      mapsSearchURL,
			container:      `div[role="feed"]`,
			scrollScript:   mapsScrollScript,
			listingsScript: mapsListingsScript,
		}, nil
	case harvest.SourceYelp:
		return selectors{
			searchURL:      yelpSearchURL,
			container:      `[data-testid="serp-ia-card"]`,
			scrollScript:   yelpScrollScript,
			listingsScript: yelpListingsScript,
		}, nil
	default:
		return selectors{}, fmt.Errorf("no browser support for source %q", src)
	}
}

func mapsSearchURL(keyword, location string) string {
	return "https://www.google.com/maps/search/" + url.QueryEscape(keyword+" in "+location)
}

func yelpSearchURL(keyword, location string) string {
	q := url.Values{}
	q.Set("find_desc", keyword)
	q.Set("find_loc", location)
	return "https://www.yelp.com/search?" + q.Encode()
}

const mapsScrollScript = `(function () {
  const feed = document.querySelector('div[role="feed"]');
  if (feed) {
    feed.scrollBy(0, feed.offsetHeight);
  }
})();`

const mapsListingsScript = `(function () {
  return Array.from(document.querySelectorAll('[data-result-index]')).map(el => el.outerHTML);
})();`

const yelpScrollScript = `window.scrollTo(0, document.body.scrollHeight);`

const yelpListingsScript = `(function () {
  return Array.from(document.querySelectorAll('[data-testid="serp-ia-card"]')).map(el => el.outerHTML);
})();`
