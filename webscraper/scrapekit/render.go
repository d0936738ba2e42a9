package scrapekit

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/browser"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/fetcher"
)

// tabSettle is the pause after a tab click before reading the DOM.
const tabSettle = 1500 * time.Millisecond

// Page is a browser tab opened on the target by Render.
type Page struct {
	run *Run
	s   *browser.Session
	url string
}

// Render launches a browser and loads pageURL. The caller must Close the page.
func (r *Run) Render(ctx context.Context, pageURL string) (*Page, error) {
	s, err := browser.Open(ctx, browser.Config{
		RemoteURL:  r.cfg.Remote,
		Headless:   !r.cfg.Headful,
		NavTimeout: r.cfg.Timeout,
		UserAgent:  r.cfg.UserAgent,
		Logger:     r.log,
	})
	if err != nil {
		return nil, err
	}
	p := &Page{run: r, s: s, url: pageURL}
	if err := s.Navigate(ctx, pageURL); err != nil {
		s.Close()
		return nil, err
	}
	return p, nil
}

// Document snapshots the current DOM.
func (p *Page) Document(ctx context.Context) (*goquery.Document, error) {
	res, err := p.s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if res.FinalURL != "" {
		p.url = res.FinalURL
	}
	d, err := fetcher.DocumentFromHTML(p.url, res.HTML)
	if err != nil {
		return nil, err
	}
	return d.Doc, nil
}

// ClickTab clicks the n-th element matching selector and waits for the
// content to swap in.
func (p *Page) ClickTab(ctx context.Context, selector string, n int) error {
	if err := p.s.ClickNth(ctx, selector, n); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(tabSettle):
	}
	return nil
}

// Visit navigates this page to pageURL and snapshots it.
func (p *Page) Visit(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := p.s.Navigate(ctx, pageURL); err != nil {
		return nil, err
	}
	p.url = pageURL
	return p.Document(ctx)
}

// FollowDetails is Run.FollowDetails through the browser. The page ends on
// the last visited URL.
func (p *Page) FollowDetails(ctx context.Context, urls []string, fn func(i int, d Detail)) error {
	return p.run.follow(ctx, urls, p.Visit, fn)
}

// Close shuts the browser down.
func (p *Page) Close() error { return p.s.Close() }
