// CLAUDE:SUMMARY HTTP acquisition for the static and feed tiers: browser-like GET, one transient retry, capped body, typed failures.
// Package fetcher implements the HTTP-only acquisition paths (no browser, no JS).
// A static GET produces a goquery document; the same response can be sniffed
// and parsed as an RSS/Atom feed instead.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/urlsafe"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/failure"
)

// Tier names as recorded in reports.
const (
	TierStatic = "static_html"
	TierFeed   = "feed"
)

const (
	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptFeed = "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,*/*;q=0.5"
)

// Config configures the fetcher.
type Config struct {
	Timeout      time.Duration // per-request timeout. Default: 30s.
	MaxBytes     int64         // response body cap. Default: 10MB.
	UserAgent    string
	RetryBackoff time.Duration // pause before the single transient retry. Default: 500ms.
	// URLValidator vets every target and redirect hop. Nil allows all.
	URLValidator func(*url.URL) error
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = urlsafe.MaxBody
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; webscraper/1.0)"
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
}

// Response is a raw HTTP result before tier-specific parsing.
type Response struct {
	URL         string // requested URL
	FinalURL    string // after redirects
	StatusCode  int
	ContentType string
	Body        []byte
	Attempts    int
}

// Fetcher performs HTTP GETs for the static and feed tiers.
type Fetcher struct {
	client *http.Client
	cfg    Config
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client. Its redirect policy is left untouched.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher. Redirects are capped at 5 hops and each hop goes
// through the URL validator.
func New(cfg Config, opts ...Option) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	f := &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if validate != nil {
					if err := validate(req.URL); err != nil {
						return fmt.Errorf("redirect blocked: %w", err)
					}
				}
				return nil
			},
		},
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// UserAgent returns the configured User-Agent.
func (f *Fetcher) UserAgent() string { return f.cfg.UserAgent }

// Get performs a GET with one retry on transient network failure. Non-2xx
// statuses are returned as FetchFailed together with the response.
func (f *Fetcher) Get(ctx context.Context, tier, target, accept string) (*Response, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, failure.Fetch(tier, target, err)
	}
	if f.cfg.URLValidator != nil {
		if err := f.cfg.URLValidator(u); err != nil {
			return nil, failure.Fetch(tier, target, err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		resp, err := f.do(ctx, target, accept)
		if err == nil {
			resp.Attempts = attempt
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return resp, failure.Fetchf(tier, target, "http %d", resp.StatusCode)
			}
			f.logger.Debug("fetcher: fetched",
				"url", target, "status", resp.StatusCode,
				"content_type", resp.ContentType, "size", len(resp.Body), "attempts", attempt)
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == 2 || !IsTransient(err) {
			break
		}
		f.logger.Warn("fetcher: transient failure, retrying once",
			"url", target, "error", err, "backoff", f.cfg.RetryBackoff)
		select {
		case <-ctx.Done():
			return nil, failure.New(failure.KindCanceled, tier, target, ctx.Err())
		case <-time.After(f.cfg.RetryBackoff):
		}
	}
	if ctx.Err() != nil {
		return nil, failure.New(failure.KindCanceled, tier, target, ctx.Err())
	}
	return nil, failure.Fetch(tier, target, lastErr)
}

func (f *Fetcher) do(ctx context.Context, target, accept string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: do: %w", err)
	}
	defer resp.Body.Close()

	body, err := urlsafe.LimitedReadAll(resp.Body, f.cfg.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetcher: read body: %w", err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" && len(body) > 0 {
		ct = http.DetectContentType(body)
	}
	return &Response{
		URL:         target,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: ct,
		Body:        body,
	}, nil
}

// FetchHTML is Get followed by ParseHTML.
func (f *Fetcher) FetchHTML(ctx context.Context, target string) (*Document, error) {
	resp, err := f.Get(ctx, TierStatic, target, acceptHTML)
	if err != nil {
		return nil, err
	}
	return ParseHTML(resp)
}

// FetchStatic is the static tier. A non-HTML response that sniffs as a feed
// is parsed as one and returned in place of the document.
func (f *Fetcher) FetchStatic(ctx context.Context, target string) (*Document, *FeedDocument, error) {
	resp, err := f.Get(ctx, TierStatic, target, acceptHTML)
	if err != nil {
		return nil, nil, err
	}
	if !isHTMLType(resp.ContentType) && LooksLikeFeed(resp) {
		fd, err := ParseFeed(resp)
		if err != nil {
			return nil, nil, err
		}
		return nil, fd, nil
	}
	doc, err := ParseHTML(resp)
	if err != nil {
		return nil, nil, err
	}
	return doc, nil, nil
}

// FetchFeed is Get followed by ParseFeed.
func (f *Fetcher) FetchFeed(ctx context.Context, target string) (*FeedDocument, error) {
	return f.FetchFeedN(ctx, target, MaxFeedPreview)
}

// FetchFeedN is Get followed by ParseFeedN.
func (f *Fetcher) FetchFeedN(ctx context.Context, target string, limit int) (*FeedDocument, error) {
	resp, err := f.Get(ctx, TierFeed, target, acceptFeed)
	if err != nil {
		return nil, err
	}
	return ParseFeedN(resp, limit)
}

// isHTMLType reports whether a Content-Type header denotes HTML.
func isHTMLType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
