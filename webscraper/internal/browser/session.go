// CLAUDE:SUMMARY Scoped headless Chrome session for the rendered tier: launch or connect, stealth page, bounded navigation and settle wait, DOM snapshot.
// Package browser implements the rendered acquisition tier with Rod.
//
// A Session owns one Chrome process (or one remote connection) and one
// stealth page. It is opened inside the rendered tier and closed on every
// exit path; nothing survives between runs.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tier is the rendered tier's name as recorded in reports.
const Tier = "rendered"

// Viewport used for navigation and screenshots.
const (
	ViewportWidth  = 1920
	ViewportHeight = 1080
)

// Config configures a browser session.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty launches a local Chrome via launcher.
	RemoteURL string

	Headless bool

	// NavTimeout bounds navigation plus the load event, and separately each
	// snapshot and click. Default: 30s.
	NavTimeout time.Duration

	// Settle bounds the network-idle wait after load. Default: 3s.
	Settle time.Duration

	// Screenshot captures a viewport PNG in Snapshot.
	Screenshot bool

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	UserAgent string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Settle <= 0 {
		c.Settle = 3 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session is one browser plus one page.
type Session struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page
	router  *rod.HijackRouter
	blocker *blocker
}

// Open launches Chrome (or connects to RemoteURL) and creates a stealth page.
// The caller must Close the session.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	cfg.defaults()
	log := cfg.Logger
	s := &Session{cfg: cfg}

	var wsURL string
	if cfg.RemoteURL != "" {
		wsURL = cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(cfg.Headless)
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
		log.Debug("browser: launched local chrome", "url", wsURL, "headless", cfg.Headless)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b

	page, err := stealth.Page(b)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	s.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: ViewportWidth, Height: ViewportHeight, DeviceScaleFactor: 1,
	}); err != nil {
		log.Warn("browser: set viewport failed", "error", err)
	}
	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}); err != nil {
			log.Warn("browser: set user agent failed", "error", err)
		}
	}
	if len(cfg.ResourceBlocking) > 0 {
		s.blocker = newBlocker(cfg.ResourceBlocking)
		s.router = s.blocker.attach(page)
	}
	return s, nil
}

// Navigate loads pageURL, then waits for network idle bounded by Settle.
// A settle timeout is not an error; a navigation timeout is.
func (s *Session) Navigate(ctx context.Context, pageURL string) error {
	navCtx, cancel := s.bound(ctx)
	defer cancel()

	page := s.page.Context(navCtx)
	if err := page.Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", pageURL, err)
	}
	s.settle(ctx)
	return nil
}

// bound limits one page operation to NavTimeout. A page stuck in a script
// loop or an element that never becomes clickable fails instead of hanging.
func (s *Session) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.NavTimeout)
}

// settle waits until no request has been in flight for 500ms, or Settle
// elapses, whichever comes first.
func (s *Session) settle(ctx context.Context) {
	wait := s.page.Context(ctx).Timeout(s.cfg.Settle).WaitRequestIdle(
		500*time.Millisecond, nil, nil,
		[]proto.NetworkResourceType{proto.NetworkResourceTypeImage, proto.NetworkResourceTypeMedia},
	)
	wait()
}

// Result is the realized DOM of a rendered page.
type Result struct {
	HTML           []byte
	FinalURL       string
	Title          string
	InfiniteScroll bool
	SPAGlobals     []string
	Screenshot     []byte // PNG, nil unless enabled

	// BlockedRequests maps a resource type to the requests failed by
	// ResourceBlocking up to the snapshot.
	BlockedRequests map[string]int
}

// Snapshot serialises the current DOM and runs the runtime probes, all
// within one NavTimeout.
func (s *Session) Snapshot(ctx context.Context) (*Result, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	page := s.page.Context(ctx)

	res, err := page.Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("browser: get DOM: %w", err)
	}
	out := &Result{HTML: []byte(res.Value.Str())}

	if info, err := page.Info(); err == nil {
		out.FinalURL = info.URL
		out.Title = info.Title
	}

	probe, err := page.Eval(probeJS)
	if err != nil {
		s.cfg.Logger.Warn("browser: runtime probe failed", "error", err)
	} else {
		var p probeResult
		raw, _ := probe.Value.MarshalJSON()
		if err := json.Unmarshal(raw, &p); err == nil {
			out.InfiniteScroll = p.infiniteScroll()
			out.SPAGlobals = p.Globals
		}
	}

	if s.cfg.Screenshot {
		png, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if err != nil {
			s.cfg.Logger.Warn("browser: screenshot failed", "error", err)
		} else {
			out.Screenshot = png
		}
	}
	if s.blocker != nil {
		out.BlockedRequests = s.blocker.counts()
	}
	return out, nil
}

// ClickNth clicks the n-th (zero-based) element matching selector and waits
// for the page to settle. Finding and clicking share one NavTimeout; rod
// waits for the element to become interactable within it.
func (s *Session) ClickNth(ctx context.Context, selector string, n int) error {
	clickCtx, cancel := s.bound(ctx)
	defer cancel()
	page := s.page.Context(clickCtx)
	els, err := page.Elements(selector)
	if err != nil {
		return fmt.Errorf("browser: find %q: %w", selector, err)
	}
	if n < 0 || n >= len(els) {
		return fmt.Errorf("browser: %q has %d matches, want index %d", selector, len(els), n)
	}
	if err := els[n].Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click %q[%d]: %w", selector, n, err)
	}
	s.settle(ctx)
	return nil
}

// Close releases the page, the browser and any launched process.
func (s *Session) Close() error {
	if s.router != nil {
		_ = s.router.Stop()
		s.router = nil
	}
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		_ = s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return nil
}

// Render is the rendered tier: open a session, navigate, snapshot, close.
func Render(ctx context.Context, cfg Config, pageURL string) (*Result, error) {
	s, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if err := s.Navigate(ctx, pageURL); err != nil {
		return nil, err
	}
	res, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if res.FinalURL == "" {
		res.FinalURL = pageURL
	}
	s.cfg.Logger.Debug("browser: rendered",
		"url", pageURL, "final_url", res.FinalURL, "size", len(res.HTML),
		"infinite_scroll", res.InfiniteScroll, "globals", res.SPAGlobals,
		"blocked", res.BlockedRequests)
	return res, nil
}
