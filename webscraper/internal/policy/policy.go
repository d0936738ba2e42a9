// CLAUDE:SUMMARY robots.txt gate: per-origin fetch and parse, cached for the session, with allowed/disallowed/indeterminate verdicts and an operator override.
// Package policy evaluates a site's robots.txt before any content is fetched.
//
// A missing, unreachable or unparseable robots.txt is indeterminate and lets
// the run proceed with an advisory. Only an explicit Disallow for the
// configured agent group stops a run, and an operator can still override it.
package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/urlsafe"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/failure"
)

// Decision is the outcome of a policy check.
type Decision string

const (
	Allowed       Decision = "allowed"
	Disallowed    Decision = "disallowed"
	Indeterminate Decision = "indeterminate"
)

// ErrDisallowed is the cause carried by a PolicyBlocked failure.
var ErrDisallowed = errors.New("policy: path disallowed by robots.txt")

// Verdict is the gate's answer for one URL.
type Verdict struct {
	Decision  Decision
	Allowed   bool
	Advisory  string
	RobotsURL string
}

// Config configures the gate.
type Config struct {
	UserAgent string        // robots.txt group. Default: "*".
	Timeout   time.Duration // robots.txt fetch timeout. Default: 10s.
	// FetchAgent is the User-Agent header sent when fetching robots.txt.
	FetchAgent string
	Logger     *slog.Logger
}

func (c *Config) defaults() {
	if c.UserAgent == "" {
		c.UserAgent = "*"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.FetchAgent == "" {
		c.FetchAgent = "Mozilla/5.0 (compatible; webscraper/1.0)"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// entry is what the cache holds per origin. A nil robots means indeterminate.
type entry struct {
	robots   *robotstxt.RobotsData
	advisory string
}

// Gate checks URLs against robots.txt. Safe for concurrent use.
type Gate struct {
	cfg    Config
	client *http.Client
	cache  *cache.Cache

	// fetchMu serialises cache misses so an origin is fetched once.
	fetchMu sync.Mutex
}

// Option configures a Gate.
type Option func(*Gate)

// WithClient sets the HTTP client used for robots.txt.
func WithClient(c *http.Client) Option {
	return func(g *Gate) { g.client = c }
}

// New creates a Gate with an empty per-origin cache.
func New(cfg Config, opts ...Option) *Gate {
	cfg.defaults()
	g := &Gate{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  cache.New(cache.NoExpiration, 0),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Check evaluates target. The error is non-nil only for an invalid URL or a
// canceled context; every robots.txt problem becomes Indeterminate.
func (g *Gate) Check(ctx context.Context, target string) (Verdict, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return Verdict{}, fmt.Errorf("policy: invalid url %q", target)
	}
	origin := urlsafe.Origin(u)
	robotsURL := origin + "/robots.txt"

	e, err := g.load(ctx, origin, robotsURL)
	if err != nil {
		return Verdict{}, err
	}
	if e.robots == nil {
		return Verdict{Decision: Indeterminate, Allowed: true, Advisory: e.advisory, RobotsURL: robotsURL}, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if e.robots.TestAgent(path, g.cfg.UserAgent) {
		return Verdict{Decision: Allowed, Allowed: true, RobotsURL: robotsURL}, nil
	}
	g.cfg.Logger.Warn("policy: disallowed", "url", target, "agent", g.cfg.UserAgent)
	return Verdict{
		Decision:  Disallowed,
		Advisory:  fmt.Sprintf("robots.txt disallows %s for user-agent %q", path, g.cfg.UserAgent),
		RobotsURL: robotsURL,
	}, nil
}

func (g *Gate) load(ctx context.Context, origin, robotsURL string) (*entry, error) {
	if v, ok := g.cache.Get(origin); ok {
		return v.(*entry), nil
	}

	g.fetchMu.Lock()
	defer g.fetchMu.Unlock()
	if v, ok := g.cache.Get(origin); ok {
		return v.(*entry), nil
	}

	e, err := g.fetch(ctx, robotsURL)
	if err != nil {
		return nil, err
	}
	g.cache.Set(origin, e, cache.NoExpiration)
	return e, nil
}

func (g *Gate) fetch(ctx context.Context, robotsURL string) (*entry, error) {
	log := g.cfg.Logger
	reqCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return &entry{advisory: "robots.txt request could not be built: " + err.Error()}, nil
	}
	req.Header.Set("User-Agent", g.cfg.FetchAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, failure.New(failure.KindCanceled, "", robotsURL, ctx.Err())
		}
		log.Info("policy: robots.txt unreachable", "url", robotsURL, "error", err)
		return &entry{advisory: "robots.txt unreachable; proceeding without policy"}, nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		log.Debug("policy: no robots.txt", "url", robotsURL, "status", resp.StatusCode)
		return &entry{advisory: fmt.Sprintf("no robots.txt (http %d); proceeding without policy", resp.StatusCode)}, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		log.Info("policy: robots.txt error status", "url", robotsURL, "status", resp.StatusCode)
		return &entry{advisory: fmt.Sprintf("robots.txt returned http %d; proceeding without policy", resp.StatusCode)}, nil
	}

	body, err := urlsafe.LimitedReadAll(resp.Body, 512<<10)
	if err != nil {
		return &entry{advisory: "robots.txt read failed: " + err.Error()}, nil
	}
	robots, err := robotstxt.FromBytes(body)
	if err != nil {
		log.Info("policy: robots.txt unparseable", "url", robotsURL, "error", err)
		return &entry{advisory: "robots.txt unparseable; proceeding without policy"}, nil
	}
	log.Debug("policy: robots.txt loaded", "url", robotsURL, "size", len(body))
	return &entry{robots: robots}, nil
}
