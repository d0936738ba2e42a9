// CLAUDE:SUMMARY Service facade: wires config, policy gate, fetcher, browser, catalog; exposes Explore, Generate, History and the failure helpers.
// Package webscraper explores a URL's structure and turns the resulting
// report into a standalone scraper program.
//
// Explore runs the policy gate, then climbs the acquisition ladder (static
// HTML, feed, rendered DOM) until one tier yields enough structural
// evidence, and writes a StructureReport. Generate reads a report, classifies
// its extraction pattern and renders a Go program built on scrapekit.
package webscraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/urlsafe"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/browser"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/catalog"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/config"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/failure"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/fetcher"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/policy"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/report"
)

// Config is the service configuration.
type Config = config.Config

// Report is the StructureReport written by Explore.
type Report = report.Report

// Confirmer decides whether to proceed past a robots.txt disallow.
type Confirmer = policy.Confirmer

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc = policy.ConfirmFunc

// Verdict is the robots.txt decision shown to a Confirmer.
type Verdict = policy.Verdict

// Prompt is a terminal Confirmer asking y/N twice.
type Prompt = policy.Prompt

// LoadConfigFile reads a YAML config with the environment overlay and defaults.
func LoadConfigFile(path string) (*Config, error) { return config.LoadFile(path) }

// DefaultConfig returns the environment overlay plus defaults.
func DefaultConfig() *Config { return config.Default() }

// IsPolicyBlocked reports whether err is a robots.txt veto.
func IsPolicyBlocked(err error) bool { return failure.Is(err, failure.KindPolicyBlocked) }

// IsFetchFailed reports whether err is a network or HTTP status failure.
func IsFetchFailed(err error) bool { return failure.Is(err, failure.KindFetchFailed) }

// IsParseFailed reports whether err is an unparseable response.
func IsParseFailed(err error) bool { return failure.Is(err, failure.KindParseFailed) }

// IsTemplateMissing reports whether no program template exists for a report.
func IsTemplateMissing(err error) bool {
	return failure.Is(err, failure.KindSynthesisTemplateMissing)
}

// IsCanceled reports whether a run stopped on context cancellation.
func IsCanceled(err error) bool { return failure.Is(err, failure.KindCanceled) }

// renderFunc is the rendered tier. Tests replace it to avoid launching Chrome.
type renderFunc func(ctx context.Context, cfg browser.Config, pageURL string) (*browser.Result, error)

// Service runs explorations and program generation. Safe for concurrent
// use; runs share only the policy cache and the catalog.
type Service struct {
	cfg     *Config
	logger  *slog.Logger
	gate    *policy.Gate
	fetch   *fetcher.Fetcher
	catalog *catalog.Catalog
	render  renderFunc
	now     func() time.Time
	client  *http.Client
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the client used by the static and feed tiers and the
// policy gate.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// WithClock sets the time source for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCatalog sets an already opened catalog. The service closes it.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// New creates a Service. A nil cfg uses DefaultConfig. The catalog is opened
// at cfg.Catalog.Path, relative to the output directory, unless disabled.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.ApplyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:    cfg,
		logger: logger,
		render: browser.Render,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	fcfg := fetcher.Config{
		Timeout:      cfg.Fetch.Timeout,
		MaxBytes:     cfg.Fetch.MaxBytes,
		UserAgent:    cfg.Fetch.UserAgent,
		RetryBackoff: cfg.Fetch.RetryBackoff,
	}
	if cfg.Fetch.BlockPrivate {
		fcfg.URLValidator = urlsafe.RejectPrivate
	}
	fopts := []fetcher.Option{fetcher.WithLogger(logger)}
	var gopts []policy.Option
	if s.client != nil {
		fopts = append(fopts, fetcher.WithClient(s.client))
		gopts = append(gopts, policy.WithClient(s.client))
	}
	s.fetch = fetcher.New(fcfg, fopts...)
	s.gate = policy.New(policy.Config{
		UserAgent:  cfg.Policy.UserAgent,
		Timeout:    cfg.Policy.Timeout,
		FetchAgent: s.fetch.UserAgent(),
		Logger:     logger,
	}, gopts...)

	if s.catalog == nil && cfg.Catalog.Path != "" && !cfg.Catalog.Disabled {
		path := cfg.Catalog.Path
		if path != ":memory:" && !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Output.Dir, path)
		}
		c, err := catalog.Open(path, catalog.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("webscraper: %w", err)
		}
		s.catalog = c
	}
	return s, nil
}

// Close releases the catalog.
func (s *Service) Close() error {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.Close()
}

// Config returns the effective configuration.
func (s *Service) Config() *Config { return s.cfg }

// browserConfig sends the same User-Agent as the static and feed tiers, so
// all three tiers see the site the same way.
func (s *Service) browserConfig() browser.Config {
	return browser.Config{
		RemoteURL:        s.cfg.Browser.Remote,
		Headless:         s.cfg.IsHeadless(),
		NavTimeout:       s.cfg.Browser.NavTimeout,
		Settle:           s.cfg.Browser.Settle,
		Screenshot:       s.cfg.WantScreenshot(),
		ResourceBlocking: s.cfg.Browser.ResourceBlocking,
		UserAgent:        s.fetch.UserAgent(),
		Logger:           s.logger,
	}
}
