// CLAUDE:SUMMARY Runtime imported by generated scraper programs: CLI entry, robots re-check, static/feed/rendered acquisition, paced detail visits and result writers.
// Package scrapekit is the runtime behind every generated scraper program.
//
// A generated program is a main package holding its selectors as constants
// and one collect function. scrapekit supplies everything else: flag parsing,
// the robots.txt gate (re-checked on every run), page acquisition through the
// same fetcher and browser tiers used during exploration, polite pacing of
// detail visits and the json/csv/md writers.
package scrapekit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/urlsafe"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/config"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/fetcher"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/policy"
)

// Truncation limits applied by generated programs.
const (
	CardTextLimit      = 200
	DetailTitleLimit   = 100
	DetailContentLimit = 500
	BasicTextLimit     = 1000
	FeedSummaryLimit   = 500
)

// Config is baked into a generated program and overridable by flags.
type Config struct {
	Name       string // program name, used as the command name
	URL        string
	Format     string // json | csv | md | all
	DataDir    string
	MaxItems   int
	Sleep      time.Duration // pause between detail visits
	Timeout    time.Duration // per request
	UserAgent  string
	SkipRobots bool
	Headful    bool   // show the browser window for rendered programs
	Remote     string // DevTools URL of an external Chrome

	Logger *slog.Logger
	In     io.Reader // robots confirmation input. Default: os.Stdin.
	Out    io.Writer // prompts and the final summary. Default: os.Stdout.
}

func (c *Config) defaults() {
	if c.Name == "" {
		c.Name = "scrape"
	}
	if c.Format == "" {
		c.Format = FormatMarkdown
	}
	if c.DataDir == "" {
		c.DataDir = config.DefaultDataDir
	}
	if c.MaxItems <= 0 {
		c.MaxItems = 50
	}
	if c.Sleep <= 0 {
		c.Sleep = 500 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = config.DefaultUserAgent
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.In == nil {
		c.In = os.Stdin
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
}

// CollectFunc extracts items from the target. Returning items together with
// an error saves what was collected and reports the error.
type CollectFunc func(ctx context.Context, run *Run) ([]Item, error)

// Main runs a generated program: parse flags, collect, save, print the
// written paths. It exits the process with status 1 on failure.
func Main(cfg Config, collect CollectFunc) {
	if err := Command(cfg, collect).Execute(); err != nil {
		os.Exit(1)
	}
}

// Command builds the cobra command behind Main.
func Command(cfg Config, collect CollectFunc) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:          cfg.Name,
		Short:        "Collect " + cfg.URL,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("scrapekit: log level %q: %w", logLevel, err)
			}
			cfg.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			cfg.Out = cmd.OutOrStdout()
			cfg.In = cmd.InOrStdin()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err := Execute(ctx, cfg, collect)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.URL, "url", cfg.URL, "target URL")
	f.StringVarP(&cfg.Format, "format", "f", cfg.Format, "output format: json, csv, md or all")
	f.StringVarP(&cfg.DataDir, "data-dir", "o", cfg.DataDir, "directory for collected data")
	f.IntVarP(&cfg.MaxItems, "max-items", "n", cfg.MaxItems, "maximum number of items")
	f.DurationVar(&cfg.Sleep, "sleep", cfg.Sleep, "pause between detail pages")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	f.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header")
	f.BoolVar(&cfg.SkipRobots, "skip-robots-prompt", cfg.SkipRobots, "proceed on robots.txt disallow without asking")
	f.BoolVar(&cfg.Headful, "show-browser", cfg.Headful, "show the browser window (rendered programs)")
	f.StringVar(&cfg.Remote, "browser-remote", cfg.Remote, "DevTools WebSocket URL of an external Chrome")
	f.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

// Execute checks the robots policy, collects and saves. It returns the
// written file paths.
func Execute(ctx context.Context, cfg Config, collect CollectFunc) ([]string, error) {
	cfg.defaults()
	log := cfg.Logger

	if !validFormat(cfg.Format) {
		return nil, fmt.Errorf("scrapekit: unknown format %q", cfg.Format)
	}
	target, err := urlsafe.Normalize(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("scrapekit: url: %w", err)
	}
	cfg.URL = target.String()

	gate := policy.New(policy.Config{Timeout: cfg.Timeout, FetchAgent: cfg.UserAgent, Logger: log})
	verdict, err := gate.Authorize(ctx, cfg.URL, cfg.SkipRobots, policy.Prompt{In: cfg.In, Out: cfg.Out})
	if err != nil {
		log.Error("scrapekit: blocked by robots policy", "url", cfg.URL, "error", err)
		return nil, err
	}
	if verdict.Advisory != "" {
		log.Info("scrapekit: robots", "decision", verdict.Decision, "advisory", verdict.Advisory)
	}

	run := newRun(cfg)
	log.Info("scrapekit: collecting", "url", cfg.URL, "format", cfg.Format, "max_items", cfg.MaxItems)
	items, cerr := collect(ctx, run)
	if cerr != nil && len(items) == 0 {
		log.Error("scrapekit: collect failed", "url", cfg.URL, "error", cerr)
		return nil, cerr
	}
	if cerr != nil {
		log.Warn("scrapekit: collect stopped early, saving partial results", "items", len(items), "error", cerr)
	}
	if len(items) > cfg.MaxItems {
		items = items[:cfg.MaxItems]
	}

	paths, err := Save(items, cfg.DataDir, urlsafe.DomainSlug(target), cfg.Format, time.Now())
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(cfg.Out, "collected %d items\n", len(items))
	for _, p := range paths {
		fmt.Fprintf(cfg.Out, "  -> %s\n", p)
	}
	return paths, cerr
}

// Run is the handle a collect function works through.
type Run struct {
	cfg     Config
	fetch   *fetcher.Fetcher
	limiter *rate.Limiter
	log     *slog.Logger
}

func newRun(cfg Config) *Run {
	return &Run{
		cfg: cfg,
		fetch: fetcher.New(fetcher.Config{
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
		}, fetcher.WithLogger(cfg.Logger)),
		limiter: rate.NewLimiter(rate.Every(cfg.Sleep), 1),
		log:     cfg.Logger,
	}
}

// URL returns the target URL.
func (r *Run) URL() string { return r.cfg.URL }

// MaxItems returns the item cap.
func (r *Run) MaxItems() int { return r.cfg.MaxItems }

// Logger returns the run's logger.
func (r *Run) Logger() *slog.Logger { return r.log }

// Document fetches pageURL over HTTP and parses it. doc.Url is the
// post-redirect base for resolving links.
func (r *Run) Document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	d, err := r.fetch.FetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return d.Doc, nil
}

// FeedItems fetches the target as RSS or Atom and returns up to MaxItems
// records {index, title, url, date, summary}.
func (r *Run) FeedItems(ctx context.Context) ([]Item, error) {
	fd, err := r.fetch.FetchFeedN(ctx, r.cfg.URL, r.cfg.MaxItems)
	if err != nil {
		return nil, err
	}
	r.log.Info("scrapekit: feed parsed", "type", fd.Type, "title", fd.Title, "entries", fd.ItemCount)
	items := make([]Item, 0, len(fd.Items))
	for i, it := range fd.Items {
		items = append(items, Item{}.
			Set("index", i+1).
			Set("title", it.Title).
			Set("url", it.Link).
			Set("date", it.Date).
			Set("summary", Truncate(PlainText(it.Summary), FeedSummaryLimit)))
	}
	return items, nil
}

// Text returns the collapsed text of s cut to n runes.
func Text(s *goquery.Selection, n int) string {
	return Truncate(collapse(s.Text()), n)
}

// Href returns the absolute URL of s when it is a link, else of its first
// descendant link. Empty when there is none.
func Href(base *url.URL, s *goquery.Selection) string {
	link := s
	if goquery.NodeName(s) != "a" || !s.Is("[href]") {
		link = s.Find("a[href]").First()
	}
	abs, ok := urlsafe.Resolve(base, link.AttrOr("href", ""))
	if !ok {
		return ""
	}
	return abs
}

// Image returns the absolute src of the first image inside s.
func Image(base *url.URL, s *goquery.Selection) string {
	img := s.Find("img[src]").First()
	abs, ok := urlsafe.Resolve(base, img.AttrOr("src", ""))
	if !ok {
		return ""
	}
	return abs
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
