package webscraper

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/urlsafe"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/analyzer"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/browser"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/classify"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/failure"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/fetcher"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/policy"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/report"
)

// Exploration modes. ModeAuto climbs the ladder; the others run one tier.
const (
	ModeAuto     = "auto"
	ModeStatic   = "static"
	ModeFeed     = "feed"
	ModeRendered = "rendered"
)

// ParseMode resolves a mode name, accepting the aliases rss and playwright.
func ParseMode(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeStatic, "static_html", "html":
		return ModeStatic, nil
	case ModeFeed, "rss", "atom":
		return ModeFeed, nil
	case ModeRendered, "playwright", "browser":
		return ModeRendered, nil
	}
	return "", fmt.Errorf("webscraper: unknown mode %q (auto, static, feed, rendered)", s)
}

// ExploreRequest is one exploration.
type ExploreRequest struct {
	URL  string
	Mode string
	// Override proceeds past a robots.txt disallow without asking.
	Override bool
	// Confirmer is asked on a disallow when Override is false. Nil denies.
	Confirmer Confirmer
}

// ExploreResult is the written report and its classification.
type ExploreResult struct {
	Report     *Report          `json:"report"`
	ReportPath string           `json:"report_path"`
	Pattern    classify.Pattern `json:"pattern,omitempty"`
}

// state is the escalation controller's position.
type state int

const (
	notStarted state = iota
	staticTried
	feedTried
	renderedTried
	done
)

// exploration holds the evidence gathered by one run.
type exploration struct {
	s      *Service
	mode   string
	target *url.URL
	rep    *report.Report

	static    *fetcher.Document
	staticA   *analyzer.Analysis
	rendered  *fetcher.Document
	renderedA *analyzer.Analysis
	feed      *fetcher.FeedDocument

	feedLinks []string
	errs      []error
	canceled  error
}

// evidenceSufficient is the guard that stops escalation: a feed, or at least
// one tab or card candidate at the repetition threshold.
func evidenceSufficient(a *analyzer.Analysis, fd *fetcher.FeedDocument) bool {
	if fd != nil {
		return true
	}
	return a != nil && a.HasStructure()
}

// Explore gates req.URL through robots.txt, runs the acquisition ladder and
// writes the report exactly once. A report is returned for every outcome
// past URL validation; the error is non-nil for blocked, canceled and
// failed runs.
func (s *Service) Explore(ctx context.Context, req ExploreRequest) (*ExploreResult, error) {
	target, err := urlsafe.Normalize(req.URL)
	if err != nil {
		return nil, fmt.Errorf("webscraper: explore: %w", err)
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}

	x := &exploration{
		s:      s,
		mode:   mode,
		target: target,
		rep:    report.New(target.String(), mode, s.now()),
	}
	if mode == ModeFeed {
		x.feedLinks = []string{target.String()}
	}
	log := s.logger.With("run_id", x.rep.RunID, "url", target.String())
	log.Info("webscraper: explore started", "mode", mode)

	confirm := req.Confirmer
	if confirm == nil {
		confirm = policy.Deny
	}
	verdict, err := s.gate.Authorize(ctx, target.String(), req.Override, confirm)
	if verdict.Advisory != "" {
		x.rep.Advise(verdict.Advisory)
	}
	if err != nil {
		if !failure.Is(err, failure.KindPolicyBlocked) {
			if ctx.Err() != nil {
				err = failure.New(failure.KindCanceled, "", target.String(), ctx.Err())
			}
			return nil, err
		}
		x.rep.Status = report.StatusBlocked
		log.Warn("webscraper: blocked by robots.txt", "robots", verdict.RobotsURL)
		res, werr := x.publish(ctx)
		if werr != nil {
			return nil, errors.Join(err, werr)
		}
		return res, err
	}

	x.climb(ctx)
	x.finish()

	res, err := x.publish(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("webscraper: explore finished",
		"status", x.rep.Status, "method", x.rep.AnalysisMethod,
		"pattern", res.Pattern, "report", res.ReportPath)

	switch {
	case x.canceled != nil:
		return res, failure.New(failure.KindCanceled, "", target.String(), x.canceled)
	case x.rep.Status == report.StatusFailed:
		return res, fmt.Errorf("webscraper: every tier failed: %w", errors.Join(x.errs...))
	}
	return res, nil
}

// climb runs tiers until the controller reaches done. No tier is revisited.
func (x *exploration) climb(ctx context.Context) {
	st := notStarted
	for st != done {
		next := x.next(st)
		if next == done {
			break
		}
		if err := ctx.Err(); err != nil {
			x.canceled = err
			x.rep.Attempt(tierName(next), report.OutcomeCanceled, err)
			return
		}
		switch next {
		case staticTried:
			x.runStatic(ctx)
		case feedTried:
			x.runFeed(ctx)
		case renderedTried:
			x.runRendered(ctx)
		}
		if x.canceled != nil {
			return
		}
		st = next
	}
}

// next is the transition function.
func (x *exploration) next(st state) state {
	switch x.mode {
	case ModeStatic:
		if st == notStarted {
			return staticTried
		}
		return done
	case ModeFeed:
		if st == notStarted {
			return feedTried
		}
		return done
	case ModeRendered:
		if st == notStarted {
			return renderedTried
		}
		return done
	}

	switch st {
	case notStarted:
		return staticTried
	case staticTried:
		if evidenceSufficient(x.staticA, x.feed) {
			return done
		}
		if len(x.feedLinks) > 0 {
			return feedTried
		}
		return renderedTried
	case feedTried:
		if x.feed != nil {
			return done
		}
		return renderedTried
	}
	return done
}

func tierName(st state) string {
	switch st {
	case staticTried:
		return fetcher.TierStatic
	case feedTried:
		return fetcher.TierFeed
	case renderedTried:
		return browser.Tier
	}
	return ""
}

func (x *exploration) fail(tier string, err error) {
	x.errs = append(x.errs, err)
	outcome := report.OutcomeError
	if failure.Is(err, failure.KindCanceled) {
		outcome = report.OutcomeCanceled
		x.canceled = err
	}
	x.rep.Attempt(tier, outcome, err)
	x.s.logger.Warn("webscraper: tier failed", "tier", tier, "url", x.target.String(), "error", err)
}

func (x *exploration) runStatic(ctx context.Context) {
	doc, fd, err := x.s.fetch.FetchStatic(ctx, x.target.String())
	if err != nil {
		x.fail(fetcher.TierStatic, err)
		return
	}
	if fd != nil {
		x.feed = fd
		x.rep.Attempt(fetcher.TierStatic, report.OutcomeSufficient, nil)
		return
	}

	x.static = doc
	x.staticA = analyzer.Analyze(doc.Doc, doc.Base, analyzer.Options{
		RawHTML:      doc.Body,
		ShellReasons: doc.ShellReasons,
	})
	x.feedLinks = x.staticA.FeedLinks
	outcome := report.OutcomeNoStructure
	if evidenceSufficient(x.staticA, nil) {
		outcome = report.OutcomeSufficient
	}
	x.rep.Attempt(fetcher.TierStatic, outcome, nil)
}

func (x *exploration) runFeed(ctx context.Context) {
	var last error
	for _, link := range x.feedLinks {
		if err := ctx.Err(); err != nil {
			last = failure.New(failure.KindCanceled, fetcher.TierFeed, link, err)
			break
		}
		fd, err := x.s.fetch.FetchFeed(ctx, link)
		if err != nil {
			last = err
			x.s.logger.Debug("webscraper: feed candidate rejected", "feed", link, "error", err)
			continue
		}
		x.feed = fd
		x.rep.Attempt(fetcher.TierFeed, report.OutcomeSufficient, nil)
		return
	}
	x.fail(fetcher.TierFeed, last)
}

func (x *exploration) runRendered(ctx context.Context) {
	res, err := x.s.render(ctx, x.s.browserConfig(), x.target.String())
	if err != nil {
		if ctx.Err() != nil {
			err = failure.New(failure.KindCanceled, browser.Tier, x.target.String(), ctx.Err())
		} else if failure.KindOf(err) == "" {
			err = failure.Fetch(browser.Tier, x.target.String(), err)
		}
		x.fail(browser.Tier, err)
		return
	}
	finalURL := res.FinalURL
	if finalURL == "" {
		finalURL = x.target.String()
	}
	doc, err := fetcher.DocumentFromHTML(finalURL, res.HTML)
	if err != nil {
		x.fail(browser.Tier, failure.Parse(browser.Tier, finalURL, err))
		return
	}
	if doc.Title == "" {
		doc.Title = res.Title
	}

	if len(res.Screenshot) > 0 {
		if _, err := x.rep.WriteScreenshot(x.s.cfg.Output.Dir, res.Screenshot); err != nil {
			x.s.logger.Warn("webscraper: screenshot not saved", "error", err)
		}
	}

	if n, detail := blockedSummary(res.BlockedRequests); n > 0 {
		x.rep.Advise(fmt.Sprintf("rendered tier blocked %d requests (%s); content they load is missing from the analysis", n, detail))
	}

	x.rendered = doc
	x.renderedA = analyzer.Analyze(doc.Doc, doc.Base, analyzer.Options{
		RawHTML:        res.HTML,
		SPAGlobals:     res.SPAGlobals,
		InfiniteScroll: res.InfiniteScroll,
	})
	outcome := report.OutcomeNoStructure
	if evidenceSufficient(x.renderedA, nil) {
		outcome = report.OutcomeSufficient
	}
	x.rep.Attempt(browser.Tier, outcome, nil)
}

// blockedSummary totals the blocked requests and lists them by type, sorted.
func blockedSummary(counts map[string]int) (int, string) {
	total := 0
	parts := make([]string, 0, len(counts))
	for _, kind := range slices.Sorted(maps.Keys(counts)) {
		total += counts[kind]
		parts = append(parts, fmt.Sprintf("%s %d", kind, counts[kind]))
	}
	return total, strings.Join(parts, ", ")
}

// finish picks the evidence the report is built from and its status.
// Precedence: feed, rendered DOM, static document.
func (x *exploration) finish() {
	r := x.rep
	if x.static != nil {
		r.FinalURL = x.static.FinalURL
		r.PageTitle = x.static.Title
	}

	switch {
	case x.feed != nil:
		if x.staticA != nil {
			r.ApplyAnalysis(x.staticA)
		}
		r.ApplyFeed(x.feed)
		r.AnalysisMethod = report.MethodFeed
		r.Status = report.StatusSuccess
		if r.FinalURL == "" {
			r.FinalURL = x.feed.FinalURL
		}
		// feed programs read items, not page selectors
		r.RecommendedSelectors = []report.Recommendation{}

	case x.renderedA != nil:
		r.FinalURL = x.rendered.FinalURL
		r.ApplyAnalysis(x.renderedA)
		r.AnalysisMethod = report.MethodRendered
		r.Status = statusOf(x.renderedA)

	case x.staticA != nil:
		r.ApplyAnalysis(x.staticA)
		r.AnalysisMethod = report.MethodStatic
		r.Status = statusOf(x.staticA)

	default:
		r.Status = report.StatusFailed
		return
	}

	if r.Status == report.StatusPartial {
		r.Advise("no repeating structure found: the generated program extracts page text")
	}
	if x.canceled != nil {
		r.Status = report.StatusPartial
		r.Advise("exploration canceled before every tier ran")
	}
}

func statusOf(a *analyzer.Analysis) report.Status {
	if evidenceSufficient(a, nil) {
		return report.StatusSuccess
	}
	return report.StatusPartial
}

// publish writes the report and records it in the catalog.
func (x *exploration) publish(ctx context.Context) (*ExploreResult, error) {
	path, err := x.rep.Write(x.s.cfg.Output.Dir)
	if err != nil {
		return nil, fmt.Errorf("webscraper: %w", err)
	}
	res := &ExploreResult{Report: x.rep, ReportPath: path}
	if x.rep.AnalysisMethod != "" {
		res.Pattern = classify.Of(x.rep)
	}
	if x.s.catalog != nil {
		// a canceled ctx must not lose the history row of a written report
		if err := x.s.catalog.RecordRun(context.WithoutCancel(ctx), x.rep, path, string(res.Pattern)); err != nil {
			x.s.logger.Warn("webscraper: catalog record failed", "error", err)
		}
	}
	return res, nil
}
