package webscraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/analyzer"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/browser"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/classify"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/fetcher"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/report"
)

func page(head, body string) string {
	return "<!DOCTYPE html><html><head><title>Board</title>" + head + "</head><body>" + body + "</body></html>"
}

func repeat(n int, format string) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, format, i, i)
	}
	return b.String()
}

var (
	cardsPage = page("", repeat(12, `<div class="card"><h3>Title %d</h3> <p>Description %d</p></div>`))
	postsPage = page("", repeat(3, `<div class="card"><a href="/post/%d">Post title number %d</a></div>`))
	emptyPage = page("", `<main><p>Nothing repeats here.</p></main>`)
	feedLink  = page(`<link rel="alternate" type="application/rss+xml" href="/rss">`, `<p>Subscribe to the feed.</p>`)
)

func rss(n int) string {
	return `<?xml version="1.0"?><rss version="2.0"><channel><title>News</title>` +
		repeat(n, `<item><title>Item %d</title><link>https://news.example.com/%d</link></item>`) +
		`</channel></rss>`
}

type site struct {
	*httptest.Server
	hits sync.Map
}

func (s *site) count(path string) int {
	v, ok := s.hits.Load(path)
	if !ok {
		return 0
	}
	return int(v.(*atomic.Int32).Load())
}

func newSite(t *testing.T) *site {
	t.Helper()
	s := &site{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, _ := s.hits.LoadOrStore(r.URL.Path, new(atomic.Int32))
		v.(*atomic.Int32).Add(1)

		html := func(body string) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, body)
		}
		switch r.URL.Path {
		case "/robots.txt":
			io.WriteString(w, "User-agent: *\nDisallow: /private\n")
		case "/cards":
			html(cardsPage)
		case "/posts":
			html(postsPage)
		case "/empty", "/private":
			html(emptyPage)
		case "/withfeed":
			html(feedLink)
		case "/rss":
			w.Header().Set("Content-Type", "application/rss+xml")
			io.WriteString(w, rss(20))
		case "/broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

// fakeRenderer stands in for Chrome.
type fakeRenderer struct {
	calls   atomic.Int32
	html    string
	err     error
	hook    func()
	blocked map[string]int
	cfg     browser.Config
}

func (f *fakeRenderer) render(ctx context.Context, cfg browser.Config, pageURL string) (*browser.Result, error) {
	f.calls.Add(1)
	f.cfg = cfg
	if f.hook != nil {
		f.hook()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &browser.Result{
		HTML: []byte(f.html), FinalURL: pageURL, Screenshot: []byte("\x89PNG fake"),
		BlockedRequests: f.blocked,
	}, nil
}

func newService(t *testing.T, fr *fakeRenderer) *Service {
	t.Helper()
	cfg := &Config{}
	cfg.Output.Dir = t.TempDir()
	cfg.Fetch.RetryBackoff = time.Millisecond

	svc, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	svc.render = fr.render
	return svc
}

func tiers(r *Report) []string {
	var out []string
	for _, a := range r.Tiers {
		out = append(out, a.Tier+":"+a.Outcome)
	}
	return out
}

func TestEvidenceSufficient(t *testing.T) {
	assert.False(t, evidenceSufficient(nil, nil))
	assert.True(t, evidenceSufficient(nil, &fetcher.FeedDocument{}))

	two := &analyzer.Analysis{Cards: []analyzer.Candidate{{Selector: ".card", MatchCount: 2}}}
	assert.False(t, evidenceSufficient(two, nil))

	three := &analyzer.Analysis{Cards: []analyzer.Candidate{{Selector: ".card", MatchCount: 3}}}
	assert.True(t, evidenceSufficient(three, nil))

	tabs := &analyzer.Analysis{Tabs: []analyzer.Candidate{{Selector: "[role='tab']", MatchCount: 4}}}
	assert.True(t, evidenceSufficient(tabs, nil))
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]string{
		"": ModeAuto, "auto": ModeAuto, "static": ModeStatic,
		"rss": ModeFeed, "feed": ModeFeed, "playwright": ModeRendered, "Rendered": ModeRendered,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("selenium")
	assert.Error(t, err)
}

// TestExplore_StaticCards verifies a twelve-card listing stops at the
// static tier with the cards_only pattern.
func TestExplore_StaticCards(t *testing.T) {
	s := newSite(t)
	fr := &fakeRenderer{}
	svc := newService(t, fr)

	res, err := svc.Explore(context.Background(), ExploreRequest{URL: s.URL + "/cards"})
	require.NoError(t, err)

	r := res.Report
	assert.Equal(t, report.MethodStatic, r.AnalysisMethod)
	assert.Equal(t, report.StatusSuccess, r.Status)
	assert.Equal(t, classify.CardsOnly, res.Pattern)
	assert.Equal(t, []string{"static_html:sufficient"}, tiers(r))
	assert.Zero(t, fr.calls.Load())
	assert.Equal(t, "Board", r.PageTitle)
	require.NotEmpty(t, r.RecommendedSelectors)
	assert.Equal(t, ".card", r.RecommendedSelectors[0].Selector)

	onDisk, err := report.Read(res.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, r.RunID, onDisk.RunID)
	assert.Contains(t, res.ReportPath, "_structure_20260304_050607")
}

// TestExplore_FeedURL verifies a URL serving RSS finalizes as feed.
func TestExplore_FeedURL(t *testing.T) {
	s := newSite(t)
	svc := newService(t, &fakeRenderer{})

	res, err := svc.Explore(context.Background(), ExploreRequest{URL: s.URL + "/rss"})
	require.NoError(t, err)

	r := res.Report
	assert.Equal(t, report.MethodFeed, r.AnalysisMethod)
	assert.Equal(t, classify.Feed, res.Pattern)
	require.NotNil(t, r.FeedInfo)
	assert.Equal(t, 20, r.FeedInfo.ItemCount)
	assert.Equal(t, "rss", r.FeedInfo.FeedType)
	require.NotNil(t, r.FeedInfo.SampleItem)
	assert.Equal(t, "Item 1", r.FeedInfo.SampleItem.Title)
	assert.Len(t, r.FeedInfo.SampleItems, fetcher.MaxFeedPreview)
}

// TestExplore_DetailTemplate verifies cards linking to /post/{id} classify
// as with_detail_pages.
func TestExplore_DetailTemplate(t *testing.T) {
	s := newSite(t)
	svc := newService(t, &fakeRenderer{})

	res, err := svc.Explore(context.Background(), ExploreRequest{URL: s.URL + "/posts"})
	require.NoError(t, err)

	require.NotNil(t, res.Report.DetailTemplate)
	assert.Equal(t, "/post/*", res.Report.DetailTemplate.Pattern)
	assert.Equal(t, classify.WithDetailPages, res.Pattern)
}

// TestExplore_Blocked verifies a robots.txt veto writes a blocked report
// without touching the page.
func TestExplore_Blocked(t *testing.T) {
	s := newSite(t)
	fr := &fakeRenderer{}
	svc := newService(t, fr)

	res, err := svc.Explore(context.Background(), ExploreRequest{URL: s.URL + "/private"})
	require.Error(t, err)
	assert.True(t, IsPolicyBlocked(err))
	require.NotNil(t, res)

	assert.Equal(t, report.StatusBlocked, res.Report.Status)
	assert.Empty(t, res.Report.Tiers)
	assert.Empty(t, res.Report.AnalysisMethod)
	assert.Empty(t, res.Pattern)
	assert.Zero(t, s.count("/private"))
	assert.Zero(t, fr.calls.Load())
	assert.FileExists(t, res.ReportPath)
	require.NotEmpty(t, res.Report.Advisories)
	assert.Contains(t, res.Report.Advisories[0], "disallows /private")

	runs, err := svc.History(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "blocked", runs[0].Status)
}

// TestExplore_Override verifies an explicit override proceeds past a disallow.
func TestExplore_Override(t *testing.T) {
	s := newSite(t)
	svc := newService(t, &fakeRenderer{html: cardsPage})

	res, err := svc.Explore(context.Background(), ExploreRequest{URL: s.URL + "/private", Override: true})
	require.NoError(t, err)
	assert.Equal(t, 1, s.count("/private"))
	assert.Equal(t, report.MethodRendered, res.Report.AnalysisMethod)

	confirmed := 0
	yes := ConfirmFunc(func(context.Context, string, Verdict) (bool, error) {
		confirmed++
		return true, nil
	})
	_, err = svc.Explore(context.Background(), ExploreRequest{URL: s.URL + "/private", Confirmer: yes})
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed)
}

// TestExplore_EscalatesToRendered verifies a structureless static page with
// no feed link climbs to the rendered tier and ends partial when that finds
// nothing either.
func TestExplore_EscalatesToRendered(t *testing.T) {
	s := newSite(t)
	fr := &fakeRenderer{html: emptyPage}
	svc := newService(t, fr)

	res, err := svc.Explore(context.Background(), ExploreRequest{URL: s.URL + "/empty"})
	require.NoError(t, err)

	r := res.Report
	assert.Equal(t, []string{"static_html:no_structure", "rendered:no_structure"}, tiers(r))
	assert.Equal(t, report.MethodRendered, r.AnalysisMethod)
	assert.Equal(t, report.StatusPartial, r.Status)
	assert.Equal(t, classify.Basic, res.Pattern)
	assert.EqualValues(t, 1, fr.calls.Load())

	require.Len(t, r.ArtifactPaths, 1)
	assert.True(t, strings.HasSuffix(r.ArtifactPaths[0], "_screenshot.png"))
	assert.FileExists(t, r.ArtifactPaths[0])
}

// TestExplore_RenderedFindsCards verifies rendered evidence wins over an
// empty static document.
func TestExplore_RenderedFindsCards(t *testing.T) {
	s := newSite(t)
	svc := newService(t, &fakeRenderer{html: cardsPage})

	res, err := svc.Explore(context.Background(), ExploreRequest{URL: s.URL + "/empty"})
	require.NoError(t, err)
	assert.Equal(t, report.MethodRendered, res.Report.AnalysisMethod)
	assert.Equal(t, report.StatusSuccess, res.Report.Status)
	assert.Equal(t, classify.CardsOnly, res.Pattern)
}

// TestExplore_RenderedTierSettings verifies the browser sends the static
// tier's User-Agent and blocked requests surface as an advisory.
func TestExplore_RenderedTierSettings(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		seen.Store(r.UserAgent())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, emptyPage)
	}))
	t.Cleanup(srv.Close)

	fr := &fakeRenderer{html: cardsPage, blocked: map[string]int{"image": 7, "font": 2}}
	svc := newService(t, fr)

	res, err := svc.Explore(context.Background(), ExploreRequest{URL: srv.URL + "/"})
	require.NoError(t, err)
	require.EqualValues(t, 1, fr.calls.Load())
	assert.Equal(t, svc.Config().Fetch.UserAgent, seen.Load())
	assert.Equal(t, seen.Load(), fr.cfg.UserAgent)
	assert.Contains(t, res.Report.Advisories,
		"rendered tier blocked 9 requests (font 2, image 7); content they load is missing from the analysis")
}

func TestBlockedSummary(t *testing.T) {
	n, detail := blockedSummary(nil)
	assert.Zero(t, n)
	assert.Empty(t, detail)

	n, detail = blockedSummary(map[string]int{"media": 1, "font": 3})
	assert.Equal(t, 4, n)
	assert.Equal(t, "font 3, media 1", detail)
}

// TestExplore_FeedLinkEscalation verifies a discoverable feed link is tried
// before the browser.
func TestExplore_FeedLinkEscalation(t *testing.T) {
	s := newSite(t)
	fr := &fakeRenderer{}
	svc := newService(t, fr)

	res, err := svc.Explore(context.Background(), ExploreRequest{URL: s.URL + "/withfeed"})
	require.NoError(t, err)

	r := res.Report
	assert.Equal(t, []string{"static_html:no_structure", "feed:sufficient"}, tiers(r))
	assert.Equal(t, report.MethodFeed, r.AnalysisMethod)
	require.NotNil(t, r.FeedInfo)
	assert.Equal(t, s.URL+"/rss", r.FeedInfo.FeedURL)
	assert.Zero(t, fr.calls.Load())
}

// TestExplore_MonotonicOnFailure verifies failed tiers are recorded in order
// and never retried by the controller.
func TestExplore_MonotonicOnFailure(t *testing.T) {
	s := newSite(t)
	fr := &fakeRenderer{err: errors.New("chrome not found")}
	svc := newService(t, fr)

	res, err := svc.Explore(context.Background(), ExploreRequest{URL: s.URL + "/broken"})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []string{"static_html:error", "rendered:error"}, tiers(res.Report))
	assert.Equal(t, report.StatusFailed, res.Report.Status)
	assert.Empty(t, res.Report.AnalysisMethod)
	assert.Equal(t, 1, s.count("/broken"))
	assert.EqualValues(t, 1, fr.calls.Load())
	assert.FileExists(t, res.ReportPath)
}

// TestExplore_RenderedFailureKeepsStatic verifies a browser failure after a
// structureless static document still yields a partial static report.
func TestExplore_RenderedFailureKeepsStatic(t *testing.T) {
	s := newSite(t)
	svc := newService(t, &fakeRenderer{err: errors.New("navigation timeout")})

	res, err := svc.Explore(context.Background(), ExploreRequest{URL: s.URL + "/empty"})
	require.NoError(t, err)
	assert.Equal(t, []string{"static_html:no_structure", "rendered:error"}, tiers(res.Report))
	assert.Equal(t, report.MethodStatic, res.Report.AnalysisMethod)
	assert.Equal(t, report.StatusPartial, res.Report.Status)
	assert.Equal(t, classify.Basic, res.Pattern)
}

func TestExplore_ModeOverride(t *testing.T) {
	s := newSite(t)
	fr := &fakeRenderer{html: cardsPage}
	svc := newService(t, fr)
	ctx := context.Background()

	res, err := svc.Explore(ctx, ExploreRequest{URL: s.URL + "/cards", Mode: "playwright"})
	require.NoError(t, err)
	assert.Equal(t, []string{"rendered:sufficient"}, tiers(res.Report))
	assert.Zero(t, s.count("/cards"))

	res, err = svc.Explore(ctx, ExploreRequest{URL: s.URL + "/empty", Mode: "static"})
	require.NoError(t, err)
	assert.Equal(t, []string{"static_html:no_structure"}, tiers(res.Report))
	assert.Equal(t, report.StatusPartial, res.Report.Status)

	res, err = svc.Explore(ctx, ExploreRequest{URL: s.URL + "/rss", Mode: "rss"})
	require.NoError(t, err)
	assert.Equal(t, []string{"feed:sufficient"}, tiers(res.Report))

	_, err = svc.Explore(ctx, ExploreRequest{URL: s.URL + "/cards", Mode: "selenium"})
	assert.Error(t, err)
	assert.EqualValues(t, 1, fr.calls.Load())
}

// TestExplore_CanceledDuringRender verifies cancellation stops the ladder
// and still writes the report.
func TestExplore_CanceledDuringRender(t *testing.T) {
	s := newSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := newService(t, &fakeRenderer{hook: cancel})

	res, err := svc.Explore(ctx, ExploreRequest{URL: s.URL + "/empty"})
	require.Error(t, err)
	assert.True(t, IsCanceled(err))
	require.NotNil(t, res)
	assert.Equal(t, []string{"static_html:no_structure", "rendered:canceled"}, tiers(res.Report))
	assert.Equal(t, report.StatusPartial, res.Report.Status)
	assert.FileExists(t, res.ReportPath)
}

// TestClimb_ChecksContextFirst verifies no tier starts once ctx is done.
func TestClimb_ChecksContextFirst(t *testing.T) {
	svc := newService(t, &fakeRenderer{})
	u, _ := url.Parse("https://example.com/")
	x := &exploration{s: svc, mode: ModeAuto, target: u, rep: report.New(u.String(), ModeAuto, time.Now())}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	x.climb(ctx)
	x.finish()

	assert.Equal(t, []string{"static_html:canceled"}, tiers(x.rep))
	assert.Equal(t, report.StatusFailed, x.rep.Status)
	assert.ErrorIs(t, x.canceled, context.Canceled)
}

func TestExplore_InvalidURL(t *testing.T) {
	svc := newService(t, &fakeRenderer{})
	_, err := svc.Explore(context.Background(), ExploreRequest{URL: "ftp://example.com/"})
	assert.Error(t, err)

	entries, err := os.ReadDir(svc.cfg.Output.Dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, report.IsReportFile(e.Name()), e.Name())
	}
}
