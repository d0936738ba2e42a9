package analyzer

import (
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) (*goquery.Document, *url.URL) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	base, err := url.Parse("https://example.com/list")
	require.NoError(t, err)
	return doc, base
}

func page(body string) string {
	return "<!DOCTYPE html><html><head><title>Board</title></head><body>" + body + "</body></html>"
}

func repeat(n int, format string) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, format, i, i)
	}
	return b.String()
}

// TestAnalyze_TwelveCards verifies a plain card grid without a link template.
func TestAnalyze_TwelveCards(t *testing.T) {
	doc, base := parse(t, page(repeat(12, `<div class="card"><h3>Title %d</h3> <p>Description %d</p></div>`)))
	a := Analyze(doc, base, Options{})

	require.NotEmpty(t, a.Cards)
	assert.Equal(t, ".card", a.Cards[0].Selector)
	assert.Equal(t, 12, a.Cards[0].MatchCount)
	assert.Len(t, a.Cards[0].SampleTexts, maxSamples)
	assert.Equal(t, "Title 1 Description 1", a.Cards[0].SampleTexts[0])
	assert.False(t, a.Cards[0].HasLink)
	assert.Empty(t, a.Tabs)
	assert.False(t, a.Features.HasTabs)
	assert.Nil(t, a.DetailTemplate)
	assert.True(t, a.HasStructure())
	assert.Equal(t, "Board", a.Title)
}

// TestAnalyze_DetailTemplate verifies three cards linking to /post/{id}
// yield the /post/* template.
func TestAnalyze_DetailTemplate(t *testing.T) {
	doc, base := parse(t, page(repeat(3, `<div class="card"><a href="/post/%d">Post title %d</a></div>`)))
	a := Analyze(doc, base, Options{})

	require.NotNil(t, a.DetailTemplate)
	assert.Equal(t, "/post/*", a.DetailTemplate.Pattern)
	assert.Equal(t, "example.com", a.DetailTemplate.Host)
	assert.Equal(t, 3, a.DetailTemplate.Distinct)
	require.NotEmpty(t, a.Cards)
	assert.True(t, a.Cards[0].HasLink)
	assert.Equal(t, "https://example.com/post/1", a.Cards[0].SampleHref)
}

// TestAnalyze_DetailTemplateSlugs verifies short and long slugs under one
// parent form a single /post/* template.
func TestAnalyze_DetailTemplateSlugs(t *testing.T) {
	doc, base := parse(t, page(`<nav><a href="/">Home</a><a href="/about">About</a><a href="/contact">Contact</a></nav>`+
		`<div class="card"><a href="/post/hello-world">Hello</a></div>`+
		`<div class="card"><a href="/post/second-post">Second</a></div>`+
		`<div class="card"><a href="/post/go-tips">Tips</a></div>`))
	a := Analyze(doc, base, Options{})

	require.NotNil(t, a.DetailTemplate)
	assert.Equal(t, "/post/*", a.DetailTemplate.Pattern)
	assert.Equal(t, 3, a.DetailTemplate.Distinct)
	assert.Len(t, a.DetailTemplate.Examples, 3)
	for _, l := range a.Links {
		assert.NotEqual(t, "/post/go-tips", l.Pattern)
		assert.NotEqual(t, "/*", l.Pattern, "root pages never merge")
	}
}

// TestAnalyze_SiblingLeavesNeedThree verifies two sibling pages stay separate.
func TestAnalyze_SiblingLeavesNeedThree(t *testing.T) {
	doc, base := parse(t, page(`<a href="/docs/intro">a</a><a href="/docs/setup">b</a>`))
	a := Analyze(doc, base, Options{})
	assert.Nil(t, a.DetailTemplate)
	assert.Len(t, a.Links, 2)
}

// TestAnalyze_DetailTemplateNeedsThreeDistinct verifies repeated links to
// one URL do not form a template.
func TestAnalyze_DetailTemplateNeedsThreeDistinct(t *testing.T) {
	doc, base := parse(t, page(`<a href="/post/1">a</a><a href="/post/1">b</a><a href="/post/2">c</a>`))
	a := Analyze(doc, base, Options{})
	assert.Nil(t, a.DetailTemplate)
}

// TestAnalyze_OffHostTemplateIgnored verifies templates must live on the page's host.
func TestAnalyze_OffHostTemplateIgnored(t *testing.T) {
	doc, base := parse(t, page(repeat(4, `<a href="https://cdn.other.com/item/%d">x%d</a>`)))
	a := Analyze(doc, base, Options{})
	assert.Nil(t, a.DetailTemplate)
	require.NotEmpty(t, a.Links)
	assert.Equal(t, "cdn.other.com", a.Links[0].Host)
}

// TestAnalyze_BelowThreshold verifies two matches are recorded but never
// count as structure.
func TestAnalyze_BelowThreshold(t *testing.T) {
	doc, base := parse(t, page(repeat(2, `<div class="card">Card %d text %d</div>`)))
	a := Analyze(doc, base, Options{})

	require.NotEmpty(t, a.Cards)
	for _, c := range a.Cards {
		assert.Equal(t, 2, c.MatchCount)
		assert.Zero(t, c.Confidence)
	}
	assert.False(t, a.HasCards())
	assert.False(t, a.HasStructure())
}

// TestAnalyze_PrecedenceStopsAtFirstRepeating verifies later selectors are
// not evaluated once one reaches the threshold.
func TestAnalyze_PrecedenceStopsAtFirstRepeating(t *testing.T) {
	body := `<div class="card">only one</div>` +
		repeat(3, `<div class="item">Item %d of %d</div>`) +
		repeat(5, `<article>Article %d body %d</article>`)
	doc, base := parse(t, page(body))
	a := Analyze(doc, base, Options{})

	var sels []string
	for _, c := range a.Cards {
		sels = append(sels, c.Selector)
	}
	assert.Equal(t, []string{".item", ".card"}, sels)
	assert.NotContains(t, sels, "article")
}

// TestAnalyze_LayoutNoiseIgnored verifies selectors with more than 200
// matches are skipped.
func TestAnalyze_LayoutNoiseIgnored(t *testing.T) {
	body := repeat(250, `<span class="card">%d %d</span>`) + repeat(4, `<article>Story %d %d</article>`)
	doc, base := parse(t, page(body))
	a := Analyze(doc, base, Options{})

	require.NotEmpty(t, a.Cards)
	assert.Equal(t, "article", a.Cards[0].Selector)
	for _, c := range a.Cards {
		assert.LessOrEqual(t, c.MatchCount, maxCardMatches)
	}
}

// TestAnalyze_Tabs verifies role=tab markup sets HasTabs.
func TestAnalyze_Tabs(t *testing.T) {
	body := `<div role="tablist"><button role="tab">A</button><button role="tab">B</button><button role="tab">C</button></div>`
	doc, base := parse(t, page(body))
	a := Analyze(doc, base, Options{})

	require.NotEmpty(t, a.Tabs)
	assert.Equal(t, "[role='tab']", a.Tabs[0].Selector)
	assert.True(t, a.Features.HasTabs)
	assert.Len(t, a.Buttons, 3)
}

// TestAnalyze_DataAttributes verifies data-* attributes are captured.
func TestAnalyze_DataAttributes(t *testing.T) {
	doc, base := parse(t, page(repeat(3, `<li class="item" data-id="%d" data-kind="post">Entry %d</li>`)))
	a := Analyze(doc, base, Options{})
	require.NotEmpty(t, a.Cards)
	assert.Equal(t, []string{"data-id=1", "data-kind=post"}, a.Cards[0].DataAttributes)
}

// TestAnalyze_SPAAndHints verifies fingerprints, runtime globals and render hints.
func TestAnalyze_SPAAndHints(t *testing.T) {
	doc, base := parse(t, page(`<noscript>Please enable JavaScript.</noscript><div id="__next"></div>`+strings.Repeat(`<script></script>`, 12)))
	a := Analyze(doc, base, Options{ShellReasons: []string{"document shorter than 256 bytes"}})

	assert.True(t, a.Features.IsSPA)
	assert.Equal(t, "React", a.Features.SPAFramework)
	assert.Contains(t, a.RenderHints, "SPA framework fingerprint: React")
	assert.Contains(t, a.RenderHints, "noscript asks to enable JavaScript")
	assert.Contains(t, a.RenderHints, "no repeating cards and 12 script tags")
	assert.Contains(t, a.RenderHints, "static markup: document shorter than 256 bytes")

	doc, base = parse(t, page(`<p>plain</p>`))
	a = Analyze(doc, base, Options{SPAGlobals: []string{"nuxt"}, InfiniteScroll: true})
	assert.Equal(t, "Vue", a.Features.SPAFramework)
	assert.True(t, a.Features.HasInfiniteScroll)
}

// TestAnalyze_AdvisoryFlags verifies modal and pagination are annotated.
func TestAnalyze_AdvisoryFlags(t *testing.T) {
	doc, base := parse(t, page(`<div class="modal"></div><div class="pagination"><a href="?page=2">2</a></div>`))
	a := Analyze(doc, base, Options{})
	assert.True(t, a.Features.HasModal)
	assert.Equal(t, []string{".pagination"}, a.Pagination)
}

// TestFeedLinks verifies alternate feed links are absolutized and capped.
func TestFeedLinks(t *testing.T) {
	doc, base := parse(t, `<html><head>
<link rel="alternate" type="application/rss+xml" href="/feed.xml">
<link rel="alternate" type="application/atom+xml" href="https://example.org/atom">
<link rel="alternate" hreflang="en" href="/en/">
<link rel="alternate" type="application/rss+xml" href="/feed.xml">
<link rel="alternate" type="text/xml" href="/a.xml">
<link rel="alternate" type="text/xml" href="/b.xml">
</head><body></body></html>`)
	assert.Equal(t, []string{
		"https://example.com/feed.xml",
		"https://example.org/atom",
		"https://example.com/a.xml",
	}, FeedLinks(doc, base))
}

func TestShape(t *testing.T) {
	cases := map[string]string{
		"https://a.com/post/12345":               "/post/*",
		"https://a.com/v/abcdefghijk_LMN":        "/v/*",
		"https://a.com/about":                    "/about",
		"https://a.com/":                         "/",
		"https://a.com/board/view.php?no=77&b=x": "/board/view.php?b=x&no=*",
		"https://a.com/list?page=3":              "/list?page=3",
	}
	for raw, want := range cases {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, Shape(u), raw)
	}
}

// TestConfidence verifies the zero floor and strict growth with match count.
func TestConfidence(t *testing.T) {
	c := Candidate{Selector: ".card", SampleTexts: []string{"x"}, HasLink: true}

	c.MatchCount = 2
	assert.Zero(t, Confidence(c))

	prev := 0.0
	for _, n := range []int{3, 4, 10, 50, 200} {
		c.MatchCount = n
		got := Confidence(c)
		assert.Greater(t, got, prev, "count %d", n)
		prev = got
	}

	c.MatchCount = 10
	bare := Candidate{Selector: ".card", MatchCount: 10}
	assert.Greater(t, Confidence(c), Confidence(bare))

	wild := c
	wild.Selector = "[class*='card']"
	assert.InDelta(t, 0.2, Confidence(c)-Confidence(wild), 1e-9)
}

// TestBestCard verifies class selectors beat wildcards and nav-like samples lose.
func TestBestCard(t *testing.T) {
	cards := []Candidate{
		{Selector: "[class*='card']", MatchCount: 20, HasLink: true},
		{Selector: ".card", MatchCount: 12, HasLink: true},
		{Selector: ".item", MatchCount: 2},
	}
	best, ok := BestCard(cards)
	require.True(t, ok)
	assert.Equal(t, ".card", best.Selector)

	nav := []Candidate{
		{Selector: ".item", MatchCount: 8, SampleTexts: []string{"로그인 회원가입"}},
		{Selector: "article", MatchCount: 8},
	}
	best, ok = BestCard(nav)
	require.True(t, ok)
	assert.Equal(t, "article", best.Selector)

	_, ok = BestCard([]Candidate{{Selector: ".card", MatchCount: 1}})
	assert.False(t, ok)
}

func TestValidSelector(t *testing.T) {
	assert.NoError(t, ValidSelector("div.card > a[href]"))
	assert.Error(t, ValidSelector("div[["))
}
