// CLAUDE:SUMMARY Structure detectors over a parsed page: tab and card precedence walks, link-shape grouping, SPA fingerprints, advisory flags and render hints.
// Package analyzer runs the structural detectors over a fetched document.
//
// Detectors are tier-independent: the same Analyze call serves a static
// document and a rendered DOM snapshot. Runtime facts only a browser can see
// (framework globals, scroll height) arrive through Options.
package analyzer

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RepetitionThreshold is the minimum match count for a selector to count as
// structure rather than noise.
const RepetitionThreshold = 3

// Precedence lists. Append new entries at the end; earlier entries win.
var (
	TabSelectors = []string{
		"[role='tab']",
		"[role='tablist'] > *",
		".tab",
		".tabs > *",
		"[data-tab]",
		".nav-tab",
		".tab-button",
	}

	CardSelectors = []string{
		".card",
		".item",
		".study-card",
		".post-card",
		".product-card",
		"[class*='card']",
		"[class*='item']",
		"article",
		".list-item",
		"[data-id]",
	}

	PaginationSelectors = []string{
		".pagination",
		"[class*='paging']",
		".page-nav",
		"nav[aria-label*='page']",
	}

	ModalSelectors = []string{
		"[role='dialog']",
		".modal",
		"[class*='modal']",
		"[class*='popup']",
	}

	InfiniteScrollSelectors = []string{
		"[class*='infinite-scroll']",
		"[data-infinite-scroll]",
		"[class*='load-more']",
	}
)

const (
	buttonSelector = "button, [role='button'], .btn"
	maxButtons     = 20
	maxCardMatches = 200
	maxSamples     = 5
	maxDataAttrs   = 6
)

// Candidate is one hypothesis for a structural role.
type Candidate struct {
	Selector       string   `json:"selector"`
	MatchCount     int      `json:"match_count"`
	SampleTexts    []string `json:"sample_texts,omitempty"`
	SampleHref     string   `json:"sample_href,omitempty"`
	HasLink        bool     `json:"has_link"`
	HasImage       bool     `json:"has_image"`
	DataAttributes []string `json:"data_attributes,omitempty"`
	Confidence     float64  `json:"confidence"`
}

// Repeating reports whether the candidate meets the repetition threshold.
func (c Candidate) Repeating() bool { return c.MatchCount >= RepetitionThreshold }

// Button is a clickable control seen on the page.
type Button struct {
	Text    string `json:"text"`
	Tag     string `json:"tag"`
	Classes string `json:"classes,omitempty"`
}

// Features are the dynamic-behaviour flags. Scroll and modal are advisory.
type Features struct {
	HasTabs           bool   `json:"has_tabs"`
	IsSPA             bool   `json:"is_spa"`
	SPAFramework      string `json:"spa_framework,omitempty"`
	HasInfiniteScroll bool   `json:"has_infinite_scroll"`
	HasModal          bool   `json:"has_modal"`
}

// Analysis is the raw detector output for one document.
type Analysis struct {
	Title          string
	Tabs           []Candidate
	Cards          []Candidate
	Links          []LinkPattern
	DetailTemplate *LinkPattern
	Features       Features
	Pagination     []string
	Buttons        []Button
	RenderHints    []string
	FeedLinks      []string
}

// HasStructure reports whether any tab or card candidate repeats.
func (a *Analysis) HasStructure() bool {
	return anyRepeating(a.Tabs) || anyRepeating(a.Cards)
}

// HasCards reports whether any card candidate repeats.
func (a *Analysis) HasCards() bool { return anyRepeating(a.Cards) }

// Options carries evidence from outside the markup.
type Options struct {
	// RawHTML is the undecoded markup for fingerprinting. Empty uses the
	// document's own serialization.
	RawHTML []byte
	// ShellReasons come from the fetcher's text/markup density check.
	ShellReasons []string
	// SPAGlobals and InfiniteScroll come from the rendered tier's probes.
	SPAGlobals     []string
	InfiniteScroll bool
}

// Analyze runs every detector over doc. base resolves relative hrefs and
// defines the page's host for detail-template inference.
func Analyze(doc *goquery.Document, base *url.URL, opts Options) *Analysis {
	raw := string(opts.RawHTML)
	if raw == "" {
		raw, _ = doc.Html()
	}

	a := &Analysis{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Tabs:  walk(doc, base, TabSelectors, 0),
		Cards: walk(doc, base, CardSelectors, maxCardMatches),
	}
	a.Links = linkPatterns(doc, base)
	a.FeedLinks = FeedLinks(doc, base)
	a.DetailTemplate = detailTemplate(a.Links, base)

	a.Features.HasTabs = anyRepeating(a.Tabs)
	a.Features.SPAFramework = spaFramework(raw, opts.SPAGlobals)
	a.Features.IsSPA = a.Features.SPAFramework != ""
	a.Features.HasInfiniteScroll = opts.InfiniteScroll || matchesAny(doc, InfiniteScrollSelectors)
	a.Features.HasModal = matchesAny(doc, ModalSelectors)

	for _, sel := range PaginationSelectors {
		if doc.Find(sel).Length() > 0 {
			a.Pagination = append(a.Pagination, sel)
		}
	}
	a.Buttons = buttons(doc)
	a.RenderHints = renderHints(doc, a, opts.ShellReasons)
	return a
}

func anyRepeating(cs []Candidate) bool {
	for _, c := range cs {
		if c.Repeating() {
			return true
		}
	}
	return false
}

func matchesAny(doc *goquery.Document, sels []string) bool {
	for _, sel := range sels {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func buttons(doc *goquery.Document) []Button {
	var out []Button
	doc.Find(buttonSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := truncate(collapse(s.Text()), 30)
		if text != "" {
			out = append(out, Button{
				Text:    text,
				Tag:     goquery.NodeName(s),
				Classes: strings.Join(strings.Fields(s.AttrOr("class", "")), " "),
			})
		}
		return len(out) < maxButtons
	})
	return out
}

// collapse trims and folds internal whitespace runs to one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
