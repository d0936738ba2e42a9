// CLAUDE:SUMMARY StructureReport model, selector recommendations honouring the repetition threshold, and write-once JSON/screenshot artifacts.
// Package report defines the StructureReport produced by one exploration run
// and its on-disk artifact.
package report

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/urlsafe"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/analyzer"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/fetcher"
)

// Method is the tier whose evidence a report uses.
type Method string

const (
	MethodStatic   Method = "static_html"
	MethodFeed     Method = "feed"
	MethodRendered Method = "rendered"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusBlocked Status = "blocked"
	StatusFailed  Status = "failed"
)

// SelectorGroups holds detector output per structural role, most confident first.
type SelectorGroups struct {
	Tabs  []analyzer.Candidate   `json:"tabs"`
	Cards []analyzer.Candidate   `json:"cards"`
	Links []analyzer.LinkPattern `json:"links"`
}

// FeedInfo describes a feed used as evidence.
type FeedInfo struct {
	FeedURL     string             `json:"feed_url"`
	FeedType    string             `json:"feed_type"`
	Title       string             `json:"title,omitempty"`
	ItemCount   int                `json:"item_count"`
	SampleItem  *fetcher.FeedItem  `json:"sample_item,omitempty"`
	SampleItems []fetcher.FeedItem `json:"sample_items,omitempty"`
}

// Recommendation is one selector the synthesizer should use.
type Recommendation struct {
	Type      string `json:"type"`
	Selector  string `json:"selector"`
	Rationale string `json:"rationale"`
}

// Recommendation types.
const (
	RecTabs   = "tabs"
	RecCards  = "cards"
	RecDetail = "detail_link"
)

// TierAttempt records one tier run, in order.
type TierAttempt struct {
	Tier    string `json:"tier"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// Tier attempt outcomes.
const (
	OutcomeSufficient  = "sufficient"
	OutcomeNoStructure = "no_structure"
	OutcomeError       = "error"
	OutcomeCanceled    = "canceled"
)

// Report is the StructureReport. It is complete before Write and never
// modified afterwards.
type Report struct {
	RunID                string                `json:"run_id"`
	SourceURL            string                `json:"source_url"`
	FinalURL             string                `json:"final_url,omitempty"`
	PageTitle            string                `json:"page_title,omitempty"`
	Mode                 string                `json:"mode"`
	AnalysisMethod       Method                `json:"analysis_method,omitempty"`
	Status               Status                `json:"status"`
	SelectorGroups       SelectorGroups        `json:"selector_groups"`
	DynamicFeatures      analyzer.Features     `json:"dynamic_features"`
	FeedInfo             *FeedInfo             `json:"feed_info"`
	RecommendedSelectors []Recommendation      `json:"recommended_selectors"`
	DetailTemplate       *analyzer.LinkPattern `json:"detail_template"`
	Pagination           []string              `json:"pagination,omitempty"`
	Buttons              []analyzer.Button     `json:"buttons,omitempty"`
	RenderHints          []string              `json:"render_hints,omitempty"`
	Advisories           []string              `json:"advisories,omitempty"`
	Tiers                []TierAttempt         `json:"tiers"`
	CapturedAt           time.Time             `json:"captured_at"`
	ArtifactPaths        []string              `json:"artifact_paths,omitempty"`
}

// New starts a report for sourceURL with a fresh run ID.
func New(sourceURL, mode string, now time.Time) *Report {
	return &Report{
		RunID:                uuid.NewString(),
		SourceURL:            sourceURL,
		Mode:                 mode,
		CapturedAt:           now,
		RecommendedSelectors: []Recommendation{},
		Tiers:                []TierAttempt{},
	}
}

// ApplyAnalysis copies detector output into the report and derives
// recommendations.
func (r *Report) ApplyAnalysis(a *analyzer.Analysis) {
	r.SelectorGroups = SelectorGroups{Tabs: a.Tabs, Cards: a.Cards, Links: a.Links}
	r.DynamicFeatures = a.Features
	r.DetailTemplate = a.DetailTemplate
	r.Pagination = a.Pagination
	r.Buttons = a.Buttons
	r.RenderHints = a.RenderHints
	if a.Title != "" {
		r.PageTitle = a.Title
	}
	r.RecommendedSelectors = Recommend(a)

	if a.Features.HasInfiniteScroll {
		r.Advise("infinite scroll detected: the generated program covers the first page only")
	}
	if a.Features.HasModal {
		r.Advise("modal or popup elements detected: content behind them is not collected")
	}
	if len(a.Pagination) > 0 {
		r.Advise("pagination detected: the generated program collects one listing page")
	}
}

// ApplyFeed records feed evidence.
func (r *Report) ApplyFeed(fd *fetcher.FeedDocument) {
	info := &FeedInfo{
		FeedURL:     fd.URL,
		FeedType:    fd.Type,
		Title:       fd.Title,
		ItemCount:   fd.ItemCount,
		SampleItems: fd.Items,
	}
	if len(fd.Items) > 0 {
		first := fd.Items[0]
		info.SampleItem = &first
	}
	r.FeedInfo = info
	if r.PageTitle == "" {
		r.PageTitle = fd.Title
	}
}

// Advise appends an advisory once.
func (r *Report) Advise(msg string) {
	for _, a := range r.Advisories {
		if a == msg {
			return
		}
	}
	r.Advisories = append(r.Advisories, msg)
}

// Attempt appends a tier attempt.
func (r *Report) Attempt(tier, outcome string, err error) {
	ta := TierAttempt{Tier: tier, Outcome: outcome}
	if err != nil {
		ta.Error = err.Error()
	}
	r.Tiers = append(r.Tiers, ta)
}

// Domain returns the artifact domain slug of the source URL.
func (r *Report) Domain() string {
	u, err := url.Parse(r.SourceURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return urlsafe.DomainSlug(u)
}

// Recommend lists repeating candidates for synthesis: best card first,
// the top tab group, then a detail-link selector when a template exists.
// Candidates below the repetition threshold never appear.
func Recommend(a *analyzer.Analysis) []Recommendation {
	recs := []Recommendation{}
	if best, ok := analyzer.BestCard(a.Cards); ok {
		recs = append(recs, Recommendation{
			Type:      RecCards,
			Selector:  best.Selector,
			Rationale: cardRationale(best),
		})
	}
	for _, c := range a.Cards {
		if c.Repeating() && (len(recs) == 0 || c.Selector != recs[0].Selector) {
			recs = append(recs, Recommendation{Type: RecCards, Selector: c.Selector, Rationale: cardRationale(c)})
		}
	}
	for _, c := range a.Tabs {
		if c.Repeating() {
			recs = append(recs, Recommendation{
				Type:      RecTabs,
				Selector:  c.Selector,
				Rationale: fmt.Sprintf("%d tab-like elements", c.MatchCount),
			})
			break
		}
	}
	if sel := DetailSelector(a.DetailTemplate); sel != "" {
		recs = append(recs, Recommendation{
			Type:     RecDetail,
			Selector: sel,
			Rationale: fmt.Sprintf("%d distinct links share the shape %s",
				a.DetailTemplate.Distinct, a.DetailTemplate.Pattern),
		})
	}
	return recs
}

func cardRationale(c analyzer.Candidate) string {
	parts := []string{fmt.Sprintf("%d repeated elements", c.MatchCount)}
	if c.HasLink {
		parts = append(parts, "with links")
	}
	if c.HasImage {
		parts = append(parts, "with images")
	}
	if len(c.DataAttributes) > 0 {
		parts = append(parts, "with data attributes")
	}
	return strings.Join(parts, ", ")
}

// DetailSelector turns a link template into an anchor selector matching its
// fixed prefix, e.g. /post/* becomes a[href*='/post/']. Empty when the
// prefix is too generic.
func DetailSelector(p *analyzer.LinkPattern) string {
	if p == nil {
		return ""
	}
	prefix, _, _ := strings.Cut(p.Pattern, "*")
	prefix, _, _ = strings.Cut(prefix, "?")
	if prefix == "" || prefix == "/" || strings.ContainsAny(prefix, `'\`) {
		return ""
	}
	return "a[href*='" + prefix + "']"
}
