// CLAUDE:SUMMARY Renders a standalone Go scraper program from a StructureReport: (tier, pattern) template registry, quoted selectors, gofmt'd output.
// Package synth turns a StructureReport into the source of a standalone Go
// program built on scrapekit.
//
// Templates are embedded text/template files, one per (analysis method,
// extraction pattern) pair. Site-derived strings only ever reach the output
// as quoted Go string literals; the report is never evaluated as code.
package synth

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"text/template"
	"time"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/urlsafe"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/analyzer"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/classify"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/failure"
	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/report"
)

// KitImport is the import path generated programs use for the runtime.
const KitImport = "github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/scrapekit"

// Item caps baked into generated programs when the caller sets none.
const (
	DefaultMaxItems       = 50
	DefaultDetailMaxItems = 30
)

//go:embed templates/*.go.tmpl
var templateFS embed.FS

// Key identifies one template.
type Key struct {
	Method  report.Method
	Pattern classify.Pattern
}

func (k Key) file() string {
	return fmt.Sprintf("templates/%s_%s.go.tmpl", k.Method, k.Pattern)
}

// Registry lists every supported pair. A static document never yields
// tabs_and_cards and a feed only yields feed.
var Registry = []Key{
	{report.MethodStatic, classify.Basic},
	{report.MethodStatic, classify.CardsOnly},
	{report.MethodStatic, classify.WithDetailPages},
	{report.MethodRendered, classify.Basic},
	{report.MethodRendered, classify.CardsOnly},
	{report.MethodRendered, classify.TabsAndCards},
	{report.MethodRendered, classify.WithDetailPages},
	{report.MethodFeed, classify.Feed},
}

var templates = mustLoad()

func mustLoad() map[Key]*template.Template {
	out := make(map[Key]*template.Template, len(Registry))
	for _, k := range Registry {
		t, err := template.New(string(k.Method)+"_"+string(k.Pattern)).
			ParseFS(templateFS, "templates/main.go.tmpl", k.file())
		if err != nil {
			panic(fmt.Sprintf("synth: template for %s/%s: %v", k.Method, k.Pattern, err))
		}
		out[k] = t
	}
	return out
}

// Lookup returns the template for method and pattern, or a
// SynthesisTemplateMissing failure.
func Lookup(method report.Method, pattern classify.Pattern) (*template.Template, error) {
	t, ok := templates[Key{method, pattern}]
	if !ok {
		return nil, failure.New(failure.KindSynthesisTemplateMissing, string(method), "",
			fmt.Errorf("no program template for %s analysis with pattern %s", method, pattern))
	}
	return t, nil
}

// Options are the program defaults baked into the output.
type Options struct {
	Format   string // json | csv | md | all. Default: md.
	DataDir  string
	MaxItems int
	Sleep    time.Duration
	Now      time.Time
}

// Program is one rendered program.
type Program struct {
	Name    string
	Method  report.Method
	Pattern classify.Pattern
	Source  []byte
}

// data is the template input. Strings are quoted by the templates.
type data struct {
	Kit         string
	Program     string
	TargetURL   string
	SourceURL   string
	Method      report.Method
	Pattern     classify.Pattern
	Format      string
	DataDir     string
	MaxItems    int
	SleepMS     int64
	GeneratedAt string
	RunID       string

	Cards  string
	Tabs   string
	Detail string
}

// Synthesize renders the program for r with the given pattern.
func Synthesize(r *report.Report, pattern classify.Pattern, opts Options) (*Program, error) {
	if r.AnalysisMethod == "" {
		return nil, fmt.Errorf("synth: report %s has no analysis method (status %s)", r.RunID, r.Status)
	}
	t, err := Lookup(r.AnalysisMethod, pattern)
	if err != nil {
		return nil, err
	}

	d, err := templateData(r, pattern, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "program", d); err != nil {
		return nil, fmt.Errorf("synth: execute %s/%s: %w", r.AnalysisMethod, pattern, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("synth: gofmt %s/%s: %w", r.AnalysisMethod, pattern, err)
	}
	return &Program{Name: d.Program, Method: r.AnalysisMethod, Pattern: pattern, Source: src}, nil
}

func templateData(r *report.Report, pattern classify.Pattern, opts Options) (*data, error) {
	if opts.Format == "" {
		opts.Format = "md"
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
		if pattern == classify.WithDetailPages {
			opts.MaxItems = DefaultDetailMaxItems
		}
	}
	if opts.Sleep <= 0 {
		opts.Sleep = 500 * time.Millisecond
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	d := &data{
		Kit:         KitImport,
		Program:     ProgramName(r),
		TargetURL:   r.SourceURL,
		SourceURL:   r.SourceURL,
		Method:      r.AnalysisMethod,
		Pattern:     pattern,
		Format:      opts.Format,
		DataDir:     opts.DataDir,
		MaxItems:    opts.MaxItems,
		SleepMS:     opts.Sleep.Milliseconds(),
		GeneratedAt: opts.Now.UTC().Format(time.RFC3339),
		RunID:       r.RunID,
		Cards:       cardSelector(r),
		Tabs:        firstRecommended(r, report.RecTabs),
		Detail:      firstRecommended(r, report.RecDetail),
	}
	if r.AnalysisMethod == report.MethodFeed && r.FeedInfo != nil && r.FeedInfo.FeedURL != "" {
		d.TargetURL = r.FeedInfo.FeedURL
	}

	for _, u := range []string{d.SourceURL, d.TargetURL} {
		if _, err := urlsafe.Normalize(u); err != nil {
			return nil, fmt.Errorf("synth: report url %q: %w", u, err)
		}
	}

	switch pattern {
	case classify.CardsOnly, classify.WithDetailPages:
		if d.Cards == "" {
			return nil, fmt.Errorf("synth: pattern %s needs a card selector", pattern)
		}
	case classify.TabsAndCards:
		if d.Cards == "" || d.Tabs == "" {
			return nil, fmt.Errorf("synth: pattern %s needs tab and card selectors", pattern)
		}
	}
	for _, sel := range []string{d.Cards, d.Tabs, d.Detail} {
		if sel == "" {
			continue
		}
		if err := analyzer.ValidSelector(sel); err != nil {
			return nil, fmt.Errorf("synth: selector %q: %w", sel, err)
		}
	}
	return d, nil
}

// cardSelector picks the best-scoring recommended card selector.
func cardSelector(r *report.Report) string {
	recommended := make(map[string]bool)
	for _, rec := range r.RecommendedSelectors {
		if rec.Type == report.RecCards {
			recommended[rec.Selector] = true
		}
	}
	var pool []analyzer.Candidate
	for _, c := range r.SelectorGroups.Cards {
		if recommended[c.Selector] {
			pool = append(pool, c)
		}
	}
	if best, ok := analyzer.BestCard(pool); ok {
		return best.Selector
	}
	return firstRecommended(r, report.RecCards)
}

func firstRecommended(r *report.Report, typ string) string {
	for _, rec := range r.RecommendedSelectors {
		if rec.Type == typ {
			return rec.Selector
		}
	}
	return ""
}

// ProgramName is scrape_{domain}, suffixed _static or _feed for the
// HTTP-only tiers.
func ProgramName(r *report.Report) string {
	name := "scrape_" + r.Domain()
	switch r.AnalysisMethod {
	case report.MethodStatic:
		name += "_static"
	case report.MethodFeed:
		name += "_feed"
	}
	return name
}
