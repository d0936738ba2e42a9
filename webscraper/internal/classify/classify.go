// Package classify maps exploration evidence to an extraction pattern.
package classify

import "github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/report"

// Pattern is one of the fixed extraction algorithms.
type Pattern string

const (
	Basic           Pattern = "basic"
	CardsOnly       Pattern = "cards_only"
	TabsAndCards    Pattern = "tabs_and_cards"
	WithDetailPages Pattern = "with_detail_pages"
	Feed            Pattern = "feed"
)

// Patterns lists every pattern.
var Patterns = []Pattern{Basic, CardsOnly, TabsAndCards, WithDetailPages, Feed}

// Input is the whole domain of Classify.
type Input struct {
	Method            report.Method
	HasTabs           bool
	HasCards          bool
	HasDetailTemplate bool
}

// InputOf extracts the classifier input from a report. Cards and tabs count
// only through recommendations, so sub-threshold candidates never do.
func InputOf(r *report.Report) Input {
	in := Input{Method: r.AnalysisMethod, HasDetailTemplate: r.DetailTemplate != nil}
	for _, rec := range r.RecommendedSelectors {
		switch rec.Type {
		case report.RecCards:
			in.HasCards = true
		case report.RecTabs:
			in.HasTabs = true
		}
	}
	return in
}

// Classify is pure and total. First match wins:
// feed evidence, no cards, tabs (rendered tier only), detail template,
// then plain cards.
//
// Tabs need a browser to activate, so static evidence with tabs falls through
// to the detail and cards rules.
func Classify(in Input) Pattern {
	switch {
	case in.Method == report.MethodFeed:
		return Feed
	case !in.HasCards:
		return Basic
	case in.HasTabs && in.Method == report.MethodRendered:
		return TabsAndCards
	case in.HasDetailTemplate:
		return WithDetailPages
	default:
		return CardsOnly
	}
}

// Of classifies a report.
func Of(r *report.Report) Pattern { return Classify(InputOf(r)) }
