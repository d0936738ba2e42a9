package analyzer

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/urlsafe"
)

const (
	maxLinksScanned = 200
	maxLinkPatterns = 10
	maxLinkExamples = 3
)

// LinkPattern groups hrefs sharing one path shape. Variable segments (ten or
// more [A-Za-z0-9_-] characters, or all digits) are replaced by "*", and
// sibling leaves under one parent collapse to parent/* once three differ.
type LinkPattern struct {
	Host     string   `json:"host"`
	Pattern  string   `json:"pattern"`
	Count    int      `json:"count"`
	Distinct int      `json:"distinct"`
	Examples []string `json:"examples,omitempty"`
}

type linkGroup struct {
	LinkPattern
	seen map[string]bool
}

// IsTemplate reports whether the shape has a variable part.
func (p LinkPattern) IsTemplate() bool { return strings.Contains(p.Pattern, "*") }

// linkPatterns shapes the first 200 links and keeps the ten most frequent
// shapes, first-seen order breaking ties.
func linkPatterns(doc *goquery.Document, base *url.URL) []LinkPattern {
	var order []*linkGroup
	byKey := make(map[string]*linkGroup)

	anchors := doc.Find("a[href]")
	if anchors.Length() > maxLinksScanned {
		anchors = anchors.Slice(0, maxLinksScanned)
	}
	anchors.Each(func(_ int, s *goquery.Selection) {
		abs, ok := urlsafe.Resolve(base, s.AttrOr("href", ""))
		if !ok {
			return
		}
		u, err := url.Parse(abs)
		if err != nil {
			return
		}
		shape := Shape(u)
		key := u.Host + shape
		g := byKey[key]
		if g == nil {
			g = &linkGroup{LinkPattern: LinkPattern{Host: u.Host, Pattern: shape}, seen: make(map[string]bool)}
			byKey[key] = g
			order = append(order, g)
		}
		g.Count++
		if !g.seen[abs] {
			g.seen[abs] = true
			g.Distinct++
			if len(g.Examples) < maxLinkExamples {
				g.Examples = append(g.Examples, abs)
			}
		}
	})

	order = mergeLeaves(order)

	sort.SliceStable(order, func(i, j int) bool { return order[i].Count > order[j].Count })
	out := make([]LinkPattern, 0, min(len(order), maxLinkPatterns))
	for _, g := range order[:min(len(order), maxLinkPatterns)] {
		out = append(out, g.LinkPattern)
	}
	return out
}

// leafParent splits a query-free shape below the root into its parent path
// and last segment. A trailing slash is kept on the returned suffix.
func leafParent(shape string) (parent, leaf, suffix string, ok bool) {
	if strings.Contains(shape, "?") {
		return "", "", "", false
	}
	trimmed := strings.TrimSuffix(shape, "/")
	if trimmed != shape {
		suffix = "/"
	}
	i := strings.LastIndex(trimmed, "/")
	if i <= 0 {
		return "", "", "", false
	}
	return trimmed[:i], trimmed[i+1:], suffix, trimmed[i+1:] != ""
}

// mergeLeaves folds shapes that differ only in their last segment into one
// parent/* shape once the parent has RepetitionThreshold distinct leaves.
// Slugs shorter than a variable segment would otherwise split one family
// of detail links by length. The merged group takes the position of its
// first member.
func mergeLeaves(order []*linkGroup) []*linkGroup {
	type family struct {
		pattern string
		members []int
		leaves  int
	}
	var fams []*family
	byKey := make(map[string]*family)
	for i, g := range order {
		parent, leaf, suffix, ok := leafParent(g.Pattern)
		if !ok {
			continue
		}
		pattern := parent + "/*" + suffix
		key := g.Host + pattern
		f := byKey[key]
		if f == nil {
			f = &family{pattern: pattern}
			byKey[key] = f
			fams = append(fams, f)
		}
		f.members = append(f.members, i)
		if leaf == "*" {
			f.leaves += g.Distinct
		} else {
			f.leaves++
		}
	}

	drop := make(map[int]bool)
	for _, f := range fams {
		if len(f.members) < 2 || f.leaves < RepetitionThreshold {
			continue
		}
		head := f.members[0]
		merged := &linkGroup{LinkPattern: LinkPattern{Host: order[head].Host, Pattern: f.pattern}}
		for _, i := range f.members {
			g := order[i]
			merged.Count += g.Count
			merged.Distinct += g.Distinct
			for _, ex := range g.Examples {
				if len(merged.Examples) < maxLinkExamples {
					merged.Examples = append(merged.Examples, ex)
				}
			}
			drop[i] = i != head
		}
		order[head] = merged
	}

	kept := order[:0]
	for i, g := range order {
		if !drop[i] {
			kept = append(kept, g)
		}
	}
	return kept
}

// pagingKeys are query parameters that enumerate listing pages, not items.
var pagingKeys = map[string]bool{
	"page": true, "p": true, "pg": true, "pageindex": true, "pageno": true,
	"offset": true, "start": true, "sort": true, "order": true,
}

// Shape returns the path (and query) of u with variable segments replaced
// by "*". Query values are shaped the same way, except paging keys, and keys
// are kept sorted.
func Shape(u *url.URL) string {
	segs := strings.Split(u.Path, "/")
	for i, seg := range segs {
		if variable(seg) {
			segs[i] = "*"
		}
	}
	shape := strings.Join(segs, "/")
	if shape == "" {
		shape = "/"
	}

	q := u.Query()
	if len(q) == 0 {
		return shape
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := q.Get(k)
		if variable(v) && !pagingKeys[strings.ToLower(k)] {
			v = "*"
		}
		parts = append(parts, k+"="+v)
	}
	return shape + "?" + strings.Join(parts, "&")
}

func variable(seg string) bool {
	if seg == "" {
		return false
	}
	digits := true
	for _, r := range seg {
		if r < '0' || r > '9' {
			digits = false
			break
		}
	}
	if digits {
		return true
	}
	if len(seg) < 10 {
		return false
	}
	for _, r := range seg {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// detailTemplate picks the most frequent same-host shape with a variable
// part and at least three distinct hrefs. Nil when none qualifies.
func detailTemplate(patterns []LinkPattern, base *url.URL) *LinkPattern {
	if base == nil {
		return nil
	}
	for i := range patterns {
		p := patterns[i]
		if p.Host == base.Host && p.IsTemplate() && p.Distinct >= RepetitionThreshold {
			return &p
		}
	}
	return nil
}
