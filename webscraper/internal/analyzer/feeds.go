package analyzer

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/urlsafe"
)

// maxFeedLinks caps the alternate links tried from one page.
const maxFeedLinks = 3

// FeedLinks returns up to three absolute feed URLs advertised by
// <link rel="alternate"> with an RSS, Atom or XML type.
func FeedLinks(doc *goquery.Document, base *url.URL) []string {
	var out []string
	seen := make(map[string]bool)
	doc.Find("link[rel='alternate'][href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		typ := strings.ToLower(s.AttrOr("type", ""))
		if !strings.Contains(typ, "rss") && !strings.Contains(typ, "atom") && !strings.Contains(typ, "xml") {
			return true
		}
		abs, ok := urlsafe.Resolve(base, s.AttrOr("href", ""))
		if !ok || seen[abs] {
			return true
		}
		seen[abs] = true
		out = append(out, abs)
		return len(out) < maxFeedLinks
	})
	return out
}
