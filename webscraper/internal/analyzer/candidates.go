package analyzer

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/urlsafe"
)

// walk evaluates sels in order. Every selector with at least one match is
// recorded; the walk stops after the first selector reaching the threshold.
// maxMatches > 0 drops selectors matching more elements than that.
func walk(doc *goquery.Document, base *url.URL, sels []string, maxMatches int) []Candidate {
	var out []Candidate
	for _, sel := range sels {
		found := doc.Find(sel)
		n := found.Length()
		if n == 0 || (maxMatches > 0 && n > maxMatches) {
			continue
		}
		out = append(out, candidate(sel, found, base))
		if n >= RepetitionThreshold {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

func candidate(sel string, found *goquery.Selection, base *url.URL) Candidate {
	c := Candidate{Selector: sel, MatchCount: found.Length()}
	attrs := make(map[string]bool)

	found.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if text := truncate(collapse(s.Text()), 100); text != "" {
			c.SampleTexts = append(c.SampleTexts, text)
		}

		link := s
		if goquery.NodeName(s) != "a" {
			link = s.Find("a[href]").First()
		}
		if href, ok := link.Attr("href"); ok {
			c.HasLink = true
			if c.SampleHref == "" {
				if abs, ok := urlsafe.Resolve(base, href); ok {
					c.SampleHref = abs
				}
			}
		}
		if goquery.NodeName(s) == "img" || s.Find("img").Length() > 0 {
			c.HasImage = true
		}

		for _, at := range s.Nodes[0].Attr {
			if !strings.HasPrefix(at.Key, "data-") || attrs[at.Key] || len(c.DataAttributes) >= maxDataAttrs {
				continue
			}
			attrs[at.Key] = true
			c.DataAttributes = append(c.DataAttributes, at.Key+"="+truncate(at.Val, 80))
		}
		return i+1 < maxSamples
	})

	c.Confidence = Confidence(c)
	return c
}

// Confidence is zero below the repetition threshold. Above it the score
// grows strictly with MatchCount; text and links add fixed bonuses and
// selector specificity shifts it by a constant.
func Confidence(c Candidate) float64 {
	if c.MatchCount < RepetitionThreshold {
		return 0
	}
	n := float64(c.MatchCount)
	score := n / (n + 5)
	if len(c.SampleTexts) > 0 {
		score += 0.2
	}
	if c.HasLink {
		score += 0.2
	}
	score += specificity(c.Selector)
	return score
}

func specificity(sel string) float64 {
	switch {
	case strings.Contains(sel, "*="):
		return -0.1
	case strings.HasPrefix(sel, ".") || strings.HasPrefix(sel, "[role="):
		return 0.1
	default:
		return 0
	}
}

// navTokens mark menus and account links that match card selectors.
var navTokens = []string{"커뮤니티", "가입", "로그인", "새 탭에서 열림", "login", "sign up", "sign in"}

// CardQuality ranks card candidates for extraction: class selectors beat
// attribute wildcards, links and data attributes help, mid-sized groups are
// preferred and navigation-like samples are penalised.
func CardQuality(c Candidate) float64 {
	sel := c.Selector
	score := 0.0
	if strings.HasPrefix(sel, ".") {
		score += 3
	}
	if !strings.Contains(sel, "*") {
		score += 2
	}
	if strings.HasPrefix(sel, "[class*=") {
		score -= 3
	}
	if strings.Contains(sel, "*=") {
		score -= 2
	}

	if c.HasLink {
		score += 1
	}
	if c.HasImage {
		score += 0.5
	}
	if len(c.DataAttributes) > 0 {
		score += 1.5
	}

	switch {
	case c.MatchCount >= 3 && c.MatchCount <= 60:
		score += 1
	case c.MatchCount > 120:
		score -= 1
	}

	if len(c.SampleTexts) > 0 {
		sample := strings.ToLower(c.SampleTexts[0])
		for _, tok := range navTokens {
			if strings.Contains(sample, tok) {
				score -= 4
				break
			}
		}
	}
	return score
}

// BestCard picks the highest CardQuality among repeating candidates, ties
// broken by MatchCount then list order. ok is false when none repeat.
func BestCard(cards []Candidate) (best Candidate, ok bool) {
	bestScore := 0.0
	for _, c := range cards {
		if !c.Repeating() {
			continue
		}
		s := CardQuality(c)
		if !ok || s > bestScore || (s == bestScore && c.MatchCount > best.MatchCount) {
			best, bestScore, ok = c, s, true
		}
	}
	return best, ok
}
