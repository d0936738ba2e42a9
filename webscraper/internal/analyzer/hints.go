package analyzer

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// renderHints lists reasons the markup looks JavaScript-dependent. They
// annotate the report and never drive escalation.
func renderHints(doc *goquery.Document, a *Analysis, shellReasons []string) []string {
	var hints []string
	if a.Features.IsSPA {
		hints = append(hints, "SPA framework fingerprint: "+a.Features.SPAFramework)
	}

	noscript := strings.ToLower(doc.Find("noscript").Text())
	if strings.Contains(noscript, "javascript") || strings.Contains(noscript, "enable") {
		hints = append(hints, "noscript asks to enable JavaScript")
	}

	scripts := doc.Find("script").Length()
	if !a.HasCards() && scripts >= 10 {
		hints = append(hints, fmt.Sprintf("no repeating cards and %d script tags", scripts))
	}
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	if text := len([]rune(collapse(body.Text()))); text < 200 && scripts >= 20 {
		hints = append(hints, fmt.Sprintf("%d visible characters and %d script tags", text, scripts))
	}

	for _, r := range shellReasons {
		hints = append(hints, "static markup: "+r)
	}
	return hints
}
