package fetcher

import (
	"bytes"
	"strings"
)

// shellIndicators are empty mount points and noscript notices left by
// client-rendered apps.
var shellIndicators = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
	`<div id="__nuxt"></div>`,
	`<app-root></app-root>`,
	"<noscript>you need to enable javascript",
	"<noscript>enable javascript",
}

// ShellReasons lists why body looks like a client-rendered shell rather than
// content. Empty means the static markup is probably enough.
func ShellReasons(body []byte) []string {
	if len(body) < 256 {
		return []string{"document shorter than 256 bytes"}
	}

	var reasons []string
	text, markup := textMarkupRatio(body)
	if total := text + markup; total > 0 && float64(text)/float64(total) < 0.10 {
		reasons = append(reasons, "text/markup ratio below 10%")
	}
	if text < 200 {
		reasons = append(reasons, "less than 200 visible text characters")
	}

	lower := bytes.ToLower(body)
	for _, ind := range shellIndicators {
		if bytes.Contains(lower, []byte(strings.ToLower(ind))) {
			reasons = append(reasons, "shell marker "+ind)
		}
	}
	return reasons
}

// IsSufficient reports whether body has enough content to skip a browser.
func IsSufficient(body []byte) bool {
	return len(ShellReasons(body)) == 0
}

// textMarkupRatio approximates visible text bytes vs markup bytes. Script and
// style bodies count as markup.
func textMarkupRatio(html []byte) (text, markup int) {
	s := string(html)
	lower := lowerASCII(s)
	inTag := false
	for i := 0; i < len(s); {
		ch := s[i]
		if ch == '<' {
			if n := rawElementLen(lower[i:]); n > 0 {
				markup += n
				i += n
				continue
			}
			inTag = true
			markup++
			i++
			continue
		}
		if ch == '>' {
			inTag = false
			markup++
			i++
			continue
		}
		if inTag {
			markup++
		} else if ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
			text++
		}
		i++
	}
	return text, markup
}

// rawElementLen returns the byte length of a <script> or <style> element
// starting at lower[0], through its closing tag. Zero when lower does not
// start one. lower must already be ASCII-lowercased.
func rawElementLen(lower string) int {
	head := lower[:min(len(lower), 7)]
	for _, name := range []string{"script", "style"} {
		if !strings.HasPrefix(head, "<"+name) {
			continue
		}
		end := strings.Index(lower, "</"+name)
		if end == -1 {
			return len(lower)
		}
		gt := strings.IndexByte(lower[end:], '>')
		if gt == -1 {
			return len(lower)
		}
		return end + gt + 1
	}
	return 0
}

// lowerASCII lowercases A-Z only, keeping byte offsets stable.
func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
