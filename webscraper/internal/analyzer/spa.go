package analyzer

import "strings"

// spaFingerprint is one framework family and the markup tokens that betray it.
type spaFingerprint struct {
	Framework string
	Tokens    []string
}

// SPAFingerprints are checked in order against lowercased markup.
var SPAFingerprints = []spaFingerprint{
	{"React", []string{"data-reactroot", "data-reactid", "react-dom", "__next_data__", `id="__next"`}},
	{"Vue", []string{"data-v-", "__vue__", "nuxt"}},
	{"Angular", []string{"ng-app", "ng-controller", "<app-root", "ng-version"}},
}

// runtimeFrameworks maps rendered-tier globals to framework families.
var runtimeFrameworks = map[string]string{
	"react": "React", "next": "React",
	"vue": "Vue", "nuxt": "Vue",
	"angular": "Angular",
	"svelte":  "Svelte",
}

// spaFramework returns the first matching family, markup before runtime
// globals, or "" when nothing matches.
func spaFramework(raw string, globals []string) string {
	lower := strings.ToLower(raw)
	for _, fp := range SPAFingerprints {
		for _, tok := range fp.Tokens {
			if strings.Contains(lower, tok) {
				return fp.Framework
			}
		}
	}
	for _, g := range globals {
		if fw := runtimeFrameworks[strings.ToLower(g)]; fw != "" {
			return fw
		}
	}
	return ""
}
