package analyzer

import (
	"fmt"

	"github.com/andybalholm/cascadia"
)

func init() {
	for _, list := range [][]string{TabSelectors, CardSelectors, PaginationSelectors, ModalSelectors, InfiniteScrollSelectors, {buttonSelector}} {
		for _, sel := range list {
			if err := ValidSelector(sel); err != nil {
				panic(err)
			}
		}
	}
}

// ValidSelector reports whether sel compiles as a CSS selector group.
func ValidSelector(sel string) error {
	if _, err := cascadia.Compile(sel); err != nil {
		return fmt.Errorf("analyzer: invalid selector %q: %w", sel, err)
	}
	return nil
}
