// CLAUDE:SUMMARY Typed failure taxonomy shared by every tier: policy veto, fetch, parse, empty structure, registry gap.
// Package failure defines the error kinds a webscraper run can produce.
//
// Only KindPolicyBlocked and unrecoverable network failures reach the operator
// as a hard stop. Everything else is absorbed by tier escalation.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindPolicyBlocked            Kind = "policy_blocked"
	KindFetchFailed              Kind = "fetch_failed"
	KindParseFailed              Kind = "parse_failed"
	KindNoStructureFound         Kind = "no_structure_found"
	KindSynthesisTemplateMissing Kind = "synthesis_template_missing"
	KindCanceled                 Kind = "canceled"
)

// Error is a classified failure. Tier is empty for failures outside the ladder.
type Error struct {
	Kind Kind
	Tier string
	URL  string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Tier != "" {
		msg = e.Tier + ": " + msg
	}
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error.
func New(kind Kind, tier, url string, err error) *Error {
	return &Error{Kind: kind, Tier: tier, URL: url, Err: err}
}

// Fetch wraps err as a fetch failure for the given tier.
func Fetch(tier, url string, err error) *Error {
	return New(KindFetchFailed, tier, url, err)
}

// Parse wraps err as a parse failure for the given tier.
func Parse(tier, url string, err error) *Error {
	return New(KindParseFailed, tier, url, err)
}

// Fetchf is Fetch with a formatted cause.
func Fetchf(tier, url, format string, args ...any) *Error {
	return New(KindFetchFailed, tier, url, fmt.Errorf(format, args...))
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Escalates reports whether the failure disqualifies only the current tier.
// Parse failures are treated like fetch failures for escalation purposes.
func Escalates(err error) bool {
	switch KindOf(err) {
	case KindFetchFailed, KindParseFailed, KindNoStructureFound:
		return true
	}
	return false
}
