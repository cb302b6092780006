// Package extractor implements §4.3: regex-based named value extraction
// from an accessor result, written into a rule's extracted_vars.
package extractor

import (
	"fmt"
	"regexp"

	"github.com/tornadohq/tornado/internal/accessor"
	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/value"
)

// RegexSpec is the uncompiled regex configuration of an extractor.
type RegexSpec struct {
	Pattern       string `json:"pattern"`
	GroupMatchIdx int    `json:"group_match_idx"`
	AllMatches    bool   `json:"all_matches"`
}

// Spec is the uncompiled, JSON-decodable configuration of an extractor,
// matching the `{"from": "...", "regex": {...}}` shape referenced by §3.
type Spec struct {
	From  string    `json:"from"`
	Regex RegexSpec `json:"regex"`
}

// Extractor is a compiled extraction rule, ready to run repeatedly.
type Extractor struct {
	name       string
	from       accessor.Accessor
	re         *regexp.Regexp
	groupIdx   int
	allMatches bool
}

// Name returns the extracted_vars key this extractor writes into.
func (e Extractor) Name() string { return e.name }

// Build compiles a named Spec. It fails on a `from` accessor template
// that §4.1's own rules reject, or on a malformed regex pattern (§7
// RegexBuildError).
func Build(name string, spec Spec) (Extractor, error) {
	from, err := accessor.BuildFromTemplate(spec.From)
	if err != nil {
		return Extractor{}, fmt.Errorf("extractor %q: %w", name, err)
	}
	re, err := regexp.Compile(spec.Regex.Pattern)
	if err != nil {
		return Extractor{}, &RegexBuildError{Name: name, Pattern: spec.Regex.Pattern, Cause: err}
	}
	return Extractor{
		name:       name,
		from:       from,
		re:         re,
		groupIdx:   spec.Regex.GroupMatchIdx,
		allMatches: spec.Regex.AllMatches,
	}, nil
}

// ErrNoMatch signals that an extractor failed to produce a value: its
// accessor resolved to a non-string (or None), or the regex found no
// match. The caller (rule evaluation, §4.4) aborts the rule with
// PartiallyMatched(Extractor(name)) when this occurs.
var ErrNoMatch = fmt.Errorf("extractor: no match")

// Extract runs the compiled extractor against an event. On success it
// returns either a String (single match) or an Array of Strings (all
// matches); on failure it returns ErrNoMatch, never a build-shaped error.
func (e Extractor) Extract(ie event.InternalEvent) (value.Value, error) {
	v, ok := e.from.Evaluate(ie)
	if !ok {
		return value.Null, ErrNoMatch
	}
	s, isStr := v.AsString()
	if !isStr {
		return value.Null, ErrNoMatch
	}

	if !e.allMatches {
		m := e.re.FindStringSubmatch(s)
		if m == nil || e.groupIdx >= len(m) {
			return value.Null, ErrNoMatch
		}
		return value.String(m[e.groupIdx]), nil
	}

	matches := e.re.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return value.Null, ErrNoMatch
	}
	captures := make([]value.Value, 0, len(matches))
	for _, m := range matches {
		if e.groupIdx >= len(m) {
			return value.Null, ErrNoMatch
		}
		captures = append(captures, value.String(m[e.groupIdx]))
	}
	return value.Array(captures), nil
}

// RegexBuildError wraps a regexp.Compile failure for a named extractor.
type RegexBuildError struct {
	Name    string
	Pattern string
	Cause   error
}

func (e *RegexBuildError) Error() string {
	return fmt.Sprintf("extractor %q: invalid regex %q: %v", e.Name, e.Pattern, e.Cause)
}

func (e *RegexBuildError) Unwrap() error { return e.Cause }
