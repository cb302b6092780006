// Package operator implements §4.2: compiling an OperatorSpec (as decoded
// from the §6.3 JSON discriminator shape) into a boolean predicate over
// accessors, and evaluating it against an event.
package operator

import (
	"regexp"
	"strings"

	"github.com/tornadohq/tornado/internal/accessor"
	"github.com/tornadohq/tornado/internal/event"
)

// Kind discriminates the variant held by a Spec/Operator.
type Kind int

const (
	KindAnd Kind = iota
	KindOr
	KindNot
	KindEqual
	KindNotEqual
	KindGreaterEqual
	KindLessEqual
	KindGreater
	KindLess
	KindContains
	KindContainsIgnoreCase
	KindRegex
)

// Operator is a compiled predicate, ready to evaluate repeatedly. And/Or
// short-circuit left-to-right per §4.2; every other variant is a pure
// function of its operands that never fails at evaluation time — type
// mismatches and missing accessor results both resolve to false.
type Operator struct {
	kind     Kind
	children []Operator
	child    *Operator
	a, b     accessor.Accessor
	target   accessor.Accessor
	re       *regexp.Regexp
}

// Build compiles a Spec (see spec.go) into an executable Operator,
// recursively compiling children and accessor operands. Build-time
// failures are malformed regex, an unknown operator type, arity
// mismatches (§4.2), and any error from compiling an accessor operand.
func Build(spec Spec) (Operator, error) {
	switch spec.Kind {
	case KindAnd, KindOr:
		children := make([]Operator, 0, len(spec.Operators))
		for _, child := range spec.Operators {
			compiled, err := Build(child)
			if err != nil {
				return Operator{}, err
			}
			children = append(children, compiled)
		}
		return Operator{kind: spec.Kind, children: children}, nil

	case KindNot:
		if spec.Operand == nil {
			return Operator{}, &ArityMismatchError{Type: "NOT", Detail: "missing operand"}
		}
		compiled, err := Build(*spec.Operand)
		if err != nil {
			return Operator{}, err
		}
		return Operator{kind: KindNot, child: &compiled}, nil

	case KindEqual, KindNotEqual, KindGreaterEqual, KindLessEqual, KindGreater, KindLess:
		a, err := accessor.Build(spec.First)
		if err != nil {
			return Operator{}, err
		}
		b, err := accessor.Build(spec.Second)
		if err != nil {
			return Operator{}, err
		}
		return Operator{kind: spec.Kind, a: a, b: b}, nil

	case KindContains, KindContainsIgnoreCase:
		a, err := accessor.Build(spec.Text)
		if err != nil {
			return Operator{}, err
		}
		b, err := accessor.Build(spec.Substring)
		if err != nil {
			return Operator{}, err
		}
		return Operator{kind: spec.Kind, a: a, b: b}, nil

	case KindRegex:
		re, err := regexp.Compile(spec.Regex)
		if err != nil {
			return Operator{}, &RegexBuildError{Pattern: spec.Regex, Cause: err}
		}
		target, err := accessor.Build(spec.Target)
		if err != nil {
			return Operator{}, err
		}
		return Operator{kind: KindRegex, re: re, target: target}, nil

	default:
		return Operator{}, &UnknownOperatorError{Type: spec.RawType}
	}
}

// Evaluate runs the compiled predicate against an event. It never fails:
// a None from an accessor, a type mismatch between operands, or an
// unrecognized internal state all resolve to false rather than erroring.
func (o Operator) Evaluate(ie event.InternalEvent) bool {
	switch o.kind {
	case KindAnd:
		for _, c := range o.children {
			if !c.Evaluate(ie) {
				return false
			}
		}
		return true

	case KindOr:
		for _, c := range o.children {
			if c.Evaluate(ie) {
				return true
			}
		}
		return false

	case KindNot:
		if o.child == nil {
			return false
		}
		return !o.child.Evaluate(ie)

	case KindEqual:
		av, aok := o.a.Evaluate(ie)
		bv, bok := o.b.Evaluate(ie)
		if !aok || !bok {
			return false
		}
		return av.Equal(bv)

	case KindNotEqual:
		av, aok := o.a.Evaluate(ie)
		bv, bok := o.b.Evaluate(ie)
		if !aok || !bok {
			return false
		}
		return !av.Equal(bv)

	case KindGreaterEqual, KindLessEqual, KindGreater, KindLess:
		return o.evaluateOrdering(ie)

	case KindContains:
		as, bs, ok := o.bothStrings(ie)
		if !ok {
			return false
		}
		return strings.Contains(as, bs)

	case KindContainsIgnoreCase:
		as, bs, ok := o.bothStrings(ie)
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(as), strings.ToLower(bs))

	case KindRegex:
		tv, ok := o.target.Evaluate(ie)
		if !ok {
			return false
		}
		ts, isStr := tv.AsString()
		if !isStr {
			return false
		}
		return o.re.MatchString(ts)

	default:
		return false
	}
}

func (o Operator) bothStrings(ie event.InternalEvent) (string, string, bool) {
	av, aok := o.a.Evaluate(ie)
	bv, bok := o.b.Evaluate(ie)
	if !aok || !bok {
		return "", "", false
	}
	as, aIsStr := av.AsString()
	bs, bIsStr := bv.AsString()
	if !aIsStr || !bIsStr {
		return "", "", false
	}
	return as, bs, true
}

// evaluateOrdering implements ge/le/gt/lt: both sides must resolve to
// numbers, or both to strings, or the comparison is false (§4.2).
func (o Operator) evaluateOrdering(ie event.InternalEvent) bool {
	av, aok := o.a.Evaluate(ie)
	bv, bok := o.b.Evaluate(ie)
	if !aok || !bok {
		return false
	}

	if an, aIsNum := av.AsNumber(); aIsNum {
		if bn, bIsNum := bv.AsNumber(); bIsNum {
			return compareOrdering(o.kind, an < bn, an == bn)
		}
		return false
	}

	as, aIsStr := av.AsString()
	bs, bIsStr := bv.AsString()
	if aIsStr && bIsStr {
		return compareOrdering(o.kind, as < bs, as == bs)
	}
	return false
}

func compareOrdering(kind Kind, less, equal bool) bool {
	switch kind {
	case KindGreaterEqual:
		return !less
	case KindLessEqual:
		return less || equal
	case KindGreater:
		return !less && !equal
	case KindLess:
		return less
	default:
		return false
	}
}
