package matcher

import (
	"fmt"

	"github.com/tornadohq/tornado/internal/extractor"
	"github.com/tornadohq/tornado/internal/matcherconfig"
	"github.com/tornadohq/tornado/internal/operator"
)

// compiledNode is one node of the immutable MatcherTree produced by
// Compile. Unlike matcherconfig.Node it carries compiled operators,
// extractors, and action templates rather than their specs.
type compiledNode struct {
	kind matcherconfig.NodeKind
	name string

	// Filter fields.
	filter   *operator.Operator
	children []*compiledNode

	// Ruleset fields.
	rules []compiledRule
}

type compiledRule struct {
	name       string
	doContinue bool
	where      *operator.Operator
	extractors []compiledExtractorEntry
	actions    []compiledAction
}

type compiledExtractorEntry struct {
	name string
	ex   extractor.Extractor
}

// Tree is the compiled, immutable result of Compile. It is safe for
// concurrent use by any number of MatcherActor workers (§5): evaluation
// never mutates it.
type Tree struct {
	root     *compiledNode
	rootPath string
}

// Root returns a display name for the compiled tree's root node, used in
// ProcessedEvent paths and logging.
func (t *Tree) Root() string { return t.rootPath }

// Compile walks a validated MatcherConfig tree and produces an immutable
// Tree plus every compile-time error encountered (malformed regex, bad
// accessor template, unknown operator type), aggregated rather than
// stopping at the first failure, per §4.4's compile step.
func Compile(root *matcherconfig.Node) (*Tree, []error) {
	if root == nil {
		return nil, []error{fmt.Errorf("matcher: cannot compile a nil config")}
	}
	var errs []error
	cn := compileNode(root, root.Name, &errs)
	if len(errs) > 0 {
		return nil, errs
	}
	return &Tree{root: cn, rootPath: root.Name}, nil
}

func compileNode(n *matcherconfig.Node, path string, errs *[]error) *compiledNode {
	out := &compiledNode{kind: n.Kind, name: n.Name}

	switch n.Kind {
	case matcherconfig.KindFilter:
		if n.Filter != nil {
			op, err := operator.Build(*n.Filter)
			if err != nil {
				*errs = append(*errs, fmt.Errorf("%s: filter: %w", path, err))
			} else {
				out.filter = &op
			}
		}
		for _, child := range n.OrderedChildren() {
			out.children = append(out.children, compileNode(child, path+"."+child.Name, errs))
		}

	case matcherconfig.KindRuleset:
		for _, rule := range n.Rules {
			if !rule.Active {
				continue
			}
			cr, err := compileRule(rule)
			if err != nil {
				*errs = append(*errs, fmt.Errorf("%s.%s: %w", path, rule.Name, err))
				continue
			}
			out.rules = append(out.rules, cr)
		}
	}
	return out
}

func compileRule(rule matcherconfig.Rule) (compiledRule, error) {
	cr := compiledRule{name: rule.Name, doContinue: rule.DoContinue}

	if rule.Constraint.Where != nil {
		op, err := operator.Build(*rule.Constraint.Where)
		if err != nil {
			return compiledRule{}, fmt.Errorf("where: %w", err)
		}
		cr.where = &op
	}

	for _, pair := range rule.Constraint.OrderedWith() {
		ex, err := extractor.Build(pair.Name, pair.Spec)
		if err != nil {
			return compiledRule{}, fmt.Errorf("extractor %q: %w", pair.Name, err)
		}
		cr.extractors = append(cr.extractors, compiledExtractorEntry{name: pair.Name, ex: ex})
	}

	for _, action := range rule.Actions {
		ca, err := compileAction(action.ID, action.Payload)
		if err != nil {
			return compiledRule{}, fmt.Errorf("action %q: %w", action.ID, err)
		}
		cr.actions = append(cr.actions, ca)
	}

	return cr, nil
}
