// Package validator implements §4.5: structural validation of a
// MatcherConfig tree before it is compiled into a Matcher.
package validator

import (
	"fmt"
	"regexp"

	"github.com/tornadohq/tornado/internal/matcherconfig"
)

// identifierPattern is the `^[a-zA-Z_][a-zA-Z0-9_]*$` identifier grammar
// shared by Filter names, Ruleset names, rule names, node-map keys,
// extracted-var names, and action ids.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate walks a MatcherConfig tree and returns every structural
// violation found, aggregated rather than stopping at the first one.
// A nil root is trivially valid.
func Validate(root *matcherconfig.Node) Errors {
	if root == nil {
		return nil
	}
	var errs Errors
	validateNode(root, "root", &errs)
	return errs
}

func validateNode(n *matcherconfig.Node, path string, errs *Errors) {
	if !identifierPattern.MatchString(n.Name) {
		*errs = append(*errs, &NotValidIdOrNameError{Path: path, Value: n.Name})
	}

	switch n.Kind {
	case matcherconfig.KindFilter:
		validateFilter(n, path, errs)
	case matcherconfig.KindRuleset:
		validateRuleset(n, path, errs)
	}
}

func validateFilter(n *matcherconfig.Node, path string, errs *Errors) {
	for _, name := range n.NodeOrder {
		if name == "" {
			*errs = append(*errs, &NotValidIdOrNameError{Path: path, Value: name})
			continue
		}
		if !identifierPattern.MatchString(name) {
			*errs = append(*errs, &NotValidIdOrNameError{Path: path, Value: name})
		}
	}
	for _, child := range n.OrderedChildren() {
		validateNode(child, fmt.Sprintf("%s.nodes[%s]", path, child.Name), errs)
	}
}

func validateRuleset(n *matcherconfig.Node, path string, errs *Errors) {
	seen := make(map[string]bool, len(n.Rules))
	for i, rule := range n.Rules {
		rulePath := fmt.Sprintf("%s.rules[%d]", path, i)

		if !identifierPattern.MatchString(rule.Name) {
			*errs = append(*errs, &NotValidIdOrNameError{Path: rulePath, Value: rule.Name})
		} else if seen[rule.Name] {
			*errs = append(*errs, &NotUniqueRuleNameError{Path: path, Name: rule.Name})
		}
		seen[rule.Name] = true

		validateConstraint(rule.Constraint, rulePath, errs)

		for _, action := range rule.Actions {
			if !identifierPattern.MatchString(action.ID) {
				*errs = append(*errs, &NotValidIdOrNameError{Path: rulePath + ".actions", Value: action.ID})
			}
		}
	}
}

func validateConstraint(c matcherconfig.Constraint, path string, errs *Errors) {
	for _, name := range c.WithOrder {
		if !identifierPattern.MatchString(name) {
			*errs = append(*errs, &NotValidIdOrNameError{Path: path + ".constraint.with", Value: name})
		}
	}
}
