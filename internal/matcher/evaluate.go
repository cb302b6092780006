package matcher

import (
	"fmt"

	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/matcherconfig"
)

// Process walks the compiled tree depth-first against ie, per §4.4's
// evaluate step. includeMetadata controls whether per-node traces are
// attached, for the send_event preview path; production dispatch should
// pass false.
func (t *Tree) Process(ie event.InternalEvent, includeMetadata bool) ProcessedEvent {
	return ProcessedEvent{Root: evalNode(t.root, t.rootPath, ie, includeMetadata)}
}

func evalNode(n *compiledNode, path string, ie event.InternalEvent, trace bool) *ProcessedNode {
	switch n.kind {
	case matcherconfig.KindFilter:
		return evalFilter(n, path, ie, trace)
	case matcherconfig.KindRuleset:
		return evalRuleset(n, path, ie, trace)
	default:
		return &ProcessedNode{Kind: NodeRuleset, Name: n.name}
	}
}

func evalFilter(n *compiledNode, path string, ie event.InternalEvent, trace bool) *ProcessedNode {
	out := &ProcessedNode{Kind: NodeFilter, Name: n.name}

	if n.filter != nil {
		matched := n.filter.Evaluate(ie)
		out.FilterMatched = &matched
		if trace {
			out.Trace = fmt.Sprintf("filter %s: %v", n.name, matched)
		}
		if !matched {
			for _, child := range n.children {
				out.Children = append(out.Children, notProcessedSubtree(child))
			}
			return out
		}
	}

	for _, child := range n.children {
		out.Children = append(out.Children, evalNode(child, path+"."+child.name, ie, trace))
	}
	return out
}

// notProcessedSubtree marks a whole subtree NotProcessed without
// evaluating anything in it, used when an ancestor Filter ruled it out.
func notProcessedSubtree(n *compiledNode) *ProcessedNode {
	out := &ProcessedNode{Kind: n.kind, Name: n.name}
	switch n.kind {
	case matcherconfig.KindFilter:
		for _, child := range n.children {
			out.Children = append(out.Children, notProcessedSubtree(child))
		}
	case matcherconfig.KindRuleset:
		for _, rule := range n.rules {
			out.Rules = append(out.Rules, RuleResult{Name: rule.name, Status: RuleStatus{Kind: NotProcessed}})
		}
	}
	return out
}

func evalRuleset(n *compiledNode, path string, ie event.InternalEvent, trace bool) *ProcessedNode {
	out := &ProcessedNode{Kind: NodeRuleset, Name: n.name}
	stopped := false

	for _, rule := range n.rules {
		if stopped {
			out.Rules = append(out.Rules, RuleResult{Name: rule.name, Status: RuleStatus{Kind: NotProcessed}})
			continue
		}

		status := evalRule(rule, path, ie)
		out.Rules = append(out.Rules, RuleResult{Name: rule.name, Status: status})

		if status.Kind == Matched && !rule.doContinue {
			stopped = true
		}
	}
	return out
}

func evalRule(rule compiledRule, path string, ie event.InternalEvent) RuleStatus {
	if rule.where != nil && !rule.where.Evaluate(ie) {
		return RuleStatus{Kind: NotMatched, Reason: ReasonWhere}
	}

	for _, entry := range rule.extractors {
		v, err := entry.ex.Extract(ie)
		if err != nil {
			return RuleStatus{Kind: PartiallyMatched, FailedExtractor: entry.name}
		}
		ie.SetVar(rule.name, entry.name, v)
	}

	actions := make([]event.Action, len(rule.actions))
	for i, ca := range rule.actions {
		a := ca.resolve(ie)
		a.RuleName = rule.name
		a.RulesetPath = path
		actions[i] = a
	}

	return RuleStatus{
		Kind:          Matched,
		ExtractedVars: ie.RuleVars(rule.name),
		Actions:       actions,
	}
}
