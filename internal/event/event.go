// Package event defines the wire-level Event and its processing-time
// augmentation, InternalEvent, per spec §3 and the JSON shape of §6.2.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tornadohq/tornado/internal/value"
)

// Event is the immutable input datum ingested from a collector.
//
// TraceID and Metadata may be omitted on the wire; ParseJSON fills in a
// fresh UUID and an empty object respectively, per §6.2.
type Event struct {
	TraceID    string      `json:"trace_id"`
	Type       string      `json:"type"`
	CreatedMs  int64       `json:"created_ms"`
	Payload    value.Value `json:"payload"`
	Metadata   value.Value `json:"metadata"`
	// ReceivedMs is stamped by ParseJSON on ingestion, distinct from the
	// collector-supplied CreatedMs. It is additive (SPEC_FULL §3) and does
	// not participate in matching; nothing else in the engine reads it.
	ReceivedMs int64 `json:"received_ms"`
}

// wireEvent mirrors the JSON shape of §6.2 for decoding, before defaults
// are applied.
type wireEvent struct {
	TraceID   string      `json:"trace_id"`
	Type      string      `json:"type"`
	CreatedMs int64       `json:"created_ms"`
	Payload   value.Value `json:"payload"`
	Metadata  *value.Value `json:"metadata"`
}

// ParseJSON decodes an Event from its §6.2 wire encoding, supplying a new
// trace id and empty metadata object when the collector omitted them.
func ParseJSON(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, err
	}
	ev := Event{
		TraceID:    w.TraceID,
		Type:       w.Type,
		CreatedMs:  w.CreatedMs,
		Payload:    w.Payload,
		ReceivedMs: time.Now().UnixMilli(),
	}
	if ev.TraceID == "" {
		ev.TraceID = uuid.NewString()
	}
	if w.Metadata != nil {
		ev.Metadata = *w.Metadata
	} else {
		ev.Metadata = value.EmptyObject()
	}
	return ev, nil
}

// InternalEvent augments an Event during rule processing with
// extracted_vars: a rule-qualified namespace written to only by that
// rule's own extractors (§3 invariant). Copies of an InternalEvent share
// one vars map, so a binding recorded by SetVar through any copy is
// visible through all of them, including to later rules of the same
// event that read another rule's namespace. NewInternalEvent allocates
// the map; the zero value has none, and SetVar on it panics.
type InternalEvent struct {
	Event Event
	// vars maps ruleName -> (varName -> Value). Rule-scoped per §3; a
	// rule's own extractors populate this incrementally as they run so
	// later extractors/actions in the *same* rule can see earlier ones.
	vars map[string]map[string]value.Value
}

// NewInternalEvent wraps an Event for processing, with no extracted vars.
func NewInternalEvent(ev Event) InternalEvent {
	return InternalEvent{Event: ev, vars: map[string]map[string]value.Value{}}
}

// SetVar records ruleName's binding for varName, making it visible to
// later accessors evaluated against this same InternalEvent (later
// extractors within the rule, or its actions).
func (e InternalEvent) SetVar(ruleName, varName string, v value.Value) {
	scope, ok := e.vars[ruleName]
	if !ok {
		scope = map[string]value.Value{}
		e.vars[ruleName] = scope
	}
	scope[varName] = v
}

// Var looks up a previously extracted value for (ruleName, varName).
func (e InternalEvent) Var(ruleName, varName string) (value.Value, bool) {
	scope, ok := e.vars[ruleName]
	if !ok {
		return value.Null, false
	}
	v, ok := scope[varName]
	return v, ok
}

// RuleVars returns a snapshot of everything extracted for ruleName, used
// to populate ProcessedEvent's Matched.ExtractedVars.
func (e InternalEvent) RuleVars(ruleName string) map[string]value.Value {
	scope, ok := e.vars[ruleName]
	if !ok {
		return map[string]value.Value{}
	}
	out := make(map[string]value.Value, len(scope))
	for k, v := range scope {
		out[k] = v
	}
	return out
}

// Action is the unit dispatched to an executor: a resolved id + payload,
// correlated to the originating event via TraceID. RuleName/RulesetPath
// are additive tracing fields (SPEC_FULL §3), not part of the dispatch
// contract executors rely on.
type Action struct {
	ID          string         `json:"id"`
	Payload     value.Value    `json:"payload"`
	TraceID     string         `json:"trace_id"`
	RuleName    string         `json:"rule_name,omitempty"`
	RulesetPath string         `json:"ruleset_path,omitempty"`
}
