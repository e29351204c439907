package correlate

import (
	"fmt"
	"time"
)

// DependencyKind classifies what a reference's target is needed for.
type DependencyKind string

// Supported dependency kinds.
const (
	KindToolChain           DependencyKind = "tool_chain"
	KindVariable            DependencyKind = "variable"
	KindFile                DependencyKind = "file"
	KindErrorContext        DependencyKind = "error_context"
	KindConversationalFlow  DependencyKind = "conversational_flow"
	KindFunction            DependencyKind = "function"
	KindConceptContinuation DependencyKind = "concept_continuation"
)

// Strength grades how badly a dependency breaks when one side is dropped.
type Strength string

// Reference strengths, weakest to strongest.
const (
	StrengthWeak     Strength = "weak"
	StrengthModerate Strength = "moderate"
	StrengthStrong   Strength = "strong"
	StrengthCritical Strength = "critical"
)

// rank orders strengths for comparison. Unknown strengths rank lowest.
func (s Strength) rank() int {
	switch s {
	case StrengthCritical:
		return 4
	case StrengthStrong:
		return 3
	case StrengthModerate:
		return 2
	case StrengthWeak:
		return 1
	}
	return 0
}

// strengthWeights converts a strength into a scoring multiplier.
var strengthWeights = map[Strength]float64{
	StrengthCritical: 1.0,
	StrengthStrong:   0.75,
	StrengthModerate: 0.5,
	StrengthWeak:     0.25,
}

// StrengthWeight returns the scoring multiplier for a strength grade.
// Unknown strengths weigh zero.
func StrengthWeight(s Strength) float64 {
	return strengthWeights[s]
}

// Reference is a detected link asserting that understanding the source item
// depends on the target item. Immutable after construction.
type Reference struct {
	SourceID      string         `json:"source_id"`
	TargetID      string         `json:"target_id"`
	Kind          DependencyKind `json:"kind"`
	Strength      Strength       `json:"strength"`
	MatchedText   string         `json:"matched_text,omitempty"`
	Confidence    float64        `json:"confidence"`
	Bidirectional bool           `json:"bidirectional,omitempty"`
}

// NewReference constructs a Reference, rejecting out-of-range confidence.
// A confidence outside [0,1] signals a scoring bug upstream.
func NewReference(source, target string, kind DependencyKind, strength Strength, matched string, confidence float64, bidirectional bool) (Reference, error) {
	if confidence < 0 || confidence > 1 {
		return Reference{}, fmt.Errorf("correlate: confidence %v out of range [0,1]", confidence)
	}
	return Reference{
		SourceID:      source,
		TargetID:      target,
		Kind:          kind,
		Strength:      strength,
		MatchedText:   matched,
		Confidence:    confidence,
		Bidirectional: bidirectional,
	}, nil
}

// Touches reports whether the reference has the given id as an endpoint.
func (r Reference) Touches(id string) bool {
	return r.SourceID == id || r.TargetID == id
}

// Describe renders a short human-readable form used in cluster summaries
// and bridge candidate reports.
func (r Reference) Describe() string {
	if r.MatchedText == "" {
		return fmt.Sprintf("%s (%s→%s)", r.Kind, r.SourceID, r.TargetID)
	}
	return fmt.Sprintf("%s: %s (%s→%s)", r.Kind, r.MatchedText, r.SourceID, r.TargetID)
}

// Cluster is a connected group of content ids joined by references of one
// dependency kind. Built by the correlator; immutable afterward.
type Cluster struct {
	ID         string         `json:"id"`
	MemberIDs  []string       `json:"member_ids"`
	Kind       DependencyKind `json:"kind"`
	Strength   Strength       `json:"strength"`
	References []Reference    `json:"references"`
	Summary    string         `json:"summary"`
}

// Contains reports whether the cluster includes the given content id.
func (c Cluster) Contains(id string) bool {
	for _, m := range c.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}

// Stats carries run metadata for one correlation pass.
type Stats struct {
	ReferencesDetected int           `json:"references_detected"`
	ReferencesFiltered int           `json:"references_filtered"`
	Duration           time.Duration `json:"duration_ns"`
}

// Result is the outcome of one correlation run. Produced once, read many
// times; never mutated after Correlate returns.
type Result struct {
	// References are the detected links that survived the confidence filter.
	References []Reference `json:"references"`

	// Clusters groups connected ids per dependency kind.
	Clusters []Cluster `json:"clusters"`

	// IncompleteToolCalls lists ids of tool-call items with no visible
	// result inside the detection window. The external prioritizer uses
	// this to bias retention.
	IncompleteToolCalls []string `json:"incomplete_tool_calls,omitempty"`

	// ItemsProcessed is the input length.
	ItemsProcessed int `json:"items_processed"`

	Stats Stats `json:"stats"`
}

// ReferencesTouching returns the references that have id as an endpoint.
func (r *Result) ReferencesTouching(id string) []Reference {
	var out []Reference
	for _, ref := range r.References {
		if ref.Touches(id) {
			out = append(out, ref)
		}
	}
	return out
}
