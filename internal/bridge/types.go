package bridge

import (
	"fmt"
	"time"
)

// Type classifies what a bridge preserves across its gap.
type Type string

// Bridge types by descending selection priority.
const (
	TypeToolChain      Type = "tool_chain"
	TypeErrorContext   Type = "error_context"
	TypeReference      Type = "reference"
	TypeConversational Type = "conversational"
	TypeSummary        Type = "summary"
)

// typePriority is the base component of bridge priority per type.
var typePriority = map[Type]int{
	TypeToolChain:      90,
	TypeErrorContext:   80,
	TypeReference:      70,
	TypeConversational: 40,
	TypeSummary:        30,
}

// Strategy is the caller-selected aggressiveness profile.
type Strategy string

// Supported strategies.
const (
	StrategyConservative   Strategy = "conservative"
	StrategyModerate       Strategy = "moderate"
	StrategyAggressive     Strategy = "aggressive"
	StrategyDependencyOnly Strategy = "dependency_only"
)

// candidateCaps limits how many candidates each strategy bridges per run.
var candidateCaps = map[Strategy]int{
	StrategyConservative:   3,
	StrategyModerate:       6,
	StrategyAggressive:     10,
	StrategyDependencyOnly: 5,
}

// tokenCaps limits the per-bridge token cost per strategy.
var tokenCaps = map[Strategy]int{
	StrategyConservative:   100,
	StrategyModerate:       150,
	StrategyAggressive:     200,
	StrategyDependencyOnly: 80,
}

// ParseStrategy converts a config or request string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyConservative, StrategyModerate, StrategyAggressive, StrategyDependencyOnly:
		return Strategy(s), nil
	case "":
		return "", fmt.Errorf("bridge: empty strategy")
	}
	return "", fmt.Errorf("bridge: unknown strategy %q", s)
}

// ContextBridge is synthetic placeholder text inserted in place of a gap to
// keep a detected dependency readable. Immutable after construction.
type ContextBridge struct {
	// ID uniquely identifies the bridge.
	ID string `json:"id"`

	// Type is the bridge's content category.
	Type Type `json:"type"`

	// SourceIDs are the dropped ids the bridge stands in for.
	SourceIDs []string `json:"source_ids"`

	// TargetIDs are the retained anchors on either side of the gap. The
	// context assembler splices the bridge between them.
	TargetIDs []string `json:"target_ids"`

	// Content is the synthesized placeholder text.
	Content string `json:"content"`

	// PreservedReferences describes the dependency links the bridge keeps
	// visible.
	PreservedReferences []string `json:"preserved_references,omitempty"`

	// Confidence in [0,1] grades how well the bridge restores the gap's
	// meaning.
	Confidence float64 `json:"confidence"`

	// TokenCost is the estimated token footprint of Content.
	TokenCost int `json:"token_cost"`

	// Priority in [1,100] orders bridges for the assembler.
	Priority int `json:"priority"`
}

// NewBridge constructs a ContextBridge, rejecting out-of-range confidence,
// negative token cost, and out-of-range priority. Violations signal an
// upstream scoring bug and are not recoverable at runtime.
func NewBridge(id string, typ Type, sourceIDs, targetIDs []string, content string, preserved []string, confidence float64, tokenCost, priority int) (ContextBridge, error) {
	if confidence < 0 || confidence > 1 {
		return ContextBridge{}, fmt.Errorf("bridge: confidence %v out of range [0,1]", confidence)
	}
	if tokenCost < 0 {
		return ContextBridge{}, fmt.Errorf("bridge: negative token cost %d", tokenCost)
	}
	if priority < 1 || priority > 100 {
		return ContextBridge{}, fmt.Errorf("bridge: priority %d out of range [1,100]", priority)
	}
	return ContextBridge{
		ID:                  id,
		Type:                typ,
		SourceIDs:           sourceIDs,
		TargetIDs:           targetIDs,
		Content:             content,
		PreservedReferences: preserved,
		Confidence:          confidence,
		TokenCost:           tokenCost,
		Priority:            priority,
	}, nil
}

// Stats carries run metadata for one bridging pass.
type Stats struct {
	CandidatesFound     int           `json:"candidates_found"`
	CandidatesGenerated int           `json:"candidates_generated"`
	Duration            time.Duration `json:"duration_ns"`
}

// BridgingResult is the outcome of one bridging run: the bridges (sorted by
// priority, descending), coverage sets, and cost totals.
type BridgingResult struct {
	// Bridges in descending priority order.
	Bridges []ContextBridge `json:"bridges"`

	// BridgedIDs are the dropped ids covered by some bridge.
	BridgedIDs []string `json:"bridged_ids,omitempty"`

	// PreservedIDs are the ids considered preserved because of bridging:
	// bridged ids plus bridge anchors.
	PreservedIDs []string `json:"preserved_ids,omitempty"`

	// TotalTokenCost sums the token cost of all bridges.
	TotalTokenCost int `json:"total_token_cost"`

	// GapsFilled counts bridges whose type is not summary.
	GapsFilled int `json:"gaps_filled"`

	// Strategy is the profile the run used.
	Strategy Strategy `json:"strategy"`

	// PreservationScore is the fraction of critical/strong references whose
	// endpoints survive retention or bridging. See Builder.
	PreservationScore float64 `json:"preservation_score"`

	Stats Stats `json:"stats"`
}
