// Package conversation defines the data contract between the turn manager
// and the context analysis engine: ordered content items with tool-use,
// error, and turn flags.
package conversation

import "time"

// ContentItem is one unit of conversation or tool-execution history:
// a message, a tool call, or a tool result.
//
// Items are owned by the caller. The correlator and bridge builder read them
// for the duration of a single call and never retain or mutate them.
type ContentItem struct {
	// ID uniquely identifies the item within its conversation.
	ID string `json:"id" yaml:"id"`

	// Text is the item's visible content. May be empty.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// HasToolCall is true when the item carries a tool invocation.
	HasToolCall bool `json:"has_tool_call,omitempty" yaml:"has_tool_call,omitempty"`

	// HasToolResult is true when the item carries a tool's output.
	HasToolResult bool `json:"has_tool_result,omitempty" yaml:"has_tool_result,omitempty"`

	// IsError is true when the item reports a failure.
	IsError bool `json:"is_error,omitempty" yaml:"is_error,omitempty"`

	// IsSystem marks system messages (prompts, reminders).
	IsSystem bool `json:"is_system,omitempty" yaml:"is_system,omitempty"`

	// IsCurrentTurn marks items belonging to the in-progress turn.
	IsCurrentTurn bool `json:"is_current_turn,omitempty" yaml:"is_current_turn,omitempty"`

	// Timestamp is when the item was produced. Zero when unknown.
	Timestamp time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// HasToolFlag reports whether the item carries either side of a tool exchange.
func (it ContentItem) HasToolFlag() bool {
	return it.HasToolCall || it.HasToolResult
}

// IndexByID returns a position lookup for the ordered item slice.
// Later duplicates of an ID are ignored; the first occurrence wins.
func IndexByID(items []ContentItem) map[string]int {
	index := make(map[string]int, len(items))
	for i, it := range items {
		if _, exists := index[it.ID]; !exists {
			index[it.ID] = i
		}
	}
	return index
}

// IDSet converts an ID list to a membership set.
func IDSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
