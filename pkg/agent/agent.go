// Package agent defines agent descriptors and the executor that runs one
// agent call against a session's conversation context.
package agent

import (
	"context"
)

// StepKind is the closed set of workflow step behaviors.
type StepKind int8

const (
	// StepSearch marks agents that gather raw information.
	StepSearch StepKind = iota
	// StepStructuring marks agents that organize another step's output.
	StepStructuring
	// StepFreeform marks agents that generate a final textual artifact.
	StepFreeform
)

// String returns the step kind name.
func (k StepKind) String() string {
	switch k {
	case StepSearch:
		return "search"
	case StepStructuring:
		return "structuring"
	case StepFreeform:
		return "freeform"
	default:
		return "unknown"
	}
}

// Agent describes one LLM step: a fixed instruction, a step kind, and the
// key under which its output is published to later workflow stages.
type Agent struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Instruction string   `json:"-"`
	OutputKey   string   `json:"-"`
	Kind        StepKind `json:"-"`
	Tools       []string `json:"tools"`
}

// Event is one item in an agent execution's event sequence. A terminal event
// carries the agent's final text. An Err event reports a collaborator
// failure; the stream may close without any terminal event.
type Event struct {
	Agent    string
	Text     string
	Terminal bool
	Err      error
}

// Executor runs a single agent against a session and yields its events.
// Implementations must eventually close the returned channel.
type Executor interface {
	Execute(ctx context.Context, ag *Agent, userID, sessionID, message string) (<-chan Event, error)
}
