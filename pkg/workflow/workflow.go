// Package workflow composes agents into named sequential/parallel stage
// graphs and runs them against user sessions.
package workflow

import (
	"synergy/pkg/agent"
)

// StageGroup is one ordered stage of a workflow. A group with one step runs
// alone; a group with several steps fans out concurrently, each step writing
// its own output key.
type StageGroup struct {
	Steps []*agent.Agent
}

// Workflow is a named, static composition of agent steps. Groups execute
// strictly in order; steps within a group must not depend on each other's
// output.
type Workflow struct {
	Name   string
	Stages []StageGroup
}

// Sequential builds a workflow where each agent is its own stage.
func Sequential(name string, steps ...*agent.Agent) *Workflow {
	stages := make([]StageGroup, 0, len(steps))
	for _, s := range steps {
		stages = append(stages, StageGroup{Steps: []*agent.Agent{s}})
	}
	return &Workflow{Name: name, Stages: stages}
}

// Parallel builds a single stage group fanning out over the given agents.
func Parallel(steps ...*agent.Agent) StageGroup {
	return StageGroup{Steps: steps}
}
