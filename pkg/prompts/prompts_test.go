package prompts

import (
	"testing"
)

func TestLoadKnownPrompts(t *testing.T) {
	files := []string{
		"daily_planner.yaml",
		"study_research.yaml",
		"study_planner.yaml",
		"job_advisor.yaml",
		"job_web_searcher.yaml",
		"job_coordinator.yaml",
		"wellness.yaml",
		"interview_search.yaml",
		"interview_processor.yaml",
		"interview_planner.yaml",
		"quiz.yaml",
		"interactive_interviewer.yaml",
		"interview_evaluator.yaml",
		"resume.yaml",
		"judge.yaml",
	}
	for _, f := range files {
		if got := Load(f); got == "" {
			t.Errorf("expected non-empty instruction for %s", f)
		}
	}
}

func TestLoadMissingPromptReturnsEmpty(t *testing.T) {
	if got := Load("does_not_exist.yaml"); got != "" {
		t.Errorf("expected empty string for missing prompt, got %q", got)
	}
}
