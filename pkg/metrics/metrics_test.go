package metrics

import (
	"testing"
)

func TestSummaryAggregatesWorkflowRuns(t *testing.T) {
	RecordWorkflow("TestSummaryWorkflow", "success", 1.5)
	RecordWorkflow("TestSummaryWorkflow", "success", 0.5)
	RecordWorkflow("TestSummaryWorkflow", "error", 2.0)

	stats, err := Summary()
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}

	var found *WorkflowStat
	for i := range stats {
		if stats[i].Workflow == "TestSummaryWorkflow" {
			found = &stats[i]
			break
		}
	}
	if found == nil {
		t.Fatal("expected workflow in summary")
	}
	if found.Success < 2 {
		t.Errorf("expected at least 2 successes, got %v", found.Success)
	}
	if found.Error < 1 {
		t.Errorf("expected at least 1 error, got %v", found.Error)
	}
}

func TestRecordLLMRequest(t *testing.T) {
	// Smoke test: must not panic with fresh label values.
	RecordLLMRequest("google", "success")
	RecordLLMRequest("google", "error")
}
