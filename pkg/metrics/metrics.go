// Package metrics exposes Prometheus counters and histograms for workflow
// and LLM activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowRuns counts workflow invocations by name and outcome.
	WorkflowRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synergy_workflow_runs_total",
			Help: "Total workflow invocations by workflow name and status.",
		},
		[]string{"workflow", "status"},
	)

	// WorkflowDuration tracks end-to-end workflow latency.
	WorkflowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synergy_workflow_duration_seconds",
			Help:    "End-to-end workflow execution time in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"workflow"},
	)

	// LLMRequests counts completion calls by provider and outcome.
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synergy_llm_requests_total",
			Help: "Total LLM completion requests by provider and status.",
		},
		[]string{"provider", "status"},
	)

	// InterviewSessions counts mock interview sessions by lifecycle event.
	InterviewSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synergy_interview_sessions_total",
			Help: "Mock interview session lifecycle events.",
		},
		[]string{"event"},
	)
)

// RecordWorkflow updates the run counter and duration histogram for one
// workflow invocation.
func RecordWorkflow(workflow, status string, seconds float64) {
	WorkflowRuns.WithLabelValues(workflow, status).Inc()
	WorkflowDuration.WithLabelValues(workflow).Observe(seconds)
}

// RecordLLMRequest updates the request counter for one completion call.
func RecordLLMRequest(provider, status string) {
	LLMRequests.WithLabelValues(provider, status).Inc()
}

// WorkflowStat is one workflow's aggregate counters for the dashboard.
type WorkflowStat struct {
	Workflow string  `json:"workflow"`
	Success  float64 `json:"success"`
	Error    float64 `json:"error"`
}

// Summary gathers in-process workflow counters for the dashboard view.
func Summary() ([]WorkflowStat, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*WorkflowStat)
	var order []string
	for _, fam := range families {
		if fam.GetName() != "synergy_workflow_runs_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			var workflow, status string
			for _, lp := range m.GetLabel() {
				switch lp.GetName() {
				case "workflow":
					workflow = lp.GetValue()
				case "status":
					status = lp.GetValue()
				}
			}
			stat, ok := byName[workflow]
			if !ok {
				stat = &WorkflowStat{Workflow: workflow}
				byName[workflow] = stat
				order = append(order, workflow)
			}
			switch status {
			case "error":
				stat.Error += m.GetCounter().GetValue()
			default:
				stat.Success += m.GetCounter().GetValue()
			}
		}
	}

	stats := make([]WorkflowStat, 0, len(order))
	for _, name := range order {
		stats = append(stats, *byName[name])
	}
	return stats, nil
}
