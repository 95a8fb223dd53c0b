package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"synergy/pkg/agent"
	"synergy/pkg/config"
	"synergy/pkg/interview"
	"synergy/pkg/session"
	"synergy/pkg/tracelog"
	"synergy/pkg/workflow"
)

type echoExecutor struct{}

func (echoExecutor) Execute(_ context.Context, ag *agent.Agent, _, _, _ string) (<-chan agent.Event, error) {
	ch := make(chan agent.Event, 1)
	ch <- agent.Event{Agent: ag.Name, Text: fmt.Sprintf("%s reply", ag.Name), Terminal: true}
	close(ch)
	return ch, nil
}

// recordingExecutor replies like echoExecutor but keeps the messages it was
// asked to run.
type recordingExecutor struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingExecutor) Execute(_ context.Context, ag *agent.Agent, _, _, message string) (<-chan agent.Event, error) {
	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.mu.Unlock()

	ch := make(chan agent.Event, 1)
	ch <- agent.Event{Agent: ag.Name, Text: fmt.Sprintf("%s reply", ag.Name), Terminal: true}
	close(ch)
	return ch, nil
}

func (r *recordingExecutor) first() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[0]
}

type silentExecutor struct{}

func (silentExecutor) Execute(_ context.Context, _ *agent.Agent, _, _, _ string) (<-chan agent.Event, error) {
	ch := make(chan agent.Event)
	close(ch)
	return ch, nil
}

func newTestServer(t *testing.T, exec agent.Executor) *http.ServeMux {
	t.Helper()

	sessions, err := session.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open registry: %v", err)
	}
	t.Cleanup(func() { _ = sessions.Close() })

	traces := tracelog.New(filepath.Join(t.TempDir(), "traces.jsonl"))
	catalog := workflow.NewCatalog()
	runner := workflow.NewRunner(sessions, exec, traces, catalog, 30*time.Second)
	interviews := interview.NewMachine(sessions, exec, catalog, 30*time.Second)

	cfg := config.Default()
	server := NewServer(runner, interviews, traces, cfg)

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	return mux
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func getJSON(t *testing.T, mux *http.ServeMux, path string, dst any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if dst != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
			t.Fatalf("failed to decode %s response: %v", path, err)
		}
	}
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestServer(t, echoExecutor{})

	var resp map[string]string
	rec := getJSON(t, mux, "/health", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp["status"] != "healthy" {
		t.Errorf("expected healthy, got %q", resp["status"])
	}
	if resp["env"] == "" {
		t.Error("expected an env field")
	}
}

func TestTracesEmptyReturnsEmptyList(t *testing.T) {
	mux := newTestServer(t, echoExecutor{})

	rec := getJSON(t, mux, "/traces", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	// The empty case must serialize as an empty array, not null.
	if !strings.Contains(rec.Body.String(), `"traces":[]`) {
		t.Errorf("expected empty traces array, got %s", rec.Body.String())
	}
}

func TestAgentsCatalog(t *testing.T) {
	mux := newTestServer(t, echoExecutor{})

	var resp struct {
		Agents []struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Tools       []string `json:"tools"`
		} `json:"agents"`
	}
	rec := getJSON(t, mux, "/agents", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(resp.Agents) != 6 {
		t.Fatalf("expected 6 agents, got %d", len(resp.Agents))
	}
	if resp.Agents[0].Name != "StudyAgent" {
		t.Errorf("expected StudyAgent first, got %s", resp.Agents[0].Name)
	}
}

func TestQuizEndpoint(t *testing.T) {
	mux := newTestServer(t, echoExecutor{})

	rec := postJSON(t, mux, "/quiz", map[string]any{
		"user_id":    "u1",
		"topic":      "Binary Trees",
		"difficulty": "hard",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp["success"] != true {
		t.Error("expected success true")
	}
	if resp["difficulty"] != "hard" {
		t.Errorf("expected difficulty echoed, got %v", resp["difficulty"])
	}
	if resp["quiz"] == "" {
		t.Error("expected a quiz")
	}
}

func TestQuizMissingTopicIs400(t *testing.T) {
	mux := newTestServer(t, echoExecutor{})

	rec := postJSON(t, mux, "/quiz", map[string]any{"user_id": "u1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "topic") {
		t.Errorf("expected the missing field named, got %s", rec.Body.String())
	}
}

func TestMalformedBodyIs400(t *testing.T) {
	mux := newTestServer(t, echoExecutor{})

	req := httptest.NewRequest(http.MethodPost, "/quiz", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestOrchestrationFailureIs500WithDetail(t *testing.T) {
	mux := newTestServer(t, silentExecutor{})

	rec := postJSON(t, mux, "/daily-plan", map[string]any{
		"user_id": "u1",
		"goals":   "learn Go",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !strings.Contains(resp["detail"], "no response generated") {
		t.Errorf("expected a detail message, got %q", resp["detail"])
	}
}

func TestDailyPlanOmittedStressLevelDefaultsToStressed(t *testing.T) {
	exec := &recordingExecutor{}
	mux := newTestServer(t, exec)

	rec := postJSON(t, mux, "/daily-plan", map[string]any{
		"user_id": "u1",
		"goals":   "learn Go",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(exec.first(), "STRESSED") {
		t.Errorf("omitted stress_level must default to STRESSED, got %q", exec.first())
	}
}

func TestDailyPlanExplicitZeroStressLevelIsRelaxed(t *testing.T) {
	exec := &recordingExecutor{}
	mux := newTestServer(t, exec)

	rec := postJSON(t, mux, "/daily-plan", map[string]any{
		"user_id":      "u1",
		"goals":        "learn Go",
		"stress_level": 0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(exec.first(), "RELAXED") {
		t.Errorf("explicit 0 must map to RELAXED, got %q", exec.first())
	}
}

func TestMockInterviewLifecycle(t *testing.T) {
	mux := newTestServer(t, echoExecutor{})

	rec := postJSON(t, mux, "/mock-interview/start", map[string]any{
		"user_id":       "u1",
		"role":          "Backend Engineer",
		"company":       "Acme",
		"common_topics": []string{"SQL", "APIs"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var start map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &start); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	sessionID, _ := start["session_id"].(string)
	if !strings.HasPrefix(sessionID, "mock_") {
		t.Fatalf("expected mock_ session id, got %q", sessionID)
	}
	if start["response"] == "" {
		t.Error("expected a first question")
	}

	rec = postJSON(t, mux, "/mock-interview/continue", map[string]any{
		"user_id":       "u1",
		"session_id":    sessionID,
		"user_response": "I would use an index.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("continue: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, mux, "/mock-interview/evaluate", map[string]any{
		"user_id":    "u1",
		"session_id": sessionID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("evaluate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var eval map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &eval); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if eval["summary"] == "" {
		t.Error("expected a summary")
	}
}

func TestMockContinueUnknownSessionIs500(t *testing.T) {
	mux := newTestServer(t, echoExecutor{})

	rec := postJSON(t, mux, "/mock-interview/continue", map[string]any{
		"user_id":       "u1",
		"session_id":    "mock_deadbeef",
		"user_response": "hello",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Session error") {
		t.Errorf("expected session error detail, got %s", rec.Body.String())
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	mux := newTestServer(t, echoExecutor{})

	rec := postJSON(t, mux, "/evaluate", map[string]any{
		"user_prompt": "write a haiku",
		"ai_response": "autumn moonlight",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp["evaluation"] == "" {
		t.Error("expected an evaluation verdict")
	}
}

func TestResumeAnalyzeEndpoint(t *testing.T) {
	mux := newTestServer(t, echoExecutor{})

	rec := postJSON(t, mux, "/resume-analyze", map[string]any{
		"user_id":         "u1",
		"resume_text":     "Go engineer, 5 years",
		"job_description": "Backend role",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp["analysis"] == "" {
		t.Error("expected an analysis")
	}
}

func TestTracesAfterRun(t *testing.T) {
	mux := newTestServer(t, echoExecutor{})

	rec := postJSON(t, mux, "/quiz", map[string]any{"user_id": "u1", "topic": "Heaps"})
	if rec.Code != http.StatusOK {
		t.Fatalf("quiz failed: %d", rec.Code)
	}

	var resp struct {
		Traces []tracelog.Record `json:"traces"`
	}
	getJSON(t, mux, "/traces", &resp)
	if len(resp.Traces) != 1 {
		t.Fatalf("expected 1 trace, got %d", len(resp.Traces))
	}
	if resp.Traces[0].Workflow != workflow.NameQuiz {
		t.Errorf("expected quiz workflow trace, got %s", resp.Traces[0].Workflow)
	}
}

func TestDashboardRenders(t *testing.T) {
	mux := newTestServer(t, echoExecutor{})

	rec := getJSON(t, mux, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Synergy") {
		t.Errorf("expected project name in dashboard, got %s", rec.Body.String())
	}
}

func TestGetOnPostRouteIsMethodNotAllowed(t *testing.T) {
	mux := newTestServer(t, echoExecutor{})

	rec := getJSON(t, mux, "/quiz", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
