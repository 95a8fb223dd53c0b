package interview

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"synergy/pkg/agent"
	"synergy/pkg/session"
	"synergy/pkg/workflow"
)

// scriptedExecutor replies with canned texts in order. An empty script entry
// closes the stream without a terminal event.
type scriptedExecutor struct {
	replies []string
	idx     int
	err     error
}

func (s *scriptedExecutor) Execute(_ context.Context, ag *agent.Agent, _, _, _ string) (<-chan agent.Event, error) {
	ch := make(chan agent.Event, 1)
	if s.err != nil {
		ch <- agent.Event{Agent: ag.Name, Err: s.err}
		close(ch)
		return ch, nil
	}

	reply := "Tell me about yourself."
	if s.idx < len(s.replies) {
		reply = s.replies[s.idx]
		s.idx++
	}
	if reply != "" {
		ch <- agent.Event{Agent: ag.Name, Text: reply, Terminal: true}
	}
	close(ch)
	return ch, nil
}

func newTestMachine(t *testing.T, exec agent.Executor) (*Machine, *session.Registry) {
	t.Helper()
	sessions, err := session.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open registry: %v", err)
	}
	t.Cleanup(func() { _ = sessions.Close() })
	return NewMachine(sessions, exec, workflow.NewCatalog(), 30*time.Second), sessions
}

func TestTransitionTableDirections(t *testing.T) {
	allowed := []struct{ from, to session.Stage }{
		{session.StageReady, session.StageInterviewing},
		{session.StageInterviewing, session.StageInterviewing},
		{session.StageInterviewing, session.StageEvaluating},
		{session.StageEvaluating, session.StageFinished},
		{session.StageFinished, session.StageReady},
	}
	for _, tr := range allowed {
		if !IsValidTransition(tr.from, tr.to) {
			t.Errorf("expected %s -> %s to be valid", tr.from, tr.to)
		}
	}

	forbidden := []struct{ from, to session.Stage }{
		{session.StageReady, session.StageEvaluating},
		{session.StageReady, session.StageFinished},
		{session.StageEvaluating, session.StageInterviewing},
		{session.StageEvaluating, session.StageReady},
		{session.StageFinished, session.StageInterviewing},
		{session.StageFinished, session.StageEvaluating},
	}
	for _, tr := range forbidden {
		if IsValidTransition(tr.from, tr.to) {
			t.Errorf("expected %s -> %s to be invalid", tr.from, tr.to)
		}
	}
}

func TestStartCreatesInterviewingSession(t *testing.T) {
	m, sessions := newTestMachine(t, &scriptedExecutor{replies: []string{"Q1: what is a goroutine?"}})

	result := m.Start(context.Background(), "u1", "Backend Engineer", "Acme", []string{"SQL", "APIs"})
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Response == "" {
		t.Error("expected a first question")
	}

	pattern := regexp.MustCompile(`^mock_[0-9a-f]{8}$`)
	if !pattern.MatchString(result.SessionID) {
		t.Errorf("session id %q does not match mock_[0-9a-f]{8}", result.SessionID)
	}

	stage, err := sessions.GetStage(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("get stage failed: %v", err)
	}
	if stage != session.StageInterviewing {
		t.Errorf("expected interviewing, got %q", stage)
	}

	history, err := sessions.History(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected system seed plus agent reply, got %d turns", len(history))
	}
	if history[0].Role != session.RoleSystem || !strings.Contains(history[0].Text, "Acme") {
		t.Errorf("expected seed turn with company, got %+v", history[0])
	}
	if history[1].Role != session.RoleAgent {
		t.Errorf("expected agent turn, got %q", history[1].Role)
	}
}

func TestStartFailureLeavesNoPartialState(t *testing.T) {
	m, sessions := newTestMachine(t, &scriptedExecutor{err: errors.New("provider down")})

	result := m.Start(context.Background(), "u1", "SRE", "Acme", nil)
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.SessionID != "" {
		history, err := sessions.History(context.Background(), result.SessionID)
		if err == nil && len(history) > 0 {
			t.Errorf("expected no turns after failed start, got %d", len(history))
		}
	}
}

func TestContinueAppendsOneUserOneAgentTurn(t *testing.T) {
	exec := &scriptedExecutor{replies: []string{"Q1", "Q2", "Q3"}}
	m, sessions := newTestMachine(t, exec)

	start := m.Start(context.Background(), "u1", "SRE", "Acme", []string{"SQL"})
	if !start.Success {
		t.Fatalf("start failed: %q", start.Error)
	}

	for i, answer := range []string{"answer one", "answer two"} {
		result := m.Continue(context.Background(), "u1", start.SessionID, answer)
		if !result.Success {
			t.Fatalf("continue %d failed: %q", i, result.Error)
		}
		if result.Response == "" {
			t.Errorf("continue %d: expected a next question", i)
		}
	}

	history, err := sessions.History(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	// seed + Q1 + (user, agent) x 2
	if len(history) != 6 {
		t.Fatalf("expected 6 turns, got %d", len(history))
	}
	wantRoles := []string{
		session.RoleSystem, session.RoleAgent,
		session.RoleUser, session.RoleAgent,
		session.RoleUser, session.RoleAgent,
	}
	for i, want := range wantRoles {
		if history[i].Role != want {
			t.Errorf("turn %d: expected role %q, got %q", i, want, history[i].Role)
		}
	}
	if history[2].Text != "answer one" || history[4].Text != "answer two" {
		t.Errorf("user answers recorded out of order: %q, %q", history[2].Text, history[4].Text)
	}
}

func TestContinueUnknownSession(t *testing.T) {
	m, _ := newTestMachine(t, &scriptedExecutor{})

	result := m.Continue(context.Background(), "u1", "mock_deadbeef", "hello")
	if result.Success {
		t.Fatal("expected failure for unknown session")
	}
	if !strings.Contains(result.Error, "Session error") {
		t.Errorf("expected a session error message, got %q", result.Error)
	}
}

func TestEndCueIsAdvisoryOnly(t *testing.T) {
	exec := &scriptedExecutor{replies: []string{"Q1", "This is your FINAL question: why Go?"}}
	m, sessions := newTestMachine(t, exec)

	start := m.Start(context.Background(), "u1", "SRE", "Acme", nil)
	if !start.Success {
		t.Fatalf("start failed: %q", start.Error)
	}

	result := m.Continue(context.Background(), "u1", start.SessionID, "an answer")
	if !result.Success {
		t.Fatalf("continue failed: %q", result.Error)
	}
	if !result.CueDetected {
		t.Error("expected the final-question cue to be flagged")
	}

	// The cue never changes the stage on its own.
	stage, err := sessions.GetStage(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("get stage failed: %v", err)
	}
	if stage != session.StageInterviewing {
		t.Errorf("expected interviewing after cue, got %q", stage)
	}
}

func TestEndTransitionsToEvaluating(t *testing.T) {
	m, sessions := newTestMachine(t, &scriptedExecutor{replies: []string{"Q1"}})

	start := m.Start(context.Background(), "u1", "SRE", "Acme", nil)
	if !start.Success {
		t.Fatalf("start failed: %q", start.Error)
	}

	result := m.End(context.Background(), start.SessionID)
	if !result.Success {
		t.Fatalf("end failed: %q", result.Error)
	}

	stage, err := sessions.GetStage(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("get stage failed: %v", err)
	}
	if stage != session.StageEvaluating {
		t.Errorf("expected evaluating, got %q", stage)
	}
}

func TestEvaluateFinishesSession(t *testing.T) {
	exec := &scriptedExecutor{replies: []string{"Q1", "Strong answers overall. 8/10."}}
	m, sessions := newTestMachine(t, exec)

	start := m.Start(context.Background(), "u1", "SRE", "Acme", nil)
	if !start.Success {
		t.Fatalf("start failed: %q", start.Error)
	}

	result := m.Evaluate(context.Background(), "u1", start.SessionID)
	if !result.Success {
		t.Fatalf("evaluate failed: %q", result.Error)
	}
	if result.Summary == "" {
		t.Error("expected a summary")
	}

	stage, err := sessions.GetStage(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("get stage failed: %v", err)
	}
	if stage != session.StageFinished {
		t.Errorf("expected finished, got %q", stage)
	}

	history, err := sessions.History(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	last := history[len(history)-1]
	if last.Role != session.RoleEvaluation {
		t.Errorf("expected trailing evaluation turn, got %q", last.Role)
	}
}

func TestEvaluateFailureStaysEvaluatingAndIsRetryable(t *testing.T) {
	exec := &scriptedExecutor{replies: []string{"Q1", ""}}
	m, sessions := newTestMachine(t, exec)

	start := m.Start(context.Background(), "u1", "SRE", "Acme", nil)
	if !start.Success {
		t.Fatalf("start failed: %q", start.Error)
	}

	// Evaluator produces no terminal event: the session must stay in
	// evaluating, with no evaluation turn appended.
	result := m.Evaluate(context.Background(), "u1", start.SessionID)
	if result.Success {
		t.Fatal("expected evaluation failure")
	}
	stage, err := sessions.GetStage(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("get stage failed: %v", err)
	}
	if stage != session.StageEvaluating {
		t.Errorf("expected evaluating after failed evaluation, got %q", stage)
	}

	// A retry from evaluating succeeds and finishes.
	exec.replies = append(exec.replies, "Good interview.")
	retry := m.Evaluate(context.Background(), "u1", start.SessionID)
	if !retry.Success {
		t.Fatalf("retry failed: %q", retry.Error)
	}
	stage, err = sessions.GetStage(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("get stage failed: %v", err)
	}
	if stage != session.StageFinished {
		t.Errorf("expected finished after retry, got %q", stage)
	}
}

func TestEvaluateUnknownSession(t *testing.T) {
	m, _ := newTestMachine(t, &scriptedExecutor{})

	result := m.Evaluate(context.Background(), "u1", "mock_deadbeef")
	if result.Success {
		t.Fatal("expected failure for unknown session")
	}
}

func TestFinishedOnlyAllowsReset(t *testing.T) {
	exec := &scriptedExecutor{replies: []string{"Q1", "Summary."}}
	m, sessions := newTestMachine(t, exec)

	start := m.Start(context.Background(), "u1", "SRE", "Acme", nil)
	if !start.Success {
		t.Fatalf("start failed: %q", start.Error)
	}
	if result := m.Evaluate(context.Background(), "u1", start.SessionID); !result.Success {
		t.Fatalf("evaluate failed: %q", result.Error)
	}

	// Continue, end, and evaluate are all rejected from finished.
	if result := m.Continue(context.Background(), "u1", start.SessionID, "hi"); result.Success {
		t.Error("continue should fail from finished")
	}
	if result := m.End(context.Background(), start.SessionID); result.Success {
		t.Error("end should fail from finished")
	}
	if result := m.Evaluate(context.Background(), "u1", start.SessionID); result.Success {
		t.Error("evaluate should fail from finished")
	}

	reset := m.Reset(context.Background(), start.SessionID)
	if !reset.Success {
		t.Fatalf("reset failed: %q", reset.Error)
	}
	stage, err := sessions.GetStage(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("get stage failed: %v", err)
	}
	if stage != session.StageReady {
		t.Errorf("expected ready after reset, got %q", stage)
	}
}

func TestResetRequiresFinished(t *testing.T) {
	m, _ := newTestMachine(t, &scriptedExecutor{replies: []string{"Q1"}})

	start := m.Start(context.Background(), "u1", "SRE", "Acme", nil)
	if !start.Success {
		t.Fatalf("start failed: %q", start.Error)
	}

	if result := m.Reset(context.Background(), start.SessionID); result.Success {
		t.Error("reset should fail while interviewing")
	}
}
