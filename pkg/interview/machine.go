// Package interview implements the interactive mock-interview state machine.
//
// A session moves through ready -> interviewing -> evaluating -> finished.
// Every transition that contacts an agent either fully succeeds (state
// advanced, turns appended) or leaves the session unchanged with an error.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"synergy/pkg/agent"
	"synergy/pkg/logx"
	"synergy/pkg/metrics"
	"synergy/pkg/session"
	"synergy/pkg/workflow"
)

// ValidTransitions defines allowed stage transitions for each stage.
var ValidTransitions = map[session.Stage][]session.Stage{
	session.StageReady:        {session.StageInterviewing},
	session.StageInterviewing: {session.StageInterviewing, session.StageEvaluating},
	session.StageEvaluating:   {session.StageFinished},
	session.StageFinished:     {session.StageReady},
}

// IsValidTransition checks whether a stage transition is allowed.
func IsValidTransition(from, to session.Stage) bool {
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// endCue is matched case-insensitively against interviewer replies. Detection
// is advisory: it sets a flag on the result so a client can offer evaluation,
// but only an explicit End or Evaluate call changes the stage.
const endCue = "final question"

// evaluatePrompt asks the evaluator to summarize the accumulated transcript.
const evaluatePrompt = "Please generate the final evaluation and summary based on the conversation history."

// Machine drives mock-interview sessions through their stages.
type Machine struct {
	sessions *session.Registry
	exec     agent.Executor

	interviewer *agent.Agent
	evaluator   *agent.Agent

	timeout time.Duration
	logger  *logx.Logger
}

// NewMachine builds a state machine over the session registry and executor,
// using the catalog's interviewer and evaluator agents.
func NewMachine(sessions *session.Registry, exec agent.Executor, catalog *workflow.Catalog, timeout time.Duration) *Machine {
	return &Machine{
		sessions:    sessions,
		exec:        exec,
		interviewer: catalog.Interviewer,
		evaluator:   catalog.Evaluator,
		timeout:     timeout,
		logger:      logx.NewLogger("interview"),
	}
}

// Result is the outcome of one state machine operation.
type Result struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	Response  string `json:"response,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Stage     string `json:"stage,omitempty"`
	// CueDetected reports that the interviewer's reply mentioned a final
	// question. Advisory only.
	CueDetected bool   `json:"cue_detected,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (m *Machine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(ctx, m.timeout)
	}
	return context.WithCancel(ctx)
}

// callAgent runs one agent against the session and returns its terminal
// text. A stream that closes without a terminal event is a failure.
func (m *Machine) callAgent(ctx context.Context, ag *agent.Agent, userID, sessionID, message string) (string, error) {
	events, err := m.exec.Execute(ctx, ag, userID, sessionID, message)
	if err != nil {
		return "", err
	}

	var final string
	var terminal bool
	for ev := range events {
		if ev.Err != nil {
			return "", ev.Err
		}
		if ev.Terminal {
			final = ev.Text
			terminal = true
		}
	}
	if !terminal {
		return "", workflow.ErrNoResponse
	}
	return final, nil
}

// Start creates a fresh session, seeds it with the role and company context,
// and asks the interviewer for the opening question.
func (m *Machine) Start(ctx context.Context, userID, role, company string, commonTopics []string) Result {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	sessionID := session.NewSessionID("mock")
	if err := m.sessions.Ensure(ctx, userID, sessionID); err != nil {
		return Result{Error: err.Error()}
	}
	if err := m.sessions.SetStage(ctx, sessionID, session.StageReady); err != nil {
		return Result{Error: err.Error()}
	}

	seed := fmt.Sprintf("START INTERVIEW for Role: %s, Company: %s. Topics for context: %s",
		role, company, strings.Join(commonTopics, ", "))

	reply, err := m.callAgent(ctx, m.interviewer, userID, sessionID, seed)
	if err != nil {
		m.logger.Warn("failed to start interview for user %s: %v", userID, err)
		return Result{Error: "Failed to initialize interview: " + err.Error()}
	}

	if err := m.sessions.AppendTurn(ctx, sessionID, session.RoleSystem, seed); err != nil {
		return Result{Error: err.Error()}
	}
	if err := m.sessions.AppendTurn(ctx, sessionID, session.RoleAgent, reply); err != nil {
		return Result{Error: err.Error()}
	}
	if err := m.sessions.SetStage(ctx, sessionID, session.StageInterviewing); err != nil {
		return Result{Error: err.Error()}
	}

	metrics.InterviewSessions.WithLabelValues("started").Inc()
	return Result{
		Success:   true,
		SessionID: sessionID,
		Response:  reply,
		Stage:     string(session.StageInterviewing),
	}
}

// Continue sends the user's answer to the interviewer and returns the next
// question. The session stays in interviewing; a detected end cue is
// reported but does not change the stage.
func (m *Machine) Continue(ctx context.Context, userID, sessionID, userResponse string) Result {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	stage, err := m.sessions.GetStage(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return Result{Error: "Session error or completion"}
	}
	if err != nil {
		return Result{Error: err.Error()}
	}
	if stage != session.StageInterviewing {
		return Result{Error: fmt.Sprintf("session %s is not in an active interview (stage %q)", sessionID, stage)}
	}

	reply, err := m.callAgent(ctx, m.interviewer, userID, sessionID, userResponse)
	if err != nil {
		m.logger.Warn("interview continue failed for session %s: %v", sessionID, err)
		return Result{Error: "Session error or completion"}
	}

	if err := m.sessions.AppendTurn(ctx, sessionID, session.RoleUser, userResponse); err != nil {
		return Result{Error: err.Error()}
	}
	if err := m.sessions.AppendTurn(ctx, sessionID, session.RoleAgent, reply); err != nil {
		return Result{Error: err.Error()}
	}

	return Result{
		Success:     true,
		SessionID:   sessionID,
		Response:    reply,
		Stage:       string(session.StageInterviewing),
		CueDetected: strings.Contains(strings.ToLower(reply), endCue),
	}
}

// End moves an active interview to evaluating without contacting any agent.
func (m *Machine) End(ctx context.Context, sessionID string) Result {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	stage, err := m.sessions.GetStage(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return Result{Error: "Session error or completion"}
	}
	if err != nil {
		return Result{Error: err.Error()}
	}
	if !IsValidTransition(stage, session.StageEvaluating) {
		return Result{Error: fmt.Sprintf("cannot end interview from stage %q", stage)}
	}

	if err := m.sessions.SetStage(ctx, sessionID, session.StageEvaluating); err != nil {
		return Result{Error: err.Error()}
	}
	return Result{
		Success:   true,
		SessionID: sessionID,
		Stage:     string(session.StageEvaluating),
	}
}

// Evaluate runs the evaluator over the full transcript and finishes the
// session. Calling it from interviewing first performs the end transition.
// On evaluator failure the session stays in evaluating so the call can be
// retried.
func (m *Machine) Evaluate(ctx context.Context, userID, sessionID string) Result {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	stage, err := m.sessions.GetStage(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return Result{Error: "Evaluation failed or session not found"}
	}
	if err != nil {
		return Result{Error: err.Error()}
	}

	switch stage {
	case session.StageInterviewing:
		if err := m.sessions.SetStage(ctx, sessionID, session.StageEvaluating); err != nil {
			return Result{Error: err.Error()}
		}
	case session.StageEvaluating:
		// Retry after a failed evaluation.
	default:
		return Result{Error: fmt.Sprintf("cannot evaluate from stage %q", stage)}
	}

	summary, err := m.callAgent(ctx, m.evaluator, userID, sessionID, evaluatePrompt)
	if err != nil {
		m.logger.Warn("evaluation failed for session %s: %v", sessionID, err)
		return Result{Error: "Evaluation failed or session not found"}
	}

	if err := m.sessions.AppendTurn(ctx, sessionID, session.RoleEvaluation, summary); err != nil {
		return Result{Error: err.Error()}
	}
	if err := m.sessions.SetStage(ctx, sessionID, session.StageFinished); err != nil {
		return Result{Error: err.Error()}
	}

	metrics.InterviewSessions.WithLabelValues("evaluated").Inc()
	return Result{
		Success:   true,
		SessionID: sessionID,
		Summary:   summary,
		Stage:     string(session.StageFinished),
	}
}

// Reset returns a finished session to ready. The session itself is
// abandoned; the next Start generates a fresh session id.
func (m *Machine) Reset(ctx context.Context, sessionID string) Result {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	stage, err := m.sessions.GetStage(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return Result{Error: "Session error or completion"}
	}
	if err != nil {
		return Result{Error: err.Error()}
	}
	if !IsValidTransition(stage, session.StageReady) {
		return Result{Error: fmt.Sprintf("cannot reset from stage %q", stage)}
	}

	if err := m.sessions.SetStage(ctx, sessionID, session.StageReady); err != nil {
		return Result{Error: err.Error()}
	}
	return Result{
		Success:   true,
		SessionID: sessionID,
		Stage:     string(session.StageReady),
	}
}
