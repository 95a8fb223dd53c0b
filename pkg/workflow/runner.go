package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"synergy/pkg/agent"
	"synergy/pkg/logx"
	"synergy/pkg/metrics"
	"synergy/pkg/session"
	"synergy/pkg/tracelog"
)

// ErrNoResponse reports that an executor completed without ever emitting a
// terminal event. Distinct from a collaborator failure.
var ErrNoResponse = errors.New("no response generated")

// Runner dispatches named workflows against user sessions. One Runner is
// constructed at process start and shared by all request handlers.
type Runner struct {
	sessions *session.Registry
	exec     agent.Executor
	traces   *tracelog.Log
	catalog  *Catalog
	timeout  time.Duration
	logger   *logx.Logger
}

// NewRunner wires a dispatcher over the given collaborators. timeout bounds
// each workflow run end to end; zero means no bound.
func NewRunner(sessions *session.Registry, exec agent.Executor, traces *tracelog.Log, catalog *Catalog, timeout time.Duration) *Runner {
	return &Runner{
		sessions: sessions,
		exec:     exec,
		traces:   traces,
		catalog:  catalog,
		timeout:  timeout,
		logger:   logx.NewLogger("workflow"),
	}
}

// Catalog exposes the runner's agent catalog.
func (r *Runner) Catalog() *Catalog {
	return r.catalog
}

// runStep executes one agent and returns its terminal text. The event stream
// closing without a terminal event yields ErrNoResponse.
func (r *Runner) runStep(ctx context.Context, ag *agent.Agent, userID, sessionID, message string) (string, error) {
	events, err := r.exec.Execute(ctx, ag, userID, sessionID, message)
	if err != nil {
		return "", fmt.Errorf("failed to execute agent %s: %w", ag.Name, err)
	}

	var final string
	var terminal bool
	for ev := range events {
		if ev.Err != nil {
			return "", fmt.Errorf("agent %s failed: %w", ag.Name, ev.Err)
		}
		if ev.Terminal {
			final = ev.Text
			terminal = true
		}
	}
	if !terminal {
		return "", ErrNoResponse
	}
	return final, nil
}

// run executes a workflow's stage groups in order. The first stage receives
// message; later stages receive the accumulated output context. Each step's
// terminal text is published under its output key, and the last stage's text
// is the workflow's answer.
//
// Session turns are written only after every stage has succeeded. The
// executor replays session history into each provider call, so writing the
// user turn up front would send the message twice, and writing step outputs
// mid-run would duplicate what the next stage already receives through its
// output context. A failed run leaves the session unchanged.
func (r *Runner) run(ctx context.Context, wf *Workflow, userID, sessionID, message string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.sessions.Ensure(ctx, userID, sessionID); err != nil {
		return "", err
	}

	outputs := make(map[string]string)
	var final string
	var agentTurns []string

	for i, group := range wf.Stages {
		stageMsg := message
		if i > 0 {
			stageMsg = contextMessage(outputs)
		}

		switch len(group.Steps) {
		case 0:
			return "", fmt.Errorf("workflow %s has an empty stage group", wf.Name)
		case 1:
			step := group.Steps[0]
			text, err := r.runStep(ctx, step, userID, sessionID, stageMsg)
			if err != nil {
				return "", err
			}
			outputs[step.OutputKey] = text
			agentTurns = append(agentTurns, text)
			final = text
		default:
			results, err := r.runParallel(ctx, group.Steps, userID, sessionID, stageMsg)
			if err != nil {
				return "", err
			}
			// Record the turns in declaration order so history is stable.
			for _, step := range group.Steps {
				text := results[step.OutputKey]
				outputs[step.OutputKey] = text
				agentTurns = append(agentTurns, text)
				final = text
			}
		}
	}

	if err := r.sessions.AppendTurn(ctx, sessionID, session.RoleUser, message); err != nil {
		return "", err
	}
	for _, text := range agentTurns {
		if err := r.sessions.AppendTurn(ctx, sessionID, session.RoleAgent, text); err != nil {
			return "", err
		}
	}

	return final, nil
}

// runParallel fans a stage group out across goroutines and waits for all of
// them. Steps write distinct output keys so the only shared state is the
// result map, guarded by a mutex. The first failure wins.
func (r *Runner) runParallel(ctx context.Context, steps []*agent.Agent, userID, sessionID, message string) (map[string]string, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	results := make(map[string]string, len(steps))

	for _, step := range steps {
		wg.Add(1)
		go func(step *agent.Agent) {
			defer wg.Done()

			text, err := r.runStep(ctx, step, userID, sessionID, message)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[step.OutputKey] = text
		}(step)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// contextMessage renders prior stage outputs as the next stage's input. Keys
// are sorted so the rendering is deterministic.
func contextMessage(outputs map[string]string) string {
	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s:\n%s\n\n", k, outputs[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// dispatch runs a workflow, recording metrics and a trace record either way,
// and folds any failure into a success flag and error string for the service
// boundary.
func (r *Runner) dispatch(ctx context.Context, wf *Workflow, userID, sessionID, message string) (string, bool, string) {
	start := time.Now()
	text, err := r.run(ctx, wf, userID, sessionID, message)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		r.logger.Warn("workflow %s failed for session %s: %v", wf.Name, sessionID, err)
		metrics.RecordWorkflow(wf.Name, "error", elapsed)
		r.traces.Append(wf.Name, message, err.Error(), tracelog.StatusError)
		return "", false, err.Error()
	}

	r.logger.Info("workflow %s completed for session %s in %.1fs", wf.Name, sessionID, elapsed)
	metrics.RecordWorkflow(wf.Name, "success", elapsed)
	r.traces.Append(wf.Name, message, text, tracelog.StatusSuccess)
	return text, true, ""
}

// DailyPlanResult is the daily planning workflow's outcome.
type DailyPlanResult struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	Plan      string `json:"plan,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RunDailyPlan runs the daily planning workflow. A missing session id gets a
// fresh one; the stress level is translated to its prompt label.
func (r *Runner) RunDailyPlan(ctx context.Context, userID, goals, sessionID string, stressLevel int) DailyPlanResult {
	if sessionID == "" {
		sessionID = session.NewSessionID("session")
	}
	message := fmt.Sprintf("Create a daily plan for these goals: %s and also consider my stress level: %s",
		goals, StressText(stressLevel))

	text, ok, errMsg := r.dispatch(ctx, r.catalog.DailyPlan, userID, sessionID, message)
	if !ok {
		return DailyPlanResult{Error: errMsg}
	}
	return DailyPlanResult{
		Success:   true,
		SessionID: sessionID,
		Plan:      text,
		UserID:    userID,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// InterviewPrepResult is the interview preparation workflow's outcome.
type InterviewPrepResult struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	Plan      string `json:"plan,omitempty"`
	Role      string `json:"role,omitempty"`
	Company   string `json:"company,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RunInterviewPrep runs the three-stage interview preparation workflow.
func (r *Runner) RunInterviewPrep(ctx context.Context, userID, role, company, description string) InterviewPrepResult {
	sessionID := session.NewSessionID("interview")
	message := fmt.Sprintf("Prepare for %s interview at %s", role, company)
	if description != "" {
		message += "\nJob Description: " + description
	}

	text, ok, errMsg := r.dispatch(ctx, r.catalog.InterviewPrep, userID, sessionID, message)
	if !ok {
		return InterviewPrepResult{Error: errMsg}
	}
	return InterviewPrepResult{
		Success:   true,
		SessionID: sessionID,
		Plan:      text,
		Role:      role,
		Company:   company,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// QuizResult is the quiz generation workflow's outcome.
type QuizResult struct {
	Success    bool   `json:"success"`
	SessionID  string `json:"session_id,omitempty"`
	Quiz       string `json:"quiz,omitempty"`
	Topic      string `json:"topic,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RunQuizGeneration runs the single-stage quiz workflow. The difficulty is
// echoed back unchanged after defaulting.
func (r *Runner) RunQuizGeneration(ctx context.Context, userID, topic, notes, difficulty string) QuizResult {
	sessionID := session.NewSessionID("quiz")
	difficulty = NormalizeDifficulty(difficulty)
	message := fmt.Sprintf("topic: %s\nnotes: %s\ndifficulty: %s", topic, notes, difficulty)

	text, ok, errMsg := r.dispatch(ctx, r.catalog.Quiz, userID, sessionID, message)
	if !ok {
		return QuizResult{Error: errMsg}
	}
	return QuizResult{
		Success:    true,
		SessionID:  sessionID,
		Quiz:       text,
		Topic:      topic,
		Difficulty: difficulty,
		Timestamp:  time.Now().Format(time.RFC3339),
	}
}

// JobSearchResult is the quick job search workflow's outcome.
type JobSearchResult struct {
	Success       bool              `json:"success"`
	SessionID     string            `json:"session_id,omitempty"`
	AgentResponse string            `json:"agent_response,omitempty"`
	DirectLinks   map[string]string `json:"direct_links,omitempty"`
	SearchTips    []string          `json:"search_tips,omitempty"`
	Timestamp     string            `json:"timestamp,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// QuickJobSearch runs the job search workflow and attaches locally-built
// board links and search tips alongside the agent's report.
func (r *Runner) QuickJobSearch(ctx context.Context, userID, role, level string, experience int, location string) JobSearchResult {
	sessionID := session.NewSessionID("quick")
	message := fmt.Sprintf(
		"Find %s level %s jobs in %s with %d years of previous experience.\n\n"+
			"Search on:\n- LinkedIn\n- Indeed\n- Glassdoor\n- Naukri (if location is in India)\n\n"+
			"Return specific job listings with links.",
		level, role, location, experience)

	text, ok, errMsg := r.dispatch(ctx, r.catalog.JobSearch, userID, sessionID, message)
	if !ok {
		return JobSearchResult{Error: errMsg}
	}
	return JobSearchResult{
		Success:       true,
		SessionID:     sessionID,
		AgentResponse: text,
		DirectLinks:   DirectJobLinks(role, location),
		SearchTips:    SearchTips(role, level, location),
		Timestamp:     time.Now().Format(time.RFC3339),
	}
}

// ResumeResult is the resume analysis outcome.
type ResumeResult struct {
	Success   bool   `json:"success"`
	Analysis  string `json:"analysis,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RunResumeAnalysis scores resume text against a job description with the
// ATS agent.
func (r *Runner) RunResumeAnalysis(ctx context.Context, userID, resumeText, jobDescription string) ResumeResult {
	sessionID := session.NewSessionID("resume")
	message := fmt.Sprintf("RESUME TEXT:\n%s\n\nJOB DESCRIPTION:\n%s", resumeText, jobDescription)

	wf := Sequential(NameResume, r.catalog.Resume)
	text, ok, errMsg := r.dispatch(ctx, wf, userID, sessionID, message)
	if !ok {
		return ResumeResult{Error: errMsg}
	}
	return ResumeResult{
		Success:   true,
		Analysis:  text,
		SessionID: sessionID,
	}
}

// JudgeResult is the quality judge outcome.
type JudgeResult struct {
	Success    bool   `json:"success"`
	Evaluation string `json:"evaluation,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RunQualityCheck runs a stateless judge pass over a prompt/response pair.
// The session it creates has no persisted relationship to the response's
// origin.
func (r *Runner) RunQualityCheck(ctx context.Context, userPrompt, aiResponse string) JudgeResult {
	sessionID := session.NewSessionID("eval")
	message := fmt.Sprintf("User Prompt: %s\nAI Response: %s", userPrompt, aiResponse)

	wf := Sequential(NameQualityJudge, r.catalog.Judge)
	text, ok, errMsg := r.dispatch(ctx, wf, "evaluator", sessionID, message)
	if !ok {
		return JudgeResult{Error: errMsg}
	}
	return JudgeResult{
		Success:    true,
		Evaluation: text,
	}
}
