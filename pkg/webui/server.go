// Package webui exposes the HTTP surface: workflow endpoints, the mock
// interview state machine, observability routes, and a small dashboard.
package webui

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"synergy/pkg/config"
	"synergy/pkg/interview"
	"synergy/pkg/logx"
	"synergy/pkg/metrics"
	"synergy/pkg/resume"
	"synergy/pkg/tracelog"
	"synergy/pkg/workflow"
)

//go:embed web/templates/*.html
var templateFS embed.FS

// traceWindow is how many records the traces endpoint returns.
const traceWindow = 10

// Server is the web server. One instance is constructed at startup with its
// collaborators injected so tests can substitute fakes.
type Server struct {
	runner     *workflow.Runner
	interviews *interview.Machine
	traces     *tracelog.Log
	cfg        config.Config
	templates  *template.Template
	logger     *logx.Logger
}

// NewServer wires the HTTP layer over the orchestration collaborators.
func NewServer(runner *workflow.Runner, interviews *interview.Machine, traces *tracelog.Log, cfg config.Config) *Server {
	templates, err := template.ParseFS(templateFS, "web/templates/*.html")
	if err != nil {
		// Templates are embedded at compile time.
		panic(fmt.Sprintf("failed to parse embedded templates: %v", err))
	}

	return &Server{
		runner:     runner,
		interviews: interviews,
		traces:     traces,
		cfg:        cfg,
		templates:  templates,
		logger:     logx.NewLogger("webui"),
	}
}

// RegisterRoutes attaches all handlers to the mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleDashboard)

	mux.HandleFunc("/daily-plan", s.handleDailyPlan)
	mux.HandleFunc("/interview-prep", s.handleInterviewPrep)
	mux.HandleFunc("/quiz", s.handleQuiz)
	mux.HandleFunc("/job-search", s.handleJobSearch)

	mux.HandleFunc("/mock-interview/start", s.handleMockStart)
	mux.HandleFunc("/mock-interview/continue", s.handleMockContinue)
	mux.HandleFunc("/mock-interview/end", s.handleMockEnd)
	mux.HandleFunc("/mock-interview/evaluate", s.handleMockEvaluate)
	mux.HandleFunc("/mock-interview/reset", s.handleMockReset)

	mux.HandleFunc("/resume-analyze", s.handleResumeAnalyze)
	mux.HandleFunc("/resume-analyze-file", s.handleResumeAnalyzeFile)
	mux.HandleFunc("/evaluate", s.handleEvaluate)

	mux.HandleFunc("/traces", s.handleTraces)
	mux.HandleFunc("/agents", s.handleAgents)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.Handle("/metrics", promhttp.Handler())
}

// writeJSON sends v as a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeDetail sends an error payload in the {"detail": message} shape.
func (s *Server) writeDetail(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"detail": message}); err != nil {
		s.logger.Error("failed to encode error response: %v", err)
	}
}

// decodeBody parses the request body into dst. A malformed body is a client
// error, reported as 400.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeDetail(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

type field struct {
	name  string
	value string
}

// requireFields checks that the named fields are non-empty, reporting the
// first missing one as 400.
func (s *Server) requireFields(w http.ResponseWriter, fields ...field) bool {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			s.writeDetail(w, http.StatusBadRequest, "missing required field: "+f.name)
			return false
		}
	}
	return true
}

type dailyPlanRequest struct {
	UserID    string `json:"user_id"`
	Goals     string `json:"goals"`
	SessionID string `json:"session_id"`
	// Pointer so an omitted field is distinguishable from an explicit 0.
	StressLevel *int `json:"stress_level"`
}

func (s *Server) handleDailyPlan(w http.ResponseWriter, r *http.Request) {
	var req dailyPlanRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !s.requireFields(w, field{"user_id", req.UserID}, field{"goals", req.Goals}) {
		return
	}

	stressLevel := 1
	if req.StressLevel != nil {
		stressLevel = *req.StressLevel
	}

	result := s.runner.RunDailyPlan(r.Context(), req.UserID, req.Goals, req.SessionID, stressLevel)
	if !result.Success {
		s.writeDetail(w, http.StatusInternalServerError, result.Error)
		return
	}
	s.writeJSON(w, result)
}

type interviewPrepRequest struct {
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	Company     string `json:"company"`
	Description string `json:"description"`
}

func (s *Server) handleInterviewPrep(w http.ResponseWriter, r *http.Request) {
	var req interviewPrepRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !s.requireFields(w, field{"user_id", req.UserID}, field{"role", req.Role}, field{"company", req.Company}) {
		return
	}

	result := s.runner.RunInterviewPrep(r.Context(), req.UserID, req.Role, req.Company, req.Description)
	if !result.Success {
		s.writeDetail(w, http.StatusInternalServerError, result.Error)
		return
	}
	s.writeJSON(w, result)
}

type quizRequest struct {
	UserID     string `json:"user_id"`
	Topic      string `json:"topic"`
	Notes      string `json:"notes"`
	Difficulty string `json:"difficulty"`
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !s.requireFields(w, field{"user_id", req.UserID}, field{"topic", req.Topic}) {
		return
	}

	result := s.runner.RunQuizGeneration(r.Context(), req.UserID, req.Topic, req.Notes, req.Difficulty)
	if !result.Success {
		s.writeDetail(w, http.StatusInternalServerError, result.Error)
		return
	}
	s.writeJSON(w, result)
}

type jobSearchRequest struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	Level      string `json:"level"`
	Experience int    `json:"experience"`
	Location   string `json:"location"`
}

func (s *Server) handleJobSearch(w http.ResponseWriter, r *http.Request) {
	var req jobSearchRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !s.requireFields(w, field{"user_id", req.UserID}, field{"role", req.Role}, field{"level", req.Level}) {
		return
	}

	result := s.runner.QuickJobSearch(r.Context(), req.UserID, req.Role, req.Level, req.Experience, req.Location)
	if !result.Success {
		s.writeDetail(w, http.StatusInternalServerError, result.Error)
		return
	}
	s.writeJSON(w, result)
}

type mockStartRequest struct {
	UserID       string   `json:"user_id"`
	Role         string   `json:"role"`
	Company      string   `json:"company"`
	CommonTopics []string `json:"common_topics"`
}

func (s *Server) handleMockStart(w http.ResponseWriter, r *http.Request) {
	var req mockStartRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !s.requireFields(w, field{"user_id", req.UserID}, field{"role", req.Role}, field{"company", req.Company}) {
		return
	}

	result := s.interviews.Start(r.Context(), req.UserID, req.Role, req.Company, req.CommonTopics)
	if !result.Success {
		s.writeDetail(w, http.StatusInternalServerError, result.Error)
		return
	}
	s.writeJSON(w, result)
}

type mockContinueRequest struct {
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`
	UserResponse string `json:"user_response"`
}

func (s *Server) handleMockContinue(w http.ResponseWriter, r *http.Request) {
	var req mockContinueRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !s.requireFields(w, field{"user_id", req.UserID}, field{"session_id", req.SessionID}, field{"user_response", req.UserResponse}) {
		return
	}

	result := s.interviews.Continue(r.Context(), req.UserID, req.SessionID, req.UserResponse)
	if !result.Success {
		s.writeDetail(w, http.StatusInternalServerError, result.Error)
		return
	}
	s.writeJSON(w, result)
}

type mockSessionRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleMockEnd(w http.ResponseWriter, r *http.Request) {
	var req mockSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !s.requireFields(w, field{"session_id", req.SessionID}) {
		return
	}

	result := s.interviews.End(r.Context(), req.SessionID)
	if !result.Success {
		s.writeDetail(w, http.StatusInternalServerError, result.Error)
		return
	}
	s.writeJSON(w, result)
}

func (s *Server) handleMockEvaluate(w http.ResponseWriter, r *http.Request) {
	var req mockSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !s.requireFields(w, field{"user_id", req.UserID}, field{"session_id", req.SessionID}) {
		return
	}

	result := s.interviews.Evaluate(r.Context(), req.UserID, req.SessionID)
	if !result.Success {
		s.writeDetail(w, http.StatusInternalServerError, result.Error)
		return
	}
	s.writeJSON(w, result)
}

func (s *Server) handleMockReset(w http.ResponseWriter, r *http.Request) {
	var req mockSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !s.requireFields(w, field{"session_id", req.SessionID}) {
		return
	}

	result := s.interviews.Reset(r.Context(), req.SessionID)
	if !result.Success {
		s.writeDetail(w, http.StatusInternalServerError, result.Error)
		return
	}
	s.writeJSON(w, result)
}

type resumeAnalyzeRequest struct {
	UserID         string `json:"user_id"`
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description"`
}

func (s *Server) handleResumeAnalyze(w http.ResponseWriter, r *http.Request) {
	var req resumeAnalyzeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !s.requireFields(w, field{"user_id", req.UserID}, field{"resume_text", req.ResumeText}, field{"job_description", req.JobDescription}) {
		return
	}

	result := s.runner.RunResumeAnalysis(r.Context(), req.UserID, req.ResumeText, req.JobDescription)
	if !result.Success {
		s.writeDetail(w, http.StatusInternalServerError, result.Error)
		return
	}
	s.writeJSON(w, result)
}

// handleResumeAnalyzeFile accepts a multipart resume upload, extracts its
// text, and runs the same analysis as the JSON endpoint.
func (s *Server) handleResumeAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(resume.MaxUploadBytes); err != nil {
		s.writeDetail(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	userID := r.FormValue("user_id")
	jobDescription := r.FormValue("job_description")
	if !s.requireFields(w, field{"user_id", userID}, field{"job_description", jobDescription}) {
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		s.writeDetail(w, http.StatusBadRequest, "missing resume file: "+err.Error())
		return
	}
	defer func() { _ = file.Close() }()

	text, err := resume.ExtractText(file, header.Filename)
	if err != nil {
		s.writeDetail(w, http.StatusBadRequest, "failed to extract resume text: "+err.Error())
		return
	}

	result := s.runner.RunResumeAnalysis(r.Context(), userID, text, jobDescription)
	if !result.Success {
		s.writeDetail(w, http.StatusInternalServerError, result.Error)
		return
	}
	s.writeJSON(w, result)
}

type evaluateRequest struct {
	UserPrompt string `json:"user_prompt"`
	AIResponse string `json:"ai_response"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !s.requireFields(w, field{"user_prompt", req.UserPrompt}, field{"ai_response", req.AIResponse}) {
		return
	}

	result := s.runner.RunQualityCheck(r.Context(), req.UserPrompt, req.AIResponse)
	if !result.Success {
		s.writeDetail(w, http.StatusInternalServerError, result.Error)
		return
	}
	s.writeJSON(w, result)
}

func (s *Server) handleTraces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := s.traces.Recent(traceWindow)
	if err != nil {
		s.logger.Error("failed to read traces: %v", err)
		s.writeDetail(w, http.StatusInternalServerError, "failed to read traces")
		return
	}
	s.writeJSON(w, map[string][]tracelog.Record{"traces": records})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]any{"agents": workflow.AgentList()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]string{
		"status": "healthy",
		"env":    s.cfg.AppEnv,
	})
}

// handleLogs serves the in-memory log buffer for the dashboard log view.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string][]logx.Entry{"logs": logx.RecentEntries(100)})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	stats, err := metrics.Summary()
	if err != nil {
		s.logger.Error("failed to gather metrics: %v", err)
		stats = nil
	}
	traces, err := s.traces.Recent(traceWindow)
	if err != nil {
		s.logger.Error("failed to read traces for dashboard: %v", err)
	}

	data := map[string]any{
		"Title":     s.cfg.ProjectName,
		"Env":       s.cfg.AppEnv,
		"Workflows": stats,
		"Traces":    traces,
		"Agents":    workflow.AgentList(),
	}
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.logger.Error("failed to render dashboard: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
