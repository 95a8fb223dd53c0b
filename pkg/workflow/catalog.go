package workflow

import (
	"synergy/pkg/agent"
	"synergy/pkg/prompts"
)

// Workflow names as they appear in trace records.
const (
	NameDailyPlan     = "DailyWorkflow"
	NameInterviewPrep = "InterviewWorkflow"
	NameQuiz          = "QuizWorkflow"
	NameJobSearch     = "JobSearchWorkflow"
	NameResume        = "ResumeWorkflow"
	NameQualityJudge  = "QualityJudgeWorkflow"
)

// Catalog holds every agent and workflow composition, built once at startup.
type Catalog struct {
	// Standalone agents used outside workflow runs.
	Interviewer *agent.Agent
	Evaluator   *agent.Agent
	Resume      *agent.Agent
	Judge       *agent.Agent

	DailyPlan     *Workflow
	InterviewPrep *Workflow
	Quiz          *Workflow
	JobSearch     *Workflow
}

// NewCatalog loads agent instructions and assembles the workflow graph.
func NewCatalog() *Catalog {
	studyResearch := &agent.Agent{
		Name:        "StudyResearchAgent",
		Description: "Researches study resources for the user's goals",
		Instruction: prompts.Load("study_research.yaml"),
		OutputKey:   "study_research_output",
		Kind:        agent.StepSearch,
		Tools:       []string{"google_search"},
	}
	studyPlanner := &agent.Agent{
		Name:        "StudyPlannerAgent",
		Description: "Turns research into a structured study plan",
		Instruction: prompts.Load("study_planner.yaml"),
		OutputKey:   "study_plan",
		Kind:        agent.StepStructuring,
		Tools:       []string{"productivity_analyzer"},
	}
	jobAdvisor := &agent.Agent{
		Name:        "JobSearchAgent",
		Description: "Helps with career planning and job search",
		Instruction: prompts.Load("job_advisor.yaml"),
		OutputKey:   "job_plan",
		Kind:        agent.StepSearch,
		Tools:       []string{"google_search"},
	}
	wellness := &agent.Agent{
		Name:        "WellnessAgent",
		Description: "Provides wellness and stress management tips",
		Instruction: prompts.Load("wellness.yaml"),
		OutputKey:   "wellness_plan",
		Kind:        agent.StepFreeform,
		Tools:       []string{"wellness_tips"},
	}
	dailyPlanner := &agent.Agent{
		Name:        "PlannerAgent",
		Description: "Combines all plans into cohesive schedule",
		Instruction: prompts.Load("daily_planner.yaml"),
		OutputKey:   "daily_plan",
		Kind:        agent.StepFreeform,
	}

	interviewSearch := &agent.Agent{
		Name:        "InterviewSearchAgent",
		Description: "Gathers raw company and role research",
		Instruction: prompts.Load("interview_search.yaml"),
		OutputKey:   "raw_interview_research",
		Kind:        agent.StepSearch,
		Tools:       []string{"google_search"},
	}
	interviewProcessor := &agent.Agent{
		Name:        "InterviewProcessorAgent",
		Description: "Distills research into interview focus areas",
		Instruction: prompts.Load("interview_processor.yaml"),
		OutputKey:   "interview_plan",
		Kind:        agent.StepStructuring,
		Tools:       []string{"interview_research"},
	}
	interviewPlanner := &agent.Agent{
		Name:        "InterviewPlannerAgent",
		Description: "Formats the final interview preparation plan",
		Instruction: prompts.Load("interview_planner.yaml"),
		OutputKey:   "final_interview_prep",
		Kind:        agent.StepFreeform,
	}

	quiz := &agent.Agent{
		Name:        "QuizAgent",
		Description: "Generates learning quizzes from topics",
		Instruction: prompts.Load("quiz.yaml"),
		OutputKey:   "quiz_content",
		Kind:        agent.StepFreeform,
		Tools:       []string{"quiz_generator"},
	}

	webSearch := &agent.Agent{
		Name:        "WebSearchAgentSimple",
		Description: "Searches job boards for matching listings",
		Instruction: prompts.Load("job_web_searcher.yaml"),
		OutputKey:   "search_results",
		Kind:        agent.StepSearch,
		Tools:       []string{"google_search"},
	}
	jobCoordinator := &agent.Agent{
		Name:        "JobSearchCoordinatorSimple",
		Description: "Compiles search results into a job report",
		Instruction: prompts.Load("job_coordinator.yaml"),
		OutputKey:   "job_search_report",
		Kind:        agent.StepStructuring,
	}

	c := &Catalog{
		Interviewer: &agent.Agent{
			Name:        "MockInterviewerAgent",
			Description: "Conducts an interactive mock interview",
			Instruction: prompts.Load("interactive_interviewer.yaml"),
			OutputKey:   "interview_transcript_segment",
			Kind:        agent.StepFreeform,
		},
		Evaluator: &agent.Agent{
			Name:        "EvaluatorAgent",
			Description: "Evaluates a completed mock interview transcript",
			Instruction: prompts.Load("interview_evaluator.yaml"),
			OutputKey:   "final_interview_summary",
			Kind:        agent.StepStructuring,
		},
		Resume: &agent.Agent{
			Name:        "ResumeATSAgent",
			Description: "Scores a resume against a job description",
			Instruction: prompts.Load("resume.yaml"),
			OutputKey:   "resume_analysis_report",
			Kind:        agent.StepStructuring,
		},
		Judge: &agent.Agent{
			Name:        "QualityJudgeAgent",
			Description: "Judges the quality of an AI response",
			Instruction: prompts.Load("judge.yaml"),
			OutputKey:   "evaluation_report",
			Kind:        agent.StepStructuring,
		},
	}

	// Daily plan: study chain, job advisor, and wellness fan out in
	// parallel, then the planner merges their outputs. The study chain is
	// flattened into the stage order: its two steps precede the parallel
	// group so the planner sees study_plan alongside the parallel keys.
	c.DailyPlan = &Workflow{
		Name: NameDailyPlan,
		Stages: []StageGroup{
			{Steps: []*agent.Agent{studyResearch}},
			{Steps: []*agent.Agent{studyPlanner}},
			Parallel(jobAdvisor, wellness),
			{Steps: []*agent.Agent{dailyPlanner}},
		},
	}

	c.InterviewPrep = Sequential(NameInterviewPrep, interviewSearch, interviewProcessor, interviewPlanner)
	c.Quiz = Sequential(NameQuiz, quiz)
	c.JobSearch = Sequential(NameJobSearch, webSearch, jobCoordinator)

	return c
}

// AgentList returns the static catalog served by the agents endpoint.
func AgentList() []agent.Agent {
	return []agent.Agent{
		{
			Name:        "StudyAgent",
			Description: "Creates personalized study plans",
			Tools:       []string{"google_search", "productivity_analyzer"},
		},
		{
			Name:        "JobSearchAgent",
			Description: "Helps with career planning and job search",
			Tools:       []string{"google_search"},
		},
		{
			Name:        "WellnessAgent",
			Description: "Provides wellness and stress management tips",
			Tools:       []string{"wellness_tips"},
		},
		{
			Name:        "InterviewAgent",
			Description: "Prepares for company-specific interviews",
			Tools:       []string{"interview_research", "google_search"},
		},
		{
			Name:        "QuizAgent",
			Description: "Generates learning quizzes from topics",
			Tools:       []string{"quiz_generator"},
		},
		{
			Name:        "PlannerAgent",
			Description: "Combines all plans into cohesive schedule",
			Tools:       []string{},
		},
	}
}
