package workflow

import (
	"fmt"
	"strings"
)

// StressText maps a numeric stress level to its prompt-context label.
// Unknown levels fall back to STRESSED.
func StressText(level int) string {
	switch level {
	case 0:
		return "RELAXED"
	case 1:
		return "STRESSED"
	case 2:
		return "ANXIOUS"
	case 3:
		return "OVERWHELMED"
	default:
		return "STRESSED"
	}
}

// NormalizeDifficulty defaults an empty difficulty to medium. Any supplied
// value passes through unchanged so callers see their input echoed back.
func NormalizeDifficulty(difficulty string) string {
	if difficulty == "" {
		return "medium"
	}
	return difficulty
}

// DirectJobLinks builds search URLs for the major job boards.
func DirectJobLinks(role, location string) map[string]string {
	roleSlug := strings.ReplaceAll(role, " ", "+")
	locationSlug := strings.ReplaceAll(location, " ", "+")
	roleDash := strings.ReplaceAll(role, " ", "-")
	locationDash := strings.ReplaceAll(location, " ", "-")

	indeed := fmt.Sprintf("https://indeed.com/q-%s", roleDash)
	if location != "" {
		indeed += "-" + locationDash
	}
	indeed += "-jobs.html"

	naukri := fmt.Sprintf("https://naukri.com/%s-jobs", roleDash)
	if location != "" {
		naukri += "-in-" + locationDash
	}

	return map[string]string{
		"LinkedIn":  fmt.Sprintf("https://linkedin.com/jobs/search/?keywords=%s&location=%s", roleSlug, locationSlug),
		"Indeed":    indeed,
		"Glassdoor": fmt.Sprintf("https://glassdoor.com/Job/%s-jobs.htm", roleDash),
		"Naukri":    naukri,
	}
}

// SearchTips returns practical search guidance for a role and location.
func SearchTips(role, level, location string) []string {
	return []string{
		fmt.Sprintf("Search: '%s %s %s'", role, level, location),
		"Filter by: Date posted (past 24 hours)",
		"Set up job alerts",
	}
}
