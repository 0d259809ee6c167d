// Package router classifies an incoming goal into one of four execution
// paths: simple Q&A, standard plan→code→review, a decomposed DAG of domain
// specialists, or the fixed app-creation pipeline.
package router

import (
	"regexp"
	"strings"
)

// Route is the selected execution path.
type Route string

const (
	RouteSimple   Route = "simple"
	RouteStandard Route = "standard"
	RouteDAG      Route = "dag"
	RouteAppBuild Route = "app_pipeline"
)

// DefaultComplexityThreshold is the score at or above which a goal takes
// the DAG path.
const DefaultComplexityThreshold = 50

// Selector picks routes. Zero value uses the default threshold.
type Selector struct {
	ComplexityThreshold int
}

var (
	appCreationRe = regexp.MustCompile(`(?i)\b(create|build|make|develop|generate)\b.{0,60}\b(app|application|website|web app|clone|saas|platform|dashboard|marketplace)\b`)
	namedCloneRe  = regexp.MustCompile(`(?i)\b(spotify|airbnb|uber|netflix|twitter|instagram|slack|trello|notion|youtube|amazon|reddit)\b.{0,30}\b(clone|like|similar)|\b(clone|like)\b.{0,30}\b(spotify|airbnb|uber|netflix|twitter|instagram|slack|trello|notion|youtube|amazon|reddit)\b`)
	buildVerbRe   = regexp.MustCompile(`(?i)\b(create|build|make|develop|implement|generate)\b`)

	simpleOpeners = []string{"what", "how", "why", "explain", "can you"}

	codingVerbs = []string{
		"implement", "refactor", "fix", "debug", "add", "create", "write",
		"update", "delete", "remove", "rename", "migrate", "deploy",
		"optimize", "test", "install", "configure", "build",
	}

	featureKeywords = []string{
		"auth", "login", "signup", "payment", "checkout", "search",
		"profile", "dashboard", "notification", "chat", "upload", "feed",
		"subscription", "admin", "analytics", "comment", "rating",
	}

	multiFileMarkers = []string{
		"across the codebase", "full-stack", "fullstack", "end-to-end",
		"entire project", "whole project", "all files", "multiple files",
		"multiple modules",
	}

	domainKeywords = []string{
		"frontend", "backend", "database", "migration", "security",
		"testing", "tests", "ci/cd", "deployment", "docker", "kubernetes",
		"api", "performance", "documentation", "infrastructure", "devops",
		"microservice", "cache", "queue",
	}

	enterpriseMarkers = []string{
		"production", "microservice", "scalable", "from scratch",
		"enterprise", "high availability", "multi-tenant", "distributed",
	}

	numberedItemRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s`)
	fileExtRe      = regexp.MustCompile(`\b[\w./-]+\.(go|ts|tsx|js|jsx|py|rs|java|rb|css|html|sql|yaml|yml|json|md|sh|proto)\b`)
)

// Select classifies the goal. Detection order matters: app creation wins
// over complexity, complexity over the simple-question heuristic.
func (s Selector) Select(goal string) Route {
	trimmed := strings.TrimSpace(goal)
	if trimmed == "" {
		return RouteSimple
	}

	if s.isAppCreation(trimmed) {
		return RouteAppBuild
	}

	threshold := s.ComplexityThreshold
	if threshold <= 0 {
		threshold = DefaultComplexityThreshold
	}
	if ComplexityScore(trimmed) >= threshold {
		return RouteDAG
	}

	if s.isSimpleQuestion(trimmed) {
		return RouteSimple
	}

	return RouteStandard
}

func (s Selector) isAppCreation(goal string) bool {
	if appCreationRe.MatchString(goal) {
		return true
	}
	if namedCloneRe.MatchString(goal) {
		return true
	}
	// Multi-feature heuristic: a build verb plus at least three distinct
	// feature keywords reads as "build me an app".
	if buildVerbRe.MatchString(goal) {
		lower := strings.ToLower(goal)
		features := 0
		for _, keyword := range featureKeywords {
			if strings.Contains(lower, keyword) {
				features++
			}
		}
		if features >= 3 {
			return true
		}
	}
	return false
}

func (s Selector) isSimpleQuestion(goal string) bool {
	lower := strings.ToLower(strings.TrimSpace(goal))
	if len(goal) < 30 {
		for _, opener := range simpleOpeners {
			if strings.HasPrefix(lower, opener) {
				return true
			}
		}
	}
	if len(goal) < 80 {
		for _, verb := range codingVerbs {
			if containsWord(lower, verb) {
				return false
			}
		}
		return true
	}
	return false
}

// ComplexityScore rates a goal 0..100 from additive signals.
func ComplexityScore(goal string) int {
	lower := strings.ToLower(goal)
	score := 0

	switch {
	case len(goal) > 500:
		score += 20
	case len(goal) > 200:
		score += 10
	}

	if hasAny(lower, multiFileMarkers) || strings.Count(lower, " and ") >= 3 {
		score += 15
	}

	domains := 0
	for _, keyword := range domainKeywords {
		if strings.Contains(lower, keyword) {
			domains++
		}
	}
	switch {
	case domains >= 3:
		score += 30
	case domains >= 2:
		score += 20
	case domains >= 1:
		score += 10
	}

	for _, marker := range enterpriseMarkers {
		if strings.Contains(lower, marker) {
			score += 10
		}
	}

	if len(numberedItemRe.FindAllString(goal, -1)) >= 3 {
		score += 15
	}

	if len(fileExtRe.FindAllString(goal, -1)) >= 4 {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

func hasAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		pos := strings.Index(text[idx:], word)
		if pos == -1 {
			return false
		}
		pos += idx
		before := pos == 0 || !isWordByte(text[pos-1])
		afterIdx := pos + len(word)
		after := afterIdx >= len(text) || !isWordByte(text[afterIdx])
		if before && after {
			return true
		}
		idx = pos + len(word)
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
