// Package router implements the Router (spec §4.D): it decides System-1 vs
// System-2 for a task, falling back to a basic heuristic router on any
// failure in the code-context path.
package router

import (
	"context"
	"regexp"
	"strings"

	"deepreason/internal/contextanalysis"
	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

// HighDependencyCount is the threshold above which an ambiguous (neither
// simple nor complex) CodeContext routes to SYSTEM_2.
const HighDependencyCount = 8

// Router decides the reasoning path for a task, following the ordered
// decision chain of spec §4.D.
type Router struct {
	analyzer         *contextanalysis.Analyzer
	system2Threshold float64
	log              *logging.Logger
}

// NewRouter constructs a Router. analyzer may be nil, in which case the
// router always falls through to the basic heuristic path.
func NewRouter(analyzer *contextanalysis.Analyzer, system2Threshold float64) *Router {
	return &Router{
		analyzer:         analyzer,
		system2Threshold: system2Threshold,
		log:              logging.Get(logging.CategoryRouter),
	}
}

// Decide implements the spec's ordered decision chain. It never returns an
// error: any failure in the code-context path falls back to the basic
// router rather than propagating, per spec §4.D step 3.
func (r *Router) Decide(ctx context.Context, task domain.Task, codeContent string) domain.ReasoningDecision {
	if task.ForceSystem2 {
		r.log.Debug("force_system_2 set for task %s", task.TaskID)
		return domain.ReasoningDecision{
			Path:       domain.System2,
			Confidence: 1.0,
			Reasoning:  "force_system_2 override",
		}
	}

	if r.analyzer != nil && task.FirstContextFile() != "" {
		decision, ok := r.decideFromCodeContext(ctx, task, codeContent)
		if ok {
			return decision
		}
		r.log.Warn("code-context analysis failed for task %s, falling back to basic router", task.TaskID)
	}

	return r.basicRoute(task)
}

func (r *Router) decideFromCodeContext(ctx context.Context, task domain.Task, codeContent string) (domain.ReasoningDecision, bool) {
	language := languageFromPath(task.FirstContextFile())
	cc, err := r.analyzer.Analyze(ctx, codeContent, task.FirstContextFile(), language)
	if err != nil {
		return domain.ReasoningDecision{}, false
	}

	decision := domain.ReasoningDecision{
		Complexity: cc.ComplexityScore,
	}

	switch {
	case cc.IsSimple:
		decision.Path = domain.System1
		decision.Confidence = 0.9
		decision.Reasoning = "code context is simple"
	case cc.IsComplex:
		decision.Path = domain.System2
		decision.Confidence = 0.9
		decision.Reasoning = "code context is complex"
	case cc.DependencyCount > HighDependencyCount:
		decision.Path = domain.System2
		decision.Confidence = 0.7
		decision.Reasoning = "high dependency count"
	default:
		decision.Path = domain.System1
		decision.Confidence = 0.6
		decision.Reasoning = "default to system 1"
	}
	return decision, true
}

var languageExtensions = map[string]string{
	".go": "go", ".py": "python", ".rs": "rust", ".ts": "typescript",
	".tsx": "typescript", ".js": "javascript", ".jsx": "javascript",
}

func languageFromPath(path string) string {
	for ext, lang := range languageExtensions {
		if strings.HasSuffix(path, ext) {
			return lang
		}
	}
	return "unknown"
}

var keywordWeights = map[string]float64{
	"refactor": 0.3, "migrate": 0.3, "architecture": 0.3, "rewrite": 0.25,
	"optimize": 0.2, "concurrency": 0.25, "security": 0.2, "race": 0.2,
}

var wordPattern = regexp.MustCompile(`\w+`)

// basicRoute is the last-resort heuristic router: complexity from
// description length and keyword matches, defaulting to SYSTEM_1 at
// confidence 0.5 per spec §4.D step 3.
func (r *Router) basicRoute(task domain.Task) domain.ReasoningDecision {
	lower := strings.ToLower(task.Description)
	words := wordPattern.FindAllString(lower, -1)

	lengthSignal := float64(len(words)) / 100.0
	if lengthSignal > 1 {
		lengthSignal = 1
	}

	keywordSignal := 0.0
	for kw, weight := range keywordWeights {
		if strings.Contains(lower, kw) {
			keywordSignal += weight
		}
	}
	if keywordSignal > 1 {
		keywordSignal = 1
	}

	complexity := 0.5*lengthSignal + 0.5*keywordSignal

	decision := domain.ReasoningDecision{
		Complexity: complexity,
		Confidence: 0.5,
		Reasoning:  "basic heuristic router (description length + keywords)",
	}
	if complexity >= r.system2Threshold {
		decision.Path = domain.System2
	} else {
		decision.Path = domain.System1
	}
	return decision
}
