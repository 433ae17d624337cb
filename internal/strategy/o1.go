package strategy

import (
	"context"
	"fmt"
	"strings"

	"deepreason/internal/constitutional"
	"deepreason/internal/domain"
	"deepreason/internal/llmport"
	"deepreason/internal/logging"
	"deepreason/internal/sandbox"
)

// O1Options configures an O1Executor, bounds from spec §6.
type O1Options struct {
	MaxAttempts           int
	VerificationThreshold float64
	FilePath              string
	TimeoutSeconds        int
	Temperature           float64
}

// o1Step is one answer/verify cycle, retained so the executor can return
// the highest-confidence step even when verification never passes.
type o1Step struct {
	candidate  domain.Candidate
	confidence float64
	issues     []string
	verified   bool
}

// O1Executor implements the Iterative-Verification strategy (spec §4.F.3):
// answer -> verify -> {accept | refine}, looping until verified or
// max_attempts is reached.
type O1Executor struct {
	port    llmport.LLMPort
	exec    sandbox.Executor
	checker *constitutional.Checker
	opts    O1Options
	log     *logging.Logger
}

// NewO1Executor constructs an O1Executor.
func NewO1Executor(port llmport.LLMPort, exec sandbox.Executor, checker *constitutional.Checker, opts O1Options) *O1Executor {
	if opts.FilePath == "" {
		opts.FilePath = "candidate.go"
	}
	if opts.TimeoutSeconds == 0 {
		opts.TimeoutSeconds = 30
	}
	return &O1Executor{port: port, exec: exec, checker: checker, opts: opts, log: logging.Get(logging.CategoryStrategy)}
}

func (e *O1Executor) Execute(ctx context.Context, req Request) (Result, error) {
	var steps []o1Step
	var issues []string

	for attempt := 0; attempt < e.opts.MaxAttempts; attempt++ {
		prompt := o1Prompt(req.Task, attempt, issues)
		text := generateOrEmpty(ctx, e.port, prompt, llmport.GenerateOptions{Temperature: e.opts.Temperature})
		code := extractCode(text)

		step := e.verify(ctx, code)
		steps = append(steps, step)
		if step.verified {
			e.log.Debug("O1 verified on attempt %d", attempt)
			return e.finish(step), nil
		}
		issues = step.issues
	}

	best := highestConfidence(steps)
	e.log.Warn("O1 exhausted %d attempts without verification", e.opts.MaxAttempts)
	return e.finish(best), nil
}

// verify scores one candidate against O1's three signals: constitutional
// safety, absence of obvious syntax errors, and non-empty content.
func (e *O1Executor) verify(ctx context.Context, code string) o1Step {
	var issues []string
	signals := 0.0
	const totalSignals = 3.0

	if strings.TrimSpace(code) == "" {
		issues = append(issues, "answer was empty")
	} else {
		signals++
	}

	compile, passRate := evaluate(ctx, e.exec, e.opts.FilePath, code, e.opts.TimeoutSeconds)
	if compile {
		signals++
	} else {
		issues = append(issues, "answer did not compile")
	}

	check := e.checker.Check(code)
	if !check.Blocked {
		signals++
	} else {
		issues = append(issues, "answer failed the constitutional check")
	}

	confidence := signals / totalSignals
	candidate := domain.Candidate{
		ID: fmt.Sprintf("o1-%d", len(issues)), Code: code,
		CompileSuccess: compile, TestPassRate: passRate, LLMConfidence: confidence,
	}
	return o1Step{candidate: candidate, confidence: confidence, issues: issues, verified: confidence >= e.opts.VerificationThreshold}
}

func o1Prompt(task domain.Task, attempt int, issues []string) string {
	if attempt == 0 {
		return withRetrievedContext(task, fmt.Sprintf("Produce an answer for task: %s", task.Description))
	}
	return fmt.Sprintf("Refine the previous answer for task: %s\nPreviously found issues:\n- %s",
		task.Description, strings.Join(issues, "\n- "))
}

func highestConfidence(steps []o1Step) o1Step {
	best := steps[0]
	for _, s := range steps[1:] {
		if s.confidence > best.confidence {
			best = s
		}
	}
	return best
}

func (e *O1Executor) finish(step o1Step) Result {
	result := Result{
		Success:       step.verified,
		BestCandidate: step.candidate,
		WorkflowResult: domain.WorkflowResult{
			Success:    step.verified,
			FinalState: "accepted",
			Changes:    []domain.FileChange{{FilePath: e.opts.FilePath, Diff: step.candidate.Code}},
			Metadata:   map[string]interface{}{"confidence": step.confidence, "issues": step.issues},
		},
		ReflectionVerdict: domain.VerdictAccept,
	}
	if !step.verified {
		result.WorkflowResult.FinalState = "unverified"
		result.ReflectionVerdict = domain.VerdictRevise
	}
	return gateConstitutional(e.checker, step.candidate, result)
}
