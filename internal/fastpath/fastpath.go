// Package fastpath implements the Fast-Path Orchestrator (spec §4.I): a
// linear ANALYZE->PLAN->GENERATE->CRITIC->TEST->HEAL pipeline, each step an
// LLMPort.Generate call plus local post-processing. This is also the
// authoritative fallback invoked by internal/orchestrator whenever the deep
// reasoning path itself fails.
package fastpath

import (
	"context"
	"fmt"

	"deepreason/internal/codeextract"
	"deepreason/internal/constitutional"
	"deepreason/internal/domain"
	"deepreason/internal/guardrail"
	"deepreason/internal/llmport"
	"deepreason/internal/logging"
	"deepreason/internal/sandbox"
)

// State is the value threaded through the six pipeline steps. Each step
// function consumes the previous State and returns an updated one, per
// spec §4.I.
type State struct {
	Task        domain.Task
	Analysis    string
	Plan        string
	Code        string
	Critique    string
	TestResult  sandbox.Result
	Healed      bool
	Errors      []string
}

// Orchestrator runs the six-step pipeline.
type Orchestrator struct {
	port      llmport.LLMPort
	exec      sandbox.Executor
	guard     guardrail.Validator
	checker   *constitutional.Checker
	filePath  string
	profile   string
	timeoutS  int
	log       *logging.Logger
}

// Options configures an Orchestrator.
type Options struct {
	FilePath       string
	Profile        string
	TimeoutSeconds int
}

// NewOrchestrator constructs a fast-path Orchestrator.
func NewOrchestrator(port llmport.LLMPort, exec sandbox.Executor, guard guardrail.Validator, checker *constitutional.Checker, opts Options) *Orchestrator {
	if opts.FilePath == "" {
		opts.FilePath = "candidate.go"
	}
	if opts.TimeoutSeconds == 0 {
		opts.TimeoutSeconds = 30
	}
	return &Orchestrator{
		port: port, exec: exec, guard: guard, checker: checker,
		filePath: opts.FilePath, profile: opts.Profile, timeoutS: opts.TimeoutSeconds,
		log: logging.Get(logging.CategoryFastPath),
	}
}

// Execute runs the full pipeline for task and returns the resulting
// WorkflowResult. It never panics on a single step's failure: each step
// degrades to a recorded error and an empty contribution, so later steps
// still run with whatever context is available.
func (o *Orchestrator) Execute(ctx context.Context, task domain.Task) domain.WorkflowResult {
	o.log.Debug("fast-path pipeline starting for task %s", task.TaskID)
	state := State{Task: task}
	state = o.analyze(ctx, state)
	state = o.plan(ctx, state)
	state = o.generate(ctx, state)
	state = o.critic(ctx, state)
	state = o.test(ctx, state)
	needsHeal := !state.TestResult.CompileSuccess ||
		(state.TestResult.TestsRun > 0 && state.TestResult.TestPassRate < 1.0)
	if needsHeal {
		state = o.heal(ctx, state)
	}

	changes := []domain.FileChange{{FilePath: o.filePath, Diff: state.Code}}
	guardResult := o.guard.Validate(changes, o.profile)

	finalState := "accepted"
	if state.Healed {
		finalState = "healed"
	}
	result := domain.WorkflowResult{
		Success:    guardResult.Valid && state.TestResult.CompileSuccess,
		FinalState: finalState,
		Changes:    changes,
		TestResults: []domain.TestResult{{
			Name: "fast_path_sandbox_run", Passed: state.TestResult.CompileSuccess && state.TestResult.TestPassRate >= 1.0,
			Output: state.TestResult.Stdout,
		}},
		TotalIterations: 1,
		Errors:          append(append([]string{}, state.Errors...), guardResult.Errors...),
	}
	if !guardResult.Valid {
		result.FinalState = "guardrail_rejected"
		result.Success = false
	}

	check := o.checker.Check(state.Code)
	if check.Blocked {
		result.Success = false
		result.FinalState = "constitutional_blocked"
		result.Errors = append(result.Errors, "constitutional check blocked the fast-path candidate")
	}
	return result
}

func (o *Orchestrator) analyze(ctx context.Context, s State) State {
	text, err := o.port.Generate(ctx, fmt.Sprintf("Analyze this task: %s", s.Task.Description), llmport.GenerateOptions{})
	if err != nil {
		s.Errors = append(s.Errors, fmt.Sprintf("analyze: %v", err))
		return s
	}
	s.Analysis = text
	return s
}

func (o *Orchestrator) plan(ctx context.Context, s State) State {
	text, err := o.port.Generate(ctx, fmt.Sprintf("Plan an implementation given analysis:\n%s", s.Analysis), llmport.GenerateOptions{})
	if err != nil {
		s.Errors = append(s.Errors, fmt.Sprintf("plan: %v", err))
		return s
	}
	s.Plan = text
	return s
}

func (o *Orchestrator) generate(ctx context.Context, s State) State {
	text, err := o.port.Generate(ctx, fmt.Sprintf("Generate code per plan:\n%s", s.Plan), llmport.GenerateOptions{})
	if err != nil {
		s.Errors = append(s.Errors, fmt.Sprintf("generate: %v", err))
		return s
	}
	s.Code = codeextract.Extract(text)
	return s
}

func (o *Orchestrator) critic(ctx context.Context, s State) State {
	text, err := o.port.Generate(ctx, fmt.Sprintf("Critique this code for task %q:\n%s", s.Task.Description, s.Code), llmport.GenerateOptions{})
	if err != nil {
		s.Errors = append(s.Errors, fmt.Sprintf("critic: %v", err))
		return s
	}
	s.Critique = text
	return s
}

func (o *Orchestrator) test(ctx context.Context, s State) State {
	res, err := o.exec.ExecuteCode(ctx, map[string]string{o.filePath: s.Code}, o.timeoutS)
	if err != nil {
		s.Errors = append(s.Errors, fmt.Sprintf("test: %v", err))
		return s
	}
	s.TestResult = res
	return s
}

func (o *Orchestrator) heal(ctx context.Context, s State) State {
	text, err := o.port.Generate(ctx, fmt.Sprintf(
		"Heal this code so it compiles and passes tests. Critique:\n%s\nCurrent code:\n%s", s.Critique, s.Code,
	), llmport.GenerateOptions{})
	if err != nil {
		s.Errors = append(s.Errors, fmt.Sprintf("heal: %v", err))
		return s
	}
	healed := codeextract.Extract(text)
	res, err := o.exec.ExecuteCode(ctx, map[string]string{o.filePath: healed}, o.timeoutS)
	if err != nil {
		s.Errors = append(s.Errors, fmt.Sprintf("heal verify: %v", err))
		return s
	}
	s.Code = healed
	s.TestResult = res
	s.Healed = true
	return s
}
