package tdd

import (
	"context"
	"fmt"

	"deepreason/internal/codeextract"
	"deepreason/internal/config"
	"deepreason/internal/domain"
	"deepreason/internal/llmport"
	"deepreason/internal/logging"
	"deepreason/internal/sandbox"
	"deepreason/internal/vcs"
)

// State names the TDD loop's stage, generalized from the teacher's
// TDDState enum in internal/core/tdd_loop.go with the kernel-backed fact
// assertions replaced by plain struct fields.
type State string

const (
	StateReproduce State = "reproduce"
	StateGenerate  State = "generate"
	StatePatch     State = "patch"
	StateVerify    State = "verify"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Options configures a Controller.
type Options struct {
	ReproScriptPath string
	TargetFilePath  string
	MaxRetries      int
	TimeoutSeconds  int
	RepoPath        string
	BranchName      string
	PortCleanup     config.PortRange
}

// Controller runs the reproduction-first repair loop described by spec
// §4.J: reproduce the bug, then alternate code-gen and fuzzy-patch
// application against the reproduction script until it passes or retries
// are exhausted, rolling back via VCS on exhaustion.
type Controller struct {
	port    llmport.LLMPort
	exec    sandbox.Executor
	applier vcs.Applier
	patcher *FuzzyPatcher
	zombies *ZombieKiller
	ports   *PortSweeper
	opts    Options
	log     *logging.Logger
}

// NewController constructs a Controller.
func NewController(port llmport.LLMPort, exec sandbox.Executor, applier vcs.Applier, opts Options) *Controller {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.TimeoutSeconds <= 0 {
		opts.TimeoutSeconds = 30
	}
	if opts.TargetFilePath == "" {
		opts.TargetFilePath = "candidate.go"
	}
	if opts.ReproScriptPath == "" {
		opts.ReproScriptPath = "repro_test.go"
	}
	if opts.PortCleanup.High == 0 {
		opts.PortCleanup = config.PortRange{Low: 49152, High: 65535}
	}
	return &Controller{
		port: port, exec: exec, applier: applier,
		patcher: NewFuzzyPatcher(), zombies: NewZombieKiller(), ports: NewPortSweeper(),
		opts: opts, log: logging.Get(logging.CategoryTDD),
	}
}

// Run drives the loop for task against the current content of the target
// file and returns the resulting WorkflowResult.
func (c *Controller) Run(ctx context.Context, task domain.Task, currentCode string) domain.WorkflowResult {
	defer func() {
		c.zombies.KillAll()
		c.ports.Sweep(ctx, c.opts.PortCleanup)
	}()

	c.log.Debug("task %s: entering state %s", task.TaskID, StateReproduce)
	repro, err := c.generateReproScript(ctx, task)
	if err != nil {
		return c.fail(nil, fmt.Sprintf("reproduction script generation failed: %v", err))
	}

	reproduced, baseline := c.runRepro(ctx, repro, currentCode)
	if !reproduced {
		c.log.Warn("task %s: reproduction script did not fail against current code, proceeding without a verified repro", task.TaskID)
	}

	code := currentCode
	var lastResult sandbox.Result
	var errs []string

	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		c.zombies.KillAll()

		c.log.Debug("task %s: attempt %d entering state %s", task.TaskID, attempt, StateGenerate)
		fix, err := c.generateFix(ctx, task, repro, code, baseline)
		if err != nil {
			errs = append(errs, fmt.Sprintf("attempt %d: generate fix: %v", attempt, err))
			continue
		}

		c.log.Debug("task %s: attempt %d entering state %s", task.TaskID, attempt, StatePatch)
		patched, confidence := c.patcher.Apply(code, fix)
		c.log.Debug("attempt %d: patch confidence=%.2f", attempt, confidence)

		c.log.Debug("task %s: attempt %d entering state %s", task.TaskID, attempt, StateVerify)
		res, err := c.exec.ExecuteCode(ctx, map[string]string{
			c.opts.TargetFilePath: patched,
			c.opts.ReproScriptPath: repro,
		}, c.opts.TimeoutSeconds)
		if err != nil {
			errs = append(errs, fmt.Sprintf("attempt %d: sandbox run: %v", attempt, err))
			continue
		}
		lastResult = res
		code = patched

		if res.ExitCode == 0 && res.CompileSuccess {
			return c.succeed(ctx, task, code, res, attempt)
		}
		errs = append(errs, fmt.Sprintf("attempt %d: reproduction still fails (exit=%d pass_rate=%.2f)", attempt, res.ExitCode, res.TestPassRate))
	}

	if c.opts.RepoPath != "" {
		if err := c.applier.Rollback(ctx, c.opts.RepoPath); err != nil {
			errs = append(errs, fmt.Sprintf("rollback failed: %v", err))
		}
	}
	result := c.fail(&lastResult, "exhausted retries without reproducing a passing fix")
	result.Errors = append(result.Errors, errs...)
	result.TotalIterations = c.opts.MaxRetries
	return result
}

// generateReproScript asks the LLM for a script that fails against the
// current (buggy) behavior, built from the task description and its
// context files.
func (c *Controller) generateReproScript(ctx context.Context, task domain.Task) (string, error) {
	prompt := fmt.Sprintf(
		"Write a minimal Go test that reproduces this bug and FAILS against the current, unfixed code:\n%s\nContext files: %v",
		task.Description, task.ContextFiles,
	)
	text, err := c.port.Generate(ctx, prompt, llmport.GenerateOptions{})
	if err != nil {
		return "", err
	}
	return codeextract.Extract(text), nil
}

// runRepro executes the reproduction script against currentCode and
// reports whether it reproduced the bug: a nonzero exit with a failing
// test signal, per spec §4.J's is_bug_reproduced definition.
func (c *Controller) runRepro(ctx context.Context, repro, currentCode string) (bool, sandbox.Result) {
	res, err := c.exec.ExecuteCode(ctx, map[string]string{
		c.opts.TargetFilePath: currentCode,
		c.opts.ReproScriptPath: repro,
	}, c.opts.TimeoutSeconds)
	if err != nil {
		return false, sandbox.Result{}
	}
	reproduced := res.ExitCode != 0 && res.TestPassRate < 1.0
	return reproduced, res
}

// generateFix asks the LLM to produce a full replacement for the target
// file given the reproduction script and current code.
func (c *Controller) generateFix(ctx context.Context, task domain.Task, repro, code string, baseline sandbox.Result) (string, error) {
	prompt := fmt.Sprintf(
		"Fix this code so the reproduction test passes.\nTask: %s\nReproduction test:\n%s\nCurrent code:\n%s\nLast failure output:\n%s",
		task.Description, repro, code, baseline.Stdout+baseline.Stderr,
	)
	text, err := c.port.Generate(ctx, prompt, llmport.GenerateOptions{})
	if err != nil {
		return "", err
	}
	return codeextract.Extract(text), nil
}

func (c *Controller) succeed(ctx context.Context, task domain.Task, code string, res sandbox.Result, attempt int) domain.WorkflowResult {
	c.log.Debug("task %s: entering state %s", task.TaskID, StateSucceeded)
	changes := []domain.FileChange{{FilePath: c.opts.TargetFilePath, Diff: code}}
	var commitSHA string
	if c.opts.RepoPath != "" {
		applied, err := c.applier.ApplyChanges(ctx, c.opts.RepoPath, changes, c.opts.BranchName)
		if err != nil {
			result := c.fail(&res, fmt.Sprintf("post-fix commit failed: %v", err))
			result.TotalIterations = attempt
			return result
		}
		commitSHA = applied.CommitSHA
	}
	return domain.WorkflowResult{
		Success:    true,
		FinalState: "succeeded",
		Changes:    changes,
		TestResults: []domain.TestResult{{
			Name: "tdd_reproduction", Passed: true, Output: res.Stdout,
		}},
		TotalIterations: attempt,
		Metadata:        map[string]interface{}{"commit_sha": commitSHA},
	}
}

func (c *Controller) fail(res *sandbox.Result, reason string) domain.WorkflowResult {
	c.log.Warn("tdd loop failed: %s", reason)
	result := domain.WorkflowResult{
		Success:    false,
		FinalState: "failed",
		Errors:     []string{reason},
	}
	if res != nil {
		result.TestResults = []domain.TestResult{{
			Name: "tdd_reproduction", Passed: false, Output: res.Stdout + res.Stderr,
		}}
	}
	return result
}
