package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"deepreason/internal/chunkstore"
	"deepreason/internal/domain"
	"deepreason/internal/guardrail"
	"deepreason/internal/llmport"
	"deepreason/internal/metrics"
	"deepreason/internal/orchestrator"
	"deepreason/internal/sandbox"
	"deepreason/internal/vcs"
)

var (
	flagSnapshotID string
	flagStrategy   string
	flagRepoID     string
	flagFiles      []string
	flagApply      bool
)

var executeCmd = &cobra.Command{
	Use:   "execute <task description>",
	Short: "Run the deep reasoning orchestrator against a task",
	Long: `execute routes a task through the dynamic router, dispatches it to the
System-1 fast path or a System-2 reasoning strategy, applies the resulting
changes and prints the reflection judge's verdict.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExecute,
}

func init() {
	executeCmd.Flags().StringVar(&flagSnapshotID, "snapshot", "", "snapshot uuid the task's context files are read against (required)")
	executeCmd.Flags().StringVar(&flagStrategy, "strategy", "auto", "reasoning strategy override: auto, tot, beam, o1, debate, alphacode")
	executeCmd.Flags().StringVar(&flagRepoID, "repo", "", "repository identifier (default: workspace basename)")
	executeCmd.Flags().StringArrayVar(&flagFiles, "context-file", nil, "context file path, repeatable")
	executeCmd.Flags().BoolVar(&flagApply, "apply", false, "commit changes to the workspace via git instead of a dry run")
	executeCmd.MarkFlagRequired("snapshot")
}

// runExecute maps the CLI's thin collaborator contract (spec §6) onto
// exit codes: 0 success, 1 generic failure, 22 validation error, 1 on a
// critical fallback failure. Stderr always carries error.message and
// error.details verbatim for a *domain.Error.
func runExecute(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ws := workspace
	if ws == "" {
		ws, _ = os.Getwd()
	}

	repoID := flagRepoID
	if repoID == "" {
		repoID = filepathBase(ws)
	}

	var strategy domain.ReasoningStrategy
	forceSystem2 := false
	if flagStrategy != "" && flagStrategy != "auto" {
		s, err := domain.ParseStrategy(flagStrategy)
		if err != nil {
			return exitWith(22, err)
		}
		strategy = s
		forceSystem2 = true
	}

	task, err := domain.NewTask(strings.Join(args, " "), repoID, flagSnapshotID, flagFiles)
	if err != nil {
		return exitWith(22, err)
	}
	task.ExplicitStrategy = strategy
	task.ForceSystem2 = forceSystem2

	deps, err := buildDependencies(ws)
	if err != nil {
		return exitWith(1, err)
	}

	orch, err := orchestrator.New(deps)
	if err != nil {
		return exitWith(1, err)
	}

	prog := newProgressProgram(task)
	progDone := prog.start()
	resp, execErr := orch.Execute(ctx, task)
	prog.finish(resp, execErr)
	<-progDone

	if execErr != nil {
		return exitForError(execErr)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	renderSummary(resp)

	if !resp.Success {
		os.Exit(1)
	}
	return nil
}

func buildDependencies(ws string) (orchestrator.Dependencies, error) {
	var llm llmport.LLMPort
	switch cfg.LLM.Provider {
	case "genai":
		provider, err := llmport.NewGenAIProvider(context.Background(), cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			return orchestrator.Dependencies{}, fmt.Errorf("construct genai provider: %w", err)
		}
		llm = provider
	default:
		llm = llmport.NewMockProvider(nil)
	}

	var sandboxExec sandbox.Executor = sandbox.NewHeuristicExecutor()
	if cfg.Strategy.AlphaCode.UseRealPytest {
		sandboxExec = sandbox.NewPytestExecutor()
	}

	var store chunkstore.Store
	if cfg.ChunkStore.Backend == "sql" {
		sqlStore, err := chunkstore.NewSQLStore(cfg.ChunkStore.DatabasePath)
		if err != nil {
			return orchestrator.Dependencies{}, fmt.Errorf("open chunk store: %w", err)
		}
		store = chunkstore.NewCachedStore(sqlStore, 1000)
	} else {
		store = chunkstore.NewCachedStore(chunkstore.NewMemoryStore(), 1000)
	}

	return orchestrator.Dependencies{
		LLM:        llm,
		Sandbox:    sandboxExec,
		VCS:        vcs.NewGitApplier(),
		Guardrail:  guardrail.NewBasicValidator(nil),
		ChunkStore: store,
		Config:     cfg,
		Metrics:    metrics.New(),
		RepoPath:   repoPathFor(ws, flagApply),
	}, nil
}

// repoPathFor returns the workspace only when --apply was passed; omitting
// it keeps the orchestrator's VCS-apply step a no-op dry run (spec §4.L's
// guard on RepoPath != "").
func repoPathFor(ws string, apply bool) string {
	if !apply {
		return ""
	}
	return ws
}

func filepathBase(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// exitCodeForError implements spec §6's CLI exit-code contract as a pure
// function: 22 for a validation error, 1 for every other *domain.Error or
// unrecognized error, plus the stderr lines to print (error.message, then
// error.details as JSON when present). Kept separate from exitForError so
// the mapping can be unit tested without exercising os.Exit.
func exitCodeForError(err error) (code int, lines []string) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		lines = append(lines, derr.Message)
		if len(derr.Details) > 0 {
			b, _ := json.Marshal(derr.Details)
			lines = append(lines, string(b))
		}
		if derr.Kind == domain.ErrValidation {
			return 22, lines
		}
		return 1, lines
	}
	return 1, []string{err.Error()}
}

// exitForError prints exitCodeForError's lines to stderr and terminates
// the process with the mapped exit code.
func exitForError(err error) error {
	code, lines := exitCodeForError(err)
	for _, line := range lines {
		fmt.Fprintln(os.Stderr, line)
	}
	os.Exit(code)
	return nil
}

func exitWith(code int, err error) error {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
	return nil
}

func humanizeUSD(v float64) string {
	return fmt.Sprintf("$%s", humanize.Commaf(v))
}
