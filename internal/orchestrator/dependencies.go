// Package orchestrator implements the Deep-Reasoning Orchestrator (spec
// §4.L): the composition root that wires the router, strategy selector,
// five strategy executors, constitutional checker, reflection judge, VCS
// adapter and fast-path fallback into a single execute(task) -> response
// call, generalized from the teacher's construction-time OrchestratorConfig
// in internal/campaign/orchestrator_init.go (Design Note "global
// container/singleton -> construction-time struct", spec §9).
package orchestrator

import (
	"fmt"
	"os"

	"deepreason/internal/chunkstore"
	"deepreason/internal/config"
	"deepreason/internal/constitutional"
	"deepreason/internal/contextanalysis"
	"deepreason/internal/depgraph"
	"deepreason/internal/domain"
	"deepreason/internal/experience"
	"deepreason/internal/guardrail"
	"deepreason/internal/llmport"
	"deepreason/internal/metrics"
	"deepreason/internal/reflection"
	"deepreason/internal/risk"
	"deepreason/internal/sandbox"
	"deepreason/internal/vcs"
)

// CodeLoader reads the content of a context file for the router and the
// code-context analyzer. The default reads from the local filesystem
// relative to RepoPath, matching the teacher's direct os.ReadFile idiom
// (internal/campaign/decomposer.go) rather than a dedicated file-service
// abstraction this orchestrator has no other use for.
type CodeLoader func(repoPath, filePath string) (string, error)

func defaultCodeLoader(repoPath, filePath string) (string, error) {
	if filePath == "" {
		return "", nil
	}
	full := filePath
	if repoPath != "" {
		full = repoPath + string(os.PathSeparator) + filePath
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Dependencies is the construction-time struct every collaborator is
// injected through. Required fields are validated by New; optional ones
// receive an in-process default.
type Dependencies struct {
	// Required.
	LLM       llmport.LLMPort
	Sandbox   sandbox.Executor
	VCS       vcs.Applier
	Guardrail guardrail.Validator

	// Optional; New fills in a default implementation when nil.
	Checker    *constitutional.Checker
	Analyzer   *contextanalysis.Analyzer
	Calculator *risk.Calculator
	Judge      *reflection.Judge
	Experience experience.Store
	ChunkStore chunkstore.Store
	Config     *config.V8Config
	CodeLoader CodeLoader

	// Metrics is left nil by default (no-op); reasonctl wires a real
	// *metrics.Collectors in when it wants a /metrics endpoint.
	Metrics *metrics.Collectors

	// RepoPath is the working tree the VCS adapter and code loader
	// operate against. BranchName is passed to vcs.Applier.ApplyChanges.
	RepoPath   string
	BranchName string
}

func (d *Dependencies) applyDefaults() {
	if d.Checker == nil {
		d.Checker = constitutional.NewChecker(nil)
	}
	if d.Analyzer == nil {
		d.Analyzer = contextanalysis.NewAnalyzer()
	}
	if d.Calculator == nil {
		d.Calculator = risk.NewCalculator()
	}
	if d.Judge == nil {
		d.Judge = reflection.NewJudge()
	}
	if d.Experience == nil {
		d.Experience = experience.NewMemoryStore()
	}
	if d.ChunkStore == nil {
		d.ChunkStore = chunkstore.NewMemoryStore()
	}
	if d.Config == nil {
		d.Config = config.DefaultConfig()
	}
	if d.CodeLoader == nil {
		d.CodeLoader = defaultCodeLoader
	}
	if d.BranchName == "" {
		d.BranchName = "deepreason/auto"
	}
}

func (d *Dependencies) validate() error {
	missing := make([]string, 0, 4)
	if d.LLM == nil {
		missing = append(missing, "LLM")
	}
	if d.Sandbox == nil {
		missing = append(missing, "Sandbox")
	}
	if d.VCS == nil {
		missing = append(missing, "VCS")
	}
	if d.Guardrail == nil {
		missing = append(missing, "Guardrail")
	}
	if len(missing) > 0 {
		return domain.NewError(domain.ErrInitialization,
			fmt.Sprintf("missing required dependencies: %v", missing), nil)
	}
	return nil
}

// buildGraph assembles a depgraph.Graph over the task's context files,
// used only for risk scoring; it never persists anything and degrades to
// an empty graph on analysis failure for any individual file.
func (o *Orchestrator) buildGraph(task domain.Task, contexts map[string]domain.CodeContext) *depgraph.Graph {
	g := depgraph.NewGraph()
	g.Build(contexts)
	return g
}
