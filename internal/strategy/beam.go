package strategy

import (
	"context"
	"fmt"
	"sort"

	"deepreason/internal/constitutional"
	"deepreason/internal/domain"
	"deepreason/internal/llmport"
	"deepreason/internal/logging"
	"deepreason/internal/sandbox"
)

// BeamOptions configures a BeamExecutor, bounds from spec §6.
type BeamOptions struct {
	BeamWidth      int
	MaxDepth       int
	Temperature    float64
	FilePath       string
	TimeoutSeconds int
}

// BeamExecutor implements the BEAM strategy (spec §4.F.2): beam_width LM
// completions expanded synchronously per depth level, scored by
// 0.3*compile + 0.5*test_pass + 0.2*length_penalty.
type BeamExecutor struct {
	port    llmport.LLMPort
	exec    sandbox.Executor
	checker *constitutional.Checker
	opts    BeamOptions
	log     *logging.Logger
}

// NewBeamExecutor constructs a BeamExecutor.
func NewBeamExecutor(port llmport.LLMPort, exec sandbox.Executor, checker *constitutional.Checker, opts BeamOptions) *BeamExecutor {
	if opts.FilePath == "" {
		opts.FilePath = "candidate.go"
	}
	if opts.TimeoutSeconds == 0 {
		opts.TimeoutSeconds = 30
	}
	return &BeamExecutor{port: port, exec: exec, checker: checker, opts: opts, log: logging.Get(logging.CategoryStrategy)}
}

func (e *BeamExecutor) Execute(ctx context.Context, req Request) (Result, error) {
	beam := e.expand(ctx, req.Task, nil, 0)
	for depth := 1; depth < e.opts.MaxDepth; depth++ {
		var next []domain.Candidate
		for _, parent := range beam {
			next = append(next, e.expand(ctx, req.Task, &parent, depth)...)
		}
		if len(next) == 0 {
			break
		}
		beam = keepTopBeam(next, e.opts.BeamWidth)
	}

	if len(beam) == 0 {
		return Result{
			Success:        false,
			WorkflowResult: domain.WorkflowResult{Success: false, FinalState: "failed", Errors: []string{"beam search produced no candidates"}},
			ReflectionVerdict: domain.VerdictRetry,
		}, nil
	}

	best := beam[0]
	diversity := beamDiversity(beam)

	result := Result{
		Success:       best.CompileSuccess,
		BestCandidate: best,
		WorkflowResult: domain.WorkflowResult{
			Success:    best.CompileSuccess,
			FinalState: "accepted",
			Changes:    []domain.FileChange{{FilePath: e.opts.FilePath, Diff: best.Code}},
			Metadata:   map[string]interface{}{"diversity": diversity, "beam_size": len(beam)},
		},
		ReflectionVerdict: domain.VerdictAccept,
	}
	if !best.CompileSuccess {
		result.ReflectionVerdict = domain.VerdictRetry
	}
	return gateConstitutional(e.checker, best, result), nil
}

// expand generates beam_width completions at depth, scoring each with the
// synchronous expand-fn contract spec §4.F.2 requires.
func (e *BeamExecutor) expand(ctx context.Context, task domain.Task, parent *domain.Candidate, depth int) []domain.Candidate {
	var out []domain.Candidate
	for i := 0; i < e.opts.BeamWidth; i++ {
		prompt := beamPrompt(task, parent, depth, i)
		text := generateOrEmpty(ctx, e.port, prompt, llmport.GenerateOptions{Temperature: e.opts.Temperature})
		if text == "" {
			continue
		}
		code := extractCode(text)
		compile, passRate := evaluate(ctx, e.exec, e.opts.FilePath, code, e.opts.TimeoutSeconds)
		candidate := domain.Candidate{
			ID:             fmt.Sprintf("beam-d%d-%d", depth, i),
			Code:           code,
			Depth:          depth,
			CompileSuccess: compile,
			TestPassRate:   passRate,
		}
		if parent != nil {
			candidate.ParentID = parent.ID
		}
		candidate.QualityScore = lengthPenalty(code)
		out = append(out, candidate)
	}
	return out
}

func beamPrompt(task domain.Task, parent *domain.Candidate, depth, branch int) string {
	if parent == nil {
		return withRetrievedContext(task, fmt.Sprintf("Beam root (branch %d) for task: %s", branch, task.Description))
	}
	return fmt.Sprintf("Refine at depth %d (branch %d) from:\n%s\ntask: %s", depth, branch, parent.Code, task.Description)
}

// beamScore implements 0.3*compile + 0.5*test_pass + 0.2*length_penalty.
func beamScore(c domain.Candidate) float64 {
	compile := 0.0
	if c.CompileSuccess {
		compile = 1.0
	}
	return 0.3*compile + 0.5*c.TestPassRate + 0.2*c.QualityScore
}

func keepTopBeam(candidates []domain.Candidate, width int) []domain.Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return beamScore(candidates[i]) > beamScore(candidates[j])
	})
	if len(candidates) > width {
		candidates = candidates[:width]
	}
	return candidates
}

// beamDiversity is the mean pairwise code distance across the final beam.
func beamDiversity(beam []domain.Candidate) float64 {
	if len(beam) < 2 {
		return 0
	}
	var total float64
	var pairs int
	for i := 0; i < len(beam); i++ {
		for j := i + 1; j < len(beam); j++ {
			total += codeDistance(beam[i].Code, beam[j].Code)
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return total / float64(pairs)
}
