package strategy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"deepreason/internal/constitutional"
	"deepreason/internal/domain"
	"deepreason/internal/llmport"
	"deepreason/internal/logging"
	"deepreason/internal/sandbox"
)

// EnsembleProvider is one (provider, temperature) tuple for TOT's optional
// Multi-LLM Ensemble mode (spec §4.F.1).
type EnsembleProvider struct {
	Port        llmport.LLMPort
	Temperature float64
}

// TOTOptions configures a TOTExecutor.
type TOTOptions struct {
	NumStrategies  int
	TopK           int
	FilePath       string
	TimeoutSeconds int
	UseEnsemble    bool
	Ensemble       []EnsembleProvider
}

// TOTExecutor implements the Tree-of-Thought strategy (spec §4.F.1):
// generate N strategies, score them, select the top-K, apply Pass@k.
type TOTExecutor struct {
	port    llmport.LLMPort
	exec    sandbox.Executor
	checker *constitutional.Checker
	opts    TOTOptions
	log     *logging.Logger
}

// NewTOTExecutor constructs a TOTExecutor with the documented defaults
// (NumStrategies=3, TopK=1) applied where opts leaves them zero.
func NewTOTExecutor(port llmport.LLMPort, exec sandbox.Executor, checker *constitutional.Checker, opts TOTOptions) *TOTExecutor {
	if opts.NumStrategies == 0 {
		opts.NumStrategies = 3
	}
	if opts.TopK == 0 {
		opts.TopK = 1
	}
	if opts.FilePath == "" {
		opts.FilePath = "candidate.go"
	}
	if opts.TimeoutSeconds == 0 {
		opts.TimeoutSeconds = 30
	}
	return &TOTExecutor{port: port, exec: exec, checker: checker, opts: opts, log: logging.Get(logging.CategoryStrategy)}
}

func (e *TOTExecutor) Execute(ctx context.Context, req Request) (Result, error) {
	candidates := e.generate(ctx, req)
	if e.opts.UseEnsemble {
		candidates = smartPrune(candidates)
	}
	if len(candidates) == 0 {
		return e.fallbackToSystem1("no candidate strategy produced usable code"), nil
	}

	for i := range candidates {
		compile, passRate := evaluate(ctx, e.exec, e.opts.FilePath, candidates[i].Code, e.opts.TimeoutSeconds)
		candidates[i].CompileSuccess = compile
		candidates[i].TestPassRate = passRate
		candidates[i].QualityScore = 0.4*keywordCoverage(req.Task.Description, candidates[i].Code) + 0.6*boolToFloat(compile)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FinalScore() > candidates[j].FinalScore()
	})

	k := e.opts.TopK
	if k > len(candidates) {
		k = len(candidates)
	}
	// Pass@k: the first ranked candidate that actually compiles wins; this
	// is the "apply-fn on rank 1..k" selection spec §4.F.1 describes.
	for i := 0; i < k; i++ {
		if candidates[i].CompileSuccess {
			return e.accept(candidates[i]), nil
		}
	}
	return e.fallbackToSystem1("all ranked strategies failed to compile"), nil
}

func (e *TOTExecutor) generate(ctx context.Context, req Request) []domain.Candidate {
	var candidates []domain.Candidate
	if e.opts.UseEnsemble && len(e.opts.Ensemble) > 0 {
		for i, provider := range e.opts.Ensemble {
			prompt := withRetrievedContext(req.Task, strategyPrompt(req.Task, i))
			text := generateOrEmpty(ctx, provider.Port, prompt, llmport.GenerateOptions{Temperature: provider.Temperature})
			if text == "" {
				continue
			}
			candidates = append(candidates, domain.Candidate{ID: fmt.Sprintf("tot-ensemble-%d", i), Code: extractCode(text), Reasoning: prompt})
		}
		return candidates
	}

	for i := 0; i < e.opts.NumStrategies; i++ {
		prompt := withRetrievedContext(req.Task, strategyPrompt(req.Task, i))
		text := generateOrEmpty(ctx, e.port, prompt, llmport.GenerateOptions{Temperature: 0.3 + 0.2*float64(i)})
		if text == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{ID: fmt.Sprintf("tot-%d", i), Code: extractCode(text), Reasoning: prompt})
	}
	return candidates
}

func strategyPrompt(task domain.Task, variant int) string {
	return fmt.Sprintf("Approach %d for task: %s", variant+1, task.Description)
}

// smartPrune normalizes whitespace and dedupes candidates by content hash,
// the Smart Pruner stage that runs between ensemble generation and scoring.
func smartPrune(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[string]bool)
	var pruned []domain.Candidate
	for _, c := range candidates {
		h := normalizedHash(c.Code)
		if seen[h] {
			continue
		}
		seen[h] = true
		pruned = append(pruned, c)
	}
	return pruned
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizedHash collapses whitespace runs before hashing so that
// formatting-only differences between samples are treated as duplicates.
// crypto/sha256 is stdlib because deduplication is a content-identity
// check, not a cryptographic concern the corpus delegates to a library.
func normalizedHash(code string) string {
	normalized := whitespaceRun.ReplaceAllString(strings.TrimSpace(code), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func (e *TOTExecutor) accept(candidate domain.Candidate) Result {
	result := Result{
		Success:       true,
		BestCandidate: candidate,
		WorkflowResult: domain.WorkflowResult{
			Success:    true,
			FinalState: "accepted",
			Changes:    []domain.FileChange{{FilePath: e.opts.FilePath, Diff: candidate.Code}},
		},
		ReflectionVerdict: domain.VerdictAccept,
	}
	return gateConstitutional(e.checker, candidate, result)
}

func (e *TOTExecutor) fallbackToSystem1(reason string) Result {
	e.log.Warn("TOT degrading to system-1 fallback: %s", reason)
	return Result{
		Success: false,
		WorkflowResult: domain.WorkflowResult{
			Success:    false,
			FinalState: "fallback_system1",
			Errors:     []string{reason},
			Metadata:   map[string]interface{}{"fallback": "system1"},
		},
		ReflectionVerdict: domain.VerdictRetry,
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
