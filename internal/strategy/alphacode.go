package strategy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"deepreason/internal/constitutional"
	"deepreason/internal/domain"
	"deepreason/internal/llmport"
	"deepreason/internal/logging"
	"deepreason/internal/sandbox"
)

// AlphaCodeOptions configures an AlphaCodeExecutor. Exec must already be
// the backend spec §4.F.5's use_real_pytest flag selects: a PytestExecutor
// when real test execution is required, a HeuristicExecutor otherwise.
type AlphaCodeOptions struct {
	NumSamples         int
	Temperature        float64
	NumClusters        int
	ParallelWorkers    int
	PytestTimeout      int
	UseSemanticEmbedding bool
	EmbeddingCache     bool
	FilePath           string
}

// AlphaCodeExecutor implements the ALPHACODE mass-sampling strategy (spec
// §4.F.5): generate many samples concurrently, evaluate each, embed and
// cluster them, then pick the best member per cluster.
type AlphaCodeExecutor struct {
	port    llmport.LLMPort
	exec    sandbox.Executor
	checker *constitutional.Checker
	opts    AlphaCodeOptions
	log     *logging.Logger

	cacheMu sync.Mutex
	cache   map[string][]float64
}

// NewAlphaCodeExecutor constructs an AlphaCodeExecutor.
func NewAlphaCodeExecutor(port llmport.LLMPort, exec sandbox.Executor, checker *constitutional.Checker, opts AlphaCodeOptions) *AlphaCodeExecutor {
	if opts.FilePath == "" {
		opts.FilePath = "candidate.go"
	}
	if opts.PytestTimeout == 0 {
		opts.PytestTimeout = 60
	}
	return &AlphaCodeExecutor{
		port: port, exec: exec, checker: checker, opts: opts,
		log: logging.Get(logging.CategoryStrategy), cache: make(map[string][]float64),
	}
}

func (e *AlphaCodeExecutor) Execute(ctx context.Context, req Request) (Result, error) {
	samples := e.sample(ctx, req.Task)
	if len(samples) == 0 {
		return Result{
			Success:           false,
			WorkflowResult:    domain.WorkflowResult{Success: false, FinalState: "failed", Errors: []string{"no samples were generated"}},
			ReflectionVerdict: domain.VerdictRetry,
		}, nil
	}

	vectors := make([][]float64, len(samples))
	for i, s := range samples {
		vectors[i] = e.embed(s.Code)
	}

	clusters := clusterByCosine(vectors, e.opts.NumClusters)
	best := bestPerCluster(samples, clusters)

	winner := best[0]
	for _, c := range best[1:] {
		if c.FinalScore() > winner.FinalScore() {
			winner = c
		}
	}

	result := Result{
		Success:       winner.CompileSuccess,
		BestCandidate: winner,
		WorkflowResult: domain.WorkflowResult{
			Success:    winner.CompileSuccess,
			FinalState: "accepted",
			Changes:    []domain.FileChange{{FilePath: e.opts.FilePath, Diff: winner.Code}},
			Metadata:   map[string]interface{}{"num_samples": len(samples), "num_clusters": len(best)},
		},
		ReflectionVerdict: domain.VerdictAccept,
	}
	if !winner.CompileSuccess {
		result.ReflectionVerdict = domain.VerdictRetry
	}
	return gateConstitutional(e.checker, winner, result), nil
}

// sample pre-generates every sample concurrently, bounded by
// ParallelWorkers, and evaluates each one as it completes.
func (e *AlphaCodeExecutor) sample(ctx context.Context, task domain.Task) []domain.Candidate {
	results := make([]domain.Candidate, e.opts.NumSamples)
	ok := make([]bool, e.opts.NumSamples)

	g, gctx := errgroup.WithContext(ctx)
	if e.opts.ParallelWorkers > 0 {
		g.SetLimit(e.opts.ParallelWorkers)
	}

	for i := 0; i < e.opts.NumSamples; i++ {
		i := i
		g.Go(func() error {
			prompt := withRetrievedContext(task, fmt.Sprintf("Sample %d for task: %s", i, task.Description))
			text := generateOrEmpty(gctx, e.port, prompt, llmport.GenerateOptions{Temperature: e.opts.Temperature})
			if text == "" {
				return nil
			}
			code := extractCode(text)
			compile, passRate := evaluate(gctx, e.exec, e.opts.FilePath, code, e.opts.PytestTimeout)
			results[i] = domain.Candidate{ID: fmt.Sprintf("alphacode-%d", i), Code: code, CompileSuccess: compile, TestPassRate: passRate}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var samples []domain.Candidate
	for i, wasOK := range ok {
		if wasOK {
			samples = append(samples, results[i])
		}
	}
	return samples
}

// embed produces the AST-feature-prefixed vector spec §4.F.5 describes:
// structural counts (functions, classes, loops, conditionals) followed by
// a coarse lexical histogram standing in for a semantic embedding. Results
// are cached by code string when EmbeddingCache is set.
func (e *AlphaCodeExecutor) embed(code string) []float64 {
	if e.opts.EmbeddingCache {
		key := contentHash(code)
		e.cacheMu.Lock()
		if v, found := e.cache[key]; found {
			e.cacheMu.Unlock()
			return v
		}
		e.cacheMu.Unlock()

		v := computeEmbedding(code, e.opts.UseSemanticEmbedding)
		e.cacheMu.Lock()
		e.cache[key] = v
		e.cacheMu.Unlock()
		return v
	}
	return computeEmbedding(code, e.opts.UseSemanticEmbedding)
}

func computeEmbedding(code string, semantic bool) []float64 {
	features := []float64{
		float64(strings.Count(code, "func ") + strings.Count(code, "def ")),
		float64(strings.Count(code, "class ") + strings.Count(code, "type ")),
		float64(strings.Count(code, "for ")),
		float64(strings.Count(code, "if ")),
	}
	if !semantic {
		return features
	}
	// Coarse lexical histogram over a fixed 16-letter alphabet bucket as a
	// stand-in semantic signal when a real embedding model is unavailable.
	hist := make([]float64, 16)
	for _, r := range strings.ToLower(code) {
		if r >= 'a' && r <= 'z' {
			hist[int(r-'a')%16]++
		}
	}
	total := 0.0
	for _, v := range hist {
		total += v
	}
	if total > 0 {
		for i := range hist {
			hist[i] /= total
		}
	}
	return append(features, hist...)
}

func contentHash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, ma, mb float64
	for i := range a {
		dot += a[i] * b[i]
		ma += a[i] * a[i]
		mb += b[i] * b[i]
	}
	if ma == 0 || mb == 0 {
		return 0
	}
	return dot / (math.Sqrt(ma) * math.Sqrt(mb))
}

// clusterByCosine assigns each vector to the nearest of numClusters
// centroids chosen as evenly spaced samples, a single deterministic pass
// rather than an iterative k-means refinement.
func clusterByCosine(vectors [][]float64, numClusters int) [][]int {
	if numClusters <= 0 || numClusters > len(vectors) {
		numClusters = len(vectors)
	}
	stride := len(vectors) / numClusters
	if stride == 0 {
		stride = 1
	}
	var centroidIdx []int
	for i := 0; i < numClusters && i*stride < len(vectors); i++ {
		centroidIdx = append(centroidIdx, i*stride)
	}

	clusters := make([][]int, len(centroidIdx))
	for i, v := range vectors {
		bestCluster, bestSim := 0, -2.0
		for c, ci := range centroidIdx {
			sim := cosineSimilarity(v, vectors[ci])
			if sim > bestSim {
				bestSim, bestCluster = sim, c
			}
		}
		clusters[bestCluster] = append(clusters[bestCluster], i)
	}
	return clusters
}

// bestPerCluster picks the highest-FinalScore sample in each non-empty
// cluster.
func bestPerCluster(samples []domain.Candidate, clusters [][]int) []domain.Candidate {
	var out []domain.Candidate
	for _, members := range clusters {
		if len(members) == 0 {
			continue
		}
		best := samples[members[0]]
		for _, idx := range members[1:] {
			if samples[idx].FinalScore() > best.FinalScore() {
				best = samples[idx]
			}
		}
		out = append(out, best)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalScore() > out[j].FinalScore() })
	return out
}
