package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"deepreason/internal/chunkstore"
	"deepreason/internal/domain"
	"deepreason/internal/experience"
	"deepreason/internal/fastpath"
	"deepreason/internal/logging"
	"deepreason/internal/router"
	"deepreason/internal/strategy"
	"deepreason/internal/tdd"
)

// Orchestrator is the composition root of spec §4.L: it owns every
// collaborator constructed from Dependencies and implements the single
// execute(task) -> response flow.
type Orchestrator struct {
	deps Dependencies

	router     *router.Router
	selector   *strategy.Selector
	executors  map[domain.ReasoningStrategy]strategy.Executor
	fastpath   *fastpath.Orchestrator
	chunkStore chunkstore.Store
	log        *logging.Logger
}

// New validates deps, applies defaults for every optional collaborator and
// constructs the router, selector, five strategy executors and fast-path
// fallback. It returns an Initialization error (spec §7) if any required
// dependency is missing.
func New(deps Dependencies) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	deps.applyDefaults()

	o := &Orchestrator{
		deps:       deps,
		router:     router.NewRouter(deps.Analyzer, deps.Config.System2Threshold),
		selector:   strategy.NewSelector(),
		chunkStore: deps.ChunkStore,
		log:        logging.Get(logging.CategoryOrchestrator),
	}

	o.executors = buildExecutors(deps)
	o.fastpath = fastpath.NewOrchestrator(deps.LLM, deps.Sandbox, deps.Guardrail, deps.Checker, fastpath.Options{
		TimeoutSeconds: deps.Config.TimeoutSeconds,
	})

	if deps.Metrics != nil && deps.Calculator != nil {
		deps.Calculator.OnCacheEvent = deps.Metrics.RecordRiskCache
	}
	if deps.Metrics != nil {
		if cached, ok := deps.ChunkStore.(*chunkstore.CachedStore); ok {
			cached.OnOp = deps.Metrics.ObserveChunkStoreOp
		}
	}

	return o, nil
}

func buildExecutors(deps Dependencies) map[domain.ReasoningStrategy]strategy.Executor {
	sc := deps.Config.Strategy
	return map[domain.ReasoningStrategy]strategy.Executor{
		domain.StrategyTOT: strategy.NewTOTExecutor(deps.LLM, deps.Sandbox, deps.Checker, strategy.TOTOptions{
			NumStrategies:  3,
			TopK:           2,
			TimeoutSeconds: deps.Config.TimeoutSeconds,
		}),
		domain.StrategyBeam: strategy.NewBeamExecutor(deps.LLM, deps.Sandbox, deps.Checker, strategy.BeamOptions{
			BeamWidth:      sc.BeamWidth,
			MaxDepth:       sc.MaxDepth,
			Temperature:    deps.Config.Temperature,
			TimeoutSeconds: deps.Config.TimeoutSeconds,
		}),
		domain.StrategyO1: strategy.NewO1Executor(deps.LLM, deps.Sandbox, deps.Checker, strategy.O1Options{
			MaxAttempts:           sc.O1MaxAttempts,
			VerificationThreshold: sc.O1VerificationThreshold,
			Temperature:           deps.Config.Temperature,
			TimeoutSeconds:        deps.Config.TimeoutSeconds,
		}),
		domain.StrategyDebate: strategy.NewDebateExecutor(deps.LLM, deps.Sandbox, deps.Checker, strategy.DebateOptions{
			NumProposers:   sc.NumProposers,
			NumCritics:     sc.NumCritics,
			MaxRounds:      sc.MaxRounds,
			Temperature:    deps.Config.Temperature,
			TimeoutSeconds: deps.Config.TimeoutSeconds,
		}),
		domain.StrategyAlphaCode: strategy.NewAlphaCodeExecutor(deps.LLM, deps.Sandbox, deps.Checker, strategy.AlphaCodeOptions{
			NumSamples:           sc.AlphaCode.NumSamples,
			Temperature:          sc.AlphaCode.Temperature,
			NumClusters:          sc.AlphaCode.NumClusters,
			ParallelWorkers:      sc.AlphaCode.ParallelWorkers,
			PytestTimeout:        sc.AlphaCode.PytestTimeout,
			UseSemanticEmbedding: sc.AlphaCode.UseSemanticEmbedding,
			EmbeddingCache:       sc.AlphaCode.EmbeddingCache,
		}),
	}
}

// Execute runs the full spec §4.L flow for task and returns the response.
// Validation errors propagate unchanged (spec §7); every other failure is
// folded into a (possibly unsuccessful) DeepReasoningResponse so the
// caller always gets a validated response object for execution-class
// failures, and a FallbackError only when both paths failed outright.
func (o *Orchestrator) Execute(ctx context.Context, task domain.Task) (domain.DeepReasoningResponse, error) {
	start := time.Now()

	if err := domain.Validate(task); err != nil {
		return domain.DeepReasoningResponse{}, err
	}

	deadline := time.Duration(o.deps.Config.TimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	codeContent, _ := o.deps.CodeLoader(o.deps.RepoPath, task.FirstContextFile())

	decision := o.router.Decide(runCtx, task, codeContent)
	codeCtx := o.analyzeContext(runCtx, task, codeContent)
	decision.Risk = o.scoreRisk(runCtx, task, codeCtx)
	task.RetrievedContext = o.retrieveChunkContext(runCtx, task)

	var stratName domain.ReasoningStrategy
	if decision.Path == domain.System2 {
		s, err := o.selector.Select(task, decision)
		if err != nil {
			return domain.DeepReasoningResponse{}, err
		}
		stratName = s
	}
	decision.EstimatedCostUSD, decision.EstimatedTimeSeconds = estimateCost(stratName, callBudget{
		TOTStrategies: 3, BeamWidth: o.deps.Config.Strategy.BeamWidth, MaxDepth: o.deps.Config.Strategy.MaxDepth,
		O1MaxAttempts: o.deps.Config.Strategy.O1MaxAttempts, NumProposers: o.deps.Config.Strategy.NumProposers,
		NumCritics: o.deps.Config.Strategy.NumCritics, MaxRounds: o.deps.Config.Strategy.MaxRounds,
		AlphaCodeSamples: o.deps.Config.Strategy.AlphaCode.NumSamples,
	})

	result, usedFastPath, err := o.dispatch(runCtx, task, codeCtx, decision, stratName)
	if runCtx.Err() == context.DeadlineExceeded {
		return domain.DeepReasoningResponse{}, o.timeoutFailure(ctx, result)
	}
	if err != nil {
		fastResult := o.fastpath.Execute(ctx, task)
		if !fastResult.Success {
			return domain.DeepReasoningResponse{}, domain.FallbackError(err, fmt.Errorf("fast-path produced no successful workflow"))
		}
		result = strategy.Result{Success: fastResult.Success, WorkflowResult: fastResult}
		usedFastPath = true
		stratName = ""
	}

	response := o.finalize(runCtx, task, decision, result, usedFastPath, stratName, start)
	if err := response.Validate(); err != nil {
		return domain.DeepReasoningResponse{}, err
	}
	return response, nil
}

func (o *Orchestrator) analyzeContext(ctx context.Context, task domain.Task, codeContent string) domain.CodeContext {
	path := task.FirstContextFile()
	if path == "" {
		return domain.CodeContext{}
	}
	cc, err := o.deps.Analyzer.Analyze(ctx, codeContent, path, languageFromPath(path))
	if err != nil {
		return domain.CodeContext{FilePath: path}
	}
	return cc
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

// retrieveChunkContext consults the chunk store for the structural chunks
// already indexed against the task's primary context file (spec §2: "K is
// consulted for context retrieval during F"). It formats each chunk's
// structural metadata rather than raw source, since the store never holds
// file content, and degrades to "" on any miss so a cold store never blocks
// a request.
func (o *Orchestrator) retrieveChunkContext(ctx context.Context, task domain.Task) string {
	path := task.FirstContextFile()
	if path == "" || o.chunkStore == nil {
		return ""
	}
	chunks, err := o.chunkStore.ListByFile(ctx, task.RepoID, path)
	if err != nil {
		o.log.Debug("chunk retrieval skipped for %s: %v", path, err)
		return ""
	}
	if len(chunks) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&sb, "- %s %s (lines %d-%d): %s\n", c.Kind, c.FQN, c.StartLine, c.EndLine, c.Summary)
	}
	return sb.String()
}

func (o *Orchestrator) scoreRisk(ctx context.Context, task domain.Task, codeCtx domain.CodeContext) float64 {
	contexts := map[string]domain.CodeContext{}
	if task.FirstContextFile() != "" {
		contexts[task.FirstContextFile()] = codeCtx
	}
	g := o.buildGraph(task, contexts)
	return o.deps.Calculator.Score(ctx, codeCtx, g, task.ContextFiles)
}

// dispatch runs either the fast-path (SYSTEM_1) or the selected strategy
// executor (SYSTEM_2), per spec §4.L steps 2-4.
func (o *Orchestrator) dispatch(ctx context.Context, task domain.Task, codeCtx domain.CodeContext, decision domain.ReasoningDecision, strat domain.ReasoningStrategy) (strategy.Result, bool, error) {
	started := time.Now()
	if decision.Path == domain.System1 {
		wf := o.fastpath.Execute(ctx, task)
		o.observeStrategy("fastpath", wf.Success, time.Since(started))
		return strategy.Result{Success: wf.Success, WorkflowResult: wf}, true, nil
	}

	exec, ok := o.executors[strat]
	if !ok {
		return strategy.Result{}, false, domain.NewError(domain.ErrExecution, fmt.Sprintf("no executor registered for strategy %s", strat), nil)
	}
	result, err := exec.Execute(ctx, strategy.Request{Task: task, CodeContext: codeCtx, Decision: decision})
	o.observeStrategy(string(strat), err == nil && result.Success, time.Since(started))
	if err != nil {
		return strategy.Result{}, false, domain.Wrap(domain.ErrExecution, "strategy execution failed", err)
	}
	if !result.Success {
		return result, false, domain.NewError(domain.ErrExecution, "strategy produced no valid candidate", nil)
	}
	return result, false, nil
}

func (o *Orchestrator) observeStrategy(name string, success bool, d time.Duration) {
	if o.deps.Metrics != nil {
		o.deps.Metrics.ObserveStrategy(name, success, d)
	}
}

// finalize applies VCS changes, runs the TDD cycle controller over the
// committed candidate, runs the reflection judge, rolls back on any
// non-ACCEPT verdict, refreshes the chunk store, logs the experience record
// and returns the validated response (spec §4.L steps 5-6).
func (o *Orchestrator) finalize(ctx context.Context, task domain.Task, decision domain.ReasoningDecision, result strategy.Result, usedFastPath bool, strat domain.ReasoningStrategy, start time.Time) domain.DeepReasoningResponse {
	wf := result.WorkflowResult
	commitSHA := result.CommitSHA
	verdict := result.ReflectionVerdict

	if wf.Metadata == nil {
		wf.Metadata = map[string]interface{}{}
	}
	if !usedFastPath && strat != "" {
		wf.Metadata["strategy"] = string(strat)
	}

	if wf.Success && o.deps.RepoPath != "" && len(wf.Changes) > 0 {
		applyResult, err := o.deps.VCS.ApplyChanges(ctx, o.deps.RepoPath, wf.Changes, o.deps.BranchName)
		if err != nil {
			wf.Success = false
			wf.Errors = append(wf.Errors, fmt.Sprintf("vcs apply failed: %v", err))
		} else {
			commitSHA = applyResult.CommitSHA
		}
	}

	// TDD verification (component J) runs strictly after the VCS apply
	// above, over whatever strategy F committed; it is the five-component
	// "reproduction-first" cycle of spec §1, and a non-fast-path strategy
	// success is exactly the point at which it gets a committed candidate
	// to reproduce a bug against. Its own Rollback call (on exhausted
	// retries) runs to completion before this function ever returns.
	if wf.Success && !usedFastPath && len(wf.Changes) > 0 {
		wf, commitSHA = o.runTDDVerification(ctx, task, wf, commitSHA)
	}

	if wf.Success {
		verdict = o.reflect(task, strat, wf)
		if verdict != domain.VerdictAccept {
			if commitSHA != "" && o.deps.RepoPath != "" {
				if err := o.deps.VCS.Rollback(ctx, o.deps.RepoPath); err != nil {
					wf.Errors = append(wf.Errors, fmt.Sprintf("rollback failed: %v", err))
				}
			}
			wf.Success = false
			wf.FinalState = "rolled_back"
			commitSHA = ""
		}
	}

	if wf.Success && commitSHA != "" {
		o.refreshChunks(ctx, task, wf.Changes)
	}

	if err := o.deps.Experience.Append(experience.Record{
		TaskID: task.TaskID, Strategy: strat, Verdict: verdict, Success: wf.Success,
	}); err != nil {
		o.log.Warn("experience record append failed: %v", err)
	}

	wf.TotalTimeSeconds = time.Since(start).Seconds()
	return domain.DeepReasoningResponse{
		Success:           wf.Success,
		WorkflowResult:    wf,
		ReasoningDecision: decision,
		ReflectionVerdict: verdict,
		CommitSHA:         commitSHA,
		ExecutionTimeMS:   time.Since(start).Milliseconds(),
		CostUSD:           decision.EstimatedCostUSD,
	}
}

// runTDDVerification builds a Controller scoped to the candidate's target
// file and runs it over the already-committed content. On success it folds
// the controller's (possibly re-committed) result into wf; on exhaustion
// the controller has already rolled back the commit above, so wf.Success
// becomes false and commitSHA is cleared.
func (o *Orchestrator) runTDDVerification(ctx context.Context, task domain.Task, wf domain.WorkflowResult, commitSHA string) (domain.WorkflowResult, string) {
	change := wf.Changes[0]
	controller := tdd.NewController(o.deps.LLM, o.deps.Sandbox, o.deps.VCS, tdd.Options{
		TargetFilePath: change.FilePath,
		MaxRetries:     o.deps.Config.MaxIterations,
		TimeoutSeconds: o.deps.Config.TimeoutSeconds,
		RepoPath:       o.deps.RepoPath,
		BranchName:     o.deps.BranchName,
		PortCleanup:    o.deps.Config.PortCleanupRange,
	})

	tddResult := controller.Run(ctx, task, change.Diff)

	wf.Success = tddResult.Success
	wf.FinalState = tddResult.FinalState
	if len(tddResult.Changes) > 0 {
		wf.Changes = tddResult.Changes
	}
	wf.TestResults = append(wf.TestResults, tddResult.TestResults...)
	wf.Errors = append(wf.Errors, tddResult.Errors...)
	wf.TotalIterations += tddResult.TotalIterations
	for k, v := range tddResult.Metadata {
		wf.Metadata[k] = v
	}

	if !tddResult.Success {
		o.log.Warn("tdd verification failed for task %s: %v", task.TaskID, tddResult.Errors)
		return wf, ""
	}
	if sha, ok := tddResult.Metadata["commit_sha"].(string); ok && sha != "" {
		commitSHA = sha
	}
	return wf, commitSHA
}

// refreshChunks re-indexes every changed file incrementally (spec §2:
// "K is consulted ... during incremental re-indexing after J commits").
// Every FileChange in this codebase carries full replacement content
// rather than a line-range diff, so each file is refreshed as a whole-file
// rebuild rather than a span-intersection update.
func (o *Orchestrator) refreshChunks(ctx context.Context, task domain.Task, changes []domain.FileChange) {
	if o.chunkStore == nil {
		return
	}
	hunks := make([]chunkstore.DiffHunk, 0, len(changes))
	content := make(map[string]string, len(changes))
	for _, c := range changes {
		hunks = append(hunks, chunkstore.DiffHunk{FilePath: c.FilePath, FileAdded: true})
		content[c.FilePath] = c.Diff
	}

	rebuild := func(ctx context.Context, filePath string) ([]domain.Chunk, error) {
		code := content[filePath]
		cc, err := o.deps.Analyzer.Analyze(ctx, code, filePath, languageFromPath(filePath))
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256([]byte(code))
		return []domain.Chunk{{
			ChunkID:     task.RepoID + ":" + filePath,
			RepoID:      task.RepoID,
			SnapshotID:  task.SnapshotID,
			Kind:        domain.ChunkFile,
			FQN:         filePath,
			FilePath:    filePath,
			StartLine:   1,
			EndLine:     cc.LOC,
			ContentHash: hex.EncodeToString(sum[:]),
			Language:    cc.Language,
		}}, nil
	}

	refresher := chunkstore.NewRefresher(o.chunkStore, rebuild)
	if _, err := refresher.Refresh(ctx, task.RepoID, task.SnapshotID, hunks); err != nil {
		o.log.Warn("chunk store refresh failed for task %s: %v", task.TaskID, err)
	}
}

func (o *Orchestrator) reflect(task domain.Task, strat domain.ReasoningStrategy, wf domain.WorkflowResult) domain.ReflectionVerdict {
	passRate := 0.0
	if len(wf.TestResults) > 0 {
		passed := 0
		for _, tr := range wf.TestResults {
			if tr.Passed {
				passed++
			}
		}
		passRate = float64(passed) / float64(len(wf.TestResults))
	}
	input := domain.ReflectionInput{
		StrategyID:           string(strat),
		ExecutionSuccess:     wf.Success,
		TestPassRate:         passRate,
		SimilarFailuresCount: o.deps.Experience.SimilarFailuresCount(strat),
	}
	return o.deps.Judge.Evaluate(input).Verdict
}

// timeoutFailure constructs the timeout response of spec §5: it rolls
// back any commit the in-flight attempt may have made before returning.
func (o *Orchestrator) timeoutFailure(ctx context.Context, result strategy.Result) *domain.Error {
	if result.CommitSHA != "" && o.deps.RepoPath != "" {
		if err := o.deps.VCS.Rollback(ctx, o.deps.RepoPath); err != nil {
			o.log.Warn("timeout rollback failed: %v", err)
		}
	}
	return domain.NewError(domain.ErrTimeout, "deep reasoning request exceeded its deadline", nil)
}
