package domain

// ReasoningDecision is the Router's output (spec §3). The invariant
// `path = SYSTEM_2 => complexity >= threshold || risk >= threshold || override`
// is enforced by the Router at construction time (see internal/router),
// not here, since the threshold is a config value this package does not own.
type ReasoningDecision struct {
	Path                  ReasoningPath `json:"path"`
	Confidence            float64       `json:"confidence" validate:"gte=0,lte=1"`
	Reasoning             string        `json:"reasoning"`
	Complexity            float64       `json:"complexity" validate:"gte=0,lte=1"`
	Risk                  float64       `json:"risk" validate:"gte=0,lte=1"`
	EstimatedCostUSD      float64       `json:"estimated_cost_usd" validate:"gte=0"`
	EstimatedTimeSeconds  float64       `json:"estimated_time_seconds" validate:"gte=0"`
}

// CodeContext is the Code-Context Analyzer's output (spec §3/4.A).
type CodeContext struct {
	FilePath         string   `json:"file_path"`
	Language         string   `json:"language"`
	ASTDepth         int      `json:"ast_depth"`
	ComplexityScore  float64  `json:"complexity_score" validate:"gte=0,lte=1"`
	LOC              int      `json:"loc"`
	Imports          []string `json:"imports"`
	DependencyCount  int      `json:"dependency_count"`
	IsSimple         bool     `json:"is_simple"`
	IsComplex        bool     `json:"is_complex"`
}

// Candidate is the strategy-specific superset (spec §3). Not every field
// is populated by every executor; zero values are semantically "unset".
type Candidate struct {
	ID             string                 `json:"id"`
	Code           string                 `json:"code"`
	Reasoning      string                 `json:"reasoning"`
	CompileSuccess bool                   `json:"compile_success"`
	TestPassRate   float64                `json:"test_pass_rate" validate:"gte=0,lte=1"`
	QualityScore   float64                `json:"quality_score" validate:"gte=0,lte=1"`
	LLMConfidence  float64                `json:"llm_confidence" validate:"gte=0,lte=1"`
	Depth          int                    `json:"depth"`
	ParentID       string                 `json:"parent_id,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// FinalScore implements the spec's scoring function:
// 0.3*compile_success + 0.5*test_pass_rate + 0.2*quality.
func (c Candidate) FinalScore() float64 {
	compile := 0.0
	if c.CompileSuccess {
		compile = 1.0
	}
	return 0.3*compile + 0.5*c.TestPassRate + 0.2*c.QualityScore
}

// GraphImpact feeds the Reflection Judge (spec §4.H).
type GraphImpact struct {
	NodesAdded        int            `json:"nodes_added"`
	NodesRemoved      int            `json:"nodes_removed"`
	AffectedFunctions []string       `json:"affected_functions"`
	StabilityLevel    StabilityLevel `json:"stability_level"`
	ImpactScore       float64        `json:"impact_score" validate:"gte=0,lte=1"`
}

// ExecutionTrace feeds the Reflection Judge (spec §4.H).
type ExecutionTrace struct {
	CoverageDelta float64  `json:"coverage_delta"`
	NewExceptions []string `json:"new_exceptions"`
	FixedExceptions []string `json:"fixed_exceptions"`
}

// ReflectionInput is the Reflection Judge's input (spec §4.H).
type ReflectionInput struct {
	StrategyID           string          `json:"strategy_id"`
	ExecutionSuccess     bool            `json:"execution_success"`
	TestPassRate         float64         `json:"test_pass_rate"`
	GraphImpact          GraphImpact     `json:"graph_impact"`
	ExecutionTrace       ExecutionTrace  `json:"execution_trace"`
	SimilarFailuresCount int             `json:"similar_failures_count"`
}

// ReflectionOutput carries the verdict plus caller-loggable extras.
type ReflectionOutput struct {
	Verdict        ReflectionVerdict `json:"verdict"`
	Warnings       []string          `json:"warnings,omitempty"`
	SuggestedFixes []string          `json:"suggested_fixes,omitempty"`
}

// WorkflowResult is the executor-level result (spec §3).
type WorkflowResult struct {
	Success          bool                   `json:"success"`
	FinalState       string                 `json:"final_state"`
	Changes          []FileChange           `json:"changes"`
	TestResults      []TestResult           `json:"test_results"`
	TotalIterations  int                    `json:"total_iterations"`
	TotalTimeSeconds float64                `json:"total_time_seconds"`
	Errors           []string               `json:"errors,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// FileChange is one file's before/after content in a WorkflowResult.
type FileChange struct {
	FilePath string `json:"file_path"`
	Diff     string `json:"diff"`
}

// TestResult records one test run's outcome.
type TestResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Output   string `json:"output,omitempty"`
}

// DeepReasoningResponse is the top-level response of 4.L.
type DeepReasoningResponse struct {
	Success            bool               `json:"success"`
	WorkflowResult      WorkflowResult     `json:"workflow_result"`
	ReasoningDecision   ReasoningDecision  `json:"reasoning_decision"`
	ReflectionVerdict   ReflectionVerdict  `json:"reflection_verdict,omitempty"`
	CommitSHA          string             `json:"commit_sha,omitempty"`
	ExecutionTimeMS    int64              `json:"execution_time_ms"`
	CostUSD            float64            `json:"cost_usd"`
}

// Validate enforces the response-level invariants of spec §4.L step 6.
func (r DeepReasoningResponse) Validate() error {
	if r.ExecutionTimeMS < 0 {
		return NewError(ErrValidation, "execution_time_ms must be non-negative", nil)
	}
	if r.CostUSD < 0 {
		return NewError(ErrValidation, "cost_usd must be non-negative", nil)
	}
	if r.CommitSHA != "" && len(r.CommitSHA) != 7 && len(r.CommitSHA) != 40 {
		return NewError(ErrValidation, "commit_sha must be 7 or 40 hex chars", nil)
	}
	if r.CommitSHA != "" && !isHex(r.CommitSHA) {
		return NewError(ErrValidation, "commit_sha must be hex", nil)
	}
	if r.ReflectionVerdict != "" && !r.ReflectionVerdict.IsLegal() {
		return NewError(ErrReflection, "unknown reflection verdict", nil)
	}
	if r.Success != r.WorkflowResult.Success {
		return NewError(ErrValidation, "response.success must equal workflow_result.success", nil)
	}
	return nil
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
