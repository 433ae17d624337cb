package strategy

import (
	"context"

	"deepreason/internal/codeextract"
	"deepreason/internal/constitutional"
	"deepreason/internal/domain"
	"deepreason/internal/llmport"
)

// Request is a strategy executor's input: the task plus the code-context
// and router output that produced it.
type Request struct {
	Task        domain.Task
	CodeContext domain.CodeContext
	Decision    domain.ReasoningDecision
}

// Result is the common executor contract's ExecutionResult (spec §4.F).
type Result struct {
	Success           bool
	WorkflowResult    domain.WorkflowResult
	CommitSHA         string
	ReflectionVerdict domain.ReflectionVerdict
	BestCandidate     domain.Candidate
}

// Executor is implemented by each of the five strategies.
type Executor interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// extractCode is the "universal code-extractor" spec §4.F.4 requires for
// DEBATE's final position, reused by every executor that turns raw LLM
// output into a Candidate's code.
func extractCode(text string) string {
	return codeextract.Extract(text)
}

// gateConstitutional implements the common contract's mandatory
// post-selection safety check: any CRITICAL finding converts success to
// failure with verdict RETRY, regardless of what the executor itself
// concluded.
func gateConstitutional(checker *constitutional.Checker, candidate domain.Candidate, result Result) Result {
	check := checker.Check(candidate.Code)
	if check.Blocked {
		result.Success = false
		result.ReflectionVerdict = domain.VerdictRetry
		if result.WorkflowResult.Errors == nil {
			result.WorkflowResult.Errors = []string{}
		}
		result.WorkflowResult.Errors = append(result.WorkflowResult.Errors, "constitutional check blocked candidate")
		result.WorkflowResult.Success = false
	}
	return result
}

// withRetrievedContext appends the chunk store's retrieved context (spec
// §2: "K is consulted for context retrieval during F") to a generation
// prompt. Every executor's initial/proposal prompt runs its text through
// this before calling the LLM; refinement/critique prompts that already
// carry a previous candidate's code skip it to avoid ballooning the
// prompt on later rounds.
func withRetrievedContext(task domain.Task, prompt string) string {
	if task.RetrievedContext == "" {
		return prompt
	}
	return prompt + "\n\nRelated code context:\n" + task.RetrievedContext
}

// generateOrEmpty calls port.Generate and returns "" instead of an error,
// so a single failed sample does not abort a strategy that samples many
// candidates. Callers that need the error should call port.Generate
// directly.
func generateOrEmpty(ctx context.Context, port llmport.LLMPort, prompt string, opts llmport.GenerateOptions) string {
	out, err := port.Generate(ctx, prompt, opts)
	if err != nil {
		return ""
	}
	return out
}
