// Package reflection implements the Reflection Judge (spec §4.H): a
// first-match decision table over execution, test and graph-impact
// signals, generalized from the teacher's sandboxed rule-ratification veto
// chain in internal/core/rule_court.go.
package reflection

import (
	"fmt"

	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

const unstableImpactThreshold = 0.7
const minTestPassRate = 0.4

// Judge evaluates a ReflectionInput against the spec's ordered veto chain.
type Judge struct {
	log *logging.Logger
}

// NewJudge constructs a Judge.
func NewJudge() *Judge {
	return &Judge{log: logging.Get(logging.CategoryReflection)}
}

// Evaluate runs the first-match decision table of spec §4.H.
func (j *Judge) Evaluate(input domain.ReflectionInput) domain.ReflectionOutput {
	var warnings []string
	var fixes []string

	switch {
	case !input.ExecutionSuccess:
		warnings = append(warnings, "execution did not succeed")
		return j.result(input, domain.VerdictRetry, warnings, fixes)

	case input.TestPassRate < minTestPassRate:
		warnings = append(warnings, fmt.Sprintf("test pass rate %.2f below threshold %.2f", input.TestPassRate, minTestPassRate))
		fixes = append(fixes, "increase test coverage for the generated change before re-attempting")
		return j.result(input, domain.VerdictRevise, warnings, fixes)

	case input.GraphImpact.StabilityLevel == domain.StabilityUnstable && input.GraphImpact.ImpactScore > unstableImpactThreshold:
		warnings = append(warnings, fmt.Sprintf("unstable graph impact score %.2f", input.GraphImpact.ImpactScore))
		return j.result(input, domain.VerdictRollback, warnings, fixes)

	case input.ExecutionTrace.CoverageDelta < 0 && len(input.ExecutionTrace.NewExceptions) > 0:
		warnings = append(warnings, "coverage regressed and new exceptions were introduced")
		fixes = append(fixes, "address the newly introduced exceptions before resubmitting")
		return j.result(input, domain.VerdictRevise, warnings, fixes)

	default:
		return j.result(input, domain.VerdictAccept, warnings, fixes)
	}
}

func (j *Judge) result(input domain.ReflectionInput, verdict domain.ReflectionVerdict, warnings, fixes []string) domain.ReflectionOutput {
	if input.SimilarFailuresCount > 0 {
		warnings = append(warnings, fmt.Sprintf("%d similar prior failures recorded for strategy %s", input.SimilarFailuresCount, input.StrategyID))
	}
	j.log.Debug("reflection verdict for strategy %s: %s", input.StrategyID, verdict)
	return domain.ReflectionOutput{Verdict: verdict, Warnings: warnings, SuggestedFixes: fixes}
}
