package reflection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/domain"
)

func TestEvaluateExecutionFailureRetries(t *testing.T) {
	j := NewJudge()
	out := j.Evaluate(domain.ReflectionInput{ExecutionSuccess: false})
	require.Equal(t, domain.VerdictRetry, out.Verdict)
}

func TestEvaluateLowTestPassRateRevises(t *testing.T) {
	j := NewJudge()
	out := j.Evaluate(domain.ReflectionInput{ExecutionSuccess: true, TestPassRate: 0.1})
	require.Equal(t, domain.VerdictRevise, out.Verdict)
}

func TestEvaluateUnstableHighImpactRollsBack(t *testing.T) {
	j := NewJudge()
	out := j.Evaluate(domain.ReflectionInput{
		ExecutionSuccess: true,
		TestPassRate:     0.9,
		GraphImpact:      domain.GraphImpact{StabilityLevel: domain.StabilityUnstable, ImpactScore: 0.9},
	})
	require.Equal(t, domain.VerdictRollback, out.Verdict)
}

func TestEvaluateCoverageRegressionRevises(t *testing.T) {
	j := NewJudge()
	out := j.Evaluate(domain.ReflectionInput{
		ExecutionSuccess: true,
		TestPassRate:     0.9,
		ExecutionTrace:   domain.ExecutionTrace{CoverageDelta: -0.1, NewExceptions: []string{"ValueError"}},
	})
	require.Equal(t, domain.VerdictRevise, out.Verdict)
}

func TestEvaluateAcceptsCleanRun(t *testing.T) {
	j := NewJudge()
	out := j.Evaluate(domain.ReflectionInput{ExecutionSuccess: true, TestPassRate: 1.0})
	require.Equal(t, domain.VerdictAccept, out.Verdict)
}
