package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCandidateFinalScore(t *testing.T) {
	c := Candidate{CompileSuccess: true, TestPassRate: 0.8, QualityScore: 0.5}
	require.InDelta(t, 0.3+0.5*0.8+0.2*0.5, c.FinalScore(), 1e-9)
}

func TestCandidateFinalScoreCompileFailure(t *testing.T) {
	c := Candidate{CompileSuccess: false, TestPassRate: 1.0, QualityScore: 1.0}
	require.InDelta(t, 0.7, c.FinalScore(), 1e-9)
}

func TestDeepReasoningResponseValidate(t *testing.T) {
	resp := DeepReasoningResponse{
		Success:        true,
		WorkflowResult: WorkflowResult{Success: true},
		CommitSHA:      "abc1234",
	}
	require.NoError(t, resp.Validate())
}

func TestDeepReasoningResponseValidateSuccessMismatch(t *testing.T) {
	resp := DeepReasoningResponse{
		Success:        true,
		WorkflowResult: WorkflowResult{Success: false},
	}
	require.Error(t, resp.Validate())
}

func TestDeepReasoningResponseValidateBadCommitSHA(t *testing.T) {
	resp := DeepReasoningResponse{
		Success:        true,
		WorkflowResult: WorkflowResult{Success: true},
		CommitSHA:      "zzz",
	}
	require.Error(t, resp.Validate())
}
