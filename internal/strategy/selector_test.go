package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/domain"
)

func TestSelectExplicitStrategyWins(t *testing.T) {
	s := NewSelector()
	task := domain.Task{TaskID: "t1", ExplicitStrategy: domain.StrategyDebate}
	strat, err := s.Select(task, domain.ReasoningDecision{})
	require.NoError(t, err)
	require.Equal(t, domain.StrategyDebate, strat)
}

func TestSelectForceSystem2RoutesToTOT(t *testing.T) {
	s := NewSelector()
	task := domain.Task{TaskID: "t1", ForceSystem2: true}
	strat, err := s.Select(task, domain.ReasoningDecision{})
	require.NoError(t, err)
	require.Equal(t, domain.StrategyTOT, strat)
}

func TestSelectAutoHighComplexityAndRiskPicksAlphaCode(t *testing.T) {
	s := NewSelector()
	task := domain.Task{TaskID: "t1"}
	strat, err := s.Select(task, domain.ReasoningDecision{Complexity: 0.9, Risk: 0.8})
	require.NoError(t, err)
	require.Equal(t, domain.StrategyAlphaCode, strat)
}

func TestSelectAutoHighComplexityPicksBeam(t *testing.T) {
	s := NewSelector()
	task := domain.Task{TaskID: "t1"}
	strat, err := s.Select(task, domain.ReasoningDecision{Complexity: 0.75, Risk: 0.1})
	require.NoError(t, err)
	require.Equal(t, domain.StrategyBeam, strat)
}

func TestSelectAutoHighRiskPicksO1(t *testing.T) {
	s := NewSelector()
	task := domain.Task{TaskID: "t1"}
	strat, err := s.Select(task, domain.ReasoningDecision{Complexity: 0.2, Risk: 0.8})
	require.NoError(t, err)
	require.Equal(t, domain.StrategyO1, strat)
}

func TestSelectAutoManyContextFilesPicksDebate(t *testing.T) {
	s := NewSelector()
	task := domain.Task{TaskID: "t1", ContextFiles: []string{"a", "b", "c", "d", "e", "f"}}
	strat, err := s.Select(task, domain.ReasoningDecision{Complexity: 0.1, Risk: 0.1})
	require.NoError(t, err)
	require.Equal(t, domain.StrategyDebate, strat)
}

func TestSelectAutoDefaultsToTOT(t *testing.T) {
	s := NewSelector()
	task := domain.Task{TaskID: "t1"}
	strat, err := s.Select(task, domain.ReasoningDecision{Complexity: 0.1, Risk: 0.1})
	require.NoError(t, err)
	require.Equal(t, domain.StrategyTOT, strat)
}

func TestSelectUnknownExplicitStrategyErrors(t *testing.T) {
	s := NewSelector()
	task := domain.Task{TaskID: "t1", ExplicitStrategy: domain.ReasoningStrategy("bogus")}
	_, err := s.Select(task, domain.ReasoningDecision{})
	require.Error(t, err)
}

func TestFallbackOfAlphaCodeIsBeam(t *testing.T) {
	require.Equal(t, domain.StrategyBeam, FallbackOf(domain.StrategyAlphaCode))
	require.Equal(t, domain.ReasoningStrategy(""), FallbackOf(domain.StrategyTOT))
}
