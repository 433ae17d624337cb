// Package strategy implements the Strategy Selector (spec §4.E) and the
// five Strategy Executors (spec §4.F) dispatched from it.
package strategy

import (
	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

// complexityBeamThreshold and riskO1Threshold are the selector's auto-rule
// cutoffs; complexityAlphaCodeThreshold additionally requires risk above
// riskO1Threshold before ALPHACODE is chosen over BEAM.
const (
	complexityAlphaCodeThreshold = 0.85
	complexityBeamThreshold      = 0.7
	riskO1Threshold              = 0.7
	debateContextFileCount       = 5
)

// Selector resolves a task and its ReasoningDecision to a concrete
// ReasoningStrategy, following the priority order of spec §4.E: explicit
// request override, then force_system_2, then the auto rule table.
type Selector struct {
	log *logging.Logger
}

// NewSelector constructs a Selector.
func NewSelector() *Selector {
	return &Selector{log: logging.Get(logging.CategoryStrategy)}
}

// Select returns the concrete strategy to execute for task given decision,
// the Router's output for the same task.
func (s *Selector) Select(task domain.Task, decision domain.ReasoningDecision) (domain.ReasoningStrategy, error) {
	if task.ExplicitStrategy != "" && task.ExplicitStrategy != domain.StrategyAuto {
		strat, err := domain.ParseStrategy(string(task.ExplicitStrategy))
		if err != nil {
			return "", err
		}
		s.log.Debug("task %s: explicit strategy %s", task.TaskID, strat)
		return strat, nil
	}

	if task.ForceSystem2 {
		s.log.Debug("task %s: force_system_2 routes to TOT", task.TaskID)
		return domain.StrategyTOT, nil
	}

	return s.auto(task, decision), nil
}

// auto applies the first-match rule table of spec §4.E.
func (s *Selector) auto(task domain.Task, decision domain.ReasoningDecision) domain.ReasoningStrategy {
	switch {
	case decision.Complexity > complexityAlphaCodeThreshold && decision.Risk > riskO1Threshold:
		return domain.StrategyAlphaCode
	case decision.Complexity > complexityBeamThreshold:
		return domain.StrategyBeam
	case decision.Risk > riskO1Threshold:
		return domain.StrategyO1
	case len(task.ContextFiles) > debateContextFileCount:
		return domain.StrategyDebate
	default:
		return domain.StrategyTOT
	}
}

// FallbackOf returns ALPHACODE's documented fallback strategy. Other
// strategies have no documented fallback and return "" (meaning: degrade to
// System-1 fast path rather than another strategy).
func FallbackOf(strat domain.ReasoningStrategy) domain.ReasoningStrategy {
	if strat == domain.StrategyAlphaCode {
		return domain.StrategyBeam
	}
	return ""
}
