package strategy

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"deepreason/internal/constitutional"
	"deepreason/internal/domain"
	"deepreason/internal/llmport"
	"deepreason/internal/logging"
	"deepreason/internal/sandbox"
)

// DebateOptions configures a DebateExecutor, bounds from spec §6.
type DebateOptions struct {
	NumProposers       int
	NumCritics         int
	MaxRounds          int
	ConsensusThreshold float64
	FilePath           string
	TimeoutSeconds     int
	Temperature        float64
}

type debatePosition struct {
	candidate domain.Candidate
	rawText   string
	score     float64
}

// DebateExecutor implements the DEBATE strategy (spec §4.F.4): proposers
// produce positions referencing previous rounds, critics rate them, and
// the debate ends early on consensus between the top two positions.
type DebateExecutor struct {
	port    llmport.LLMPort
	exec    sandbox.Executor
	checker *constitutional.Checker
	opts    DebateOptions
	log     *logging.Logger
}

// NewDebateExecutor constructs a DebateExecutor. ConsensusThreshold
// defaults to 0.85 when left zero.
func NewDebateExecutor(port llmport.LLMPort, exec sandbox.Executor, checker *constitutional.Checker, opts DebateOptions) *DebateExecutor {
	if opts.FilePath == "" {
		opts.FilePath = "candidate.go"
	}
	if opts.TimeoutSeconds == 0 {
		opts.TimeoutSeconds = 30
	}
	if opts.ConsensusThreshold == 0 {
		opts.ConsensusThreshold = 0.85
	}
	return &DebateExecutor{port: port, exec: exec, checker: checker, opts: opts, log: logging.Get(logging.CategoryStrategy)}
}

func (e *DebateExecutor) Execute(ctx context.Context, req Request) (Result, error) {
	var previous []debatePosition
	var winner debatePosition

	for round := 0; round < e.opts.MaxRounds; round++ {
		positions := e.propose(ctx, req.Task, previous, round)
		if len(positions) == 0 {
			break
		}
		e.critique(ctx, req.Task, positions)

		sort.SliceStable(positions, func(i, j int) bool { return positions[i].score > positions[j].score })
		winner = positions[0]

		if len(positions) >= 2 && agreement(positions[0].score, positions[1].score) >= e.opts.ConsensusThreshold {
			e.log.Debug("debate reached consensus after round %d", round)
			previous = positions
			break
		}
		previous = positions
	}

	if winner.candidate.Code == "" {
		return Result{
			Success:           false,
			WorkflowResult:    domain.WorkflowResult{Success: false, FinalState: "failed", Errors: []string{"debate produced no positions"}},
			ReflectionVerdict: domain.VerdictRetry,
		}, nil
	}

	compile, passRate := evaluate(ctx, e.exec, e.opts.FilePath, winner.candidate.Code, e.opts.TimeoutSeconds)
	winner.candidate.CompileSuccess = compile
	winner.candidate.TestPassRate = passRate

	result := Result{
		Success:       compile,
		BestCandidate: winner.candidate,
		WorkflowResult: domain.WorkflowResult{
			Success:    compile,
			FinalState: "accepted",
			Changes:    []domain.FileChange{{FilePath: e.opts.FilePath, Diff: winner.candidate.Code}},
			Metadata:   map[string]interface{}{"debate_score": winner.score},
		},
		ReflectionVerdict: domain.VerdictAccept,
	}
	if !compile {
		result.ReflectionVerdict = domain.VerdictRetry
	}
	return gateConstitutional(e.checker, winner.candidate, result), nil
}

func (e *DebateExecutor) propose(ctx context.Context, task domain.Task, previous []debatePosition, round int) []debatePosition {
	var positions []debatePosition
	for i := 0; i < e.opts.NumProposers; i++ {
		prompt := debateProposePrompt(task, previous, round, i)
		text := generateOrEmpty(ctx, e.port, prompt, llmport.GenerateOptions{Temperature: e.opts.Temperature})
		if text == "" {
			continue
		}
		positions = append(positions, debatePosition{
			rawText: text,
			candidate: domain.Candidate{
				ID:   fmt.Sprintf("debate-r%d-p%d", round, i),
				Code: extractCode(text),
			},
		})
	}
	return positions
}

func debateProposePrompt(task domain.Task, previous []debatePosition, round, proposer int) string {
	if len(previous) == 0 {
		return withRetrievedContext(task, fmt.Sprintf("Proposer %d, round %d: propose a solution for task: %s", proposer, round, task.Description))
	}
	var refs strings.Builder
	for i, p := range previous {
		fmt.Fprintf(&refs, "Position %d (score %.2f):\n%s\n\n", i, p.score, p.rawText)
	}
	return fmt.Sprintf("Proposer %d, round %d: improve on the previous round's positions below for task: %s\n\n%s",
		proposer, round, task.Description, refs.String())
}

// critique asks NumCritics independent critics to rate each position and
// averages their scores. A critic response that does not contain a
// parseable rating falls back to a deterministic keyword-coverage score so
// a single malformed LLM response cannot stall the round.
func (e *DebateExecutor) critique(ctx context.Context, task domain.Task, positions []debatePosition) {
	for i := range positions {
		var total float64
		for c := 0; c < e.opts.NumCritics; c++ {
			prompt := critiquePrompt(task, positions[i].rawText, c)
			text := generateOrEmpty(ctx, e.port, prompt, llmport.GenerateOptions{Temperature: 0.2})
			total += parseRating(text, task.Description, positions[i].candidate.Code)
		}
		if e.opts.NumCritics > 0 {
			positions[i].score = total / float64(e.opts.NumCritics)
		}
	}
}

func critiquePrompt(task domain.Task, position string, critic int) string {
	return fmt.Sprintf("Critic %d: rate this position from 0 to 1 for task %q:\n%s", critic, task.Description, position)
}

var ratingPattern = regexp.MustCompile(`\b0?\.\d+|\b1(\.0+)?\b`)

func parseRating(text, description, code string) float64 {
	if m := ratingPattern.FindString(text); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil && v >= 0 && v <= 1 {
			return v
		}
	}
	return keywordCoverage(description, code)
}

// agreement is 1.0 when two scores are identical, decaying toward 0 as
// they diverge: min/max ratio, which is undefined when both are zero.
func agreement(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 1
	}
	hi := math.Max(a, b)
	lo := math.Min(a, b)
	if hi == 0 {
		return 0
	}
	return lo / hi
}
