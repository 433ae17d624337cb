package strategy

import (
	"context"
	"regexp"
	"strings"

	"deepreason/internal/sandbox"
)

var wordPattern = regexp.MustCompile(`\w+`)

// keywordCoverage scores what fraction of the task description's
// significant words (longer than 3 characters) appear in code: the
// multi-criterion scorer's coverage signal for TOT (spec §4.F.1).
func keywordCoverage(description, code string) float64 {
	words := wordPattern.FindAllString(strings.ToLower(description), -1)
	lowerCode := strings.ToLower(code)

	var significant, covered int
	for _, w := range words {
		if len(w) <= 3 {
			continue
		}
		significant++
		if strings.Contains(lowerCode, w) {
			covered++
		}
	}
	if significant == 0 {
		return 1.0
	}
	return float64(covered) / float64(significant)
}

// lengthPenalty implements BEAM's length_penalty(max(0, 1 - len/1000)) term
// (spec §4.F.2).
func lengthPenalty(code string) float64 {
	penalty := 1.0 - float64(len(code))/1000.0
	if penalty < 0 {
		return 0
	}
	return penalty
}

// evaluate runs code through exec (heuristic or real pytest, per config)
// and returns the CompileSuccess/TestPassRate a Candidate needs. These
// signals come directly from exec's own measurement; no executor may
// fabricate them (spec §4.F closing invariant).
func evaluate(ctx context.Context, exec sandbox.Executor, filePath, code string, timeoutSeconds int) (bool, float64) {
	res, err := exec.ExecuteCode(ctx, map[string]string{filePath: code}, timeoutSeconds)
	if err != nil {
		return false, 0
	}
	return res.CompileSuccess, res.TestPassRate
}

// codeDistance is a crude pairwise distance metric (line-level Jaccard
// dissimilarity) used for BEAM's diversity metric (spec §4.F.2).
func codeDistance(a, b string) float64 {
	linesA := lineSet(a)
	linesB := lineSet(b)
	if len(linesA) == 0 && len(linesB) == 0 {
		return 0
	}
	shared := 0
	for l := range linesA {
		if linesB[l] {
			shared++
		}
	}
	union := len(linesA) + len(linesB) - shared
	if union == 0 {
		return 0
	}
	return 1.0 - float64(shared)/float64(union)
}

func lineSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			set[line] = true
		}
	}
	return set
}
