// Package tdd implements the TDD Cycle Controller (spec §4.J): a
// reproduction-first repair loop generalized from the teacher's TDDLoop
// state machine in internal/core/tdd_loop.go.
package tdd

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// FuzzyPatcher applies an LLM-proposed replacement against the current
// file content using diff-match-patch rather than exact string
// replacement, so drift between the content the patch was written against
// and the file's actual current state doesn't hard-fail the apply.
type FuzzyPatcher struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewFuzzyPatcher constructs a FuzzyPatcher.
func NewFuzzyPatcher() *FuzzyPatcher {
	return &FuzzyPatcher{dmp: diffmatchpatch.New()}
}

// Apply computes the diff between current and proposed, turns it into a
// patch set, and re-applies that patch set against current. It returns the
// resulting text and a confidence score: the fraction of patch hunks that
// applied cleanly. A confidence of 1.0 means every hunk matched its
// expected context exactly.
func (f *FuzzyPatcher) Apply(current, proposed string) (string, float64) {
	diffs := f.dmp.DiffMain(current, proposed, false)
	patches := f.dmp.PatchMake(current, diffs)
	if len(patches) == 0 {
		return proposed, 1.0
	}

	applied, oks := f.dmp.PatchApply(patches, current)

	successCount := 0
	for _, ok := range oks {
		if ok {
			successCount++
		}
	}
	confidence := float64(successCount) / float64(len(oks))
	return applied, confidence
}
