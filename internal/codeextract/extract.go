// Package codeextract implements the "universal code-extractor" DEBATE's
// final position and the Fast-Path pipeline's GENERATE/HEAL steps both
// rely on: pulling the code body out of an LLM's raw text response.
package codeextract

import (
	"regexp"
	"strings"
)

var fencedCodeBlock = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*\\n(.*?)```")

// Extract returns the body of the first fenced code block in text,
// falling back to the whole text trimmed when no fence is present.
func Extract(text string) string {
	if m := fencedCodeBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}
