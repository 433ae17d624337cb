package codeextract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractFencedBlock(t *testing.T) {
	text := "Here is the code:\n```go\nfunc f() {}\n```\nDone."
	require.Equal(t, "func f() {}", Extract(text))
}

func TestExtractFallsBackToWholeText(t *testing.T) {
	require.Equal(t, "func f() {}", Extract("  func f() {}  "))
}
