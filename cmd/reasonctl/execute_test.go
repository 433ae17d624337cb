package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/domain"
)

func TestExitCodeForErrorValidation(t *testing.T) {
	code, lines := exitCodeForError(domain.NewError(domain.ErrValidation, "description is required", nil))
	require.Equal(t, 22, code)
	require.Equal(t, []string{"description is required"}, lines)
}

func TestExitCodeForErrorFallbackIsGeneric(t *testing.T) {
	code, _ := exitCodeForError(domain.FallbackError(errors.New("deep failed"), errors.New("fast failed")))
	require.Equal(t, 1, code)
}

func TestExitCodeForErrorIncludesDetails(t *testing.T) {
	code, lines := exitCodeForError(domain.NewError(domain.ErrExecution, "strategy failed", map[string]interface{}{"strategy": "tot"}))
	require.Equal(t, 1, code)
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], "strategy")
}

func TestExitCodeForErrorUnrecognizedError(t *testing.T) {
	code, lines := exitCodeForError(errors.New("boom"))
	require.Equal(t, 1, code)
	require.Equal(t, []string{"boom"}, lines)
}

func TestRepoPathForRespectsApplyFlag(t *testing.T) {
	require.Equal(t, "", repoPathFor("/repo", false))
	require.Equal(t, "/repo", repoPathFor("/repo", true))
}

func TestFilepathBase(t *testing.T) {
	require.Equal(t, "repo", filepathBase("/home/user/repo"))
	require.Equal(t, "repo", filepathBase("repo"))
}
