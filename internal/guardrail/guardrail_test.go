package guardrail

import (
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/domain"
)

func TestValidateRejectsEmptyChangeSet(t *testing.T) {
	v := NewBasicValidator(nil)
	result := v.Validate(nil, "")
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, "no changes to validate")
}

func TestValidateRejectsEmptyDiff(t *testing.T) {
	v := NewBasicValidator(nil)
	result := v.Validate([]domain.FileChange{{FilePath: "main.go", Diff: "  "}}, "")
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
}

func TestValidateEnforcesAllowedExtensions(t *testing.T) {
	v := NewBasicValidator(map[string][]string{"docs": {".md"}})
	result := v.Validate([]domain.FileChange{{FilePath: "main.go", Diff: "+x"}}, "docs")
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
}

func TestValidateAcceptsMatchingProfile(t *testing.T) {
	v := NewBasicValidator(map[string][]string{"docs": {".md"}})
	result := v.Validate([]domain.FileChange{{FilePath: "README.md", Diff: "+x"}}, "docs")
	require.True(t, result.Valid)
	require.Empty(t, result.Errors)
}

func TestValidateAllowsAnyExtensionWhenProfileUnset(t *testing.T) {
	v := NewBasicValidator(nil)
	result := v.Validate([]domain.FileChange{{FilePath: "main.go", Diff: "+x"}}, "unknown-profile")
	require.True(t, result.Valid)
}
