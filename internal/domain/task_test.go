package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTaskValid(t *testing.T) {
	task, err := NewTask("fix the bug", "repo-1", "3fa85f64-5717-4562-b3fc-2c963f66afa6", []string{"main.go"})
	require.NoError(t, err)
	require.NotEmpty(t, task.TaskID)
	require.Equal(t, "main.go", task.FirstContextFile())
}

func TestNewTaskMissingDescription(t *testing.T) {
	_, err := NewTask("", "repo-1", "3fa85f64-5717-4562-b3fc-2c963f66afa6", nil)
	require.Error(t, err)

	var derr *Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, ErrValidation, derr.Kind)
}

func TestFirstContextFileEmpty(t *testing.T) {
	task := Task{TaskID: "t1"}
	require.Equal(t, "", task.FirstContextFile())
}
