// Package domain holds the shared data model for the deep reasoning
// orchestrator: tasks, decisions, candidates and the closed error taxonomy
// every component constructs and the orchestrator dispatches on.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Task is the immutable unit of work handed to the orchestrator.
type Task struct {
	TaskID       string                 `json:"task_id" validate:"required,uuid"`
	Description  string                 `json:"description" validate:"required"`
	RepoID       string                 `json:"repo_id" validate:"required"`
	SnapshotID   string                 `json:"snapshot_id" validate:"required,uuid"`
	ContextFiles []string               `json:"context_files"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`

	// ForceSystem2 and ExplicitStrategy are caller overrides consulted by
	// the Router and Strategy Selector respectively. They are part of the
	// task rather than ambient request options because a Task is immutable
	// once created and the override must travel with it.
	ForceSystem2     bool             `json:"force_system_2,omitempty"`
	ExplicitStrategy ReasoningStrategy `json:"strategy,omitempty"`

	// RetrievedContext is the chunk store's context-retrieval result (spec
	// §2's "K is consulted for context retrieval during F"), populated by
	// the orchestrator right before dispatch. It travels with the task the
	// same way ForceSystem2/ExplicitStrategy do, but is never part of the
	// wire contract since it is derived, not caller-supplied.
	RetrievedContext string `json:"-"`
}

// NewTask constructs a Task with a generated TaskID, validating the rest.
func NewTask(description, repoID, snapshotID string, contextFiles []string) (Task, error) {
	t := Task{
		TaskID:       uuid.NewString(),
		Description:  description,
		RepoID:       repoID,
		SnapshotID:   snapshotID,
		ContextFiles: contextFiles,
	}
	return t, Validate(t)
}

// FirstContextFile returns the first context file or "" if none exist.
func (t Task) FirstContextFile() string {
	if len(t.ContextFiles) == 0 {
		return ""
	}
	return t.ContextFiles[0]
}

// String implements fmt.Stringer for log lines.
func (t Task) String() string {
	return fmt.Sprintf("task:%s repo=%s files=%d", t.TaskID, t.RepoID, len(t.ContextFiles))
}
