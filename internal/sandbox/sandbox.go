// Package sandbox implements the ISandboxExecutor boundary (spec §6): two
// code-execution backends, a heuristic AST-shape scorer (no real process
// execution) and a real pytest subprocess adapter.
package sandbox

import "context"

// Result is ISandboxExecutor's execute_code output.
type Result struct {
	CompileSuccess bool
	TestsRun       int
	TestsPassed    int
	TestPassRate   float64
	Stdout         string
	Stderr         string
	ExitCode       int
}

// Executor is the ISandboxExecutor contract.
type Executor interface {
	ExecuteCode(ctx context.Context, files map[string]string, timeoutSeconds int) (Result, error)
	Cleanup() error
}
