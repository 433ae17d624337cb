package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"deepreason/internal/contextanalysis"
	"deepreason/internal/domain"
)

func TestDecideForceSystem2(t *testing.T) {
	r := NewRouter(nil, 0.7)
	task := domain.Task{TaskID: "t1", ForceSystem2: true}
	decision := r.Decide(context.Background(), task, "")
	require.Equal(t, domain.System2, decision.Path)
	require.Equal(t, 1.0, decision.Confidence)
}

func TestDecideSimpleCodeContextRoutesSystem1(t *testing.T) {
	r := NewRouter(contextanalysis.NewAnalyzer(), 0.7)
	task := domain.Task{TaskID: "t2", ContextFiles: []string{"main.go"}}
	decision := r.Decide(context.Background(), task, "package main\nfunc main() {}\n")
	require.Equal(t, domain.System1, decision.Path)
}

func TestDecideComplexCodeContextRoutesSystem2(t *testing.T) {
	r := NewRouter(contextanalysis.NewAnalyzer(), 0.7)
	code := `package main

func f(x int) int {
	if x > 0 {
		for i := 0; i < x; i++ {
			if i%2 == 0 && i > 1 {
				for j := 0; j < i; j++ {
					if j > 2 || j < 0 {
						x += j
					}
				}
			}
		}
	}
	return x
}
`
	task := domain.Task{TaskID: "t3", ContextFiles: []string{"complex.go"}}
	decision := r.Decide(context.Background(), task, code)
	require.Equal(t, domain.System2, decision.Path)
}

func TestDecideFallsBackOnUnsupportedLanguage(t *testing.T) {
	r := NewRouter(contextanalysis.NewAnalyzer(), 0.7)
	task := domain.Task{TaskID: "t4", Description: "refactor the module architecture", ContextFiles: []string{"x.unknownlang"}}
	decision := r.Decide(context.Background(), task, "whatever")
	require.NotEmpty(t, decision.Path)
	require.Equal(t, 0.5, decision.Confidence)
}

func TestBasicRouteDefaultsSystem1(t *testing.T) {
	r := NewRouter(nil, 0.7)
	task := domain.Task{TaskID: "t5", Description: "tweak a comment"}
	decision := r.Decide(context.Background(), task, "")
	require.Equal(t, domain.System1, decision.Path)
}
