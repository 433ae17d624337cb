package contextanalysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzeSimpleGoFunction(t *testing.T) {
	a := NewAnalyzer()
	code := `package main

import "fmt"

func main() {
	fmt.Println("hi")
}
`
	cc, err := a.Analyze(context.Background(), code, "main.go", "go")
	require.NoError(t, err)
	require.Equal(t, "main.go", cc.FilePath)
	require.True(t, cc.IsSimple)
	require.False(t, cc.IsComplex)
	require.Contains(t, cc.Imports, "fmt")
}

func TestAnalyzeUnsupportedLanguage(t *testing.T) {
	a := NewAnalyzer()
	_, err := a.Analyze(context.Background(), "x", "x.cob", "cobol")
	require.Error(t, err)

	var unsupported *ErrUnsupportedLanguage
	require.ErrorAs(t, err, &unsupported)
}

func TestAnalyzeComplexPythonFunction(t *testing.T) {
	a := NewAnalyzer()
	code := `
def f(x):
    if x > 0:
        for i in range(x):
            if i % 2 == 0 and i > 1:
                while i > 0:
                    try:
                        i -= 1
                    except Exception:
                        pass
    elif x < 0:
        return -x
    return x
`
	cc, err := a.Analyze(context.Background(), code, "f.py", "python")
	require.NoError(t, err)
	require.Greater(t, cc.ComplexityScore, 0.0)
}
