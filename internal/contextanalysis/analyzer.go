// Package contextanalysis implements the Code-Context Analyzer (spec §4.A):
// AST depth, cyclomatic complexity, LOC, and import extraction over
// pre-loaded source content. It never touches the filesystem itself.
package contextanalysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

// ErrUnsupportedLanguage is returned for any language the analyzer has no
// tree-sitter grammar or decision-point heuristic for.
type ErrUnsupportedLanguage struct {
	Language string
}

func (e *ErrUnsupportedLanguage) Error() string {
	return fmt.Sprintf("contextanalysis: unsupported language %q", e.Language)
}

const highComplexity = 0.6
const highDepth = 8
const lowComplexity = 0.2
const lowDepth = 4

// decisionPointPatterns gives a regex-counted proxy for cyclomatic
// complexity per spec §4.A's enumerated decision points, used both as the
// primary signal (languages without a tree-sitter grammar here) and as a
// cross-check alongside the tree-sitter node walk.
var decisionPointPatterns = map[string]*regexp.Regexp{
	"go":         regexp.MustCompile(`\b(if|for|case|&&|\|\|)\b`),
	"python":     regexp.MustCompile(`\b(if|elif|for|while|except|and|or)\b`),
	"rust":       regexp.MustCompile(`\b(if|for|while|match|&&|\|\|)\b`),
	"typescript": regexp.MustCompile(`\b(if|for|while|case|&&|\|\|)\b`),
	"javascript": regexp.MustCompile(`\b(if|for|while|case|&&|\|\|)\b`),
}

var importPatterns = map[string]*regexp.Regexp{
	"go":         regexp.MustCompile(`^\s*(?:import\s+)?"([^"]+)"`),
	"python":     regexp.MustCompile(`^\s*(?:from\s+(\S+)\s+import|import\s+(\S+))`),
	"rust":       regexp.MustCompile(`^\s*use\s+([\w:]+)`),
	"typescript": regexp.MustCompile(`^\s*import .*from\s+['"]([^'"]+)['"]`),
	"javascript": regexp.MustCompile(`^\s*(?:import .*from\s+['"]([^'"]+)['"]|require\(['"]([^'"]+)['"]\))`),
}

var languageGrammars = map[string]func() *sitter.Language{
	"go":         golang.GetLanguage,
	"python":     python.GetLanguage,
	"rust":       rust.GetLanguage,
	"typescript": typescript.GetLanguage,
	"javascript": javascript.GetLanguage,
}

// Analyzer computes CodeContext from pre-loaded source content.
type Analyzer struct {
	log *logging.Logger
}

// NewAnalyzer constructs an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{log: logging.Get(logging.CategoryContext)}
}

// Analyze computes the CodeContext for codeContent, never reading from disk.
func (a *Analyzer) Analyze(ctx context.Context, codeContent, filePath, language string) (domain.CodeContext, error) {
	lang := strings.ToLower(language)
	if _, ok := decisionPointPatterns[lang]; !ok {
		return domain.CodeContext{}, &ErrUnsupportedLanguage{Language: language}
	}

	loc := countNonEmptyLines(codeContent)
	imports := extractImports(codeContent, lang)

	depth, complexity := a.astSignals(ctx, codeContent, lang)

	cc := domain.CodeContext{
		FilePath:        filePath,
		Language:        lang,
		ASTDepth:        depth,
		ComplexityScore: complexity,
		LOC:             loc,
		Imports:         imports,
		DependencyCount: len(imports),
	}
	cc.IsSimple = complexity < lowComplexity && depth < lowDepth
	cc.IsComplex = complexity > highComplexity || depth > highDepth

	a.log.Debug("analyzed %s: depth=%d complexity=%.2f loc=%d imports=%d", filePath, depth, complexity, loc, len(imports))
	return cc, nil
}

// astSignals attempts a tree-sitter parse for depth and a node-count-based
// complexity estimate; on any parse failure it falls back to the regex
// decision-point count, degrading depth to a line-indentation proxy.
func (a *Analyzer) astSignals(ctx context.Context, content, lang string) (depth int, complexity float64) {
	grammar, ok := languageGrammars[lang]
	if ok {
		parser := sitter.NewParser()
		defer parser.Close()
		parser.SetLanguage(grammar())
		tree, err := parser.ParseCtx(ctx, nil, []byte(content))
		if err == nil && tree != nil {
			defer tree.Close()
			root := tree.RootNode()
			if root != nil && !root.HasError() {
				d := nodeDepth(root, 0)
				decisions := countDecisionNodes(root, lang)
				return d, clampComplexity(decisions)
			}
			a.log.Debug("tree-sitter parse had errors for %s, falling back to regex", lang)
		} else {
			a.log.Debug("tree-sitter parse failed for %s: %v", lang, err)
		}
	}

	decisions := decisionPointPatterns[lang].FindAllString(content, -1)
	return indentDepth(content), clampComplexity(len(decisions))
}

// clampComplexity maps a raw decision-point count to [0,1]. The divisor of
// 20 mirrors the dependency_count normalization used by internal/risk, so
// the two scores stay on comparable scales.
func clampComplexity(decisionPoints int) float64 {
	c := float64(decisionPoints) / 20.0
	if c > 1 {
		return 1
	}
	return c
}

func countNonEmptyLines(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func extractImports(content, lang string) []string {
	pattern, ok := importPatterns[lang]
	if !ok {
		return nil
	}
	var imports []string
	for _, line := range strings.Split(content, "\n") {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		for _, group := range m[1:] {
			if group != "" {
				imports = append(imports, group)
				break
			}
		}
	}
	return imports
}

// nodeDepth walks the tree-sitter AST and returns its maximum nesting depth.
func nodeDepth(n *sitter.Node, current int) int {
	if n == nil {
		return current
	}
	max := current
	for i := 0; i < int(n.ChildCount()); i++ {
		d := nodeDepth(n.Child(i), current+1)
		if d > max {
			max = d
		}
	}
	return max
}

var decisionNodeTypes = map[string]map[string]bool{
	"go": {
		"if_statement": true, "for_statement": true, "expression_switch_statement": true,
		"type_switch_statement": true, "binary_expression": true,
	},
	"python": {
		"if_statement": true, "elif_clause": true, "for_statement": true,
		"while_statement": true, "except_clause": true, "boolean_operator": true,
	},
	"rust": {
		"if_expression": true, "for_expression": true, "while_expression": true,
		"match_expression": true, "binary_expression": true,
	},
	"typescript": {
		"if_statement": true, "for_statement": true, "while_statement": true,
		"switch_case": true, "binary_expression": true,
	},
	"javascript": {
		"if_statement": true, "for_statement": true, "while_statement": true,
		"switch_case": true, "binary_expression": true,
	},
}

func countDecisionNodes(n *sitter.Node, lang string) int {
	types := decisionNodeTypes[lang]
	count := 0
	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if types[node.Type()] {
			count++
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(n)
	return count
}

// indentDepth is the regex-fallback depth proxy: max leading-whitespace
// nesting level observed across non-empty lines, in units of 2 spaces (or
// one tab).
func indentDepth(content string) int {
	max := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := 0
		for _, c := range line {
			if c == ' ' {
				indent++
			} else if c == '\t' {
				indent += 2
			} else {
				break
			}
		}
		level := indent / 2
		if level > max {
			max = level
		}
	}
	return max
}
