// Package constitutional implements the Constitutional Check (spec §4.G):
// a severity-classified pattern scan over candidate code, hard-blocking on
// any critical finding.
package constitutional

import (
	"regexp"

	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

// Finding is one pattern match against the scanned code.
type Finding struct {
	RuleID   string
	Severity domain.Severity
	Category string
	Message  string
	Line     int
}

// Rule is a single severity-classified regex check.
type Rule struct {
	ID       string
	Severity domain.Severity
	Category string
	Pattern  *regexp.Regexp
	Message  string
}

// builtinRules classifies the criticals spec §4.G enumerates by name:
// hard-coded secrets, eval/exec over untrusted input, credential literals,
// dangerous subprocess patterns.
var builtinRules = []Rule{
	{
		ID: "hardcoded-secret", Severity: domain.SeverityCritical, Category: "security",
		Pattern: regexp.MustCompile(`(?i)(api[_-]?key|secret|password|token)\s*[:=]\s*['"][A-Za-z0-9+/_\-]{12,}['"]`),
		Message: "possible hard-coded secret",
	},
	{
		ID: "eval-exec", Severity: domain.SeverityCritical, Category: "security",
		Pattern: regexp.MustCompile(`\b(eval|exec)\s*\(`),
		Message: "eval/exec over potentially untrusted input",
	},
	{
		ID: "credential-literal", Severity: domain.SeverityCritical, Category: "security",
		Pattern: regexp.MustCompile(`(?i)-----BEGIN (RSA|OPENSSH|EC|DSA) PRIVATE KEY-----`),
		Message: "embedded private key material",
	},
	{
		ID: "dangerous-subprocess", Severity: domain.SeverityCritical, Category: "security",
		Pattern: regexp.MustCompile(`(?i)(os\.system|subprocess\.(call|run|Popen)\([^)]*shell\s*=\s*True|exec\.Command\("sh",\s*"-c")`),
		Message: "subprocess invocation with shell interpolation",
	},
	{
		ID: "bare-except", Severity: domain.SeverityMedium, Category: "maintainability",
		Pattern: regexp.MustCompile(`except\s*:\s*\n`),
		Message: "bare except clause swallows all errors",
	},
	{
		ID: "todo-marker", Severity: domain.SeverityLow, Category: "maintainability",
		Pattern: regexp.MustCompile(`(?i)\bTODO\b`),
		Message: "unresolved TODO marker",
	},
}

// Checker scans candidate code against the built-in rule set plus any
// caller-supplied custom rules.
type Checker struct {
	rules []Rule
	log   *logging.Logger
}

// NewChecker constructs a Checker with the built-in rules plus custom.
func NewChecker(custom []Rule) *Checker {
	rules := append([]Rule(nil), builtinRules...)
	rules = append(rules, custom...)
	return &Checker{rules: rules, log: logging.Get(logging.CategoryConstitutional)}
}

// CheckResult is the outcome of scanning one candidate.
type CheckResult struct {
	Blocked  bool
	Findings []Finding
}

// Check scans code and returns every matching finding. Blocked is true iff
// any finding has Severity critical.
func (c *Checker) Check(code string) CheckResult {
	var findings []Finding
	blocked := false

	for _, rule := range c.rules {
		locs := rule.Pattern.FindAllStringIndex(code, -1)
		for _, loc := range locs {
			line := lineNumber(code, loc[0])
			findings = append(findings, Finding{
				RuleID: rule.ID, Severity: rule.Severity, Category: rule.Category,
				Message: rule.Message, Line: line,
			})
			if rule.Severity == domain.SeverityCritical {
				blocked = true
			}
		}
	}

	if blocked {
		c.log.Warn("constitutional check blocked candidate: %d findings", len(findings))
	}
	return CheckResult{Blocked: blocked, Findings: findings}
}

func lineNumber(s string, idx int) int {
	line := 1
	for i := 0; i < idx && i < len(s); i++ {
		if s[i] == '\n' {
			line++
		}
	}
	return line
}
