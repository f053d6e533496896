// Package candidate holds the engine's core data model: generation
// attempts, their validation issues, repair traces, counterexamples,
// and quality scores. Candidates are immutable; repair produces a new
// Candidate rather than mutating in place.
package candidate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Language identifies the source language of a candidate.
type Language string

const (
	LanguagePython Language = "python"
	LanguageGo     Language = "go"
)

// Severity classifies how serious a validation issue is. A candidate
// carrying any error-severity issue can never be accepted.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// IssueCategory classifies what kind of defect an issue describes.
type IssueCategory string

const (
	CategorySyntax           IssueCategory = "syntax"
	CategoryControlFlow      IssueCategory = "control-flow"
	CategoryPatternViolation IssueCategory = "pattern-violation"
	CategoryMissingImport    IssueCategory = "missing-import"
	CategoryMissingReturn    IssueCategory = "missing-return"
	CategoryOther            IssueCategory = "other"
)

// Span is a byte range into the candidate source, with 0-based lines.
type Span struct {
	StartByte uint32
	EndByte   uint32
	StartLine uint32
	EndLine   uint32
}

// ValidationIssue is one typed finding from the validator or verifier.
type ValidationIssue struct {
	Severity      Severity
	Category      IssueCategory
	Message       string
	Span          *Span  // nil when the issue has no precise location
	SuggestedRule string // repair rule name likely to fix this, if known
}

// RepairStep records one applied rewrite, with before/after text hashes
// so the full repair chain can be audited.
type RepairStep struct {
	RuleName   string
	BeforeHash string
	AfterHash  string
}

// TestCase is one concrete input/expected pair for the test runner
// collaborator. Inputs are source-language literal expressions.
type TestCase struct {
	Inputs   []string
	Expected string
}

// Counterexample is a concrete failing test case produced by the test
// runner collaborator.
type Counterexample struct {
	Inputs   []string
	Expected string
	Actual   string // empty when the run raised instead of returning
	Error    string // raised-error description, empty on wrong-value failures
}

func (c Counterexample) String() string {
	if c.Error != "" {
		return fmt.Sprintf("inputs=%v expected=%s raised=%s", c.Inputs, c.Expected, c.Error)
	}
	return fmt.Sprintf("inputs=%v expected=%s got=%s", c.Inputs, c.Expected, c.Actual)
}

// Candidate is one generation or repair attempt. The struct itself is
// treated as immutable: WithIssues and WithRepair return copies.
type Candidate struct {
	Source      string
	Language    Language
	Attempt     int     // attempt index within the session, 0-based
	Temperature float64 // sampling temperature used by the generator
	Issues      []ValidationIssue
	Trace       []RepairStep
}

// New creates a fresh candidate with no issues and an empty trace.
func New(source string, lang Language, attempt int, temperature float64) Candidate {
	return Candidate{Source: source, Language: lang, Attempt: attempt, Temperature: temperature}
}

// HashText returns the hex sha256 of source text, the format used in
// repair traces.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// WithIssues returns a copy of c carrying the given issues, replacing
// any previous ones.
func (c Candidate) WithIssues(issues []ValidationIssue) Candidate {
	out := c
	out.Issues = append([]ValidationIssue(nil), issues...)
	return out
}

// WithRepair returns a new candidate with repaired source, the parent's
// trace extended by one step, and issues cleared pending re-validation.
func (c Candidate) WithRepair(ruleName, newSource string) Candidate {
	step := RepairStep{
		RuleName:   ruleName,
		BeforeHash: HashText(c.Source),
		AfterHash:  HashText(newSource),
	}
	out := c
	out.Source = newSource
	out.Issues = nil
	out.Trace = append(append([]RepairStep(nil), c.Trace...), step)
	return out
}

// ErrorCount returns the number of error-severity issues.
func (c Candidate) ErrorCount() int {
	n := 0
	for _, is := range c.Issues {
		if is.Severity == SeverityError {
			n++
		}
	}
	return n
}

// WarningCount returns the number of warning-severity issues.
func (c Candidate) WarningCount() int {
	n := 0
	for _, is := range c.Issues {
		if is.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// Acceptable reports whether the candidate could be an accepted result.
func (c Candidate) Acceptable() bool {
	return c.ErrorCount() == 0
}
