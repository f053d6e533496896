package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crucible/internal/candidate"
	"crucible/internal/ir"
	"crucible/internal/pattern"
	"crucible/internal/rules"
)

func findIndexSpec() *ir.Spec {
	return &ir.Spec{
		Signature: ir.Signature{
			Name:       "find_index",
			Params:     []ir.Param{{Name: "xs", Type: "list[int]"}, {Name: "target", Type: "int"}},
			ReturnType: "int",
		},
		Assertions: []ir.Assertion{
			{Predicate: "result >= -1", Structural: ir.StructuralReturnAfterLoop, Literal: "-1"},
		},
	}
}

func setup(t *testing.T) (*pattern.Matcher, *rules.Library) {
	t.Helper()
	m := pattern.NewMatcher()
	t.Cleanup(m.Close)
	lib, err := rules.DefaultLibrary(findIndexSpec())
	require.NoError(t, err)
	return m, lib
}

func pyCandidate(source string) candidate.Candidate {
	return candidate.New(source, candidate.LanguagePython, 0, 0.2)
}

func TestSyntaxErrorShortCircuits(t *testing.T) {
	m, lib := setup(t)

	issues := Run(context.Background(), m, pyCandidate("def broken(:\n    return"), lib)
	require.Len(t, issues, 1, "rule evaluation is skipped entirely")
	assert.Equal(t, candidate.SeverityError, issues[0].Severity)
	assert.Equal(t, candidate.CategorySyntax, issues[0].Category)
}

func TestRequiredRuleMissing(t *testing.T) {
	m, lib := setup(t)

	issues := Run(context.Background(), m, pyCandidate("def other():\n    return 0\n"), lib)

	require.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Message, "find_index", "missing function definition is reported")
	assert.Equal(t, candidate.CategoryPatternViolation, issues[0].Category)
}

func TestViolationEmitsOneIssuePerMatch(t *testing.T) {
	m, lib := setup(t)

	src := "def find_index(xs, target):\n" +
		"    for i in range(len(xs)):\n" +
		"        if xs[i] == target:\n" +
		"            return i\n" +
		"        return -1\n"
	issues := Run(context.Background(), m, pyCandidate(src), lib)

	var controlFlow []candidate.ValidationIssue
	for _, is := range issues {
		if is.Category == candidate.CategoryControlFlow {
			controlFlow = append(controlFlow, is)
		}
	}
	require.Len(t, controlFlow, 1)
	assert.Equal(t, candidate.SeverityError, controlFlow[0].Severity)
	assert.Contains(t, controlFlow[0].Message, "return -1")
	assert.NotNil(t, controlFlow[0].Span)
	assert.Equal(t, "move-return--1-after-loop", controlFlow[0].SuggestedRule)
}

func TestCleanCandidateHasNoIssues(t *testing.T) {
	m, lib := setup(t)

	src := "def find_index(xs, target):\n" +
		"    for i in range(len(xs)):\n" +
		"        if xs[i] == target:\n" +
		"            return i\n" +
		"    return -1\n"
	issues := Run(context.Background(), m, pyCandidate(src), lib)
	assert.Empty(t, issues)
}

// Formatting differences never produce spurious issues: matching is
// structural, not textual.
func TestFormattingInsensitive(t *testing.T) {
	m, lib := setup(t)

	src := "def find_index(xs,   target):\n" +
		"    for i in range(len(xs)):\n" +
		"        if xs[i]==target:\n" +
		"            return   i\n" +
		"    return -1\n"
	issues := Run(context.Background(), m, pyCandidate(src), lib)
	assert.Empty(t, issues)
}
