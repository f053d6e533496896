package verify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crucible/internal/candidate"
	"crucible/internal/ir"
	"crucible/internal/pattern"
)

func sentinelSpec() *ir.Spec {
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

func newVerifier(t *testing.T) *Verifier {
	t.Helper()
	m := pattern.NewMatcher()
	t.Cleanup(m.Close)
	return NewVerifier(m, time.Second)
}

func pyCandidate(source string) candidate.Candidate {
	return candidate.New(source, candidate.LanguagePython, 0, 0.2)
}

func TestProved(t *testing.T) {
	v := newVerifier(t)
	src := "def find_index(xs, target):\n" +
		"    for i in range(len(xs)):\n" +
		"        if xs[i] == target:\n" +
		"            return i\n" +
		"    return -1\n"

	results := v.Verify(context.Background(), pyCandidate(src), sentinelSpec())
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeProved, results[0].Outcome)
	assert.Empty(t, results[0].CounterPath)
}

func TestDisprovedWithCounterPath(t *testing.T) {
	v := newVerifier(t)
	src := "def find_index(xs, target):\n" +
		"    for i in range(len(xs)):\n" +
		"        if xs[i] == target:\n" +
		"            return i\n" +
		"        return -1\n"

	results := v.Verify(context.Background(), pyCandidate(src), sentinelSpec())
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeDisproved, results[0].Outcome)
	require.NotEmpty(t, results[0].CounterPath)
	assert.Contains(t, results[0].CounterPath[0], "line 5")
	assert.Contains(t, results[0].CounterPath[0], "-1")

	issue := results[0].Issue()
	assert.Equal(t, candidate.SeverityError, issue.Severity)
	assert.Equal(t, candidate.CategoryControlFlow, issue.Category)
}

func TestUnknownOnUnparseableCandidate(t *testing.T) {
	v := newVerifier(t)
	results := v.Verify(context.Background(), pyCandidate("def broken(:\n    return"), sentinelSpec())
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeUnknown, results[0].Outcome)
	assert.NotEmpty(t, results[0].Note)
}

func TestNoStructuralAssertions(t *testing.T) {
	v := newVerifier(t)
	spec := sentinelSpec()
	spec.Assertions = []ir.Assertion{{Predicate: "result >= -1"}}

	results := v.Verify(context.Background(), pyCandidate("def find_index(xs, target):\n    return -1\n"), spec)
	assert.Empty(t, results, "value-level assertions are not the verifier's concern")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "proved", OutcomeProved.String())
	assert.Equal(t, "disproved", OutcomeDisproved.String())
	assert.Equal(t, "unknown", OutcomeUnknown.String())
}
