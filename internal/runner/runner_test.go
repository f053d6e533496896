package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crucible/internal/candidate"
	"crucible/internal/ir"
)

var sumSig = ir.Signature{
	Name: "Sum",
	Params: []ir.Param{
		{Name: "xs", Type: "[]int"},
	},
	ReturnType: "int",
}

const sumSource = `func Sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}`

func goCandidate(source string) candidate.Candidate {
	return candidate.New(source, candidate.LanguageGo, 0, 0.2)
}

func TestRunPassesAndFails(t *testing.T) {
	r := NewYaegiRunner(5 * time.Second)

	cases := []candidate.TestCase{
		{Inputs: []string{"[]int{1, 2, 3}"}, Expected: "6"},
		{Inputs: []string{"[]int{}"}, Expected: "0"},
		{Inputs: []string{"[]int{1}"}, Expected: "2"}, // deliberately wrong
	}

	outcomes := r.Run(context.Background(), goCandidate(sumSource), sumSig, cases)
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[0].Passed)
	assert.True(t, outcomes[1].Passed)

	require.False(t, outcomes[2].Passed)
	cx := outcomes[2].Counterexample
	require.NotNil(t, cx)
	assert.Equal(t, []string{"[]int{1}"}, cx.Inputs)
	assert.Equal(t, "2", cx.Expected)
	assert.Equal(t, "1", cx.Actual)
}

func TestUnsupportedLanguage(t *testing.T) {
	r := NewYaegiRunner(0)
	outcomes := r.Run(context.Background(),
		candidate.New("def f():\n    pass", candidate.LanguagePython, 0, 0.2),
		sumSig,
		[]candidate.TestCase{{Inputs: []string{"1"}, Expected: "1"}})

	require.Len(t, outcomes, 1)
	require.NotNil(t, outcomes[0].Counterexample)
	assert.Contains(t, outcomes[0].Counterexample.Error, "does not support")
}

func TestForbiddenImportRejected(t *testing.T) {
	r := NewYaegiRunner(0)
	src := "import \"os\"\n\nfunc Sum(xs []int) int {\n\tos.Exit(1)\n\treturn 0\n}"

	outcomes := r.Run(context.Background(), goCandidate(src), sumSig,
		[]candidate.TestCase{{Inputs: []string{"[]int{}"}, Expected: "0"}})

	require.Len(t, outcomes, 1)
	require.NotNil(t, outcomes[0].Counterexample)
	assert.Contains(t, outcomes[0].Counterexample.Error, "not permitted")
}

func TestCandidateThatDoesNotEvaluate(t *testing.T) {
	r := NewYaegiRunner(0)
	outcomes := r.Run(context.Background(), goCandidate("func Sum(xs []int int {"), sumSig,
		[]candidate.TestCase{{Inputs: []string{"[]int{}"}, Expected: "0"}})

	require.Len(t, outcomes, 1)
	require.NotNil(t, outcomes[0].Counterexample)
	assert.NotEmpty(t, outcomes[0].Counterexample.Error)
}
