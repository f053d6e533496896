package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCounts(source string, errs, warns int) Candidate {
	c := New(source, LanguagePython, 0, 0.2)
	var issues []ValidationIssue
	for i := 0; i < errs; i++ {
		issues = append(issues, ValidationIssue{Severity: SeverityError, Category: CategoryOther})
	}
	for i := 0; i < warns; i++ {
		issues = append(issues, ValidationIssue{Severity: SeverityWarning, Category: CategoryOther})
	}
	return c.WithIssues(issues)
}

func TestScoreCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Score
		want int
	}{
		{"fewer errors wins", Score{Errors: 0}, Score{Errors: 2, Specificity: 5}, 1},
		{"fewer warnings wins at equal errors", Score{Warnings: 1}, Score{Warnings: 3}, 1},
		{"specificity breaks ties", Score{Specificity: 2}, Score{Specificity: 1}, 1},
		{"equal", Score{Errors: 1, Warnings: 2}, Score{Errors: 1, Warnings: 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
		})
	}
}

// Any erroring candidate must rank strictly below any clean one, no
// matter how large the specificity bonus.
func TestErrorDominance(t *testing.T) {
	sc := NewScorer([]string{"-1", "0", "1", "2", "3"})

	erroring := withCounts("return -1\nreturn 0\nreturn 1\nreturn 2\nreturn 3", 1, 0)
	clean := withCounts("pass", 0, 5)

	assert.True(t, sc.Score(clean).Better(sc.Score(erroring)))
	assert.False(t, sc.Score(erroring).Better(sc.Score(clean)))
}

func TestScoreDeterminism(t *testing.T) {
	sc := NewScorer([]string{"-1"})
	c := withCounts("return -1", 0, 1)
	first := sc.Score(c)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, sc.Score(c))
	}
}

func TestSpecificityBonus(t *testing.T) {
	sc := NewScorer([]string{"-1", "0"})
	with := sc.Score(withCounts("return -1", 0, 0))
	without := sc.Score(withCounts("return None", 0, 0))
	assert.Equal(t, 1, with.Specificity)
	assert.Equal(t, 0, without.Specificity)
	assert.True(t, with.Better(without))
}

func TestBestPrefersEarlierOnTies(t *testing.T) {
	sc := NewScorer(nil)
	a := withCounts("pass", 0, 0)
	b := withCounts("pass", 0, 0)
	assert.Equal(t, 0, sc.Best([]Candidate{a, b}))
	assert.Equal(t, -1, sc.Best(nil))

	worse := withCounts("pass", 1, 0)
	require.Equal(t, 1, sc.Best([]Candidate{worse, a}))
}
