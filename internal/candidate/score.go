package candidate

import "strings"

// Score is a totally ordered quality measure, compared lexicographically:
// fewer errors beats fewer warnings beats higher specificity. Any
// candidate with errors sorts strictly below any candidate without,
// because the error component is compared first.
type Score struct {
	Errors      int
	Warnings    int
	Specificity int
}

// Compare returns -1 if s ranks below o, +1 if above, 0 if equal.
func (s Score) Compare(o Score) int {
	if s.Errors != o.Errors {
		if s.Errors > o.Errors {
			return -1
		}
		return 1
	}
	if s.Warnings != o.Warnings {
		if s.Warnings > o.Warnings {
			return -1
		}
		return 1
	}
	if s.Specificity != o.Specificity {
		if s.Specificity < o.Specificity {
			return -1
		}
		return 1
	}
	return 0
}

// Better reports whether s strictly outranks o.
func (s Score) Better(o Score) bool { return s.Compare(o) > 0 }

// Scorer computes Scores from a candidate's issues plus specificity
// signals against a fixed set of assertion literals. The literal bonus
// is capped at one point per literal so it stays a tie-break signal,
// never competitive with issue counts.
type Scorer struct {
	literals []string
}

// NewScorer builds a scorer rewarding the presence of the given
// assertion literals in candidate source.
func NewScorer(assertionLiterals []string) *Scorer {
	return &Scorer{literals: append([]string(nil), assertionLiterals...)}
}

// Score is pure and stable: it reads only the candidate's issues and
// source text, never the clock or randomness.
func (sc *Scorer) Score(c Candidate) Score {
	bonus := 0
	for _, lit := range sc.literals {
		if strings.Contains(c.Source, lit) {
			bonus++
		}
	}
	return Score{
		Errors:      c.ErrorCount(),
		Warnings:    c.WarningCount(),
		Specificity: bonus,
	}
}

// Best returns the index of the highest-scoring candidate, preferring
// the earlier index on exact ties so selection is reproducible. Returns
// -1 for an empty slice.
func (sc *Scorer) Best(cands []Candidate) int {
	best := -1
	var bestScore Score
	for i, c := range cands {
		s := sc.Score(c)
		if best == -1 || s.Better(bestScore) {
			best = i
			bestScore = s
		}
	}
	return best
}
