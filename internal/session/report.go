package session

import (
	"fmt"
	"strings"
)

// Report renders the session's diagnostic trail as plain text for the
// CLI host.
func (r *Result) Report() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "session %s: %s after %d round(s)\n", r.SessionID, r.State, r.Rounds)

	for i, a := range r.History {
		fmt.Fprintf(&sb, "\ncandidate %d (attempt %d, temperature %.2f): errors=%d warnings=%d specificity=%d\n",
			i, a.Candidate.Attempt, a.Candidate.Temperature,
			a.Score.Errors, a.Score.Warnings, a.Score.Specificity)
		for _, is := range a.Candidate.Issues {
			fmt.Fprintf(&sb, "  [%s/%s] %s\n", is.Severity, is.Category, is.Message)
		}
		for _, step := range a.Candidate.Trace {
			fmt.Fprintf(&sb, "  repaired by %s (%.8s -> %.8s)\n", step.RuleName, step.BeforeHash, step.AfterHash)
		}
		for _, v := range a.Verification {
			fmt.Fprintf(&sb, "  verify %s(%s): %s", v.Assertion.Structural, v.Assertion.Literal, v.Outcome)
			if v.Note != "" {
				fmt.Fprintf(&sb, " (%s)", v.Note)
			}
			sb.WriteString("\n")
			for _, p := range v.CounterPath {
				fmt.Fprintf(&sb, "    counter-path: %s\n", p)
			}
		}
	}

	if len(r.Counterexamples) > 0 {
		sb.WriteString("\ncounterexamples fed back to the generator:\n")
		for _, cx := range r.Counterexamples {
			fmt.Fprintf(&sb, "  %s\n", cx.String())
		}
	}
	for _, ge := range r.GeneratorErrors {
		fmt.Fprintf(&sb, "generator error: %s\n", ge)
	}

	if r.Accepted != nil {
		sb.WriteString("\naccepted candidate:\n")
		sb.WriteString(r.Accepted.Source)
		sb.WriteString("\n")
	} else if r.Best != nil {
		fmt.Fprintf(&sb, "\nbest candidate seen (%d errors):\n", r.Best.ErrorCount())
		sb.WriteString(r.Best.Source)
		sb.WriteString("\n")
	}
	return sb.String()
}
