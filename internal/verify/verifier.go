// Package verify implements the control-flow verifier: structural
// ordering assertions are encoded as boolean reachability facts over
// the candidate's program points and checked against a Datalog policy.
// The verifier only classifies; it never synthesizes fixes.
package verify

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"crucible/internal/candidate"
	"crucible/internal/ir"
	"crucible/internal/logic"
	"crucible/internal/logging"
	"crucible/internal/pattern"
)

//go:embed control_flow.mg
var controlFlowPolicy string

// DefaultTimeout is the hard wall-clock bound on one verification run.
const DefaultTimeout = 500 * time.Millisecond

// Outcome classifies one assertion's verification result.
type Outcome int

const (
	// OutcomeProved means the property holds on all paths.
	OutcomeProved Outcome = iota
	// OutcomeDisproved means a concrete violating path exists.
	OutcomeDisproved
	// OutcomeUnknown means timeout or an unsupported assertion. It is
	// treated as "not disproved" but always surfaced to the caller.
	OutcomeUnknown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProved:
		return "proved"
	case OutcomeDisproved:
		return "disproved"
	case OutcomeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the verdict for one structural assertion.
type Result struct {
	Assertion   ir.Assertion
	Outcome     Outcome
	CounterPath []string // violating path description when disproved
	Note        string   // reason when unknown
}

// Issue converts a disproved result into a validation issue.
func (r Result) Issue() candidate.ValidationIssue {
	msg := fmt.Sprintf("control-flow property %s(%s) disproved", r.Assertion.Structural, r.Assertion.Literal)
	if len(r.CounterPath) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, r.CounterPath[0])
	}
	return candidate.ValidationIssue{
		Severity: candidate.SeverityError,
		Category: candidate.CategoryControlFlow,
		Message:  msg,
	}
}

// Verifier checks structural assertions against candidates. A fresh
// solver is built per candidate; nothing is shared across calls.
type Verifier struct {
	matcher *pattern.Matcher
	timeout time.Duration
}

// NewVerifier creates a verifier with the given wall-clock bound.
// A zero timeout means DefaultTimeout.
func NewVerifier(m *pattern.Matcher, timeout time.Duration) *Verifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Verifier{matcher: m, timeout: timeout}
}

// returnPoint is the Go-side record of one program point of interest.
type returnPoint struct {
	name    string
	literal string
	line    uint32
	inLoop  bool
}

// Verify classifies every structural assertion of the spec against the
// candidate. Non-structural assertions are not the verifier's concern
// and are absent from the results.
func (v *Verifier) Verify(ctx context.Context, cand candidate.Candidate, spec *ir.Spec) []Result {
	assertions := spec.StructuralAssertions()
	if len(assertions) == 0 {
		return nil
	}

	unknownAll := func(note string) []Result {
		out := make([]Result, len(assertions))
		for i, a := range assertions {
			out[i] = Result{Assertion: a, Outcome: OutcomeUnknown, Note: note}
		}
		return out
	}

	tree, err := v.matcher.Parse(ctx, cand.Language, cand.Source)
	if err != nil {
		return unknownAll(fmt.Sprintf("candidate does not parse: %v", err))
	}
	defer tree.Close()
	if tree.HasSyntaxError() {
		return unknownAll("candidate contains syntax errors")
	}

	points := extractReturnPoints(tree)

	solver := logic.NewSolver()
	if err := solver.LoadRules(controlFlowPolicy); err != nil {
		logging.VerifyWarn("policy load failed: %v", err)
		return unknownAll(fmt.Sprintf("policy load failed: %v", err))
	}

	var facts []logic.Fact
	for _, p := range points {
		facts = append(facts, logic.Fact{Predicate: "return_point", Args: []interface{}{p.name, p.literal}})
		if p.inLoop {
			facts = append(facts, logic.Fact{Predicate: "inside_loop", Args: []interface{}{p.name}})
		}
	}
	for _, a := range assertions {
		facts = append(facts, logic.Fact{Predicate: "forbidden_inside", Args: []interface{}{a.Literal}})
	}
	if err := solver.AddFacts(facts); err != nil {
		logging.VerifyWarn("fact assertion failed: %v", err)
		return unknownAll(fmt.Sprintf("fact assertion failed: %v", err))
	}

	qctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	res, err := solver.Query(qctx, "?violation(P)")
	if err != nil {
		logging.VerifyWarn("attempt %d: query degraded to unknown: %v", cand.Attempt, err)
		return unknownAll(fmt.Sprintf("solver: %v", err))
	}

	violating := make(map[string]bool, len(res.Bindings))
	for _, row := range res.Bindings {
		if p, ok := row["P"].(string); ok {
			violating[p] = true
		}
	}

	out := make([]Result, 0, len(assertions))
	for _, a := range assertions {
		r := Result{Assertion: a, Outcome: OutcomeProved}
		for _, p := range points {
			if violating["/"+p.name] && p.literal == a.Literal {
				r.Outcome = OutcomeDisproved
				r.CounterPath = append(r.CounterPath,
					fmt.Sprintf("return %s at line %d is reachable from inside a loop body", p.literal, p.line+1))
			}
		}
		logging.Verify("attempt %d: %s(%s) %s in %v", cand.Attempt, a.Structural, a.Literal, r.Outcome, res.Duration)
		out = append(out, r)
	}
	return out
}

// extractReturnPoints enumerates return statements in document order,
// marking which are lexically inside a loop body.
func extractReturnPoints(tree *pattern.Tree) []returnPoint {
	all := pattern.FindAll(tree, pattern.Pattern{Kind: pattern.KindReturnStatement})
	looped := pattern.FindAll(tree, pattern.Pattern{Kind: pattern.KindReturnOfLiteralInLoop})

	inLoop := make(map[uint32]bool, len(looped))
	for _, m := range looped {
		inLoop[m.Span.StartByte] = true
	}

	points := make([]returnPoint, 0, len(all))
	for i, m := range all {
		points = append(points, returnPoint{
			name:    fmt.Sprintf("p%d", i),
			literal: m.Captures["value"],
			line:    m.Span.StartLine,
			inLoop:  inLoop[m.Span.StartByte],
		})
	}
	return points
}
