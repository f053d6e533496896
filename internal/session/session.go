// Package session implements the synthesis controller: a bounded,
// auditable state machine that drives generation, validation,
// verification, repair, and scoring until a candidate is accepted or
// the budget runs out. Retries are counterexample-guided: failing
// cases accumulate across rounds and every generation request carries
// all of them.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"crucible/internal/candidate"
	"crucible/internal/ir"
	"crucible/internal/runner"
	"crucible/internal/verify"
)

// State is the controller's position in the loop.
type State int

const (
	StateGenerating State = iota
	StateValidating
	StateRepairing
	StateScoring
	StateAccepted
	StateRetrying
	StateExhausted
	StateGeneratorFailed
)

func (s State) String() string {
	switch s {
	case StateGenerating:
		return "generating"
	case StateValidating:
		return "validating"
	case StateRepairing:
		return "repairing"
	case StateScoring:
		return "scoring"
	case StateAccepted:
		return "accepted"
	case StateRetrying:
		return "retrying"
	case StateExhausted:
		return "exhausted"
	case StateGeneratorFailed:
		return "generator-failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrExhausted is returned alongside the best-effort result when the
// attempt budget runs out without an acceptable candidate.
var ErrExhausted = errors.New("attempt budget exhausted")

// ErrGeneratorFailed is returned when no round produced any candidate.
var ErrGeneratorFailed = errors.New("generator produced no candidates")

// Generator is the candidate-generation collaborator.
type Generator interface {
	Generate(ctx context.Context, spec *ir.Spec, feedback []candidate.Counterexample, temperature float64) (string, error)
	Language() candidate.Language
}

// TestRunner is the optional test-execution collaborator.
type TestRunner interface {
	Run(ctx context.Context, cand candidate.Candidate, sig ir.Signature, cases []candidate.TestCase) []runner.Outcome
}

// Budget bounds one session.
type Budget struct {
	MaxAttempts     int       // generation rounds
	MaxRepairPasses int       // repair passes per candidate
	BatchWidth      int       // best-of-N candidates per round
	Temperatures    []float64 // per-slot temperatures, cycled when shorter than the batch
}

// DefaultBudget returns the single-candidate configuration.
func DefaultBudget() Budget {
	return Budget{
		MaxAttempts:     3,
		MaxRepairPasses: 4,
		BatchWidth:      1,
		Temperatures:    []float64{0.2},
	}
}

func (b Budget) normalized() Budget {
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = 1
	}
	if b.MaxRepairPasses <= 0 {
		b.MaxRepairPasses = 1
	}
	if b.BatchWidth <= 0 {
		b.BatchWidth = 1
	}
	if len(b.Temperatures) == 0 {
		b.Temperatures = []float64{0.2}
	}
	return b
}

func (b Budget) temperature(slot int) float64 {
	return b.Temperatures[slot%len(b.Temperatures)]
}

// Config wires a session's collaborators.
type Config struct {
	Budget        Budget
	Runner        TestRunner // optional
	TestCases     []candidate.TestCase
	VerifyTimeout time.Duration
}

// Attempt is one candidate's final record within the session history.
type Attempt struct {
	Candidate    candidate.Candidate
	Score        candidate.Score
	Verification []verify.Result
}

// Result is the session's terminal state plus the full diagnostic
// trail. Best is always populated when any candidate was produced,
// even an erroring one.
type Result struct {
	SessionID       uuid.UUID
	State           State
	Accepted        *candidate.Candidate
	Best            *candidate.Candidate
	BestScore       candidate.Score
	History         []Attempt
	Counterexamples []candidate.Counterexample
	GeneratorErrors []string
	Rounds          int
}
