package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"crucible/internal/candidate"
	"crucible/internal/ir"
	"crucible/internal/logging"
	"crucible/internal/pattern"
	"crucible/internal/repair"
	"crucible/internal/rules"
	"crucible/internal/validate"
	"crucible/internal/verify"
)

// Controller runs synthesis sessions. One controller processes one
// session at a time; the rule library it holds is sealed and safely
// shared.
type Controller struct {
	gen     Generator
	lib     *rules.Library
	matcher *pattern.Matcher
	cfg     Config
}

// NewController wires a controller. The library must be sealed.
func NewController(gen Generator, lib *rules.Library, cfg Config) *Controller {
	cfg.Budget = cfg.Budget.normalized()
	return &Controller{
		gen:     gen,
		lib:     lib,
		matcher: pattern.NewMatcher(),
		cfg:     cfg,
	}
}

// Close releases parser resources.
func (c *Controller) Close() {
	c.matcher.Close()
}

// Run executes one session to a terminal state. The returned Result is
// always structured, even on exhaustion; the error is ErrExhausted or
// ErrGeneratorFailed for the two failure terminals, nil on acceptance.
func (c *Controller) Run(ctx context.Context, spec *ir.Spec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("specification invalid: %w", err)
	}

	res := &Result{SessionID: uuid.New(), State: StateGenerating}
	scorer := candidate.NewScorer(spec.AssertionLiterals())
	verifier := verify.NewVerifier(c.matcher, c.cfg.VerifyTimeout)
	repairer := repair.NewEngine(c.matcher, c.lib)

	var feedback []candidate.Counterexample
	logging.Session("session %s: start, budget %d attempts x %d repair passes, batch %d",
		res.SessionID, c.cfg.Budget.MaxAttempts, c.cfg.Budget.MaxRepairPasses, c.cfg.Budget.BatchWidth)

	for attempt := 0; attempt < c.cfg.Budget.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return c.finishCancelled(res)
		}
		res.Rounds = attempt + 1

		res.State = StateGenerating
		batch := c.generateBatch(ctx, spec, feedback, attempt, res)
		if ctx.Err() != nil {
			return c.finishCancelled(res)
		}
		if len(batch) == 0 {
			logging.SessionWarn("session %s: round %d produced no candidates", res.SessionID, attempt)
			continue
		}

		// Validation, verification and repair run to a fixed point for
		// the whole batch before anything is scored, so selection never
		// depends on scheduling variance.
		attempts := make([]Attempt, 0, len(batch))
		for _, cand := range batch {
			done, vres := c.processCandidate(ctx, cand, spec, verifier, repairer)
			attempts = append(attempts, Attempt{
				Candidate:    done,
				Score:        scorer.Score(done),
				Verification: vres,
			})
		}
		res.History = append(res.History, attempts...)

		res.State = StateScoring
		best := 0
		for i := 1; i < len(attempts); i++ {
			if attempts[i].Score.Better(attempts[best].Score) {
				best = i
			}
		}
		roundBest := attempts[best]
		c.updateBest(res, roundBest)

		if roundBest.Candidate.Acceptable() {
			res.State = StateAccepted
			accepted := roundBest.Candidate
			res.Accepted = &accepted
			logging.Session("session %s: accepted on round %d after %d repairs",
				res.SessionID, attempt, len(accepted.Trace))
			return res, nil
		}

		if c.cfg.Runner != nil && len(c.cfg.TestCases) > 0 {
			feedback = append(feedback, c.extractCounterexamples(ctx, roundBest.Candidate, spec)...)
			res.Counterexamples = feedback
		}

		res.State = StateRetrying
		logging.Session("session %s: round %d rejected (%d errors), retrying with %d counterexamples",
			res.SessionID, attempt, roundBest.Candidate.ErrorCount(), len(feedback))
	}

	if res.Best == nil {
		res.State = StateGeneratorFailed
		return res, ErrGeneratorFailed
	}
	res.State = StateExhausted
	logging.SessionWarn("session %s: exhausted after %d rounds, best has %d errors",
		res.SessionID, res.Rounds, res.Best.ErrorCount())
	return res, ErrExhausted
}

// generateBatch requests BatchWidth candidates in parallel and joins
// the full batch. Failed slots are recorded, not fatal.
func (c *Controller) generateBatch(ctx context.Context, spec *ir.Spec, feedback []candidate.Counterexample, attempt int, res *Result) []candidate.Candidate {
	width := c.cfg.Budget.BatchWidth
	texts := make([]string, width)
	errs := make([]error, width)

	var g errgroup.Group
	for slot := 0; slot < width; slot++ {
		slot := slot
		g.Go(func() error {
			text, err := c.gen.Generate(ctx, spec, feedback, c.cfg.Budget.temperature(slot))
			if err != nil {
				errs[slot] = err
				return nil
			}
			texts[slot] = text
			return nil
		})
	}
	_ = g.Wait()

	var batch []candidate.Candidate
	for slot := 0; slot < width; slot++ {
		if errs[slot] != nil {
			res.GeneratorErrors = append(res.GeneratorErrors,
				fmt.Sprintf("round %d slot %d: %v", attempt, slot, errs[slot]))
			continue
		}
		if strings.TrimSpace(texts[slot]) == "" {
			continue
		}
		batch = append(batch, candidate.New(texts[slot], c.gen.Language(), attempt, c.cfg.Budget.temperature(slot)))
	}
	return batch
}

// processCandidate drives one candidate to its fixed point: validate,
// verify, then repair passes with re-validation until no rule applies
// or the pass budget is spent, then a final verification.
func (c *Controller) processCandidate(ctx context.Context, cand candidate.Candidate, spec *ir.Spec, verifier *verify.Verifier, repairer *repair.Engine) (candidate.Candidate, []verify.Result) {
	cand = cand.WithIssues(validate.Run(ctx, c.matcher, cand, c.lib))
	vres := verifier.Verify(ctx, cand, spec)
	cand = mergeVerification(cand, vres)

	for pass := 0; pass < c.cfg.Budget.MaxRepairPasses; pass++ {
		repaired, applied := repairer.Repair(ctx, cand)
		if !applied {
			break
		}
		vres = verifier.Verify(ctx, repaired, spec)
		cand = mergeVerification(repaired, vres)
	}
	return cand, vres
}

// mergeVerification folds disproved results into the candidate's issue
// list. Unknown outcomes are surfaced in the results but add no issue.
func mergeVerification(cand candidate.Candidate, vres []verify.Result) candidate.Candidate {
	issues := append([]candidate.ValidationIssue(nil), cand.Issues...)
	for _, r := range vres {
		if r.Outcome == verify.OutcomeDisproved {
			issues = append(issues, r.Issue())
		}
	}
	return cand.WithIssues(issues)
}

func (c *Controller) updateBest(res *Result, a Attempt) {
	if res.Best == nil || a.Score.Better(res.BestScore) {
		best := a.Candidate
		res.Best = &best
		res.BestScore = a.Score
	}
}

// extractCounterexamples runs the configured test cases against a
// candidate and collects the failures.
func (c *Controller) extractCounterexamples(ctx context.Context, cand candidate.Candidate, spec *ir.Spec) []candidate.Counterexample {
	var out []candidate.Counterexample
	for _, o := range c.cfg.Runner.Run(ctx, cand, spec.Signature, c.cfg.TestCases) {
		if !o.Passed && o.Counterexample != nil {
			out = append(out, *o.Counterexample)
		}
	}
	return out
}

// finishCancelled ends a cancelled session with whatever partial
// results exist.
func (c *Controller) finishCancelled(res *Result) (*Result, error) {
	res.State = StateExhausted
	logging.SessionWarn("session %s: cancelled after %d rounds", res.SessionID, res.Rounds)
	if res.Best == nil {
		return res, ErrGeneratorFailed
	}
	return res, ErrExhausted
}
