// Package runner implements the optional test-runner collaborator for
// Go-language candidates: the candidate source is interpreted in a
// sandboxed yaegi interpreter and each test case's call expression is
// evaluated against its expected output. Failures come back as
// counterexamples for the CEGIS feedback loop.
//
// Only stdlib imports are allowed in candidate code; os, net, exec and
// friends never appear in the allowlist.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"crucible/internal/candidate"
	"crucible/internal/ir"
	"crucible/internal/logging"
)

// Outcome is the result of one test case.
type Outcome struct {
	Passed         bool
	Counterexample *candidate.Counterexample
}

// YaegiRunner runs Go candidates in an embedded interpreter.
type YaegiRunner struct {
	allowedPackages map[string]bool
	caseTimeout     time.Duration
}

// NewYaegiRunner creates a runner with a per-case timeout. A zero
// timeout means 2s.
func NewYaegiRunner(caseTimeout time.Duration) *YaegiRunner {
	if caseTimeout <= 0 {
		caseTimeout = 2 * time.Second
	}
	return &YaegiRunner{
		caseTimeout: caseTimeout,
		allowedPackages: map[string]bool{
			"strings": true,
			"strconv": true,
			"fmt":     true,
			"math":    true,
			"sort":    true,
			"bytes":   true,
			"regexp":  true,
			"unicode": true,
			"errors":  true,
		},
	}
}

// Run evaluates each test case against the candidate. Non-Go
// candidates yield a single error outcome rather than an error return,
// so the controller treats an unsupported language like any other
// failing run.
func (r *YaegiRunner) Run(ctx context.Context, cand candidate.Candidate, sig ir.Signature, cases []candidate.TestCase) []Outcome {
	if cand.Language != candidate.LanguageGo {
		out := make([]Outcome, len(cases))
		for i, tc := range cases {
			out[i] = failure(tc, "", fmt.Sprintf("runner does not support language %s", cand.Language))
		}
		return out
	}

	if err := r.validateImports(cand.Source); err != nil {
		out := make([]Outcome, len(cases))
		for i, tc := range cases {
			out[i] = failure(tc, "", err.Error())
		}
		return out
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		out := make([]Outcome, len(cases))
		for j, tc := range cases {
			out[j] = failure(tc, "", fmt.Sprintf("interpreter init: %v", err))
		}
		return out
	}

	code := cand.Source
	if !strings.Contains(code, "package ") {
		code = "package main\n\n" + code
	}
	if _, err := i.Eval(code); err != nil {
		out := make([]Outcome, len(cases))
		for j, tc := range cases {
			out[j] = failure(tc, "", fmt.Sprintf("candidate does not evaluate: %v", err))
		}
		return out
	}

	outcomes := make([]Outcome, 0, len(cases))
	for _, tc := range cases {
		outcomes = append(outcomes, r.runCase(ctx, i, sig, tc))
	}
	passed := 0
	for _, o := range outcomes {
		if o.Passed {
			passed++
		}
	}
	logging.Runner("attempt %d: %d/%d cases passed", cand.Attempt, passed, len(cases))
	return outcomes
}

func (r *YaegiRunner) runCase(ctx context.Context, i *interp.Interpreter, sig ir.Signature, tc candidate.TestCase) Outcome {
	call := fmt.Sprintf("main.%s(%s)", sig.Name, strings.Join(tc.Inputs, ", "))

	type evalResult struct {
		text string
		err  error
	}
	resultChan := make(chan evalResult, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resultChan <- evalResult{err: fmt.Errorf("panic: %v", rec)}
			}
		}()
		v, err := i.Eval(call)
		if err != nil {
			resultChan <- evalResult{err: err}
			return
		}
		resultChan <- evalResult{text: fmt.Sprintf("%v", v.Interface())}
	}()

	cctx, cancel := context.WithTimeout(ctx, r.caseTimeout)
	defer cancel()

	select {
	case res := <-resultChan:
		if res.err != nil {
			return failure(tc, "", res.err.Error())
		}
		if res.text != tc.Expected {
			return failure(tc, res.text, "")
		}
		return Outcome{Passed: true}
	case <-cctx.Done():
		return failure(tc, "", fmt.Sprintf("case timed out: %v", cctx.Err()))
	}
}

func failure(tc candidate.TestCase, actual, errMsg string) Outcome {
	return Outcome{
		Counterexample: &candidate.Counterexample{
			Inputs:   append([]string(nil), tc.Inputs...),
			Expected: tc.Expected,
			Actual:   actual,
			Error:    errMsg,
		},
	}
}

// validateImports rejects candidate code importing anything outside
// the allowlist.
func (r *YaegiRunner) validateImports(code string) error {
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		var pkg string
		switch {
		case strings.HasPrefix(trimmed, "import \""):
			pkg = strings.Trim(strings.TrimPrefix(trimmed, "import "), "\"")
		case strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\""):
			pkg = strings.Trim(trimmed, "\"")
		default:
			continue
		}
		if pkg != "" && !r.allowedPackages[pkg] {
			return fmt.Errorf("import %q is not permitted in sandboxed candidates", pkg)
		}
	}
	return nil
}
