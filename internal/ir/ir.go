// Package ir defines the intermediate representation handed to the
// synthesis engine: a typed signature, logical assertions over the
// signature's names, and control-flow effect directives. The IR is
// read-only to the engine; upstream components (prompt parsing, entity
// resolution) are responsible for producing it.
package ir

import (
	"fmt"
	"regexp"
	"strings"
)

// Param is one ordered parameter of the target signature.
type Param struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Constraint string `yaml:"constraint,omitempty"` // optional semantic constraint, e.g. "non-empty"
}

// Signature is the typed signature the synthesized artifact must expose.
// A ReturnType of "" or "None" means the function returns nothing.
type Signature struct {
	Name       string  `yaml:"name"`
	Params     []Param `yaml:"params"`
	ReturnType string  `yaml:"return_type,omitempty"`
}

// ReturnsValue reports whether the signature declares a non-void return.
func (s Signature) ReturnsValue() bool {
	return s.ReturnType != "" && s.ReturnType != "None" && s.ReturnType != "void"
}

// StructuralKind identifies the closed set of structural ordering
// properties the control-flow verifier understands. Assertions without
// a structural kind are value-level and are checked by the test runner,
// not the verifier.
type StructuralKind string

const (
	// StructuralNone marks a plain value-level assertion.
	StructuralNone StructuralKind = ""
	// StructuralNoReturnInLoop asserts that no return of the given
	// literal is reachable from inside a loop body.
	StructuralNoReturnInLoop StructuralKind = "no_return_in_loop"
	// StructuralReturnAfterLoop asserts that a return of the given
	// literal executes only after loop completion.
	StructuralReturnAfterLoop StructuralKind = "return_after_loop"
)

// Assertion is a boolean predicate over the signature's named values.
type Assertion struct {
	Predicate  string         `yaml:"predicate"`
	Rationale  string         `yaml:"rationale,omitempty"`
	Structural StructuralKind `yaml:"structural,omitempty"`
	Literal    string         `yaml:"literal,omitempty"` // literal bound to a structural property, e.g. "-1"
}

// Effect is an ordered directive describing required control-flow shape,
// e.g. "iterate and return early on match; otherwise return sentinel
// after the loop". Effects are free of natural-language ambiguity by
// contract of the upstream producer.
type Effect string

// Spec is the full specification object for one synthesis session.
type Spec struct {
	Signature  Signature   `yaml:"signature"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
	Effects    []Effect    `yaml:"effects,omitempty"`
}

// identRe matches a valid identifier in the target languages.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// tokenRe extracts identifier-shaped tokens from an assertion predicate.
var tokenRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// predicate tokens that are never value references
var predicateKeywords = map[string]bool{
	"and": true, "or": true, "not": true, "result": true,
	"true": true, "false": true, "len": true, "abs": true,
	"min": true, "max": true, "in": true,
}

// Validate enforces the IR invariants: the signature name is a valid
// identifier, every parameter is named and typed, and every assertion
// predicate references only parameter names, the return value, or
// literals.
func (s *Spec) Validate() error {
	if !identRe.MatchString(s.Signature.Name) {
		return fmt.Errorf("signature name %q is not a valid identifier", s.Signature.Name)
	}

	known := make(map[string]bool, len(s.Signature.Params))
	for i, p := range s.Signature.Params {
		if !identRe.MatchString(p.Name) {
			return fmt.Errorf("param %d name %q is not a valid identifier", i, p.Name)
		}
		if p.Type == "" {
			return fmt.Errorf("param %q has no type", p.Name)
		}
		if known[p.Name] {
			return fmt.Errorf("duplicate param name %q", p.Name)
		}
		known[p.Name] = true
	}

	for i, a := range s.Assertions {
		if strings.TrimSpace(a.Predicate) == "" {
			return fmt.Errorf("assertion %d has an empty predicate", i)
		}
		for _, tok := range tokenRe.FindAllString(a.Predicate, -1) {
			if predicateKeywords[tok] || known[tok] {
				continue
			}
			return fmt.Errorf("assertion %d references unknown name %q", i, tok)
		}
		switch a.Structural {
		case StructuralNone:
		case StructuralNoReturnInLoop, StructuralReturnAfterLoop:
			if a.Literal == "" {
				return fmt.Errorf("assertion %d: structural property %s requires a literal", i, a.Structural)
			}
		default:
			return fmt.Errorf("assertion %d: unknown structural kind %q", i, a.Structural)
		}
	}

	return nil
}

// StructuralAssertions returns only the assertions the control-flow
// verifier can act on, in declaration order.
func (s *Spec) StructuralAssertions() []Assertion {
	var out []Assertion
	for _, a := range s.Assertions {
		if a.Structural != StructuralNone {
			out = append(out, a)
		}
	}
	return out
}

// AssertionLiterals returns the distinct literals appearing on assertion
// right-hand sides, used by the scorer's specificity signal.
func (s *Spec) AssertionLiterals() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range s.Assertions {
		if a.Literal != "" && !seen[a.Literal] {
			seen[a.Literal] = true
			out = append(out, a.Literal)
		}
	}
	return out
}
