package rules

import (
	"fmt"

	"crucible/internal/candidate"
	"crucible/internal/ir"
	"crucible/internal/logging"
	"crucible/internal/pattern"
)

// DefaultLibrary builds the builtin rule set for a specification. The
// validation side checks that the required function exists, that a
// non-void signature returns, and that structural assertions are not
// textually violated; the repair side covers the three canonical
// defect shapes: a misplaced after-loop return, a dangling terminal
// binding, and a missing standard-library import.
func DefaultLibrary(spec *ir.Spec) (*Library, error) {
	lib := NewLibrary()

	reg := func(r RewriteRule) error {
		if err := lib.Register(r); err != nil {
			return fmt.Errorf("builtin rules: %w", err)
		}
		return nil
	}

	if err := reg(RewriteRule{
		Name:     "function-defined",
		Priority: 200,
		Required: true,
		Severity: candidate.SeverityError,
		Category: candidate.CategoryPatternViolation,
		Message:  fmt.Sprintf("no definition of function %q found", spec.Signature.Name),
		Pattern:  pattern.Pattern{Kind: pattern.KindFunctionDef, Name: spec.Signature.Name},
	}); err != nil {
		return nil, err
	}

	if spec.Signature.ReturnsValue() {
		if err := reg(RewriteRule{
			Name:          "has-return",
			Priority:      190,
			Required:      true,
			Severity:      candidate.SeverityError,
			Category:      candidate.CategoryMissingReturn,
			Message:       fmt.Sprintf("signature declares return type %s but no return statement exists", spec.Signature.ReturnType),
			SuggestedRule: "return-terminal-binding",
			Pattern:       pattern.Pattern{Kind: pattern.KindReturnStatement},
		}); err != nil {
			return nil, err
		}

		if err := reg(RewriteRule{
			Name:     "return-terminal-binding",
			Priority: 90,
			Severity: candidate.SeverityError,
			Category: candidate.CategoryMissingReturn,
			Pattern:  pattern.Pattern{Kind: pattern.KindDanglingTerminalBinding},
			Rewrite:  RewriteReturnBinding,
		}); err != nil {
			return nil, err
		}
	}

	if err := reg(RewriteRule{
		Name:     "insert-missing-import",
		Priority: 110,
		Severity: candidate.SeverityError,
		Category: candidate.CategoryMissingImport,
		Pattern:  pattern.Pattern{Kind: pattern.KindUnimportedModuleUse},
		Rewrite:  RewriteInsertImport,
	}); err != nil {
		return nil, err
	}

	if err := reg(RewriteRule{
		Name:          "unimported-module",
		Priority:      180,
		Violation:     true,
		Severity:      candidate.SeverityError,
		Category:      candidate.CategoryMissingImport,
		Message:       "standard-library module used without import",
		SuggestedRule: "insert-missing-import",
		Pattern:       pattern.Pattern{Kind: pattern.KindUnimportedModuleUse},
	}); err != nil {
		return nil, err
	}

	for _, a := range spec.StructuralAssertions() {
		switch a.Structural {
		case ir.StructuralNoReturnInLoop, ir.StructuralReturnAfterLoop:
			if err := reg(RewriteRule{
				Name:          fmt.Sprintf("no-loop-return-%s", a.Literal),
				Priority:      170,
				Violation:     true,
				Severity:      candidate.SeverityError,
				Category:      candidate.CategoryControlFlow,
				Message:       fmt.Sprintf("return %s is reachable from inside a loop body", a.Literal),
				SuggestedRule: fmt.Sprintf("move-return-%s-after-loop", a.Literal),
				Pattern:       pattern.Pattern{Kind: pattern.KindReturnOfLiteralInLoop, Literal: a.Literal},
			}); err != nil {
				return nil, err
			}

			if err := reg(RewriteRule{
				Name:          fmt.Sprintf("move-return-%s-after-loop", a.Literal),
				Priority:      100,
				Severity:      candidate.SeverityError,
				Category:      candidate.CategoryControlFlow,
				Pattern:       pattern.Pattern{Kind: pattern.KindMisplacedLoopReturn, Literal: a.Literal},
				Rewrite:       RewriteMoveAfterLoop,
				Applicability: ApplyIfNoReturnAfterLoop,
			}); err != nil {
				return nil, err
			}
		}
	}

	lib.Seal()
	logging.Rules("builtin library for %s: %d rules", spec.Signature.Name, lib.Len())
	return lib, nil
}
