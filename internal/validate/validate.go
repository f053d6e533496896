// Package validate runs the structural validator: required and
// violation rules evaluated over a candidate's syntax tree, producing
// typed issues. Pure function of (candidate text, rule set); no side
// effects beyond logging.
package validate

import (
	"context"
	"fmt"

	"crucible/internal/candidate"
	"crucible/internal/logging"
	"crucible/internal/pattern"
	"crucible/internal/rules"
)

// Run evaluates the library's validation rules against the candidate.
// If the text does not parse at all, a single syntax error issue is
// returned and rule evaluation is skipped, since rules assume a
// parseable tree.
func Run(ctx context.Context, m *pattern.Matcher, cand candidate.Candidate, lib *rules.Library) []candidate.ValidationIssue {
	tree, err := m.Parse(ctx, cand.Language, cand.Source)
	if err != nil {
		return []candidate.ValidationIssue{{
			Severity: candidate.SeverityError,
			Category: candidate.CategorySyntax,
			Message:  fmt.Sprintf("candidate does not parse: %v", err),
		}}
	}
	defer tree.Close()

	if tree.HasSyntaxError() {
		logging.ValidateDebug("attempt %d: syntax error, skipping rule evaluation", cand.Attempt)
		return []candidate.ValidationIssue{{
			Severity: candidate.SeverityError,
			Category: candidate.CategorySyntax,
			Message:  "candidate contains syntax errors",
		}}
	}

	var issues []candidate.ValidationIssue
	for _, rule := range lib.ValidationRules() {
		matches := pattern.FindAll(tree, rule.Pattern)

		switch {
		case rule.Required && len(matches) == 0:
			issues = append(issues, candidate.ValidationIssue{
				Severity:      rule.Severity,
				Category:      rule.Category,
				Message:       rule.Message,
				SuggestedRule: rule.SuggestedRule,
			})

		case rule.Violation:
			for _, mt := range matches {
				span := mt.Span
				issues = append(issues, candidate.ValidationIssue{
					Severity:      rule.Severity,
					Category:      rule.Category,
					Message:       fmt.Sprintf("%s: %q", rule.Message, mt.Text),
					Span:          &span,
					SuggestedRule: rule.SuggestedRule,
				})
			}
		}
	}

	logging.ValidateDebug("attempt %d: %d rules evaluated, %d issues", cand.Attempt, len(lib.ValidationRules()), len(issues))
	return issues
}
