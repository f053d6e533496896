// Package repair applies rule-library rewrites to fix known defect
// shapes. Rewrites are deterministic, run in priority order, and are
// re-checked for applicability after every applied rule so one repair
// never triggers another whose precondition it already satisfied. A
// rewrite that breaks parsing or raises the error count is discarded.
package repair

import (
	"context"
	"strconv"
	"strings"

	"crucible/internal/candidate"
	"crucible/internal/logging"
	"crucible/internal/pattern"
	"crucible/internal/rules"
	"crucible/internal/validate"
)

// Engine applies the repair rules of one library.
type Engine struct {
	matcher *pattern.Matcher
	lib     *rules.Library
}

// NewEngine creates a repair engine over a sealed library.
func NewEngine(m *pattern.Matcher, lib *rules.Library) *Engine {
	return &Engine{matcher: m, lib: lib}
}

// Repair runs one repair pass: rules in priority order, at most one
// rewrite per rule, validation re-entered after each applied rewrite.
// The second return is false when no rule applied, the fixed-point
// no-op signal. The input candidate must carry current validation
// issues so regressions can be detected.
func (e *Engine) Repair(ctx context.Context, cand candidate.Candidate) (candidate.Candidate, bool) {
	current := cand
	applied := false

	for _, rule := range e.lib.RepairRules() {
		if ctx.Err() != nil {
			break
		}
		if !e.applicable(ctx, rule, current) {
			continue
		}

		tree, err := e.matcher.Parse(ctx, current.Language, current.Source)
		if err != nil {
			break
		}
		matches := pattern.FindAll(tree, rule.Pattern)
		if len(matches) == 0 {
			tree.Close()
			continue
		}

		newText := applyRewrite(rule, tree, matches[0])
		tree.Close()
		if newText == current.Source {
			continue
		}

		if !e.parses(ctx, current.Language, newText) {
			logging.RepairWarn("rule %s produced unparseable text, discarding", rule.Name)
			continue
		}

		next := current.WithRepair(rule.Name, newText)
		next = next.WithIssues(validate.Run(ctx, e.matcher, next, e.lib))
		if next.ErrorCount() > current.ErrorCount() {
			logging.RepairWarn("rule %s regressed error count %d -> %d, discarding",
				rule.Name, current.ErrorCount(), next.ErrorCount())
			continue
		}

		logging.Repair("attempt %d: applied %s (errors %d -> %d)",
			cand.Attempt, rule.Name, current.ErrorCount(), next.ErrorCount())
		current = next
		applied = true
	}

	if !applied {
		return cand, false
	}
	return current, true
}

func (e *Engine) parses(ctx context.Context, lang candidate.Language, text string) bool {
	tree, err := e.matcher.Parse(ctx, lang, text)
	if err != nil {
		return false
	}
	defer tree.Close()
	return !tree.HasSyntaxError()
}

// applicable evaluates the rule's applicability predicate against the
// current candidate text.
func (e *Engine) applicable(ctx context.Context, rule rules.RewriteRule, cand candidate.Candidate) bool {
	switch rule.Applicability {
	case rules.ApplyAlways:
		return true
	case rules.ApplyIfNoReturnAfterLoop:
		return !returnFollowsLoop(ctx, e.matcher, cand)
	default:
		return false
	}
}

// returnFollowsLoop reports whether a return statement already sits
// after the last loop at the loop's own indentation.
func returnFollowsLoop(ctx context.Context, m *pattern.Matcher, cand candidate.Candidate) bool {
	tree, err := m.Parse(ctx, cand.Language, cand.Source)
	if err != nil {
		return false
	}
	defer tree.Close()

	loops := pattern.FindAll(tree, pattern.Pattern{Kind: pattern.KindLoop})
	if len(loops) == 0 {
		return false
	}
	last := loops[len(loops)-1]
	loopIndent := indentOfLine(cand.Source, last.Span.StartLine)

	lines := strings.Split(cand.Source, "\n")
	for i := int(last.Span.EndLine) + 1; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := line[:len(line)-len(trimmed)]
		if indent == loopIndent && strings.HasPrefix(trimmed, "return") {
			return true
		}
	}
	return false
}

func indentOfLine(text string, line uint32) string {
	lines := strings.Split(text, "\n")
	if int(line) >= len(lines) {
		return ""
	}
	l := lines[line]
	return l[:len(l)-len(strings.TrimLeft(l, " \t"))]
}

// applyRewrite executes one rewrite strategy. The strategy set is
// closed; unknown kinds are no-ops.
func applyRewrite(rule rules.RewriteRule, tree *pattern.Tree, m pattern.Match) string {
	text := tree.Source()

	switch rule.Rewrite {
	case rules.RewriteMoveAfterLoop:
		return moveAfterLoop(text, m)

	case rules.RewriteReturnBinding:
		binding := m.Captures["binding"]
		indent := m.Captures["indent"]
		if binding == "" {
			return pattern.ReplaceSpan(text, m.Span, "return "+m.Text, nil)
		}
		return pattern.InsertLineAfter(text, m.Span.EndLine, indent+"return "+binding)

	case rules.RewriteInsertImport:
		mod := m.Captures["module"]
		if mod == "" {
			return text
		}
		return pattern.PrependLine(text, "import "+mod)

	case rules.RewriteTemplate:
		return pattern.ReplaceSpan(text, m.Span, rule.Template, m.Captures)

	default:
		return text
	}
}

// moveAfterLoop deletes the matched statement's lines from the loop
// body and reinserts the statement after the loop at the loop's
// indentation.
func moveAfterLoop(text string, m pattern.Match) string {
	loopEnd, err := strconv.ParseUint(m.Captures["loop_end_line"], 10, 32)
	if err != nil {
		return text
	}
	indent := m.Captures["loop_indent"]
	stmt := strings.TrimSpace(m.Text)

	deleted := m.Span.EndLine - m.Span.StartLine + 1
	out := pattern.DeleteLines(text, m.Span.StartLine, m.Span.EndLine)

	insertAfter := uint32(loopEnd)
	if insertAfter >= deleted {
		insertAfter -= deleted
	}
	return pattern.InsertLineAfter(out, insertAfter, indent+stmt)
}
