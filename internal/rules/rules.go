// Package rules models rewrite and validation rules as declarative
// data over a closed set of pattern and rewrite kinds. The evaluators
// in validate and repair switch over these kinds exhaustively; new
// rule *data* is added freely (builtin table or YAML), new *kinds*
// require extending the enums.
package rules

import (
	"fmt"
	"sort"

	"crucible/internal/candidate"
	"crucible/internal/pattern"
)

// RewriteKind enumerates the supported rewrite strategies.
type RewriteKind string

const (
	// RewriteNone marks a validation-only rule.
	RewriteNone RewriteKind = ""
	// RewriteMoveAfterLoop relocates the matched statement to
	// immediately after its enclosing loop, at the loop's indentation.
	RewriteMoveAfterLoop RewriteKind = "move_after_loop"
	// RewriteReturnBinding converts the matched terminal statement
	// into a return of its binding.
	RewriteReturnBinding RewriteKind = "return_binding"
	// RewriteInsertImport prepends an import for the captured module.
	RewriteInsertImport RewriteKind = "insert_import"
	// RewriteTemplate replaces the matched span with the rule's
	// expanded template.
	RewriteTemplate RewriteKind = "template"
)

// ApplicabilityKind enumerates the supported applicability predicates.
// All are pure functions of the candidate text.
type ApplicabilityKind string

const (
	// ApplyAlways applies whenever the matcher matches.
	ApplyAlways ApplicabilityKind = ""
	// ApplyIfNoReturnAfterLoop skips the rule when a return already
	// follows the last loop at the loop's own indentation.
	ApplyIfNoReturnAfterLoop ApplicabilityKind = "no_return_after_loop"
)

// RewriteRule is one declarative rule. Violation rules are
// validation-only ("must not match"); Required rules are
// validation-only ("must match"); rules with a RewriteKind are
// constructive repairs.
type RewriteRule struct {
	Name          string
	Priority      int // higher runs first
	Violation     bool
	Required      bool
	Severity      candidate.Severity
	Category      candidate.IssueCategory
	Message       string
	SuggestedRule string // repair rule that fixes this violation, if any
	Pattern       pattern.Pattern
	Rewrite       RewriteKind
	Template      string
	Applicability ApplicabilityKind

	regOrder int
}

// IsRepair reports whether the rule is a constructive rewrite.
func (r RewriteRule) IsRepair() bool {
	return !r.Violation && !r.Required && r.Rewrite != RewriteNone
}

func (r RewriteRule) validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule has no name")
	}
	if r.Pattern.Kind == "" {
		return fmt.Errorf("rule %q has no pattern kind", r.Name)
	}
	if r.Violation && r.Required {
		return fmt.Errorf("rule %q is both violation and required", r.Name)
	}
	if (r.Violation || r.Required) && r.Rewrite != RewriteNone {
		return fmt.Errorf("rule %q mixes validation and rewrite", r.Name)
	}
	if r.Rewrite == RewriteTemplate && r.Template == "" {
		return fmt.Errorf("rule %q: template rewrite with empty template", r.Name)
	}
	return nil
}

// Library is an immutable-after-load, ordered collection of rules.
// Ordering is by priority descending with registration order breaking
// ties, so evaluation is fully reproducible for identical rule sets.
type Library struct {
	rules  []RewriteRule
	byName map[string]int
	sealed bool
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{byName: make(map[string]int)}
}

// Register adds a rule. Names must be unique; registration after Seal
// is rejected.
func (l *Library) Register(r RewriteRule) error {
	if l.sealed {
		return fmt.Errorf("library is sealed")
	}
	if err := r.validate(); err != nil {
		return err
	}
	if _, dup := l.byName[r.Name]; dup {
		return fmt.Errorf("duplicate rule name %q", r.Name)
	}
	r.regOrder = len(l.rules)
	l.byName[r.Name] = len(l.rules)
	l.rules = append(l.rules, r)
	return nil
}

// Seal sorts the rules into evaluation order and freezes the library.
// A sealed library is safe to share across concurrent sessions.
func (l *Library) Seal() {
	sort.SliceStable(l.rules, func(i, j int) bool {
		if l.rules[i].Priority != l.rules[j].Priority {
			return l.rules[i].Priority > l.rules[j].Priority
		}
		return l.rules[i].regOrder < l.rules[j].regOrder
	})
	l.byName = make(map[string]int, len(l.rules))
	for i, r := range l.rules {
		l.byName[r.Name] = i
	}
	l.sealed = true
}

// Rules returns all rules in evaluation order.
func (l *Library) Rules() []RewriteRule {
	return l.rules
}

// ValidationRules returns violation and required rules in order.
func (l *Library) ValidationRules() []RewriteRule {
	var out []RewriteRule
	for _, r := range l.rules {
		if r.Violation || r.Required {
			out = append(out, r)
		}
	}
	return out
}

// RepairRules returns constructive rewrite rules in order.
func (l *Library) RepairRules() []RewriteRule {
	var out []RewriteRule
	for _, r := range l.rules {
		if r.IsRepair() {
			out = append(out, r)
		}
	}
	return out
}

// Lookup returns the rule with the given name.
func (l *Library) Lookup(name string) (RewriteRule, bool) {
	i, ok := l.byName[name]
	if !ok {
		return RewriteRule{}, false
	}
	return l.rules[i], true
}

// Len returns the number of rules.
func (l *Library) Len() int { return len(l.rules) }
