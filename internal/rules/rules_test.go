package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crucible/internal/candidate"
	"crucible/internal/ir"
	"crucible/internal/pattern"
)

func rule(name string, priority int) RewriteRule {
	return RewriteRule{
		Name:     name,
		Priority: priority,
		Severity: candidate.SeverityError,
		Category: candidate.CategoryOther,
		Pattern:  pattern.Pattern{Kind: pattern.KindLoop},
		Rewrite:  RewriteTemplate,
		Template: "x",
	}
}

func TestOrderingPriorityThenRegistration(t *testing.T) {
	lib := NewLibrary()
	require.NoError(t, lib.Register(rule("low", 10)))
	require.NoError(t, lib.Register(rule("high", 100)))
	require.NoError(t, lib.Register(rule("mid-a", 50)))
	require.NoError(t, lib.Register(rule("mid-b", 50)))
	lib.Seal()

	var names []string
	for _, r := range lib.Rules() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"high", "mid-a", "mid-b", "low"}, names,
		"priority descending, registration order breaks ties")
}

func TestDuplicateNameRejected(t *testing.T) {
	lib := NewLibrary()
	require.NoError(t, lib.Register(rule("same", 1)))
	err := lib.Register(rule("same", 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestSealedLibraryRejectsRegistration(t *testing.T) {
	lib := NewLibrary()
	require.NoError(t, lib.Register(rule("only", 1)))
	lib.Seal()
	assert.Error(t, lib.Register(rule("late", 1)))
}

func TestRuleValidation(t *testing.T) {
	lib := NewLibrary()

	assert.Error(t, lib.Register(RewriteRule{Pattern: pattern.Pattern{Kind: pattern.KindLoop}}), "no name")
	assert.Error(t, lib.Register(RewriteRule{Name: "x"}), "no pattern kind")
	assert.Error(t, lib.Register(RewriteRule{
		Name: "both", Violation: true, Required: true,
		Pattern: pattern.Pattern{Kind: pattern.KindLoop},
	}))
	assert.Error(t, lib.Register(RewriteRule{
		Name: "mixed", Violation: true, Rewrite: RewriteTemplate, Template: "y",
		Pattern: pattern.Pattern{Kind: pattern.KindLoop},
	}))
	assert.Error(t, lib.Register(RewriteRule{
		Name: "empty-template", Rewrite: RewriteTemplate,
		Pattern: pattern.Pattern{Kind: pattern.KindLoop},
	}))
}

func TestPartition(t *testing.T) {
	lib := NewLibrary()
	require.NoError(t, lib.Register(RewriteRule{
		Name: "check", Violation: true, Severity: candidate.SeverityError,
		Category: candidate.CategoryControlFlow,
		Pattern:  pattern.Pattern{Kind: pattern.KindReturnOfLiteralInLoop, Literal: "-1"},
	}))
	require.NoError(t, lib.Register(rule("fix", 10)))
	lib.Seal()

	require.Len(t, lib.ValidationRules(), 1)
	require.Len(t, lib.RepairRules(), 1)
	assert.Equal(t, "check", lib.ValidationRules()[0].Name)
	assert.Equal(t, "fix", lib.RepairRules()[0].Name)

	_, ok := lib.Lookup("fix")
	assert.True(t, ok)
	_, ok = lib.Lookup("missing")
	assert.False(t, ok)
}

func TestDefaultLibrary(t *testing.T) {
	spec := &ir.Spec{
		Signature: ir.Signature{
			Name:       "find_index",
			Params:     []ir.Param{{Name: "xs", Type: "list[int]"}, {Name: "target", Type: "int"}},
			ReturnType: "int",
		},
		Assertions: []ir.Assertion{
			{Predicate: "result >= -1", Structural: ir.StructuralReturnAfterLoop, Literal: "-1"},
		},
	}

	lib, err := DefaultLibrary(spec)
	require.NoError(t, err)

	for _, name := range []string{
		"function-defined",
		"has-return",
		"return-terminal-binding",
		"insert-missing-import",
		"unimported-module",
		"no-loop-return--1",
		"move-return--1-after-loop",
	} {
		_, ok := lib.Lookup(name)
		assert.True(t, ok, "missing builtin rule %s", name)
	}

	// violations suggest the repair rule that fixes them
	viol, _ := lib.Lookup("no-loop-return--1")
	assert.Equal(t, "move-return--1-after-loop", viol.SuggestedRule)

	// void signature drops the return rules
	voidSpec := &ir.Spec{Signature: ir.Signature{Name: "log_all", Params: []ir.Param{{Name: "xs", Type: "list"}}}}
	voidLib, err := DefaultLibrary(voidSpec)
	require.NoError(t, err)
	_, ok := voidLib.Lookup("has-return")
	assert.False(t, ok)
	_, ok = voidLib.Lookup("return-terminal-binding")
	assert.False(t, ok)
}
