package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() *Spec {
	return &Spec{
		Signature: Signature{
			Name: "find_index",
			Params: []Param{
				{Name: "xs", Type: "list[int]"},
				{Name: "target", Type: "int"},
			},
			ReturnType: "int",
		},
		Assertions: []Assertion{
			{Predicate: "result >= -1"},
			{
				Predicate:  "result == -1 or xs[result] == target",
				Structural: StructuralReturnAfterLoop,
				Literal:    "-1",
			},
		},
		Effects: []Effect{"iterate and return early on match; otherwise return sentinel after the loop"},
	}
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Spec)
		wantErr string
	}{
		{name: "valid", mutate: func(s *Spec) {}},
		{
			name:    "bad signature name",
			mutate:  func(s *Spec) { s.Signature.Name = "9lives" },
			wantErr: "not a valid identifier",
		},
		{
			name:    "param without type",
			mutate:  func(s *Spec) { s.Signature.Params[0].Type = "" },
			wantErr: "no type",
		},
		{
			name: "duplicate param",
			mutate: func(s *Spec) {
				s.Signature.Params[1].Name = "xs"
			},
			wantErr: "duplicate param",
		},
		{
			name: "assertion references unknown name",
			mutate: func(s *Spec) {
				s.Assertions[0].Predicate = "result == haystack"
			},
			wantErr: "unknown name",
		},
		{
			name: "empty predicate",
			mutate: func(s *Spec) {
				s.Assertions[0].Predicate = "   "
			},
			wantErr: "empty predicate",
		},
		{
			name: "structural without literal",
			mutate: func(s *Spec) {
				s.Assertions[1].Literal = ""
			},
			wantErr: "requires a literal",
		},
		{
			name: "unknown structural kind",
			mutate: func(s *Spec) {
				s.Assertions[1].Structural = "return_before_loop"
			},
			wantErr: "unknown structural kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(spec)
			err := spec.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStructuralAssertions(t *testing.T) {
	spec := validSpec()
	structural := spec.StructuralAssertions()
	require.Len(t, structural, 1)
	assert.Equal(t, StructuralReturnAfterLoop, structural[0].Structural)
	assert.Equal(t, "-1", structural[0].Literal)
}

func TestAssertionLiterals(t *testing.T) {
	spec := validSpec()
	spec.Assertions = append(spec.Assertions, Assertion{
		Predicate:  "result >= -1",
		Structural: StructuralNoReturnInLoop,
		Literal:    "-1",
	})
	assert.Equal(t, []string{"-1"}, spec.AssertionLiterals(), "duplicate literals collapse")
}

func TestReturnsValue(t *testing.T) {
	assert.True(t, Signature{ReturnType: "int"}.ReturnsValue())
	assert.False(t, Signature{ReturnType: ""}.ReturnsValue())
	assert.False(t, Signature{ReturnType: "None"}.ReturnsValue())
	assert.False(t, Signature{ReturnType: "void"}.ReturnsValue())
}
