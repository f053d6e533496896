// Package pattern is the structural matching boundary: parsing
// candidate source with tree-sitter and finding occurrences of a
// closed set of AST-shape patterns with named captures. Matching is
// structural, so formatting differences never change what matches.
package pattern

import (
	"fmt"

	"crucible/internal/candidate"
)

// Kind enumerates the supported structural pattern shapes. The finder
// switches over this set exhaustively; new shapes extend the enum and
// the finder together.
type Kind string

const (
	// KindFunctionDef matches function definitions. With Name set,
	// only definitions of that name match. Captures: name.
	KindFunctionDef Kind = "function_def"

	// KindLoop matches for/while statements.
	KindLoop Kind = "loop"

	// KindReturnStatement matches any return statement. Captures: value.
	KindReturnStatement Kind = "return_statement"

	// KindReturnOfLiteral matches return statements whose value is the
	// given Literal. Captures: literal.
	KindReturnOfLiteral Kind = "return_of_literal"

	// KindReturnOfLiteralInLoop matches return-of-Literal statements
	// lexically inside a loop body. Captures: literal.
	KindReturnOfLiteralInLoop Kind = "return_of_literal_in_loop"

	// KindMisplacedLoopReturn matches a return of Literal that is a
	// direct statement of a loop body and follows a conditional, the
	// shape produced when an after-loop return is indented one level
	// too deep. Captures: literal, loop_end_line, loop_indent.
	KindMisplacedLoopReturn Kind = "misplaced_loop_return"

	// KindDanglingTerminalBinding matches a function whose last body
	// statement is an assignment or bare expression with no return
	// after it. Captures: binding (assigned name, empty for a bare
	// expression), indent.
	KindDanglingTerminalBinding Kind = "dangling_terminal_binding"

	// KindUnimportedModuleUse matches attribute access on a module
	// name that no import statement brings in. With Name set, only
	// that module is considered. Captures: module.
	KindUnimportedModuleUse Kind = "unimported_module_use"
)

// Pattern is one structural query: a kind plus its parameters.
type Pattern struct {
	Kind    Kind   `yaml:"kind"`
	Name    string `yaml:"name,omitempty"`    // name parameter (function or module), kind-dependent
	Literal string `yaml:"literal,omitempty"` // literal parameter, kind-dependent
}

// Match is one occurrence of a pattern: a source span plus named
// capture bindings.
type Match struct {
	Span     candidate.Span
	Text     string
	Captures map[string]string
}

// ErrUnsupportedLanguage is returned when a candidate's language has no
// registered grammar.
var ErrUnsupportedLanguage = fmt.Errorf("unsupported language")
