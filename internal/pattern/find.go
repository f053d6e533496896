package pattern

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"crucible/internal/candidate"
)

// pythonStdlib is the module universe considered by the
// unimported-module pattern. Only modules whose import is side-effect
// free are listed.
var pythonStdlib = map[string]bool{
	"math": true, "re": true, "os": true, "sys": true, "json": true,
	"itertools": true, "collections": true, "functools": true,
	"random": true, "string": true, "time": true, "heapq": true,
	"bisect": true,
}

// FindAll returns every occurrence of pat in the tree, in document
// order. The pattern kinds form a closed set; an unknown kind yields
// no matches.
func FindAll(t *Tree, pat Pattern) []Match {
	var out []Match
	switch pat.Kind {
	case KindFunctionDef:
		out = findFunctionDefs(t, pat.Name)
	case KindLoop:
		out = findByTypes(t, loopTypes(t.Language), nil)
	case KindReturnStatement:
		out = findReturns(t, "")
	case KindReturnOfLiteral:
		out = findReturns(t, pat.Literal)
	case KindReturnOfLiteralInLoop:
		out = findReturnsInLoop(t, pat.Literal)
	case KindMisplacedLoopReturn:
		out = findMisplacedLoopReturns(t, pat.Literal)
	case KindDanglingTerminalBinding:
		out = findDanglingTerminalBindings(t)
	case KindUnimportedModuleUse:
		out = findUnimportedModuleUses(t, pat.Name)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.StartByte < out[j].Span.StartByte
	})
	return out
}

func loopTypes(lang candidate.Language) []string {
	if lang == candidate.LanguageGo {
		return []string{"for_statement"}
	}
	return []string{"for_statement", "while_statement"}
}

func functionTypes(lang candidate.Language) []string {
	if lang == candidate.LanguageGo {
		return []string{"function_declaration", "method_declaration"}
	}
	return []string{"function_definition"}
}

// walk visits named nodes in preorder.
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}

func isOneOf(nodeType string, types []string) bool {
	for _, t := range types {
		if nodeType == t {
			return true
		}
	}
	return false
}

func findByTypes(t *Tree, types []string, capture func(*sitter.Node) map[string]string) []Match {
	var out []Match
	walk(t.Root(), func(n *sitter.Node) {
		if !isOneOf(n.Type(), types) {
			return
		}
		m := Match{Span: spanOf(n), Text: t.Text(n)}
		if capture != nil {
			m.Captures = capture(n)
		}
		out = append(out, m)
	})
	return out
}

func findFunctionDefs(t *Tree, name string) []Match {
	var out []Match
	walk(t.Root(), func(n *sitter.Node) {
		if !isOneOf(n.Type(), functionTypes(t.Language)) {
			return
		}
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		fname := t.Text(nameNode)
		if name != "" && fname != name {
			return
		}
		out = append(out, Match{
			Span:     spanOf(n),
			Text:     t.Text(n),
			Captures: map[string]string{"name": fname},
		})
	})
	return out
}

// returnValue extracts the returned expression text, "" for a bare return.
func returnValue(t *Tree, n *sitter.Node) string {
	return strings.TrimSpace(strings.TrimPrefix(t.Text(n), "return"))
}

func findReturns(t *Tree, literal string) []Match {
	var out []Match
	walk(t.Root(), func(n *sitter.Node) {
		if n.Type() != "return_statement" {
			return
		}
		val := returnValue(t, n)
		if literal != "" && val != literal {
			return
		}
		out = append(out, Match{
			Span:     spanOf(n),
			Text:     t.Text(n),
			Captures: map[string]string{"value": val, "literal": val},
		})
	})
	return out
}

func findReturnsInLoop(t *Tree, literal string) []Match {
	loops := loopTypes(t.Language)
	var out []Match
	var walkDepth func(n *sitter.Node, depth int)
	walkDepth = func(n *sitter.Node, depth int) {
		if isOneOf(n.Type(), loops) {
			depth++
		}
		if n.Type() == "return_statement" && depth > 0 {
			val := returnValue(t, n)
			if literal == "" || val == literal {
				out = append(out, Match{
					Span:     spanOf(n),
					Text:     t.Text(n),
					Captures: map[string]string{"literal": val},
				})
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walkDepth(n.NamedChild(i), depth)
		}
	}
	walkDepth(t.Root(), 0)
	return out
}

// findMisplacedLoopReturns locates a return of the given literal that
// sits directly in a loop body after a conditional, the shape left
// behind when an after-loop return is indented into the loop.
func findMisplacedLoopReturns(t *Tree, literal string) []Match {
	loops := loopTypes(t.Language)
	var out []Match
	walk(t.Root(), func(n *sitter.Node) {
		if !isOneOf(n.Type(), loops) {
			return
		}
		body := n.ChildByFieldName("body")
		if body == nil {
			return
		}
		sawConditional := false
		for i := 0; i < int(body.NamedChildCount()); i++ {
			stmt := body.NamedChild(i)
			if stmt.Type() == "if_statement" {
				sawConditional = true
				continue
			}
			if stmt.Type() != "return_statement" || !sawConditional {
				continue
			}
			val := returnValue(t, stmt)
			if literal != "" && val != literal {
				continue
			}
			out = append(out, Match{
				Span: spanOf(stmt),
				Text: t.Text(stmt),
				Captures: map[string]string{
					"literal":       val,
					"loop_end_line": uitoa(n.EndPoint().Row),
					"loop_indent":   lineIndentAt(t.src, n.StartByte()),
				},
			})
		}
	})
	return out
}

// findDanglingTerminalBindings locates functions whose body ends in an
// assignment or bare expression with no return after it.
func findDanglingTerminalBindings(t *Tree) []Match {
	var out []Match
	walk(t.Root(), func(n *sitter.Node) {
		if !isOneOf(n.Type(), functionTypes(t.Language)) {
			return
		}
		body := n.ChildByFieldName("body")
		if body == nil || body.NamedChildCount() == 0 {
			return
		}
		last := body.NamedChild(int(body.NamedChildCount()) - 1)

		binding := ""
		switch last.Type() {
		case "expression_statement":
			if last.NamedChildCount() == 1 && last.NamedChild(0).Type() == "assignment" {
				left := last.NamedChild(0).ChildByFieldName("left")
				if left == nil || left.Type() != "identifier" {
					return
				}
				binding = t.Text(left)
			}
		case "assignment_statement", "short_var_declaration":
			left := last.ChildByFieldName("left")
			if left == nil {
				return
			}
			binding = t.Text(left)
		default:
			return
		}

		out = append(out, Match{
			Span: spanOf(last),
			Text: t.Text(last),
			Captures: map[string]string{
				"binding": binding,
				"indent":  lineIndentAt(t.src, last.StartByte()),
			},
		})
	})
	return out
}

// findUnimportedModuleUses locates attribute access on a known
// standard-library module that no import statement brings in. Each
// missing module is reported once, at its first use.
func findUnimportedModuleUses(t *Tree, only string) []Match {
	imported := make(map[string]bool)
	walk(t.Root(), func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement", "import_from_statement", "import_declaration":
			for _, tok := range strings.FieldsFunc(t.Text(n), func(r rune) bool {
				return r == ' ' || r == ',' || r == '.' || r == '\n' || r == '"'
			}) {
				imported[tok] = true
			}
		}
	})

	seen := make(map[string]bool)
	var out []Match
	walk(t.Root(), func(n *sitter.Node) {
		if n.Type() != "attribute" && n.Type() != "selector_expression" {
			return
		}
		obj := n.ChildByFieldName("object")
		if obj == nil {
			obj = n.ChildByFieldName("operand")
		}
		if obj == nil || obj.Type() != "identifier" {
			return
		}
		mod := t.Text(obj)
		if !pythonStdlib[mod] || imported[mod] || seen[mod] {
			return
		}
		if only != "" && mod != only {
			return
		}
		seen[mod] = true
		out = append(out, Match{
			Span:     spanOf(n),
			Text:     t.Text(n),
			Captures: map[string]string{"module": mod},
		})
	})
	return out
}
