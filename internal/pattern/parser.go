package pattern

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/python"

	"crucible/internal/candidate"
	"crucible/internal/logging"
)

// Matcher owns tree-sitter parsers for the supported languages. It is
// safe to share one Matcher across a session; parsers are not used
// concurrently within a single candidate pipeline.
type Matcher struct {
	pyParser *sitter.Parser
	goParser *sitter.Parser
}

// NewMatcher creates a matcher with parsers for Python and Go.
func NewMatcher() *Matcher {
	return &Matcher{
		pyParser: sitter.NewParser(),
		goParser: sitter.NewParser(),
	}
}

// Close releases parser resources.
func (m *Matcher) Close() {
	m.pyParser.Close()
	m.goParser.Close()
}

// Tree is a parsed candidate: the syntax tree plus the source it was
// parsed from. Callers must Close it when done.
type Tree struct {
	Language candidate.Language
	src      []byte
	tsTree   *sitter.Tree
}

// Parse parses source in the given language.
func (m *Matcher) Parse(ctx context.Context, lang candidate.Language, source string) (*Tree, error) {
	var parser *sitter.Parser
	switch lang {
	case candidate.LanguagePython:
		m.pyParser.SetLanguage(python.GetLanguage())
		parser = m.pyParser
	case candidate.LanguageGo:
		m.goParser.SetLanguage(golang.GetLanguage())
		parser = m.goParser
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}

	tsTree, err := parser.ParseCtx(ctx, nil, []byte(source))
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}
	logging.ValidateDebug("parsed %d bytes of %s", len(source), lang)
	return &Tree{Language: lang, src: []byte(source), tsTree: tsTree}, nil
}

// Close releases the underlying tree.
func (t *Tree) Close() {
	if t.tsTree != nil {
		t.tsTree.Close()
	}
}

// HasSyntaxError reports whether the tree contains any parse error.
func (t *Tree) HasSyntaxError() bool {
	return t.tsTree.RootNode().HasError()
}

// Root returns the root syntax node.
func (t *Tree) Root() *sitter.Node {
	return t.tsTree.RootNode()
}

// Text returns the source text of a node.
func (t *Tree) Text(n *sitter.Node) string {
	return n.Content(t.src)
}

// Source returns the full source the tree was parsed from.
func (t *Tree) Source() string {
	return string(t.src)
}

func spanOf(n *sitter.Node) candidate.Span {
	return candidate.Span{
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		StartLine: n.StartPoint().Row,
		EndLine:   n.EndPoint().Row,
	}
}
