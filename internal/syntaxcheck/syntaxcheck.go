// Package syntaxcheck rejects generated source files that do not parse.
package syntaxcheck

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrSyntax marks generated content that failed to parse.
var ErrSyntax = errors.New("syntax error")

// Location is where the first broken node starts, 1-based.
type Location struct {
	Line   int
	Column int
}

// SyntaxError carries the position of the first error node.
type SyntaxError struct {
	Path string
	At   Location
	Node string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error near %s", e.Path, e.At.Line, e.At.Column, e.Node)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

func languageFor(p string) *sitter.Language {
	switch strings.ToLower(path.Ext(p)) {
	case ".py":
		return python.GetLanguage()
	case ".js", ".mjs", ".cjs":
		return javascript.GetLanguage()
	default:
		return nil
	}
}

// Supported reports whether files with this path are checked.
func Supported(p string) bool { return languageFor(p) != nil }

// Check parses content with the grammar matching p's extension. Unsupported
// extensions and empty content always pass.
func Check(ctx context.Context, p string, content []byte) error {
	lang := languageFor(p)
	if lang == nil || len(strings.TrimSpace(string(content))) == 0 {
		return nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fmt.Errorf("tree-sitter failed to parse %s: %w", p, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}
	bad := firstError(root)
	if bad == nil {
		bad = root
	}
	pt := bad.StartPoint()
	return &SyntaxError{
		Path: p,
		At:   Location{Line: int(pt.Row) + 1, Column: int(pt.Column) + 1},
		Node: bad.Type(),
	}
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstError(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
