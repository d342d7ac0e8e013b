package richtext

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Converter turns the rich (markdown) document representation into the plain
// text the buffer and selection offsets are defined on.
type Converter struct {
	md goldmark.Markdown
}

func NewConverter() *Converter {
	return &Converter{md: goldmark.New()}
}

// ToPlain extracts plain text from markdown content, preserving inline text
// order so marker offsets survive the conversion.
func (c *Converter) ToPlain(markdown string) (string, error) {
	source := []byte(markdown)
	root := c.md.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(source))
				}
			}
		default:
			if !entering && n.Type() == ast.TypeBlock && b.Len() > 0 {
				b.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to convert rich content: %w", err)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}
