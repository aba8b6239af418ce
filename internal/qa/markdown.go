package qa

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// flattenMarkdown renders model output to plain text. Generation models wrap
// answers in markdown (emphasis, lists, headings) regardless of instructions;
// sentence segmentation and citation extraction both want the bare prose.
func flattenMarkdown(source string) string {
	md := goldmark.New()
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))

	var builder strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if isBlock(n) && builder.Len() > 0 {
				builder.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			builder.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				builder.WriteString(" ")
			}
		case *ast.AutoLink:
			builder.Write(node.URL(src))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				builder.Write(line.Value(src))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(builder.String())
}

func isBlock(n ast.Node) bool {
	switch n.(type) {
	case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote, *ast.FencedCodeBlock, *ast.CodeBlock:
		return true
	}
	return false
}
