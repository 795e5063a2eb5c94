package application

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	)

	// htmlStripper removes raw HTML from GitHub bodies before they reach
	// Slack; Slack renders tags literally. This also eats HTML comments,
	// including the relay's origin marker.
	htmlStripper = bluemonday.StrictPolicy()

	mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

// toMrkdwn converts a GitHub markdown fragment to Slack mrkdwn. Fenced code
// blocks are normally split out before this runs, but stray ones are still
// rendered fenced.
func toMrkdwn(src string) string {
	source := []byte(src)
	doc := mdParser.Parser().Parse(text.NewReader(source))
	return renderBlockChildren(doc, source)
}

func renderBlockChildren(n ast.Node, source []byte) string {
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if rendered := renderNode(c, source); strings.TrimSpace(rendered) != "" {
			parts = append(parts, rendered)
		}
	}
	return strings.Join(parts, "\n")
}

func renderInlineChildren(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		b.WriteString(renderNode(c, source))
	}
	return b.String()
}

func renderNode(n ast.Node, source []byte) string {
	switch n := n.(type) {
	case *ast.Paragraph:
		return renderInlineChildren(n, source)
	case *ast.TextBlock:
		return renderInlineChildren(n, source)
	case *ast.Heading:
		return "*" + renderInlineChildren(n, source) + "*"
	case *ast.Blockquote:
		return quoteLines(renderBlockChildren(n, source))
	case *ast.List:
		return renderList(n, source)
	case *ast.ListItem:
		return renderBlockChildren(n, source)
	case *ast.ThematicBreak:
		return "---"
	case *ast.FencedCodeBlock:
		return "```" + linesValue(n, source) + "```"
	case *ast.CodeBlock:
		return "```" + linesValue(n, source) + "```"
	case *ast.HTMLBlock:
		return mrkdwnEscaper.Replace(stripHTML(linesValue(n, source)))
	case *ast.Text:
		s := mrkdwnEscaper.Replace(string(n.Segment.Value(source)))
		if n.SoftLineBreak() || n.HardLineBreak() {
			s += "\n"
		}
		return s
	case *ast.String:
		return mrkdwnEscaper.Replace(string(n.Value))
	case *ast.CodeSpan:
		return "`" + rawText(n, source) + "`"
	case *ast.Emphasis:
		delim := "_"
		if n.Level >= 2 {
			delim = "*"
		}
		return delim + renderInlineChildren(n, source) + delim
	case *extast.Strikethrough:
		return "~" + renderInlineChildren(n, source) + "~"
	case *ast.Link:
		return "<" + string(n.Destination) + "|" + renderInlineChildren(n, source) + ">"
	case *ast.AutoLink:
		return "<" + string(n.URL(source)) + ">"
	case *ast.Image:
		return "<" + string(n.Destination) + "|" + renderInlineChildren(n, source) + ">"
	case *ast.RawHTML:
		var b strings.Builder
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(source))
		}
		return mrkdwnEscaper.Replace(stripHTML(b.String()))
	default:
		if n.Type() == ast.TypeInline {
			return renderInlineChildren(n, source)
		}
		return renderBlockChildren(n, source)
	}
}

func renderList(n *ast.List, source []byte) string {
	var items []string
	num := n.Start
	if num == 0 {
		num = 1
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		marker := "• "
		if n.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		items = append(items, marker+renderNode(c, source))
	}

	return strings.Join(items, "\n")
}

func quoteLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}

// rawText concatenates the literal text of a node's children without
// mrkdwn escaping. Used for code spans, whose content must pass through
// verbatim.
func rawText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(source))
		case *ast.String:
			b.Write(c.Value)
		}
	}
	return b.String()
}

func linesValue(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

// stripHTML removes tags and comments from raw HTML, keeping any inner text.
func stripHTML(s string) string {
	return html.UnescapeString(htmlStripper.Sanitize(s))
}
