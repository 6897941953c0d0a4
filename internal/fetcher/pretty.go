package fetcher

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

const indentUnit = " "

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Elements whose content must survive byte for byte.
var verbatimElements = map[string]bool{
	"pre": true, "textarea": true, "script": true, "style": true,
}

// Phrasing elements. An element holding only these and text is written on
// one line so adjacent runs keep their spacing.
var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "br": true,
	"cite": true, "code": true, "data": true, "dfn": true, "em": true, "i": true,
	"img": true, "kbd": true, "label": true, "mark": true, "q": true, "s": true,
	"samp": true, "small": true, "span": true, "strong": true, "sub": true,
	"sup": true, "time": true, "u": true, "var": true, "wbr": true,
}

var whitespace = regexp.MustCompile(`\s+`)

// Prettify serializes a parsed document with one tag or text run per line,
// indented by depth. Whitespace-only text nodes between block elements are
// dropped.
func Prettify(root *html.Node) string {
	var b strings.Builder
	prettyNode(&b, root, 0)
	return b.String()
}

func prettyNode(b *strings.Builder, n *html.Node, depth int) {
	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			prettyNode(b, c, depth)
		}

	case html.DoctypeNode, html.CommentNode:
		writeIndent(b, depth)
		_ = html.Render(b, n)
		b.WriteByte('\n')

	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text == "" {
			return
		}
		writeIndent(b, depth)
		b.WriteString(html.EscapeString(text))
		b.WriteByte('\n')

	case html.ElementNode:
		writeIndent(b, depth)
		if verbatimElements[n.Data] {
			_ = html.Render(b, n)
			b.WriteByte('\n')
			return
		}

		writeStartTag(b, n)
		if voidElements[n.Data] {
			b.WriteByte('\n')
			return
		}
		if hasInlineContent(n) {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				inlineNode(b, c)
			}
			b.WriteString("</" + n.Data + ">")
			b.WriteByte('\n')
			return
		}

		b.WriteByte('\n')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			prettyNode(b, c, depth+1)
		}
		writeIndent(b, depth)
		b.WriteString("</" + n.Data + ">")
		b.WriteByte('\n')
	}
}

func hasInlineContent(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode, html.CommentNode:
		case html.ElementNode:
			if !inlineElements[c.Data] || !hasInlineContent(c) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// inlineNode writes n without line breaks, collapsing whitespace runs.
func inlineNode(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(html.EscapeString(whitespace.ReplaceAllString(n.Data, " ")))
	case html.CommentNode:
		_ = html.Render(b, n)
	case html.ElementNode:
		writeStartTag(b, n)
		if voidElements[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			inlineNode(b, c)
		}
		b.WriteString("</" + n.Data + ">")
	}
}

func writeStartTag(b *strings.Builder, n *html.Node) {
	b.WriteByte('<')
	b.WriteString(n.Data)
	for _, a := range n.Attr {
		b.WriteByte(' ')
		if a.Namespace != "" {
			b.WriteString(a.Namespace + ":")
		}
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Val))
		b.WriteByte('"')
	}
	if voidElements[n.Data] {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
}

func writeIndent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat(indentUnit, depth))
}
