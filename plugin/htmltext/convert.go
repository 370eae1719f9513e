// Package htmltext turns a fetched web page into a compact Markdown fragment
// focused on opening hours. Conversion strips layout chrome and scripts;
// filtering then keeps only the heading sections likely to talk about hours,
// so the text handed to the LLM stays small and on-topic.
package htmltext

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// skippedElements never contribute text: scripts, styles and layout chrome.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"nav":      true,
	"footer":   true,
	"header":   true,
	"aside":    true,
	"form":     true,
	"button":   true,
}

// Convert renders an HTML document as Markdown. Headings, lists, links,
// emphasis and table cells survive; everything else flattens to paragraphs.
func Convert(page []byte) (string, error) {
	doc, err := html.Parse(strings.NewReader(string(page)))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse html")
	}

	var b strings.Builder
	renderNode(&b, doc)
	return tidy(b.String()), nil
}

func renderNode(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapseSpaces(n.Data))
		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
	case html.CommentNode:
		return
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		b.WriteString("\n\n")
		b.WriteString(strings.Repeat("#", int(n.Data[1]-'0')))
		b.WriteByte(' ')
		renderChildren(b, n)
		b.WriteString("\n\n")
	case "p", "div", "section", "article", "table", "ul", "ol":
		b.WriteString("\n")
		renderChildren(b, n)
		b.WriteString("\n")
	case "li":
		b.WriteString("\n- ")
		renderChildren(b, n)
	case "tr":
		b.WriteString("\n")
		renderChildren(b, n)
	case "td", "th":
		renderChildren(b, n)
		b.WriteString(" | ")
	case "br":
		b.WriteString("\n")
	case "strong", "b":
		b.WriteString("**")
		renderChildren(b, n)
		b.WriteString("**")
	case "em", "i":
		b.WriteString("*")
		renderChildren(b, n)
		b.WriteString("*")
	case "a":
		var text strings.Builder
		renderChildren(&text, n)
		label := strings.TrimSpace(text.String())
		href := attr(n, "href")
		if label == "" {
			return
		}
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			b.WriteString(label)
			return
		}
		b.WriteString("[" + label + "](" + href + ")")
	default:
		renderChildren(b, n)
	}
}

func renderChildren(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(b, c)
	}
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// tidy collapses runs of blank lines and trims trailing cell separators.
func tidy(s string) string {
	var out []string
	blank := true
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(strings.TrimSpace(line), "| ")
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
