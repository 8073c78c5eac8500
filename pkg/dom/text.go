package dom

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "details": true, "dialog": true, "div": true, "dl": true,
	"dt": true, "fieldset": true, "figcaption": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "summary": true, "table": true,
	"tr": true, "ul": true, "body": true, "html": true,
}

var skipTags = map[string]bool{
	"head": true, "script": true, "style": true, "template": true,
	"noscript": true, "iframe": true, "svg": true,
}

// InnerText approximates the rendered text of n: whitespace collapsed outside
// preformatted content, a line break around block elements and for <br>, and
// hidden subtrees skipped.
func InnerText(n *html.Node) string {
	if n == nil {
		return ""
	}
	w := &textWriter{}
	w.walk(n, false)
	return w.b.String()
}

type textWriter struct {
	b            strings.Builder
	pendingBreak bool
	space        bool
}

func (w *textWriter) walk(n *html.Node, pre bool) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data, pre)
		return
	case html.ElementNode:
		if skipTags[n.Data] || hidden(n) {
			return
		}
		if n.Data == "br" {
			w.flush()
			w.b.WriteByte('\n')
			w.space = false
			return
		}
	case html.DocumentNode:
	default:
		return
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		w.lineBreak()
	}
	if n.Type == html.ElementNode && n.Data == "pre" {
		pre = true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, pre)
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") && c.NextSibling != nil {
			w.space = true
		}
	}
	if block {
		w.lineBreak()
	}
}

func (w *textWriter) text(s string, pre bool) {
	if pre {
		if s == "" {
			return
		}
		w.flush()
		w.space = false
		w.b.WriteString(s)
		return
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			w.space = true
			continue
		}
		w.flush()
		if w.space && !w.atLineStart() {
			w.b.WriteByte(' ')
		}
		w.space = false
		w.b.WriteRune(r)
	}
}

// lineBreak requests a newline before the next emitted text, collapsing
// adjacent requests into one.
func (w *textWriter) lineBreak() {
	if !w.atLineStart() {
		w.pendingBreak = true
	}
	w.space = false
}

func (w *textWriter) flush() {
	if w.pendingBreak {
		w.b.WriteByte('\n')
		w.pendingBreak = false
	}
}

func (w *textWriter) atLineStart() bool {
	s := w.b.String()
	return s == "" || s[len(s)-1] == '\n'
}

func hidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "style":
			style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(style, "display:none") {
				return true
			}
		}
	}
	return false
}

// ClassAttr returns the raw class attribute of n.
func ClassAttr(n *html.Node) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == "class" {
			return a.Val
		}
	}
	return ""
}
