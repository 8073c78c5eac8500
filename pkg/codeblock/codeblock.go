package codeblock

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/chatexport/internal/models"
	"github.com/xhad/chatexport/pkg/dom"
)

var (
	codeLangPattern = regexp.MustCompile(`(?:language-|lang-|hljs-)(\w+)`)
	preLangPattern  = regexp.MustCompile(`(?:language-|lang-)(\w+)`)
)

// Extract returns one CodeBlock per <pre> in the subtree that holds a <code>
// descendant, in document order. A <pre> without code is skipped.
func Extract(sel *goquery.Selection) []models.CodeBlock {
	var blocks []models.CodeBlock

	sel.Find("pre").Each(func(_ int, pre *goquery.Selection) {
		code := pre.Find("code").First()
		if code.Length() == 0 {
			return
		}
		blocks = append(blocks, models.CodeBlock{
			Language: DetectLanguage(code, pre),
			Code:     strings.TrimSpace(code.Text()),
		})
	})

	return blocks
}

// DetectLanguage reads the language token from the code element's class, then
// from the enclosing pre element's class. It returns "" when neither names one.
func DetectLanguage(code, pre *goquery.Selection) string {
	if m := codeLangPattern.FindStringSubmatch(classOf(code)); m != nil {
		return m[1]
	}
	if m := preLangPattern.FindStringSubmatch(classOf(pre)); m != nil {
		return m[1]
	}
	return ""
}

func classOf(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return dom.ClassAttr(sel.Get(0))
}
