// Package sanitize strips transient UI labels that leak into extracted text.
package sanitize

import (
	"regexp"
	"strings"
)

// Labels is the closed set of UI button captions removed from message text.
var Labels = []string{
	"Show thinking",
	"Hide thinking",
	"Copy code",
	"Copied!",
	"Share",
	"Edit",
}

var labelLine = buildPattern(Labels)

func buildPattern(labels []string) *regexp.Regexp {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(`(?m)^(?:` + strings.Join(quoted, "|") + `)[ \t\r]*(?:\n|$)`)
}

// Clean removes every line that consists solely of a known label, along with
// its line terminator. Other text is returned unchanged.
func Clean(text string) string {
	if text == "" {
		return text
	}
	return labelLine.ReplaceAllString(text, "")
}
