package composer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/xhad/chatexport/internal/models"
	"github.com/xhad/chatexport/pkg/dom"
	"github.com/xhad/chatexport/pkg/sanitize"
)

// TimestampLayout matches the en-US locale rendering used in the header.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

var blankRuns = regexp.MustCompile(`\n{3,}`)

// ComposerConfig configures a Composer. Empty fields take defaults;
// TitleMaxLen of 0 means 60.
type ComposerConfig struct {
	// TitleSelector locates the first user element the title is read from.
	TitleSelector  string
	DefaultTitle   string
	TitleMaxLen    int
	UserLabel      string
	AssistantLabel string
	Now            func() time.Time
}

type Composer struct {
	config ComposerConfig
	title  cascadia.Selector
}

func NewWithConfig(config ComposerConfig) (*Composer, error) {
	if config.TitleSelector == "" {
		config.TitleSelector = `.user-query-container, [class*="user-query-bubble"]`
	}
	if config.DefaultTitle == "" {
		config.DefaultTitle = "Gemini Conversation"
	}
	if config.TitleMaxLen == 0 {
		config.TitleMaxLen = 60
	}
	if config.UserLabel == "" {
		config.UserLabel = "User"
	}
	if config.AssistantLabel == "" {
		config.AssistantLabel = "Gemini"
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	sel, err := cascadia.Compile(config.TitleSelector)
	if err != nil {
		return nil, fmt.Errorf("invalid title selector %q: %w", config.TitleSelector, err)
	}

	return &Composer{config: config, title: sel}, nil
}

// Compose renders messages into a markdown document. The title is read from
// doc independently of messages. A panic while rendering is returned as an
// error.
func (c *Composer) Compose(doc *goquery.Document, messages []models.Message) (out models.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compose document: %v", r)
		}
	}()

	out.Title = c.Title(doc)
	out.GeneratedAt = c.config.Now()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", out.Title)
	fmt.Fprintf(&b, "*Exported: %s*\n\n", out.GeneratedAt.Format(TimestampLayout))
	b.WriteString("---\n\n")

	for _, m := range messages {
		fmt.Fprintf(&b, "## %s\n\n", c.label(m.Role))
		b.WriteString(FormatContent(m))
		b.WriteString("\n\n")
	}

	out.Body = b.String()
	return out, nil
}

// Title derives the document title from the first user element in doc: its
// first line, cut to TitleMaxLen characters with a trailing ellipsis.
func (c *Composer) Title(doc *goquery.Document) string {
	if doc == nil || doc.Selection == nil {
		return c.config.DefaultTitle
	}

	first := doc.FindMatcher(c.title).First()
	if first.Length() == 0 {
		return c.config.DefaultTitle
	}

	text := strings.TrimSpace(sanitize.Clean(dom.InnerText(first.Get(0))))
	line, _, _ := strings.Cut(text, "\n")

	runes := []rune(line)
	if len(runes) > c.config.TitleMaxLen {
		return string(runes[:c.config.TitleMaxLen]) + "..."
	}
	if line == "" {
		return c.config.DefaultTitle
	}
	return line
}

func (c *Composer) label(r models.Role) string {
	if r == models.RoleUser {
		return c.config.UserLabel
	}
	return c.config.AssistantLabel
}

// FormatContent re-inlines code blocks as fenced blocks at the position their
// text occupies in the message content. Code that does not appear verbatim is
// left as plain text. Each block is searched for only in text not already
// claimed by an earlier block.
func FormatContent(m models.Message) string {
	parts := []part{{text: m.Content, block: -1}}

	for i, block := range m.CodeBlocks {
		if code := strings.TrimSpace(block.Code); code != "" {
			parts = claim(parts, code, i)
		}
		if block.Language != "" {
			re := languageLine(block.Language)
			for j := range parts {
				if parts[j].block < 0 {
					parts[j].text = re.ReplaceAllString(parts[j].text, "")
				}
			}
		}
	}

	var b strings.Builder
	for _, p := range parts {
		if p.block < 0 {
			b.WriteString(p.text)
			continue
		}
		b.WriteString(fence(m.CodeBlocks[p.block]))
	}

	content := blankRuns.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(content)
}

// part is either plain text or, when block >= 0, the slot of a code block.
type part struct {
	text  string
	block int
}

// claim splits the first plain part containing code around a slot for block i.
func claim(parts []part, code string, i int) []part {
	for j, p := range parts {
		if p.block >= 0 {
			continue
		}
		at := strings.Index(p.text, code)
		if at < 0 {
			continue
		}
		out := make([]part, 0, len(parts)+2)
		out = append(out, parts[:j]...)
		out = append(out,
			part{text: p.text[:at], block: -1},
			part{block: i},
			part{text: p.text[at+len(code):], block: -1},
		)
		return append(out, parts[j+1:]...)
	}
	return parts
}

func fence(block models.CodeBlock) string {
	return "\n\n```" + block.Language + "\n" + block.Code + "\n```\n\n"
}

// languageLine matches a line holding only the language name.
func languageLine(lang string) *regexp.Regexp {
	return regexp.MustCompile(`(?mi)^[ \t]*` + regexp.QuoteMeta(lang) + `[ \t]*$`)
}
