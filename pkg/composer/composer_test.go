package composer

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/chatexport/internal/models"
)

var fixedNow = time.Date(2026, 3, 7, 15, 4, 5, 0, time.Local)

func newComposer(t *testing.T) *Composer {
	t.Helper()
	c, err := NewWithConfig(ComposerConfig{Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return c
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestFormatContent(t *testing.T) {
	tests := []struct {
		name     string
		message  models.Message
		expected string
	}{
		{
			name:     "no code",
			message:  models.Message{Content: "plain text"},
			expected: "plain text",
		},
		{
			name: "inline block fenced",
			message: models.Message{
				Content:    "Here:\nprint(1)\nDone",
				CodeBlocks: []models.CodeBlock{{Language: "python", Code: "print(1)"}},
			},
			expected: "Here:\n\n```python\nprint(1)\n```\n\nDone",
		},
		{
			name: "language label line removed",
			message: models.Message{
				Content:    "Try this:\nPython\nprint(1)\nok",
				CodeBlocks: []models.CodeBlock{{Language: "python", Code: "print(1)"}},
			},
			expected: "Try this:\n\n```python\nprint(1)\n```\n\nok",
		},
		{
			name: "only first occurrence replaced",
			message: models.Message{
				Content:    "x = 1\nthen again x = 1",
				CodeBlocks: []models.CodeBlock{{Language: "", Code: "x = 1"}},
			},
			expected: "```\nx = 1\n```\n\nthen again x = 1",
		},
		{
			name: "missing code stays inline",
			message: models.Message{
				Content:    "Run  ls   -la please",
				CodeBlocks: []models.CodeBlock{{Language: "sh", Code: "ls -la"}},
			},
			expected: "Run  ls   -la please",
		},
		{
			name: "multiple blocks in order",
			message: models.Message{
				Content: "A\nfirst()\nB\nsecond()\nC",
				CodeBlocks: []models.CodeBlock{
					{Language: "js", Code: "first()"},
					{Language: "go", Code: "second()"},
				},
			},
			expected: "A\n\n```js\nfirst()\n```\n\nB\n\n```go\nsecond()\n```\n\nC",
		},
		{
			name: "later block does not split an earlier one",
			message: models.Message{
				Content: "First:\nprint(1)\nThen the answer is\n0\nok",
				CodeBlocks: []models.CodeBlock{
					{Language: "python", Code: "print(1)"},
					{Language: "", Code: "0"},
				},
			},
			expected: "First:\n\n```python\nprint(1)\n```\n\nThen the answer is\n\n```\n0\n```\n\nok",
		},
		{
			name: "later block found inside earlier code is not claimed",
			message: models.Message{
				Content: "a\nfoo(bar)\nb",
				CodeBlocks: []models.CodeBlock{
					{Language: "js", Code: "foo(bar)"},
					{Language: "", Code: "bar"},
				},
			},
			expected: "a\n\n```js\nfoo(bar)\n```\n\nb",
		},
		{
			name: "empty code ignored",
			message: models.Message{
				Content:    "nothing to fence",
				CodeBlocks: []models.CodeBlock{{Language: "", Code: ""}},
			},
			expected: "nothing to fence",
		},
		{
			name: "dollar signs kept literally",
			message: models.Message{
				Content:    "vars:\necho $HOME $&\nend",
				CodeBlocks: []models.CodeBlock{{Language: "bash", Code: "echo $HOME $&"}},
			},
			expected: "vars:\n\n```bash\necho $HOME $&\n```\n\nend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatContent(tt.message))
		})
	}
}

func TestTitle(t *testing.T) {
	c := newComposer(t)
	long := strings.Repeat("x", 75)

	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{"first line", `<div class="user-query-container"><div>Show thinking</div><div>How do I sort?</div><div>second line</div></div>`, "How do I sort?"},
		{"bubble class", `<span class="user-query-bubble-with-background">Hi</span>`, "Hi"},
		{"truncated", `<div class="user-query-container">` + long + `</div>`, strings.Repeat("x", 60) + "..."},
		{"exactly sixty", `<div class="user-query-container">` + strings.Repeat("y", 60) + `</div>`, strings.Repeat("y", 60)},
		{"empty falls back", `<div class="user-query-container"><div>Edit</div></div>`, "Gemini Conversation"},
		{"missing falls back", `<div class="user-query">not a title source</div>`, "Gemini Conversation"},
		{"first of many", `<div class="user-query-container">one</div><div class="user-query-container">two</div>`, "one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Title(parse(t, "<html><body>"+tt.html+"</body></html>")))
		})
	}
}

func TestTitleTruncatesRunes(t *testing.T) {
	c := newComposer(t)
	doc := parse(t, `<html><body><div class="user-query-container">`+strings.Repeat("é", 61)+`</div></body></html>`)
	assert.Equal(t, strings.Repeat("é", 60)+"...", c.Title(doc))
}

func TestCompose(t *testing.T) {
	c := newComposer(t)
	doc := parse(t, `<html><body><div class="user-query-container">Hello</div></body></html>`)

	out, err := c.Compose(doc, []models.Message{
		{Role: models.RoleUser, Content: "Hello"},
		{Role: models.RoleAssistant, Content: "Here:\nprint(1)\nDone", CodeBlocks: []models.CodeBlock{{Language: "python", Code: "print(1)"}}},
	})
	require.NoError(t, err)

	expected := "# Hello\n\n" +
		"*Exported: 3/7/2026, 3:04:05 PM*\n\n" +
		"---\n\n" +
		"## User\n\nHello\n\n" +
		"## Gemini\n\nHere:\n\n```python\nprint(1)\n```\n\nDone\n\n"
	assert.Equal(t, expected, out.Body)
	assert.Equal(t, "Hello", out.Title)
	assert.Equal(t, fixedNow, out.GeneratedAt)
}

func TestComposeLabels(t *testing.T) {
	c, err := NewWithConfig(ComposerConfig{UserLabel: "Me", AssistantLabel: "Bot", DefaultTitle: "Chat"})
	require.NoError(t, err)

	out, err := c.Compose(parse(t, "<html><body></body></html>"), []models.Message{
		{Role: models.RoleUser, Content: "q"},
		{Role: models.RoleAssistant, Content: "a"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Body, "# Chat\n\n"))
	assert.Less(t, strings.Index(out.Body, "## Me"), strings.Index(out.Body, "## Bot"))
}

func TestNewWithConfig_InvalidTitleSelector(t *testing.T) {
	_, err := NewWithConfig(ComposerConfig{TitleSelector: "[["})
	assert.Error(t, err)
}
