package processor_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/chatexport/internal/models"
	"github.com/xhad/chatexport/pkg/processor"
)

func candidates(t *testing.T, html string) []models.Candidate {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	var out []models.Candidate
	doc.Find(".u, .m").Each(func(_ int, s *goquery.Selection) {
		role := models.RoleAssistant
		if s.HasClass("u") {
			role = models.RoleUser
		}
		out = append(out, models.Candidate{Role: role, Element: s})
	})
	return out
}

func TestProcessor_Process(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	cs := candidates(t, `<body>
		<div class="u"><div>Show thinking</div><div>Hello</div></div>
		<div class="m"><p>Here:</p><pre><code class="language-python">print(1)</code></pre><p>Done</p></div>
	</body>`)

	messages := p.Process(cs)
	require.Len(t, messages, 2)

	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, "Hello", messages[0].Content)
	assert.Empty(t, messages[0].CodeBlocks)
	assert.Equal(t, 0, messages[0].Position)

	assert.Equal(t, models.RoleAssistant, messages[1].Role)
	assert.Equal(t, "Here:\nprint(1)\nDone", messages[1].Content)
	assert.Equal(t, []models.CodeBlock{{Language: "python", Code: "print(1)"}}, messages[1].CodeBlocks)
	assert.Equal(t, 1, messages[1].Position)
}

func TestProcessor_PrefersInnerText(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	cs := candidates(t, `<body>
		<div class="u"><span>You said</span><div class="query-text">What is Go?</div></div>
		<div class="m"><div class="toolbar">Share</div><div class="model-response-text">A language.</div></div>
	</body>`)

	messages := p.Process(cs)
	require.Len(t, messages, 2)
	assert.Equal(t, "What is Go?", messages[0].Content)
	assert.Equal(t, "A language.", messages[1].Content)
}

func TestProcessor_DropsEmpty(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	cs := candidates(t, `<body>
		<div class="u"><div>Edit</div></div>
		<div class="m">   </div>
		<div class="u">kept</div>
	</body>`)

	messages := p.Process(cs)
	require.Len(t, messages, 1)
	assert.Equal(t, "kept", messages[0].Content)
	assert.Equal(t, 2, messages[0].Position)
}
