package processor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/chatexport/internal/models"
	"github.com/xhad/chatexport/pkg/codeblock"
	"github.com/xhad/chatexport/pkg/dom"
	"github.com/xhad/chatexport/pkg/sanitize"
)

type ProcessorConfig struct {
	// QueryTextSelector narrows a user element to its text body.
	QueryTextSelector string
	// ResponseTextSelector narrows a model element to its text body.
	ResponseTextSelector string
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.QueryTextSelector == "" {
		config.QueryTextSelector = ".query-text"
	}
	if config.ResponseTextSelector == "" {
		config.ResponseTextSelector = ".model-response-text"
	}

	return Processor{
		config: config,
	}
}

// Process turns ordered candidates into messages. The position of each
// message is its index among the candidates; candidates whose text is empty
// after cleaning are dropped.
func (p *Processor) Process(candidates []models.Candidate) []models.Message {
	var messages []models.Message

	for i, c := range candidates {
		content := strings.TrimSpace(sanitize.Clean(p.displayText(c)))
		if content == "" {
			continue
		}

		messages = append(messages, models.Message{
			Role:       c.Role,
			Content:    content,
			CodeBlocks: codeblock.Extract(c.Element),
			Position:   i,
		})
	}

	return messages
}

func (p *Processor) displayText(c models.Candidate) string {
	selector := p.config.ResponseTextSelector
	if c.Role == models.RoleUser {
		selector = p.config.QueryTextSelector
	}

	if inner := c.Element.Find(selector).First(); inner.Length() > 0 {
		return RenderedText(inner)
	}
	return RenderedText(c.Element)
}

// RenderedText returns the visible text of the first node in sel.
func RenderedText(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return dom.InnerText(sel.Get(0))
}
