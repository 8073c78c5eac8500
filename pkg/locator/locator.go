package locator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/rs/zerolog"
	"github.com/xhad/chatexport/internal/models"
	"github.com/xhad/chatexport/pkg/dedupe"
	"github.com/xhad/chatexport/pkg/dom"
	"github.com/xhad/chatexport/pkg/processor"
)

// ErrTraversal wraps any failure raised while walking the snapshot.
var ErrTraversal = errors.New("dom traversal failed")

// TierConfig describes one matching strategy of the cascade.
type TierConfig struct {
	Name  string
	User  string
	Model string
	// WholeDocument searches from the document root instead of the container.
	WholeDocument bool
	// Dedupe drops repeated messages before the tier returns.
	Dedupe bool
}

type LocatorConfig struct {
	// Containers are tried in order; the first match narrows the search scope.
	Containers []string
	// Tiers are tried in order; the first tier that matches any element wins.
	Tiers     []TierConfig
	Processor processor.ProcessorConfig
	Logger    *zerolog.Logger
}

// Strategy finds role-tagged candidates within scope.
type Strategy func(doc *goquery.Document, scope *goquery.Selection) []models.Candidate

type tier struct {
	name   string
	find   Strategy
	dedupe bool
}

type Locator struct {
	containers []cascadia.Selector
	tiers      []tier
	processor  processor.Processor
	logger     zerolog.Logger
}

func DefaultContainers() []string {
	return []string{
		`.conversation-container, [class*="chat-history"]`,
		`[class*="content-container"], main`,
	}
}

func DefaultTiers() []TierConfig {
	return []TierConfig{
		{
			Name:  "normal",
			User:  `[class*="user-query"]`,
			Model: `[class*="model-response"]`,
		},
		{
			Name:          "aggressive",
			User:          `.user-query-container, [class*="user-query-bubble"]`,
			Model:         `.model-response-text, .response-container, [class*="model-response"]`,
			WholeDocument: true,
			Dedupe:        true,
		},
	}
}

func NewWithConfig(config LocatorConfig) (*Locator, error) {
	if len(config.Containers) == 0 {
		config.Containers = DefaultContainers()
	}
	if len(config.Tiers) == 0 {
		config.Tiers = DefaultTiers()
	}

	l := &Locator{
		processor: processor.NewWithConfig(config.Processor),
		logger:    zerolog.Nop(),
	}
	if config.Logger != nil {
		l.logger = *config.Logger
	}

	for _, c := range config.Containers {
		sel, err := cascadia.Compile(c)
		if err != nil {
			return nil, fmt.Errorf("invalid container selector %q: %w", c, err)
		}
		l.containers = append(l.containers, sel)
	}

	for _, tc := range config.Tiers {
		user, err := cascadia.Compile(tc.User)
		if err != nil {
			return nil, fmt.Errorf("tier %s: invalid user selector %q: %w", tc.Name, tc.User, err)
		}
		model, err := cascadia.Compile(tc.Model)
		if err != nil {
			return nil, fmt.Errorf("tier %s: invalid model selector %q: %w", tc.Name, tc.Model, err)
		}
		l.Append(tc.Name, SelectorStrategy(user, model, tc.WholeDocument), tc.Dedupe)
	}

	return l, nil
}

// Append adds a strategy after the existing tiers.
func (l *Locator) Append(name string, find Strategy, dedupeResult bool) {
	l.tiers = append(l.tiers, tier{name: name, find: find, dedupe: dedupeResult})
}

// SelectorStrategy matches user and model elements independently and merges
// them in document order.
func SelectorStrategy(user, model cascadia.Selector, wholeDocument bool) Strategy {
	return func(doc *goquery.Document, scope *goquery.Selection) []models.Candidate {
		if wholeDocument {
			scope = doc.Selection
		}
		var candidates []models.Candidate
		scope.FindMatcher(user).Each(func(_ int, s *goquery.Selection) {
			candidates = append(candidates, models.Candidate{Role: models.RoleUser, Element: s})
		})
		scope.FindMatcher(model).Each(func(_ int, s *goquery.Selection) {
			candidates = append(candidates, models.Candidate{Role: models.RoleAssistant, Element: s})
		})
		SortByDocumentOrder(candidates)
		return candidates
	}
}

// SortByDocumentOrder stably orders candidates by their position in the tree.
func SortByDocumentOrder(candidates []models.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return dom.Compare(candidates[i].Element.Get(0), candidates[j].Element.Get(0)) < 0
	})
}

// Locate runs the cascade against doc. A panic during traversal is recovered
// and reported as ErrTraversal with no messages.
func (l *Locator) Locate(doc *goquery.Document) (messages []models.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn().Interface("panic", r).Msg("error extracting messages")
			messages = nil
			err = fmt.Errorf("%w: %v", ErrTraversal, r)
		}
	}()

	if doc == nil || doc.Selection == nil {
		return nil, fmt.Errorf("%w: no document", ErrTraversal)
	}

	scope := l.container(doc)

	for _, t := range l.tiers {
		candidates := t.find(doc, scope)
		l.logger.Debug().Str("tier", t.name).Int("elements", len(candidates)).Msg("tier searched")
		if len(candidates) == 0 {
			continue
		}

		messages = l.processor.Process(candidates)
		extracted := len(messages)
		if t.dedupe {
			messages = dedupe.Dedupe(messages)
		}
		l.logger.Info().
			Str("tier", t.name).
			Int("extracted", extracted).
			Int("kept", len(messages)).
			Msg("extracted messages")
		return messages, nil
	}

	l.logger.Info().Msg("no message elements found")
	return nil, nil
}

// container returns the first matching container, else body, else the root.
func (l *Locator) container(doc *goquery.Document) *goquery.Selection {
	for i, sel := range l.containers {
		if found := doc.FindMatcher(sel).First(); found.Length() > 0 {
			l.logger.Debug().Int("strategy", i).Str("class", found.AttrOr("class", goquery.NodeName(found))).Msg("container found")
			return found
		}
	}

	l.logger.Debug().Msg("conversation container not found, searching entire document")
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}
