package exporter

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xhad/chatexport/internal/models"
	"github.com/xhad/chatexport/internal/types"
	"github.com/xhad/chatexport/pkg/composer"
	"github.com/xhad/chatexport/pkg/dedupe"
	"github.com/xhad/chatexport/pkg/locator"
)

var ErrNoMessages = errors.New("No messages found. Make sure you are on a Gemini chat page.")

const (
	WarningText = "For long conversations, scroll to the top first to load all messages."
	WarningNote = "\n\n**Note:** For long conversations, make sure you've scrolled through the entire chat history before exporting to ensure all messages are loaded in the page."
)

// ExporterConfig configures an Exporter. Zero values select the defaults, so
// a threshold of 0 cannot be expressed; config validation requires it to be
// at least 1.
type ExporterConfig struct {
	Locator  locator.LocatorConfig
	Composer composer.ComposerConfig
	// WarningThreshold is the message count above which the result carries a
	// scroll-back warning. Defaults to 10.
	WarningThreshold int
	Logger           *zerolog.Logger
}

type Exporter struct {
	config   ExporterConfig
	locator  *locator.Locator
	composer *composer.Composer
	logger   zerolog.Logger
}

func NewWithConfig(config ExporterConfig) (*Exporter, error) {
	if config.WarningThreshold == 0 {
		config.WarningThreshold = 10
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}
	if config.Locator.Logger == nil {
		config.Locator.Logger = &logger
	}

	loc, err := locator.NewWithConfig(config.Locator)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize locator: %w", err)
	}
	comp, err := composer.NewWithConfig(config.Composer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize composer: %w", err)
	}

	return &Exporter{
		config:   config,
		locator:  loc,
		composer: comp,
		logger:   logger,
	}, nil
}

// Export runs the whole pipeline against snap. It never panics; every failure
// is reported in the returned result.
func (e *Exporter) Export(snap *types.Snapshot) (result models.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Msg("export failed")
			result = Failure(fmt.Errorf("%v", r))
		}
	}()

	if snap == nil || snap.Doc == nil {
		return Failure(ErrNoMessages)
	}

	messages, err := e.Messages(snap)
	if err != nil {
		return Failure(err)
	}

	doc, err := e.composer.Compose(snap.Doc, messages)
	if err != nil {
		e.logger.Error().Err(err).Msg("composition failed")
		return Failure(err)
	}

	result = models.Result{
		Success:      true,
		Markdown:     doc.Body,
		MessageCount: len(messages),
	}
	if len(messages) > e.config.WarningThreshold {
		warning := WarningText
		result.Warning = &warning
		result.Markdown += WarningNote
	}
	return result
}

// Messages locates and deduplicates the messages of snap. A traversal
// failure is reported as ErrNoMessages.
func (e *Exporter) Messages(snap *types.Snapshot) ([]models.Message, error) {
	messages, err := e.locator.Locate(snap.Doc)
	if err != nil {
		e.logger.Warn().Err(err).Str("url", snap.URL).Msg("locating messages failed")
		messages = nil
	}

	messages = dedupe.Dedupe(messages)
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}
	return messages, nil
}

func Failure(err error) models.Result {
	return models.Result{Success: false, Error: err.Error()}
}

// Filename returns <product>-chat-YYYY-MM-DD-HHMMSS.md for t in local time.
func Filename(product string, t time.Time) string {
	return fmt.Sprintf("%s-chat-%s.md", product, t.Local().Format("2006-01-02-150405"))
}
