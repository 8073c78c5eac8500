package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xhad/chatexport/internal/models"
	"github.com/xhad/chatexport/internal/types"
	"github.com/xhad/chatexport/pkg/exporter"
	"github.com/xhad/chatexport/pkg/scraper"
)

const ActionExportChat = "exportChat"

var ErrUnknownAction = errors.New("unknown action")

// Request is the inbound message of the bridge protocol. HTML, when set,
// carries the live DOM pushed by a page-side script and takes precedence
// over the configured source.
type Request struct {
	ID     string `json:"id,omitempty"`
	Action string `json:"action"`
	HTML   string `json:"html,omitempty"`
	URL    string `json:"url,omitempty"`
}

type BridgeConfig struct {
	Source    types.Source
	Exporter  types.Exporter
	HostMatch string
	Logger    *zerolog.Logger
}

type Bridge struct {
	config BridgeConfig
	logger zerolog.Logger
}

func NewBridge(config BridgeConfig) (*Bridge, error) {
	if config.Exporter == nil {
		return nil, fmt.Errorf("bridge requires an exporter")
	}
	b := &Bridge{config: config, logger: zerolog.Nop()}
	if config.Logger != nil {
		b.logger = *config.Logger
	}
	return b, nil
}

// Dispatch handles req off the caller's goroutine and delivers the result to
// respond. It reports whether a reply will be sent.
func (b *Bridge) Dispatch(ctx context.Context, req Request, respond func(models.Result)) bool {
	go respond(b.Handle(ctx, req))
	return true
}

// Handle runs one request to completion. A panic anywhere in the request is
// reported as a failed result.
func (b *Bridge) Handle(ctx context.Context, req Request) (result models.Result) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := b.logger.With().Str("request", id).Str("action", req.Action).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("export panicked")
			result = exporter.Failure(fmt.Errorf("export failed: %v", r))
			result.ID = id
		}
	}()

	result = b.handle(ctx, req, logger)
	result.ID = id

	if result.Success {
		logger.Info().Int("messages", result.MessageCount).Bool("warning", result.Warning != nil).Msg("export complete")
	} else {
		logger.Warn().Str("error", result.Error).Msg("export failed")
	}
	return result
}

func (b *Bridge) handle(ctx context.Context, req Request, logger zerolog.Logger) models.Result {
	if req.Action != ActionExportChat {
		return exporter.Failure(fmt.Errorf("%w: %s", ErrUnknownAction, req.Action))
	}

	source := b.config.Source
	if req.HTML != "" {
		source = &scraper.StaticSource{URL: req.URL, HTML: req.HTML}
	}
	if source == nil {
		return exporter.Failure(fmt.Errorf("no page source configured"))
	}

	snap, err := source.Snapshot(ctx)
	if err != nil {
		logger.Debug().Err(err).Msg("snapshot failed")
		return exporter.Failure(err)
	}
	if err := scraper.CheckPage(snap, b.config.HostMatch); err != nil {
		return exporter.Failure(err)
	}

	return b.config.Exporter.Export(snap)
}

// Close releases the configured page source when it holds a connection.
func (b *Bridge) Close() error {
	if c, ok := b.config.Source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
