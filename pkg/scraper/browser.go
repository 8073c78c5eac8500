package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/stealth"
	"github.com/xhad/chatexport/internal/types"
)

const outerHTML = `() => document.documentElement.outerHTML`

// BrowserSource reads the live DOM of a chat tab in a running Chrome reached
// through its DevTools endpoint. When no open tab matches HostMatch and a URL
// is configured, the page is opened in a new stealth tab.
//
// The DevTools connection lives until Close. Only the calls of a single
// Snapshot are bound to its timeout.
type BrowserSource struct {
	config ScraperConfig

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	ws      *cdp.WebSocket
	browser *rod.Browser
}

func NewBrowserSource(config ScraperConfig) (*BrowserSource, error) {
	if config.BrowserURL == "" {
		return nil, fmt.Errorf("browser source requires a DevTools URL")
	}
	applyDefaults(&config)
	ctx, cancel := context.WithCancel(context.Background())
	return &BrowserSource{config: config, ctx: ctx, cancel: cancel}, nil
}

func (s *BrowserSource) connect() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}
	if err := s.ctx.Err(); err != nil {
		return nil, fmt.Errorf("browser: source closed: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(s.ctx, s.config.Timeout)
	defer cancel()
	ws := &cdp.WebSocket{}
	if err := ws.Connect(dialCtx, s.config.BrowserURL, nil); err != nil {
		return nil, fmt.Errorf("browser: connect %s: %w", s.config.BrowserURL, err)
	}

	b := rod.New().Client(cdp.New().Start(ws)).Context(s.ctx)
	if err := b.Connect(); err != nil {
		ws.Close()
		return nil, fmt.Errorf("browser: connect %s: %w", s.config.BrowserURL, err)
	}
	s.ws = ws
	s.browser = b
	return b, nil
}

// Close drops the DevTools connection. The browser itself keeps running.
func (s *BrowserSource) Close() error {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.browser = nil
	if s.ws == nil {
		return nil
	}
	err := s.ws.Close()
	s.ws = nil
	return err
}

func (s *BrowserSource) Snapshot(ctx context.Context) (*types.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	b, err := s.connect()
	if err != nil {
		return nil, err
	}

	page, pageURL, opened, err := s.findPage(ctx, b)
	if err != nil {
		return nil, err
	}
	if opened {
		defer page.Close()
	}

	res, err := page.Context(ctx).Eval(outerHTML)
	if err != nil {
		return nil, fmt.Errorf("browser: get DOM: %w", err)
	}

	s.config.Logger.Debug().Str("url", pageURL).Bool("opened", opened).Msg("captured live DOM")
	return Parse(pageURL, []byte(res.Value.Str()))
}

func (s *BrowserSource) findPage(ctx context.Context, b *rod.Browser) (*rod.Page, string, bool, error) {
	pages, err := b.Context(ctx).Pages()
	if err != nil {
		return nil, "", false, fmt.Errorf("browser: list tabs: %w", err)
	}

	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if strings.Contains(info.URL, s.config.HostMatch) {
			return p, info.URL, false, nil
		}
	}

	if s.config.URL == "" {
		return nil, "", false, ErrNotChatPage
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, "", false, fmt.Errorf("browser: create tab: %w", err)
	}
	if err := page.Context(ctx).Navigate(s.config.URL); err != nil {
		page.Close()
		return nil, "", false, fmt.Errorf("browser: navigate %s: %w", s.config.URL, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		s.config.Logger.Warn().Err(err).Str("url", s.config.URL).Msg("browser: wait load timeout")
	}
	return page, s.config.URL, true, nil
}
