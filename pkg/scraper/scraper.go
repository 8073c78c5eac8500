package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/xhad/chatexport/internal/types"
	"golang.org/x/time/rate"
)

// ErrNotChatPage is returned when a snapshot does not come from the chat site.
var ErrNotChatPage = errors.New("Please open a Gemini chat page first")

const (
	KindFile    = "file"
	KindHTTP    = "http"
	KindBrowser = "browser"
)

type ScraperConfig struct {
	Kind string
	// Path of a saved page for KindFile.
	Path string
	// URL of the chat page. Optional for KindFile, where it only labels the snapshot.
	URL string
	// BrowserURL is the DevTools websocket endpoint for KindBrowser.
	BrowserURL string
	HostMatch  string
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	Logger     *zerolog.Logger
}

// New builds the source selected by config.Kind.
func New(config ScraperConfig) (types.Source, error) {
	applyDefaults(&config)

	switch config.Kind {
	case KindFile, "":
		if config.Path == "" {
			return nil, fmt.Errorf("file source requires a path")
		}
		return &FileSource{Path: config.Path, URL: config.URL}, nil
	case KindHTTP:
		return NewHTTPSource(config)
	case KindBrowser:
		return NewBrowserSource(config)
	default:
		return nil, fmt.Errorf("unknown source kind %q", config.Kind)
	}
}

func applyDefaults(config *ScraperConfig) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}
	if config.HostMatch == "" {
		config.HostMatch = "gemini.google.com"
	}
	if config.Logger == nil {
		nop := zerolog.Nop()
		config.Logger = &nop
	}
}

// CheckPage rejects snapshots whose URL is known and does not contain hostMatch.
func CheckPage(snap *types.Snapshot, hostMatch string) error {
	if snap == nil || snap.URL == "" || hostMatch == "" {
		return nil
	}
	if !strings.Contains(snap.URL, hostMatch) {
		return ErrNotChatPage
	}
	return nil
}

// Parse builds a snapshot from raw HTML.
func Parse(pageURL string, html []byte) (*types.Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err == nil {
			doc.Url = u
		}
	}
	return &types.Snapshot{URL: pageURL, Doc: doc}, nil
}

// StaticSource serves a page pushed by the caller.
type StaticSource struct {
	URL  string
	HTML string
}

func (s *StaticSource) Snapshot(_ context.Context) (*types.Snapshot, error) {
	return Parse(s.URL, []byte(s.HTML))
}

// FileSource reads a saved copy of the page on every call.
type FileSource struct {
	Path string
	URL  string
}

func (s *FileSource) Snapshot(_ context.Context) (*types.Snapshot, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("error reading page file: %w", err)
	}
	return Parse(s.URL, data)
}

// HTTPSource fetches the page over HTTP, throttled by a rate limiter.
type HTTPSource struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPSource(config ScraperConfig) (*HTTPSource, error) {
	if _, err := url.ParseRequestURI(config.URL); err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", config.URL, err)
	}
	applyDefaults(&config)

	return &HTTPSource{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

func (s *HTTPSource) Snapshot(ctx context.Context) (*types.Snapshot, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, s.config.URL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}
	doc.Url = resp.Request.URL

	s.config.Logger.Debug().Str("url", s.config.URL).Str("contentType", resp.Header.Get("Content-Type")).Msg("fetched page")
	return &types.Snapshot{URL: resp.Request.URL.String(), Doc: doc}, nil
}
