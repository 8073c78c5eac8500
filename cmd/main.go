package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	cfgPkg "github.com/xhad/chatexport/pkg/config"
	"github.com/xhad/chatexport/pkg/composer"
	"github.com/xhad/chatexport/pkg/exporter"
	"github.com/xhad/chatexport/pkg/locator"
	"github.com/xhad/chatexport/pkg/processor"
	"github.com/xhad/chatexport/pkg/scraper"
	"github.com/xhad/chatexport/server"
)

type Options struct {
	ConfigPath string
	Input      string
	URL        string
	BrowserURL string
	OutputDir  string
	Serve      bool
	Debug      bool
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	opts := parseFlags()
	if opts.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	config, err := loadConfig(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if opts.Serve {
		err = serve(config)
	} else {
		err = export(config)
	}
	if err != nil {
		os.Exit(1)
	}
}

func parseFlags() Options {
	var opts Options

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&opts.Input, "input", "", "Saved chat page to export")
	flag.StringVar(&opts.URL, "url", "", "Chat page URL")
	flag.StringVar(&opts.BrowserURL, "browser", "", "DevTools websocket URL of a running Chrome")
	flag.StringVar(&opts.OutputDir, "out", "", "Directory for the exported markdown")
	flag.BoolVar(&opts.Serve, "serve", false, "Serve the export bridge over websocket")
	flag.BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	flag.Parse()

	return opts
}

// loadConfig reads the config file and lets command line flags override it.
func loadConfig(opts Options) (*cfgPkg.Config, error) {
	config, err := cfgPkg.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	switch {
	case opts.BrowserURL != "":
		config.Source.Kind = scraper.KindBrowser
		config.Source.BrowserURL = opts.BrowserURL
	case opts.Input != "":
		config.Source.Kind = scraper.KindFile
		config.Source.Path = opts.Input
	case opts.URL != "":
		config.Source.Kind = scraper.KindHTTP
	}
	if opts.URL != "" {
		config.Source.URL = opts.URL
	}
	if opts.OutputDir != "" {
		config.Output.Dir = opts.OutputDir
	}

	if errs := config.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, errors.New(strings.Join(msgs, "; "))
	}
	return config, nil
}

func scraperConfig(config *cfgPkg.Config) scraper.ScraperConfig {
	return scraper.ScraperConfig{
		Kind:       config.Source.Kind,
		Path:       config.Source.Path,
		URL:        config.Source.URL,
		BrowserURL: config.Source.BrowserURL,
		HostMatch:  config.Source.HostMatch,
		RateLimit:  config.Source.RateLimit,
		Timeout:    config.TimeoutDuration(),
		Logger:     &log.Logger,
	}
}

func exporterConfig(config *cfgPkg.Config) exporter.ExporterConfig {
	sel := config.Selectors
	return exporter.ExporterConfig{
		Locator: locator.LocatorConfig{
			Containers: sel.Containers,
			Tiers: []locator.TierConfig{
				{Name: "normal", User: sel.User, Model: sel.Model},
				{Name: "aggressive", User: sel.AggressiveUser, Model: sel.AggressiveModel, WholeDocument: true, Dedupe: true},
			},
			Processor: processor.ProcessorConfig{
				QueryTextSelector:    sel.QueryText,
				ResponseTextSelector: sel.ResponseText,
			},
		},
		Composer: composer.ComposerConfig{
			TitleSelector:  sel.Title,
			DefaultTitle:   config.Export.DefaultTitle,
			TitleMaxLen:    config.Export.TitleMaxLen,
			UserLabel:      config.Export.UserLabel,
			AssistantLabel: config.Export.AssistantLabel,
		},
		WarningThreshold: config.Export.WarningThreshold,
		Logger:           &log.Logger,
	}
}

func newBridge(config *cfgPkg.Config, withSource bool) (*server.Bridge, error) {
	exp, err := exporter.NewWithConfig(exporterConfig(config))
	if err != nil {
		return nil, err
	}

	bc := server.BridgeConfig{
		Exporter:  exp,
		HostMatch: config.Source.HostMatch,
		Logger:    &log.Logger,
	}
	if withSource {
		source, err := scraper.New(scraperConfig(config))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize page source: %w", err)
		}
		bc.Source = source
	}
	return server.NewBridge(bc)
}

func export(config *cfgPkg.Config) error {
	bridge, err := newBridge(config, true)
	if err != nil {
		show(Failed(err.Error()))
		return err
	}
	defer bridge.Close()

	show(Extracting())
	spinner := getSpinner("Extracting chat...")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	result := bridge.Handle(ctx, server.Request{Action: server.ActionExportChat})
	spinner.Finish()
	fmt.Println()

	if !result.Success {
		show(Failed(result.Error))
		return errors.New(result.Error)
	}
	if result.Warning != nil {
		show(Warned(*result.Warning))
	}
	show(Saving(result.MessageCount))

	path := filepath.Join(config.Output.Dir, exporter.Filename(config.Export.Product, time.Now()))
	if err := writeDocument(path, result.Markdown); err != nil {
		show(Failed(fmt.Sprintf("Save failed: %v", err)))
		return err
	}

	show(Succeeded(path))
	return nil
}

func writeDocument(path, markdown string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(markdown), 0644)
}

func serve(config *cfgPkg.Config) error {
	// Without a configured page, clients must push the page HTML themselves.
	bridge, err := newBridge(config, config.Source.Path != "" || config.Source.URL != "" || config.Source.BrowserURL != "")
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize bridge")
		return err
	}
	defer bridge.Close()

	srv := &http.Server{
		Addr:    config.Server.Addr,
		Handler: server.NewWSServer(bridge, &log.Logger).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", config.Server.Addr).Msg("starting export bridge")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server failed")
		return err
	}
	return nil
}
