// Command quintet is the assistant server. It exposes the five modes (live
// voice, chat, image, search, video) over HTTP and websocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/thierryishimwe250/quintet/internal/config"
	"github.com/thierryishimwe250/quintet/internal/gateway"
	"github.com/thierryishimwe250/quintet/internal/health"
	"github.com/thierryishimwe250/quintet/internal/observe"
	"github.com/thierryishimwe250/quintet/internal/store/postgres"
	"github.com/thierryishimwe250/quintet/pkg/provider/live"
	"github.com/thierryishimwe250/quintet/pkg/provider/live/gemini"
	"github.com/thierryishimwe250/quintet/pkg/provider/llm/anyllm"
	"github.com/thierryishimwe250/quintet/pkg/provider/media"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "quintet: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "quintet: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("quintet starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	opts, cleanup, err := buildGateway(ctx, cfg)
	if err != nil {
		slog.Error("failed to build gateway", "err", err)
		return 1
	}
	defer cleanup()

	gw := gateway.New(opts)

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping")
		shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildGateway constructs the mode backends from cfg. The returned cleanup
// closes long-lived resources (the database pool).
func buildGateway(ctx context.Context, cfg *config.Config) (gateway.Options, func(), error) {
	cleanup := func() {}
	apiKey := cfg.APIKey()

	opts := gateway.Options{
		ChatSystemPrompt: cfg.Chat.SystemPrompt,
		RecordDir:        cfg.Voice.RecordDir,
		Voice: live.SessionConfig{
			Model:            cfg.Voice.Model,
			Voice:            cfg.Voice.Voice,
			Instructions:     cfg.Voice.Instructions,
			TranscribeInput:  cfg.Voice.TranscribeInput,
			TranscribeOutput: cfg.Voice.TranscribeOutput,
		},
	}

	if apiKey != "" {
		var liveOpts []gemini.Option
		if cfg.Voice.Model != "" {
			liveOpts = append(liveOpts, gemini.WithModel(cfg.Voice.Model))
		}
		if cfg.API.LiveEndpoint != "" {
			liveOpts = append(liveOpts, gemini.WithBaseURL(cfg.API.LiveEndpoint))
		}
		opts.Live = gemini.New(apiKey, liveOpts...)

		var mediaOpts []media.Option
		if cfg.Media.ImageModel != "" {
			mediaOpts = append(mediaOpts, media.WithImageModel(cfg.Media.ImageModel))
		}
		if cfg.Media.SearchModel != "" {
			mediaOpts = append(mediaOpts, media.WithSearchModel(cfg.Media.SearchModel))
		}
		if cfg.Media.VideoModel != "" {
			mediaOpts = append(mediaOpts, media.WithVideoModel(cfg.Media.VideoModel))
		}
		if cfg.Media.VideoPollSeconds > 0 {
			mediaOpts = append(mediaOpts, media.WithPollInterval(time.Duration(cfg.Media.VideoPollSeconds)*time.Second))
		}
		mediaClient, err := media.New(ctx, apiKey, mediaOpts...)
		if err != nil {
			return gateway.Options{}, cleanup, err
		}
		opts.Media = gateway.WrapMedia(mediaClient)
	}

	if cfg.Chat.Provider != "" && cfg.Chat.Model != "" {
		var llmOpts []anyllmlib.Option
		if apiKey != "" && cfg.Chat.Provider == "gemini" {
			llmOpts = append(llmOpts, anyllmlib.WithAPIKey(apiKey))
		}
		chat, err := anyllm.New(cfg.Chat.Provider, cfg.Chat.Model, llmOpts...)
		if err != nil {
			return gateway.Options{}, cleanup, err
		}
		opts.Chat = chat
	}

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return gateway.Options{}, cleanup, err
		}
		cleanup = store.Close
		opts.Store = store
		opts.Transcripts = store
		opts.Ready = append(opts.Ready, health.Checker{
			Name: "database",
			Check: func(ctx context.Context) error {
				_, err := store.Recent(ctx, "readiness-probe", time.Second)
				return err
			},
		})
	}

	return opts, cleanup, nil
}

// newLogger builds the process-wide slog logger for the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
