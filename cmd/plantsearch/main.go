package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ayurkosh/plantsearch/internal/config"
	logpkg "github.com/ayurkosh/plantsearch/internal/logger"
	"github.com/ayurkosh/plantsearch/internal/metrics"
	chiTransport "github.com/ayurkosh/plantsearch/internal/transport/chi"
	"github.com/ayurkosh/plantsearch/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "plantsearch",
		Usage:   "Semantic search over the plant catalogue",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Config environment (config/<env>.yaml)",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP search API",
				Action: serveCommand,
			},
			{
				Name:   "snapshot",
				Usage:  "Fetch every plant, embed it and write the corpus snapshot",
				Action: snapshotCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Abort the build after this long",
						Value: 30 * time.Minute,
					},
				},
			},
		},
	}
}

func setup(c *cli.Context) (string, config.Config, *zap.Logger, error) {
	env := c.String("env")

	cfg, err := config.Load(env)
	if err != nil {
		return "", config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return "", config.Config{}, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return env, cfg, logger, nil
}

func serveCommand(c *cli.Context) error {
	env, cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting plantsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("snapshot_driver", cfg.Snapshot.Driver),
	)

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	ctx := context.Background()
	a, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Corpus.EagerLoad {
		go func() {
			if err := a.corpus.Load(ctx); err != nil {
				logger.Warn("Eager corpus load failed, will retry on first request", zap.Error(err))
			}
		}()
	}

	server := chiTransport.NewServer(a.search, a.health, logger,
		chiTransport.WithAPIKeys(cfg.Auth.APIKeys),
		chiTransport.WithMaxTopK(cfg.Search.MaxTopK),
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func snapshotCommand(c *cli.Context) error {
	_, cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Snapshot.Driver == config.SnapshotNone {
		return fmt.Errorf("snapshot.driver is %q, nothing to write", config.SnapshotNone)
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	a, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	corpus, err := a.corpus.BuildAndSave(ctx)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	logger.Info("Snapshot written",
		zap.String("driver", cfg.Snapshot.Driver),
		zap.Int("plants", corpus.Len()),
		zap.Int("dimensions", corpus.Dimensions()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
