package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/csvcard/internal/blob"
	"github.com/JonMunkholm/csvcard/internal/config"
	"github.com/JonMunkholm/csvcard/internal/core"
	"github.com/JonMunkholm/csvcard/internal/logging"
	"github.com/JonMunkholm/csvcard/internal/store"
	"github.com/JonMunkholm/csvcard/internal/web"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runs, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer runs.Close()
	slog.Info("run store opened", "driver", cfg.Store.Driver)

	if cfg.Store.SeedFile != "" {
		n, err := store.SeedFromFile(ctx, runs, cfg.Store.SeedFile)
		if err != nil {
			return err
		}
		slog.Info("runs seeded", "file", cfg.Store.SeedFile, "runs", n)
	}

	files, err := blob.NewFileSystem(cfg.Artifacts.RootDir)
	if err != nil {
		return err
	}
	defer files.Close()

	var s3 blob.Opener
	if cfg.Artifacts.S3Region != "" || cfg.Artifacts.S3Endpoint != "" {
		client, err := blob.NewS3(ctx, blob.S3Options{
			Region:    cfg.Artifacts.S3Region,
			Endpoint:  cfg.Artifacts.S3Endpoint,
			PathStyle: cfg.Artifacts.S3PathStyle,
		})
		if err != nil {
			return err
		}
		s3 = client
		slog.Info("s3 artifacts enabled", "region", cfg.Artifacts.S3Region, "endpoint", cfg.Artifacts.S3Endpoint)
	}

	fetcher := core.NewFetcher(core.FetcherOptions{
		Timeout:           cfg.Fetch.Timeout,
		MaxBytes:          cfg.Fetch.MaxBytes,
		UserAgent:         cfg.Fetch.UserAgent,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Burst:             cfg.Fetch.Burst,
		CacheTTL:          cfg.Fetch.CacheTTL,
		LocalBaseURL:      cfg.ArtifactBaseURL(),
		APIKey:            cfg.LocalAPIKey(),
	})
	limiter := core.NewLoadLimiter(cfg.Fetch.MaxConcurrent, cfg.Fetch.MaxWaitTime)
	loader := core.NewLoader(fetcher, limiter, core.LoaderOptions{
		MaxParallel:    cfg.Fetch.MaxParallel,
		MaxUploadBytes: cfg.Fetch.MaxBytes,
		Timeout:        cfg.Fetch.LoadTimeout(),
	})

	server := web.NewServer(cfg, runs, blob.NewRouter(files, s3), loader)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.Server.Addr(), "artifact_root", files.Dir())
		if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for artifact loads to complete", "active", active, "cards", len(limiter.Status().Cards))
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("artifact loads did not complete in time", "error", err, "active", limiter.ActiveCount())
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
