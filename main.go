package main

import (
	"context"
	"encoding/json"
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

	"github.com/dmytro-yemelianov/twin-sub001/internal/config"
	"github.com/dmytro-yemelianov/twin-sub001/internal/logging"
	"github.com/dmytro-yemelianov/twin-sub001/internal/metrics"
	"github.com/dmytro-yemelianov/twin-sub001/internal/store"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/script"
)

func main() {
	configPath := flag.String("config", os.Getenv("TWIN_CONFIG"), "path to the YAML config file")
	evalPath := flag.String("eval", "", "evaluate a facility script, print the meshes as JSON and exit")
	migrate := flag.Bool("migrate", false, "create the Postgres schema before serving")
	seedPath := flag.String("seed", "", "write a scene file or facility script into Postgres and exit")
	flag.Parse()

	if *evalPath != "" {
		// Eval mode needs no scene source of its own.
		os.Setenv("SCENE_SOURCE", config.SourceScript)
		os.Setenv("SCENE_PATH", *evalPath)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(cfg.LogLevel)
	logger.Debug().Interface("config", cfg.Redacted()).Msg("config loaded")

	if *evalPath != "" {
		os.Exit(runEval(cfg, logger, *evalPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open scene source")
	}
	defer closeSource()

	if pg, ok := src.(*store.PostgresSource); ok {
		if *migrate {
			if err := pg.Migrate(ctx); err != nil {
				logger.Fatal().Err(err).Msg("failed to migrate database")
			}
			logger.Info().Msg("schema up to date")
		}
		if *seedPath != "" {
			if err := seed(ctx, cfg, logger, pg, *seedPath); err != nil {
				logger.Fatal().Err(err).Str("path", *seedPath).Msg("seed failed")
			}
			return
		}
	} else if *seedPath != "" {
		logger.Fatal().Str("source", src.Describe()).Msg("-seed requires a postgres source")
	}

	m := metrics.New()
	app := NewApp(cfg, logger, m, src)
	defer app.Close()

	if err := app.Reload(ctx); err != nil {
		// Serve anyway; a reload request can retry once the source is fixed.
		logger.Error().Err(err).Str("source", src.Describe()).Msg("initial scene load failed")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("source", src.Describe()).Msg("twin listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

// runEval evaluates one script through the App binding and returns the exit
// code: 0 on success, 1 when the script has errors.
func runEval(cfg *config.Config, logger zerolog.Logger, path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to read script")
		return 1
	}
	app := NewApp(cfg, logger, nil, nil)
	defer app.Close()

	result := app.Evaluate(string(src))
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(result); err != nil {
		logger.Error().Err(err).Msg("failed to write result")
		return 1
	}
	if len(result.Errors) > 0 {
		return 1
	}
	return 0
}

// seed loads a scene from a local file or script and stores it under the
// configured site.
func seed(ctx context.Context, cfg *config.Config, logger zerolog.Logger, pg *store.PostgresSource, path string) error {
	var from store.Source
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		from = &store.FileSource{Path: path, CatalogPath: cfg.Source.CatalogPath}
	default:
		eng := script.NewEngine(script.WithTimeout(cfg.Source.ScriptTimeout), script.WithLogger(logger))
		from = &store.ScriptSource{Path: path, Engine: eng, Log: logger}
	}
	snap, err := from.Load(ctx)
	if err != nil {
		return err
	}
	if snap.Config.SiteID != pg.SiteID {
		return fmt.Errorf("scene is for site %q, source is configured for %q", snap.Config.SiteID, pg.SiteID)
	}
	if err := pg.Save(ctx, snap.Config, snap.Catalog); err != nil {
		return err
	}
	logger.Info().
		Str("site_id", pg.SiteID).
		Int("racks", len(snap.Config.Racks)).
		Int("devices", len(snap.Config.Devices)).
		Msg("seeded")
	return nil
}
