// Package store adapts the places a scene can come from (files, facility
// scripts, Postgres) to one Source interface.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dmytro-yemelianov/twin-sub001/internal/config"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/script"
)

// ErrNotFound is returned when the requested site or file does not exist.
var ErrNotFound = errors.New("store: not found")

// Snapshot is one load of a site.
type Snapshot struct {
	Config  *facility.SceneConfig
	Catalog facility.Catalog
}

// Source produces the current scene.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
	// Describe names the source for logs.
	Describe() string
}

// Open builds the source selected by cfg. The returned close function
// releases any connection pool and is never nil.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Source, func(), error) {
	noop := func() {}
	switch cfg.Source.Kind {
	case config.SourceFile:
		return &FileSource{Path: cfg.Source.Path, CatalogPath: cfg.Source.CatalogPath}, noop, nil
	case config.SourceScript:
		eng := script.NewEngine(script.WithTimeout(cfg.Source.ScriptTimeout), script.WithLogger(log))
		return &ScriptSource{Path: cfg.Source.Path, Engine: eng, Log: log}, noop, nil
	case config.SourcePostgres:
		pg, err := OpenPostgres(ctx, cfg.DatabaseURL, cfg.Source.SiteID)
		if err != nil {
			return nil, noop, err
		}
		return pg, pg.Close, nil
	}
	return nil, noop, fmt.Errorf("store: unknown source kind %q", cfg.Source.Kind)
}
