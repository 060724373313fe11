// Package engine wires configuration, the sqlite store, the media index and
// the scan and clean services together for the CLI, TUI and daemon.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fenilsonani/cleaner-toolbox/internal/cleaner"
	"github.com/fenilsonani/cleaner-toolbox/internal/config"
	"github.com/fenilsonani/cleaner-toolbox/internal/device"
	"github.com/fenilsonani/cleaner-toolbox/internal/emptydir"
	"github.com/fenilsonani/cleaner-toolbox/internal/mediastore"
	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
	"github.com/fenilsonani/cleaner-toolbox/internal/store"
)

// Engine owns the long-lived resources of one toolbox session
type Engine struct {
	Config *config.Config
	Store  *store.Store
	Logger *zap.Logger
}

// ScanSettings are the effective scan toggles after applying stored preferences
type ScanSettings struct {
	IncludeHidden bool
	AppCache      bool
	Obb           bool
}

// Open validates cfg and opens the database
func Open(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	return &Engine{Config: cfg, Store: st, Logger: logger}, nil
}

// Close closes the database
func (e *Engine) Close() error {
	return e.Store.Close()
}

// Settings resolves the scan toggles. Stored preferences override config.
func (e *Engine) Settings(ctx context.Context) ScanSettings {
	return ScanSettings{
		IncludeHidden: e.pref(ctx, store.PrefIncludeHidden, e.Config.IncludeHidden),
		AppCache:      e.pref(ctx, store.PrefAppCache, len(e.Config.Sources.AppCacheDirs) > 0),
		Obb:           e.pref(ctx, store.PrefObb, len(e.Config.Sources.ObbDirs) > 0),
	}
}

func (e *Engine) pref(ctx context.Context, key string, def bool) bool {
	v, err := e.Store.GetBool(ctx, key, def)
	if err != nil {
		e.Logger.Warn("failed to read preference", zap.String("key", key), zap.Error(err))
		return def
	}
	return v
}

// Index returns the media index over the storage root
func (e *Engine) Index(ctx context.Context) *mediastore.Index {
	return mediastore.New(e.Store, e.Config.StorageRoot, e.Settings(ctx).IncludeHidden, e.Logger)
}

// RefreshIndex rebuilds the media index from disk
func (e *Engine) RefreshIndex(ctx context.Context) (*mediastore.RefreshStats, error) {
	return e.Index(ctx).Refresh(ctx)
}

// Sources builds the scan sources in scan order: media collections (or a
// plain walk of the storage root when the index is disabled), app caches,
// then OBB directories. The index is refreshed first so every scan sees
// the disk as it is now.
func (e *Engine) Sources(ctx context.Context) ([]scanner.Source, error) {
	settings := e.Settings(ctx)
	cfg := e.Config

	var sources []scanner.Source

	if cfg.Sources.MediaIndex {
		ix := mediastore.New(e.Store, cfg.StorageRoot, settings.IncludeHidden, e.Logger)
		if _, err := ix.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("failed to refresh media index: %w", err)
		}
		sources = append(sources, ix.Sources()...)
	} else {
		sources = append(sources, &scanner.DirSource{
			Label: "storage",
			Dirs:  []string{cfg.StorageRoot},
			Skip:  scanner.DefaultSkip(cfg.StorageRoot, settings.IncludeHidden),
		})
	}

	if settings.AppCache {
		sources = append(sources, scanner.NewAppCacheSource(cfg.ExpandDirs(cfg.Sources.AppCacheDirs), settings.IncludeHidden))
	}
	if settings.Obb {
		sources = append(sources, scanner.NewObbSource(cfg.ExpandDirs(cfg.Sources.ObbDirs), settings.IncludeHidden))
	}

	return sources, nil
}

// NewScanner returns a scanner over the current sources
func (e *Engine) NewScanner(ctx context.Context) (*scanner.Scanner, error) {
	sources, err := e.Sources(ctx)
	if err != nil {
		return nil, err
	}
	return scanner.New(e.Config, sources, e.Logger), nil
}

// Scan runs a full device scan and returns the scanner holding its state
func (e *Engine) Scan(ctx context.Context) (*scanner.Scanner, error) {
	s, err := e.NewScanner(ctx)
	if err != nil {
		return nil, err
	}
	s.ScanDevice(ctx)
	return s, nil
}

// NewCleaner returns a cleaner that deletes through the media index and
// records every run in the history table
func (e *Engine) NewCleaner(ctx context.Context) *cleaner.Cleaner {
	c := cleaner.New(e.Config, e.Logger)
	c.SetIndex(e.Index(ctx))
	c.SetHistory(e.Store)
	return c
}

// EmptyFinder returns an empty-folder finder rooted at the storage root
func (e *Engine) EmptyFinder(ctx context.Context) *emptydir.Finder {
	return emptydir.NewFinder(e.Config.StorageRoot, e.Config.EmptyFolders.MaxDepth, e.Settings(ctx).IncludeHidden)
}

// Device returns a reader for the configured proc and sys roots
func (e *Engine) Device() *device.Reader {
	return device.NewReader(e.Config.Device.ProcRoot, e.Config.Device.SysRoot)
}
