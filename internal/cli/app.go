package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/seamline/internal/cache"
	"github.com/roach88/seamline/internal/config"
	"github.com/roach88/seamline/internal/projection"
	"github.com/roach88/seamline/internal/refresh"
	"github.com/roach88/seamline/internal/store"
	"github.com/roach88/seamline/internal/template"
)

// app is the wiring shared by commands that touch the database.
type app struct {
	cfg       config.Config
	opts      *RootOptions
	store     *store.Store
	catalog   template.Catalog
	projector *projection.Projector
	mirror    *cache.RedisMirror[projection.Progress]
}

// openApp opens the configured database and, when configured, the style
// templates and the Redis mirror.
func openApp(opts *RootOptions) (*app, error) {
	cfg := opts.Config
	logger := opts.Logger

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	a := &app{cfg: cfg, opts: opts, store: st}

	var resolver projection.NodeResolver
	if cfg.TemplatesDir != "" {
		catalog, err := template.Load(cfg.TemplatesDir)
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitCommandError, "failed to load templates", err)
		}
		logger.Debug("templates loaded", "path", cfg.TemplatesDir, "styles", len(catalog))
		a.catalog = catalog
		resolver = catalog
	}
	a.projector = projection.NewProjector(st, resolver, cfg.EnginePolicy(), cfg.PageSize)

	if cfg.RedisURL != "" {
		m, err := cache.NewRedisMirror[projection.Progress](cfg.RedisURL, cache.DefaultKeyPrefix, cfg.CacheTTL)
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitCommandError, "failed to configure redis mirror", err)
		}
		a.mirror = m
	}
	return a, nil
}

// refresher builds a Refresher that persists progress and publishes to the
// mirror when one is configured.
func (a *app) refresher(extra ...refresh.Option) *refresh.Refresher {
	opts := []refresh.Option{
		refresh.WithWriter(a.store),
		refresh.WithLogger(a.opts.Logger),
		refresh.WithInterval(a.cfg.PollInterval),
		refresh.WithConcurrency(a.cfg.Concurrency),
		refresh.WithRateLimit(a.cfg.FetchRatePerSecond),
	}
	if a.mirror != nil {
		opts = append(opts, refresh.WithMirror(a.mirror))
	}
	opts = append(opts, extra...)
	return refresh.New(a.projector, a.store, cache.New[projection.Progress](a.cfg.CacheTTL), opts...)
}

// Close releases the database and mirror connections.
func (a *app) Close() {
	if a.mirror != nil {
		if err := a.mirror.Close(); err != nil {
			a.opts.Logger.Error("error closing redis mirror", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.opts.Logger.Error("error closing database", "error", err)
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM or when the
// command's own context ends.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// commandContext returns the command's context or Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// domainError turns a rejected submission into a reportable error. The
// apperr kind survives for the exit code and error code.
func domainError(action string, err error) error {
	return fmt.Errorf("%s rejected: %w", action, err)
}
