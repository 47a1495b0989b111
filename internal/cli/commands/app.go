package commands

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/airtable/internal/cli/ui"
	"github.com/conduit-lang/airtable/internal/config"
	"github.com/conduit-lang/airtable/internal/logging"
	"github.com/conduit-lang/airtable/pkg/airtable"
	"github.com/conduit-lang/airtable/pkg/cache"
	"github.com/conduit-lang/airtable/pkg/record"
)

// app carries the persistent flags shared by every subcommand
type app struct {
	configDir string
	jsonOut   bool
	noColor   bool
	verbose   bool
	ttl       time.Duration
}

// configError marks failures to load or validate configuration
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// row is the schemaless model the CLI reads every table into
type row struct {
	record.Base
}

// Fields implements record.Model
func (r *row) Fields() []record.Descriptor { return nil }

func (a *app) rowType(table string) record.Type[*row] {
	return record.Type[*row]{
		Table:       table,
		New:         func() *row { return &row{} },
		ExpireAfter: a.ttl,
	}
}

func (a *app) colorDisabled() bool {
	return a.noColor || color.NoColor
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(a.configDir)
	if err != nil {
		return nil, &configError{err: err}
	}
	return cfg, nil
}

func (a *app) logger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	return logging.New(logging.Options{
		Level:       level,
		File:        cfg.Log.File,
		Development: cfg.Log.Development,
	})
}

// backend builds the configured cache backend
func (a *app) backend(cfg *config.Config) (cache.Backend, error) {
	switch cfg.Cache.Backend {
	case config.BackendMemory:
		return cache.NewMemoryBackend(), nil
	case config.BackendRedis:
		return cache.NewRedisBackend(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
	default:
		dir := cfg.Cache.Dir
		if dir == "" {
			var err error
			if dir, err = cache.DefaultDir(); err != nil {
				return nil, err
			}
		}
		return cache.NewFileBackend(dir)
	}
}

// client builds an API client from configuration. Callers must Close it.
func (a *app) client(cmd *cobra.Command) (*airtable.Client, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := a.logger(cfg)
	if err != nil {
		return nil, &configError{err: err}
	}

	backend, err := a.backend(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	opts := []airtable.Option{
		airtable.WithLogger(logger),
		airtable.WithCacheBackend(backend),
	}

	client, err := airtable.New(cfg.Client(), opts...)
	if err != nil {
		return nil, &configError{err: err}
	}
	if a.ttl <= 0 {
		fmt.Fprint(cmd.ErrOrStderr(), ui.Warning("--ttl 0 disables the cache, every record is fetched from the API", a.colorDisabled()))
	}
	logger.Debug("client ready",
		zap.String("command", cmd.Name()),
		zap.String("backend", cfg.Cache.Backend),
		zap.Duration("ttl", a.ttl),
	)
	return client, nil
}
