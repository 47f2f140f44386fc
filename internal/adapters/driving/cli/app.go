package cli

import (
	"context"
	"errors"
	"time"

	"github.com/seconds-0/slack-support-bot/internal/adapters/driven/config/file"
	"github.com/seconds-0/slack-support-bot/internal/container"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driving"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// Scheduler triggers sync passes in the background while serving: on an
// interval or on corpus changes.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
}

// App is what the commands need from the wired application.
type App struct {
	Sync       driving.SyncService
	Scheduler  Scheduler
	Watcher    Scheduler
	Addr       string
	RunTimeout time.Duration
	Close      func() error
}

// Loader builds the application from the config and env file paths.
type Loader func(ctx context.Context, configPath, envFile string) (*App, error)

// loadApp is replaced in tests.
var loadApp Loader = LoadApp

// SetLoader replaces how commands build the application.
func SetLoader(l Loader) {
	loadApp = l
}

// LoadApp loads configuration, configures logging and wires the container.
func LoadApp(ctx context.Context, configPath, envFile string) (*App, error) {
	cfg, err := file.Load(configPath, envFile)
	if err != nil {
		return nil, err
	}
	logger.Configure(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if cfg.Log.Verbose || verbose {
		logger.SetVerbose(true)
	}

	c, err := container.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &App{
		Sync:       c.Sync,
		Addr:       cfg.Server.Addr,
		RunTimeout: cfg.Sync.Timeout.Duration,
		Close:      c.Close,
	}
	// Nil pointers must not become non-nil interfaces.
	if c.Scheduler != nil {
		app.Scheduler = c.Scheduler
	}
	if c.Watcher != nil {
		app.Watcher = c.Watcher
	}
	return app, nil
}

func openApp(ctx context.Context) (*App, error) {
	if loadApp == nil {
		return nil, errors.New("application loader not configured")
	}
	return loadApp(ctx, configPath, envFile)
}

func (a *App) close() {
	if a.Close == nil {
		return
	}
	if err := a.Close(); err != nil {
		logger.Warn("shutdown", "error", err)
	}
}
