// Package cmd holds the process entry sequence shared by bot binaries:
// resolve the config path, load it, bootstrap the app and run the bot until
// SIGINT or SIGTERM.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m3rciful/requestbot/core/buildinfo"
	coreconfig "github.com/m3rciful/requestbot/core/config"
	"github.com/m3rciful/requestbot/core/logger"
	coretelegram "github.com/m3rciful/requestbot/core/telegram"
)

// Configured is an application config that embeds the core sections.
type Configured interface {
	CoreConfig() *coreconfig.Config
}

// App is a bootstrapped bot ready to be run.
type App interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options wires Run for a config type C.
type Options[C Configured] struct {
	// ConfigEnv names the variable holding the config path; default CONFIG_PATH.
	ConfigEnv         string
	DefaultConfigPath string

	Load      func(path string) (C, error)
	Bootstrap func(cfg C) (App, error)

	// Overridable for tests.
	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	Context        func() (context.Context, context.CancelFunc)
}

// Run executes the entry sequence and returns the first error.
func Run[C Configured](opts Options[C]) error {
	if opts.Load == nil || opts.Bootstrap == nil {
		return errors.New("cmd: Load and Bootstrap are required")
	}
	path, err := opts.configPath()
	if err != nil {
		return err
	}

	log.Printf("requestbot %s: loading config %s", buildinfo.String(), path)
	cfg, err := opts.Load(path)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	core := cfg.CoreConfig()
	if core == nil {
		return errors.New("cmd: loaded config is missing core configuration")
	}

	app, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	shutdown := opts.ShutdownLogger
	if shutdown == nil {
		shutdown = logger.Shutdown
	}
	defer func() {
		if err := shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}
	withLifecycleLogs(&runOpts, core.Telegram.RunMode, time.Now())

	newCtx := opts.Context
	if newCtx == nil {
		newCtx = func() (context.Context, context.CancelFunc) {
			return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		}
	}
	ctx, cancel := newCtx()
	defer cancel()

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

func (o Options[C]) configPath() (string, error) {
	env := o.ConfigEnv
	if env == "" {
		env = "CONFIG_PATH"
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	if o.DefaultConfigPath == "" {
		return "", fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}
	return o.DefaultConfigPath, nil
}

// withLifecycleLogs logs "ready" after the app's start hook succeeds and
// "shutdown" before its stop hook runs.
func withLifecycleLogs(o *coretelegram.RunOptions, mode string, startedAt time.Time) {
	start, stop := o.OnStart, o.OnStop
	o.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if start != nil {
			if err := start(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready",
			slog.String("build", buildinfo.String()),
			slog.String("mode", mode),
			slog.Duration("startup", logger.Took(startedAt)),
		)
		return nil
	}
	o.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown", slog.Duration("uptime", logger.Took(startedAt)))
		if stop != nil {
			return stop(ctx, rt)
		}
		return nil
	}
}
