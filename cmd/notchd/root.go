package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/notchd/internal/app"
	"github.com/jmylchreest/notchd/internal/compositor/wayland"
	"github.com/jmylchreest/notchd/internal/config"
	"github.com/jmylchreest/notchd/internal/module"
	"github.com/jmylchreest/notchd/internal/modules/battery"
	"github.com/jmylchreest/notchd/internal/modules/clock"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		logLevel   string
		configPath string
	}
	logger *slog.Logger
)

// rootCmd runs the notch daemon.
var rootCmd = &cobra.Command{
	Use:   "notchd",
	Short: "Dynamic notch overlay for wlroots compositors",
	Long: `notchd renders a macOS-style notch at the top edge of the screen
using the wlr-layer-shell protocol. The notch expands under the pointer
and hosts small widget modules such as a clock and a battery indicator.

Configuration lives in ~/.config/notchd/config.toml.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogger(); err != nil {
			return err
		}

		path := globalOpts.configPath
		if path == "" {
			path = config.ConfigPath()
		}

		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

// Execute runs the root command, mapping failure to exit code 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging (same as --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.logLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/notchd/config.toml)")
}

// setupLogger configures the global slog logger.
func setupLogger() error {
	level, err := parseLogLevel(globalOpts.logLevel)
	if err != nil {
		return err
	}
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	logger = slog.New(handler)
	slog.SetDefault(logger)
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", s)
}

func runDaemon() error {
	logger.Info("starting notchd", "version", version)

	registry := module.NewRegistry()
	registry.Register("clock", clock.New)
	registry.Register("battery", battery.New)
	mods := registry.Build(cfg, logger)

	conn, err := wayland.Connect(logger)
	if err != nil {
		return fmt.Errorf("failed to connect to compositor: %w", err)
	}
	defer conn.Close()

	a, err := app.New(conn, cfg, mods, logger)
	if err != nil {
		return err
	}

	// The watcher only logs a restart hint; live reload is not supported.
	path := globalOpts.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	if watcher, err := config.NewWatcher(path, logger); err == nil {
		if err := watcher.Start(); err != nil {
			logger.Warn("config watcher failed to start", "error", err)
		} else {
			defer watcher.Stop()
		}
	} else {
		logger.Warn("config watcher unavailable", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("notch terminated: %w", err)
	}
	logger.Info("notchd stopped")
	return nil
}
