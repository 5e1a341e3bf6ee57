// Package main provides the CLI entry point for loopsweep, which compares
// fused and unfused loop traces across a sweep of loop sizes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, global := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		global.errorLogger().Error("loopsweep failed",
			slog.String("error", err.Error()))
		stop()
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

type globalConfig struct {
	logLevel string
	envFile  string
	logger   *slog.Logger
}

func newRootCmd() (*cobra.Command, *globalConfig) {
	global := &globalConfig{}

	root := &cobra.Command{
		Use:   "loopsweep",
		Short: "Compare fused and unfused loop traces across loop sizes",
		Long: `Loopsweep runs a trace generator and a trace analyzer for a fixed
sequence of loop sizes and prints the analyzer metric for the unfused and
the fused trace of each size side by side.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return global.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&global.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (env LOOPSWEEP_LOG_LEVEL)")
	flags.StringVar(&global.envFile, "env-file", ".env",
		"Environment file to load before reading LOOPSWEEP_* variables")

	root.AddCommand(
		newRunCmd(global),
		newGenCmd(global),
		newAnalyzeCmd(),
	)

	return root, global
}

// init loads the environment file and builds the logger. Logs always go to
// stderr so stdout carries only the report.
func (g *globalConfig) init(cmd *cobra.Command) error {
	if g.envFile != "" {
		if err := godotenv.Load(g.envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", g.envFile, err)
		}
	}

	level := g.logLevel
	if level == "" {
		level = envOr("LOOPSWEEP_LOG_LEVEL", "info")
	}

	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}

	g.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: slogLevel,
	}))

	return nil
}

// errorLogger returns the configured logger, or a stderr logger when the
// command failed before init ran.
func (g *globalConfig) errorLogger() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}

	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return fallback
}
