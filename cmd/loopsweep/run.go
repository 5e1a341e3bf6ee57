package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/weiihann/loopsweep/harness"
	"github.com/weiihann/loopsweep/report"
	"github.com/weiihann/loopsweep/sweep"
)

type runConfig struct {
	generator string
	analyzer  string
	workdir   string
	loops     []int
	field     int
	format    string
	timeout   time.Duration
	clean     bool
}

func newRunCmd(global *globalConfig) *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "run BLOCK_SIZE WORD_SIZE CACHE_TYPE",
		Short: "Sweep loop sizes and compare unfused and fused traces",
		Long: `For each loop size, run the generator with the block size, word size,
cache type and loop size, analyze unfused.trace and then fused.trace, and
print "<loop size> | <unfused metric> | <fused metric>".

The three parameters are passed to the generator unchanged.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.generator = flagOrEnv(cmd, "generator", cfg.generator, "LOOPSWEEP_GENERATOR")
			cfg.analyzer = flagOrEnv(cmd, "analyzer", cfg.analyzer, "LOOPSWEEP_ANALYZER")
			cfg.workdir = flagOrEnv(cmd, "workdir", cfg.workdir, "LOOPSWEEP_WORKDIR")

			params := sweep.Params{
				BlockSize: args[0],
				WordSize:  args[1],
				CacheType: args[2],
			}

			return runSweep(cmd.Context(), global.logger, params, cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.generator, "generator", "",
		"Generator command (default: built-in gen)")
	flags.StringVar(&cfg.analyzer, "analyzer", "",
		"Analyzer command (default: built-in analyze)")
	flags.StringVar(&cfg.workdir, "workdir", ".",
		"Working directory for the generator and analyzer")
	flags.IntSliceVar(&cfg.loops, "loops", sweep.DefaultLoopSizes(),
		"Loop sizes to sweep, in report order")
	flags.IntVar(&cfg.field, "field", sweep.DefaultMetricField,
		"Zero-based whitespace field of the analyzer output to report")
	flags.StringVar(&cfg.format, "format", report.FormatPlain,
		"Output format: "+strings.Join(report.Formats(), ", "))
	flags.DurationVar(&cfg.timeout, "timeout", 0,
		"Timeout for each generator or analyzer run (0 = none)")
	flags.BoolVar(&cfg.clean, "clean", false,
		"Remove the trace files when loopsweep exits")

	return cmd
}

// flagOrEnv returns the flag value when it was set on the command line, the
// environment variable when it is set, and the flag default otherwise.
func flagOrEnv(cmd *cobra.Command, name, value, env string) string {
	if cmd.Flags().Changed(name) {
		return value
	}

	return envOr(env, value)
}

func runSweep(
	ctx context.Context,
	logger *slog.Logger,
	params sweep.Params,
	cfg runConfig,
	out io.Writer,
) error {
	if !slices.Contains(report.Formats(), cfg.format) {
		return fmt.Errorf("unknown format %q", cfg.format)
	}

	workdir, err := filepath.Abs(cfg.workdir)
	if err != nil {
		return fmt.Errorf("resolve workdir: %w", err)
	}

	if info, err := os.Stat(workdir); err != nil {
		return fmt.Errorf("workdir: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("workdir %s is not a directory", workdir)
	}

	logger = logger.With(slog.String("run_id", xid.New().String()))

	generator, err := newCollaborator("generator", cfg.generator, "gen", workdir, cfg.timeout, logger)
	if err != nil {
		return err
	}

	analyzer, err := newCollaborator("analyzer", cfg.analyzer, "analyze", workdir, cfg.timeout, logger)
	if err != nil {
		return err
	}

	if cfg.clean {
		atexit.Register(func() { removeTraces(logger, workdir) })
	}

	s := sweep.New(generator, analyzer, logger)
	s.LoopSizes = cfg.loops
	s.MetricField = cfg.field

	logger.InfoContext(ctx, "starting sweep",
		slog.String("block_size", params.BlockSize),
		slog.String("word_size", params.WordSize),
		slog.String("cache_type", params.CacheType),
		slog.Any("loop_sizes", s.LoopSizes),
		slog.String("workdir", workdir),
	)

	var emit func(sweep.Point) error
	if cfg.format == report.FormatPlain {
		emit = report.NewPlainWriter(out).WritePoint
	}

	points, err := s.Run(ctx, params, emit)
	if err != nil {
		return fmt.Errorf("sweep stopped after %d points: %w", len(points), err)
	}

	switch cfg.format {
	case report.FormatTable:
		if err := report.Generate(out, points); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	case report.FormatJSON:
		if err := report.GenerateJSON(out, points); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	}

	logger.InfoContext(ctx, "sweep complete", slog.Int("points", len(points)))

	return nil
}

// removeTraces deletes the trace files the generator left in workdir.
func removeTraces(logger *slog.Logger, workdir string) {
	for _, name := range []string{sweep.UnfusedTrace, sweep.FusedTrace} {
		path := filepath.Join(workdir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Debug("failed to remove trace file",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}
}

func newCollaborator(
	name, command, builtin, workdir string,
	timeout time.Duration,
	logger *slog.Logger,
) (*harness.Runner, error) {
	cmdCfg, err := harness.ResolveCommand(command, builtin)
	if err != nil {
		return nil, fmt.Errorf("%s command: %w", name, err)
	}

	r := harness.NewRunner(name, cmdCfg, logger)
	r.Dir = workdir
	r.Timeout = timeout

	return r, nil
}
