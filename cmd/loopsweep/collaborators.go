package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiihann/loopsweep/cachesim"
	"github.com/weiihann/loopsweep/tracegen"
)

func newGenCmd(global *globalConfig) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "gen BLOCK_COUNT WORD_SIZE CACHE_TYPE LOOP_SIZE",
		Short: "Write unfused.trace and fused.trace for one loop size",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			blockCount, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("block count: %w", err)
			}

			wordSize, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("word size: %w", err)
			}

			loop, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("loop size: %w", err)
			}

			gen := tracegen.NewGenerator(tracegen.Config{
				BlockCount: blockCount,
				WordSize:   wordSize,
				CacheType:  args[2],
				Loop:       loop,
			})

			summaries, err := gen.WriteFiles(dir)
			if err != nil {
				return err
			}

			for name, summary := range summaries {
				global.logger.DebugContext(cmd.Context(), "trace written",
					slog.String("file", name),
					slog.Int("loads", summary.Loads),
					slog.Int("stores", summary.Stores),
					slog.Int("commands", summary.Commands),
				)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the trace files to")

	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "analyze TRACEFILE",
		Short: "Replay a trace file through its cache and print the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trace, err := cachesim.LoadTrace(args[0])
			if err != nil {
				return err
			}

			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			sim, err := cachesim.NewSimulator(trace, cmd.OutOrStdout(),
				rand.New(rand.NewSource(seed)))
			if err != nil {
				return err
			}

			return sim.Run()
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0,
		"Random replacement seed (0 = use current time)")

	return cmd
}
