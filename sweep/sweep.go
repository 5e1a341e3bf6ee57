// Package sweep drives a loop-size sweep: for each loop size it runs the
// trace generator, analyzes the unfused and fused traces, and reports the
// extracted metric pair.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/weiihann/loopsweep/harness"
)

// Trace file names the generator writes and the analyzer reads.
const (
	UnfusedTrace = "unfused.trace"
	FusedTrace   = "fused.trace"
)

// DefaultMetricField is the whitespace-separated field of the analyzer
// output that carries the metric.
const DefaultMetricField = 2

var loopSizes = [...]int{10, 20, 30, 50, 80, 100, 150, 200, 250, 300}

// DefaultLoopSizes returns the fixed loop-size sequence, in report order.
func DefaultLoopSizes() []int {
	return append([]int(nil), loopSizes[:]...)
}

// Params are the sweep parameters held constant across a run. They are
// forwarded to the generator verbatim.
type Params struct {
	BlockSize string
	WordSize  string
	CacheType string
}

// Point is the result of one sweep iteration.
type Point struct {
	LoopSize int    `json:"loop_size"`
	Unfused  string `json:"unfused"`
	Fused    string `json:"fused"`
}

// Collaborator is an external program the sweep invokes synchronously.
type Collaborator interface {
	Run(ctx context.Context, args ...string) (*harness.Result, error)
}

// Sweeper runs the generate/analyze/report sequence for each loop size.
type Sweeper struct {
	Generator   Collaborator
	Analyzer    Collaborator
	LoopSizes   []int
	MetricField int

	// Logger may be nil, in which case slog.Default is used.
	Logger *slog.Logger
}

// New creates a Sweeper over the default loop sizes.
func New(generator, analyzer Collaborator, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		Generator:   generator,
		Analyzer:    analyzer,
		LoopSizes:   DefaultLoopSizes(),
		MetricField: DefaultMetricField,
		Logger:      logger,
	}
}

// Run processes every loop size in order. emit is called once per point as
// soon as the point is complete. The first failure stops the sweep; the
// points completed before it are returned together with the error.
func (s *Sweeper) Run(
	ctx context.Context,
	params Params,
	emit func(Point) error,
) ([]Point, error) {
	points := make([]Point, 0, len(s.LoopSizes))

	for _, loop := range s.LoopSizes {
		if err := ctx.Err(); err != nil {
			return points, err
		}

		point, err := s.runPoint(ctx, params, loop)
		if err != nil {
			return points, err
		}

		if emit != nil {
			if err := emit(point); err != nil {
				return points, fmt.Errorf("emit loop size %d: %w", loop, err)
			}
		}

		points = append(points, point)

		s.logger().InfoContext(ctx, "sweep point done",
			slog.Int("loop_size", loop),
			slog.String("unfused", point.Unfused),
			slog.String("fused", point.Fused),
		)
	}

	return points, nil
}

func (s *Sweeper) runPoint(
	ctx context.Context,
	params Params,
	loop int,
) (Point, error) {
	_, err := s.Generator.Run(ctx,
		params.BlockSize, params.WordSize, params.CacheType,
		strconv.Itoa(loop),
	)
	if err != nil {
		return Point{}, &StepError{LoopSize: loop, Step: StepGenerate, Err: err}
	}

	unfused, err := s.analyze(ctx, UnfusedTrace)
	if err != nil {
		return Point{}, &StepError{LoopSize: loop, Step: StepAnalyzeUnfused, Err: err}
	}

	fused, err := s.analyze(ctx, FusedTrace)
	if err != nil {
		return Point{}, &StepError{LoopSize: loop, Step: StepAnalyzeFused, Err: err}
	}

	return Point{LoopSize: loop, Unfused: unfused, Fused: fused}, nil
}

func (s *Sweeper) analyze(ctx context.Context, trace string) (string, error) {
	result, err := s.Analyzer.Run(ctx, trace)
	if err != nil {
		return "", err
	}

	return ExtractMetric(result.Stdout, s.MetricField)
}

func (s *Sweeper) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}

	return s.Logger
}
