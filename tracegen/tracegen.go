// Package tracegen writes the fused and unfused memory trace files for a
// pair of element-wise loops over four arrays. The unfused trace runs the
// two loops one after the other; the fused trace interleaves their bodies
// in a single loop.
package tracegen

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Trace file names written by WriteFiles.
const (
	UnfusedFile = "unfused.trace"
	FusedFile   = "fused.trace"
)

// Variant selects which loop shape to emit.
type Variant int

// Loop shapes.
const (
	Unfused Variant = iota
	Fused
)

func (v Variant) String() string {
	switch v {
	case Unfused:
		return "unfused"
	case Fused:
		return "fused"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Config controls trace generation.
type Config struct {
	BlockCount int
	WordSize   int
	CacheType  string
	Loop       int
}

// Summary contains statistics about a generated trace.
type Summary struct {
	Loads    int
	Stores   int
	Commands int
}

// Generator produces trace files from a Config.
type Generator struct {
	cfg Config
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg}
}

type access struct {
	op   byte
	base int
}

// Loop bodies: A[i] = B[i] op C[i] and D[i] = A[i] op C[i].
func (g *Generator) bodies() (first, second []access) {
	sq := g.cfg.Loop * g.cfg.Loop
	a, b, c, d := 0, sq, 2*sq, 3*sq

	first = []access{{'l', b}, {'l', c}, {'s', a}}
	second = []access{{'l', a}, {'l', c}, {'s', d}}

	return first, second
}

// Generate writes the trace for variant v to w and returns a Summary.
func (g *Generator) Generate(w io.Writer, v Variant) (Summary, error) {
	bw := bufio.NewWriter(w)

	var summary Summary

	fmt.Fprintf(bw, "%d\n%d\n%s\n", g.cfg.BlockCount, g.cfg.WordSize, g.cfg.CacheType)

	emit := func(i int, body []access) {
		for _, acc := range body {
			fmt.Fprintf(bw, "%c %d\n", acc.op, acc.base+i)

			if acc.op == 'l' {
				summary.Loads++
			} else {
				summary.Stores++
			}

			summary.Commands++
		}
	}

	first, second := g.bodies()

	switch v {
	case Unfused:
		for i := 0; i < g.cfg.Loop; i++ {
			emit(i, first)
		}

		for i := 0; i < g.cfg.Loop; i++ {
			emit(i, second)
		}

	case Fused:
		for i := 0; i < g.cfg.Loop; i++ {
			emit(i, first)
			emit(i, second)
		}

	default:
		return summary, fmt.Errorf("unknown variant %v", v)
	}

	fmt.Fprintln(bw, "h")
	summary.Commands++

	if err := bw.Flush(); err != nil {
		return summary, fmt.Errorf("write %s trace: %w", v, err)
	}

	return summary, nil
}

// WriteFiles writes unfused.trace and fused.trace into dir, replacing any
// existing files. The returned summaries are keyed by file name.
func (g *Generator) WriteFiles(dir string) (map[string]Summary, error) {
	files := []struct {
		name    string
		variant Variant
	}{
		{UnfusedFile, Unfused},
		{FusedFile, Fused},
	}

	summaries := make(map[string]Summary, len(files))

	for _, f := range files {
		summary, err := g.writeFile(filepath.Join(dir, f.name), f.variant)
		if err != nil {
			return summaries, err
		}

		summaries[f.name] = summary
	}

	return summaries, nil
}

func (g *Generator) writeFile(path string, v Variant) (Summary, error) {
	out, err := os.Create(path)
	if err != nil {
		return Summary{}, fmt.Errorf("create %s: %w", path, err)
	}

	summary, err := g.Generate(out, v)
	if err != nil {
		out.Close()

		return summary, err
	}

	if err := out.Close(); err != nil {
		return summary, fmt.Errorf("close %s: %w", path, err)
	}

	return summary, nil
}
