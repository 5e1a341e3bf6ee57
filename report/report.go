// Package report formats sweep points for the console.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/weiihann/loopsweep/sweep"
)

// Output formats accepted by the --format flag of loopsweep run.
const (
	FormatPlain = "plain"
	FormatTable = "table"
	FormatJSON  = "json"
)

// Formats returns the supported output format names.
func Formats() []string {
	return []string{FormatPlain, FormatTable, FormatJSON}
}

// PlainWriter streams one "<L> | <unfused> | <fused>" line per point.
type PlainWriter struct {
	w io.Writer
}

// NewPlainWriter creates a PlainWriter on w.
func NewPlainWriter(w io.Writer) *PlainWriter {
	return &PlainWriter{w: w}
}

// WritePoint writes the report line for p.
func (pw *PlainWriter) WritePoint(p sweep.Point) error {
	_, err := fmt.Fprintln(pw.w, FormatLine(p))

	return err
}

// FormatLine renders p as "<L> | <unfused> | <fused>".
func FormatLine(p sweep.Point) string {
	return fmt.Sprintf("%d | %s | %s", p.LoopSize, p.Unfused, p.Fused)
}

// Generate writes a markdown comparison table for the given points.
func Generate(w io.Writer, points []sweep.Point) error {
	if len(points) == 0 {
		return fmt.Errorf("no points to report")
	}

	fmt.Fprintln(w, "## Sweep Results")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Loop Size | Unfused | Fused | Delta |")
	fmt.Fprintln(w, "|-----------|---------|-------|-------|")

	for _, p := range points {
		fmt.Fprintf(w, "| %d | %s | %s | %s |\n",
			p.LoopSize,
			p.Unfused,
			p.Fused,
			formatDelta(p.Unfused, p.Fused),
		)
	}

	return nil
}

// GenerateJSON writes points as JSON to w.
func GenerateJSON(w io.Writer, points []sweep.Point) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(points)
}

// formatDelta returns fused minus unfused when both metrics are numeric
// (an optional trailing % is kept), and "-" otherwise.
func formatDelta(unfused, fused string) string {
	u, uPct, ok := parseMetric(unfused)
	if !ok {
		return "-"
	}

	f, fPct, ok := parseMetric(fused)
	if !ok || uPct != fPct {
		return "-"
	}

	formatted := strconv.FormatFloat(f-u, 'f', 2, 64)
	if f-u > 0 {
		formatted = "+" + formatted
	}

	if uPct {
		formatted += "%"
	}

	return formatted
}

func parseMetric(s string) (float64, bool, bool) {
	pct := strings.HasSuffix(s, "%")

	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, false, false
	}

	return v, pct, true
}
