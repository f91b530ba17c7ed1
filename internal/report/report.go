// Package report renders trial results as figures and tables.
package report

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/cwbudde/descentbench/internal/trial"
	"github.com/cwbudde/descentbench/internal/vec"
)

// Figure size used for saved and streamed plots.
const (
	Width  = 8 * vg.Inch
	Height = 6 * vg.Inch
)

// SavePNG writes p to path. The format follows the file extension.
func SavePNG(p *plot.Plot, path string) error {
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WritePNG encodes p as PNG to w.
func WritePNG(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// Summary writes one row per result. If minimum is non-nil, the distance of
// each final point from it is included.
func Summary(w io.Writer, results []*trial.Result, minimum vec.Vector) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OPTIMIZER\tITERS\tINITIAL LOSS\tFINAL LOSS\tBEST LOSS\tBEST ITER\tDIST TO MIN\tSTOPPED\tELAPSED")
	fmt.Fprintln(tw, "---------\t-----\t------------\t----------\t---------\t---------\t-----------\t-------\t-------")
	for _, r := range results {
		if r == nil {
			continue
		}
		dist := "-"
		if minimum != nil && minimum.SameLen(r.Final()) {
			dist = formatFloat(r.Final().Distance(minimum))
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.Name,
			r.StartIteration+r.Iterations,
			formatFloat(r.InitialLoss),
			formatFloat(r.FinalLoss),
			formatFloat(r.BestLoss),
			r.BestIteration,
			dist,
			r.Stopped,
			r.Elapsed.Round(time.Microsecond),
		)
	}
	return tw.Flush()
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strings.ToLower(fmt.Sprint(f))
	}
	return fmt.Sprintf("%.6g", f)
}
