package report

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"

	"github.com/cwbudde/descentbench/internal/trial"
)

// MinLogLoss is the floor applied to zero losses on a log axis.
const MinLogLoss = 1e-16

// LossPlot draws loss against iteration for every result.
//
// The y axis is logarithmic unless some loss is negative. Zero losses are
// floored at MinLogLoss. Each series is cut at its first non-finite loss, so
// a diverged trial shows up to the point where it left the representable range.
func LossPlot(results []*trial.Result) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Loss vs iteration"
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Loss"
	p.Add(plotter.NewGrid())

	logScale := true
	for _, r := range results {
		for _, loss := range finitePrefix(r.Losses) {
			if loss < 0 {
				logScale = false
			}
		}
	}
	if logScale {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	for i, r := range results {
		losses := finitePrefix(r.Losses)
		if len(losses) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(losses))
		for j, loss := range losses {
			pts[j].X = float64(r.StartIteration + j + 1)
			pts[j].Y = loss
			if logScale && loss < MinLogLoss {
				pts[j].Y = MinLogLoss
			}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create loss line for %s: %w", r.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = 1.5
		p.Add(line)
		p.Legend.Add(r.Name, line)
	}
	p.Legend.Top = true
	return p, nil
}

// finitePrefix returns losses up to the first NaN or infinity.
func finitePrefix(losses []float64) []float64 {
	for i, loss := range losses {
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return losses[:i]
		}
	}
	return losses
}
