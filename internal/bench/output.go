package bench

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cwbudde/descentbench/internal/report"
)

// File names used by WritePlots.
const (
	LossPlotFile       = "loss_vs_iteration.png"
	TrajectoryPlotFile = "optimizer_trajectories.png"
)

// Summary writes the result table of r.
func (r *Report) Summary(w io.Writer) error {
	if err := report.Summary(w, r.Results, r.Minimum()); err != nil {
		return err
	}
	if r.Baseline != nil {
		_, err := fmt.Fprintf(w, "\nBaseline (mayfly): loss %.6g at %v in %s\n",
			r.Baseline.Loss, r.Baseline.Params, r.Baseline.Elapsed.Round(time.Millisecond))
		return err
	}
	return nil
}

// WritePlots saves the loss plot and, for 2-dimensional objectives, the
// trajectory plot into dir. It returns the paths written.
func (r *Report) WritePlots(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	lossPlot, err := report.LossPlot(r.Results)
	if err != nil {
		return nil, err
	}
	lossPath := filepath.Join(dir, LossPlotFile)
	if err := report.SavePNG(lossPlot, lossPath); err != nil {
		return nil, err
	}
	paths := []string{lossPath}

	if r.Objective.Dim() != 2 {
		return paths, nil
	}
	trajPlot, err := report.TrajectoryPlot(r.Objective, r.Results)
	if err != nil {
		return paths, err
	}
	trajPath := filepath.Join(dir, TrajectoryPlotFile)
	if err := report.SavePNG(trajPlot, trajPath); err != nil {
		return paths, err
	}
	return append(paths, trajPath), nil
}
