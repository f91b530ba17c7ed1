package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/cwbudde/descentbench/internal/objective"
	"github.com/cwbudde/descentbench/internal/trial"
	"github.com/cwbudde/descentbench/internal/vec"
)

// Contour settings for trajectory plots.
const (
	GridSize      = 400
	ContourLevels = 30
	// DefaultRadius is the half-width of the plotted box for objectives
	// without natural bounds.
	DefaultRadius = 6.0
)

// surface samples a 2-D objective on a regular grid. It implements
// plotter.GridXYZ.
type surface struct {
	o      objective.Objective
	xs, ys []float64
	z      [][]float64 // z[row][col]
}

func newSurface(o objective.Objective, lower, upper vec.Vector, n int) *surface {
	s := &surface{
		o:  o,
		xs: linspace(lower[0], upper[0], n),
		ys: linspace(lower[1], upper[1], n),
		z:  make([][]float64, n),
	}
	for r, y := range s.ys {
		s.z[r] = make([]float64, n)
		for c, x := range s.xs {
			s.z[r][c] = o.Loss(vec.Of(x, y))
		}
	}
	return s
}

func (s *surface) Dims() (c, r int)   { return len(s.xs), len(s.ys) }
func (s *surface) Z(c, r int) float64 { return s.z[r][c] }
func (s *surface) X(c int) float64    { return s.xs[c] }
func (s *surface) Y(r int) float64    { return s.ys[r] }

// levels returns n contour levels evenly spaced strictly inside the range of
// the finite values of the surface.
func (s *surface) levels(n int) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range s.z {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if !(hi > lo) {
		return nil
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n+1)
	for i := range out {
		out[i] = lo + step*float64(i+1)
	}
	return out
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + step*float64(i)
	}
	return out
}

// PlotBounds returns the box drawn behind trajectories: the objective's own
// bounds (or a box of DefaultRadius around its minimum or the origin),
// grown to contain every finite trajectory point with a small margin.
func PlotBounds(o objective.Objective, results []*trial.Result) (lower, upper vec.Vector) {
	center := vec.Zeros(o.Dim())
	if m, ok := o.(objective.Minimizer); ok {
		center = m.Minimum()
	}
	lower, upper = objective.Box(o, center, DefaultRadius)
	lower, upper = lower.Clone(), upper.Clone()

	grown := false
	for _, r := range results {
		for _, p := range r.Trajectory {
			if !p.IsFinite() || p.Len() != lower.Len() {
				continue
			}
			for i, v := range p {
				if v < lower[i] {
					lower[i], grown = v, true
				}
				if v > upper[i] {
					upper[i], grown = v, true
				}
			}
		}
	}
	if grown {
		margin := upper.Sub(lower).Scale(0.05)
		lower, upper = lower.Sub(margin), upper.Add(margin)
	}
	return lower, upper
}

// TrajectoryPlot draws the path of every result over a contour map of o.
// Only 2-D objectives can be drawn. The known minimum, if any, is marked.
func TrajectoryPlot(o objective.Objective, results []*trial.Result) (*plot.Plot, error) {
	if o.Dim() != 2 {
		return nil, fmt.Errorf("trajectory plot needs a 2-dimensional objective, %s has %d", o.Name(), o.Dim())
	}

	lower, upper := PlotBounds(o, results)
	s := newSurface(o, lower, upper, GridSize)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Optimizer trajectories on %s", o.Name())
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.X.Min, p.X.Max = lower[0], upper[0]
	p.Y.Min, p.Y.Max = lower[1], upper[1]
	p.Add(plotter.NewGrid())

	if levels := s.levels(ContourLevels); len(levels) > 0 {
		p.Add(plotter.NewContour(s, levels, palette.Heat(len(levels), 1)))
	}

	for i, r := range results {
		pts := make(plotter.XYs, 0, len(r.Trajectory))
		for _, q := range r.Trajectory {
			if !q.IsFinite() {
				break
			}
			pts = append(pts, plotter.XY{X: q[0], Y: q[1]})
		}
		if len(pts) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create trajectory for %s: %w", r.Name, err)
		}
		c := plotutil.Color(i)
		line.Color = c
		points.Color = c
		points.Shape = draw.CircleGlyph{}
		points.Radius = vg.Points(1.5)
		p.Add(line, points)
		p.Legend.Add(r.Name, line, points)
	}

	if m, ok := o.(objective.Minimizer); ok {
		best := m.Minimum()
		marker, err := plotter.NewScatter(plotter.XYs{{X: best[0], Y: best[1]}})
		if err != nil {
			return nil, fmt.Errorf("failed to mark minimum: %w", err)
		}
		marker.Color = color.RGBA{R: 255, A: 255}
		marker.Shape = draw.CircleGlyph{}
		marker.Radius = vg.Points(5)
		p.Add(marker)
		p.Legend.Add("Minimum", marker)
	}
	return p, nil
}
