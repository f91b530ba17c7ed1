package trial

import (
	"log/slog"
	"math"
)

// ConvergenceConfig defines parameters for stopping a trial early
type ConvergenceConfig struct {
	// Enabled controls whether convergence detection is active
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Patience is the number of consecutive steps with no significant
	// improvement before stopping
	Patience int `json:"patience" mapstructure:"patience"`

	// Threshold is the minimum relative improvement required to count as progress
	// Example: 0.001 = 0.1% improvement required
	// Relative improvement = (oldLoss - newLoss) / |oldLoss|
	Threshold float64 `json:"threshold" mapstructure:"threshold"`
}

// DefaultConvergenceConfig returns sensible defaults for convergence detection
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  10,
		Threshold: 1e-6,
	}
}

// DisabledConvergenceConfig returns a config with convergence detection disabled
func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled: false,
	}
}

// ConvergenceTracker tracks loss history and detects when a trial has stalled.
// A non-finite loss never counts as an improvement, so a diverged trial stops
// after Patience steps.
type ConvergenceTracker struct {
	config          ConvergenceConfig
	lossHistory     []float64
	bestLoss        float64 // Best loss ever seen
	lastSignificant float64 // Last loss that was a significant improvement
	staleCount      int     // Number of steps without significant improvement
}

// NewConvergenceTracker creates a new convergence tracker with the given config
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		lossHistory:     []float64{},
		bestLoss:        math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records a new loss value and returns true if convergence is detected
func (c *ConvergenceTracker) Update(loss float64) bool {
	if !c.config.Enabled {
		return false
	}

	c.lossHistory = append(c.lossHistory, loss)

	if loss < c.bestLoss {
		c.bestLoss = loss
	}

	// First loss - initialize lastSignificant
	if len(c.lossHistory) == 1 {
		c.lastSignificant = loss
		return false
	}

	relativeImprovement := c.relativeImprovement(loss)

	if relativeImprovement >= c.config.Threshold {
		c.lastSignificant = loss
		c.staleCount = 0
		return false
	}

	c.staleCount++
	slog.Debug("No significant loss improvement",
		"loss", loss,
		"last_significant", c.lastSignificant,
		"relative_improvement", relativeImprovement,
		"stale_count", c.staleCount,
		"patience", c.config.Patience,
	)

	if c.staleCount >= c.config.Patience {
		slog.Debug("Convergence detected",
			"stale_count", c.staleCount,
			"patience", c.config.Patience,
			"best_loss", c.bestLoss,
		)
		return true
	}
	return false
}

func (c *ConvergenceTracker) relativeImprovement(loss float64) float64 {
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return math.Inf(-1)
	}
	if math.IsInf(c.lastSignificant, 0) || math.IsNaN(c.lastSignificant) {
		// Recovery from a non-finite loss is always significant
		return math.Inf(1)
	}
	delta := c.lastSignificant - loss
	if c.lastSignificant == 0 {
		if delta > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return delta / math.Abs(c.lastSignificant)
}

// BestLoss returns the best loss seen so far
func (c *ConvergenceTracker) BestLoss() float64 {
	return c.bestLoss
}

// History returns the full loss history
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.lossHistory...)
}

// StaleCount returns the current number of steps without improvement
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}

// Reset clears the tracker's state
func (c *ConvergenceTracker) Reset() {
	c.lossHistory = []float64{}
	c.bestLoss = math.Inf(1)
	c.lastSignificant = math.Inf(1)
	c.staleCount = 0
}
