package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DESCENTBENCH_ITERS=500.
const EnvPrefix = "DESCENTBENCH"

// Load reads a run from path (YAML, JSON or TOML by extension). An empty
// path yields the defaults with environment overrides applied. Keys absent
// from the file keep their defaults; a file that lists optimizers or a start
// point replaces the default list entirely.
func Load(path string) (Run, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Run{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var run Run
	if err := v.Unmarshal(&run); err != nil {
		return Run{}, fmt.Errorf("failed to decode config: %w", err)
	}

	run.FillDefaults()
	if err := run.Validate(); err != nil {
		return Run{}, fmt.Errorf("invalid config: %w", err)
	}
	return run, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	def := Default()
	v.SetDefault("objective.name", def.Objective.Name)
	v.SetDefault("iters", def.Iters)
	v.SetDefault("checkpoint_every", def.CheckpointEvery)
	v.SetDefault("convergence.enabled", def.Convergence.Enabled)
	v.SetDefault("convergence.patience", def.Convergence.Patience)
	v.SetDefault("convergence.threshold", def.Convergence.Threshold)
	v.SetDefault("baseline.enabled", def.Baseline.Enabled)
	v.SetDefault("baseline.max_iters", def.Baseline.MaxIters)
	v.SetDefault("baseline.pop_size", def.Baseline.PopSize)
	v.SetDefault("baseline.seed", def.Baseline.Seed)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}
