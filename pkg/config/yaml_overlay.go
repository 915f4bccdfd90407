package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// yamlOverlay holds the subset of Config fields operators may tune via a
// mounted file without redeploying. Zero values are "not set" and left
// untouched on the target Config.
type yamlOverlay struct {
	ConfidenceThreshold     *float64 `yaml:"confidence_threshold"`
	VectorIndexTopK         *int     `yaml:"vector_index_top_k"`
	CoordinatorWorkerBudget *int     `yaml:"coordinator_worker_budget"`
	LogLevel                *string  `yaml:"log_level"`
}

// applyYAMLOverlay reads path as YAML and overlays any set fields onto cfg.
func applyYAMLOverlay(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var o yamlOverlay
	if err := yaml.Unmarshal(b, &o); err != nil {
		return err
	}
	if o.ConfidenceThreshold != nil {
		cfg.ConfidenceThreshold = *o.ConfidenceThreshold
	}
	if o.VectorIndexTopK != nil {
		cfg.VectorIndexTopK = *o.VectorIndexTopK
	}
	if o.CoordinatorWorkerBudget != nil {
		cfg.CoordinatorWorkerBudget = *o.CoordinatorWorkerBudget
	}
	if o.LogLevel != nil {
		cfg.LogLevel = *o.LogLevel
	}
	return nil
}
