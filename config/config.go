// Package config provides the small validated entry point around
// model.DiffConfig: a Default() and a Validate() that callers run before
// handing the config to sbomdiff.Diff.
package config

import "github.com/quay/sbomdiff/model"

// Default returns the stock configuration.
func Default() model.DiffConfig {
	return model.DefaultConfig()
}

// Validate checks cfg for internal consistency (weights summing to 1,
// thresholds in range, positive LSH band/row and candidate counts, a
// non-negative cache capacity). It never mutates cfg.
func Validate(cfg model.DiffConfig) error {
	return cfg.Validate()
}
