package preflight

import (
	"context"
	"path/filepath"

	"pixelterm/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, v Versioner) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckRenderer(ctx, cfg.RendererBinary(), v),
		CheckDirectoryAccess("Cache directory", cfg.Cache.Dir),
	}

	if cfg.Logging.Dir != "" {
		results = append(results, CheckCreatable("Log directory", cfg.Logging.Dir))
	}

	if cfg.Navigation.RememberPosition {
		results = append(results, CheckCreatable("History directory", filepath.Dir(cfg.Navigation.HistoryPath)))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
