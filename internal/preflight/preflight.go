package preflight

import (
	"context"

	"vibetube/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Storage root", cfg.Paths.StorageRoot),
	}

	if cfg.Jellyfin.Enabled {
		results = append(results, CheckJellyfin(ctx, cfg.Jellyfin.URL, cfg.Jellyfin.APIKey))
	}

	for _, status := range CheckSystemDeps(cfg) {
		if status.Optional && status.Available {
			continue
		}
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Optional && !status.Available {
			result.Passed = true
			result.Detail = status.Detail + " (optional)"
		}
		results = append(results, result)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
