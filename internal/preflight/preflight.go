// Package preflight runs startup checks: directory access, external binaries,
// and vision API reachability.
package preflight

import (
	"context"

	"segno/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config. The
// vision API check only runs when an API key is configured, so offline
// inspection commands stay usable.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	if cfg.Storage.Backend == "local" {
		results = append(results, CheckDirectoryAccess("Object store directory", cfg.Storage.LocalDir))
	}

	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command
		}
		results = append(results, result)
	}

	if cfg.Vision.APIKey != "" {
		results = append(results, CheckVision(ctx, cfg.Vision))
	}

	return results
}
