package preflight

import (
	"context"

	"pixelmint/internal/config"
	"pixelmint/internal/identity"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// HealthChecker is implemented by storage and ledger backends.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Targets are the constructed backends to probe. Nil targets are skipped.
type Targets struct {
	Identity identity.Provider
	Storage  HealthChecker
	Ledger   HealthChecker
}

// RunAll executes every applicable check for cfg and targets.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Data directory", cfg.Paths.DataDir)}
	if cfg.Storage.Backend == config.BackendLocal {
		results = append(results, CheckDirectoryAccess("Blob directory", cfg.Storage.BlobDir))
	}
	if targets.Identity != nil {
		results = append(results, CheckIdentity(targets.Identity))
	}
	if targets.Storage != nil {
		results = append(results, CheckService(ctx, "Storage ("+cfg.Storage.Backend+")", targets.Storage))
	}
	if targets.Ledger != nil {
		results = append(results, CheckService(ctx, "Ledger ("+cfg.Ledger.Backend+")", targets.Ledger))
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
