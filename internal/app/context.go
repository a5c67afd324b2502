package app

import (
	"context"
	"errors"
	"fmt"

	"jobdesk/internal/config"
	"jobdesk/internal/repo"
)

// ResolveJob picks the active job id. It prefers the override, then the
// configured default job, then the only job stored for the company.
func ResolveJob(ctx context.Context, cfg *config.Config, jobOverride string, r repo.Repo) (string, error) {
	if jobOverride != "" {
		return jobOverride, nil
	}
	if cfg == nil {
		return "", fmt.Errorf("config not loaded")
	}
	if cfg.Company.DefaultJob != "" {
		return cfg.Company.DefaultJob, nil
	}
	rec, err := r.SingleJob(ctx, cfg.Company.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", fmt.Errorf("no jobs stored for company %s; import one with jobdesk job import --file <path>", cfg.Company.ID)
		}
		return "", fmt.Errorf("job not specified; use --job: %w", err)
	}
	return rec.ID, nil
}
