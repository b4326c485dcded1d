package jobs

import (
	"context"
	"time"

	"mdac/internal/config"
	"mdac/internal/metrics"
)

// RetentionStats captures the number of records deleted by TTL cleanup.
type RetentionStats struct {
	JobsDeleted map[string]int64 `json:"jobsDeleted"`
}

// CleanupExpiredData deletes old terminal jobs based on retention
// settings so that the database does not grow without bound. Artifact
// directories on disk are left to filesystem-level cleanup.
func CleanupExpiredData(ctx context.Context, cfg *config.Config, st Store) RetentionStats {
	now := time.Now().UTC()
	stats := RetentionStats{JobsDeleted: make(map[string]int64)}

	jobTTL := cfg.Retention.Jobs

	applyJobTTL := func(jobType string, days int) {
		if days <= 0 {
			return
		}
		cutoff := now.AddDate(0, 0, -days)
		if n, err := st.DeleteJobsOlderThan(ctx, jobType, cutoff); err == nil && n > 0 {
			stats.JobsDeleted[jobType] += n
			metrics.RecordRetentionJobs(jobType, n)
		}
	}

	effectiveDays := func(specific int) int {
		if specific > 0 {
			return specific
		}
		return jobTTL.DefaultDays
	}

	applyJobTTL(TypeRegister, effectiveDays(jobTTL.RegisterDays))
	applyJobTTL(TypeRetrieve, effectiveDays(jobTTL.RetrieveDays))

	return stats
}
