package clientdata

import (
	"github.com/rs/zerolog"
)

// CleanupJob removes expired cache entries from all client data tables.
// Scheduled hourly; safe to run at any time.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates a new cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run deletes expired rows across all cache tables.
func (j *CleanupJob) Run() {
	total := int64(0)
	for _, table := range AllTables {
		n, err := j.repo.DeleteExpired(table)
		if err != nil {
			j.log.Warn().Err(err).Str("table", table).Msg("Failed to delete expired cache rows")
			continue
		}
		total += n
	}
	if total > 0 {
		j.log.Info().Int64("rows", total).Msg("Removed expired cache entries")
	}
}
