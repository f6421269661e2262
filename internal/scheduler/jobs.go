package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/internal/analysis"
	"github.com/stratalpha/stratalpha/internal/clientdata"
	"github.com/stratalpha/stratalpha/internal/config"
	"github.com/stratalpha/stratalpha/internal/events"
	"github.com/stratalpha/stratalpha/internal/marketdata"
	"github.com/stratalpha/stratalpha/internal/reliability"
)

const jobTimeout = 10 * time.Minute

// RefreshJob re-runs the full analysis pipeline for the configured default
// ticker so artifacts and memos stay current.
type RefreshJob struct {
	orchestrator *analysis.Orchestrator
	cfg          *config.Config
	bus          *events.Bus
	log          zerolog.Logger
}

// NewRefreshJob creates a new analysis refresh job.
func NewRefreshJob(orchestrator *analysis.Orchestrator, cfg *config.Config, bus *events.Bus, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		orchestrator: orchestrator,
		cfg:          cfg,
		bus:          bus,
		log:          log.With().Str("job", "refresh").Logger(),
	}
}

// Name returns the job name.
func (j *RefreshJob) Name() string { return "analysis_refresh" }

// Run executes a full pipeline run over the trailing year.
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start, end := marketdata.DefaultRange(time.Now().UTC())
	result, err := j.orchestrator.AnalyzeCompany(ctx, analysis.Request{
		Ticker:       j.cfg.DefaultTicker,
		Start:        start,
		End:          end,
		Peers:        j.cfg.PeerTickers,
		ShockTickers: j.cfg.ShockTickers,
		ShockPct:     j.cfg.ShockPct,
	})
	if err != nil {
		return err
	}

	j.bus.Emit(events.DataRefreshed, "scheduler", map[string]interface{}{
		"ticker": result.Ticker,
		"run_id": result.RunID,
	})
	return nil
}

// CleanupJob removes expired cache entries.
type CleanupJob struct {
	inner *clientdata.CleanupJob
	bus   *events.Bus
}

// NewCleanupJob creates a new cache cleanup job.
func NewCleanupJob(inner *clientdata.CleanupJob, bus *events.Bus) *CleanupJob {
	return &CleanupJob{inner: inner, bus: bus}
}

// Name returns the job name.
func (j *CleanupJob) Name() string { return "cache_cleanup" }

// Run deletes expired cache rows.
func (j *CleanupJob) Run() error {
	j.inner.Run()
	j.bus.Emit(events.CacheCleaned, "scheduler", nil)
	return nil
}

// BackupJob uploads a fresh archive and rotates old ones.
type BackupJob struct {
	backups       *reliability.BackupService
	retentionDays int
	bus           *events.Bus
}

// NewBackupJob creates a new backup job.
func NewBackupJob(backups *reliability.BackupService, retentionDays int, bus *events.Bus) *BackupJob {
	return &BackupJob{backups: backups, retentionDays: retentionDays, bus: bus}
}

// Name returns the job name.
func (j *BackupJob) Name() string { return "artifact_backup" }

// Run creates, uploads, and rotates backups.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := j.backups.CreateAndUploadBackup(ctx); err != nil {
		return err
	}
	if err := j.backups.RotateOldBackups(ctx, j.retentionDays); err != nil {
		return err
	}

	j.bus.Emit(events.BackupCompleted, "scheduler", nil)
	return nil
}
