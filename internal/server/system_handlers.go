package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/stratalpha/stratalpha/internal/config"
	"github.com/stratalpha/stratalpha/internal/database"
	"github.com/stratalpha/stratalpha/internal/scheduler"
	"github.com/stratalpha/stratalpha/internal/version"
)

// SystemHandlers handles health, status, and manual job trigger endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	cfg         *config.Config
	startupTime time.Time
	cacheDB     *database.DB

	// Jobs are set after registration in main.
	refreshJob scheduler.Job
	cleanupJob scheduler.Job
	backupJob  scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance.
func NewSystemHandlers(cfg *config.Config, cacheDB *database.DB, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		cfg:         cfg,
		startupTime: time.Now(),
		cacheDB:     cacheDB,
	}
}

// SetJobs registers job references for manual triggering.
func (h *SystemHandlers) SetJobs(refresh, cleanup, backup scheduler.Job) {
	h.refreshJob = refresh
	h.cleanupJob = cleanup
	h.backupJob = backup
}

// HandleHealth returns a liveness response with a cache database ping.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	cacheStatus := "ok"
	if h.cacheDB != nil {
		if err := h.cacheDB.Ping(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Cache database ping failed")
			status = "degraded"
			cacheStatus = err.Error()
		}
	}

	h.writeJSON(w, map[string]interface{}{
		"status":  status,
		"cache":   cacheStatus,
		"version": version.Version,
	})
}

// HandleSystemStatus returns uptime and host resource usage.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuAvg, ramPercent := h.getSystemStats()

	h.writeJSON(w, map[string]interface{}{
		"version":        version.Version,
		"uptime_seconds": int64(time.Since(h.startupTime).Seconds()),
		"cpu_percent":    cpuAvg,
		"ram_percent":    ramPercent,
		"default_ticker": h.cfg.DefaultTicker,
		"peers":          h.cfg.PeerTickers,
	})
}

// HandleDiskUsage returns output directory sizes and data volume usage.
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	response := map[string]interface{}{
		"data_dir_mb":      h.getDirSize(h.cfg.DataDir),
		"artifacts_dir_mb": h.getDirSize(h.cfg.ArtifactsDir),
		"reports_dir_mb":   h.getDirSize(h.cfg.ReportsDir),
	}

	if usage, err := disk.Usage(h.cfg.DataDir); err == nil {
		response["volume_used_percent"] = usage.UsedPercent
		response["volume_free_mb"] = float64(usage.Free) / 1024 / 1024
	} else {
		h.log.Warn().Err(err).Msg("Failed to get volume usage")
	}

	h.writeJSON(w, response)
}

// HandleTriggerRefresh runs the analysis refresh job immediately.
// POST /api/system/jobs/refresh
func (h *SystemHandlers) HandleTriggerRefresh(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.refreshJob, "Analysis refresh")
}

// HandleTriggerCleanup runs the cache cleanup job immediately.
// POST /api/system/jobs/cleanup
func (h *SystemHandlers) HandleTriggerCleanup(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.cleanupJob, "Cache cleanup")
}

// HandleTriggerBackup runs the backup job immediately.
// POST /api/system/jobs/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.backupJob, "Backup")
}

// triggerJob kicks off a job in the background so long runs do not hold the
// request open.
func (h *SystemHandlers) triggerJob(w http.ResponseWriter, job scheduler.Job, label string) {
	if job == nil {
		h.log.Warn().Str("job", label).Msg("Job not registered yet")
		h.writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": label + " job not registered",
		})
		return
	}

	h.log.Info().Str("job", job.Name()).Msg("Manual job trigger")
	go func() {
		if err := job.Run(); err != nil {
			h.log.Error().Err(err).Str("job", job.Name()).Msg("Triggered job failed")
		}
	}()

	h.writeJSON(w, map[string]string{
		"status":  "success",
		"message": label + " triggered",
	})
}

// getDirSize calculates total size of a directory in MB.
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats returns CPU and RAM usage percentages. The CPU sample uses
// a 100ms window to keep the handler responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *SystemHandlers) writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
