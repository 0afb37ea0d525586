package server

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/playground/internal/database"
	"github.com/aristath/playground/internal/scheduler"
)

// SystemStatusResponse is the body of GET /api/system/status.
type SystemStatusResponse struct {
	Status        string            `json:"status"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	GoVersion     string            `json:"go_version"`
	Goroutines    int               `json:"goroutines"`
	CPUPercent    float64           `json:"cpu_percent"`
	MemoryPercent float64           `json:"memory_percent"`
	DiskFreeGB    float64           `json:"disk_free_gb"`
	Databases     map[string]string `json:"databases"`
	Timestamp     string            `json:"timestamp"`
}

// DatabaseStatsResponse is one database in GET /api/system/databases.
type DatabaseStatsResponse struct {
	Name string `json:"name"`
	*database.Stats
	Error string `json:"error,omitempty"`
}

// SystemHandlers serves host, database and job endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases []*database.DB
	jobs      map[string]scheduler.Job
	scheduler *scheduler.Scheduler
	started   time.Time
}

// NewSystemHandlers creates system handlers. sched is optional.
func NewSystemHandlers(log zerolog.Logger, dataDir string, databases []*database.DB, jobs []scheduler.Job, sched *scheduler.Scheduler) *SystemHandlers {
	byName := make(map[string]scheduler.Job, len(jobs))
	for _, j := range jobs {
		byName[j.Name()] = j
	}
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: databases,
		jobs:      byName,
		scheduler: sched,
		started:   time.Now(),
	}
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		DiskFreeGB:    h.diskFreeGB(),
		Databases:     make(map[string]string, len(h.databases)),
		Timestamp:     time.Now().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	for _, db := range h.databases {
		if err := db.HealthCheck(ctx); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database unhealthy")
			response.Databases[db.Name()] = err.Error()
			response.Status = "degraded"
			continue
		}
		response.Databases[db.Name()] = "ok"
	}

	writeJSON(h.log, w, http.StatusOK, response)
}

// HandleDatabaseStats handles GET /api/system/databases
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	out := make([]DatabaseStatsResponse, 0, len(h.databases))
	for _, db := range h.databases {
		stats, err := db.GetStats()
		entry := DatabaseStatsResponse{Name: db.Name(), Stats: stats}
		if err != nil {
			entry.Error = err.Error()
		}
		out = append(out, entry)
	}
	writeJSON(h.log, w, http.StatusOK, map[string]interface{}{"databases": out})
}

// HandleListJobs handles GET /api/jobs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(h.log, w, http.StatusOK, map[string]interface{}{"jobs": names})
}

// HandleTriggerJob handles POST /api/jobs/{name}. The job runs in the
// background; failures are logged.
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		writeJSON(h.log, w, http.StatusNotFound, map[string]string{
			"status":  "error",
			"message": "unknown job " + name,
		})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")
	go func() {
		var err error
		if h.scheduler != nil {
			err = h.scheduler.RunNow(job)
		} else {
			err = job.Run()
		}
		if err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		}
	}()

	writeJSON(h.log, w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": name + " triggered",
	})
}

// getSystemStats returns CPU and RAM usage percentages. CPU is sampled over
// 100ms to keep the endpoint fast.
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

func (h *SystemHandlers) diskFreeGB() float64 {
	if h.dataDir == "" {
		return 0
	}
	usage, err := disk.Usage(h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
		return 0
	}
	return float64(usage.Free) / 1e9
}
