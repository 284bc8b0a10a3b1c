// internal/handlers/health.go
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/stocksync/internal/core/ports"
	"github.com/ammerola/stocksync/internal/pkg/config"
)

// Overall health values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// probe is one dependency check. A failing critical probe makes the server
// unhealthy; any other failure only degrades it.
type probe struct {
	name     string
	critical bool
	run      func(ctx context.Context) ServiceInfo
}

// HealthHandler serves the operator health and readiness endpoints
type HealthHandler struct {
	probes     []probe
	db         ports.Database
	version    string
	env        string
	auditQueue string
	logger     *slog.Logger
	startTime  time.Time
}

// NewHealthHandler creates a new health handler. redisClient and
// asynqInspector may be nil when the server runs without them.
func NewHealthHandler(
	database ports.Database,
	redisClient *redis.Client,
	asynqInspector *asynq.Inspector,
	cfg *config.Config,
	logger *slog.Logger,
) *HealthHandler {
	h := &HealthHandler{
		db:         database,
		version:    cfg.App.Version,
		env:        cfg.App.Environment,
		auditQueue: cfg.Asynq.AuditQueue,
		logger:     logger.With(slog.String("handler", "health")),
		startTime:  time.Now(),
	}

	h.probes = append(h.probes, probe{name: "database", critical: true, run: h.checkDatabase})
	if redisClient != nil {
		h.probes = append(h.probes, probe{name: "redis", run: func(ctx context.Context) ServiceInfo {
			return checkRedis(ctx, redisClient)
		}})
	}
	if asynqInspector != nil {
		h.probes = append(h.probes, probe{name: "asynq", run: func(ctx context.Context) ServiceInfo {
			return h.checkAuditQueue(asynqInspector)
		}})
	}
	return h
}

// HealthStatus is the /health response body
type HealthStatus struct {
	Status      string                 `json:"status"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Uptime      string                 `json:"uptime"`
	Timestamp   time.Time              `json:"timestamp"`
	Services    map[string]ServiceInfo `json:"services"`
	System      SystemInfo             `json:"system"`
}

// ServiceInfo is the result of one dependency probe
type ServiceInfo struct {
	Status       string                 `json:"status"`
	Critical     bool                   `json:"critical"`
	Message      string                 `json:"message,omitempty"`
	ResponseTime string                 `json:"response_time,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// SystemInfo is process level runtime information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemoryAllocMB uint64 `json:"memory_alloc_mb"`
	NumGC         uint32 `json:"num_gc"`
}

// Health runs every probe concurrently. It answers 503 only when a critical
// dependency is down.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := h.runProbes(ctx)

	status := StatusHealthy
	for _, p := range h.probes {
		if services[p.name].Status == StatusHealthy {
			continue
		}
		if p.critical {
			status = StatusUnhealthy
			break
		}
		status = StatusDegraded
	}

	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	writeHealth(w, code, HealthStatus{
		Status:      status,
		Version:     h.version,
		Environment: h.env,
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:   time.Now().UTC(),
		Services:    services,
		System:      systemInfo(),
	}, h.logger)
}

// Readiness reports whether the database answers
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ready := true
	details := map[string]string{"database": "ready"}
	if err := h.db.Ping(ctx); err != nil {
		ready = false
		details["database"] = "not ready"
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, map[string]interface{}{
		"ready":   ready,
		"details": details,
	}, h.logger)
}

func (h *HealthHandler) runProbes(ctx context.Context) map[string]ServiceInfo {
	results := make([]ServiceInfo, len(h.probes))

	var wg sync.WaitGroup
	for i, p := range h.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			info := p.run(ctx)
			info.Critical = p.critical
			info.ResponseTime = time.Since(start).String()
			if info.Status != StatusHealthy {
				h.logger.WarnContext(ctx, "dependency check failed",
					slog.String("dependency", p.name),
					slog.Bool("critical", p.critical),
					slog.String("message", info.Message))
			}
			results[i] = info
		}()
	}
	wg.Wait()

	services := make(map[string]ServiceInfo, len(h.probes))
	for i, p := range h.probes {
		services[p.name] = results[i]
	}
	return services
}

func (h *HealthHandler) checkDatabase(ctx context.Context) ServiceInfo {
	if err := h.db.Ping(ctx); err != nil {
		return ServiceInfo{Status: StatusUnhealthy, Message: err.Error()}
	}
	return ServiceInfo{Status: StatusHealthy, Details: h.db.Health(ctx)}
}

// checkRedis probes the snapshot cache. Reads fall back to the database
// while it is down.
func checkRedis(ctx context.Context, client *redis.Client) ServiceInfo {
	if err := client.Ping(ctx).Err(); err != nil {
		return ServiceInfo{Status: StatusUnhealthy, Message: err.Error()}
	}
	stats := client.PoolStats()
	return ServiceInfo{Status: StatusHealthy, Details: map[string]interface{}{
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
	}}
}

// checkAuditQueue reports the backlog of the stock audit queue
func (h *HealthHandler) checkAuditQueue(inspector *asynq.Inspector) ServiceInfo {
	queues, err := inspector.Queues()
	if err != nil {
		return ServiceInfo{Status: StatusUnhealthy, Message: err.Error()}
	}
	if !slices.Contains(queues, h.auditQueue) {
		// nothing has been enqueued yet
		return ServiceInfo{Status: StatusHealthy, Details: map[string]interface{}{
			"queue":   h.auditQueue,
			"pending": 0,
		}}
	}

	q, err := inspector.GetQueueInfo(h.auditQueue)
	if err != nil {
		return ServiceInfo{Status: StatusUnhealthy, Message: err.Error()}
	}

	info := ServiceInfo{Status: StatusHealthy, Details: map[string]interface{}{
		"queue":     q.Queue,
		"pending":   q.Pending,
		"active":    q.Active,
		"retry":     q.Retry,
		"archived":  q.Archived,
		"processed": q.Processed,
		"paused":    q.Paused,
	}}
	if q.Paused {
		info.Status = StatusDegraded
		info.Message = "audit queue is paused"
	}
	if servers, err := inspector.Servers(); err == nil {
		info.Details["workers"] = len(servers)
	}
	return info
}

func systemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		MemoryAllocMB: m.Alloc / 1024 / 1024,
		NumGC:         m.NumGC,
	}
}

func writeHealth(w http.ResponseWriter, code int, body interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode health response", slog.String("error", err.Error()))
	}
}
