package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/jmylchreest/streamfold/pkg/httpclient"
)

// CircuitReporter exposes per-host circuit breaker state.
type CircuitReporter interface {
	CircuitStates() map[string]httpclient.CircuitState
}

// ReadinessCheck reports whether a dependency is ready to serve.
type ReadinessCheck func(ctx context.Context) error

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	version   string
	startTime time.Time
	circuits  CircuitReporter
	checks    map[string]ReadinessCheck
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		checks:    make(map[string]ReadinessCheck),
	}
}

// WithCircuits sets the source of circuit breaker state.
func (h *HealthHandler) WithCircuits(circuits CircuitReporter) *HealthHandler {
	h.circuits = circuits
	return h
}

// WithReadinessCheck adds a named readiness check.
func (h *HealthHandler) WithReadinessCheck(name string, check ReadinessCheck) *HealthHandler {
	h.checks[name] = check
	return h
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service including system metrics and addon circuit states",
		Tags:        []string{"System"},
	}, h.GetHealth)

	huma.Register(api, huma.Operation{
		OperationID: "getLivez",
		Method:      http.MethodGet,
		Path:        "/livez",
		Summary:     "Liveness probe",
		Tags:        []string{"System"},
	}, h.GetLivez)

	huma.Register(api, huma.Operation{
		OperationID: "getReadyz",
		Method:      http.MethodGet,
		Path:        "/readyz",
		Summary:     "Readiness probe",
		Tags:        []string{"System"},
	}, h.GetReadyz)
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status        string          `json:"status"`
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	Uptime        string          `json:"uptime"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	CPUInfo       CPUInfo         `json:"cpu_info"`
	Memory        MemoryInfo      `json:"memory"`
	Circuits      []CircuitStatus `json:"circuits"`
}

// CPUInfo holds load averages.
type CPUInfo struct {
	Cores              int     `json:"cores"`
	Load1Min           float64 `json:"load_1min"`
	Load5Min           float64 `json:"load_5min"`
	Load15Min          float64 `json:"load_15min"`
	LoadPercentage1Min float64 `json:"load_percentage_1min"`
}

// MemoryInfo holds system and process memory usage.
type MemoryInfo struct {
	TotalMemoryMB     float64 `json:"total_memory_mb"`
	UsedMemoryMB      float64 `json:"used_memory_mb"`
	AvailableMemoryMB float64 `json:"available_memory_mb"`
	ProcessRSSMB      float64 `json:"process_rss_mb"`
	ProcessRSS        string  `json:"process_rss"`
	Goroutines        int     `json:"goroutines"`
}

// CircuitStatus is the breaker state for one addon host.
type CircuitStatus struct {
	Host  string `json:"host"`
	State string `json:"state"`
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(_ context.Context, _ *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	circuits := h.circuitStatuses()
	status := "healthy"
	for _, c := range circuits {
		if c.State != httpclient.CircuitClosed.String() {
			status = "degraded"
			break
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:        status,
			Timestamp:     now.UTC().Format(time.RFC3339),
			Version:       h.version,
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			CPUInfo:       cpuInfo(),
			Memory:        memoryInfo(),
			Circuits:      circuits,
		},
	}, nil
}

func (h *HealthHandler) circuitStatuses() []CircuitStatus {
	out := []CircuitStatus{}
	if h.circuits == nil {
		return out
	}
	for host, state := range h.circuits.CircuitStates() {
		out = append(out, CircuitStatus{Host: host, State: state.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

func cpuInfo() CPUInfo {
	info := CPUInfo{Cores: runtime.NumCPU()}

	avg, err := load.Avg()
	if err == nil && avg != nil {
		info.Load1Min = avg.Load1
		info.Load5Min = avg.Load5
		info.Load15Min = avg.Load15
		if info.Cores > 0 {
			info.LoadPercentage1Min = (avg.Load1 / float64(info.Cores)) * 100
		}
	}
	return info
}

const mib = 1024 * 1024

func memoryInfo() MemoryInfo {
	info := MemoryInfo{Goroutines: runtime.NumGoroutine()}

	vm, err := mem.VirtualMemory()
	if err == nil && vm != nil {
		info.TotalMemoryMB = float64(vm.Total) / mib
		info.UsedMemoryMB = float64(vm.Used) / mib
		info.AvailableMemoryMB = float64(vm.Available) / mib
	}

	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pids fit in int32
	if err != nil {
		return info
	}
	if m, err := proc.MemoryInfo(); err == nil && m != nil {
		info.ProcessRSSMB = float64(m.RSS) / mib
		info.ProcessRSS = humanize.IBytes(m.RSS)
	}
	return info
}

// LivezInput is the input for the liveness probe.
type LivezInput struct{}

// LivezOutput is the output for the liveness probe.
type LivezOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// GetLivez reports that the process is serving requests.
func (h *HealthHandler) GetLivez(_ context.Context, _ *LivezInput) (*LivezOutput, error) {
	out := &LivezOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// ReadyzInput is the input for the readiness probe.
type ReadyzInput struct{}

// ReadyzOutput is the output for the readiness probe.
type ReadyzOutput struct {
	Body struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
}

// GetReadyz runs every readiness check. The service is ready when at least
// one check is configured and all of them pass.
func (h *HealthHandler) GetReadyz(ctx context.Context, _ *ReadyzInput) (*ReadyzOutput, error) {
	out := &ReadyzOutput{}
	out.Body.Components = make(map[string]string, len(h.checks))

	ready := len(h.checks) > 0
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			out.Body.Components[name] = err.Error()
			ready = false
			continue
		}
		out.Body.Components[name] = "ok"
	}

	out.Body.Status = "ready"
	if !ready {
		out.Body.Status = "not_ready"
	}
	return out, nil
}
