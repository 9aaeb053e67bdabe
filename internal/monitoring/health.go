package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/23skdu/longbow-windage/internal/logger"
	"github.com/23skdu/longbow-windage/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

// Trials slower than this raise an error alert.
const slowTrialThreshold = 30 * time.Second

// Accumulation bias beyond this magnitude raises a warning alert.
const biasAlertThreshold = 1.0

// HealthStatus represents the health status of the system
type HealthStatus struct {
	Status     string         `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
	Version    string         `json:"version"`
	Uptime     time.Duration  `json:"uptime"`
	System     SystemInfo     `json:"system"`
	Rounder    RounderInfo    `json:"rounder"`
	Experiment ExperimentInfo `json:"experiment"`
	Alerts     []Alert        `json:"alerts"`
}

// SystemInfo contains system-level information
type SystemInfo struct {
	GoVersion      string  `json:"go_version"`
	OS             string  `json:"os"`
	Arch           string  `json:"arch"`
	NumCPU         int     `json:"num_cpu"`
	MemoryMB       int     `json:"memory_mb"`
	MemoryUsedMB   int     `json:"memory_used_mb"`
	MemoryUsagePct float64 `json:"memory_usage_pct"`
}

// RounderInfo describes the rounder configuration the process is running
type RounderInfo struct {
	Kind      string `json:"kind"`
	Policy    string `json:"policy"`
	Seed      int64  `json:"seed"`
	Decisions int64  `json:"decisions"`
}

// ExperimentInfo contains aggregate statistics over recorded trials
type ExperimentInfo struct {
	TrialsRecorded int       `json:"trials_recorded"`
	StepsPerSecond float64   `json:"steps_per_second"`
	AvgTrialMs     float64   `json:"avg_trial_ms"`
	P95TrialMs     float64   `json:"p95_trial_ms"`
	MeanBias       float64   `json:"mean_bias"`
	WorstBias      float64   `json:"worst_bias"`
	LastTrial      time.Time `json:"last_trial"`
}

// Alert represents a system alert
type Alert struct {
	Level      string     `json:"level"`     // info, warning, error, critical
	Component  string     `json:"component"` // experiment, accuracy, system
	Message    string     `json:"message"`
	Timestamp  time.Time  `json:"timestamp"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// HealthMonitor monitors system health
type HealthMonitor struct {
	startTime    time.Time
	server       *http.Server
	mu           sync.RWMutex
	alerts       []Alert
	lastTrial    time.Time
	trialHistory []TrialPoint
	rounderKind  string
	policy       string
	seed         int64
}

// TrialPoint represents one recorded accumulation trial
type TrialPoint struct {
	Timestamp time.Time
	Steps     int
	Bias      float64
	Duration  time.Duration
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor() *HealthMonitor {
	return &HealthMonitor{
		startTime:    time.Now(),
		alerts:       make([]Alert, 0),
		trialHistory: make([]TrialPoint, 0),
	}
}

// SetRounderInfo records which rounder configuration the process is running,
// for the status endpoint.
func (hm *HealthMonitor) SetRounderInfo(kind, policy string, seed int64) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.rounderKind = kind
	hm.policy = policy
	hm.seed = seed
}

// Start begins health monitoring
func (hm *HealthMonitor) Start(addr string) error {
	mux := http.NewServeMux()

	// Health endpoint
	mux.HandleFunc("/health", hm.handleHealth)
	mux.HandleFunc("/healthz", hm.handleHealth) // Kubernetes compatibility

	// Metrics endpoint (Prometheus)
	mux.Handle("/metrics", promhttp.Handler())

	// Detailed status endpoint
	mux.HandleFunc("/status", hm.handleDetailedStatus)

	// Admin endpoints
	mux.HandleFunc("/admin/alerts", hm.handleAlerts)
	mux.HandleFunc("/admin/clear-alerts", hm.handleClearAlerts)

	hm.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Log.Info("health monitor starting", "addr", addr)
	return hm.server.ListenAndServe()
}

// Stop stops health monitoring
func (hm *HealthMonitor) Stop(ctx context.Context) error {
	if hm.server != nil {
		return hm.server.Shutdown(ctx)
	}
	return nil
}

// RecordTrial records one finished accumulation trial
func (hm *HealthMonitor) RecordTrial(steps int, bias float64, duration time.Duration) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	now := time.Now()
	hm.lastTrial = now

	// Record to Prometheus
	metrics.RecordTrialDuration(duration.Seconds())

	point := TrialPoint{
		Timestamp: now,
		Steps:     steps,
		Bias:      bias,
		Duration:  duration,
	}

	hm.trialHistory = append(hm.trialHistory, point)

	// Keep only last 1000 points
	if len(hm.trialHistory) > 1000 {
		hm.trialHistory = hm.trialHistory[1:]
	}

	hm.checkTrialAlerts(point)
}

// AddAlert adds a new alert
func (hm *HealthMonitor) AddAlert(level, component, message string) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.addAlertLocked(level, component, message)
}

// addAlertLocked appends an alert. Callers must hold hm.mu.
func (hm *HealthMonitor) addAlertLocked(level, component, message string) {
	alert := Alert{
		Level:     level,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
		Resolved:  false,
	}

	hm.alerts = append(hm.alerts, alert)

	// Keep only last 100 alerts
	if len(hm.alerts) > 100 {
		hm.alerts = hm.alerts[1:]
	}

	logger.Log.Warn("alert raised", "level", level, "component", component, "message", message)
}

// ResolveAlert resolves an alert
func (hm *HealthMonitor) ResolveAlert(index int) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if index >= 0 && index < len(hm.alerts) {
		now := time.Now()
		hm.alerts[index].Resolved = true
		hm.alerts[index].ResolvedAt = &now
	}
}

// HTTP Handlers

func (hm *HealthMonitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := hm.getHealthStatus()

	if status.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(map[string]string{
		"status":    status.Status,
		"timestamp": status.Timestamp.Format(time.RFC3339),
	})
}

func (hm *HealthMonitor) handleDetailedStatus(w http.ResponseWriter, r *http.Request) {
	status := hm.getHealthStatus()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (hm *HealthMonitor) handleAlerts(w http.ResponseWriter, r *http.Request) {
	hm.mu.RLock()
	alerts := make([]Alert, len(hm.alerts))
	copy(alerts, hm.alerts)
	hm.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}

func (hm *HealthMonitor) handleClearAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hm.mu.Lock()
	hm.alerts = hm.alerts[:0]
	hm.mu.Unlock()

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "alerts cleared"})
}

// Health status calculation

func (hm *HealthMonitor) getHealthStatus() HealthStatus {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	status := "healthy"

	// Check for critical alerts
	for _, alert := range hm.alerts {
		if alert.Level == "critical" && !alert.Resolved {
			status = "critical"
			break
		} else if alert.Level == "error" && !alert.Resolved {
			status = "degraded"
		}
	}

	expInfo := hm.calculateExperimentInfo()
	sysInfo := hm.getSystemInfo()

	rounderInfo := RounderInfo{
		Kind:      hm.rounderKind,
		Policy:    hm.policy,
		Seed:      hm.seed,
		Decisions: metrics.TotalDecisions(),
	}

	alerts := make([]Alert, len(hm.alerts))
	copy(alerts, hm.alerts)

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Version:    version,
		Uptime:     time.Since(hm.startTime),
		System:     sysInfo,
		Rounder:    rounderInfo,
		Experiment: expInfo,
		Alerts:     alerts,
	}
}

func (hm *HealthMonitor) getSystemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:      runtime.Version(),
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
		NumCPU:         runtime.NumCPU(),
		MemoryMB:       int(m.Sys / 1024 / 1024),
		MemoryUsedMB:   int(m.Alloc / 1024 / 1024),
		MemoryUsagePct: float64(m.Alloc) / float64(m.Sys) * 100,
	}
}

func (hm *HealthMonitor) calculateExperimentInfo() ExperimentInfo {
	if len(hm.trialHistory) == 0 {
		return ExperimentInfo{
			LastTrial: hm.lastTrial,
		}
	}

	var totalSteps int
	var totalDuration time.Duration
	var biasSum, worstBias float64
	latencies := make([]float64, 0, len(hm.trialHistory))

	for _, point := range hm.trialHistory {
		totalSteps += point.Steps
		totalDuration += point.Duration
		biasSum += point.Bias
		if math.Abs(point.Bias) > math.Abs(worstBias) {
			worstBias = point.Bias
		}
		latencies = append(latencies, float64(point.Duration.Nanoseconds())/1e6)
	}

	sort.Float64s(latencies)
	p95Index := int(float64(len(latencies)) * 0.95)
	if p95Index >= len(latencies) {
		p95Index = len(latencies) - 1
	}

	stepsPerSecond := 0.0
	if totalDuration > 0 {
		stepsPerSecond = float64(totalSteps) / totalDuration.Seconds()
	}

	return ExperimentInfo{
		TrialsRecorded: len(hm.trialHistory),
		StepsPerSecond: stepsPerSecond,
		AvgTrialMs:     float64(totalDuration.Nanoseconds()) / float64(len(hm.trialHistory)) / 1e6,
		P95TrialMs:     latencies[p95Index],
		MeanBias:       biasSum / float64(len(hm.trialHistory)),
		WorstBias:      worstBias,
		LastTrial:      hm.lastTrial,
	}
}

// Alert checking functions

func (hm *HealthMonitor) checkTrialAlerts(point TrialPoint) {
	if math.IsNaN(point.Bias) || math.IsInf(point.Bias, 0) {
		hm.addAlertLocked("error", "accuracy",
			fmt.Sprintf("Accumulation total went non-finite after %d steps", point.Steps))
		return
	}

	if math.Abs(point.Bias) > biasAlertThreshold {
		hm.addAlertLocked("warning", "accuracy",
			fmt.Sprintf("Large accumulation bias: %+.6g", point.Bias))
	}

	if point.Duration > slowTrialThreshold {
		hm.addAlertLocked("error", "experiment",
			fmt.Sprintf("Slow trial: %.2f s for %d steps", point.Duration.Seconds(), point.Steps))
	}
}
