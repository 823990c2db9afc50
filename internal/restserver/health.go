package restserver

import (
	"context"
	"time"
)

// Service statuses reported by /health.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// Overall statuses reported by /health.
const (
	OverallHealthy   = "healthy"
	OverallDegraded  = "degraded"
	OverallUnhealthy = "unhealthy"
)

// ServiceStatus is one dependency's health entry.
type ServiceStatus struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	Latency float64 `json:"latency,omitempty"`
}

// HealthReport is the /health response body.
type HealthReport struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceStatus `json:"services"`
}

// Probe checks one dependency and reports latency. A returned error maps
// to StatusError for critical services.
type Probe func(ctx context.Context) (time.Duration, error)

// HealthChecker aggregates per-dependency probes into the overall status.
type HealthChecker struct {
	backendProbe   Probe
	mongoProbe     Probe
	openMeteoProbe Probe
	smsEnabled     func() bool
	now            func() time.Time
}

// NewHealthChecker wires the dependency probes. mongoProbe may report an
// error for a degraded-but-accepted history store; smsEnabled reflects
// Twilio configuration.
func NewHealthChecker(backend, mongo, openMeteo Probe, smsEnabled func() bool) *HealthChecker {
	return &HealthChecker{
		backendProbe:   backend,
		mongoProbe:     mongo,
		openMeteoProbe: openMeteo,
		smsEnabled:     smsEnabled,
		now:            time.Now,
	}
}

// Check runs all probes and computes the overall status. The service is
// unhealthy iff the backend or the weather provider errors; otherwise it
// is degraded when any dependency is non-ok.
func (h *HealthChecker) Check(ctx context.Context) HealthReport {
	services := map[string]ServiceStatus{
		"postgres":  probeStatus(ctx, h.backendProbe, StatusError),
		"mongodb":   probeStatus(ctx, h.mongoProbe, StatusDegraded),
		"openmeteo": probeStatus(ctx, h.openMeteoProbe, StatusError),
		"twilio":    h.twilioStatus(),
	}

	overall := OverallHealthy
	if services["postgres"].Status == StatusError || services["openmeteo"].Status == StatusError {
		overall = OverallUnhealthy
	} else {
		for _, s := range services {
			if s.Status != StatusOK {
				overall = OverallDegraded
				break
			}
		}
	}

	return HealthReport{
		Status:    overall,
		Timestamp: h.now(),
		Services:  services,
	}
}

// probeStatus runs one probe; failures map to failStatus so non-critical
// dependencies degrade instead of erroring.
func probeStatus(ctx context.Context, probe Probe, failStatus string) ServiceStatus {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	latency, err := probe(probeCtx)
	if err != nil {
		return ServiceStatus{
			Status:  failStatus,
			Message: err.Error(),
			Latency: float64(latency.Milliseconds()),
		}
	}
	return ServiceStatus{
		Status:  StatusOK,
		Latency: float64(latency.Milliseconds()),
	}
}

func (h *HealthChecker) twilioStatus() ServiceStatus {
	if h.smsEnabled() {
		return ServiceStatus{Status: StatusOK}
	}
	return ServiceStatus{Status: StatusDegraded, Message: "SMS not configured"}
}
