// Package metrics keeps in-process counters and bounded latency windows for
// the /metrics endpoint. Everything here is safe for concurrent use from
// the scheduler, the clients and the HTTP handlers.
package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/verdantlabs/gardenwatch/internal/types"
)

// windowSize bounds each latency window to the most recent samples.
const windowSize = 100

// API names used as latency window keys.
const (
	APIOpenMeteo = "openmeteo"
	APIBackend   = "backend"
)

// latencyWindow is a mutex-free ring of the last windowSize samples in
// milliseconds; the owning Service serializes access.
type latencyWindow struct {
	samples [windowSize]float64
	next    int
	count   int
}

func (w *latencyWindow) add(ms float64) {
	w.samples[w.next] = ms
	w.next = (w.next + 1) % windowSize
	if w.count < windowSize {
		w.count++
	}
}

func (w *latencyWindow) stats() LatencyStats {
	s := LatencyStats{}
	if w.count == 0 {
		return s
	}
	s.Count = w.count
	s.MinLatency = math.MaxFloat64
	for i := 0; i < w.count; i++ {
		v := w.samples[i]
		s.TotalLatency += v
		if v < s.MinLatency {
			s.MinLatency = v
		}
		if v > s.MaxLatency {
			s.MaxLatency = v
		}
	}
	s.AverageLatency = s.TotalLatency / float64(w.count)
	return s
}

// LatencyStats summarizes one API's latency window, in milliseconds.
type LatencyStats struct {
	Count          int     `json:"count"`
	TotalLatency   float64 `json:"totalLatency"`
	AverageLatency float64 `json:"averageLatency"`
	MinLatency     float64 `json:"minLatency"`
	MaxLatency     float64 `json:"maxLatency"`
}

// SMSStats reports outbound SMS outcomes.
type SMSStats struct {
	Sent        int     `json:"sent"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"successRate"`
}

// Report is the JSON document served by /metrics.
type Report struct {
	Alerts     map[string]int          `json:"alerts"`
	SMS        SMSStats                `json:"sms"`
	APILatency map[string]LatencyStats `json:"apiLatency"`
	Uptime     float64                 `json:"uptime"`
	LastReset  time.Time               `json:"lastReset"`
}

// Service accumulates counters and latency samples.
type Service struct {
	mu          sync.Mutex
	alertCounts map[types.AlertType]int
	smsSent     int
	smsFailed   int
	latencies   map[string]*latencyWindow
	startedAt   time.Time
	lastReset   time.Time
	now         func() time.Time
}

// NewService returns an empty metrics service.
func NewService() *Service {
	return newServiceWithClock(time.Now)
}

func newServiceWithClock(now func() time.Time) *Service {
	t := now()
	return &Service{
		alertCounts: make(map[types.AlertType]int),
		latencies: map[string]*latencyWindow{
			APIOpenMeteo: {},
			APIBackend:   {},
		},
		startedAt: t,
		lastReset: t,
		now:       now,
	}
}

// RecordAlert counts one emitted alert of the given type.
func (s *Service) RecordAlert(t types.AlertType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alertCounts[t]++
}

// RecordSMS counts one SMS attempt outcome.
func (s *Service) RecordSMS(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if success {
		s.smsSent++
	} else {
		s.smsFailed++
	}
}

// RecordLatency appends a round-trip sample for the named API.
func (s *Service) RecordLatency(api string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.latencies[api]
	if !ok {
		w = &latencyWindow{}
		s.latencies[api] = w
	}
	w.add(float64(d.Milliseconds()))
}

// Reset clears all counters and windows but keeps process start time.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alertCounts = make(map[types.AlertType]int)
	s.smsSent = 0
	s.smsFailed = 0
	for k := range s.latencies {
		s.latencies[k] = &latencyWindow{}
	}
	s.lastReset = s.now()
}

// Snapshot produces the report served by /metrics. The SMS success rate is
// sent/(sent+failed) rounded to two decimals, or 0 when nothing was sent.
func (s *Service) Snapshot() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	alerts := make(map[string]int, len(s.alertCounts))
	for t, n := range s.alertCounts {
		alerts[string(t)] = n
	}

	sms := SMSStats{Sent: s.smsSent, Failed: s.smsFailed}
	if total := s.smsSent + s.smsFailed; total > 0 {
		sms.SuccessRate = math.Round(float64(s.smsSent)/float64(total)*100) / 100
	}

	lat := make(map[string]LatencyStats, len(s.latencies))
	for api, w := range s.latencies {
		lat[api] = w.stats()
	}

	return Report{
		Alerts:     alerts,
		SMS:        sms,
		APILatency: lat,
		Uptime:     s.now().Sub(s.startedAt).Seconds(),
		LastReset:  s.lastReset,
	}
}
