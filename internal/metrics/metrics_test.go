package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/verdantlabs/gardenwatch/internal/types"
)

func newTestService() (*Service, *time.Time) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	s := newServiceWithClock(func() time.Time { return now })
	return s, &now
}

func TestSnapshotEmpty(t *testing.T) {
	s, now := newTestService()
	*now = now.Add(90 * time.Second)

	r := s.Snapshot()
	assert.Empty(t, r.Alerts)
	assert.Zero(t, r.SMS.Sent)
	assert.Zero(t, r.SMS.Failed)
	assert.Zero(t, r.SMS.SuccessRate)
	assert.Equal(t, 90.0, r.Uptime)
	assert.Zero(t, r.APILatency[APIOpenMeteo].Count)
	assert.Zero(t, r.APILatency[APIBackend].Count)
}

func TestAlertCountsByType(t *testing.T) {
	s, _ := newTestService()
	s.RecordAlert(types.AlertHighTemperature)
	s.RecordAlert(types.AlertHighTemperature)
	s.RecordAlert(types.AlertStrongWind)

	r := s.Snapshot()
	assert.Equal(t, 2, r.Alerts[string(types.AlertHighTemperature)])
	assert.Equal(t, 1, r.Alerts[string(types.AlertStrongWind)])
}

func TestSMSSuccessRateRounding(t *testing.T) {
	s, _ := newTestService()
	s.RecordSMS(true)
	s.RecordSMS(true)
	s.RecordSMS(false)

	r := s.Snapshot()
	assert.Equal(t, 2, r.SMS.Sent)
	assert.Equal(t, 1, r.SMS.Failed)
	// 2/3 rounded to two decimals.
	assert.Equal(t, 0.67, r.SMS.SuccessRate)
}

func TestLatencyStats(t *testing.T) {
	s, _ := newTestService()
	s.RecordLatency(APIBackend, 100*time.Millisecond)
	s.RecordLatency(APIBackend, 300*time.Millisecond)
	s.RecordLatency(APIBackend, 200*time.Millisecond)

	stats := s.Snapshot().APILatency[APIBackend]
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 600.0, stats.TotalLatency)
	assert.Equal(t, 200.0, stats.AverageLatency)
	assert.Equal(t, 100.0, stats.MinLatency)
	assert.Equal(t, 300.0, stats.MaxLatency)
}

func TestLatencyWindowKeepsLastHundredSamples(t *testing.T) {
	s, _ := newTestService()
	for i := 1; i <= 150; i++ {
		s.RecordLatency(APIOpenMeteo, time.Duration(i)*time.Millisecond)
	}

	stats := s.Snapshot().APILatency[APIOpenMeteo]
	assert.Equal(t, 100, stats.Count)
	// Samples 1..50 were overwritten by 101..150.
	assert.Equal(t, 51.0, stats.MinLatency)
	assert.Equal(t, 150.0, stats.MaxLatency)
}

func TestUnknownAPIGetsItsOwnWindow(t *testing.T) {
	s, _ := newTestService()
	s.RecordLatency("geocoder", 40*time.Millisecond)

	stats := s.Snapshot().APILatency["geocoder"]
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 40.0, stats.TotalLatency)
}

func TestResetClearsCountersButNotStartTime(t *testing.T) {
	s, now := newTestService()
	s.RecordAlert(types.AlertHeavyRain)
	s.RecordSMS(true)
	s.RecordLatency(APIBackend, 50*time.Millisecond)

	*now = now.Add(time.Hour)
	s.Reset()

	r := s.Snapshot()
	assert.Empty(t, r.Alerts)
	assert.Zero(t, r.SMS.Sent)
	assert.Zero(t, r.APILatency[APIBackend].Count)
	assert.Equal(t, 3600.0, r.Uptime)
	assert.Equal(t, *now, r.LastReset)
}
