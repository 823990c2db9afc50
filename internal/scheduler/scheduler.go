// Package scheduler drives the alert pipeline: cache warm-up, the periodic
// evaluation tick, parallel per-garden dispatch, and the prioritized
// three-sink fan-out with per-sink failure isolation.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/verdantlabs/gardenwatch/internal/metrics"
	"github.com/verdantlabs/gardenwatch/internal/types"
	"go.uber.org/zap"
)

const (
	// DefaultEvaluationInterval is the time between evaluation rounds.
	DefaultEvaluationInterval = 5 * time.Minute
	// DefaultRefreshInterval is the scheduled plant cache refresh period.
	DefaultRefreshInterval = 24 * time.Hour
)

// AlertEvaluator produces alerts for one garden. It never returns an error;
// a failed evaluation is an empty result.
type AlertEvaluator interface {
	EvaluateGarden(ctx context.Context, garden types.Garden) []types.Alert
}

// UserFetcher looks up the alert recipient for SMS delivery.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID int) (*types.User, error)
}

// SMSSink is the primary notification channel.
type SMSSink interface {
	IsEnabled() bool
	SendAlert(ctx context.Context, alert types.Alert, user *types.User) bool
}

// BroadcastSink pushes alerts to live subscribers.
type BroadcastSink interface {
	Broadcast(alert types.Alert)
}

// HistorySink appends alerts to the durable record.
type HistorySink interface {
	SaveAlert(ctx context.Context, alert types.Alert) bool
}

// PlantWarmer is the cache lifecycle the scheduler owns.
type PlantWarmer interface {
	WarmUp(ctx context.Context, userIDs []int)
	StartPeriodicRefresh(ctx context.Context, userIDs []int, interval time.Duration)
	Stop()
}

// Scheduler owns the evaluation loop.
type Scheduler struct {
	gardens   []types.Garden
	engine    AlertEvaluator
	users     UserFetcher
	sms       SMSSink
	broadcast BroadcastSink
	history   HistorySink
	cache     PlantWarmer
	metrics   *metrics.Service
	logger    *zap.SugaredLogger

	evalInterval    time.Duration
	refreshInterval time.Duration
}

// New assembles a scheduler over the configured gardens.
func New(
	gardens []types.Garden,
	engine AlertEvaluator,
	users UserFetcher,
	sms SMSSink,
	broadcast BroadcastSink,
	history HistorySink,
	cache PlantWarmer,
	m *metrics.Service,
	logger *zap.SugaredLogger,
) *Scheduler {
	return &Scheduler{
		gardens:         gardens,
		engine:          engine,
		users:           users,
		sms:             sms,
		broadcast:       broadcast,
		history:         history,
		cache:           cache,
		metrics:         m,
		logger:          logger,
		evalInterval:    DefaultEvaluationInterval,
		refreshInterval: DefaultRefreshInterval,
	}
}

// Run warms the plant cache, starts the scheduled refresh, evaluates once
// immediately, then evaluates every interval until the context ends.
// Rounds run one at a time: a round that overruns the interval delays the
// next tick rather than interleaving with it.
func (s *Scheduler) Run(ctx context.Context) {
	userIDs := s.distinctUserIDs()

	s.logger.Infof("warming plant cache for %d users", len(userIDs))
	s.cache.WarmUp(ctx, userIDs)
	s.cache.StartPeriodicRefresh(ctx, userIDs, s.refreshInterval)
	defer s.cache.Stop()

	s.RunRound(ctx)

	ticker := time.NewTicker(s.evalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunRound(ctx)
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		}
	}
}

// RunRound evaluates every garden in parallel and waits for all of them to
// settle before returning.
func (s *Scheduler) RunRound(ctx context.Context) {
	start := time.Now()

	var wg sync.WaitGroup
	results := make([]bool, len(s.gardens))
	for i, g := range s.gardens {
		wg.Add(1)
		go func(i int, garden types.Garden) {
			defer wg.Done()
			results[i] = s.processGarden(ctx, garden)
		}(i, g)
	}
	wg.Wait()

	succeeded := 0
	for _, ok := range results {
		if ok {
			succeeded++
		}
	}
	s.logger.Infof("evaluation round complete: %d/%d gardens in %v",
		succeeded, len(s.gardens), time.Since(start).Round(time.Millisecond))
}

// processGarden evaluates one garden and fans each alert out to the sinks.
// It never panics out; a per-garden failure is contained here.
func (s *Scheduler) processGarden(ctx context.Context, garden types.Garden) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("garden %s processing panicked: %v", garden.GardenID, r)
			ok = false
		}
	}()

	alerts := s.engine.EvaluateGarden(ctx, garden)
	for _, alert := range alerts {
		s.metrics.RecordAlert(alert.AlertType)
		s.dispatchAlert(ctx, alert)
	}
	return true
}

// dispatchAlert runs the sinks sequentially in priority order — SMS,
// broadcast, history — each inside its own error boundary so one sink's
// failure never suppresses the next.
func (s *Scheduler) dispatchAlert(ctx context.Context, alert types.Alert) {
	s.guard("sms", alert, func() {
		if !s.sms.IsEnabled() {
			return
		}
		user, err := s.users.FetchUser(ctx, alert.UserID)
		if err != nil {
			s.logger.Warnf("cannot resolve SMS recipient for alert %s: %v", alert.AlertID, err)
			s.metrics.RecordSMS(false)
			return
		}
		s.metrics.RecordSMS(s.sms.SendAlert(ctx, alert, user))
	})

	s.guard("broadcast", alert, func() {
		s.broadcast.Broadcast(alert)
	})

	s.guard("history", alert, func() {
		if !s.history.SaveAlert(ctx, alert) {
			s.logger.Debugf("alert %s not persisted", alert.AlertID)
		}
	})
}

// guard isolates one sink invocation.
func (s *Scheduler) guard(sink string, alert types.Alert, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("%s sink panicked for alert %s: %v", sink, alert.AlertID, r)
		}
	}()
	fn()
}

// distinctUserIDs collects the unique garden owners in configuration order.
func (s *Scheduler) distinctUserIDs() []int {
	seen := make(map[int]bool, len(s.gardens))
	var ids []int
	for _, g := range s.gardens {
		if !seen[g.UserID] {
			seen[g.UserID] = true
			ids = append(ids, g.UserID)
		}
	}
	return ids
}
