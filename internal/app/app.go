// Package app wires the alert pipeline together and owns its lifecycle.
package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/verdantlabs/gardenwatch/internal/backend"
	"github.com/verdantlabs/gardenwatch/internal/broadcast"
	"github.com/verdantlabs/gardenwatch/internal/config"
	"github.com/verdantlabs/gardenwatch/internal/engine"
	"github.com/verdantlabs/gardenwatch/internal/history"
	"github.com/verdantlabs/gardenwatch/internal/log"
	"github.com/verdantlabs/gardenwatch/internal/metrics"
	"github.com/verdantlabs/gardenwatch/internal/plantcache"
	"github.com/verdantlabs/gardenwatch/internal/restserver"
	"github.com/verdantlabs/gardenwatch/internal/scheduler"
	"github.com/verdantlabs/gardenwatch/internal/sensitivity"
	"github.com/verdantlabs/gardenwatch/internal/sms"
	"github.com/verdantlabs/gardenwatch/internal/types"
	"github.com/verdantlabs/gardenwatch/internal/weather"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	gardens  []types.Garden
	profiles map[string]types.SensitivityProfile
	env      config.Env
	logger   *zap.SugaredLogger
}

// New creates a new application instance
func New(gardens []types.Garden, profiles map[string]types.SensitivityProfile, env config.Env, logger *zap.SugaredLogger) *App {
	return &App{
		gardens:  gardens,
		profiles: profiles,
		env:      env,
		logger:   logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	registry, err := sensitivity.NewRegistry(a.profiles)
	if err != nil {
		return err
	}

	m := metrics.NewService()

	weatherClient := weather.NewClient(weather.DefaultBaseURL, a.logger,
		func(d time.Duration) { m.RecordLatency(metrics.APIOpenMeteo, d) })
	backendClient := backend.NewClient(a.env.BackendURL, a.logger,
		func(d time.Duration) { m.RecordLatency(metrics.APIBackend, d) })

	cache := plantcache.New(backendClient, a.logger)
	alertEngine := engine.New(weatherClient, cache, registry, a.logger)

	smsChannel := sms.NewChannel(a.env.TwilioAccountSID, a.env.TwilioAuthToken, a.env.TwilioFromNumber, a.logger)
	hub := broadcast.NewHub(a.logger)

	store := history.NewStore(a.logger)
	store.Initialize(ctx, a.env.MongoURL)
	defer store.Close(context.Background())

	health := restserver.NewHealthChecker(
		backendClient.CheckHealth,
		store.Ping,
		weatherClient.Ping,
		smsChannel.IsEnabled,
	)

	rest := restserver.NewController(ctx, &wg, a.env.Port, hub, store, m, health, a.logger)
	rest.StartController()

	sched := scheduler.New(a.gardens, alertEngine, backendClient, smsChannel, hub, store, cache, m, a.logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	log.Infof("gardenwatch started: %d gardens, %d sensitivity profiles", len(a.gardens), len(a.profiles))

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
