// Package restserver serves the operational HTTP surface: /health,
// /metrics, the /ws subscriber endpoint, and the alert history API.
package restserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/verdantlabs/gardenwatch/internal/broadcast"
	"github.com/verdantlabs/gardenwatch/internal/history"
	"github.com/verdantlabs/gardenwatch/internal/metrics"
	"go.uber.org/zap"
)

// Controller owns the HTTP server and its dependencies.
type Controller struct {
	ctx     context.Context
	wg      *sync.WaitGroup
	server  http.Server
	hub     *broadcast.Hub
	store   *history.Store
	metrics *metrics.Service
	health  *HealthChecker
	logger  *zap.SugaredLogger
}

// NewController builds the REST controller listening on the given port.
func NewController(
	ctx context.Context,
	wg *sync.WaitGroup,
	port string,
	hub *broadcast.Hub,
	store *history.Store,
	m *metrics.Service,
	health *HealthChecker,
	logger *zap.SugaredLogger,
) *Controller {
	c := &Controller{
		ctx:     ctx,
		wg:      wg,
		hub:     hub,
		store:   store,
		metrics: m,
		health:  health,
		logger:  logger,
	}
	c.server = http.Server{
		Addr:         ":" + port,
		Handler:      c.setupRouter(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return c
}

func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", c.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/metrics", c.handleMetrics).Methods(http.MethodGet)
	router.HandleFunc("/ws", c.handleSubscribe).Methods(http.MethodGet)
	router.HandleFunc("/api/alerts", c.handleAlertHistory).Methods(http.MethodGet)
	return router
}

// StartController begins serving and arranges a graceful stop when the
// controller context ends.
func (c *Controller) StartController() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.logger.Infof("REST server listening on %s", c.server.Addr)
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.server.Shutdown(shutdownCtx); err != nil {
			c.logger.Warnf("REST server shutdown: %v", err)
		}
		c.hub.CloseAll()
	}()
}
