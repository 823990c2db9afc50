// Package backend is the read-only HTTP client for the plants/users CRUD
// service. Both fetch operations share a bounded retry loop with
// exponential backoff.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/verdantlabs/gardenwatch/internal/types"
	"go.uber.org/zap"
)

// ErrBackendUnavailable is returned once every retry attempt against the
// backend has been exhausted.
var ErrBackendUnavailable = errors.New("backend unavailable")

// retrySchedule is the wait before each retry attempt. Three total attempts
// means only the first two entries are ever used.
var retrySchedule = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// maxAttempts bounds the HTTP attempts per operation.
const maxAttempts = 3

// Client talks to the backend CRUD service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.SugaredLogger
	onLatency  func(time.Duration)

	// sleep is replaceable in tests so retry timing can be observed
	// without waiting. It returns false if the context ended first.
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewClient creates a backend client for the given base URL. onLatency may
// be nil; when set it receives one sample per operation covering the whole
// attempt chain.
func NewClient(baseURL string, logger *zap.SugaredLogger, onLatency func(time.Duration)) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		onLatency:  onLatency,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// FetchUserPlants returns all plants owned by the user.
func (c *Client) FetchUserPlants(ctx context.Context, userID int) ([]types.Plant, error) {
	var plants []types.Plant
	url := fmt.Sprintf("%s/api/plants?userId=%d", c.baseURL, userID)
	if err := c.getJSON(ctx, url, &plants); err != nil {
		return nil, err
	}
	return plants, nil
}

// FetchUser returns the user profile, including the nullable phone number
// used for SMS delivery.
func (c *Client) FetchUser(ctx context.Context, userID int) (*types.User, error) {
	var user types.User
	url := fmt.Sprintf("%s/api/users/%d", c.baseURL, userID)
	if err := c.getJSON(ctx, url, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CheckHealth queries the backend health endpoint and reports its latency.
func (c *Client) CheckHealth(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return elapsed, fmt.Errorf("backend health returned %s", resp.Status)
	}
	return elapsed, nil
}

// getJSON performs a GET with up to maxAttempts tries, retrying on
// transport errors and any non-2xx status. The latency callback receives
// one sample for the whole chain.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	start := time.Now()
	defer func() {
		if c.onLatency != nil {
			c.onLatency(time.Since(start))
		}
	}()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := retrySchedule[attempt-1]
			c.logger.Debugf("backend retry %d for %s after %v: %v", attempt, url, delay, lastErr)
			if !c.sleep(ctx, delay) {
				return fmt.Errorf("%w: %v", ErrBackendUnavailable, ctx.Err())
			}
		}

		lastErr = c.tryOnce(ctx, url, out)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: %v", ErrBackendUnavailable, lastErr)
}

func (c *Client) tryOnce(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("backend returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
