// Package weather provides the Open-Meteo client used by the alert engine.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/verdantlabs/gardenwatch/internal/types"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public Open-Meteo forecast endpoint.
const DefaultBaseURL = "https://api.open-meteo.com"

// Client fetches current conditions for a coordinate. FetchWeather never
// returns an error; any failure yields a nil snapshot so one unreachable
// provider round does not fail the evaluation tick.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.SugaredLogger
	onLatency  func(time.Duration)
}

// NewClient creates a weather client. onLatency may be nil; when set it
// receives the round-trip duration of each fetch attempt.
func NewClient(baseURL string, logger *zap.SugaredLogger, onLatency func(time.Duration)) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		onLatency:  onLatency,
	}
}

// forecastResponse mirrors the subset of the Open-Meteo response we consume.
// Missing numeric fields decode to zero, which is the documented default.
type forecastResponse struct {
	Current struct {
		Temperature   float64 `json:"temperature_2m"`
		Precipitation float64 `json:"precipitation"`
		WindSpeed     float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily struct {
		TemperatureMax []float64 `json:"temperature_2m_max"`
		TemperatureMin []float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

// FetchWeather retrieves a normalized snapshot for the coordinate, or nil
// when the provider is unreachable or answers non-2xx.
func (c *Client) FetchWeather(ctx context.Context, lat, lon float64) *types.WeatherSnapshot {
	snapshot, err := c.fetch(ctx, lat, lon)
	if err != nil {
		c.logger.Warnf("weather fetch failed for %.4f,%.4f: %v", lat, lon, err)
		return nil
	}
	return snapshot
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error) {
	v := url.Values{}
	v.Set("latitude", fmt.Sprintf("%.6f", lat))
	v.Set("longitude", fmt.Sprintf("%.6f", lon))
	v.Set("current", "temperature_2m,precipitation,wind_speed_10m")
	v.Set("daily", "temperature_2m_max,temperature_2m_min")
	v.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+v.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building forecast request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.onLatency != nil {
		c.onLatency(time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("requesting forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("forecast request returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading forecast response: %w", err)
	}

	var f forecastResponse
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("decoding forecast response: %w", err)
	}

	s := &types.WeatherSnapshot{
		Temperature:   f.Current.Temperature,
		Precipitation: f.Current.Precipitation,
		WindSpeed:     f.Current.WindSpeed,
		ObservedAt:    time.Now(),
	}
	if len(f.Daily.TemperatureMax) > 0 {
		s.TemperatureMax = f.Daily.TemperatureMax[0]
	}
	if len(f.Daily.TemperatureMin) > 0 {
		s.TemperatureMin = f.Daily.TemperatureMin[0]
	}
	return s, nil
}

// Ping issues a minimal forecast request to verify the provider is
// reachable. Used by the health prober.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, err := c.fetch(ctx, 0, 0)
	return time.Since(start), err
}
