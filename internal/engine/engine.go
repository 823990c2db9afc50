// Package engine evaluates one garden's current weather against the
// sensitivity profiles of its plants and produces alerts.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/verdantlabs/gardenwatch/internal/sensitivity"
	"github.com/verdantlabs/gardenwatch/internal/types"
	"go.uber.org/zap"
)

// WeatherFetcher supplies current conditions for a coordinate, or nil when
// the provider is unavailable.
type WeatherFetcher interface {
	FetchWeather(ctx context.Context, lat, lon float64) *types.WeatherSnapshot
}

// PlantSource supplies the fresh cached plant list for a user, or nil on a
// cache miss. The engine treats a miss as "no plants, no alerts".
type PlantSource interface {
	Get(userID int) []types.Plant
}

// Engine runs the four threshold rules for a garden.
type Engine struct {
	weather  WeatherFetcher
	plants   PlantSource
	registry *sensitivity.Registry
	logger   *zap.SugaredLogger
	now      func() time.Time
	newID    func() string
}

// New creates an alert engine.
func New(weather WeatherFetcher, plants PlantSource, registry *sensitivity.Registry, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		weather:  weather,
		plants:   plants,
		registry: registry,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// typedProfile pairs the plant type key from the garden with its resolved
// profile, so an unknown type keeps its own key in affectedPlantTypes even
// though it evaluates with the default thresholds.
type typedProfile struct {
	plantType string
	profile   types.SensitivityProfile
}

// rule describes one threshold check: whether a profile is breached and
// the threshold value it contributes.
type rule struct {
	alertType types.AlertType
	metric    types.Metric
	value     func(w *types.WeatherSnapshot) float64
	breached  func(value float64, p types.SensitivityProfile) bool
	threshold func(p types.SensitivityProfile) float64
	// pickThreshold reduces the breached profiles' thresholds to the
	// most restrictive one.
	pickMax bool
}

var rules = []rule{
	{
		alertType: types.AlertHighTemperature,
		metric:    types.MetricTemperature,
		value:     func(w *types.WeatherSnapshot) float64 { return w.Temperature },
		breached:  func(v float64, p types.SensitivityProfile) bool { return v > p.MaxTemperature },
		threshold: func(p types.SensitivityProfile) float64 { return p.MaxTemperature },
	},
	{
		alertType: types.AlertLowTemperature,
		metric:    types.MetricTemperature,
		value:     func(w *types.WeatherSnapshot) float64 { return w.Temperature },
		breached:  func(v float64, p types.SensitivityProfile) bool { return v < p.MinTemperature },
		threshold: func(p types.SensitivityProfile) float64 { return p.MinTemperature },
		pickMax:   true,
	},
	{
		alertType: types.AlertHeavyRain,
		metric:    types.MetricPrecipitation,
		value:     func(w *types.WeatherSnapshot) float64 { return w.Precipitation },
		breached:  func(v float64, p types.SensitivityProfile) bool { return v > p.MaxPrecipitation },
		threshold: func(p types.SensitivityProfile) float64 { return p.MaxPrecipitation },
	},
	{
		alertType: types.AlertStrongWind,
		metric:    types.MetricWindSpeed,
		value:     func(w *types.WeatherSnapshot) float64 { return w.WindSpeed },
		breached:  func(v float64, p types.SensitivityProfile) bool { return v > p.MaxWindSpeed },
		threshold: func(p types.SensitivityProfile) float64 { return p.MaxWindSpeed },
	},
}

// EvaluateGarden fetches weather and cached plants for the garden and
// returns zero to four alerts, one per breached rule. All comparisons are
// strict; a value exactly at a threshold never alerts. Errors never
// propagate: any internal failure yields an empty result.
func (e *Engine) EvaluateGarden(ctx context.Context, garden types.Garden) (alerts []types.Alert) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("evaluation panicked for garden %s: %v", garden.GardenID, r)
			alerts = nil
		}
	}()

	weather := e.weather.FetchWeather(ctx, garden.Latitude, garden.Longitude)
	if weather == nil {
		return nil
	}

	plants := e.plants.Get(garden.UserID)
	if len(plants) == 0 {
		return nil
	}

	profiles := e.distinctProfiles(plants)

	for _, r := range rules {
		value := r.value(weather)
		var hit []typedProfile
		for _, tp := range profiles {
			if r.breached(value, tp.profile) {
				hit = append(hit, tp)
			}
		}
		if len(hit) == 0 {
			continue
		}

		threshold := r.threshold(hit[0].profile)
		affectedTypes := make([]string, 0, len(hit))
		for _, tp := range hit {
			affectedTypes = append(affectedTypes, tp.plantType)
			t := r.threshold(tp.profile)
			if (r.pickMax && t > threshold) || (!r.pickMax && t < threshold) {
				threshold = t
			}
		}

		alerts = append(alerts, types.Alert{
			AlertID:            e.newID(),
			GardenID:           garden.GardenID,
			UserID:             garden.UserID,
			GardenName:         garden.Name,
			Timestamp:          e.now(),
			AlertType:          r.alertType,
			Metric:             r.metric,
			CurrentValue:       value,
			Threshold:          threshold,
			AffectedPlantTypes: affectedTypes,
			AffectedPlantNames: plantNamesByType(plants, affectedTypes),
		})
	}

	return alerts
}

// distinctProfiles resolves one profile per distinct plant type, in first
// appearance order.
func (e *Engine) distinctProfiles(plants []types.Plant) []typedProfile {
	seen := make(map[string]bool, len(plants))
	var profiles []typedProfile
	for _, p := range plants {
		if seen[p.Type] {
			continue
		}
		seen[p.Type] = true
		profiles = append(profiles, typedProfile{
			plantType: p.Type,
			profile:   e.registry.Resolve(p.Type),
		})
	}
	return profiles
}

// plantNamesByType collects display names of plants whose type is in the
// affected set.
func plantNamesByType(plants []types.Plant, affectedTypes []string) []string {
	affected := make(map[string]bool, len(affectedTypes))
	for _, t := range affectedTypes {
		affected[t] = true
	}
	names := make([]string, 0, len(plants))
	for _, p := range plants {
		if affected[p.Type] && p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names
}
