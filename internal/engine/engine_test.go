package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantlabs/gardenwatch/internal/sensitivity"
	"github.com/verdantlabs/gardenwatch/internal/types"
	"go.uber.org/zap"
)

type fakeWeather struct {
	snapshot *types.WeatherSnapshot
}

func (f *fakeWeather) FetchWeather(ctx context.Context, lat, lon float64) *types.WeatherSnapshot {
	return f.snapshot
}

type fakePlants struct {
	plants map[int][]types.Plant
}

func (f *fakePlants) Get(userID int) []types.Plant {
	return f.plants[userID]
}

var testGarden = types.Garden{
	GardenID:  "g1",
	UserID:    1,
	Name:      "G1",
	Latitude:  40,
	Longitude: -3,
}

func newTestEngine(t *testing.T, weather *types.WeatherSnapshot, plants []types.Plant, profiles map[string]types.SensitivityProfile) *Engine {
	t.Helper()
	if profiles == nil {
		profiles = map[string]types.SensitivityProfile{
			"default": {PlantType: "default", MaxTemperature: 40, MinTemperature: -10, MaxPrecipitation: 50, MaxWindSpeed: 100},
			"tomato":  {PlantType: "tomato", MaxTemperature: 35, MinTemperature: 5, MaxPrecipitation: 20, MaxWindSpeed: 50},
			"lettuce": {PlantType: "lettuce", MaxTemperature: 25, MinTemperature: 2, MaxPrecipitation: 15, MaxWindSpeed: 40},
		}
	}
	registry, err := sensitivity.NewRegistry(profiles)
	require.NoError(t, err)

	e := New(
		&fakeWeather{snapshot: weather},
		&fakePlants{plants: map[int][]types.Plant{1: plants}},
		registry,
		zap.NewNop().Sugar(),
	)
	seq := 0
	e.newID = func() string { seq++; return fmt.Sprintf("alert-%d", seq) }
	e.now = func() time.Time { return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestHighTemperatureSingleType(t *testing.T) {
	e := newTestEngine(t,
		&types.WeatherSnapshot{Temperature: 36},
		[]types.Plant{{UserID: 1, Type: "tomato", Name: "T1"}},
		nil,
	)

	alerts := e.EvaluateGarden(context.Background(), testGarden)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, types.AlertHighTemperature, a.AlertType)
	assert.Equal(t, types.MetricTemperature, a.Metric)
	assert.Equal(t, 36.0, a.CurrentValue)
	assert.Equal(t, 35.0, a.Threshold)
	assert.Equal(t, []string{"tomato"}, a.AffectedPlantTypes)
	assert.Equal(t, []string{"T1"}, a.AffectedPlantNames)
	assert.Equal(t, "g1", a.GardenID)
	assert.Equal(t, 1, a.UserID)
	assert.Equal(t, "G1", a.GardenName)
}

func TestValueExactlyAtThresholdDoesNotAlert(t *testing.T) {
	e := newTestEngine(t,
		&types.WeatherSnapshot{Temperature: 35},
		[]types.Plant{{UserID: 1, Type: "tomato", Name: "T1"}},
		nil,
	)

	alerts := e.EvaluateGarden(context.Background(), testGarden)
	assert.Empty(t, alerts)
}

func TestMostRestrictiveThreshold(t *testing.T) {
	e := newTestEngine(t,
		&types.WeatherSnapshot{Temperature: 30},
		[]types.Plant{
			{UserID: 1, Type: "tomato", Name: "T1"},
			{UserID: 1, Type: "lettuce", Name: "L1"},
		},
		nil,
	)

	alerts := e.EvaluateGarden(context.Background(), testGarden)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, types.AlertHighTemperature, a.AlertType)
	assert.Equal(t, 25.0, a.Threshold)
	assert.Equal(t, []string{"lettuce"}, a.AffectedPlantTypes)
	assert.Equal(t, []string{"L1"}, a.AffectedPlantNames)
}

func TestMostRestrictiveThresholdBothBreached(t *testing.T) {
	e := newTestEngine(t,
		&types.WeatherSnapshot{Temperature: 37},
		[]types.Plant{
			{UserID: 1, Type: "tomato", Name: "T1"},
			{UserID: 1, Type: "lettuce", Name: "L1"},
		},
		nil,
	)

	alerts := e.EvaluateGarden(context.Background(), testGarden)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, 25.0, a.Threshold)
	assert.ElementsMatch(t, []string{"tomato", "lettuce"}, a.AffectedPlantTypes)
	assert.ElementsMatch(t, []string{"T1", "L1"}, a.AffectedPlantNames)
}

func TestLowTemperatureUsesMaximumOfMinThresholds(t *testing.T) {
	e := newTestEngine(t,
		&types.WeatherSnapshot{Temperature: 1},
		[]types.Plant{
			{UserID: 1, Type: "tomato", Name: "T1"},
			{UserID: 1, Type: "lettuce", Name: "L1"},
		},
		nil,
	)

	alerts := e.EvaluateGarden(context.Background(), testGarden)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, types.AlertLowTemperature, a.AlertType)
	// tomato min 5, lettuce min 2: the most restrictive low bound is the max.
	assert.Equal(t, 5.0, a.Threshold)
	assert.ElementsMatch(t, []string{"tomato", "lettuce"}, a.AffectedPlantTypes)
}

func TestMultipleRulesBreachedEmitOneAlertEach(t *testing.T) {
	profiles := map[string]types.SensitivityProfile{
		"default": {PlantType: "default", MaxTemperature: 35, MinTemperature: 0, MaxPrecipitation: 20, MaxWindSpeed: 50},
	}
	e := newTestEngine(t,
		&types.WeatherSnapshot{Temperature: 40, Precipitation: 30, WindSpeed: 60},
		[]types.Plant{{UserID: 1, Type: "fern", Name: "F1"}},
		profiles,
	)

	alerts := e.EvaluateGarden(context.Background(), testGarden)
	require.Len(t, alerts, 3)

	got := make(map[types.AlertType]types.Alert, len(alerts))
	for _, a := range alerts {
		got[a.AlertType] = a
	}
	assert.Contains(t, got, types.AlertHighTemperature)
	assert.Contains(t, got, types.AlertHeavyRain)
	assert.Contains(t, got, types.AlertStrongWind)
	assert.NotContains(t, got, types.AlertLowTemperature)

	assert.Equal(t, 30.0, got[types.AlertHeavyRain].CurrentValue)
	assert.Equal(t, types.MetricPrecipitation, got[types.AlertHeavyRain].Metric)
	assert.Equal(t, 60.0, got[types.AlertStrongWind].CurrentValue)
	assert.Equal(t, types.MetricWindSpeed, got[types.AlertStrongWind].Metric)
}

func TestUnknownTypeKeepsItsKeyWithDefaultThresholds(t *testing.T) {
	profiles := map[string]types.SensitivityProfile{
		"default": {PlantType: "default", MaxTemperature: 30, MinTemperature: 0, MaxPrecipitation: 20, MaxWindSpeed: 50},
	}
	e := newTestEngine(t,
		&types.WeatherSnapshot{Temperature: 31},
		[]types.Plant{{UserID: 1, Type: "orchid", Name: "O1"}},
		profiles,
	)

	alerts := e.EvaluateGarden(context.Background(), testGarden)
	require.Len(t, alerts, 1)
	assert.Equal(t, []string{"orchid"}, alerts[0].AffectedPlantTypes)
	assert.Equal(t, []string{"O1"}, alerts[0].AffectedPlantNames)
	assert.Equal(t, 30.0, alerts[0].Threshold)
}

func TestNoPlantsNoAlerts(t *testing.T) {
	e := newTestEngine(t,
		&types.WeatherSnapshot{Temperature: 99, Precipitation: 99, WindSpeed: 99},
		nil,
		nil,
	)

	alerts := e.EvaluateGarden(context.Background(), testGarden)
	assert.Empty(t, alerts)
}

func TestNoWeatherNoAlerts(t *testing.T) {
	e := newTestEngine(t,
		nil,
		[]types.Plant{{UserID: 1, Type: "tomato", Name: "T1"}},
		nil,
	)

	alerts := e.EvaluateGarden(context.Background(), testGarden)
	assert.Empty(t, alerts)
}

func TestDuplicateTypesEvaluateOnce(t *testing.T) {
	e := newTestEngine(t,
		&types.WeatherSnapshot{Temperature: 36},
		[]types.Plant{
			{UserID: 1, Type: "tomato", Name: "T1"},
			{UserID: 1, Type: "tomato", Name: "T2"},
		},
		nil,
	)

	alerts := e.EvaluateGarden(context.Background(), testGarden)
	require.Len(t, alerts, 1)
	assert.Equal(t, []string{"tomato"}, alerts[0].AffectedPlantTypes)
	assert.Equal(t, []string{"T1", "T2"}, alerts[0].AffectedPlantNames)
}

func TestAlertIDsAreUniquePerEvaluation(t *testing.T) {
	profiles := map[string]types.SensitivityProfile{
		"default": {PlantType: "default", MaxTemperature: 35, MinTemperature: 0, MaxPrecipitation: 20, MaxWindSpeed: 50},
	}
	e := newTestEngine(t,
		&types.WeatherSnapshot{Temperature: 40, Precipitation: 30, WindSpeed: 60},
		[]types.Plant{{UserID: 1, Type: "fern", Name: "F1"}},
		profiles,
	)

	alerts := e.EvaluateGarden(context.Background(), testGarden)
	ids := make(map[string]bool)
	for _, a := range alerts {
		ids[a.AlertID] = true
	}
	assert.Len(t, ids, len(alerts))
}

func TestEvaluationPanicYieldsNoAlerts(t *testing.T) {
	e := newTestEngine(t,
		&types.WeatherSnapshot{Temperature: 36},
		[]types.Plant{{UserID: 1, Type: "tomato", Name: "T1"}},
		nil,
	)
	e.newID = func() string { panic("id generator broke") }

	alerts := e.EvaluateGarden(context.Background(), testGarden)
	assert.Empty(t, alerts)
}
