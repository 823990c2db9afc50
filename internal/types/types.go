// Package types holds the shared domain model for the alert pipeline.
package types

import "time"

// Garden is an immutable configuration record describing a monitored
// location. Gardens are loaded once at startup and never mutated.
type Garden struct {
	GardenID  string  `json:"gardenId"`
	UserID    int     `json:"userId"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SensitivityProfile carries the climatic tolerance thresholds for one
// plant type. MinTemperature must be strictly below MaxTemperature.
type SensitivityProfile struct {
	PlantType        string  `json:"plantType"`
	MaxTemperature   float64 `json:"maxTemperature"`
	MinTemperature   float64 `json:"minTemperature"`
	MaxPrecipitation float64 `json:"maxPrecipitation"`
	MaxWindSpeed     float64 `json:"maxWindSpeed"`
}

// DefaultProfileKey is the registry key that must always be present; it is
// resolved for any plant type without its own profile.
const DefaultProfileKey = "default"

// Plant is a plant record as retrieved from the backend CRUD service.
// Only UserID, Type and Name are consumed here; everything else is opaque.
type Plant struct {
	ID     int    `json:"id"`
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// User is a backend user record. PhoneNumber is nullable; an absent number
// means SMS delivery is skipped for that user.
type User struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	PhoneNumber *string `json:"phone_number"`
}

// WeatherSnapshot is a normalized view of current conditions for a
// coordinate. Fields missing from the upstream response are zero.
type WeatherSnapshot struct {
	Temperature    float64   `json:"temperature"`
	TemperatureMax float64   `json:"temperatureMax"`
	TemperatureMin float64   `json:"temperatureMin"`
	Precipitation  float64   `json:"precipitation"`
	WindSpeed      float64   `json:"windSpeed"`
	ObservedAt     time.Time `json:"observedAt"`
}

// AlertType identifies which threshold rule produced an alert.
type AlertType string

const (
	AlertHighTemperature AlertType = "HIGH_TEMPERATURE"
	AlertLowTemperature  AlertType = "LOW_TEMPERATURE"
	AlertHeavyRain       AlertType = "HEAVY_RAIN"
	AlertStrongWind      AlertType = "STRONG_WIND"
)

// AlertTypes lists every rule in evaluation order.
var AlertTypes = []AlertType{
	AlertHighTemperature,
	AlertLowTemperature,
	AlertHeavyRain,
	AlertStrongWind,
}

// Metric names the weather dimension an alert refers to.
type Metric string

const (
	MetricTemperature   Metric = "temperature"
	MetricPrecipitation Metric = "precipitation"
	MetricWindSpeed     Metric = "windSpeed"
)

// Alert is the tuple emitted by the alert engine and consumed by each sink.
// Alerts are never mutated after creation.
type Alert struct {
	AlertID            string    `json:"alertId" bson:"alertId"`
	GardenID           string    `json:"gardenId" bson:"gardenId"`
	UserID             int       `json:"userId" bson:"userId"`
	GardenName         string    `json:"gardenName" bson:"gardenName"`
	Timestamp          time.Time `json:"timestamp" bson:"timestamp"`
	AlertType          AlertType `json:"alertType" bson:"alertType"`
	Metric             Metric    `json:"metric" bson:"metric"`
	CurrentValue       float64   `json:"currentValue" bson:"currentValue"`
	Threshold          float64   `json:"threshold" bson:"threshold"`
	AffectedPlantTypes []string  `json:"affectedPlantTypes" bson:"affectedPlantTypes"`
	AffectedPlantNames []string  `json:"affectedPlantNames" bson:"affectedPlantNames"`
}
