// Package config loads the garden and sensitivity-profile configuration
// files and the process environment. All validation errors here are fatal:
// the service refuses to start on a bad configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/verdantlabs/gardenwatch/internal/types"
)

// gardensFile is the on-disk shape of gardens.config.json.
type gardensFile struct {
	Gardens []types.Garden `json:"gardens"`
}

// profilesFile is the on-disk shape of plant-sensitivity-profiles.json.
type profilesFile struct {
	Profiles map[string]types.SensitivityProfile `json:"profiles"`
}

// LoadGardens reads and validates the gardens configuration file.
func LoadGardens(path string) ([]types.Garden, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading gardens config %s: %w", path, err)
	}

	var f gardensFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing gardens config %s: %w", path, err)
	}
	if len(f.Gardens) == 0 {
		return nil, fmt.Errorf("gardens config %s contains no gardens", path)
	}

	seen := make(map[string]bool, len(f.Gardens))
	for _, g := range f.Gardens {
		if g.GardenID == "" {
			return nil, fmt.Errorf("garden with empty gardenId in %s", path)
		}
		if seen[g.GardenID] {
			return nil, fmt.Errorf("duplicate gardenId %q in %s", g.GardenID, path)
		}
		seen[g.GardenID] = true
		if g.UserID <= 0 {
			return nil, fmt.Errorf("garden %q: invalid userId %d", g.GardenID, g.UserID)
		}
		if g.Name == "" {
			return nil, fmt.Errorf("garden %q: missing name", g.GardenID)
		}
		if g.Latitude < -90 || g.Latitude > 90 {
			return nil, fmt.Errorf("garden %q: latitude %f out of range", g.GardenID, g.Latitude)
		}
		if g.Longitude < -180 || g.Longitude > 180 {
			return nil, fmt.Errorf("garden %q: longitude %f out of range", g.GardenID, g.Longitude)
		}
	}

	return f.Gardens, nil
}

// LoadProfiles reads and validates the sensitivity profiles file. A profile
// keyed "default" must exist, and every profile's temperature band must be
// non-empty.
func LoadProfiles(path string) (map[string]types.SensitivityProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sensitivity profiles %s: %w", path, err)
	}

	var f profilesFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing sensitivity profiles %s: %w", path, err)
	}

	if _, ok := f.Profiles[types.DefaultProfileKey]; !ok {
		return nil, fmt.Errorf("sensitivity profiles %s: missing %q profile", path, types.DefaultProfileKey)
	}

	for key, p := range f.Profiles {
		if p.MinTemperature >= p.MaxTemperature {
			return nil, fmt.Errorf("profile %q: minTemperature %.1f must be below maxTemperature %.1f",
				key, p.MinTemperature, p.MaxTemperature)
		}
	}

	return f.Profiles, nil
}

// Env holds the process environment configuration. Missing Twilio settings
// disable SMS; a missing Mongo URL degrades the history store. Neither is
// fatal.
type Env struct {
	Port             string
	BackendURL       string
	MongoURL         string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

// FromEnv reads environment variables into an Env, applying defaults for
// the listen port and backend URL.
func FromEnv() Env {
	e := Env{
		Port:             os.Getenv("PORT"),
		BackendURL:       os.Getenv("BACKEND_URL"),
		MongoURL:         os.Getenv("MONGO_URL"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
	}
	if e.Port == "" {
		e.Port = "8080"
	}
	if e.BackendURL == "" {
		e.BackendURL = "http://localhost:3000"
	}
	return e
}
