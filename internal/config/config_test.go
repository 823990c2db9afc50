package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validGardens = `{
	"gardens": [
		{"gardenId": "g1", "userId": 1, "name": "Rooftop", "latitude": 40.4, "longitude": -3.7},
		{"gardenId": "g2", "userId": 2, "name": "Patio", "latitude": 41.4, "longitude": 2.2}
	]
}`

func TestLoadGardens(t *testing.T) {
	gardens, err := LoadGardens(writeFile(t, validGardens))
	require.NoError(t, err)
	require.Len(t, gardens, 2)
	assert.Equal(t, "g1", gardens[0].GardenID)
	assert.Equal(t, 40.4, gardens[0].Latitude)
}

func TestLoadGardensMissingFile(t *testing.T) {
	_, err := LoadGardens(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadGardensRejectsBadConfigs(t *testing.T) {
	cases := map[string]string{
		"invalid json":  `{`,
		"empty list":    `{"gardens": []}`,
		"empty id":      `{"gardens": [{"gardenId": "", "userId": 1, "name": "X", "latitude": 0, "longitude": 0}]}`,
		"duplicate id":  `{"gardens": [{"gardenId": "g1", "userId": 1, "name": "X", "latitude": 0, "longitude": 0}, {"gardenId": "g1", "userId": 2, "name": "Y", "latitude": 0, "longitude": 0}]}`,
		"bad userId":    `{"gardens": [{"gardenId": "g1", "userId": 0, "name": "X", "latitude": 0, "longitude": 0}]}`,
		"missing name":  `{"gardens": [{"gardenId": "g1", "userId": 1, "name": "", "latitude": 0, "longitude": 0}]}`,
		"bad latitude":  `{"gardens": [{"gardenId": "g1", "userId": 1, "name": "X", "latitude": 91, "longitude": 0}]}`,
		"bad longitude": `{"gardens": [{"gardenId": "g1", "userId": 1, "name": "X", "latitude": 0, "longitude": -181}]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadGardens(writeFile(t, content))
			assert.Error(t, err)
		})
	}
}

const validProfiles = `{
	"profiles": {
		"default": {"plantType": "default", "maxTemperature": 32, "minTemperature": 2, "maxPrecipitation": 15, "maxWindSpeed": 45},
		"tomato": {"plantType": "tomato", "maxTemperature": 35, "minTemperature": 5, "maxPrecipitation": 20, "maxWindSpeed": 50}
	}
}`

func TestLoadProfiles(t *testing.T) {
	profiles, err := LoadProfiles(writeFile(t, validProfiles))
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, 35.0, profiles["tomato"].MaxTemperature)
}

func TestLoadProfilesRequiresDefault(t *testing.T) {
	_, err := LoadProfiles(writeFile(t, `{
		"profiles": {
			"tomato": {"plantType": "tomato", "maxTemperature": 35, "minTemperature": 5}
		}
	}`))
	assert.Error(t, err)
}

func TestLoadProfilesRejectsInvertedTemperatureBand(t *testing.T) {
	_, err := LoadProfiles(writeFile(t, `{
		"profiles": {
			"default": {"plantType": "default", "maxTemperature": 5, "minTemperature": 10}
		}
	}`))
	assert.Error(t, err)
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("BACKEND_URL", "")
	t.Setenv("MONGO_URL", "")

	e := FromEnv()
	assert.Equal(t, "8080", e.Port)
	assert.Equal(t, "http://localhost:3000", e.BackendURL)
	assert.Empty(t, e.MongoURL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BACKEND_URL", "http://backend:3000")
	t.Setenv("MONGO_URL", "mongodb://localhost:27017")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15550001111")

	e := FromEnv()
	assert.Equal(t, "9090", e.Port)
	assert.Equal(t, "http://backend:3000", e.BackendURL)
	assert.Equal(t, "mongodb://localhost:27017", e.MongoURL)
	assert.Equal(t, "AC123", e.TwilioAccountSID)
	assert.Equal(t, "secret", e.TwilioAuthToken)
	assert.Equal(t, "+15550001111", e.TwilioFromNumber)
}
