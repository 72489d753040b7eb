package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Days:            5,
		CustomersPerDay: 3,
		ExposureSize:    5,
		SupplementSize:  3,
		Restaurants: []RestaurantConfig{
			{ID: "r1", Name: "One", ReviewPolicy: PolicyLatest, Menu: map[string]float64{"Pizza": 10}},
			{ID: "r2", Name: "Two", ReviewPolicy: PolicyHighestRating, Menu: map[string]float64{"Salad": 8}},
		},
	}
}

func TestValidate_AcceptsValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_RejectsNonPositiveDays(t *testing.T) {
	cfg := validConfig()
	cfg.Days = 0

	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "days", cfgErr.Field)
}

func TestValidate_RejectsNoRestaurants(t *testing.T) {
	cfg := validConfig()
	cfg.Restaurants = nil
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownPolicy(t *testing.T) {
	cfg := validConfig()
	cfg.Restaurants[0].ReviewPolicy = "most_controversial"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsDuplicateRestaurantIDs(t *testing.T) {
	cfg := validConfig()
	cfg.Restaurants[1].ID = cfg.Restaurants[0].ID
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsEmptyMenu(t *testing.T) {
	cfg := validConfig()
	cfg.Restaurants[0].Menu = nil
	assert.Error(t, cfg.Validate())
}

func TestLoadSeedReviews_ParsesRecordsAndDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.json")
	data := `[
        {"review_id": "s1", "user_id": "u1", "stars": 4.5, "text": "great", "date": "2025-03-12 19:24:00", "label": "positive"},
        {"user_id": "u2", "stars": 2, "text": "meh", "date": "2025-04-01T10:00:00Z"}
    ]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	reviews, err := LoadSeedReviews(path, "rest_a")
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	assert.Equal(t, "s1", reviews[0].ID)
	assert.Equal(t, "rest_a", reviews[0].RestaurantID)
	assert.Equal(t, 4.5, reviews[0].Stars)
	assert.True(t, reviews[0].Seed)
	assert.Equal(t, time.Date(2025, 3, 12, 19, 24, 0, 0, time.UTC), reviews[0].Date)

	// missing review_id gets a deterministic generated one
	assert.Equal(t, "seed_rest_a_0001", reviews[1].ID)
	assert.Equal(t, time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC), reviews[1].Date)
}

func TestLoadSeedReviews_BadDateFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"stars": 3, "date": "yesterday"}]`), 0o644))

	_, err := LoadSeedReviews(path, "rest_a")
	assert.Error(t, err)
}

func TestLoadSeedReviews_MissingFileFails(t *testing.T) {
	_, err := LoadSeedReviews(filepath.Join(t.TempDir(), "absent.json"), "rest_a")
	assert.Error(t, err)
}
