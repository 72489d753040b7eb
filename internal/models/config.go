package models

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type RestaurantConfig struct {
	ID              string             `mapstructure:"id"`
	Name            string             `mapstructure:"name"`
	QualityRating   float64            `mapstructure:"quality_rating"`
	ReviewPolicy    string             `mapstructure:"review_policy"`
	Menu            map[string]float64 `mapstructure:"menu"`
	SeedReviewsFile string             `mapstructure:"seed_reviews_file"`
}

type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider"`
	Region     string `mapstructure:"region"`
	BucketName string `mapstructure:"bucket_name"`
}

type Config struct {
	Seed            int    `mapstructure:"seed"`
	Days            int    `mapstructure:"days"`
	CustomersPerDay int    `mapstructure:"customers_per_day"`
	SimulationType  string `mapstructure:"simulation_type"`

	// Oracle settings
	OracleModel        string        `mapstructure:"oracle_model"`
	OracleAPIKey       string        `mapstructure:"oracle_api_key"`
	OracleMaxRetries   int           `mapstructure:"oracle_max_retries"`
	OracleRetryBackoff time.Duration `mapstructure:"oracle_retry_backoff"`
	OracleTimeout      time.Duration `mapstructure:"oracle_timeout"`

	// Exposure policy thresholds
	ExposureSize      int           `mapstructure:"exposure_size"`
	SupplementSize    int           `mapstructure:"supplement_size"`
	OverPositiveMin   float64       `mapstructure:"over_positive_min"`
	RatingGap         float64       `mapstructure:"rating_gap"`
	StalenessCutoff   time.Duration `mapstructure:"staleness_cutoff"`
	DefaultVisitStars float64       `mapstructure:"default_visit_stars"`

	Restaurants []RestaurantConfig `mapstructure:"restaurants"`

	// Output settings
	OutputPath        string             `mapstructure:"output_path"`
	OutputFolder      string             `mapstructure:"output_folder"`
	OutputDestination string             `mapstructure:"output_destination"`
	StreamFormat      string             `mapstructure:"stream_format"`
	KafkaEnabled      bool               `mapstructure:"kafka_enabled"`
	KafkaBrokerList   string             `mapstructure:"kafka_broker_list"`
	DatabaseURL       string             `mapstructure:"database_url"`
	CloudStorage      CloudStorageConfig `mapstructure:"cloud_storage"`
}

// LoadConfig initializes and reads the configuration using Viper
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Default config location
		viper.AddConfigPath("examples")
		viper.SetConfigName("config")
		viper.SetConfigType("json")
	}

	viper.AutomaticEnv() // Read in environment variables that match
	viper.BindEnv("oracle_api_key", "OPENAI_API_KEY")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeDurationHookFunc(),
		)
	})
	if err := viper.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("seed", 42)
	viper.SetDefault("days", 10)
	viper.SetDefault("customers_per_day", 10)
	viper.SetDefault("simulation_type", "reviews_orientation")
	viper.SetDefault("oracle_model", "gpt-4.1-mini")
	viper.SetDefault("oracle_max_retries", 3)
	viper.SetDefault("oracle_retry_backoff", 500*time.Millisecond)
	viper.SetDefault("oracle_timeout", 30*time.Second)
	viper.SetDefault("exposure_size", 5)
	viper.SetDefault("supplement_size", 3)
	viper.SetDefault("over_positive_min", 4.5)
	viper.SetDefault("rating_gap", 0.8)
	viper.SetDefault("staleness_cutoff", 90*24*time.Hour)
	viper.SetDefault("default_visit_stars", 4.0)
	viper.SetDefault("output_path", "data/outputs")
	viper.SetDefault("output_destination", "local")
}

// Validate rejects configurations that would make the run meaningless.
// Any error here is fatal before the first simulated day.
func (cfg *Config) Validate() error {
	if cfg.Days <= 0 {
		return &ConfigurationError{Field: "days", Reason: "must be positive"}
	}
	if cfg.CustomersPerDay <= 0 {
		return &ConfigurationError{Field: "customers_per_day", Reason: "must be positive"}
	}
	if len(cfg.Restaurants) == 0 {
		return &ConfigurationError{Field: "restaurants", Reason: "at least one restaurant is required"}
	}
	if cfg.ExposureSize <= 0 {
		return &ConfigurationError{Field: "exposure_size", Reason: "must be positive"}
	}
	if cfg.SupplementSize < 0 {
		return &ConfigurationError{Field: "supplement_size", Reason: "must not be negative"}
	}
	seen := make(map[string]bool)
	for i, rc := range cfg.Restaurants {
		if rc.ID == "" {
			return &ConfigurationError{Field: fmt.Sprintf("restaurants[%d].id", i), Reason: "must not be empty"}
		}
		if seen[rc.ID] {
			return &ConfigurationError{Field: fmt.Sprintf("restaurants[%d].id", i), Reason: "duplicate restaurant id " + rc.ID}
		}
		seen[rc.ID] = true
		if !ValidPolicies[rc.ReviewPolicy] {
			return &ConfigurationError{
				Field:  fmt.Sprintf("restaurants[%d].review_policy", i),
				Reason: fmt.Sprintf("unknown policy %q", rc.ReviewPolicy),
			}
		}
		if len(rc.Menu) == 0 {
			return &ConfigurationError{Field: fmt.Sprintf("restaurants[%d].menu", i), Reason: "must not be empty"}
		}
	}
	return nil
}

// seedReviewRecord is the on-disk shape of one seed review.
type seedReviewRecord struct {
	ReviewID string  `json:"review_id"`
	UserID   string  `json:"user_id"`
	Stars    float64 `json:"stars"`
	Text     string  `json:"text"`
	Date     string  `json:"date"`
	Label    string  `json:"label"`
}

// LoadSeedReviews reads one restaurant's seed review file: a JSON array
// of review records ordered as provided. Dates accept RFC 3339 or the
// legacy "2006-01-02 15:04:05" form.
func LoadSeedReviews(path, restaurantID string) ([]Review, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed reviews %s: %w", path, err)
	}

	var records []seedReviewRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing seed reviews %s: %w", path, err)
	}

	reviews := make([]Review, 0, len(records))
	for i, rec := range records {
		date, err := parseReviewDate(rec.Date)
		if err != nil {
			return nil, fmt.Errorf("seed review %d in %s: %w", i, path, err)
		}
		id := rec.ReviewID
		if id == "" {
			id = fmt.Sprintf("seed_%s_%04d", restaurantID, i)
		}
		reviews = append(reviews, Review{
			ID:           id,
			CustomerID:   rec.UserID,
			RestaurantID: restaurantID,
			Stars:        rec.Stars,
			Text:         rec.Text,
			Date:         date,
			Label:        rec.Label,
			Seed:         true,
		})
	}
	return reviews, nil
}

func parseReviewDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable review date %q", s)
	}
	return t, nil
}
