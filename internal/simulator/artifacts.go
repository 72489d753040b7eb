package simulator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/dinersim/dinersim/internal/models"
)

// writeJSONArtifact persists one run artifact as indented JSON,
// creating parent directories as needed.
func writeJSONArtifact(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return &models.PersistenceError{Artifact: path, Err: err}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &models.PersistenceError{Artifact: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &models.PersistenceError{Artifact: path, Err: err}
	}
	return nil
}

type runMetadata struct {
	SimulationInfo    simulationInfo            `json:"simulation_info"`
	Configuration     configurationInfo         `json:"configuration"`
	RestaurantSetup   map[string]setupInfo      `json:"restaurant_setup"`
	SimulationResults map[string]resultInfo     `json:"simulation_results"`
}

type simulationInfo struct {
	SimulationType  string `json:"simulation_type"`
	Seed            int    `json:"seed"`
	Days            int    `json:"days"`
	CustomersPerDay int    `json:"customers_per_day"`
	TotalCustomers  int    `json:"total_customers"`
	OracleModel     string `json:"oracle_model"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
}

type configurationInfo struct {
	ExposureSize    int     `json:"exposure_size"`
	SupplementSize  int     `json:"supplement_size"`
	OverPositiveMin float64 `json:"over_positive_min"`
	RatingGap       float64 `json:"rating_gap"`
	StalenessCutoff string  `json:"staleness_cutoff"`
}

type setupInfo struct {
	Name            string  `json:"name"`
	ReviewPolicy    string  `json:"review_policy"`
	QualityRating   float64 `json:"quality_rating,omitempty"`
	MenuSize        int     `json:"menu_size"`
	SeedReviewCount int     `json:"seed_review_count"`
	SeedAvgRating   float64 `json:"seed_avg_rating"`
}

type resultInfo struct {
	FinalRating      float64 `json:"final_rating"`
	TotalReviews     int     `json:"total_reviews"`
	GeneratedReviews int     `json:"generated_reviews"`
	Visits           int     `json:"visits"`
	Revenue          float64 `json:"revenue"`
	ChoiceShare      float64 `json:"choice_share"`
}

// buildMetadata assembles the run summary written alongside the
// entity artifacts.
func buildMetadata(cfg *models.Config, restaurants []*models.Restaurant, customers []*models.Customer, start, end time.Time) runMetadata {
	meta := runMetadata{
		SimulationInfo: simulationInfo{
			SimulationType:  cfg.SimulationType,
			Seed:            cfg.Seed,
			Days:            cfg.Days,
			CustomersPerDay: cfg.CustomersPerDay,
			TotalCustomers:  len(customers),
			OracleModel:     cfg.OracleModel,
			StartTime:       start.Format(time.RFC3339),
			EndTime:         end.Format(time.RFC3339),
		},
		Configuration: configurationInfo{
			ExposureSize:    cfg.ExposureSize,
			SupplementSize:  cfg.SupplementSize,
			OverPositiveMin: cfg.OverPositiveMin,
			RatingGap:       cfg.RatingGap,
			StalenessCutoff: cfg.StalenessCutoff.String(),
		},
		RestaurantSetup:   make(map[string]setupInfo, len(restaurants)),
		SimulationResults: make(map[string]resultInfo, len(restaurants)),
	}

	totalVisits := 0
	for _, r := range restaurants {
		totalVisits += r.Visits
	}

	for _, r := range restaurants {
		meta.RestaurantSetup[r.ID] = setupInfo{
			Name:            r.Name,
			ReviewPolicy:    r.ReviewPolicy,
			QualityRating:   r.QualityRating,
			MenuSize:        len(r.Menu),
			SeedReviewCount: len(r.SeedReviews),
			SeedAvgRating:   models.MeanStars(r.SeedReviews),
		}
		share := 0.0
		if totalVisits > 0 {
			share = float64(r.Visits) / float64(totalVisits)
		}
		meta.SimulationResults[r.ID] = resultInfo{
			FinalRating:      r.Rating,
			TotalReviews:     r.ReviewCount(),
			GeneratedReviews: len(r.Reviews),
			Visits:           r.Visits,
			Revenue:          r.Revenue,
			ChoiceShare:      share,
		}
	}
	return meta
}
