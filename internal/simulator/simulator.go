// Package simulator runs the day-by-day market loop: customers arrive,
// see policy-filtered reviews, consult the decision oracle and leave
// visits, revenue and new reviews behind.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dinersim/dinersim/internal/cloudwriter"
	"github.com/dinersim/dinersim/internal/exposure"
	"github.com/dinersim/dinersim/internal/models"
	"github.com/dinersim/dinersim/internal/oracle"
	"github.com/dinersim/dinersim/internal/output"
	"github.com/lucsky/cuid"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
)

type Simulator struct {
	Config      *models.Config
	Oracle      oracle.Oracle
	Restaurants []*models.Restaurant
	Customers   []*models.Customer
	Recorder    *Recorder
	Rng         *rand.Rand
	StartTime   time.Time

	thresholds exposure.Thresholds
	stream     OutputDestination
}

func NewSimulator(config *models.Config, orc oracle.Oracle) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	restaurants := make([]*models.Restaurant, 0, len(config.Restaurants))
	for _, rc := range config.Restaurants {
		var seeds []models.Review
		if rc.SeedReviewsFile != "" {
			var err error
			seeds, err = models.LoadSeedReviews(rc.SeedReviewsFile, rc.ID)
			if err != nil {
				return nil, err
			}
		}
		restaurants = append(restaurants, models.NewRestaurant(
			rc.ID, rc.Name, rc.Menu, rc.QualityRating, rc.ReviewPolicy, seeds))
	}

	stream, err := determineOutputDestination(config)
	if err != nil {
		return nil, err
	}

	return &Simulator{
		Config:      config,
		Oracle:      orc,
		Restaurants: restaurants,
		Recorder:    NewRecorder(stream),
		Rng:         rand.New(rand.NewSource(int64(config.Seed))),
		StartTime:   time.Now(),
		thresholds: exposure.Thresholds{
			InitialSize:     config.ExposureSize,
			SupplementSize:  config.SupplementSize,
			OverPositiveMin: config.OverPositiveMin,
			RatingGap:       config.RatingGap,
			StalenessCutoff: config.StalenessCutoff,
		},
		stream: stream,
	}, nil
}

// Run executes every simulated day in order, then persists the run
// artifacts. Customers within a day are processed sequentially; each
// sees the review state left by all earlier arrivals.
func (s *Simulator) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"days":              s.Config.Days,
		"customers_per_day": s.Config.CustomersPerDay,
		"restaurants":       len(s.Restaurants),
	}).Info("starting simulation")

	bar := progressbar.Default(int64(s.Config.Days), "simulating days")
	for day := 1; day <= s.Config.Days; day++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("simulation interrupted: %w", err)
		}
		s.runDay(ctx, day)
		bar.Add(1)
	}

	return s.finalize(ctx)
}

func (s *Simulator) runDay(ctx context.Context, day int) {
	for seq := 1; seq <= s.Config.CustomersPerDay; seq++ {
		s.processCustomer(ctx, day, seq)
	}
	s.Recorder.RecordDaySummary(day, s.Restaurants)

	for _, r := range s.Restaurants {
		log.WithFields(log.Fields{
			"day":        day,
			"restaurant": r.ID,
			"rating":     fmt.Sprintf("%.2f", r.Rating),
			"visits":     r.Visits,
			"revenue":    fmt.Sprintf("%.2f", r.Revenue),
		}).Debug("day complete")
	}
}

func (s *Simulator) processCustomer(ctx context.Context, day, seq int) {
	customer, err := s.Oracle.GenerateCustomer(ctx, day)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"day": day, "seq": seq}).
			Warn("customer generation failed, using fallback profile")
		customer = oracle.FallbackCustomer(day, seq)
	}
	if customer.ID == "" {
		customer.ID = cuid.New()
	}
	s.Customers = append(s.Customers, customer)
	s.Recorder.RecordArrival(customer)

	exposures := make([]models.ExposureRecord, 0, len(s.Restaurants))
	options := make([]oracle.Option, 0, len(s.Restaurants))
	for _, r := range s.Restaurants {
		res := exposure.Compute(r, s.thresholds)
		record := models.ExposureRecord{
			RestaurantID: r.ID,
			Reviews:      shownReviews(res.Reviews),
			InitialCount: res.InitialCount,
			Biased:       res.Biased,
			BiasReason:   res.Reason,
		}
		exposures = append(exposures, record)
		s.Recorder.RecordExposure(day, customer, record)

		options = append(options, oracle.Option{
			RestaurantID:  r.ID,
			Name:          r.Name,
			Menu:          r.Menu,
			Rating:        r.Rating,
			ReviewCount:   r.ReviewCount(),
			QualityRating: r.QualityRating,
			Policy:        r.ReviewPolicy,
			Reviews:       res.Reviews,
		})
	}

	event := models.DecisionEvent{
		Timestamp:  s.eventTime(day, seq),
		Day:        day,
		CustomerID: customer.ID,
		Customer:   *customer,
		Exposures:  exposures,
	}

	decision, err := s.Oracle.Decide(ctx, customer, options)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"day": day, "customer": customer.ID}).
			Warn("decision failed, recording no choice")
		event.Outcome = models.OutcomeNoChoice
		event.FailureCause = failureCause(err)
		s.Recorder.RecordDecision(event)
		return
	}

	if decision.Declined {
		event.Outcome = models.OutcomeDeclined
		event.Reason = decision.Reason
		s.Recorder.RecordDecision(event)
		return
	}

	chosen := s.restaurantByID(decision.RestaurantID)
	if chosen == nil {
		event.Outcome = models.OutcomeNoChoice
		event.FailureCause = "unknown_restaurant"
		s.Recorder.RecordDecision(event)
		return
	}

	item, price, ok := resolveMenuItem(chosen, decision.Item, s.Rng)
	if !ok {
		log.WithFields(log.Fields{
			"restaurant": chosen.ID,
			"item":       decision.Item,
			"picked":     item,
		}).Warn("ordered item not on menu, substituting")
	}

	chosen.RecordVisit(price)
	event.Outcome = models.OutcomeChosen
	event.RestaurantID = chosen.ID
	event.Item = item
	event.Price = price
	event.Reason = decision.Reason
	s.Recorder.RecordDecision(event)

	review := s.buildReview(customer, chosen, decision, item, event.Timestamp)
	chosen.AddReview(review)
	s.Recorder.RecordReview(day, review)
}

// buildReview turns the oracle's draft into a stored review; when the
// oracle omitted or returned an unusable draft, the visit still leaves
// a review at the configured default rating.
func (s *Simulator) buildReview(customer *models.Customer, r *models.Restaurant, decision *models.DecisionResult, item string, at time.Time) models.Review {
	stars := s.Config.DefaultVisitStars
	text := fmt.Sprintf("Visited %s and had the %s.", r.Name, item)
	if decision.Review != nil {
		stars = decision.Review.Stars
		text = decision.Review.Text
	}
	return models.Review{
		ID:           cuid.New(),
		CustomerID:   customer.ID,
		RestaurantID: r.ID,
		Stars:        stars,
		Text:         text,
		Date:         at,
		OrderedItem:  item,
	}
}

// eventTime maps (day, arrival sequence) to a stable wall-clock
// position inside the run's timeline.
func (s *Simulator) eventTime(day, seq int) time.Time {
	return s.StartTime.AddDate(0, 0, day-1).Add(time.Duration(seq) * time.Minute)
}

func (s *Simulator) restaurantByID(id string) *models.Restaurant {
	for _, r := range s.Restaurants {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// resolveMenuItem validates the ordered item against the menu and
// substitutes a seeded-random item when it does not exist.
func resolveMenuItem(r *models.Restaurant, item string, rng *rand.Rand) (string, float64, bool) {
	if price, ok := r.Menu[item]; ok {
		return item, price, true
	}
	names := make([]string, 0, len(r.Menu))
	for name := range r.Menu {
		names = append(names, name)
	}
	sort.Strings(names)
	picked := names[rng.Intn(len(names))]
	return picked, r.Menu[picked], false
}

func failureCause(err error) string {
	switch {
	case errors.Is(err, models.ErrOracleUnavailable):
		return "oracle_unavailable"
	case errors.Is(err, models.ErrOracleMalformed):
		return "oracle_malformed"
	default:
		return "oracle_error"
	}
}

func shownReviews(reviews []models.Review) []models.ShownReview {
	shown := make([]models.ShownReview, len(reviews))
	for i, r := range reviews {
		shown[i] = models.ShownReview{
			ID:    r.ID,
			Stars: r.Stars,
			Text:  r.Text,
			Date:  r.Date.Format(time.RFC3339),
		}
	}
	return shown
}

// finalize writes the run artifacts, flushes the stream destination and
// pushes the run to any configured long-term sinks.
func (s *Simulator) finalize(ctx context.Context) error {
	endTime := time.Now()
	base := filepath.Join(s.Config.OutputPath, s.Config.OutputFolder)

	artifacts := []struct {
		path string
		data interface{}
	}{
		{filepath.Join(base, "customers.json"), s.Customers},
		{filepath.Join(base, "restaurants.json"), s.Restaurants},
		{filepath.Join(base, "simulation_metadata.json"), buildMetadata(s.Config, s.Restaurants, s.Customers, s.StartTime, endTime)},
		{filepath.Join(base, "logs", "simulation_logs.json"), s.Recorder.Entries()},
		{filepath.Join(base, "logs", "decision_details.json"), s.Recorder.Decisions()},
		{filepath.Join(base, "logs", "review_exposure.json"), s.Recorder.Exposures()},
	}
	paths := make([]string, len(artifacts))
	for i, a := range artifacts {
		if err := writeJSONArtifact(a.path, a.data); err != nil {
			return err
		}
		paths[i] = a.path
	}

	if s.stream != nil {
		if err := s.stream.Close(); err != nil {
			log.WithError(err).Warn("error closing stream destination")
		}
	}

	if s.Config.DatabaseURL != "" {
		if err := s.saveToPostgres(ctx); err != nil {
			return err
		}
	}

	if s.Config.OutputDestination == "s3" {
		if err := s.uploadArtifacts(paths); err != nil {
			return err
		}
	}

	log.WithField("output", base).Info("simulation complete")
	return nil
}

func (s *Simulator) saveToPostgres(ctx context.Context) error {
	sink, err := output.NewPostgresSink(ctx, s.Config.DatabaseURL)
	if err != nil {
		return &models.PersistenceError{Artifact: "postgres", Err: err}
	}
	defer sink.Close()

	if err := sink.EnsureSchema(ctx); err != nil {
		return &models.PersistenceError{Artifact: "postgres", Err: err}
	}
	if err := sink.SaveRun(ctx, s.Customers, s.Restaurants, s.Recorder.Decisions()); err != nil {
		return &models.PersistenceError{Artifact: "postgres", Err: err}
	}
	log.Info("run saved to postgres")
	return nil
}

// uploadArtifacts mirrors the local JSON artifacts to the configured
// S3 bucket, keyed by output folder.
func (s *Simulator) uploadArtifacts(paths []string) error {
	factory, err := cloudwriter.NewS3WriterFactory(s.Config.CloudStorage.Region)
	if err != nil {
		return &models.PersistenceError{Artifact: "s3", Err: err}
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return &models.PersistenceError{Artifact: path, Err: err}
		}
		rel, err := filepath.Rel(s.Config.OutputPath, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		w, err := factory.NewWriter(s.Config.CloudStorage.BucketName, rel)
		if err != nil {
			return &models.PersistenceError{Artifact: path, Err: err}
		}
		if _, err := w.Write(data); err != nil {
			return &models.PersistenceError{Artifact: path, Err: err}
		}
		if err := w.Close(); err != nil {
			return &models.PersistenceError{Artifact: path, Err: err}
		}
	}
	log.WithField("bucket", s.Config.CloudStorage.BucketName).Info("artifacts uploaded")
	return nil
}
