package simulator

import (
	"encoding/json"
	"time"

	"github.com/dinersim/dinersim/internal/models"
	log "github.com/sirupsen/logrus"
)

// LogEntry is one record in the run-level log stream
// (simulation_logs.json). Unused fields are omitted per entry type.
type LogEntry struct {
	Timestamp    time.Time               `json:"timestamp"`
	Type         string                  `json:"type"`
	Day          int                     `json:"day,omitempty"`
	CustomerID   string                  `json:"customer_id,omitempty"`
	Name         string                  `json:"name,omitempty"`
	RestaurantID string                  `json:"restaurant_id,omitempty"`
	Item         string                  `json:"item,omitempty"`
	Price        float64                 `json:"price,omitempty"`
	Stars        float64                 `json:"stars,omitempty"`
	Outcome      string                  `json:"outcome,omitempty"`
	Reason       string                  `json:"reason,omitempty"`
	Fallback     bool                    `json:"fallback,omitempty"`
	Summary      []RestaurantDaySummary  `json:"summary,omitempty"`
	Details      *models.Customer        `json:"details,omitempty"`
}

// ExposureLogEntry is one record in logs/review_exposure.json.
type ExposureLogEntry struct {
	Timestamp    time.Time            `json:"timestamp"`
	Type         string               `json:"type"`
	Day          int                  `json:"day"`
	CustomerID   string               `json:"customer_id"`
	Name         string               `json:"name"`
	RestaurantID string               `json:"restaurant_id"`
	InitialCount int                  `json:"initial_count"`
	Biased       bool                 `json:"biased"`
	BiasReason   string               `json:"bias_reason,omitempty"`
	Reviews      []models.ShownReview `json:"reviews"`
}

// RestaurantDaySummary is the per-restaurant state captured at each
// day boundary.
type RestaurantDaySummary struct {
	RestaurantID string  `json:"restaurant_id"`
	Rating       float64 `json:"rating"`
	ReviewCount  int     `json:"review_count"`
	Visits       int     `json:"visits"`
	Revenue      float64 `json:"revenue"`
}

// Recorder accumulates the append-only event streams of one run and,
// when a stream destination is configured, mirrors each record to it
// as the run progresses. Stream write failures are logged and never
// interrupt the simulation; the in-memory streams remain authoritative.
type Recorder struct {
	entries   []LogEntry
	decisions []models.DecisionEvent
	exposures []ExposureLogEntry
	stream    OutputDestination
	now       func() time.Time
}

func NewRecorder(stream OutputDestination) *Recorder {
	return &Recorder{
		stream: stream,
		now:    time.Now,
	}
}

func (rec *Recorder) RecordArrival(customer *models.Customer) {
	rec.entries = append(rec.entries, LogEntry{
		Timestamp:  rec.now(),
		Type:       "customer_arrival",
		Day:        customer.Day,
		CustomerID: customer.ID,
		Name:       customer.Name,
		Fallback:   customer.Fallback,
		Details:    customer,
	})
	rec.publish(TopicArrivals, ArrivalStreamEvent{
		Timestamp:   rec.now().Unix(),
		Day:         int32(customer.Day),
		CustomerID:  customer.ID,
		Name:        customer.Name,
		Income:      customer.Income,
		Taste:       customer.Taste,
		Personality: customer.Personality,
		Fallback:    customer.Fallback,
	})
}

func (rec *Recorder) RecordExposure(day int, customer *models.Customer, exp models.ExposureRecord) {
	rec.exposures = append(rec.exposures, ExposureLogEntry{
		Timestamp:    rec.now(),
		Type:         "reviews_seen",
		Day:          day,
		CustomerID:   customer.ID,
		Name:         customer.Name,
		RestaurantID: exp.RestaurantID,
		InitialCount: exp.InitialCount,
		Biased:       exp.Biased,
		BiasReason:   exp.BiasReason,
		Reviews:      exp.Reviews,
	})
	rec.publish(TopicExposure, ExposureStreamEvent{
		Timestamp:    rec.now().Unix(),
		Day:          int32(day),
		CustomerID:   customer.ID,
		RestaurantID: exp.RestaurantID,
		ReviewCount:  int32(len(exp.Reviews)),
		InitialCount: int32(exp.InitialCount),
		Biased:       exp.Biased,
		BiasReason:   exp.BiasReason,
	})
}

func (rec *Recorder) RecordDecision(event models.DecisionEvent) {
	rec.decisions = append(rec.decisions, event)
	rec.entries = append(rec.entries, LogEntry{
		Timestamp:    event.Timestamp,
		Type:         "decision",
		Day:          event.Day,
		CustomerID:   event.CustomerID,
		Name:         event.Customer.Name,
		RestaurantID: event.RestaurantID,
		Outcome:      event.Outcome,
		Reason:       event.Reason,
	})
	if event.Outcome == models.OutcomeChosen {
		rec.entries = append(rec.entries, LogEntry{
			Timestamp:    event.Timestamp,
			Type:         "order",
			Day:          event.Day,
			CustomerID:   event.CustomerID,
			Name:         event.Customer.Name,
			RestaurantID: event.RestaurantID,
			Item:         event.Item,
			Price:        event.Price,
		})
	}
	rec.publish(TopicDecisions, DecisionStreamEvent{
		Timestamp:    event.Timestamp.Unix(),
		Day:          int32(event.Day),
		CustomerID:   event.CustomerID,
		Outcome:      event.Outcome,
		RestaurantID: event.RestaurantID,
		Item:         event.Item,
		Price:        event.Price,
		Reason:       event.Reason,
	})
}

func (rec *Recorder) RecordReview(day int, review models.Review) {
	rec.entries = append(rec.entries, LogEntry{
		Timestamp:    rec.now(),
		Type:         "review",
		Day:          day,
		CustomerID:   review.CustomerID,
		RestaurantID: review.RestaurantID,
		Item:         review.OrderedItem,
		Stars:        review.Stars,
		Reason:       review.Text,
	})
}

func (rec *Recorder) RecordDaySummary(day int, restaurants []*models.Restaurant) {
	summary := make([]RestaurantDaySummary, len(restaurants))
	for i, r := range restaurants {
		summary[i] = RestaurantDaySummary{
			RestaurantID: r.ID,
			Rating:       r.Rating,
			ReviewCount:  r.ReviewCount(),
			Visits:       r.Visits,
			Revenue:      r.Revenue,
		}
		rec.publish(TopicDaySummaries, DaySummaryStreamEvent{
			Timestamp:    rec.now().Unix(),
			Day:          int32(day),
			RestaurantID: r.ID,
			Rating:       r.Rating,
			Visits:       int32(r.Visits),
			Revenue:      r.Revenue,
			ReviewCount:  int32(r.ReviewCount()),
		})
	}
	rec.entries = append(rec.entries, LogEntry{
		Timestamp: rec.now(),
		Type:      "day_summary",
		Day:       day,
		Summary:   summary,
	})
}

func (rec *Recorder) Entries() []LogEntry                 { return rec.entries }
func (rec *Recorder) Decisions() []models.DecisionEvent   { return rec.decisions }
func (rec *Recorder) Exposures() []ExposureLogEntry       { return rec.exposures }

func (rec *Recorder) publish(topic string, payload interface{}) {
	if rec.stream == nil {
		return
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).WithField("topic", topic).Error("failed to serialize stream event")
		return
	}
	if err := rec.stream.WriteMessage(topic, msg); err != nil {
		log.WithError(err).WithField("topic", topic).Warn("failed to write stream event")
	}
}
