package simulator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dinersim/dinersim/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput retains every streamed message for inspection.
type captureOutput struct {
	messages map[string][][]byte
	closed   bool
}

func newCaptureOutput() *captureOutput {
	return &captureOutput{messages: make(map[string][][]byte)}
}

func (c *captureOutput) WriteMessage(topic string, msg []byte) error {
	c.messages[topic] = append(c.messages[topic], msg)
	return nil
}

func (c *captureOutput) Close() error {
	c.closed = true
	return nil
}

func TestRecorder_ArrivalAppendsEntryAndStreams(t *testing.T) {
	capture := newCaptureOutput()
	rec := NewRecorder(capture)

	rec.RecordArrival(&models.Customer{ID: "c1", Day: 2, Name: "Maya", Income: "$8K-11.9K(Middle Class)"})

	require.Len(t, rec.Entries(), 1)
	assert.Equal(t, "customer_arrival", rec.Entries()[0].Type)
	assert.Equal(t, "c1", rec.Entries()[0].CustomerID)

	require.Len(t, capture.messages[TopicArrivals], 1)
	var event ArrivalStreamEvent
	require.NoError(t, json.Unmarshal(capture.messages[TopicArrivals][0], &event))
	assert.Equal(t, "c1", event.CustomerID)
	assert.Equal(t, int32(2), event.Day)
}

func TestRecorder_ChosenDecisionAddsOrderEntry(t *testing.T) {
	rec := NewRecorder(nil)
	event := models.DecisionEvent{
		Timestamp:    time.Now(),
		Day:          1,
		CustomerID:   "c1",
		Customer:     models.Customer{Name: "Maya"},
		Outcome:      models.OutcomeChosen,
		RestaurantID: "rest_a",
		Item:         "Pizza",
		Price:        12,
	}

	rec.RecordDecision(event)

	require.Len(t, rec.Decisions(), 1)
	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "decision", entries[0].Type)
	assert.Equal(t, "order", entries[1].Type)
	assert.Equal(t, 12.0, entries[1].Price)
}

func TestRecorder_DeclinedDecisionHasNoOrderEntry(t *testing.T) {
	rec := NewRecorder(nil)

	rec.RecordDecision(models.DecisionEvent{
		Day:        1,
		CustomerID: "c1",
		Outcome:    models.OutcomeDeclined,
	})

	require.Len(t, rec.Entries(), 1)
	assert.Equal(t, "decision", rec.Entries()[0].Type)
}

func TestRecorder_ExposureGoesToSeparateStream(t *testing.T) {
	rec := NewRecorder(nil)
	customer := &models.Customer{ID: "c1", Name: "Maya"}

	rec.RecordExposure(1, customer, models.ExposureRecord{
		RestaurantID: "rest_a",
		InitialCount: 5,
		Biased:       true,
		BiasReason:   models.BiasOverPositive,
	})

	require.Len(t, rec.Exposures(), 1)
	assert.Empty(t, rec.Entries(), "exposure records live in their own artifact")
	assert.Equal(t, models.BiasOverPositive, rec.Exposures()[0].BiasReason)
}

func TestRecorder_DaySummaryCoversAllRestaurants(t *testing.T) {
	capture := newCaptureOutput()
	rec := NewRecorder(capture)
	restaurants := []*models.Restaurant{
		models.NewRestaurant("r1", "One", map[string]float64{"Pizza": 10}, 0, models.PolicyLatest, nil),
		models.NewRestaurant("r2", "Two", map[string]float64{"Salad": 8}, 0, models.PolicyLatest, nil),
	}
	restaurants[0].RecordVisit(10)

	rec.RecordDaySummary(1, restaurants)

	require.Len(t, rec.Entries(), 1)
	summary := rec.Entries()[0].Summary
	require.Len(t, summary, 2)
	assert.Equal(t, 1, summary[0].Visits)
	assert.Equal(t, 10.0, summary[0].Revenue)
	assert.Len(t, capture.messages[TopicDaySummaries], 2)
}

func TestRecorder_StreamFailureDoesNotPanicOrDrop(t *testing.T) {
	rec := NewRecorder(failingOutput{})

	rec.RecordArrival(&models.Customer{ID: "c1", Day: 1})

	assert.Len(t, rec.Entries(), 1, "in-memory stream stays authoritative")
}

type failingOutput struct{}

func (failingOutput) WriteMessage(string, []byte) error { return assert.AnError }
func (failingOutput) Close() error                      { return nil }
