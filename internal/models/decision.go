package models

import "time"

// ReviewDraft is the review a deciding customer would leave after the
// visit, carried on the oracle's decision response.
type ReviewDraft struct {
	Stars float64 `json:"stars"`
	Text  string  `json:"text"`
}

// DecisionResult is the oracle's answer for one customer: either a
// restaurant plus menu item, or an explicit decline.
type DecisionResult struct {
	RestaurantID string       `json:"restaurant_id"`
	Item         string       `json:"item"`
	Reason       string       `json:"reason"`
	Declined     bool         `json:"declined"`
	Review       *ReviewDraft `json:"review,omitempty"`
}

// ShownReview is the trimmed view of a review as it appeared in a
// customer's exposure set.
type ShownReview struct {
	ID    string  `json:"review_id"`
	Stars float64 `json:"stars"`
	Text  string  `json:"text"`
	Date  string  `json:"date"`
}

// ExposureRecord captures the reviews actually shown for one
// restaurant, with the bias-detection outcome.
type ExposureRecord struct {
	RestaurantID string        `json:"restaurant_id"`
	Reviews      []ShownReview `json:"reviews"`
	InitialCount int           `json:"initial_count"`
	Biased       bool          `json:"biased"`
	BiasReason   string        `json:"bias_reason,omitempty"`
}

// DecisionEvent is the append-only log record produced once per
// customer arrival.
type DecisionEvent struct {
	Timestamp    time.Time        `json:"timestamp"`
	Day          int              `json:"day"`
	CustomerID   string           `json:"customer_id"`
	Customer     Customer         `json:"customer"`
	Exposures    []ExposureRecord `json:"exposures"`
	Outcome      string           `json:"outcome"`
	RestaurantID string           `json:"restaurant_id,omitempty"`
	Item         string           `json:"item,omitempty"`
	Price        float64          `json:"price,omitempty"`
	Reason       string           `json:"reason,omitempty"`
	FailureCause string           `json:"failure_cause,omitempty"`
}
