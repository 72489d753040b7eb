package models

import "time"

// Review is immutable once added to a restaurant's set.
type Review struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	RestaurantID string    `json:"restaurant_id"`
	Stars        float64   `json:"stars"`
	Text         string    `json:"text"`
	Date         time.Time `json:"date"`
	OrderedItem  string    `json:"ordered_item,omitempty"`
	Label        string    `json:"label,omitempty"`
	Seed         bool      `json:"seed,omitempty"`
}

// MeanStars returns the average rating of a review set, 0 when empty.
func MeanStars(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum float64
	for _, r := range reviews {
		sum += r.Stars
	}
	return sum / float64(len(reviews))
}

// NewestDate returns the most recent review date in the set, the zero
// time when the set is empty.
func NewestDate(reviews []Review) time.Time {
	var newest time.Time
	for _, r := range reviews {
		if r.Date.After(newest) {
			newest = r.Date
		}
	}
	return newest
}
