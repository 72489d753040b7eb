package models

import "sort"

// Restaurant holds the mutable state of one candidate restaurant for
// the lifetime of a run. Menu, quality rating and review policy are
// fixed at construction; reviews, rating, visits and revenue change
// once per decision event that selects this restaurant.
type Restaurant struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Menu          map[string]float64 `json:"menu"`
	QualityRating float64            `json:"quality_rating"`
	ReviewPolicy  string             `json:"review_policy"`
	SeedReviews   []Review           `json:"seed_reviews"`
	Reviews       []Review           `json:"reviews"`
	Rating        float64            `json:"rating"`
	Visits        int                `json:"visits"`
	Revenue       float64            `json:"revenue"`
}

func NewRestaurant(id, name string, menu map[string]float64, qualityRating float64, policy string, seedReviews []Review) *Restaurant {
	r := &Restaurant{
		ID:            id,
		Name:          name,
		Menu:          menu,
		QualityRating: qualityRating,
		ReviewPolicy:  policy,
		SeedReviews:   seedReviews,
	}
	r.Rating = MeanStars(r.AllReviews())
	return r
}

// AllReviews returns seed reviews followed by run-generated reviews.
func (r *Restaurant) AllReviews() []Review {
	all := make([]Review, 0, len(r.SeedReviews)+len(r.Reviews))
	all = append(all, r.SeedReviews...)
	all = append(all, r.Reviews...)
	return all
}

func (r *Restaurant) ReviewCount() int {
	return len(r.SeedReviews) + len(r.Reviews)
}

// AddReview appends a review and recomputes the aggregate rating as the
// mean over all reviews currently held.
func (r *Restaurant) AddReview(review Review) {
	r.Reviews = append(r.Reviews, review)
	r.Rating = MeanStars(r.AllReviews())
}

// RecordVisit increments the visit count and adds the purchased item's
// price to revenue. Revenue only ever grows.
func (r *Restaurant) RecordVisit(itemPrice float64) {
	r.Visits++
	r.Revenue += itemPrice
}

// SortedReviews orders the current full review set per the configured
// policy. The sequence is recomputed on every call so additions are
// reflected immediately; review IDs break remaining ties to keep the
// order fully deterministic.
func (r *Restaurant) SortedReviews() []Review {
	reviews := r.AllReviews()
	switch r.ReviewPolicy {
	case PolicyHighestRating:
		sort.SliceStable(reviews, func(i, j int) bool {
			if reviews[i].Stars != reviews[j].Stars {
				return reviews[i].Stars > reviews[j].Stars
			}
			if !reviews[i].Date.Equal(reviews[j].Date) {
				return reviews[i].Date.After(reviews[j].Date)
			}
			return reviews[i].ID < reviews[j].ID
		})
	default: // PolicyLatest
		sort.SliceStable(reviews, func(i, j int) bool {
			if !reviews[i].Date.Equal(reviews[j].Date) {
				return reviews[i].Date.After(reviews[j].Date)
			}
			return reviews[i].ID < reviews[j].ID
		})
	}
	return reviews
}
