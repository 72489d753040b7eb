// Package exposure decides which subset of a restaurant's reviews a
// customer is shown, flags exposure sets that misrepresent the full
// review population, and selects counteracting supplements.
package exposure

import (
	"sort"
	"time"

	"github.com/dinersim/dinersim/internal/models"
)

// Thresholds parameterise bias detection. The values are configuration,
// not contract; only the detection shape is fixed.
type Thresholds struct {
	InitialSize     int
	SupplementSize  int
	OverPositiveMin float64
	RatingGap       float64
	StalenessCutoff time.Duration
}

// Result is the final exposure for one restaurant and one customer:
// the initial window followed by any supplement, in selection order.
type Result struct {
	Reviews      []models.Review
	InitialCount int
	Biased       bool
	Reason       string
}

// Compute builds the exposure set for a restaurant's current reviews.
// Given identical reviews, policy and thresholds the output is
// identical; there is no randomness anywhere in this path.
func Compute(r *models.Restaurant, th Thresholds) Result {
	sorted := r.SortedReviews()

	n := th.InitialSize
	if n > len(sorted) {
		n = len(sorted)
	}
	initial := sorted[:n]

	res := Result{
		Reviews:      append([]models.Review(nil), initial...),
		InitialCount: n,
	}
	if n == 0 {
		// No data to compare; an empty exposure is never biased.
		return res
	}

	full := r.AllReviews()
	res.Biased, res.Reason = detectBias(initial, full, th)
	if !res.Biased {
		return res
	}

	supplement := selectSupplement(initial, full, res.Reason, th.SupplementSize)
	res.Reviews = append(res.Reviews, supplement...)
	return res
}

// detectBias flags an exposure window that is unrepresentatively
// positive, or entirely stale while fresher reviews exist.
func detectBias(initial, full []models.Review, th Thresholds) (bool, string) {
	initialMean := models.MeanStars(initial)
	fullMean := models.MeanStars(full)
	if initialMean >= th.OverPositiveMin && initialMean-fullMean > th.RatingGap {
		return true, models.BiasOverPositive
	}

	cutoff := models.NewestDate(full).Add(-th.StalenessCutoff)
	allStale := true
	for _, r := range initial {
		if !r.Date.Before(cutoff) {
			allStale = false
			break
		}
	}
	if allStale {
		return true, models.BiasStale
	}

	return false, models.BiasNone
}

// selectSupplement picks up to limit reviews not already shown, chosen
// to counteract the detected bias: lowest-rated unseen reviews for
// over-positivity, newest unseen reviews for staleness. Fewer than
// limit qualifying reviews simply yields fewer supplements.
func selectSupplement(initial, full []models.Review, reason string, limit int) []models.Review {
	if limit <= 0 {
		return nil
	}

	shown := make(map[string]bool, len(initial))
	for _, r := range initial {
		shown[r.ID] = true
	}

	var unseen []models.Review
	for _, r := range full {
		if !shown[r.ID] {
			unseen = append(unseen, r)
		}
	}

	switch reason {
	case models.BiasOverPositive:
		sort.SliceStable(unseen, func(i, j int) bool {
			if unseen[i].Stars != unseen[j].Stars {
				return unseen[i].Stars < unseen[j].Stars
			}
			if !unseen[i].Date.Equal(unseen[j].Date) {
				return unseen[i].Date.After(unseen[j].Date)
			}
			return unseen[i].ID < unseen[j].ID
		})
	case models.BiasStale:
		sort.SliceStable(unseen, func(i, j int) bool {
			if !unseen[i].Date.Equal(unseen[j].Date) {
				return unseen[i].Date.After(unseen[j].Date)
			}
			return unseen[i].ID < unseen[j].ID
		})
	}

	if len(unseen) > limit {
		unseen = unseen[:limit]
	}
	return unseen
}
