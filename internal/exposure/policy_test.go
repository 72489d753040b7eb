package exposure

import (
	"testing"
	"time"

	"github.com/dinersim/dinersim/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultThresholds() Thresholds {
	return Thresholds{
		InitialSize:     5,
		SupplementSize:  3,
		OverPositiveMin: 4.5,
		RatingGap:       0.8,
		StalenessCutoff: 90 * 24 * time.Hour,
	}
}

func on(date string) time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return t
}

// Five glowing recent reviews on top, three poor ones hidden below the
// window: the classic over-positive storefront.
func overPositiveRestaurant() *models.Restaurant {
	seeds := []models.Review{
		{ID: "p1", Stars: 5, Date: on("2025-05-01")},
		{ID: "p2", Stars: 5, Date: on("2025-04-20")},
		{ID: "p3", Stars: 5, Date: on("2025-04-10")},
		{ID: "p4", Stars: 4.5, Date: on("2025-04-01")},
		{ID: "p5", Stars: 4.5, Date: on("2025-03-20")},
		{ID: "n1", Stars: 2, Date: on("2025-03-10")},
		{ID: "n2", Stars: 1.5, Date: on("2025-03-05")},
		{ID: "n3", Stars: 3, Date: on("2025-03-01")},
	}
	return models.NewRestaurant("r1", "Test", map[string]float64{"Pizza": 10}, 0, models.PolicyHighestRating, seeds)
}

func TestCompute_EmptyReviewSet_NeverBiased(t *testing.T) {
	r := models.NewRestaurant("r1", "Test", map[string]float64{"Pizza": 10}, 0, models.PolicyLatest, nil)

	res := Compute(r, defaultThresholds())

	assert.Empty(t, res.Reviews)
	assert.Zero(t, res.InitialCount)
	assert.False(t, res.Biased)
}

func TestCompute_FewerReviewsThanWindow_ShowsAll(t *testing.T) {
	seeds := []models.Review{
		{ID: "a", Stars: 4, Date: on("2025-05-01")},
		{ID: "b", Stars: 3, Date: on("2025-05-02")},
	}
	r := models.NewRestaurant("r1", "Test", map[string]float64{"Pizza": 10}, 0, models.PolicyLatest, seeds)

	res := Compute(r, defaultThresholds())

	assert.Equal(t, 2, res.InitialCount)
	assert.Len(t, res.Reviews, 2)
	assert.False(t, res.Biased)
}

func TestCompute_OverPositiveWindow_SupplementedWithLowestUnseen(t *testing.T) {
	res := Compute(overPositiveRestaurant(), defaultThresholds())

	require.True(t, res.Biased)
	assert.Equal(t, models.BiasOverPositive, res.Reason)
	assert.Equal(t, 5, res.InitialCount)
	require.Len(t, res.Reviews, 8)

	// supplement holds the three hidden reviews, lowest stars first
	supplement := res.Reviews[5:]
	assert.Equal(t, "n2", supplement[0].ID)
	assert.Equal(t, "n1", supplement[1].ID)
	assert.Equal(t, "n3", supplement[2].ID)
}

func TestCompute_SupplementNeverDuplicatesShownReviews(t *testing.T) {
	res := Compute(overPositiveRestaurant(), defaultThresholds())

	seen := make(map[string]int)
	for _, r := range res.Reviews {
		seen[r.ID]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "review %s appears %d times", id, count)
	}
}

func TestCompute_SupplementTruncatedToLimit(t *testing.T) {
	th := defaultThresholds()
	th.SupplementSize = 2

	res := Compute(overPositiveRestaurant(), th)

	require.True(t, res.Biased)
	assert.Len(t, res.Reviews, 7)
}

func TestCompute_FewerQualifyingThanLimit_YieldsFewer(t *testing.T) {
	th := defaultThresholds()
	th.SupplementSize = 10

	res := Compute(overPositiveRestaurant(), th)

	require.True(t, res.Biased)
	assert.Len(t, res.Reviews, 8)
}

func TestCompute_StaleWindow_SupplementedWithNewestUnseen(t *testing.T) {
	// highest_rating policy surfaces old 5-star reviews while recent
	// middling ones exist
	seeds := []models.Review{
		{ID: "old1", Stars: 5, Date: on("2024-01-01")},
		{ID: "old2", Stars: 5, Date: on("2024-01-15")},
		{ID: "old3", Stars: 4.8, Date: on("2024-02-01")},
		{ID: "old4", Stars: 4.7, Date: on("2024-02-15")},
		{ID: "old5", Stars: 4.6, Date: on("2024-03-01")},
		{ID: "new1", Stars: 4.4, Date: on("2025-05-01")},
		{ID: "new2", Stars: 4.3, Date: on("2025-05-10")},
	}
	r := models.NewRestaurant("r1", "Test", map[string]float64{"Pizza": 10}, 0, models.PolicyHighestRating, seeds)

	res := Compute(r, defaultThresholds())

	require.True(t, res.Biased)
	assert.Equal(t, models.BiasStale, res.Reason)

	supplement := res.Reviews[5:]
	require.Len(t, supplement, 2)
	assert.Equal(t, "new2", supplement[0].ID)
	assert.Equal(t, "new1", supplement[1].ID)
}

func TestCompute_RepresentativeWindow_NotBiased(t *testing.T) {
	seeds := []models.Review{
		{ID: "a", Stars: 4, Date: on("2025-05-01")},
		{ID: "b", Stars: 3.5, Date: on("2025-04-28")},
		{ID: "c", Stars: 4.5, Date: on("2025-04-20")},
		{ID: "d", Stars: 3, Date: on("2025-04-15")},
		{ID: "e", Stars: 4, Date: on("2025-04-10")},
		{ID: "f", Stars: 3.5, Date: on("2025-04-01")},
	}
	r := models.NewRestaurant("r1", "Test", map[string]float64{"Pizza": 10}, 0, models.PolicyLatest, seeds)

	res := Compute(r, defaultThresholds())

	assert.False(t, res.Biased)
	assert.Len(t, res.Reviews, 5)
}

func TestCompute_DeterministicForIdenticalInputs(t *testing.T) {
	th := defaultThresholds()

	first := Compute(overPositiveRestaurant(), th)
	second := Compute(overPositiveRestaurant(), th)

	assert.Equal(t, first, second)
}
