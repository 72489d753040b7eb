// Package oracle is the sole point of contact with the external
// generative decision service. It exposes two request types behind a
// narrow interface: customer-profile synthesis and restaurant choice.
package oracle

import (
	"context"
	"fmt"

	"github.com/dinersim/dinersim/internal/models"
)

// Option is one candidate restaurant as presented to the oracle: its
// menu, aggregate rating, positioning baseline and the exposure review
// set the customer was actually shown.
type Option struct {
	RestaurantID  string
	Name          string
	Menu          map[string]float64
	Rating        float64
	ReviewCount   int
	QualityRating float64
	Policy        string
	Reviews       []models.Review
}

// Oracle synthesizes customer profiles and restaurant choices. Both
// calls issue exactly one logical external request; implementations may
// retry transient transport failures up to a bounded attempt count but
// never retry malformed responses. Neither call mutates shared state.
type Oracle interface {
	GenerateCustomer(ctx context.Context, day int) (*models.Customer, error)
	Decide(ctx context.Context, customer *models.Customer, options []Option) (*models.DecisionResult, error)
}

// FallbackCustomer is the documented deterministic profile substituted
// when customer generation fails. The run continues with this profile
// rather than aborting.
func FallbackCustomer(day, seq int) *models.Customer {
	return &models.Customer{
		ID:                 fmt.Sprintf("cust_fallback_d%02d_%03d", day, seq),
		Day:                day,
		Name:               "Fallback Customer",
		Income:             "$0 (Unknown)",
		Taste:              "Generic",
		Health:             "Average",
		DietaryRestriction: "None",
		Personality:        "Neutral",
		Profile:            "Default profile substituted after oracle failure",
		Fallback:           true,
	}
}
