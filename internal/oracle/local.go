package oracle

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/dinersim/dinersim/internal/models"
	"github.com/jaswdr/faker"
)

var (
	incomeBrackets = []string{
		"$5K-5.8K(Very Poor)",
		"$6K-7.9K(Poor)",
		"$8K-11.9K(Middle Class)",
		"$12K-14.8K(Affluent)",
	}
	tastes = []string{
		"Local comfort foods", "Rice and noodle dishes", "Sandwiches and salads",
		"Fast food", "Seafood", "Steak and meat dishes", "Vegan dishes",
		"Pasta and pizza", "Spicy food", "Gourmet dishes", "Sushi and Japanese cuisine",
		"Italian cuisine", "Mexican food", "Street food", "Indian cuisine",
		"Barbecue", "Salads", "Fine dining", "Traditional cuisine",
	}
	healthConditions = []string{
		"Healthy", "No concerns", "High blood pressure", "Diabetic", "Allergies",
		"Lactose intolerant", "High cholesterol", "Gluten sensitivity",
	}
	dietaryRestrictions = []string{
		"None", "Low sodium", "Low sugar", "Low cholesterol", "Low fat",
		"Gluten-free", "Dairy-free", "Vegan",
	}
	personalities = []string{
		"Easy-going", "Strict", "Picky", "Cheerful", "Shy", "Adventurous",
		"Friendly", "Reserved", "Meticulous", "Curious", "Discerning",
		"Thoughtful", "Optimistic", "Analytical", "Sophisticated",
	}
)

// LocalOracle is a deterministic seeded stand-in for the generative
// service: it answers both request types without network access, so
// runs are reproducible and usable offline. Two runs with the same
// seed and inputs produce the same customers and choices.
type LocalOracle struct {
	rng  *rand.Rand
	fake faker.Faker
}

func NewLocalOracle(seed int64) *LocalOracle {
	return &LocalOracle{
		rng:  rand.New(rand.NewSource(seed)),
		fake: faker.NewWithSeed(rand.NewSource(seed)),
	}
}

func (o *LocalOracle) GenerateCustomer(_ context.Context, day int) (*models.Customer, error) {
	name := o.fake.Person().Name()
	taste := tastes[o.rng.Intn(len(tastes))]
	personality := personalities[o.rng.Intn(len(personalities))]
	return &models.Customer{
		Day:                day,
		Name:               name,
		Income:             incomeBrackets[o.rng.Intn(len(incomeBrackets))],
		Taste:              taste,
		Health:             healthConditions[o.rng.Intn(len(healthConditions))],
		DietaryRestriction: dietaryRestrictions[o.rng.Intn(len(dietaryRestrictions))],
		Personality:        personality,
		Profile:            fmt.Sprintf("%s diner with a taste for %s", personality, taste),
	}, nil
}

func (o *LocalOracle) Decide(_ context.Context, customer *models.Customer, options []Option) (*models.DecisionResult, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: no restaurant options", models.ErrOracleMalformed)
	}

	// Occasional explicit decline, mirroring real-model behaviour.
	if o.rng.Float64() < 0.03 {
		return &models.DecisionResult{
			Declined: true,
			Reason:   fmt.Sprintf("%s found nothing appealing today", customer.Name),
		}, nil
	}

	best := options[0]
	bestScore := o.scoreOption(best)
	for _, opt := range options[1:] {
		if score := o.scoreOption(opt); score > bestScore {
			best, bestScore = opt, score
		}
	}

	item, price := o.pickItem(best.Menu)
	stars := clampStars(best.Rating + (o.rng.Float64()*2 - 1))
	return &models.DecisionResult{
		RestaurantID: best.RestaurantID,
		Item:         item,
		Reason: fmt.Sprintf("Chose %s for its %.1f-star reviews and the %s at $%.0f",
			best.Name, best.Rating, item, price),
		Review: &models.ReviewDraft{
			Stars: stars,
			Text:  o.fake.Lorem().Sentence(12),
		},
	}, nil
}

// scoreOption ranks a restaurant by the rating evidence shown to the
// customer, falling back to the quality baseline when no reviews exist.
func (o *LocalOracle) scoreOption(opt Option) float64 {
	if len(opt.Reviews) == 0 {
		return opt.QualityRating / 20
	}
	return models.MeanStars(opt.Reviews) + opt.QualityRating/100
}

func (o *LocalOracle) pickItem(menu map[string]float64) (string, float64) {
	names := make([]string, 0, len(menu))
	for name := range menu {
		names = append(names, name)
	}
	sort.Strings(names)
	name := names[o.rng.Intn(len(names))]
	return name, menu[name]
}

func clampStars(s float64) float64 {
	if s < 1 {
		return 1
	}
	if s > 5 {
		return 5
	}
	return s
}
