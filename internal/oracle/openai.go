package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/dinersim/dinersim/internal/models"
	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

// completionClient is the slice of the OpenAI client the adapter needs;
// narrowed for testing.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIOracle asks a chat-completion model to act as the synthetic
// customer. Transport failures (timeouts, 5xx, rate limits) are retried
// with exponential backoff up to maxRetries attempts and then surface
// as ErrOracleUnavailable; unparseable or invalid responses surface
// immediately as ErrOracleMalformed.
type OpenAIOracle struct {
	client     completionClient
	model      string
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
}

func NewOpenAIOracle(cfg *models.Config) *OpenAIOracle {
	return &OpenAIOracle{
		client:     openai.NewClient(cfg.OracleAPIKey),
		model:      cfg.OracleModel,
		maxRetries: cfg.OracleMaxRetries,
		backoff:    cfg.OracleRetryBackoff,
		timeout:    cfg.OracleTimeout,
	}
}

func (o *OpenAIOracle) GenerateCustomer(ctx context.Context, day int) (*models.Customer, error) {
	prompt := buildCustomerPrompt(day)
	content, err := o.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseCustomer(content, day)
}

func (o *OpenAIOracle) Decide(ctx context.Context, customer *models.Customer, options []Option) (*models.DecisionResult, error) {
	prompt := buildDecisionPrompt(customer, options)
	content, err := o.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseDecision(content, options)
}

// complete issues the chat request, retrying only transient transport
// failures.
func (o *OpenAIOracle) complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
		resp, err := o.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model: o.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Temperature: 0.7,
		})
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("%w: empty choices", models.ErrOracleMalformed)
			}
			return resp.Choices[0].Message.Content, nil
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}
		if attempt < o.maxRetries {
			wait := o.backoff * (1 << (attempt - 1))
			log.WithFields(log.Fields{"attempt": attempt, "wait": wait}).Warn("oracle request failed, retrying")
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", models.ErrOracleUnavailable, ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return "", fmt.Errorf("%w: %v", models.ErrOracleUnavailable, lastErr)
}

// isRetryable reports whether the transport failure is worth another
// attempt: timeouts, connection errors, rate limits and server errors.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func buildCustomerPrompt(day int) string {
	return fmt.Sprintf(`Synthesize one restaurant customer arriving on simulation day %d.

Return JSON with exactly these fields:
{
  "name": "short realistic name",
  "income": "income bracket, e.g. $8K-11.9K(Middle Class)",
  "taste": "one cuisine or food preference",
  "health": "health condition, e.g. Healthy, Diabetic, Lactose intolerant",
  "dietary_restriction": "None or a restriction like Gluten-free",
  "personality": "one personality trait, e.g. Analytical, Easy-going",
  "profile": "one-sentence free-text summary of this customer"
}`, day)
}

func buildDecisionPrompt(customer *models.Customer, options []Option) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Act as %s and choose one restaurant to visit, or decline to choose.\n\n", customer.Name)
	fmt.Fprintf(&b, "Customer Profile:\n")
	fmt.Fprintf(&b, "- Budget: %s\n", customer.Income)
	fmt.Fprintf(&b, "- Food Preferences: %s\n", customer.Taste)
	if customer.DietaryRestriction != "" && customer.DietaryRestriction != "None" {
		fmt.Fprintf(&b, "- Health/Diet: %s (%s)\n", customer.Health, customer.DietaryRestriction)
	} else {
		fmt.Fprintf(&b, "- Health/Diet: %s\n", customer.Health)
	}
	fmt.Fprintf(&b, "- Personality: %s\n", customer.Personality)

	for _, opt := range options {
		fmt.Fprintf(&b, "\nRestaurant %s (%s, %s):\n", opt.RestaurantID, opt.Name, policyDescription(opt.Policy))
		fmt.Fprintf(&b, "- Overall rating: %.1f stars from %d reviews\n", opt.Rating, opt.ReviewCount)
		if opt.QualityRating > 0 {
			fmt.Fprintf(&b, "- Quality baseline: %.0f/100\n", opt.QualityRating)
		}
		fmt.Fprintf(&b, "- Menu: %s\n", formatMenu(opt.Menu))
		fmt.Fprintf(&b, "- Reviews shown:\n%s\n", formatReviews(opt.Reviews))
	}

	b.WriteString(`
Consider ratings, review trustworthiness, menu fit, prices and your dietary restrictions.

Return JSON with:
{
  "restaurant_id": "one of the restaurant ids above, or empty if declining",
  "item": "exact menu item name from the chosen restaurant",
  "reason": "detailed explanation of the choice",
  "declined": false,
  "review": {"stars": 1-5, "text": "the 30-50 word review you would leave after the visit"}
}`)
	return b.String()
}

func policyDescription(policy string) string {
	switch policy {
	case models.PolicyHighestRating:
		return "shows highest rated reviews first"
	case models.PolicyLatest:
		return "shows most recent reviews first"
	default:
		return "shows reviews in default order"
	}
}

func formatMenu(menu map[string]float64) string {
	items := make([]string, 0, len(menu))
	for name := range menu {
		items = append(items, name)
	}
	sort.Strings(items)
	parts := make([]string, len(items))
	for i, name := range items {
		parts[i] = fmt.Sprintf("%s ($%.0f)", name, menu[name])
	}
	return strings.Join(parts, ", ")
}

func formatReviews(reviews []models.Review) string {
	if len(reviews) == 0 {
		return "  (no reviews yet)"
	}
	lines := make([]string, len(reviews))
	for i, r := range reviews {
		lines[i] = fmt.Sprintf("  %.1f stars: %s", r.Stars, r.Text)
	}
	return strings.Join(lines, "\n")
}

type customerResponse struct {
	Name               string `json:"name"`
	Income             string `json:"income"`
	Taste              string `json:"taste"`
	Health             string `json:"health"`
	DietaryRestriction string `json:"dietary_restriction"`
	Personality        string `json:"personality"`
	Profile            string `json:"profile"`
}

func parseCustomer(content string, day int) (*models.Customer, error) {
	var resp customerResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrOracleMalformed, err)
	}
	if resp.Name == "" || resp.Income == "" || resp.Taste == "" || resp.Personality == "" {
		return nil, fmt.Errorf("%w: profile missing required fields", models.ErrOracleMalformed)
	}
	if resp.DietaryRestriction == "" {
		resp.DietaryRestriction = "None"
	}
	return &models.Customer{
		Day:                day,
		Name:               resp.Name,
		Income:             resp.Income,
		Taste:              resp.Taste,
		Health:             resp.Health,
		DietaryRestriction: resp.DietaryRestriction,
		Personality:        resp.Personality,
		Profile:            resp.Profile,
	}, nil
}

type decisionResponse struct {
	RestaurantID string `json:"restaurant_id"`
	Item         string `json:"item"`
	Reason       string `json:"reason"`
	Declined     bool   `json:"declined"`
	Review       *struct {
		Stars float64 `json:"stars"`
		Text  string  `json:"text"`
	} `json:"review"`
}

func parseDecision(content string, options []Option) (*models.DecisionResult, error) {
	var resp decisionResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrOracleMalformed, err)
	}

	if resp.Declined {
		return &models.DecisionResult{Declined: true, Reason: resp.Reason}, nil
	}

	var chosen *Option
	for i := range options {
		if options[i].RestaurantID == resp.RestaurantID {
			chosen = &options[i]
			break
		}
	}
	if chosen == nil {
		return nil, fmt.Errorf("%w: unknown restaurant %q", models.ErrOracleMalformed, resp.RestaurantID)
	}

	result := &models.DecisionResult{
		RestaurantID: resp.RestaurantID,
		Item:         resp.Item,
		Reason:       resp.Reason,
	}
	if resp.Review != nil && resp.Review.Stars >= 1 && resp.Review.Stars <= 5 && resp.Review.Text != "" {
		result.Review = &models.ReviewDraft{Stars: resp.Review.Stars, Text: resp.Review.Text}
	}
	return result, nil
}
