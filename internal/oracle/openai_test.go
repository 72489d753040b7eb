package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/dinersim/dinersim/internal/models"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient plays back a scripted sequence of responses and errors.
type stubClient struct {
	responses []stubResponse
	calls     int
}

type stubResponse struct {
	content string
	err     error
}

func (s *stubClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	r := s.responses[i]
	if r.err != nil {
		return openai.ChatCompletionResponse{}, r.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: r.content}},
		},
	}, nil
}

func testOracle(client completionClient) *OpenAIOracle {
	return &OpenAIOracle{
		client:     client,
		model:      "test-model",
		maxRetries: 3,
		backoff:    time.Millisecond,
		timeout:    time.Second,
	}
}

func sampleOptions() []Option {
	return []Option{
		{
			RestaurantID: "rest_a",
			Name:         "Golden Fork",
			Menu:         map[string]float64{"Pizza": 12, "Salad": 9},
			Rating:       4.2,
			ReviewCount:  7,
			Policy:       models.PolicyHighestRating,
		},
	}
}

func TestGenerateCustomer_ParsesValidProfile(t *testing.T) {
	client := &stubClient{responses: []stubResponse{{content: `{
        "name": "Maya Chen",
        "income": "$8K-11.9K(Middle Class)",
        "taste": "Sushi and Japanese cuisine",
        "health": "Healthy",
        "dietary_restriction": "None",
        "personality": "Analytical",
        "profile": "A careful diner who reads every review."
    }`}}}

	customer, err := testOracle(client).GenerateCustomer(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Maya Chen", customer.Name)
	assert.Equal(t, 3, customer.Day)
	assert.False(t, customer.Fallback)
}

func TestGenerateCustomer_MissingFields_Malformed(t *testing.T) {
	client := &stubClient{responses: []stubResponse{{content: `{"name": "Only Name"}`}}}

	_, err := testOracle(client).GenerateCustomer(context.Background(), 1)
	assert.ErrorIs(t, err, models.ErrOracleMalformed)
	assert.Equal(t, 1, client.calls, "malformed responses must not be retried")
}

func TestGenerateCustomer_EmptyDietaryRestrictionDefaultsToNone(t *testing.T) {
	client := &stubClient{responses: []stubResponse{{content: `{
        "name": "Sam", "income": "$6K-7.9K(Poor)", "taste": "Street food",
        "health": "Healthy", "personality": "Cheerful"
    }`}}}

	customer, err := testOracle(client).GenerateCustomer(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "None", customer.DietaryRestriction)
}

func TestComplete_RetriesServerErrorsThenSucceeds(t *testing.T) {
	client := &stubClient{responses: []stubResponse{
		{err: &openai.APIError{HTTPStatusCode: 503}},
		{err: &openai.APIError{HTTPStatusCode: 429}},
		{content: `{"name": "Ada", "income": "$12K-14.8K(Affluent)", "taste": "Fine dining",
            "health": "Healthy", "personality": "Discerning"}`},
	}}

	customer, err := testOracle(client).GenerateCustomer(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Ada", customer.Name)
	assert.Equal(t, 3, client.calls)
}

func TestComplete_ExhaustedRetries_Unavailable(t *testing.T) {
	client := &stubClient{responses: []stubResponse{
		{err: &openai.APIError{HTTPStatusCode: 500}},
	}}

	_, err := testOracle(client).GenerateCustomer(context.Background(), 1)
	assert.ErrorIs(t, err, models.ErrOracleUnavailable)
	assert.Equal(t, 3, client.calls)
}

func TestComplete_ClientErrorNotRetried(t *testing.T) {
	client := &stubClient{responses: []stubResponse{
		{err: &openai.APIError{HTTPStatusCode: 400}},
	}}

	_, err := testOracle(client).GenerateCustomer(context.Background(), 1)
	assert.ErrorIs(t, err, models.ErrOracleUnavailable)
	assert.Equal(t, 1, client.calls)
}

func TestDecide_ParsesChoiceWithReviewDraft(t *testing.T) {
	client := &stubClient{responses: []stubResponse{{content: `{
        "restaurant_id": "rest_a",
        "item": "Pizza",
        "reason": "Great ratings and the pizza fits my budget.",
        "declined": false,
        "review": {"stars": 4.5, "text": "Lovely thin crust, would come back."}
    }`}}}

	decision, err := testOracle(client).Decide(context.Background(), &models.Customer{Name: "Maya"}, sampleOptions())
	require.NoError(t, err)
	assert.Equal(t, "rest_a", decision.RestaurantID)
	assert.Equal(t, "Pizza", decision.Item)
	assert.False(t, decision.Declined)
	require.NotNil(t, decision.Review)
	assert.Equal(t, 4.5, decision.Review.Stars)
}

func TestDecide_DeclinedPassthrough(t *testing.T) {
	client := &stubClient{responses: []stubResponse{{content: `{
        "declined": true,
        "reason": "Nothing matched my dietary needs."
    }`}}}

	decision, err := testOracle(client).Decide(context.Background(), &models.Customer{Name: "Maya"}, sampleOptions())
	require.NoError(t, err)
	assert.True(t, decision.Declined)
	assert.Empty(t, decision.RestaurantID)
}

func TestDecide_UnknownRestaurant_Malformed(t *testing.T) {
	client := &stubClient{responses: []stubResponse{{content: `{
        "restaurant_id": "rest_z", "item": "Pizza", "declined": false
    }`}}}

	_, err := testOracle(client).Decide(context.Background(), &models.Customer{Name: "Maya"}, sampleOptions())
	assert.ErrorIs(t, err, models.ErrOracleMalformed)
}

func TestDecide_InvalidReviewDraftDropped(t *testing.T) {
	client := &stubClient{responses: []stubResponse{{content: `{
        "restaurant_id": "rest_a", "item": "Pizza", "declined": false,
        "review": {"stars": 9, "text": "impossible rating"}
    }`}}}

	decision, err := testOracle(client).Decide(context.Background(), &models.Customer{Name: "Maya"}, sampleOptions())
	require.NoError(t, err)
	assert.Nil(t, decision.Review)
}

func TestDecide_GarbageResponse_Malformed(t *testing.T) {
	client := &stubClient{responses: []stubResponse{{content: `I'd love to help you pick a restaurant!`}}}

	_, err := testOracle(client).Decide(context.Background(), &models.Customer{Name: "Maya"}, sampleOptions())
	assert.ErrorIs(t, err, models.ErrOracleMalformed)
	assert.Equal(t, 1, client.calls)
}
