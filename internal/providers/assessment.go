package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// AssessmentClient generates AI portfolio assessments through a
// chat-completions style API.
type AssessmentClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAssessmentClient creates a new AI-assessment provider client.
func NewAssessmentClient(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *AssessmentClient {
	return &AssessmentClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate runs one completion over the given system and user prompts and
// returns the assessment text.
func (c *AssessmentClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	requestURL := fmt.Sprintf("%s/chat/completions", c.baseURL)

	request := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}

	var response chatResponse
	err := postJSON(ctx, c.httpClient, c.logger, "assessment", requestURL, headers, request, &response)
	if err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("assessment: empty choices in response")
	}

	c.logger.Debug("generated-assessment",
		zap.String("model", c.model),
		zap.Int("chars", len(response.Choices[0].Message.Content)))

	return response.Choices[0].Message.Content, nil
}
