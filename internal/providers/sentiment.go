package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SentimentClient fetches the current market fear/greed reading.
type SentimentClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSentimentClient creates a new sentiment-index provider client.
// The provider is unauthenticated.
func NewSentimentClient(baseURL string, timeout time.Duration, logger *zap.Logger) *SentimentClient {
	return &SentimentClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SentimentReading is one fear/greed index reading.
type SentimentReading struct {
	Value          string `json:"value"`
	Classification string `json:"value_classification"`
	Timestamp      string `json:"timestamp"`
}

type sentimentEnvelope struct {
	Data []SentimentReading `json:"data"`
}

// FetchIndex fetches the latest sentiment reading.
func (c *SentimentClient) FetchIndex(ctx context.Context) (*SentimentReading, error) {
	requestURL := fmt.Sprintf("%s/?limit=1&format=json", c.baseURL)

	var envelope sentimentEnvelope
	err := getJSON(ctx, c.httpClient, c.logger, "sentiment", requestURL, &envelope)
	if err != nil {
		return nil, err
	}

	if len(envelope.Data) == 0 {
		return nil, fmt.Errorf("sentiment: empty data envelope")
	}

	return &envelope.Data[0], nil
}
