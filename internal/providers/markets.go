package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// MarketsClient fetches prediction-market odds from a Gamma-style API.
type MarketsClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewMarketsClient creates a new prediction-market provider client.
func NewMarketsClient(baseURL string, timeout time.Duration, logger *zap.Logger) *MarketsClient {
	return &MarketsClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Market is the subset of a prediction market the app surfaces: the question
// and the current outcome pricing, which reads as an implied probability.
type Market struct {
	ID            string `json:"id"`
	Slug          string `json:"slug"`
	Question      string `json:"question"`
	Outcomes      string `json:"outcomes"`
	OutcomePrices string `json:"outcomePrices"`
	Volume        string `json:"volume"`
	EndDate       string `json:"endDate"`
	Active        bool   `json:"active"`
}

// FetchMarketBySlug fetches the market matching a slug. The API returns an
// array; an empty array means no such market.
func (c *MarketsClient) FetchMarketBySlug(ctx context.Context, slug string) ([]Market, error) {
	params := url.Values{}
	params.Add("slug", slug)

	requestURL := fmt.Sprintf("%s/markets?%s", c.baseURL, params.Encode())

	var markets []Market
	err := getJSON(ctx, c.httpClient, c.logger, "markets", requestURL, &markets)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched-markets",
		zap.String("slug", slug),
		zap.Int("count", len(markets)))

	return markets, nil
}
