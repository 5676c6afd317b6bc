package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// MacroClient fetches macroeconomic series observations.
type MacroClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewMacroClient creates a new macro-series provider client.
func NewMacroClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *MacroClient {
	return &MacroClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Observation is one dated data point of a macro series.
type Observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// SeriesObservations is the provider's observation envelope.
type SeriesObservations struct {
	Count        int           `json:"count"`
	Observations []Observation `json:"observations"`
}

// FetchSeries fetches all observations for one series ID.
func (c *MacroClient) FetchSeries(ctx context.Context, seriesID string) (*SeriesObservations, error) {
	params := url.Values{}
	params.Add("series_id", seriesID)
	params.Add("api_key", c.apiKey)
	params.Add("file_type", "json")

	requestURL := fmt.Sprintf("%s/series/observations?%s", c.baseURL, params.Encode())

	var series SeriesObservations
	err := getJSON(ctx, c.httpClient, c.logger, "macro", requestURL, &series)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched-series",
		zap.String("series-id", seriesID),
		zap.Int("observations", len(series.Observations)))

	return &series, nil
}
