package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// FundamentalsClient fetches company profiles, financial statements and
// quotes from the fundamentals provider.
type FundamentalsClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFundamentalsClient creates a new fundamentals provider client.
func NewFundamentalsClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *FundamentalsClient {
	return &FundamentalsClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// CompanyProfile is the subset of the provider's profile payload the app uses.
type CompanyProfile struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"companyName"`
	Sector      string  `json:"sector"`
	Industry    string  `json:"industry"`
	Website     string  `json:"website"`
	Description string  `json:"description"`
	MarketCap   float64 `json:"mktCap"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
}

// Quote is a delayed market quote for one symbol.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changesPercentage"`
	DayLow        float64 `json:"dayLow"`
	DayHigh       float64 `json:"dayHigh"`
	Volume        int64   `json:"volume"`
	PreviousClose float64 `json:"previousClose"`
	Timestamp     int64   `json:"timestamp"`
}

// statementEndpoints maps statement types to provider endpoints.
var statementEndpoints = map[string]string{
	"income":   "income-statement",
	"balance":  "balance-sheet-statement",
	"cashflow": "cash-flow-statement",
}

// StatementEndpoint resolves a statement type to its provider endpoint.
// Returns false for types outside the supported set.
func StatementEndpoint(stmtType string) (string, bool) {
	endpoint, ok := statementEndpoints[stmtType]
	return endpoint, ok
}

// FetchProfile fetches the company profile list for a symbol. The provider
// returns an array; an empty array means the symbol is unknown.
func (c *FundamentalsClient) FetchProfile(ctx context.Context, symbol string) ([]CompanyProfile, error) {
	requestURL := fmt.Sprintf("%s/profile/%s?apikey=%s", c.baseURL, url.PathEscape(symbol), url.QueryEscape(c.apiKey))

	var profiles []CompanyProfile
	err := getJSON(ctx, c.httpClient, c.logger, "fundamentals", requestURL, &profiles)
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// FetchQuote fetches the current quote list for a symbol.
func (c *FundamentalsClient) FetchQuote(ctx context.Context, symbol string) ([]Quote, error) {
	requestURL := fmt.Sprintf("%s/quote/%s?apikey=%s", c.baseURL, url.PathEscape(symbol), url.QueryEscape(c.apiKey))

	var quotes []Quote
	err := getJSON(ctx, c.httpClient, c.logger, "fundamentals", requestURL, &quotes)
	if err != nil {
		return nil, err
	}

	return quotes, nil
}

// FetchStatements fetches financial statements for a symbol. endpoint must
// come from StatementEndpoint; period is "annual" or "quarter".
//
// Depending on the provider path, the response is either a plain array or a
// numerically-indexed object ({"0": {...}, "1": {...}, "lastUpdated": ...,
// "symbol": ...}); both are projected into an ordered slice of rows with the
// metadata fields excluded.
func (c *FundamentalsClient) FetchStatements(ctx context.Context, endpoint, symbol, period string) ([]json.RawMessage, error) {
	requestURL := fmt.Sprintf("%s/%s/%s?period=%s&apikey=%s",
		c.baseURL, endpoint, url.PathEscape(symbol), url.QueryEscape(period), url.QueryEscape(c.apiKey))

	body, err := getRaw(ctx, c.httpClient, c.logger, "fundamentals", requestURL)
	if err != nil {
		return nil, err
	}

	rows, err := decodeStatementRows(body)
	if err != nil {
		return nil, fmt.Errorf("fundamentals: %w", err)
	}

	c.logger.Debug("fetched-statements",
		zap.String("symbol", symbol),
		zap.String("endpoint", endpoint),
		zap.Int("rows", len(rows)))

	return rows, nil
}

// decodeStatementRows projects either response shape into an ordered slice.
func decodeStatementRows(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	if trimmed[0] == '[' {
		var rows []json.RawMessage
		err := json.Unmarshal(trimmed, &rows)
		if err != nil {
			return nil, fmt.Errorf("unmarshal statement array: %w", err)
		}
		return rows, nil
	}

	// Object shape: integer keys are data rows, everything else is metadata
	// (lastUpdated, symbol) and is dropped.
	var indexed map[string]json.RawMessage
	err := json.Unmarshal(trimmed, &indexed)
	if err != nil {
		return nil, fmt.Errorf("unmarshal statement object: %w", err)
	}

	indices := make([]int, 0, len(indexed))
	for key := range indexed {
		idx, convErr := strconv.Atoi(key)
		if convErr != nil {
			continue
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	rows := make([]json.RawMessage, 0, len(indices))
	for _, idx := range indices {
		rows = append(rows, indexed[strconv.Itoa(idx)])
	}

	return rows, nil
}
