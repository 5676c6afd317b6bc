// Package providers wraps the upstream HTTP data sources behind thin clients.
// Clients never cache: caching is strictly the engine's job, which keeps every
// client reusable in cached and uncached contexts alike.
package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// StatusError is an upstream non-2xx response surfaced as an explicit failure.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code %d: %s", e.Provider, e.StatusCode, string(e.Body))
}

const maxErrorBody = 4 << 10

// getJSON performs a GET against url and decodes the JSON body into out.
func getJSON(ctx context.Context, client *http.Client, logger *zap.Logger, provider, url string, out any) error {
	body, err := getRaw(ctx, client, logger, provider, url)
	if err != nil {
		return err
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return fmt.Errorf("%s: unmarshal response: %w", provider, err)
	}

	return nil
}

// getRaw performs a GET against url and returns the raw response body.
func getRaw(ctx context.Context, client *http.Client, logger *zap.Logger, provider, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", provider, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "finsight-api/1.0")

	RequestsTotal.WithLabelValues(provider).Inc()
	logger.Debug("provider-request",
		zap.String("provider", provider),
		zap.String("url", url))

	resp, err := client.Do(req)
	if err != nil {
		FailuresTotal.WithLabelValues(provider).Inc()
		return nil, fmt.Errorf("%s: do request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		FailuresTotal.WithLabelValues(provider).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: body}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		FailuresTotal.WithLabelValues(provider).Inc()
		return nil, fmt.Errorf("%s: read response body: %w", provider, err)
	}

	return body, nil
}

// postJSON performs a POST with a JSON body and decodes the JSON response into out.
func postJSON(ctx context.Context, client *http.Client, logger *zap.Logger, provider, url string, headers map[string]string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", provider, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "finsight-api/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	RequestsTotal.WithLabelValues(provider).Inc()
	logger.Debug("provider-request",
		zap.String("provider", provider),
		zap.String("url", url))

	resp, err := client.Do(req)
	if err != nil {
		FailuresTotal.WithLabelValues(provider).Inc()
		return fmt.Errorf("%s: do request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		FailuresTotal.WithLabelValues(provider).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: body}
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("%s: unmarshal response: %w", provider, err)
	}

	return nil
}
