/*
Package market proxies dashboard data requests to third-party market-data
providers. Each request walks an ordered chain of providers and falls back to
built-in mock data when none of them can answer.
*/
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrUpstreamStatus = errors.New("upstream returned non-2xx status")
	ErrEmptyPayload   = errors.New("upstream returned no usable data")
	ErrNotConfigured  = errors.New("provider not configured")
	ErrNoData         = errors.New("no provider returned data")
)

const DefaultTimeout = 8 * time.Second

// Keys holds provider credentials. A provider with an empty key is skipped.
type Keys struct {
	AlphaVantage string `yaml:"alpha_vantage"`
	FMP          string `yaml:"fmp"`
	Finnhub      string `yaml:"finnhub"`
	Polygon      string `yaml:"polygon"`
	AlpacaKey    string `yaml:"alpaca_key_id"`
	AlpacaSecret string `yaml:"alpaca_secret_key"`
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// getJSON fetches base+path with query and decodes the body into v.
func getJSON(ctx context.Context, client *http.Client, base, path string, query url.Values, v any) error {
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s %d", ErrUpstreamStatus, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
