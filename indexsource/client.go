/*
Package indexsource fetches monthly inflation index values over HTTP.

PURPOSE:
  Implements engine.IndexSource against the external index API. The
  service returns daily-stamped datapoints with a monthly percentage;
  the client folds them into a sparse month map. A range with no data is
  reported as engine.ErrNoIndexData, distinct from an empty-but-valid
  response, so callers can tell "nothing published yet" from "no months
  matched".

RETRIES:
  None. Per the engine's error model, transient-failure policy belongs to
  the caller; the client does one request per call.
*/
package indexsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/rental-engine/engine"
)

// Client queries a monthly index HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client with a sane request timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// apiResponse mirrors the index service payload.
type apiResponse struct {
	Code    string     `json:"code"`
	Success *bool      `json:"success"`
	Error   string     `json:"error"`
	Message string     `json:"message"`
	Data    []apiPoint `json:"data"`
}

type apiPoint struct {
	Date   string `json:"date"`
	Values struct {
		Monthly *float64 `json:"monthly"`
	} `json:"values"`
}

// MonthlyValues fetches the sparse month-to-percentage map for from..to.
func (c *Client) MonthlyValues(ctx context.Context, from, to engine.Date) (engine.IndexMap, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, engine.ErrInvalidDateRange
	}

	u := fmt.Sprintf("%s?action=ipc&from=%s&to=%s",
		c.BaseURL, url.QueryEscape(from.String()), url.QueryEscape(to.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("index request failed: %w", err)
	}
	defer res.Body.Close()

	var payload apiResponse
	// Empty or non-JSON bodies fall through to status handling.
	_ = json.NewDecoder(res.Body).Decode(&payload)

	if payload.Code == "NO_DATA" {
		return nil, engine.ErrNoIndexData
	}
	if res.StatusCode != http.StatusOK {
		detail := payload.Error
		if detail == "" {
			detail = payload.Message
		}
		if detail != "" {
			return nil, fmt.Errorf("index service returned %d: %s", res.StatusCode, detail)
		}
		return nil, fmt.Errorf("index service returned %d", res.StatusCode)
	}
	if payload.Success != nil && !*payload.Success {
		return nil, fmt.Errorf("index service rejected request: %s", payload.Error)
	}
	if len(payload.Data) == 0 {
		return nil, engine.ErrNoIndexData
	}

	out := make(engine.IndexMap, len(payload.Data))
	for _, p := range payload.Data {
		if p.Values.Monthly == nil {
			continue
		}
		m, err := engine.ParseMonthKey(p.Date)
		if err != nil {
			continue
		}
		out[m] = decimal.NewFromFloat(*p.Values.Monthly)
	}
	return out, nil
}
