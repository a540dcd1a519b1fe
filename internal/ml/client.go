// Package ml is the HTTP client for the remote risk scoring service.
package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"member-insight-service/internal/models"
)

// Scorer scores a batch of member features. Implementations make at most one
// attempt; retry and fallback policy belong to the caller.
type Scorer interface {
	Score(ctx context.Context, items []models.ScoreItem) ([]models.ScoreResult, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Score submits all features in one POST /score call. Any transport error,
// non-2xx status or undecodable body is returned as an error; the client
// never retries.
func (c *Client) Score(ctx context.Context, items []models.ScoreItem) ([]models.ScoreResult, error) {
	body, err := json.Marshal(models.ScoreRequest{Items: items})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("score request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("score request returned status %d", resp.StatusCode)
	}

	var results []models.ScoreResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode score response: %w", err)
	}

	return results, nil
}
