package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// EntailmentClient scores hypothesis/premise pairs against a cross-encoder
// entailment service.
type EntailmentClient struct {
	BaseURL string
	client  *http.Client
}

// NewEntailmentClient creates a new entailment scorer client.
func NewEntailmentClient(baseURL string) *EntailmentClient {
	return &EntailmentClient{
		BaseURL: baseURL,
		client:  http.DefaultClient,
	}
}

// entailmentRequest represents the request payload for the entailment API.
type entailmentRequest struct {
	Hypothesis string `json:"hypothesis"`
	Premise    string `json:"premise"`
}

// entailmentResponse represents the response from the entailment API.
type entailmentResponse struct {
	Score float64 `json:"score"`
}

// Score returns the entailment score for hypothesis given premise, clamped
// to [0, 1].
func (c *EntailmentClient) Score(ctx context.Context, hypothesis, premise string) (float64, error) {
	url := fmt.Sprintf("%s/v1/entailment", c.BaseURL)

	payload := entailmentRequest{
		Hypothesis: hypothesis,
		Premise:    premise,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var entResp entailmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&entResp); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	score := entResp.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
