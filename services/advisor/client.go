package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1/messages"
	anthropicModel   = "claude-sonnet-4-20250514"
	anthropicVersion = "2023-06-01"
	maxRetries       = 3
	initialDelay     = time.Second
	maxAnswerTokens  = 1024
)

const systemPrompt = `You are a farm-supplies advisor for an agricultural ` +
	`storefront. You help customers choose seeds, fertilizers, pesticides, ` +
	`tools and irrigation equipment, and answer practical questions about ` +
	`crop care. Keep answers short and concrete. If a question needs a ` +
	`local agronomist or lab test, say so instead of guessing.`

// ErrNotConfigured means the advisory service has no API key.
var ErrNotConfigured = errors.New("advisor not configured")

// Message is one prior turn of the advisory conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client calls the Anthropic Messages API for the crop-advisory chat.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates an advisory client. An empty key yields a client whose
// Advise always fails with ErrNotConfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: anthropicBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

type apiRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Advise answers a customer question, carrying over prior turns of the
// conversation. Retries with exponential backoff on rate limits and server
// errors.
func (c *Client) Advise(ctx context.Context, question string, history []Message) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	if question == "" {
		return "", errors.New("empty question")
	}

	messages := append(append([]Message{}, history...), Message{Role: "user", Content: question})
	body, err := json.Marshal(apiRequest{
		Model:     anthropicModel,
		MaxTokens: maxAnswerTokens,
		System:    systemPrompt,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * initialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("advisor API error (%d): %s", resp.StatusCode, string(respBody))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return "", lastErr
		}

		var apiResp apiResponse
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(apiResp.Content) == 0 {
			return "", errors.New("empty response content")
		}
		return apiResp.Content[0].Text, nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
