package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Assistant is the subset of the provider's response we care about.
type Assistant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// Client talks to the provider's assistant API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateAssistant provisions a new assistant from a built request body.
func (c *Client) CreateAssistant(ctx context.Context, body map[string]any) (Assistant, error) {
	return c.send(ctx, http.MethodPost, c.baseURL+"/assistant", body)
}

// UpdateAssistant patches an existing assistant in place.
func (c *Client) UpdateAssistant(ctx context.Context, id string, body map[string]any) (Assistant, error) {
	return c.send(ctx, http.MethodPatch, c.baseURL+"/assistant/"+id, body)
}

func (c *Client) send(ctx context.Context, method, url string, body map[string]any) (Assistant, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Assistant{}, fmt.Errorf("encode assistant: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(payload))
	if err != nil {
		return Assistant{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Assistant{}, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Assistant{}, fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out Assistant
	if err := json.Unmarshal(raw, &out); err != nil {
		return Assistant{}, fmt.Errorf("decode provider response: %w", err)
	}
	return out, nil
}
