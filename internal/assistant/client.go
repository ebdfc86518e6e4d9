package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client calls a text-generation endpoint over HTTP.
//
// Request:  POST {endpoint} {"mode": "...", "prompt": "<instruction>"}
// Response: {"text": "..."} or {"error": "..."} with a non-2xx status.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

func NewClient(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type generateRequest struct {
	Mode   Mode   `json:"mode"`
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func (c *Client) Generate(ctx context.Context, mode Mode, prompt string) (Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return Response{}, ErrEmptyPrompt
	}
	body, err := json.Marshal(generateRequest{Mode: mode, Prompt: Instruction(mode, prompt)})
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Assistant request failed", "mode", mode, "error", err)
		return Response{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil && resp.StatusCode < 300 {
		return Response{}, fmt.Errorf("%w: bad response body: %v", ErrUpstream, err)
	}
	if resp.StatusCode >= 300 || out.Error != "" {
		msg := out.Error
		if msg == "" {
			msg = resp.Status
		}
		c.logger.Error("Assistant returned an error", "mode", mode, "status", resp.StatusCode, "error", msg)
		return Response{}, fmt.Errorf("%w: %s", ErrUpstream, msg)
	}
	c.logger.Debug("Assistant responded", "mode", mode, "chars", len(out.Text), "elapsed", time.Since(start))
	return Response{Text: out.Text}, nil
}
