// Package anthropic implements the vision and prose generation ports on the
// Anthropic Messages API. One client serves every LLM-backed port; each task
// gets its own model from config.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"inkcast/internal/faults"
)

const (
	apiVersion     = "2023-06-01"
	requestTimeout = 5 * time.Minute
)

// Models selects which model handles each task family.
type Models struct {
	Classify string
	Essay    string
	Patch    string
	Score    string
}

type Client struct {
	key     string
	baseURL string
	models  Models
	client  *http.Client
}

func New(apiKey, baseURL string, models Models) *Client {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return &Client{
		key:     apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		models:  models,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// contentBlock is one entry of a user message: text or a base64 image.
type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

func textBlock(s string) contentBlock {
	return contentBlock{Type: "text", Text: s}
}

// complete sends one user message and returns the concatenated text of the
// response. Errors are tagged for the retry layer: 429s and 5xx are
// transient, auth and malformed requests permanent.
func (c *Client) complete(ctx context.Context, stage, model, system string, blocks []contentBlock, maxTokens int) (string, error) {
	if c.key == "" {
		return "", faults.Wrap(faults.ErrPermanent, stage, "anthropic",
			errors.New("ANTHROPIC_API_KEY is not set"))
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	payload := map[string]any{
		"model":      model,
		"max_tokens": maxTokens,
		"messages": []map[string]any{
			{"role": "user", "content": blocks},
		},
	}
	if system != "" {
		payload["system"] = system
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", c.key)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", faults.Wrap(faults.ErrTransient, stage, "anthropic request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.statusError(stage, resp)
	}

	var raw struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", faults.Wrap(faults.ErrTransient, stage, "anthropic decode", err)
	}

	var b strings.Builder
	for _, part := range raw.Content {
		if part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", faults.Wrap(faults.ErrTransient, stage, "anthropic",
			errors.New("empty completion"))
	}
	return text, nil
}

func (c *Client) statusError(stage string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	base := fmt.Errorf("anthropic status %d: %s",
		resp.StatusCode, truncate(redactSecrets(string(body), c.key), 400))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == 529 || resp.StatusCode >= 500:
		err := faults.Wrap(faults.ErrTransient, stage, "anthropic", base)
		if wait := parseRetryAfter(resp.Header.Get("Retry-After")); wait > 0 {
			return &retryAfterError{err: err, wait: wait}
		}
		return err
	default:
		return faults.Wrap(faults.ErrPermanent, stage, "anthropic", base)
	}
}

type retryAfterError struct {
	err  error
	wait time.Duration
}

func (e *retryAfterError) Error() string             { return e.err.Error() }
func (e *retryAfterError) Unwrap() error             { return e.err }
func (e *retryAfterError) RetryAfter() time.Duration { return e.wait }

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// extractJSONObject pulls the first JSON object out of a completion,
// stripping markdown code fences if the model added them.
func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("empty content")
	}
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", fmt.Errorf("no JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	apiKeyHeaderRE = regexp.MustCompile(`(?i)(x-api-key\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE  = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = apiKeyHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
