// Package genai is a minimal Gemini generateContent client.
package genai

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

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// KeySource supplies the API key at call time
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a fixed API key
type StaticKey string

// APIKey implements KeySource
func (k StaticKey) APIKey(ctx context.Context) (string, error) {
	if k == "" {
		return "", ErrNoAPIKey
	}
	return string(k), nil
}

// KeyFunc adapts a function to KeySource
type KeyFunc func(ctx context.Context) (string, error)

// APIKey implements KeySource
func (f KeyFunc) APIKey(ctx context.Context) (string, error) {
	return f(ctx)
}

// FirstKey tries each source in order and returns the first non-empty key
func FirstKey(sources ...KeySource) KeySource {
	return KeyFunc(func(ctx context.Context) (string, error) {
		for _, src := range sources {
			key, err := src.APIKey(ctx)
			if err == nil && key != "" {
				return key, nil
			}
		}
		return "", ErrNoAPIKey
	})
}

// Config holds client settings
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Result is one generation
type Result struct {
	Text         string
	Model        string
	FinishReason string
	PromptTokens int
	OutputTokens int
}

// Client calls the Gemini REST API
type Client struct {
	baseURL string
	model   string
	keys    KeySource
	http    *http.Client
	logger  Logger
}

// NewClient creates a Gemini client
func NewClient(cfg Config, keys KeySource, logger Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		keys:    keys,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt as a single user turn and returns the first candidate
func (c *Client) Generate(ctx context.Context, prompt string) (Result, error) {
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return Result{}, err
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 1024,
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		msg := strings.TrimSpace(string(payload))
		status := ""
		if json.Unmarshal(payload, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
			status = errResp.Error.Status
		}
		c.logger.Warn("gemini request rejected", "status_code", resp.StatusCode, "status", status, "model", c.model)
		return Result{}, classify(resp.StatusCode, status, msg)
	}

	var out generateResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return Result{}, ErrEmptyResponse
	}

	var text strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return Result{}, ErrEmptyResponse
	}

	c.logger.Debug("gemini generation complete",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", out.UsageMetadata.PromptTokenCount,
		"output_tokens", out.UsageMetadata.CandidatesTokenCount)

	return Result{
		Text:         text.String(),
		Model:        c.model,
		FinishReason: out.Candidates[0].FinishReason,
		PromptTokens: out.UsageMetadata.PromptTokenCount,
		OutputTokens: out.UsageMetadata.CandidatesTokenCount,
	}, nil
}
