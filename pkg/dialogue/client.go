package dialogue

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

	"github.com/teslashibe/go-hexapod/pkg/scene"
)

// Provider is the dialogue model interface.
type Provider interface {
	// Respond generates a reply to the user's text given scene context.
	// sc may be nil when no scene has been fetched yet.
	Respond(ctx context.Context, userText string, sc *scene.Result) (*Response, error)

	// Close releases resources.
	Close() error
}

// Config holds dialogue client configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Personality string

	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithPersonality sets the personality used in the system prompt.
func WithPersonality(p string) Option {
	return func(c *Config) { c.Personality = p }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults. Temperature is higher than the
// scene client's because personality wants variety.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o-mini",
		Personality: "friendly",
		MaxTokens:   200,
		Temperature: 0.8,
		Timeout:     5 * time.Second,
		Logger:      slog.Default(),
	}
}

// Client talks to any OpenAI-compatible chat API.
type Client struct {
	baseURL string
	apiKey  string
	config  *Config
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a dialogue client.
func NewClient(opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger.With("component", "dialogue.client"),
	}
}

// Respond asks the model for a personality reply.
func (c *Client) Respond(ctx context.Context, userText string, sc *scene.Result) (*Response, error) {
	payload := map[string]interface{}{
		"model": c.config.Model,
		"messages": []map[string]string{
			{"role": "system", "content": SystemPrompt(c.config.Personality, sc)},
			{"role": "user", "content": UserPrompt(userText)},
		},
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("dialogue: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("dialogue: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dialogue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("dialogue: API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("dialogue: decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("dialogue: no choices returned")
	}

	parsed := ParseResponse(result.Choices[0].Message.Content)
	c.logger.Debug("dialogue reply", "emotion", parsed.Emotion)
	return parsed, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Verify Client implements Provider at compile time.
var _ Provider = (*Client)(nil)
