package scene

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const providerGemini = "gemini"

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"

// GeminiClient is the alternative scene backend against the Gemini API.
// Useful when the robot already has a Google key, or when the OpenAI
// endpoint is rate limiting.
type GeminiClient struct {
	apiKey string
	config *Config
	http   *http.Client
	logger *slog.Logger
}

// NewGeminiClient creates a Gemini-backed scene provider. The BaseURL
// option is ignored; Gemini has a fixed endpoint per model.
func NewGeminiClient(apiKey string, opts ...Option) *GeminiClient {
	cfg := DefaultConfig()
	cfg.Model = "gemini-2.0-flash"
	for _, opt := range opts {
		opt(cfg)
	}

	return &GeminiClient{
		apiKey: apiKey,
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: cfg.Logger.With("component", "scene.gemini"),
	}
}

// Analyze sends a JPEG frame and the structured prompt to Gemini.
func (c *GeminiClient) Analyze(ctx context.Context, jpeg []byte) (*Result, error) {
	if c.apiKey == "" {
		return nil, WrapError(providerGemini, fmt.Errorf("no API key configured"))
	}

	start := time.Now()

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{{
			"parts": []map[string]interface{}{
				{"text": Prompt},
				{"inline_data": map[string]string{
					"mime_type": "image/jpeg",
					"data":      base64.StdEncoding.EncodeToString(jpeg),
				}},
			},
		}},
		"generationConfig": map[string]interface{}{
			"temperature":     c.config.Temperature,
			"maxOutputTokens": c.config.MaxTokens,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("marshal payload: %w", err))
	}

	url := fmt.Sprintf(geminiEndpoint, c.config.Model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, WrapError(providerGemini, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		message := string(respBody)
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    message,
			Provider:   providerGemini,
		}
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("decode response: %w", err))
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, WrapError(providerGemini, fmt.Errorf("no candidates returned"))
	}

	parsed := Parse(result.Candidates[0].Content.Parts[0].Text, time.Now())
	c.logger.Debug("scene analyzed",
		"scene_type", parsed.SceneType,
		"objects", len(parsed.Objects),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return parsed, nil
}

// Close releases idle connections.
func (c *GeminiClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

var _ Provider = (*GeminiClient)(nil)
