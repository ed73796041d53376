package scene

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func completionReply(content string) string {
	reply := map[string]interface{}{
		"model": "gpt-4o-mini",
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	}
	data, _ := json.Marshal(reply)
	return string(data)
}

func TestClient_Analyze(t *testing.T) {
	var gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionReply(`{"scene_type": "kitchen", "confidence": 0.8}`)))
	}))
	defer server.Close()

	c := NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("test-key"),
		WithModel("gpt-4o-mini"),
	)
	defer c.Close()

	r, err := c.Analyze(context.Background(), []byte("fake-jpeg"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.SceneType != "kitchen" {
		t.Errorf("scene_type: got %q, want kitchen", r.SceneType)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header: got %q", gotAuth)
	}
	if !strings.Contains(gotBody, "data:image/jpeg;base64,") {
		t.Error("request should embed the frame as a base64 image_url")
	}
	if !strings.Contains(gotBody, "robot's perspective") {
		t.Error("request should carry the structured scene prompt")
	}
}

func TestClient_FencedReplyParsed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionReply("```json\n{\"scene_type\": \"hallway\"}\n```")))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	defer c.Close()

	r, err := c.Analyze(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.SceneType != "hallway" {
		t.Errorf("scene_type: got %q, want hallway", r.SceneType)
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited", "code": "rate_limit_exceeded"}}`))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	defer c.Close()

	_, err := c.Analyze(context.Background(), []byte("jpeg"))
	if err == nil {
		t.Fatal("expected an error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if !apiErr.IsRateLimited() {
		t.Error("429 should report as rate limited")
	}
	if apiErr.Code != "rate_limit_exceeded" {
		t.Errorf("code: got %q", apiErr.Code)
	}
}

func TestClient_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model": "gpt-4o-mini", "choices": []}`))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	defer c.Close()

	_, err := c.Analyze(context.Background(), []byte("jpeg"))
	if err == nil {
		t.Fatal("empty choices should be an error")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProviderError, got %T", err)
	}
}
