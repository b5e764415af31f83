package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"TrendMint/internal/llm"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error when api key is missing")
	}
}

func TestGenerateTierSelectsModel(t *testing.T) {
	var captured struct {
		Authorization string
		Body          map[string]any
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Authorization = r.Header.Get("Authorization")
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&captured.Body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"content": "12345",
					},
				},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{
		APIKey:     "test",
		BaseURL:    srv.URL,
		SmallModel: "tiny",
		LargeModel: "huge",
		Timeout:    time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	out, err := client.Generate(context.Background(), llm.Request{Prompt: "pick one", Tier: llm.TierSmall})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "12345" {
		t.Fatalf("unexpected output: %q", out)
	}
	if captured.Body["model"] != "tiny" {
		t.Fatalf("small tier should use the small model, got %v", captured.Body["model"])
	}
	if !strings.HasPrefix(captured.Authorization, "Bearer ") {
		t.Fatalf("authorization header missing: %q", captured.Authorization)
	}

	if _, err := client.Generate(context.Background(), llm.Request{Prompt: "write", Tier: llm.TierLarge}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Body["model"] != "huge" {
		t.Fatalf("large tier should use the large model, got %v", captured.Body["model"])
	}
}

func TestGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	if _, err := client.Generate(context.Background(), llm.Request{Prompt: "test"}); err == nil {
		t.Fatalf("expected error when http status is not success")
	}
}

func TestDescribeImagePayload(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "a cat on a keyboard"}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, VisionModel: "eyes", Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	desc, err := client.DescribeImage(context.Background(), "https://example.com/cat.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc != "a cat on a keyboard" {
		t.Fatalf("unexpected description: %q", desc)
	}
	if body["model"] != "eyes" {
		t.Fatalf("vision model not used: %v", body["model"])
	}

	if _, err := client.DescribeImage(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
