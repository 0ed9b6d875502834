package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kailas-cloud/corpintel/internal/domain"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Seed        *int    `json:"seed"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// chatServer fails every model in failing and answers the rest with reply.
func chatServer(t *testing.T, reply string, failing ...string) (*httptest.Server, func() []chatRequest) {
	t.Helper()
	var mu sync.Mutex
	var seen []chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		for _, m := range failing {
			if m == req.Model {
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "model overloaded", "type": "server_error"},
				})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(srv.Close)

	return srv, func() []chatRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]chatRequest(nil), seen...)
	}
}

func newTestGenerator(url string) *Generator {
	return NewGenerator(&GeneratorConfig{
		APIKey:        "test-key",
		BaseURL:       url,
		Model:         "qwen-max",
		FallbackModel: "qwen-turbo",
		Temperature:   0.2,
		TopP:          0.9,
		MaxTokens:     5000,
		Seed:          12345,
		Provider:      "test",
	})
}

func TestGenerator_Complete(t *testing.T) {
	srv, seen := chatServer(t, `{"summary": "ok"}`)

	out, err := newTestGenerator(srv.URL).Complete(context.Background(),
		domain.Prompt{System: "你是资深分析师", User: "分析欣强电子"}, "")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != `{"summary": "ok"}` {
		t.Errorf("output = %q", out)
	}

	reqs := seen()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	req := reqs[0]
	if req.Model != "qwen-max" || req.MaxTokens != 5000 || req.Seed == nil || *req.Seed != 12345 {
		t.Errorf("unexpected request: %+v", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "分析欣强电子" {
		t.Errorf("unexpected messages: %+v", req.Messages)
	}
}

func TestGenerator_FallbackModel(t *testing.T) {
	srv, seen := chatServer(t, "fallback answer", "qwen-max")

	out, err := newTestGenerator(srv.URL).Complete(context.Background(), domain.Prompt{User: "q"}, "")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != "fallback answer" {
		t.Errorf("output = %q", out)
	}

	reqs := seen()
	if len(reqs) != 2 || reqs[0].Model != "qwen-max" || reqs[1].Model != "qwen-turbo" {
		t.Errorf("unexpected request sequence: %+v", reqs)
	}
	if len(reqs[1].Messages) != 1 || reqs[1].Messages[0].Role != "user" {
		t.Errorf("empty system prompt should be omitted: %+v", reqs[1].Messages)
	}
}

func TestGenerator_BothModelsFail(t *testing.T) {
	srv, seen := chatServer(t, "", "qwen-max", "qwen-turbo")

	_, err := newTestGenerator(srv.URL).Complete(context.Background(), domain.Prompt{User: "q"}, "")
	if !errors.Is(err, domain.ErrGenerationProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if n := len(seen()); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}

func TestGenerator_EmptyCompletion(t *testing.T) {
	srv, seen := chatServer(t, "   ")

	_, err := newTestGenerator(srv.URL).Complete(context.Background(), domain.Prompt{User: "q"}, "qwen-turbo")
	if !errors.Is(err, domain.ErrGenerationProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if n := len(seen()); n != 1 {
		t.Errorf("fallback equal to the requested model must not retry, got %d calls", n)
	}
}
