package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

func TestAssessmentClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer ai-key" {
			t.Errorf("expected bearer auth header, got %q", r.Header.Get("Authorization"))
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("unexpected model %q", req.Model)
		}
		if len(req.Messages) != 2 {
			t.Errorf("expected system+user messages, got %d", len(req.Messages))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "A solid, concentrated portfolio."}}]}`))
	}))
	defer server.Close()

	client := NewAssessmentClient(server.URL, "ai-key", "gpt-4o-mini", 5*time.Second, zap.NewNop())

	text, err := client.Generate(context.Background(), "You are a value investor.", "Holdings: AAPL 60%")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "A solid, concentrated portfolio." {
		t.Errorf("unexpected assessment text %q", text)
	}
}

func TestAssessmentClient_UpstreamErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "model overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewAssessmentClient(server.URL, "ai-key", "gpt-4o-mini", 5*time.Second, zap.NewNop())

	_, err := client.Generate(context.Background(), "system", "user")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", statusErr.StatusCode)
	}
}
