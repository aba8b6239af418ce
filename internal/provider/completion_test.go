package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func completionResponse(content string) chatResponse {
	resp := chatResponse{
		ID:     "test-id",
		Object: "chat.completion",
	}
	choice := chatChoice{Index: 0, FinishReason: "stop"}
	choice.Message.Role = "assistant"
	choice.Message.Content = content
	resp.Choices = []chatChoice{choice}
	return resp
}

func TestNewLLMClient(t *testing.T) {
	client := NewLLMClient("http://localhost:8080", "test-key", "test-model", 60)
	if client == nil {
		t.Fatal("NewLLMClient() returned nil")
	}
	if client.BaseURL != "http://localhost:8080" {
		t.Errorf("NewLLMClient() BaseURL = %v, want http://localhost:8080", client.BaseURL)
	}
	if client.limiter == nil {
		t.Error("NewLLMClient() limiter should be set for positive rate")
	}

	unlimited := NewLLMClient("http://localhost:8080", "test-key", "test-model", 0)
	if unlimited.limiter != nil {
		t.Error("NewLLMClient() limiter should be nil when rate is 0")
	}
}

func TestLLMClient_Complete(t *testing.T) {
	tests := []struct {
		name          string
		serverResp    func(w http.ResponseWriter, r *http.Request)
		wantText      string
		wantErr       bool
		wantTransient bool
	}{
		{
			name: "successful completion",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/chat/completions" {
					t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
				}
				if !strings.Contains(r.Header.Get("Authorization"), "Bearer") {
					t.Error("missing Authorization header")
				}

				var req chatRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				if req.MaxTokens != 256 {
					t.Errorf("expected max_tokens 256, got %d", req.MaxTokens)
				}

				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(completionResponse("Binary search runs in O(log n) time. [S1]"))
			},
			wantText: "Binary search runs in O(log n) time. [S1]",
		},
		{
			name: "no choices returned",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(chatResponse{ID: "test-id"})
			},
			wantErr: true,
		},
		{
			name: "rate limited is transient",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantErr:       true,
			wantTransient: true,
		},
		{
			name: "server error is transient",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr:       true,
			wantTransient: true,
		},
		{
			name: "bad request is not transient",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
			wantErr:       true,
			wantTransient: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewLLMClient(server.URL, "test-key", "test-model", 0)
			text, err := client.Complete(context.Background(), "prompt", 256, 0.1)

			if tt.wantErr {
				if err == nil {
					t.Fatal("Complete() expected error, got nil")
				}
				if IsTransient(err) != tt.wantTransient {
					t.Errorf("IsTransient(%v) = %v, want %v", err, IsTransient(err), tt.wantTransient)
				}
				return
			}

			if err != nil {
				t.Fatalf("Complete() unexpected error: %v", err)
			}
			if text != tt.wantText {
				t.Errorf("Complete() = %q, want %q", text, tt.wantText)
			}
		})
	}
}

func TestLLMClient_CircuitBreakerOpens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewLLMClient(server.URL, "test-key", "test-model", 0)
	ctx := context.Background()

	// Enough consecutive failures to trip the breaker
	for i := 0; i < 10; i++ {
		_, _ = client.Complete(ctx, "prompt", 16, 0)
	}

	_, err := client.Complete(ctx, "prompt", 16, 0)
	if err == nil {
		t.Fatal("Complete() expected error after breaker tripped")
	}
	if !IsTransient(err) {
		t.Errorf("open breaker error should be transient, got %v", err)
	}
}
