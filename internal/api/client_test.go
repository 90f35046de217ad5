// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avelark/chatkeep/internal/model"
)

// =============================================================================
// CLIENT TESTS
// =============================================================================

func newTestClient(baseURL string) *Client {
	return NewClient(&Config{BaseURL: baseURL, RequestsPerMinute: 6000})
}

func testChatRequest() ChatRequest {
	return ChatRequest{
		Model:    model.Default(),
		Messages: []model.Message{{Role: model.RoleUser, Content: "hi"}},
		Key:      "sk-test",
		Prompt:   model.DefaultSystemPrompt,
	}
}

func TestClient_ChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Key != "sk-test" {
			t.Errorf("key = %q, want sk-test", req.Key)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "hi" {
			t.Errorf("messages = %+v", req.Messages)
		}

		flusher := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		for _, part := range []string{"Hel", "lo"} {
			w.Write([]byte(part))
			flusher.Flush()
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var got strings.Builder
	err := client.ChatStream(context.Background(), testChatRequest(), func(text string) {
		got.WriteString(text)
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if got.String() != "Hello" {
		t.Errorf("accumulated = %q, want Hello", got.String())
	}
}

func TestClient_ChatStream_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream failure", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	called := false
	err := client.ChatStream(context.Background(), testChatRequest(), func(string) { called = true })
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("ChatStream = %v, want transport error", err)
	}
	if called {
		t.Error("callback should not fire on a failed request")
	}
}

func TestClient_ChatStream_ConnectionRefused(t *testing.T) {
	// A closed server yields a connect failure
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)
	err := client.ChatStream(context.Background(), testChatRequest(), func(string) {})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("ChatStream = %v, want transport error", err)
	}
}

func TestClient_ChatStream_Cancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("partial"))
		flusher.Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(server.URL)

	var got strings.Builder
	err := client.ChatStream(ctx, testChatRequest(), func(text string) {
		got.WriteString(text)
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ChatStream = %v, want context.Canceled", err)
	}
	if got.String() != "partial" {
		t.Errorf("accumulated = %q, want partial", got.String())
	}
}

func TestClient_Models(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/models" {
			t.Errorf("path = %q, want /api/models", r.URL.Path)
		}
		var req ModelsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Key != "sk-test" {
			t.Errorf("key = %q, want sk-test", req.Key)
		}
		json.NewEncoder(w).Encode([]model.Descriptor{
			{ID: model.ModelGPT35, Name: "GPT-3.5", MaxLength: 12000, TokenLimit: 4000},
			{ID: model.ModelGPT4, Name: "GPT-4", MaxLength: 24000, TokenLimit: 8000},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	descriptors, err := client.Models(context.Background(), "sk-test")
	if err != nil {
		t.Fatalf("Models failed: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("descriptor count = %d, want 2", len(descriptors))
	}
	if descriptors[1].ID != model.ModelGPT4 || descriptors[1].TokenLimit != 8000 {
		t.Errorf("descriptor = %+v", descriptors[1])
	}
}

func TestClient_Models_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Models(context.Background(), "bad-key")
	if !errors.Is(err, ErrModelFetch) {
		t.Fatalf("Models = %v, want model-fetch error", err)
	}
}

func TestClientError_Matching(t *testing.T) {
	wrapped := &ClientError{Type: ErrTypeTransport, Message: "completion request failed: 502 Bad Gateway"}
	if !errors.Is(wrapped, ErrTransport) {
		t.Error("wrapped transport error should match ErrTransport")
	}
	if errors.Is(wrapped, ErrModelFetch) {
		t.Error("transport error should not match ErrModelFetch")
	}

	var clientErr *ClientError
	if !errors.As(wrapped, &clientErr) || clientErr.Type != ErrTypeTransport {
		t.Error("errors.As should expose the typed error")
	}
}
