// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/avelark/chatkeep/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the API client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same type, so errors.Is works against
// the sentinels below for wrapped instances too.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeTransport
	ErrTypeModelFetch
	ErrTypeTimeout
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrTransport  = &ClientError{Type: ErrTypeTransport, Message: "completion request failed"}
	ErrModelFetch = &ClientError{Type: ErrTypeModelFetch, Message: "model catalog request failed"}
	ErrTimeout    = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration options for the API client.
type Config struct {
	// BaseURL is the API base URL (default: http://127.0.0.1:3000)
	// Note: Uses explicit IPv4 address instead of localhost to avoid IPv6 resolution issues on Windows
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// RequestsPerMinute caps outbound request rate (default: 60)
	RequestsPerMinute int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "http://127.0.0.1:3000",
		Timeout:           30 * time.Second,
		RequestsPerMinute: 60,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the completion and model catalog
// endpoints.
//
// The Client is thread-safe for concurrent use. Streaming requests use a
// dedicated http.Client without a timeout, since a reply stream may stay
// open for as long as the model generates; cancellation happens through the
// request context instead.
type Client struct {
	config       *Config
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a new API client. A nil config uses defaults; zero
// fields are filled in.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:3000"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 60
	}

	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{},
		limiter:      rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), config.RequestsPerMinute),
	}
}

// newRequest builds a JSON POST with the common headers.
func (c *Client) newRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	return req, nil
}

// =============================================================================
// CHAT STREAMING
// =============================================================================

// ChatStream issues a completion request and invokes callback for each
// decoded text chunk of the streamed reply. Blocks until the stream ends,
// the context is cancelled, or the transport fails.
//
// A non-success status or an absent body terminates immediately with a
// transport error; no callback fires in that case.
func (c *Client) ChatStream(ctx context.Context, chatReq ChatRequest, callback StreamCallback) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, "/api/chat", chatReq)
	if err != nil {
		return err
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return context.Canceled
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return &ClientError{Type: ErrTypeTransport, Message: "completion request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused
		io.CopyN(io.Discard, resp.Body, 512)
		return &ClientError{
			Type:    ErrTypeTransport,
			Message: "completion request failed: " + resp.Status,
		}
	}

	return NewStreamReader(resp.Body).Process(ctx, callback)
}

// =============================================================================
// MODEL CATALOG
// =============================================================================

// Models fetches the set of available model descriptors. The key is passed
// through opaquely; an invalid key surfaces as a model-fetch error from the
// server side.
func (c *Client) Models(ctx context.Context, key string) ([]model.Descriptor, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, "/api/models", ModelsRequest{Key: key})
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, &ClientError{Type: ErrTypeModelFetch, Message: "model catalog request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeModelFetch,
			Message: "model catalog request failed: " + resp.Status,
		}
	}

	var descriptors []model.Descriptor
	if err := json.NewDecoder(resp.Body).Decode(&descriptors); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode model catalog", Cause: err}
	}
	return descriptors, nil
}
