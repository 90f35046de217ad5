// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/avelark/chatkeep/internal/api"
	"github.com/avelark/chatkeep/internal/model"
)

// =============================================================================
// STOP SIGNAL
// =============================================================================

// StopSignal is the cooperative cancellation point for an in-flight stream.
// Arm wraps a context before a send; Stop sets the flag and cancels it,
// aborting the transport. The already-accumulated partial text stands.
//
// Safe for concurrent use: Stop is typically called from a signal handler
// or another goroutine while the stream is being read.
type StopSignal struct {
	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

// Arm resets the signal and returns a context that Stop cancels.
func (s *StopSignal) Arm(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.stopped = false
	s.cancel = cancel
	s.mu.Unlock()
	return ctx
}

// Stop requests cancellation of the armed stream. Calling Stop with no
// stream armed, or twice, is harmless.
func (s *StopSignal) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
}

// Stopped reports whether Stop has been called since the last Arm.
func (s *StopSignal) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// =============================================================================
// STREAMING RESPONSE ACCUMULATOR
// =============================================================================

// Accumulator drives one completion request and folds the streamed reply
// into the conversation's trailing assistant message. It holds no state
// across invocations; each Run is fully independent and has exactly one
// request outstanding.
type Accumulator struct {
	client *api.Client
}

// NewAccumulator creates an accumulator over the given client.
func NewAccumulator(client *api.Client) *Accumulator {
	return &Accumulator{client: client}
}

// Run issues the request and emits a conversation snapshot per received
// chunk. The first non-empty chunk appends a new assistant message; each
// later chunk replaces the trailing message wholesale with the full
// accumulated text, so every snapshot is a self-consistent value.
//
// Returns the final conversation. Cancellation is not an error: the
// conversation keeps the partial text accumulated before the stop was
// observed. A transport failure before the first chunk returns the
// conversation unchanged and the error.
func (a *Accumulator) Run(ctx context.Context, conv model.Conversation, req api.ChatRequest, emit func(model.Conversation)) (model.Conversation, error) {
	var text strings.Builder
	first := true

	err := a.client.ChatStream(ctx, req, func(chunk string) {
		text.WriteString(chunk)
		msg := model.Message{Role: model.RoleAssistant, Content: text.String()}
		if first {
			conv = conv.Append(msg)
			first = false
		} else {
			conv = conv.ReplaceLast(msg)
		}
		if emit != nil {
			emit(conv.Clone())
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return conv, err
	}
	return conv, nil
}
