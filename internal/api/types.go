// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"github.com/avelark/chatkeep/internal/model"
)

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// ChatRequest is the outbound payload for the completion endpoint.
type ChatRequest struct {
	Model    model.Descriptor `json:"model"`
	Messages []model.Message  `json:"messages"`
	Key      string           `json:"key"`
	Prompt   string           `json:"prompt"`
}

// ModelsRequest is the outbound payload for the model catalog endpoint.
type ModelsRequest struct {
	Key string `json:"key"`
}

// StreamCallback receives each decoded text chunk of a streaming reply.
// Called with non-empty strings only, in the order chunks arrive.
type StreamCallback func(text string)
