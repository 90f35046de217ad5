// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"

	"github.com/avelark/chatkeep/internal/model"
)

// =============================================================================
// RAW RECORD TYPES
// =============================================================================

// The Raw types decode persisted records of unknown prior schema versions.
// Every field is optional so that missing fields survive decoding and can be
// repaired instead of silently becoming zero values.

// RawMessage is a tolerant decode target for a persisted message.
type RawMessage struct {
	Role    *string `json:"role"`
	Content *string `json:"content"`
}

// RawDescriptor is a tolerant decode target for a persisted model descriptor.
type RawDescriptor struct {
	ID *string `json:"id"`
}

// RawConversation is a tolerant decode target for a persisted conversation.
type RawConversation struct {
	ID       *int           `json:"id"`
	Name     *string        `json:"name"`
	Messages []RawMessage   `json:"messages"`
	Model    *RawDescriptor `json:"model"`
	Prompt   *string        `json:"prompt"`
	FolderID *int           `json:"folderId"`
}

// RawFolder is a tolerant decode target for a persisted folder.
// Folders have had a stable shape across versions, so normalization passes
// them through.
type RawFolder struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// The normalizer is total and idempotent: it never fails on missing or extra
// fields, and normalizing an already-current record yields a structurally
// identical record, so it is applied unconditionally on every load and on
// every import.

// NormalizeConversation repairs a single raw conversation to the current
// schema:
//
//   - an absent or unrecognized model is rewritten to the default model
//   - an absent or empty prompt becomes the default system prompt
//   - a message missing its role or content is dropped (lossy but safe)
//   - id, name and folderId keep their values when present, else take
//     defaults (folderId defaults to unfiled)
func NormalizeConversation(raw RawConversation) model.Conversation {
	conv := model.Conversation{
		ID:       1,
		Name:     model.DefaultConversationName,
		Model:    model.Default(),
		Prompt:   model.DefaultSystemPrompt,
		FolderID: model.UnfiledFolderID,
	}

	if raw.ID != nil {
		conv.ID = *raw.ID
	}
	if raw.Name != nil {
		conv.Name = *raw.Name
	}
	if raw.Model != nil && raw.Model.ID != nil {
		if d, ok := model.Lookup(*raw.Model.ID); ok {
			conv.Model = d
		}
	}
	if raw.Prompt != nil && *raw.Prompt != "" {
		conv.Prompt = *raw.Prompt
	}
	if raw.FolderID != nil {
		conv.FolderID = *raw.FolderID
	}

	conv.Messages = make([]model.Message, 0, len(raw.Messages))
	for _, m := range raw.Messages {
		if m.Role == nil || m.Content == nil {
			continue
		}
		conv.Messages = append(conv.Messages, model.Message{
			Role:    model.Role(*m.Role),
			Content: *m.Content,
		})
	}

	return conv
}

// NormalizeHistory repairs a list of raw conversations. Conversations missing
// an id are assigned one past the maximum seen so far, keeping ids unique
// within the repaired collection.
func NormalizeHistory(raws []RawConversation) []model.Conversation {
	conversations := make([]model.Conversation, 0, len(raws))
	maxID := 0
	for _, raw := range raws {
		if raw.ID == nil {
			next := maxID + 1
			raw.ID = &next
		}
		conv := NormalizeConversation(raw)
		if conv.ID > maxID {
			maxID = conv.ID
		}
		conversations = append(conversations, conv)
	}
	return conversations
}

// NormalizeFolders converts raw folders to the current shape. An absent list
// yields an empty set.
func NormalizeFolders(raws []RawFolder) []model.Folder {
	folders := make([]model.Folder, 0, len(raws))
	for _, raw := range raws {
		folders = append(folders, model.Folder{ID: raw.ID, Name: raw.Name})
	}
	return folders
}

// =============================================================================
// JSON ENTRY POINTS
// =============================================================================

// DecodeConversation decodes and normalizes a single persisted conversation.
// Returns false when the payload is unreadable; the caller degrades to a
// default conversation rather than failing the load.
func DecodeConversation(data []byte) (model.Conversation, bool) {
	var raw RawConversation
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.Conversation{}, false
	}
	return NormalizeConversation(raw), true
}

// DecodeHistory decodes and normalizes a persisted conversation list.
// An unreadable payload yields an empty history.
func DecodeHistory(data []byte) []model.Conversation {
	var raws []RawConversation
	if err := json.Unmarshal(data, &raws); err != nil {
		return []model.Conversation{}
	}
	return NormalizeHistory(raws)
}

// DecodeFolders decodes and normalizes a persisted folder list.
// An unreadable payload yields an empty set.
func DecodeFolders(data []byte) []model.Folder {
	var raws []RawFolder
	if err := json.Unmarshal(data, &raws); err != nil {
		return []model.Folder{}
	}
	return NormalizeFolders(raws)
}
