// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"

	"github.com/avelark/chatkeep/internal/model"
)

// =============================================================================
// IMPORT / EXPORT
// =============================================================================

// Payload is the import/export interchange shape. It matches the persisted
// record shapes exactly, so an exported file from any prior version can be
// imported after normalization.
type Payload struct {
	Conversations []model.Conversation `json:"conversations"`
	Folders       []model.Folder       `json:"folders"`
}

// RawPayload is the tolerant decode target for an import.
type RawPayload struct {
	Conversations []RawConversation `json:"conversations"`
	Folders       []RawFolder       `json:"folders"`
}

// Export snapshots all conversation state.
func (s *Store) Export() (Payload, error) {
	conversations, err := s.LoadConversations()
	if err != nil {
		return Payload{}, err
	}
	folders, err := s.LoadFolders()
	if err != nil {
		return Payload{}, err
	}
	return Payload{Conversations: conversations, Folders: folders}, nil
}

// ExportJSON serializes the full export payload, indented for hand editing.
func (s *Store) ExportJSON() ([]byte, error) {
	payload, err := s.Export()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	return data, nil
}

// Import replaces conversation state with a normalized copy of data.
// All writes happen in one transaction, including the selected pointer,
// which is set to the last imported conversation to match the position a
// user left off at. Preferences are untouched.
func (s *Store) Import(data []byte) (Payload, error) {
	var raw RawPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return Payload{}, fmt.Errorf("decoding import: %w", err)
	}

	payload := Payload{
		Conversations: NormalizeHistory(raw.Conversations),
		Folders:       NormalizeFolders(raw.Folders),
	}

	convData, err := json.Marshal(payload.Conversations)
	if err != nil {
		return Payload{}, fmt.Errorf("encoding conversations: %w", err)
	}
	folderData, err := json.Marshal(payload.Folders)
	if err != nil {
		return Payload{}, fmt.Errorf("encoding folders: %w", err)
	}

	pairs := map[string]string{
		KeyConversations: string(convData),
		KeyFolders:       string(folderData),
	}
	if n := len(payload.Conversations); n > 0 {
		selData, err := json.Marshal(payload.Conversations[n-1])
		if err != nil {
			return Payload{}, fmt.Errorf("encoding selected conversation: %w", err)
		}
		pairs[KeySelected] = string(selData)
	}

	if err := s.putAll(pairs); err != nil {
		return Payload{}, err
	}
	return payload, nil
}
