// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/avelark/chatkeep/internal/model"
)

// =============================================================================
// TYPED HELPERS
// =============================================================================

// Typed wrappers over Put/Get/Remove, one pair per state key. Every load
// path runs the normalizer; a malformed payload is logged and degraded to
// the key's default rather than surfaced as an error, because persisted
// state must never block startup.

// SaveConversations persists the full conversation history.
func (s *Store) SaveConversations(conversations []model.Conversation) error {
	data, err := json.Marshal(conversations)
	if err != nil {
		return fmt.Errorf("encoding conversations: %w", err)
	}
	return s.Put(KeyConversations, string(data))
}

// LoadConversations loads and normalizes the conversation history.
// A missing or unreadable record yields an empty history.
func (s *Store) LoadConversations() ([]model.Conversation, error) {
	value, ok, err := s.Get(KeyConversations)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []model.Conversation{}, nil
	}
	history := DecodeHistory([]byte(value))
	if len(history) == 0 && value != "" && value != "[]" && value != "null" {
		log.Printf("storage: discarding unreadable conversation history (%d bytes)", len(value))
	}
	return history, nil
}

// SaveSelected persists the selected-conversation pointer.
func (s *Store) SaveSelected(conv model.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encoding selected conversation: %w", err)
	}
	return s.Put(KeySelected, string(data))
}

// LoadSelected loads the selected-conversation pointer. Returns false when
// no pointer is persisted or the record is unreadable.
func (s *Store) LoadSelected() (model.Conversation, bool, error) {
	value, ok, err := s.Get(KeySelected)
	if err != nil {
		return model.Conversation{}, false, err
	}
	if !ok {
		return model.Conversation{}, false, nil
	}
	conv, ok := DecodeConversation([]byte(value))
	if !ok {
		log.Printf("storage: discarding unreadable selected-conversation record")
		return model.Conversation{}, false, nil
	}
	return conv, true, nil
}

// ClearSelected removes the selected-conversation pointer.
func (s *Store) ClearSelected() error {
	return s.Remove(KeySelected)
}

// SaveFolders persists the folder list.
func (s *Store) SaveFolders(folders []model.Folder) error {
	data, err := json.Marshal(folders)
	if err != nil {
		return fmt.Errorf("encoding folders: %w", err)
	}
	return s.Put(KeyFolders, string(data))
}

// LoadFolders loads and normalizes the folder list. A missing or unreadable
// record yields an empty set.
func (s *Store) LoadFolders() ([]model.Folder, error) {
	value, ok, err := s.Get(KeyFolders)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []model.Folder{}, nil
	}
	return DecodeFolders([]byte(value)), nil
}

// SaveAPIKey persists the API key. An empty key removes the record so that
// clearing the key leaves no trace on disk.
func (s *Store) SaveAPIKey(key string) error {
	if key == "" {
		return s.Remove(KeyAPIKey)
	}
	return s.Put(KeyAPIKey, key)
}

// LoadAPIKey loads the API key, or "" when none is stored.
func (s *Store) LoadAPIKey() (string, error) {
	value, _, err := s.Get(KeyAPIKey)
	return value, err
}

// SaveTheme persists the UI theme name.
func (s *Store) SaveTheme(theme string) error {
	return s.Put(KeyTheme, theme)
}

// LoadTheme loads the UI theme, or "" when none is stored.
func (s *Store) LoadTheme() (string, error) {
	value, _, err := s.Get(KeyTheme)
	return value, err
}

// ClearHistory removes conversation state while preserving preferences.
// The apiKey and theme keys survive a clear.
func (s *Store) ClearHistory() error {
	for _, key := range []string{KeyConversations, KeySelected, KeyFolders} {
		if err := s.Remove(key); err != nil {
			return err
		}
	}
	return nil
}
