// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"sync"

	"github.com/avelark/chatkeep/internal/model"
	"github.com/avelark/chatkeep/internal/session"
	"github.com/avelark/chatkeep/internal/storage"
)

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// Store owns the canonical conversation and folder collections. Every
// mutation updates the session state and writes through to persistent
// storage before returning; the mutex serializes mutations so interleaved
// writes can never leave the selected pointer referencing a conversation
// absent from the collection.
//
// Lookups by id that miss are silent no-ops. Stale ids arise routinely from
// callbacks racing a concurrent delete and are treated as already handled.
type Store struct {
	mu    sync.Mutex
	state *session.State
	db    *storage.Store
}

// NewStore creates a conversation store over the given session state and
// persistence store.
func NewStore(state *session.State, db *storage.Store) *Store {
	return &Store{state: state, db: db}
}

// LoadInitial seeds session state from persisted data. Every record passes
// through the normalizer; missing keys yield defaults. When no selection
// pointer is persisted, a fresh default conversation becomes selected
// without being persisted.
func (s *Store) LoadInitial() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations, err := s.db.LoadConversations()
	if err != nil {
		return fmt.Errorf("loading conversations: %w", err)
	}
	s.state.SetConversations(conversations)

	folders, err := s.db.LoadFolders()
	if err != nil {
		return fmt.Errorf("loading folders: %w", err)
	}
	s.state.SetFolders(folders)

	selected, ok, err := s.db.LoadSelected()
	if err != nil {
		return fmt.Errorf("loading selection: %w", err)
	}
	if ok {
		s.state.SetSelected(selected)
	} else {
		s.state.SetSelected(model.DefaultConversation())
	}

	apiKey, err := s.db.LoadAPIKey()
	if err != nil {
		return fmt.Errorf("loading credential: %w", err)
	}
	if apiKey != "" {
		s.state.SetAPIKey(apiKey)
	}

	theme, err := s.db.LoadTheme()
	if err != nil {
		return fmt.Errorf("loading theme: %w", err)
	}
	if theme != "" {
		s.state.SetTheme(theme)
	}

	return nil
}

// =============================================================================
// CONVERSATION OPERATIONS
// =============================================================================

// NewConversation allocates the next id, creates an empty unfiled
// conversation named "Conversation N", selects it and persists both the
// collection and the selection pointer.
func (s *Store) NewConversation(m model.Descriptor, prompt string) (model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.state.Conversations()
	id := model.NextConversationID(conversations)
	conv := model.NewConversation(id, fmt.Sprintf("Conversation %d", id), m, prompt)

	conversations = append(conversations, conv)
	s.state.SetConversations(conversations)
	s.state.SetSelected(conv)

	if err := s.db.SaveConversations(conversations); err != nil {
		return conv, err
	}
	return conv, s.db.SaveSelected(conv)
}

// SelectConversation makes the conversation with the given id the active
// one and persists the selection pointer. An absent id is a no-op.
func (s *Store) SelectConversation(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conv := range s.state.Conversations() {
		if conv.ID == id {
			s.state.SetSelected(conv)
			return s.db.SaveSelected(conv)
		}
	}
	return nil
}

// RenameConversation sets the display name of the conversation with the
// given id. An absent id is a no-op.
func (s *Store) RenameConversation(id int, name string) error {
	return s.updateConversation(id, func(c model.Conversation) model.Conversation {
		c.Name = name
		return c
	})
}

// SetConversationModel switches the completion model of the conversation
// with the given id.
func (s *Store) SetConversationModel(id int, m model.Descriptor) error {
	return s.updateConversation(id, func(c model.Conversation) model.Conversation {
		c.Model = m
		return c
	})
}

// SetConversationPrompt replaces the system prompt of the conversation with
// the given id.
func (s *Store) SetConversationPrompt(id int, prompt string) error {
	return s.updateConversation(id, func(c model.Conversation) model.Conversation {
		c.Prompt = prompt
		return c
	})
}

// MoveToFolder files the conversation under the given folder. A folderID of
// model.UnfiledFolderID unfiles it.
func (s *Store) MoveToFolder(id, folderID int) error {
	return s.updateConversation(id, func(c model.Conversation) model.Conversation {
		c.FolderID = folderID
		return c
	})
}

// TruncateMessages drops all messages from index keep onward in the
// conversation with the given id. Used by edit-and-resend; the truncation
// commits on its own, independent of the resend that follows.
func (s *Store) TruncateMessages(id, keep int) error {
	return s.updateConversation(id, func(c model.Conversation) model.Conversation {
		return c.Truncate(keep)
	})
}

// updateConversation applies fn to the conversation with the given id,
// writing the result into both the collection entry and, when it is the
// active conversation, the selected slot. An absent id leaves everything
// unchanged.
func (s *Store) updateConversation(id int, fn func(model.Conversation) model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.state.Conversations()
	found := false
	var updated model.Conversation
	for i, conv := range conversations {
		if conv.ID == id {
			updated = fn(conv)
			conversations[i] = updated
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	s.state.SetConversations(conversations)
	if err := s.db.SaveConversations(conversations); err != nil {
		return err
	}

	if s.state.Selected().ID == id {
		s.state.SetSelected(updated)
		return s.db.SaveSelected(updated)
	}
	return nil
}

// DeleteConversation removes the conversation with the given id. If it was
// selected, selection falls back to the last remaining conversation, or —
// when none remain — to a freshly synthesized default conversation whose
// selection is deliberately not persisted: the stored pointer is cleared so
// a later reload creates a new default instead of resurrecting this one.
func (s *Store) DeleteConversation(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.state.Conversations()
	kept := conversations[:0]
	found := false
	for _, conv := range conversations {
		if conv.ID == id {
			found = true
			continue
		}
		kept = append(kept, conv)
	}
	if !found {
		return nil
	}

	s.state.SetConversations(kept)
	if err := s.db.SaveConversations(kept); err != nil {
		return err
	}

	if s.state.Selected().ID != id {
		return nil
	}
	if len(kept) > 0 {
		last := kept[len(kept)-1]
		s.state.SetSelected(last)
		return s.db.SaveSelected(last)
	}
	s.state.SetSelected(model.DefaultConversation())
	return s.db.ClearSelected()
}

// ClearAll empties the conversation and folder collections, resets the
// selection to a fresh default conversation and removes the persisted
// records. Preferences (credential, theme) survive.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SetConversations([]model.Conversation{})
	s.state.SetFolders([]model.Folder{})
	s.state.SetSelected(model.DefaultConversation())
	return s.db.ClearHistory()
}

// =============================================================================
// FOLDER OPERATIONS
// =============================================================================

// CreateFolder allocates the next folder id and persists the new folder.
func (s *Store) CreateFolder(name string) (model.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folders := s.state.Folders()
	folder := model.Folder{ID: model.NextFolderID(folders), Name: name}
	folders = append(folders, folder)
	s.state.SetFolders(folders)
	return folder, s.db.SaveFolders(folders)
}

// RenameFolder sets the name of the folder with the given id. An absent id
// is a no-op.
func (s *Store) RenameFolder(id int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folders := s.state.Folders()
	found := false
	for i, folder := range folders {
		if folder.ID == id {
			folders[i].Name = name
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	s.state.SetFolders(folders)
	return s.db.SaveFolders(folders)
}

// DeleteFolder removes the folder with the given id and unfiles its member
// conversations. No conversation is deleted.
func (s *Store) DeleteFolder(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folders := s.state.Folders()
	kept := folders[:0]
	found := false
	for _, folder := range folders {
		if folder.ID == id {
			found = true
			continue
		}
		kept = append(kept, folder)
	}
	if !found {
		return nil
	}
	s.state.SetFolders(kept)
	if err := s.db.SaveFolders(kept); err != nil {
		return err
	}

	// Cascade: members become unfiled
	conversations := s.state.Conversations()
	changed := false
	for i, conv := range conversations {
		if conv.FolderID == id {
			conversations[i].FolderID = model.UnfiledFolderID
			changed = true
		}
	}
	if !changed {
		return nil
	}
	s.state.SetConversations(conversations)
	if err := s.db.SaveConversations(conversations); err != nil {
		return err
	}

	selected := s.state.Selected()
	if selected.FolderID == id {
		selected.FolderID = model.UnfiledFolderID
		s.state.SetSelected(selected)
		return s.db.SaveSelected(selected)
	}
	return nil
}

// =============================================================================
// COMMITS
// =============================================================================

// Commit writes a finished conversation into both the collection and the
// selected slot, then persists. When the collection is empty the
// conversation is inserted; when it is non-empty and the id is absent the
// commit is a silent no-op — the conversation was deleted while its reply
// streamed, and the delete wins.
func (s *Store) Commit(conv model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.state.Conversations()
	if len(conversations) == 0 {
		conversations = append(conversations, conv)
	} else {
		found := false
		for i, existing := range conversations {
			if existing.ID == conv.ID {
				conversations[i] = conv
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}

	s.state.SetConversations(conversations)
	s.state.SetSelected(conv)

	if err := s.db.SaveConversations(conversations); err != nil {
		return err
	}
	return s.db.SaveSelected(conv)
}

// CommitPartial updates only the selected slot with an intermediate
// streaming snapshot. Partials are not persisted; write volume stays
// bounded to one write per completed mutation.
func (s *Store) CommitPartial(conv model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SetSelected(conv)
}

// =============================================================================
// PREFERENCES
// =============================================================================

// SetAPIKey stores the credential and writes it through.
func (s *Store) SetAPIKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SetAPIKey(key)
	return s.db.SaveAPIKey(key)
}

// SetTheme stores the theme and writes it through.
func (s *Store) SetTheme(theme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SetTheme(theme)
	return s.db.SaveTheme(theme)
}

// =============================================================================
// IMPORT / EXPORT
// =============================================================================

// ExportData serializes the persisted conversation and folder collections.
func (s *Store) ExportData() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.ExportJSON()
}

// ImportData replaces the collections from an export payload. The payload
// is normalized before acceptance; the last imported conversation becomes
// selected.
func (s *Store) ImportData(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := s.db.Import(data)
	if err != nil {
		return err
	}

	s.state.SetConversations(payload.Conversations)
	s.state.SetFolders(payload.Folders)
	if n := len(payload.Conversations); n > 0 {
		s.state.SetSelected(payload.Conversations[n-1])
	} else {
		s.state.SetSelected(model.DefaultConversation())
	}
	return nil
}
