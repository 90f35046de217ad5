// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"

	"github.com/avelark/chatkeep/internal/model"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the single process-wide container for session state: the
// conversation and folder collections, the selected conversation, the model
// catalog, preferences and transient flags. It is constructed once at
// startup from normalized persisted data and torn down only by process exit.
//
// All access goes through the accessors; collection getters return copies so
// callers never hold references into the guarded slices. State holds no
// persistence logic itself; write-through is the conversation store's job.
type State struct {
	mu sync.Mutex

	// Canonical collections
	conversations []model.Conversation
	folders       []model.Folder
	selected      model.Conversation

	// Model catalog, populated by a background fetch
	models []model.Descriptor

	// Preferences
	apiKey string
	theme  string

	// Transient flags observed by presentation
	loading          bool
	messageStreaming bool
	messageError     bool
	modelError       bool
	showSidebar      bool
}

// NewState creates an empty session state with dark theme and visible
// sidebar defaults.
func NewState() *State {
	return &State{
		conversations: []model.Conversation{},
		folders:       []model.Folder{},
		selected:      model.DefaultConversation(),
		theme:         "dark",
		showSidebar:   true,
	}
}

// =============================================================================
// COLLECTIONS
// =============================================================================

// Conversations returns a copy of the conversation collection.
func (s *State) Conversations() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		out[i] = c.Clone()
	}
	return out
}

// SetConversations replaces the conversation collection.
func (s *State) SetConversations(conversations []model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = conversations
}

// Folders returns a copy of the folder collection.
func (s *State) Folders() []model.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Folder, len(s.folders))
	copy(out, s.folders)
	return out
}

// SetFolders replaces the folder collection.
func (s *State) SetFolders(folders []model.Folder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = folders
}

// Selected returns the selected conversation as a value copy.
func (s *State) Selected() model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.Clone()
}

// SetSelected replaces the selected conversation.
func (s *State) SetSelected(conv model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = conv
}

// Models returns the fetched model catalog.
func (s *State) Models() []model.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Descriptor, len(s.models))
	copy(out, s.models)
	return out
}

// SetModels replaces the model catalog.
func (s *State) SetModels(models []model.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = models
}

// =============================================================================
// PREFERENCES
// =============================================================================

// APIKey returns the stored credential, or "".
func (s *State) APIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey
}

// SetAPIKey stores the credential.
func (s *State) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
}

// Theme returns the UI theme name.
func (s *State) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme stores the UI theme name.
func (s *State) SetTheme(theme string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = theme
}

// =============================================================================
// FLAGS
// =============================================================================

// Loading reports whether a send is awaiting its first reply byte.
func (s *State) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// SetLoading sets the loading flag.
func (s *State) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// MessageStreaming reports whether a reply stream is in flight.
func (s *State) MessageStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageStreaming
}

// SetMessageStreaming sets the streaming flag.
func (s *State) SetMessageStreaming(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageStreaming = v
}

// MessageError reports whether the last send failed.
func (s *State) MessageError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageError
}

// SetMessageError sets the message-error flag.
func (s *State) SetMessageError(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageError = v
}

// ModelError reports whether the last catalog fetch failed.
func (s *State) ModelError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelError
}

// SetModelError sets the model-error flag.
func (s *State) SetModelError(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelError = v
}

// ShowSidebar reports whether the conversation list is visible.
func (s *State) ShowSidebar() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showSidebar
}

// ToggleSidebar flips sidebar visibility and returns the new value.
func (s *State) ToggleSidebar() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showSidebar = !s.showSidebar
	return s.showSidebar
}
