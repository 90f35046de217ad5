// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"

	"github.com/avelark/chatkeep/internal/model"
)

// =============================================================================
// STATE TESTS
// =============================================================================

func TestNewState_Defaults(t *testing.T) {
	state := NewState()

	if len(state.Conversations()) != 0 {
		t.Error("new state should have no conversations")
	}
	if state.Selected().ID != 1 {
		t.Errorf("default selected ID = %d, want 1", state.Selected().ID)
	}
	if state.Theme() != "dark" {
		t.Errorf("default theme = %q, want dark", state.Theme())
	}
	if !state.ShowSidebar() {
		t.Error("sidebar should default to visible")
	}
	if state.Loading() || state.MessageStreaming() || state.MessageError() || state.ModelError() {
		t.Error("flags should default to false")
	}
}

func TestState_GettersReturnCopies(t *testing.T) {
	state := NewState()
	conv := model.DefaultConversation().Append(model.Message{Role: model.RoleUser, Content: "original"})
	state.SetConversations([]model.Conversation{conv})
	state.SetSelected(conv)

	// Mutating a returned copy must not leak back into state
	got := state.Conversations()
	got[0].Messages[0].Content = "mutated"
	if state.Conversations()[0].Messages[0].Content != "original" {
		t.Error("Conversations() should return deep copies")
	}

	sel := state.Selected()
	sel.Messages[0].Content = "mutated"
	if state.Selected().Messages[0].Content != "original" {
		t.Error("Selected() should return a deep copy")
	}
}

func TestState_ToggleSidebar(t *testing.T) {
	state := NewState()
	if state.ToggleSidebar() {
		t.Error("first toggle should hide the sidebar")
	}
	if !state.ToggleSidebar() {
		t.Error("second toggle should show it again")
	}
}

func TestState_Flags(t *testing.T) {
	state := NewState()
	state.SetLoading(true)
	state.SetMessageStreaming(true)
	state.SetMessageError(true)
	state.SetModelError(true)

	if !state.Loading() || !state.MessageStreaming() || !state.MessageError() || !state.ModelError() {
		t.Error("flag setters did not take effect")
	}
}
