// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/avelark/chatkeep/internal/model"
)

// =============================================================================
// NORMALIZER TESTS
// =============================================================================

func TestNormalizeConversation_Defaults(t *testing.T) {
	conv := NormalizeConversation(RawConversation{})

	if conv.ID != 1 {
		t.Errorf("ID = %d, want 1", conv.ID)
	}
	if conv.Name != model.DefaultConversationName {
		t.Errorf("Name = %q, want default", conv.Name)
	}
	if conv.Model.ID != model.DefaultModelID {
		t.Errorf("Model = %q, want default", conv.Model.ID)
	}
	if conv.Prompt != model.DefaultSystemPrompt {
		t.Error("Prompt should default")
	}
	if conv.FolderID != model.UnfiledFolderID {
		t.Errorf("FolderID = %d, want unfiled", conv.FolderID)
	}
	if conv.Messages == nil || len(conv.Messages) != 0 {
		t.Errorf("Messages = %v, want empty non-nil", conv.Messages)
	}
}

func TestNormalizeConversation_PreservesValidFields(t *testing.T) {
	id, name, folder := 9, "Kept", 4
	modelID := model.ModelGPT4
	prompt := "custom prompt"
	role, content := "user", "hello"

	conv := NormalizeConversation(RawConversation{
		ID:       &id,
		Name:     &name,
		Model:    &RawDescriptor{ID: &modelID},
		Prompt:   &prompt,
		FolderID: &folder,
		Messages: []RawMessage{{Role: &role, Content: &content}},
	})

	if conv.ID != 9 || conv.Name != "Kept" || conv.FolderID != 4 {
		t.Errorf("scalar fields not preserved: %+v", conv)
	}
	if conv.Model.ID != model.ModelGPT4 {
		t.Errorf("Model = %q, want gpt-4", conv.Model.ID)
	}
	if conv.Prompt != "custom prompt" {
		t.Errorf("Prompt = %q, want custom prompt", conv.Prompt)
	}
	if len(conv.Messages) != 1 || conv.Messages[0].Content != "hello" {
		t.Errorf("Messages = %+v", conv.Messages)
	}
}

func TestNormalizeConversation_UnknownModelRewritten(t *testing.T) {
	modelID := "gpt-9-experimental"
	conv := NormalizeConversation(RawConversation{
		Model: &RawDescriptor{ID: &modelID},
	})
	if conv.Model.ID != model.DefaultModelID {
		t.Errorf("unknown model should be rewritten to default, got %q", conv.Model.ID)
	}
}

func TestNormalizeConversation_EmptyPromptDefaults(t *testing.T) {
	empty := ""
	conv := NormalizeConversation(RawConversation{Prompt: &empty})
	if conv.Prompt != model.DefaultSystemPrompt {
		t.Error("empty prompt should be rewritten to default")
	}
}

func TestNormalizeConversation_DropsPartialMessages(t *testing.T) {
	role, content := "user", "kept"
	conv := NormalizeConversation(RawConversation{
		Messages: []RawMessage{
			{Role: &role, Content: &content},
			{Role: &role},       // missing content
			{Content: &content}, // missing role
			{},
		},
	})
	if len(conv.Messages) != 1 {
		t.Fatalf("message count = %d, want 1", len(conv.Messages))
	}
	if conv.Messages[0].Content != "kept" {
		t.Errorf("surviving message = %+v", conv.Messages[0])
	}
}

func TestNormalizeHistory_AssignsMissingIDs(t *testing.T) {
	five := 5
	history := NormalizeHistory([]RawConversation{
		{ID: &five},
		{}, // no id; gets 6
		{}, // no id; gets 7
	})

	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if history[1].ID != 6 || history[2].ID != 7 {
		t.Errorf("assigned ids = %d, %d, want 6, 7", history[1].ID, history[2].ID)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	role, content := "user", "hi"
	raw := RawConversation{
		Messages: []RawMessage{{Role: &role, Content: &content}, {}},
	}
	once := NormalizeConversation(raw)

	// Re-encode the normalized form and normalize again
	data, err := json.Marshal(once)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	twice, ok := DecodeConversation(data)
	if !ok {
		t.Fatal("decode of normalized record failed")
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("normalization not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestDecodeHistory_Malformed(t *testing.T) {
	if history := DecodeHistory([]byte("not json")); len(history) != 0 {
		t.Errorf("malformed payload should yield empty history, got %d", len(history))
	}
}

func TestDecodeFolders(t *testing.T) {
	folders := DecodeFolders([]byte(`[{"id":2,"name":"Work"}]`))
	if len(folders) != 1 || folders[0].ID != 2 || folders[0].Name != "Work" {
		t.Errorf("folders = %+v", folders)
	}
	if folders := DecodeFolders([]byte("broken")); len(folders) != 0 {
		t.Errorf("malformed folders should yield empty set, got %d", len(folders))
	}
}
