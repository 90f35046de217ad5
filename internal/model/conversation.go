// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// UnfiledFolderID marks a conversation that belongs to no folder.
const UnfiledFolderID = 0

// DefaultConversationName is the name given to a conversation synthesized
// when none exists (fresh install, or after the last one is deleted).
const DefaultConversationName = "New conversation"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat conversation with history and metadata.
//
// The JSON field names match the persisted format so conversations written by
// earlier versions load without translation.
type Conversation struct {
	// Identity
	ID   int    `json:"id"`
	Name string `json:"name"`

	// Messages, ordered oldest first
	Messages []Message `json:"messages"`

	// Model configuration
	Model  Descriptor `json:"model"`
	Prompt string     `json:"prompt"`

	// Folder assignment (UnfiledFolderID when unfiled)
	FolderID int `json:"folderId"`
}

// NewConversation creates a conversation with the given identity and an empty
// message history.
func NewConversation(id int, name string, m Descriptor, prompt string) Conversation {
	return Conversation{
		ID:       id,
		Name:     name,
		Messages: make([]Message, 0),
		Model:    m,
		Prompt:   prompt,
		FolderID: UnfiledFolderID,
	}
}

// DefaultConversation returns the conversation synthesized when no persisted
// selection exists: id 1, empty history, default model and prompt.
func DefaultConversation() Conversation {
	return NewConversation(1, DefaultConversationName, Default(), DefaultSystemPrompt)
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append returns a copy of the conversation with msg added to the end of the
// history. The receiver is left untouched.
func (c Conversation) Append(msg Message) Conversation {
	msgs := make([]Message, len(c.Messages), len(c.Messages)+1)
	copy(msgs, c.Messages)
	c.Messages = append(msgs, msg)
	return c
}

// ReplaceLast returns a copy of the conversation whose trailing message has
// been replaced wholesale by msg. If the history is empty the message is
// appended instead.
func (c Conversation) ReplaceLast(msg Message) Conversation {
	if len(c.Messages) == 0 {
		return c.Append(msg)
	}
	msgs := make([]Message, len(c.Messages))
	copy(msgs, c.Messages)
	msgs[len(msgs)-1] = msg
	c.Messages = msgs
	return c
}

// Truncate returns a copy of the conversation keeping only the first keep
// messages. A keep at or beyond the current length is a no-op; a negative
// keep empties the history.
func (c Conversation) Truncate(keep int) Conversation {
	if keep < 0 {
		keep = 0
	}
	if keep >= len(c.Messages) {
		return c.Clone()
	}
	msgs := make([]Message, keep)
	copy(msgs, c.Messages[:keep])
	c.Messages = msgs
	return c
}

// DropLast returns a copy of the conversation with the trailing n messages
// removed.
func (c Conversation) DropLast(n int) Conversation {
	return c.Truncate(len(c.Messages) - n)
}

// LastMessage returns the most recent message and whether one exists.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// MessageCount returns the number of messages.
func (c Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Clone returns a copy of the conversation with its own message slice.
// Messages are value types, so copying the slice is a deep copy.
func (c Conversation) Clone() Conversation {
	msgs := make([]Message, len(c.Messages))
	copy(msgs, c.Messages)
	c.Messages = msgs
	return c
}

// =============================================================================
// FOLDER TYPE
// =============================================================================

// Folder is a user-defined grouping label applied to conversations.
// Deleting a folder unfiles its conversations; it never deletes them.
type Folder struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// =============================================================================
// ID ALLOCATION
// =============================================================================

// NextConversationID allocates the id for a new conversation: 1 when the
// collection is empty, otherwise max(existing ids) + 1. Ids stay unique for
// the life of the collection but their magnitude does not encode creation
// order once deletions have happened.
func NextConversationID(conversations []Conversation) int {
	max := 0
	for _, c := range conversations {
		if c.ID > max {
			max = c.ID
		}
	}
	return max + 1
}

// NextFolderID allocates the id for a new folder, using the same rule as
// NextConversationID.
func NextFolderID(folders []Folder) int {
	max := 0
	for _, f := range folders {
		if f.ID > max {
			max = f.ID
		}
	}
	return max + 1
}
