// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, folders and
// the model catalog.
//
// This package defines the core domain types used throughout the application
// for representing chat conversations, their messages, and the completion
// models they target.
//
// # Key Types
//
//   - Conversation: A named, ordered exchange of messages with a model and
//     system prompt
//   - Message: Single message with role and content
//   - Folder: User-defined grouping label for conversations
//   - Descriptor: Catalog entry for a completion model
//
// # Usage
//
// Create a new conversation and append a message:
//
//	conv := model.NewConversation(1, "Conversation 1", model.Default(), model.DefaultSystemPrompt)
//	conv.Messages = append(conv.Messages, model.Message{
//	    Role:    model.RoleUser,
//	    Content: "Hello!",
//	})
//
// Allocate an id for a new conversation:
//
//	id := model.NextConversationID(existing)
package model
