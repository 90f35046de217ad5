// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable key-value persistence for conversations,
// folders and preferences, plus the schema normalizer that repairs records
// persisted by earlier versions.
//
// # Key Types
//
//   - Store: SQLite-backed key-value store with typed helpers per state key
//   - Payload: the {conversations, folders} import/export shape
//   - RawConversation, RawFolder: tolerant decode targets for normalization
//
// # State Keys
//
// Five keys cover all persisted state: "conversations" (the full history),
// "selectedConversation" (last selected pointer), "folders", "apiKey" and
// "theme". A missing key is a valid, expected state; loads degrade to
// defaults rather than failing.
//
// # Usage
//
//	store, err := storage.Open(path)
//	conversations, err := store.LoadConversations() // normalized on load
//	err = store.SaveConversations(conversations)
//
// # Storage Location
//
// State lives in a single SQLite database, by default
// ~/.chatkeep/chatkeep.db.
package storage
