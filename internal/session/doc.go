// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the process-wide session state container.
//
// State owns the in-memory copy of everything the user interacts with:
// the conversation and folder collections, the selected conversation,
// the model catalog, preferences, and the transient flags tracking an
// in-flight request. It is built once at startup from normalized
// persisted data and mutated only through its methods.
//
// # Key Types
//
//   - State: mutex-guarded session state container
//
// # Usage
//
// Construct the state and hydrate it from storage:
//
//	state := session.NewState()
//	state.SetConversations(convs)
//	state.SetSelected(selected)
//
// Readers receive deep copies, so callers may mutate returned values
// freely:
//
//	conv := state.Selected()
//	conv.Messages = append(conv.Messages, msg)
package session
