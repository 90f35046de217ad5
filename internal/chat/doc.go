// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the conversation engine: the conversation store, the
// streaming response accumulator and the session controller.
//
// # Key Types
//
//   - Store: owns the canonical conversation/folder collections; every
//     mutation writes through to persistent storage before returning
//   - Accumulator: folds a streamed reply into the conversation's trailing
//     assistant message, emitting a value snapshot per chunk
//   - Controller: orchestrates send and edit-and-resend, derives first-
//     exchange titles, and commits final state
//   - StopSignal: cooperative cancellation for an in-flight stream
//
// # Usage
//
//	store := chat.NewStore(state, db)
//	if err := store.LoadInitial(); err != nil { ... }
//	controller := chat.NewController(store, state, client)
//	err := controller.Send(ctx, "hello", 0)
//
// The store is the only writer of the canonical collections. The
// accumulator never touches the store; it emits snapshots which the
// controller commits, so a conversation deleted mid-stream makes the final
// commit a silent no-op rather than an error.
package chat
