// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chat-completion and model
// catalog endpoints.
//
// # Key Types
//
//   - Client: rate-limited HTTP client; one streaming chat request at a time
//     per invocation, plus the model catalog fetch
//   - StreamReader: incremental UTF-8-safe decoder over a response body
//   - ClientError: typed error with an ErrorType category
//
// # Usage
//
//	client := api.NewClient(nil)
//	err := client.ChatStream(ctx, req, func(text string) {
//	    fmt.Print(text)
//	})
//
// The completion endpoint replies with a raw text stream: the decoded bytes
// are the assistant's message, terminated by stream end. ChatStream invokes
// the callback once per decoded chunk, never with an empty string.
package api
