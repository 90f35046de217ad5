// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the chatkeep application.
//
// # Key Functions
//
// String Utilities:
//   - Ellipsize: UTF-8 safe truncation with a "..." marker
//   - TruncateRunes: UTF-8 safe truncation without a marker
//   - PadRight, StringWidth: display-width aware formatting
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
package util
