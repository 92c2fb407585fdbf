// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across streamchat.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync, used by the
//     config and chat snapshot stores
//   - TruncateWidth, StringWidth: display-width aware string handling for
//     the terminal UI
//   - TruncateRunes: UTF-8 safe truncation with an ellipsis
package util
