// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared across the client:
// chats and messages, document/job records with their processing status,
// and the section parser that gives a structured view over assistant
// replies.
//
// The package is a leaf: it imports nothing from the rest of the module,
// so the API client, the push channel, the tracker, and the UI can all
// depend on it without cycles.
package model
