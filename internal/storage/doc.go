// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides a local cache of chat history.
//
// The backend owns the authoritative conversation record; this cache
// exists so previously fetched chats render instantly on startup and
// remain readable while offline. It is refreshed from API responses
// and never written back to the server.
//
// Backed by SQLite (pure Go driver) under ~/.lankaguide/.
package storage
