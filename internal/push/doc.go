// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package push maintains the WebSocket subscription that carries
// document processing events from the backend to the client.
//
// The channel owns its connection lifecycle: it dials, reads, and
// reconnects with capped exponential backoff until Close is called or
// the Run context is cancelled. Consumers see a single ordered stream
// of Events and never touch the socket directly. Every successful
// (re)connection is announced on the stream so the consumer can
// reconcile any state it may have missed while disconnected.
package push
