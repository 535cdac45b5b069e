// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tracker coordinates the client-observed state of document
// uploads and their server-side processing.
//
// Two independent input streams feed it: uploads initiated locally
// through BeginUpload, and progress events arriving asynchronously
// over the push channel through OnStatusEvent. The tracker merges both
// into a single ordered view keyed by the server-assigned document
// identifier, which is the only correlation between the two streams.
//
// The view is eventually consistent with the backend. Events can be
// missed (reconnects do not replay), can reference documents uploaded
// by another session, and can race the upload response that first
// introduces an identifier. Resync repairs all three by re-fetching
// the authoritative document list; OnStatusEvent requests it, with
// debouncing, whenever an event references an unknown identifier.
package tracker
