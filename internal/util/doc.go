// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the lankaguide TUI:
// Unicode-safe string truncation, display-width measurement, and atomic
// file writes used by the session and config packages.
package util
