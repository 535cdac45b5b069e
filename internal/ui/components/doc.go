// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the
// LankaGuide TUI: message bubbles with sectioned assistant replies,
// the upload progress list, toasts, the status bar, and code block
// rendering. Components are pure view logic; they render state owned
// elsewhere and hold none of their own beyond display settings.
package components
