// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the LankaGuide
// TUI: the adaptive color palette, the Theme aggregating every styled
// component, and small rendering helpers shared by views.
package styles
