// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"regexp"
	"strings"
)

// =============================================================================
// ASSISTANT REPLY SECTIONS
// =============================================================================

// The assistant is prompted to structure replies as labelled sections:
//
//	Summary: one-sentence answer
//	Details: key points
//	Statistics: numerical data only
//	Commentary: additional analysis
//
// The reply is still free text, so parsing is best effort. The parser
// reports exactly how much structure it found instead of fabricating
// empty sections on a miss.

// SectionKind describes how much of the expected structure a reply carried.
type SectionKind int

const (
	// Unstructured means no recognised section heading was found; the raw
	// text is the only usable content.
	Unstructured SectionKind = iota

	// PartiallyStructured means some but not all headings were present.
	PartiallyStructured

	// FullyStructured means all four headings were present.
	FullyStructured
)

// String returns a readable name for the kind.
func (k SectionKind) String() string {
	switch k {
	case FullyStructured:
		return "fully structured"
	case PartiallyStructured:
		return "partially structured"
	default:
		return "unstructured"
	}
}

// Sections is the parsed view of an assistant reply.
type Sections struct {
	Kind SectionKind

	// Raw is the original reply text, always populated.
	Raw string

	// Section bodies, populated only when the heading was present.
	Summary    string
	Details    string
	Statistics string
	Commentary string
}

// Has reports whether the named section was present in the reply.
func (s *Sections) Has(name string) bool {
	switch strings.ToLower(name) {
	case "summary":
		return s.Summary != ""
	case "details":
		return s.Details != ""
	case "statistics":
		return s.Statistics != ""
	case "commentary":
		return s.Commentary != ""
	}
	return false
}

// sectionHeadingRegex matches a section label at the start of a line,
// tolerating markdown emphasis around the label ("**Summary:**", "## Summary:").
var sectionHeadingRegex = regexp.MustCompile(`(?mi)^[#*\s]*(Summary|Details|Statistics|Commentary)[*\s]*:[*\s]*`)

// ParseSections splits an assistant reply into its labelled sections.
// Text before the first heading is folded into the summary when no
// explicit summary exists, which matches how the assistant occasionally
// leads with the answer before the "Details:" label.
func ParseSections(content string) *Sections {
	result := &Sections{Kind: Unstructured, Raw: content}

	matches := sectionHeadingRegex.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return result
	}

	// Leading prose before the first heading.
	preamble := strings.TrimSpace(content[:matches[0][0]])

	seen := make(map[string]bool, 4)
	for i, m := range matches {
		label := strings.ToLower(content[m[2]:m[3]])
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(content[m[1]:end])

		// First occurrence wins if the assistant repeats a heading.
		if seen[label] {
			continue
		}
		seen[label] = true

		switch label {
		case "summary":
			result.Summary = body
		case "details":
			result.Details = body
		case "statistics":
			result.Statistics = body
		case "commentary":
			result.Commentary = body
		}
	}

	if result.Summary == "" && preamble != "" {
		result.Summary = preamble
	}

	if len(seen) == 4 {
		result.Kind = FullyStructured
	} else {
		result.Kind = PartiallyStructured
	}
	return result
}

// =============================================================================
// STATISTICS LINES
// =============================================================================

// StatLine is a single "label: value" row from a Statistics section,
// used by the UI to render simple bar charts.
type StatLine struct {
	Label string
	Value string
}

// statLineRegex matches "label: 1,234" style rows, including bullets.
var statLineRegex = regexp.MustCompile(`^\s*[-*•]?\s*(.+?)\s*[:–-]\s*([\d.,%$ ]*\d[\d.,%$ a-zA-Z]*)\s*$`)

// ParseStatLines extracts label/value rows from a Statistics section body.
// Rows that do not look like "label: number" are skipped; callers fall
// back to plain text rendering when nothing matches.
func ParseStatLines(body string) []StatLine {
	var lines []StatLine
	for _, raw := range strings.Split(body, "\n") {
		m := statLineRegex.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		lines = append(lines, StatLine{
			Label: strings.TrimSpace(m[1]),
			Value: strings.TrimSpace(m[2]),
		})
	}
	return lines
}
