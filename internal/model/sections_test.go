// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

const fullReply = `Summary: Tourist arrivals grew strongly in 2023.

Details: Growth was driven by the reopening of regional routes.
- European arrivals recovered fastest
- Hotel occupancy followed with a one-quarter lag

Statistics:
- Arrivals 2023: 1,487,303
- Growth rate: 106.6%
- Average stay: 8.5 nights

Commentary: Investors should watch shoulder-season demand, which
remains below 2018 levels.`

func TestParseSectionsFull(t *testing.T) {
	s := ParseSections(fullReply)

	if s.Kind != FullyStructured {
		t.Fatalf("Expected FullyStructured, got %v", s.Kind)
	}
	if !strings.HasPrefix(s.Summary, "Tourist arrivals grew") {
		t.Errorf("Unexpected summary: %q", s.Summary)
	}
	if !strings.Contains(s.Details, "European arrivals") {
		t.Errorf("Unexpected details: %q", s.Details)
	}
	if !strings.Contains(s.Statistics, "1,487,303") {
		t.Errorf("Unexpected statistics: %q", s.Statistics)
	}
	if !strings.Contains(s.Commentary, "shoulder-season") {
		t.Errorf("Unexpected commentary: %q", s.Commentary)
	}
	if s.Raw != fullReply {
		t.Error("Raw must preserve the original reply")
	}
}

func TestParseSectionsPartial(t *testing.T) {
	s := ParseSections("Summary: Yes, visas are issued on arrival.\n\nDetails: Apply online to skip the queue.")

	if s.Kind != PartiallyStructured {
		t.Fatalf("Expected PartiallyStructured, got %v", s.Kind)
	}
	if !s.Has("summary") || !s.Has("details") {
		t.Error("Expected summary and details to be present")
	}
	if s.Has("statistics") || s.Has("commentary") {
		t.Error("Absent sections must not be fabricated")
	}
}

func TestParseSectionsUnstructured(t *testing.T) {
	raw := "Sorry I am only specialized in the tourism sector, therefore I will not be able to assist you on this"
	s := ParseSections(raw)

	if s.Kind != Unstructured {
		t.Fatalf("Expected Unstructured, got %v", s.Kind)
	}
	if s.Raw != raw {
		t.Error("Raw must carry the full reply for unstructured content")
	}
	if s.Summary != "" || s.Details != "" || s.Statistics != "" || s.Commentary != "" {
		t.Error("Unstructured replies must not produce section bodies")
	}
}

func TestParseSectionsMarkdownHeadings(t *testing.T) {
	s := ParseSections("**Summary:** Short answer.\n\n## Details:\nLonger answer.")

	if s.Kind != PartiallyStructured {
		t.Fatalf("Expected PartiallyStructured, got %v", s.Kind)
	}
	if s.Summary != "Short answer." {
		t.Errorf("Markdown emphasis should be stripped from headings, got %q", s.Summary)
	}
}

func TestParseSectionsPreambleBecomesSummary(t *testing.T) {
	s := ParseSections("Arrivals are rising.\n\nDetails: Mostly from Europe.")

	if s.Summary != "Arrivals are rising." {
		t.Errorf("Leading prose should fold into summary, got %q", s.Summary)
	}
}

func TestParseSectionsRepeatedHeading(t *testing.T) {
	s := ParseSections("Summary: first\n\nSummary: second")
	if s.Summary != "first" {
		t.Errorf("First occurrence should win, got %q", s.Summary)
	}
}

func TestParseStatLines(t *testing.T) {
	body := "- Arrivals 2023: 1,487,303\n- Growth rate: 106.6%\nSome prose that is not a stat\n- Average stay: 8.5 nights"
	lines := ParseStatLines(body)

	if len(lines) != 3 {
		t.Fatalf("Expected 3 stat lines, got %d: %+v", len(lines), lines)
	}
	if lines[0].Label != "Arrivals 2023" || lines[0].Value != "1,487,303" {
		t.Errorf("Unexpected first line: %+v", lines[0])
	}
	if lines[1].Value != "106.6%" {
		t.Errorf("Unexpected growth value: %q", lines[1].Value)
	}
}

func TestParseStatLinesNoMatches(t *testing.T) {
	if lines := ParseStatLines("purely narrative text"); len(lines) != 0 {
		t.Errorf("Expected no stat lines, got %+v", lines)
	}
}
