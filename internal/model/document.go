// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// DOCUMENT IDENTIFIER
// =============================================================================

// DocumentID is the server-assigned identifier for an uploaded document.
// It is opaque to the client and used only as a correlation key between
// upload responses and progress events. The backend has emitted both numeric
// and string identifiers across versions, so unmarshalling accepts either.
type DocumentID string

// UnmarshalJSON accepts both `"doc-1"` and `42` on the wire.
func (id *DocumentID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = DocumentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = DocumentID(n.String())
		return nil
	}
	return fmt.Errorf("document id is neither string nor number: %s", data)
}

// String returns the identifier as a plain string.
func (id DocumentID) String() string {
	return string(id)
}

// =============================================================================
// DOCUMENT STATUS
// =============================================================================

// DocumentStatus is the processing state of an uploaded document.
type DocumentStatus string

const (
	// StatusQueued indicates the upload has been scheduled locally but the
	// request has not been sent yet.
	StatusQueued DocumentStatus = "queued"

	// StatusUploading indicates the file transfer is in flight.
	StatusUploading DocumentStatus = "uploading"

	// StatusProcessing indicates the backend is extracting and embedding
	// the document's content.
	StatusProcessing DocumentStatus = "processing"

	// StatusCompleted indicates the document is fully ingested.
	StatusCompleted DocumentStatus = "completed"

	// StatusError indicates ingestion failed.
	StatusError DocumentStatus = "error"
)

// IsTerminal reports whether the status is final. A document in terminal
// state never transitions again except by removal.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// IsValid reports whether the status is one the client knows about.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusQueued, StatusUploading, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a document/job summary as reported by GET /documents.
type Document struct {
	ID           DocumentID     `json:"id"`
	Filename     string         `json:"filename"`
	Status       DocumentStatus `json:"status"`
	UploadedAt   time.Time      `json:"uploaded_at"`
	ErrorMessage string         `json:"error_message,omitempty"`
}
