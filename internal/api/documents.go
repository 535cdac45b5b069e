// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/lankaguide/lankaguide-tui/internal/model"
)

// =============================================================================
// DOCUMENT OPERATIONS
// =============================================================================

// listDocumentsResponse wraps GET /admin/documents.
type listDocumentsResponse struct {
	Documents []model.Document `json:"documents"`
}

// uploadResponse wraps POST /admin/upload.
type uploadResponse struct {
	Message  string          `json:"message"`
	Document *model.Document `json:"document"`
}

// ListDocuments returns all uploaded documents with their current
// processing status. This is the authoritative listing used for initial
// population and resynchronization.
func (c *Client) ListDocuments(ctx context.Context) ([]model.Document, error) {
	var resp listDocumentsResponse
	if err := c.getJSON(ctx, "/admin/documents", &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// DeleteDocument removes a document and its embeddings. A 404 means it is
// already gone, which is success from the client's perspective.
func (c *Client) DeleteDocument(ctx context.Context, id model.DocumentID) error {
	err := c.delete(ctx, "/admin/documents/"+id.String())
	if IsNotFound(err) {
		return nil
	}
	return err
}

// UploadDocument sends one file as a multipart request and returns the
// accepted document record with its server-assigned identifier and initial
// status. Media-type validation happens before this call, in the tracker;
// the backend still re-validates and rejects with a message surfaced
// verbatim.
//
// The multipart body is streamed through a pipe so large files are never
// buffered wholesale in memory.
func (c *Client) UploadDocument(ctx context.Context, filename string, content io.Reader) (*model.Document, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(filename))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/admin/upload", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(c.uploadClient, req)
	if err != nil {
		return nil, err
	}

	var result uploadResponse
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	if result.Document == nil || result.Document.ID == "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "upload response missing document id"}
	}
	if result.Document.Status == "" {
		result.Document.Status = model.StatusProcessing
	}
	if !result.Document.Status.IsValid() {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: fmt.Sprintf("upload response carried unknown status %q", result.Document.Status),
		}
	}
	return result.Document, nil
}
