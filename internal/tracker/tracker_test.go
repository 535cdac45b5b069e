// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankaguide/lankaguide-tui/internal/model"
)

// fakeBackend records calls and serves canned responses.
type fakeBackend struct {
	mu          sync.Mutex
	uploads     int32
	lists       int32
	uploadErr   error
	nextID      int
	listResult  []model.Document
	listErr     error
	uploadDelay time.Duration
}

func (f *fakeBackend) UploadDocument(ctx context.Context, filename string, content io.Reader) (*model.Document, error) {
	atomic.AddInt32(&f.uploads, 1)
	if f.uploadDelay > 0 {
		time.Sleep(f.uploadDelay)
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	io.Copy(io.Discard, content)

	f.mu.Lock()
	f.nextID++
	id := model.DocumentID(fmt.Sprintf("doc-%d", f.nextID))
	f.mu.Unlock()
	return &model.Document{ID: id, Filename: filename, Status: model.StatusProcessing}, nil
}

func (f *fakeBackend) ListDocuments(ctx context.Context) ([]model.Document, error) {
	atomic.AddInt32(&f.lists, 1)
	return f.listResult, f.listErr
}

func newTestTracker(backend *fakeBackend) *Tracker {
	return NewTracker(backend, Config{
		GracePeriod:    20 * time.Millisecond,
		ResyncDebounce: time.Hour, // tests reset state per case
	})
}

func pdf() io.Reader { return strings.NewReader("%PDF-1.7") }

func TestBeginUploadRejectsWrongTypeLocally(t *testing.T) {
	backend := &fakeBackend{}
	tr := newTestTracker(backend)

	_, err := tr.BeginUpload(context.Background(), "notes.txt", "text/plain", strings.NewReader("hi"))
	require.Error(t, err)
	assert.True(t, IsInvalidFileType(err))

	// No network call, no tracked item.
	assert.Equal(t, int32(0), atomic.LoadInt32(&backend.uploads))
	assert.Empty(t, tr.ListTracked())
}

func TestBeginUploadTracksAcceptedUpload(t *testing.T) {
	backend := &fakeBackend{}
	tr := newTestTracker(backend)

	id, err := tr.BeginUpload(context.Background(), "/data/visa-rules.pdf", AcceptedMediaType, pdf())
	require.NoError(t, err)
	require.Equal(t, model.DocumentID("doc-1"), id)

	items := tr.ListTracked()
	require.Len(t, items, 1)
	assert.Equal(t, "visa-rules.pdf", items[0].DisplayName)
	assert.Equal(t, model.StatusUploading, items[0].Status)
	assert.Equal(t, 0, items[0].Percentage)
}

func TestBeginUploadRejectedByBackend(t *testing.T) {
	rejection := errors.New("Invalid file type. Only PDF files are allowed")
	backend := &fakeBackend{uploadErr: rejection}
	tr := newTestTracker(backend)

	_, err := tr.BeginUpload(context.Background(), "fake.pdf", AcceptedMediaType, pdf())
	require.ErrorIs(t, err, rejection)
	assert.Empty(t, tr.ListTracked())
}

func TestOnStatusEventUpdatesTrackedItem(t *testing.T) {
	backend := &fakeBackend{}
	tr := newTestTracker(backend)

	id, err := tr.BeginUpload(context.Background(), "guide.pdf", AcceptedMediaType, pdf())
	require.NoError(t, err)

	resync := tr.OnStatusEvent(id, model.StatusProcessing, 40, "Extracting text")
	assert.False(t, resync)

	items := tr.ListTracked()
	require.Len(t, items, 1)
	assert.Equal(t, model.StatusProcessing, items[0].Status)
	assert.Equal(t, 40, items[0].Percentage)
	assert.Equal(t, "Extracting text", items[0].Message)
}

func TestEventWithoutPercentageKeepsPrevious(t *testing.T) {
	backend := &fakeBackend{}
	tr := newTestTracker(backend)

	id, _ := tr.BeginUpload(context.Background(), "guide.pdf", AcceptedMediaType, pdf())
	tr.OnStatusEvent(id, model.StatusProcessing, 60, "")
	tr.OnStatusEvent(id, model.StatusProcessing, -1, "Indexing")

	items := tr.ListTracked()
	assert.Equal(t, 60, items[0].Percentage)
	assert.Equal(t, "Indexing", items[0].Message)
}

func TestUnknownIdentifierRequestsOneResyncPerWindow(t *testing.T) {
	backend := &fakeBackend{}
	tr := newTestTracker(backend)

	first := tr.OnStatusEvent("doc-9", model.StatusProcessing, 10, "")
	assert.True(t, first, "first unknown-id event requests a resync")

	// A burst of further events inside the window raises no new flag.
	for i := 0; i < 5; i++ {
		assert.False(t, tr.OnStatusEvent("doc-9", model.StatusProcessing, 10+i, ""))
	}
	// The unknown item is not invented locally.
	assert.Empty(t, tr.ListTracked())
}

func TestTerminalStateIsSticky(t *testing.T) {
	backend := &fakeBackend{}
	tr := NewTracker(backend, Config{GracePeriod: time.Hour, ResyncDebounce: time.Hour})

	id, _ := tr.BeginUpload(context.Background(), "guide.pdf", AcceptedMediaType, pdf())
	tr.OnStatusEvent(id, model.StatusError, -1, "Processing failed: unreadable PDF")

	// Later events for the same identifier change nothing.
	resync := tr.OnStatusEvent(id, model.StatusProcessing, 50, "retrying")
	assert.False(t, resync)

	items := tr.ListTracked()
	require.Len(t, items, 1)
	assert.Equal(t, model.StatusError, items[0].Status)
	assert.Equal(t, "Processing failed: unreadable PDF", items[0].ErrorDetail)
}

func TestCompletedItemRemovedAfterGracePeriod(t *testing.T) {
	backend := &fakeBackend{}
	tr := newTestTracker(backend)

	id, _ := tr.BeginUpload(context.Background(), "guide.pdf", AcceptedMediaType, pdf())
	tr.OnStatusEvent(id, model.StatusCompleted, -1, "Done")

	// Still visible inside the grace period, at 100 percent.
	items := tr.ListTracked()
	require.Len(t, items, 1)
	assert.Equal(t, 100, items[0].Percentage)

	assert.Eventually(t, func() bool {
		return len(tr.ListTracked()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRemoveCompletedIsIdempotent(t *testing.T) {
	tr := newTestTracker(&fakeBackend{})
	tr.RemoveCompleted("doc-404") // absent: no-op, no panic

	id, _ := tr.BeginUpload(context.Background(), "guide.pdf", AcceptedMediaType, pdf())
	tr.RemoveCompleted(id)
	tr.RemoveCompleted(id)
	assert.Empty(t, tr.ListTracked())
}

func TestConcurrentUploadsAreIndependent(t *testing.T) {
	backend := &fakeBackend{uploadDelay: 5 * time.Millisecond}
	tr := NewTracker(backend, Config{GracePeriod: time.Hour, ResyncDebounce: time.Hour})

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("file-%d.pdf", i)
			mediaType := AcceptedMediaType
			if i == 2 {
				mediaType = "image/png" // one bad file among the batch
			}
			_, errs[i] = tr.BeginUpload(context.Background(), name, mediaType, pdf())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if i == 2 {
			assert.True(t, IsInvalidFileType(err))
		} else {
			assert.NoError(t, err)
		}
	}
	assert.Len(t, tr.ListTracked(), n-1)
	assert.Equal(t, int32(n-1), atomic.LoadInt32(&backend.uploads))
}

func TestListTrackedPreservesInsertionOrder(t *testing.T) {
	tr := newTestTracker(&fakeBackend{})

	first, _ := tr.BeginUpload(context.Background(), "a.pdf", AcceptedMediaType, pdf())
	second, _ := tr.BeginUpload(context.Background(), "b.pdf", AcceptedMediaType, pdf())
	third, _ := tr.BeginUpload(context.Background(), "c.pdf", AcceptedMediaType, pdf())

	// Progress on a later item must not reorder the view.
	tr.OnStatusEvent(third, model.StatusProcessing, 90, "")

	items := tr.ListTracked()
	require.Len(t, items, 3)
	assert.Equal(t, []model.DocumentID{first, second, third},
		[]model.DocumentID{items[0].ID, items[1].ID, items[2].ID})
}

func TestResyncAdoptsUnknownDocuments(t *testing.T) {
	backend := &fakeBackend{listResult: []model.Document{
		{ID: "doc-9", Filename: "arrivals.pdf", Status: model.StatusProcessing},
	}}
	tr := newTestTracker(backend)

	require.True(t, tr.OnStatusEvent("doc-9", model.StatusProcessing, 10, ""))
	require.NoError(t, tr.Resync(context.Background()))

	items := tr.ListTracked()
	require.Len(t, items, 1)
	assert.Equal(t, model.DocumentID("doc-9"), items[0].ID)
	assert.Equal(t, "arrivals.pdf", items[0].DisplayName)

	// Follow-up events now land on the adopted item.
	tr.OnStatusEvent("doc-9", model.StatusProcessing, 75, "Indexing")
	items = tr.ListTracked()
	assert.Equal(t, 75, items[0].Percentage)
}

func TestResyncDropsDocumentsTheServerForgot(t *testing.T) {
	backend := &fakeBackend{}
	tr := NewTracker(backend, Config{GracePeriod: time.Hour, ResyncDebounce: time.Hour})

	// One item mid-processing that the server no longer reports, and
	// one freshly accepted upload that the list may not include yet.
	stale, _ := tr.BeginUpload(context.Background(), "old.pdf", AcceptedMediaType, pdf())
	tr.OnStatusEvent(stale, model.StatusProcessing, 50, "")
	fresh, _ := tr.BeginUpload(context.Background(), "fresh.pdf", AcceptedMediaType, pdf())

	backend.listResult = nil
	require.NoError(t, tr.Resync(context.Background()))

	items := tr.ListTracked()
	require.Len(t, items, 1)
	assert.Equal(t, fresh, items[0].ID, "an item still uploading survives resync")
}

func TestResyncLeavesLocalTerminalStateAlone(t *testing.T) {
	backend := &fakeBackend{}
	tr := NewTracker(backend, Config{GracePeriod: time.Hour, ResyncDebounce: time.Hour})

	id, _ := tr.BeginUpload(context.Background(), "guide.pdf", AcceptedMediaType, pdf())
	tr.OnStatusEvent(id, model.StatusError, -1, "Processing failed")

	backend.listResult = []model.Document{
		{ID: id, Filename: "guide.pdf", Status: model.StatusProcessing},
	}
	require.NoError(t, tr.Resync(context.Background()))

	items := tr.ListTracked()
	require.Len(t, items, 1)
	assert.Equal(t, model.StatusError, items[0].Status)
}

func TestResyncSchedulesRemovalForTerminalDocuments(t *testing.T) {
	backend := &fakeBackend{listResult: []model.Document{
		{ID: "doc-5", Filename: "done.pdf", Status: model.StatusCompleted},
	}}
	tr := newTestTracker(backend)

	require.NoError(t, tr.Resync(context.Background()))
	items := tr.ListTracked()
	require.Len(t, items, 1)
	assert.Equal(t, 100, items[0].Percentage)

	assert.Eventually(t, func() bool {
		return len(tr.ListTracked()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestOnChangeFiresOnMutation(t *testing.T) {
	var changes int32
	backend := &fakeBackend{}
	tr := NewTracker(backend, Config{
		GracePeriod:    time.Hour,
		ResyncDebounce: time.Hour,
		OnChange:       func() { atomic.AddInt32(&changes, 1) },
	})

	id, _ := tr.BeginUpload(context.Background(), "guide.pdf", AcceptedMediaType, pdf())
	tr.OnStatusEvent(id, model.StatusProcessing, 10, "")
	tr.RemoveCompleted(id)

	assert.Equal(t, int32(3), atomic.LoadInt32(&changes))

	// Reads and no-ops stay silent.
	tr.ListTracked()
	tr.RemoveCompleted(id)
	assert.Equal(t, int32(3), atomic.LoadInt32(&changes))
}
