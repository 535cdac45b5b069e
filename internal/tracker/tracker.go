// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lankaguide/lankaguide-tui/internal/model"
)

// ============================================================================
// Errors
// ============================================================================

// ErrInvalidFileType is returned by BeginUpload before any network
// activity when the file's declared media type is not accepted.
var ErrInvalidFileType = errors.New("invalid file type")

// IsInvalidFileType reports whether err is a local file-type rejection.
func IsInvalidFileType(err error) bool {
	return errors.Is(err, ErrInvalidFileType)
}

// AcceptedMediaType is the only media type the backend ingests.
const AcceptedMediaType = "application/pdf"

// ============================================================================
// Types
// ============================================================================

// Item is the observed state of one upload/processing job. Values
// returned by ListTracked are copies; mutating them has no effect.
type Item struct {
	ID          model.DocumentID
	DisplayName string
	Status      model.DocumentStatus
	Percentage  int
	Message     string
	ErrorDetail string
}

// Backend is the slice of the API the tracker depends on.
type Backend interface {
	UploadDocument(ctx context.Context, filename string, content io.Reader) (*model.Document, error)
	ListDocuments(ctx context.Context) ([]model.Document, error)
}

// Config controls tracker timing.
type Config struct {
	// GracePeriod is how long a terminal item stays visible before
	// automatic removal (default: 2s).
	GracePeriod time.Duration

	// ResyncDebounce is the minimum interval between resync requests
	// triggered by unknown-identifier events (default: 3s). A burst of
	// events for the same untracked document costs one re-fetch.
	ResyncDebounce time.Duration

	// OnChange, when set, is invoked after every state mutation, with
	// no locks held. Used to schedule a redraw.
	OnChange func()
}

func (c *Config) fill() {
	if c.GracePeriod == 0 {
		c.GracePeriod = 2 * time.Second
	}
	if c.ResyncDebounce == 0 {
		c.ResyncDebounce = 3 * time.Second
	}
}

// Tracker merges local uploads and push events into an ordered,
// read-only view. All methods are safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	backend Backend
	config  Config

	items  map[model.DocumentID]*Item
	order  []model.DocumentID
	timers map[model.DocumentID]*time.Timer

	resyncLimiter *rate.Limiter
}

// NewTracker creates a tracker over the given backend.
func NewTracker(backend Backend, config Config) *Tracker {
	config.fill()
	return &Tracker{
		backend: backend,
		config:  config,
		items:   make(map[model.DocumentID]*Item),
		timers:  make(map[model.DocumentID]*time.Timer),
		resyncLimiter: rate.NewLimiter(
			rate.Every(config.ResyncDebounce), 1),
	}
}

// ============================================================================
// Operations
// ============================================================================

// BeginUpload validates and uploads one file, then starts tracking it
// under the server-assigned identifier.
//
// A media type other than AcceptedMediaType fails with
// ErrInvalidFileType before any network call and with no state change.
// A backend rejection or network failure is returned as-is and nothing
// is tracked. Uploads are independent: callers may run any number
// concurrently and one failure never affects the others.
func (t *Tracker) BeginUpload(ctx context.Context, path, mediaType string, content io.Reader) (model.DocumentID, error) {
	if mediaType != AcceptedMediaType {
		return "", fmt.Errorf("%w: %s (only %s is accepted)",
			ErrInvalidFileType, mediaType, AcceptedMediaType)
	}

	doc, err := t.backend.UploadDocument(ctx, path, content)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	if existing, ok := t.items[doc.ID]; ok {
		// A push event or resync observed this identifier before the
		// upload response arrived. Its state is newer than ours; only
		// fill in the name we know locally.
		if existing.DisplayName == "" {
			existing.DisplayName = filepath.Base(path)
		}
	} else {
		t.insertLocked(&Item{
			ID:          doc.ID,
			DisplayName: filepath.Base(path),
			Status:      model.StatusUploading,
			Percentage:  0,
		})
	}
	t.mu.Unlock()

	t.notify()
	return doc.ID, nil
}

// OnStatusEvent applies one push event. Percentage below zero means
// the event carried none and the previous value is kept.
//
// The returned resync flag is true when the event referenced an
// identifier not currently tracked and a resynchronization is due; the
// caller should then invoke Resync. At most one flag is raised per
// debounce window no matter how many unknown-identifier events arrive.
func (t *Tracker) OnStatusEvent(id model.DocumentID, status model.DocumentStatus, percentage int, message string) (resync bool) {
	if id == "" || !status.IsValid() {
		return false
	}

	t.mu.Lock()
	item, ok := t.items[id]
	if !ok {
		t.mu.Unlock()
		return t.resyncLimiter.Allow()
	}

	if item.Status.IsTerminal() {
		// Terminal state is sticky. A fresh lifecycle for the same
		// identifier requires explicit removal first.
		t.mu.Unlock()
		return false
	}

	item.Status = status
	item.Message = message
	if percentage >= 0 {
		item.Percentage = percentage
	}
	if status == model.StatusCompleted && percentage < 0 {
		item.Percentage = 100
	}
	if status == model.StatusError {
		item.ErrorDetail = message
	}
	if status.IsTerminal() {
		t.scheduleRemovalLocked(id)
	}
	t.mu.Unlock()

	t.notify()
	return false
}

// ListTracked returns a snapshot in insertion order of first
// observation.
func (t *Tracker) ListTracked() []Item {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make([]Item, 0, len(t.order))
	for _, id := range t.order {
		snapshot = append(snapshot, *t.items[id])
	}
	return snapshot
}

// RemoveCompleted evicts one item. Removing an identifier that is not
// tracked is a no-op.
func (t *Tracker) RemoveCompleted(id model.DocumentID) {
	t.mu.Lock()
	_, ok := t.items[id]
	if ok {
		t.removeLocked(id)
	}
	t.mu.Unlock()

	if ok {
		t.notify()
	}
}

// Resync replaces tracked state with the backend's authoritative
// document list. Called on reconnect and when OnStatusEvent raises the
// resync flag; it is the only recovery for events missed while
// disconnected.
func (t *Tracker) Resync(ctx context.Context) error {
	docs, err := t.backend.ListDocuments(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	seen := make(map[model.DocumentID]bool, len(docs))
	for _, doc := range docs {
		seen[doc.ID] = true
		item, ok := t.items[doc.ID]
		if !ok {
			item = &Item{ID: doc.ID, DisplayName: doc.Filename}
			t.insertLocked(item)
		} else if item.Status.IsTerminal() {
			continue
		}
		t.applyAuthoritativeLocked(item, doc)
	}
	for _, id := range append([]model.DocumentID(nil), t.order...) {
		// An upload whose accept response is still in flight is not
		// on the server list yet; everything else absent from the
		// authoritative list is gone.
		if !seen[id] && t.items[id].Status != model.StatusUploading {
			t.removeLocked(id)
		}
	}
	t.mu.Unlock()

	t.notify()
	return nil
}

// Close cancels pending removal timers. Items stay listed; the tracker
// is being torn down with its view.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

// ============================================================================
// Internals
// ============================================================================

// insertLocked registers a new item at the end of the display order.
func (t *Tracker) insertLocked(item *Item) {
	t.items[item.ID] = item
	t.order = append(t.order, item.ID)
}

func (t *Tracker) removeLocked(id model.DocumentID) {
	if timer, ok := t.timers[id]; ok {
		timer.Stop()
		delete(t.timers, id)
	}
	delete(t.items, id)
	for i, other := range t.order {
		if other == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// applyAuthoritativeLocked overwrites an item from a server-side
// document summary, which carries no percentage.
func (t *Tracker) applyAuthoritativeLocked(item *Item, doc model.Document) {
	item.Status = doc.Status
	item.ErrorDetail = doc.ErrorMessage
	if doc.Filename != "" {
		item.DisplayName = doc.Filename
	}
	if doc.Status == model.StatusCompleted {
		item.Percentage = 100
	}
	if doc.Status.IsTerminal() {
		t.scheduleRemovalLocked(item.ID)
	}
}

// scheduleRemovalLocked arms the grace-period timer, once per item.
func (t *Tracker) scheduleRemovalLocked(id model.DocumentID) {
	if _, ok := t.timers[id]; ok {
		return
	}
	t.timers[id] = time.AfterFunc(t.config.GracePeriod, func() {
		t.RemoveCompleted(id)
	})
}

func (t *Tracker) notify() {
	if t.config.OnChange != nil {
		t.config.OnChange()
	}
}
