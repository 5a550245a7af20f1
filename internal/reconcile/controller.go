// Package reconcile orchestrates the review loop: proposal events come
// in from the backend, virtual content and decorations go out to the
// editors, accept/reject decisions go back as intents, and confirmations
// update the shared stores. The backend performs the authoritative patch
// application; the controller never writes the client-side buffer to
// disk, it closes the loop by reloading from disk after confirmation.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/bridge"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/change"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/editorhost"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/events"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/pending"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/textdiff"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/uncommitted"
)

// resolution is the in-flight state of one change under review.
type resolution int

const (
	stateAccepting resolution = iota
	stateRejecting
)

// DefaultDebounce is the window for coalescing live-typing content
// notifications before they reach the backend.
const DefaultDebounce = 150 * time.Millisecond

// Controller mediates between the backend bridge, the shared stores and
// the open editors. It is the only writer of the pending store besides
// the backend event handlers it owns.
type Controller struct {
	client  *bridge.Client
	pending *pending.Store
	tracker *uncommitted.Tracker
	host    *editorhost.Host
	bus     *events.Bus

	mu       sync.Mutex
	inflight map[string]resolution
	hunkDone map[string]map[int]bool

	subs []*events.Subscription

	debMu      sync.Mutex
	debounced  map[string]func(func())
	lastTyped  map[string]string
	debounceIn time.Duration
}

// NewController wires a controller over the shared state.
func NewController(client *bridge.Client, store *pending.Store, tracker *uncommitted.Tracker, host *editorhost.Host, bus *events.Bus) *Controller {
	return &Controller{
		client:     client,
		pending:    store,
		tracker:    tracker,
		host:       host,
		bus:        bus,
		inflight:   make(map[string]resolution),
		hunkDone:   make(map[string]map[int]bool),
		debounced:  make(map[string]func(func())),
		lastTyped:  make(map[string]string),
		debounceIn: DefaultDebounce,
	}
}

// WithDebounce overrides the content-sync debounce window.
func (c *Controller) WithDebounce(d time.Duration) *Controller {
	c.debounceIn = d
	return c
}

// Start registers the backend event handlers. Stop releases them.
func (c *Controller) Start() {
	c.subs = append(c.subs,
		c.bus.Subscribe(events.ChangesProposed, c.onProposed),
		c.bus.Subscribe(events.ChangeApplied, c.onApplied),
		c.bus.Subscribe(events.ChangeRejected, c.onRejected),
		c.bus.Subscribe(events.AllEditsApplied, c.onAllApplied),
		c.bus.Subscribe(events.FileChangesDetected, c.onFilesDetected),
	)
}

// Stop releases every event subscription, error paths included.
func (c *Controller) Stop() {
	for _, s := range c.subs {
		s.Cancel()
	}
	c.subs = nil
}

// AcceptChange dispatches the approve intent for one proposal. The store
// update happens on the backend's confirmation event, not here; a
// backend failure or timeout leaves the change offered for retry.
func (c *Controller) AcceptChange(ctx context.Context, changeID string) error {
	return c.resolveChange(ctx, changeID, stateAccepting)
}

// RejectChange dispatches the reject intent for one proposal.
func (c *Controller) RejectChange(ctx context.Context, changeID string) error {
	return c.resolveChange(ctx, changeID, stateRejecting)
}

func (c *Controller) resolveChange(ctx context.Context, changeID string, want resolution) error {
	ch := c.pending.Lookup(changeID)
	if ch == nil {
		return fmt.Errorf("no pending change with id %s", changeID)
	}

	c.mu.Lock()
	if _, busy := c.inflight[changeID]; busy {
		c.mu.Unlock()
		return fmt.Errorf("change %s is already being resolved", changeID)
	}
	c.inflight[changeID] = want
	c.mu.Unlock()

	var err error
	if want == stateAccepting {
		err = c.client.ApproveChange(ctx, changeID)
	} else {
		err = c.client.RejectChange(ctx, changeID)
	}
	if err != nil {
		// Back to Proposed: the change stays in the store so the user
		// can retry or resolve it manually.
		c.mu.Lock()
		delete(c.inflight, changeID)
		c.mu.Unlock()
		return err
	}
	return nil
}

// AcceptHunk resolves a single hunk of a multi-hunk proposal.
func (c *Controller) AcceptHunk(ctx context.Context, changeID string, hunkIndex int) error {
	return c.resolveHunk(ctx, changeID, hunkIndex, true)
}

// RejectHunk discards a single hunk of a multi-hunk proposal.
func (c *Controller) RejectHunk(ctx context.Context, changeID string, hunkIndex int) error {
	return c.resolveHunk(ctx, changeID, hunkIndex, false)
}

func (c *Controller) resolveHunk(ctx context.Context, changeID string, hunkIndex int, accept bool) error {
	ch := c.pending.Lookup(changeID)
	if ch == nil {
		return fmt.Errorf("no pending change with id %s", changeID)
	}
	if ch.Kind != change.KindMultiPatch {
		return fmt.Errorf("change %s has no individually resolvable hunks", changeID)
	}
	if hunkIndex < 0 || hunkIndex >= len(ch.Hunks) {
		return fmt.Errorf("hunk %d out of range for change %s", hunkIndex, changeID)
	}

	var err error
	if accept {
		err = c.client.ApproveChangeHunk(ctx, changeID, hunkIndex)
	} else {
		err = c.client.RejectChangeHunk(ctx, changeID, hunkIndex)
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.hunkDone[changeID] == nil {
		c.hunkDone[changeID] = make(map[int]bool)
	}
	c.hunkDone[changeID][hunkIndex] = accept
	c.mu.Unlock()

	// Toggle the hunk's preview; the definitive content lands with the
	// change-applied confirmation after the last hunk.
	if ed := c.host.Lookup(ch.Path); ed != nil {
		if accept {
			ed.Buffer().ApplyHunkPreview(ch.Hunks[hunkIndex])
		} else {
			ed.Buffer().ClearHunkPreview(ch.Hunks[hunkIndex])
		}
	}
	return nil
}

// HunkResolved reports whether a hunk has already been decided locally.
func (c *Controller) HunkResolved(changeID string, hunkIndex int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	done, ok := c.hunkDone[changeID]
	if !ok {
		return false
	}
	_, resolved := done[hunkIndex]
	return resolved
}

// AcceptAll fans the accept out over every pending change. Each change
// resolves independently; failures are aggregated into one error rather
// than reported per item.
func (c *Controller) AcceptAll(ctx context.Context) error {
	return c.forAllPending(ctx, c.AcceptChange, "accept")
}

// RejectAll fans the reject out over every pending change.
func (c *Controller) RejectAll(ctx context.Context) error {
	return c.forAllPending(ctx, c.RejectChange, "reject")
}

func (c *Controller) forAllPending(ctx context.Context, op func(context.Context, string) error, verb string) error {
	var failed []string
	for _, ch := range c.pending.All() {
		if err := op(ctx, ch.ID); err != nil {
			failed = append(failed, ch.ID)
			log.Printf("reconcile: %s of change %s failed: %v", verb, ch.ID, err)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to %s %d change(s): %s", verb, len(failed), strings.Join(failed, ", "))
	}
	return nil
}

// --- backend event handlers ---

func (c *Controller) onProposed(ev events.Event) {
	changes, ok := ev.Data.([]change.Change)
	if !ok {
		return
	}
	c.pending.Ingest(changes)
	for _, ch := range changes {
		c.Decorate(ch.Path)
	}
}

// onApplied handles the backend's apply confirmation. Resolution is
// commutative with ingestion: an id the store never saw is a no-op, the
// proposal and its apply may have raced in one burst. Decoration clearing
// happens here, synchronously with the store removal, so a resolved
// change can never leave a ghost diff behind.
func (c *Controller) onApplied(ev events.Event) {
	p, ok := ev.Data.(bridge.ChangeAppliedPayload)
	if !ok {
		return
	}
	c.finishResolution(p.ChangeID, p.FilePath)
	go c.refreshTracker()
}

func (c *Controller) onRejected(ev events.Event) {
	p, ok := ev.Data.(bridge.ChangeRejectedPayload)
	if !ok {
		return
	}
	// Reload confirms the revert left the disk content unchanged.
	c.finishResolution(p.ChangeID, p.FilePath)
}

func (c *Controller) onAllApplied(ev events.Event) {
	p, ok := ev.Data.(bridge.AllEditsAppliedPayload)
	if !ok {
		return
	}
	for _, path := range p.FilePaths {
		if ch := c.pending.Get(path); ch != nil {
			c.finishResolution(ch.ID, path)
		} else {
			c.clearEditorState(path)
			go c.ReloadFromDisk(path)
		}
	}
	go c.refreshTracker()
}

func (c *Controller) onFilesDetected(ev events.Event) {
	p, ok := ev.Data.(bridge.FileChangesDetectedPayload)
	if !ok {
		return
	}
	for _, path := range p.Paths {
		if ed := c.host.Lookup(path); ed != nil {
			go c.ReloadFromDisk(path)
		}
	}
	go c.refreshTracker()
}

// finishResolution removes the change (and its queued siblings) from the
// store and clears the editor's diff state in the same step, then kicks
// off the asynchronous reload from disk.
func (c *Controller) finishResolution(changeID, path string) {
	c.mu.Lock()
	delete(c.inflight, changeID)
	delete(c.hunkDone, changeID)
	c.mu.Unlock()

	c.pending.Resolve(changeID)
	c.clearEditorState(path)
	go c.ReloadFromDisk(path)
}

func (c *Controller) clearEditorState(path string) {
	ed := c.host.Lookup(path)
	if ed == nil {
		// Tab closed mid-resolution; the stores were still updated.
		return
	}
	ed.ClearDecorations()
	ed.Buffer().ClearPreviews()
}

// ReloadFromDisk re-synchronizes an editor from authoritative content.
// Fire-and-handle: the content arrives as an event, nothing blocks on it.
func (c *Controller) ReloadFromDisk(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), bridge.DefaultAckTimeout)
	defer cancel()
	content, err := c.client.ReadFile(ctx, path)
	if err != nil {
		c.bus.EmitError(fmt.Errorf("failed to reload %s: %w", path, err))
		return
	}
	if ed := c.host.Lookup(path); ed != nil {
		ed.Reload(content)
	}
	c.bus.Emit(events.FileReloaded, path)
}

func (c *Controller) refreshTracker() {
	ctx, cancel := context.WithTimeout(context.Background(), bridge.DefaultAckTimeout)
	defer cancel()
	if err := c.tracker.Refresh(ctx); err != nil {
		log.Printf("reconcile: tracker refresh failed: %v", err)
	}
}

// --- decorations ---

// Decorate computes and applies the diff decorations for the active
// change on path, and scrolls the first affected line into view. No live
// editor, no side effect.
func (c *Controller) Decorate(path string) {
	ed := c.host.Lookup(path)
	if ed == nil {
		return
	}
	ch := c.pending.Get(path)
	if ch == nil {
		ed.ClearDecorations()
		return
	}

	decs, first := DecorationsFor(ch, ed.Content())
	ed.ApplyDecorations(decs)
	if first > 0 {
		ed.ScrollTo(first)
	}
}

// DecorationsFor derives the line decorations for a change against the
// current document text, and the first affected line for scroll
// targeting. A hunk whose old text cannot be anchored degrades to no
// line decorations; the diff view then shows it as a flat block.
func DecorationsFor(ch *change.Change, doc string) ([]editorhost.Decoration, int) {
	var decs []editorhost.Decoration
	first := 0

	addHunk := func(oldText, newText string, anchor int) {
		res := textdiff.Compute(oldText, newText)
		for _, r := range res.Removed {
			for line := r.Start; line <= r.End; line++ {
				decs = append(decs, editorhost.Decoration{Line: anchor + line - 1, Kind: editorhost.DecorationRemoved})
			}
		}
		for _, r := range res.Added {
			for line := r.Start; line <= r.End; line++ {
				decs = append(decs, editorhost.Decoration{Line: anchor + line - 1, Kind: editorhost.DecorationAdded})
			}
		}
		if f, _, ok := textdiff.Lines(oldText, newText); ok {
			at := anchor + f - 1
			if first == 0 || at < first {
				first = at
			}
		}
	}

	switch ch.Kind {
	case change.KindPatch:
		addHunk(ch.OldContent, ch.NewContent, 1)
	case change.KindMultiPatch:
		for _, h := range ch.Hunks {
			anchor := h.StartLine
			if anchor < 1 {
				var ok bool
				anchor, ok = textdiff.Locate(doc, h.OldText)
				if !ok {
					// Unanchorable hunk: render as a flat block, no
					// line-anchored decorations.
					continue
				}
			}
			addHunk(h.OldText, h.NewText, anchor)
		}
	case change.KindNewFile, change.KindDeleteFile:
		// Whole-file lifecycle changes carry no inline decorations.
	}
	return decs, first
}

// --- live-typing sync ---

// NoteContentChanged records a keystroke-level content change and
// forwards it to the backend on the trailing edge of the debounce
// window. The final state is always sent, even when typing stops
// mid-window.
func (c *Controller) NoteContentChanged(path, content string) {
	if ed := c.host.Lookup(path); ed != nil {
		ed.SetContent(content)
		// The document moved; stale decorations must not survive it.
		c.Decorate(path)
	}

	c.debMu.Lock()
	c.lastTyped[path] = content
	deb, ok := c.debounced[path]
	if !ok {
		deb = debounce.New(c.debounceIn)
		c.debounced[path] = deb
	}
	c.debMu.Unlock()

	deb(func() {
		c.debMu.Lock()
		latest := c.lastTyped[path]
		c.debMu.Unlock()
		c.client.NotifyContentChanged(path, latest)
	})
}

// Tracker exposes the uncommitted-change surface the host UI queries.
func (c *Controller) Tracker() *uncommitted.Tracker { return c.tracker }

// Pending exposes the pending-change store for host UI subscriptions.
func (c *Controller) Pending() *pending.Store { return c.pending }
