package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/change"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/textdiff"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/uncommitted"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/vbuffer"
)

// LocalTransport is an in-process backend serving the intent contract
// against the local filesystem. It exists so the review surface can run
// standalone, without the native backend process: proposals are applied
// by real file writes, with pre-edit content retained so a reject can
// revert. Not used when a real backend is connected.
type LocalTransport struct {
	root    string
	intents chan Intent
	events  chan Event

	mu        sync.Mutex
	proposals map[string]*change.Change
	resolved  map[string]map[int]bool // change id -> hunk index -> accepted
	originals map[string]*string      // path -> pre-edit content, nil when file was new
	counts    map[string]uncommitted.Change
	closed    bool
}

// NewLocalTransport starts a local backend rooted at the workspace.
func NewLocalTransport(root string) *LocalTransport {
	t := &LocalTransport{
		root:      filepath.Clean(root),
		intents:   make(chan Intent, 16),
		events:    make(chan Event, 64),
		proposals: make(map[string]*change.Change),
		resolved:  make(map[string]map[int]bool),
		originals: make(map[string]*string),
		counts:    make(map[string]uncommitted.Change),
	}
	go t.serve()
	return t
}

// Send queues one intent; handling is asynchronous so the UI never
// blocks here.
func (t *LocalTransport) Send(intent Intent) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return fmt.Errorf("transport closed")
	}
	t.intents <- intent
	return nil
}

// Events returns the backend push channel.
func (t *LocalTransport) Events() <-chan Event { return t.events }

// Close shuts the local backend down.
func (t *LocalTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	close(t.intents)
	return nil
}

// Propose registers proposals as if the backend's AI service emitted
// them, then pushes the propose-changes event.
func (t *LocalTransport) Propose(changes []change.Change) {
	t.mu.Lock()
	for i := range changes {
		c := changes[i]
		t.proposals[c.ID] = &c
	}
	t.mu.Unlock()
	payload, _ := json.Marshal(changes)
	t.emit(Event{Name: EventProposeChanges, Payload: payload})
}

func (t *LocalTransport) serve() {
	for intent := range t.intents {
		t.handle(intent)
	}
	close(t.events)
}

func (t *LocalTransport) handle(intent Intent) {
	switch intent.Type {
	case IntentApproveChange:
		var p ChangePayload
		_ = json.Unmarshal(intent.Payload, &p)
		t.ackErr(intent, t.applyChange(p.ChangeID))

	case IntentRejectChange:
		var p ChangePayload
		_ = json.Unmarshal(intent.Payload, &p)
		t.ackErr(intent, t.rejectChange(p.ChangeID))

	case IntentApproveChangeHunk:
		var p HunkPayload
		_ = json.Unmarshal(intent.Payload, &p)
		t.ackErr(intent, t.resolveHunk(p.ChangeID, p.HunkIndex, true))

	case IntentRejectChangeHunk:
		var p HunkPayload
		_ = json.Unmarshal(intent.Payload, &p)
		t.ackErr(intent, t.resolveHunk(p.ChangeID, p.HunkIndex, false))

	case IntentApproveAllChanges:
		t.ackErr(intent, t.applyAll())

	case IntentAcceptFileChanges:
		var p FilePayload
		_ = json.Unmarshal(intent.Payload, &p)
		t.mu.Lock()
		delete(t.originals, p.FilePath)
		delete(t.counts, p.FilePath)
		t.mu.Unlock()
		t.ack(intent, true, "")

	case IntentRejectFileChanges:
		var p FilePayload
		_ = json.Unmarshal(intent.Payload, &p)
		t.ackErr(intent, t.revertFile(p.FilePath))

	case IntentAcceptAllChanges:
		t.mu.Lock()
		t.originals = make(map[string]*string)
		t.counts = make(map[string]uncommitted.Change)
		t.mu.Unlock()
		t.ack(intent, true, "")

	case IntentRejectAllChanges:
		t.mu.Lock()
		paths := make([]string, 0, len(t.counts))
		for p := range t.counts {
			paths = append(paths, p)
		}
		t.mu.Unlock()
		var firstErr error
		for _, p := range paths {
			if err := t.revertFile(p); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		t.ackErr(intent, firstErr)

	case IntentListUncommitted:
		t.mu.Lock()
		list := make([]uncommitted.Change, 0, len(t.counts))
		for _, c := range t.counts {
			list = append(list, c)
		}
		t.mu.Unlock()
		payload, _ := json.Marshal(UncommittedChangesPayload{RequestID: intent.RequestID, Changes: list})
		t.emit(Event{Name: EventUncommittedChanges, Payload: payload})

	case IntentReadFile:
		var p FilePayload
		_ = json.Unmarshal(intent.Payload, &p)
		data, err := os.ReadFile(t.abs(p.FilePath))
		if err != nil {
			data = nil
		}
		payload, _ := json.Marshal(FileContentPayload{Path: p.FilePath, Content: string(data)})
		t.emit(Event{Name: EventFileContent, Payload: payload})

	case IntentWriteFile:
		var p WritePayload
		_ = json.Unmarshal(intent.Payload, &p)
		t.ackErr(intent, t.writeFile(p.FilePath, p.Content))

	case IntentContentChanged:
		// Language sync sink; nothing to do locally.

	default:
		t.ack(intent, false, fmt.Sprintf("unsupported intent %s", intent.Type))
	}
}

func (t *LocalTransport) applyChange(id string) error {
	t.mu.Lock()
	c, ok := t.proposals[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("unknown change %s", id)
	}
	delete(t.proposals, id)
	delete(t.resolved, id)
	t.mu.Unlock()

	if err := t.writeProposal(c, nil); err != nil {
		return err
	}
	t.emitApplied(c.ID, c.Path)
	return nil
}

func (t *LocalTransport) rejectChange(id string) error {
	t.mu.Lock()
	c, ok := t.proposals[id]
	if ok {
		delete(t.proposals, id)
		delete(t.resolved, id)
	}
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown change %s", id)
	}
	payload, _ := json.Marshal(ChangeRejectedPayload{ChangeID: c.ID, FilePath: c.Path})
	t.emit(Event{Name: EventChangeRejected, Payload: payload})
	return nil
}

// resolveHunk applies or discards one hunk. Once every hunk of the
// proposal is resolved the whole change is reported applied.
func (t *LocalTransport) resolveHunk(id string, idx int, accept bool) error {
	t.mu.Lock()
	c, ok := t.proposals[id]
	if !ok || c.Kind != change.KindMultiPatch || idx < 0 || idx >= len(c.Hunks) {
		t.mu.Unlock()
		return fmt.Errorf("unknown hunk %d of change %s", idx, id)
	}
	if t.resolved[id] == nil {
		t.resolved[id] = make(map[int]bool)
	}
	t.resolved[id][idx] = accept
	done := len(t.resolved[id]) == len(c.Hunks)
	var accepted []change.Hunk
	if done {
		for i, h := range c.Hunks {
			if t.resolved[id][i] {
				accepted = append(accepted, h)
			}
		}
		delete(t.proposals, id)
		delete(t.resolved, id)
	}
	t.mu.Unlock()

	if !done {
		return nil
	}
	if len(accepted) == 0 {
		payload, _ := json.Marshal(ChangeRejectedPayload{ChangeID: c.ID, FilePath: c.Path})
		t.emit(Event{Name: EventChangeRejected, Payload: payload})
		return nil
	}
	if err := t.writeProposal(c, accepted); err != nil {
		return err
	}
	t.emitApplied(c.ID, c.Path)
	return nil
}

func (t *LocalTransport) applyAll() error {
	t.mu.Lock()
	ids := make([]string, 0, len(t.proposals))
	for id := range t.proposals {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	var paths []string
	for _, id := range ids {
		t.mu.Lock()
		c, ok := t.proposals[id]
		if ok {
			delete(t.proposals, id)
			delete(t.resolved, id)
		}
		t.mu.Unlock()
		if !ok {
			continue
		}
		if err := t.writeProposal(c, nil); err != nil {
			return err
		}
		paths = append(paths, c.Path)
	}
	payload, _ := json.Marshal(AllEditsAppliedPayload{Count: len(paths), FilePaths: paths})
	t.emit(Event{Name: EventAllEditsApplied, Payload: payload})
	return nil
}

// writeProposal performs the authoritative patch application on disk.
// hunks non-nil restricts a multi-hunk proposal to the accepted subset.
func (t *LocalTransport) writeProposal(c *change.Change, hunks []change.Hunk) error {
	path := t.abs(c.Path)
	before, exists := readIfExists(path)

	var after string
	switch c.Kind {
	case change.KindPatch:
		after = c.NewContent
	case change.KindMultiPatch:
		set := c.Hunks
		if hunks != nil {
			set = hunks
		}
		after = before
		for _, h := range set {
			after = vbuffer.Fold(after, h)
		}
	case change.KindNewFile:
		after = c.Content
	case change.KindDeleteFile:
		t.recordOriginal(c.Path, before, exists)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		t.recordCounts(c.Path, before, "")
		return nil
	default:
		return fmt.Errorf("unsupported change kind %q", c.Kind)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	t.recordOriginal(c.Path, before, exists)
	if err := os.WriteFile(path, []byte(after), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	t.recordCounts(c.Path, before, after)
	return nil
}

func (t *LocalTransport) writeFile(relPath, content string) error {
	path := t.abs(relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (t *LocalTransport) revertFile(relPath string) error {
	t.mu.Lock()
	orig, ok := t.originals[relPath]
	delete(t.originals, relPath)
	delete(t.counts, relPath)
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("no uncommitted change for %s", relPath)
	}

	path := t.abs(relPath)
	if orig == nil {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove created file: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(*orig), 0644); err != nil {
		return fmt.Errorf("failed to restore file: %w", err)
	}
	return nil
}

// recordOriginal keeps the first pre-edit snapshot per path so a later
// reject restores the state the user last confirmed.
func (t *LocalTransport) recordOriginal(relPath, before string, existed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.originals[relPath]; ok {
		return
	}
	if existed {
		cp := before
		t.originals[relPath] = &cp
	} else {
		t.originals[relPath] = nil
	}
}

func (t *LocalTransport) recordCounts(relPath, before, after string) {
	res := textdiff.Compute(before, after)
	added, removed := 0, 0
	for _, r := range res.Added {
		added += r.End - r.Start + 1
	}
	for _, r := range res.Removed {
		removed += r.End - r.Start + 1
	}
	t.mu.Lock()
	t.counts[relPath] = uncommitted.Change{FilePath: relPath, AddedLines: added, RemovedLines: removed}
	t.mu.Unlock()
}

func (t *LocalTransport) emitApplied(id, path string) {
	payload, _ := json.Marshal(ChangeAppliedPayload{ChangeID: id, FilePath: path})
	t.emit(Event{Name: EventChangeApplied, Payload: payload})
}

func (t *LocalTransport) ackErr(intent Intent, err error) {
	if err != nil {
		t.ack(intent, false, err.Error())
		return
	}
	t.ack(intent, true, "")
}

func (t *LocalTransport) ack(intent Intent, ok bool, msg string) {
	if intent.RequestID == "" {
		return
	}
	payload, _ := json.Marshal(AckPayload{RequestID: intent.RequestID, OK: ok, Error: msg})
	t.emit(Event{Name: EventIntentAck, Payload: payload})
}

func (t *LocalTransport) emit(ev Event) {
	t.events <- ev
}

func (t *LocalTransport) abs(rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(t.root, filepath.FromSlash(rel))
}

func readIfExists(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}
