package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/change"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/events"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/uncommitted"
)

// ErrTimeout marks a request whose correlated response never arrived.
// Callers surface it distinctly from a backend-reported rejection.
var ErrTimeout = errors.New("no response from backend")

// BackendError is an explicit failure reported by the backend.
type BackendError struct {
	Intent IntentType
	Msg    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend rejected %s: %s", e.Intent, e.Msg)
}

// DefaultAckTimeout bounds how long a dispatched intent waits for its
// acknowledgement.
const DefaultAckTimeout = 5 * time.Second

// Client dispatches typed intents and routes backend events onto the
// process event bus. One router goroutine drains the transport, so events
// are handled in arrival order, which preserves the per-id/per-path
// ordering the backend guarantees.
type Client struct {
	transport Transport
	bus       *events.Bus
	timeout   time.Duration

	mu       sync.Mutex
	acks     map[string]chan AckPayload
	reads    map[string][]chan string
	lists    map[string]chan []uncommitted.Change
	done     chan struct{}
	started  bool
}

// NewClient wires a client over the given transport, publishing decoded
// events on bus.
func NewClient(transport Transport, bus *events.Bus) *Client {
	return &Client{
		transport: transport,
		bus:       bus,
		timeout:   DefaultAckTimeout,
		acks:      make(map[string]chan AckPayload),
		reads:     make(map[string][]chan string),
		lists:     make(map[string]chan []uncommitted.Change),
		done:      make(chan struct{}),
	}
}

// WithAckTimeout overrides the default acknowledgement timeout.
func (c *Client) WithAckTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// Start launches the router goroutine. It returns immediately; the
// router runs until the transport closes its event channel.
func (c *Client) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		for ev := range c.transport.Events() {
			c.route(ev)
		}
	}()
}

// Done is closed when the router has drained the transport.
func (c *Client) Done() <-chan struct{} { return c.done }

// route decodes one backend event and hands it to the bus or to the
// waiter it correlates with. Unknown names and undecodable payloads are
// ignored: tolerating foreign event shapes is part of the contract.
func (c *Client) route(ev Event) {
	switch ev.Name {
	case EventProposeChanges:
		changes, err := change.ParseBatch(ev.Payload)
		if err != nil {
			log.Printf("bridge: dropping malformed propose-changes payload: %v", err)
			return
		}
		for i := range changes {
			changes[i].Path = NormalizePath(changes[i].Path)
		}
		c.bus.Emit(events.ChangesProposed, changes)

	case EventChangeApplied:
		var p ChangeAppliedPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return
		}
		p.FilePath = NormalizePath(p.FilePath)
		c.bus.Emit(events.ChangeApplied, p)

	case EventChangeRejected:
		var p ChangeRejectedPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return
		}
		p.FilePath = NormalizePath(p.FilePath)
		c.bus.Emit(events.ChangeRejected, p)

	case EventAllEditsApplied:
		var p AllEditsAppliedPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return
		}
		for i := range p.FilePaths {
			p.FilePaths[i] = NormalizePath(p.FilePaths[i])
		}
		c.bus.Emit(events.AllEditsApplied, p)

	case EventFileChangesDetected:
		var p FileChangesDetectedPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return
		}
		for i := range p.Paths {
			p.Paths[i] = NormalizePath(p.Paths[i])
		}
		c.bus.Emit(events.FileChangesDetected, p)

	case EventFileContent:
		var p FileContentPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return
		}
		p.Path = NormalizePath(p.Path)
		c.deliverRead(p)
		c.bus.Emit(events.FileContent, p)

	case EventUncommittedChanges:
		var p UncommittedChangesPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return
		}
		c.mu.Lock()
		ch, ok := c.lists[p.RequestID]
		delete(c.lists, p.RequestID)
		c.mu.Unlock()
		if ok {
			ch <- p.Changes
		}

	case EventIntentAck:
		var p AckPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return
		}
		c.mu.Lock()
		ch, ok := c.acks[p.RequestID]
		delete(c.acks, p.RequestID)
		c.mu.Unlock()
		if ok {
			ch <- p
		}

	default:
		// Foreign event; ignore by contract.
	}
}

func (c *Client) deliverRead(p FileContentPayload) {
	c.mu.Lock()
	waiters := c.reads[p.Path]
	delete(c.reads, p.Path)
	c.mu.Unlock()
	for _, ch := range waiters {
		ch <- p.Content
	}
}

// dispatch sends one intent and waits for its acknowledgement. A missing
// ack within the timeout yields ErrTimeout; an explicit rejection yields
// a BackendError.
func (c *Client) dispatch(ctx context.Context, typ IntentType, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", typ, err)
	}

	id := uuid.NewString()
	ackCh := make(chan AckPayload, 1)
	c.mu.Lock()
	c.acks[id] = ackCh
	c.mu.Unlock()

	if err := c.transport.Send(Intent{Type: typ, RequestID: id, Payload: raw}); err != nil {
		c.mu.Lock()
		delete(c.acks, id)
		c.mu.Unlock()
		return fmt.Errorf("failed to dispatch %s: %w", typ, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case ack := <-ackCh:
		if !ack.OK {
			return &BackendError{Intent: typ, Msg: ack.Error}
		}
		return nil
	case <-timer.C:
		c.mu.Lock()
		delete(c.acks, id)
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", typ, ErrTimeout)
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.acks, id)
		c.mu.Unlock()
		return ctx.Err()
	}
}

// ApproveChange asks the backend to apply one proposal.
func (c *Client) ApproveChange(ctx context.Context, changeID string) error {
	return c.dispatch(ctx, IntentApproveChange, ChangePayload{ChangeID: changeID})
}

// RejectChange asks the backend to discard one proposal.
func (c *Client) RejectChange(ctx context.Context, changeID string) error {
	return c.dispatch(ctx, IntentRejectChange, ChangePayload{ChangeID: changeID})
}

// ApproveChangeHunk applies a single hunk of a multi-hunk proposal.
func (c *Client) ApproveChangeHunk(ctx context.Context, changeID string, hunkIndex int) error {
	return c.dispatch(ctx, IntentApproveChangeHunk, HunkPayload{ChangeID: changeID, HunkIndex: hunkIndex})
}

// RejectChangeHunk discards a single hunk of a multi-hunk proposal.
func (c *Client) RejectChangeHunk(ctx context.Context, changeID string, hunkIndex int) error {
	return c.dispatch(ctx, IntentRejectChangeHunk, HunkPayload{ChangeID: changeID, HunkIndex: hunkIndex})
}

// ApproveAllChanges applies every pending proposal backend-side.
func (c *Client) ApproveAllChanges(ctx context.Context) error {
	return c.dispatch(ctx, IntentApproveAllChanges, struct{}{})
}

// AcceptFileChanges keeps the uncommitted on-disk edit for path.
func (c *Client) AcceptFileChanges(ctx context.Context, path string) error {
	return c.dispatch(ctx, IntentAcceptFileChanges, FilePayload{FilePath: path})
}

// RejectFileChanges reverts the uncommitted on-disk edit for path.
func (c *Client) RejectFileChanges(ctx context.Context, path string) error {
	return c.dispatch(ctx, IntentRejectFileChanges, FilePayload{FilePath: path})
}

// AcceptAllChanges keeps every uncommitted on-disk edit.
func (c *Client) AcceptAllChanges(ctx context.Context) error {
	return c.dispatch(ctx, IntentAcceptAllChanges, struct{}{})
}

// RejectAllChanges reverts every uncommitted on-disk edit.
func (c *Client) RejectAllChanges(ctx context.Context) error {
	return c.dispatch(ctx, IntentRejectAllChanges, struct{}{})
}

// ListUncommitted fetches the authoritative uncommitted-change list.
func (c *Client) ListUncommitted(ctx context.Context) ([]uncommitted.Change, error) {
	id := uuid.NewString()
	ch := make(chan []uncommitted.Change, 1)
	c.mu.Lock()
	c.lists[id] = ch
	c.mu.Unlock()

	if err := c.transport.Send(Intent{Type: IntentListUncommitted, RequestID: id}); err != nil {
		c.mu.Lock()
		delete(c.lists, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to dispatch %s: %w", IntentListUncommitted, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case list := <-ch:
		return list, nil
	case <-timer.C:
		c.mu.Lock()
		delete(c.lists, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", IntentListUncommitted, ErrTimeout)
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.lists, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// ReadFile requests file content; the answer arrives as a file-content
// event keyed by path. No synchronous file I/O happens at this layer.
func (c *Client) ReadFile(ctx context.Context, path string) (string, error) {
	path = NormalizePath(path)
	ch := make(chan string, 1)
	c.mu.Lock()
	c.reads[path] = append(c.reads[path], ch)
	c.mu.Unlock()

	raw, _ := json.Marshal(FilePayload{FilePath: path})
	if err := c.transport.Send(Intent{Type: IntentReadFile, RequestID: uuid.NewString(), Payload: raw}); err != nil {
		c.dropRead(path, ch)
		return "", fmt.Errorf("failed to dispatch %s: %w", IntentReadFile, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case content := <-ch:
		return content, nil
	case <-timer.C:
		c.dropRead(path, ch)
		return "", fmt.Errorf("read %s: %w", path, ErrTimeout)
	case <-ctx.Done():
		c.dropRead(path, ch)
		return "", ctx.Err()
	}
}

// WriteFile sends content for path to the backend.
func (c *Client) WriteFile(ctx context.Context, path, content string) error {
	return c.dispatch(ctx, IntentWriteFile, WritePayload{FilePath: NormalizePath(path), Content: content})
}

// NotifyContentChanged forwards a live-typing content snapshot, fire and
// forget. Callers debounce; the bridge does not.
func (c *Client) NotifyContentChanged(path, content string) {
	raw, _ := json.Marshal(WritePayload{FilePath: NormalizePath(path), Content: content})
	if err := c.transport.Send(Intent{Type: IntentContentChanged, Payload: raw}); err != nil {
		log.Printf("bridge: content-changed notify for %s failed: %v", path, err)
	}
}

func (c *Client) dropRead(path string, ch chan string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	waiters := c.reads[path]
	for i, w := range waiters {
		if w == ch {
			c.reads[path] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(c.reads[path]) == 0 {
		delete(c.reads, path)
	}
}
