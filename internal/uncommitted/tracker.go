// Package uncommitted tracks changes the backend already wrote to disk
// in optimistic-apply mode but the user has not confirmed or reverted.
// The authoritative list lives server-side; this is a read-through cache
// with optimistic local removal.
package uncommitted

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Change summarizes the net on-disk delta for one file.
type Change struct {
	FilePath     string `json:"file_path"`
	AddedLines   int    `json:"added_lines"`
	RemovedLines int    `json:"removed_lines"`
}

// Backend is the slice of the intent channel the tracker needs.
type Backend interface {
	ListUncommitted(ctx context.Context) ([]Change, error)
	AcceptFileChanges(ctx context.Context, path string) error
	RejectFileChanges(ctx context.Context, path string) error
}

// Tracker is the process-wide cache of uncommitted changes. Any open tab
// may query it concurrently; it refreshes on backend push and window
// refocus, never on a tight poll.
type Tracker struct {
	mu      sync.RWMutex
	byPath  map[string]Change
	backend Backend

	// Optimistically removed entries awaiting refresh confirmation.
	// If a refresh still reports one, the backend disagreed and the
	// entry is restored.
	tentative map[string]struct{}
}

// NewTracker creates an empty tracker backed by the given intent channel.
func NewTracker(backend Backend) *Tracker {
	return &Tracker{
		byPath:    make(map[string]Change),
		tentative: make(map[string]struct{}),
		backend:   backend,
	}
}

// Refresh re-fetches the authoritative list and reconciles optimistic
// removals against it.
func (t *Tracker) Refresh(ctx context.Context) error {
	list, err := t.backend.ListUncommitted(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh uncommitted changes: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fresh := make(map[string]Change, len(list))
	for _, c := range list {
		fresh[c.FilePath] = c
	}

	for path := range t.tentative {
		if _, stillThere := fresh[path]; stillThere {
			// Backend disagrees with the optimistic removal; keep its view.
			log.Printf("uncommitted: backend still reports %s after local removal, restoring", path)
		}
		delete(t.tentative, path)
	}

	t.byPath = fresh
	return nil
}

// ChangeForFile returns the uncommitted change for path, or nil. Exact
// match first, then a suffix match: the frontend sometimes holds relative
// paths where the backend reports absolute ones. The suffix fallback is a
// known normalization gap, kept deliberately.
func (t *Tracker) ChangeForFile(path string) *Change {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if c, ok := t.byPath[path]; ok {
		cp := c
		return &cp
	}
	for p, c := range t.byPath {
		if suffixMatch(p, path) {
			cp := c
			return &cp
		}
	}
	return nil
}

// All returns the tracked changes sorted by path.
func (t *Tracker) All() []Change {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Change, 0, len(t.byPath))
	for _, c := range t.byPath {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out
}

// Len returns the number of tracked changes.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byPath)
}

// AcceptFile keeps the on-disk edit for path. On success the entry is
// removed locally before the next Refresh confirms it, so the panel never
// flashes stale state; on failure the cache is untouched.
func (t *Tracker) AcceptFile(ctx context.Context, path string) error {
	if err := t.backend.AcceptFileChanges(ctx, path); err != nil {
		return fmt.Errorf("failed to accept changes for %s: %w", path, err)
	}
	t.removeOptimistically(path)
	return nil
}

// RejectFile reverts the on-disk edit for path.
func (t *Tracker) RejectFile(ctx context.Context, path string) error {
	if err := t.backend.RejectFileChanges(ctx, path); err != nil {
		return fmt.Errorf("failed to reject changes for %s: %w", path, err)
	}
	t.removeOptimistically(path)
	return nil
}

// AcceptAll accepts every tracked file. Each file resolves independently;
// failures do not block the rest and come back as one aggregated error.
func (t *Tracker) AcceptAll(ctx context.Context) error {
	return t.forAll(ctx, t.AcceptFile, "accept")
}

// RejectAll reverts every tracked file, with the same partial-failure
// semantics as AcceptAll.
func (t *Tracker) RejectAll(ctx context.Context) error {
	return t.forAll(ctx, t.RejectFile, "reject")
}

func (t *Tracker) forAll(ctx context.Context, op func(context.Context, string) error, verb string) error {
	paths := make([]string, 0, t.Len())
	for _, c := range t.All() {
		paths = append(paths, c.FilePath)
	}

	var (
		failMu sync.Mutex
		failed []string
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := op(ctx, path); err != nil {
				failMu.Lock()
				failed = append(failed, path)
				failMu.Unlock()
				log.Printf("uncommitted: %s failed for %s: %v", verb, path, err)
			}
			// Individual failures are aggregated below, never returned
			// here: one bad file must not cancel the rest.
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		sort.Strings(failed)
		return fmt.Errorf("failed to %s changes for %d file(s): %s", verb, len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func (t *Tracker) removeOptimistically(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byPath[path]; ok {
		delete(t.byPath, path)
		t.tentative[path] = struct{}{}
		return
	}
	// The caller may hold the other side of the relative/absolute split.
	for p := range t.byPath {
		if suffixMatch(p, path) {
			delete(t.byPath, p)
			t.tentative[p] = struct{}{}
			return
		}
	}
}

func suffixMatch(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasSuffix(a, "/"+b) || strings.HasSuffix(b, "/"+a)
}
