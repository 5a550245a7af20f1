package uncommitted

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// fakeBackend scripts the intent channel for tracker tests.
type fakeBackend struct {
	mu       sync.Mutex
	list     []Change
	failFor  map[string]error
	accepted []string
	rejected []string
}

func (f *fakeBackend) ListUncommitted(ctx context.Context) ([]Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Change, len(f.list))
	copy(out, f.list)
	return out, nil
}

func (f *fakeBackend) AcceptFileChanges(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[path]; err != nil {
		return err
	}
	f.accepted = append(f.accepted, path)
	f.removeLocked(path)
	return nil
}

func (f *fakeBackend) RejectFileChanges(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[path]; err != nil {
		return err
	}
	f.rejected = append(f.rejected, path)
	f.removeLocked(path)
	return nil
}

func (f *fakeBackend) removeLocked(path string) {
	kept := f.list[:0]
	for _, c := range f.list {
		if c.FilePath != path {
			kept = append(kept, c)
		}
	}
	f.list = kept
}

func newTestTracker(t *testing.T, paths ...string) (*Tracker, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{failFor: map[string]error{}}
	for _, p := range paths {
		backend.list = append(backend.list, Change{FilePath: p, AddedLines: 1, RemovedLines: 1})
	}
	tr := NewTracker(backend)
	if err := tr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	return tr, backend
}

func TestChangeForFile(t *testing.T) {
	tr, _ := newTestTracker(t, "/abs/path/src/main.rs")

	testCases := []struct {
		name  string
		query string
		found bool
	}{
		{"exact match", "/abs/path/src/main.rs", true},
		{"relative suffix", "src/main.rs", true},
		{"bare filename is not a path suffix", "ain.rs", false},
		{"absent file", "other.rs", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tr.ChangeForFile(tc.query)
			if (got != nil) != tc.found {
				t.Errorf("ChangeForFile(%q) = %+v, want found=%v", tc.query, got, tc.found)
			}
		})
	}
}

func TestAcceptFileOptimisticRemoval(t *testing.T) {
	tr, _ := newTestTracker(t, "a.rs", "b.rs")

	if err := tr.AcceptFile(context.Background(), "a.rs"); err != nil {
		t.Fatalf("AcceptFile failed: %v", err)
	}

	// Removed locally before any Refresh confirms it.
	if got := tr.ChangeForFile("a.rs"); got != nil {
		t.Errorf("a.rs still tracked after accept: %+v", got)
	}
	if got := tr.ChangeForFile("b.rs"); got == nil {
		t.Error("b.rs should be untouched")
	}
}

func TestAcceptFileFailureLeavesState(t *testing.T) {
	tr, backend := newTestTracker(t, "a.rs")
	backend.failFor["a.rs"] = errors.New("disk on fire")

	if err := tr.AcceptFile(context.Background(), "a.rs"); err == nil {
		t.Fatal("expected error")
	}
	if got := tr.ChangeForFile("a.rs"); got == nil {
		t.Error("failed accept must leave the entry tracked")
	}
}

func TestBatchPartialFailure(t *testing.T) {
	tr, backend := newTestTracker(t, "x", "y", "z")
	backend.failFor["y"] = errors.New("backend rejected")

	err := tr.AcceptAll(context.Background())
	if err == nil {
		t.Fatal("expected one aggregated error")
	}
	if !strings.Contains(err.Error(), "y") || !strings.Contains(err.Error(), "1 file(s)") {
		t.Errorf("aggregated error should name the failed file once: %v", err)
	}

	if tr.ChangeForFile("x") != nil {
		t.Error("x should be removed")
	}
	if tr.ChangeForFile("z") != nil {
		t.Error("z should be removed")
	}
	if tr.ChangeForFile("y") == nil {
		t.Error("y should be retained after its failure")
	}
}

func TestRefreshConfirmsOptimisticRemoval(t *testing.T) {
	tr, _ := newTestTracker(t, "a.rs")

	if err := tr.AcceptFile(context.Background(), "a.rs"); err != nil {
		t.Fatalf("AcceptFile failed: %v", err)
	}
	if err := tr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if tr.ChangeForFile("a.rs") != nil {
		t.Error("confirmed removal should stay removed")
	}
	if tr.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tr.Len())
	}
}

func TestRefreshRestoresWhenBackendDisagrees(t *testing.T) {
	tr, backend := newTestTracker(t, "a.rs")

	if err := tr.AcceptFile(context.Background(), "a.rs"); err != nil {
		t.Fatalf("AcceptFile failed: %v", err)
	}
	// Simulate the backend still reporting the file on the next fetch.
	backend.mu.Lock()
	backend.list = []Change{{FilePath: "a.rs", AddedLines: 1, RemovedLines: 1}}
	backend.mu.Unlock()

	if err := tr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if tr.ChangeForFile("a.rs") == nil {
		t.Error("backend view must win: entry should be restored")
	}
}

func TestRejectAll(t *testing.T) {
	tr, backend := newTestTracker(t, "a", "b")
	if err := tr.RejectAll(context.Background()); err != nil {
		t.Fatalf("RejectAll failed: %v", err)
	}
	if tr.Len() != 0 {
		t.Errorf("Len() = %d after RejectAll, want 0", tr.Len())
	}
	if len(backend.rejected) != 2 {
		t.Errorf("backend saw %d rejects, want 2", len(backend.rejected))
	}
}
