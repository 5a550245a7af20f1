package pending

import (
	"testing"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/change"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/events"
)

func patchChange(id, path string) change.Change {
	return change.Change{ID: id, Path: path, Kind: change.KindPatch, OldContent: "a", NewContent: "b"}
}

func TestIngestIdempotence(t *testing.T) {
	s := NewStore(events.NewBus())
	c := patchChange("c1", "a.rs")

	s.Ingest([]change.Change{c})
	s.Ingest([]change.Change{c})

	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d after duplicate ingest, want 1", got)
	}
}

func TestPathInvalidation(t *testing.T) {
	s := NewStore(events.NewBus())
	s.Ingest([]change.Change{patchChange("1", "f"), patchChange("2", "f")})

	s.Resolve("1")

	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d after resolving one change for path, want 0", got)
	}
	if got := s.Get("f"); got != nil {
		t.Errorf("Get(f) = %+v after resolution, want nil", got)
	}
}

func TestGetReturnsMostRecent(t *testing.T) {
	s := NewStore(events.NewBus())
	s.Ingest([]change.Change{patchChange("old", "f")})
	s.Ingest([]change.Change{patchChange("new", "f")})

	got := s.Get("f")
	if got == nil || got.ID != "new" {
		t.Errorf("Get(f) = %+v, want the most recently ingested change", got)
	}
}

func TestResolveUnknownIDIsNoOp(t *testing.T) {
	s := NewStore(events.NewBus())
	s.Ingest([]change.Change{patchChange("c1", "a.rs")})

	s.Resolve("never-seen")

	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d after resolving unknown id, want 1", got)
	}
}

func TestReingestAfterResolve(t *testing.T) {
	s := NewStore(events.NewBus())
	s.Ingest([]change.Change{patchChange("c1", "a.rs")})
	s.Resolve("c1")

	// Sequential AI edits to the same path are legal and expected.
	s.Ingest([]change.Change{patchChange("c2", "a.rs")})
	got := s.Get("a.rs")
	if got == nil || got.ID != "c2" {
		t.Errorf("Get(a.rs) = %+v, want c2", got)
	}
}

func TestNewFilePreviewSignal(t *testing.T) {
	bus := events.NewBus()
	var previews []string
	sub := bus.Subscribe(events.PreviewOpenRequest, func(ev events.Event) {
		if p, ok := ev.Data.(string); ok {
			previews = append(previews, p)
		}
	})
	defer sub.Cancel()

	s := NewStore(bus)
	s.Ingest([]change.Change{
		{ID: "n1", Path: "fresh.rs", Kind: change.KindNewFile, Content: "x"},
		patchChange("c1", "a.rs"),
	})

	if len(previews) != 1 || previews[0] != "fresh.rs" {
		t.Errorf("preview signals = %v, want [fresh.rs]", previews)
	}
}

func TestSubscriptionNotifies(t *testing.T) {
	bus := events.NewBus()
	var updates int
	sub := bus.Subscribe(events.PendingUpdated, func(ev events.Event) {
		updates++
	})
	defer sub.Cancel()

	s := NewStore(bus)
	s.Ingest([]change.Change{patchChange("c1", "a.rs")})
	s.Resolve("c1")
	s.Resolve("c1") // no-op, no notification

	if updates != 2 {
		t.Errorf("got %d pending-updated notifications, want 2", updates)
	}
}

func TestClear(t *testing.T) {
	s := NewStore(events.NewBus())
	s.Ingest([]change.Change{patchChange("1", "a"), patchChange("2", "b")})
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", s.Len())
	}
}
