package bridge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/change"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/events"
)

func localSetup(t *testing.T) (string, *LocalTransport, *Client, *events.Bus) {
	t.Helper()
	dir := t.TempDir()
	transport := NewLocalTransport(dir)
	bus := events.NewBus()
	client := NewClient(transport, bus).WithAckTimeout(2 * time.Second)
	client.Start()
	t.Cleanup(func() {
		_ = transport.Close()
		<-client.Done()
	})
	return dir, transport, client, bus
}

func writeWorkspaceFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readWorkspaceFile(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, rel))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func awaitEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("event never arrived")
		return events.Event{}
	}
}

func TestLocalApproveChange(t *testing.T) {
	dir, transport, client, bus := localSetup(t)
	writeWorkspaceFile(t, dir, "a.rs", "fn a(){}\n")

	applied := make(chan events.Event, 1)
	sub := bus.Subscribe(events.ChangeApplied, func(ev events.Event) { applied <- ev })
	defer sub.Cancel()

	transport.Propose([]change.Change{{
		ID:         "c1",
		Path:       "a.rs",
		Kind:       change.KindPatch,
		OldContent: "fn a(){}\n",
		NewContent: "fn a(){ x(); }\n",
	}})

	if err := client.ApproveChange(context.Background(), "c1"); err != nil {
		t.Fatalf("ApproveChange failed: %v", err)
	}

	ev := awaitEvent(t, applied)
	p, ok := ev.Data.(ChangeAppliedPayload)
	if !ok || p.ChangeID != "c1" || p.FilePath != "a.rs" {
		t.Errorf("change-applied payload = %+v", ev.Data)
	}
	if got := readWorkspaceFile(t, dir, "a.rs"); got != "fn a(){ x(); }\n" {
		t.Errorf("file after apply = %q", got)
	}

	list, err := client.ListUncommitted(context.Background())
	if err != nil {
		t.Fatalf("ListUncommitted failed: %v", err)
	}
	if len(list) != 1 || list[0].FilePath != "a.rs" {
		t.Fatalf("uncommitted list = %+v", list)
	}
	if list[0].AddedLines == 0 {
		t.Errorf("expected added lines recorded, got %+v", list[0])
	}
}

func TestLocalApproveUnknownChange(t *testing.T) {
	_, _, client, _ := localSetup(t)

	err := client.ApproveChange(context.Background(), "missing")
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError for unknown id, got %v", err)
	}
}

func TestLocalRejectFileRevertsEdit(t *testing.T) {
	dir, transport, client, _ := localSetup(t)
	writeWorkspaceFile(t, dir, "a.rs", "original\n")

	transport.Propose([]change.Change{{
		ID:         "c1",
		Path:       "a.rs",
		Kind:       change.KindPatch,
		OldContent: "original\n",
		NewContent: "edited\n",
	}})
	if err := client.ApproveChange(context.Background(), "c1"); err != nil {
		t.Fatalf("ApproveChange failed: %v", err)
	}
	if got := readWorkspaceFile(t, dir, "a.rs"); got != "edited\n" {
		t.Fatalf("file after apply = %q", got)
	}

	if err := client.RejectFileChanges(context.Background(), "a.rs"); err != nil {
		t.Fatalf("RejectFileChanges failed: %v", err)
	}
	if got := readWorkspaceFile(t, dir, "a.rs"); got != "original\n" {
		t.Errorf("file after revert = %q", got)
	}

	list, err := client.ListUncommitted(context.Background())
	if err != nil {
		t.Fatalf("ListUncommitted failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("uncommitted list after revert = %+v", list)
	}
}

func TestLocalNewFileRevertRemoves(t *testing.T) {
	dir, transport, client, _ := localSetup(t)

	transport.Propose([]change.Change{{
		ID:      "c1",
		Path:    "src/fresh.rs",
		Kind:    change.KindNewFile,
		Content: "fn fresh(){}\n",
	}})
	if err := client.ApproveChange(context.Background(), "c1"); err != nil {
		t.Fatalf("ApproveChange failed: %v", err)
	}
	if got := readWorkspaceFile(t, dir, "src/fresh.rs"); got != "fn fresh(){}\n" {
		t.Fatalf("new file content = %q", got)
	}

	if err := client.RejectFileChanges(context.Background(), "src/fresh.rs"); err != nil {
		t.Fatalf("RejectFileChanges failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "src/fresh.rs")); !os.IsNotExist(err) {
		t.Errorf("created file should be removed on revert, stat err = %v", err)
	}
}

func TestLocalHunkResolutionPartial(t *testing.T) {
	dir, transport, client, bus := localSetup(t)
	writeWorkspaceFile(t, dir, "a.rs", "one\ntwo\nthree\n")

	applied := make(chan events.Event, 1)
	sub := bus.Subscribe(events.ChangeApplied, func(ev events.Event) { applied <- ev })
	defer sub.Cancel()

	transport.Propose([]change.Change{{
		ID:   "c1",
		Path: "a.rs",
		Kind: change.KindMultiPatch,
		Hunks: []change.Hunk{
			{OldText: "one", NewText: "ONE", StartLine: 1, EndLine: 1},
			{OldText: "three", NewText: "THREE", StartLine: 3, EndLine: 3},
		},
	}})

	if err := client.ApproveChangeHunk(context.Background(), "c1", 0); err != nil {
		t.Fatalf("ApproveChangeHunk failed: %v", err)
	}
	// Nothing is written until the last hunk is resolved.
	if got := readWorkspaceFile(t, dir, "a.rs"); got != "one\ntwo\nthree\n" {
		t.Fatalf("file changed before full resolution: %q", got)
	}

	if err := client.RejectChangeHunk(context.Background(), "c1", 1); err != nil {
		t.Fatalf("RejectChangeHunk failed: %v", err)
	}

	awaitEvent(t, applied)
	if got := readWorkspaceFile(t, dir, "a.rs"); got != "ONE\ntwo\nthree\n" {
		t.Errorf("file after partial accept = %q", got)
	}
}

func TestLocalHunkResolutionAllRejected(t *testing.T) {
	dir, transport, client, bus := localSetup(t)
	writeWorkspaceFile(t, dir, "a.rs", "one\ntwo\n")

	rejected := make(chan events.Event, 1)
	sub := bus.Subscribe(events.ChangeRejected, func(ev events.Event) { rejected <- ev })
	defer sub.Cancel()

	transport.Propose([]change.Change{{
		ID:   "c1",
		Path: "a.rs",
		Kind: change.KindMultiPatch,
		Hunks: []change.Hunk{
			{OldText: "one", NewText: "ONE", StartLine: 1, EndLine: 1},
			{OldText: "two", NewText: "TWO", StartLine: 2, EndLine: 2},
		},
	}})

	if err := client.RejectChangeHunk(context.Background(), "c1", 0); err != nil {
		t.Fatalf("RejectChangeHunk failed: %v", err)
	}
	if err := client.RejectChangeHunk(context.Background(), "c1", 1); err != nil {
		t.Fatalf("RejectChangeHunk failed: %v", err)
	}

	ev := awaitEvent(t, rejected)
	p, ok := ev.Data.(ChangeRejectedPayload)
	if !ok || p.ChangeID != "c1" {
		t.Errorf("change-rejected payload = %+v", ev.Data)
	}
	if got := readWorkspaceFile(t, dir, "a.rs"); got != "one\ntwo\n" {
		t.Errorf("file mutated despite full rejection: %q", got)
	}
}

func TestLocalApproveAll(t *testing.T) {
	dir, transport, client, bus := localSetup(t)
	writeWorkspaceFile(t, dir, "a.rs", "a\n")
	writeWorkspaceFile(t, dir, "b.rs", "b\n")

	all := make(chan events.Event, 1)
	sub := bus.Subscribe(events.AllEditsApplied, func(ev events.Event) { all <- ev })
	defer sub.Cancel()

	transport.Propose([]change.Change{
		{ID: "c1", Path: "a.rs", Kind: change.KindPatch, OldContent: "a\n", NewContent: "A\n"},
		{ID: "c2", Path: "b.rs", Kind: change.KindPatch, OldContent: "b\n", NewContent: "B\n"},
	})

	if err := client.ApproveAllChanges(context.Background()); err != nil {
		t.Fatalf("ApproveAllChanges failed: %v", err)
	}

	ev := awaitEvent(t, all)
	p, ok := ev.Data.(AllEditsAppliedPayload)
	if !ok || p.Count != 2 {
		t.Errorf("all-edits-applied payload = %+v", ev.Data)
	}
	if readWorkspaceFile(t, dir, "a.rs") != "A\n" || readWorkspaceFile(t, dir, "b.rs") != "B\n" {
		t.Error("not every proposal was written")
	}
}

func TestLocalDeleteFile(t *testing.T) {
	dir, transport, client, _ := localSetup(t)
	writeWorkspaceFile(t, dir, "gone.rs", "bye\n")

	transport.Propose([]change.Change{{
		ID:   "c1",
		Path: "gone.rs",
		Kind: change.KindDeleteFile,
	}})
	if err := client.ApproveChange(context.Background(), "c1"); err != nil {
		t.Fatalf("ApproveChange failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "gone.rs")); !os.IsNotExist(err) {
		t.Fatalf("file should be gone, stat err = %v", err)
	}

	if err := client.RejectFileChanges(context.Background(), "gone.rs"); err != nil {
		t.Fatalf("RejectFileChanges failed: %v", err)
	}
	if got := readWorkspaceFile(t, dir, "gone.rs"); got != "bye\n" {
		t.Errorf("deleted file not restored: %q", got)
	}
}
