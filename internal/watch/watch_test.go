package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/bridge"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/events"
)

func collectDetected(bus *events.Bus) (*sync.Mutex, *[][]string) {
	var mu sync.Mutex
	var batches [][]string
	bus.Subscribe(events.FileChangesDetected, func(ev events.Event) {
		p, ok := ev.Data.(bridge.FileChangesDetectedPayload)
		if !ok {
			return
		}
		mu.Lock()
		batches = append(batches, p.Paths)
		mu.Unlock()
	})
	return &mu, &batches
}

func TestWatcherCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	bridge.SetWorkspaceRoot(dir)
	t.Cleanup(func() { bridge.SetWorkspaceRoot("") })

	bus := events.NewBus()
	mu, batches := collectDetected(bus)

	w, err := New(dir, bus)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()
	w.settle = 100 * time.Millisecond

	// A burst of writes inside one settle window.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(filepath.Join(dir, "a.rs"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(*batches)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(*batches) != 1 {
		t.Fatalf("got %d notifications for one burst, want 1: %v", len(*batches), *batches)
	}
	paths := (*batches)[0]
	if len(paths) != 1 || paths[0] != "a.rs" {
		t.Errorf("paths = %v, want one workspace-relative entry", paths)
	}
}

func TestWatcherIgnoresNoiseDirs(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []string{".git", "node_modules"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0755); err != nil {
			t.Fatal(err)
		}
	}
	bridge.SetWorkspaceRoot(dir)
	t.Cleanup(func() { bridge.SetWorkspaceRoot("") })

	bus := events.NewBus()
	mu, batches := collectDetected(bus)

	w, err := New(dir, bus)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()
	w.settle = 50 * time.Millisecond

	if err := os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "node_modules", "pkg.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(*batches) != 0 {
		t.Errorf("noise directories produced notifications: %v", *batches)
	}
}
