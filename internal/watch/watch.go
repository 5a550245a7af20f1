// Package watch detects external, on-disk file modifications and feeds
// them into the event bus as file-changes-detected notifications, the
// same shape the backend pushes when one of its tools touches a file.
package watch

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/bridge"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/events"
)

// DefaultSettle is how long a burst of filesystem events is allowed to
// quiet down before one coalesced notification goes out.
const DefaultSettle = 200 * time.Millisecond

// Watcher observes a workspace tree. Hidden directories and common
// build/VCS noise are skipped.
type Watcher struct {
	root    string
	bus     *events.Bus
	fsw     *fsnotify.Watcher
	settle  time.Duration
	stopped chan struct{}

	mu      sync.Mutex
	touched map[string]struct{}
	timer   *time.Timer
}

// New creates a watcher over root, publishing on bus.
func New(root string, bus *events.Bus) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:    filepath.Clean(root),
		bus:     bus,
		fsw:     fsw,
		settle:  DefaultSettle,
		stopped: make(chan struct{}),
		touched: make(map[string]struct{}),
	}
	if err := w.addRecursive(w.root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	go w.run()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.stopped)
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if skipDir(info.Name()) && path != w.root {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watch: %v", err)
		case <-w.stopped:
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || skipDir(base) {
		return
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(ev.Name)
			return
		}
	}
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	w.touched[bridge.NormalizePath(ev.Name)] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.settle, w.flush)
	} else {
		w.timer.Reset(w.settle)
	}
	w.mu.Unlock()
}

// flush emits one coalesced notification for everything touched in the
// settle window.
func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.touched))
	for p := range w.touched {
		paths = append(paths, p)
	}
	w.touched = make(map[string]struct{})
	w.timer = nil
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	w.bus.Emit(events.FileChangesDetected, bridge.FileChangesDetectedPayload{Paths: paths})
}

func skipDir(name string) bool {
	switch name {
	case ".git", ".blade", "node_modules", "target", "vendor", "dist":
		return true
	}
	return false
}
