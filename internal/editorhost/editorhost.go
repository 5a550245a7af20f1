// Package editorhost tracks the open editor instances and mediates every
// widget-targeted side effect: decoration placement, scroll requests and
// content reloads. The widget itself is opaque; this layer only needs its
// document text, a cursor of sorts, and liveness.
package editorhost

import (
	"strings"
	"sync"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/vbuffer"
)

// DecorationKind is the visual style of one decorated line.
type DecorationKind int

const (
	DecorationAdded DecorationKind = iota
	DecorationRemoved
	DecorationContext
)

// Decoration maps one 1-based line to a visual style. Decorations are
// derived data: computed fresh from the diff engine, never persisted.
type Decoration struct {
	Line int
	Kind DecorationKind
}

// Editor is one open editor instance. All methods are safe for
// concurrent use; widget-targeted calls silently no-op once the editor
// is closed.
type Editor struct {
	mu          sync.Mutex
	path        string
	content     string
	buffer      *vbuffer.Buffer
	decorations []Decoration
	scrollLine  int
	alive       bool
}

// Path returns the file shown by this editor.
func (e *Editor) Path() string { return e.path }

// Alive reports whether the underlying widget still exists.
func (e *Editor) Alive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alive
}

// Buffer returns the editor's virtual content layer.
func (e *Editor) Buffer() *vbuffer.Buffer { return e.buffer }

// Content returns the widget's current document text.
func (e *Editor) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content
}

// LineCount returns the widget's current document length in lines.
func (e *Editor) LineCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.content == "" {
		return 0
	}
	return strings.Count(e.content, "\n") + 1
}

// SetContent records a keystroke-level edit from the widget.
func (e *Editor) SetContent(content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.alive {
		return
	}
	e.content = content
	e.buffer.SetLiveContent(content)
}

// Reload replaces the document wholesale from authoritative content,
// dropping decorations: they were computed against the old text.
func (e *Editor) Reload(content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.alive {
		return
	}
	e.buffer.SetBaseContent(content, vbuffer.OriginExternal)
	e.content = e.buffer.EffectiveContent()
	e.decorations = nil
}

// ApplyDecorations replaces the decoration set. Lines out of range for
// the current document are dropped silently rather than applied to stale
// offsets.
func (e *Editor) ApplyDecorations(decs []Decoration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.alive {
		return
	}
	lineCount := 0
	if e.content != "" {
		lineCount = strings.Count(e.content, "\n") + 1
	}
	kept := make([]Decoration, 0, len(decs))
	for _, d := range decs {
		if d.Line >= 1 && d.Line <= lineCount {
			kept = append(kept, d)
		}
	}
	e.decorations = kept
}

// Decorations returns the currently applied decorations.
func (e *Editor) Decorations() []Decoration {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Decoration, len(e.decorations))
	copy(out, e.decorations)
	return out
}

// ClearDecorations drops every decoration.
func (e *Editor) ClearDecorations() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.decorations = nil
}

// ScrollTo requests the widget bring a line into view. No-op when the
// editor is closed or the line is out of range.
func (e *Editor) ScrollTo(line int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.alive || line < 1 {
		return
	}
	e.scrollLine = line
}

// ScrollLine returns the last scroll-into-view target.
func (e *Editor) ScrollLine() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scrollLine
}

func (e *Editor) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alive = false
	e.decorations = nil
}

// Host is the registry of open editors, keyed by path. One editor per
// path; opening an already open path returns the existing instance.
type Host struct {
	mu      sync.RWMutex
	editors map[string]*Editor
}

// NewHost creates an empty editor registry.
func NewHost() *Host {
	return &Host{editors: make(map[string]*Editor)}
}

// Open creates (or returns) the editor for path, seeded with content.
func (h *Host) Open(path, content string) *Editor {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.editors[path]; ok && e.Alive() {
		return e
	}
	e := &Editor{
		path:    path,
		content: content,
		buffer:  vbuffer.New(path, content),
		alive:   true,
	}
	h.editors[path] = e
	return e
}

// Lookup returns the live editor for path, or nil. Callers must treat
// nil as "tab closed" and skip widget side effects.
func (h *Host) Lookup(path string) *Editor {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.editors[path]
	if !ok || !e.Alive() {
		return nil
	}
	return e
}

// Close destroys the editor for path; its virtual buffer dies with it.
func (h *Host) Close(path string) {
	h.mu.Lock()
	e, ok := h.editors[path]
	delete(h.editors, path)
	h.mu.Unlock()
	if ok {
		e.close()
	}
}

// Paths returns the paths with live editors.
func (h *Host) Paths() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.editors))
	for p, e := range h.editors {
		if e.Alive() {
			out = append(out, p)
		}
	}
	return out
}
