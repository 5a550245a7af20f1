// Package vbuffer keeps a per-open-file overlay between the last content
// the host set and the content the editor widget should display while a
// proposal is under review. It never writes to disk; the backend owns the
// authoritative apply.
package vbuffer

import (
	"strings"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/change"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/textdiff"
)

// Origin states who is replacing the base content. The precedence policy
// on unsaved live edits depends on it: a user-typing origin keeps the
// user's edits, a confirmed external change or accepted AI edit adopts
// the new content.
type Origin int

const (
	OriginUser Origin = iota
	OriginExternal
)

// Buffer is the virtual content layer for one open file. It is owned by
// the editor instance showing that file and dies with it.
type Buffer struct {
	path     string
	base     string
	previews []change.Hunk

	live      string
	liveDirty bool
}

// New creates a buffer seeded with the content read on file open.
func New(path, content string) *Buffer {
	return &Buffer{path: path, base: content, live: content}
}

// Path returns the file this buffer shadows.
func (b *Buffer) Path() string { return b.path }

// SetBaseContent replaces the reference content wholesale and clears any
// pending hunk previews. With unsaved live edits present, OriginUser
// keeps the live edits (the incoming content is discarded); OriginExternal
// adopts the incoming content and drops the live edits.
func (b *Buffer) SetBaseContent(content string, origin Origin) {
	b.previews = nil
	if b.liveDirty && origin == OriginUser {
		return
	}
	b.base = content
	b.live = content
	b.liveDirty = false
}

// BaseContent returns the last host-set reference content.
func (b *Buffer) BaseContent() string { return b.base }

// SetLiveContent records a keystroke-level edit of the editable widget.
// It does not touch the base content; only a save resets that.
func (b *Buffer) SetLiveContent(content string) {
	b.live = content
	b.liveDirty = content != b.base
}

// MarkSaved promotes the live content to the new base after a save event.
func (b *Buffer) MarkSaved() {
	b.base = b.live
	b.liveDirty = false
}

// Dirty reports whether the live buffer has unsaved edits.
func (b *Buffer) Dirty() bool { return b.liveDirty }

// ApplyHunkPreview folds one hunk into the displayed content without
// mutating the editable document. Applying the same hunk twice is a
// no-op.
func (b *Buffer) ApplyHunkPreview(h change.Hunk) {
	for _, p := range b.previews {
		if p == h {
			return
		}
	}
	b.previews = append(b.previews, h)
}

// ClearHunkPreview removes one hunk's visual presence.
func (b *Buffer) ClearHunkPreview(h change.Hunk) {
	for i, p := range b.previews {
		if p == h {
			b.previews = append(b.previews[:i], b.previews[i+1:]...)
			return
		}
	}
}

// ClearPreviews drops all pending hunk previews.
func (b *Buffer) ClearPreviews() {
	b.previews = nil
}

// EffectiveContent returns what the editor should show: the base content
// with the previewed hunks folded in, in apply order. A hunk whose old
// text no longer occurs in the folded content is skipped; the remaining
// hunks still apply.
func (b *Buffer) EffectiveContent() string {
	content := b.base
	for _, h := range b.previews {
		content = Fold(content, h)
	}
	return content
}

// Fold substitutes one hunk into content. An explicit line anchor wins
// over text search; out-of-range anchors fall back to the search. Content
// is returned unchanged when the hunk cannot be located.
func Fold(content string, h change.Hunk) string {
	if h.OldText == "" {
		// Pure insertion: anchor required.
		if h.StartLine < 1 {
			return content
		}
		return spliceLines(content, h.StartLine, h.StartLine-1, h.NewText)
	}

	if h.StartLine >= 1 && h.EndLine >= h.StartLine {
		lines := strings.Split(content, "\n")
		if h.EndLine <= len(lines) {
			return spliceLines(content, h.StartLine, h.EndLine, h.NewText)
		}
	}

	if _, ok := textdiff.Locate(content, h.OldText); ok {
		return strings.Replace(content, h.OldText, h.NewText, 1)
	}
	return content
}

// spliceLines replaces lines start..end (1-based inclusive) with text.
// end == start-1 inserts before start without removing anything.
func spliceLines(content string, start, end int, text string) string {
	lines := strings.Split(content, "\n")
	if start < 1 || start > len(lines)+1 || end > len(lines) {
		return content
	}
	out := make([]string, 0, len(lines))
	out = append(out, lines[:start-1]...)
	if text != "" {
		out = append(out, strings.Split(text, "\n")...)
	}
	if end >= start {
		out = append(out, lines[end:]...)
	} else {
		out = append(out, lines[start-1:]...)
	}
	return strings.Join(out, "\n")
}
