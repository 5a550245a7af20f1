package vbuffer

import (
	"testing"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/change"
)

func TestSetBaseContentPrecedence(t *testing.T) {
	testCases := []struct {
		name     string
		origin   Origin
		wantBase string
	}{
		{"user origin keeps live edits", OriginUser, "original"},
		{"external origin adopts new content", OriginExternal, "from disk"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := New("a.go", "original")
			b.SetLiveContent("original with typing")
			if !b.Dirty() {
				t.Fatal("expected dirty buffer after live edit")
			}

			b.SetBaseContent("from disk", tc.origin)
			if got := b.BaseContent(); got != tc.wantBase {
				t.Errorf("BaseContent() = %q, want %q", got, tc.wantBase)
			}
			if tc.origin == OriginExternal && b.Dirty() {
				t.Error("external reload should clear the dirty flag")
			}
			if tc.origin == OriginUser && !b.Dirty() {
				t.Error("user-origin replacement must not discard live edits")
			}
		})
	}
}

func TestSetBaseContentCleanBuffer(t *testing.T) {
	b := New("a.go", "v1")
	b.SetBaseContent("v2", OriginUser)
	if b.BaseContent() != "v2" {
		t.Errorf("clean buffer should adopt content regardless of origin, got %q", b.BaseContent())
	}
}

func TestMarkSaved(t *testing.T) {
	b := New("a.go", "v1")
	b.SetLiveContent("v2")
	b.MarkSaved()
	if b.Dirty() {
		t.Error("saved buffer should not be dirty")
	}
	if b.BaseContent() != "v2" {
		t.Errorf("BaseContent() = %q, want v2", b.BaseContent())
	}
}

func TestHunkPreview(t *testing.T) {
	b := New("a.go", "one\ntwo\nthree")
	h := change.Hunk{OldText: "two", NewText: "TWO"}

	b.ApplyHunkPreview(h)
	if got := b.EffectiveContent(); got != "one\nTWO\nthree" {
		t.Errorf("EffectiveContent() = %q", got)
	}

	// Applying the same hunk twice must not double-substitute.
	b.ApplyHunkPreview(h)
	if got := b.EffectiveContent(); got != "one\nTWO\nthree" {
		t.Errorf("duplicate preview changed content: %q", got)
	}

	b.ClearHunkPreview(h)
	if got := b.EffectiveContent(); got != "one\ntwo\nthree" {
		t.Errorf("after clear EffectiveContent() = %q", got)
	}
}

func TestPreviewBaseReplacementClearsHunks(t *testing.T) {
	b := New("a.go", "one\ntwo")
	b.ApplyHunkPreview(change.Hunk{OldText: "two", NewText: "2"})
	b.SetBaseContent("fresh", OriginExternal)
	if got := b.EffectiveContent(); got != "fresh" {
		t.Errorf("EffectiveContent() = %q, want %q", got, "fresh")
	}
}

func TestFold(t *testing.T) {
	doc := "alpha\nbeta\ngamma\ndelta"

	testCases := []struct {
		name string
		hunk change.Hunk
		want string
	}{
		{
			name: "text search",
			hunk: change.Hunk{OldText: "beta", NewText: "BETA"},
			want: "alpha\nBETA\ngamma\ndelta",
		},
		{
			name: "line anchored",
			hunk: change.Hunk{OldText: "gamma", NewText: "g1\ng2", StartLine: 3, EndLine: 3},
			want: "alpha\nbeta\ng1\ng2\ndelta",
		},
		{
			name: "out of range anchor falls back to search",
			hunk: change.Hunk{OldText: "delta", NewText: "DELTA", StartLine: 40, EndLine: 41},
			want: "alpha\nbeta\ngamma\nDELTA",
		},
		{
			name: "missing old text leaves content unchanged",
			hunk: change.Hunk{OldText: "omega", NewText: "OMEGA"},
			want: doc,
		},
		{
			name: "pure insertion before line",
			hunk: change.Hunk{NewText: "zero", StartLine: 1},
			want: "zero\nalpha\nbeta\ngamma\ndelta",
		},
		{
			name: "deletion",
			hunk: change.Hunk{OldText: "beta", NewText: "", StartLine: 2, EndLine: 2},
			want: "alpha\ngamma\ndelta",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Fold(doc, tc.hunk); got != tc.want {
				t.Errorf("Fold() = %q, want %q", got, tc.want)
			}
		})
	}
}
