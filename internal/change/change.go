// Package change defines the proposal model for AI-suggested edits: a
// tagged union over whole-file patches, multi-hunk patches, file
// creations and file deletions. The model is pure data; applying a
// proposal is the backend's job.
package change

// Kind discriminates the proposal variants.
type Kind string

const (
	KindPatch      Kind = "patch"
	KindMultiPatch Kind = "multi_patch"
	KindNewFile    Kind = "new_file"
	KindDeleteFile Kind = "delete_file"
)

// Hunk is one contiguous edit region inside a MultiPatch. Line numbers
// are 1-based and optional; a hunk with no line anchor is located by
// searching for OldText in the document.
type Hunk struct {
	OldText   string `json:"old_text"`
	NewText   string `json:"new_text"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

// Change is one proposed edit. ID is globally unique and stable for the
// proposal's lifetime; Path never changes after creation.
type Change struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Kind Kind   `json:"type"`

	// KindPatch: whole-file old/new text.
	OldContent string `json:"old_content,omitempty"`
	NewContent string `json:"new_content,omitempty"`

	// KindMultiPatch: the hunks apply atomically as a set.
	Hunks []Hunk `json:"patches,omitempty"`

	// KindNewFile: initial file content.
	Content string `json:"content,omitempty"`

	// Set once the backend has written the change to disk.
	Applied bool   `json:"applied,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PatchCount returns the number of individually resolvable hunks: 0 for
// file creation/deletion, 1 for a whole-file patch, len(patches) for a
// multi-hunk patch.
func (c *Change) PatchCount() int {
	switch c.Kind {
	case KindPatch:
		return 1
	case KindMultiPatch:
		return len(c.Hunks)
	default:
		return 0
	}
}

// IsApplied reports whether the backend has written this change to disk.
func (c *Change) IsApplied() bool {
	return c.Applied
}

// Renderable reports whether the variant is well-formed enough to show.
// A malformed variant is a backend contract violation; it is refused for
// display rather than repaired.
func (c *Change) Renderable() bool {
	if c.ID == "" || c.Path == "" {
		return false
	}
	switch c.Kind {
	case KindPatch, KindNewFile, KindDeleteFile:
		return true
	case KindMultiPatch:
		return len(c.Hunks) > 0
	default:
		return false
	}
}
