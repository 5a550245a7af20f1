// Package textdiff computes the line-level added/removed ranges used to
// place diff decorations. It is deliberately not a minimal-edit-distance
// diff: hunks arrive as small, pre-isolated edit regions, so membership
// per unique line content is enough. Repeated identical lines inside one
// hunk are over-counted as changed; that approximation is accepted.
package textdiff

import (
	"strings"
)

// LineRange is a 1-based inclusive range of lines.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Result holds the line ranges that differ between two text blobs.
// Added ranges are numbered against the new text, removed ranges against
// the old text. All line numbers are 1-based.
type Result struct {
	Added   []LineRange `json:"added"`
	Removed []LineRange `json:"removed"`
}

// Empty reports whether the texts compared identical.
func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0
}

// Compute returns the added and removed line ranges between oldText and
// newText.
func Compute(oldText, newText string) Result {
	if oldText == newText {
		return Result{}
	}

	oldLines := splitLines(oldText)
	newLines := splitLines(newText)

	oldSet := make(map[string]struct{}, len(oldLines))
	for _, l := range oldLines {
		oldSet[l] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(newLines))
	for _, l := range newLines {
		newSet[l] = struct{}{}
	}

	var added, removed []int
	for i, l := range newLines {
		if _, ok := oldSet[l]; !ok {
			added = append(added, i+1)
		}
	}
	for i, l := range oldLines {
		if _, ok := newSet[l]; !ok {
			removed = append(removed, i+1)
		}
	}

	return Result{
		Added:   coalesce(added),
		Removed: coalesce(removed),
	}
}

// Lines returns the first and last affected line numbers across both
// sides of the diff, for scroll-into-view targeting. ok is false when
// the texts are identical.
func Lines(oldText, newText string) (first, last int, ok bool) {
	res := Compute(oldText, newText)
	if res.Empty() {
		return 0, 0, false
	}
	first, last = 0, 0
	for _, r := range append(append([]LineRange{}, res.Added...), res.Removed...) {
		if first == 0 || r.Start < first {
			first = r.Start
		}
		if r.End > last {
			last = r.End
		}
	}
	return first, last, true
}

// Locate finds the 1-based line at which needle starts inside doc. Used
// to anchor hunks that carry no explicit line range. ok is false when the
// needle does not occur; callers degrade to an unanchored block.
func Locate(doc, needle string) (startLine int, ok bool) {
	if needle == "" {
		return 0, false
	}
	idx := strings.Index(doc, needle)
	if idx < 0 {
		return 0, false
	}
	return strings.Count(doc[:idx], "\n") + 1, true
}

// coalesce turns a sorted list of line numbers into inclusive ranges.
func coalesce(lines []int) []LineRange {
	if len(lines) == 0 {
		return nil
	}
	ranges := []LineRange{{Start: lines[0], End: lines[0]}}
	for _, n := range lines[1:] {
		cur := &ranges[len(ranges)-1]
		if n == cur.End+1 {
			cur.End = n
			continue
		}
		ranges = append(ranges, LineRange{Start: n, End: n})
	}
	return ranges
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}
