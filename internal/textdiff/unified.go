package textdiff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Unified renders a unified-style preview of a whole-file change. This is
// presentation only; the decoration placement contract stays with Compute.
func Unified(oldText, newText, path string) string {
	if oldText == "" && newText != "" {
		return fmt.Sprintf("new file: %s\n\n%s", path, prefixLines(newText, "+"))
	}
	if newText == "" && oldText != "" {
		return fmt.Sprintf("deleted file: %s\n\n%s", path, prefixLines(oldText, "-"))
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("--- a/%s\n+++ b/%s\n", path, path))
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			sb.WriteString(prefixLines(d.Text, "+"))
		case diffmatchpatch.DiffDelete:
			sb.WriteString(prefixLines(d.Text, "-"))
		case diffmatchpatch.DiffEqual:
			sb.WriteString(prefixLines(d.Text, " "))
		}
	}
	return sb.String()
}

func prefixLines(text, prefix string) string {
	trailing := strings.HasSuffix(text, "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(prefix)
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	out := sb.String()
	if !trailing {
		out = strings.TrimSuffix(out, "\n")
	}
	return out
}
