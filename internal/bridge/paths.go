package bridge

import (
	"path/filepath"
	"strings"
)

// workspaceRoot, once set, lets NormalizePath reduce absolute backend
// paths to the workspace-relative form the frontend keys its state by.
var workspaceRoot string

// SetWorkspaceRoot declares the canonical workspace root for path
// normalization at the bridge boundary.
func SetWorkspaceRoot(root string) {
	workspaceRoot = filepath.Clean(root)
}

// NormalizePath reduces a backend-reported path to the slash-separated,
// workspace-relative form used as a state key. Paths outside the
// workspace keep their absolute form; the tracker's suffix match covers
// the remaining relative/absolute mismatches.
func NormalizePath(p string) string {
	if p == "" {
		return p
	}
	p = filepath.ToSlash(filepath.Clean(p))
	if workspaceRoot != "" {
		root := filepath.ToSlash(workspaceRoot)
		if strings.HasPrefix(p, root+"/") {
			return strings.TrimPrefix(p, root+"/")
		}
		if p == root {
			return "."
		}
	}
	return p
}
