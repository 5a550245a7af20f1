// Package gitpanel summarizes the workspace's git state for the status
// surface: current branch, dirty files, a clean flag. Read-only; the
// panel never mutates the repository.
package gitpanel

import (
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
)

// FileStatus is the git status of one file.
type FileStatus struct {
	Path     string `json:"path"`
	Status   string `json:"status"`
	Staged   bool   `json:"staged"`
	WorkTree bool   `json:"work_tree"`
}

// Summary is the overall repository status shown in the panel.
type Summary struct {
	IsGitRepo      bool         `json:"is_git_repo"`
	CurrentBranch  string       `json:"current_branch"`
	Files          []FileStatus `json:"files"`
	StagedCount    int          `json:"staged_count"`
	ModifiedCount  int          `json:"modified_count"`
	UntrackedCount int          `json:"untracked_count"`
	IsClean        bool         `json:"is_clean"`
}

// Load reads the repository state at workspacePath. A workspace that is
// not a git repository yields a Summary with IsGitRepo false, not an
// error.
func Load(workspacePath string) (*Summary, error) {
	repo, err := git.PlainOpenWithOptions(workspacePath, &git.PlainOpenOptions{DetectDotGit: true})
	if err == git.ErrRepositoryNotExists {
		return &Summary{IsGitRepo: false, IsClean: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	s := &Summary{IsGitRepo: true}

	if head, err := repo.Head(); err == nil {
		if head.Name().IsBranch() {
			s.CurrentBranch = head.Name().Short()
		} else {
			s.CurrentBranch = head.Hash().String()[:7]
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}

	for path, st := range status {
		fs := FileStatus{
			Path:     path,
			Status:   describe(st),
			Staged:   st.Staging != git.Unmodified && st.Staging != git.Untracked,
			WorkTree: st.Worktree != git.Unmodified,
		}
		s.Files = append(s.Files, fs)
		if fs.Staged {
			s.StagedCount++
		}
		switch st.Worktree {
		case git.Untracked:
			s.UntrackedCount++
		case git.Modified, git.Deleted, git.Renamed, git.Copied:
			s.ModifiedCount++
		}
	}
	sort.Slice(s.Files, func(i, j int) bool { return s.Files[i].Path < s.Files[j].Path })
	s.IsClean = len(s.Files) == 0
	return s, nil
}

func describe(st *git.FileStatus) string {
	code := st.Worktree
	if code == git.Unmodified {
		code = st.Staging
	}
	switch code {
	case git.Untracked:
		return "untracked"
	case git.Modified:
		return "modified"
	case git.Added:
		return "added"
	case git.Deleted:
		return "deleted"
	case git.Renamed:
		return "renamed"
	case git.Copied:
		return "copied"
	case git.UpdatedButUnmerged:
		return "conflict"
	default:
		return "unmodified"
	}
}
