package gitpanel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestLoadNonRepository(t *testing.T) {
	s, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.IsGitRepo {
		t.Error("plain directory reported as a git repository")
	}
	if !s.IsClean {
		t.Error("non-repository should report clean")
	}
}

func TestLoadDirtyAndCleanStates(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "a.rs"), []byte("fn a(){}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !s.IsGitRepo || s.IsClean {
		t.Fatalf("expected a dirty repository, got %+v", s)
	}
	if s.UntrackedCount != 1 {
		t.Errorf("untracked count = %d", s.UntrackedCount)
	}
	if len(s.Files) != 1 || s.Files[0].Status != "untracked" {
		t.Errorf("files = %+v", s.Files)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("a.rs"); err != nil {
		t.Fatal(err)
	}
	sig := &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()}
	if _, err := wt.Commit("initial", &git.CommitOptions{Author: sig}); err != nil {
		t.Fatal(err)
	}

	s, err = Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !s.IsClean {
		t.Errorf("committed repository should be clean, got %+v", s)
	}
	if s.CurrentBranch == "" {
		t.Error("branch name missing after first commit")
	}
}

func TestLoadModifiedFile(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.rs"), []byte("one\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("a.rs"); err != nil {
		t.Fatal(err)
	}
	sig := &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()}
	if _, err := wt.Commit("initial", &git.CommitOptions{Author: sig}); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "a.rs"), []byte("two\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.ModifiedCount != 1 {
		t.Errorf("modified count = %d, summary %+v", s.ModifiedCount, s)
	}
	if s.Files[0].Status != "modified" {
		t.Errorf("status = %q", s.Files[0].Status)
	}
}
