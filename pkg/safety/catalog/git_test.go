package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// commitFile writes content to name inside the repository and commits it.
func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := worktree.Add(name); err != nil {
		t.Fatalf("failed to add file: %v", err)
	}
	_, err = worktree.Commit("update "+name, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func currentBranch(t *testing.T, repo *gogit.Repository) string {
	t.Helper()
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("failed to get HEAD: %v", err)
	}
	return head.Name().Short()
}

func TestNewGitSource_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  GitConfig
	}{
		{"missing repository", GitConfig{Branch: "main", Path: "catalog.yaml"}},
		{"missing branch", GitConfig{Repository: "https://example.com/r.git", Path: "catalog.yaml"}},
		{"missing path", GitConfig{Repository: "https://example.com/r.git", Branch: "main"}},
		{"token without token", GitConfig{Repository: "r", Branch: "main", Path: "c", Auth: GitAuth{Type: "token"}}},
		{"unknown auth", GitConfig{Repository: "r", Branch: "main", Path: "c", Auth: GitAuth{Type: "kerberos"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGitSource(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGitSource_CloneAndPoll(t *testing.T) {
	ctx := context.Background()

	upstreamDir := t.TempDir()
	upstream, err := gogit.PlainInit(upstreamDir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	commitFile(t, upstream, upstreamDir, "policies/catalog.yaml", validDocument)

	source, err := NewGitSource(GitConfig{
		Repository: upstreamDir,
		Branch:     currentBranch(t, upstream),
		Path:       "policies/catalog.yaml",
		LocalPath:  filepath.Join(t.TempDir(), "clone"),
		Timeout:    10 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewGitSource failed: %v", err)
	}

	m, err := NewManager(ctx, source)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if m.Current().Version() != "1.2.0" {
		t.Fatalf("expected version 1.2.0, got %s", m.Current().Version())
	}

	poller := NewGitPoller(source, m, time.Hour)

	// Unrelated change: no reload.
	commitFile(t, upstream, upstreamDir, "README.md", "docs")
	reloaded, err := poller.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if reloaded {
		t.Error("expected no reload for unrelated change")
	}

	// Catalog change: reload.
	commitFile(t, upstream, upstreamDir, "policies/catalog.yaml",
		strings.Replace(validDocument, "1.2.0", "1.3.0", 1))
	reloaded, err = poller.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !reloaded {
		t.Error("expected reload for catalog change")
	}
	if m.Current().Version() != "1.3.0" {
		t.Errorf("expected version 1.3.0, got %s", m.Current().Version())
	}

	if _, err := source.Head(); err != nil {
		t.Errorf("Head failed: %v", err)
	}
}

func TestGitPoller_StartStop(t *testing.T) {
	source, err := NewGitSource(GitConfig{Repository: "r", Branch: "main", Path: "c"})
	if err != nil {
		t.Fatalf("NewGitSource failed: %v", err)
	}
	poller := NewGitPoller(source, NewStaticManager(nil), time.Hour)

	if err := poller.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := poller.Start(context.Background()); err == nil {
		t.Error("expected error starting twice")
	}
	poller.Stop()
	poller.Stop()
}
