package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// GitAuth selects how the catalog repository is accessed.
type GitAuth struct {
	// Type is "token", "ssh" or "none".
	Type string

	Token         string
	SSHKeyPath    string
	SSHPassphrase string
}

// Method returns the go-git transport auth for a.
func (a GitAuth) Method() (transport.AuthMethod, error) {
	switch a.Type {
	case "", "none":
		return nil, nil
	case "token":
		if a.Token == "" {
			return nil, fmt.Errorf("token auth requires a token")
		}
		return &http.BasicAuth{Username: "git", Password: a.Token}, nil
	case "ssh":
		if a.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth requires a key path")
		}
		info, err := os.Stat(a.SSHKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to access SSH key file: %w", err)
		}
		if mode := info.Mode().Perm(); mode&0077 != 0 {
			return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
		}
		keys, err := ssh.NewPublicKeysFromFile("git", a.SSHKeyPath, a.SSHPassphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key: %w", err)
		}
		return keys, nil
	default:
		return nil, fmt.Errorf("unknown git auth type: %s", a.Type)
	}
}

// GitConfig locates a catalog document inside a git repository.
type GitConfig struct {
	// Repository is the clone URL or a local path.
	Repository string

	// Branch is checked out and pulled.
	Branch string

	// Path is the catalog file relative to the repository root.
	Path string

	// LocalPath is where the repository is cloned.
	LocalPath string

	// Timeout bounds each clone or pull.
	Timeout time.Duration

	Auth GitAuth
}

// GitSource reads the catalog from a git working tree.
type GitSource struct {
	cfg  GitConfig
	auth transport.AuthMethod

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGitSource validates cfg. Call Clone before Load.
func NewGitSource(cfg GitConfig) (*GitSource, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("catalog path cannot be empty")
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = filepath.Join(os.TempDir(), "vigil-catalog")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	auth, err := cfg.Auth.Method()
	if err != nil {
		return nil, fmt.Errorf("failed to create git auth: %w", err)
	}

	return &GitSource{cfg: cfg, auth: auth}, nil
}

// Clone opens an existing clone at LocalPath or clones the repository.
func (s *GitSource) Clone(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(filepath.Join(s.cfg.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.cfg.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo: %w", err)
		}
		s.repo = repo
		return nil
	}

	if err := os.MkdirAll(s.cfg.LocalPath, 0755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, s.cfg.LocalPath, false, &gogit.CloneOptions{
		URL:           s.cfg.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Auth:          s.auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	s.repo = repo
	return nil
}

// Pull fetches the branch and reports whether the catalog file changed.
func (s *GitSource) Pull(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return false, fmt.Errorf("repository not initialized, call Clone first")
	}

	before, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get HEAD: %w", err)
	}

	worktree, err := s.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Auth:          s.auth,
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return false, fmt.Errorf("failed to pull: %w", err)
	}

	after, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get new HEAD: %w", err)
	}
	if before.Hash() == after.Hash() {
		return false, nil
	}

	return s.catalogChanged(before.Hash(), after.Hash())
}

func (s *GitSource) catalogChanged(from, to plumbing.Hash) (bool, error) {
	fromCommit, err := s.repo.CommitObject(from)
	if err != nil {
		return false, fmt.Errorf("failed to get from commit: %w", err)
	}
	toCommit, err := s.repo.CommitObject(to)
	if err != nil {
		return false, fmt.Errorf("failed to get to commit: %w", err)
	}
	fromTree, err := fromCommit.Tree()
	if err != nil {
		return false, fmt.Errorf("failed to get from tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return false, fmt.Errorf("failed to get to tree: %w", err)
	}
	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return false, fmt.Errorf("failed to diff trees: %w", err)
	}

	target := filepath.ToSlash(filepath.Clean(s.cfg.Path))
	for _, change := range changes {
		if change.To.Name == target || change.From.Name == target {
			return true, nil
		}
	}
	return false, nil
}

// Head returns the commit currently checked out.
func (s *GitSource) Head() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return "", fmt.Errorf("repository not initialized, call Clone first")
	}
	ref, err := s.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// Load parses the catalog file from the working tree.
func (s *GitSource) Load(ctx context.Context) (*Catalog, error) {
	s.mu.Lock()
	initialized := s.repo != nil
	s.mu.Unlock()

	if !initialized {
		if err := s.Clone(ctx); err != nil {
			return nil, err
		}
	}

	path := filepath.Join(s.cfg.LocalPath, s.cfg.Path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog from repository: %w", err)
	}
	return Parse(s.Name(), data)
}

// Name identifies the repository, branch and path.
func (s *GitSource) Name() string {
	return fmt.Sprintf("git:%s@%s:%s", s.cfg.Repository, s.cfg.Branch, s.cfg.Path)
}

// GitPoller pulls a GitSource periodically and reloads the manager when the
// catalog file changes.
type GitPoller struct {
	source   *GitSource
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewGitPoller creates a poller. The manager should have been created with
// source so that Reload reads the pulled working tree.
func NewGitPoller(source *GitSource, manager *Manager, interval time.Duration) *GitPoller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &GitPoller{
		source:   source,
		manager:  manager,
		interval: interval,
		logger:   slog.Default().With("component", "safety.catalog.git"),
	}
}

// Start launches the polling loop. It returns an error if already running.
func (p *GitPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("poller already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.loop(ctx)

	p.logger.Info("catalog git poller started",
		"source", p.source.Name(),
		"interval", p.interval)
	return nil
}

// Stop ends the polling loop and waits for it to exit.
func (p *GitPoller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	done := p.doneCh
	p.mu.Unlock()

	<-done
}

func (p *GitPoller) loop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if _, err := p.Poll(ctx); err != nil {
				p.logger.Error("catalog poll failed", "error", err)
			}
		}
	}
}

// Poll pulls once and reloads when the catalog file changed. It reports
// whether a reload happened.
func (p *GitPoller) Poll(ctx context.Context) (bool, error) {
	changed, err := p.source.Pull(ctx)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	if _, err := p.manager.Reload(ctx); err != nil {
		return false, err
	}
	return true, nil
}
