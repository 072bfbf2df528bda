package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/stacklok/osb-git-store/internal/telemetry"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks -source=repository.go Repository

// Repository is a local working copy kept in sync with a shared remote.
// It is the only component that manages version control state; callers
// only read and write files below Root.
type Repository interface {
	// Root returns the directory of the working copy
	Root() string

	// Lock serializes mutating operations on the working copy across
	// goroutines and processes. The returned function releases the lock.
	Lock(ctx context.Context) (func(), error)

	// Pull updates the working copy from the remote, fast-forward first and
	// rebasing local commits when histories diverged. Fails with *SyncError.
	Pull(ctx context.Context) error

	// Commit stages every change in the working copy and commits it. It is a
	// no-op when the working tree matches the last commit.
	Commit(ctx context.Context, message string) error

	// Push publishes local commits. A rejected push is followed by exactly one
	// Pull and one retry. Fails with *PushError.
	Push(ctx context.Context) error

	// LastCommitMessage returns the message of the commit HEAD points at
	LastCommitMessage() (string, error)
}

// Option configures a Repository
type Option func(*syncedRepository)

// WithMetrics sets the repository metrics
func WithMetrics(metrics *telemetry.RepositoryMetrics) Option {
	return func(r *syncedRepository) {
		r.metrics = metrics
	}
}

// syncedRepository implements Repository using go-git
type syncedRepository struct {
	repo       *git.Repository
	root       string
	remoteURL  string
	remoteName string
	branch     string
	auth       transport.AuthMethod
	author     Signature
	timeout    time.Duration
	lock       *workingCopyLock
	metrics    *telemetry.RepositoryMetrics
}

// Open opens the working copy at cfg.LocalPath. When no repository exists
// there it is cloned from cfg.RemoteURL, or initialized empty in local-only mode.
func Open(ctx context.Context, cfg *Config, opts ...Option) (Repository, error) {
	if cfg == nil || cfg.LocalPath == "" {
		return nil, fmt.Errorf("local path is required")
	}

	auth, err := cfg.Auth.authMethod()
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local path %s: %w", cfg.LocalPath, err)
	}

	repo, err := openOrClone(ctx, cfg, root, auth)
	if err != nil {
		return nil, err
	}

	branch, err := resolveBranch(repo, cfg.Branch)
	if err != nil {
		return nil, err
	}

	if cfg.RemoteURL != "" {
		if err := ensureRemote(repo, cfg.remoteName(), cfg.RemoteURL); err != nil {
			return nil, err
		}
	}

	r := &syncedRepository{
		repo:       repo,
		root:       root,
		remoteURL:  cfg.RemoteURL,
		remoteName: cfg.remoteName(),
		branch:     branch,
		auth:       auth,
		author:     cfg.Author,
		timeout:    cfg.timeout(),
		lock:       newWorkingCopyLock(filepath.Join(root, git.GitDirName)),
	}
	for _, opt := range opts {
		opt(r)
	}

	slog.InfoContext(ctx, "Opened working copy",
		"path", root, "branch", branch, "remote", cfg.RemoteURL)
	return r, nil
}

func openOrClone(ctx context.Context, cfg *Config, root string, auth transport.AuthMethod) (*git.Repository, error) {
	repo, err := git.PlainOpen(root)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("failed to open working copy %s: %w", root, err)
	}

	if cfg.RemoteURL == "" {
		slog.InfoContext(ctx, "No remote configured, initializing local-only working copy", "path", root)
		return initRepository(root, cfg.Branch)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	cloneOptions := &git.CloneOptions{
		URL:        cfg.RemoteURL,
		RemoteName: cfg.remoteName(),
		Auth:       auth,
	}
	if cfg.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(cfg.Branch)
		cloneOptions.SingleBranch = true
	}

	slog.InfoContext(ctx, "Cloning remote repository", "url", cfg.RemoteURL, "path", root)
	repo, err = git.PlainCloneContext(cloneCtx, root, false, cloneOptions)
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		slog.InfoContext(ctx, "Remote repository is empty, initializing working copy", "url", cfg.RemoteURL)
		return initRepository(root, cfg.Branch)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository %s: %w", cfg.RemoteURL, err)
	}
	return repo, nil
}

func initRepository(root, branch string) (*git.Repository, error) {
	initOptions := &git.PlainInitOptions{}
	if branch != "" {
		initOptions.InitOptions.DefaultBranch = plumbing.NewBranchReferenceName(branch)
	}

	repo, err := git.PlainInitWithOptions(root, initOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository %s: %w", root, err)
	}
	return repo, nil
}

// resolveBranch returns the branch HEAD points at, checking it against the configured one
func resolveBranch(repo *git.Repository, configured string) (string, error) {
	head, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return "", fmt.Errorf("working copy HEAD is detached at %s", head.Hash())
	}

	current := head.Target().Short()
	if configured != "" && configured != current {
		return "", fmt.Errorf("working copy is on branch %q, expected %q", current, configured)
	}
	return current, nil
}

func ensureRemote(repo *git.Repository, name, url string) error {
	_, err := repo.Remote(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, git.ErrRemoteNotFound) {
		return fmt.Errorf("failed to read remote %s: %w", name, err)
	}

	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to create remote %s: %w", name, err)
	}
	return nil
}

// ScratchDir returns the directory inside the .git directory of the working
// copy at root where temporary files can live without being staged
func ScratchDir(root string) string {
	return filepath.Join(root, git.GitDirName, ScratchDirName)
}

// Root returns the directory of the working copy
func (r *syncedRepository) Root() string {
	return r.root
}

// Lock serializes mutating operations on the working copy
func (r *syncedRepository) Lock(ctx context.Context) (func(), error) {
	return r.lock.acquire(ctx)
}

// Pull updates the working copy from the remote
func (r *syncedRepository) Pull(ctx context.Context) error {
	if r.remoteURL == "" {
		slog.DebugContext(ctx, "No remote configured, skipping pull")
		return nil
	}

	err := r.pullFastForward(ctx)
	switch {
	case err == nil:
		r.metrics.RecordPull(ctx, telemetry.PullModeFastForward, true)
		slog.DebugContext(ctx, "Fast-forwarded working copy", "branch", r.branch)
		return nil
	case errors.Is(err, git.NoErrAlreadyUpToDate),
		errors.Is(err, transport.ErrEmptyRemoteRepository),
		errors.Is(err, plumbing.ErrReferenceNotFound):
		r.metrics.RecordPull(ctx, telemetry.PullModeFastForward, true)
		slog.DebugContext(ctx, "Working copy already up to date", "branch", r.branch)
		return nil
	case !errors.Is(err, git.ErrNonFastForwardUpdate):
		r.metrics.RecordPull(ctx, telemetry.PullModeFastForward, false)
		return &SyncError{Err: err}
	}

	slog.InfoContext(ctx, "Histories diverged, rebasing local commits", "branch", r.branch)
	if err := r.pullRebase(ctx); err != nil {
		r.metrics.RecordPull(ctx, telemetry.PullModeRebase, false)
		return &SyncError{Err: err}
	}
	r.metrics.RecordPull(ctx, telemetry.PullModeRebase, true)
	return nil
}

func (r *syncedRepository) pullFastForward(ctx context.Context) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    r.remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(r.branch),
		Auth:          r.auth,
	})
}

// Commit stages every change and commits it if the tree differs from HEAD
func (r *syncedRepository) Commit(ctx context.Context, message string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		slog.DebugContext(ctx, "Nothing to commit", "message", message)
		return nil
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: r.author.toObject(),
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	slog.InfoContext(ctx, "Committed changes", "commit", hash.String(), "files", len(status), "message", message)
	return nil
}

// Push publishes local commits, retrying once after a pull when rejected
func (r *syncedRepository) Push(ctx context.Context) error {
	if r.remoteURL == "" {
		slog.DebugContext(ctx, "No remote configured, skipping push")
		return nil
	}

	if _, err := r.repo.Head(); errors.Is(err, plumbing.ErrReferenceNotFound) {
		slog.DebugContext(ctx, "No commits yet, nothing to push")
		return nil
	}

	err := r.push(ctx)
	if err == nil {
		return nil
	}
	if !isRejected(err) {
		return &PushError{Err: err}
	}

	slog.InfoContext(ctx, "Push rejected, pulling and retrying once", "branch", r.branch, "reason", err.Error())
	r.metrics.RecordPushRetry(ctx)

	if err := r.Pull(ctx); err != nil {
		return &PushError{Err: err}
	}

	if err := r.push(ctx); err != nil {
		if isRejected(err) {
			err = fmt.Errorf("%w: %w", ErrPushRejected, err)
		}
		return &PushError{Err: err}
	}
	return nil
}

func (r *syncedRepository) push(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ref := plumbing.NewBranchReferenceName(r.branch)
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: r.remoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("%s:%s", ref, ref))},
		Auth:       r.auth,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Pushed to remote", "remote", r.remoteName, "branch", r.branch)
	return nil
}

// LastCommitMessage returns the message of the commit HEAD points at
func (r *syncedRepository) LastCommitMessage() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("failed to get commit object: %w", err)
	}

	return strings.TrimRight(commit.Message, "\n"), nil
}
