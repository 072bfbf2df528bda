package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// pullRebase replays the local commits that are not on the remote branch on
// top of the remote tip. A commit touching a file that changed differently on
// the remote aborts the rebase and restores the original HEAD.
func (r *syncedRepository) pullRebase(ctx context.Context) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if !status.IsClean() {
		return ErrDirtyWorkingCopy
	}

	if err := r.fetch(ctx); err != nil {
		return err
	}

	remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName(r.remoteName, r.branch), true)
	if err != nil {
		return fmt.Errorf("failed to resolve remote branch %s/%s: %w", r.remoteName, r.branch, err)
	}
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	local, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return fmt.Errorf("failed to get local commit: %w", err)
	}
	remote, err := r.repo.CommitObject(remoteRef.Hash())
	if err != nil {
		return fmt.Errorf("failed to get remote commit: %w", err)
	}

	bases, err := local.MergeBase(remote)
	if err != nil {
		return fmt.Errorf("failed to compute merge base: %w", err)
	}
	if len(bases) == 0 {
		return fmt.Errorf("%w: no common history with %s", ErrConflict, remoteRef.Name().Short())
	}

	pending, err := commitsSince(local, bases[0].Hash)
	if err != nil {
		return err
	}

	if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: remote.Hash}); err != nil {
		return fmt.Errorf("failed to reset to remote tip: %w", err)
	}

	for _, commit := range pending {
		if err := r.replay(ctx, wt, commit); err != nil {
			if resetErr := wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: head.Hash()}); resetErr != nil {
				slog.ErrorContext(ctx, "Failed to restore working copy after aborted rebase", "error", resetErr, "commit", head.Hash().String())
			}
			return err
		}
	}

	slog.InfoContext(ctx, "Rebased local commits onto remote", "commits", len(pending), "onto", remote.Hash.String())
	return nil
}

func (r *syncedRepository) fetch(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	refSpec := fmt.Sprintf("+%s:%s",
		plumbing.NewBranchReferenceName(r.branch),
		plumbing.NewRemoteReferenceName(r.remoteName, r.branch))

	err := r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: r.remoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(refSpec)},
		Auth:       r.auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to fetch from remote: %w", err)
	}
	return nil
}

// commitsSince returns the first-parent chain from tip back to base, oldest first
func commitsSince(tip *object.Commit, base plumbing.Hash) ([]*object.Commit, error) {
	var commits []*object.Commit
	for current := tip; current.Hash != base; {
		commits = append(commits, current)
		if current.NumParents() == 0 {
			return nil, fmt.Errorf("merge base %s is not a first-parent ancestor of %s", base, tip.Hash)
		}
		parent, err := current.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("failed to get parent of %s: %w", current.Hash, err)
		}
		current = parent
	}
	slices.Reverse(commits)
	return commits, nil
}

// replay applies the changes of commit on top of HEAD and commits them with the
// original author and message. Changes already present upstream are skipped.
func (r *syncedRepository) replay(ctx context.Context, wt *git.Worktree, commit *object.Commit) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return fmt.Errorf("failed to get parent of %s: %w", commit.Hash, err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return fmt.Errorf("failed to get tree of %s: %w", parent.Hash, err)
	}
	commitTree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("failed to get tree of %s: %w", commit.Hash, err)
	}

	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	headCommit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return fmt.Errorf("failed to get HEAD commit: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return fmt.Errorf("failed to get HEAD tree: %w", err)
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, commitTree, nil)
	if err != nil {
		return fmt.Errorf("failed to diff %s: %w", commit.Hash, err)
	}

	applied := 0
	for _, change := range changes {
		from, to, err := change.Files()
		if err != nil {
			return fmt.Errorf("failed to read change in %s: %w", commit.Hash, err)
		}

		path := change.To.Name
		if path == "" {
			path = change.From.Name
		}

		current, err := treeFile(headTree, path)
		if err != nil {
			return err
		}
		if sameFile(current, to) {
			continue
		}
		if !sameFile(current, from) {
			return fmt.Errorf("%w: %s changed on the remote and in local commit %s",
				ErrConflict, path, commit.Hash.String()[:7])
		}

		if err := applyChange(wt, path, to); err != nil {
			return err
		}
		applied++
	}

	if applied == 0 {
		slog.DebugContext(ctx, "Skipping commit already present on remote",
			"commit", commit.Hash.String())
		return nil
	}

	author := commit.Author
	_, err = wt.Commit(commit.Message, &git.CommitOptions{
		Author:    &author,
		Committer: r.author.toObject(),
	})
	if err != nil {
		return fmt.Errorf("failed to replay commit %s: %w", commit.Hash, err)
	}
	return nil
}

func treeFile(tree *object.Tree, path string) (*object.File, error) {
	file, err := tree.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return file, nil
}

func sameFile(a, b *object.File) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Hash == b.Hash && a.Mode == b.Mode
}

// applyChange makes path in the worktree match file, removing it when file is nil
func applyChange(wt *git.Worktree, path string, file *object.File) error {
	if file == nil {
		if _, err := wt.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		return nil
	}

	contents, err := file.Contents()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if file.Mode == filemode.Symlink {
		_ = wt.Filesystem.Remove(path)
		if err := wt.Filesystem.Symlink(contents, path); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	} else {
		perm, err := file.Mode.ToOSFileMode()
		if err != nil {
			return fmt.Errorf("failed to convert mode of %s: %w", path, err)
		}
		if err := util.WriteFile(wt.Filesystem, path, []byte(contents), perm.Perm()); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	if _, err := wt.Add(path); err != nil {
		return fmt.Errorf("failed to stage %s: %w", path, err)
	}
	return nil
}
