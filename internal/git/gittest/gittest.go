// Package gittest provides on-disk repositories for tests that exercise
// synchronization against a shared remote.
package gittest

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// Branch is the branch every fixture repository is created on
const Branch = "main"

// Author signs commits created by the fixtures
var Author = object.Signature{
	Name:  "Test Author",
	Email: "test@example.com",
}

// NewRemote creates a bare repository whose Branch holds one commit with files.
// It returns the path of the bare repository, usable as a remote URL.
func NewRemote(t testing.TB, files map[string]string) string {
	t.Helper()

	remote := NewEmptyRemote(t)

	seed := t.TempDir()
	repo, err := git.PlainInitWithOptions(seed, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(Branch)},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{remote},
	})
	require.NoError(t, err)

	if len(files) == 0 {
		files = map[string]string{"README.md": "# state\n"}
	}
	commit(t, repo, seed, "Initial commit", files)
	Push(t, seed)
	return remote
}

// NewEmptyRemote creates a bare repository without any commits
func NewEmptyRemote(t testing.TB) string {
	t.Helper()

	remote := t.TempDir()
	_, err := git.PlainInitWithOptions(remote, &git.PlainInitOptions{
		Bare:        true,
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(Branch)},
	})
	require.NoError(t, err)
	return remote
}

// Clone creates an independent working copy of remote, standing in for
// another writer of the same remote
func Clone(t testing.TB, remote string) string {
	t.Helper()

	dir := t.TempDir()
	_, err := git.PlainClone(dir, false, &git.CloneOptions{
		URL:           remote,
		ReferenceName: plumbing.NewBranchReferenceName(Branch),
	})
	require.NoError(t, err)
	return dir
}

// CommitFiles writes files into the working copy at dir and commits them.
// An empty content removes the file.
func CommitFiles(t testing.TB, dir, message string, files map[string]string) plumbing.Hash {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	return commit(t, repo, dir, message, files)
}

// Push pushes Branch of the working copy at dir to its origin
func Push(t testing.TB, dir string) {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)

	err = repo.Push(&git.PushOptions{})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return
	}
	require.NoError(t, err)
}

// CommitAndPush is CommitFiles followed by Push
func CommitAndPush(t testing.TB, dir, message string, files map[string]string) plumbing.Hash {
	t.Helper()

	hash := CommitFiles(t, dir, message, files)
	Push(t, dir)
	return hash
}

// ReadFile returns the content of path at the tip of Branch in repository
// dir, which may be bare. The boolean is false when the file does not exist.
func ReadFile(t testing.TB, dir, path string) (string, bool) {
	t.Helper()

	tree := tipTree(t, dir)
	file, err := tree.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return "", false
	}
	require.NoError(t, err)

	content, err := file.Contents()
	require.NoError(t, err)
	return content, true
}

// Messages returns the commit messages on Branch of repository dir, newest
// first, without trailing newlines
func Messages(t testing.TB, dir string) []string {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(Branch), true)
	require.NoError(t, err)

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	require.NoError(t, err)

	var messages []string
	err = iter.ForEach(func(c *object.Commit) error {
		messages = append(messages, strings.TrimRight(c.Message, "\n"))
		return nil
	})
	require.NoError(t, err)
	return messages
}

// Files lists the paths tracked at the tip of Branch in repository dir
func Files(t testing.TB, dir string) []string {
	t.Helper()

	var paths []string
	err := tipTree(t, dir).Files().ForEach(func(f *object.File) error {
		paths = append(paths, f.Name)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(paths)
	return paths
}

func tipTree(t testing.TB, dir string) *object.Tree {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(Branch), true)
	require.NoError(t, err)

	c, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)

	tree, err := c.Tree()
	require.NoError(t, err)
	return tree
}

func commit(t testing.TB, repo *git.Repository, dir, message string, files map[string]string) plumbing.Hash {
	t.Helper()

	wt, err := repo.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		if content == "" {
			_, err := wt.Remove(name)
			require.NoError(t, err)
			continue
		}

		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		_, err := wt.Add(name)
		require.NoError(t, err)
	}

	author := Author
	author.When = time.Now()
	hash, err := wt.Commit(message, &git.CommitOptions{Author: &author})
	require.NoError(t, err)
	return hash
}
