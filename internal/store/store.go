// Package store maps instance and binding identifiers to record files inside
// the working copy and implements the bootstrap and tombstone lifecycle rules.
//
// Layout below the working copy root:
//
//	instances/<id>/instance.yml
//	instances/<id>/status.yml
//	instances/<id>/bindings/<bindingId>/binding.yml
//	instances/<id>/bindings/<bindingId>/status.yml
//
// The store never touches version control state; committing and pushing the
// files it writes is the caller's job.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stacklok/osb-git-store/internal/record"
	"github.com/stacklok/osb-git-store/internal/validators"
)

const (
	// InstancesDir is the directory below the root holding one directory per instance
	InstancesDir = "instances"

	// InstanceFileName holds the instance record
	InstanceFileName = "instance.yml"

	// StatusFileName holds the last operation status of an instance or binding
	StatusFileName = "status.yml"

	// BindingsDir is the directory below an instance holding one directory per binding
	BindingsDir = "bindings"

	// BindingFileName holds the binding record
	BindingFileName = "binding.yml"
)

var (
	// ErrNotFound is returned when no record file exists for an identifier
	ErrNotFound = errors.New("not found")

	// ErrInvalidID is returned for identifiers that cannot name a directory
	ErrInvalidID = errors.New("invalid identifier")
)

// Store reads and writes records below a working copy root
type Store struct {
	root    string
	tempDir string
}

// Option configures a Store
type Option func(*Store)

// WithTempDir stages atomic writes in dir instead of next to the target file,
// so an interrupted write never leaves a stray file in the working tree.
// dir must be on the same filesystem as the root.
func WithTempDir(dir string) Option {
	return func(s *Store) {
		s.tempDir = dir
	}
}

// New creates a Store rooted at the given working copy directory
func New(root string, opts ...Option) *Store {
	s := &Store{root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory the store writes below
func (s *Store) Root() string {
	return s.root
}

// ValidateID checks that id can be used as a path segment
func ValidateID(kind, id string) error {
	if err := validators.ValidateID(kind, id); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	return nil
}

func (s *Store) instanceDir(id string) string {
	return filepath.Join(s.root, InstancesDir, id)
}

func (s *Store) bindingDir(instanceID, bindingID string) string {
	return filepath.Join(s.instanceDir(instanceID), BindingsDir, bindingID)
}

// writeFile atomically replaces path with data. Unchanged content is not rewritten.
func (s *Store) writeFile(path string, data []byte) error {
	// #nosec G304 -- path is built from the store root and validated identifiers
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpDir := dir
	if s.tempDir != "" {
		tmpDir = s.tempDir
		if err := os.MkdirAll(tmpDir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", tmpDir, err)
		}
	}

	tmp, err := os.CreateTemp(tmpDir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", tmpDir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// readFile returns the content of path, or found=false if it does not exist
func readFile(path string) (data []byte, found bool, err error) {
	// #nosec G304 -- path is built from the store root and validated identifiers
	data, err = os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, true, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return true, nil
}

func (s *Store) writeStatus(path string, status *record.Status) error {
	data, err := record.EncodeStatus(status)
	if err != nil {
		return err
	}
	return s.writeFile(path, data)
}

// readStatus decodes the status at path, returning bootstrap when the file is absent
func (s *Store) readStatus(path string, bootstrap *record.Status) (*record.Status, error) {
	data, found, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if !found {
		return bootstrap, nil
	}

	status, err := record.DecodeStatus(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.relative(path), err)
	}
	return status, nil
}

// relative returns path relative to the store root for log and error messages
func (s *Store) relative(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return path
	}
	return rel
}

// checkContext returns ctx's error if it is already done
func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("store operation aborted: %w", err)
	}
	return nil
}
