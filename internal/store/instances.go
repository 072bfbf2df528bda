package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stacklok/osb-git-store/internal/record"
	"github.com/stacklok/osb-git-store/internal/validators"
)

// WriteInstance creates the instance directory if needed and writes the record.
// Writing an identical record again leaves the file untouched.
func (s *Store) WriteInstance(_ context.Context, inst *record.Instance) error {
	if inst == nil {
		return fmt.Errorf("instance record is nil")
	}
	if err := ValidateID("instance", inst.ID); err != nil {
		return err
	}

	data, err := record.EncodeInstance(inst)
	if err != nil {
		return err
	}
	return s.writeFile(filepath.Join(s.instanceDir(inst.ID), InstanceFileName), data)
}

// ReadInstance returns the record of id, failing with ErrNotFound if there is none
func (s *Store) ReadInstance(_ context.Context, id string) (*record.Instance, error) {
	if err := ValidateID("instance", id); err != nil {
		return nil, err
	}

	path := filepath.Join(s.instanceDir(id), InstanceFileName)
	data, found, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: instance %s", ErrNotFound, id)
	}

	inst, err := record.DecodeInstance(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.relative(path), err)
	}
	return inst, nil
}

// ReadStatus returns the last operation status of id. When no status file
// exists it returns the bootstrap status, whether or not the instance exists.
// A status file that exists but is malformed fails with *record.DecodeError.
func (s *Store) ReadStatus(_ context.Context, id string) (*record.Status, error) {
	if err := ValidateID("instance", id); err != nil {
		return nil, err
	}
	return s.readStatus(filepath.Join(s.instanceDir(id), StatusFileName), record.BootstrapStatus())
}

// HasStatus reports whether a status file exists for id
func (s *Store) HasStatus(_ context.Context, id string) (bool, error) {
	if err := ValidateID("instance", id); err != nil {
		return false, err
	}
	return fileExists(filepath.Join(s.instanceDir(id), StatusFileName))
}

// WriteStatus stores the status of the last operation on id. It is used by the
// pipeline side to report outcomes and by ResetStatus.
func (s *Store) WriteStatus(_ context.Context, id string, status *record.Status) error {
	if err := ValidateID("instance", id); err != nil {
		return err
	}
	if status == nil || !status.State.Valid() {
		return fmt.Errorf("invalid operation status %v", status)
	}
	return s.writeStatus(filepath.Join(s.instanceDir(id), StatusFileName), status)
}

// ResetStatus starts a new polling window for id with an in-progress status
func (s *Store) ResetStatus(ctx context.Context, id, description string) error {
	return s.WriteStatus(ctx, id, record.InProgress(description))
}

// MarkDeleted tombstones the record of id and resets its status to
// "preparing service deletion", replacing any earlier terminal status.
func (s *Store) MarkDeleted(ctx context.Context, id string) error {
	inst, err := s.ReadInstance(ctx, id)
	if err != nil {
		return err
	}

	inst.Deleted = true
	if err := s.WriteInstance(ctx, inst); err != nil {
		return err
	}
	return s.ResetStatus(ctx, id, record.DescriptionPreparingDeletion)
}

// ListInstances returns every readable instance record ordered by id.
// Directories without a record and malformed records are skipped and logged.
func (s *Store) ListInstances(ctx context.Context) ([]*record.Instance, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, InstancesDir))
	if errors.Is(err, os.ErrNotExist) {
		return []*record.Instance{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read instances directory: %w", err)
	}

	instances := make([]*record.Instance, 0, len(entries))
	for _, entry := range entries {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		if !entry.IsDir() || !validators.IsValidID(entry.Name()) {
			continue
		}

		inst, err := s.ReadInstance(ctx, entry.Name())
		switch {
		case err == nil:
			instances = append(instances, inst)
		case errors.Is(err, ErrNotFound):
			slog.DebugContext(ctx, "Skipping directory without instance record", "directory", entry.Name())
		default:
			var decodeErr *record.DecodeError
			if !errors.As(err, &decodeErr) {
				return nil, err
			}
			slog.InfoContext(ctx, "Skipping malformed instance record", "directory", entry.Name(), "error", err.Error())
		}
	}
	return instances, nil
}
