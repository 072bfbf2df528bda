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

func validateBindingIDs(instanceID, bindingID string) error {
	if err := ValidateID("instance", instanceID); err != nil {
		return err
	}
	return ValidateID("binding", bindingID)
}

// WriteBinding writes the record of a binding below its instance directory
func (s *Store) WriteBinding(_ context.Context, b *record.Binding) error {
	if b == nil {
		return fmt.Errorf("binding record is nil")
	}
	if err := validateBindingIDs(b.ServiceInstanceID, b.BindingID); err != nil {
		return err
	}

	data, err := record.EncodeBinding(b)
	if err != nil {
		return err
	}
	return s.writeFile(filepath.Join(s.bindingDir(b.ServiceInstanceID, b.BindingID), BindingFileName), data)
}

// ReadBinding returns a binding record, failing with ErrNotFound if there is none
func (s *Store) ReadBinding(_ context.Context, instanceID, bindingID string) (*record.Binding, error) {
	if err := validateBindingIDs(instanceID, bindingID); err != nil {
		return nil, err
	}

	path := filepath.Join(s.bindingDir(instanceID, bindingID), BindingFileName)
	data, found, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: binding %s of instance %s", ErrNotFound, bindingID, instanceID)
	}

	b, err := record.DecodeBinding(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.relative(path), err)
	}
	return b, nil
}

// ReadBindingStatus returns the last operation status of a binding, or the
// in-progress "preparing binding" status when none was written
func (s *Store) ReadBindingStatus(_ context.Context, instanceID, bindingID string) (*record.Status, error) {
	if err := validateBindingIDs(instanceID, bindingID); err != nil {
		return nil, err
	}
	return s.readStatus(
		filepath.Join(s.bindingDir(instanceID, bindingID), StatusFileName),
		record.InProgress(record.DescriptionPreparingBinding),
	)
}

// WriteBindingStatus stores the status of the last operation on a binding
func (s *Store) WriteBindingStatus(_ context.Context, instanceID, bindingID string, status *record.Status) error {
	if err := validateBindingIDs(instanceID, bindingID); err != nil {
		return err
	}
	if status == nil || !status.State.Valid() {
		return fmt.Errorf("invalid operation status %v", status)
	}
	return s.writeStatus(filepath.Join(s.bindingDir(instanceID, bindingID), StatusFileName), status)
}

// MarkBindingDeleted tombstones a binding and resets its status to
// "preparing binding deletion"
func (s *Store) MarkBindingDeleted(ctx context.Context, instanceID, bindingID string) error {
	b, err := s.ReadBinding(ctx, instanceID, bindingID)
	if err != nil {
		return err
	}

	b.Deleted = true
	if err := s.WriteBinding(ctx, b); err != nil {
		return err
	}
	return s.WriteBindingStatus(ctx, instanceID, bindingID,
		record.InProgress(record.DescriptionPreparingBindingDeletion))
}

// ListBindings returns the readable binding records of an instance ordered by id.
// Directories without a record and malformed records are skipped and logged.
func (s *Store) ListBindings(ctx context.Context, instanceID string) ([]*record.Binding, error) {
	if err := ValidateID("instance", instanceID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.instanceDir(instanceID), BindingsDir))
	if errors.Is(err, os.ErrNotExist) {
		return []*record.Binding{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bindings of instance %s: %w", instanceID, err)
	}

	bindings := make([]*record.Binding, 0, len(entries))
	for _, entry := range entries {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		if !entry.IsDir() || !validators.IsValidID(entry.Name()) {
			continue
		}

		b, err := s.ReadBinding(ctx, instanceID, entry.Name())
		switch {
		case err == nil:
			bindings = append(bindings, b)
		case errors.Is(err, ErrNotFound):
			slog.DebugContext(ctx, "Skipping directory without binding record",
				"instance", instanceID, "directory", entry.Name())
		default:
			var decodeErr *record.DecodeError
			if !errors.As(err, &decodeErr) {
				return nil, err
			}
			slog.InfoContext(ctx, "Skipping malformed binding record",
				"instance", instanceID, "directory", entry.Name(), "error", err.Error())
		}
	}
	return bindings, nil
}
