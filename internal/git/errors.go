package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
)

var (
	// ErrConflict is wrapped by SyncError when local and remote commits touch the same file
	ErrConflict = errors.New("local and remote changes conflict")

	// ErrDirtyWorkingCopy is wrapped by SyncError when a rebase is needed but the
	// working tree has uncommitted changes
	ErrDirtyWorkingCopy = errors.New("working copy has uncommitted changes")

	// ErrPushRejected is wrapped by PushError when the remote refused the update
	ErrPushRejected = errors.New("push rejected by remote")
)

// SyncError reports that a pull could not reconcile local and remote history
type SyncError struct {
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("failed to synchronize with remote: %v", e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// PushError reports that a push was rejected and the single retry failed as well
type PushError struct {
	Err error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("failed to push to remote: %v", e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether repeating the whole operation later may succeed.
// Timeouts and rejected pushes are retryable; conflicts are not.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDirtyWorkingCopy):
		return false
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrPushRejected):
		return true
	}
	return false
}

// isRejected reports whether a push error means the remote has commits we lack
func isRejected(err error) bool {
	if errors.Is(err, git.ErrNonFastForwardUpdate) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "non-fast-forward") ||
		strings.Contains(msg, "fetch first") ||
		strings.Contains(msg, "rejected")
}
