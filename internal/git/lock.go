package git

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// workingCopyLock serializes mutations of one working copy. The channel guards
// goroutines of this process, the file lock guards other processes (a second
// broker or the git sync command) using the same directory.
type workingCopyLock struct {
	sem  chan struct{}
	file *flock.Flock
}

func newWorkingCopyLock(gitDir string) *workingCopyLock {
	return &workingCopyLock{
		sem:  make(chan struct{}, 1),
		file: flock.New(filepath.Join(gitDir, LockFileName)),
	}
}

// acquire blocks until both locks are held or ctx is done
func (l *workingCopyLock) acquire(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to lock working copy: %w", ctx.Err())
	}

	locked, err := l.file.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		<-l.sem
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("failed to lock working copy %s: %w", l.file.Path(), err)
	}

	return func() {
		if err := l.file.Unlock(); err != nil {
			slog.ErrorContext(ctx, "Failed to release working copy lock", "error", err, "path", l.file.Path())
		}
		<-l.sem
	}, nil
}
