package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/osb-git-store/internal/git"
	"github.com/stacklok/osb-git-store/internal/lifecycle"
)

func TestWithRetry(t *testing.T) {
	t.Parallel()

	policy := lifecycle.RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond}
	rejected := &git.PushError{Err: fmt.Errorf("%w: fetch first", git.ErrPushRejected)}

	tests := []struct {
		name      string
		policy    lifecycle.RetryPolicy
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{
			name:      "succeeds first time",
			policy:    policy,
			errs:      []error{nil},
			wantCalls: 1,
		},
		{
			name:      "retries a rejected push",
			policy:    policy,
			errs:      []error{rejected, rejected, nil},
			wantCalls: 3,
		},
		{
			name:      "gives up after max tries",
			policy:    policy,
			errs:      []error{rejected, rejected, rejected, nil},
			wantCalls: 3,
			wantErr:   git.ErrPushRejected,
		},
		{
			name:      "conflicts are permanent",
			policy:    policy,
			errs:      []error{&git.SyncError{Err: git.ErrConflict}, nil},
			wantCalls: 1,
			wantErr:   git.ErrConflict,
		},
		{
			name:      "unknown errors are permanent",
			policy:    policy,
			errs:      []error{errors.New("disk full"), nil},
			wantCalls: 1,
		},
		{
			name:      "zero tries means one attempt",
			policy:    lifecycle.RetryPolicy{InitialInterval: time.Millisecond},
			errs:      []error{rejected, nil},
			wantCalls: 1,
			wantErr:   git.ErrPushRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			result, err := lifecycle.WithRetry(t.Context(), tt.policy, func(context.Context) (string, error) {
				err := tt.errs[calls]
				calls++
				if err != nil {
					return "", err
				}
				return "token", nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.errs[calls-1] == nil {
				require.NoError(t, err)
				assert.Equal(t, "token", result)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	policy := lifecycle.RetryPolicy{MaxTries: 10, InitialInterval: time.Hour}

	calls := 0
	_, err := lifecycle.WithRetry(ctx, policy, func(context.Context) (struct{}, error) {
		calls++
		cancel()
		return struct{}{}, context.DeadlineExceeded
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
