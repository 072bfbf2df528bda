package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/osb-git-store/internal/git"
	gitmocks "github.com/stacklok/osb-git-store/internal/git/mocks"
	"github.com/stacklok/osb-git-store/internal/lifecycle"
	"github.com/stacklok/osb-git-store/internal/lifecycle/mocks"
	"github.com/stacklok/osb-git-store/internal/record"
	"github.com/stacklok/osb-git-store/internal/store"
	"github.com/stacklok/osb-git-store/internal/telemetry"
)

func TestMutate_ErrorPropagation(t *testing.T) {
	t.Parallel()

	errRemote := errors.New("connection refused")

	tests := []struct {
		name      string
		setup     func(repo *gitmocks.MockRepository, s *mocks.MockInstanceStore)
		wantErr   error
		wantAsErr any
	}{
		{
			name: "lock failure",
			setup: func(repo *gitmocks.MockRepository, _ *mocks.MockInstanceStore) {
				repo.EXPECT().Lock(gomock.Any()).Return(nil, context.DeadlineExceeded)
			},
			wantErr: context.DeadlineExceeded,
		},
		{
			name: "pull failure touches no records",
			setup: func(repo *gitmocks.MockRepository, _ *mocks.MockInstanceStore) {
				repo.EXPECT().Lock(gomock.Any()).Return(func() {}, nil)
				repo.EXPECT().Pull(gomock.Any()).Return(&git.SyncError{Err: git.ErrConflict})
			},
			wantErr:   git.ErrConflict,
			wantAsErr: new(*git.SyncError),
		},
		{
			name: "store failure skips the commit",
			setup: func(repo *gitmocks.MockRepository, s *mocks.MockInstanceStore) {
				repo.EXPECT().Lock(gomock.Any()).Return(func() {}, nil)
				repo.EXPECT().Pull(gomock.Any()).Return(nil)
				s.EXPECT().ReadInstance(gomock.Any(), "test-567").Return(nil, store.ErrNotFound)
				s.EXPECT().WriteInstance(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
			},
		},
		{
			name: "push failure keeps the local commit",
			setup: func(repo *gitmocks.MockRepository, s *mocks.MockInstanceStore) {
				repo.EXPECT().Lock(gomock.Any()).Return(func() {}, nil)
				repo.EXPECT().Pull(gomock.Any()).Return(nil)
				s.EXPECT().ReadInstance(gomock.Any(), "test-567").Return(nil, store.ErrNotFound)
				s.EXPECT().WriteInstance(gomock.Any(), gomock.Any()).Return(nil)
				s.EXPECT().HasStatus(gomock.Any(), "test-567").Return(false, nil)
				repo.EXPECT().Commit(gomock.Any(), "OSB API: Created service instance test-567").Return(nil)
				repo.EXPECT().Push(gomock.Any()).Return(&git.PushError{Err: errRemote})
			},
			wantErr:   errRemote,
			wantAsErr: new(*git.PushError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			repo := gitmocks.NewMockRepository(ctrl)
			s := mocks.NewMockInstanceStore(ctrl)
			tt.setup(repo, s)

			op, err := lifecycle.New(repo, s).CreateInstance(t.Context(), createRequest("test-567"))
			require.Error(t, err)
			assert.Nil(t, op)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantAsErr != nil {
				assert.ErrorAs(t, err, tt.wantAsErr)
			}
		})
	}
}

func TestMutate_UnlocksAfterOperation(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	repo := gitmocks.NewMockRepository(ctrl)
	s := mocks.NewMockInstanceStore(ctrl)

	unlocked := 0
	repo.EXPECT().Lock(gomock.Any()).Return(func() { unlocked++ }, nil).Times(2)
	repo.EXPECT().Pull(gomock.Any()).Return(nil).Times(2)
	s.EXPECT().MarkDeleted(gomock.Any(), "test-567").Return(nil)
	s.EXPECT().MarkDeleted(gomock.Any(), "missing").Return(store.ErrNotFound)
	repo.EXPECT().Commit(gomock.Any(), "OSB API: Deleted service instance test-567").Return(nil)
	repo.EXPECT().Push(gomock.Any()).Return(nil)

	c := lifecycle.New(repo, s)

	op, err := c.DeleteInstance(t.Context(), "test-567")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OperationDelete, op.Kind)
	assert.Len(t, op.Token, 36)

	_, err = c.DeleteInstance(t.Context(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, 2, unlocked)
}

func TestMutate_FinishesAfterCancel(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	repo := gitmocks.NewMockRepository(ctrl)
	s := mocks.NewMockInstanceStore(ctrl)

	ctx, cancel := context.WithCancel(t.Context())

	repo.EXPECT().Lock(gomock.Any()).Return(func() {}, nil)
	repo.EXPECT().Pull(gomock.Any()).Return(nil)
	s.EXPECT().MarkDeleted(gomock.Any(), "test-567").DoAndReturn(func(context.Context, string) error {
		cancel()
		return nil
	})
	repo.EXPECT().Commit(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ string) error {
		return ctx.Err()
	})
	repo.EXPECT().Push(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		return ctx.Err()
	})

	_, err := lifecycle.New(repo, s).DeleteInstance(ctx, "test-567")
	require.NoError(t, err)
}

func TestCommitMessagePrefix(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	repo := gitmocks.NewMockRepository(ctrl)
	s := mocks.NewMockInstanceStore(ctrl)

	status := &record.Status{State: record.StateFailed, Description: "quota exceeded"}
	repo.EXPECT().Lock(gomock.Any()).Return(func() {}, nil)
	repo.EXPECT().Pull(gomock.Any()).Return(nil)
	s.EXPECT().ReadInstance(gomock.Any(), "test-567").Return(&record.Instance{ID: "test-567"}, nil)
	s.EXPECT().WriteStatus(gomock.Any(), "test-567", status).Return(nil)
	repo.EXPECT().Commit(gomock.Any(), `Pipeline: Reported status "failed" for service instance test-567`).Return(nil)
	repo.EXPECT().Push(gomock.Any()).Return(nil)

	c := lifecycle.New(repo, s, lifecycle.WithCommitMessagePrefix("Pipeline"))
	op, err := c.ReportStatus(t.Context(), "test-567", status)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OperationReportStatus, op.Kind)
}

func TestGetLastOperation_DoesNotSynchronize(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	repo := gitmocks.NewMockRepository(ctrl)
	s := mocks.NewMockInstanceStore(ctrl)

	s.EXPECT().ReadStatus(gomock.Any(), "test-567").Return(record.BootstrapStatus(), nil)
	s.EXPECT().ReadBindingStatus(gomock.Any(), "test-567", "binding-1").
		Return(record.InProgress(record.DescriptionPreparingBinding), nil)

	c := lifecycle.New(repo, s)

	status, err := c.GetLastOperation(t.Context(), "test-567")
	require.NoError(t, err)
	assert.Equal(t, record.BootstrapStatus(), status)

	status, err = c.GetLastBindingOperation(t.Context(), "test-567", "binding-1")
	require.NoError(t, err)
	assert.Equal(t, record.DescriptionPreparingBinding, status.Description)
}

func TestInvalidIDsNeverLock(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := lifecycle.New(gitmocks.NewMockRepository(ctrl), mocks.NewMockInstanceStore(ctrl))
	ctx := t.Context()

	_, err := c.CreateInstance(ctx, createRequest("a/b"))
	require.ErrorIs(t, err, store.ErrInvalidID)
	_, err = c.UpdateInstance(ctx, lifecycle.UpdateInstanceRequest{InstanceID: ""})
	require.ErrorIs(t, err, store.ErrInvalidID)
	_, err = c.DeleteInstance(ctx, "..")
	require.ErrorIs(t, err, store.ErrInvalidID)
	_, err = c.ReportStatus(ctx, "a b", record.BootstrapStatus())
	require.ErrorIs(t, err, store.ErrInvalidID)
	_, err = c.CreateBinding(ctx, lifecycle.CreateBindingRequest{InstanceID: "test-567", BindingID: "../x"})
	require.ErrorIs(t, err, store.ErrInvalidID)
	_, err = c.DeleteBinding(ctx, "", "binding-1")
	require.ErrorIs(t, err, store.ErrInvalidID)
}

func TestTelemetry(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := telemetry.NewOperationMetrics(mp)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	repo := gitmocks.NewMockRepository(ctrl)
	s := mocks.NewMockInstanceStore(ctrl)

	repo.EXPECT().Lock(gomock.Any()).Return(func() {}, nil).Times(2)
	repo.EXPECT().Pull(gomock.Any()).Return(nil).Times(2)
	s.EXPECT().MarkDeleted(gomock.Any(), "test-567").Return(nil)
	s.EXPECT().MarkBindingDeleted(gomock.Any(), "test-567", "binding-1").Return(store.ErrNotFound)
	repo.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(nil)
	repo.EXPECT().Push(gomock.Any()).Return(nil)

	c := lifecycle.New(repo, s, lifecycle.WithTracerProvider(tp), lifecycle.WithMetrics(metrics))
	_, err = c.DeleteInstance(t.Context(), "test-567")
	require.NoError(t, err)
	_, err = c.DeleteBinding(t.Context(), "test-567", "binding-1")
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "lifecycle.delete", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, "lifecycle.unbind", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)

	attrs := map[string]string{}
	for _, attr := range spans[1].Attributes {
		attrs[string(attr.Key)] = attr.Value.AsString()
	}
	assert.Equal(t, "test-567", attrs["osb.instance.id"])
	assert.Equal(t, "binding-1", attrs["osb.binding.id"])
	assert.Equal(t, "unbind", attrs["osb.operation.kind"])

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &rm))
	var count uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "osb_git_store_operation_duration_seconds" {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			for _, dp := range hist.DataPoints {
				count += dp.Count
			}
		}
	}
	assert.Equal(t, uint64(2), count)
}
