package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/osb-git-store/internal/record"
)

func newTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	return New(t.TempDir()), t.Context()
}

func testInstance(id string) *record.Instance {
	return &record.Instance{
		ID:                  id,
		ServiceDefinitionID: "svc",
		PlanID:              "plan",
		Parameters:          map[string]any{"size": "small"},
	}
}

func writeRaw(t *testing.T, s *Store, rel, content string) {
	t.Helper()
	path := filepath.Join(s.Root(), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestWriteReadInstance(t *testing.T) {
	t.Parallel()
	s, ctx := newTestStore(t)

	inst := testInstance("test-567")
	require.NoError(t, s.WriteInstance(ctx, inst))

	data, err := os.ReadFile(filepath.Join(s.Root(), "instances", "test-567", "instance.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "id: test-567")

	got, err := s.ReadInstance(ctx, "test-567")
	require.NoError(t, err)
	assert.Equal(t, inst, got)
}

func TestWriteInstance_Idempotent(t *testing.T) {
	t.Parallel()
	s, ctx := newTestStore(t)

	inst := testInstance("test-567")
	require.NoError(t, s.WriteInstance(ctx, inst))

	path := filepath.Join(s.Root(), "instances", "test-567", "instance.yml")
	before, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, s.WriteInstance(ctx, testInstance("test-567")))

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	assert.True(t, os.SameFile(before, after), "file must not be replaced")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestWriteInstance_TempDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	tempDir := filepath.Join(root, ".git", "scratch")
	s := New(root, WithTempDir(tempDir))
	ctx := t.Context()

	// A temporary file left by an interrupted write stays outside the record tree.
	require.NoError(t, os.MkdirAll(tempDir, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".instance.yml.tmp-1"), []byte("id: [\n"), 0600))

	require.NoError(t, s.WriteInstance(ctx, testInstance("test-567")))
	require.NoError(t, s.WriteStatus(ctx, "test-567", &record.Status{State: record.StateFailed, Description: "quota"}))

	entries, err := os.ReadDir(filepath.Join(root, "instances", "test-567"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"instance.yml", "status.yml"}, names)

	got, err := s.ReadInstance(ctx, "test-567")
	require.NoError(t, err)
	assert.Equal(t, testInstance("test-567"), got)

	instances, err := s.ListInstances(ctx)
	require.NoError(t, err)
	assert.Len(t, instances, 1)
}

func TestReadInstance_NotFound(t *testing.T) {
	t.Parallel()
	s, ctx := newTestStore(t)

	_, err := s.ReadInstance(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestReadInstance_Malformed(t *testing.T) {
	t.Parallel()
	s, ctx := newTestStore(t)

	writeRaw(t, s, "instances/broken/instance.yml", "id: broken\nplanId: plan\n")

	_, err := s.ReadInstance(ctx, "broken")
	var decodeErr *record.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "serviceDefinitionId", decodeErr.Field)
}

func TestInvalidIDs(t *testing.T) {
	t.Parallel()
	s, ctx := newTestStore(t)

	for _, id := range []string{"", "..", "a/b", "../escape"} {
		_, err := s.ReadInstance(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)

		_, err = s.ReadStatus(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)

		err = s.WriteInstance(ctx, testInstance(id))
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
	}
}

func TestReadStatus(t *testing.T) {
	t.Parallel()

	t.Run("bootstrap when instance exists without status", func(t *testing.T) {
		t.Parallel()
		s, ctx := newTestStore(t)
		require.NoError(t, s.WriteInstance(ctx, testInstance("test-567")))

		status, err := s.ReadStatus(ctx, "test-567")
		require.NoError(t, err)
		assert.Equal(t, record.StateInProgress, status.State)
		assert.Equal(t, "preparing deployment", status.Description)
	})

	t.Run("bootstrap when instance never existed", func(t *testing.T) {
		t.Parallel()
		s, ctx := newTestStore(t)

		status, err := s.ReadStatus(ctx, "never-provisioned")
		require.NoError(t, err)
		assert.Equal(t, record.BootstrapStatus(), status)

		_, err = s.ReadInstance(ctx, "never-provisioned")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("stored status", func(t *testing.T) {
		t.Parallel()
		s, ctx := newTestStore(t)
		writeRaw(t, s, "instances/test-567/status.yml", "status: succeeded\ndescription: deployed\n")

		status, err := s.ReadStatus(ctx, "test-567")
		require.NoError(t, err)
		assert.Equal(t, &record.Status{State: record.StateSucceeded, Description: "deployed"}, status)
	})

	t.Run("malformed status is an error, not bootstrap", func(t *testing.T) {
		t.Parallel()

		for name, content := range map[string]string{
			"unknown state":       "status: done\ndescription: x\n",
			"missing description": "status: failed\n",
			"not yaml mapping":    "- status\n",
			"invalid yaml":        "status: [unterminated\n",
		} {
			s, ctx := newTestStore(t)
			writeRaw(t, s, "instances/test-567/status.yml", content)

			status, err := s.ReadStatus(ctx, "test-567")
			var decodeErr *record.DecodeError
			assert.ErrorAs(t, err, &decodeErr, name)
			assert.Nil(t, status, name)
		}
	})
}

func TestWriteStatus(t *testing.T) {
	t.Parallel()
	s, ctx := newTestStore(t)

	has, err := s.HasStatus(ctx, "test-567")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.WriteStatus(ctx, "test-567", &record.Status{State: record.StateFailed, Description: "quota"}))

	has, err = s.HasStatus(ctx, "test-567")
	require.NoError(t, err)
	assert.True(t, has)

	status, err := s.ReadStatus(ctx, "test-567")
	require.NoError(t, err)
	assert.Equal(t, record.StateFailed, status.State)

	err = s.WriteStatus(ctx, "test-567", &record.Status{State: "done"})
	require.Error(t, err)
	err = s.WriteStatus(ctx, "test-567", nil)
	require.Error(t, err)

	require.NoError(t, s.ResetStatus(ctx, "test-567", record.DescriptionPreparingUpdate))
	status, err = s.ReadStatus(ctx, "test-567")
	require.NoError(t, err)
	assert.Equal(t, record.InProgress("preparing service update"), status)
}

func TestMarkDeleted(t *testing.T) {
	t.Parallel()

	t.Run("tombstones and resets a terminal status", func(t *testing.T) {
		t.Parallel()
		s, ctx := newTestStore(t)

		require.NoError(t, s.WriteInstance(ctx, testInstance("test-567")))
		require.NoError(t, s.WriteStatus(ctx, "test-567", &record.Status{State: record.StateSucceeded, Description: "done"}))

		require.NoError(t, s.MarkDeleted(ctx, "test-567"))

		inst, err := s.ReadInstance(ctx, "test-567")
		require.NoError(t, err)
		assert.True(t, inst.Deleted)
		assert.Equal(t, "plan", inst.PlanID)

		status, err := s.ReadStatus(ctx, "test-567")
		require.NoError(t, err)
		assert.Equal(t, record.StateInProgress, status.State)
		assert.Equal(t, "preparing service deletion", status.Description)
	})

	t.Run("missing instance", func(t *testing.T) {
		t.Parallel()
		s, ctx := newTestStore(t)

		err := s.MarkDeleted(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)

		has, err := s.HasStatus(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, has, "no status written for a missing instance")
	})
}

func TestListInstances(t *testing.T) {
	t.Parallel()

	t.Run("empty store", func(t *testing.T) {
		t.Parallel()
		s, ctx := newTestStore(t)

		instances, err := s.ListInstances(ctx)
		require.NoError(t, err)
		assert.Empty(t, instances)
	})

	t.Run("skips malformed and incomplete entries", func(t *testing.T) {
		t.Parallel()
		s, ctx := newTestStore(t)

		require.NoError(t, s.WriteInstance(ctx, testInstance("b")))
		require.NoError(t, s.WriteInstance(ctx, testInstance("a")))
		writeRaw(t, s, "instances/broken/instance.yml", "id: [1]\n")
		writeRaw(t, s, "instances/status-only/status.yml", "status: failed\ndescription: x\n")
		writeRaw(t, s, "instances/README.md", "not an instance\n")

		instances, err := s.ListInstances(ctx)
		require.NoError(t, err)
		require.Len(t, instances, 2)
		assert.Equal(t, "a", instances[0].ID)
		assert.Equal(t, "b", instances[1].ID)
	})

	t.Run("fails on unreadable records", func(t *testing.T) {
		t.Parallel()
		s, ctx := newTestStore(t)

		require.NoError(t, s.WriteInstance(ctx, testInstance("a")))
		require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "instances", "b", "instance.yml"), 0750))

		_, err := s.ListInstances(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestListBindings(t *testing.T) {
	t.Parallel()

	binding := func(id string) *record.Binding {
		return &record.Binding{
			BindingID:           id,
			ServiceInstanceID:   "test-567",
			ServiceDefinitionID: "svc",
			PlanID:              "plan",
		}
	}

	t.Run("skips malformed and incomplete entries", func(t *testing.T) {
		t.Parallel()
		s, ctx := newTestStore(t)

		require.NoError(t, s.WriteBinding(ctx, binding("bind-2")))
		require.NoError(t, s.WriteBinding(ctx, binding("bind-1")))
		writeRaw(t, s, "instances/test-567/bindings/broken/binding.yml", "bindingId: [1]\n")
		writeRaw(t, s, "instances/test-567/bindings/status-only/status.yml", "status: failed\ndescription: x\n")

		bindings, err := s.ListBindings(ctx, "test-567")
		require.NoError(t, err)
		require.Len(t, bindings, 2)
		assert.Equal(t, "bind-1", bindings[0].BindingID)
		assert.Equal(t, "bind-2", bindings[1].BindingID)
	})

	t.Run("fails on unreadable records", func(t *testing.T) {
		t.Parallel()
		s, ctx := newTestStore(t)

		require.NoError(t, s.WriteBinding(ctx, binding("bind-1")))
		require.NoError(t, os.MkdirAll(
			filepath.Join(s.Root(), "instances", "test-567", "bindings", "bind-2", "binding.yml"), 0750))

		_, err := s.ListBindings(ctx, "test-567")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestBindings(t *testing.T) {
	t.Parallel()
	s, ctx := newTestStore(t)

	b := &record.Binding{
		BindingID:           "bind-1",
		ServiceInstanceID:   "test-567",
		ServiceDefinitionID: "svc",
		PlanID:              "plan",
		BindResource:        map[string]any{"app_guid": "app-1"},
	}

	_, err := s.ReadBinding(ctx, "test-567", "bind-1")
	require.ErrorIs(t, err, ErrNotFound)

	status, err := s.ReadBindingStatus(ctx, "test-567", "bind-1")
	require.NoError(t, err)
	assert.Equal(t, record.InProgress("preparing binding"), status)

	require.NoError(t, s.WriteBinding(ctx, b))
	_, err = os.Stat(filepath.Join(s.Root(), "instances", "test-567", "bindings", "bind-1", "binding.yml"))
	require.NoError(t, err)

	got, err := s.ReadBinding(ctx, "test-567", "bind-1")
	require.NoError(t, err)
	assert.Equal(t, b, got)

	require.NoError(t, s.WriteBindingStatus(ctx, "test-567", "bind-1",
		&record.Status{State: record.StateSucceeded, Description: "bound"}))
	require.NoError(t, s.MarkBindingDeleted(ctx, "test-567", "bind-1"))

	got, err = s.ReadBinding(ctx, "test-567", "bind-1")
	require.NoError(t, err)
	assert.True(t, got.Deleted)

	status, err = s.ReadBindingStatus(ctx, "test-567", "bind-1")
	require.NoError(t, err)
	assert.Equal(t, record.InProgress("preparing binding deletion"), status)

	bindings, err := s.ListBindings(ctx, "test-567")
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, "bind-1", bindings[0].BindingID)

	err = s.MarkBindingDeleted(ctx, "test-567", "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.ReadBinding(ctx, "test-567", "../x")
	require.ErrorIs(t, err, ErrInvalidID)
}
