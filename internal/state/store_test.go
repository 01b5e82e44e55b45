package state_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/ttn-nguyen42/deferq/internal/errors"
	"github.com/ttn-nguyen42/deferq/internal/state"
)

func newStore(t *testing.T) state.Store {
	t.Helper()

	st, err := state.NewStore(&state.StoreOpts{
		Path:   filepath.Join(t.TempDir(), "state.db"),
		NoSync: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	return st
}

func TestRecordAndGet(t *testing.T) {
	st := newStore(t)

	expiresAt := time.Now().Add(time.Minute).UTC().Truncate(time.Millisecond)
	info := state.NewTaskInfo("", "report", expiresAt, true)

	id, err := st.RecordInfo(info)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, id, info.ID)

	got, err := st.GetInfo(id)
	require.NoError(t, err)
	assert.Equal(t, "report", got.Name)
	assert.Equal(t, state.TaskStatusPending, got.Status)
	assert.True(t, got.Expires)
	assert.True(t, expiresAt.Equal(got.ExpiresAt))

	_, err = st.GetInfo("missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateInfo(t *testing.T) {
	st := newStore(t)

	id, err := st.RecordInfo(state.NewTaskInfo("a", "a", time.Time{}, false))
	require.NoError(t, err)

	ok, err := st.UpdateInfo(id, func(ti *state.TaskInfo) bool {
		ti.Status = state.TaskStatusComplete
		ti.CompletedAt = time.Now()
		return true
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := st.GetInfo(id)
	require.NoError(t, err)
	assert.Equal(t, state.TaskStatusComplete, got.Status)
	assert.False(t, got.CompletedAt.IsZero())

	t.Run("aborted update keeps the record", func(t *testing.T) {
		ok, err := st.UpdateInfo(id, func(ti *state.TaskInfo) bool {
			ti.Status = state.TaskStatusFailed
			return false
		})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := st.GetInfo(id)
		require.NoError(t, err)
		assert.Equal(t, state.TaskStatusComplete, got.Status)
	})

	t.Run("missing record", func(t *testing.T) {
		ok, err := st.UpdateInfo("missing", func(*state.TaskInfo) bool { return true })
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestListInfo(t *testing.T) {
	st := newStore(t)

	var ids []string
	for i := 0; i < 5; i++ {
		info := state.NewTaskInfo("", fmt.Sprintf("t%d", i), time.Time{}, false)
		id, err := st.RecordInfo(info)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := st.ListInfo(0, 10)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, info := range all {
		assert.Equal(t, ids[i], info.ID, "oldest first")
	}

	page, err := st.ListInfo(2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "t2", page[0].Name)
	assert.Equal(t, "t3", page[1].Name)

	none, err := st.ListInfo(0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteAndCount(t *testing.T) {
	st := newStore(t)

	statuses := []state.TaskStatus{
		state.TaskStatusComplete,
		state.TaskStatusComplete,
		state.TaskStatusExpired,
		state.TaskStatusRejected,
	}
	var ids []string
	for _, s := range statuses {
		info := state.NewTaskInfo("", "t", time.Time{}, false)
		info.Status = s
		id, err := st.RecordInfo(info)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	counts, err := st.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), counts[state.TaskStatusComplete])
	assert.Equal(t, uint64(1), counts[state.TaskStatusExpired])
	assert.Equal(t, uint64(1), counts[state.TaskStatusRejected])

	ok, err := st.DeleteInfo(ids[0])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.DeleteInfo(ids[0])
	require.NoError(t, err)
	assert.False(t, ok)

	counts, err = st.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counts[state.TaskStatusComplete])
}

func TestClosedStore(t *testing.T) {
	st, err := state.NewStore(&state.StoreOpts{
		Path:   filepath.Join(t.TempDir(), "state.db"),
		NoSync: true,
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	_, err = st.RecordInfo(state.NewTaskInfo("", "t", time.Time{}, false))
	assert.Error(t, err)

	_, err = st.ListInfo(0, 10)
	assert.Error(t, err)
}

func TestPrune(t *testing.T) {
	st := newStore(t)

	now := time.Now()
	record := func(status state.TaskStatus, completedAt time.Time) string {
		info := state.NewTaskInfo("", "t", time.Time{}, false)
		info.Status = status
		info.CompletedAt = completedAt
		id, err := st.RecordInfo(info)
		require.NoError(t, err)
		return id
	}

	// more than one listing page
	for i := 0; i < 120; i++ {
		record(state.TaskStatusComplete, now.Add(-48*time.Hour))
	}
	expired := record(state.TaskStatusExpired, now.Add(-48*time.Hour))
	pending := record(state.TaskStatusPending, time.Time{})
	recent := record(state.TaskStatusFailed, now)

	n, err := state.Prune(st, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 121, n)

	_, err = st.GetInfo(expired)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	for _, id := range []string{pending, recent} {
		_, err = st.GetInfo(id)
		assert.NoError(t, err)
	}

	counts, err := st.CountByStatus()
	require.NoError(t, err)
	assert.Zero(t, counts[state.TaskStatusComplete])

	n, err = state.Prune(st, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}
