package db

import (
	"testing"
	"time"

	"github.com/loomchat/loom/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecyclePassAgesIdleThreads(t *testing.T) {
	conn := openTestDB(t)

	now := time.UnixMilli(1_000_000_000)
	activeIdle := 30 * time.Minute
	coolingIdle := 4 * time.Hour

	idleActive := mustCreateThread(t, conn, "idle active", types.ThreadStateActive,
		now.Add(-time.Hour).UnixMilli())
	freshActive := mustCreateThread(t, conn, "fresh active", types.ThreadStateActive,
		now.Add(-time.Minute).UnixMilli())
	idleCooling := mustCreateThread(t, conn, "idle cooling", types.ThreadStateCooling,
		now.Add(-5*time.Hour).UnixMilli())

	result, err := RunLifecyclePass(conn, now, activeIdle, coolingIdle)
	require.NoError(t, err)
	assert.Equal(t, []string{idleActive.GUID}, result.Cooled)
	assert.Equal(t, []string{idleCooling.GUID}, result.Archived)

	cooled, err := GetThread(conn, idleActive.GUID)
	require.NoError(t, err)
	assert.Equal(t, types.ThreadStateCooling, cooled.State)

	fresh, err := GetThread(conn, freshActive.GUID)
	require.NoError(t, err)
	assert.Equal(t, types.ThreadStateActive, fresh.State)

	archived, err := GetThread(conn, idleCooling.GUID)
	require.NoError(t, err)
	assert.Equal(t, types.ThreadStateArchived, archived.State)
	require.NotNil(t, archived.ArchivedAt)
	assert.Equal(t, now.UnixMilli(), *archived.ArchivedAt)
}

func TestLifecyclePassIdempotentAndArchivedAtStable(t *testing.T) {
	conn := openTestDB(t)

	now := time.UnixMilli(1_000_000_000)
	thread := mustCreateThread(t, conn, "old", types.ThreadStateCooling,
		now.Add(-10*time.Hour).UnixMilli())

	result, err := RunLifecyclePass(conn, now, time.Minute, time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{thread.GUID}, result.Archived)

	first, err := GetThread(conn, thread.GUID)
	require.NoError(t, err)
	require.NotNil(t, first.ArchivedAt)

	// Re-running later produces no further transitions and keeps archived_at.
	later := now.Add(time.Hour)
	result, err = RunLifecyclePass(conn, later, time.Minute, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, result.Cooled)
	assert.Empty(t, result.Archived)

	second, err := GetThread(conn, thread.GUID)
	require.NoError(t, err)
	assert.Equal(t, *first.ArchivedAt, *second.ArchivedAt)
	assert.Equal(t, types.ThreadStateArchived, second.State)
}

func TestLifecyclePassIgnoresTerminalStates(t *testing.T) {
	conn := openTestDB(t)

	now := time.UnixMilli(1_000_000_000)
	ancient := now.Add(-100 * time.Hour).UnixMilli()
	archived := mustCreateThread(t, conn, "archived", types.ThreadStateArchived, ancient)
	superseded := mustCreateThread(t, conn, "superseded", types.ThreadStateSuperseded, ancient)

	result, err := RunLifecyclePass(conn, now, time.Minute, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, result.Cooled)
	assert.Empty(t, result.Archived)

	for _, guid := range []string{archived.GUID, superseded.GUID} {
		thread, err := GetThread(conn, guid)
		require.NoError(t, err)
		assert.NotEqual(t, types.ThreadStateCooling, thread.State)
	}
}
