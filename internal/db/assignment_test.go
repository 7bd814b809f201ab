package db

import (
	"testing"

	"github.com/loomchat/loom/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAssignmentCreatesThread(t *testing.T) {
	conn := openTestDB(t)

	mustCreateMessage(t, conn, "alice", "Hello world", 1000)
	msg := mustClaim(t, conn)

	result, err := ApplyAssignment(conn, AssignmentApplication{
		Message: msg,
		Decision: types.AssignmentDecision{
			Action:     types.AssignmentActionCreate,
			Title:      "Hello world",
			Confidence: 1,
			Reason:     "first thread in the system",
		},
		Now: 2000,
	})
	require.NoError(t, err)
	require.True(t, result.CreatedThread)
	assert.False(t, result.Revived)

	thread, err := GetThread(conn, result.Thread.GUID)
	require.NoError(t, err)
	require.NotNil(t, thread)
	assert.Equal(t, types.ThreadStateActive, thread.State)
	assert.Equal(t, "Hello world", thread.Title)
	require.NotNil(t, thread.LastMessageAt)
	assert.Equal(t, int64(1000), *thread.LastMessageAt)

	fetched, err := GetMessage(conn, msg.GUID)
	require.NoError(t, err)
	assert.Equal(t, types.AssignmentStatusAssigned, fetched.AssignmentStatus)
	require.NotNil(t, fetched.ThreadGUID)
	assert.Equal(t, thread.GUID, *fetched.ThreadGUID)
	require.NotNil(t, fetched.AssignmentNote)
	assert.Equal(t, "first thread in the system", *fetched.AssignmentNote)
}

func TestApplyAssignmentToExistingReopensCooling(t *testing.T) {
	conn := openTestDB(t)

	thread := mustCreateThread(t, conn, "deploys", types.ThreadStateCooling, 500)
	mustCreateMessage(t, conn, "bob", "deploy still broken", 1500)
	msg := mustClaim(t, conn)

	result, err := ApplyAssignment(conn, AssignmentApplication{
		Message: msg,
		Decision: types.AssignmentDecision{
			Action:     types.AssignmentActionAssign,
			ThreadGUID: thread.GUID,
			Confidence: 0.8,
			Reason:     "token overlap",
		},
		Now: 2000,
	})
	require.NoError(t, err)
	assert.False(t, result.CreatedThread)

	updated, err := GetThread(conn, thread.GUID)
	require.NoError(t, err)
	assert.Equal(t, types.ThreadStateActive, updated.State)
	require.NotNil(t, updated.LastMessageAt)
	assert.Equal(t, int64(1500), *updated.LastMessageAt)
}

func TestApplyAssignmentKeepsNewerLastMessageAt(t *testing.T) {
	conn := openTestDB(t)

	thread := mustCreateThread(t, conn, "deploys", types.ThreadStateActive, 5000)
	mustCreateMessage(t, conn, "bob", "late arrival", 1500)
	msg := mustClaim(t, conn)

	_, err := ApplyAssignment(conn, AssignmentApplication{
		Message: msg,
		Decision: types.AssignmentDecision{
			Action:     types.AssignmentActionAssign,
			ThreadGUID: thread.GUID,
			Reason:     "overlap",
		},
		Now: 6000,
	})
	require.NoError(t, err)

	updated, err := GetThread(conn, thread.GUID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastMessageAt)
	assert.Equal(t, int64(5000), *updated.LastMessageAt)
}

func TestApplyAssignmentToDeadThreadFails(t *testing.T) {
	conn := openTestDB(t)

	thread := mustCreateThread(t, conn, "old", types.ThreadStateArchived, 100)
	mustCreateMessage(t, conn, "bob", "hi", 1500)
	msg := mustClaim(t, conn)

	_, err := ApplyAssignment(conn, AssignmentApplication{
		Message: msg,
		Decision: types.AssignmentDecision{
			Action:     types.AssignmentActionAssign,
			ThreadGUID: thread.GUID,
			Reason:     "stale decision",
		},
		Now: 2000,
	})
	require.Error(t, err)

	// The whole unit rolled back: the message is still claimed.
	fetched, err := GetMessage(conn, msg.GUID)
	require.NoError(t, err)
	assert.Equal(t, types.AssignmentStatusInProgress, fetched.AssignmentStatus)
	assert.Nil(t, fetched.ThreadGUID)
}

func TestApplyAssignmentWithRevivalLinksBothDirections(t *testing.T) {
	conn := openTestDB(t)

	archivedAt := int64(400)
	old, err := CreateThread(conn, types.Thread{
		Title:      "postgres upgrade",
		State:      types.ThreadStateArchived,
		ArchivedAt: &archivedAt,
	})
	require.NoError(t, err)

	mustCreateMessage(t, conn, "carol", "picking the postgres upgrade back up", 1000)
	msg := mustClaim(t, conn)

	result, err := ApplyAssignment(conn, AssignmentApplication{
		Message: msg,
		Decision: types.AssignmentDecision{
			Action:     types.AssignmentActionCreate,
			Title:      "Postgres upgrade again",
			Confidence: 0.7,
			Reason:     "continues archived topic",
		},
		RevivedThreadGUID: old.GUID,
		Now:               2000,
	})
	require.NoError(t, err)
	require.True(t, result.CreatedThread)
	assert.True(t, result.Revived)

	newThread, err := GetThread(conn, result.Thread.GUID)
	require.NoError(t, err)
	require.NotNil(t, newThread.RevivesThreadGUID)
	assert.Equal(t, old.GUID, *newThread.RevivesThreadGUID)

	oldThread, err := GetThread(conn, old.GUID)
	require.NoError(t, err)
	assert.Equal(t, types.ThreadStateSuperseded, oldThread.State)
	require.NotNil(t, oldThread.ContinuedInThreadGUID)
	assert.Equal(t, newThread.GUID, *oldThread.ContinuedInThreadGUID)
	require.NotNil(t, oldThread.SupersededAt)
	assert.Nil(t, oldThread.MergedIntoThreadGUID)
}

func TestApplyAssignmentRevivalDroppedWhenSourceNotArchived(t *testing.T) {
	conn := openTestDB(t)

	// The "archived" candidate moved on before commit.
	old := mustCreateThread(t, conn, "reopened", types.ThreadStateActive, 900)

	mustCreateMessage(t, conn, "carol", "new topic", 1000)
	msg := mustClaim(t, conn)

	result, err := ApplyAssignment(conn, AssignmentApplication{
		Message: msg,
		Decision: types.AssignmentDecision{
			Action: types.AssignmentActionCreate,
			Title:  "New topic",
			Reason: "no match",
		},
		RevivedThreadGUID: old.GUID,
		Now:               2000,
	})
	require.NoError(t, err)
	require.True(t, result.CreatedThread)
	assert.False(t, result.Revived)

	// Neither side of the link is set.
	newThread, err := GetThread(conn, result.Thread.GUID)
	require.NoError(t, err)
	assert.Nil(t, newThread.RevivesThreadGUID)

	oldThread, err := GetThread(conn, old.GUID)
	require.NoError(t, err)
	assert.Equal(t, types.ThreadStateActive, oldThread.State)
	assert.Nil(t, oldThread.ContinuedInThreadGUID)
}
