package db

import (
	"sync"
	"testing"

	"github.com/loomchat/loom/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetMessage(t *testing.T) {
	conn := openTestDB(t)

	created := mustCreateMessage(t, conn, "alice", "hello world", 0)
	require.NotEmpty(t, created.GUID)
	require.NotZero(t, created.CreatedAt)
	assert.Equal(t, types.AssignmentStatusPending, created.AssignmentStatus)

	fetched, err := GetMessage(conn, created.GUID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "hello world", fetched.Content)
	assert.Nil(t, fetched.ThreadGUID)
}

func TestGetMessageMissing(t *testing.T) {
	conn := openTestDB(t)

	fetched, err := GetMessage(conn, "msg-nope")
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestClaimNextPendingMessageOrderAndExhaustion(t *testing.T) {
	conn := openTestDB(t)

	second := mustCreateMessage(t, conn, "bob", "later", 200)
	first := mustCreateMessage(t, conn, "alice", "earlier", 100)

	claimed := mustClaim(t, conn)
	assert.Equal(t, first.GUID, claimed.GUID)
	assert.Equal(t, types.AssignmentStatusInProgress, claimed.AssignmentStatus)

	claimed = mustClaim(t, conn)
	assert.Equal(t, second.GUID, claimed.GUID)

	none, err := ClaimNextPendingMessage(conn)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestClaimNextPendingMessageConcurrent(t *testing.T) {
	conn := openTestDB(t)

	const total = 20
	for i := 0; i < total; i++ {
		mustCreateMessage(t, conn, "alice", "content", int64(100+i))
	}

	var mu sync.Mutex
	seen := make(map[string]int)

	var wg sync.WaitGroup
	for worker := 0; worker < 4; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				msg, err := ClaimNextPendingMessage(conn)
				if err != nil {
					t.Errorf("claim: %v", err)
					return
				}
				if msg == nil {
					return
				}
				mu.Lock()
				seen[msg.GUID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, total)
	for guid, count := range seen {
		assert.Equalf(t, 1, count, "message %s claimed %d times", guid, count)
	}
}

func TestMarkMessageFailedOnlyFromInProgress(t *testing.T) {
	conn := openTestDB(t)

	msg := mustCreateMessage(t, conn, "alice", "doomed", 100)

	// Not claimed yet: the guard leaves it pending.
	require.NoError(t, MarkMessageFailed(conn, msg.GUID, "nope"))
	fetched, err := GetMessage(conn, msg.GUID)
	require.NoError(t, err)
	assert.Equal(t, types.AssignmentStatusPending, fetched.AssignmentStatus)

	mustClaim(t, conn)
	require.NoError(t, MarkMessageFailed(conn, msg.GUID, "broken"))

	fetched, err = GetMessage(conn, msg.GUID)
	require.NoError(t, err)
	assert.Equal(t, types.AssignmentStatusFailed, fetched.AssignmentStatus)
	require.NotNil(t, fetched.AssignmentNote)
	assert.Equal(t, "broken", *fetched.AssignmentNote)
}

func TestGetThreadExcerptRecentOldestFirst(t *testing.T) {
	conn := openTestDB(t)

	thread := mustCreateThread(t, conn, "deploys", types.ThreadStateActive, 100)
	for i, body := range []string{"one", "two", "three", "four"} {
		msg := mustCreateMessage(t, conn, "alice", body, int64(100+i))
		_, err := conn.Exec("UPDATE loom_messages SET thread_guid = ? WHERE guid = ?", thread.GUID, msg.GUID)
		require.NoError(t, err)
	}

	excerpt, err := GetThreadExcerpt(conn, thread.GUID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "four"}, excerpt)
}

func TestGetCandidatesRankedByRecency(t *testing.T) {
	conn := openTestDB(t)

	older := mustCreateThread(t, conn, "older", types.ThreadStateActive, 100)
	newer := mustCreateThread(t, conn, "newer", types.ThreadStateCooling, 500)
	mustCreateThread(t, conn, "archived", types.ThreadStateArchived, 900)

	candidates, err := GetCandidates(conn, types.LiveThreadStates, 10, 3)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, newer.GUID, candidates[0].Thread.GUID)
	assert.Equal(t, older.GUID, candidates[1].Thread.GUID)
}

func TestCounts(t *testing.T) {
	conn := openTestDB(t)

	mustCreateMessage(t, conn, "alice", "a", 100)
	mustCreateMessage(t, conn, "bob", "b", 200)
	mustClaim(t, conn)
	mustCreateThread(t, conn, "t", types.ThreadStateActive, 100)

	messages, err := CountMessagesByStatus(conn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), messages[types.AssignmentStatusPending])
	assert.Equal(t, int64(1), messages[types.AssignmentStatusInProgress])

	threads, err := CountThreadsByState(conn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), threads[types.ThreadStateActive])
}

func TestGetThreadByPrefix(t *testing.T) {
	conn := openTestDB(t)

	thread := mustCreateThread(t, conn, "topic", types.ThreadStateActive, 100)

	found, err := GetThreadByPrefix(conn, thread.GUID[:8])
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, thread.GUID, found.GUID)

	missing, err := GetThreadByPrefix(conn, "thrd-zzzzzz")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
