package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/loomchat/loom/internal/core"
	"github.com/loomchat/loom/internal/types"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	project := core.Project{DBPath: filepath.Join(t.TempDir(), "test.db")}
	conn, err := OpenDatabase(project)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func mustCreateMessage(t *testing.T, conn *sql.DB, author, content string, createdAt int64) types.Message {
	t.Helper()
	msg, err := CreateMessage(conn, types.Message{
		Author:    author,
		Content:   content,
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	return msg
}

func mustCreateThread(t *testing.T, conn *sql.DB, title string, state types.ThreadState, lastMessageAt int64) types.Thread {
	t.Helper()
	thread, err := CreateThread(conn, types.Thread{
		Title:         title,
		State:         state,
		LastMessageAt: &lastMessageAt,
	})
	require.NoError(t, err)
	return thread
}

func mustClaim(t *testing.T, conn *sql.DB) types.Message {
	t.Helper()
	msg, err := ClaimNextPendingMessage(conn)
	require.NoError(t, err)
	require.NotNil(t, msg)
	return *msg
}
