package db

import (
	"database/sql"
	"path/filepath"

	"github.com/loomchat/loom/internal/core"
	_ "modernc.org/sqlite"
)

// OpenDatabase opens the SQLite database for a project and ensures the
// schema exists.
func OpenDatabase(project core.Project) (*sql.DB, error) {
	core.EnsureLoomGitignore(filepath.Dir(project.DBPath))

	// The pragmas are applied via the DSN so that every connection in the
	// database/sql pool gets them, not just the one a bare Exec lands on.
	dsn := "file:" + project.DBPath +
		"?_pragma=foreign_keys(ON)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := InitSchema(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}
