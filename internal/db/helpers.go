package db

import (
	"database/sql"
	"fmt"

	"github.com/loomchat/loom/internal/core"
)

// DBTX represents the shared methods of sql.DB and sql.Tx.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func nullIntPtr(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	v := value.Int64
	return &v
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func generateUniqueGUIDForTable(q DBTX, table, prefix string) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		guid, err := core.GenerateGUID(prefix)
		if err != nil {
			return "", err
		}
		var exists int
		err = q.QueryRow(fmt.Sprintf("SELECT 1 FROM %s WHERE guid = ?", table), guid).Scan(&exists)
		if err == sql.ErrNoRows {
			return guid, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not generate unique guid for %s", table)
}

func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
