package db

import (
	"database/sql"
	"strings"
	"time"

	"github.com/loomchat/loom/internal/types"
)

// LifecycleResult lists the threads a lifecycle pass transitioned.
type LifecycleResult struct {
	Cooled   []string
	Archived []string
}

// RunLifecyclePass performs the two bulk time-driven transitions: active
// threads idle beyond activeIdle become cooling, cooling threads idle
// beyond coolingIdle become archived (archived_at set once). Purely
// conditional updates; idempotent and safe to run on any cadence.
func RunLifecyclePass(db *sql.DB, now time.Time, activeIdle, coolingIdle time.Duration) (LifecycleResult, error) {
	var result LifecycleResult

	err := withTx(db, func(tx *sql.Tx) error {
		nowMS := now.UnixMilli()

		cooled, err := transitionIdleThreads(tx, transitionIdleParams{
			From:   types.ThreadStateActive,
			To:     types.ThreadStateCooling,
			Cutoff: now.Add(-activeIdle).UnixMilli(),
			NowMS:  nowMS,
		})
		if err != nil {
			return err
		}
		result.Cooled = cooled

		archived, err := transitionIdleThreads(tx, transitionIdleParams{
			From:        types.ThreadStateCooling,
			To:          types.ThreadStateArchived,
			Cutoff:      now.Add(-coolingIdle).UnixMilli(),
			NowMS:       nowMS,
			SetArchived: true,
		})
		if err != nil {
			return err
		}
		result.Archived = archived

		return nil
	})
	if err != nil {
		return LifecycleResult{}, err
	}
	return result, nil
}

type transitionIdleParams struct {
	From        types.ThreadState
	To          types.ThreadState
	Cutoff      int64
	NowMS       int64
	SetArchived bool
}

func transitionIdleThreads(tx *sql.Tx, params transitionIdleParams) ([]string, error) {
	rows, err := tx.Query(`
		SELECT guid FROM loom_threads
		WHERE state = ? AND last_message_at IS NOT NULL AND last_message_at <= ?
	`, string(params.From), params.Cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guids []string
	for rows.Next() {
		var guid string
		if err := rows.Scan(&guid); err != nil {
			return nil, err
		}
		guids = append(guids, guid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(guids) == 0 {
		return nil, nil
	}

	set := "state = ?, updated_at = ?"
	args := []any{string(params.To), params.NowMS}
	if params.SetArchived {
		set += ", archived_at = COALESCE(archived_at, ?)"
		args = append(args, params.NowMS)
	}

	placeholders := make([]string, len(guids))
	for i, guid := range guids {
		placeholders[i] = "?"
		args = append(args, guid)
	}
	args = append(args, string(params.From), params.Cutoff)

	// Re-check the precondition inside the UPDATE so a concurrent
	// transition makes this a harmless no-op for the affected row.
	query := "UPDATE loom_threads SET " + set +
		" WHERE guid IN (" + strings.Join(placeholders, ", ") + ")" +
		" AND state = ? AND last_message_at IS NOT NULL AND last_message_at <= ?"
	if _, err := tx.Exec(query, args...); err != nil {
		return nil, err
	}

	return guids, nil
}
