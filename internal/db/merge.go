package db

import (
	"database/sql"

	"github.com/loomchat/loom/internal/types"
)

// MergeOutcome reports the result of executing a merge.
type MergeOutcome struct {
	Merged bool
	Source types.Thread
	Target types.Thread
	// MovedMessages is the number of messages repointed to the target.
	MovedMessages int64
}

// ExecuteMerge consolidates the source thread into the target in one
// transaction: supersede the source (conditioned on it still being live),
// repoint every source message to the target, recompute the target's
// last_message_at over the combined set, and force the target active.
// Returns Merged=false without error when the source lost a race and no
// longer qualifies.
func ExecuteMerge(db *sql.DB, sourceGUID, targetGUID string, now int64) (MergeOutcome, error) {
	var outcome MergeOutcome

	err := withTx(db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE loom_threads
			SET state = ?, merged_into_thread_guid = ?, superseded_at = ?, updated_at = ?
			WHERE guid = ? AND state IN (?, ?)
		`, string(types.ThreadStateSuperseded), targetGUID, now, now,
			sourceGUID, string(types.ThreadStateActive), string(types.ThreadStateCooling))
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Legitimately lost race; nothing further to do.
			return nil
		}

		moved, err := tx.Exec(`
			UPDATE loom_messages SET thread_guid = ? WHERE thread_guid = ?
		`, targetGUID, sourceGUID)
		if err != nil {
			return err
		}
		outcome.MovedMessages, err = moved.RowsAffected()
		if err != nil {
			return err
		}

		var lastMessageAt sql.NullInt64
		if err := tx.QueryRow(`
			SELECT MAX(created_at) FROM loom_messages WHERE thread_guid = ?
		`, targetGUID).Scan(&lastMessageAt); err != nil {
			return err
		}

		// A merge always reopens the target.
		if _, err := tx.Exec(`
			UPDATE loom_threads
			SET state = ?, last_message_at = COALESCE(?, last_message_at), updated_at = ?
			WHERE guid = ?
		`, string(types.ThreadStateActive), nullableInt(nullIntPtr(lastMessageAt)), now, targetGUID); err != nil {
			return err
		}

		source, err := GetThread(tx, sourceGUID)
		if err != nil {
			return err
		}
		target, err := GetThread(tx, targetGUID)
		if err != nil {
			return err
		}
		if source != nil {
			outcome.Source = *source
		}
		if target != nil {
			outcome.Target = *target
		}
		outcome.Merged = true
		return nil
	})
	if err != nil {
		return MergeOutcome{}, err
	}
	return outcome, nil
}
