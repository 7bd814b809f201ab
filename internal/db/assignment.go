package db

import (
	"database/sql"
	"fmt"

	"github.com/loomchat/loom/internal/types"
)

// AssignmentApplication is one atomic unit of assignment work: the claimed
// message, the normalized decision, and an optional accepted revival.
type AssignmentApplication struct {
	Message  types.Message
	Decision types.AssignmentDecision
	// RevivedThreadGUID, when non-empty on a create decision, names the
	// archived thread the new thread continues.
	RevivedThreadGUID string
	Now               int64 // unix millis
}

// AssignmentResult reports what ApplyAssignment did.
type AssignmentResult struct {
	Thread        types.Thread
	CreatedThread bool
	// Revived is true when the revival link was actually established.
	// A lost race against lifecycle leaves it false and the link absent.
	Revived bool
}

// ApplyAssignment applies a normalized assignment decision in a single
// transaction: create the destination thread if needed (with revival
// linkage), repoint the message, mark it assigned, and bump the thread's
// activity. Any failure rolls the whole unit back.
func ApplyAssignment(db *sql.DB, app AssignmentApplication) (AssignmentResult, error) {
	var result AssignmentResult

	err := withTx(db, func(tx *sql.Tx) error {
		var destination types.Thread
		switch app.Decision.Action {
		case types.AssignmentActionCreate:
			created, revived, err := createDestinationThread(tx, app)
			if err != nil {
				return err
			}
			destination = created
			result.CreatedThread = true
			result.Revived = revived

		case types.AssignmentActionAssign:
			updated, err := assignToExistingThread(tx, app)
			if err != nil {
				return err
			}
			destination = updated

		default:
			return fmt.Errorf("unknown assignment action %q", app.Decision.Action)
		}

		res, err := tx.Exec(`
			UPDATE loom_messages SET thread_guid = ?, assignment_status = ?, assignment_note = ?
			WHERE guid = ? AND assignment_status = ?
		`, destination.GUID, string(types.AssignmentStatusAssigned), app.Decision.Reason,
			app.Message.GUID, string(types.AssignmentStatusInProgress))
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("message %s is no longer claimed", app.Message.GUID)
		}

		result.Thread = destination
		return nil
	})
	if err != nil {
		return AssignmentResult{}, err
	}
	return result, nil
}

// createDestinationThread inserts the new thread and, when a revival
// source is named, links both directions. The old thread's transition is
// conditioned on it still being archived; if it moved on, the link is
// silently dropped.
func createDestinationThread(tx *sql.Tx, app AssignmentApplication) (types.Thread, bool, error) {
	lastMessageAt := app.Message.CreatedAt
	thread, err := createThread(tx, types.Thread{
		Title:         app.Decision.Title,
		State:         types.ThreadStateActive,
		CreatedAt:     app.Now,
		UpdatedAt:     app.Now,
		LastMessageAt: &lastMessageAt,
	})
	if err != nil {
		return types.Thread{}, false, err
	}

	if app.RevivedThreadGUID == "" {
		return thread, false, nil
	}

	res, err := tx.Exec(`
		UPDATE loom_threads SET state = ?, superseded_at = ?, continued_in_thread_guid = ?, updated_at = ?
		WHERE guid = ? AND state = ?
	`, string(types.ThreadStateSuperseded), app.Now, thread.GUID, app.Now,
		app.RevivedThreadGUID, string(types.ThreadStateArchived))
	if err != nil {
		return types.Thread{}, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return types.Thread{}, false, err
	}
	if affected == 0 {
		return thread, false, nil
	}

	if _, err := tx.Exec(`
		UPDATE loom_threads SET revives_thread_guid = ?, updated_at = ? WHERE guid = ?
	`, app.RevivedThreadGUID, app.Now, thread.GUID); err != nil {
		return types.Thread{}, false, err
	}
	thread.RevivesThreadGUID = &app.RevivedThreadGUID

	return thread, true, nil
}

// assignToExistingThread bumps the destination's activity and reopens a
// cooling thread. Fails if the destination is no longer live, aborting
// the assignment.
func assignToExistingThread(tx *sql.Tx, app AssignmentApplication) (types.Thread, error) {
	res, err := tx.Exec(`
		UPDATE loom_threads
		SET last_message_at = MAX(COALESCE(last_message_at, 0), ?),
		    state = ?,
		    updated_at = ?
		WHERE guid = ? AND state IN (?, ?)
	`, app.Message.CreatedAt, string(types.ThreadStateActive), app.Now,
		app.Decision.ThreadGUID, string(types.ThreadStateActive), string(types.ThreadStateCooling))
	if err != nil {
		return types.Thread{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return types.Thread{}, err
	}
	if affected == 0 {
		return types.Thread{}, fmt.Errorf("thread %s is no longer live", app.Decision.ThreadGUID)
	}

	thread, err := GetThread(tx, app.Decision.ThreadGUID)
	if err != nil {
		return types.Thread{}, err
	}
	if thread == nil {
		return types.Thread{}, fmt.Errorf("thread %s vanished mid-transaction", app.Decision.ThreadGUID)
	}
	return *thread, nil
}
