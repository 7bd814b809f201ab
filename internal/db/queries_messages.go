package db

import (
	"database/sql"
	"time"

	"github.com/loomchat/loom/internal/types"
)

// CreateMessage inserts a new message in pending state. This is the
// producer side of the assignment queue.
func CreateMessage(db *sql.DB, msg types.Message) (types.Message, error) {
	guid := msg.GUID
	if guid == "" {
		var err error
		guid, err = generateUniqueGUIDForTable(db, "loom_messages", "msg")
		if err != nil {
			return types.Message{}, err
		}
	}

	createdAt := msg.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}
	status := msg.AssignmentStatus
	if status == "" {
		status = types.AssignmentStatusPending
	}

	_, err := db.Exec(`
		INSERT INTO loom_messages (guid, created_at, author, content, thread_guid, assignment_status, assignment_note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, guid, createdAt, msg.Author, msg.Content, nullableString(msg.ThreadGUID), string(status), nullableString(msg.AssignmentNote))
	if err != nil {
		return types.Message{}, err
	}

	msg.GUID = guid
	msg.CreatedAt = createdAt
	msg.AssignmentStatus = status
	return msg, nil
}

// GetMessage returns a message by GUID.
func GetMessage(db *sql.DB, guid string) (*types.Message, error) {
	row := db.QueryRow(`
		SELECT guid, created_at, author, content, thread_guid, assignment_status, assignment_note
		FROM loom_messages WHERE guid = ?
	`, guid)

	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ClaimNextPendingMessage atomically claims the oldest pending message,
// transitioning it to in_progress. Returns nil without error when no
// pending message exists. Safe under multiple concurrent claimers: the
// compare-and-swap on assignment_status guarantees exactly one winner
// per message; a lost race moves on to the next oldest row.
func ClaimNextPendingMessage(db *sql.DB) (*types.Message, error) {
	for {
		row := db.QueryRow(`
			SELECT guid FROM loom_messages
			WHERE assignment_status = ?
			ORDER BY created_at ASC, guid ASC
			LIMIT 1
		`, string(types.AssignmentStatusPending))

		var guid string
		if err := row.Scan(&guid); err != nil {
			if err == sql.ErrNoRows {
				return nil, nil
			}
			return nil, err
		}

		result, err := db.Exec(`
			UPDATE loom_messages SET assignment_status = ?
			WHERE guid = ? AND assignment_status = ?
		`, string(types.AssignmentStatusInProgress), guid, string(types.AssignmentStatusPending))
		if err != nil {
			return nil, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			// Another claimer won this row.
			continue
		}

		return GetMessage(db, guid)
	}
}

// MarkMessageFailed terminally fails a claimed message with a note. This
// is a standalone minimal update, deliberately outside any assignment
// transaction, so it succeeds even after that transaction rolled back.
func MarkMessageFailed(db *sql.DB, guid, note string) error {
	_, err := db.Exec(`
		UPDATE loom_messages SET assignment_status = ?, assignment_note = ?
		WHERE guid = ? AND assignment_status = ?
	`, string(types.AssignmentStatusFailed), note, guid, string(types.AssignmentStatusInProgress))
	return err
}

// GetThreadMessages returns a thread's messages in chronological order.
func GetThreadMessages(db *sql.DB, threadGUID string) ([]types.Message, error) {
	rows, err := db.Query(`
		SELECT guid, created_at, author, content, thread_guid, assignment_status, assignment_note
		FROM loom_messages
		WHERE thread_guid = ?
		ORDER BY created_at ASC, guid ASC
	`, threadGUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetThreadExcerpt returns the bodies of the n most recent messages of a
// thread, oldest first.
func GetThreadExcerpt(q DBTX, threadGUID string, n int) ([]string, error) {
	rows, err := q.Query(`
		SELECT content FROM loom_messages
		WHERE thread_guid = ?
		ORDER BY created_at DESC, guid DESC
		LIMIT ?
	`, threadGUID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bodies []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		bodies = append(bodies, body)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(bodies)-1; i < j; i, j = i+1, j-1 {
		bodies[i], bodies[j] = bodies[j], bodies[i]
	}
	return bodies, nil
}

// CountMessagesByStatus returns message counts grouped by assignment status.
func CountMessagesByStatus(db *sql.DB) (map[types.AssignmentStatus]int64, error) {
	rows, err := db.Query(`
		SELECT assignment_status, COUNT(*) FROM loom_messages GROUP BY assignment_status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[types.AssignmentStatus]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[types.AssignmentStatus(status)] = count
	}
	return counts, rows.Err()
}

func scanMessage(scanner interface{ Scan(dest ...any) error }) (types.Message, error) {
	var row messageRow
	if err := scanner.Scan(&row.GUID, &row.CreatedAt, &row.Author, &row.Content, &row.ThreadGUID, &row.AssignmentStatus, &row.AssignmentNote); err != nil {
		return types.Message{}, err
	}
	return row.toMessage(), nil
}

func scanMessages(rows *sql.Rows) ([]types.Message, error) {
	var messages []types.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

type messageRow struct {
	GUID             string
	CreatedAt        int64
	Author           string
	Content          string
	ThreadGUID       sql.NullString
	AssignmentStatus string
	AssignmentNote   sql.NullString
}

func (row messageRow) toMessage() types.Message {
	return types.Message{
		GUID:             row.GUID,
		CreatedAt:        row.CreatedAt,
		Author:           row.Author,
		Content:          row.Content,
		ThreadGUID:       nullStringPtr(row.ThreadGUID),
		AssignmentStatus: types.AssignmentStatus(row.AssignmentStatus),
		AssignmentNote:   nullStringPtr(row.AssignmentNote),
	}
}
