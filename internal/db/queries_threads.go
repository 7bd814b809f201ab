package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/loomchat/loom/internal/types"
)

// CreateThread inserts a new thread. Used directly only by tests and
// tooling; the engine creates threads inside ApplyAssignment.
func CreateThread(db *sql.DB, thread types.Thread) (types.Thread, error) {
	return createThread(db, thread)
}

func createThread(q DBTX, thread types.Thread) (types.Thread, error) {
	guid := thread.GUID
	if guid == "" {
		var err error
		guid, err = generateUniqueGUIDForTable(q, "loom_threads", "thrd")
		if err != nil {
			return types.Thread{}, err
		}
	}

	state := thread.State
	if state == "" {
		state = types.ThreadStateActive
	}
	now := time.Now().UnixMilli()
	createdAt := thread.CreatedAt
	if createdAt == 0 {
		createdAt = now
	}
	updatedAt := thread.UpdatedAt
	if updatedAt == 0 {
		updatedAt = createdAt
	}

	_, err := q.Exec(`
		INSERT INTO loom_threads (guid, title, state, created_at, updated_at, last_message_at,
			archived_at, superseded_at, revives_thread_guid, continued_in_thread_guid, merged_into_thread_guid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, guid, thread.Title, string(state), createdAt, updatedAt, nullableInt(thread.LastMessageAt),
		nullableInt(thread.ArchivedAt), nullableInt(thread.SupersededAt),
		nullableString(thread.RevivesThreadGUID), nullableString(thread.ContinuedInThreadGUID),
		nullableString(thread.MergedIntoThreadGUID))
	if err != nil {
		return types.Thread{}, err
	}

	thread.GUID = guid
	thread.State = state
	thread.CreatedAt = createdAt
	thread.UpdatedAt = updatedAt
	return thread, nil
}

func nullableInt(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

const threadColumns = `guid, title, state, created_at, updated_at, last_message_at,
	archived_at, superseded_at, revives_thread_guid, continued_in_thread_guid, merged_into_thread_guid`

// GetThread returns a thread by GUID.
func GetThread(q DBTX, guid string) (*types.Thread, error) {
	row := q.QueryRow(fmt.Sprintf("SELECT %s FROM loom_threads WHERE guid = ?", threadColumns), guid)
	thread, err := scanThread(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetThreadByPrefix returns the oldest thread whose GUID matches a prefix.
func GetThreadByPrefix(db *sql.DB, prefix string) (*types.Thread, error) {
	rows, err := db.Query(fmt.Sprintf(`
		SELECT %s FROM loom_threads
		WHERE guid = ? OR guid LIKE ?
		ORDER BY created_at ASC
	`, threadColumns), prefix, fmt.Sprintf("%s%%", prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	thread, err := scanThread(rows)
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetThreads returns threads filtered by state, most recent activity first.
func GetThreads(db *sql.DB, options *types.ThreadQueryOptions) ([]types.Thread, error) {
	query := fmt.Sprintf("SELECT %s FROM loom_threads", threadColumns)
	var args []any

	if options != nil && len(options.States) > 0 {
		placeholders := make([]string, len(options.States))
		for i, state := range options.States {
			placeholders[i] = "?"
			args = append(args, string(state))
		}
		query += " WHERE state IN (" + strings.Join(placeholders, ", ") + ")"
	}

	query += " ORDER BY COALESCE(last_message_at, created_at) DESC, guid ASC"
	if options != nil && options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanThreads(rows)
}

// GetCandidates returns up to limit threads in the given states, ranked by
// recency, each annotated with an excerpt of its recent messages.
func GetCandidates(db *sql.DB, states []types.ThreadState, limit, excerptLen int) ([]types.Candidate, error) {
	threads, err := GetThreads(db, &types.ThreadQueryOptions{States: states, Limit: limit})
	if err != nil {
		return nil, err
	}

	candidates := make([]types.Candidate, 0, len(threads))
	for _, thread := range threads {
		excerpt, err := GetThreadExcerpt(db, thread.GUID, excerptLen)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, types.Candidate{Thread: thread, Excerpt: excerpt})
	}
	return candidates, nil
}

// CountThreadsByState returns thread counts grouped by state.
func CountThreadsByState(db *sql.DB) (map[types.ThreadState]int64, error) {
	rows, err := db.Query("SELECT state, COUNT(*) FROM loom_threads GROUP BY state")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[types.ThreadState]int64)
	for rows.Next() {
		var state string
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		counts[types.ThreadState(state)] = count
	}
	return counts, rows.Err()
}

func scanThread(scanner interface{ Scan(dest ...any) error }) (types.Thread, error) {
	var row threadRow
	if err := scanner.Scan(&row.GUID, &row.Title, &row.State, &row.CreatedAt, &row.UpdatedAt,
		&row.LastMessageAt, &row.ArchivedAt, &row.SupersededAt,
		&row.RevivesThreadGUID, &row.ContinuedInThreadGUID, &row.MergedIntoThreadGUID); err != nil {
		return types.Thread{}, err
	}
	return row.toThread(), nil
}

func scanThreads(rows *sql.Rows) ([]types.Thread, error) {
	var threads []types.Thread
	for rows.Next() {
		thread, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return threads, nil
}

type threadRow struct {
	GUID                  string
	Title                 string
	State                 string
	CreatedAt             int64
	UpdatedAt             int64
	LastMessageAt         sql.NullInt64
	ArchivedAt            sql.NullInt64
	SupersededAt          sql.NullInt64
	RevivesThreadGUID     sql.NullString
	ContinuedInThreadGUID sql.NullString
	MergedIntoThreadGUID  sql.NullString
}

func (row threadRow) toThread() types.Thread {
	return types.Thread{
		GUID:                  row.GUID,
		Title:                 row.Title,
		State:                 types.ThreadState(row.State),
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
		LastMessageAt:         nullIntPtr(row.LastMessageAt),
		ArchivedAt:            nullIntPtr(row.ArchivedAt),
		SupersededAt:          nullIntPtr(row.SupersededAt),
		RevivesThreadGUID:     nullStringPtr(row.RevivesThreadGUID),
		ContinuedInThreadGUID: nullStringPtr(row.ContinuedInThreadGUID),
		MergedIntoThreadGUID:  nullStringPtr(row.MergedIntoThreadGUID),
	}
}
