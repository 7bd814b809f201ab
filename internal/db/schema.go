package db

import "database/sql"

const schemaSQL = `
-- Ingested chat messages
CREATE TABLE IF NOT EXISTS loom_messages (
  guid TEXT PRIMARY KEY,                           -- e.g., "msg-a1b2c3d4"
  created_at INTEGER NOT NULL,                     -- unix millis, assignment ordering key
  author TEXT NOT NULL,
  content TEXT NOT NULL,
  thread_guid TEXT,                                -- null until assigned
  assignment_status TEXT NOT NULL DEFAULT 'pending', -- pending|in_progress|assigned|failed
  assignment_note TEXT                             -- explanation of the last decision
);

CREATE INDEX IF NOT EXISTS idx_loom_messages_status ON loom_messages(assignment_status, created_at);
CREATE INDEX IF NOT EXISTS idx_loom_messages_thread ON loom_messages(thread_guid);
CREATE INDEX IF NOT EXISTS idx_loom_messages_created ON loom_messages(created_at);

-- Discussion threads
CREATE TABLE IF NOT EXISTS loom_threads (
  guid TEXT PRIMARY KEY,                           -- e.g., "thrd-a1b2c3d4"
  title TEXT NOT NULL,
  state TEXT NOT NULL DEFAULT 'active',            -- active|cooling|archived|superseded
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  last_message_at INTEGER,                         -- drives aging and candidate ranking
  archived_at INTEGER,                             -- set once on archival
  superseded_at INTEGER,                           -- set once on supersession
  revives_thread_guid TEXT,                        -- archived thread this one continues
  continued_in_thread_guid TEXT,                   -- thread that revived this one
  merged_into_thread_guid TEXT                     -- surviving thread after a merge
);

CREATE INDEX IF NOT EXISTS idx_loom_threads_state ON loom_threads(state);
CREATE INDEX IF NOT EXISTS idx_loom_threads_activity ON loom_threads(last_message_at);
`

// InitSchema creates the tables and indexes if missing.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}
