package sqlite

// Schema defines the SQLite schema for meetings and per-participant emotion
// aggregates. All statements are idempotent (IF NOT EXISTS) so the schema
// can be applied on every open.
//
// meeting_emotions keeps one row per (meeting_id, uid). The seven label
// counters and total_frames are only ever mutated with in-place increments,
// which keeps total_frames equal to the sum of the label counters under
// concurrent writers.
const Schema = `
CREATE TABLE IF NOT EXISTS meetings (
    meeting_id    TEXT PRIMARY KEY,
    meeting_name  TEXT NOT NULL,
    meeting_type  TEXT NOT NULL,
    meeting_date  TEXT NOT NULL,
    created_by    TEXT NOT NULL,
    invited_users TEXT NOT NULL DEFAULT '[]',
    active        INTEGER NOT NULL DEFAULT 1,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_meetings_created_by ON meetings(created_by);

CREATE TABLE IF NOT EXISTS meeting_emotions (
    meeting_id   TEXT NOT NULL,
    uid          TEXT NOT NULL,
    name         TEXT NOT NULL DEFAULT '',
    angry        INTEGER NOT NULL DEFAULT 0 CHECK (angry >= 0),
    disgust      INTEGER NOT NULL DEFAULT 0 CHECK (disgust >= 0),
    fear         INTEGER NOT NULL DEFAULT 0 CHECK (fear >= 0),
    happy        INTEGER NOT NULL DEFAULT 0 CHECK (happy >= 0),
    neutral      INTEGER NOT NULL DEFAULT 0 CHECK (neutral >= 0),
    sad          INTEGER NOT NULL DEFAULT 0 CHECK (sad >= 0),
    surprise     INTEGER NOT NULL DEFAULT 0 CHECK (surprise >= 0),
    total_frames INTEGER NOT NULL DEFAULT 0 CHECK (total_frames >= 0),
    last_emotion TEXT NOT NULL DEFAULT '',
    updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (meeting_id, uid)
);

CREATE INDEX IF NOT EXISTS idx_meeting_emotions_meeting ON meeting_emotions(meeting_id);
`
