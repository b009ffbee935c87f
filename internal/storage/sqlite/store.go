// Package sqlite provides the SQLite implementation of the storage
// interfaces. It is the default backend: a single-file database holding the
// meeting directory and the per-participant emotion aggregates.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/conline/conline/internal/storage"
	"github.com/conline/conline/pkg/types"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at dsn and applies the
// schema.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Using a single open
	// connection serialises writes and avoids SQLITE_BUSY errors when many
	// participant pipelines record samples at once. WAL mode lets the
	// projection reads proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}

	// Wait instead of failing with SQLITE_BUSY when the connection is held
	// by another goroutine.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB exposes the raw database handle for tests and maintenance tooling.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// PutMeeting creates a meeting record.
func (s *Store) PutMeeting(ctx context.Context, meeting *types.Meeting) error {
	invited, err := json.Marshal(meeting.InvitedUsers)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode invited users: %w", err)
	}

	createdAt := meeting.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO meetings (meeting_id, meeting_name, meeting_type, meeting_date, created_by, invited_users, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, meeting.ID, meeting.Name, string(meeting.Kind), meeting.Date, meeting.CreatedBy, string(invited), boolToInt(meeting.Active), createdAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to store meeting %s: %w", meeting.ID, err)
	}
	return nil
}

// UpdateMeeting replaces the editable fields of an existing meeting.
func (s *Store) UpdateMeeting(ctx context.Context, meeting *types.Meeting) error {
	invited, err := json.Marshal(meeting.InvitedUsers)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode invited users: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE meetings
		SET meeting_name = ?, meeting_date = ?, invited_users = ?, active = ?
		WHERE meeting_id = ?
	`, meeting.Name, meeting.Date, string(invited), boolToInt(meeting.Active), meeting.ID)
	if err != nil {
		return fmt.Errorf("sqlite: failed to update meeting %s: %w", meeting.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check update result: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetMeeting retrieves a meeting by identifier.
func (s *Store) GetMeeting(ctx context.Context, id string) (*types.Meeting, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT meeting_id, meeting_name, meeting_type, meeting_date, created_by, invited_users, active, created_at
		FROM meetings
		WHERE meeting_id = ?
	`, id)

	meeting, err := scanMeeting(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get meeting %s: %w", id, err)
	}
	return meeting, nil
}

// ListMeetingsByCreator retrieves every meeting created by uid, newest first.
func (s *Store) ListMeetingsByCreator(ctx context.Context, uid string) ([]types.Meeting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT meeting_id, meeting_name, meeting_type, meeting_date, created_by, invited_users, active, created_at
		FROM meetings
		WHERE created_by = ?
		ORDER BY created_at DESC, meeting_id
	`, uid)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []types.Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan meeting: %w", err)
		}
		meetings = append(meetings, *meeting)
	}
	return meetings, rows.Err()
}

// counterColumn maps each closed-set label to its counter column. Labels
// are validated at the inference boundary, but the whitelist keeps label
// strings out of SQL construction entirely.
var counterColumn = map[types.Label]string{
	types.LabelAngry:    "angry",
	types.LabelDisgust:  "disgust",
	types.LabelFear:     "fear",
	types.LabelHappy:    "happy",
	types.LabelNeutral:  "neutral",
	types.LabelSad:      "sad",
	types.LabelSurprise: "surprise",
}

// ApplySample merges one sample into the participant's aggregate. The whole
// merge is a single upsert statement: the label counter and total_frames are
// incremented in place, so concurrent ticks for the same participant cannot
// lose updates.
func (s *Store) ApplySample(ctx context.Context, sample *types.EmotionSample) error {
	column, ok := counterColumn[sample.Label]
	if !ok {
		return fmt.Errorf("sqlite: refusing to record invalid label %q", sample.Label)
	}

	capturedAt := sample.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	query := fmt.Sprintf(`
		INSERT INTO meeting_emotions (meeting_id, uid, name, %[1]s, total_frames, last_emotion, updated_at)
		VALUES (?, ?, ?, 1, 1, ?, ?)
		ON CONFLICT(meeting_id, uid) DO UPDATE SET
			%[1]s = %[1]s + 1,
			total_frames = total_frames + 1,
			name = excluded.name,
			last_emotion = excluded.last_emotion,
			updated_at = excluded.updated_at
	`, column)

	_, err := s.db.ExecContext(ctx, query,
		sample.MeetingID, sample.ParticipantID, sample.ParticipantName, string(sample.Label), capturedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to apply sample for %s/%s: %w", sample.MeetingID, sample.ParticipantID, err)
	}
	return nil
}

// ListAggregates retrieves the full aggregate set for a meeting, ordered by
// participant identifier for stable projections.
func (s *Store) ListAggregates(ctx context.Context, meetingID string) ([]types.EmotionAggregate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT meeting_id, uid, name, angry, disgust, fear, happy, neutral, sad, surprise, total_frames, last_emotion, updated_at
		FROM meeting_emotions
		WHERE meeting_id = ?
		ORDER BY uid
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list aggregates for %s: %w", meetingID, err)
	}
	defer rows.Close()

	var aggs []types.EmotionAggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan aggregate: %w", err)
		}
		aggs = append(aggs, *agg)
	}
	return aggs, rows.Err()
}

// GetAggregate retrieves one participant's aggregate.
func (s *Store) GetAggregate(ctx context.Context, meetingID, uid string) (*types.EmotionAggregate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT meeting_id, uid, name, angry, disgust, fear, happy, neutral, sad, surprise, total_frames, last_emotion, updated_at
		FROM meeting_emotions
		WHERE meeting_id = ? AND uid = ?
	`, meetingID, uid)

	agg, err := scanAggregate(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get aggregate %s/%s: %w", meetingID, uid, err)
	}
	return agg, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMeeting(sc scanner) (*types.Meeting, error) {
	var (
		meeting types.Meeting
		kind    string
		invited string
		active  int
	)
	if err := sc.Scan(&meeting.ID, &meeting.Name, &kind, &meeting.Date, &meeting.CreatedBy, &invited, &active, &meeting.CreatedAt); err != nil {
		return nil, err
	}
	meeting.Kind = types.MeetingKind(kind)
	meeting.Active = active != 0
	if err := json.Unmarshal([]byte(invited), &meeting.InvitedUsers); err != nil {
		return nil, fmt.Errorf("invalid invited_users payload: %w", err)
	}
	return &meeting, nil
}

func scanAggregate(sc scanner) (*types.EmotionAggregate, error) {
	var (
		agg  types.EmotionAggregate
		last string
	)
	if err := sc.Scan(&agg.MeetingID, &agg.UID, &agg.Name,
		&agg.Angry, &agg.Disgust, &agg.Fear, &agg.Happy, &agg.Neutral, &agg.Sad, &agg.Surprise,
		&agg.TotalFrames, &last, &agg.UpdatedAt); err != nil {
		return nil, err
	}
	agg.LastEmotion = types.Label(last)
	return &agg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time assertion that Store satisfies the full storage contract.
var _ storage.Store = (*Store)(nil)
