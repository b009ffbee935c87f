// Package storage provides composable storage interfaces for the Conline
// backend. The telemetry core consumes the meeting directory read-only;
// management handlers use the wider admin interface. The aggregate store is
// the only shared mutable resource in the system, and all mutation goes
// through a single atomic increment statement.
package storage

import (
	"context"
	"errors"

	"github.com/conline/conline/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// MeetingDirectory provides read-only lookup of meeting records.
// This is the boundary the admission controller consumes.
type MeetingDirectory interface {
	// GetMeeting retrieves a meeting by identifier.
	// Returns ErrNotFound if no such meeting exists.
	GetMeeting(ctx context.Context, id string) (*types.Meeting, error)

	// ListMeetingsByCreator retrieves every meeting created by uid,
	// newest first.
	ListMeetingsByCreator(ctx context.Context, uid string) ([]types.Meeting, error)
}

// MeetingAdmin extends the directory with the management operations used by
// the meeting-management handlers (never by the telemetry core).
type MeetingAdmin interface {
	MeetingDirectory

	// PutMeeting creates a meeting record.
	PutMeeting(ctx context.Context, meeting *types.Meeting) error

	// UpdateMeeting replaces the editable fields (name, date, invited
	// list, active flag) of an existing meeting.
	// Returns ErrNotFound if the meeting doesn't exist.
	UpdateMeeting(ctx context.Context, meeting *types.Meeting) error
}

// AggregateStore holds one EmotionAggregate per (meeting, participant) pair.
type AggregateStore interface {
	// ApplySample merges one classified sample into the participant's
	// aggregate: creates the aggregate on first sample, then increments
	// the sample's label counter and the total-frames counter and sets
	// last-emotion and updated-at. The whole merge executes as a single
	// atomic statement with in-place per-field increments — never a
	// read-modify-write of counter values — so concurrent writers cannot
	// lose updates.
	ApplySample(ctx context.Context, sample *types.EmotionSample) error

	// ListAggregates retrieves the full current aggregate set for a
	// meeting, ordered by participant identifier.
	ListAggregates(ctx context.Context, meetingID string) ([]types.EmotionAggregate, error)

	// GetAggregate retrieves one participant's aggregate.
	// Returns ErrNotFound if the participant has not reported yet.
	GetAggregate(ctx context.Context, meetingID, uid string) (*types.EmotionAggregate, error)
}

// Store is the full backend contract: meeting directory plus aggregates.
type Store interface {
	MeetingAdmin
	AggregateStore

	// Close releases the underlying database resources.
	Close() error
}
