package types

import "time"

// MeetingKind identifies the admission policy of a meeting.
// The wire values match the original meeting records.
type MeetingKind string

const (
	// MeetingOneOnOne admits only the creator and the single invited identity.
	MeetingOneOnOne MeetingKind = "1-on-1"

	// MeetingConference admits the creator and any identity on the invited list.
	MeetingConference MeetingKind = "video-conference"

	// MeetingOpen admits anyone, authenticated or not.
	MeetingOpen MeetingKind = "anyone-can-join"
)

// MeetingDateLayout is the calendar-day format used for meeting dates.
// Admission compares dates at calendar-day granularity only.
const MeetingDateLayout = "2006-01-02"

// Meeting is a meeting record owned by the meeting directory. From the
// telemetry core's perspective it is read-only except for the Active flag,
// which external management may flip.
type Meeting struct {
	ID           string      `json:"meeting_id"`
	Name         string      `json:"meeting_name"`
	Kind         MeetingKind `json:"meeting_type"`
	Date         string      `json:"meeting_date"` // calendar day, MeetingDateLayout
	CreatedBy    string      `json:"created_by"`
	InvitedUsers []string    `json:"invited_users"`
	Active       bool        `json:"active"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Identity is an opaque participant identity supplied by the external
// identity provider. Never mutated by this system.
type Identity struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}
