package types

import "time"

// EmotionSample is a single classification event for one participant at one
// point in time. Samples are ephemeral: produced by the inference client,
// merged into the aggregate immediately, never retained individually.
type EmotionSample struct {
	MeetingID       string    `json:"meeting_id"`
	ParticipantID   string    `json:"uid"`
	ParticipantName string    `json:"name"`
	Label           Label     `json:"label"`
	CapturedAt      time.Time `json:"captured_at"`
}

// EmotionAggregate is the durable, additively-updated summary of all samples
// for one (meeting, participant) pair. Counters are monotonically
// non-decreasing for the lifetime of the aggregate, and TotalFrames always
// equals the sum of the seven label counters.
type EmotionAggregate struct {
	MeetingID   string    `json:"meeting_id"`
	UID         string    `json:"uid"`
	Name        string    `json:"name"`
	Angry       int       `json:"angry"`
	Disgust     int       `json:"disgust"`
	Fear        int       `json:"fear"`
	Happy       int       `json:"happy"`
	Neutral     int       `json:"neutral"`
	Sad         int       `json:"sad"`
	Surprise    int       `json:"surprise"`
	TotalFrames int       `json:"total_frames"`
	LastEmotion Label     `json:"last_emotion"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Count returns the counter value for the given label.
func (a *EmotionAggregate) Count(l Label) int {
	switch l {
	case LabelAngry:
		return a.Angry
	case LabelDisgust:
		return a.Disgust
	case LabelFear:
		return a.Fear
	case LabelHappy:
		return a.Happy
	case LabelNeutral:
		return a.Neutral
	case LabelSad:
		return a.Sad
	case LabelSurprise:
		return a.Surprise
	}
	return 0
}

// CounterSum returns the sum of the seven label counters. It equals
// TotalFrames whenever the store invariant holds.
func (a *EmotionAggregate) CounterSum() int {
	sum := 0
	for _, l := range Labels {
		sum += a.Count(l)
	}
	return sum
}
