// Package admission decides whether a candidate identity may enter a
// meeting. Decide is a pure function: the caller is responsible for acting
// on the Decision (surfacing a message, redirecting to login, joining).
package admission

import (
	"time"

	"github.com/conline/conline/pkg/types"
)

// Verdict is the outcome class of an admission decision.
type Verdict string

const (
	// Admit lets the candidate into the meeting.
	Admit Verdict = "admit"

	// DenyEnded rejects because the meeting's calendar day has passed.
	DenyEnded Verdict = "deny_ended"

	// DenyNotYet rejects because the meeting's calendar day is in the
	// future. The Decision carries the scheduled date.
	DenyNotYet Verdict = "deny_not_yet"

	// DenyNotInvited rejects because the candidate is neither the creator
	// nor on the invited list.
	DenyNotInvited Verdict = "deny_not_invited"

	// RedirectUnauthenticated asks the caller to send the candidate
	// through login. Preferred over the more specific denial whenever the
	// candidate identity is absent.
	RedirectUnauthenticated Verdict = "redirect_unauthenticated"
)

// Decision is the structured result of an admission check.
type Decision struct {
	Verdict Verdict `json:"verdict"`

	// ScheduledFor carries the meeting date for DenyNotYet.
	ScheduledFor string `json:"scheduled_for,omitempty"`
}

// Allowed reports whether the decision admits the candidate.
func (d Decision) Allowed() bool { return d.Verdict == Admit }

// Decide evaluates the admission rules for one join attempt.
//
// Membership is checked before the date so that an uninvited candidate is
// never told the meeting has ended. Open meetings admit everyone, including
// unauthenticated candidates. For invitation-gated meetings an absent
// candidate identity always yields RedirectUnauthenticated.
func Decide(meeting *types.Meeting, candidate *types.Identity, now time.Time) Decision {
	switch meeting.Kind {
	case types.MeetingOneOnOne:
		if !isCreator(meeting, candidate) && !isSoleInvitee(meeting, candidate) {
			return deny(Decision{Verdict: DenyNotInvited}, candidate)
		}
	case types.MeetingConference:
		if !isCreator(meeting, candidate) && !isInvited(meeting, candidate) {
			return deny(Decision{Verdict: DenyNotInvited}, candidate)
		}
	default:
		// Open meetings skip both the membership and the date check.
		return Decision{Verdict: Admit}
	}

	if _, err := time.Parse(types.MeetingDateLayout, meeting.Date); err != nil {
		// An unparseable date never admits; treat as not yet scheduled so
		// the caller surfaces the raw date string.
		return deny(Decision{Verdict: DenyNotYet, ScheduledFor: meeting.Date}, candidate)
	}

	// ISO calendar-day strings order lexicographically, so the comparison
	// stays at day granularity in the caller's location.
	today := now.Format(types.MeetingDateLayout)
	switch {
	case meeting.Date == today:
		return Decision{Verdict: Admit}
	case meeting.Date < today:
		return deny(Decision{Verdict: DenyEnded}, candidate)
	default:
		return deny(Decision{Verdict: DenyNotYet, ScheduledFor: meeting.Date}, candidate)
	}
}

// deny converts any denial into RedirectUnauthenticated when the candidate
// identity is absent.
func deny(d Decision, candidate *types.Identity) Decision {
	if candidate == nil || candidate.UID == "" {
		return Decision{Verdict: RedirectUnauthenticated}
	}
	return d
}

func isCreator(meeting *types.Meeting, candidate *types.Identity) bool {
	return candidate != nil && candidate.UID != "" && meeting.CreatedBy == candidate.UID
}

// isSoleInvitee checks 1-on-1 membership: only the first invited identity
// counts, matching the single-slot invite of that meeting kind.
func isSoleInvitee(meeting *types.Meeting, candidate *types.Identity) bool {
	if candidate == nil || candidate.UID == "" || len(meeting.InvitedUsers) == 0 {
		return false
	}
	return meeting.InvitedUsers[0] == candidate.UID
}

func isInvited(meeting *types.Meeting, candidate *types.Identity) bool {
	if candidate == nil || candidate.UID == "" {
		return false
	}
	for _, uid := range meeting.InvitedUsers {
		if uid == candidate.UID {
			return true
		}
	}
	return false
}
