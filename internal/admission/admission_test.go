package admission_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/conline/conline/internal/admission"
	"github.com/conline/conline/pkg/types"
)

// now puts every test on 2025-06-15 unless a case says otherwise.
var now = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func meeting(kind types.MeetingKind, date string, invited ...string) *types.Meeting {
	return &types.Meeting{
		ID:           "m-1",
		Name:         "Standup",
		Kind:         kind,
		Date:         date,
		CreatedBy:    "creator",
		InvitedUsers: invited,
	}
}

func identity(uid string) *types.Identity {
	return &types.Identity{UID: uid, Name: "User " + uid}
}

func TestDecide_OpenMeetingAdmitsEveryone(t *testing.T) {
	m := meeting(types.MeetingOpen, "2025-06-15")

	assert.Equal(t, admission.Admit, admission.Decide(m, identity("anyone"), now).Verdict)

	// Open meetings admit unauthenticated candidates too.
	assert.Equal(t, admission.Admit, admission.Decide(m, nil, now).Verdict)
}

func TestDecide_OpenMeetingIgnoresDate(t *testing.T) {
	past := meeting(types.MeetingOpen, "1999-01-01")
	future := meeting(types.MeetingOpen, "2099-01-01")

	assert.Equal(t, admission.Admit, admission.Decide(past, identity("u"), now).Verdict)
	assert.Equal(t, admission.Admit, admission.Decide(future, identity("u"), now).Verdict)
}

func TestDecide_OneOnOneMembership(t *testing.T) {
	m := meeting(types.MeetingOneOnOne, "2025-06-15", "invitee")

	tests := []struct {
		name string
		uid  string
		want admission.Verdict
	}{
		{"creator admitted", "creator", admission.Admit},
		{"sole invitee admitted", "invitee", admission.Admit},
		{"stranger denied", "stranger", admission.DenyNotInvited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := admission.Decide(m, identity(tt.uid), now)
			assert.Equal(t, tt.want, d.Verdict)
		})
	}
}

func TestDecide_OneOnOneOnlyFirstInviteeCounts(t *testing.T) {
	// A malformed 1-on-1 record with extra invitees still admits only the
	// first one.
	m := meeting(types.MeetingOneOnOne, "2025-06-15", "alice", "bob")

	assert.Equal(t, admission.Admit, admission.Decide(m, identity("alice"), now).Verdict)
	assert.Equal(t, admission.DenyNotInvited, admission.Decide(m, identity("bob"), now).Verdict)
}

func TestDecide_ConferenceMembership(t *testing.T) {
	m := meeting(types.MeetingConference, "2025-06-15", "alice", "bob")

	assert.Equal(t, admission.Admit, admission.Decide(m, identity("creator"), now).Verdict)
	assert.Equal(t, admission.Admit, admission.Decide(m, identity("alice"), now).Verdict)
	assert.Equal(t, admission.Admit, admission.Decide(m, identity("bob"), now).Verdict)
	assert.Equal(t, admission.DenyNotInvited, admission.Decide(m, identity("carol"), now).Verdict)
}

func TestDecide_DateGateForInvitedCandidates(t *testing.T) {
	tests := []struct {
		name string
		date string
		want admission.Verdict
	}{
		{"today admits", "2025-06-15", admission.Admit},
		{"yesterday ended", "2025-06-14", admission.DenyEnded},
		{"tomorrow not yet", "2025-06-16", admission.DenyNotYet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := meeting(types.MeetingConference, tt.date, "alice")
			d := admission.Decide(m, identity("alice"), now)
			assert.Equal(t, tt.want, d.Verdict)
			if tt.want == admission.DenyNotYet {
				assert.Equal(t, tt.date, d.ScheduledFor)
			}
		})
	}
}

func TestDecide_MembershipCheckedBeforeDate(t *testing.T) {
	// An uninvited candidate joining an ended meeting learns about the
	// invitation, never about the date.
	m := meeting(types.MeetingConference, "2025-06-14", "alice")
	d := admission.Decide(m, identity("stranger"), now)
	assert.Equal(t, admission.DenyNotInvited, d.Verdict)
}

func TestDecide_UnauthenticatedRedirectedNotDenied(t *testing.T) {
	m := meeting(types.MeetingConference, "2025-06-15", "alice")

	for _, candidate := range []*types.Identity{nil, {UID: ""}} {
		d := admission.Decide(m, candidate, now)
		assert.Equal(t, admission.RedirectUnauthenticated, d.Verdict)
	}
}

func TestDecide_UnauthenticatedOnScheduledDateStillRedirected(t *testing.T) {
	// Anonymous candidates are redirected to sign in before learning
	// anything about the invitation or the schedule.
	m := meeting(types.MeetingOneOnOne, "2099-01-01", "alice")
	d := admission.Decide(m, nil, now)
	assert.Equal(t, admission.RedirectUnauthenticated, d.Verdict)
}

func TestDecide_MalformedDateNeverAdmits(t *testing.T) {
	m := meeting(types.MeetingConference, "junk-date", "alice")
	d := admission.Decide(m, identity("alice"), now)
	assert.Equal(t, admission.DenyNotYet, d.Verdict)
	assert.Equal(t, "junk-date", d.ScheduledFor)
}

func TestDecide_MultiPartyScenario(t *testing.T) {
	// A creates a conference for today inviting B; A and B get in, C does
	// not, and an anonymous visitor is sent to login.
	m := &types.Meeting{
		ID:           "m-roundtable",
		Kind:         types.MeetingConference,
		Date:         "2025-06-15",
		CreatedBy:    "a",
		InvitedUsers: []string{"b"},
	}

	assert.True(t, admission.Decide(m, identity("a"), now).Allowed())
	assert.True(t, admission.Decide(m, identity("b"), now).Allowed())
	assert.Equal(t, admission.DenyNotInvited, admission.Decide(m, identity("c"), now).Verdict)
	assert.Equal(t, admission.RedirectUnauthenticated, admission.Decide(m, nil, now).Verdict)
}
