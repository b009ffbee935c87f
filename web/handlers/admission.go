package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/conline/conline/internal/admission"
	"github.com/conline/conline/internal/storage"
)

// AdmissionHandlers answers join requests with a structured admission
// decision. The handler only evaluates and reports; acting on the decision
// (joining the room, redirecting to login) is the caller's job.
type AdmissionHandlers struct {
	directory storage.MeetingDirectory

	// now is a test hook; defaults to time.Now.
	now func() time.Time
}

// NewAdmissionHandlers creates admission handlers over the read-only
// meeting directory.
func NewAdmissionHandlers(directory storage.MeetingDirectory) *AdmissionHandlers {
	return &AdmissionHandlers{directory: directory, now: time.Now}
}

// joinResponse is the body of a join decision.
type joinResponse struct {
	MeetingID string             `json:"meeting_id"`
	Decision  admission.Decision `json:"decision"`
	Message   string             `json:"message,omitempty"`
}

// Join handles POST /api/meetings/{id}/join.
func (h *AdmissionHandlers) Join(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "meeting ID is required", nil)
		return
	}

	meeting, err := h.directory.GetMeeting(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "meeting not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load meeting", err)
		return
	}

	decision := admission.Decide(meeting, identityFromRequest(r), h.now())

	resp := joinResponse{
		MeetingID: id,
		Decision:  decision,
		Message:   decisionMessage(decision),
	}
	respondJSON(w, statusForDecision(decision), resp)
}

// statusForDecision maps a decision to its HTTP status: the decision stays
// structured in the body either way, the status just helps plain clients.
func statusForDecision(d admission.Decision) int {
	switch d.Verdict {
	case admission.Admit:
		return http.StatusOK
	case admission.RedirectUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}

// decisionMessage renders the user-facing message for each verdict,
// matching the wording participants see in the meeting UI.
func decisionMessage(d admission.Decision) string {
	switch d.Verdict {
	case admission.DenyEnded:
		return "Meeting has ended."
	case admission.DenyNotYet:
		return "Meeting is on " + d.ScheduledFor
	case admission.DenyNotInvited:
		return "You are not invited to the meeting."
	case admission.RedirectUnauthenticated:
		return "Please sign in to join this meeting."
	}
	return ""
}
