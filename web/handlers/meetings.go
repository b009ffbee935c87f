package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conline/conline/internal/storage"
	"github.com/conline/conline/pkg/types"
)

// MeetingHandlers covers meeting management: create, list, fetch, edit.
// Management writes through the admin interface; the telemetry core only
// ever reads.
type MeetingHandlers struct {
	store storage.MeetingAdmin
}

// NewMeetingHandlers creates meeting management handlers.
func NewMeetingHandlers(store storage.MeetingAdmin) *MeetingHandlers {
	return &MeetingHandlers{store: store}
}

// createMeetingRequest is the body of POST /api/meetings.
type createMeetingRequest struct {
	Name         string   `json:"meeting_name"`
	Kind         string   `json:"meeting_type"`
	Date         string   `json:"meeting_date"`
	InvitedUsers []string `json:"invited_users"`
}

// updateMeetingRequest is the body of PATCH /api/meetings/{id}.
// Only provided fields are changed.
type updateMeetingRequest struct {
	Name         *string   `json:"meeting_name"`
	Date         *string   `json:"meeting_date"`
	InvitedUsers *[]string `json:"invited_users"`
	Active       *bool     `json:"active"`
}

// CreateMeeting handles POST /api/meetings.
func (h *MeetingHandlers) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	creator := identityFromRequest(r)
	if creator == nil {
		respondError(w, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	var req createMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	kind := types.MeetingKind(req.Kind)
	switch kind {
	case types.MeetingOneOnOne, types.MeetingConference, types.MeetingOpen:
	default:
		respondError(w, http.StatusBadRequest, "invalid meeting type", nil)
		return
	}

	if _, err := time.Parse(types.MeetingDateLayout, req.Date); err != nil {
		respondError(w, http.StatusBadRequest, "meeting date must be YYYY-MM-DD", err)
		return
	}
	if kind == types.MeetingOneOnOne && len(req.InvitedUsers) != 1 {
		respondError(w, http.StatusBadRequest, "1-on-1 meetings take exactly one invited user", nil)
		return
	}

	meeting := &types.Meeting{
		ID:           generateMeetingID(),
		Name:         strings.TrimSpace(req.Name),
		Kind:         kind,
		Date:         req.Date,
		CreatedBy:    creator.UID,
		InvitedUsers: req.InvitedUsers,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if meeting.Name == "" {
		respondError(w, http.StatusBadRequest, "meeting name is required", nil)
		return
	}
	if meeting.InvitedUsers == nil {
		meeting.InvitedUsers = []string{}
	}

	if err := h.store.PutMeeting(r.Context(), meeting); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create meeting", err)
		return
	}

	respondJSON(w, http.StatusCreated, meeting)
}

// ListMeetings handles GET /api/meetings — the caller's own meetings.
func (h *MeetingHandlers) ListMeetings(w http.ResponseWriter, r *http.Request) {
	caller := identityFromRequest(r)
	if caller == nil {
		respondError(w, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	meetings, err := h.store.ListMeetingsByCreator(r.Context(), caller.UID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list meetings", err)
		return
	}
	if meetings == nil {
		meetings = []types.Meeting{}
	}

	respondJSON(w, http.StatusOK, meetings)
}

// GetMeeting handles GET /api/meetings/{id}.
func (h *MeetingHandlers) GetMeeting(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "meeting ID is required", nil)
		return
	}

	meeting, err := h.store.GetMeeting(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "meeting not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load meeting", err)
		return
	}

	respondJSON(w, http.StatusOK, meeting)
}

// UpdateMeeting handles PATCH /api/meetings/{id}. Only the creator may edit.
func (h *MeetingHandlers) UpdateMeeting(w http.ResponseWriter, r *http.Request) {
	caller := identityFromRequest(r)
	if caller == nil {
		respondError(w, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	id := r.PathValue("id")
	meeting, err := h.store.GetMeeting(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "meeting not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load meeting", err)
		return
	}
	if meeting.CreatedBy != caller.UID {
		respondError(w, http.StatusForbidden, "only the creator may edit a meeting", nil)
		return
	}

	var req updateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Name != nil {
		meeting.Name = strings.TrimSpace(*req.Name)
	}
	if req.Date != nil {
		if _, err := time.Parse(types.MeetingDateLayout, *req.Date); err != nil {
			respondError(w, http.StatusBadRequest, "meeting date must be YYYY-MM-DD", err)
			return
		}
		meeting.Date = *req.Date
	}
	if req.InvitedUsers != nil {
		meeting.InvitedUsers = *req.InvitedUsers
	}
	if req.Active != nil {
		meeting.Active = *req.Active
	}

	if err := h.store.UpdateMeeting(r.Context(), meeting); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update meeting", err)
		return
	}

	respondJSON(w, http.StatusOK, meeting)
}

// generateMeetingID produces the shareable meeting identifier: three short
// groups are friendlier to paste into a join link than a full UUID.
func generateMeetingID() string {
	id := uuid.NewString()
	return id[:8] + "-" + id[9:13] + "-" + id[14:18]
}
