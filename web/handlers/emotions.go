package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/conline/conline/internal/aggregator"
	"github.com/conline/conline/internal/projection"
	"github.com/conline/conline/internal/storage"
	"github.com/conline/conline/pkg/types"
)

// EmotionHandlers covers sample ingestion from capture agents and the
// derived aggregate views.
type EmotionHandlers struct {
	agg   *aggregator.Aggregator
	store storage.AggregateStore
}

// NewEmotionHandlers creates emotion telemetry handlers.
func NewEmotionHandlers(agg *aggregator.Aggregator, store storage.AggregateStore) *EmotionHandlers {
	return &EmotionHandlers{agg: agg, store: store}
}

// postSampleRequest is the body of POST /api/meetings/{id}/samples.
type postSampleRequest struct {
	Label      string    `json:"label"`
	CapturedAt time.Time `json:"captured_at"`
}

// PostSample handles POST /api/meetings/{id}/samples — one classified
// sample from the caller's capture pipeline.
func (h *EmotionHandlers) PostSample(w http.ResponseWriter, r *http.Request) {
	caller := identityFromRequest(r)
	if caller == nil {
		respondError(w, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	meetingID := r.PathValue("id")
	if meetingID == "" {
		respondError(w, http.StatusBadRequest, "meeting ID is required", nil)
		return
	}

	var req postSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	// Unrecognized labels are rejected at the boundary — the closed set
	// never widens, no matter what a classifier variant emits.
	label, err := types.ParseLabel(req.Label)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid emotion label", err)
		return
	}

	sample := &types.EmotionSample{
		MeetingID:       meetingID,
		ParticipantID:   caller.UID,
		ParticipantName: caller.Name,
		Label:           label,
		CapturedAt:      req.CapturedAt,
	}
	if err := h.agg.Record(r.Context(), sample); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to record sample", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// GetView handles GET /api/meetings/{id}/emotions — the full
// MeetingAggregateView, recomputed from the current aggregate set.
func (h *EmotionHandlers) GetView(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("id")
	if meetingID == "" {
		respondError(w, http.StatusBadRequest, "meeting ID is required", nil)
		return
	}

	aggs, err := h.store.ListAggregates(r.Context(), meetingID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load aggregates", err)
		return
	}

	respondJSON(w, http.StatusOK, projection.Project(meetingID, aggs))
}
