package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	"github.com/conline/conline/internal/aggregator"
	"github.com/conline/conline/internal/projection"
	"github.com/conline/conline/internal/storage"
	"github.com/conline/conline/pkg/types"
)

// writeTimeout bounds a single view delivery to one observer.
const writeTimeout = 10 * time.Second

// LiveViewHandler streams a meeting's MeetingAggregateView over WebSocket.
// Each connection owns one feed subscription: created on connect, torn down
// on disconnect, so no ambient shared state outlives the observer. Both
// projections are recomputed on every feed delivery.
type LiveViewHandler struct {
	feed  *aggregator.Feed
	store storage.AggregateStore
}

// NewLiveViewHandler creates the live view WebSocket handler.
func NewLiveViewHandler(feed *aggregator.Feed, store storage.AggregateStore) *LiveViewHandler {
	return &LiveViewHandler{feed: feed, store: store}
}

// ServeHTTP handles GET /ws?meeting={id}.
func (h *LiveViewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	meetingID := r.URL.Query().Get("meeting")
	if meetingID == "" {
		http.Error(w, "meeting query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{ //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		log.Printf("ERROR: WebSocket upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := h.feed.Subscribe(meetingID)
	defer sub.Close()
	defer conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	// Drain client messages to detect disconnection.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	// First delivery is the current state, before any sample arrives.
	aggs, err := h.store.ListAggregates(ctx, meetingID)
	if err != nil {
		log.Printf("ERROR: live view: failed to load initial aggregates for %s: %v", meetingID, err)
		return
	}
	if err := h.writeView(ctx, conn, meetingID, aggs); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case aggs, ok := <-sub.Deliveries():
			if !ok {
				return
			}
			if err := h.writeView(ctx, conn, meetingID, aggs); err != nil {
				log.Printf("ERROR: live view: write failed for %s: %v", meetingID, err)
				return
			}
		}
	}
}

// writeView projects the row set into both views and sends it.
func (h *LiveViewHandler) writeView(ctx context.Context, conn *websocket.Conn, meetingID string, aggs []types.EmotionAggregate) error {
	view := projection.Project(meetingID, aggs)
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("handlers: marshal live view: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
