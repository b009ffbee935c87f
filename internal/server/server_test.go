package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	"github.com/conline/conline/internal/aggregator"
	"github.com/conline/conline/internal/config"
	"github.com/conline/conline/internal/server"
	"github.com/conline/conline/internal/storage/sqlite"
	"github.com/conline/conline/pkg/types"
)

// startTestServer starts a server on a random port over a temp-dir SQLite
// store and returns its base URL.
func startTestServer(t *testing.T) string {
	t.Helper()

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "conline.db"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		time.Sleep(10 * time.Millisecond)
		_ = store.Close()
	})

	addr, err := server.Start(ctx, cfg, store, aggregator.New(store))
	require.NoError(t, err)
	return "http://" + addr
}

func request(t *testing.T, method, url, uid string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if uid != "" {
		req.Header.Set("X-User-ID", uid)
		req.Header.Set("X-User-Name", "User "+uid)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, _ = out.ReadFrom(resp.Body)
	return resp, out.Bytes()
}

func TestHealthEndpoint(t *testing.T) {
	base := startTestServer(t)

	resp, body := request(t, http.MethodGet, base+"/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}

func TestMeetingLifecycleOverHTTP(t *testing.T) {
	base := startTestServer(t)
	today := time.Now().Format(types.MeetingDateLayout)

	// Create.
	resp, body := request(t, http.MethodPost, base+"/api/meetings", "creator", map[string]interface{}{
		"meeting_name":  "Retro",
		"meeting_type":  "video-conference",
		"meeting_date":  today,
		"invited_users": []string{"alice"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var meeting types.Meeting
	require.NoError(t, json.Unmarshal(body, &meeting))

	// Join as the invitee.
	resp, body = request(t, http.MethodPost, fmt.Sprintf("%s/api/meetings/%s/join", base, meeting.ID), "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	// Report samples.
	for _, label := range []string{"Happy", "Happy", "Sad"} {
		resp, body = request(t, http.MethodPost, fmt.Sprintf("%s/api/meetings/%s/samples", base, meeting.ID), "alice",
			map[string]interface{}{"label": label, "captured_at": time.Now().UTC()})
		require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	}

	// Read the projected view back.
	resp, body = request(t, http.MethodGet, fmt.Sprintf("%s/api/meetings/%s/emotions", base, meeting.ID), "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view types.MeetingAggregateView
	require.NoError(t, json.Unmarshal(body, &view))
	require.Len(t, view.Aggregates, 1)
	assert.Equal(t, 2, view.Aggregates[0].Happy)
	assert.Equal(t, 1, view.Aggregates[0].Sad)
	assert.Equal(t, 3, view.Aggregates[0].TotalFrames)
	assert.Equal(t, 67, view.Cumulative.Rows[0].Happy.Pct)
}

func TestMethodNotAllowed(t *testing.T) {
	base := startTestServer(t)

	resp, _ := request(t, http.MethodDelete, base+"/api/meetings", "u", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestLiveViewWebSocket(t *testing.T) {
	base := startTestServer(t)
	today := time.Now().Format(types.MeetingDateLayout)

	resp, body := request(t, http.MethodPost, base+"/api/meetings", "creator", map[string]interface{}{
		"meeting_name": "Live",
		"meeting_type": "anyone-can-join",
		"meeting_date": today,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var meeting types.Meeting
	require.NoError(t, json.Unmarshal(body, &meeting))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + base[len("http"):] + "/ws?meeting=" + meeting.ID
	conn, _, err := websocket.Dial(ctx, wsURL, nil) //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	// Initial delivery is the (empty) current state.
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var view types.MeetingAggregateView
	require.NoError(t, json.Unmarshal(data, &view))
	assert.Equal(t, meeting.ID, view.MeetingID)
	assert.Empty(t, view.Aggregates)

	// A recorded sample triggers the next delivery.
	resp, body = request(t, http.MethodPost, fmt.Sprintf("%s/api/meetings/%s/samples", base, meeting.ID), "alice",
		map[string]interface{}{"label": "Surprise", "captured_at": time.Now().UTC()})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &view))
	require.Len(t, view.Aggregates, 1)
	assert.Equal(t, "alice", view.Aggregates[0].UID)
	assert.Equal(t, 1, view.Aggregates[0].Surprise)
	assert.True(t, view.Snapshot.Rows[0].Surprise)
}
