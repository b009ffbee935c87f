package capture

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// frame size cap: a single camera frame should never be anywhere near this.
const maxFrameBytes = 8 << 20

// MJPEGSource grabs the next JPEG part straight off a live MJPEG stream —
// the zero-copy strategy: the frame bytes are taken from the stream as-is,
// with no decode or re-encode step.
type MJPEGSource struct {
	url    string
	client *http.Client
}

// NewMJPEGSource creates a source reading from an MJPEG stream URL
// (the /video endpoint most IP cameras expose).
func NewMJPEGSource(url string) *MJPEGSource {
	return &MJPEGSource{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Grab connects to the stream and returns the first full frame part.
func (s *MJPEGSource) Grab(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: failed to create stream request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture: stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if unsupportedStatus(resp.StatusCode) {
		return nil, fmt.Errorf("%w: stream endpoint returned status %d", ErrSourceUnsupported, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capture: stream returned status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		// Not an MJPEG stream at all: this environment can't do zero-copy grabs.
		return nil, fmt.Errorf("%w: endpoint is not a multipart stream (%s)", ErrSourceUnsupported, resp.Header.Get("Content-Type"))
	}

	part, err := multipart.NewReader(resp.Body, params["boundary"]).NextPart()
	if err != nil {
		return nil, fmt.Errorf("capture: failed to read stream part: %w", err)
	}
	defer part.Close()

	frame, err := io.ReadAll(io.LimitReader(part, maxFrameBytes))
	if err != nil {
		return nil, fmt.Errorf("capture: failed to read frame: %w", err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("capture: stream delivered an empty frame")
	}
	return frame, nil
}

// Close is a no-op: each grab opens and closes its own stream connection.
func (s *MJPEGSource) Close() error { return nil }

// StillSource fetches a single encoded still image per grab. It backs both
// fallback strategies: the camera's snapshot endpoint (the off-screen
// render analog) and the RTC transport's last-rendered-frame endpoint.
type StillSource struct {
	name   string
	url    string
	client *http.Client
}

// NewSnapshotSource creates the snapshot-endpoint fallback source.
func NewSnapshotSource(url string) *StillSource {
	return &StillSource{
		name:   "snapshot",
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewTransportSource creates the last-resort source that captures whatever
// frame the RTC transport layer is currently rendering.
func NewTransportSource(url string) *StillSource {
	return &StillSource{
		name:   "transport",
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Grab fetches one still image.
func (s *StillSource) Grab(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: failed to create %s request: %w", s.name, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture: %s request failed: %w", s.name, err)
	}
	defer resp.Body.Close()

	if unsupportedStatus(resp.StatusCode) {
		return nil, fmt.Errorf("%w: %s endpoint returned status %d", ErrSourceUnsupported, s.name, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capture: %s returned status %d", s.name, resp.StatusCode)
	}

	frame, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return nil, fmt.Errorf("capture: failed to read %s frame: %w", s.name, err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("capture: %s delivered an empty frame", s.name)
	}
	return frame, nil
}

// Close is a no-op for HTTP still sources.
func (s *StillSource) Close() error { return nil }

// unsupportedStatus classifies HTTP statuses that mean the capability is
// absent rather than momentarily failing.
func unsupportedStatus(status int) bool {
	switch status {
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return true
	}
	return false
}
