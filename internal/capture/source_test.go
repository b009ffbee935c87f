package capture

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a scriptable FrameSource.
type fakeSource struct {
	grabs  int
	closed bool
	grab   func(call int) ([]byte, error)
}

func (f *fakeSource) Grab(ctx context.Context) ([]byte, error) {
	f.grabs++
	return f.grab(f.grabs)
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func always(frame []byte) *fakeSource {
	return &fakeSource{grab: func(int) ([]byte, error) { return frame, nil }}
}

func failing(err error) *fakeSource {
	return &fakeSource{grab: func(int) ([]byte, error) { return nil, err }}
}

func TestChain_PrefersFirstSource(t *testing.T) {
	primary := always([]byte("primary"))
	fallback := always([]byte("fallback"))
	chain := NewChain(primary, fallback)

	frame, err := chain.Grab(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("primary"), frame)
	assert.Equal(t, 0, fallback.grabs)
}

func TestChain_TransientErrorFallsThroughPerGrab(t *testing.T) {
	flaky := &fakeSource{grab: func(call int) ([]byte, error) {
		if call == 1 {
			return nil, errors.New("connection reset")
		}
		return []byte("recovered"), nil
	}}
	fallback := always([]byte("fallback"))
	chain := NewChain(flaky, fallback)
	ctx := context.Background()

	frame, err := chain.Grab(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("fallback"), frame)

	// The transient failure did not disable the preferred source.
	frame, err = chain.Grab(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("recovered"), frame)
}

func TestChain_UnsupportedSourceDisabledPermanently(t *testing.T) {
	unsupported := failing(fmt.Errorf("%w: no stream endpoint", ErrSourceUnsupported))
	fallback := always([]byte("fallback"))
	chain := NewChain(unsupported, fallback)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		frame, err := chain.Grab(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("fallback"), frame)
	}
	assert.Equal(t, 1, unsupported.grabs, "unsupported source probed exactly once")
}

func TestChain_AllSourcesFailing(t *testing.T) {
	chain := NewChain(failing(errors.New("a down")), failing(errors.New("b down")))

	_, err := chain.Grab(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a down")
	assert.Contains(t, err.Error(), "b down")
}

func TestChain_EmptyAfterAllDisabled(t *testing.T) {
	chain := NewChain(failing(ErrSourceUnsupported))
	ctx := context.Background()

	_, err := chain.Grab(ctx)
	require.Error(t, err)

	_, err = chain.Grab(ctx)
	require.Error(t, err)
}

func TestChain_CloseReleasesAllSources(t *testing.T) {
	a := always([]byte("a"))
	b := always([]byte("b"))
	chain := NewChain(a, b)

	require.NoError(t, chain.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMJPEGSource_GrabsFirstPart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\n\r\nFIRSTFRAME\r\n--frame\r\nContent-Type: image/jpeg\r\n\r\nSECONDFRAME\r\n--frame--\r\n")
	}))
	defer srv.Close()

	src := NewMJPEGSource(srv.URL)
	frame, err := src.Grab(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("FIRSTFRAME"), frame)
}

func TestMJPEGSource_NonMultipartIsUnsupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not a camera</html>"))
	}))
	defer srv.Close()

	src := NewMJPEGSource(srv.URL)
	_, err := src.Grab(context.Background())
	require.ErrorIs(t, err, ErrSourceUnsupported)
}

func TestStillSource_Grab(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("STILLFRAME"))
	}))
	defer srv.Close()

	src := NewSnapshotSource(srv.URL)
	frame, err := src.Grab(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("STILLFRAME"), frame)
}

func TestStillSource_NotFoundIsUnsupported(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	src := NewTransportSource(srv.URL)
	_, err := src.Grab(context.Background())
	require.ErrorIs(t, err, ErrSourceUnsupported)
}

func TestStillSource_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewSnapshotSource(srv.URL)
	_, err := src.Grab(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSourceUnsupported))
}

func TestStillSource_EmptyBodyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	src := NewSnapshotSource(srv.URL)
	_, err := src.Grab(context.Background())
	require.Error(t, err)
}
