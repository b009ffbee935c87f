// Package capture produces still frames from a live video source at a fixed
// cadence. Frame acquisition goes through a fallback chain of sources: the
// preferred zero-copy grab from the live stream, then a still-snapshot
// fetch, then whatever frame the RTC transport last rendered.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrSourceUnsupported marks a source that cannot work in the current
// environment at all (endpoint absent, wrong media type). The chain
// disables such a source permanently — this is a capability probe, not a
// transient failure.
var ErrSourceUnsupported = errors.New("capture: source unsupported")

// FrameSource produces encoded still frames from a video source.
type FrameSource interface {
	// Grab returns the next frame as encoded image bytes.
	Grab(ctx context.Context) ([]byte, error)

	// Close releases the underlying source.
	Close() error
}

// Chain is a FrameSource that tries its sources in preference order.
// A source answering ErrSourceUnsupported is disabled for the lifetime of
// the chain; any other error falls through to the next source for the
// current grab only. Grabs are serialized — the chain is the per-pipeline
// source handle, not a shared resource.
type Chain struct {
	mu       sync.Mutex
	sources  []FrameSource
	disabled []bool
}

// NewChain builds a fallback chain over the given sources, most preferred
// first.
func NewChain(sources ...FrameSource) *Chain {
	return &Chain{
		sources:  sources,
		disabled: make([]bool, len(sources)),
	}
}

// Grab returns a frame from the first source that can produce one.
func (c *Chain) Grab(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for i, src := range c.sources {
		if c.disabled[i] {
			continue
		}

		frame, err := src.Grab(ctx)
		if err == nil {
			return frame, nil
		}
		if errors.Is(err, ErrSourceUnsupported) {
			c.disabled[i] = true
			log.Printf("WARNING: capture: source %d unsupported, falling back: %v", i, err)
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, errors.New("capture: no frame source available")
	}
	return nil, fmt.Errorf("capture: all sources failed: %w", errors.Join(errs...))
}

// Close releases every source in the chain.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, src := range c.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
