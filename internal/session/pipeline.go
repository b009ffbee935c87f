// Package session runs the per-participant telemetry pipeline: one
// repeating timer driving capture → classify → record for one admitted
// participant. Many pipelines run concurrently — one per participant —
// with no cross-pipeline coordination; the aggregate store is the only
// shared resource.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/conline/conline/internal/capture"
	"github.com/conline/conline/pkg/types"
)

// Classifier maps one captured frame to a closed-set emotion label.
type Classifier interface {
	Classify(ctx context.Context, frame []byte) (types.Label, error)
}

// Recorder merges one classified sample into the participant's aggregate.
// The server pipeline records straight into the aggregator; the agent
// records through the server's HTTP API.
type Recorder interface {
	Record(ctx context.Context, sample *types.EmotionSample) error
}

// Config assembles one participant's pipeline.
type Config struct {
	MeetingID   string
	Participant types.Identity
	Source      capture.FrameSource
	Classifier  Classifier
	Recorder    Recorder

	// Cadence is the capture interval; it is also the implicit retry
	// interval for every contained failure. Zero means
	// capture.DefaultCadence.
	Cadence time.Duration
}

// Pipeline is the single logical actor for one participant's telemetry.
// Every failure inside a tick — capture, classification, persist — is
// logged and contained; the pipeline itself stops only on context
// cancellation.
type Pipeline struct {
	cfg      Config
	warnOnce sync.Once
}

// New creates a pipeline. Run must be called to start it.
func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Run drives the pipeline until ctx is cancelled, then waits for in-flight
// ticks and releases the frame source. The source is released on every
// exit path.
func (p *Pipeline) Run(ctx context.Context) {
	defer func() {
		if err := p.cfg.Source.Close(); err != nil {
			log.Printf("WARNING: session: failed to release frame source for %s: %v", p.cfg.Participant.UID, err)
		}
	}()

	capture.NewScheduler(p.cfg.Cadence, p.tick).Run(ctx)
}

// tick performs one capture → classify → record pass. Overlapping ticks
// race independently; counter increments commute, so only the last-label
// field can briefly reflect an out-of-order sample.
func (p *Pipeline) tick(ctx context.Context) {
	frame, err := p.cfg.Source.Grab(ctx)
	if err != nil {
		// A source outage is surfaced once; afterwards the scheduler keeps
		// trying quietly and whatever fallback remains keeps the session
		// alive in degraded mode.
		p.warnOnce.Do(func() {
			log.Printf("WARNING: session: camera unavailable for %s, continuing degraded: %v", p.cfg.Participant.UID, err)
		})
		return
	}

	capturedAt := time.Now()

	label, err := p.cfg.Classifier.Classify(ctx, frame)
	if err != nil {
		log.Printf("ERROR: session: classification failed for %s/%s, sample dropped: %v",
			p.cfg.MeetingID, p.cfg.Participant.UID, err)
		return
	}

	sample := &types.EmotionSample{
		MeetingID:       p.cfg.MeetingID,
		ParticipantID:   p.cfg.Participant.UID,
		ParticipantName: p.cfg.Participant.Name,
		Label:           label,
		CapturedAt:      capturedAt,
	}
	if err := p.cfg.Recorder.Record(ctx, sample); err != nil {
		log.Printf("ERROR: session: failed to persist sample for %s/%s, sample dropped: %v",
			p.cfg.MeetingID, p.cfg.Participant.UID, err)
	}
}
