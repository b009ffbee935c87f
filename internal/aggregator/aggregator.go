// Package aggregator ingests classified-emotion samples into the durable
// per-(meeting, participant) aggregates and fans out the updated aggregate
// set to live subscribers.
package aggregator

import (
	"context"
	"log"

	"github.com/conline/conline/internal/storage"
	"github.com/conline/conline/pkg/types"
)

// Aggregator is the consistency-critical core of the telemetry pipeline.
// All counter mutation is delegated to the store's atomic increment
// statement; the aggregator itself holds no counter state, so concurrent
// Record calls need no coordination here.
type Aggregator struct {
	store storage.AggregateStore
	feed  *Feed
}

// New creates an Aggregator over the given store.
func New(store storage.AggregateStore) *Aggregator {
	return &Aggregator{store: store, feed: NewFeed()}
}

// Feed returns the live subscription feed for meeting aggregate updates.
func (a *Aggregator) Feed() *Feed {
	return a.feed
}

// Record merges one sample into the participant's aggregate and republishes
// the meeting's aggregate set to subscribers.
//
// Delivery is at-most-once: a persist failure is returned for the caller to
// log and the sample is dropped — no retry queue. The next capture tick is
// the implicit retry, so counters are a lower bound on true sample count.
func (a *Aggregator) Record(ctx context.Context, sample *types.EmotionSample) error {
	if err := a.store.ApplySample(ctx, sample); err != nil {
		return err
	}
	a.publish(ctx, sample.MeetingID)
	return nil
}

// publish pushes the meeting's full current aggregate set to the feed.
// Feed errors never fail the record that triggered them: the feed is
// eventually consistent and the next update supersedes a missed one.
func (a *Aggregator) publish(ctx context.Context, meetingID string) {
	if !a.feed.hasSubscribers(meetingID) {
		return
	}

	aggs, err := a.store.ListAggregates(ctx, meetingID)
	if err != nil {
		log.Printf("WARNING: aggregator: failed to load aggregates for feed of meeting %s: %v", meetingID, err)
		return
	}
	a.feed.publish(meetingID, aggs)
}
