package aggregator

import (
	"sync"

	"github.com/conline/conline/pkg/types"
)

// subscriptionBuffer is the per-subscriber delivery buffer. A slow consumer
// only ever misses intermediate states: when the buffer is full the stale
// delivery is dropped and the next update carries the newer row set.
const subscriptionBuffer = 8

// Feed delivers the full current EmotionAggregate row set for a meeting to
// subscribers whenever any row changes. Subscriptions are owner-scoped:
// created on meeting entry, closed on exit. The feed is eventually
// consistent with writes — observers must tolerate momentarily stale sets.
type Feed struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription is one observer's handle on a meeting's aggregate feed.
type Subscription struct {
	feed      *Feed
	meetingID string
	ch        chan []types.EmotionAggregate
	once      sync.Once
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers an observer for one meeting's aggregate updates.
// The caller owns the subscription and must Close it when done.
func (f *Feed) Subscribe(meetingID string) *Subscription {
	sub := &Subscription{
		feed:      f,
		meetingID: meetingID,
		ch:        make(chan []types.EmotionAggregate, subscriptionBuffer),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs[meetingID] == nil {
		f.subs[meetingID] = make(map[*Subscription]struct{})
	}
	f.subs[meetingID][sub] = struct{}{}
	return sub
}

// Deliveries returns the channel on which aggregate row sets arrive.
// The channel is closed when the subscription is closed.
func (s *Subscription) Deliveries() <-chan []types.EmotionAggregate {
	return s.ch
}

// Close tears down the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		defer s.feed.mu.Unlock()
		if set, ok := s.feed.subs[s.meetingID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(s.feed.subs, s.meetingID)
			}
		}
		// Publishers send while holding the feed lock, so nobody can be
		// mid-send on this channel here.
		close(s.ch)
	})
}

// hasSubscribers reports whether anyone is watching the meeting, letting
// the aggregator skip the row-set load when nobody is.
func (f *Feed) hasSubscribers(meetingID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[meetingID]) > 0
}

// publish delivers the row set to every subscriber of the meeting,
// dropping the delivery for subscribers whose buffer is full.
func (f *Feed) publish(meetingID string, aggs []types.EmotionAggregate) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs[meetingID] {
		select {
		case sub.ch <- aggs:
		default:
		}
	}
}
