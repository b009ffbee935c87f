package aggregator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conline/conline/internal/aggregator"
	"github.com/conline/conline/internal/storage"
	"github.com/conline/conline/pkg/types"
)

// memStore is an in-memory AggregateStore applying the same increment
// semantics the SQL stores implement, guarded by a mutex.
type memStore struct {
	mu      sync.Mutex
	rows    map[string]map[string]*types.EmotionAggregate
	failing bool
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]map[string]*types.EmotionAggregate)}
}

func (s *memStore) ApplySample(ctx context.Context, sample *types.EmotionSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("store down")
	}

	if s.rows[sample.MeetingID] == nil {
		s.rows[sample.MeetingID] = make(map[string]*types.EmotionAggregate)
	}
	a := s.rows[sample.MeetingID][sample.ParticipantID]
	if a == nil {
		a = &types.EmotionAggregate{
			MeetingID: sample.MeetingID,
			UID:       sample.ParticipantID,
			Name:      sample.ParticipantName,
		}
		s.rows[sample.MeetingID][sample.ParticipantID] = a
	}
	switch sample.Label {
	case types.LabelAngry:
		a.Angry++
	case types.LabelDisgust:
		a.Disgust++
	case types.LabelFear:
		a.Fear++
	case types.LabelHappy:
		a.Happy++
	case types.LabelNeutral:
		a.Neutral++
	case types.LabelSad:
		a.Sad++
	case types.LabelSurprise:
		a.Surprise++
	}
	a.TotalFrames++
	a.LastEmotion = sample.Label
	a.UpdatedAt = sample.CapturedAt
	return nil
}

func (s *memStore) ListAggregates(ctx context.Context, meetingID string) ([]types.EmotionAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.EmotionAggregate
	for _, a := range s.rows[meetingID] {
		out = append(out, *a)
	}
	return out, nil
}

func (s *memStore) GetAggregate(ctx context.Context, meetingID, uid string) (*types.EmotionAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.rows[meetingID][uid]
	if a == nil {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func sample(meeting, uid string, label types.Label) *types.EmotionSample {
	return &types.EmotionSample{
		MeetingID:       meeting,
		ParticipantID:   uid,
		ParticipantName: "User " + uid,
		Label:           label,
		CapturedAt:      time.Now(),
	}
}

func TestRecord_TotalTracksCounterSum(t *testing.T) {
	store := newMemStore()
	agg := aggregator.New(store)
	ctx := context.Background()

	for _, l := range []types.Label{types.LabelHappy, types.LabelHappy, types.LabelSad} {
		require.NoError(t, agg.Record(ctx, sample("m-1", "a", l)))
	}

	a, err := store.GetAggregate(ctx, "m-1", "a")
	require.NoError(t, err)
	assert.Equal(t, 2, a.Happy)
	assert.Equal(t, 1, a.Sad)
	assert.Equal(t, 3, a.TotalFrames)
	assert.Equal(t, a.CounterSum(), a.TotalFrames)
	assert.Equal(t, types.LabelSad, a.LastEmotion)
}

func TestRecord_CountersAreOrderIndependent(t *testing.T) {
	ctx := context.Background()
	orders := [][]types.Label{
		{types.LabelHappy, types.LabelSad, types.LabelHappy},
		{types.LabelSad, types.LabelHappy, types.LabelHappy},
		{types.LabelHappy, types.LabelHappy, types.LabelSad},
	}

	for _, order := range orders {
		store := newMemStore()
		agg := aggregator.New(store)
		for _, l := range order {
			require.NoError(t, agg.Record(ctx, sample("m-1", "a", l)))
		}
		a, err := store.GetAggregate(ctx, "m-1", "a")
		require.NoError(t, err)
		assert.Equal(t, 2, a.Happy)
		assert.Equal(t, 1, a.Sad)
		assert.Equal(t, 3, a.TotalFrames)
	}
}

func TestRecord_StoreFailureReturnsError(t *testing.T) {
	store := newMemStore()
	store.failing = true
	agg := aggregator.New(store)

	err := agg.Record(context.Background(), sample("m-1", "a", types.LabelHappy))
	assert.Error(t, err)
}

func TestFeed_DeliversUpdatedSetToSubscribers(t *testing.T) {
	store := newMemStore()
	agg := aggregator.New(store)
	ctx := context.Background()

	sub := agg.Feed().Subscribe("m-1")
	defer sub.Close()

	require.NoError(t, agg.Record(ctx, sample("m-1", "a", types.LabelHappy)))

	select {
	case aggs := <-sub.Deliveries():
		require.Len(t, aggs, 1)
		assert.Equal(t, "a", aggs[0].UID)
		assert.Equal(t, 1, aggs[0].Happy)
	case <-time.After(time.Second):
		t.Fatal("no delivery within timeout")
	}
}

func TestFeed_OtherMeetingsNotDelivered(t *testing.T) {
	store := newMemStore()
	agg := aggregator.New(store)
	ctx := context.Background()

	sub := agg.Feed().Subscribe("m-watched")
	defer sub.Close()

	require.NoError(t, agg.Record(ctx, sample("m-other", "a", types.LabelHappy)))

	select {
	case <-sub.Deliveries():
		t.Fatal("received delivery for a different meeting")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFeed_SlowSubscriberDropsNotBlocks(t *testing.T) {
	store := newMemStore()
	agg := aggregator.New(store)
	ctx := context.Background()

	sub := agg.Feed().Subscribe("m-1")
	defer sub.Close()

	// Never drain; far more records than the delivery buffer holds.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = agg.Record(ctx, sample("m-1", "a", types.LabelHappy))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("recording blocked on a slow subscriber")
	}

	a, err := store.GetAggregate(ctx, "m-1", "a")
	require.NoError(t, err)
	assert.Equal(t, 100, a.TotalFrames, "drops affect the feed, never the store")
}

func TestFeed_CloseIsIdempotentAndStopsDeliveries(t *testing.T) {
	agg := aggregator.New(newMemStore())

	sub := agg.Feed().Subscribe("m-1")
	sub.Close()
	sub.Close()

	_, ok := <-sub.Deliveries()
	assert.False(t, ok, "deliveries channel should be closed")
}

func TestRecord_ConcurrentParticipants(t *testing.T) {
	store := newMemStore()
	agg := aggregator.New(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, uid := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = agg.Record(ctx, sample("m-1", uid, types.LabelNeutral))
			}
		}(uid)
	}
	wg.Wait()

	aggs, err := store.ListAggregates(ctx, "m-1")
	require.NoError(t, err)
	require.Len(t, aggs, 3)
	for _, a := range aggs {
		assert.Equal(t, 50, a.TotalFrames)
		assert.Equal(t, a.CounterSum(), a.TotalFrames)
	}
}
