// Package projection derives the two read views over a meeting's emotion
// aggregates: the instantaneous snapshot ("current frame") view and the
// cumulative ("accumulated frames") view. Both are pure derivations,
// recomputed on demand and never persisted.
package projection

import (
	"math"

	"github.com/conline/conline/pkg/types"
)

// Project builds the full MeetingAggregateView for one meeting from the
// current aggregate set.
func Project(meetingID string, aggs []types.EmotionAggregate) types.MeetingAggregateView {
	return types.MeetingAggregateView{
		MeetingID:  meetingID,
		Aggregates: aggs,
		Snapshot:   Snapshot(aggs),
		Cumulative: Cumulative(aggs),
	}
}

// Snapshot builds the current-frame view: one row per participant with
// per-label booleans from the participant's last label, plus the Overall
// row giving the rounded percentage of participants whose last label is
// each label. With zero participants all percentages are 0.
func Snapshot(aggs []types.EmotionAggregate) types.SnapshotView {
	view := types.SnapshotView{Rows: make([]types.SnapshotRow, 0, len(aggs))}

	counts := make(map[types.Label]int, len(types.Labels))
	for _, a := range aggs {
		view.Rows = append(view.Rows, types.SnapshotRow{
			UID:      a.UID,
			Name:     a.Name,
			Angry:    a.LastEmotion == types.LabelAngry,
			Disgust:  a.LastEmotion == types.LabelDisgust,
			Fear:     a.LastEmotion == types.LabelFear,
			Happy:    a.LastEmotion == types.LabelHappy,
			Neutral:  a.LastEmotion == types.LabelNeutral,
			Sad:      a.LastEmotion == types.LabelSad,
			Surprise: a.LastEmotion == types.LabelSurprise,
		})
		counts[a.LastEmotion]++
	}

	// Denominator floor of 1 keeps the empty-meeting case at 0% rather
	// than dividing by zero.
	n := len(aggs)
	if n < 1 {
		n = 1
	}
	view.Overall = types.SnapshotOverall{
		AngryPct:    pct(counts[types.LabelAngry], n),
		DisgustPct:  pct(counts[types.LabelDisgust], n),
		FearPct:     pct(counts[types.LabelFear], n),
		HappyPct:    pct(counts[types.LabelHappy], n),
		NeutralPct:  pct(counts[types.LabelNeutral], n),
		SadPct:      pct(counts[types.LabelSad], n),
		SurprisePct: pct(counts[types.LabelSurprise], n),
	}
	return view
}

// Cumulative builds the accumulated-frames view: one row per participant
// with each label's raw count and percentage of that participant's total
// frames, the participant's share of all frames in the meeting, plus the
// Overall row summing every counter. The Overall row's share is fixed at
// 100%.
func Cumulative(aggs []types.EmotionAggregate) types.CumulativeView {
	view := types.CumulativeView{Rows: make([]types.CumulativeRow, 0, len(aggs))}

	allFrames := 0
	for _, a := range aggs {
		allFrames += a.TotalFrames
	}

	var overall types.EmotionAggregate
	for _, a := range aggs {
		view.Rows = append(view.Rows, cumulativeRow(&a, a.TotalFrames, allFrames))

		overall.Angry += a.Angry
		overall.Disgust += a.Disgust
		overall.Fear += a.Fear
		overall.Happy += a.Happy
		overall.Neutral += a.Neutral
		overall.Sad += a.Sad
		overall.Surprise += a.Surprise
		overall.TotalFrames += a.TotalFrames
	}

	overall.UID = "overall"
	overall.Name = "Overall"
	overallRow := cumulativeRow(&overall, overall.TotalFrames, overall.TotalFrames)
	overallRow.SharePct = 100
	view.Overall = overallRow
	return view
}

func cumulativeRow(a *types.EmotionAggregate, total, allFrames int) types.CumulativeRow {
	return types.CumulativeRow{
		UID:         a.UID,
		Name:        a.Name,
		Angry:       stat(a.Angry, total),
		Disgust:     stat(a.Disgust, total),
		Fear:        stat(a.Fear, total),
		Happy:       stat(a.Happy, total),
		Neutral:     stat(a.Neutral, total),
		Sad:         stat(a.Sad, total),
		Surprise:    stat(a.Surprise, total),
		TotalFrames: a.TotalFrames,
		SharePct:    pctOrZero(a.TotalFrames, allFrames),
	}
}

func stat(count, total int) types.LabelStat {
	return types.LabelStat{Count: count, Pct: pctOrZero(count, total)}
}

// pct rounds count/total to a whole percentage. total must be >= 1.
func pct(count, total int) int {
	return int(math.Round(float64(count) / float64(total) * 100))
}

// pctOrZero is pct with the 0-total case defined as 0%.
func pctOrZero(count, total int) int {
	if total <= 0 {
		return 0
	}
	return pct(count, total)
}
