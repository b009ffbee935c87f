package types

// SnapshotRow is one participant's row in the current-frame view: for each
// label, whether that participant's last classified label equals it.
type SnapshotRow struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Angry    bool   `json:"angry"`
	Disgust  bool   `json:"disgust"`
	Fear     bool   `json:"fear"`
	Happy    bool   `json:"happy"`
	Neutral  bool   `json:"neutral"`
	Sad      bool   `json:"sad"`
	Surprise bool   `json:"surprise"`
}

// SnapshotOverall is the synthetic Overall row of the current-frame view:
// per label, the rounded percentage of participants whose last label equals
// it. With zero participants every percentage is 0.
type SnapshotOverall struct {
	AngryPct    int `json:"angry_pct"`
	DisgustPct  int `json:"disgust_pct"`
	FearPct     int `json:"fear_pct"`
	HappyPct    int `json:"happy_pct"`
	NeutralPct  int `json:"neutral_pct"`
	SadPct      int `json:"sad_pct"`
	SurprisePct int `json:"surprise_pct"`
}

// SnapshotView is the instantaneous "current frame" projection.
type SnapshotView struct {
	Rows    []SnapshotRow   `json:"rows"`
	Overall SnapshotOverall `json:"overall"`
}

// LabelStat is one label cell of the cumulative view: the raw frame count
// and its rounded percentage of the row's total frames (0 when the total
// is 0).
type LabelStat struct {
	Count int `json:"count"`
	Pct   int `json:"pct"`
}

// CumulativeRow is one row of the accumulated-frames view. SharePct is the
// participant's share of all frames across the whole meeting; it is fixed
// at 100 on the Overall row.
type CumulativeRow struct {
	UID         string    `json:"uid"`
	Name        string    `json:"name"`
	Angry       LabelStat `json:"angry"`
	Disgust     LabelStat `json:"disgust"`
	Fear        LabelStat `json:"fear"`
	Happy       LabelStat `json:"happy"`
	Neutral     LabelStat `json:"neutral"`
	Sad         LabelStat `json:"sad"`
	Surprise    LabelStat `json:"surprise"`
	TotalFrames int       `json:"total_frames"`
	SharePct    int       `json:"share_pct"`
}

// CumulativeView is the accumulated-frames projection.
type CumulativeView struct {
	Rows    []CumulativeRow `json:"rows"`
	Overall CumulativeRow   `json:"overall"`
}

// MeetingAggregateView bundles the raw aggregates for a meeting with both
// derived projections. It is never persisted — always recomputed from the
// current aggregate set.
type MeetingAggregateView struct {
	MeetingID  string             `json:"meeting_id"`
	Aggregates []EmotionAggregate `json:"aggregates"`
	Snapshot   SnapshotView       `json:"snapshot"`
	Cumulative CumulativeView     `json:"cumulative"`
}
