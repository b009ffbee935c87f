package types

import (
	"fmt"
	"strings"
)

// Label is one of the seven closed-set emotion labels produced by the
// classifier. The set is fixed; unrecognized strings from the inference
// endpoint are rejected at the boundary rather than widening the set.
type Label string

const (
	LabelAngry    Label = "Angry"
	LabelDisgust  Label = "Disgust"
	LabelFear     Label = "Fear"
	LabelHappy    Label = "Happy"
	LabelNeutral  Label = "Neutral"
	LabelSad      Label = "Sad"
	LabelSurprise Label = "Surprise"
)

// Labels lists every valid label in a stable order (the order the model
// indexes its output classes).
var Labels = []Label{
	LabelAngry,
	LabelDisgust,
	LabelFear,
	LabelHappy,
	LabelNeutral,
	LabelSad,
	LabelSurprise,
}

// ParseLabel normalizes a classifier label string into a Label.
// Matching is case-insensitive. Anything outside the closed set
// (including the model's "No face detected" answer) is an error.
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("types: unrecognized emotion label %q", s)
}

// String returns the canonical capitalized form ("Happy").
func (l Label) String() string { return string(l) }

// Key returns the lower-case form used as a storage column and JSON field
// name ("happy").
func (l Label) Key() string { return strings.ToLower(string(l)) }
