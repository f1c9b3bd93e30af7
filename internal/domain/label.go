package domain

import "strings"

// Label is one of the closed sentiment label set. Off-topic content gets
// "irrelevant" so spam and unrelated promotion are never forced into a
// sentiment bucket.
type Label string

const (
	LabelPositive   Label = "positive"
	LabelNeutral    Label = "neutral"
	LabelNegative   Label = "negative"
	LabelIrrelevant Label = "irrelevant"
)

// CanonicalLabels lists the label set in its fixed order. The order doubles
// as the tie-break rule wherever two labels carry the exact same score.
var CanonicalLabels = []Label{LabelPositive, LabelNeutral, LabelNegative, LabelIrrelevant}

// ParseLabel maps a model-emitted label string onto the closed set.
func ParseLabel(s string) (Label, bool) {
	switch Label(strings.ToLower(strings.TrimSpace(s))) {
	case LabelPositive:
		return LabelPositive, true
	case LabelNeutral:
		return LabelNeutral, true
	case LabelNegative:
		return LabelNegative, true
	case LabelIrrelevant:
		return LabelIrrelevant, true
	}
	return "", false
}
