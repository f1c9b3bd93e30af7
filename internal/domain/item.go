package domain

// Item is one comment awaiting a label. Title and SourceQuery carry the
// surrounding context; the same text can flip sentiment depending on what
// it was posted under, so both always travel with the comment into the
// classifier request.
type Item struct {
	Index       int
	Text        string
	Title       string
	SourceQuery string
}

// ClassifierResult is the output of one classifier tier for one item.
// It lives only long enough to produce a FinalRecord.
type ClassifierResult struct {
	Label      Label
	Confidence Distribution
}
