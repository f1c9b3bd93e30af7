package domain

import "time"

// Strategy names the resolution path that produced a FinalRecord.
type Strategy string

const (
	StrategyFastAccept  Strategy = "fast_accept"
	StrategyAgreement   Strategy = "agreement"
	StrategySoftVoting  Strategy = "soft_voting"
	StrategyHumanReview Strategy = "human_review"
	StrategyError       Strategy = "error"
)

// Strategies lists every terminal strategy, in cascade order.
var Strategies = []Strategy{
	StrategyFastAccept,
	StrategyAgreement,
	StrategySoftVoting,
	StrategyHumanReview,
	StrategyError,
}

// FinalRecord is the durable outcome for one item. FinalLabel is nil for
// human_review and error outcomes. Margin is set whenever soft voting ran,
// including low-margin items sent to human review; the exported dataset
// only surfaces it on soft_voting rows.
type FinalRecord struct {
	Index      int
	FinalLabel *Label
	Strategy   Strategy
	Margin     *float64
	DecidedAt  time.Time
}

// Resolved reports whether the record carries an automatic label.
func (r FinalRecord) Resolved() bool {
	return r.FinalLabel != nil
}
