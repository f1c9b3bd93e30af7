// Package decision implements the cascading confidence protocol that turns
// one or two classifier opinions into a final label: fast accept above a
// strict threshold, random audit escalation, tier agreement, weighted soft
// voting, and a human-review fallback when the vote is too close to call.
package decision

import (
	"context"
	"log"
	"math/rand"
	"time"

	"labelbot/internal/classifier"
	"labelbot/internal/domain"
)

// Config carries the cascade thresholds and voting weights. It is fixed at
// engine construction; there is no ambient tuning state.
type Config struct {
	// ConfFastAccept is deliberately aggressive (default 0.985). Ordinary
	// high confidence is not enough: the fast tier is overconfident on
	// sarcasm and slang.
	ConfFastAccept  float64
	AuditRate       float64
	MarginThreshold float64
	WeightFast      float64
	WeightExpert    float64
}

// Engine resolves items via the cascade. It makes 0, 1, or 2 classifier
// calls per batch and holds no mutable state besides the audit RNG, so one
// engine belongs to exactly one sequential worker.
type Engine struct {
	cfg Config
	cls classifier.Classifier
	rng *rand.Rand
}

// NewEngine builds an engine around a classifier and a seedable audit
// source. Fixing the RNG seed and the audit rate fixes the audit set.
func NewEngine(cfg Config, cls classifier.Classifier, rng *rand.Rand) *Engine {
	return &Engine{cfg: cfg, cls: cls, rng: rng}
}

// Decide resolves a single item.
func (e *Engine) Decide(ctx context.Context, item domain.Item) (domain.FinalRecord, error) {
	records, err := e.DecideBatch(ctx, []domain.Item{item})
	return records[0], err
}

// DecideBatch resolves every item in the batch, in order. The returned
// slice always has one terminal record per item; a non-nil error reports
// a classifier failure that downgraded the affected items to the error
// strategy, and exists so the caller can log it — the records themselves
// are complete either way.
func (e *Engine) DecideBatch(ctx context.Context, items []domain.Item) ([]domain.FinalRecord, error) {
	records := make([]domain.FinalRecord, len(items))
	states := make([]domain.ItemState, len(items))

	fastResults, err := e.cls.Classify(ctx, items, classifier.TierFast)
	if err != nil {
		for i, item := range items {
			e.finish(states, i, domain.StateErrored)
			records[i] = errorRecord(item.Index)
		}
		return records, err
	}

	// One audit draw per item, in index order, so a fixed seed reproduces
	// the exact audit set on a re-run.
	var escalate []int
	for i, item := range items {
		e.finish(states, i, domain.StateFastEvaluated)
		res := fastResults[i]
		audited := e.rng.Float64() < e.cfg.AuditRate
		if !audited && res.Confidence[res.Label] >= e.cfg.ConfFastAccept {
			e.finish(states, i, domain.StateResolved)
			records[i] = labeledRecord(item.Index, res.Label, domain.StrategyFastAccept, nil)
			continue
		}
		escalate = append(escalate, i)
	}

	if len(escalate) > 0 {
		sub := make([]domain.Item, len(escalate))
		for k, i := range escalate {
			sub[k] = items[i]
		}

		expertResults, expErr := e.cls.Classify(ctx, sub, classifier.TierExpert)
		if expErr != nil {
			for _, i := range escalate {
				e.finish(states, i, domain.StateErrored)
				records[i] = errorRecord(items[i].Index)
			}
			e.logBatch(items, records)
			return records, expErr
		}

		for k, i := range escalate {
			e.finish(states, i, domain.StateExpertEvaluated)
			fast, expert := fastResults[i], expertResults[k]

			if fast.Label == expert.Label {
				e.finish(states, i, domain.StateResolved)
				records[i] = labeledRecord(items[i].Index, fast.Label, domain.StrategyAgreement, nil)
				continue
			}

			label, margin := e.softVote(fast.Confidence, expert.Confidence)
			m := margin
			if margin >= e.cfg.MarginThreshold {
				e.finish(states, i, domain.StateResolved)
				records[i] = labeledRecord(items[i].Index, label, domain.StrategySoftVoting, &m)
			} else {
				// Never auto-resolve a close call; queue it for a human.
				e.finish(states, i, domain.StateResolved)
				records[i] = domain.FinalRecord{
					Index:     items[i].Index,
					Strategy:  domain.StrategyHumanReview,
					Margin:    &m,
					DecidedAt: time.Now(),
				}
			}
		}
	}

	e.logBatch(items, records)
	return records, nil
}

// softVote combines both tiers' full distributions under the fixed weights
// and returns the winning label and the gap to the runner-up. Exact score
// ties resolve by canonical label order.
func (e *Engine) softVote(confFast, confExpert domain.Distribution) (domain.Label, float64) {
	totalWeight := e.cfg.WeightFast + e.cfg.WeightExpert
	scores := make(domain.Distribution, len(domain.CanonicalLabels))
	for _, label := range domain.CanonicalLabels {
		scores[label] = (e.cfg.WeightFast*confFast[label] + e.cfg.WeightExpert*confExpert[label]) / totalWeight
	}

	best, bestScore := scores.Top()
	secondScore := -1.0
	for _, label := range domain.CanonicalLabels {
		if label == best {
			continue
		}
		if scores[label] > secondScore {
			secondScore = scores[label]
		}
	}
	return best, bestScore - secondScore
}

func (e *Engine) finish(states []domain.ItemState, i int, to domain.ItemState) {
	if err := states[i].Advance(to); err != nil {
		// Cascade bookkeeping bug; keep going but make it visible.
		log.Printf("decision state error item=%d: %v", i, err)
	}
}

func (e *Engine) logBatch(items []domain.Item, records []domain.FinalRecord) {
	counts := make(map[domain.Strategy]int, len(domain.Strategies))
	for _, r := range records {
		counts[r.Strategy]++
	}
	log.Printf("decision batch items=%d fast_accept=%d agreement=%d soft_voting=%d human_review=%d error=%d",
		len(items),
		counts[domain.StrategyFastAccept],
		counts[domain.StrategyAgreement],
		counts[domain.StrategySoftVoting],
		counts[domain.StrategyHumanReview],
		counts[domain.StrategyError])
}

func labeledRecord(index int, label domain.Label, strategy domain.Strategy, margin *float64) domain.FinalRecord {
	return domain.FinalRecord{
		Index:      index,
		FinalLabel: &label,
		Strategy:   strategy,
		Margin:     margin,
		DecidedAt:  time.Now(),
	}
}

func errorRecord(index int) domain.FinalRecord {
	return domain.FinalRecord{
		Index:     index,
		Strategy:  domain.StrategyError,
		DecidedAt: time.Now(),
	}
}
