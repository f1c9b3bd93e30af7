// Package worker drives the decision engine over one partition: items in
// index order, batched classifier calls, rate-limited and retried, with
// records and checkpoint committed together at a bounded interval. Each
// worker owns one partition file, one database, and one credential; no
// state is shared across workers.
package worker

import (
	"context"
	"log"
	"math/rand"
	"time"

	"labelbot/internal/classifier"
	"labelbot/internal/decision"
	"labelbot/internal/domain"
	"labelbot/internal/storage/sqlite"
)

type Config struct {
	BatchSize          int
	CheckpointInterval int
	MaxRetries         int
	RetryDelay         time.Duration
	RequestDelay       time.Duration
}

// Summary is one worker's account of a finished (or aborted) run.
type Summary struct {
	Part      int
	Total     int
	Resumed   int // items already committed before this run
	Processed int
	Counts    map[domain.Strategy]int
	Err       error
}

// HumanReview returns how many processed items were queued for manual
// adjudication.
func (s Summary) HumanReview() int {
	return s.Counts[domain.StrategyHumanReview]
}

type Worker struct {
	part   int
	items  []domain.Item
	engine *decision.Engine
	store  *sqlite.Store
	cfg    Config
}

// New wires a worker around its partition's items, store, and credential.
// The engine sits behind the worker's own retry/rate-limit policy; rng
// seeds the engine's audit draws.
func New(part int, items []domain.Item, cls classifier.Classifier, store *sqlite.Store, engineCfg decision.Config, cfg Config, rng *rand.Rand) *Worker {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.CheckpointInterval < 1 {
		cfg.CheckpointInterval = cfg.BatchSize
	}
	policy := newPolicyClassifier(part, cls, cfg.RequestDelay, cfg.RetryDelay, cfg.MaxRetries)
	return &Worker{
		part:   part,
		items:  items,
		engine: decision.NewEngine(engineCfg, policy, rng),
		store:  store,
		cfg:    cfg,
	}
}

// Run processes the partition from its checkpoint to the end. A failing
// batch downgrades its items to the error strategy and the loop moves on;
// only context cancellation or a storage failure stops the run early. The
// returned summary is valid in every case.
func (w *Worker) Run(ctx context.Context) Summary {
	summary := Summary{Part: w.part, Total: len(w.items), Counts: make(map[domain.Strategy]int)}

	offset, err := w.store.NextOffset()
	if err != nil {
		summary.Err = err
		return summary
	}
	summary.Resumed = offset
	if offset > 0 {
		log.Printf("worker part=%d resuming at offset=%d of %d", w.part, offset, len(w.items))
	} else {
		log.Printf("worker part=%d starting fresh items=%d", w.part, len(w.items))
	}

	var buffer []domain.FinalRecord
	committed := offset

	flush := func(upTo int) error {
		if len(buffer) == 0 {
			return nil
		}
		if err := w.store.Commit(buffer, upTo); err != nil {
			return err
		}
		committed = upTo
		buffer = buffer[:0]
		log.Printf("worker part=%d checkpoint offset=%d", w.part, upTo)
		return nil
	}

	for start := offset; start < len(w.items); start += w.cfg.BatchSize {
		if ctx.Err() != nil {
			break
		}

		end := start + w.cfg.BatchSize
		if end > len(w.items) {
			end = len(w.items)
		}
		batch := w.items[start:end]

		records, derr := w.engine.DecideBatch(ctx, batch)
		if derr != nil {
			// Items covered by the failure are already terminal error
			// records; the partition keeps going.
			log.Printf("worker part=%d batch %d-%d degraded: %v", w.part, start, end-1, derr)
		}

		buffer = append(buffer, records...)
		summary.Processed += len(records)
		for _, r := range records {
			summary.Counts[r.Strategy]++
		}

		if len(buffer) >= w.cfg.CheckpointInterval {
			if err := flush(end); err != nil {
				summary.Err = err
				return summary
			}
		}
	}

	if err := flush(offset + summary.Processed); err != nil {
		summary.Err = err
		return summary
	}

	if ctx.Err() != nil {
		summary.Err = ctx.Err()
		log.Printf("worker part=%d stopped at offset=%d: %v", w.part, committed, ctx.Err())
		return summary
	}

	log.Printf("worker part=%d done processed=%d human_review=%d errors=%d",
		w.part, summary.Processed, summary.Counts[domain.StrategyHumanReview], summary.Counts[domain.StrategyError])
	return summary
}
