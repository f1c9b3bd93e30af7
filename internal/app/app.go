// Package app wires the subcommands together: split partitions the input,
// run launches one labeling worker per partition, analyze and export read
// the committed output back out.
package app

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"labelbot/internal/classifier"
	"labelbot/internal/config"
	"labelbot/internal/decision"
	"labelbot/internal/domain"
	"labelbot/internal/httpx"
	"labelbot/internal/notify"
	"labelbot/internal/partition"
	"labelbot/internal/report"
	"labelbot/internal/storage/sqlite"
	"labelbot/internal/worker"
)

const usage = `Usage: labelbot <command> [flags]

Commands:
  split     split the input CSV into per-worker partitions
  run       label all partitions (resumes from checkpoints)
  analyze   summarize committed labeling output
  export    merge partitions into one labeled CSV
`

func Main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	appliedTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf("Config loaded. Provider=%s ModelFast=%s ModelExpert=%s Partitions=%d BatchSize=%d ConfFastAccept=%.3f AuditRate=%.2f MarginThreshold=%.2f HTTPTimeout=%s",
		cfg.Provider, cfg.ModelFast, cfg.ModelExpert, cfg.PartitionCount, cfg.BatchSize,
		cfg.ConfFastAccept, cfg.AuditRate, cfg.MarginThreshold, appliedTimeout)

	switch os.Args[1] {
	case "split":
		fs := flag.NewFlagSet("split", flag.ExitOnError)
		input := fs.String("input", "data_features.csv", "input CSV with comment_text, title, source_query columns")
		fs.Parse(os.Args[2:])
		if _, err := partition.Split(*input, cfg.PartitionsDir, cfg.PartitionCount); err != nil {
			log.Fatalf("split error: %v", err)
		}
		log.Printf("split complete: %d partitions in %s", cfg.PartitionCount, cfg.PartitionsDir)

	case "run":
		if err := cfg.ValidateRun(); err != nil {
			log.Fatalf("run config error: %v", err)
		}
		runCommand(cfg)

	case "analyze":
		stats, err := report.Collect(cfg.PartitionsDir, cfg.CheckpointDir, cfg.PartitionCount)
		if err != nil {
			log.Fatalf("analyze error: %v", err)
		}
		summary := report.BuildSummary(stats, time.Now())
		path, err := report.WriteSummaryFile(summary, cfg.OutputDir, time.Now())
		if err != nil {
			log.Fatalf("analyze write error: %v", err)
		}
		fmt.Print(summary)
		log.Printf("analyze summary written to %s", path)

	case "export":
		fs := flag.NewFlagSet("export", flag.ExitOnError)
		out := fs.String("o", filepath.Join(cfg.OutputDir, "labeled_full.csv"), "merged output CSV path")
		fs.Parse(os.Args[2:])
		if err := report.Export(cfg.PartitionsDir, cfg.CheckpointDir, *out, cfg.PartitionCount); err != nil {
			log.Fatalf("export error: %v", err)
		}
		log.Printf("export complete: %s", *out)

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

// runCommand either labels once or, when a schedule is configured, starts
// each run on the cron spec — handy when the provider's daily quota resets
// at a fixed hour. The schedule is a standard 5-field cron expression.
func runCommand(cfg config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedule := strings.TrimSpace(cfg.Schedule)
	if schedule == "" {
		if err := runOnce(ctx, cfg); err != nil {
			log.Fatalf("run error: %v", err)
		}
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Fatalf("Invalid schedule '%s': %v", schedule, err)
	}
	log.Printf("Scheduled labeling (cron: %s)", schedule)

	for {
		now := time.Now()
		next := sched.Next(now)
		log.Printf("Next labeling run at %s (in %s)", next.Format("Mon Jan 2 15:04"), next.Sub(now).Round(time.Minute))

		select {
		case <-ctx.Done():
			log.Printf("Scheduler stopped: %v", ctx.Err())
			return
		case <-time.After(next.Sub(now)):
		}

		if err := runOnce(ctx, cfg); err != nil {
			log.Printf("Scheduled run error: %v", err)
		}
	}
}

// runOnce fans one worker out per partition, each with its own credential,
// and waits for all of them. Workers share nothing but the output
// directory, and each writes only its own partition's files.
func runOnce(ctx context.Context, cfg config.Config) error {
	if err := os.MkdirAll(cfg.CheckpointDir, 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return err
	}

	engineCfg := decision.Config{
		ConfFastAccept:  cfg.ConfFastAccept,
		AuditRate:       cfg.AuditRate,
		MarginThreshold: cfg.MarginThreshold,
		WeightFast:      cfg.WeightFast,
		WeightExpert:    cfg.WeightExpert,
	}
	workerCfg := worker.Config{
		BatchSize:          cfg.BatchSize,
		CheckpointInterval: cfg.CheckpointInterval,
		MaxRetries:         cfg.MaxRetries,
		RetryDelay:         cfg.RetryDelay(),
		RequestDelay:       cfg.RequestDelay(),
	}

	started := time.Now()
	summaries := make([]worker.Summary, cfg.PartitionCount)

	var wg sync.WaitGroup
	for i := 0; i < cfg.PartitionCount; i++ {
		part := i + 1

		items, err := partition.LoadItems(partition.FilePath(cfg.PartitionsDir, part))
		if err != nil {
			summaries[i] = worker.Summary{Part: part, Err: fmt.Errorf("loading items: %w", err)}
			log.Printf("worker part=%d skipped: %v", part, err)
			continue
		}

		cls, err := classifier.New(classifier.ProviderConfig{
			Provider:    cfg.Provider,
			APIKey:      cfg.APIKeys[i],
			ModelFast:   cfg.ModelFast,
			ModelExpert: cfg.ModelExpert,
		})
		if err != nil {
			summaries[i] = worker.Summary{Part: part, Err: err}
			continue
		}

		store, err := sqlite.Open(sqlite.PartitionPath(cfg.CheckpointDir, part))
		if err != nil {
			summaries[i] = worker.Summary{Part: part, Err: err}
			continue
		}

		wg.Add(1)
		go func(idx, part int, items []domain.Item, cls classifier.Classifier, store *sqlite.Store) {
			defer wg.Done()
			defer store.Close()
			rng := rand.New(rand.NewSource(auditSeed(cfg.AuditSeed, part)))
			w := worker.New(part, items, cls, store, engineCfg, workerCfg, rng)
			summaries[idx] = w.Run(ctx)
		}(i, part, items, cls, store)
	}
	wg.Wait()

	text := formatRunSummary(summaries, time.Since(started))
	log.Print(text)
	notify.PostRunSummary(cfg.SlackBotToken, cfg.SlackChannelID, text)

	for _, s := range summaries {
		if s.Err != nil {
			return fmt.Errorf("part %d: %w", s.Part, s.Err)
		}
	}
	return nil
}

// auditSeed derives a distinct deterministic stream per partition from the
// configured seed; seed 0 means non-reproducible wall-clock seeding.
func auditSeed(seed int64, part int) int64 {
	if seed == 0 {
		return time.Now().UnixNano() + int64(part)
	}
	return seed + int64(part)
}

func formatRunSummary(summaries []worker.Summary, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Labeling run finished in %s\n", elapsed.Round(time.Second)))
	processed, review, errored := 0, 0, 0
	for _, s := range summaries {
		processed += s.Processed
		review += s.HumanReview()
		errored += s.Counts[domain.StrategyError]
		line := fmt.Sprintf("part %d: %d/%d processed (resumed at %d)", s.Part, s.Resumed+s.Processed, s.Total, s.Resumed)
		if s.Err != nil {
			line += fmt.Sprintf(" error: %v", s.Err)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(fmt.Sprintf("total processed=%d human_review=%d errors=%d", processed, review, errored))
	return b.String()
}
