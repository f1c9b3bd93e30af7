// Package report reads committed partition output and turns it into the
// two downstream surfaces: a markdown run summary and the merged labeled
// CSV consumed by dataset assembly.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"labelbot/internal/domain"
	"labelbot/internal/partition"
	"labelbot/internal/storage/sqlite"
)

// PartitionStats is one partition's committed output plus its input size.
type PartitionStats struct {
	Part    int
	Total   int
	Records []domain.FinalRecord
}

// Collect loads every partition's items file and record database. A
// partition with no items file yet is skipped (split not run for it).
func Collect(partitionsDir, checkpointDir string, parts int) ([]PartitionStats, error) {
	var stats []PartitionStats
	for part := 1; part <= parts; part++ {
		itemsPath := partition.FilePath(partitionsDir, part)
		items, err := partition.LoadItems(itemsPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("partition %d: %w", part, err)
		}

		store, err := sqlite.Open(sqlite.PartitionPath(checkpointDir, part))
		if err != nil {
			return nil, fmt.Errorf("partition %d: %w", part, err)
		}
		records, err := store.Records()
		store.Close()
		if err != nil {
			return nil, fmt.Errorf("partition %d: %w", part, err)
		}

		stats = append(stats, PartitionStats{Part: part, Total: len(items), Records: records})
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("no partitions found in %s (run split first)", partitionsDir)
	}
	return stats, nil
}

// BuildSummary renders the per-partition and overall tallies as markdown.
func BuildSummary(stats []PartitionStats, at time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# Labeling summary — %s\n\n", at.Format("2006-01-02 15:04")))
	b.WriteString("| part | items | labeled | fast_accept | agreement | soft_voting | human_review | error |\n")
	b.WriteString("|------|-------|---------|-------------|-----------|-------------|--------------|-------|\n")

	overallStrategies := make(map[domain.Strategy]int)
	overallLabels := make(map[domain.Label]int)
	var margins []float64
	totalItems, totalLabeled := 0, 0

	for _, ps := range stats {
		counts := make(map[domain.Strategy]int)
		for _, r := range ps.Records {
			counts[r.Strategy]++
			overallStrategies[r.Strategy]++
			if r.FinalLabel != nil {
				overallLabels[*r.FinalLabel]++
			}
			if r.Margin != nil {
				margins = append(margins, *r.Margin)
			}
		}
		totalItems += ps.Total
		totalLabeled += len(ps.Records)
		b.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d | %d | %d | %d |\n",
			ps.Part, ps.Total, len(ps.Records),
			counts[domain.StrategyFastAccept], counts[domain.StrategyAgreement],
			counts[domain.StrategySoftVoting], counts[domain.StrategyHumanReview],
			counts[domain.StrategyError]))
	}

	b.WriteString(fmt.Sprintf("\nProcessed %d of %d items.\n", totalLabeled, totalItems))

	b.WriteString("\n## Labels\n\n")
	for _, label := range domain.CanonicalLabels {
		b.WriteString(fmt.Sprintf("- %s: %d\n", label, overallLabels[label]))
	}

	if n := overallStrategies[domain.StrategyHumanReview]; n > 0 {
		b.WriteString(fmt.Sprintf("\n%d items queued for human review.\n", n))
	}
	if len(margins) > 0 {
		min, max, sum := margins[0], margins[0], 0.0
		for _, m := range margins {
			if m < min {
				min = m
			}
			if m > max {
				max = m
			}
			sum += m
		}
		b.WriteString(fmt.Sprintf("\nVoting margins: n=%d min=%.3f max=%.3f avg=%.3f\n",
			len(margins), min, max, sum/float64(len(margins))))
	}
	return b.String()
}

// WriteSummaryFile writes the summary markdown into the output directory.
func WriteSummaryFile(content, outputDir string, at time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, fmt.Sprintf("summary_%s.md", at.Format("20060102_150405")))
	return path, os.WriteFile(path, []byte(content), 0644)
}

// Export merges every partition back into one labeled CSV, preserving the
// original row order. Rows left unresolved (human_review, error, or not
// yet processed) keep an empty final_label; the margin column is filled
// only on soft_voting rows.
func Export(partitionsDir, checkpointDir, outPath string, parts int) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"comment_text", "title", "source_query", "final_label", "strategy", "margin"}); err != nil {
		return err
	}

	exported := false
	for part := 1; part <= parts; part++ {
		items, err := partition.LoadItems(partition.FilePath(partitionsDir, part))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("partition %d: %w", part, err)
		}
		exported = true

		store, err := sqlite.Open(sqlite.PartitionPath(checkpointDir, part))
		if err != nil {
			return fmt.Errorf("partition %d: %w", part, err)
		}
		records, err := store.Records()
		store.Close()
		if err != nil {
			return fmt.Errorf("partition %d: %w", part, err)
		}

		byIndex := make(map[int]domain.FinalRecord, len(records))
		for _, r := range records {
			byIndex[r.Index] = r
		}

		for _, item := range items {
			label, strategy, margin := "", "", ""
			if r, ok := byIndex[item.Index]; ok {
				strategy = string(r.Strategy)
				if r.FinalLabel != nil {
					label = string(*r.FinalLabel)
				}
				if r.Strategy == domain.StrategySoftVoting && r.Margin != nil {
					margin = strconv.FormatFloat(*r.Margin, 'f', 4, 64)
				}
			}
			if err := w.Write([]string{item.Text, item.Title, item.SourceQuery, label, strategy, margin}); err != nil {
				return err
			}
		}
	}
	if !exported {
		return fmt.Errorf("no partitions found in %s (run split first)", partitionsDir)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
