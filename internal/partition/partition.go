// Package partition splits the full comment set into disjoint,
// order-preserving slices, one per worker/credential pair. The split is
// deterministic: re-running it over the same input reproduces byte-identical
// partition files, which checkpoint resume after a full restart relies on.
package partition

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"labelbot/internal/domain"
)

var header = []string{"comment_text", "title", "source_query"}

// FilePath returns the canonical path of one partition's items file.
// Parts are numbered from 1.
func FilePath(dir string, part int) string {
	return filepath.Join(dir, fmt.Sprintf("part_%d.csv", part))
}

// Split divides the input CSV into parts contiguous slices and writes them
// to outDir. Rows stay in input order; the remainder spreads one extra row
// over the leading parts. Returns the written file paths.
func Split(inputPath, outDir string, parts int) ([]string, error) {
	if parts < 1 {
		return nil, fmt.Errorf("partition count must be >= 1, got %d", parts)
	}
	items, err := LoadItems(inputPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}

	perPart := len(items) / parts
	remainder := len(items) % parts

	paths := make([]string, 0, parts)
	start := 0
	for i := 0; i < parts; i++ {
		size := perPart
		if i < remainder {
			size++
		}
		end := start + size

		path := FilePath(outDir, i+1)
		if err := writeItems(path, items[start:end]); err != nil {
			return nil, err
		}
		log.Printf("partition split part=%d rows=%d path=%s", i+1, size, path)
		paths = append(paths, path)
		start = end
	}
	return paths, nil
}

// LoadItems reads a comments CSV into items indexed by row position. The
// header must carry comment_text; title and source_query are optional
// context columns.
func LoadItems(path string) ([]domain.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty, expected a header row", path)
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	textCol, ok := cols["comment_text"]
	if !ok {
		return nil, fmt.Errorf("%s has no comment_text column", path)
	}

	items := make([]domain.Item, 0, len(rows)-1)
	for i, row := range rows[1:] {
		items = append(items, domain.Item{
			Index:       i,
			Text:        field(row, textCol, true),
			Title:       optionalField(row, cols, "title"),
			SourceQuery: optionalField(row, cols, "source_query"),
		})
	}
	return items, nil
}

func optionalField(row []string, cols map[string]int, name string) string {
	col, ok := cols[name]
	return field(row, col, ok)
}

func field(row []string, col int, present bool) string {
	if !present || col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

func writeItems(path string, items []domain.Item) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, item := range items {
		if err := w.Write([]string{item.Text, item.Title, item.SourceQuery}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
