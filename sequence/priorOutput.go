package sequence

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/books_synth/models"
)

// ScanPriorOutput reads the id column of every published CSV under
// <root>/<domain>/<table>/ and returns the highest sequence seen per table.
// A missing root is an empty result; staging directories are not visited.
func ScanPriorOutput(root string, tables []models.TableKey) (Counters, error) {
	out := Counters{}
	for _, table := range tables {
		column := models.IdColumn(table)
		if column == "" {
			continue
		}
		dir := filepath.Join(root, string(table.Domain), table.Table)
		files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			max, err := maxSequenceInFile(file, column)
			if err != nil {
				return nil, fmt.Errorf("scan %s: %w", file, err)
			}
			if max > out[table] {
				out[table] = max
			}
		}
	}
	return out, nil
}

func maxSequenceInFile(path string, column string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	idx := -1
	for i, name := range header {
		if name == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("column %s not found", column)
	}

	var max int64
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		if idx >= len(row) {
			continue
		}
		if seq, ok := ParseSequence(row[idx]); ok && seq > max {
			max = seq
		}
	}
	return max, nil
}

// ParseSequence extracts the trailing numeric part of an identifier such as
// ORD_EU_2024_000042.
func ParseSequence(id string) (int64, bool) {
	i := strings.LastIndex(id, "_")
	if i < 0 || i == len(id)-1 {
		return 0, false
	}
	seq, err := strconv.ParseInt(id[i+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}
