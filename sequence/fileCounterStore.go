package sequence

import (
	"context"
	"errors"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/utils"
)

// FileCounterStore persists counters as a JSON object {"domain.table": max}.
// Writes go through a temp file and a rename.
type FileCounterStore struct {
	Path string
}

func NewFileCounterStore(path string) *FileCounterStore {
	return &FileCounterStore{Path: path}
}

func (s *FileCounterStore) Load(_ context.Context) (Counters, error) {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Counters{}, nil
	}
	if err != nil {
		return nil, err
	}
	var stored map[string]int64
	if err := utils.UnmarshalFromJSON(raw, &stored); err != nil {
		return nil, fmt.Errorf("counter file %s: %w", s.Path, err)
	}
	out := make(Counters, len(stored))
	for key, max := range stored {
		table, err := models.ParseTableKey(key)
		if err != nil {
			return nil, fmt.Errorf("counter file %s: %w", s.Path, err)
		}
		out[table] = max
	}
	return out, nil
}

func (s *FileCounterStore) Save(ctx context.Context, counters Counters) error {
	current, err := s.Load(ctx)
	if err != nil {
		return err
	}
	merged := current.Merge(counters)
	stored := make(map[string]int64, len(merged))
	for table, max := range merged {
		stored[table.String()] = max
	}
	return utils.WriteJSONFile(s.Path, stored)
}
