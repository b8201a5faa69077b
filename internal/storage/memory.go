package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"qrlsim/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	order       map[string]int
	seq         int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.order = make(map[string]int)
	s.seq = 0
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, record model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	if record.RunID == "" {
		return errors.New("run id is required")
	}
	s.seq++
	s.runs[record.RunID] = cloneRun(record)
	s.order[record.RunID] = s.seq
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.runs[runID]
	if !ok {
		return model.RunRecord{}, false, nil
	}
	return cloneRun(record), true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunRecord, 0, len(s.runs))
	for _, record := range s.runs {
		out = append(out, cloneRun(record))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUTC == out[j].CreatedAtUTC {
			return s.order[out[i].RunID] > s.order[out[j].RunID]
		}
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	return out, nil
}
