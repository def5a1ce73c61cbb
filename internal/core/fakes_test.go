package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// memStore is an in-memory Store that enforces each kind's unique column.
type memStore struct {
	mu      sync.Mutex
	records map[string][]Record
	fail    map[string]error // per kind key, returned by every call
	clock   time.Time
	seq     int
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[string][]Record),
		fail:    make(map[string]error),
		clock:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) Insert(ctx context.Context, kind Kind, fields []Field) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail[kind.Key]; err != nil {
		return Record{}, err
	}
	if kind.Unique != "" {
		var value string
		for _, f := range fields {
			if f.Name == kind.Unique {
				value = f.Value
			}
		}
		for _, r := range s.records[kind.Key] {
			if r.Get(kind.Unique) == value {
				return Record{}, fmt.Errorf("insert %s: %w", kind.Table, ErrDuplicate)
			}
		}
	}

	s.seq++
	s.clock = s.clock.Add(time.Second)
	rec := Record{
		ID:        "id-" + strconv.Itoa(s.seq),
		CreatedAt: s.clock,
		Fields:    append([]Field(nil), fields...),
	}
	s.records[kind.Key] = append(s.records[kind.Key], rec)
	return rec, nil
}

func (s *memStore) Count(ctx context.Context, kind Kind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail[kind.Key]; err != nil {
		return 0, err
	}
	return int64(len(s.records[kind.Key])), nil
}

func (s *memStore) List(ctx context.Context, kind Kind, limit, offset int) ([]Record, error) {
	all, err := s.All(ctx, kind)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return []Record{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *memStore) All(ctx context.Context, kind Kind) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail[kind.Key]; err != nil {
		return nil, err
	}
	out := append([]Record(nil), s.records[kind.Key]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memStore) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[key])
}

// failingRenderer fails every Render call.
type failingRenderer struct{}

func (failingRenderer) Render(name string, fields map[string]string) (string, error) {
	return "", errors.New("template exploded")
}
