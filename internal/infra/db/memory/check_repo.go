// Package memory is a process-local check repository for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/bryanwahyu/nog/internal/domain/checks"
)

type CheckRepository struct {
	mu      sync.RWMutex
	records map[string]domain.Record
}

func NewCheckRepository() *CheckRepository {
	return &CheckRepository{records: make(map[string]domain.Record)}
}

// Save upserts r by ID; an existing record keeps its favorite flag and timestamp
func (r *CheckRepository) Save(_ context.Context, rec *domain.Record) (string, error) {
	if rec.ID == "" {
		return "", fmt.Errorf("%w: record id is empty", domain.ErrStorage)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next := clone(*rec)
	if prev, ok := r.records[rec.ID]; ok {
		next.IsFavorite = prev.IsFavorite
		next.Timestamp = prev.Timestamp
	}
	r.records[rec.ID] = next
	return rec.ID, nil
}

func (r *CheckRepository) Get(_ context.Context, id string) (*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	out := clone(rec)
	return &out, nil
}

func (r *CheckRepository) ListByUser(_ context.Context, userID string) ([]*domain.Record, error) {
	return r.list(func(rec domain.Record) bool { return rec.UserID == userID }), nil
}

func (r *CheckRepository) ListFavoritesByUser(_ context.Context, userID string) ([]*domain.Record, error) {
	return r.list(func(rec domain.Record) bool { return rec.UserID == userID && rec.IsFavorite }), nil
}

func (r *CheckRepository) SetFavorite(_ context.Context, id string, favorite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	rec.IsFavorite = favorite
	r.records[id] = rec
	return nil
}

func (r *CheckRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	delete(r.records, id)
	return nil
}

// Len returns the number of stored records
func (r *CheckRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *CheckRepository) list(keep func(domain.Record) bool) []*domain.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Record, 0)
	for _, rec := range r.records {
		if keep(rec) {
			c := clone(rec)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func clone(rec domain.Record) domain.Record {
	rec.Allergens = append([]string(nil), rec.Allergens...)
	rec.Result.FlaggedIngredients = append([]string{}, rec.Result.FlaggedIngredients...)
	return rec
}
