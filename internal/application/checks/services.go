package checks

import (
	"context"
	"fmt"

	domain "github.com/bryanwahyu/nog/internal/domain/checks"
)

// Service backs the history and favorites views. Every mutation checks that
// the record belongs to the caller; someone else's record reads as not found.
type Service struct {
	Repo domain.Repository
}

func NewService(repo domain.Repository) *Service {
	return &Service{Repo: repo}
}

// History lists every check of userID, newest first
func (s *Service) History(ctx context.Context, userID string) ([]*domain.Record, error) {
	list, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return nonNil(list), nil
}

// Favorites lists the favorite checks of userID, newest first
func (s *Service) Favorites(ctx context.Context, userID string) ([]*domain.Record, error) {
	list, err := s.Repo.ListFavoritesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return nonNil(list), nil
}

// SetFavorite sets the favorite flag of one of userID's checks
func (s *Service) SetFavorite(ctx context.Context, userID, id string, favorite bool) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.Repo.SetFavorite(ctx, id, favorite)
}

// ToggleFavorite flips the favorite flag and returns the new value
func (s *Service) ToggleFavorite(ctx context.Context, userID, id string) (bool, error) {
	rec, err := s.owned(ctx, userID, id)
	if err != nil {
		return false, err
	}
	next := !rec.IsFavorite
	if err := s.Repo.SetFavorite(ctx, id, next); err != nil {
		return rec.IsFavorite, err
	}
	return next, nil
}

// Delete removes one of userID's checks
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.Repo.Delete(ctx, id)
}

func (s *Service) owned(ctx context.Context, userID, id string) (*domain.Record, error) {
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || userID == "" || rec.UserID != userID {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return rec, nil
}

func nonNil(list []*domain.Record) []*domain.Record {
	if list == nil {
		return []*domain.Record{}
	}
	return list
}
