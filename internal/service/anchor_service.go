package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/repository"
)

// AnchorService exposes the user's places and their confirmation
type AnchorService struct {
	repo     *repository.AnchorRepository
	timeline *TimelineService
	users    *UserStates
}

// NewAnchorService creates a new anchor service
func NewAnchorService(repo *repository.AnchorRepository, timeline *TimelineService, users *UserStates) *AnchorService {
	if users == nil {
		users = NewUserStates()
	}
	return &AnchorService{repo: repo, timeline: timeline, users: users}
}

// List returns the user's anchors matching filter
func (s *AnchorService) List(ctx context.Context, userID string, filter models.AnchorFilter) ([]models.Anchor, error) {
	anchors, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	if anchors == nil {
		anchors = []models.Anchor{}
	}
	return anchors, nil
}

// Confirm applies the user's label and category. Confirmed anchors are
// never relabeled by lookups and never age out.
func (s *AnchorService) Confirm(ctx context.Context, userID, id string, update models.AnchorUpdate) (*models.Anchor, error) {
	update.Label = strings.TrimSpace(update.Label)
	update.Category = strings.ToLower(strings.TrimSpace(update.Category))
	if update.Label == "" {
		return nil, fmt.Errorf("%w: label is required", models.ErrInvalidInput)
	}

	unlock := s.users.Lock(userID)
	defer unlock()

	a, err := s.repo.Confirm(ctx, userID, id, update)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, models.ErrNotFound
	}
	s.timeline.InvalidateUser(ctx, userID)
	return a, nil
}
