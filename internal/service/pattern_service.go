package service

import (
	"context"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/analysis/patterns"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/repository"
)

// PatternService scores days against the user's recurring weekly pattern
type PatternService struct {
	timeline *TimelineService
	repo     *repository.PatternRepository
	th       analysis.Thresholds
}

// NewPatternService creates a new pattern service
func NewPatternService(timeline *TimelineService, repo *repository.PatternRepository, th analysis.Thresholds) *PatternService {
	return &PatternService{timeline: timeline, repo: repo, th: th}
}

// Anomalies scores how far the day strays from the trailing history
func (s *PatternService) Anomalies(ctx context.Context, userID, date string, minConfidence float64) (*models.DayAnomalies, error) {
	day, err := s.timeline.Day(date)
	if err != nil {
		return nil, err
	}

	idx, err := s.history(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	dayBlocks, err := s.timeline.GetBlocks(ctx, userID, day.Date)
	if err != nil {
		return nil, err
	}

	out := patterns.AnomaliesForDay(idx, day, dayBlocks, s.threshold(minConfidence))
	return &out, nil
}

// Predictions returns the expected category of each confident slot of date
func (s *PatternService) Predictions(ctx context.Context, userID, date string, minConfidence float64) ([]models.Prediction, error) {
	day, err := s.timeline.Day(date)
	if err != nil {
		return nil, err
	}

	idx, err := s.history(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	out := patterns.PredictionsForDay(idx, day, s.threshold(minConfidence))
	if out == nil {
		out = []models.Prediction{}
	}
	return out, nil
}

// history loads the HistoryDays days before day
func (s *PatternService) history(ctx context.Context, userID string, day analysis.Day) (*patterns.Index, error) {
	from := day.Start.AddDate(0, 0, -s.th.HistoryDays).Format(analysis.DateLayout)
	obs, err := s.repo.ListSince(ctx, userID, from, day.Date)
	if err != nil {
		return nil, err
	}
	idx := patterns.NewIndex(s.th.BucketMinutes)
	idx.Load(obs)
	return idx, nil
}

func (s *PatternService) threshold(minConfidence float64) float64 {
	if minConfidence <= 0 || minConfidence > 1 {
		return s.th.PatternMinConfidence
	}
	return minConfidence
}
