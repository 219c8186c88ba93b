package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/analysis/verification"
	"github.com/jengzang/records-timeline/internal/calendar"
	"github.com/jengzang/records-timeline/internal/models"
)

// VerificationService checks planned events against the observed day
type VerificationService struct {
	timeline *TimelineService
	calendar calendar.Source
	mapping  verification.Mapping
	opts     verification.Options
	timeout  time.Duration
}

// NewVerificationService creates a new verification service. A zero timeout
// leaves calendar fetches bounded only by the request context.
func NewVerificationService(timeline *TimelineService, source calendar.Source, th analysis.Thresholds, timeout time.Duration) *VerificationService {
	return &VerificationService{
		timeline: timeline,
		calendar: source,
		mapping:  verification.DefaultMapping(),
		opts:     verification.OptionsFrom(th),
		timeout:  timeout,
	}
}

// Verify returns one result per planned event of the day. An unreachable
// calendar yields an empty report with a warning rather than an error.
func (s *VerificationService) Verify(ctx context.Context, userID, date string) (*models.VerificationReport, error) {
	day, err := s.timeline.Day(date)
	if err != nil {
		return nil, err
	}

	dayBlocks, err := s.timeline.GetBlocks(ctx, userID, day.Date)
	if err != nil {
		return nil, err
	}

	report := &models.VerificationReport{Date: day.Date}
	events, err := s.fetch(ctx, userID, day)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[Verify] Calendar unavailable for user %s: %v", userID, err)
		report.Warnings = append(report.Warnings, fmt.Sprintf("calendar unavailable: %v", err))
		events = nil
	}

	report.Results = verification.Verify(events, dayBlocks, s.mapping, s.opts)
	if report.Results == nil {
		report.Results = []models.VerificationResult{}
	}
	return report, nil
}

func (s *VerificationService) fetch(ctx context.Context, userID string, day analysis.Day) ([]models.PlannedEvent, error) {
	if s.calendar == nil {
		return nil, nil
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.calendar.Events(ctx, userID, day.Start, day.End)
}
