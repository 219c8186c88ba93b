package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/jengzang/records-timeline/internal/models"
)

// maxCatchUpDays bounds how many days one tick rebuilds per user
const maxCatchUpDays = 7

// Scheduler periodically reconciles users: it flushes pending queues, which
// marks the days the samples fall on, then reprocesses every dirty day.
type Scheduler struct {
	expr      *cronexpr.Expression
	samples   *SampleService
	reprocess *ReprocessService
	loc       *time.Location
	now       func() time.Time
}

// NewScheduler parses a 5-field cron expression, evaluated in loc
func NewScheduler(spec string, samples *SampleService, reprocess *ReprocessService, loc *time.Location) (*Scheduler, error) {
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{expr: expr, samples: samples, reprocess: reprocess, loc: loc, now: time.Now}, nil
}

// Run blocks, firing Tick at every scheduled instant until ctx is done
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := s.expr.Next(s.now().In(s.loc))
		if next.IsZero() {
			log.Printf("[Scheduler] No further runs scheduled")
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.Tick(ctx)
		}
	}
}

// Tick flushes every pending queue, then rebuilds the newest dirty days of
// each user. Days already being reprocessed are skipped and stay dirty.
func (s *Scheduler) Tick(ctx context.Context) {
	pending, err := s.samples.PendingUsers(ctx)
	if err != nil {
		log.Printf("[Scheduler] Failed to list pending users: %v", err)
		return
	}
	for _, userID := range pending {
		if _, err := s.samples.Flush(ctx, userID); err != nil {
			log.Printf("[Scheduler] Flush of %s failed: %v", userID, err)
		}
	}

	users, err := s.samples.DirtyUsers(ctx)
	if err != nil {
		log.Printf("[Scheduler] Failed to list dirty users: %v", err)
		return
	}

	for _, userID := range users {
		days, err := s.samples.DirtyDays(ctx, userID, maxCatchUpDays)
		if err != nil {
			log.Printf("[Scheduler] Failed to list dirty days of %s: %v", userID, err)
			continue
		}
		for _, date := range days {
			if ctx.Err() != nil {
				return
			}
			_, err := s.reprocess.ReprocessDay(ctx, userID, date)
			switch {
			case errors.Is(err, models.ErrReprocessInProgress):
				log.Printf("[Scheduler] Skipping %s/%s: reprocess in progress", userID, date)
			case err != nil:
				log.Printf("[Scheduler] Reprocess %s/%s failed: %v", userID, date, err)
			}
		}
	}
}
