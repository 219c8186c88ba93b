package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/ingest"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/repository"
)

const flushBatchSize = 500

// SampleService accepts uploads and moves pending samples into the archive.
// Every local day a flush archives into is marked dirty until rebuilt.
type SampleService struct {
	store    *repository.SampleStore
	archive  *repository.SampleArchive
	dirty    *repository.DirtyDayRepository
	ingester *ingest.Ingester
	loc      *time.Location
}

// NewSampleService creates a new sample service. Days are cut in loc.
func NewSampleService(store *repository.SampleStore, archive *repository.SampleArchive, dirty *repository.DirtyDayRepository, ingester *ingest.Ingester, loc *time.Location) *SampleService {
	if loc == nil {
		loc = time.Local
	}
	return &SampleService{store: store, archive: archive, dirty: dirty, ingester: ingester, loc: loc}
}

// Ingest validates and enqueues an uploaded batch
func (s *SampleService) Ingest(ctx context.Context, userID string, records []ingest.Record) (*models.IngestReport, error) {
	report, err := s.ingester.Ingest(ctx, userID, records)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest samples: %w", err)
	}
	return report, nil
}

// Pending returns the number of samples still queued for the user
func (s *SampleService) Pending(ctx context.Context, userID string) (int, error) {
	return s.store.Count(ctx, userID)
}

// Clear discards the user's pending queue. Archived samples are kept.
func (s *SampleService) Clear(ctx context.Context, userID string) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return err
	}
	log.Printf("[Samples] Cleared pending queue for user %s", userID)
	return nil
}

// Flush drains the user's pending queue into the archive and returns the
// number of samples moved. Each batch is archived before it is removed, so
// an interrupted flush only re-archives samples already kept.
func (s *SampleService) Flush(ctx context.Context, userID string) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		batch, err := s.store.Peek(ctx, userID, flushBatchSize)
		if err != nil {
			return total, fmt.Errorf("failed to peek samples: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		if _, err := s.archive.Archive(ctx, batch); err != nil {
			return total, fmt.Errorf("failed to archive samples: %w", err)
		}
		// marked before removal so a crash re-archives and re-marks
		if err := s.dirty.Mark(ctx, userID, s.daysOf(batch)); err != nil {
			return total, err
		}

		keys := make([]string, len(batch))
		for i, smp := range batch {
			keys[i] = smp.Key
		}
		removed, err := s.store.Remove(ctx, userID, keys)
		if err != nil {
			return total, fmt.Errorf("failed to remove flushed samples: %w", err)
		}
		total += removed
	}

	if total > 0 {
		log.Printf("[Samples] Flushed %d samples for user %s", total, userID)
	}
	return total, nil
}

// DirtyDays lists the user's days awaiting a rebuild, newest first and at
// most limit of them
func (s *SampleService) DirtyDays(ctx context.Context, userID string, limit int) ([]string, error) {
	return s.dirty.List(ctx, userID, limit)
}

// DirtyUsers lists users with at least one day awaiting a rebuild
func (s *SampleService) DirtyUsers(ctx context.Context) ([]string, error) {
	return s.dirty.Users(ctx)
}

func (s *SampleService) daysOf(batch []models.RawSample) []string {
	seen := make(map[string]bool)
	var days []string
	for _, smp := range batch {
		d := analysis.DayOf(smp.Timestamp.In(s.loc)).Date
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	return days
}

// PendingUsers lists users with samples waiting to be flushed
func (s *SampleService) PendingUsers(ctx context.Context) ([]string, error) {
	return s.store.Users(ctx)
}
