package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/analysis/blocks"
	"github.com/jengzang/records-timeline/internal/analysis/movement"
	"github.com/jengzang/records-timeline/internal/analysis/patterns"
	"github.com/jengzang/records-timeline/internal/analysis/places"
	"github.com/jengzang/records-timeline/internal/analysis/segments"
	"github.com/jengzang/records-timeline/internal/cache"
	"github.com/jengzang/records-timeline/internal/database"
	"github.com/jengzang/records-timeline/internal/metrics"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/repository"
)

// Repositories bundles the stores the pipeline writes to
type Repositories struct {
	Samples   *repository.SampleStore
	Archive   *repository.SampleArchive
	Segments  *repository.SegmentRepository
	Anchors   *repository.AnchorRepository
	Patterns  *repository.PatternRepository
	Events    *repository.EventRepository
	Summaries *repository.SummaryRepository
	Runs      *repository.ReprocessRunRepository
	DirtyDays *repository.DirtyDayRepository
}

// NewRepositories creates every repository over db
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Samples:   repository.NewSampleStore(db),
		Archive:   repository.NewSampleArchive(db),
		Segments:  repository.NewSegmentRepository(db),
		Anchors:   repository.NewAnchorRepository(db),
		Patterns:  repository.NewPatternRepository(db),
		Events:    repository.NewEventRepository(db),
		Summaries: repository.NewSummaryRepository(db),
		Runs:      repository.NewReprocessRunRepository(db),
		DirtyDays: repository.NewDirtyDayRepository(db),
	}
}

// ReprocessService rebuilds a user's day from raw samples. It is the only
// path that writes segments.
type ReprocessService struct {
	db       *sql.DB
	repos    *Repositories
	samples  *SampleService
	timeline *TimelineService
	guard    cache.ReprocessGuard
	users    *UserStates
	resolver *places.Resolver
	th       analysis.Thresholds
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewReprocessService creates a new reprocess service. lookup and m may be nil.
func NewReprocessService(db *sql.DB, repos *Repositories, samples *SampleService, timeline *TimelineService, guard cache.ReprocessGuard, users *UserStates, lookup places.PlaceLookup, th analysis.Thresholds, m *metrics.Metrics) *ReprocessService {
	if guard == nil {
		guard = cache.NewLocalGuard()
	}
	if users == nil {
		users = NewUserStates()
	}
	return &ReprocessService{
		db:       db,
		repos:    repos,
		samples:  samples,
		timeline: timeline,
		guard:    guard,
		users:    users,
		resolver: places.NewResolver(lookup, th),
		th:       th,
		metrics:  m,
		now:      time.Now,
	}
}

// ReprocessDay deletes the day's segments and rebuilds them from archived
// samples plus fresh place lookups. Returns models.ErrReprocessInProgress
// when another pass holds the day.
func (s *ReprocessService) ReprocessDay(ctx context.Context, userID, date string) (*models.ReprocessResult, error) {
	day, err := s.timeline.Day(date)
	if err != nil {
		return nil, err
	}

	release, ok, err := s.guard.TryAcquire(ctx, userID, day.Date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrReprocessInProgress
	}
	defer release()

	started := time.Now()
	result := &models.ReprocessResult{Date: day.Date, Errors: []string{}}

	runID, err := s.repos.Runs.Start(ctx, userID, day.Date)
	if err != nil {
		return nil, err
	}

	runErr := s.rebuild(ctx, userID, day, result)

	// record the outcome even when ctx was cancelled mid-pass
	if err := s.repos.Runs.Finish(context.WithoutCancel(ctx), runID, *result, runErr); err != nil {
		log.Printf("[Reprocess] Failed to record run %d: %v", runID, err)
	}
	s.observe(runErr, time.Since(started))

	if runErr != nil {
		return nil, runErr
	}
	log.Printf("[Reprocess] user %s day %s: %d segments, %d lookups, %d warnings",
		userID, day.Date, result.SegmentsCreated, result.PlacesLookedUp, len(result.Errors))
	return result, nil
}

func (s *ReprocessService) rebuild(ctx context.Context, userID string, day analysis.Day, result *models.ReprocessResult) error {
	if _, err := s.samples.Flush(ctx, userID); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// archived samples are still usable
		result.Errors = append(result.Errors, fmt.Sprintf("flush pending samples: %v", err))
	}

	// samples flushed after this read mark the day again
	gen, err := s.repos.DirtyDays.Generation(ctx, userID, day.Date)
	if err != nil {
		return err
	}

	raw, err := s.repos.Archive.Range(ctx, userID, day.Start, day.End)
	if err != nil {
		return err
	}
	for i := range raw {
		raw[i].Timestamp = raw[i].Timestamp.In(day.Start.Location())
	}

	raw, outliers := movement.DropOutliers(raw, s.th)
	if len(outliers) > 0 {
		result.SamplesDropped = len(outliers)
		log.Printf("[Reprocess] user %s day %s: dropped %d outlier samples", userID, day.Date, len(outliers))
	}

	runs := movement.Runs(movement.Windows(raw, s.th), s.th)

	unlock := s.users.Lock(userID)
	defer unlock()

	stored, err := s.repos.Anchors.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	idx := places.NewIndex(userID, s.th.ProximityRadiusM, stored)
	pruned := idx.Prune(s.now(), s.th.HistoryWindow)

	res, err := s.resolver.Resolve(ctx, idx, runs)
	if err != nil {
		return err
	}
	result.PlacesLookedUp = res.LookedUp
	result.Errors = append(result.Errors, res.Warnings...)
	if s.metrics != nil && res.LookedUp > 0 {
		s.metrics.LookupFailures.Add(float64(len(res.Degraded)))
	}

	pruned = withoutTouched(pruned, res.Touched)

	segs := segments.BuildDay(userID, day, runs, res, idx, raw, s.th)

	anchors := make(map[string]models.Anchor, idx.Len())
	for _, a := range idx.Anchors() {
		anchors[a.ID] = a
	}
	dayBlocks := blocks.Group(day, segs, anchors, s.th)
	if err := blocks.Validate(day, dayBlocks, segs); err != nil {
		return err
	}

	pidx := patterns.NewIndex(s.th.BucketMinutes)
	pidx.Observe(day, dayBlocks)
	observations := pidx.Observations(userID, day.Date)

	err = database.Transaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.repos.Segments.ReplaceDayTx(ctx, tx, userID, day.Date, segs); err != nil {
			return err
		}
		if err := s.repos.Anchors.UpsertTx(ctx, tx, res.Touched); err != nil {
			return err
		}
		if err := s.repos.Anchors.DeleteTx(ctx, tx, userID, pruned); err != nil {
			return err
		}
		return s.repos.Patterns.ReplaceDayTx(ctx, tx, userID, day.Date, observations)
	})
	if err != nil {
		return fmt.Errorf("failed to replace day %s: %w", day.Date, err)
	}
	result.SegmentsCreated = len(segs)

	// labels of other days may have changed with the touched anchors
	s.timeline.InvalidateUser(ctx, userID)

	summary := models.DaySummary{
		UserID:      userID,
		Date:        day.Date,
		Text:        SummarizeDay(day.Date, dayBlocks),
		GeneratedAt: s.now(),
	}
	if err := s.repos.Summaries.Upsert(ctx, summary); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("day summary: %v", err))
	} else {
		result.SummariesGenerated = 1
	}

	if gen > 0 {
		if err := s.repos.DirtyDays.Clear(ctx, userID, day.Date, gen); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("clear dirty mark: %v", err))
		}
	}

	if len(pruned) > 0 {
		log.Printf("[Reprocess] Aged out %d anchors for user %s", len(pruned), userID)
	}
	return nil
}

// withoutTouched drops ids the pass recreated at the same spot
func withoutTouched(pruned []string, touched []models.Anchor) []string {
	if len(pruned) == 0 {
		return pruned
	}
	live := make(map[string]bool, len(touched))
	for _, a := range touched {
		live[a.ID] = true
	}
	out := pruned[:0]
	for _, id := range pruned {
		if !live[id] {
			out = append(out, id)
		}
	}
	return out
}

func (s *ReprocessService) observe(err error, took time.Duration) {
	if s.metrics == nil {
		return
	}
	status := models.RunStatusCompleted
	if err != nil {
		status = models.RunStatusFailed
	}
	s.metrics.Reprocesses.WithLabelValues(status).Inc()
	s.metrics.ReprocessTime.Observe(took.Seconds())
}

// Summary returns the recap written by the day's last reprocess
func (s *ReprocessService) Summary(ctx context.Context, userID, date string) (*models.DaySummary, error) {
	day, err := s.timeline.Day(date)
	if err != nil {
		return nil, err
	}
	summary, err := s.repos.Summaries.Get(ctx, userID, day.Date)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, models.ErrNotFound
	}
	return summary, nil
}
