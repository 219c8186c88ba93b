package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/analysis/blocks"
	"github.com/jengzang/records-timeline/internal/cache"
	"github.com/jengzang/records-timeline/internal/metrics"
	"github.com/jengzang/records-timeline/internal/models"
	"github.com/jengzang/records-timeline/internal/repository"
)

// TimelineService derives a day's location blocks from its stored segments
type TimelineService struct {
	segments *repository.SegmentRepository
	anchors  *repository.AnchorRepository
	cache    cache.BlockCache
	flight   singleflight.Group
	th       analysis.Thresholds
	loc      *time.Location
	metrics  *metrics.Metrics
}

// NewTimelineService creates a new timeline service. m may be nil.
func NewTimelineService(segments *repository.SegmentRepository, anchors *repository.AnchorRepository, blockCache cache.BlockCache, th analysis.Thresholds, loc *time.Location, m *metrics.Metrics) *TimelineService {
	if blockCache == nil {
		blockCache = cache.NewMemoryCache(0)
	}
	return &TimelineService{
		segments: segments,
		anchors:  anchors,
		cache:    blockCache,
		th:       th,
		loc:      loc,
		metrics:  m,
	}
}

// Day parses a date in the user's timezone
func (s *TimelineService) Day(date string) (analysis.Day, error) {
	return analysis.ParseDay(date, s.loc)
}

// GetBlocks returns the blocks covering the whole local day. Concurrent
// reads of the same day and version share one grouping pass.
func (s *TimelineService) GetBlocks(ctx context.Context, userID, date string) ([]models.LocationBlock, error) {
	day, err := s.Day(date)
	if err != nil {
		return nil, err
	}

	version, err := s.segments.Version(ctx, userID, day.Date)
	if err != nil {
		return nil, err
	}
	key := cache.BlockKey{UserID: userID, Date: day.Date, Version: version}
	if bs, ok := s.cache.Get(ctx, key); ok {
		s.observeCache("hit")
		return bs, nil
	}
	s.observeCache("miss")

	flightKey := fmt.Sprintf("%s|%s|%d", userID, day.Date, version)
	ch := s.flight.DoChan(flightKey, func() (interface{}, error) {
		// shared by every waiter, so one caller's cancellation must not end it
		return s.group(context.WithoutCancel(ctx), userID, day)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]models.LocationBlock), nil
	}
}

// InvalidateUser drops every cached day of the user
func (s *TimelineService) InvalidateUser(ctx context.Context, userID string) {
	s.cache.InvalidateUser(ctx, userID)
}

func (s *TimelineService) group(ctx context.Context, userID string, day analysis.Day) ([]models.LocationBlock, error) {
	segs, version, err := s.segments.ListDay(ctx, userID, day.Date)
	if err != nil {
		return nil, err
	}
	for i := range segs {
		segs[i].Start = segs[i].Start.In(day.Start.Location())
		segs[i].End = segs[i].End.In(day.Start.Location())
	}

	anchors, err := s.anchorMap(ctx, userID)
	if err != nil {
		return nil, err
	}

	bs := blocks.Group(day, segs, anchors, s.th)
	if err := blocks.Validate(day, bs, segs); err != nil {
		return nil, fmt.Errorf("failed to group %s: %w", day.Date, err)
	}

	s.cache.Set(ctx, cache.BlockKey{UserID: userID, Date: day.Date, Version: version}, bs)
	return bs, nil
}

func (s *TimelineService) anchorMap(ctx context.Context, userID string) (map[string]models.Anchor, error) {
	list, err := s.anchors.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Anchor, len(list))
	for _, a := range list {
		out[a.ID] = a
	}
	return out, nil
}

func (s *TimelineService) observeCache(result string) {
	if s.metrics != nil {
		s.metrics.BlockCache.WithLabelValues(result).Inc()
	}
}
