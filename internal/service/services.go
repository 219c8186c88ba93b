package service

import (
	"database/sql"
	"time"

	"github.com/jengzang/records-timeline/internal/analysis"
	"github.com/jengzang/records-timeline/internal/analysis/places"
	"github.com/jengzang/records-timeline/internal/cache"
	"github.com/jengzang/records-timeline/internal/calendar"
	"github.com/jengzang/records-timeline/internal/ingest"
	"github.com/jengzang/records-timeline/internal/metrics"
)

// Options carries the collaborators and settings services are built with.
// Nil collaborators fall back to local defaults.
type Options struct {
	Thresholds      analysis.Thresholds
	Location        *time.Location
	Lookup          places.PlaceLookup
	Calendar        calendar.Source
	CalendarTimeout time.Duration
	Cache           cache.BlockCache
	Guard           cache.ReprocessGuard
	Metrics         *metrics.Metrics
}

// Services is the wired application layer
type Services struct {
	Repos        *Repositories
	Samples      *SampleService
	Timeline     *TimelineService
	Reprocess    *ReprocessService
	Verification *VerificationService
	Patterns     *PatternService
	Anchors      *AnchorService
}

// New wires every service over db
func New(db *sql.DB, opts Options) *Services {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	repos := NewRepositories(db)
	if opts.Calendar == nil {
		opts.Calendar = calendar.NewStoreSource(repos.Events)
	}
	users := NewUserStates()

	samples := NewSampleService(repos.Samples, repos.Archive, repos.DirtyDays, ingest.NewIngester(repos.Samples, opts.Metrics), opts.Location)
	timeline := NewTimelineService(repos.Segments, repos.Anchors, opts.Cache, opts.Thresholds, opts.Location, opts.Metrics)

	return &Services{
		Repos:        repos,
		Samples:      samples,
		Timeline:     timeline,
		Reprocess:    NewReprocessService(db, repos, samples, timeline, opts.Guard, users, opts.Lookup, opts.Thresholds, opts.Metrics),
		Verification: NewVerificationService(timeline, opts.Calendar, opts.Thresholds, opts.CalendarTimeout),
		Patterns:     NewPatternService(timeline, repos.Patterns, opts.Thresholds),
		Anchors:      NewAnchorService(repos.Anchors, timeline, users),
	}
}
