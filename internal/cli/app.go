package cli

import (
	"context"
	"database/sql"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/jengzang/records-timeline/internal/cache"
	"github.com/jengzang/records-timeline/internal/calendar"
	"github.com/jengzang/records-timeline/internal/config"
	"github.com/jengzang/records-timeline/internal/database"
	"github.com/jengzang/records-timeline/internal/geocode"
	"github.com/jengzang/records-timeline/internal/metrics"
	"github.com/jengzang/records-timeline/internal/service"
)

// app is the wired process shared by every command that touches data
type app struct {
	cfg      *config.Config
	db       *sql.DB
	redis    *redis.Client
	metrics  *metrics.Metrics
	services *service.Services
}

// openApp opens the database, applies migrations and wires services
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if err := database.Init(database.Config{Path: cfg.Database.Path}); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, db: database.GetDB(), metrics: metrics.New()}
	opts := service.Options{
		Thresholds:      cfg.Pipeline,
		Location:        loc,
		CalendarTimeout: cfg.Calendar.Timeout,
		Cache:           cache.NewMemoryCache(cfg.Redis.BlockTTL),
		Guard:           cache.NewLocalGuard(),
		Metrics:         a.metrics,
	}

	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.close()
			return nil, err
		}
		a.redis = client
		opts.Cache = cache.NewRedisCache(client, cfg.Redis.BlockTTL)
		opts.Guard = cache.NewRedisGuard(client, cfg.Redis.LockTTL)
		log.Printf("[App] Using redis at %s for block cache and reprocess lock", cfg.Redis.Addr)
	}
	if cfg.PlaceLookup.URL != "" {
		opts.Lookup = geocode.NewNominatim(cfg.PlaceLookup.URL, cfg.PlaceLookup.UserAgent)
	}
	if cfg.Calendar.URL != "" {
		opts.Calendar = calendar.NewFeedSource(cfg.Calendar.URL)
	}

	a.services = service.New(a.db, opts)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("[App] Failed to close redis: %v", err)
		}
	}
	if err := database.Close(); err != nil {
		log.Printf("[App] Failed to close database: %v", err)
	}
}
