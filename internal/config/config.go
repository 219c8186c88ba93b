package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jengzang/records-timeline/internal/analysis"
)

// Config is the application configuration
type Config struct {
	Server      ServerConfig        `mapstructure:"server"`
	Database    DatabaseConfig      `mapstructure:"database"`
	Redis       RedisConfig         `mapstructure:"redis"`
	PlaceLookup PlaceLookupConfig   `mapstructure:"place_lookup"`
	Calendar    CalendarConfig      `mapstructure:"calendar"`
	Scheduler   SchedulerConfig     `mapstructure:"scheduler"`
	Pipeline    analysis.Thresholds `mapstructure:"pipeline"`
}

// ServerConfig holds HTTP server and auth settings
type ServerConfig struct {
	Port      string `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Timezone  string `mapstructure:"timezone"` // IANA name the user's local day is cut in
	RateLimit int    `mapstructure:"rate_limit"` // requests per minute per client, 0 disables
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig enables the shared block cache and reprocess lock when Addr is set
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	BlockTTL time.Duration `mapstructure:"block_ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// PlaceLookupConfig points at a Nominatim-compatible reverse geocoder
type PlaceLookupConfig struct {
	URL       string `mapstructure:"url"` // empty disables lookups
	UserAgent string `mapstructure:"user_agent"`
}

// CalendarConfig selects the planned-event source
type CalendarConfig struct {
	URL     string        `mapstructure:"url"` // JSON feed; empty reads the planned_events table
	Timeout time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig drives periodic reconciliation
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

// SetDefaults registers every key with its default so env overrides apply
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.jwt_secret", "your-secret-key-change-in-production")
	v.SetDefault("server.timezone", "Local")
	v.SetDefault("server.rate_limit", 120)

	v.SetDefault("database.path", "./data/timeline.db")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.block_ttl", 10*time.Minute)
	v.SetDefault("redis.lock_ttl", 5*time.Minute)

	v.SetDefault("place_lookup.url", "")
	v.SetDefault("place_lookup.user_agent", "records-timeline/1.0")

	v.SetDefault("calendar.url", "")
	v.SetDefault("calendar.timeout", 3*time.Second)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cron", "*/15 * * * *")

	th := analysis.DefaultThresholds()
	defaults := map[string]any{
		"max_accuracy_m":         th.MaxAccuracyM,
		"max_jump_speed_mps":     th.MaxJumpSpeedMps,
		"window_size":            th.WindowSize,
		"max_sample_gap":         th.MaxSampleGap,
		"min_samples":            th.MinSamples,
		"still_speed_mps":        th.StillSpeedMps,
		"speed_floor_mps":        th.SpeedFloorMps,
		"distance_floor_m":       th.DistanceFloorM,
		"min_dwell":              th.MinDwell,
		"proximity_radius_m":     th.ProximityRadiusM,
		"anchor_radius_m":        th.AnchorRadiusM,
		"geohash_precision":      th.GeohashPrecision,
		"history_window":         th.HistoryWindow,
		"lookup_concurrency":     th.LookupConcurrency,
		"lookup_timeout":         th.LookupTimeout,
		"merge_gap":              th.MergeGap,
		"daytime_max_gap":        th.DaytimeMaxGap,
		"overnight_max_gap":      th.OvernightMaxGap,
		"min_sleep_gap":          th.MinSleepGap,
		"sleep_overlap_fraction": th.SleepOverlapFraction,
		"max_carry_distance_m":   th.MaxCarryDistanceM,
		"rest_start_minute":      th.RestStartMinute,
		"rest_end_minute":        th.RestEndMinute,
		"min_coverage":           th.MinCoverage,
		"match_fraction":         th.MatchFraction,
		"bucket_minutes":         th.BucketMinutes,
		"pattern_min_confidence": th.PatternMinConfidence,
		"history_days":           th.HistoryDays,
	}
	for k, val := range defaults {
		v.SetDefault("pipeline."+k, val)
	}
}

// Load reads configuration from .env, an optional config file and
// TIMELINE_* environment variables, in increasing precedence.
func Load(v *viper.Viper, path string) (*Config, error) {
	_ = godotenv.Load(".env")

	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("timeline")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TIMELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Location returns the time zone local days are cut in
func (c *Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" || c.Server.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid server.timezone %q: %w", c.Server.Timezone, err)
	}
	return loc, nil
}
