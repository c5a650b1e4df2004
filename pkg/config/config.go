package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig

	Wellness  WellnessConfig
	Monitor   MonitorConfig
	Realtime  RealtimeConfig
	Analytics AnalyticsConfig
	Reports   ReportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WellnessConfig is the single home for every workload/burnout threshold.
// Components receive these values at construction and carry no copies.
type WellnessConfig struct {
	// Workload bands driving the overwork indicator (percent of policy max).
	OverworkCriticalPct float64
	OverworkHighPct     float64
	OverworkElevatedPct float64

	// A gap under this many minutes between two periods counts as consecutive.
	ConsecutiveWindowMinutes int

	// Weights of the overall stress composite. Expected to sum to 1.
	OverworkWeight    float64
	ConsecutiveWeight float64
	GapWeight         float64
	ImbalanceWeight   float64

	// Preparation minutes per period for subjects that carry none.
	DefaultPrepMinutes int

	// Late-evening detection: classes starting at or after this hour.
	LateEveningHour      int
	LateEveningThreshold int

	// Week-over-week wellness drop that raises a WELLNESS_DECLINE alert.
	WellnessDeclinePoints float64

	// Auto-resolve clearing levels.
	OverworkClearPct   float64
	WellnessClearScore float64

	// Resolved alerts older than this are purged by the daily pass.
	ResolvedRetention time.Duration

	// Trend dead band: average deltas within +/- this many points are "stable".
	TrendDeadBand float64
}

// MonitorConfig drives the three recurring monitoring cadences.
type MonitorConfig struct {
	Enabled          bool
	FrequentInterval time.Duration
	DailyInterval    time.Duration
	WeeklyInterval   time.Duration
}

// RealtimeConfig tunes the websocket hub.
type RealtimeConfig struct {
	SendBufferSize  int
	WriteTimeout    time.Duration
	PongWait        time.Duration
	MaxMessageBytes int64
}

// AnalyticsConfig governs cache behaviour for the read-side aggregates.
type AnalyticsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ReportsConfig configures weekly summary exports.
type ReportsConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	WorkerRetries   int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Wellness = WellnessConfig{
		OverworkCriticalPct:      v.GetFloat64("WELLNESS_OVERWORK_CRITICAL_PCT"),
		OverworkHighPct:          v.GetFloat64("WELLNESS_OVERWORK_HIGH_PCT"),
		OverworkElevatedPct:      v.GetFloat64("WELLNESS_OVERWORK_ELEVATED_PCT"),
		ConsecutiveWindowMinutes: v.GetInt("WELLNESS_CONSECUTIVE_WINDOW_MINUTES"),
		OverworkWeight:           v.GetFloat64("WELLNESS_OVERWORK_WEIGHT"),
		ConsecutiveWeight:        v.GetFloat64("WELLNESS_CONSECUTIVE_WEIGHT"),
		GapWeight:                v.GetFloat64("WELLNESS_GAP_WEIGHT"),
		ImbalanceWeight:          v.GetFloat64("WELLNESS_IMBALANCE_WEIGHT"),
		DefaultPrepMinutes:       v.GetInt("WELLNESS_DEFAULT_PREP_MINUTES"),
		LateEveningHour:          v.GetInt("WELLNESS_LATE_EVENING_HOUR"),
		LateEveningThreshold:     v.GetInt("WELLNESS_LATE_EVENING_THRESHOLD"),
		WellnessDeclinePoints:    v.GetFloat64("WELLNESS_DECLINE_POINTS"),
		OverworkClearPct:         v.GetFloat64("WELLNESS_OVERWORK_CLEAR_PCT"),
		WellnessClearScore:       v.GetFloat64("WELLNESS_CLEAR_SCORE"),
		ResolvedRetention:        parseDuration(v.GetString("WELLNESS_RESOLVED_RETENTION"), 30*24*time.Hour),
		TrendDeadBand:            v.GetFloat64("WELLNESS_TREND_DEAD_BAND"),
	}

	cfg.Monitor = MonitorConfig{
		Enabled:          v.GetBool("ENABLE_MONITOR"),
		FrequentInterval: parseDuration(v.GetString("MONITOR_FREQUENT_INTERVAL"), time.Hour),
		DailyInterval:    parseDuration(v.GetString("MONITOR_DAILY_INTERVAL"), 24*time.Hour),
		WeeklyInterval:   parseDuration(v.GetString("MONITOR_WEEKLY_INTERVAL"), 7*24*time.Hour),
	}

	cfg.Realtime = RealtimeConfig{
		SendBufferSize:  v.GetInt("REALTIME_SEND_BUFFER"),
		WriteTimeout:    parseDuration(v.GetString("REALTIME_WRITE_TIMEOUT"), 10*time.Second),
		PongWait:        parseDuration(v.GetString("REALTIME_PONG_WAIT"), 60*time.Second),
		MaxMessageBytes: v.GetInt64("REALTIME_MAX_MESSAGE_BYTES"),
	}

	cfg.Analytics = AnalyticsConfig{
		CacheEnabled: v.GetBool("ENABLE_ANALYTICS_CACHE"),
		CacheTTL:     parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Reports = ReportsConfig{
		Enabled:         v.GetBool("ENABLE_REPORTS"),
		StorageDir:      v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		WorkerRetries:   v.GetInt("REPORTS_WORKER_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "teacher_wellness")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("WELLNESS_OVERWORK_CRITICAL_PCT", 90.0)
	v.SetDefault("WELLNESS_OVERWORK_HIGH_PCT", 80.0)
	v.SetDefault("WELLNESS_OVERWORK_ELEVATED_PCT", 70.0)
	v.SetDefault("WELLNESS_CONSECUTIVE_WINDOW_MINUTES", 15)
	v.SetDefault("WELLNESS_OVERWORK_WEIGHT", 0.4)
	v.SetDefault("WELLNESS_CONSECUTIVE_WEIGHT", 0.3)
	v.SetDefault("WELLNESS_GAP_WEIGHT", 0.2)
	v.SetDefault("WELLNESS_IMBALANCE_WEIGHT", 0.1)
	v.SetDefault("WELLNESS_DEFAULT_PREP_MINUTES", 15)
	v.SetDefault("WELLNESS_LATE_EVENING_HOUR", 18)
	v.SetDefault("WELLNESS_LATE_EVENING_THRESHOLD", 3)
	v.SetDefault("WELLNESS_DECLINE_POINTS", 15.0)
	v.SetDefault("WELLNESS_OVERWORK_CLEAR_PCT", 80.0)
	v.SetDefault("WELLNESS_CLEAR_SCORE", 60.0)
	v.SetDefault("WELLNESS_RESOLVED_RETENTION", "720h")
	v.SetDefault("WELLNESS_TREND_DEAD_BAND", 3.0)

	v.SetDefault("ENABLE_MONITOR", true)
	v.SetDefault("MONITOR_FREQUENT_INTERVAL", "1h")
	v.SetDefault("MONITOR_DAILY_INTERVAL", "24h")
	v.SetDefault("MONITOR_WEEKLY_INTERVAL", "168h")

	v.SetDefault("REALTIME_SEND_BUFFER", 16)
	v.SetDefault("REALTIME_WRITE_TIMEOUT", "10s")
	v.SetDefault("REALTIME_PONG_WAIT", "60s")
	v.SetDefault("REALTIME_MAX_MESSAGE_BYTES", 1024)

	v.SetDefault("ENABLE_ANALYTICS_CACHE", false)
	v.SetDefault("ANALYTICS_CACHE_TTL", "10m")

	v.SetDefault("ENABLE_REPORTS", true)
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
