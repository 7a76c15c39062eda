package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AnalyticsConfig holds the thresholds and time windows the analytics
// engine evaluates. They are configuration, not constants, so deployments
// can tune the at-risk heuristic without a rebuild.
type AnalyticsConfig struct {
	AttendanceRateMin     int
	AverageScoreMin       int
	MissingSubmissionsMax int
	ActivityWindow        time.Duration
	AttendanceWindow      time.Duration
}

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	JWTSecret         string
	DashboardCacheTTL time.Duration
	ReminderSubject   string
	Analytics         AnalyticsConfig
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ARKA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Arka School API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("dashboard.cache_ttl", "2m")
	v.SetDefault("reminder.subject", "arka.reminders")
	v.SetDefault("analytics.attendance_rate_min", 75)
	v.SetDefault("analytics.average_score_min", 60)
	v.SetDefault("analytics.missing_submissions_max", 2)
	v.SetDefault("analytics.activity_window", "168h")
	v.SetDefault("analytics.attendance_window", "720h")

	ttl, err := parseDuration(v.GetString("dashboard.cache_ttl"), 2*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	activityWindow, err := parseDuration(v.GetString("analytics.activity_window"), 7*24*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("invalid analytics activity window: %w", err)
	}

	attendanceWindow, err := parseDuration(v.GetString("analytics.attendance_window"), 30*24*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("invalid analytics attendance window: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		JWTSecret:         v.GetString("jwt.secret"),
		DashboardCacheTTL: ttl,
		ReminderSubject:   v.GetString("reminder.subject"),
		Analytics: AnalyticsConfig{
			AttendanceRateMin:     v.GetInt("analytics.attendance_rate_min"),
			AverageScoreMin:       v.GetInt("analytics.average_score_min"),
			MissingSubmissionsMax: v.GetInt("analytics.missing_submissions_max"),
			ActivityWindow:        activityWindow,
			AttendanceWindow:      attendanceWindow,
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return fallback, nil
	}

	return parsed, nil
}
