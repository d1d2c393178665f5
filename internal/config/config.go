package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port   string
	DBPath string

	Scheduler SchedulerConfig
	Forecast  ForecastConfig
	Sync      SyncConfig
}

// SchedulerConfig holds cadence specs and run-control knobs per job type.
type SchedulerConfig struct {
	// Cron specs (standard 5-field) keyed by job type
	HealthCheckSpec       string
	WasteDetectionSpec    string
	ProgressTrackingSpec  string
	StrategicAnalysisSpec string

	// Cadence intervals, used to derive reaper staleness cutoffs
	WasteDetectionInterval   time.Duration
	ProgressTrackingInterval time.Duration
	HealthCheckInterval      time.Duration
	StrategicInterval        time.Duration

	// Hard wall-clock timeout per run; zero-valued per-type overrides fall
	// back to the shared default
	RunTimeout              time.Duration
	HealthCheckTimeout      time.Duration
	WasteDetectionTimeout   time.Duration
	ProgressTrackingTimeout time.Duration
	StrategicTimeout        time.Duration

	// Retry policy for waste-detection and progress-tracking runs
	MaxRetries int
	RetryBase  time.Duration
	RetryCap   time.Duration

	// Bounded run ledger: keep at most this many rows per (project, type)
	RunHistoryLimit int
}

// ForecastConfig holds forecasting engine knobs.
type ForecastConfig struct {
	// Minimum history length before the sequence model takes over from
	// linear trend extrapolation
	MinSequencePoints int

	// Monte Carlo draws for confidence interval estimation
	SimulationDraws int

	// Ensemble weights for the cost forecast: CPI, SPI, remaining-scope
	EnsembleWeights [3]float64
}

// SyncConfig holds external PM system connection details.
type SyncConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	PageSize     int
}

// Load reads configuration from the environment, with a .env file applied
// first when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env file")
	}

	runTimeout := envDuration("RUN_TIMEOUT", 5*time.Minute)

	cfg := &Config{
		Port:   envStr("PORT", ":8080"),
		DBPath: envStr("DB_PATH", "./data/sitepulse.db"),
		Scheduler: SchedulerConfig{
			HealthCheckSpec:       envStr("CADENCE_HEALTH_CHECK", "0 6 * * *"),
			WasteDetectionSpec:    envStr("CADENCE_WASTE_DETECTION", "*/30 * * * *"),
			ProgressTrackingSpec:  envStr("CADENCE_PROGRESS_TRACKING", "*/15 * * * *"),
			StrategicAnalysisSpec: envStr("CADENCE_STRATEGIC_ANALYSIS", "0 7 * * 1"),

			WasteDetectionInterval:   envDuration("INTERVAL_WASTE_DETECTION", 30*time.Minute),
			ProgressTrackingInterval: envDuration("INTERVAL_PROGRESS_TRACKING", 15*time.Minute),
			HealthCheckInterval:      envDuration("INTERVAL_HEALTH_CHECK", 24*time.Hour),
			StrategicInterval:        envDuration("INTERVAL_STRATEGIC", 7*24*time.Hour),

			RunTimeout:              runTimeout,
			HealthCheckTimeout:      envDuration("RUN_TIMEOUT_HEALTH_CHECK", runTimeout),
			WasteDetectionTimeout:   envDuration("RUN_TIMEOUT_WASTE_DETECTION", runTimeout),
			ProgressTrackingTimeout: envDuration("RUN_TIMEOUT_PROGRESS_TRACKING", runTimeout),
			StrategicTimeout:        envDuration("RUN_TIMEOUT_STRATEGIC", runTimeout),

			MaxRetries:      envInt("RUN_MAX_RETRIES", 3),
			RetryBase:       envDuration("RUN_RETRY_BASE", 30*time.Second),
			RetryCap:        envDuration("RUN_RETRY_CAP", 10*time.Minute),
			RunHistoryLimit: envInt("RUN_HISTORY_LIMIT", 50),
		},
		Forecast: ForecastConfig{
			MinSequencePoints: envInt("FORECAST_MIN_SEQUENCE_POINTS", 10),
			SimulationDraws:   envInt("FORECAST_SIMULATION_DRAWS", 1000),
			EnsembleWeights:   envWeights("FORECAST_ENSEMBLE_WEIGHTS", [3]float64{0.4, 0.4, 0.2}),
		},
		Sync: SyncConfig{
			BaseURL:      envStr("PM_BASE_URL", ""),
			TokenURL:     envStr("PM_TOKEN_URL", ""),
			ClientID:     envStr("PM_CLIENT_ID", ""),
			ClientSecret: envStr("PM_CLIENT_SECRET", ""),
			PageSize:     envInt("PM_PAGE_SIZE", 200),
		},
	}

	return cfg
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}

// envWeights parses a comma-separated weight triple and normalizes it to
// sum to 1.
func envWeights(key string, fallback [3]float64) [3]float64 {
	v := os.Getenv(key)
	if v == "" {
		return normalizeWeights(fallback)
	}

	parts := strings.Split(v, ",")
	if len(parts) != 3 {
		log.Printf("Warning: %s must have 3 comma-separated values, using defaults", key)
		return normalizeWeights(fallback)
	}

	var w [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || f < 0 {
			log.Printf("Warning: invalid %s=%q, using defaults", key, v)
			return normalizeWeights(fallback)
		}
		w[i] = f
	}
	return normalizeWeights(w)
}

func normalizeWeights(w [3]float64) [3]float64 {
	sum := w[0] + w[1] + w[2]
	if sum == 0 {
		return [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// Interval returns the cadence interval for a job type name, used to derive
// the reaper staleness cutoff (2x the cadence).
func (c *SchedulerConfig) Interval(jobType string) (time.Duration, error) {
	switch jobType {
	case "health-check":
		return c.HealthCheckInterval, nil
	case "waste-detection":
		return c.WasteDetectionInterval, nil
	case "progress-tracking":
		return c.ProgressTrackingInterval, nil
	case "strategic-analysis":
		return c.StrategicInterval, nil
	}
	return 0, fmt.Errorf("unknown job type: %s", jobType)
}

// RunTimeoutFor returns the wall-clock budget for a job type, falling back
// to the shared default when no per-type override is set.
func (c *SchedulerConfig) RunTimeoutFor(jobType string) time.Duration {
	var timeout time.Duration
	switch jobType {
	case "health-check":
		timeout = c.HealthCheckTimeout
	case "waste-detection":
		timeout = c.WasteDetectionTimeout
	case "progress-tracking":
		timeout = c.ProgressTrackingTimeout
	case "strategic-analysis":
		timeout = c.StrategicTimeout
	}
	if timeout <= 0 {
		return c.RunTimeout
	}
	return timeout
}
