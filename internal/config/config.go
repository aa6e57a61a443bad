package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Server     ServerConfig
	Simulation SimulationConfig
	JWT        JWTConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// SimulationConfig sizes the simulator and controls its pacing
type SimulationConfig struct {
	CacheTTL       time.Duration
	FeedCapacity   int
	LogCapacity    int
	HistoryLimit   int
	TraceRetention int
	// TimeScale multiplies every simulated delay; 0 runs without waiting
	TimeScale   float64
	Seed        int64
	ProfilePath string
}

type JWTConfig struct {
	Secret string
}

type LogConfig struct {
	Level string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "20002"),
			AllowedOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
		Simulation: SimulationConfig{
			CacheTTL:       getEnvDuration("CACHE_TTL", 5*time.Minute),
			FeedCapacity:   getEnvInt("FEED_CAPACITY", 50),
			LogCapacity:    getEnvInt("LOG_CAPACITY", 100),
			HistoryLimit:   getEnvInt("HISTORY_LIMIT", 1000),
			TraceRetention: getEnvInt("TRACE_RETENTION", 50),
			TimeScale:      getEnvFloat("SIM_TIME_SCALE", 1),
			Seed:           int64(getEnvInt("SIM_SEED", 0)),
			ProfilePath:    getEnv("SIM_PROFILE", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "appsync-sim-secret"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer, using default")
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid number, using default")
		return defaultValue
	}
	return f
}

// getEnvDuration accepts Go durations ("90s") or bare milliseconds ("300000")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid duration, using default")
		return defaultValue
	}
	return d
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
