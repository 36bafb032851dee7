package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the rulebot service
type Config struct {
	Data   DataConfig
	Query  QueryConfig
	Server ServerConfig
	LLM    LLMConfig
}

type LLMConfig struct {
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
}

// DataConfig locates decks, parser settings and log outputs
type DataConfig struct {
	DeckPath         string
	ParserConfigPath string
	InvalidLogPath   string
	QueryLogPath     string
}

// QueryConfig holds retrieval defaults
type QueryConfig struct {
	Algorithm string
	TopK      int
	Warmup    int
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Throttle     ThrottleConfig
}

// ThrottleConfig controls per-client request pacing on the HTTP API.
// A zero RequestsPerSecond disables throttling.
type ThrottleConfig struct {
	RequestsPerSecond int
	Burst             int
	MaxConcurrency    int
	ClientExpiry      time.Duration
	CleanupInterval   time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Data: DataConfig{
			DeckPath:         GetStringEnv("RULEBOT_DATA_PATH", "Data/Decks"),
			ParserConfigPath: GetStringEnv("RULEBOT_PARSER_CONFIG", "Data/Configs/Parser.json"),
			InvalidLogPath:   GetStringEnv("RULEBOT_INVALID_LOG", "Logs/errors-go.log"),
			QueryLogPath:     GetStringEnv("RULEBOT_QUERY_LOG", ""),
		},
		Query: QueryConfig{
			Algorithm: GetStringEnv("RULEBOT_ALGORITHM", "keyword"),
			TopK:      GetIntEnv("RULEBOT_TOP_K", 1),
			Warmup:    GetIntEnv("RULEBOT_WARMUP", 0),
		},
		Server: ServerConfig{
			Addr:         GetStringEnv("SERVER_ADDR", ":8080"),
			ReadTimeout:  GetDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: GetDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			Throttle: ThrottleConfig{
				RequestsPerSecond: GetIntEnv("API_RATE_LIMIT", 10),
				Burst:             GetIntEnv("API_RATE_BURST", 20),
				MaxConcurrency:    GetIntEnv("API_CLIENT_CONCURRENCY", 4),
				ClientExpiry:      GetDurationEnv("API_CLIENT_EXPIRY", 10*time.Minute),
				CleanupInterval:   GetDurationEnv("API_CLEANUP_INTERVAL", time.Minute),
			},
		},
		LLM: LLMConfig{
			Provider: GetStringEnv("LLM_PROVIDER", "none"),
			BaseURL:  GetStringEnv("LLM_BASE_URL", ""),
			Model:    GetStringEnv("LLM_MODEL", "qwen3:1.7b"),
			APIKey:   GetStringEnv("LLM_API_KEY", ""),
		},
	}
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
