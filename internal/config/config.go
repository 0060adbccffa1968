// Package config provides configuration management for the companion sync engine.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	SSO      SSOConfig
	ESI      ESIConfig
	Discord  DiscordConfig
	Tasks    TasksConfig
	Market   MarketConfig
	Logging  LoggingConfig
}

// ServerConfig holds status server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// SSOConfig holds EVE SSO credential broker configuration
type SSOConfig struct {
	ClientID  string
	SecretKey string
	TokenURL  string
	UserAgent string
}

// ESIConfig holds remote API client configuration
type ESIConfig struct {
	BaseURL           string
	UserAgent         string
	RequestsPerSecond int
	Burst             int
	RequestTimeout    time.Duration
}

// DiscordConfig holds notification dispatcher configuration
type DiscordConfig struct {
	BotToken string
	BaseURL  string
}

// TasksConfig holds the sync task registry tuning surface.
// Enabled lists task names; Intervals overrides the per-task default
// interval; AllowOverlap opts a task out of the skip-if-still-running guard.
type TasksConfig struct {
	Enabled      []string
	Intervals    map[string]time.Duration
	AllowOverlap map[string]bool
}

// MarketConfig holds market collector configuration
type MarketConfig struct {
	HistoryRegionID   int64
	ContractRegionIDs []int64
	OrderRegionIDs    []int64
	LongOrderDays     int
	SnapshotArchive   bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// DefaultTaskNames lists every registered sync task.
var DefaultTaskNames = []string{
	"skills",
	"blueprints",
	"mining_ledger",
	"contracts",
	"contract_items",
	"market_history",
	"notifications",
	"contract_watch",
	"market_orders",
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8081"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "eve_companion"),
				User:           getEnv("POSTGRES_USER", "companion"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "eve_companion"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		SSO: SSOConfig{
			ClientID:  getEnv("ESI_CLIENT_ID", ""),
			SecretKey: getEnv("ESI_SECRET_KEY", ""),
			TokenURL:  getEnv("ESI_TOKEN_URL", "https://login.eveonline.com/v2/oauth/token"),
			UserAgent: getEnv("ESI_USER_AGENT", "eve-companion"),
		},
		ESI: ESIConfig{
			BaseURL:           getEnv("ESI_BASE_URL", "https://esi.evetech.net/latest"),
			UserAgent:         getEnv("ESI_USER_AGENT", "eve-companion"),
			RequestsPerSecond: getEnvAsInt("ESI_REQUESTS_PER_SECOND", 10),
			Burst:             getEnvAsInt("ESI_BURST", 20),
			RequestTimeout:    getEnvAsDuration("ESI_REQUEST_TIMEOUT", 30*time.Second),
		},
		Discord: DiscordConfig{
			BotToken: getEnv("DISCORD_BOT_TOKEN", ""),
			BaseURL:  getEnv("DISCORD_API_BASE_URL", "https://discord.com/api/v10"),
		},
		Tasks: loadTasksConfig(),
		Market: MarketConfig{
			HistoryRegionID:   int64(getEnvAsInt("MARKET_HISTORY_REGION_ID", 10000002)),
			ContractRegionIDs: getEnvAsInt64List("CONTRACT_REGION_IDS", []int64{10000066}),
			OrderRegionIDs:    getEnvAsInt64List("MARKET_ORDER_REGION_IDS", []int64{10000002}),
			LongOrderDays:     getEnvAsInt("MARKET_LONG_ORDER_DAYS", 90),
			SnapshotArchive:   getEnvAsBool("MARKET_SNAPSHOT_ARCHIVE", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// loadTasksConfig loads the enabled task list and per-task overrides.
// Interval overrides use TASK_<NAME>_INTERVAL, e.g. TASK_SKILLS_INTERVAL=6h;
// overlap opt-ins use TASK_<NAME>_ALLOW_OVERLAP=true.
func loadTasksConfig() TasksConfig {
	enabledRaw := strings.Split(getEnv("ENABLED_TASKS", strings.Join(DefaultTaskNames, ",")), ",")

	enabled := make([]string, 0, len(enabledRaw))
	intervals := make(map[string]time.Duration)
	allowOverlap := make(map[string]bool)
	for _, name := range enabledRaw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		enabled = append(enabled, name)

		envName := strings.ToUpper(name)
		if raw := os.Getenv("TASK_" + envName + "_INTERVAL"); raw != "" {
			if d, err := time.ParseDuration(raw); err == nil && d > 0 {
				intervals[name] = d
			}
		}
		if getEnvAsBool("TASK_"+envName+"_ALLOW_OVERLAP", false) {
			allowOverlap[name] = true
		}
	}

	return TasksConfig{
		Enabled:      enabled,
		Intervals:    intervals,
		AllowOverlap: allowOverlap,
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64List parses a comma-separated list of integers
func getEnvAsInt64List(key string, defaultValue []int64) []int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return defaultValue
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
