package kbc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultAnthropicModel       = "claude-3-5-sonnet-20241022"
	DefaultAnthropicMaxTokens   = 2500
	DefaultAnthropicTemperature = 0.7
	DefaultAnthropicMaxRetries  = 2
)

type AppConfig struct {
	Mode      string
	ApiPort   string
	LogLevel  string
	Anthropic struct {
		ApiKey      string
		Model       string
		MaxTokens   int
		Temperature float64
		MaxRetries  int
		BaseURL     string
	}
	FlowConfig struct {
		WarnOnPhaseCycles   bool
		TruncationSignature []string
	}
	RateLimitConfig struct {
		Generations   int
		WindowSeconds int
	}
	RedisConfig struct {
		Host     string
		Port     string
		Password string
		DB       int
	}
	NatsConfig struct {
		URL           string
		SubjectPrefix string
	}
}

var config AppConfig

// InitConfig loads the environment (and envfile when present), then builds the
// global logger and the optional Redis client.
func InitConfig(envfile string) {
	if err := godotenv.Load(envfile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading %s file: %s", envfile, err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	config = cfg

	Logger = initLogger(config.LogLevel)
	if config.RedisConfig.Host != "" {
		Redis = connectToRedis(config.RedisConfig.Host, config.RedisConfig.Port, config.RedisConfig.Password, config.RedisConfig.DB)
	}
}

// LoadConfig reads the application configuration from the process environment.
func LoadConfig() (AppConfig, error) {
	var cfg AppConfig
	cfg.Mode = GetEnv("RUN_MODE", "prod")
	cfg.ApiPort = GetEnv("API_PORT", ":8080")
	cfg.LogLevel = GetEnv("LOG_LEVEL", "info")

	cfg.Anthropic.ApiKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	cfg.Anthropic.Model = GetEnv("ANTHROPIC_MODEL", DefaultAnthropicModel)
	cfg.Anthropic.MaxTokens = getIntEnvOrDefault("ANTHROPIC_MAX_TOKENS", DefaultAnthropicMaxTokens)
	cfg.Anthropic.MaxRetries = getIntEnvOrDefault("ANTHROPIC_MAX_RETRIES", DefaultAnthropicMaxRetries)
	cfg.Anthropic.BaseURL = os.Getenv("ANTHROPIC_BASE_URL")
	temperature, err := getFloatEnvOrDefault("ANTHROPIC_TEMPERATURE", DefaultAnthropicTemperature)
	if err != nil {
		return cfg, err
	}
	if temperature < 0 || temperature > 1 {
		return cfg, fmt.Errorf("ANTHROPIC_TEMPERATURE must be within [0,1], got %v", temperature)
	}
	cfg.Anthropic.Temperature = temperature

	cfg.FlowConfig.WarnOnPhaseCycles = getBoolEnvOrDefault("FLOW_WARN_ON_PHASE_CYCLES", false)
	cfg.FlowConfig.TruncationSignature = getListEnvOrDefault("FLOW_TRUNCATION_SIGNATURES", []string{"keboola.wr-google-bigquery-v"})

	cfg.RateLimitConfig.Generations = getIntEnvOrDefault("GENERATION_RATE_LIMIT", 0)
	cfg.RateLimitConfig.WindowSeconds = getIntEnvOrDefault("GENERATION_RATE_WINDOW_SECONDS", 60)

	cfg.RedisConfig.Host = os.Getenv("REDIS_HOST")
	cfg.RedisConfig.Port = GetEnv("REDIS_PORT", "6379")
	cfg.RedisConfig.Password = os.Getenv("REDIS_PASSWORD")
	cfg.RedisConfig.DB = getIntEnvOrDefault("REDIS_DB", 0)

	cfg.NatsConfig.URL = os.Getenv("NATS_URL")
	cfg.NatsConfig.SubjectPrefix = GetEnv("NATS_SUBJECT_PREFIX", "kbc")

	return cfg, nil
}

func GetConfig() AppConfig {
	return config
}

func GetEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

func getFloatEnvOrDefault(key string, defaultValue float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return value, nil
}

func getBoolEnvOrDefault(key string, defaultValue bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

func getListEnvOrDefault(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func initLogger(level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
		NoColor:    false,
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("  %s  ", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s=", i)
		},
		FormatFieldValue: func(i interface{}) string {
			return fmt.Sprintf("%s", i)
		},
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(output).Level(lvl).With().Timestamp().Caller().Logger()
}

func connectToRedis(host string, port string, password string, db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}

	return client
}
