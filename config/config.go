package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Intelligence IntelligenceConfig
	App          AppConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type IntelligenceConfig struct {
	UndoWindowHours  int
	BatchConcurrency int
	RetentionDays    int

	// Cooldown hours by plan tier; rows in intelligence_tier_settings override.
	AdventurerCooldownHours int
	HeroCooldownHours       int
	LegendCooldownHours     int

	GeneratorBaseURL string
	GeneratorRPS     float64
	GeneratorBurst   int
}

type AppConfig struct {
	Environment string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DB_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Intelligence: IntelligenceConfig{
			UndoWindowHours:         getEnvAsInt("INTEL_UNDO_WINDOW_HOURS", 24),
			BatchConcurrency:        getEnvAsInt("INTEL_BATCH_CONCURRENCY", 4),
			RetentionDays:           getEnvAsInt("INTEL_RETENTION_DAYS", 90),
			AdventurerCooldownHours: getEnvAsInt("INTEL_COOLDOWN_ADVENTURER_HOURS", 24),
			HeroCooldownHours:       getEnvAsInt("INTEL_COOLDOWN_HERO_HOURS", 12),
			LegendCooldownHours:     getEnvAsInt("INTEL_COOLDOWN_LEGEND_HOURS", 12),
			GeneratorBaseURL:        getEnv("GENERATOR_BASE_URL", "http://localhost:8099"),
			GeneratorRPS:            getEnvAsFloat("GENERATOR_RPS", 1),
			GeneratorBurst:          getEnvAsInt("GENERATOR_BURST", 2),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.Intelligence.UndoWindowHours <= 0 {
		return fmt.Errorf("INTEL_UNDO_WINDOW_HOURS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
