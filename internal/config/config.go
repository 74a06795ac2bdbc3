package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env         string            `mapstructure:"env"`         // local, dev, production
	Server      ServerConfig      `mapstructure:"server"`      // HTTP / WebSocket listener
	DB          DB                `mapstructure:"database"`    // PostgreSQL
	Redis       RedisConfig       `mapstructure:"redis"`       // leaderboard and question cache
	Quiz        QuizConfig        `mapstructure:"quiz"`        // session behaviour
	Log         LogConfig         `mapstructure:"log"`         // zap output
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"` // default paging
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Inbound WebSocket actions allowed per second, and burst size.
	ActionRate  float64 `mapstructure:"action_rate"`
	ActionBurst int     `mapstructure:"action_burst"`
}

type DB struct {
	URL     string `mapstructure:"-"`
	Migrate bool   `mapstructure:"migrate"`
	// SeedDefault stores the built-in general knowledge quiz on start-up.
	SeedDefault bool `mapstructure:"seed_default"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"-"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	QuestionTTL time.Duration `mapstructure:"question_ttl"`
}

type QuizConfig struct {
	QuestionSeconds int           `mapstructure:"question_seconds"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// File enables a rotated JSON log next to console output when set.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type LeaderboardConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// DSN returns the database connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

// Load reads configuration from config files and environment variables.
// A .env file in the working directory is loaded first when present.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetDefault("env", "local")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.action_rate", 10)
	v.SetDefault("server.action_burst", 20)
	v.SetDefault("database.migrate", true)
	v.SetDefault("database.seed_default", true)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.question_ttl", "10m")
	v.SetDefault("quiz.question_seconds", 30)
	v.SetDefault("quiz.tick_interval", "1s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("leaderboard.page_size", 10)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("env", "APP_ENV")

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	cfg.DB.URL = v.GetString("database_url")
	if cfg.DB.URL == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL", ErrMissingEnvironmentVariables)
	}
	cfg.Redis.Addr = v.GetString("redis_addr")
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("%w: REDIS_ADDR", ErrMissingEnvironmentVariables)
	}

	if cfg.Quiz.QuestionSeconds <= 0 {
		return nil, fmt.Errorf("quiz.question_seconds must be positive, got %d", cfg.Quiz.QuestionSeconds)
	}
	if cfg.Quiz.TickInterval <= 0 {
		return nil, fmt.Errorf("quiz.tick_interval must be positive, got %s", cfg.Quiz.TickInterval)
	}

	return &cfg, nil
}
