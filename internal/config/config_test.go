package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/quiz")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30, cfg.Quiz.QuestionSeconds)
	assert.Equal(t, time.Second, cfg.Quiz.TickInterval)
	assert.Equal(t, 10*time.Minute, cfg.Redis.QuestionTTL)
	assert.Equal(t, 10, cfg.Leaderboard.PageSize)
	assert.True(t, cfg.DB.SeedDefault)

	dsn, err := cfg.DB.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/quiz", dsn)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrMissingEnvironmentVariables)
}

func TestLoad_MissingRedisAddr(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/quiz")
	t.Setenv("REDIS_ADDR", "")

	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrMissingEnvironmentVariables)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/quiz")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("APP_ENV", "production")
	t.Setenv("QUIZ_QUESTION_SECONDS", "15")
	t.Setenv("SERVER_ADDR", ":9090")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 15, cfg.Quiz.QuestionSeconds)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/quiz")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	dir := t.TempDir()
	yaml := "quiz:\n  question_seconds: 45\n  tick_interval: 500ms\nleaderboard:\n  page_size: 25\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Quiz.QuestionSeconds)
	assert.Equal(t, 500*time.Millisecond, cfg.Quiz.TickInterval)
	assert.Equal(t, 25, cfg.Leaderboard.PageSize)
}

func TestLoad_RejectsNonPositiveQuestionTime(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/quiz")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("QUIZ_QUESTION_SECONDS", "0")

	_, err := Load(t.TempDir())
	assert.Error(t, err)
}
