package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LANEX_DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 10*time.Minute, cfg.AnswerKeyTTL)
	require.Equal(t, 30*time.Second, cfg.CheckLockTTL)
	require.Equal(t, 8*time.Second, cfg.GradingTimeout)
	require.Equal(t, "quiz.checked", cfg.NATSSubject)
	require.Equal(t, "http://localhost:8080/api/check_test", cfg.GradingURL())
	require.Equal(t, "*", cfg.CORSOrigins)
	require.Zero(t, cfg.PassThreshold)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LANEX_APP_PORT", ":9090")
	t.Setenv("LANEX_GRADING_TIMEOUT_MS", "250")
	t.Setenv("LANEX_GRADING_ENDPOINT", "https://grader.example.com/api/check_test")
	t.Setenv("LANEX_RESULT_PASS_THRESHOLD", "60")
	t.Setenv("LANEX_CHECK_LOCK_TTL", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 250*time.Millisecond, cfg.GradingTimeout)
	require.Equal(t, "https://grader.example.com/api/check_test", cfg.GradingURL())
	require.Equal(t, float64(60), cfg.PassThreshold)
	require.Equal(t, 5*time.Second, cfg.CheckLockTTL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("LANEX_ANSWER_KEY_CACHE_TTL", "soon")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsThresholdOutOfRange(t *testing.T) {
	t.Setenv("LANEX_RESULT_PASS_THRESHOLD", "120")
	_, err := Load()
	require.Error(t, err)
}
