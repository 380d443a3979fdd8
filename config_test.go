package cinject

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv(EnvParamStrategy, "")
		t.Setenv(EnvLogLevel, "")

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		assert.Equal(t, ReflectFallback, cfg.ParamStrategy)
		assert.Empty(t, cfg.LogLevel)
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv(EnvParamStrategy, "explicit")
		t.Setenv(EnvLogLevel, "debug")

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		assert.Equal(t, ExplicitOnly, cfg.ParamStrategy)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("from env file", func(t *testing.T) {
		// Registered so the variables loaded from the file are cleared afterwards.
		t.Setenv(EnvParamStrategy, "")
		t.Setenv(EnvLogLevel, "")
		require.NoError(t, os.Unsetenv(EnvParamStrategy))
		require.NoError(t, os.Unsetenv(EnvLogLevel))

		path := writeEnvFile(t, "CINJECT_PARAM_STRATEGY=explicit-only\nCINJECT_LOG_LEVEL=warn\n")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, ExplicitOnly, cfg.ParamStrategy)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("environment wins over file", func(t *testing.T) {
		t.Setenv(EnvParamStrategy, "reflect")
		t.Setenv(EnvLogLevel, "")

		path := writeEnvFile(t, "CINJECT_PARAM_STRATEGY=explicit\n")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, ReflectFallback, cfg.ParamStrategy)
	})

	t.Run("invalid strategy", func(t *testing.T) {
		t.Setenv(EnvParamStrategy, "sometimes")
		t.Setenv(EnvLogLevel, "")

		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
		assert.ErrorContains(t, err, EnvParamStrategy)
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Setenv(EnvParamStrategy, "")
		t.Setenv(EnvLogLevel, "loud")

		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
		assert.ErrorContains(t, err, EnvLogLevel)
	})
}

func TestConfig_Options(t *testing.T) {
	t.Run("strategy only", func(t *testing.T) {
		opts, err := Config{ParamStrategy: ExplicitOnly}.Options()
		require.NoError(t, err)
		assert.Len(t, opts, 1)

		c := New(opts...)
		assert.Equal(t, ExplicitOnly, c.ParamStrategy())
	})

	t.Run("with logger", func(t *testing.T) {
		opts, err := Config{ParamStrategy: ReflectFallback, LogLevel: "error"}.Options()
		require.NoError(t, err)
		assert.Len(t, opts, 2)

		o := defaultOptions()
		for _, opt := range opts {
			opt.apply(o)
		}
		assert.False(t, o.logger.Core().Enabled(zapcore.DebugLevel), "debug should be disabled")
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := Config{LogLevel: "loud"}.Options()
		assert.Error(t, err)
	})
}

func TestDefaultParamStrategy(t *testing.T) {
	s := DefaultParamStrategy()
	assert.True(t, s.IsValid())
	assert.Equal(t, s, DefaultParamStrategy(), "read once per process")
}
