package cinject

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables read by LoadConfig and DefaultParamStrategy.
const (
	EnvParamStrategy = "CINJECT_PARAM_STRATEGY" // "reflect" or "explicit"
	EnvLogLevel      = "CINJECT_LOG_LEVEL"      // zap level name; empty disables logging
)

// Config is the environment-driven configuration of a container tree.
type Config struct {
	ParamStrategy ParamStrategy
	LogLevel      string
}

// LoadConfig loads the given .env files (".env" when none are given) into
// the environment and reads the configuration from it. Missing files are
// skipped; malformed ones are an error. Variables already set in the
// environment win over the files.
func LoadConfig(envFiles ...string) (Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}

		if err := godotenv.Load(file); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	return configFromEnv()
}

func configFromEnv() (Config, error) {
	cfg := Config{
		ParamStrategy: ReflectFallback,
		LogLevel:      os.Getenv(EnvLogLevel),
	}

	if v := os.Getenv(EnvParamStrategy); v != "" {
		if err := cfg.ParamStrategy.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvParamStrategy, err)
		}
	}

	if cfg.LogLevel != "" {
		if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
	}

	return cfg, nil
}

// Options converts the configuration into container options.
func (cfg Config) Options() ([]Option, error) {
	opts := []Option{WithParamStrategy(cfg.ParamStrategy)}

	if cfg.LogLevel == "" {
		return opts, nil
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}

	return append(opts, WithLogger(logger)), nil
}

var (
	defaultStrategyOnce sync.Once
	defaultStrategy     ParamStrategy
)

// DefaultParamStrategy returns the strategy used by containers created
// without WithParamStrategy. It is read from CINJECT_PARAM_STRATEGY once per
// process; unset or invalid values select ReflectFallback.
func DefaultParamStrategy() ParamStrategy {
	defaultStrategyOnce.Do(func() {
		defaultStrategy = ReflectFallback
		if cfg, err := configFromEnv(); err == nil {
			defaultStrategy = cfg.ParamStrategy
		}
	})

	return defaultStrategy
}
