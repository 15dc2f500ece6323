// Package config reads server settings from the environment, after loading an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	HTTPAddr             string
	LogLevel             zapcore.Level
	LogFormat            string
	DatabaseURL          string
	DisposeFinishedRooms bool
	ClientRate           float64
	ClientBurst          int
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
}

func Default() Config {
	return Config{
		HTTPAddr:             ":8080",
		LogLevel:             zapcore.InfoLevel,
		LogFormat:            "json",
		DisposeFinishedRooms: true,
		ClientRate:           10,
		ClientBurst:          20,
		ReadTimeout:          60 * time.Second,
		WriteTimeout:         3 * time.Second,
	}
}

// Load reads files (".env" when none are given) if they exist, then the
// environment. Variables already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, reporting every invalid variable.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	var errs error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	parse := func(key string, fn func(string) error) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		if err := fn(v); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("config: %s=%q: %w", key, v, err))
		}
	}

	str("HTTP_ADDR", &c.HTTPAddr)
	str("DATABASE_URL", &c.DatabaseURL)
	parse("LOG_LEVEL", func(v string) error { return c.LogLevel.UnmarshalText([]byte(v)) })
	parse("LOG_FORMAT", func(v string) error {
		if v != "json" && v != "console" {
			return errors.New("want json or console")
		}
		c.LogFormat = v
		return nil
	})
	parse("DISPOSE_FINISHED_ROOMS", func(v string) (err error) {
		c.DisposeFinishedRooms, err = strconv.ParseBool(v)
		return err
	})
	parse("CLIENT_RATE", func(v string) error {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		if r <= 0 {
			return errors.New("must be positive")
		}
		c.ClientRate = r
		return nil
	})
	parse("CLIENT_BURST", func(v string) error {
		b, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		if b < 1 {
			return errors.New("must be at least 1")
		}
		c.ClientBurst = b
		return nil
	})
	parse("READ_TIMEOUT", durationInto(&c.ReadTimeout))
	parse("WRITE_TIMEOUT", durationInto(&c.WriteTimeout))

	if errs != nil {
		return Config{}, errs
	}
	return c, nil
}

func durationInto(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		if d <= 0 {
			return errors.New("must be positive")
		}
		*dst = d
		return nil
	}
}

// Logger builds the process logger for c.
func (c Config) Logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(c.LogLevel)
	return zc.Build()
}
