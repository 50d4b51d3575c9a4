// Package config loads process configuration from environment variables.
// Every Lambda and CLI reads the same variables so a thumbnail behaves the
// same wherever it is produced.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fpang/thumbnailer/internal/fetch"
	"github.com/fpang/thumbnailer/internal/thumbnail"
)

// Environment variable names.
const (
	EnvBucket        = "THUMBNAIL_BUCKET"
	EnvDefaultSize   = "THUMBNAIL_DEFAULT_SIZE"
	EnvDefaultFormat = "THUMBNAIL_DEFAULT_FORMAT"
	EnvRatio         = "THUMBNAIL_RATIO"
	EnvOnNoShrink    = "THUMBNAIL_ON_NO_SHRINK"
	EnvAutoOrient    = "THUMBNAIL_AUTO_ORIENT"
	EnvJPEGQuality   = "THUMBNAIL_JPEG_QUALITY"
	EnvFetchTimeout  = "THUMBNAIL_FETCH_TIMEOUT"
	EnvMaxBytes      = "THUMBNAIL_MAX_BYTES"
	EnvOriginVerify  = "ORIGIN_VERIFY_SECRET"
)

// DefaultSize is the thumbnail size used when none is requested.
// 400px balances file size (~30KB) with UI display quality.
const DefaultSize = 400

// Config is the resolved process configuration.
type Config struct {
	Bucket        string
	DefaultSize   int
	DefaultFormat thumbnail.Format
	Ratio         thumbnail.Ratio
	OnNoShrink    thumbnail.NoShrinkPolicy
	AutoOrient    bool
	JPEGQuality   int
	FetchTimeout  time.Duration
	MaxBytes      int64

	// OriginVerifySecret guards the HTTP API when set.
	OriginVerifySecret string
}

// Load reads the configuration from the environment, applying defaults for
// unset variables. Malformed values are errors, not silently defaulted.
func Load() (Config, error) {
	cfg := Config{
		Bucket:             os.Getenv(EnvBucket),
		DefaultSize:        DefaultSize,
		DefaultFormat:      thumbnail.FormatJpeg,
		AutoOrient:         true,
		JPEGQuality:        thumbnail.DefaultJPEGQuality,
		FetchTimeout:       fetch.DefaultTimeout,
		MaxBytes:           fetch.DefaultMaxBytes,
		OriginVerifySecret: os.Getenv(EnvOriginVerify),
	}

	var err error
	if v := os.Getenv(EnvDefaultSize); v != "" {
		if cfg.DefaultSize, err = strconv.Atoi(v); err != nil || cfg.DefaultSize <= 0 {
			return Config{}, fmt.Errorf("%s must be a positive integer, got %q", EnvDefaultSize, v)
		}
	}
	if v := os.Getenv(EnvDefaultFormat); v != "" {
		if cfg.DefaultFormat, err = thumbnail.ParseFormat(v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvDefaultFormat, err)
		}
	}
	if cfg.Ratio, err = thumbnail.ParseRatio(os.Getenv(EnvRatio)); err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvRatio, err)
	}
	if cfg.OnNoShrink, err = thumbnail.ParseNoShrinkPolicy(os.Getenv(EnvOnNoShrink)); err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvOnNoShrink, err)
	}
	if v := os.Getenv(EnvAutoOrient); v != "" {
		if cfg.AutoOrient, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("%s must be a boolean, got %q", EnvAutoOrient, v)
		}
	}
	if v := os.Getenv(EnvJPEGQuality); v != "" {
		if cfg.JPEGQuality, err = strconv.Atoi(v); err != nil || cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
			return Config{}, fmt.Errorf("%s must be between 1 and 100, got %q", EnvJPEGQuality, v)
		}
	}
	if v := os.Getenv(EnvFetchTimeout); v != "" {
		if cfg.FetchTimeout, err = time.ParseDuration(v); err != nil || cfg.FetchTimeout <= 0 {
			return Config{}, fmt.Errorf("%s must be a positive duration, got %q", EnvFetchTimeout, v)
		}
	}
	if v := os.Getenv(EnvMaxBytes); v != "" {
		if cfg.MaxBytes, err = strconv.ParseInt(v, 10, 64); err != nil || cfg.MaxBytes <= 0 {
			return Config{}, fmt.Errorf("%s must be a positive integer, got %q", EnvMaxBytes, v)
		}
	}

	return cfg, nil
}

// ThumbnailOptions builds Creator options from the configuration.
func (c Config) ThumbnailOptions(f fetch.Fetcher) thumbnail.Options {
	return thumbnail.Options{
		Ratio:          c.Ratio,
		OnNoShrink:     c.OnNoShrink,
		AutoOrient:     c.AutoOrient,
		Encode:         thumbnail.EncodeOptions{JPEGQuality: c.JPEGQuality},
		Fetcher:        f,
		MaxSourceBytes: c.MaxBytes,
	}
}

// EnvOrDefault returns the value of the named environment variable, or
// defaultVal if the variable is empty or unset.
func EnvOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}
