// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads icmark settings.
//
// Precedence: CLI flags > environment (ICMARK_*) > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gogpu/icmark/ingest"
	"github.com/spf13/viper"
)

// Keys, as used in the config file and with viper.BindPFlag.
const (
	KeyLogLevel      = "log.level"
	KeyLogFormat     = "log.format"
	KeyServerAddr    = "server.addr"
	KeySessionTTL    = "server.session_ttl"
	KeyMaxUpload     = "server.max_upload"
	KeyHEIFCommand   = "ingest.heif_command"
	KeyFontPath      = "font.path"
	KeyOutputDir     = "output.dir"
	KeyOpenViewer    = "output.open_viewer"
	EnvPrefix        = "ICMARK"
	DefaultFileName  = ".icmark"
	DefaultAddr      = ":8080"
	DefaultTTL       = 30 * time.Minute
	DefaultMaxUpload = ingest.DefaultMaxBytes
)

// Config holds all icmark settings.
type Config struct {
	Log    LogConfig
	Server ServerConfig
	Ingest IngestConfig
	Font   FontConfig
	Output OutputConfig
}

// LogConfig controls the zap logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string

	// Format is console or json.
	Format string
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Addr string

	// SessionTTL is how long an idle session is kept.
	SessionTTL time.Duration

	// MaxUpload bounds a single image upload in bytes.
	MaxUpload int64
}

// IngestConfig controls upload decoding.
type IngestConfig struct {
	// HEIFCommand converts HEIC/HEIF to JPEG; {in} and {out} are replaced
	// with file paths.
	HEIFCommand string
}

// FontConfig selects the label font. An empty Path uses the built-in face.
type FontConfig struct {
	Path string
}

// OutputConfig controls where rendered artifacts go.
type OutputConfig struct {
	Dir string

	// OpenViewer adds the open-in-viewer fallback to the delivery chain.
	OpenViewer bool
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyServerAddr, DefaultAddr)
	v.SetDefault(KeySessionTTL, DefaultTTL)
	v.SetDefault(KeyMaxUpload, DefaultMaxUpload)
	v.SetDefault(KeyHEIFCommand, ingest.DefaultHEIFCommand)
	v.SetDefault(KeyFontPath, "")
	v.SetDefault(KeyOutputDir, ".")
	v.SetDefault(KeyOpenViewer, false)
}

// Load reads configuration into v and returns it. An empty configFile looks
// for $HOME/.icmark.yaml, which may be absent.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
		Server: ServerConfig{
			Addr:       v.GetString(KeyServerAddr),
			SessionTTL: v.GetDuration(KeySessionTTL),
			MaxUpload:  v.GetInt64(KeyMaxUpload),
		},
		Ingest: IngestConfig{HEIFCommand: v.GetString(KeyHEIFCommand)},
		Font:   FontConfig{Path: v.GetString(KeyFontPath)},
		Output: OutputConfig{
			Dir:        v.GetString(KeyOutputDir),
			OpenViewer: v.GetBool(KeyOpenViewer),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q (want console or json)", c.Log.Format)
	}
	if c.Server.Addr == "" {
		return errors.New("server address must not be empty")
	}
	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.Server.SessionTTL)
	}
	if c.Server.MaxUpload <= 0 {
		return fmt.Errorf("max upload must be positive, got %d", c.Server.MaxUpload)
	}
	if strings.TrimSpace(c.Ingest.HEIFCommand) == "" {
		return errors.New("heif command must not be empty")
	}
	if c.Output.Dir == "" {
		return errors.New("output directory must not be empty")
	}
	return nil
}
