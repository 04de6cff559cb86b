// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"fmt"

	"github.com/gogpu/icmark"
	"github.com/gogpu/icmark/ingest"
	"github.com/gogpu/icmark/internal/config"
	"github.com/gogpu/icmark/internal/logger"
	"github.com/gogpu/icmark/internal/metrics"
	"github.com/gogpu/icmark/session"
	"github.com/gogpu/icmark/typeset"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string

	// cfg and log are set by the root PersistentPreRunE.
	cfg *config.Config
	log *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "icmark",
	Short: "Mark identity card photos as copies",
	Long: `icmark draws two strike lines and a label across photos of an
identity card, so a copy handed to a third party is visibly restricted.

The mark can be rotated, resized and dragged; the front and back are
exported separately or stacked into one image.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.icmark.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("font", "", "TrueType/OpenType font for the label (default built-in)")

	_ = viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag(config.KeyFontPath, rootCmd.PersistentFlags().Lookup("font"))
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}

	log, err = logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	icmark.SetLogger(logger.Slog(log))

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("using config file", zap.String("path", used))
	}
	return nil
}

// engine bundles what every workspace shares.
type engine struct {
	typesetter *typeset.Typesetter
	recorder   *metrics.Recorder
	converter  ingest.Converter
	maxUpload  int64
}

func newEngine(cfg *config.Config) (*engine, error) {
	e := &engine{typesetter: typeset.Default(), maxUpload: cfg.Server.MaxUpload}
	if cfg.Font.Path != "" {
		t, err := typeset.FromFile(cfg.Font.Path)
		if err != nil {
			return nil, fmt.Errorf("load font: %w", err)
		}
		e.typesetter = t
	}

	conv, err := ingest.ParseCommand(cfg.Ingest.HEIFCommand)
	if err != nil {
		return nil, err
	}
	e.converter = conv

	e.recorder, err = metrics.New(nil)
	if err != nil {
		return nil, err
	}
	log.Debug("engine ready",
		zap.String("font", e.typesetter.Name()),
		zap.String("heif", conv.Path))
	return e, nil
}

// workspace returns a new workspace wired to the shared engine.
func (e *engine) workspace(seed string) *session.Workspace {
	adapter := ingest.NewAdapter(e.converter)
	adapter.MaxBytes = e.maxUpload
	adapter.OnConvert = e.recorder.Converted
	return session.New(seed,
		session.WithAdapter(adapter),
		session.WithTypesetter(e.typesetter),
		session.WithObserver(e.recorder))
}

func (e *engine) close() {
	if e.typesetter != typeset.Default() {
		if err := e.typesetter.Close(); err != nil {
			log.Debug("close font", zap.Error(err))
		}
	}
}

var _ session.Observer = (*metrics.Recorder)(nil)

// contextOr returns cmd's context, or a background one.
func contextOr(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
