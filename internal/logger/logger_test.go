// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"", zapcore.InfoLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
	_, err = New(&Config{Format: "xml"})
	assert.Error(t, err)
}

func TestNewDefault(t *testing.T) {
	l, err := New(nil)
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestSlogBridgeJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&Config{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)

	s := Slog(l)
	s.Debug("hidden")
	s.Info("canvas: rendered", "width", 1500)
	require.NoError(t, l.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "canvas: rendered", entry["msg"])
	assert.EqualValues(t, 1500, entry["width"])
	assert.Equal(t, "info", entry["level"])
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&Config{Level: "debug", Format: "console", Output: &buf})
	require.NoError(t, err)

	Slog(l).Debug("pointer: drag started")
	require.NoError(t, l.Sync())
	assert.Contains(t, buf.String(), "pointer: drag started")
	assert.Contains(t, buf.String(), "DEBUG")
}
