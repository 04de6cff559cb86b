// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultHEIFCommand converts at full quality. {in} and {out} are replaced
// with the input and output paths.
const DefaultHEIFCommand = "heif-convert -q 100 {in} {out}"

// Converter turns a photo container into JPEG bytes.
type Converter interface {
	Convert(ctx context.Context, data []byte) ([]byte, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(ctx context.Context, data []byte) ([]byte, error)

// Convert calls f.
func (f ConverterFunc) Convert(ctx context.Context, data []byte) ([]byte, error) {
	return f(ctx, data)
}

// ExecConverter runs an external tool over temporary files.
type ExecConverter struct {
	Path string
	Args []string

	// TempDir holds the work files; empty uses the system temp dir.
	TempDir string
}

// ParseCommand splits a command line such as DefaultHEIFCommand into an
// ExecConverter. Arguments are separated by whitespace.
func ParseCommand(cmdline string) (*ExecConverter, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, errors.New("ingest: empty converter command")
	}
	return &ExecConverter{Path: fields[0], Args: fields[1:]}, nil
}

// Convert implements Converter.
func (c *ExecConverter) Convert(ctx context.Context, data []byte) ([]byte, error) {
	dir, err := os.MkdirTemp(c.TempDir, "icmark-convert-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.heic")
	out := filepath.Join(dir, "out.jpg")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		a = strings.ReplaceAll(a, "{in}", in)
		args[i] = strings.ReplaceAll(a, "{out}", out)
	}

	cmd := exec.CommandContext(ctx, c.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %v: %s", c.Path, err, strings.TrimSpace(stderr.String()))
	}

	jpg, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("%s produced no output: %w", c.Path, err)
	}
	return jpg, nil
}
