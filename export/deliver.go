// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/gogpu/icmark"
)

// ErrNotObservable is returned when a delivered file cannot be found
// afterwards with the expected size.
var ErrNotObservable = errors.New("export: delivered file not observable")

// Deliverer hands an encoded artifact to the user.
type Deliverer interface {
	Deliver(ctx context.Context, name string, data []byte) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, name string, data []byte) error

// Deliver calls f.
func (f DelivererFunc) Deliver(ctx context.Context, name string, data []byte) error {
	return f(ctx, name, data)
}

// DirectWriter writes artifacts straight into Dir.
type DirectWriter struct {
	Dir string
}

func (DirectWriter) String() string { return "direct" }

// Deliver implements Deliverer.
func (d DirectWriter) Deliver(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(d.Dir, name), data, 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", name, err)
	}
	return nil
}

// TempHandoff writes the artifact to a temporary file first, moves it into
// Dir and checks that it landed.
type TempHandoff struct {
	Dir string

	// TempDir holds the intermediate file; empty uses Dir.
	TempDir string
}

func (TempHandoff) String() string { return "handoff" }

// Deliver implements Deliverer.
func (t TempHandoff) Deliver(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmpDir := t.TempDir
	if tmpDir == "" {
		tmpDir = t.Dir
	}
	tmp, err := writeTemp(tmpDir, name, data)
	if err != nil {
		return err
	}

	dst := filepath.Join(t.Dir, name)
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("export: move %s: %w", name, err)
	}
	fi, err := os.Stat(dst)
	if err != nil || fi.Size() != int64(len(data)) {
		return fmt.Errorf("%w: %s", ErrNotObservable, dst)
	}
	return nil
}

// Viewer writes the artifact to a temporary file and opens it with the
// platform's default viewer. The file is left for the viewer to read.
type Viewer struct {
	// TempDir holds the file; empty uses the system temp dir.
	TempDir string

	// Open launches a viewer for path; nil uses OpenWithSystem.
	Open func(ctx context.Context, path string) error
}

func (Viewer) String() string { return "viewer" }

// Deliver implements Deliverer.
func (v Viewer) Deliver(ctx context.Context, name string, data []byte) error {
	path, err := writeTemp(v.TempDir, name, data)
	if err != nil {
		return err
	}
	open := v.Open
	if open == nil {
		open = OpenWithSystem
	}
	if err := open(ctx, path); err != nil {
		return fmt.Errorf("export: open viewer: %w", err)
	}
	return nil
}

// OpenWithSystem opens path with the desktop's default handler.
func OpenWithSystem(ctx context.Context, path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", path)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", path)
	}
	return cmd.Start()
}

func writeTemp(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "icmark-*-"+name)
	if err != nil {
		return "", fmt.Errorf("export: create temp: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("export: write temp: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("export: close temp: %w", err)
	}
	return f.Name(), nil
}

// Chain tries each Deliverer in order until one succeeds.
type Chain []Deliverer

// DefaultChain returns the direct, handoff, viewer fallback sequence for dir.
// The viewer step is left out when openViewer is false.
func DefaultChain(dir string, openViewer bool) Chain {
	c := Chain{DirectWriter{Dir: dir}, TempHandoff{Dir: dir}}
	if openViewer {
		c = append(c, Viewer{})
	}
	return c
}

// Deliver implements Deliverer. It returns the joined failures only when
// every step failed.
func (c Chain) Deliver(ctx context.Context, name string, data []byte) error {
	if out := c.Save(ctx, name, data); !out.Delivered {
		return out.Err
	}
	return nil
}

// Outcome reports how an artifact was delivered.
type Outcome struct {
	Name      string
	Method    string
	Delivered bool
	Err       error
}

// Save runs the chain. Each failed step is logged and the next one is tried;
// the outcome is for reporting only and never needs to be treated as fatal.
func (c Chain) Save(ctx context.Context, name string, data []byte) Outcome {
	log := icmark.Logger()
	var errs []error
	for _, d := range c {
		method := methodName(d)
		err := d.Deliver(ctx, name, data)
		if err == nil {
			log.Info("export: delivered", slog.String("file", name), slog.String("method", method))
			return Outcome{Name: name, Method: method, Delivered: true}
		}
		log.Warn("export: delivery step failed",
			slog.String("file", name), slog.String("method", method), slog.String("err", err.Error()))
		errs = append(errs, err)
	}
	err := errors.Join(errs...)
	if err == nil {
		err = errors.New("export: no delivery method configured")
	}
	log.Error("export: all delivery methods failed", slog.String("file", name))
	return Outcome{Name: name, Err: err}
}

func methodName(d Deliverer) string {
	if s, ok := d.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", d)
}
