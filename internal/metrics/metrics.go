// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package metrics exposes icmark's OpenTelemetry counters.
//
// Instruments come from the global meter provider, which is a no-op until
// the host process installs a real one.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/gogpu/icmark/internal/metrics"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Recorder counts renders, exports and format conversions.
// A nil *Recorder records nothing.
type Recorder struct {
	renders     metric.Int64Counter
	exports     metric.Int64Counter
	conversions metric.Int64Counter
}

// New creates the counters on m. A nil m uses the global provider.
func New(m metric.Meter) (*Recorder, error) {
	if m == nil {
		m = meter()
	}
	r := &Recorder{}
	var err error

	r.renders, err = m.Int64Counter(
		"icmark.renders",
		metric.WithDescription("Composites rendered"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating renders counter: %w", err)
	}

	r.exports, err = m.Int64Counter(
		"icmark.exports",
		metric.WithDescription("Artifacts encoded for download"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating exports counter: %w", err)
	}

	r.conversions, err = m.Int64Counter(
		"icmark.conversions",
		metric.WithDescription("Photo container conversions attempted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating conversions counter: %w", err)
	}
	return r, nil
}

// Rendered counts one render of side.
func (r *Recorder) Rendered(ctx context.Context, side string) {
	if r == nil {
		return
	}
	r.renders.Add(ctx, 1, metric.WithAttributes(attribute.String("side", side)))
}

// Exported counts one encoded artifact.
func (r *Recorder) Exported(ctx context.Context, artifact string) {
	if r == nil {
		return
	}
	r.exports.Add(ctx, 1, metric.WithAttributes(attribute.String("artifact", artifact)))
}

// Converted counts one conversion attempt and its outcome.
func (r *Recorder) Converted(ctx context.Context, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	r.conversions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
