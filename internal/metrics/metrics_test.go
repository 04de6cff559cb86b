// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewWithGlobalProvider(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, r)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		r.Rendered(ctx, "front")
		r.Exported(ctx, "ic-front-crossed.jpg")
		r.Converted(ctx, nil)
		r.Converted(ctx, errors.New("x"))
	})
}

func TestNewWithMeter(t *testing.T) {
	r, err := New(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	assert.NotNil(t, r.renders)
	assert.NotNil(t, r.exports)
	assert.NotNil(t, r.conversions)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	ctx := context.Background()
	assert.NotPanics(t, func() {
		r.Rendered(ctx, "back")
		r.Exported(ctx, "combined")
		r.Converted(ctx, nil)
	})
}
