/*
 * MIT License
 *
 * Copyright (c) 2022-2025  Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package actor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/tochemey/esakt/internal/metric"
)

// registerMetrics creates the System instruments when metrics are enabled
func (s *System) registerMetrics() error {
	if !s.metricsEnabled {
		return nil
	}

	if s.metricProvider == nil {
		s.metricProvider = metric.NewProvider()
	}

	meter := s.metricProvider.Meter()
	instruments, err := metric.NewSystemMetric(meter)
	if err != nil {
		return err
	}

	observeOptions := []otelmetric.ObserveOption{
		otelmetric.WithAttributes(attribute.String("actor.system", s.name)),
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer otelmetric.Observer) error {
		observer.ObserveInt64(instruments.LiveActors(), s.liveActors.Load(), observeOptions...)
		return nil
	}, instruments.LiveActors())
	if err != nil {
		return err
	}

	s.metrics = instruments
	s.metricRegistration = registration
	return nil
}

func (s *System) unregisterMetrics() error {
	s.metrics = nil
	if s.metricRegistration == nil {
		return nil
	}

	err := s.metricRegistration.Unregister()
	s.metricRegistration = nil
	return err
}

func (s *System) metricAttributes() otelmetric.MeasurementOption {
	return otelmetric.WithAttributes(attribute.String("actor.system", s.name))
}

func (s *System) recordSpawn() {
	if instruments := s.metrics; instruments != nil {
		instruments.SpawnedCount().Add(context.Background(), 1, s.metricAttributes())
	}
}

func (s *System) recordProcessed(start time.Time) {
	if instruments := s.metrics; instruments != nil {
		ctx := context.Background()
		instruments.ProcessedCount().Add(ctx, 1, s.metricAttributes())
		elapsed := float64(time.Since(start)) / float64(time.Millisecond)
		instruments.ProcessingDuration().Record(ctx, elapsed, s.metricAttributes())
	}
}

func (s *System) recordRestart() {
	if instruments := s.metrics; instruments != nil {
		instruments.RestartCount().Add(context.Background(), 1, s.metricAttributes())
	}
}

func (s *System) recordAppends(count int) {
	if instruments := s.metrics; instruments != nil && count > 0 {
		instruments.AppendCount().Add(context.Background(), int64(count), s.metricAttributes())
	}
}
