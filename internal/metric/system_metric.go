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

package metric

import "go.opentelemetry.io/otel/metric"

// SystemMetric groups the OpenTelemetry instruments of a System.
//
// Instruments:
//   - esakt.actors.spawned           (Int64Counter)
//   - esakt.messages.processed       (Int64Counter)
//   - esakt.actors.restarts          (Int64Counter)
//   - esakt.journal.appends          (Int64Counter)
//   - esakt.message.duration         (Float64Histogram, unit: ms)
//   - esakt.actors.live              (Int64ObservableGauge)
type SystemMetric struct {
	spawned    metric.Int64Counter
	processed  metric.Int64Counter
	restarts   metric.Int64Counter
	appends    metric.Int64Counter
	duration   metric.Float64Histogram
	liveActors metric.Int64ObservableGauge
}

// NewSystemMetric creates the instruments using the provided Meter.
// It returns an error if any instrument cannot be created.
func NewSystemMetric(meter metric.Meter) (*SystemMetric, error) {
	var instruments SystemMetric
	var err error

	if instruments.spawned, err = meter.Int64Counter(
		"esakt.actors.spawned",
		metric.WithDescription("Total number of actors spawned"),
	); err != nil {
		return nil, err
	}

	if instruments.processed, err = meter.Int64Counter(
		"esakt.messages.processed",
		metric.WithDescription("Total number of messages processed by actors"),
	); err != nil {
		return nil, err
	}

	if instruments.restarts, err = meter.Int64Counter(
		"esakt.actors.restarts",
		metric.WithDescription("Total number of actor restarts"),
	); err != nil {
		return nil, err
	}

	if instruments.appends, err = meter.Int64Counter(
		"esakt.journal.appends",
		metric.WithDescription("Total number of events appended to the journal"),
	); err != nil {
		return nil, err
	}

	if instruments.duration, err = meter.Float64Histogram(
		"esakt.message.duration",
		metric.WithDescription("Time taken to process a message"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if instruments.liveActors, err = meter.Int64ObservableGauge(
		"esakt.actors.live",
		metric.WithDescription("Number of live actors"),
	); err != nil {
		return nil, err
	}

	return &instruments, nil
}

// SpawnedCount returns the counter of spawned actors
func (x *SystemMetric) SpawnedCount() metric.Int64Counter {
	return x.spawned
}

// ProcessedCount returns the counter of processed messages
func (x *SystemMetric) ProcessedCount() metric.Int64Counter {
	return x.processed
}

// RestartCount returns the counter of actor restarts
func (x *SystemMetric) RestartCount() metric.Int64Counter {
	return x.restarts
}

// AppendCount returns the counter of journaled events
func (x *SystemMetric) AppendCount() metric.Int64Counter {
	return x.appends
}

// ProcessingDuration returns the message processing latency histogram
func (x *SystemMetric) ProcessingDuration() metric.Float64Histogram {
	return x.duration
}

// LiveActors returns the observable gauge of live actors.
// Use with Meter.RegisterCallback to observe the current value.
func (x *SystemMetric) LiveActors() metric.Int64ObservableGauge {
	return x.liveActors
}
