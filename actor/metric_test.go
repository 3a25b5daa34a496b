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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/tochemey/esakt/internal/metric"
	"github.com/tochemey/esakt/log"
)

type countingCounter struct {
	noop.Int64Counter
	count *atomic.Int64
}

func (c countingCounter) Add(_ context.Context, incr int64, _ ...otelmetric.AddOption) {
	c.count.Add(incr)
}

// countingMeter counts the increments of every Int64Counter it creates
type countingMeter struct {
	noop.Meter
	mu       sync.Mutex
	counters map[string]*atomic.Int64
}

func newCountingMeter() *countingMeter {
	return &countingMeter{counters: make(map[string]*atomic.Int64)}
}

func (m *countingMeter) Int64Counter(name string, _ ...otelmetric.Int64CounterOption) (otelmetric.Int64Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count, ok := m.counters[name]
	if !ok {
		count = atomic.NewInt64(0)
		m.counters[name] = count
	}
	return countingCounter{count: count}, nil
}

func (m *countingMeter) value(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if count, ok := m.counters[name]; ok {
		return count.Load()
	}
	return 0
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("With metrics enabled", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		meter := newCountingMeter()
		system, err := New(WithLogger(log.DiscardLogger), WithWorkerPoolSize(2), WithMetrics())
		require.NoError(t, err)
		system.metricProvider = metric.NewProviderWithMeter(meter)
		require.NoError(t, system.Start(ctx))

		id := spawnAccount(t, system)
		askBalance(t, system, id, &depositCommand{amount: 10})
		askBalance(t, system, id, &depositCommand{amount: 5})

		_, err = system.Ask(ctx, id, new(crashCommand), askTimeout)
		require.Error(t, err)
		require.Eventually(t, func() bool {
			return meter.value("esakt.actors.restarts") == 1
		}, eventuallyWait, eventuallyTick)

		assert.EqualValues(t, 1, meter.value("esakt.actors.spawned"))
		assert.EqualValues(t, 2, meter.value("esakt.messages.processed"))
		assert.EqualValues(t, 2, meter.value("esakt.journal.appends"))
		require.NotNil(t, system.metricRegistration)

		stopTestSystem(t, system)
		assert.Nil(t, system.metrics)
		assert.Nil(t, system.metricRegistration)
	})
	t.Run("With metrics disabled", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		meter := newCountingMeter()
		system, err := New(WithLogger(log.DiscardLogger), WithWorkerPoolSize(2))
		require.NoError(t, err)
		system.metricProvider = metric.NewProviderWithMeter(meter)
		require.NoError(t, system.Start(ctx))

		id := spawnAccount(t, system)
		askBalance(t, system, id, &depositCommand{amount: 10})
		assert.Nil(t, system.metrics)
		assert.Zero(t, meter.value("esakt.actors.spawned"))

		stopTestSystem(t, system)
	})
}
