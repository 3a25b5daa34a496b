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

package workerpool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"
)

func TestWorkerPool(t *testing.T) {
	t.Run("With happy path", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		pool := New(WithSize(4))
		require.NotNil(t, pool)
		require.Equal(t, 4, pool.Size())

		pool.Start()

		workCount := 1000
		var wg sync.WaitGroup
		wg.Add(workCount)
		executed := atomic.NewInt64(0)
		for range workCount {
			require.NoError(t, pool.SubmitWork(func() {
				defer wg.Done()
				executed.Inc()
			}))
		}

		wg.Wait()
		assert.EqualValues(t, workCount, executed.Load())

		pool.Stop()
		// already stopped
		pool.Stop()
		require.ErrorIs(t, pool.SubmitWork(func() {}), ErrPoolStopped)
	})
	t.Run("Tasks submitted before start", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		pool := New(WithSize(2))
		done := make(chan struct{})
		require.NoError(t, pool.SubmitWork(func() { close(done) }))
		assert.EqualValues(t, 1, pool.Pending())

		pool.Start()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("task did not run")
		}
		pool.Stop()
	})
	t.Run("Panicking task does not kill the worker", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		recovered := make(chan any, 1)
		pool := New(WithSize(1), WithPanicHandler(func(r any) { recovered <- r }))
		pool.Start()

		require.NoError(t, pool.SubmitWork(func() { panic("boom") }))
		assert.Equal(t, "boom", <-recovered)

		done := make(chan struct{})
		require.NoError(t, pool.SubmitWork(func() { close(done) }))
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker did not survive the panic")
		}
		pool.Stop()
	})
	t.Run("When not started", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		pool := New(WithSize(0))
		require.Positive(t, pool.Size())
		require.False(t, pool.started.Load())
		pool.Stop()
		require.True(t, pool.stopped.Load())
		pool.Start()
		require.False(t, pool.started.Load())
	})
}
