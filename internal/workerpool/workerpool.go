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
	stderrors "errors"
	"runtime"
	"sync"

	"github.com/Workiva/go-datastructures/queue"
	"go.uber.org/atomic"
)

// ErrPoolStopped is returned when submitting work to a stopped pool
var ErrPoolStopped = stderrors.New("worker pool is stopped")

// WorkerPool runs submitted tasks on a fixed set of goroutines.
//
// Tasks are pulled from a shared FIFO run queue. A task never runs on two
// workers at once, but nothing orders tasks across workers: callers that need
// ordering must serialize on their side.
type WorkerPool struct {
	size         int
	runQueue     *queue.Queue
	panicHandler func(any)

	started *atomic.Bool
	stopped *atomic.Bool
	running *atomic.Int64
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// New creates a WorkerPool. The default size is the number of CPUs.
func New(opts ...Option) *WorkerPool {
	pool := &WorkerPool{
		size:         runtime.NumCPU(),
		runQueue:     queue.New(1024),
		panicHandler: func(any) {},
		started:      atomic.NewBool(false),
		stopped:      atomic.NewBool(false),
		running:      atomic.NewInt64(0),
	}

	for _, opt := range opts {
		opt.Apply(pool)
	}
	return pool
}

// Start spawns the workers. Calling Start more than once has no effect.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped.Load() || !p.started.CompareAndSwap(false, true) {
		return
	}

	p.wg.Add(p.size)
	for range p.size {
		go p.work()
	}
}

// SubmitWork queues a task for execution. Tasks submitted before Start run
// once the pool starts.
func (p *WorkerPool) SubmitWork(task func()) error {
	if task == nil {
		return nil
	}

	if p.stopped.Load() {
		return ErrPoolStopped
	}

	if err := p.runQueue.Put(task); err != nil {
		return ErrPoolStopped
	}
	return nil
}

// Stop releases the workers and waits for the tasks in flight to return.
// Queued tasks that did not start are dropped. Stop is idempotent.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.stopped.CompareAndSwap(false, true) {
		return
	}

	p.runQueue.Dispose()
	if p.started.Load() {
		p.wg.Wait()
	}
}

// Size returns the number of workers
func (p *WorkerPool) Size() int {
	return p.size
}

// Pending returns the number of queued tasks
func (p *WorkerPool) Pending() int64 {
	return p.runQueue.Len()
}

// Running returns the number of tasks being executed
func (p *WorkerPool) Running() int64 {
	return p.running.Load()
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for {
		items, err := p.runQueue.Get(1)
		if err != nil {
			return
		}

		for _, item := range items {
			if task, ok := item.(func()); ok {
				p.run(task)
			}
		}
	}
}

func (p *WorkerPool) run(task func()) {
	p.running.Inc()
	defer func() {
		p.running.Dec()
		if r := recover(); r != nil {
			p.panicHandler(r)
		}
	}()
	task()
}
