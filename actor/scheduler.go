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

	"github.com/reugn/go-quartz/job"
	quartzlogger "github.com/reugn/go-quartz/logger"
	"github.com/reugn/go-quartz/quartz"
)

// startScheduler schedules the periodic compaction and tombstone eviction jobs
func (s *System) startScheduler() error {
	if s.compactionInterval <= 0 && s.tombstoneTTL <= 0 {
		return nil
	}

	// create an instance of quartz scheduler with logger off
	scheduler, err := quartz.NewStdScheduler(quartz.WithLogger(quartzlogger.NewSimpleLogger(nil, quartzlogger.LevelOff)))
	if err != nil {
		return err
	}

	scheduler.Start(s.ctx)
	if s.compactionInterval > 0 {
		compaction := job.NewFunctionJob[int](func(context.Context) (int, error) {
			return s.compact(), nil
		})

		detail := quartz.NewJobDetail(compaction, quartz.NewJobKey(compactionJobKey))
		if err := scheduler.ScheduleJob(detail, quartz.NewSimpleTrigger(s.compactionInterval)); err != nil {
			scheduler.Stop()
			return err
		}
		s.logger.Debugf("compaction scheduled every %s", s.compactionInterval)
	}

	if s.tombstoneTTL > 0 {
		eviction := job.NewFunctionJob[int](func(context.Context) (int, error) {
			return s.evictTombstones(), nil
		})

		detail := quartz.NewJobDetail(eviction, quartz.NewJobKey(tombstoneJobKey))
		if err := scheduler.ScheduleJob(detail, quartz.NewSimpleTrigger(s.tombstoneTTL)); err != nil {
			scheduler.Stop()
			return err
		}
	}

	s.scheduler = scheduler
	return nil
}

// stopScheduler stops the periodic jobs
func (s *System) stopScheduler(ctx context.Context) {
	if s.scheduler == nil {
		return
	}

	_ = s.scheduler.Clear()
	s.scheduler.Stop()
	s.scheduler.Wait(ctx)
	s.scheduler = nil
}

// compact asks every running event-sourced actor whose journal advanced
// since its last snapshot to checkpoint and purge its journal. Each actor
// compacts in its own turn and has at most one compaction request pending.
// It returns the number of requests sent.
func (s *System) compact() int {
	requested := 0
	s.registry.Range(func(id ID, record *actorRecord) bool {
		if !record.needsCompaction() || !record.compactionPending.CompareAndSwap(false, true) {
			return true
		}

		request := newReceiveContext(s.ctx, id, NoID, new(compactRequest), nil)
		if err := record.enqueue(request, true); err != nil {
			record.compactionPending.Store(false)
			return true
		}
		requested++
		return true
	})

	if requested > 0 {
		s.logger.Debugf("compaction requested for %d actor(s)", requested)
	}
	return requested
}

// evictTombstones removes from the registry the actors stopped for longer
// than the tombstone TTL. Once evicted, an actor is reported as not found.
// It returns the number of evicted records.
func (s *System) evictTombstones() int {
	threshold := time.Now().Add(-s.tombstoneTTL)
	expired := func(record *actorRecord) bool {
		return record.stoppedBefore(threshold)
	}

	var candidates []ID
	s.registry.Range(func(id ID, record *actorRecord) bool {
		if expired(record) {
			candidates = append(candidates, id)
		}
		return true
	})

	evicted := 0
	for _, id := range candidates {
		if s.registry.DeleteFunc(id, expired) {
			evicted++
		}
	}

	if evicted > 0 {
		s.logger.Debugf("evicted %d stopped actor(s)", evicted)
	}
	return evicted
}
