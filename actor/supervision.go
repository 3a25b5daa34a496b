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
	stderrors "errors"
	"fmt"

	"github.com/flowchartsman/retry"

	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/supervisor"
)

// superviseAsync hands a failed actor to the supervisor of its parent
func (s *System) superviseAsync(record *actorRecord, cause error) {
	s.supervisionMu.Lock()
	if s.stopping {
		s.supervisionMu.Unlock()
		return
	}
	s.supervisions.Add(1)
	s.supervisionMu.Unlock()

	go func() {
		defer s.supervisions.Done()
		s.supervise(record, cause)
	}()
}

// supervise applies the directive of the parent supervisor. The strategy,
// the directive rules and the restart budget all come from the parent.
func (s *System) supervise(record *actorRecord, cause error) {
	parentID, ok := s.tree.parent(record.id)
	if !ok {
		return
	}

	sup := s.tree.supervisor(parentID)
	directive := sup.Decide(cause)
	record.logger.Infof("supervisor directive=(%s) strategy=(%s) for actor=(%s)", directive, sup.Strategy(), record.id)

	switch directive {
	case supervisor.ResumeDirective:
		record.resume()
	case supervisor.StopDirective:
		s.stopScope(record, sup, cause)
	case supervisor.RestartDirective:
		s.restartScope(record, sup, cause)
	case supervisor.EscalateDirective:
		_ = record.stop(s.ctx, cause)
		s.escalate(parentID, record.id, cause)
	}
}

// stopScope stops the failed actor and, depending on the strategy, its siblings
func (s *System) stopScope(record *actorRecord, sup *supervisor.Supervisor, cause error) {
	scope := s.tree.scope(record.id, sup.Strategy())
	if err := s.stopActors(s.ctx, scope, cause); err != nil {
		record.logger.Warnf("failed to stop the supervision scope of actor=(%s): %v", record.id, err)
	}
}

// restartScope restarts the failed actor and, depending on the strategy, its
// siblings, in spawn order. Only the failed actor consumes restart budget.
func (s *System) restartScope(record *actorRecord, sup *supervisor.Supervisor, cause error) {
	scope := s.tree.scope(record.id, sup.Strategy())

	// hold the siblings before restarting anyone
	siblings := make(map[ID]*actorRecord, len(scope))
	for _, id := range scope {
		if id == record.id {
			continue
		}
		if sibling, ok := s.registry.Load(id); ok && sibling.transition(Restarting, Running) {
			siblings[id] = sibling
		}
	}

	for _, id := range scope {
		if id == record.id {
			s.restart(record, sup, cause, true)
			continue
		}
		if sibling, ok := siblings[id]; ok {
			s.restart(sibling, sup, nil, false)
		}
	}
}

// restart reinitializes an actor from durable storage with backoff. Counted
// restarts consume the actor budget; on exhaustion the actor is stopped and
// its parent is notified.
func (s *System) restart(record *actorRecord, sup *supervisor.Supervisor, cause error, counted bool) {
	record.turnMu.Lock()
	if !record.markRestarting() {
		record.turnMu.Unlock()
		return
	}

	tries := int(max(sup.MaxRetries(), 1))
	if counted {
		tries = record.remainingRestarts(sup)
	}

	attempts := 0
	lastErr := cause
	var err error = errors.ErrSupervisionExhausted
	if tries > 0 {
		minBackoff, maxBackoff := sup.Backoff()
		retrier := retry.NewRetrier(tries, minBackoff, maxBackoff)
		err = retrier.RunContext(s.ctx, func(ctx context.Context) error {
			attempts++
			if counted {
				record.consumeRestart()
			}

			if err := record.recover(ctx); err != nil {
				lastErr = err
				record.logger.Warnf("actor=(%s) restart attempt=%d failed: %v", record.id, attempts, err)
				if stderrors.Is(err, errors.ErrJournalCorruption) {
					return retry.Stop(err)
				}
				return err
			}
			return nil
		})
	}

	if err == nil {
		record.transition(Running, Restarting)
		record.turnMu.Unlock()

		record.logger.Infof("actor=(%s) restarted after %d attempt(s)", record.id, attempts)
		s.publish(newActorRestarted(record.id))
		s.recordRestart()
		record.schedule()
		return
	}
	record.turnMu.Unlock()

	switch {
	case stderrors.Is(lastErr, errors.ErrJournalCorruption):
		_ = record.stop(s.ctx, lastErr)
	case s.ctx.Err() != nil:
		// the System is stopping and stops the actor itself
	default:
		parentID, _ := s.tree.parent(record.id)
		exhausted := errors.NewSupervisionExhaustedError(record.persistenceID, attempts, lastErr)
		_ = record.stop(s.ctx, exhausted)
		s.publish(newSupervisionExhausted(record.id, exhausted))
		s.escalate(parentID, record.id, exhausted)
	}
}

// escalate reports the failure of a child to its parent. Failures of the
// top-level actors reach the failure handler.
func (s *System) escalate(parentID, childID ID, cause error) {
	if parentID.IsZero() {
		s.failureHandler(childID, cause)
		return
	}

	parent, ok := s.registry.Load(parentID)
	if !ok || parent.Status() == Stopped {
		s.failureHandler(childID, cause)
		return
	}

	if !parent.fail(nil, fmt.Errorf("child actor=(%s) escalated: %w", childID, cause)) {
		parent.logger.Warnf("actor=(%s) is not running, escalation from child=(%s) ignored: %v", parentID, childID, cause)
	}
}
