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
	"runtime"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"

	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/log"
	"github.com/tochemey/esakt/persistence"
	"github.com/tochemey/esakt/supervisor"
	"github.com/tochemey/esakt/value"
)

const (
	idle int32 = iota
	busy
)

// actorRecord is the runtime side of an actor: its behavior, committed
// state, mailboxes and lifecycle. Records are owned by the System registry.
type actorRecord struct {
	id            ID
	persistenceID string
	system        *System
	behavior      Behavior
	reducer       persistence.Reducer
	initial       value.Value
	logger        log.Logger

	mailbox Mailbox
	// sysbox holds runtime requests and termination notices, served first
	sysbox *UnboundedMailbox

	snapshotInterval uint64

	// status is readable without lock. It is only written under mu.
	status *atomic.Int32
	mu     sync.RWMutex
	state  value.Value
	// sequenceNumber is the number of committed events
	sequenceNumber         uint64
	snapshotSequenceNumber uint64
	reason                 error

	// turnMu is held while a message is handled, during a restart and while
	// the record is being stopped
	turnMu     sync.Mutex
	processing *atomic.Int32
	// stopping is set once a stop is requested. No message is dequeued after.
	stopping *atomic.Bool
	// compactionPending is set while a compaction request sits in the sysbox
	compactionPending *atomic.Bool
	stoppedAt         time.Time

	gate   sync.RWMutex
	closed bool

	watchers mapset.Set[ID]
	watching mapset.Set[ID]

	budgetMu sync.Mutex
	restarts []time.Time

	stopOnce sync.Once
}

func newActorRecord(system *System, id ID, behavior Behavior, initial value.Value, config *spawnConfig) *actorRecord {
	mailbox := config.mailbox
	if mailbox == nil {
		capacity := system.mailboxCapacity
		if config.mailboxCapacity > 0 {
			capacity = config.mailboxCapacity
		}

		mailbox = NewUnboundedMailbox()
		if capacity > 0 {
			mailbox = NewBoundedMailbox(capacity)
		}
	}

	snapshotInterval := system.snapshotInterval
	if config.snapshotInterval != nil {
		snapshotInterval = *config.snapshotInterval
	}

	return &actorRecord{
		id:                id,
		persistenceID:     id.String(),
		system:            system,
		behavior:          behavior,
		reducer:           config.reducer,
		initial:           value.Clone(initial),
		logger:            system.logger.With("actor", id.String()),
		mailbox:           mailbox,
		sysbox:            NewUnboundedMailbox(),
		snapshotInterval:  snapshotInterval,
		status:            atomic.NewInt32(int32(Created)),
		state:             value.Clone(initial),
		processing:        atomic.NewInt32(idle),
		stopping:          atomic.NewBool(false),
		compactionPending: atomic.NewBool(false),
		watchers:          mapset.NewSet[ID](),
		watching:          mapset.NewSet[ID](),
	}
}

// Status returns the lifecycle status of the actor
func (r *actorRecord) Status() Status {
	return Status(r.status.Load())
}

// active reports whether the record may dequeue messages
func (r *actorRecord) active() bool {
	return r.Status() == Running && !r.stopping.Load()
}

// transition moves the record to the given status when the move is legal
// and the current status is one of from, if any is given
func (r *actorRecord) transition(to Status, from ...Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(to, from...)
}

func (r *actorRecord) transitionLocked(to Status, from ...Status) bool {
	current := Status(r.status.Load())
	if len(from) > 0 {
		allowed := false
		for _, status := range from {
			if status == current {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if !canTransition(current, to) {
		return false
	}

	r.status.Store(int32(to))
	return true
}

// markRestarting moves the record to Restarting. A record already restarting stays so.
func (r *actorRecord) markRestarting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if Status(r.status.Load()) == Restarting {
		return true
	}
	return r.transitionLocked(Restarting, Failed, Running)
}

// enqueue pushes a message into the record and schedules a turn
func (r *actorRecord) enqueue(rc *ReceiveContext, control bool) error {
	r.gate.RLock()
	if r.closed {
		r.gate.RUnlock()
		return errors.ErrDead
	}

	var err error
	if control {
		err = r.sysbox.Enqueue(rc)
	} else {
		err = r.mailbox.Enqueue(rc)
	}
	r.gate.RUnlock()

	if err != nil {
		if stderrors.Is(err, errors.ErrMailboxDisposed) {
			return errors.ErrDead
		}
		return err
	}

	r.schedule()
	return nil
}

// schedule submits a turn to the worker pool unless one is already pending.
// This is what keeps at most one message in flight per actor.
func (r *actorRecord) schedule() {
	if !r.active() {
		return
	}

	if r.processing.CompareAndSwap(idle, busy) {
		if err := r.system.pool.SubmitWork(r.turn); err != nil {
			r.processing.Store(idle)
		}
	}
}

// turn handles one message then yields the worker
func (r *actorRecord) turn() {
	defer func() {
		r.processing.Store(idle)
		if r.active() && r.pending() {
			r.schedule()
		}
	}()

	r.turnMu.Lock()
	defer r.turnMu.Unlock()

	if !r.active() {
		return
	}

	if rc := r.next(); rc != nil {
		r.safeHandle(rc)
	}
}

// safeHandle handles a message. A panic escaping the handling fails the actor.
func (r *actorRecord) safeHandle(rc *ReceiveContext) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.fail(rc, errors.NewPanicError(fmt.Errorf("%v", recovered)))
		}
	}()
	r.handle(rc)
}

func (r *actorRecord) next() *ReceiveContext {
	if rc := r.sysbox.Dequeue(); rc != nil {
		return rc
	}
	return r.mailbox.Dequeue()
}

func (r *actorRecord) pending() bool {
	return !r.sysbox.IsEmpty() || !r.mailbox.IsEmpty()
}

func (r *actorRecord) handle(rc *ReceiveContext) {
	switch msg := rc.Message().(type) {
	case *appendEvent:
		sequenceNumber, err := r.commit(rc.Context(), nil, []value.Value{msg.payload})
		switch {
		case err == nil:
			rc.respond(sequenceNumber, nil)
		case stderrors.Is(err, errors.ErrJournalIO), stderrors.Is(err, errors.ErrJournalCorruption), isPanic(err):
			r.fail(rc, err)
		default:
			rc.respond(nil, err)
		}
	case *snapshotRequest:
		if r.reducer == nil {
			rc.respond(nil, errors.ErrMissingReducer)
			return
		}
		sequenceNumber, err := r.checkpoint(rc.Context(), r.system.journalPurge)
		rc.respond(sequenceNumber, err)
	case *compactRequest:
		r.compactionPending.Store(false)
		if r.needsCompaction() {
			if _, err := r.checkpoint(rc.Context(), true); err != nil {
				r.logger.Warnf("actor=(%s) compaction failed: %v", r.id, err)
			}
		}
	default:
		r.receive(rc)
	}
}

// receive runs the behavior on a user message and commits its outcome
func (r *actorRecord) receive(rc *ReceiveContext) {
	start := time.Now()

	r.mu.RLock()
	rc.state = value.Clone(r.state)
	rc.sequenceNumber = r.sequenceNumber
	r.mu.RUnlock()
	rc.logger = r.logger

	result, err := r.invoke(rc)
	if err != nil {
		r.fail(rc, errors.NewBehaviorError(r.persistenceID, err))
		return
	}

	if result == nil {
		result = new(Result)
	}

	if _, err := r.commit(rc.Context(), result.State, result.Events); err != nil {
		r.fail(rc, err)
		return
	}

	for _, effect := range rc.effects {
		effect(r.system)
	}
	rc.respond(result.Reply, nil)
	r.system.recordProcessed(start)
}

// invoke calls the behavior and turns a panic into a PanicError
func (r *actorRecord) invoke(rc *ReceiveContext) (result *Result, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = nil
			pc, fn, line, _ := runtime.Caller(2)
			switch cause := recovered.(type) {
			case *errors.PanicError:
				err = cause
			case error:
				err = errors.NewPanicError(fmt.Errorf("%w at %s[%s:%d]", cause, runtime.FuncForPC(pc).Name(), fn, line))
			default:
				err = errors.NewPanicError(fmt.Errorf("%#v at %s[%s:%d]", cause, runtime.FuncForPC(pc).Name(), fn, line))
			}
		}
	}()
	return r.behavior.Receive(rc)
}

// commit folds the events into the state, journals them, then adopts the
// folded state. Nothing is adopted when any step fails.
func (r *actorRecord) commit(ctx context.Context, expected value.Value, events []value.Value) (uint64, error) {
	r.mu.RLock()
	current, sequenceNumber := r.state, r.sequenceNumber
	r.mu.RUnlock()

	if len(events) == 0 {
		if expected == nil {
			return sequenceNumber, nil
		}

		if r.reducer != nil {
			if !value.Equal(expected, current) {
				return 0, errors.NewBehaviorError(r.persistenceID, errors.ErrStateDivergence)
			}
			return sequenceNumber, nil
		}

		if err := value.Validate(expected); err != nil {
			return 0, errors.NewBehaviorError(r.persistenceID, err)
		}

		r.mu.Lock()
		r.state = value.Clone(expected)
		r.mu.Unlock()
		return sequenceNumber, nil
	}

	if r.reducer == nil {
		return 0, errors.NewBehaviorError(r.persistenceID, errors.ErrMissingReducer)
	}

	folded := value.Clone(current)
	journaled := make([]*persistence.Event, 0, len(events))
	for index, payload := range events {
		if err := value.Validate(payload); err != nil {
			return 0, errors.NewBehaviorError(r.persistenceID, err)
		}

		event := persistence.NewEvent(sequenceNumber+uint64(index)+1, value.Clone(payload))
		next, err := persistence.Fold(r.reducer, folded, event)
		if err != nil {
			return 0, errors.NewBehaviorError(r.persistenceID, err)
		}
		folded = next
		journaled = append(journaled, event)
	}

	if err := value.Validate(folded); err != nil {
		return 0, errors.NewBehaviorError(r.persistenceID, err)
	}

	if expected != nil && !value.Equal(expected, folded) {
		return 0, errors.NewBehaviorError(r.persistenceID, errors.ErrStateDivergence)
	}

	if err := r.system.journal.WriteEvents(context.WithoutCancel(ctx), r.persistenceID, journaled...); err != nil {
		return 0, r.journalError("append", err)
	}

	sequenceNumber += uint64(len(journaled))
	r.mu.Lock()
	r.state = folded
	r.sequenceNumber = sequenceNumber
	r.mu.Unlock()

	r.system.recordAppends(len(journaled))
	r.maybeSnapshot(ctx)
	return sequenceNumber, nil
}

func isPanic(err error) bool {
	var panicErr *errors.PanicError
	return stderrors.As(err, &panicErr)
}

func (r *actorRecord) journalError(op string, err error) error {
	if stderrors.Is(err, errors.ErrJournalCorruption) || stderrors.Is(err, errors.ErrJournalIO) {
		return err
	}
	if stderrors.Is(err, errors.ErrNonSerializableValue) {
		return errors.NewBehaviorError(r.persistenceID, err)
	}
	return errors.NewJournalIOError(r.persistenceID, op, err)
}

func (r *actorRecord) maybeSnapshot(ctx context.Context) {
	if r.snapshotInterval == 0 || r.reducer == nil {
		return
	}

	r.mu.RLock()
	due := r.sequenceNumber-r.snapshotSequenceNumber >= r.snapshotInterval
	r.mu.RUnlock()
	if !due {
		return
	}

	if _, err := r.checkpoint(ctx, r.system.journalPurge); err != nil {
		r.logger.Warnf("actor=(%s) snapshot failed: %v", r.id, err)
	}
}

// checkpoint saves the committed state as the actor snapshot
func (r *actorRecord) checkpoint(ctx context.Context, purge bool) (uint64, error) {
	r.mu.RLock()
	state, sequenceNumber := r.state, r.sequenceNumber
	r.mu.RUnlock()

	if err := persistence.Checkpoint(context.WithoutCancel(ctx), r.system.journal, r.system.snapshots, r.persistenceID, state, sequenceNumber, purge); err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.snapshotSequenceNumber = sequenceNumber
	r.mu.Unlock()

	r.logger.Debugf("actor=(%s) snapshot taken at sequence=%d", r.id, sequenceNumber)
	return sequenceNumber, nil
}

// stoppedBefore reports whether the actor stopped before the given time
func (r *actorRecord) stoppedBefore(threshold time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status() == Stopped && !r.stoppedAt.IsZero() && r.stoppedAt.Before(threshold)
}

func (r *actorRecord) needsCompaction() bool {
	if r.reducer == nil || r.Status() != Running {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sequenceNumber > r.snapshotSequenceNumber
}

// recover reloads the state from durable storage. Actors without reducer
// go back to their initial state.
func (r *actorRecord) recover(ctx context.Context) error {
	if r.reducer == nil {
		r.mu.Lock()
		r.state = value.Clone(r.initial)
		r.reason = nil
		r.mu.Unlock()
		return nil
	}

	recovery, err := persistence.Recover(ctx, r.system.journal, r.system.snapshots, r.persistenceID, r.initial, r.reducer)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.state = recovery.State
	r.sequenceNumber = recovery.SequenceNumber
	r.snapshotSequenceNumber = recovery.SnapshotSequenceNumber
	r.reason = nil
	r.mu.Unlock()

	r.logger.Debugf("actor=(%s) recovered at sequence=%d, replayed=%d", r.id, recovery.SequenceNumber, recovery.Replayed)
	return nil
}

// fail answers the failed message, if any, and hands the actor to its supervisor
func (r *actorRecord) fail(rc *ReceiveContext, cause error) bool {
	if rc != nil {
		rc.respond(nil, cause)
	}

	r.mu.Lock()
	if !r.transitionLocked(Failed, Running) {
		r.mu.Unlock()
		return false
	}
	r.reason = cause
	r.mu.Unlock()

	r.logger.Errorf("actor=(%s) failed: %v", r.id, cause)
	r.system.publish(newActorFailed(r.id, cause))
	r.system.superviseAsync(r, cause)
	return true
}

// resume puts a failed actor back to work with its committed state
func (r *actorRecord) resume() {
	r.mu.Lock()
	ok := r.transitionLocked(Running, Failed)
	if ok {
		r.reason = nil
	}
	r.mu.Unlock()

	if ok {
		r.logger.Infof("actor=(%s) resumed", r.id)
		r.schedule()
	}
}

// remainingRestarts returns the restarts left in the supervisor budget
func (r *actorRecord) remainingRestarts(sup *supervisor.Supervisor) int {
	r.budgetMu.Lock()
	defer r.budgetMu.Unlock()

	if within := sup.Within(); within > 0 {
		threshold := time.Now().Add(-within)
		kept := r.restarts[:0]
		for _, at := range r.restarts {
			if at.After(threshold) {
				kept = append(kept, at)
			}
		}
		r.restarts = kept
	}
	return int(sup.MaxRetries()) - len(r.restarts)
}

func (r *actorRecord) consumeRestart() {
	r.budgetMu.Lock()
	r.restarts = append(r.restarts, time.Now())
	r.budgetMu.Unlock()
}

// stop terminates the actor once. Its children are stopped first. A nil
// reason is a graceful stop. Only the call that stops the actor reports an
// error; stopping a stopped actor succeeds.
func (r *actorRecord) stop(ctx context.Context, reason error) error {
	var err error
	r.stopOnce.Do(func() {
		err = r.doStop(ctx, reason)
	})
	return err
}

func (r *actorRecord) doStop(ctx context.Context, reason error) error {
	system := r.system
	r.stopping.Store(true)
	system.tree.seal(r.id)

	var childrenErr error
	if children := system.tree.children(r.id); len(children) > 0 {
		childrenErr = system.stopActors(ctx, children, nil)
	}

	// wait for the in-flight turn or restart
	r.turnMu.Lock()
	r.mu.Lock()
	r.status.Store(int32(Stopped))
	r.reason = reason
	watchers := r.watchers.ToSlice()
	shouldSnapshot := reason == nil &&
		r.reducer != nil &&
		system.terminalSnapshot &&
		r.sequenceNumber > r.snapshotSequenceNumber
	r.mu.Unlock()

	var snapshotErr error
	if shouldSnapshot {
		if _, snapshotErr = r.checkpoint(ctx, system.journalPurge); snapshotErr != nil {
			r.logger.Warnf("actor=(%s) terminal snapshot failed: %v", r.id, snapshotErr)
		}
	}
	r.turnMu.Unlock()

	r.gate.Lock()
	r.closed = true
	r.gate.Unlock()

	dropped := 0
	for rc := r.next(); rc != nil; rc = r.next() {
		if rc.reply != nil {
			rc.reply.deliver(nil, errors.ErrDead)
			continue
		}
		dropped++
	}
	if dropped > 0 {
		r.logger.Debugf("actor=(%s) dropped %d pending message(s)", r.id, dropped)
	}
	r.mailbox.Dispose()
	r.sysbox.Dispose()

	system.tree.remove(r.id)
	for _, watched := range r.watching.ToSlice() {
		if target, ok := system.registry.Load(watched); ok {
			target.watchers.Remove(r.id)
		}
	}

	for _, watcherID := range watchers {
		if watcher, ok := system.registry.Load(watcherID); ok {
			notice := newReceiveContext(ctx, watcherID, r.id, &Terminated{ActorID: r.id, Reason: reason}, nil)
			if err := watcher.enqueue(notice, true); err != nil {
				r.logger.Debugf("actor=(%s) termination notice to watcher=(%s) dropped: %v", r.id, watcherID, err)
			}
		}
	}

	system.publish(newActorStopped(r.id, reason))
	system.liveActors.Dec()

	r.mu.Lock()
	r.state = nil
	r.stoppedAt = time.Now()
	r.mu.Unlock()

	if reason != nil {
		r.logger.Warnf("actor=(%s) stopped: %v", r.id, reason)
	} else {
		r.logger.Debugf("actor=(%s) stopped", r.id)
	}

	return stderrors.Join(childrenErr, snapshotErr)
}
