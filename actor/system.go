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

// Package actor implements the event-sourced actor runtime.
//
// A System owns every actor of a process: the registry, the supervision
// tree, the dispatcher worker pool and the durable stores. Actors are
// addressed by opaque IDs. Each actor handles one message at a time; the
// events its behavior emits are journaled before its new state becomes
// visible, and its state is rebuilt from the snapshot store and the journal
// when it restarts.
package actor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/reugn/go-quartz/quartz"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/internal/errorschain"
	"github.com/tochemey/esakt/internal/eventstream"
	imetric "github.com/tochemey/esakt/internal/metric"
	"github.com/tochemey/esakt/internal/workerpool"
	"github.com/tochemey/esakt/internal/xsync"
	"github.com/tochemey/esakt/log"
	"github.com/tochemey/esakt/persistence"
	"github.com/tochemey/esakt/supervisor"
	"github.com/tochemey/esakt/value"
)

// System is the process-scoped actor runtime.
//
// A System must be started before actors can be spawned. Stop stops every
// actor, leaves first, then flushes and releases the stores.
type System struct {
	name               string
	logger             log.Logger
	journal            persistence.Journal
	snapshots          persistence.SnapshotStore
	poolSize           int
	askTimeout         time.Duration
	mailboxCapacity    int
	snapshotInterval   uint64
	journalPurge       bool
	terminalSnapshot   bool
	compactionInterval time.Duration
	tombstoneTTL       time.Duration
	rootSupervisor     *supervisor.Supervisor
	shutdownTimeout    time.Duration
	metricsEnabled     bool
	failureHandler     func(id ID, err error)
	optionErr          error

	startMu   sync.Mutex
	started   *atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	registry  *xsync.ShardedMap[ID, *actorRecord]
	tree      *tree
	pool      *workerpool.WorkerPool
	events    *eventstream.EventsStream
	scheduler quartz.Scheduler

	liveActors *atomic.Int64

	supervisionMu sync.Mutex
	stopping      bool
	supervisions  sync.WaitGroup

	metricProvider     *imetric.Provider
	metrics            *imetric.SystemMetric
	metricRegistration metric.Registration
}

// New creates a System. It does not start it.
func New(opts ...Option) (*System, error) {
	system := &System{
		name:             DefaultSystemName,
		logger:           log.DefaultLogger,
		journal:          persistence.NewMemoryJournal(),
		snapshots:        persistence.NewMemorySnapshotStore(),
		poolSize:         runtime.NumCPU(),
		askTimeout:       DefaultAskTimeout,
		snapshotInterval: DefaultSnapshotInterval,
		terminalSnapshot: true,
		rootSupervisor:   supervisor.Default(),
		shutdownTimeout:  DefaultShutdownTimeout,
		tombstoneTTL:     DefaultTombstoneTTL,
		started:          atomic.NewBool(false),
		liveActors:       atomic.NewInt64(0),
	}

	for _, opt := range opts {
		opt.Apply(system)
	}

	if system.optionErr != nil {
		return nil, system.optionErr
	}

	if system.askTimeout <= 0 || system.shutdownTimeout <= 0 {
		return nil, errors.ErrInvalidTimeout
	}

	if system.failureHandler == nil {
		system.failureHandler = func(id ID, err error) {
			system.logger.Errorf("top-level actor=(%s) failed beyond recovery: %v", id, err)
		}
	}

	return system, nil
}

// Name returns the System name
func (s *System) Name() string {
	return s.name
}

// Logger returns the System logger
func (s *System) Logger() log.Logger {
	return s.logger
}

// Running reports whether the System is started
func (s *System) Running() bool {
	return s.started.Load()
}

// ActorsCount returns the number of live actors
func (s *System) ActorsCount() int64 {
	return s.liveActors.Load()
}

// Start connects the stores and starts the dispatcher
func (s *System) Start(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.started.Load() {
		return nil
	}

	s.logger.Infof("starting actor system=(%s)...", s.name)

	if err := s.journal.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect the journal: %w", err)
	}

	if err := s.snapshots.Connect(ctx); err != nil {
		_ = s.journal.Disconnect(ctx)
		return fmt.Errorf("failed to connect the snapshot store: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.registry = xsync.NewShardedMap[ID, *actorRecord](hashID)
	s.tree = newTree(s.rootSupervisor)
	s.events = eventstream.New()
	s.liveActors.Store(0)
	s.pool = workerpool.New(
		workerpool.WithSize(s.poolSize),
		workerpool.WithPanicHandler(func(recovered any) {
			s.logger.Errorf("dispatcher worker recovered from panic: %v", recovered)
		}),
	)
	s.pool.Start()

	s.supervisionMu.Lock()
	s.stopping = false
	s.supervisionMu.Unlock()

	if err := errorschain.New(errorschain.ReturnFirst()).
		AddErrorFn(s.registerMetrics).
		AddErrorFn(s.startScheduler).
		Error(); err != nil {
		s.teardown(ctx)
		return err
	}

	s.started.Store(true)
	s.logger.Infof("actor system=(%s) started", s.name)
	return nil
}

// Stop stops every actor, leaves first, then releases the runtime resources
// and disconnects the stores. Stop is bounded by the shutdown timeout.
func (s *System) Stop(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if !s.started.Load() {
		return errors.ErrSystemNotStarted
	}

	s.logger.Infof("stopping actor system=(%s)...", s.name)

	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	s.supervisionMu.Lock()
	s.stopping = true
	s.supervisionMu.Unlock()

	s.stopScheduler(ctx)
	// abort in-flight restarts
	s.cancel()
	s.supervisions.Wait()

	chain := errorschain.New(errorschain.ReturnAll())
	chain.AddError(s.stopActors(ctx, s.tree.children(NoID), nil))
	chain.AddErrors(s.teardown(ctx)...)

	s.started.Store(false)
	s.logger.Infof("actor system=(%s) stopped", s.name)
	_ = s.logger.Flush()
	return chain.Error()
}

// teardown releases the runtime resources and disconnects the stores
func (s *System) teardown(ctx context.Context) []error {
	s.stopScheduler(ctx)
	if s.cancel != nil {
		s.cancel()
	}
	s.pool.Stop()
	s.events.Close()
	s.registry.Reset()

	chain := errorschain.New(errorschain.ReturnAll()).
		AddErrorFn(s.unregisterMetrics).
		AddErrorFn(func() error { return s.snapshots.Disconnect(ctx) }).
		AddErrorFn(func() error { return s.journal.Disconnect(ctx) })
	if err := chain.Error(); err != nil {
		return []error{err}
	}
	return nil
}

// Spawn creates an actor running the given behavior from the given initial
// state, the empty map when nil, and returns its ID. The actor is running
// when Spawn returns. Unless WithIdentity is used the ID is fresh and the
// actor has no history.
func (s *System) Spawn(ctx context.Context, behavior Behavior, initial value.Value, opts ...SpawnOption) (ID, error) {
	if !s.started.Load() {
		return NoID, errors.NewSpawnError(errors.ErrSystemNotStarted)
	}

	if s.isStopping() {
		return NoID, errors.NewSpawnError(errors.ErrSystemShuttingDown)
	}

	if behavior == nil {
		return NoID, errors.NewSpawnError(errors.ErrNilBehavior)
	}

	initial, err := initialState(initial)
	if err != nil {
		return NoID, errors.NewSpawnError(err)
	}

	config := newSpawnConfig(opts...)
	id := NewID()
	switch {
	case !config.identity.IsZero():
		id = config.identity
	case !config.reservedID.IsZero():
		id = config.reservedID
	}

	if existing, ok := s.registry.Load(id); ok && existing.Status() != Stopped {
		return NoID, errors.NewSpawnError(fmt.Errorf("actor=(%s): %w", id, errors.ErrActorAlreadyExists))
	}

	if !config.parent.IsZero() {
		parent, ok := s.registry.Load(config.parent)
		if !ok {
			return NoID, errors.NewSpawnError(fmt.Errorf("parent actor=(%s): %w", config.parent, errors.ErrActorNotFound))
		}
		if parent.Status() == Stopped {
			return NoID, errors.NewSpawnError(fmt.Errorf("parent actor=(%s): %w", config.parent, errors.ErrDead))
		}
	}

	record := newActorRecord(s, id, behavior, initial, config)
	if !config.identity.IsZero() {
		if err := record.recover(ctx); err != nil {
			return NoID, errors.NewSpawnError(err)
		}
	}

	sequenceNumber := record.sequenceNumber
	if existing, loaded := s.registry.LoadOrStore(id, record); loaded {
		if existing.Status() != Stopped {
			return NoID, errors.NewSpawnError(fmt.Errorf("actor=(%s): %w", id, errors.ErrActorAlreadyExists))
		}
		s.registry.Store(id, record)
	}

	if err := s.tree.add(id, config.parent, config.supervisor); err != nil {
		s.registry.Delete(id)
		return NoID, errors.NewSpawnError(err)
	}

	record.transition(Running, Created)
	s.liveActors.Inc()
	s.publish(newActorStarted(id))
	s.recordSpawn()
	record.logger.Debugf("actor=(%s) started at sequence=%d", id, sequenceNumber)
	return id, nil
}

// initialState returns the state an actor starts from. A nil state is the empty map.
func initialState(initial value.Value) (value.Value, error) {
	if initial == nil {
		return value.Map{}, nil
	}
	if err := value.Validate(initial); err != nil {
		return nil, err
	}
	return initial, nil
}

// Send delivers a message to an actor without waiting for it to be handled.
// Messages from the same sender are handled in the order they were sent.
func (s *System) Send(ctx context.Context, to ID, message any) error {
	return s.tell(ctx, NoID, to, message, nil)
}

// Ask sends a message to an actor and waits for its reply. The wait fails
// with errors.ErrAskTimeout after timeout; the message stays queued and a
// later reply is discarded.
func (s *System) Ask(ctx context.Context, to ID, message any, timeout time.Duration) (any, error) {
	if timeout <= 0 {
		return nil, errors.ErrInvalidTimeout
	}

	reply := newReplySlot()
	if err := s.tell(ctx, NoID, to, message, reply); err != nil {
		return nil, err
	}
	return s.await(ctx, reply, timeout)
}

// StopActor stops an actor and its children. Stopping an actor twice is a no-op.
func (s *System) StopActor(ctx context.Context, id ID) error {
	record, err := s.lookup(id)
	if err != nil {
		return err
	}
	return record.stop(ctx, nil)
}

// State returns a copy of the committed state of an actor and the number of
// events committed so far
func (s *System) State(_ context.Context, id ID) (value.Value, uint64, error) {
	record, err := s.lookup(id)
	if err != nil {
		return nil, 0, err
	}

	record.mu.RLock()
	defer record.mu.RUnlock()
	if record.Status() == Stopped || record.state == nil {
		return nil, 0, errors.ErrDead
	}
	return value.Clone(record.state), record.sequenceNumber, nil
}

// Status returns the lifecycle status of an actor
func (s *System) Status(id ID) (Status, error) {
	record, err := s.lookup(id)
	if err != nil {
		return Stopped, err
	}
	return record.Status(), nil
}

// AppendEvent journals an event on behalf of an actor and folds it into its
// state. The append is serialized with the actor messages.
func (s *System) AppendEvent(ctx context.Context, id ID, event value.Value) (uint64, error) {
	record, err := s.lookup(id)
	if err != nil {
		return 0, err
	}

	if record.reducer == nil {
		return 0, errors.ErrMissingReducer
	}

	if err := value.Validate(event); err != nil {
		return 0, err
	}

	response, err := s.request(ctx, record, &appendEvent{payload: event})
	if err != nil {
		return 0, err
	}
	return response.(uint64), nil
}

// Snapshot checkpoints the committed state of an event-sourced actor and
// returns the sequence number it covers
func (s *System) Snapshot(ctx context.Context, id ID) (uint64, error) {
	record, err := s.lookup(id)
	if err != nil {
		return 0, err
	}

	if record.reducer == nil {
		return 0, errors.ErrMissingReducer
	}

	response, err := s.request(ctx, record, new(snapshotRequest))
	if err != nil {
		return 0, err
	}
	return response.(uint64), nil
}

// Exists reports whether an actor has persisted history
func (s *System) Exists(ctx context.Context, id ID) (bool, error) {
	return s.journal.Exists(ctx, id.String())
}

// Dump renders the journal of an actor, one line per event
func (s *System) Dump(ctx context.Context, id ID) ([]string, error) {
	return persistence.Dump(ctx, s.journal, id.String())
}

// Subscribe creates a subscriber to the lifecycle events of the System:
// ActorStarted, ActorFailed, ActorRestarted, ActorStopped and SupervisionExhausted
func (s *System) Subscribe() (eventstream.Subscriber, error) {
	if !s.started.Load() {
		return nil, errors.ErrSystemNotStarted
	}
	subscriber := s.events.AddSubscriber()
	s.events.Subscribe(subscriber, eventsTopic)
	return subscriber, nil
}

// Unsubscribe removes a subscriber created by Subscribe
func (s *System) Unsubscribe(subscriber eventstream.Subscriber) error {
	if !s.started.Load() {
		return errors.ErrSystemNotStarted
	}
	s.events.Unsubscribe(subscriber, eventsTopic)
	s.events.RemoveSubscriber(subscriber)
	return nil
}

func (s *System) tell(ctx context.Context, from, to ID, message any, reply *replySlot) error {
	record, err := s.lookup(to)
	if err != nil {
		return err
	}

	if record.Status() == Stopped {
		return errors.ErrDead
	}
	return record.enqueue(newReceiveContext(ctx, to, from, message, reply), false)
}

// request sends a runtime request to an actor and waits for the outcome
func (s *System) request(ctx context.Context, record *actorRecord, message any) (any, error) {
	reply := newReplySlot()
	if err := record.enqueue(newReceiveContext(ctx, record.id, NoID, message, reply), true); err != nil {
		return nil, err
	}
	return s.await(ctx, reply, s.askTimeout)
}

func (s *System) await(ctx context.Context, reply *replySlot, timeout time.Duration) (any, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case response := <-reply.ch:
		return response.value, response.err
	case <-timer.C:
		return nil, errors.ErrAskTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *System) lookup(id ID) (*actorRecord, error) {
	if !s.started.Load() {
		return nil, errors.ErrSystemNotStarted
	}

	record, ok := s.registry.Load(id)
	if !ok {
		return nil, fmt.Errorf("actor=(%s): %w", id, errors.ErrActorNotFound)
	}
	return record, nil
}

// stopActors stops the given actors in parallel
func (s *System) stopActors(ctx context.Context, ids []ID, reason error) error {
	var eg errgroup.Group
	for _, id := range ids {
		record, ok := s.registry.Load(id)
		if !ok {
			continue
		}
		eg.Go(func() error {
			return record.stop(ctx, reason)
		})
	}
	return eg.Wait()
}

func (s *System) publish(event any) {
	if s.events != nil {
		s.events.Publish(eventsTopic, event)
	}
}

func (s *System) isStopping() bool {
	s.supervisionMu.Lock()
	defer s.supervisionMu.Unlock()
	return s.stopping
}
