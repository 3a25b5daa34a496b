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
	"os"
	"path/filepath"
	"time"

	"github.com/tochemey/esakt/config"
	"github.com/tochemey/esakt/log"
	"github.com/tochemey/esakt/persistence"
	"github.com/tochemey/esakt/supervisor"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(system *System)
}

// enforce compilation error
var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(system *System)

// Apply applies the option to the System
func (f OptionFunc) Apply(system *System) {
	f(system)
}

// WithLogger sets the System logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(system *System) {
		system.logger = logger
	})
}

// WithName sets the System name. It is attached to every metric.
func WithName(name string) Option {
	return OptionFunc(func(system *System) {
		system.name = name
	})
}

// WithJournal sets the event journal. The default is an in-memory journal.
func WithJournal(journal persistence.Journal) Option {
	return OptionFunc(func(system *System) {
		system.journal = journal
	})
}

// WithSnapshotStore sets the snapshot store. The default is an in-memory store.
func WithSnapshotStore(store persistence.SnapshotStore) Option {
	return OptionFunc(func(system *System) {
		system.snapshots = store
	})
}

// WithWorkerPoolSize sets the number of dispatcher workers
func WithWorkerPoolSize(size int) Option {
	return OptionFunc(func(system *System) {
		if size > 0 {
			system.poolSize = size
		}
	})
}

// WithAskTimeout sets how long the System waits for the runtime requests
// it sends to actors on behalf of a caller, such as AppendEvent and Snapshot
func WithAskTimeout(timeout time.Duration) Option {
	return OptionFunc(func(system *System) {
		system.askTimeout = timeout
	})
}

// WithMailboxCapacity bounds every actor mailbox. Sends to a full mailbox
// fail with errors.ErrMailboxFull. Zero means unbounded.
func WithMailboxCapacity(capacity int) Option {
	return OptionFunc(func(system *System) {
		system.mailboxCapacity = capacity
	})
}

// WithSnapshotInterval sets the number of committed events between automatic
// snapshots. Zero disables automatic snapshots.
func WithSnapshotInterval(interval uint64) Option {
	return OptionFunc(func(system *System) {
		system.snapshotInterval = interval
	})
}

// WithJournalPurge deletes the journal entries covered by every snapshot
func WithJournalPurge() Option {
	return OptionFunc(func(system *System) {
		system.journalPurge = true
	})
}

// WithoutTerminalSnapshot disables the snapshot written when an actor stops gracefully
func WithoutTerminalSnapshot() Option {
	return OptionFunc(func(system *System) {
		system.terminalSnapshot = false
	})
}

// WithCompactionInterval schedules a periodic compaction of every running
// event-sourced actor. Zero disables it.
func WithCompactionInterval(interval time.Duration) Option {
	return OptionFunc(func(system *System) {
		system.compactionInterval = interval
	})
}

// WithTombstoneTTL sets how long a stopped actor stays in the registry.
// Until then messages to it fail with errors.ErrDead, after that with
// errors.ErrActorNotFound. Zero keeps stopped actors forever.
func WithTombstoneTTL(ttl time.Duration) Option {
	return OptionFunc(func(system *System) {
		if ttl >= 0 {
			system.tombstoneTTL = ttl
		}
	})
}

// WithRootSupervisor sets the supervisor of the top-level actors
func WithRootSupervisor(supervisor *supervisor.Supervisor) Option {
	return OptionFunc(func(system *System) {
		if supervisor != nil {
			system.rootSupervisor = supervisor
		}
	})
}

// WithShutdownTimeout bounds System.Stop
func WithShutdownTimeout(timeout time.Duration) Option {
	return OptionFunc(func(system *System) {
		system.shutdownTimeout = timeout
	})
}

// WithMetrics enables the OpenTelemetry instruments of the System. The
// instruments are created from the global meter provider.
func WithMetrics() Option {
	return OptionFunc(func(system *System) {
		system.metricsEnabled = true
	})
}

// WithFailureHandler sets the function called when a top-level actor escalates
// a failure. The default handler logs the failure.
func WithFailureHandler(handler func(id ID, err error)) Option {
	return OptionFunc(func(system *System) {
		if handler != nil {
			system.failureHandler = handler
		}
	})
}

// WithConfig applies a loaded configuration: a file journal under the
// configured directory, the configured snapshot store and every runtime
// setting. Options given after WithConfig override it.
func WithConfig(cfg *config.Config) Option {
	return OptionFunc(func(system *System) {
		if err := cfg.Validate(); err != nil {
			system.optionErr = err
			return
		}

		var journalOpts []persistence.FileJournalOption
		if !cfg.Journal.Fsync {
			journalOpts = append(journalOpts, persistence.WithoutFsync())
		}

		switch cfg.Snapshot.Store {
		case config.FileStore:
			system.journal = persistence.NewFileJournal(cfg.Journal.Dir, journalOpts...)
			system.snapshots = persistence.NewFileSnapshotStore(cfg.Journal.Dir, cfg.Codec())
		case config.BoltStore:
			system.journal = persistence.NewFileJournal(cfg.Journal.Dir, journalOpts...)
			system.snapshots = persistence.NewBoltSnapshotStore(filepath.Join(cfg.Journal.Dir, "snapshots.db"), cfg.Codec())
		case config.MemoryStore:
			if cfg.Journal.Dir != "" {
				system.journal = persistence.NewFileJournal(cfg.Journal.Dir, journalOpts...)
			} else {
				system.journal = persistence.NewMemoryJournal()
			}
			system.snapshots = persistence.NewMemorySnapshotStore()
		}

		system.name = cfg.Name
		if cfg.Dispatcher.Workers > 0 {
			system.poolSize = cfg.Dispatcher.Workers
		}
		system.mailboxCapacity = cfg.Dispatcher.MailboxCapacity
		system.snapshotInterval = cfg.Snapshot.Interval
		system.journalPurge = cfg.Journal.Purge
		system.terminalSnapshot = cfg.Snapshot.Terminal
		system.askTimeout = cfg.AskTimeout
		system.shutdownTimeout = cfg.ShutdownTimeout
		system.compactionInterval = cfg.CompactionInterval
		system.tombstoneTTL = cfg.TombstoneTTL
		system.rootSupervisor = cfg.RootSupervisor()
		system.metricsEnabled = cfg.Metrics
		system.logger = log.NewZap(log.ParseLevel(cfg.LogLevel), os.Stdout)
	})
}
