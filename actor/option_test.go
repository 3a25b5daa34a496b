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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/esakt/config"
	"github.com/tochemey/esakt/log"
	"github.com/tochemey/esakt/persistence"
	"github.com/tochemey/esakt/supervisor"
)

func TestOption(t *testing.T) {
	journal := persistence.NewMemoryJournal()
	snapshots := persistence.NewMemorySnapshotStore()
	rootSupervisor := supervisor.NewSupervisor(supervisor.WithStrategy(supervisor.OneForAllStrategy))

	testCases := []struct {
		name   string
		option Option
		check  func(t *testing.T, system *System)
	}{
		{
			name:   "WithLogger",
			option: WithLogger(log.DiscardLogger),
			check:  func(t *testing.T, system *System) { assert.Equal(t, log.DiscardLogger, system.logger) },
		},
		{
			name:   "WithName",
			option: WithName("bank"),
			check:  func(t *testing.T, system *System) { assert.Equal(t, "bank", system.name) },
		},
		{
			name:   "WithJournal",
			option: WithJournal(journal),
			check:  func(t *testing.T, system *System) { assert.Same(t, journal, system.journal) },
		},
		{
			name:   "WithSnapshotStore",
			option: WithSnapshotStore(snapshots),
			check:  func(t *testing.T, system *System) { assert.Same(t, snapshots, system.snapshots) },
		},
		{
			name:   "WithWorkerPoolSize",
			option: WithWorkerPoolSize(3),
			check:  func(t *testing.T, system *System) { assert.Equal(t, 3, system.poolSize) },
		},
		{
			name:   "WithWorkerPoolSize ignores non positive sizes",
			option: WithWorkerPoolSize(0),
			check:  func(t *testing.T, system *System) { assert.Zero(t, system.poolSize) },
		},
		{
			name:   "WithAskTimeout",
			option: WithAskTimeout(time.Second),
			check:  func(t *testing.T, system *System) { assert.Equal(t, time.Second, system.askTimeout) },
		},
		{
			name:   "WithMailboxCapacity",
			option: WithMailboxCapacity(10),
			check:  func(t *testing.T, system *System) { assert.Equal(t, 10, system.mailboxCapacity) },
		},
		{
			name:   "WithSnapshotInterval",
			option: WithSnapshotInterval(42),
			check:  func(t *testing.T, system *System) { assert.EqualValues(t, 42, system.snapshotInterval) },
		},
		{
			name:   "WithJournalPurge",
			option: WithJournalPurge(),
			check:  func(t *testing.T, system *System) { assert.True(t, system.journalPurge) },
		},
		{
			name:   "WithoutTerminalSnapshot",
			option: WithoutTerminalSnapshot(),
			check:  func(t *testing.T, system *System) { assert.False(t, system.terminalSnapshot) },
		},
		{
			name:   "WithCompactionInterval",
			option: WithCompactionInterval(time.Minute),
			check:  func(t *testing.T, system *System) { assert.Equal(t, time.Minute, system.compactionInterval) },
		},
		{
			name:   "WithTombstoneTTL",
			option: WithTombstoneTTL(time.Second),
			check:  func(t *testing.T, system *System) { assert.Equal(t, time.Second, system.tombstoneTTL) },
		},
		{
			name:   "WithTombstoneTTL ignores negative durations",
			option: WithTombstoneTTL(-time.Second),
			check:  func(t *testing.T, system *System) { assert.Zero(t, system.tombstoneTTL) },
		},
		{
			name:   "WithRootSupervisor",
			option: WithRootSupervisor(rootSupervisor),
			check:  func(t *testing.T, system *System) { assert.Same(t, rootSupervisor, system.rootSupervisor) },
		},
		{
			name:   "WithRootSupervisor ignores nil",
			option: WithRootSupervisor(nil),
			check:  func(t *testing.T, system *System) { assert.Nil(t, system.rootSupervisor) },
		},
		{
			name:   "WithShutdownTimeout",
			option: WithShutdownTimeout(time.Second),
			check:  func(t *testing.T, system *System) { assert.Equal(t, time.Second, system.shutdownTimeout) },
		},
		{
			name:   "WithMetrics",
			option: WithMetrics(),
			check:  func(t *testing.T, system *System) { assert.True(t, system.metricsEnabled) },
		},
		{
			name:   "WithFailureHandler",
			option: WithFailureHandler(func(ID, error) {}),
			check:  func(t *testing.T, system *System) { assert.NotNil(t, system.failureHandler) },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			system := &System{terminalSnapshot: true}
			tc.option.Apply(system)
			tc.check(t, system)
		})
	}
}

func TestWithConfigOption(t *testing.T) {
	t.Run("With file store", func(t *testing.T) {
		cfg := config.Default()
		cfg.Name = "ledger"
		cfg.Journal.Dir = t.TempDir()
		cfg.Snapshot.Store = config.FileStore
		cfg.Snapshot.Interval = 7
		cfg.Dispatcher.Workers = 3
		cfg.CompactionInterval = time.Minute
		cfg.TombstoneTTL = time.Hour

		system := new(System)
		WithConfig(cfg).Apply(system)
		require.NoError(t, system.optionErr)

		assert.Equal(t, "ledger", system.name)
		assert.Equal(t, 3, system.poolSize)
		assert.EqualValues(t, 7, system.snapshotInterval)
		assert.Equal(t, time.Minute, system.compactionInterval)
		assert.Equal(t, time.Hour, system.tombstoneTTL)
		assert.IsType(t, new(persistence.FileJournal), system.journal)
		assert.IsType(t, new(persistence.FileSnapshotStore), system.snapshots)
		assert.NotNil(t, system.rootSupervisor)
	})
	t.Run("With memory store", func(t *testing.T) {
		cfg := config.Default()
		cfg.Journal.Dir = ""
		cfg.Snapshot.Store = config.MemoryStore

		system := new(System)
		WithConfig(cfg).Apply(system)
		require.NoError(t, system.optionErr)
		assert.IsType(t, new(persistence.MemoryJournal), system.journal)
		assert.IsType(t, new(persistence.MemorySnapshotStore), system.snapshots)
	})
	t.Run("With invalid config", func(t *testing.T) {
		cfg := config.Default()
		cfg.AskTimeout = -time.Second

		system := new(System)
		WithConfig(cfg).Apply(system)
		require.Error(t, system.optionErr)
		assert.Nil(t, system.journal)
	})
}
