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
	"github.com/tochemey/esakt/persistence"
	"github.com/tochemey/esakt/supervisor"
)

// spawnConfig defines the configuration to apply when creating an actor
type spawnConfig struct {
	parent           ID
	supervisor       *supervisor.Supervisor
	reducer          persistence.Reducer
	mailbox          Mailbox
	mailboxCapacity  int
	snapshotInterval *uint64
	identity         ID
	reservedID       ID
}

// newSpawnConfig creates an instance of spawnConfig
func newSpawnConfig(opts ...SpawnOption) *spawnConfig {
	config := new(spawnConfig)
	for _, opt := range opts {
		opt.Apply(config)
	}
	return config
}

// SpawnOption is the interface that applies to
type SpawnOption interface {
	// Apply sets the Option value of a config.
	Apply(config *spawnConfig)
}

var _ SpawnOption = spawnOption(nil)

// spawnOption implements the SpawnOption interface.
type spawnOption func(config *spawnConfig)

// Apply sets the Option value of a config.
func (f spawnOption) Apply(c *spawnConfig) {
	f(c)
}

// WithParent spawns the actor as a child of the given actor. The parent
// supervises the child and stops it when it stops.
func WithParent(parent ID) SpawnOption {
	return spawnOption(func(config *spawnConfig) {
		config.parent = parent
	})
}

// WithSupervisor sets the supervisor the actor applies to its children.
// Children of an actor spawned without it use the default supervisor.
func WithSupervisor(supervisor *supervisor.Supervisor) SpawnOption {
	return spawnOption(func(config *spawnConfig) {
		config.supervisor = supervisor
	})
}

// WithReducer makes the actor event-sourced: the events emitted by its
// behavior are folded into its state by reducer, journaled, and replayed on
// recovery. Actors spawned without a reducer cannot emit events.
func WithReducer(reducer persistence.Reducer) SpawnOption {
	return spawnOption(func(config *spawnConfig) {
		config.reducer = reducer
	})
}

// WithMailbox sets the mailbox of the actor
func WithMailbox(mailbox Mailbox) SpawnOption {
	return spawnOption(func(config *spawnConfig) {
		config.mailbox = mailbox
	})
}

// WithSpawnMailboxCapacity bounds the mailbox of the actor, overriding the
// System mailbox capacity
func WithSpawnMailboxCapacity(capacity int) SpawnOption {
	return spawnOption(func(config *spawnConfig) {
		config.mailboxCapacity = capacity
	})
}

// WithActorSnapshotInterval overrides the System snapshot interval for the actor
func WithActorSnapshotInterval(interval uint64) SpawnOption {
	return spawnOption(func(config *spawnConfig) {
		config.snapshotInterval = &interval
	})
}

// WithIdentity binds the actor to an existing persisted identity. The actor
// recovers its state from the snapshot store and the journal before it runs.
func WithIdentity(id ID) SpawnOption {
	return spawnOption(func(config *spawnConfig) {
		config.identity = id
	})
}

// withReservedID spawns the actor with an ID handed out beforehand
func withReservedID(id ID) SpawnOption {
	return spawnOption(func(config *spawnConfig) {
		config.reservedID = id
	})
}
