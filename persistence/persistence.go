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

// Package persistence provides the durable side of an event-sourced actor:
// an append-only journal per actor, snapshot stores used as compaction
// checkpoints, and the recovery routine that folds both back into state.
package persistence

import (
	"context"
	stderrors "errors"
	"fmt"
	"iter"
	"time"

	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/value"
)

// ErrSequenceMismatch is returned when a write does not continue the journal
var ErrSequenceMismatch = stderrors.New("event sequence number does not follow the journal")

// Event is a journaled domain event. Events are immutable once written.
type Event struct {
	// SequenceNumber is the position of the event in its actor's journal, starting at 1
	SequenceNumber uint64
	// Payload is the event data, usually a tagged variant such as (Deposit 100)
	Payload value.Value
	// Timestamp is the wall clock time the event was created
	Timestamp time.Time
}

// NewEvent creates an event stamped with the current time
func NewEvent(sequenceNumber uint64, payload value.Value) *Event {
	return &Event{
		SequenceNumber: sequenceNumber,
		Payload:        payload,
		Timestamp:      time.Now().UTC().Truncate(time.Millisecond),
	}
}

// Type returns the tag of the payload when it is a variant
func (e *Event) Type() string {
	if tag := value.Tag(e.Payload); tag != "" {
		return tag
	}
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind().String()
}

// Debug renders the event as one human-readable line
func (e *Event) Debug() string {
	payload := "<nil>"
	if e.Payload != nil {
		payload = e.Payload.Debug()
	}
	return fmt.Sprintf("[seq=%d, ts=%d, type=%s] %s", e.SequenceNumber, e.Timestamp.UnixMilli(), e.Type(), payload)
}

// Snapshot is a compaction checkpoint of an actor state
type Snapshot struct {
	// SequenceNumber is the last event folded into State
	SequenceNumber uint64
	// State is the actor state after SequenceNumber events
	State value.Value
	// Timestamp is the time the snapshot was taken
	Timestamp time.Time
}

// NewSnapshot creates a snapshot stamped with the current time
func NewSnapshot(sequenceNumber uint64, state value.Value) *Snapshot {
	return &Snapshot{
		SequenceNumber: sequenceNumber,
		State:          state,
		Timestamp:      time.Now().UTC().Truncate(time.Millisecond),
	}
}

// Reducer folds one event into a state. It must be deterministic and free
// of side effects: recovery replays the same events through it.
type Reducer func(state value.Value, event *Event) (value.Value, error)

// Fold applies the reducer to one event. A reducer panic is returned as an
// errors.PanicError.
func Fold(reducer Reducer, state value.Value, event *Event) (next value.Value, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			next = nil
			switch cause := recovered.(type) {
			case error:
				err = errors.NewPanicError(fmt.Errorf("reducer failed on %s: %w", event.Type(), cause))
			default:
				err = errors.NewPanicError(fmt.Errorf("reducer failed on %s: %v", event.Type(), cause))
			}
		}
	}()
	return reducer(state, event)
}

// Journal is the append-only event log of every actor
type Journal interface {
	// Connect prepares the journal for use
	Connect(ctx context.Context) error
	// Disconnect flushes and releases the journal resources
	Disconnect(ctx context.Context) error
	// WriteEvents durably appends events to the actor journal.
	// Sequence numbers must continue the journal without gap.
	// Either every event is written or none is visible after a failure.
	WriteEvents(ctx context.Context, persistenceID string, events ...*Event) error
	// ReplayEvents lazily yields the events whose sequence number is at least
	// fromSequenceNumber, in order. Ranging again restarts the read.
	ReplayEvents(ctx context.Context, persistenceID string, fromSequenceNumber uint64) iter.Seq2[*Event, error]
	// GetLatestSequenceNumber returns the highest sequence number ever written
	// for the actor, including purged events. Zero means no history.
	GetLatestSequenceNumber(ctx context.Context, persistenceID string) (uint64, error)
	// DeleteEvents purges the events up to toSequenceNumber inclusive
	DeleteEvents(ctx context.Context, persistenceID string, toSequenceNumber uint64) error
	// Exists reports whether the actor has any persisted history
	Exists(ctx context.Context, persistenceID string) (bool, error)
}

// SnapshotStore keeps the latest snapshot of every actor
type SnapshotStore interface {
	// Connect prepares the store for use
	Connect(ctx context.Context) error
	// Disconnect releases the store resources
	Disconnect(ctx context.Context) error
	// SaveSnapshot replaces the actor latest snapshot
	SaveSnapshot(ctx context.Context, persistenceID string, snapshot *Snapshot) error
	// LoadSnapshot returns the actor latest snapshot or nil when there is none
	LoadSnapshot(ctx context.Context, persistenceID string) (*Snapshot, error)
	// DeleteSnapshot removes the actor snapshot
	DeleteSnapshot(ctx context.Context, persistenceID string) error
}

// Append writes a single event continuing the actor journal and returns its
// sequence number.
func Append(ctx context.Context, journal Journal, persistenceID string, payload value.Value) (uint64, error) {
	last, err := journal.GetLatestSequenceNumber(ctx, persistenceID)
	if err != nil {
		return 0, err
	}
	event := NewEvent(last+1, payload)
	if err := journal.WriteEvents(ctx, persistenceID, event); err != nil {
		return 0, err
	}
	return event.SequenceNumber, nil
}

// Checkpoint saves the state reached after sequenceNumber events as the actor
// snapshot. When purge is set the journal entries covered by the snapshot are
// deleted afterwards. A snapshot ahead of the journal tail is rejected.
func Checkpoint(ctx context.Context, journal Journal, snapshots SnapshotStore, persistenceID string, state value.Value, sequenceNumber uint64, purge bool) error {
	latest, err := journal.GetLatestSequenceNumber(ctx, persistenceID)
	if err != nil {
		return err
	}

	if sequenceNumber > latest {
		return fmt.Errorf("actor=(%s) snapshot at %d is ahead of the journal tail %d: %w",
			persistenceID, sequenceNumber, latest, errors.ErrInvalidSnapshot)
	}

	if err := snapshots.SaveSnapshot(ctx, persistenceID, NewSnapshot(sequenceNumber, state)); err != nil {
		return err
	}

	if purge {
		return journal.DeleteEvents(ctx, persistenceID, sequenceNumber)
	}
	return nil
}

// Dump renders every journaled event of an actor, one line per event
func Dump(ctx context.Context, journal Journal, persistenceID string) ([]string, error) {
	var lines []string
	for event, err := range journal.ReplayEvents(ctx, persistenceID, 0) {
		if err != nil {
			return lines, err
		}
		lines = append(lines, event.Debug())
	}
	return lines, nil
}
