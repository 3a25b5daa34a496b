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

package persistence

import (
	"context"
	"fmt"

	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/value"
)

// Recovery is the outcome of loading an actor from durable storage
type Recovery struct {
	// State is the recovered state
	State value.Value
	// SequenceNumber is the sequence number of the last folded event
	SequenceNumber uint64
	// SnapshotSequenceNumber is the sequence number of the snapshot used, zero when none
	SnapshotSequenceNumber uint64
	// Replayed is the number of events folded on top of the snapshot
	Replayed int
}

// Recover rebuilds an actor state from its latest snapshot, or from initial
// when there is none, by folding the subsequent journal events in order.
//
// A gap, an out of order record, a snapshot ahead of the journal, or a
// reducer that fails or panics is reported as a JournalCorruptionError: the
// history can no longer reproduce a committed state and must not be retried.
func Recover(ctx context.Context, journal Journal, snapshots SnapshotStore, persistenceID string, initial value.Value, reducer Reducer) (*Recovery, error) {
	recovery := &Recovery{State: value.Clone(initial)}

	if snapshots != nil {
		snapshot, err := snapshots.LoadSnapshot(ctx, persistenceID)
		if err != nil {
			return nil, err
		}
		if snapshot != nil {
			recovery.State = snapshot.State
			recovery.SequenceNumber = snapshot.SequenceNumber
			recovery.SnapshotSequenceNumber = snapshot.SequenceNumber
		}
	}

	if journal == nil {
		return recovery, nil
	}

	latest, err := journal.GetLatestSequenceNumber(ctx, persistenceID)
	if err != nil {
		return nil, err
	}

	if recovery.SequenceNumber > latest {
		return nil, errors.NewJournalCorruptionError(persistenceID, recovery.SequenceNumber,
			fmt.Sprintf("snapshot is ahead of the journal tail %d", latest))
	}

	if recovery.SequenceNumber == latest {
		return recovery, nil
	}

	if reducer == nil {
		return nil, fmt.Errorf("actor=(%s) has %d event(s) to replay: %w", persistenceID, latest-recovery.SequenceNumber, errors.ErrMissingReducer)
	}

	for event, err := range journal.ReplayEvents(ctx, persistenceID, recovery.SequenceNumber+1) {
		if err != nil {
			return nil, err
		}

		expected := recovery.SequenceNumber + 1
		if event.SequenceNumber != expected {
			return nil, errors.NewJournalCorruptionError(persistenceID, expected,
				fmt.Sprintf("expected sequence %d, found %d", expected, event.SequenceNumber))
		}

		state, err := Fold(reducer, recovery.State, event)
		if err != nil {
			return nil, errors.NewJournalCorruptionError(persistenceID, event.SequenceNumber,
				fmt.Sprintf("replay of %s failed: %v", event.Type(), err))
		}

		recovery.State = state
		recovery.SequenceNumber = event.SequenceNumber
		recovery.Replayed++
	}

	if recovery.SequenceNumber != latest {
		return nil, errors.NewJournalCorruptionError(persistenceID, recovery.SequenceNumber+1,
			fmt.Sprintf("journal ends at %d, expected %d", recovery.SequenceNumber, latest))
	}

	return recovery, nil
}
