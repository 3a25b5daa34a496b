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
	"iter"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/esakt/compression"
	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/value"
)

var balanceKey = value.StringKey("balance")

func openAccount() value.Value {
	return value.NewMap(map[string]value.Value{"balance": value.Int(0)})
}

func bankReducer(state value.Value, event *Event) (value.Value, error) {
	account, ok := state.(value.Map)
	if !ok {
		return nil, fmt.Errorf("unexpected state %s", state.Kind())
	}
	balance := account[balanceKey].(value.Int)
	variant, ok := event.Payload.(*value.Variant)
	if !ok || len(variant.Fields) != 1 {
		return nil, fmt.Errorf("unexpected event %s", event.Payload.Debug())
	}
	amount := variant.Fields[0].(value.Int)

	switch variant.Tag {
	case "Deposit":
		return account.With(balanceKey, balance+amount), nil
	case "Withdraw":
		if amount > balance {
			return nil, fmt.Errorf("insufficient funds: %d > %d", amount, balance)
		}
		return account.With(balanceKey, balance-amount), nil
	default:
		return nil, fmt.Errorf("unknown event %s", variant.Tag)
	}
}

func TestRecover(t *testing.T) {
	ctx := context.Background()

	t.Run("Bank account", func(t *testing.T) {
		root := t.TempDir()
		journal := newFileJournal(t, root)
		writeEvents(t, journal, "account", deposit(100), withdraw(30))
		require.NoError(t, journal.Disconnect(ctx))

		reopened := newFileJournal(t, root)
		recovery, err := Recover(ctx, reopened, nil, "account", openAccount(), bankReducer)
		require.NoError(t, err)
		assert.EqualValues(t, 2, recovery.SequenceNumber)
		assert.Equal(t, 2, recovery.Replayed)
		assert.Equal(t, `{ "balance": 70 }`, recovery.State.Debug())
	})
	t.Run("Without history returns the initial state", func(t *testing.T) {
		journal := newFileJournal(t, t.TempDir())
		initial := openAccount()
		recovery, err := Recover(ctx, journal, NewMemorySnapshotStore(), "account", initial, bankReducer)
		require.ErrorIs(t, err, errors.ErrJournalClosed)
		assert.Nil(t, recovery)

		snapshots := NewMemorySnapshotStore()
		require.NoError(t, snapshots.Connect(ctx))
		recovery, err = Recover(ctx, journal, snapshots, "account", initial, bankReducer)
		require.NoError(t, err)
		assert.Zero(t, recovery.SequenceNumber)
		assert.True(t, value.Equal(initial, recovery.State))
	})
	t.Run("Determinism", func(t *testing.T) {
		journal := NewMemoryJournal()
		require.NoError(t, journal.Connect(ctx))

		rng := rand.New(rand.NewPCG(1, 2))
		state := openAccount()
		for i := range 200 {
			var payload value.Value
			if rng.IntN(3) == 0 {
				payload = withdraw(int64(rng.IntN(5)))
			} else {
				payload = deposit(int64(rng.IntN(10)))
			}
			event := NewEvent(uint64(i+1), payload)
			next, err := bankReducer(state, event)
			if err != nil {
				continue
			}
			_, err = Append(ctx, journal, "account", payload)
			require.NoError(t, err)
			state = next
		}

		first, err := Recover(ctx, journal, nil, "account", openAccount(), bankReducer)
		require.NoError(t, err)
		second, err := Recover(ctx, journal, nil, "account", openAccount(), bankReducer)
		require.NoError(t, err)

		assert.True(t, value.Equal(first.State, second.State))
		assert.True(t, value.Equal(state, first.State))
		assert.Equal(t, first.SequenceNumber, second.SequenceNumber)
	})
	t.Run("Compaction equivalence", func(t *testing.T) {
		for _, purge := range []bool{false, true} {
			t.Run(fmt.Sprintf("purge=%t", purge), func(t *testing.T) {
				root := t.TempDir()
				journal := newFileJournal(t, root)
				snapshots := NewFileSnapshotStore(root, compression.Zstd)
				require.NoError(t, snapshots.Connect(ctx))

				for i := range 50 {
					writeEvents(t, journal, "account", deposit(int64(i)))
				}

				full, err := Recover(ctx, journal, nil, "account", openAccount(), bankReducer)
				require.NoError(t, err)

				atThirty, err := Recover(ctx, &limitedJournal{Journal: journal, limit: 30}, nil, "account", openAccount(), bankReducer)
				require.NoError(t, err)
				require.NoError(t, Checkpoint(ctx, journal, snapshots, "account", atThirty.State, 30, purge))

				compacted, err := Recover(ctx, journal, snapshots, "account", openAccount(), bankReducer)
				require.NoError(t, err)
				assert.True(t, value.Equal(full.State, compacted.State))
				assert.Equal(t, full.SequenceNumber, compacted.SequenceNumber)
				assert.EqualValues(t, 30, compacted.SnapshotSequenceNumber)
				assert.Equal(t, 20, compacted.Replayed)
			})
		}
	})
	t.Run("Snapshot ahead of the journal is rejected", func(t *testing.T) {
		journal := newFileJournal(t, t.TempDir())
		snapshots := NewMemorySnapshotStore()
		require.NoError(t, snapshots.Connect(ctx))
		writeEvents(t, journal, "account", deposit(1))

		err := Checkpoint(ctx, journal, snapshots, "account", openAccount(), 5, false)
		require.ErrorIs(t, err, errors.ErrInvalidSnapshot)

		require.NoError(t, snapshots.SaveSnapshot(ctx, "account", NewSnapshot(5, openAccount())))
		_, err = Recover(ctx, journal, snapshots, "account", openAccount(), bankReducer)
		require.ErrorIs(t, err, errors.ErrJournalCorruption)
	})
	t.Run("Purged events without snapshot is a gap", func(t *testing.T) {
		journal := newFileJournal(t, t.TempDir())
		writeEvents(t, journal, "account", deposit(1), deposit(2), deposit(3))
		require.NoError(t, journal.DeleteEvents(ctx, "account", 1))

		_, err := Recover(ctx, journal, nil, "account", openAccount(), bankReducer)
		require.ErrorIs(t, err, errors.ErrJournalCorruption)

		var corruption *errors.JournalCorruptionError
		require.ErrorAs(t, err, &corruption)
		assert.EqualValues(t, 1, corruption.Sequence)
	})
	t.Run("Reducer failure is corruption", func(t *testing.T) {
		journal := NewMemoryJournal()
		require.NoError(t, journal.Connect(ctx))
		writeEvents(t, journal, "account", withdraw(10))

		_, err := Recover(ctx, journal, nil, "account", openAccount(), bankReducer)
		require.ErrorIs(t, err, errors.ErrJournalCorruption)
		assert.Contains(t, err.Error(), "insufficient funds")
	})
	t.Run("Reducer panic is corruption", func(t *testing.T) {
		journal := NewMemoryJournal()
		require.NoError(t, journal.Connect(ctx))
		writeEvents(t, journal, "account", deposit(10), deposit(20))

		calls := 0
		reducer := func(state value.Value, event *Event) (value.Value, error) {
			calls++
			if event.SequenceNumber == 2 {
				panic("replay boom")
			}
			return bankReducer(state, event)
		}

		_, err := Recover(ctx, journal, nil, "account", openAccount(), reducer)
		require.ErrorIs(t, err, errors.ErrJournalCorruption)
		var corruption *errors.JournalCorruptionError
		require.ErrorAs(t, err, &corruption)
		assert.EqualValues(t, 2, corruption.Sequence)
		assert.Contains(t, err.Error(), "replay boom")
		assert.Equal(t, 2, calls)
	})
	t.Run("Events without reducer", func(t *testing.T) {
		journal := NewMemoryJournal()
		require.NoError(t, journal.Connect(ctx))
		writeEvents(t, journal, "account", deposit(10))

		_, err := Recover(ctx, journal, nil, "account", openAccount(), nil)
		require.ErrorIs(t, err, errors.ErrMissingReducer)
	})
}

func TestFold(t *testing.T) {
	event := NewEvent(1, deposit(10))

	t.Run("Applies the reducer", func(t *testing.T) {
		state, err := Fold(bankReducer, openAccount(), event)
		require.NoError(t, err)
		assert.True(t, value.Equal(value.NewMap(map[string]value.Value{"balance": value.Int(10)}), state))
	})
	t.Run("Returns a panic as PanicError", func(t *testing.T) {
		for _, cause := range []any{"boom", fmt.Errorf("boom")} {
			state, err := Fold(func(value.Value, *Event) (value.Value, error) { panic(cause) }, openAccount(), event)
			assert.Nil(t, state)
			var panicErr *errors.PanicError
			require.ErrorAs(t, err, &panicErr)
			assert.Contains(t, err.Error(), "Deposit")
			assert.Contains(t, err.Error(), "boom")
		}
	})
}

// limitedJournal hides the events after limit
type limitedJournal struct {
	Journal
	limit uint64
}

func (l *limitedJournal) GetLatestSequenceNumber(ctx context.Context, persistenceID string) (uint64, error) {
	last, err := l.Journal.GetLatestSequenceNumber(ctx, persistenceID)
	return min(last, l.limit), err
}

func (l *limitedJournal) ReplayEvents(ctx context.Context, persistenceID string, from uint64) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		for event, err := range l.Journal.ReplayEvents(ctx, persistenceID, from) {
			if err == nil && event.SequenceNumber > l.limit {
				return
			}
			if !yield(event, err) {
				return
			}
		}
	}
}
