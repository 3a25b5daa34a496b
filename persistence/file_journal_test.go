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
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/value"
)

func TestFileJournal(t *testing.T) {
	ctx := context.Background()

	t.Run("Write and replay", func(t *testing.T) {
		journal := newFileJournal(t, t.TempDir())
		writeEvents(t, journal, "account", deposit(100), withdraw(30), deposit(5))

		last, err := journal.GetLatestSequenceNumber(ctx, "account")
		require.NoError(t, err)
		assert.EqualValues(t, 3, last)

		events := collect(t, journal, "account", 0)
		require.Len(t, events, 3)
		for i, event := range events {
			assert.EqualValues(t, i+1, event.SequenceNumber)
		}
		assert.Equal(t, "Withdraw", events[1].Type())
		assert.True(t, value.Equal(withdraw(30), events[1].Payload))

		tail := collect(t, journal, "account", 3)
		require.Len(t, tail, 1)
		assert.EqualValues(t, 3, tail[0].SequenceNumber)
	})
	t.Run("Replay is restartable and stops early", func(t *testing.T) {
		journal := newFileJournal(t, t.TempDir())
		writeEvents(t, journal, "account", deposit(1), deposit(2), deposit(3))

		seq := journal.ReplayEvents(ctx, "account", 1)
		count := 0
		for _, err := range seq {
			require.NoError(t, err)
			count++
			if count == 2 {
				break
			}
		}
		assert.Equal(t, 2, count)

		count = 0
		for _, err := range seq {
			require.NoError(t, err)
			count++
		}
		assert.Equal(t, 3, count)
	})
	t.Run("Unknown actor has no history", func(t *testing.T) {
		root := t.TempDir()
		journal := newFileJournal(t, root)

		last, err := journal.GetLatestSequenceNumber(ctx, "ghost")
		require.NoError(t, err)
		assert.Zero(t, last)

		exists, err := journal.Exists(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Empty(t, collect(t, journal, "ghost", 0))
		assert.NoDirExists(t, filepath.Join(root, "ghost"))
	})
	t.Run("Sequence numbers must follow the journal", func(t *testing.T) {
		journal := newFileJournal(t, t.TempDir())
		writeEvents(t, journal, "account", deposit(1))

		err := journal.WriteEvents(ctx, "account", NewEvent(3, deposit(2)))
		require.ErrorIs(t, err, ErrSequenceMismatch)

		err = journal.WriteEvents(ctx, "account", NewEvent(1, deposit(2)))
		require.ErrorIs(t, err, ErrSequenceMismatch)
	})
	t.Run("Non serializable payloads are rejected", func(t *testing.T) {
		journal := newFileJournal(t, t.TempDir())
		cyclic := value.Map{}
		cyclic[value.StringKey("self")] = cyclic

		err := journal.WriteEvents(ctx, "account", NewEvent(1, cyclic))
		require.ErrorIs(t, err, errors.ErrNonSerializableValue)

		last, err := journal.GetLatestSequenceNumber(ctx, "account")
		require.NoError(t, err)
		assert.Zero(t, last)
	})
	t.Run("History survives a reconnect", func(t *testing.T) {
		root := t.TempDir()
		journal := newFileJournal(t, root)
		writeEvents(t, journal, "account", deposit(100), withdraw(30))
		require.NoError(t, journal.Disconnect(ctx))

		reopened := newFileJournal(t, root)
		last, err := reopened.GetLatestSequenceNumber(ctx, "account")
		require.NoError(t, err)
		assert.EqualValues(t, 2, last)

		writeEvents(t, reopened, "account", deposit(1))
		assert.Len(t, collect(t, reopened, "account", 0), 3)
	})
	t.Run("Checksum mismatch is corruption", func(t *testing.T) {
		root := t.TempDir()
		journal := newFileJournal(t, root)
		writeEvents(t, journal, "account", deposit(100), withdraw(30), deposit(7))
		require.NoError(t, journal.Disconnect(ctx))

		path := filepath.Join(root, "account", journalFileName)
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		// last payload byte of the third record, just before its checksum
		content[len(content)-9] ^= 0xff
		require.NoError(t, os.WriteFile(path, content, 0o600))

		reopened := newFileJournal(t, root)
		_, err = reopened.GetLatestSequenceNumber(ctx, "account")
		require.ErrorIs(t, err, errors.ErrJournalCorruption)

		var corruption *errors.JournalCorruptionError
		require.ErrorAs(t, err, &corruption)
		assert.EqualValues(t, 3, corruption.Sequence)
		assert.Contains(t, corruption.Reason, "checksum")

		err = reopened.WriteEvents(ctx, "account", NewEvent(4, deposit(1)))
		require.ErrorIs(t, err, errors.ErrJournalCorruption)
	})
	t.Run("Torn tail is corruption", func(t *testing.T) {
		root := t.TempDir()
		journal := newFileJournal(t, root)
		writeEvents(t, journal, "account", deposit(100), withdraw(30))
		require.NoError(t, journal.Disconnect(ctx))

		path := filepath.Join(root, "account", journalFileName)
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.NoError(t, os.Truncate(path, info.Size()-3))

		reopened := newFileJournal(t, root)
		var replayErr error
		for _, err := range reopened.ReplayEvents(ctx, "account", 0) {
			if err != nil {
				replayErr = err
			}
		}
		require.ErrorIs(t, replayErr, errors.ErrJournalCorruption)
	})
	t.Run("Foreign file is corruption", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "account"), 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(root, "account", journalFileName), []byte("definitely not a journal"), 0o600))

		journal := newFileJournal(t, root)
		_, err := journal.GetLatestSequenceNumber(ctx, "account")
		require.ErrorIs(t, err, errors.ErrJournalCorruption)
	})
	t.Run("Purge keeps sequence numbers", func(t *testing.T) {
		root := t.TempDir()
		journal := newFileJournal(t, root)
		writeEvents(t, journal, "account", deposit(1), deposit(2), deposit(3), deposit(4))

		require.NoError(t, journal.DeleteEvents(ctx, "account", 2))
		events := collect(t, journal, "account", 0)
		require.Len(t, events, 2)
		assert.EqualValues(t, 3, events[0].SequenceNumber)

		last, err := journal.GetLatestSequenceNumber(ctx, "account")
		require.NoError(t, err)
		assert.EqualValues(t, 4, last)

		writeEvents(t, journal, "account", deposit(5))
		require.NoError(t, journal.Disconnect(ctx))

		reopened := newFileJournal(t, root)
		events = collect(t, reopened, "account", 0)
		require.Len(t, events, 3)
		assert.EqualValues(t, 5, events[2].SequenceNumber)

		// purging everything keeps the tail
		require.NoError(t, reopened.DeleteEvents(ctx, "account", 100))
		assert.Empty(t, collect(t, reopened, "account", 0))
		last, err = reopened.GetLatestSequenceNumber(ctx, "account")
		require.NoError(t, err)
		assert.EqualValues(t, 5, last)

		exists, err := reopened.Exists(ctx, "account")
		require.NoError(t, err)
		assert.True(t, exists)
	})
	t.Run("Replay is not disturbed by a concurrent purge", func(t *testing.T) {
		journal := newFileJournal(t, t.TempDir())
		payloads := make([]value.Value, 0, 200)
		for i := range 200 {
			payloads = append(payloads, deposit(int64(i)))
		}
		writeEvents(t, journal, "account", payloads...)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for to := uint64(2); to <= 100; to += 2 {
				_ = journal.DeleteEvents(ctx, "account", to)
			}
		}()

		for range 50 {
			var previous uint64
			for event, err := range journal.ReplayEvents(ctx, "account", 0) {
				require.NoError(t, err)
				if previous > 0 {
					require.Equal(t, previous+1, event.SequenceNumber)
				}
				previous = event.SequenceNumber
			}
			require.EqualValues(t, 200, previous)
		}
		wg.Wait()

		events := collect(t, journal, "account", 0)
		require.Len(t, events, 100)
		assert.EqualValues(t, 101, events[0].SequenceNumber)
	})
	t.Run("Replay keeps its handle across a purge", func(t *testing.T) {
		journal := newFileJournal(t, t.TempDir())
		writeEvents(t, journal, "account", deposit(1), deposit(2), deposit(3))

		next, stop := iter.Pull2(journal.ReplayEvents(ctx, "account", 0))
		defer stop()

		event, err, ok := next()
		require.True(t, ok)
		require.NoError(t, err)
		assert.EqualValues(t, 1, event.SequenceNumber)

		require.NoError(t, journal.DeleteEvents(ctx, "account", 3))

		for _, expected := range []uint64{2, 3} {
			event, err, ok = next()
			require.True(t, ok)
			require.NoError(t, err)
			assert.Equal(t, expected, event.SequenceNumber)
		}
		_, _, ok = next()
		assert.False(t, ok)
	})
	t.Run("Actors do not share journals", func(t *testing.T) {
		root := t.TempDir()
		journal := newFileJournal(t, root)
		writeEvents(t, journal, "a", deposit(1))
		writeEvents(t, journal, "b", deposit(1), deposit(2))

		assert.Len(t, collect(t, journal, "a", 0), 1)
		assert.Len(t, collect(t, journal, "b", 0), 2)
		assert.FileExists(t, filepath.Join(root, "a", journalFileName))
		assert.FileExists(t, filepath.Join(root, "b", journalFileName))
	})
	t.Run("Invalid persistence ids", func(t *testing.T) {
		journal := newFileJournal(t, t.TempDir())
		for _, id := range []string{"", ".", "..", "a/b", `a\b`} {
			_, err := journal.GetLatestSequenceNumber(ctx, id)
			require.Error(t, err, id)
		}
	})
	t.Run("Closed journal", func(t *testing.T) {
		journal := NewFileJournal(t.TempDir(), WithoutFsync())
		err := journal.WriteEvents(ctx, "account", NewEvent(1, deposit(1)))
		require.ErrorIs(t, err, errors.ErrJournalClosed)
	})
}

func TestMemoryJournal(t *testing.T) {
	ctx := context.Background()
	journal := NewMemoryJournal()
	require.NoError(t, journal.Connect(ctx))

	writeEvents(t, journal, "account", deposit(100), withdraw(30), deposit(1))
	require.ErrorIs(t, journal.WriteEvents(ctx, "account", NewEvent(9, deposit(1))), ErrSequenceMismatch)

	events := collect(t, journal, "account", 2)
	require.Len(t, events, 2)

	// replayed events are copies
	events[0].Payload.(*value.Variant).Fields[0] = value.Int(0)
	again := collect(t, journal, "account", 2)
	assert.True(t, value.Equal(withdraw(30), again[0].Payload))

	require.NoError(t, journal.DeleteEvents(ctx, "account", 2))
	assert.Len(t, collect(t, journal, "account", 0), 1)
	last, err := journal.GetLatestSequenceNumber(ctx, "account")
	require.NoError(t, err)
	assert.EqualValues(t, 3, last)

	require.NoError(t, journal.Disconnect(ctx))
	_, err = journal.GetLatestSequenceNumber(ctx, "account")
	require.ErrorIs(t, err, errors.ErrJournalClosed)
}

func TestAppend(t *testing.T) {
	ctx := context.Background()
	journal := newFileJournal(t, t.TempDir())

	seq, err := Append(ctx, journal, "account", deposit(100))
	require.NoError(t, err)
	assert.EqualValues(t, 1, seq)

	seq, err = Append(ctx, journal, "account", withdraw(30))
	require.NoError(t, err)
	assert.EqualValues(t, 2, seq)
}

func newFileJournal(t *testing.T, root string) *FileJournal {
	t.Helper()
	journal := NewFileJournal(root)
	require.NoError(t, journal.Connect(context.Background()))
	t.Cleanup(func() { _ = journal.Disconnect(context.Background()) })
	return journal
}

func writeEvents(t *testing.T, journal Journal, persistenceID string, payloads ...value.Value) {
	t.Helper()
	ctx := context.Background()
	last, err := journal.GetLatestSequenceNumber(ctx, persistenceID)
	require.NoError(t, err)

	events := make([]*Event, 0, len(payloads))
	for i, payload := range payloads {
		events = append(events, NewEvent(last+uint64(i)+1, payload))
	}
	require.NoError(t, journal.WriteEvents(ctx, persistenceID, events...))
}

func collect(t *testing.T, journal Journal, persistenceID string, from uint64) []*Event {
	t.Helper()
	var events []*Event
	for event, err := range journal.ReplayEvents(context.Background(), persistenceID, from) {
		require.NoError(t, err)
		events = append(events, event)
	}
	return events
}

func deposit(amount int64) value.Value {
	return value.NewVariant("Deposit", value.Int(amount))
}

func withdraw(amount int64) value.Value {
	return value.NewVariant("Withdraw", value.Int(amount))
}
