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
	"sync"

	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/value"
)

type memoryLog struct {
	base   uint64
	events []*Event
}

// MemoryJournal keeps every journal in memory.
// It is meant for tests and for actors that do not need to outlive the process.
type MemoryJournal struct {
	mu        sync.RWMutex
	logs      map[string]*memoryLog
	connected bool
}

var _ Journal = (*MemoryJournal)(nil)

// NewMemoryJournal creates an instance of MemoryJournal
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{logs: make(map[string]*memoryLog)}
}

// Connect connects to the journal
func (m *MemoryJournal) Connect(context.Context) error {
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	return nil
}

// Disconnect disconnects the journal. The events are kept so that a
// reconnected journal still serves them.
func (m *MemoryJournal) Disconnect(context.Context) error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

// WriteEvents appends the events to the actor log
func (m *MemoryJournal) WriteEvents(_ context.Context, persistenceID string, events ...*Event) error {
	copies := make([]*Event, 0, len(events))
	for _, event := range events {
		if err := value.Validate(event.Payload); err != nil {
			return err
		}
		copies = append(copies, &Event{
			SequenceNumber: event.SequenceNumber,
			Payload:        value.Clone(event.Payload),
			Timestamp:      event.Timestamp,
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return errors.ErrJournalClosed
	}

	log, ok := m.logs[persistenceID]
	if !ok {
		log = &memoryLog{}
		m.logs[persistenceID] = log
	}

	last := log.last()
	for i, event := range copies {
		if expected := last + uint64(i) + 1; event.SequenceNumber != expected {
			return fmt.Errorf("actor=(%s) got %d, expected %d: %w", persistenceID, event.SequenceNumber, expected, ErrSequenceMismatch)
		}
	}

	log.events = append(log.events, copies...)
	return nil
}

// ReplayEvents yields copies of the actor events from the given sequence number
func (m *MemoryJournal) ReplayEvents(_ context.Context, persistenceID string, fromSequenceNumber uint64) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		m.mu.RLock()
		if !m.connected {
			m.mu.RUnlock()
			yield(nil, errors.ErrJournalClosed)
			return
		}
		var events []*Event
		if log, ok := m.logs[persistenceID]; ok {
			events = append(events, log.events...)
		}
		m.mu.RUnlock()

		for _, event := range events {
			if event.SequenceNumber < fromSequenceNumber {
				continue
			}
			copied := &Event{
				SequenceNumber: event.SequenceNumber,
				Payload:        value.Clone(event.Payload),
				Timestamp:      event.Timestamp,
			}
			if !yield(copied, nil) {
				return
			}
		}
	}
}

// GetLatestSequenceNumber returns the sequence number of the last written event
func (m *MemoryJournal) GetLatestSequenceNumber(_ context.Context, persistenceID string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return 0, errors.ErrJournalClosed
	}
	if log, ok := m.logs[persistenceID]; ok {
		return log.last(), nil
	}
	return 0, nil
}

// DeleteEvents purges the events up to toSequenceNumber inclusive
func (m *MemoryJournal) DeleteEvents(_ context.Context, persistenceID string, toSequenceNumber uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return errors.ErrJournalClosed
	}

	log, ok := m.logs[persistenceID]
	if !ok {
		return nil
	}

	toSequenceNumber = min(toSequenceNumber, log.last())
	if toSequenceNumber <= log.base {
		return nil
	}

	kept := log.events[:0:0]
	for _, event := range log.events {
		if event.SequenceNumber > toSequenceNumber {
			kept = append(kept, event)
		}
	}
	log.events = kept
	log.base = toSequenceNumber
	return nil
}

// Exists reports whether the actor has any persisted event
func (m *MemoryJournal) Exists(ctx context.Context, persistenceID string) (bool, error) {
	last, err := m.GetLatestSequenceNumber(ctx, persistenceID)
	return last > 0, err
}

func (l *memoryLog) last() uint64 {
	if len(l.events) == 0 {
		return l.base
	}
	return l.events[len(l.events)-1].SequenceNumber
}
