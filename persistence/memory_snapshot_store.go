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
	"sync"

	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/value"
)

// MemorySnapshotStore keeps the snapshots in memory
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
	connected bool
}

var _ SnapshotStore = (*MemorySnapshotStore)(nil)

// NewMemorySnapshotStore creates an instance of MemorySnapshotStore
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshots: make(map[string]*Snapshot)}
}

// Connect connects the store
func (s *MemorySnapshotStore) Connect(context.Context) error {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return nil
}

// Disconnect disconnects the store, keeping its content
func (s *MemorySnapshotStore) Disconnect(context.Context) error {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	return nil
}

// SaveSnapshot replaces the actor snapshot
func (s *MemorySnapshotStore) SaveSnapshot(_ context.Context, persistenceID string, snapshot *Snapshot) error {
	if err := value.Validate(snapshot.State); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return errors.ErrJournalClosed
	}

	s.snapshots[persistenceID] = &Snapshot{
		SequenceNumber: snapshot.SequenceNumber,
		State:          value.Clone(snapshot.State),
		Timestamp:      snapshot.Timestamp,
	}
	return nil
}

// LoadSnapshot returns a copy of the actor snapshot or nil when there is none
func (s *MemorySnapshotStore) LoadSnapshot(_ context.Context, persistenceID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil, errors.ErrJournalClosed
	}

	snapshot, ok := s.snapshots[persistenceID]
	if !ok {
		return nil, nil
	}
	return &Snapshot{
		SequenceNumber: snapshot.SequenceNumber,
		State:          value.Clone(snapshot.State),
		Timestamp:      snapshot.Timestamp,
	}, nil
}

// DeleteSnapshot removes the actor snapshot
func (s *MemorySnapshotStore) DeleteSnapshot(_ context.Context, persistenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return errors.ErrJournalClosed
	}
	delete(s.snapshots, persistenceID)
	return nil
}
