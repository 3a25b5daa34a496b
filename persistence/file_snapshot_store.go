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
	"os"
	"path/filepath"

	"go.uber.org/atomic"

	"github.com/tochemey/esakt/compression"
	"github.com/tochemey/esakt/errors"
)

const snapshotFileName = "snapshot.bin"

// FileSnapshotStore keeps the latest snapshot of each actor in
// {root}/{persistenceID}/snapshot.bin, next to its journal.
// A snapshot is written to a temporary file and renamed into place.
type FileSnapshotStore struct {
	root      string
	codec     compression.Codec
	connected *atomic.Bool
}

var _ SnapshotStore = (*FileSnapshotStore)(nil)

// NewFileSnapshotStore creates a FileSnapshotStore compressing states with the given codec
func NewFileSnapshotStore(root string, codec compression.Codec) *FileSnapshotStore {
	return &FileSnapshotStore{
		root:      root,
		codec:     codec,
		connected: atomic.NewBool(false),
	}
}

// Connect creates the root directory
func (s *FileSnapshotStore) Connect(context.Context) error {
	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return errors.NewJournalIOError("", "connect", err)
	}
	s.connected.Store(true)
	return nil
}

// Disconnect marks the store closed
func (s *FileSnapshotStore) Disconnect(context.Context) error {
	s.connected.Store(false)
	return nil
}

// SaveSnapshot atomically replaces the actor snapshot
func (s *FileSnapshotStore) SaveSnapshot(_ context.Context, persistenceID string, snapshot *Snapshot) error {
	dir, err := s.dir(persistenceID)
	if err != nil {
		return err
	}

	data, err := encodeSnapshot(snapshot, s.codec)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.NewJournalIOError(persistenceID, "snapshot", err)
	}

	tmp, err := os.CreateTemp(dir, snapshotFileName+".*.tmp")
	if err != nil {
		return errors.NewJournalIOError(persistenceID, "snapshot", err)
	}

	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.NewJournalIOError(persistenceID, "snapshot", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.NewJournalIOError(persistenceID, "snapshot", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.NewJournalIOError(persistenceID, "snapshot", err)
	}

	if err := os.Rename(tmpName, filepath.Join(dir, snapshotFileName)); err != nil {
		_ = os.Remove(tmpName)
		return errors.NewJournalIOError(persistenceID, "snapshot", err)
	}

	if err := syncDir(dir); err != nil {
		return errors.NewJournalIOError(persistenceID, "snapshot", err)
	}
	return nil
}

// LoadSnapshot returns the actor snapshot or nil when there is none
func (s *FileSnapshotStore) LoadSnapshot(_ context.Context, persistenceID string) (*Snapshot, error) {
	dir, err := s.dir(persistenceID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, snapshotFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewJournalIOError(persistenceID, "load snapshot", err)
	}
	return decodeSnapshot(data, persistenceID)
}

// DeleteSnapshot removes the actor snapshot
func (s *FileSnapshotStore) DeleteSnapshot(_ context.Context, persistenceID string) error {
	dir, err := s.dir(persistenceID)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, snapshotFileName)); err != nil && !os.IsNotExist(err) {
		return errors.NewJournalIOError(persistenceID, "delete snapshot", err)
	}
	return nil
}

func (s *FileSnapshotStore) dir(persistenceID string) (string, error) {
	if !s.connected.Load() {
		return "", errors.ErrJournalClosed
	}
	if err := validatePersistenceID(persistenceID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, persistenceID), nil
}
