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
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"
	"go.uber.org/atomic"

	"github.com/tochemey/esakt/compression"
	"github.com/tochemey/esakt/errors"
)

const (
	boltFileMode   os.FileMode = 0o600
	boltBucketName             = "snapshots"
	boltTimeout                = 5 * time.Second
)

// BoltSnapshotStore keeps every actor snapshot in a single bbolt database,
// one key per actor in the snapshots bucket.
//
// bbolt provides single-writer/multi-reader semantics. Only the connected
// state is guarded here.
type BoltSnapshotStore struct {
	path      string
	codec     compression.Codec
	db        *bbolt.DB
	bucket    []byte
	connected *atomic.Bool
}

var _ SnapshotStore = (*BoltSnapshotStore)(nil)

// NewBoltSnapshotStore creates a BoltSnapshotStore backed by the database file at path
func NewBoltSnapshotStore(path string, codec compression.Codec) *BoltSnapshotStore {
	return &BoltSnapshotStore{
		path:      path,
		codec:     codec,
		bucket:    []byte(boltBucketName),
		connected: atomic.NewBool(false),
	}
}

// Connect opens the database and creates the bucket
func (s *BoltSnapshotStore) Connect(context.Context) error {
	if s.connected.Load() {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return errors.NewJournalIOError("", "connect", err)
	}

	db, err := bbolt.Open(s.path, boltFileMode, &bbolt.Options{Timeout: boltTimeout})
	if err != nil {
		return errors.NewJournalIOError("", "connect", fmt.Errorf("opening boltdb: %w", err))
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(s.bucket)
		return e
	}); err != nil {
		_ = db.Close()
		return errors.NewJournalIOError("", "connect", fmt.Errorf("initializing boltdb bucket: %w", err))
	}

	s.db = db
	s.connected.Store(true)
	return nil
}

// Disconnect closes the database
func (s *BoltSnapshotStore) Disconnect(context.Context) error {
	if !s.connected.CompareAndSwap(true, false) {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot replaces the actor snapshot
func (s *BoltSnapshotStore) SaveSnapshot(ctx context.Context, persistenceID string, snapshot *Snapshot) error {
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}

	data, err := encodeSnapshot(snapshot, s.codec)
	if err != nil {
		return err
	}

	if err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("bucket %q missing", s.bucket)
		}
		return bucket.Put([]byte(persistenceID), data)
	}); err != nil {
		return errors.NewJournalIOError(persistenceID, "snapshot", err)
	}
	return nil
}

// LoadSnapshot returns the actor snapshot or nil when there is none
func (s *BoltSnapshotStore) LoadSnapshot(ctx context.Context, persistenceID string) (*Snapshot, error) {
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}

	var data []byte
	if err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("bucket %q missing", s.bucket)
		}
		// the slice is only valid during the transaction
		if raw := bucket.Get([]byte(persistenceID)); raw != nil {
			data = append([]byte(nil), raw...)
		}
		return nil
	}); err != nil {
		return nil, errors.NewJournalIOError(persistenceID, "load snapshot", err)
	}

	if data == nil {
		return nil, nil
	}
	return decodeSnapshot(data, persistenceID)
}

// DeleteSnapshot removes the actor snapshot
func (s *BoltSnapshotStore) DeleteSnapshot(ctx context.Context, persistenceID string) error {
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}

	if err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("bucket %q missing", s.bucket)
		}
		return bucket.Delete([]byte(persistenceID))
	}); err != nil {
		return errors.NewJournalIOError(persistenceID, "delete snapshot", err)
	}
	return nil
}

func (s *BoltSnapshotStore) ensureOpen(ctx context.Context) error {
	if !s.connected.Load() {
		return errors.ErrJournalClosed
	}
	return ctx.Err()
}
