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
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/internal/xsync"
	"github.com/tochemey/esakt/value"
)

const (
	journalFileName = "journal.bin"
	journalMagic    = "ESAJ"
	journalVersion  = uint16(1)

	// magic(4) | version(2) | reserved(2) | base sequence number(8)
	journalHeaderSize = 16
	// length prefix(4) before the body, checksum(8) after it
	recordOverhead = 12
	// sequence number(8) | unix millis(8)
	recordFixedBody = 16
	maxRecordSize   = 64 << 20
)

// FileJournal is a Journal writing one append-only file per actor under
// {root}/{persistenceID}/journal.bin.
//
// A record is a little endian length prefix followed by the body
// (sequence number, timestamp, encoded payload) and the xxh3 checksum of
// the body. The file header records the base sequence number, the last
// purged event, so that sequence numbers are never reused after a purge.
//
// Recovery is strict: a torn or corrupted record anywhere, including the
// tail, is reported as a JournalCorruptionError.
type FileJournal struct {
	root      string
	fsync     bool
	connected *atomic.Bool
	segments  *xsync.ShardedMap[string, *segment]
}

// segment is the journal of a single actor. Writes to a segment are
// serialized by its own lock, segments never contend with each other.
type segment struct {
	mu   sync.Mutex
	dir  string
	path string
	file *os.File
	base uint64
	last uint64
	size int64
}

var _ Journal = (*FileJournal)(nil)

// FileJournalOption configures a FileJournal
type FileJournalOption func(*FileJournal)

// WithoutFsync skips the fsync after each write.
// Writes survive a process crash but not a machine crash.
func WithoutFsync() FileJournalOption {
	return func(j *FileJournal) {
		j.fsync = false
	}
}

// NewFileJournal creates a FileJournal rooted at the given directory
func NewFileJournal(root string, opts ...FileJournalOption) *FileJournal {
	journal := &FileJournal{
		root:      root,
		fsync:     true,
		connected: atomic.NewBool(false),
		segments:  xsync.NewShardedMap[string, *segment](xxh3.HashString),
	}
	for _, opt := range opts {
		opt(journal)
	}
	return journal
}

// Root returns the journal directory
func (j *FileJournal) Root() string {
	return j.root
}

// Connect creates the journal directory
func (j *FileJournal) Connect(context.Context) error {
	if err := os.MkdirAll(j.root, 0o750); err != nil {
		return errors.NewJournalIOError("", "connect", err)
	}
	j.connected.Store(true)
	return nil
}

// Disconnect closes every open journal file
func (j *FileJournal) Disconnect(context.Context) error {
	if !j.connected.CompareAndSwap(true, false) {
		return nil
	}

	var err error
	for _, seg := range j.segments.Values() {
		seg.mu.Lock()
		err = multierr.Append(err, seg.close())
		seg.mu.Unlock()
	}
	j.segments.Reset()
	return err
}

// WriteEvents durably appends the events to the actor journal.
// The batch is written with a single write and a single fsync; on failure
// the file is truncated back to its previous size.
func (j *FileJournal) WriteEvents(_ context.Context, persistenceID string, events ...*Event) error {
	if len(events) == 0 {
		return nil
	}

	seg, err := j.segment(persistenceID)
	if err != nil {
		return err
	}

	seg.mu.Lock()
	defer seg.mu.Unlock()

	if err := seg.open(persistenceID, true); err != nil {
		return err
	}

	buf := make([]byte, 0, 256*len(events))
	for i, event := range events {
		expected := seg.last + uint64(i) + 1
		if event.SequenceNumber != expected {
			return fmt.Errorf("actor=(%s) got %d, expected %d: %w", persistenceID, event.SequenceNumber, expected, ErrSequenceMismatch)
		}

		buf, err = appendRecord(buf, event)
		if err != nil {
			return err
		}
	}

	if _, err := seg.file.Write(buf); err != nil {
		_ = seg.file.Truncate(seg.size)
		_, _ = seg.file.Seek(seg.size, io.SeekStart)
		return errors.NewJournalIOError(persistenceID, "append", err)
	}

	if j.fsync {
		if err := seg.file.Sync(); err != nil {
			_ = seg.file.Truncate(seg.size)
			_, _ = seg.file.Seek(seg.size, io.SeekStart)
			return errors.NewJournalIOError(persistenceID, "fsync", err)
		}
	}

	seg.size += int64(len(buf))
	seg.last = events[len(events)-1].SequenceNumber
	return nil
}

// ReplayEvents lazily reads the actor journal. Each range opens its own
// read handle and stops at the end of the data committed when it started.
// The handle is opened under the segment lock: a purge replacing the file
// afterwards does not affect a running replay.
func (j *FileJournal) ReplayEvents(_ context.Context, persistenceID string, fromSequenceNumber uint64) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		seg, err := j.segment(persistenceID)
		if err != nil {
			yield(nil, err)
			return
		}

		file, limit, err := seg.openReader(persistenceID)
		if err != nil {
			yield(nil, err)
			return
		}

		if file == nil {
			return
		}
		defer file.Close()

		reader := bufio.NewReaderSize(file, 64*1024)
		base, err := readHeader(reader, persistenceID)
		if err != nil {
			yield(nil, err)
			return
		}

		records := &recordReader{
			reader:        reader,
			persistenceID: persistenceID,
			offset:        journalHeaderSize,
			limit:         limit,
			previous:      base,
		}

		for {
			event, err := records.next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if event.SequenceNumber < fromSequenceNumber {
				continue
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}

// openReader opens a read handle on the segment file together with the size
// of its committed data. The handle is nil when the segment holds no data.
func (s *segment) openReader(persistenceID string) (*os.File, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.open(persistenceID, false); err != nil {
		return nil, 0, err
	}

	if s.size == 0 {
		return nil, 0, nil
	}

	file, err := os.Open(s.path)
	if err != nil {
		return nil, 0, errors.NewJournalIOError(persistenceID, "read", err)
	}
	return file, s.size, nil
}

// GetLatestSequenceNumber returns the sequence number of the last written event
func (j *FileJournal) GetLatestSequenceNumber(_ context.Context, persistenceID string) (uint64, error) {
	seg, err := j.segment(persistenceID)
	if err != nil {
		return 0, err
	}

	seg.mu.Lock()
	defer seg.mu.Unlock()
	if err := seg.open(persistenceID, false); err != nil {
		return 0, err
	}
	return seg.last, nil
}

// Exists reports whether the actor journal holds any history
func (j *FileJournal) Exists(ctx context.Context, persistenceID string) (bool, error) {
	last, err := j.GetLatestSequenceNumber(ctx, persistenceID)
	if err != nil {
		return false, err
	}
	return last > 0, nil
}

// DeleteEvents purges the events up to toSequenceNumber inclusive.
// The remaining records are copied into a fresh file which atomically
// replaces the journal.
func (j *FileJournal) DeleteEvents(_ context.Context, persistenceID string, toSequenceNumber uint64) error {
	seg, err := j.segment(persistenceID)
	if err != nil {
		return err
	}

	seg.mu.Lock()
	defer seg.mu.Unlock()

	if err := seg.open(persistenceID, false); err != nil {
		return err
	}

	toSequenceNumber = min(toSequenceNumber, seg.last)
	if seg.file == nil || toSequenceNumber <= seg.base {
		return nil
	}

	return seg.purge(persistenceID, toSequenceNumber, j.fsync)
}

func (j *FileJournal) segment(persistenceID string) (*segment, error) {
	if !j.connected.Load() {
		return nil, errors.ErrJournalClosed
	}

	if err := validatePersistenceID(persistenceID); err != nil {
		return nil, err
	}

	if seg, ok := j.segments.Load(persistenceID); ok {
		return seg, nil
	}

	dir := filepath.Join(j.root, persistenceID)
	seg, _ := j.segments.LoadOrStore(persistenceID, &segment{
		dir:  dir,
		path: filepath.Join(dir, journalFileName),
	})
	return seg, nil
}

// open loads the segment state from disk. When the file does not exist it
// is only created if create is set. Must be called with the segment lock.
func (s *segment) open(persistenceID string, create bool) error {
	if s.file != nil {
		return nil
	}

	flags := os.O_RDWR
	if create {
		if err := os.MkdirAll(s.dir, 0o750); err != nil {
			return errors.NewJournalIOError(persistenceID, "open", err)
		}
		flags |= os.O_CREATE
	}

	file, err := os.OpenFile(s.path, flags, 0o600)
	if err != nil {
		if os.IsNotExist(err) && !create {
			s.base, s.last, s.size = 0, 0, 0
			return nil
		}
		return errors.NewJournalIOError(persistenceID, "open", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return errors.NewJournalIOError(persistenceID, "stat", err)
	}

	if info.Size() == 0 {
		if err := writeHeader(file, 0); err != nil {
			_ = file.Close()
			return errors.NewJournalIOError(persistenceID, "open", err)
		}
		if err := syncDir(s.dir); err != nil {
			_ = file.Close()
			return errors.NewJournalIOError(persistenceID, "open", err)
		}
		s.file, s.base, s.last, s.size = file, 0, 0, journalHeaderSize
		return nil
	}

	base, last, err := scan(file, persistenceID, info.Size())
	if err != nil {
		_ = file.Close()
		return err
	}

	if _, err := file.Seek(info.Size(), io.SeekStart); err != nil {
		_ = file.Close()
		return errors.NewJournalIOError(persistenceID, "seek", err)
	}

	s.file, s.base, s.last, s.size = file, base, last, info.Size()
	return nil
}

func (s *segment) purge(persistenceID string, toSequenceNumber uint64, fsync bool) error {
	tmp, err := os.CreateTemp(s.dir, journalFileName+".*.tmp")
	if err != nil {
		return errors.NewJournalIOError(persistenceID, "purge", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if err := writeHeader(tmp, toSequenceNumber); err != nil {
		cleanup()
		return errors.NewJournalIOError(persistenceID, "purge", err)
	}

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return errors.NewJournalIOError(persistenceID, "purge", err)
	}

	reader := bufio.NewReader(io.LimitReader(s.file, s.size))
	base, err := readHeader(reader, persistenceID)
	if err != nil {
		cleanup()
		return err
	}

	records := &recordReader{
		reader:        reader,
		persistenceID: persistenceID,
		offset:        journalHeaderSize,
		limit:         s.size,
		previous:      base,
	}

	writer := bufio.NewWriter(tmp)
	size := int64(journalHeaderSize)
	for {
		event, err := records.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			cleanup()
			return err
		}
		if event.SequenceNumber <= toSequenceNumber {
			continue
		}
		record, err := appendRecord(nil, event)
		if err != nil {
			cleanup()
			return err
		}
		if _, err := writer.Write(record); err != nil {
			cleanup()
			return errors.NewJournalIOError(persistenceID, "purge", err)
		}
		size += int64(len(record))
	}

	if err := writer.Flush(); err != nil {
		cleanup()
		return errors.NewJournalIOError(persistenceID, "purge", err)
	}

	if fsync {
		if err := tmp.Sync(); err != nil {
			cleanup()
			return errors.NewJournalIOError(persistenceID, "purge", err)
		}
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return errors.NewJournalIOError(persistenceID, "purge", err)
	}

	_ = s.file.Close()
	s.file = tmp
	s.base = toSequenceNumber
	s.size = size

	if _, err := s.file.Seek(size, io.SeekStart); err != nil {
		return errors.NewJournalIOError(persistenceID, "purge", err)
	}

	if fsync {
		if err := syncDir(s.dir); err != nil {
			return errors.NewJournalIOError(persistenceID, "purge", err)
		}
	}
	return nil
}

func (s *segment) close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// scan validates every record of the file and returns the base and the last sequence numbers
func scan(file *os.File, persistenceID string, size int64) (uint64, uint64, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0, 0, errors.NewJournalIOError(persistenceID, "scan", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	base, err := readHeader(reader, persistenceID)
	if err != nil {
		return 0, 0, err
	}

	records := &recordReader{
		reader:        reader,
		persistenceID: persistenceID,
		offset:        journalHeaderSize,
		limit:         size,
		previous:      base,
	}

	for {
		_, err := records.next()
		if err == io.EOF {
			return base, records.previous, nil
		}
		if err != nil {
			return 0, 0, err
		}
	}
}

type recordReader struct {
	reader        *bufio.Reader
	persistenceID string
	offset        int64
	limit         int64
	previous      uint64
}

// next returns the next record or io.EOF at the limit
func (r *recordReader) next() (*Event, error) {
	if r.offset >= r.limit {
		return nil, io.EOF
	}

	expected := r.previous + 1
	if r.limit-r.offset < 4 {
		return nil, r.corrupted(expected, "truncated record header")
	}

	var prefix [4]byte
	if _, err := io.ReadFull(r.reader, prefix[:]); err != nil {
		return nil, errors.NewJournalIOError(r.persistenceID, "read", err)
	}

	length := int64(binary.LittleEndian.Uint32(prefix[:]))
	if length < recordFixedBody || length > maxRecordSize {
		return nil, r.corrupted(expected, fmt.Sprintf("invalid record length %d at offset %d", length, r.offset))
	}

	if r.limit-r.offset < recordOverhead+length {
		return nil, r.corrupted(expected, fmt.Sprintf("truncated record at offset %d", r.offset))
	}

	record := make([]byte, length+8)
	if _, err := io.ReadFull(r.reader, record); err != nil {
		return nil, errors.NewJournalIOError(r.persistenceID, "read", err)
	}

	body := record[:length]
	if xxh3.Hash(body) != binary.LittleEndian.Uint64(record[length:]) {
		return nil, r.corrupted(expected, fmt.Sprintf("checksum mismatch at offset %d", r.offset))
	}

	sequenceNumber := binary.LittleEndian.Uint64(body[0:8])
	if sequenceNumber != expected {
		return nil, r.corrupted(expected, fmt.Sprintf("out of order record %d at offset %d", sequenceNumber, r.offset))
	}

	payload, err := value.Unmarshal(body[recordFixedBody:])
	if err != nil {
		return nil, r.corrupted(sequenceNumber, err.Error())
	}

	r.offset += recordOverhead + length
	r.previous = sequenceNumber

	return &Event{
		SequenceNumber: sequenceNumber,
		Payload:        payload,
		Timestamp:      time.UnixMilli(int64(binary.LittleEndian.Uint64(body[8:16]))).UTC(),
	}, nil
}

func (r *recordReader) corrupted(sequenceNumber uint64, reason string) error {
	return errors.NewJournalCorruptionError(r.persistenceID, sequenceNumber, reason)
}

func appendRecord(buf []byte, event *Event) ([]byte, error) {
	payload, err := value.Marshal(event.Payload)
	if err != nil {
		return nil, err
	}

	length := recordFixedBody + len(payload)
	if length > maxRecordSize {
		return nil, fmt.Errorf("event %d of %d bytes exceeds the record limit", event.SequenceNumber, length)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(length))
	start := len(buf)
	buf = binary.LittleEndian.AppendUint64(buf, event.SequenceNumber)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(event.Timestamp.UnixMilli()))
	buf = append(buf, payload...)
	return binary.LittleEndian.AppendUint64(buf, xxh3.Hash(buf[start:])), nil
}

func writeHeader(w io.Writer, base uint64) error {
	header := make([]byte, 0, journalHeaderSize)
	header = append(header, journalMagic...)
	header = binary.LittleEndian.AppendUint16(header, journalVersion)
	header = binary.LittleEndian.AppendUint16(header, 0)
	header = binary.LittleEndian.AppendUint64(header, base)
	_, err := w.Write(header)
	return err
}

func readHeader(r io.Reader, persistenceID string) (uint64, error) {
	var header [journalHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return 0, errors.NewJournalCorruptionError(persistenceID, 0, "truncated journal header")
		}
		return 0, errors.NewJournalIOError(persistenceID, "read", err)
	}

	if string(header[:4]) != journalMagic {
		return 0, errors.NewJournalCorruptionError(persistenceID, 0, "not a journal file")
	}

	if version := binary.LittleEndian.Uint16(header[4:6]); version != journalVersion {
		return 0, errors.NewJournalCorruptionError(persistenceID, 0, fmt.Sprintf("unsupported journal version %d", version))
	}

	return binary.LittleEndian.Uint64(header[8:16]), nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

func validatePersistenceID(persistenceID string) error {
	switch {
	case persistenceID == "",
		persistenceID == ".",
		persistenceID == "..",
		strings.ContainsAny(persistenceID, `/\`):
		return fmt.Errorf("invalid persistence id %q", persistenceID)
	default:
		return nil
	}
}
