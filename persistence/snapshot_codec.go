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
	"encoding/binary"
	"fmt"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/tochemey/esakt/compression"
	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/value"
)

const (
	snapshotMagic   = "ESAS"
	snapshotVersion = uint16(1)
	// magic(4) | version(2) | codec(1) | reserved(1) | sequence number(8) | unix millis(8) | checksum(8)
	snapshotHeaderSize = 32
)

// encodeSnapshot serializes a snapshot. The checksum covers the header
// fields and the compressed state.
func encodeSnapshot(snapshot *Snapshot, codec compression.Codec) ([]byte, error) {
	state, err := value.Marshal(snapshot.State)
	if err != nil {
		return nil, err
	}

	payload, err := codec.Compress(state)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, snapshotHeaderSize+len(payload))
	buf = append(buf, snapshotMagic...)
	buf = binary.LittleEndian.AppendUint16(buf, snapshotVersion)
	buf = append(buf, byte(codec), 0)
	buf = binary.LittleEndian.AppendUint64(buf, snapshot.SequenceNumber)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(snapshot.Timestamp.UnixMilli()))
	buf = binary.LittleEndian.AppendUint64(buf, snapshotChecksum(buf, payload))
	return append(buf, payload...), nil
}

func decodeSnapshot(data []byte, persistenceID string) (*Snapshot, error) {
	if len(data) < snapshotHeaderSize || string(data[:4]) != snapshotMagic {
		return nil, errors.NewJournalCorruptionError(persistenceID, 0, "invalid snapshot header")
	}

	if version := binary.LittleEndian.Uint16(data[4:6]); version != snapshotVersion {
		return nil, errors.NewJournalCorruptionError(persistenceID, 0, fmt.Sprintf("unsupported snapshot version %d", version))
	}

	sequenceNumber := binary.LittleEndian.Uint64(data[8:16])
	payload := data[snapshotHeaderSize:]
	if snapshotChecksum(data[:24], payload) != binary.LittleEndian.Uint64(data[24:32]) {
		return nil, errors.NewJournalCorruptionError(persistenceID, sequenceNumber, "snapshot checksum mismatch")
	}

	codec := compression.Codec(data[6])
	state, err := codec.Decompress(payload)
	if err != nil {
		return nil, errors.NewJournalCorruptionError(persistenceID, sequenceNumber, fmt.Sprintf("snapshot %s: %v", codec, err))
	}

	decoded, err := value.Unmarshal(state)
	if err != nil {
		return nil, errors.NewJournalCorruptionError(persistenceID, sequenceNumber, err.Error())
	}

	return &Snapshot{
		SequenceNumber: sequenceNumber,
		State:          decoded,
		Timestamp:      time.UnixMilli(int64(binary.LittleEndian.Uint64(data[16:24]))).UTC(),
	}, nil
}

func snapshotChecksum(header, payload []byte) uint64 {
	hasher := xxh3.New()
	_, _ = hasher.Write(header[:24])
	_, _ = hasher.Write(payload)
	return hasher.Sum64()
}
