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

// Package compression holds the codecs used to store snapshots.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Codec identifies a compression algorithm. The numeric value is
// persisted in snapshot headers and must never change.
type Codec uint8

const (
	// None stores the payload as-is
	None Codec = iota
	// Zstd is the Zstandard algorithm
	Zstd
	// Brotli is the Brotli algorithm
	Brotli
)

// String returns the codec name
func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case Zstd:
		return "zstd"
	case Brotli:
		return "brotli"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// Parse returns the codec with the given name
func Parse(name string) (Codec, error) {
	switch name {
	case "", "none":
		return None, nil
	case "zstd":
		return Zstd, nil
	case "brotli", "br":
		return Brotli, nil
	default:
		return None, fmt.Errorf("unknown compression %q", name)
	}
}

// Compress compresses data with the codec
func (c Codec) Compress(data []byte) ([]byte, error) {
	switch c {
	case None:
		return data, nil
	case Zstd:
		return zstdEncoder().EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case Brotli:
		return brotliCompress(data)
	default:
		return nil, fmt.Errorf("unsupported %s", c)
	}
}

// Decompress reverses Compress
func (c Codec) Decompress(data []byte) ([]byte, error) {
	switch c {
	case None:
		return data, nil
	case Zstd:
		decoder, err := zstdDecoder()
		if err != nil {
			return nil, err
		}
		return decoder.DecodeAll(data, nil)
	case Brotli:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("unsupported %s", c)
	}
}

var (
	zstdOnce    sync.Once
	zstdEnc     *zstd.Encoder
	zstdDec     *zstd.Decoder
	zstdInitErr error
)

// EncodeAll and DecodeAll are safe for concurrent use, a single
// encoder and decoder serve every snapshot.
func initZstd() {
	zstdEnc, zstdInitErr = zstd.NewWriter(nil)
	if zstdInitErr != nil {
		return
	}
	zstdDec, zstdInitErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
}

func zstdEncoder() *zstd.Encoder {
	zstdOnce.Do(initZstd)
	if zstdEnc == nil {
		enc, _ := zstd.NewWriter(nil)
		return enc
	}
	return zstdEnc
}

func zstdDecoder() (*zstd.Decoder, error) {
	zstdOnce.Do(initZstd)
	if zstdDec == nil {
		return nil, fmt.Errorf("zstd decoder: %w", zstdInitErr)
	}
	return zstdDec, nil
}

var brotliWriters = sync.Pool{
	New: func() any {
		return brotli.NewWriterLevel(nil, brotli.DefaultCompression)
	},
}

func brotliCompress(data []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	writer := brotliWriters.Get().(*brotli.Writer)
	writer.Reset(buf)
	defer func() {
		writer.Reset(nil)
		brotliWriters.Put(writer)
	}()

	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
