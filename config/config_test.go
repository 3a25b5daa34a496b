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

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/esakt/compression"
	"github.com/tochemey/esakt/supervisor"
)

func TestDefault(t *testing.T) {
	config := Default()
	require.NoError(t, config.Validate())
	assert.Equal(t, "./actors", config.Journal.Dir)
	assert.EqualValues(t, 100, config.Snapshot.Interval)
	assert.True(t, config.Snapshot.Terminal)
	assert.Equal(t, compression.Zstd, config.Codec())
	assert.Equal(t, 10*time.Minute, config.TombstoneTTL)

	root := config.RootSupervisor()
	assert.Equal(t, supervisor.OneForOneStrategy, root.Strategy())
	assert.EqualValues(t, supervisor.DefaultMaxRetries, root.MaxRetries())
}

func TestLoad(t *testing.T) {
	t.Run("With a valid file", func(t *testing.T) {
		config, err := Load(filepath.Join("testdata", "config.yaml"))
		require.NoError(t, err)

		assert.Equal(t, "bank", config.Name)
		assert.Equal(t, "/var/lib/bank", config.Journal.Dir)
		assert.False(t, config.Journal.Fsync)
		assert.True(t, config.Journal.Purge)
		assert.Equal(t, BoltStore, config.Snapshot.Store)
		assert.EqualValues(t, 500, config.Snapshot.Interval)
		assert.Equal(t, compression.Brotli, config.Codec())
		// keys absent from the file keep their default
		assert.True(t, config.Snapshot.Terminal)
		assert.Equal(t, time.Minute, config.ShutdownTimeout)

		assert.Equal(t, 8, config.Dispatcher.Workers)
		assert.Equal(t, 1024, config.Dispatcher.MailboxCapacity)
		assert.Equal(t, 2*time.Second, config.AskTimeout)
		assert.Equal(t, 10*time.Minute, config.CompactionInterval)
		assert.Equal(t, "debug", config.LogLevel)
		assert.True(t, config.Metrics)

		root := config.RootSupervisor()
		assert.Equal(t, supervisor.RestForOneStrategy, root.Strategy())
		assert.EqualValues(t, 5, root.MaxRetries())
		assert.Equal(t, 30*time.Second, root.Within())
	})
	t.Run("With a missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func TestParse(t *testing.T) {
	t.Run("With malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("journal: ["))
		require.Error(t, err)
	})
	t.Run("With every violation reported", func(t *testing.T) {
		content := []byte(`
snapshot:
  store: s3
  compression: lz4
dispatcher:
  workers: -1
supervisor:
  strategy: all-for-none
ask_timeout: 0s
tombstone_ttl: -1s
log_level: loud
`)
		_, err := Parse(content)
		require.Error(t, err)
		for _, fragment := range []string{"snapshot.store", "snapshot.compression", "dispatcher.workers", "supervisor.strategy", "ask_timeout", "tombstone_ttl", "log_level"} {
			assert.Contains(t, err.Error(), fragment)
		}
	})
	t.Run("Memory store does not need a directory", func(t *testing.T) {
		config, err := Parse([]byte("journal:\n  dir: \"\"\nsnapshot:\n  store: memory\n"))
		require.NoError(t, err)
		assert.Equal(t, MemoryStore, config.Snapshot.Store)
	})
}
