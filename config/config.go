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

// Package config loads the runtime configuration from YAML.
//
// A minimal file only names what differs from the defaults:
//
//	journal:
//	  dir: /var/lib/esakt
//	snapshot:
//	  interval: 500
//	  compression: brotli
//	supervisor:
//	  strategy: one-for-all
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tochemey/esakt/compression"
	"github.com/tochemey/esakt/internal/errorschain"
	"github.com/tochemey/esakt/log"
	"github.com/tochemey/esakt/supervisor"
)

// snapshot store kinds
const (
	FileStore   = "file"
	BoltStore   = "bolt"
	MemoryStore = "memory"
)

// Config is the runtime configuration of a System
type Config struct {
	// Name of the System, used as metric attribute
	Name       string     `yaml:"name"`
	Journal    Journal    `yaml:"journal"`
	Snapshot   Snapshot   `yaml:"snapshot"`
	Dispatcher Dispatcher `yaml:"dispatcher"`
	Supervisor Supervisor `yaml:"supervisor"`
	// AskTimeout bounds the runtime requests the System makes on behalf of callers
	AskTimeout time.Duration `yaml:"ask_timeout"`
	// ShutdownTimeout bounds System.Stop
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// CompactionInterval schedules periodic compaction, zero disables it
	CompactionInterval time.Duration `yaml:"compaction_interval"`
	// TombstoneTTL is how long a stopped actor stays registered, zero keeps it forever
	TombstoneTTL time.Duration `yaml:"tombstone_ttl"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`
	// Metrics enables the OpenTelemetry instruments
	Metrics bool `yaml:"metrics"`
}

// Journal configures the file journal
type Journal struct {
	// Dir is the root directory of the actor journals
	Dir string `yaml:"dir"`
	// Fsync syncs every append to stable storage
	Fsync bool `yaml:"fsync"`
	// Purge deletes the journal entries covered by a snapshot
	Purge bool `yaml:"purge"`
}

// Snapshot configures the snapshot store
type Snapshot struct {
	// Store is one of file, bolt or memory
	Store string `yaml:"store"`
	// Interval is the number of events between automatic snapshots, zero disables them
	Interval uint64 `yaml:"interval"`
	// Compression is one of none, zstd or brotli
	Compression string `yaml:"compression"`
	// Terminal writes a snapshot when an actor stops gracefully
	Terminal bool `yaml:"terminal"`
}

// Dispatcher configures message dispatch
type Dispatcher struct {
	// Workers is the size of the worker pool, zero means one per CPU
	Workers int `yaml:"workers"`
	// MailboxCapacity bounds every mailbox, zero means unbounded
	MailboxCapacity int `yaml:"mailbox_capacity"`
}

// Supervisor configures the root supervisor
type Supervisor struct {
	Strategy   string        `yaml:"strategy"`
	MaxRetries uint32        `yaml:"max_retries"`
	Within     time.Duration `yaml:"within"`
	MinBackoff time.Duration `yaml:"min_backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Name: "esakt",
		Journal: Journal{
			Dir:   "./actors",
			Fsync: true,
		},
		Snapshot: Snapshot{
			Store:       FileStore,
			Interval:    100,
			Compression: compression.Zstd.String(),
			Terminal:    true,
		},
		Supervisor: Supervisor{
			Strategy:   supervisor.OneForOneStrategy.String(),
			MaxRetries: supervisor.DefaultMaxRetries,
			Within:     supervisor.DefaultWithin,
			MinBackoff: supervisor.DefaultMinBackoff,
			MaxBackoff: supervisor.DefaultMaxBackoff,
		},
		AskTimeout:      5 * time.Second,
		ShutdownTimeout: time.Minute,
		TombstoneTTL:    10 * time.Minute,
		LogLevel:        log.InfoLevel.String(),
	}
}

// Load reads the configuration file at path
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(content)
}

// Parse decodes a YAML document on top of the defaults and validates it
func Parse(content []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(content, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration and reports every violation
func (c *Config) Validate() error {
	chain := errorschain.New(errorschain.ReturnAll())

	if c.Journal.Dir == "" && c.Snapshot.Store != MemoryStore {
		chain.AddError(fmt.Errorf("journal.dir is required"))
	}

	switch c.Snapshot.Store {
	case FileStore, BoltStore, MemoryStore:
	default:
		chain.AddError(fmt.Errorf("snapshot.store %q is not one of file, bolt, memory", c.Snapshot.Store))
	}

	if _, err := compression.Parse(c.Snapshot.Compression); err != nil {
		chain.AddError(fmt.Errorf("snapshot.compression: %w", err))
	}

	if c.Dispatcher.Workers < 0 {
		chain.AddError(fmt.Errorf("dispatcher.workers must not be negative"))
	}

	if c.Dispatcher.MailboxCapacity < 0 {
		chain.AddError(fmt.Errorf("dispatcher.mailbox_capacity must not be negative"))
	}

	if _, ok := supervisor.ParseStrategy(c.Supervisor.Strategy); !ok {
		chain.AddError(fmt.Errorf("supervisor.strategy %q is unknown", c.Supervisor.Strategy))
	}

	if c.Supervisor.MaxBackoff < c.Supervisor.MinBackoff {
		chain.AddError(fmt.Errorf("supervisor.max_backoff must not be lower than supervisor.min_backoff"))
	}

	if c.AskTimeout <= 0 {
		chain.AddError(fmt.Errorf("ask_timeout must be positive"))
	}

	if c.ShutdownTimeout <= 0 {
		chain.AddError(fmt.Errorf("shutdown_timeout must be positive"))
	}

	if c.CompactionInterval < 0 {
		chain.AddError(fmt.Errorf("compaction_interval must not be negative"))
	}

	if c.TombstoneTTL < 0 {
		chain.AddError(fmt.Errorf("tombstone_ttl must not be negative"))
	}

	if log.ParseLevel(c.LogLevel) == log.InvalidLevel {
		chain.AddError(fmt.Errorf("log_level %q is unknown", c.LogLevel))
	}

	return chain.Error()
}

// Codec returns the snapshot compression codec
func (c *Config) Codec() compression.Codec {
	codec, _ := compression.Parse(c.Snapshot.Compression)
	return codec
}

// RootSupervisor builds the root supervisor described by the configuration
func (c *Config) RootSupervisor() *supervisor.Supervisor {
	strategy, _ := supervisor.ParseStrategy(c.Supervisor.Strategy)
	return supervisor.NewSupervisor(
		supervisor.WithStrategy(strategy),
		supervisor.WithRetry(c.Supervisor.MaxRetries, c.Supervisor.Within),
		supervisor.WithBackoff(c.Supervisor.MinBackoff, c.Supervisor.MaxBackoff),
	)
}
