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

package xsync

import (
	"runtime"
	"sync"
)

const maxShards = 64

type shard[K comparable, V any] struct {
	sync.RWMutex
	m map[K]V
}

// ShardedMap is a concurrent map split into independently locked shards.
// The hasher decides which shard owns a key.
type ShardedMap[K comparable, V any] struct {
	shards []*shard[K, V]
	hasher func(K) uint64
}

// NewShardedMap creates an instance of ShardedMap
func NewShardedMap[K comparable, V any](hasher func(K) uint64) *ShardedMap[K, V] {
	numShards := calculateNumShards()
	shards := make([]*shard[K, V], numShards)
	for i := range numShards {
		shards[i] = &shard[K, V]{m: make(map[K]V)}
	}
	return &ShardedMap[K, V]{shards: shards, hasher: hasher}
}

// Load returns the value of a given key
func (s *ShardedMap[K, V]) Load(key K) (V, bool) {
	shard := s.getShard(key)
	shard.RLock()
	val, ok := shard.m[key]
	shard.RUnlock()
	return val, ok
}

// Store adds a key/value pair to the sharded map
func (s *ShardedMap[K, V]) Store(key K, value V) {
	shard := s.getShard(key)
	shard.Lock()
	shard.m[key] = value
	shard.Unlock()
}

// LoadOrStore returns the existing value for the key if present.
// Otherwise, it stores and returns the given value.
func (s *ShardedMap[K, V]) LoadOrStore(key K, value V) (V, bool) {
	shard := s.getShard(key)
	shard.Lock()
	defer shard.Unlock()
	if existing, ok := shard.m[key]; ok {
		return existing, true
	}
	shard.m[key] = value
	return value, false
}

// Delete removes a given key from the sharded map
func (s *ShardedMap[K, V]) Delete(key K) {
	shard := s.getShard(key)
	shard.Lock()
	delete(shard.m, key)
	shard.Unlock()
}

// DeleteFunc removes the entry of key when f reports true for its value.
// It returns whether the entry was removed.
func (s *ShardedMap[K, V]) DeleteFunc(key K, f func(V) bool) bool {
	shard := s.getShard(key)
	shard.Lock()
	defer shard.Unlock()
	if value, ok := shard.m[key]; ok && f(value) {
		delete(shard.m, key)
		return true
	}
	return false
}

// Len returns the number of entries
func (s *ShardedMap[K, V]) Len() int {
	size := 0
	for _, shard := range s.shards {
		shard.RLock()
		size += len(shard.m)
		shard.RUnlock()
	}
	return size
}

// Range iterates over the entries until f returns false.
// A shard is read-locked while its entries are visited, so f must not
// write to the map.
func (s *ShardedMap[K, V]) Range(f func(key K, value V) bool) {
	for _, shard := range s.shards {
		shard.RLock()
		for k, v := range shard.m {
			if !f(k, v) {
				shard.RUnlock()
				return
			}
		}
		shard.RUnlock()
	}
}

// Values returns a snapshot of the stored values
func (s *ShardedMap[K, V]) Values() []V {
	values := make([]V, 0, s.Len())
	s.Range(func(_ K, v V) bool {
		values = append(values, v)
		return true
	})
	return values
}

// Reset clears the sharded map
func (s *ShardedMap[K, V]) Reset() {
	for _, shard := range s.shards {
		shard.Lock()
		shard.m = make(map[K]V)
		shard.Unlock()
	}
}

func (s *ShardedMap[K, V]) getShard(key K) *shard[K, V] {
	return s.shards[s.hasher(key)%uint64(len(s.shards))]
}

// calculateNumShards returns the total number of shards to use
func calculateNumShards() int {
	optimalShards := runtime.NumCPU() * 4
	if optimalShards > maxShards {
		return maxShards
	}
	return optimalShards
}
