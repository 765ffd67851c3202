// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// ErrInvalidShardCount is returned by New when shardCount is not a power of two.
var ErrInvalidShardCount = errors.New("store: shard count must be a power of two")

// Store is a sharded, concurrent key/value map. Keys are distributed across
// a fixed number of shards by the low bits of their xxhash sum, so that
// unrelated keys rarely contend on the same lock.
type Store struct {
	shards []*shard
	mask   uint64
	size   atomic.Int64
}

// New builds a Store with shardCount shards. shardCount must be a power of
// two so that hash&mask is a uniform substitute for hash%shardCount.
func New(shardCount int) (*Store, error) {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		return nil, errors.Wrapf(ErrInvalidShardCount, "got %d", shardCount)
	}
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = newShard()
	}
	return &Store{shards: shards, mask: uint64(shardCount - 1)}, nil
}

// ShardCount returns the number of shards the Store was built with.
func (s *Store) ShardCount() int {
	return len(s.shards)
}

// shardFor returns the shard responsible for key.
func (s *Store) shardFor(key string) *shard {
	h := xxhash.Sum64String(key)
	return s.shards[h&s.mask]
}

// shardIndexFor reports which shard index is responsible for key. Delete uses
// it to group keys by shard.
func (s *Store) shardIndexFor(key string) int {
	return int(xxhash.Sum64String(key) & s.mask)
}

// Get returns the value stored under key and whether it is present. A
// present-but-expired entry is treated as absent; expiry is evaluated
// lazily here as well as proactively by the eviction worker.
func (s *Store) Get(key string, now time.Time) ([]byte, bool) {
	e, ok := s.shardFor(key).get(key)
	if !ok {
		return nil, false
	}
	if e.HasExpiry() && !e.ExpiresAt.After(now) {
		return nil, false
	}
	return e.Value, true
}

// Set inserts or replaces key. A zero expiresAt means the key never expires.
func (s *Store) Set(key string, value []byte, expiresAt time.Time) {
	if s.shardFor(key).set(key, Entry{Value: value, ExpiresAt: expiresAt}) {
		s.size.Add(1)
	}
}

// Delete removes every key in keys that is present and returns how many were
// actually removed. Keys are grouped by shard first so that each shard's
// lock is acquired at most once, regardless of how many of the input keys
// land in it.
func (s *Store) Delete(keys []string) int {
	byShard := make(map[int][]string)
	for _, k := range keys {
		idx := s.shardIndexFor(k)
		byShard[idx] = append(byShard[idx], k)
	}

	total := 0
	for idx, ks := range byShard {
		n := s.shards[idx].deleteMany(ks)
		total += n
	}
	if total > 0 {
		s.size.Add(-int64(total))
	}
	return total
}

// Size returns the current number of keys across all shards. This count
// includes not-yet-evicted expired keys, matching the tracking index's view
// until the eviction worker catches up.
func (s *Store) Size() int {
	return int(s.size.Load())
}

// ShardLen returns the number of keys held directly by shard idx, bypassing
// the aggregate counter. Used by tests asserting distribution properties.
func (s *Store) ShardLen(idx int) int {
	return s.shards[idx].len()
}
