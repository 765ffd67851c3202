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

package cache

import (
	"sort"
	"sync"
	"time"
)

// trackingEntry is one (expiresAt, key) pair held by the tracking index.
type trackingEntry struct {
	expiresAt time.Time
	key       string
}

// trackingIndex is a mutex-guarded, expiry-ordered list of keys carrying a
// TTL. It exists purely so the eviction worker can compute "everything
// expired as of now" without scanning every shard.
type trackingIndex struct {
	mu      sync.Mutex
	entries []trackingEntry
}

func newTrackingIndex() *trackingIndex {
	return &trackingIndex{}
}

// insert records that key expires at expiresAt, keeping entries sorted by
// expiry so the sweep can take a prefix instead of scanning the full list.
// A zero expiresAt (no TTL) is never inserted.
func (t *trackingIndex) insert(key string, expiresAt time.Time) {
	if expiresAt.IsZero() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].expiresAt.After(expiresAt)
	})
	t.entries = append(t.entries, trackingEntry{})
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = trackingEntry{expiresAt: expiresAt, key: key}
}

// sweepExpired removes and returns every key whose expiresAt strictly
// precedes now, preserving the ordering invariant for what remains.
func (t *trackingIndex) sweepExpired(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	cut := sort.Search(len(t.entries), func(i int) bool {
		return !t.entries[i].expiresAt.Before(now)
	})
	if cut == 0 {
		return nil
	}
	keys := make([]string, cut)
	for i := 0; i < cut; i++ {
		keys[i] = t.entries[i].key
	}
	remaining := make([]trackingEntry, len(t.entries)-cut)
	copy(remaining, t.entries[cut:])
	t.entries = remaining
	return keys
}

func (t *trackingIndex) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
