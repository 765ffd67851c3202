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
	"sync"
	"time"

	"github.com/kvwire/htcached/internal/fasttime"
	"github.com/kvwire/htcached/logger"
	"github.com/kvwire/htcached/store"
)

// evictionFlag is the mutex+condvar pair the controller signals after a SET
// crosses the threshold, and the worker waits on. shutdown is a second,
// sticky flag: once set, wait returns false immediately, even if a sweep is
// also due, so Close never leaves the goroutine running.
type evictionFlag struct {
	mu       sync.Mutex
	cond     *sync.Cond
	due      bool
	shutdown bool
}

func newEvictionFlag() *evictionFlag {
	f := &evictionFlag{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// signal marks eviction as due and wakes the worker.
func (f *evictionFlag) signal() {
	f.mu.Lock()
	f.due = true
	f.mu.Unlock()
	f.cond.Signal()
}

// stop marks the worker for shutdown and wakes it so it can observe that.
func (f *evictionFlag) stop() {
	f.mu.Lock()
	f.shutdown = true
	f.mu.Unlock()
	f.cond.Signal()
}

// wait blocks until either eviction is due or shutdown was requested. It
// reports whether the worker should keep running.
func (f *evictionFlag) wait() (shouldRun bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for !f.due && !f.shutdown {
		f.cond.Wait()
	}
	if f.shutdown {
		return false
	}
	f.due = false
	return true
}

// evictionWorker drains the tracking index whenever signaled, removing
// every key whose TTL has passed from both the index and the store.
type evictionWorker struct {
	flag  *evictionFlag
	index *trackingIndex
	store *store.Store
	done  chan struct{}
}

func newEvictionWorker(flag *evictionFlag, index *trackingIndex, s *store.Store) *evictionWorker {
	return &evictionWorker{flag: flag, index: index, store: s, done: make(chan struct{})}
}

func (w *evictionWorker) run() {
	defer close(w.done)
	for w.flag.wait() {
		now := time.Unix(fasttime.UnixTimestamp(), 0)
		keys := w.index.sweepExpired(now)
		// A tracked key may have been set again since with a later expiry or
		// none; only keys the store itself reads as expired are removed.
		expired := keys[:0]
		for _, k := range keys {
			if _, live := w.store.Get(k, now); !live {
				expired = append(expired, k)
			}
		}
		if len(expired) == 0 {
			continue
		}
		n := w.store.Delete(expired)
		evictedKeysTotal.Add(float64(n))
		logger.Debugf("cache: eviction worker removed %d of %d expired keys", n, len(expired))
	}
}
