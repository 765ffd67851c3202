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
	"time"

	"github.com/kvwire/htcached/store"
)

// Controller enforces capacity on top of a Store: every Set checks whether
// the store has crossed the configured threshold and, if so, wakes the
// eviction worker to sweep expired keys.
type Controller struct {
	cfg    Config
	store  *store.Store
	index  *trackingIndex
	flag   *evictionFlag
	worker *evictionWorker
}

// New validates cfg, builds the Store, tracking index, eviction flag, and
// spawns the eviction worker goroutine.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := store.New(cfg.ShardCount)
	if err != nil {
		return nil, err
	}

	index := newTrackingIndex()
	flag := newEvictionFlag()
	worker := newEvictionWorker(flag, index, s)
	go worker.run()

	return &Controller{cfg: cfg, store: s, index: index, flag: flag, worker: worker}, nil
}

// Store returns the underlying Store for direct Get/Delete access.
func (c *Controller) Store() *store.Store {
	return c.store
}

// Set writes key/value, optionally with an expiry, into the store, records
// the expiry in the tracking index, and signals eviction if the store has
// crossed its configured threshold.
func (c *Controller) Set(key string, value []byte, expiresAt time.Time) {
	c.store.Set(key, value, expiresAt)
	c.index.insert(key, expiresAt)

	if c.store.Size() >= c.cfg.thresholdCount() {
		c.flag.signal()
	}
}

// Close requests the eviction worker to stop and blocks until it has
// exited cleanly.
func (c *Controller) Close() {
	c.flag.stop()
	<-c.worker.done
}
