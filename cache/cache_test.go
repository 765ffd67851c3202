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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Capacity: 10, ShardCount: 4, EvictionThresholdPercent: 85}.Validate())
	assert.ErrorIs(t, Config{EvictionThresholdPercent: 100}.Validate(), ErrInvalidThreshold)
	assert.ErrorIs(t, Config{EvictionThresholdPercent: -1}.Validate(), ErrInvalidThreshold)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Capacity: 10, ShardCount: 4, EvictionThresholdPercent: 100})
	assert.Error(t, err)
}

func TestControllerSetGet(t *testing.T) {
	c, err := New(Config{Capacity: 1000, ShardCount: 4, EvictionThresholdPercent: 85})
	require.NoError(t, err)
	defer c.Close()

	c.Set("foo", []byte("bar"), time.Time{})
	v, ok := c.Store().Get("foo", time.Now())
	require.True(t, ok)
	assert.Equal(t, []byte("bar"), v)
}

func TestTrackingIndexSweepExpired(t *testing.T) {
	idx := newTrackingIndex()
	now := time.Now()
	idx.insert("past-1", now.Add(-2*time.Second))
	idx.insert("past-2", now.Add(-time.Second))
	idx.insert("future", now.Add(time.Hour))
	idx.insert("no-ttl", time.Time{})

	assert.Equal(t, 3, idx.len(), "no-ttl entries are never tracked")

	expired := idx.sweepExpired(now)
	assert.ElementsMatch(t, []string{"past-1", "past-2"}, expired)
	assert.Equal(t, 1, idx.len())

	assert.Empty(t, idx.sweepExpired(now), "a second sweep at the same instant finds nothing new")
}

// TestEvictionWorkerSweepsOnThreshold drives the controller past its
// threshold with TTL'd keys and asserts the worker eventually removes the
// expired ones from the store.
func TestEvictionWorkerSweepsOnThreshold(t *testing.T) {
	c, err := New(Config{Capacity: 10, ShardCount: 4, EvictionThresholdPercent: 50})
	require.NoError(t, err)
	defer c.Close()

	past := time.Now().Add(-time.Minute)
	for i := 0; i < 6; i++ {
		c.Set(fmt.Sprintf("k%d", i), []byte("v"), past)
	}

	require.Eventually(t, func() bool {
		return c.Store().Size() == 0
	}, time.Second, time.Millisecond)
}

func TestCloseStopsWorker(t *testing.T) {
	c, err := New(Config{Capacity: 10, ShardCount: 2, EvictionThresholdPercent: 85})
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return: eviction worker failed to observe shutdown")
	}
}
