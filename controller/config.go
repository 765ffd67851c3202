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

// Package controller wires together the cache, the RESP server, and the
// admin HTTP server into one process, and owns config/logger/metrics setup.
package controller

import "github.com/kvwire/htcached/cache"

// Config is the top-level "cache" config section.
type Config struct {
	Capacity                 int `config:"capacity"`
	ShardCount               int `config:"shardCount"`
	EvictionThresholdPercent int `config:"evictionThresholdPercent"`
}

func (c Config) toCacheConfig() cache.Config {
	return cache.Config{
		Capacity:                 c.Capacity,
		ShardCount:               c.ShardCount,
		EvictionThresholdPercent: c.EvictionThresholdPercent,
	}
}
