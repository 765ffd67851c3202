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

package common

const (
	// App is the application name reported in build info and metrics.
	App = "htcached"

	// Version is the application version reported by the CLI. GetBuildInfo
	// does not read it: it reports the separate values stamped in via
	// -ldflags at link time, which are empty when none were given.
	Version = "v0.1.0"

	// InitialReadBufferSize is the starting capacity of a connection's read
	// buffer. It grows as needed; this is just a reasonable first allocation.
	InitialReadBufferSize = 4096
)
