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

// Package respserver is the RESP TCP front end: it accepts connections and
// hands each one to its own goroutine running the decode/dispatch/reply
// loop in connection.go.
package respserver

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/kvwire/htcached/cache"
	"github.com/kvwire/htcached/confengine"
	"github.com/kvwire/htcached/logger"
)

// Config describes the RESP TCP server's bind address.
type Config struct {
	BindAddress string `config:"bindAddress"`
}

// Server accepts RESP connections and dispatches commands against a shared
// cache.Controller. Unlike the admin server, this one always runs: it is
// the reason the process exists.
type Server struct {
	config     Config
	controller *cache.Controller

	listener net.Listener
	wg       sync.WaitGroup
	active   atomic.Int64
}

// New builds a Server from the "server" config section.
func New(conf *confengine.Config, controller *cache.Controller) (*Server, error) {
	var config Config
	if err := conf.UnpackChild("server", &config); err != nil {
		return nil, err
	}
	return &Server{config: config, controller: controller}, nil
}

// ActiveConnections reports how many connections are currently being served.
func (s *Server) ActiveConnections() int64 {
	return s.active.Load()
}

// ListenAndServe binds the configured address and accepts connections until
// the listener is closed by Shutdown.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.BindAddress)
	if err != nil {
		return err
	}
	s.listener = l
	logger.Infof("respserver listening on %s", s.config.BindAddress)

	for {
		conn, err := l.Accept()
		if err != nil {
			if isClosedErr(err) {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		s.active.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.active.Add(-1)
			newConnection(conn, s.controller).serve()
		}()
	}
}

// Shutdown stops accepting new connections and waits for in-flight ones to
// finish their current command before returning.
func (s *Server) Shutdown() error {
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

func isClosedErr(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr) && netErr.Err.Error() == "use of closed network connection"
}
