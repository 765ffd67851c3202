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

package controller

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kvwire/htcached/cache"
	"github.com/kvwire/htcached/common"
	"github.com/kvwire/htcached/confengine"
	"github.com/kvwire/htcached/internal/sigs"
	"github.com/kvwire/htcached/logger"
	"github.com/kvwire/htcached/respserver"
	"github.com/kvwire/htcached/server"
)

// Controller owns every long-lived component of the process: the cache, the
// RESP front end, and the admin HTTP server.
type Controller struct {
	buildInfo common.BuildInfo

	cache *cache.Controller
	resp  *respserver.Server
	admin *server.Server
}

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}

	if opts.Filename == "" {
		opts.Filename = "htcached.log"
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 10
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}

	logger.SetOptions(opts)
	return nil
}

// New loads the "cache" config section, builds the cache controller, the
// RESP TCP server, and the admin HTTP server.
func New(conf *confengine.Config, buildInfo common.BuildInfo) (*Controller, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	var cfg Config
	if err := conf.UnpackChild("cache", &cfg); err != nil {
		return nil, err
	}

	cc, err := cache.New(cfg.toCacheConfig())
	if err != nil {
		return nil, err
	}

	rs, err := respserver.New(conf, cc)
	if err != nil {
		cc.Close()
		return nil, err
	}

	admin, err := server.New(conf)
	if err != nil {
		cc.Close()
		return nil, err
	}

	return &Controller{buildInfo: buildInfo, cache: cc, resp: rs, admin: admin}, nil
}

// Start registers admin routes and launches the RESP and admin servers in
// background goroutines.
func (c *Controller) Start() error {
	if c.admin != nil {
		c.setupAdminRoutes()
		go func() {
			if err := c.admin.ListenAndServe(); err != nil {
				logger.Errorf("admin server stopped: %v", err)
			}
		}()
	}

	go func() {
		if err := c.resp.ListenAndServe(); err != nil {
			logger.Errorf("resp server stopped: %v", err)
		}
	}()
	return nil
}

func (c *Controller) setupAdminRoutes() {
	c.admin.RegisterGetRoute("/metrics", func(w http.ResponseWriter, r *http.Request) {
		c.recordMetrics()
		promhttp.Handler().ServeHTTP(w, r)
	})
	c.admin.RegisterPostRoute("/-/logger", func(w http.ResponseWriter, r *http.Request) {
		logger.SetLoggerLevel(r.FormValue("level"))
		w.Write([]byte(`{"status": "success"}`))
	})
	c.admin.RegisterPostRoute("/-/reload", func(w http.ResponseWriter, r *http.Request) {
		if err := sigs.SelfReload(); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(err.Error()))
			return
		}
	})
}

func (c *Controller) recordMetrics() {
	uptime.Set(float64(time.Now().Unix() - common.Started()))
	buildInfo.WithLabelValues(c.buildInfo.Version, c.buildInfo.GitHash, c.buildInfo.Time).Inc()
	activeConnections.Set(float64(c.resp.ActiveConnections()))
	storeSize.Set(float64(c.cache.Store().Size()))
}

// Reload is a no-op beyond logging: the cache and server configuration are
// fixed at construction time, unlike the admin server's log level.
func (c *Controller) Reload(conf *confengine.Config) error {
	logger.Infof("reload requested; cache and server configuration are immutable after Start")
	return nil
}

// Stop shuts down the RESP server, the admin server, and the cache
// controller, aggregating any errors encountered along the way.
func (c *Controller) Stop() error {
	var result *multierror.Error
	if err := c.resp.Shutdown(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.admin != nil {
		if err := c.admin.Shutdown(nil); err != nil {
			result = multierror.Append(result, err)
		}
	}
	c.cache.Close()
	return result.ErrorOrNil()
}
