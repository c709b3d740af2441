// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fishbowl

import (
	"crypto/tls"
	"log/slog"
	"net"
	"time"

	"github.com/djinnsour/fishbowl-1/framing"
	"github.com/prometheus/client_golang/prometheus"
)

// ConnectionOptionFunc is a type that represents functions that modify the Connection config
type ConnectionOptionFunc func(*Connection)

// WithConnection specifies an existing connection to use. If none is provided, the Connect()
// or Dial() functions can be used to create one later
func WithConnection(conn net.Conn) ConnectionOptionFunc {
	return func(c *Connection) {
		c.conn = conn
	}
}

// WithLogger specifies the logger to use. slog.Default() is used if none is provided
func WithLogger(logger *slog.Logger) ConnectionOptionFunc {
	return func(c *Connection) {
		c.logger = logger
	}
}

// WithTimeout specifies the time allowed for a whole round trip. Zero disables the deadline
func WithTimeout(timeout time.Duration) ConnectionOptionFunc {
	return func(c *Connection) {
		c.timeout = timeout
	}
}

// WithDialTimeout specifies the timeout used when establishing the connection
func WithDialTimeout(timeout time.Duration) ConnectionOptionFunc {
	return func(c *Connection) {
		c.dialTimeout = timeout
	}
}

// WithTLSConfig makes Dial and Connect use TLS with the provided config
func WithTLSConfig(config *tls.Config) ConnectionOptionFunc {
	return func(c *Connection) {
		c.tlsConfig = config
	}
}

// WithSuccessCode overrides the status code treated as success
func WithSuccessCode(code int) ConnectionOptionFunc {
	return func(c *Connection) {
		c.successCode = code
	}
}

// WithFrameConfig overrides the length prefix used to frame messages
func WithFrameConfig(config framing.Config) ConnectionOptionFunc {
	return func(c *Connection) {
		c.frameConfig = config
	}
}

// WithAppInfo specifies the integrated application identity sent at login
func WithAppInfo(info AppInfo) ConnectionOptionFunc {
	return func(c *Connection) {
		c.appInfo = info
	}
}

// WithPasswordEncoder overrides how the password is encoded in the login request
func WithPasswordEncoder(encoder PasswordEncoder) ConnectionOptionFunc {
	return func(c *Connection) {
		c.passwordEncoder = encoder
	}
}

// WithMetricsRegisterer enables request metrics on the provided registerer
func WithMetricsRegisterer(registerer prometheus.Registerer) ConnectionOptionFunc {
	return func(c *Connection) {
		c.metricsRegisterer = registerer
	}
}
