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

package main

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	fishbowl "github.com/djinnsour/fishbowl-1"
)

// splitAddress splits host[:port]. A missing port is returned as 0
func splitAddress(address string) (string, uint, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", 0, errors.New("you must specify an address")
	}
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		// No port
		return strings.Trim(address, "[]"), 0, nil
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, uint(port), nil
}

// createClientConnection connects and logs in using the CLI config
func (c *cli) createClientConnection() (*fishbowl.Connection, error) {
	cfg := c.config
	host, port, err := splitAddress(cfg.Address)
	if err != nil {
		return nil, err
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("you must specify a username and password")
	}
	options := []fishbowl.ConnectionOptionFunc{
		fishbowl.WithLogger(c.logger),
		fishbowl.WithTimeout(cfg.Timeout),
		fishbowl.WithDialTimeout(cfg.Timeout),
		fishbowl.WithAppInfo(cfg.AppInfo),
	}
	if cfg.UseTls {
		options = append(
			options,
			fishbowl.WithTLSConfig(&tls.Config{
				ServerName: host,
				MinVersion: tls.VersionTLS12,
			}),
		)
	}
	conn, err := fishbowl.NewConnection(options...)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(host, port); err != nil {
		return nil, err
	}
	if err := conn.Login(cfg.Username, cfg.Password); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// closeConnection logs out and closes the connection
func (c *cli) closeConnection(conn *fishbowl.Connection) {
	if err := conn.Logout(); err != nil {
		c.logger.Warn("logout failed", "error", err)
	}
	if err := conn.Close(); err != nil {
		c.logger.Warn("close failed", "error", err)
	}
}
