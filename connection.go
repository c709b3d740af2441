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

// Package fishbowl implements a client for the Fishbowl inventory server's
// XML API.
//
// A Connection owns one stream to the server. It logs in to obtain a session
// ticket and then carries strictly sequential request/response round trips,
// each one a length-prefixed XML document. Object builds on a Connection: it
// wraps a request element in an envelope, sends it, checks the status of the
// reply and hands back the response element so that concrete object types
// can hydrate their attributes from it.
//
// Transport and parse failures are returned as errors (ConnectionError,
// ProtocolError, AuthenticationError). A request the server rejects is not an
// error: its status code and message are returned as data, so callers working
// through many objects can keep going.
//
// This package is the main entry point into this library. The envelope,
// attribute and framing packages can be used on their own.
package fishbowl

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/djinnsour/fishbowl-1/envelope"
	"github.com/djinnsour/fishbowl-1/framing"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultPort is the TCP port the Fishbowl server listens on for API clients
const DefaultPort = 28192

const (
	LoginRequestTag   = "LoginRq"
	LoginResponseTag  = "LoginRs"
	LogoutRequestTag  = "LogoutRq"
	LogoutResponseTag = "LogoutRs"
)

// The Connection type is a session with a Fishbowl server. It is safe for concurrent
// use; round trips from different goroutines are serialized because the protocol has
// no way to match replies to requests
type Connection struct {
	conn              net.Conn
	transport         *framing.Transport
	frameConfig       framing.Config
	logger            *slog.Logger
	timeout           time.Duration
	dialTimeout       time.Duration
	tlsConfig         *tls.Config
	successCode       int
	appInfo           AppInfo
	passwordEncoder   PasswordEncoder
	metricsRegisterer prometheus.Registerer
	metrics           *metrics
	// roundTripMutex is held for a whole write+read so frames never interleave
	roundTripMutex sync.Mutex
	// stateMutex guards the fields below
	stateMutex sync.RWMutex
	addr       string
	ticket     string
	loggedIn   bool
}

// NewConnection returns a new Connection object with the specified options. If a connection
// is provided, it is used as the transport immediately
func NewConnection(options ...ConnectionOptionFunc) (*Connection, error) {
	c := &Connection{
		frameConfig:     framing.DefaultConfig(),
		successCode:     StatusSuccess,
		appInfo:         DefaultAppInfo(),
		passwordEncoder: EncodePassword,
	}
	// Apply provided options functions
	for _, option := range options {
		option(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if err := c.frameConfig.Validate(); err != nil {
		return nil, err
	}
	if c.metricsRegisterer != nil {
		m, err := newMetrics(c.metricsRegisterer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		c.metrics = m
	}
	if c.conn != nil {
		if err := c.setupConnection(c.conn); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// New is an alias to NewConnection
func New(options ...ConnectionOptionFunc) (*Connection, error) {
	return NewConnection(options...)
}

// Connect opens a TCP connection to the server. A port of 0 selects DefaultPort
func (c *Connection) Connect(host string, port uint) error {
	if host == "" {
		return &ConnectionError{Op: "connect", Err: ErrMissingHost}
	}
	if port == 0 {
		port = DefaultPort
	}
	return c.Dial("tcp", net.JoinHostPort(host, strconv.FormatUint(uint64(port), 10)))
}

// Dial will establish a connection using the specified protocol and address. These parameters
// are passed to [net.Dial], or [tls.DialWithDialer] when a TLS config was provided. An error
// will be returned if the connection fails or a connection was already established
func (c *Connection) Dial(proto string, address string) error {
	if c.Connected() {
		return &ConnectionError{Op: "dial", Addr: address, Err: ErrAlreadyConnected}
	}
	dialer := &net.Dialer{Timeout: c.dialTimeout}
	var conn net.Conn
	var err error
	if c.tlsConfig != nil {
		conn, err = tls.DialWithDialer(dialer, proto, address, c.tlsConfig)
	} else {
		conn, err = dialer.Dial(proto, address)
	}
	if err != nil {
		return &ConnectionError{Op: "dial", Addr: address, Err: err}
	}
	if err := c.setupConnection(conn); err != nil {
		conn.Close()
		return err
	}
	c.logger.Info("connected to fishbowl server", "address", address)
	return nil
}

// setupConnection wraps the net.Conn in a framed transport
func (c *Connection) setupConnection(conn net.Conn) error {
	transport, err := framing.NewTransport(conn, c.frameConfig)
	if err != nil {
		return &ConnectionError{Op: "connect", Err: err}
	}
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	if c.transport != nil {
		return &ConnectionError{Op: "connect", Err: ErrAlreadyConnected}
	}
	c.conn = conn
	c.transport = transport
	if addr := conn.RemoteAddr(); addr != nil {
		c.addr = addr.String()
	}
	return nil
}

// Login authenticates with the server. On success the returned ticket is stored and used
// for subsequent requests. Missing or rejected credentials return an AuthenticationError.
// Every failed attempt leaves the session logged out
func (c *Connection) Login(username string, password string) error {
	if username == "" || password == "" {
		return &AuthenticationError{Err: ErrMissingCredentials}
	}
	data, err := envelope.BuildBytes("", c.loginPayload(username, password))
	if err != nil {
		return err
	}
	respData, err := c.roundTrip(LoginRequestTag, data, false)
	if err != nil {
		c.metrics.observeResult(LoginRequestTag, ResultError)
		return err
	}
	resp, err := envelope.ParseWithSuccessCode(respData, LoginResponseTag, c.successCode)
	if err != nil {
		// Any earlier ticket is no longer trusted once a login attempt fails
		c.clearSession()
		c.metrics.observeResult(LoginRequestTag, ResultError)
		return &ProtocolError{Op: "login", Err: err}
	}
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	if !c.IsSuccess(resp.StatusCode) {
		c.ticket = ""
		c.loggedIn = false
		c.metrics.observeResult(LoginRequestTag, ResultFailed)
		c.logger.Warn(
			"login rejected",
			"user", username,
			"status_code", resp.StatusCode,
			"status_message", resp.StatusMessage,
		)
		return &AuthenticationError{
			StatusCode:    resp.StatusCode,
			StatusMessage: resp.StatusMessage,
		}
	}
	if resp.Ticket == "" {
		c.ticket = ""
		c.loggedIn = false
		c.metrics.observeResult(LoginRequestTag, ResultError)
		return &ProtocolError{Op: "login", Err: ErrMissingTicket}
	}
	c.ticket = resp.Ticket
	c.loggedIn = true
	c.metrics.observeResult(LoginRequestTag, ResultSuccess)
	c.logger.Info("logged in to fishbowl server", "user", username)
	return nil
}

// Logout ends the session. The ticket is cleared whatever the server replies, and any
// transport error is returned after the session has been cleared
func (c *Connection) Logout() error {
	c.stateMutex.RLock()
	loggedIn, ticket := c.loggedIn, c.ticket
	c.stateMutex.RUnlock()
	if !loggedIn {
		return nil
	}
	defer c.clearSession()
	data, err := envelope.BuildBytes(ticket, envelope.Tag(LogoutRequestTag))
	if err != nil {
		return err
	}
	respData, err := c.roundTrip(LogoutRequestTag, data, false)
	if err != nil {
		return err
	}
	resp, err := envelope.ParseWithSuccessCode(respData, LogoutResponseTag, c.successCode)
	if err != nil {
		c.logger.Debug("ignoring unparsable logout response", "error", err)
		return nil
	}
	c.logger.Info("logged out of fishbowl server", "status_code", resp.StatusCode)
	return nil
}

// Send performs one round trip with an already-built request document and returns the raw
// response document. The session must be logged in
func (c *Connection) Send(data []byte) ([]byte, error) {
	return c.send("", data)
}

func (c *Connection) send(requestTag string, data []byte) ([]byte, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.roundTrip(requestTag, data, true)
}

// ready checks that an authenticated request can be sent
func (c *Connection) ready() error {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	if c.transport == nil {
		return &ConnectionError{Op: "send", Err: ErrNotConnected}
	}
	if !c.loggedIn {
		return ErrNotLoggedIn
	}
	return nil
}

// roundTrip writes one frame and reads the reply while holding the round trip mutex.
// With requireLogin set the session is checked again under that mutex, since a
// concurrent Logout may have ended it while the caller was waiting
func (c *Connection) roundTrip(requestTag string, data []byte, requireLogin bool) ([]byte, error) {
	c.roundTripMutex.Lock()
	defer c.roundTripMutex.Unlock()
	c.stateMutex.RLock()
	transport, addr, loggedIn := c.transport, c.addr, c.loggedIn
	c.stateMutex.RUnlock()
	if transport == nil {
		return nil, &ConnectionError{Op: "send", Err: ErrNotConnected}
	}
	if requireLogin && !loggedIn {
		return nil, ErrNotLoggedIn
	}
	requestId := uuid.NewString()
	logger := c.logger.With("request_id", requestId, "request", requestTag)
	start := time.Now()
	if c.timeout > 0 {
		if err := transport.SetDeadline(start.Add(c.timeout)); err != nil {
			return nil, c.transportFailure(transport, "send", addr, err)
		}
		defer func() {
			_ = transport.SetDeadline(time.Time{})
		}()
	}
	logger.Debug("sending frame", "bytes", len(data))
	if err := transport.WriteFrame(data); err != nil {
		return nil, c.transportFailure(transport, "write", addr, err)
	}
	c.metrics.observeFrame(frameDirectionOut, len(data))
	resp, err := transport.ReadFrame()
	if err != nil {
		return nil, c.transportFailure(transport, "read", addr, err)
	}
	c.metrics.observeFrame(frameDirectionIn, len(resp))
	elapsed := time.Since(start)
	c.metrics.observeRoundTrip(requestTag, elapsed)
	logger.Debug("received frame", "bytes", len(resp), "elapsed", elapsed)
	return resp, nil
}

// transportFailure closes a transport that can no longer be trusted and classifies the error
func (c *Connection) transportFailure(
	transport *framing.Transport,
	op string,
	addr string,
	err error,
) error {
	c.logger.Error("transport failure, closing connection", "op", op, "error", err)
	c.stateMutex.Lock()
	if c.transport == transport {
		c.transport = nil
		c.conn = nil
		c.ticket = ""
		c.loggedIn = false
	}
	c.stateMutex.Unlock()
	_ = transport.Close()
	if errors.Is(err, framing.ErrPayloadTooLarge) ||
		errors.Is(err, framing.ErrEmptyFrame) {
		return &ProtocolError{Op: op, Err: err}
	}
	return &ConnectionError{Op: op, Addr: addr, Err: err}
}

// Close closes the connection and clears the session. It does not log out first
func (c *Connection) Close() error {
	c.stateMutex.Lock()
	transport := c.transport
	c.transport = nil
	c.conn = nil
	c.ticket = ""
	c.loggedIn = false
	c.stateMutex.Unlock()
	if transport == nil {
		return nil
	}
	return transport.Close()
}

func (c *Connection) clearSession() {
	c.stateMutex.Lock()
	c.ticket = ""
	c.loggedIn = false
	c.stateMutex.Unlock()
}

// Ticket returns the current session ticket, or an empty string when logged out
func (c *Connection) Ticket() string {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.ticket
}

// LoggedIn reports whether Login succeeded and the session has not ended since
func (c *Connection) LoggedIn() bool {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.loggedIn
}

// Connected reports whether a transport is open
func (c *Connection) Connected() bool {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.transport != nil
}

// RemoteAddr returns the address of the server, if connected
func (c *Connection) RemoteAddr() string {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.addr
}

// SuccessCode returns the status code treated as success
func (c *Connection) SuccessCode() int {
	return c.successCode
}

// IsSuccess reports whether a status code denotes success
func (c *Connection) IsSuccess(code int) bool {
	return code == c.successCode
}
