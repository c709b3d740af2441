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
	"errors"
	"fmt"
)

var (
	ErrNotConnected       = errors.New("not connected")
	ErrAlreadyConnected   = errors.New("a connection was already established")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrMissingHost        = errors.New("no host specified")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrMissingTicket      = errors.New("login response did not include a ticket")
	ErrMissingResponse    = errors.New("response did not include the expected element")
)

// ConnectionError is returned when the server cannot be reached or the connection
// breaks during a round trip. The call is not retried
type ConnectionError struct {
	Op   string
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("fishbowl: %s %s: %s", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("fishbowl: %s: %s", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// AuthenticationError is returned when the server rejects a login, or when Login is
// called without credentials. In the latter case Err is set and no request is sent
type AuthenticationError struct {
	StatusCode    int
	StatusMessage string
	Err           error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fishbowl: login: %s", e.Err)
	}
	msg := e.StatusMessage
	if msg == "" {
		msg = StatusText(e.StatusCode)
	}
	return fmt.Sprintf("fishbowl: login rejected with status %d: %s", e.StatusCode, msg)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when a response cannot be understood
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("fishbowl: protocol error during %s: %s", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
