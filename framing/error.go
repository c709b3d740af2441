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

package framing

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

var (
	ErrInvalidConfig   = errors.New("framing: invalid config")
	ErrPayloadTooLarge = errors.New("framing: payload too large")
	ErrEmptyFrame      = errors.New("framing: zero-length frame")
	ErrTransportClosed = errors.New("framing: transport closed")
)

// ConnectionClosedError is returned when the underlying connection is closed or
// broken while a frame is being written or reconstructed
type ConnectionClosedError struct {
	Op  string
	Err error
}

func (e *ConnectionClosedError) Error() string {
	return fmt.Sprintf("framing: connection closed during %s: %s", e.Op, e.Err)
}

func (e *ConnectionClosedError) Unwrap() error {
	return e.Err
}

// isConnectionClosed reports whether err means the peer went away
func isConnectionClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

func wrapIOError(op string, err error) error {
	if isConnectionClosed(err) {
		return &ConnectionClosedError{Op: op, Err: err}
	}
	return fmt.Errorf("framing: %s: %w", op, err)
}
