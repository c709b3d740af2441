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
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Transport reads and writes whole frames on a net.Conn
type Transport struct {
	conn      net.Conn
	config    Config
	sendMutex sync.Mutex
	recvMutex sync.Mutex
	onceClose sync.Once
	closed    chan struct{}
}

// NewTransport returns a Transport for the provided connection
func NewTransport(conn net.Conn, cfg Config) (*Transport, error) {
	if conn == nil {
		return nil, fmt.Errorf("%w: nil connection", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Transport{
		conn:   conn,
		config: cfg,
		closed: make(chan struct{}),
	}
	return t, nil
}

// WriteFrame sends the payload as one complete frame
func (t *Transport) WriteFrame(payload []byte) error {
	if t.isClosed() {
		return ErrTransportClosed
	}
	data, err := Encode(t.config, payload)
	if err != nil {
		return err
	}
	// We use a mutex to make sure frames from different callers are never interleaved
	t.sendMutex.Lock()
	defer t.sendMutex.Unlock()
	if _, err := t.conn.Write(data); err != nil {
		return wrapIOError("write", err)
	}
	return nil
}

// ReadFrame blocks until one complete frame has been received and returns its payload
func (t *Transport) ReadFrame() ([]byte, error) {
	if t.isClosed() {
		return nil, ErrTransportClosed
	}
	t.recvMutex.Lock()
	defer t.recvMutex.Unlock()
	header := make([]byte, t.config.HeaderLength())
	// We use ReadFull because it guarantees to read the expected number of bytes or
	// return an error
	if _, err := io.ReadFull(t.conn, header); err != nil {
		return nil, wrapIOError("read header", err)
	}
	length, err := DecodeLength(t.config, header)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, ErrEmptyFrame
	}
	if length > t.config.MaxPayloadLength {
		return nil, fmt.Errorf(
			"%w: peer announced %d bytes, limit is %d",
			ErrPayloadTooLarge,
			length,
			t.config.MaxPayloadLength,
		)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(t.conn, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, wrapIOError("read payload", err)
	}
	return payload, nil
}

// SetDeadline sets the read and write deadline on the underlying connection. A zero
// value disables the deadline
func (t *Transport) SetDeadline(deadline time.Time) error {
	return t.conn.SetDeadline(deadline)
}

// Close closes the underlying connection. It is safe to call more than once
func (t *Transport) Close() error {
	var err error
	t.onceClose.Do(func() {
		close(t.closed)
		err = t.conn.Close()
	})
	return err
}

func (t *Transport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}
