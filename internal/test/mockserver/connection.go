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

// Package mockserver provides a net.Conn whose far side plays a scripted
// conversation with a Fishbowl client
package mockserver

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/djinnsour/fishbowl-1/envelope"
	"github.com/djinnsour/fishbowl-1/framing"
)

// Connection mocks a connection to a Fishbowl server
type Connection struct {
	mockConn      net.Conn
	conn          net.Conn
	transport     *framing.Transport
	conversation  []ConversationEntry
	errorChan     chan error
	lastWrite     []byte
	lastWriteLock sync.Mutex
	closeOnce     sync.Once
}

// NewConnection returns a new Connection with the provided conversation entries using the
// default framing
func NewConnection(conversation []ConversationEntry) *Connection {
	return NewConnectionWithConfig(framing.DefaultConfig(), conversation)
}

// NewConnectionWithConfig returns a new Connection that frames messages with cfg
func NewConnectionWithConfig(
	cfg framing.Config,
	conversation []ConversationEntry,
) *Connection {
	c := &Connection{
		conversation: conversation,
		errorChan:    make(chan error, 1),
	}
	c.conn, c.mockConn = net.Pipe()
	transport, err := framing.NewTransport(c.mockConn, cfg)
	if err != nil {
		panic(fmt.Sprintf("mock transport error: %s", err))
	}
	c.transport = transport
	// Start async conversation handler
	go c.asyncLoop()
	return c
}

// ErrorChan returns a channel that receives the first conversation mismatch. It is closed
// once the conversation ends, so a receive returns nil when everything matched
func (c *Connection) ErrorChan() <-chan error {
	return c.errorChan
}

// LastWrite returns the payload of the last frame written by the client
func (c *Connection) LastWrite() []byte {
	c.lastWriteLock.Lock()
	defer c.lastWriteLock.Unlock()
	return bytes.Clone(c.lastWrite)
}

// Read provides a proxy to the client-side connection's Read function. This is needed to satisfy the net.Conn interface
func (c *Connection) Read(b []byte) (n int, err error) {
	return c.conn.Read(b)
}

// Write provides a proxy to the client-side connection's Write function. This is needed to satisfy the net.Conn interface
func (c *Connection) Write(b []byte) (n int, err error) {
	return c.conn.Write(b)
}

// Close closes both sides of the connection. This is needed to satisfy the net.Conn interface
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = errors.Join(c.conn.Close(), c.transport.Close())
	})
	return err
}

// LocalAddr provides a proxy to the client-side connection's LocalAddr function. This is needed to satisfy the net.Conn interface
func (c *Connection) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr provides a proxy to the client-side connection's RemoteAddr function. This is needed to satisfy the net.Conn interface
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline provides a proxy to the client-side connection's SetDeadline function. This is needed to satisfy the net.Conn interface
func (c *Connection) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline provides a proxy to the client-side connection's SetReadDeadline function. This is needed to satisfy the net.Conn interface
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline provides a proxy to the client-side connection's SetWriteDeadline function. This is needed to satisfy the net.Conn interface
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *Connection) asyncLoop() {
	defer close(c.errorChan)
	for idx, entry := range c.conversation {
		var err error
		switch entry.Type {
		case EntryTypeInput:
			err = c.processInputEntry(entry)
		case EntryTypeOutput:
			err = c.processOutputEntry(entry)
		case EntryTypeClose:
			err = c.Close()
		case EntryTypeWait:
			<-entry.Release
		default:
			err = fmt.Errorf("unknown conversation entry type: %d: %#v", entry.Type, entry)
		}
		if err != nil {
			c.errorChan <- fmt.Errorf("conversation entry %d: %w", idx, err)
			_ = c.Close()
			return
		}
	}
}

func (c *Connection) processInputEntry(entry ConversationEntry) error {
	// Wait for a frame from the client
	payload, err := c.transport.ReadFrame()
	if err != nil {
		return fmt.Errorf("input error: %w", err)
	}
	c.lastWriteLock.Lock()
	c.lastWrite = payload
	c.lastWriteLock.Unlock()
	if entry.InputMessage != nil {
		if !bytes.Equal(payload, entry.InputMessage) {
			return fmt.Errorf(
				"input message does not match expected value: got %q, expected %q",
				payload,
				entry.InputMessage,
			)
		}
		return nil
	}
	if entry.RequestTag == "" {
		return nil
	}
	tag, err := requestTag(payload)
	if err != nil {
		return err
	}
	if tag != entry.RequestTag {
		return fmt.Errorf(
			"input message is not of expected type: expected %s, got %s",
			entry.RequestTag,
			tag,
		)
	}
	return nil
}

func (c *Connection) processOutputEntry(entry ConversationEntry) error {
	if err := c.transport.WriteFrame(entry.OutputMessage); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	return nil
}

// requestTag returns the name of the request element in a request document
func requestTag(payload []byte) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(payload); err != nil {
		return "", fmt.Errorf("decode error: %w", err)
	}
	msgs := doc.FindElement("/" + envelope.RootTag + "/" + envelope.RequestContainerTag)
	if msgs == nil {
		return "", errors.New("request document has no message container")
	}
	children := msgs.ChildElements()
	if len(children) != 1 {
		return "", fmt.Errorf("message container has %d requests, expected 1", len(children))
	}
	return children[0].Tag, nil
}
