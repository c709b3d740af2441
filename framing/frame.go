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

// Package framing implements the length-prefixed frames used to carry
// Fishbowl XML documents over a stream connection.
//
// Every frame is an unsigned length prefix followed by exactly that many
// payload bytes. The Fishbowl server uses a 4-byte big-endian prefix, which
// is what DefaultConfig returns.
package framing

import (
	"encoding/binary"
	"fmt"
)

const (
	// DefaultLengthBytes is the width of the length prefix used by the Fishbowl server
	DefaultLengthBytes = 4

	// DefaultMaxPayloadLength caps the size of a single frame payload
	DefaultMaxPayloadLength uint64 = 64 * 1024 * 1024
)

// Config describes the length prefix of a frame
type Config struct {
	// LengthBytes is the width of the length prefix. Valid values are 2, 4 and 8
	LengthBytes int
	// ByteOrder is the byte order of the length prefix. Defaults to big-endian
	ByteOrder binary.ByteOrder
	// MaxPayloadLength is the largest payload that will be written or read
	MaxPayloadLength uint64
}

// DefaultConfig returns the framing used by the Fishbowl server
func DefaultConfig() Config {
	return Config{
		LengthBytes:      DefaultLengthBytes,
		ByteOrder:        binary.BigEndian,
		MaxPayloadLength: DefaultMaxPayloadLength,
	}
}

// Validate checks the config and fills in defaults for unset fields
func (c *Config) Validate() error {
	if c.LengthBytes == 0 {
		c.LengthBytes = DefaultLengthBytes
	}
	switch c.LengthBytes {
	case 2, 4, 8:
	default:
		return fmt.Errorf(
			"%w: unsupported length prefix width %d",
			ErrInvalidConfig,
			c.LengthBytes,
		)
	}
	if c.ByteOrder == nil {
		c.ByteOrder = binary.BigEndian
	}
	limit := c.prefixLimit()
	if c.MaxPayloadLength == 0 || c.MaxPayloadLength > limit {
		c.MaxPayloadLength = min(DefaultMaxPayloadLength, limit)
	}
	return nil
}

// prefixLimit returns the largest length representable by the prefix
func (c *Config) prefixLimit() uint64 {
	switch c.LengthBytes {
	case 2:
		return 0xffff
	case 4:
		return 0xffffffff
	default:
		return ^uint64(0)
	}
}

// HeaderLength returns the size of the length prefix in bytes
func (c Config) HeaderLength() int {
	return c.LengthBytes
}

// Encode returns the payload prefixed with its length
func Encode(cfg Config, payload []byte) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, ErrEmptyFrame
	}
	if uint64(len(payload)) > cfg.MaxPayloadLength {
		return nil, fmt.Errorf(
			"%w: %d bytes exceeds limit of %d",
			ErrPayloadTooLarge,
			len(payload),
			cfg.MaxPayloadLength,
		)
	}
	buf := make([]byte, cfg.LengthBytes, cfg.LengthBytes+len(payload))
	putLength(cfg, buf, uint64(len(payload)))
	return append(buf, payload...), nil
}

// DecodeLength returns the payload length stored in a length prefix
func DecodeLength(cfg Config, header []byte) (uint64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if len(header) != cfg.LengthBytes {
		return 0, fmt.Errorf(
			"%w: header is %d bytes, expected %d",
			ErrInvalidConfig,
			len(header),
			cfg.LengthBytes,
		)
	}
	switch cfg.LengthBytes {
	case 2:
		return uint64(cfg.ByteOrder.Uint16(header)), nil
	case 4:
		return uint64(cfg.ByteOrder.Uint32(header)), nil
	default:
		return cfg.ByteOrder.Uint64(header), nil
	}
}

func putLength(cfg Config, buf []byte, length uint64) {
	switch cfg.LengthBytes {
	case 2:
		cfg.ByteOrder.PutUint16(buf, uint16(length))
	case 4:
		cfg.ByteOrder.PutUint32(buf, uint32(length))
	default:
		cfg.ByteOrder.PutUint64(buf, length)
	}
}
