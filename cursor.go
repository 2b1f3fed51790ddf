// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"encoding/binary"
	"errors"
	"math"
)

// errShortRead is returned by cursor reads that would run off the end of
// the buffer. The metadata parser maps it to OutOfBoundsError; the value
// parser returns it unchanged, so a truncated payload reaches Decode's
// caller as errShortRead.
var errShortRead = errors.New("cdefmt: short read")

// cursor is a left-to-right, endianness-aware byte reader over a single
// log frame's payload or the metadata section. It has no bounds beyond the
// slice it was handed; a read past the end yields errShortRead, which the
// metadata parser turns into OutOfBoundsError and payload parsing passes
// through as is.
type cursor struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

func newCursor(data []byte, order binary.ByteOrder) *cursor {
	return &cursor{data: data, order: order}
}

func (c *cursor) remaining() int { return len(c.data) - c.pos }

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, errShortRead
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) skip(n uint64) error {
	if n == 0 {
		return nil
	}
	if uint64(c.remaining()) < n {
		return errShortRead
	}
	c.pos += int(n)
	return nil
}

func (c *cursor) readU8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) readU16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return c.order.Uint16(b), nil
}

func (c *cursor) readU32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return c.order.Uint32(b), nil
}

func (c *cursor) readU64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return c.order.Uint64(b), nil
}

func (c *cursor) readI8() (int8, error) {
	v, err := c.readU8()
	return int8(v), err
}

func (c *cursor) readI16() (int16, error) {
	v, err := c.readU16()
	return int16(v), err
}

func (c *cursor) readI32() (int32, error) {
	v, err := c.readU32()
	return int32(v), err
}

func (c *cursor) readI64() (int64, error) {
	v, err := c.readU64()
	return int64(v), err
}

func (c *cursor) readF32() (float32, error) {
	v, err := c.readU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (c *cursor) readF64() (float64, error) {
	v, err := c.readU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// readAddress reads a size-byte (1, 2, 4 or 8) unsigned value, used for the
// frame's leading log identifier whose width is the image's address size.
func (c *cursor) readAddress(size int) (uint64, error) {
	switch size {
	case 1:
		v, err := c.readU8()
		return uint64(v), err
	case 2:
		v, err := c.readU16()
		return uint64(v), err
	case 4:
		v, err := c.readU32()
		return uint64(v), err
	case 8:
		return c.readU64()
	default:
		return 0, &UnsupportedPointerSizeError{Size: int64(size)}
	}
}
