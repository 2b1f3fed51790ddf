// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Endianness is the image's byte order, exposed to upstream framers that
// need to interpret length prefixes or other header fields the same way
// the decoder interprets a frame's leading identifier.
type Endianness int

const (
	LittleEndian Endianness = iota
	BigEndian
)

func (e Endianness) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// initFrameID is the identifier reserved for the init frame, whose
// payload carries the image build-id for session validation.
const initFrameID = 0

// cacheEntry is one resolved log site: its metadata record plus its
// args-type, if the compiler emitted one (a log site with no arguments
// has none).
type cacheEntry struct {
	metadata Metadata
	argsType *Type
}

// Decoder turns raw log frames into Log values. It holds an Image (which
// the caller keeps open and closes) and
// resolves each log site's (Metadata, Type) pair from the image at most
// once, caching it under the site's id. A Decoder is not safe for
// concurrent use — the cache is updated in place; callers needing
// parallelism should build one Decoder per image per goroutine.
type Decoder struct {
	img      *Image
	resolver *typeResolver
	cache    map[int]cacheEntry
}

// NewDecoder builds a Decoder over img. img must outlive the Decoder.
func NewDecoder(img *Image) (*Decoder, error) {
	if img.DWARF() == nil {
		return nil, errCustom("image carries no debug information")
	}
	return &Decoder{
		img:      img,
		resolver: newTypeResolver(img.DWARF()),
		cache:    make(map[int]cacheEntry),
	}, nil
}

// Endianness reports the image's byte order.
func (d *Decoder) Endianness() Endianness {
	if d.img.ByteOrder() == binary.BigEndian {
		return BigEndian
	}
	return LittleEndian
}

// Decode turns one frame's raw bytes into a Log. The frame's leading
// address-size bytes are the log identifier; the remainder is the payload
// laid out as that log site's args structure.
func (d *Decoder) Decode(frame []byte) (Log, error) {
	c := newCursor(frame, d.img.ByteOrder())
	id64, err := c.readAddress(d.img.AddressSize())
	if err != nil {
		return Log{}, fmt.Errorf("cdefmt: reading frame identifier: %w", err)
	}
	id := int(id64)

	entry, err := d.lookup(id)
	if err != nil {
		return Log{}, err
	}

	var args []Var
	if entry.argsType != nil {
		args, err = parseLogArgs(*entry.argsType, c)
		if err != nil {
			return Log{}, err
		}
	}

	if id == initFrameID {
		if err := validateInitFrame(args, d.img.BuildID()); err != nil {
			return Log{}, err
		}
	}

	rc := renderContext{addressSize: d.img.AddressSize()}
	return newLog(entry.metadata, args, rc), nil
}

// validateInitFrame checks that the init frame's first argument is an
// array of U8 matching the image's build-id byte for byte.
func validateInitFrame(args []Var, buildID []byte) error {
	if len(args) == 0 || args[0].Kind != KindArray {
		return errCustom("Build ID missing or not an array")
	}
	got := make([]byte, len(args[0].Elements))
	for i, e := range args[0].Elements {
		if e.Kind != KindU8 {
			return errCustom("Build ID data contains non u8 element!")
		}
		got[i] = e.U8
	}
	if !bytes.Equal(got, buildID) {
		return errCustom("Build ID mismatch!")
	}
	return nil
}

// lookup returns the cached entry for id, resolving and inserting it on a
// cache miss, so a log site is ever parsed from the image at most once.
func (d *Decoder) lookup(id int) (cacheEntry, error) {
	if e, ok := d.cache[id]; ok {
		return e, nil
	}
	e, err := d.resolve(id)
	if err != nil {
		return cacheEntry{}, err
	}
	d.cache[id] = e
	return e, nil
}

// resolve parses the metadata record at id and, if the log site has
// arguments, resolves its args-type from debug information.
func (d *Decoder) resolve(id int) (cacheEntry, error) {
	metadata, err := parseMetadata(d.img.Metadata(), id, d.img.ByteOrder())
	if err != nil {
		return cacheEntry{}, err
	}

	typeName := fmt.Sprintf("cdefmt_log_args_t%d", metadata.Counter)
	t, err := d.resolver.GetType(metadata.File, typeName)
	if err != nil {
		// A lookup miss means the site logs without arguments (the
		// compiler emits no args type for it); anything else is a real
		// debug-info failure.
		var noCU *NoCompilationUnitError
		var noType *NoTypeError
		if errors.As(err, &noCU) || errors.As(err, &noType) {
			return cacheEntry{metadata: metadata, argsType: nil}, nil
		}
		return cacheEntry{}, err
	}
	return cacheEntry{metadata: metadata, argsType: &t}, nil
}

// Precache walks every cdefmt_log_metadata* symbol in the image, resolving
// and caching each one up front. It serves both as a cold-path warm-up and
// as a validation pass: any malformed site fails loudly.
func (d *Decoder) Precache() (int, error) {
	symbols, err := d.img.LogMetadataSymbols()
	if err != nil {
		return 0, err
	}
	for _, sym := range symbols {
		if _, err := d.lookup(sym.Offset); err != nil {
			return 0, fmt.Errorf("cdefmt: precaching %s: %w", sym.Name, err)
		}
	}
	return len(d.cache), nil
}
