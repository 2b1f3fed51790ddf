// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"encoding/binary"
	"errors"
	"unicode/utf8"
)

// Level is a log site's severity, encoded as a single byte in its
// metadata record.
type Level uint8

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelDebug
	LevelVerbose
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "Error"
	case LevelWarning:
		return "Warning"
	case LevelInfo:
		return "Info"
	case LevelDebug:
		return "Debug"
	case LevelVerbose:
		return "Verbose"
	default:
		return "Unknown"
	}
}

// Metadata is one log site's fixed-layout record, decoded from the
// image's metadata section.
type Metadata struct {
	ID      int
	Counter uint32
	Line    int
	File    string
	Fmt     string
	Names   []string
	Level   Level
}

const metadataSchemaVersion = 1

// parseMetadata decodes the fixed-layout record at byte offset id within
// section. Every multi-byte integer uses order, the image's endianness;
// every string field excludes its trailing NUL.
func parseMetadata(section []byte, id int, order binary.ByteOrder) (Metadata, error) {
	c := newCursor(section, order)
	if err := c.skip(uint64(id)); err != nil {
		return Metadata{}, &OutOfBoundsError{ID: id, Len: len(section)}
	}

	wrap := func(err error) error {
		if err == nil {
			return nil
		}
		if errors.Is(err, errShortRead) {
			return &OutOfBoundsError{ID: id, Len: len(section)}
		}
		return err
	}

	version, err := c.readU32()
	if err != nil {
		return Metadata{}, wrap(err)
	}
	if version != metadataSchemaVersion {
		return Metadata{}, &SchemaVersionError{Version: version}
	}

	counter, err := c.readU32()
	if err != nil {
		return Metadata{}, wrap(err)
	}
	line, err := c.readU32()
	if err != nil {
		return Metadata{}, wrap(err)
	}

	fileLen, err := c.readU32()
	if err != nil {
		return Metadata{}, wrap(err)
	}
	fmtLen, err := c.readU32()
	if err != nil {
		return Metadata{}, wrap(err)
	}
	namesLen, err := c.readU32()
	if err != nil {
		return Metadata{}, wrap(err)
	}

	levelByte, err := c.readU8()
	if err != nil {
		return Metadata{}, wrap(err)
	}
	level, err := parseLevel(levelByte)
	if err != nil {
		return Metadata{}, err
	}

	file, err := readNULString(c, int(fileLen), id)
	if err != nil {
		return Metadata{}, wrap(err)
	}

	format, err := readNULString(c, int(fmtLen), id)
	if err != nil {
		return Metadata{}, wrap(err)
	}

	names := make([]string, 0, namesLen)
	for i := uint32(0); i < namesLen; i++ {
		nameLen, err := c.readU32()
		if err != nil {
			return Metadata{}, wrap(err)
		}
		name, err := readNULString(c, int(nameLen), id)
		if err != nil {
			return Metadata{}, wrap(err)
		}
		names = append(names, name)
	}

	return Metadata{
		ID:      id,
		Counter: counter,
		Line:    int(line),
		File:    file,
		Fmt:     format,
		Names:   names,
		Level:   level,
	}, nil
}

func parseLevel(b uint8) (Level, error) {
	if b > uint8(LevelVerbose) {
		return 0, errCustom("metadata record has an out-of-range level byte")
	}
	return Level(b), nil
}

// readNULString reads an n-byte field (including its trailing NUL) and
// returns it as a string with the NUL stripped.
func readNULString(c *cursor, n int, id int) (string, error) {
	if n == 0 {
		return "", errCustom("metadata string field has zero declared length")
	}
	b, err := c.take(n)
	if err != nil {
		return "", err
	}
	if b[n-1] != 0 {
		return "", ErrNoNullTerm
	}
	s := b[:n-1]
	if !utf8.Valid(s) {
		return "", &UTF8Error{ID: id, Err: errNotUTF8}
	}
	return string(s), nil
}

var errNotUTF8 = errors.New("invalid UTF-8")
