// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the Image Loader and Decoder facade. Compare
// with errors.Is, not ==, since several of them get wrapped with parse
// context on the way up.
var (
	// ErrMissingSection is returned when the image lacks the .cdefmt
	// metadata section.
	ErrMissingSection = errors.New("cdefmt: image is missing the .cdefmt section")

	// ErrNoBuildID is returned when the image has no build-id note.
	ErrNoBuildID = errors.New("cdefmt: image has no build-id note")

	// ErrNoAddressSize is returned when the image's machine has no known
	// address size.
	ErrNoAddressSize = errors.New("cdefmt: image architecture has no declared address size")

	// ErrNoNullTerm is returned when a string expected to be NUL-terminated
	// runs off the end of its buffer first.
	ErrNoNullTerm = errors.New("cdefmt: string is missing its NUL terminator")

	// ErrBadAttribute is returned when a debug-info attribute is present
	// but holds a value of the wrong kind.
	ErrBadAttribute = errors.New("cdefmt: debug-info attribute has an unexpected value type")

	// ErrNotStructure is returned when a log site's resolved args type is
	// not a Structure.
	ErrNotStructure = errors.New("cdefmt: log args type is not a structure")
)

// NoSectionError reports that a named debug section is absent from the
// image.
type NoSectionError struct {
	Name string
}

func (e *NoSectionError) Error() string {
	return fmt.Sprintf("cdefmt: image is missing section %q", e.Name)
}

// NoAttributeError reports that a debug-info entry lacks a required
// attribute.
type NoAttributeError struct {
	Attr string
}

func (e *NoAttributeError) Error() string {
	return fmt.Sprintf("cdefmt: DIE is missing attribute %s", e.Attr)
}

// NoCompilationUnitError reports a failed compilation-unit lookup.
type NoCompilationUnitError struct {
	Name string
}

func (e *NoCompilationUnitError) Error() string {
	return fmt.Sprintf("cdefmt: unable to find compilation unit %q", e.Name)
}

// NoTypeError reports a failed type lookup inside an otherwise-found
// compilation unit.
type NoTypeError struct {
	Name string
}

func (e *NoTypeError) Error() string {
	return fmt.Sprintf("cdefmt: unable to find type %q", e.Name)
}

// NoDIEError reports that no debug-info entry exists at the requested
// offset.
type NoDIEError struct {
	Offset int64
}

func (e *NoDIEError) Error() string {
	return fmt.Sprintf("cdefmt: no debug-info entry at offset %#x", e.Offset)
}

// OutOfBoundsError reports a log id past the end of the metadata section.
type OutOfBoundsError struct {
	ID  int
	Len int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("cdefmt: log id %d is past the end of the .cdefmt section (%d bytes)", e.ID, e.Len)
}

// UTF8Error reports a non-UTF-8 string found while parsing a metadata
// record.
type UTF8Error struct {
	ID  int
	Err error
}

func (e *UTF8Error) Error() string {
	return fmt.Sprintf("cdefmt: log at id %d contains a malformed string: %v", e.ID, e.Err)
}

func (e *UTF8Error) Unwrap() error { return e.Err }

// SchemaVersionError reports an unsupported metadata schema version.
type SchemaVersionError struct {
	Version uint32
}

func (e *SchemaVersionError) Error() string {
	return fmt.Sprintf("cdefmt: unsupported metadata schema version %d", e.Version)
}

// UnsupportedBaseTypeError reports a base_type DIE whose (size, encoding)
// pair has no corresponding primitive Type.
type UnsupportedBaseTypeError struct {
	Encoding int64
	Size     int64
}

func (e *UnsupportedBaseTypeError) Error() string {
	return fmt.Sprintf("cdefmt: unsupported base type, encoding=%d size=%d", e.Encoding, e.Size)
}

// UnsupportedPointerSizeError reports a pointer_type DIE whose byte_size
// doesn't match a known word width.
type UnsupportedPointerSizeError struct {
	Size int64
}

func (e *UnsupportedPointerSizeError) Error() string {
	return fmt.Sprintf("cdefmt: unsupported pointer size %d", e.Size)
}

// UnexpectedTagError reports a DIE tag encountered where the type grammar
// doesn't permit it.
type UnexpectedTagError struct {
	Tag string
}

func (e *UnexpectedTagError) Error() string {
	return fmt.Sprintf("cdefmt: unexpected debug-info tag %s", e.Tag)
}

// CustomError carries an ad hoc invariant-violation message for failures
// no dedicated error kind covers.
type CustomError struct {
	Message string
}

func (e *CustomError) Error() string { return "cdefmt: " + e.Message }

func errCustom(msg string) error { return &CustomError{Message: msg} }

// ParseContextError decorates an inner parsing error with the debug-info
// source location (file:line:column) and the kind of construct being
// parsed, e.g. "structure member", "array dimension 2". It is attached by
// every recursive Type Resolver step so a malformed image produces a
// traceable error instead of a bare tag mismatch.
type ParseContextError struct {
	Kind     string // e.g. "type", "structure member", "array dimension 0"
	Name     string // best-effort DW_AT_name of the entry, "<unnamed>" if absent
	Location string // "file:line:col", or "<unknown>" if unavailable
	Err      error
}

func (e *ParseContextError) Error() string {
	return fmt.Sprintf("%s: in %s `%s`: %v", e.Location, e.Kind, e.Name, e.Err)
}

func (e *ParseContextError) Unwrap() error { return e.Err }

func wrapParseContext(err error, kind, name, location string) error {
	if err == nil {
		return nil
	}
	return &ParseContextError{Kind: kind, Name: name, Location: location, Err: err}
}
