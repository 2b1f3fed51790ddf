// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildMetadataRecord serializes one metadata record the way the target's
// logging macros lay it out in the .cdefmt section.
func buildMetadataRecord(order binary.ByteOrder, version, counter, line uint32, level uint8, file, format string, names ...string) []byte {
	var out []byte
	u32 := func(v uint32) {
		var b [4]byte
		order.PutUint32(b[:], v)
		out = append(out, b[:]...)
	}

	u32(version)
	u32(counter)
	u32(line)
	u32(uint32(len(file) + 1))
	u32(uint32(len(format) + 1))
	u32(uint32(len(names)))
	out = append(out, level)
	out = append(out, file...)
	out = append(out, 0)
	out = append(out, format...)
	out = append(out, 0)
	for _, n := range names {
		u32(uint32(len(n) + 1))
		out = append(out, n...)
		out = append(out, 0)
	}
	return out
}

func TestParseMetadata(t *testing.T) {
	record := buildMetadataRecord(binary.LittleEndian, 1, 7, 42, 2, "src/main.c", "temp = {temp}, rpm = {}", "temp", "rpm")
	// The record under test sits at a non-zero offset, like every site
	// after the first in a real section.
	section := append(make([]byte, 16), record...)

	m, err := parseMetadata(section, 16, binary.LittleEndian)
	if err != nil {
		t.Fatalf("parseMetadata: %v", err)
	}

	if m.ID != 16 {
		t.Errorf("ID = %d, want 16", m.ID)
	}
	if m.Counter != 7 {
		t.Errorf("Counter = %d, want 7", m.Counter)
	}
	if m.Line != 42 {
		t.Errorf("Line = %d, want 42", m.Line)
	}
	if m.Level != LevelInfo {
		t.Errorf("Level = %v, want Info", m.Level)
	}
	if m.File != "src/main.c" {
		t.Errorf("File = %q", m.File)
	}
	if m.Fmt != "temp = {temp}, rpm = {}" {
		t.Errorf("Fmt = %q", m.Fmt)
	}
	if len(m.Names) != 2 || m.Names[0] != "temp" || m.Names[1] != "rpm" {
		t.Errorf("Names = %q", m.Names)
	}
}

func TestParseMetadataBigEndian(t *testing.T) {
	record := buildMetadataRecord(binary.BigEndian, 1, 3, 9, 0, "a.c", "x")
	m, err := parseMetadata(record, 0, binary.BigEndian)
	if err != nil {
		t.Fatalf("parseMetadata: %v", err)
	}
	if m.Counter != 3 || m.Line != 9 || m.Level != LevelError {
		t.Errorf("got %+v", m)
	}
}

func TestParseMetadataSchemaVersion(t *testing.T) {
	record := buildMetadataRecord(binary.LittleEndian, 2, 0, 0, 0, "a.c", "x")
	_, err := parseMetadata(record, 0, binary.LittleEndian)
	var sv *SchemaVersionError
	if !errors.As(err, &sv) || sv.Version != 2 {
		t.Fatalf("err = %v, want SchemaVersionError(2)", err)
	}
}

func TestParseMetadataOutOfBounds(t *testing.T) {
	record := buildMetadataRecord(binary.LittleEndian, 1, 0, 0, 0, "a.c", "x")

	var oob *OutOfBoundsError
	if _, err := parseMetadata(record, len(record)+4, binary.LittleEndian); !errors.As(err, &oob) {
		t.Errorf("id past section: err = %v, want OutOfBoundsError", err)
	}
	// Truncated mid-record.
	if _, err := parseMetadata(record[:len(record)-3], 0, binary.LittleEndian); !errors.As(err, &oob) {
		t.Errorf("truncated record: err = %v, want OutOfBoundsError", err)
	}
}

func TestParseMetadataBadLevel(t *testing.T) {
	record := buildMetadataRecord(binary.LittleEndian, 1, 0, 0, 5, "a.c", "x")
	var ce *CustomError
	if _, err := parseMetadata(record, 0, binary.LittleEndian); !errors.As(err, &ce) {
		t.Errorf("level byte 5: err = %v, want CustomError", err)
	}
}

func TestParseMetadataBadUTF8(t *testing.T) {
	record := buildMetadataRecord(binary.LittleEndian, 1, 0, 0, 0, "a.c", "bad \xff\xfe string")
	var ue *UTF8Error
	if _, err := parseMetadata(record, 0, binary.LittleEndian); !errors.As(err, &ue) {
		t.Errorf("err = %v, want UTF8Error", err)
	}
}

func TestLevelString(t *testing.T) {
	levels := map[Level]string{
		LevelError:   "Error",
		LevelWarning: "Warning",
		LevelInfo:    "Info",
		LevelDebug:   "Debug",
		LevelVerbose: "Verbose",
	}
	for l, want := range levels {
		if l.String() != want {
			t.Errorf("Level(%d).String() = %q, want %q", l, l, want)
		}
	}
}
