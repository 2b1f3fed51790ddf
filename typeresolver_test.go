// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"debug/dwarf"
	"errors"
	"testing"
)

func baseTypeEntry(size, encoding int64) *dwarf.Entry {
	return &dwarf.Entry{
		Tag: dwarf.TagBaseType,
		Field: []dwarf.Field{
			{Attr: dwarf.AttrByteSize, Val: size, Class: dwarf.ClassConstant},
			{Attr: dwarf.AttrEncoding, Val: encoding, Class: dwarf.ClassConstant},
		},
	}
}

var parseBaseTests = []struct {
	name     string
	size     int64
	encoding int64
	want     Kind
}{
	{"bool", 1, dwATEBoolean, KindBool},
	{"u8", 1, dwATEUnsigned, KindU8},
	{"unsigned char", 1, dwATEUnsignedChar, KindU8},
	{"u16", 2, dwATEUnsigned, KindU16},
	{"u32", 4, dwATEUnsigned, KindU32},
	{"u64", 8, dwATEUnsigned, KindU64},
	{"i8", 1, dwATESigned, KindI8},
	{"signed char", 1, dwATESignedChar, KindI8},
	{"i16", 2, dwATESigned, KindI16},
	{"i32", 4, dwATESigned, KindI32},
	{"i64", 8, dwATESigned, KindI64},
	{"f32", 4, dwATEFloat, KindF32},
	{"f64", 8, dwATEFloat, KindF64},
}

func TestParseBase(t *testing.T) {
	r := &typeResolver{}
	for _, tt := range parseBaseTests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.parseBase(baseTypeEntry(tt.size, tt.encoding))
			if err != nil {
				t.Fatalf("parseBase: %v", err)
			}
			if got.Kind != tt.want {
				t.Errorf("parseBase(%d, %d) = %v, want %v", tt.size, tt.encoding, got.Kind, tt.want)
			}
		})
	}
}

func TestParseBaseUnsupported(t *testing.T) {
	r := &typeResolver{}
	tests := []struct {
		size     int64
		encoding int64
	}{
		{2, dwATEBoolean},
		{2, dwATEUnsignedChar},
		{16, dwATEFloat},
		{4, dwATEComplexFloat},
		{3, dwATEUnsigned},
	}
	for _, tt := range tests {
		_, err := r.parseBase(baseTypeEntry(tt.size, tt.encoding))
		var ub *UnsupportedBaseTypeError
		if !errors.As(err, &ub) {
			t.Errorf("parseBase(%d, %d) err = %v, want UnsupportedBaseTypeError", tt.size, tt.encoding, err)
			continue
		}
		if ub.Size != tt.size || ub.Encoding != tt.encoding {
			t.Errorf("error carries (%d, %d), want (%d, %d)", ub.Size, ub.Encoding, tt.size, tt.encoding)
		}
	}
}

func TestParseBaseMissingAttributes(t *testing.T) {
	r := &typeResolver{}
	entry := &dwarf.Entry{Tag: dwarf.TagBaseType}
	if _, err := r.parseBase(entry); !errors.Is(err, ErrBadAttribute) {
		t.Errorf("err = %v, want ErrBadAttribute", err)
	}
}

func TestParsePointer(t *testing.T) {
	r := &typeResolver{}
	tests := []struct {
		size int64
		want Kind
	}{
		{1, KindU8},
		{2, KindU16},
		{4, KindU32},
		{8, KindU64},
	}
	for _, tt := range tests {
		entry := &dwarf.Entry{
			Tag: dwarf.TagPointerType,
			Field: []dwarf.Field{
				{Attr: dwarf.AttrByteSize, Val: tt.size, Class: dwarf.ClassConstant},
			},
		}
		got, err := r.parsePointer(entry)
		if err != nil {
			t.Fatalf("parsePointer(%d): %v", tt.size, err)
		}
		if got.Kind != KindPointer || got.Pointee.Kind != tt.want {
			t.Errorf("parsePointer(%d) = %v/%v, want Pointer/%v", tt.size, got.Kind, got.Pointee.Kind, tt.want)
		}
	}

	entry := &dwarf.Entry{
		Tag: dwarf.TagPointerType,
		Field: []dwarf.Field{
			{Attr: dwarf.AttrByteSize, Val: int64(3), Class: dwarf.ClassConstant},
		},
	}
	var up *UnsupportedPointerSizeError
	if _, err := r.parsePointer(entry); !errors.As(err, &up) || up.Size != 3 {
		t.Errorf("parsePointer(3) err = %v, want UnsupportedPointerSizeError(3)", err)
	}
}

func subrangeEntry(fields ...dwarf.Field) *dwarf.Entry {
	return &dwarf.Entry{Tag: dwarf.TagSubrangeType, Field: fields}
}

func TestParseArrayDimension(t *testing.T) {
	tests := []struct {
		name  string
		entry *dwarf.Entry
		want  uint64
	}{
		{
			"count attribute wins",
			subrangeEntry(
				dwarf.Field{Attr: dwarf.AttrCount, Val: int64(5), Class: dwarf.ClassConstant},
				dwarf.Field{Attr: dwarf.AttrUpperBound, Val: int64(9), Class: dwarf.ClassConstant},
			),
			5,
		},
		{
			"upper bound only",
			subrangeEntry(dwarf.Field{Attr: dwarf.AttrUpperBound, Val: int64(9), Class: dwarf.ClassConstant}),
			10,
		},
		{
			"upper and lower bounds",
			subrangeEntry(
				dwarf.Field{Attr: dwarf.AttrLowerBound, Val: int64(2), Class: dwarf.ClassConstant},
				dwarf.Field{Attr: dwarf.AttrUpperBound, Val: int64(9), Class: dwarf.ClassConstant},
			),
			8,
		},
		{
			"all-ones upper bound means empty",
			subrangeEntry(dwarf.Field{Attr: dwarf.AttrUpperBound, Val: int64(-1), Class: dwarf.ClassConstant}),
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArrayDimension(tt.entry)
			if err != nil {
				t.Fatalf("parseArrayDimension: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseArrayDimension = %d, want %d", got, tt.want)
			}
		})
	}

	var na *NoAttributeError
	if _, err := parseArrayDimension(subrangeEntry()); !errors.As(err, &na) {
		t.Errorf("no bounds: err = %v, want NoAttributeError", err)
	}
}

func TestEntryName(t *testing.T) {
	r := &typeResolver{}
	named := &dwarf.Entry{
		Tag: dwarf.TagStructType,
		Field: []dwarf.Field{
			{Attr: dwarf.AttrName, Val: "cdefmt_log_args_t3", Class: dwarf.ClassString},
		},
	}
	if got := r.entryName(named); got != "cdefmt_log_args_t3" {
		t.Errorf("entryName = %q", got)
	}
	if got := r.entryName(&dwarf.Entry{}); got != "<unnamed>" {
		t.Errorf("entryName(unnamed) = %q", got)
	}
	if got := r.entryName(nil); got != "<unnamed>" {
		t.Errorf("entryName(nil) = %q", got)
	}
}
