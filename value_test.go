// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseValuePrimitives(t *testing.T) {
	tests := []struct {
		name string
		ty   Type
		data []byte
		want Var
		n    uint64
	}{
		{"u8", Primitive(KindU8), []byte{0x2a}, Var{Kind: KindU8, U8: 42}, 1},
		{"u16", Primitive(KindU16), []byte{0x34, 0x12}, Var{Kind: KindU16, U16: 0x1234}, 2},
		{"u32", Primitive(KindU32), []byte{0x78, 0x56, 0x34, 0x12}, Var{Kind: KindU32, U32: 0x12345678}, 4},
		{"i8", Primitive(KindI8), []byte{0xff}, Var{Kind: KindI8, I8: -1}, 1},
		{"i32", Primitive(KindI32), []byte{0xfe, 0xff, 0xff, 0xff}, Var{Kind: KindI32, I32: -2}, 4},
		{"f32", Primitive(KindF32), []byte{0x00, 0x00, 0x80, 0x3f}, Var{Kind: KindF32, F32: 1.0}, 4},
		{"f64", Primitive(KindF64), []byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f}, Var{Kind: KindF64, F64: 1.0}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCursor(tt.data, binary.LittleEndian)
			got, n, err := parseValue(tt.ty, c)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.n, n)
			require.Equal(t, 0, c.remaining(), "should consume the full buffer")
		})
	}
}

// A zero byte decodes as true; the wire convention is inverted on purpose.
func TestParseValueBool(t *testing.T) {
	c := newCursor([]byte{0x00, 0x01}, binary.LittleEndian)

	v, _, err := parseValue(Primitive(KindBool), c)
	require.NoError(t, err)
	require.True(t, v.Bool)

	v, _, err = parseValue(Primitive(KindBool), c)
	require.NoError(t, err)
	require.False(t, v.Bool)
}

func TestParseValueEnumeration(t *testing.T) {
	ty := NewEnumeration(Primitive(KindU8), []int64{0, 1}, map[int64]string{0: "OFF", 1: "ON"})
	c := newCursor([]byte{0x01}, binary.LittleEndian)

	v, n, err := parseValue(ty, c)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)
	require.Equal(t, KindEnumeration, v.Kind)
	require.Equal(t, uint8(1), v.EnumValue.U8)
	require.Equal(t, "ON", v.EnumValidNames[1])
}

func TestParseValuePointer(t *testing.T) {
	ty := NewPointer(Primitive(KindU32))
	c := newCursor([]byte{0x34, 0x12, 0x00, 0x00}, binary.LittleEndian)

	v, n, err := parseValue(ty, c)
	require.NoError(t, err)
	require.Equal(t, uint64(4), n)
	require.Equal(t, KindPointer, v.Kind)
	require.Equal(t, uint32(0x1234), v.PointerValue.U32)
}

// Structure parsing honors member offsets (gaps are padding) and the
// declared size (tail padding is consumed).
func TestParseValueStructurePadding(t *testing.T) {
	ty := NewStructure([]Member{
		{Name: "a", Offset: 0, Type: Primitive(KindU8)},
		{Name: "b", Offset: 4, Type: Primitive(KindU32)},
	}, 12)

	data := []byte{
		0x01,             // a
		0xff, 0xff, 0xff, // padding
		0x02, 0x00, 0x00, 0x00, // b
		0xff, 0xff, 0xff, 0xff, // tail padding
	}
	c := newCursor(data, binary.LittleEndian)

	v, n, err := parseValue(ty, c)
	require.NoError(t, err)
	require.Equal(t, uint64(12), n)
	require.Equal(t, 0, c.remaining(), "tail padding should be consumed")

	require.Len(t, v.Members, 2)
	require.Equal(t, "a", v.Members[0].Name)
	require.Equal(t, uint8(1), v.Members[0].Value.U8)
	require.Equal(t, "b", v.Members[1].Name)
	require.Equal(t, uint32(2), v.Members[1].Value.U32)
}

func TestParseValueArray(t *testing.T) {
	ty := NewArray(Primitive(KindU16), []uint64{3})
	c := newCursor([]byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00}, binary.LittleEndian)

	v, n, err := parseValue(ty, c)
	require.NoError(t, err)
	// Arrays report zero consumption; the enclosing structure's declared
	// size re-anchors the cursor.
	require.Equal(t, uint64(0), n)
	require.Len(t, v.Elements, 3)
	require.Equal(t, uint16(1), v.Elements[0].U16)
	require.Equal(t, uint16(3), v.Elements[2].U16)
}

func TestParseValueMultiDimensionalArray(t *testing.T) {
	ty := NewArray(Primitive(KindU8), []uint64{2, 3})
	c := newCursor([]byte{1, 2, 3, 4, 5, 6}, binary.LittleEndian)

	v, _, err := parseValue(ty, c)
	require.NoError(t, err)
	require.Len(t, v.Elements, 2)
	require.Len(t, v.Elements[0].Elements, 3)
	require.Equal(t, uint8(4), v.Elements[1].Elements[0].U8)
}

func TestParseValueZeroLengthArray(t *testing.T) {
	ty := NewArray(Primitive(KindU32), []uint64{0})
	c := newCursor(nil, binary.LittleEndian)

	v, n, err := parseValue(ty, c)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)
	require.Empty(t, v.Elements)
}

// argsType builds the compiler-shaped args structure for a log with a
// log_id leader and the given extra members.
func argsType(size uint64, members ...Member) Type {
	logID := Member{Name: "log_id", Offset: 0, Type: NewPointer(Primitive(KindU32))}
	return NewStructure(append([]Member{logID}, members...), size)
}

func TestParseLogArgsSkipsLogID(t *testing.T) {
	ty := argsType(8, Member{Name: "x", Offset: 4, Type: Primitive(KindU32)})
	// The payload cursor starts after the identifier: only x's bytes.
	c := newCursor([]byte{0x2a, 0x00, 0x00, 0x00}, binary.LittleEndian)

	args, err := parseLogArgs(ty, c)
	require.NoError(t, err)
	require.Len(t, args, 1)
	require.Equal(t, uint32(42), args[0].U32)
	require.Equal(t, 0, c.remaining())
}

func TestParseLogArgsRejectsNonStructure(t *testing.T) {
	_, err := parseLogArgs(Primitive(KindU32), newCursor(nil, binary.LittleEndian))
	require.ErrorIs(t, err, ErrNotStructure)
}

// A dynamic_array_* member is a placeholder struct (byte count, array
// type); its value is re-read from the trailing variable region, sized by
// the byte count divided by the element size.
func TestParseLogArgsDynamicArray(t *testing.T) {
	placeholder := NewStructure([]Member{
		{Name: "size", Offset: 0, Type: Primitive(KindU32)},
		{Name: "data", Offset: 4, Type: NewArray(Primitive(KindU16), []uint64{0})},
	}, 4)

	ty := argsType(12,
		Member{Name: "dynamic_array_x", Offset: 4, Type: placeholder},
		Member{Name: "dynamic_data", Offset: 8, Type: NewArray(Primitive(KindU8), []uint64{0})},
	)

	data := []byte{
		0x00, 0x00, 0x00, 0x06, // dynamic_array_x.size = 6 bytes
		0xff, 0xff, 0xff, 0xff, // tail up to declared size 12
		0x00, 0x01, 0x00, 0x02, 0x00, 0x03, // three u16 big-endian values
	}
	c := newCursor(data, binary.BigEndian)

	args, err := parseLogArgs(ty, c)
	require.NoError(t, err)
	require.Len(t, args, 1)

	arr := args[0]
	require.Equal(t, KindArray, arr.Kind)
	require.Len(t, arr.Elements, 3)
	require.Equal(t, uint16(1), arr.Elements[0].U16)
	require.Equal(t, uint16(2), arr.Elements[1].U16)
	require.Equal(t, uint16(3), arr.Elements[2].U16)
}

func TestParseValueTruncatedPayload(t *testing.T) {
	_, _, err := parseValue(Primitive(KindU32), newCursor([]byte{1, 2}, binary.LittleEndian))
	require.Error(t, err)
}
