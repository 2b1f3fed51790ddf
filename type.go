// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import "fmt"

// Kind identifies which variant of Type (or Var) a value holds. Dispatch
// throughout the package is an exhaustive switch over Kind rather than
// interface methods per variant, so the dense render/parse tables in
// value.go and render.go stay in one place each.
type Kind int

const (
	KindBool Kind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindEnumeration
	KindStructure
	KindPointer
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "Bool"
	case KindU8:
		return "U8"
	case KindU16:
		return "U16"
	case KindU32:
		return "U32"
	case KindU64:
		return "U64"
	case KindI8:
		return "I8"
	case KindI16:
		return "I16"
	case KindI32:
		return "I32"
	case KindI64:
		return "I64"
	case KindF32:
		return "F32"
	case KindF64:
		return "F64"
	case KindEnumeration:
		return "Enumeration"
	case KindStructure:
		return "Structure"
	case KindPointer:
		return "Pointer"
	case KindArray:
		return "Array"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// widths holds the fixed byte width of every primitive Kind. Enumeration,
// Structure, Pointer and Array have no entry here; their size is derived
// (see Type.Size).
var widths = map[Kind]int{
	KindBool: 1,
	KindU8:   1, KindU16: 2, KindU32: 4, KindU64: 8,
	KindI8: 1, KindI16: 2, KindI32: 4, KindI64: 8,
	KindF32: 4, KindF64: 8,
}

func (k Kind) isPrimitive() bool {
	_, ok := widths[k]
	return ok
}

func (k Kind) signed() bool {
	switch k {
	case KindI8, KindI16, KindI32, KindI64:
		return true
	default:
		return false
	}
}

// Member describes one field of a Structure type: its name, its byte offset
// from the start of the structure, and its Type.
type Member struct {
	Name   string
	Offset uint64
	Type   Type
}

// Type is a value object describing the layout of a log site's arguments
// (or of one piece of it): a tagged variant over the primitives,
// Enumeration, Structure, Pointer and Array. Two Types built
// from the same debug-info are structurally equal and safe to share; there
// is no interior mutability and no lifetime tied to the image beyond the
// strings it borrows (Member.Name, the names in EnumValues).
type Type struct {
	Kind Kind

	// Enumeration
	Underlying *Type
	EnumValues map[int64]string // lookup by value; see EnumOrder for declaration order
	enumOrder  []int64

	// Structure
	Members      []Member
	DeclaredSize uint64

	// Pointer
	Pointee *Type

	// Array
	Element *Type
	Lengths []uint64
}

// NewEnumeration builds an Enumeration Type over the given underlying
// integer type and an ordered list of (value, name) pairs. The order is
// preserved for deterministic iteration even though lookups are by value.
func NewEnumeration(underlying Type, order []int64, names map[int64]string) Type {
	u := underlying
	return Type{
		Kind:       KindEnumeration,
		Underlying: &u,
		EnumValues: names,
		enumOrder:  order,
	}
}

// EnumOrder returns the enum's values in declaration order; the matching
// names are in EnumValues.
func (t Type) EnumOrder() []int64 {
	return t.enumOrder
}

// NewPointer builds a Pointer Type whose pointee representation is the
// unsigned integer type matching byteWidth (1, 2, 4 or 8).
func NewPointer(pointee Type) Type {
	p := pointee
	return Type{Kind: KindPointer, Pointee: &p}
}

// NewArray builds an Array Type. lengths is ordered outermost-dimension
// first and must be non-empty.
func NewArray(element Type, lengths []uint64) Type {
	e := element
	return Type{Kind: KindArray, Element: &e, Lengths: append([]uint64(nil), lengths...)}
}

// NewStructure builds a Structure Type. members must already be sorted by
// Offset; declaredSize must be >= the end of the last member.
func NewStructure(members []Member, declaredSize uint64) Type {
	return Type{Kind: KindStructure, Members: append([]Member(nil), members...), DeclaredSize: declaredSize}
}

// Primitive returns the Type value for one of the fixed-width primitive
// kinds (Bool, U8..U64, I8..I64, F32, F64).
func Primitive(k Kind) Type {
	return Type{Kind: k}
}

// Size returns the type's size in bytes, used to re-anchor a structure's
// cursor after a member and to derive dynamic-array element counts. An
// Array's size is the product of its dimension lengths times the element
// size, even though parsing reports an array's own consumption as zero.
func (t Type) Size() uint64 {
	switch t.Kind {
	case KindEnumeration:
		return t.Underlying.Size()
	case KindStructure:
		return t.DeclaredSize
	case KindPointer:
		return t.Pointee.Size()
	case KindArray:
		n := uint64(1)
		for _, l := range t.Lengths {
			n *= l
		}
		return n * t.Element.Size()
	default:
		return uint64(widths[t.Kind])
	}
}
