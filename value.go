// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import "strings"

// parseValue materializes a Var from t by consuming bytes from c. It
// returns the Var and the number of payload bytes consumed.
//
// A zero byte decodes as Bool-true. The convention is inverted on purpose:
// the reference decoders for the cdefmt wire format decode it this way, and
// images built against them must render identically here. Changing it would
// silently flip every boolean argument on real captures.
func parseValue(t Type, c *cursor) (Var, uint64, error) {
	switch t.Kind {
	case KindBool:
		b, err := c.readU8()
		if err != nil {
			return Var{}, 0, err
		}
		return Var{Kind: KindBool, Bool: b == 0}, 1, nil

	case KindU8:
		v, err := c.readU8()
		return Var{Kind: KindU8, U8: v}, 1, err
	case KindU16:
		v, err := c.readU16()
		return Var{Kind: KindU16, U16: v}, 2, err
	case KindU32:
		v, err := c.readU32()
		return Var{Kind: KindU32, U32: v}, 4, err
	case KindU64:
		v, err := c.readU64()
		return Var{Kind: KindU64, U64: v}, 8, err
	case KindI8:
		v, err := c.readI8()
		return Var{Kind: KindI8, I8: v}, 1, err
	case KindI16:
		v, err := c.readI16()
		return Var{Kind: KindI16, I16: v}, 2, err
	case KindI32:
		v, err := c.readI32()
		return Var{Kind: KindI32, I32: v}, 4, err
	case KindI64:
		v, err := c.readI64()
		return Var{Kind: KindI64, I64: v}, 8, err
	case KindF32:
		v, err := c.readF32()
		return Var{Kind: KindF32, F32: v}, 4, err
	case KindF64:
		v, err := c.readF64()
		return Var{Kind: KindF64, F64: v}, 8, err

	case KindEnumeration:
		inner, n, err := parseValue(*t.Underlying, c)
		if err != nil {
			return Var{}, 0, err
		}
		return Var{
			Kind:           KindEnumeration,
			EnumValue:      &inner,
			EnumValidNames: t.EnumValues,
		}, n, nil

	case KindStructure:
		members, err := parseStructureMembers(t, c, 0)
		if err != nil {
			return Var{}, 0, err
		}
		return Var{Kind: KindStructure, Members: members}, t.DeclaredSize, nil

	case KindPointer:
		inner, n, err := parseValue(*t.Pointee, c)
		if err != nil {
			return Var{}, 0, err
		}
		return Var{Kind: KindPointer, PointerValue: &inner}, n, nil

	case KindArray:
		l := t.Lengths[0]
		elems := make([]Var, 0, l)
		innerLengths := t.Lengths[1:]
		elemType := *t.Element
		if len(innerLengths) > 0 {
			elemType = NewArray(*t.Element, innerLengths)
		}
		for i := uint64(0); i < l; i++ {
			v, _, err := parseValue(elemType, c)
			if err != nil {
				return Var{}, 0, err
			}
			elems = append(elems, v)
		}
		// Arrays never report consumed bytes of their own; the enclosing
		// structure re-anchors the cursor using its declared size instead.
		// A standalone top-level array would under-consume for exactly this
		// reason -- see parseLogArgs, which only accepts a Structure.
		return Var{Kind: KindArray, Elements: elems}, 0, nil

	default:
		return Var{}, 0, errCustom("unknown type kind during value parsing")
	}
}

const (
	logIDMember        = "log_id"
	dynamicDataMember  = "dynamic_data"
	dynamicArrayMarker = "dynamic_array"
)

// parseLogArgs parses a frame's payload against the log site's args
// structure and returns one Var per argument. The generated args structure
// always leads with a log_id member holding the identifier the facade has
// already consumed off the wire, so that member is skipped by name (its
// bytes are not in the payload cursor, only its footprint in the member
// offsets). A trailing dynamic_data member carries the variable payload
// region and is likewise excluded from the member list; see the dynamic
// second pass in parseStructureMembers.
func parseLogArgs(t Type, c *cursor) ([]Var, error) {
	if t.Kind != KindStructure {
		return nil, ErrNotStructure
	}
	members, err := parseStructureMembers(t, c, logArgsTopLevel)
	if err != nil {
		return nil, err
	}
	args := make([]Var, len(members))
	for i, m := range members {
		args[i] = m.Value
	}
	return args, nil
}

type structureFlags int

const (
	// logArgsTopLevel marks the outermost args-structure walk, where the
	// log_id member is accounted for but never read.
	logArgsTopLevel structureFlags = 1 << iota
)

// parseStructureMembers walks a structure's members in declaration order,
// maintaining a running offset: a gap before a member is skipped, and after
// the last member the cursor is advanced up to the declared size so tail
// padding never leaks into whatever follows the structure on the wire.
//
// A trailing dynamic_data member is omitted from this fixed pass. Once the
// fixed members are parsed, every earlier member whose name contains
// "dynamic_array" is a small placeholder struct whose [0] is a byte count
// and whose [1] is an array type; its parsed placeholder value is replaced
// by count/element_size elements read from the cursor, which at that point
// sits at the start of the trailing variable region.
func parseStructureMembers(t Type, c *cursor, flags structureFlags) ([]StructureMember, error) {
	members := make([]StructureMember, 0, len(t.Members))
	totalOffset := uint64(0)

	type dynamicSlot struct {
		index       int
		elementType Type
	}
	var dynamicSlots []dynamicSlot

	for _, m := range t.Members {
		if m.Name == dynamicDataMember {
			continue
		}
		if flags&logArgsTopLevel != 0 && m.Name == logIDMember {
			// The identifier was read before the payload cursor was built;
			// count its footprint so the next member's gap computes right.
			totalOffset = m.Offset + m.Type.Size()
			continue
		}

		if m.Offset > totalOffset {
			if err := c.skip(m.Offset - totalOffset); err != nil {
				return nil, err
			}
			totalOffset = m.Offset
		}

		v, n, err := parseValue(m.Type, c)
		if err != nil {
			return nil, err
		}
		totalOffset += n

		if strings.Contains(m.Name, dynamicArrayMarker) {
			if elemType, ok := dynamicArrayElementType(m.Type); ok {
				dynamicSlots = append(dynamicSlots, dynamicSlot{index: len(members), elementType: elemType})
			}
		}

		members = append(members, StructureMember{Name: m.Name, Value: v})
	}

	if t.DeclaredSize < totalOffset {
		return nil, errCustom("structure's declared size is smaller than its parsed members")
	}
	if err := c.skip(t.DeclaredSize - totalOffset); err != nil {
		return nil, err
	}

	for _, slot := range dynamicSlots {
		sizeBytes, ok := dynamicArraySizeBytes(members[slot.index].Value)
		if !ok {
			continue
		}
		elemSize := slot.elementType.Size()
		if elemSize == 0 {
			continue
		}
		count := sizeBytes / elemSize
		elems := make([]Var, 0, count)
		for i := uint64(0); i < count; i++ {
			v, _, err := parseValue(slot.elementType, c)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		members[slot.index].Value = Var{Kind: KindArray, Elements: elems}
	}

	return members, nil
}

// dynamicArrayElementType recognizes the "byte count, then array" struct
// shape of a dynamic_array_* member and returns the array's element type.
func dynamicArrayElementType(t Type) (Type, bool) {
	if t.Kind != KindStructure || len(t.Members) < 2 {
		return Type{}, false
	}
	arrTy := t.Members[1].Type
	if arrTy.Kind != KindArray {
		return Type{}, false
	}
	return *arrTy.Element, true
}

// dynamicArraySizeBytes extracts the byte count from an already-parsed
// dynamic_array_* placeholder.
func dynamicArraySizeBytes(v Var) (uint64, bool) {
	if v.Kind != KindStructure || len(v.Members) == 0 {
		return 0, false
	}
	n, ok := v.Members[0].Value.AsInt()
	if !ok || n < 0 {
		return 0, false
	}
	return uint64(n), true
}
