// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"debug/dwarf"
	"fmt"
)

// DWARF base-type encodings (DW_ATE_*), not exported by debug/dwarf since
// it resolves them internally through its own Type graph. This package
// walks raw Entry/Field data instead (see typeResolver), so it needs the
// raw encoding values.
const (
	dwATEAddress      = 0x1
	dwATEBoolean      = 0x2
	dwATEComplexFloat = 0x3
	dwATEFloat        = 0x4
	dwATESigned       = 0x5
	dwATESignedChar   = 0x6
	dwATEUnsigned     = 0x7
	dwATEUnsignedChar = 0x8
)

// maxArrayBound is the upper_bound some compilers emit for a zero-length
// array: the 64-bit all-ones value. An all-ones bound of a narrower width
// is not recognised and is treated as an ordinary bound.
const maxArrayBound = ^uint64(0)

// typeResolver walks a single *dwarf.Data's debug-info tree to resolve the
// args-structure Type for a log site. The walk is cursor-driven
// (Reader.Next/SkipChildren) rather than recursive over children, so deep
// entry trees in large images can't blow the stack; only type references
// recurse, and C argument types don't cycle.
type typeResolver struct {
	data *dwarf.Data
}

func newTypeResolver(data *dwarf.Data) *typeResolver {
	return &typeResolver{data: data}
}

// GetType finds the structure type named typeName inside the compilation
// unit named compilationUnitName and fully parses it. A lookup miss is
// reported as NoCompilationUnitError or NoTypeError; the Decoder treats
// either as "this log site has no argument type", while callers that
// require a hit can surface them directly.
func (r *typeResolver) GetType(compilationUnitName, typeName string) (Type, error) {
	cu, err := r.findCompilationUnit(compilationUnitName)
	if err != nil {
		return Type{}, err
	}
	if cu == nil {
		return Type{}, &NoCompilationUnitError{Name: compilationUnitName}
	}

	offset, found, err := r.findTypeDIE(cu, typeName)
	if err != nil {
		return Type{}, err
	}
	if !found {
		return Type{}, &NoTypeError{Name: typeName}
	}

	reader := r.data.Reader()
	reader.Seek(offset)
	entry, err := reader.Next()
	if err != nil {
		return Type{}, err
	}
	if entry == nil {
		return Type{}, &NoDIEError{Offset: int64(offset)}
	}

	t, err := r.parseType(reader, cu, entry)
	if err != nil {
		loc := r.sourceLocation(cu, entry)
		return Type{}, wrapParseContext(err, "type", r.entryName(entry), loc)
	}
	return t, nil
}

// findCompilationUnit scans every top-level unit for a DW_TAG_compile_unit
// entry whose DW_AT_name equals name.
func (r *typeResolver) findCompilationUnit(name string) (*dwarf.Entry, error) {
	reader := r.data.Reader()
	for {
		entry, err := reader.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, nil
		}
		if entry.Tag != dwarf.TagCompileUnit {
			reader.SkipChildren()
			continue
		}
		unitName, _ := entry.Val(dwarf.AttrName).(string)
		if unitName == name {
			return entry, nil
		}
		reader.SkipChildren()
	}
}

// findTypeDIE steps into the unit's compile-unit entry, then loops over
// entries: on a structure entry, compare name and return its offset on
// match, else advance to the next sibling (or ascend if none); on
// subprogram/lexical-block entries, descend depth-first; on any other tag,
// advance to the next sibling (or ascend). Structure entries can be nested
// inside functions and blocks but not inside each other at this level,
// which is why only those two tags are descended into.
func (r *typeResolver) findTypeDIE(cu *dwarf.Entry, typeName string) (dwarf.Offset, bool, error) {
	reader := r.data.Reader()
	reader.Seek(cu.Offset)

	cuEntry, err := reader.Next()
	if err != nil {
		return 0, false, err
	}
	if cuEntry == nil || !cuEntry.Children {
		return 0, false, nil
	}

	depth := 0
	entry, err := reader.Next()
	if err != nil {
		return 0, false, err
	}

	for {
		if entry == nil {
			return 0, false, nil
		}
		if entry.Tag == 0 {
			depth--
			if depth < 0 {
				return 0, false, nil
			}
			entry, err = reader.Next()
			if err != nil {
				return 0, false, err
			}
			continue
		}

		switch entry.Tag {
		case dwarf.TagStructType:
			name, _ := entry.Val(dwarf.AttrName).(string)
			if name == typeName {
				return entry.Offset, true, nil
			}
			if entry.Children {
				reader.SkipChildren()
			}
			entry, err = reader.Next()
		case dwarf.TagSubprogram, dwarf.TagLexDwarfBlock:
			if entry.Children {
				depth++
			}
			entry, err = reader.Next()
		default:
			if entry.Children {
				reader.SkipChildren()
			}
			entry, err = reader.Next()
		}
		if err != nil {
			return 0, false, err
		}
	}
}

// parseType parses the type entry the reader is currently positioned at,
// dispatching on its tag.
func (r *typeResolver) parseType(reader *dwarf.Reader, cu, entry *dwarf.Entry) (Type, error) {
	switch entry.Tag {
	case dwarf.TagBaseType:
		return r.parseBase(entry)

	case dwarf.TagEnumerationType:
		return r.parseEnumeration(reader, cu, entry)

	case dwarf.TagPointerType:
		return r.parsePointer(entry)

	case dwarf.TagStructType:
		return r.parseStructureType(reader, cu, entry)

	case dwarf.TagArrayType:
		return r.parseArray(reader, cu, entry)

	case dwarf.TagConstType, dwarf.TagTypedef:
		kind := "const type"
		if entry.Tag == dwarf.TagTypedef {
			kind = "typedef"
		}
		ref, ok := entry.Val(dwarf.AttrType).(dwarf.Offset)
		if !ok {
			return Type{}, ErrBadAttribute
		}
		inner, innerEntry, err := r.seekAndRead(ref)
		if err != nil {
			return Type{}, err
		}
		t, err := r.parseType(inner, cu, innerEntry)
		if err != nil {
			loc := r.sourceLocation(cu, innerEntry)
			return Type{}, wrapParseContext(err, kind, r.entryName(innerEntry), loc)
		}
		return t, nil

	default:
		return Type{}, &UnexpectedTagError{Tag: fmt.Sprintf("%v", entry.Tag)}
	}
}

// seekAndRead positions a fresh Reader at off and reads the entry there,
// used whenever a type reference must be followed (DW_AT_type points to an
// arbitrary offset, not necessarily a descendant of the current entry).
func (r *typeResolver) seekAndRead(off dwarf.Offset) (*dwarf.Reader, *dwarf.Entry, error) {
	reader := r.data.Reader()
	reader.Seek(off)
	entry, err := reader.Next()
	if err != nil {
		return nil, nil, err
	}
	if entry == nil {
		return nil, nil, &NoDIEError{Offset: int64(off)}
	}
	return reader, entry, nil
}

func (r *typeResolver) parseBase(entry *dwarf.Entry) (Type, error) {
	byteSize, ok1 := entry.Val(dwarf.AttrByteSize).(int64)
	encoding, ok2 := entry.Val(dwarf.AttrEncoding).(int64)
	if !ok1 || !ok2 {
		return Type{}, ErrBadAttribute
	}

	switch {
	case byteSize == 1 && encoding == dwATEBoolean:
		return Primitive(KindBool), nil
	case byteSize == 1 && (encoding == dwATEUnsigned || encoding == dwATEUnsignedChar):
		return Primitive(KindU8), nil
	case byteSize == 2 && encoding == dwATEUnsigned:
		return Primitive(KindU16), nil
	case byteSize == 4 && encoding == dwATEUnsigned:
		return Primitive(KindU32), nil
	case byteSize == 8 && encoding == dwATEUnsigned:
		return Primitive(KindU64), nil
	case byteSize == 1 && (encoding == dwATESigned || encoding == dwATESignedChar):
		return Primitive(KindI8), nil
	case byteSize == 2 && encoding == dwATESigned:
		return Primitive(KindI16), nil
	case byteSize == 4 && encoding == dwATESigned:
		return Primitive(KindI32), nil
	case byteSize == 8 && encoding == dwATESigned:
		return Primitive(KindI64), nil
	case byteSize == 4 && encoding == dwATEFloat:
		return Primitive(KindF32), nil
	case byteSize == 8 && encoding == dwATEFloat:
		return Primitive(KindF64), nil
	default:
		return Type{}, &UnsupportedBaseTypeError{Encoding: encoding, Size: byteSize}
	}
}

func (r *typeResolver) parsePointer(entry *dwarf.Entry) (Type, error) {
	byteSize, ok := entry.Val(dwarf.AttrByteSize).(int64)
	if !ok {
		return Type{}, ErrBadAttribute
	}
	var pointee Kind
	switch byteSize {
	case 1:
		pointee = KindU8
	case 2:
		pointee = KindU16
	case 4:
		pointee = KindU32
	case 8:
		pointee = KindU64
	default:
		return Type{}, &UnsupportedPointerSizeError{Size: byteSize}
	}
	return NewPointer(Primitive(pointee)), nil
}

func (r *typeResolver) parseEnumeration(reader *dwarf.Reader, cu, entry *dwarf.Entry) (Type, error) {
	storage, err := r.enumerationStorage(cu, entry)
	if err != nil {
		return Type{}, err
	}
	if !storage.Kind.isPrimitive() || storage.Kind == KindBool || storage.Kind == KindF32 || storage.Kind == KindF64 {
		return Type{}, errCustom("C enums must have integer types!")
	}

	var order []int64
	values := map[int64]string{}

	if entry.Children {
		child, err := reader.Next()
		if err != nil {
			return Type{}, err
		}
		for child != nil && child.Tag != 0 {
			if child.Tag == dwarf.TagEnumerator {
				name, _ := child.Val(dwarf.AttrName).(string)
				var value int64
				// const_value surfaces as int64 or uint64 depending on the
				// form the producer chose; either way the canonical key is
				// the sign-extended (or widened) int64.
				switch cv := child.Val(dwarf.AttrConstValue).(type) {
				case int64:
					value = cv
				case uint64:
					value = int64(cv)
				}
				if _, seen := values[value]; !seen {
					order = append(order, value)
				}
				values[value] = name
			}
			if child.Children {
				reader.SkipChildren()
			}
			child, err = reader.Next()
			if err != nil {
				return Type{}, err
			}
		}
	}

	return NewEnumeration(storage, order, values), nil
}

// enumerationStorage determines an enum's underlying integer type: recurse
// on DW_AT_type if present, otherwise parse the enumeration entry itself
// like a base type (it carries byte_size/encoding directly in that case).
func (r *typeResolver) enumerationStorage(cu, entry *dwarf.Entry) (Type, error) {
	if ref, ok := entry.Val(dwarf.AttrType).(dwarf.Offset); ok {
		inner, innerEntry, err := r.seekAndRead(ref)
		if err != nil {
			return Type{}, err
		}
		t, err := r.parseType(inner, cu, innerEntry)
		if err != nil {
			loc := r.sourceLocation(cu, innerEntry)
			return Type{}, wrapParseContext(err, "base type", r.entryName(innerEntry), loc)
		}
		return t, nil
	}
	return r.parseBase(entry)
}

func (r *typeResolver) parseStructureType(reader *dwarf.Reader, cu, entry *dwarf.Entry) (Type, error) {
	size, ok := entry.Val(dwarf.AttrByteSize).(int64)
	if !ok {
		return Type{}, ErrBadAttribute
	}

	var members []Member

	if entry.Children {
		child, err := reader.Next()
		if err != nil {
			return Type{}, err
		}
		for child != nil && child.Tag != 0 {
			if child.Tag == dwarf.TagMember {
				name, ok := child.Val(dwarf.AttrName).(string)
				if !ok {
					return Type{}, ErrBadAttribute
				}
				ref, ok := child.Val(dwarf.AttrType).(dwarf.Offset)
				if !ok {
					return Type{}, ErrBadAttribute
				}
				inner, innerEntry, err := r.seekAndRead(ref)
				if err != nil {
					return Type{}, err
				}
				memberType, err := r.parseType(inner, cu, innerEntry)
				if err != nil {
					loc := r.sourceLocation(cu, innerEntry)
					return Type{}, wrapParseContext(err, "structure member", r.entryName(child), loc)
				}

				offset, _ := child.Val(dwarf.AttrDataMemberLoc).(int64)
				members = append(members, Member{Name: name, Offset: uint64(offset), Type: memberType})
			}
			if child.Children {
				reader.SkipChildren()
			}
			child, err = reader.Next()
			if err != nil {
				return Type{}, err
			}
		}
	}

	return NewStructure(members, uint64(size)), nil
}

func (r *typeResolver) parseArray(reader *dwarf.Reader, cu, entry *dwarf.Entry) (Type, error) {
	var element Type
	if ref, ok := entry.Val(dwarf.AttrType).(dwarf.Offset); ok {
		inner, innerEntry, err := r.seekAndRead(ref)
		if err != nil {
			return Type{}, err
		}
		t, err := r.parseType(inner, cu, innerEntry)
		if err != nil {
			loc := r.sourceLocation(cu, innerEntry)
			return Type{}, wrapParseContext(err, "array type", r.entryName(innerEntry), loc)
		}
		element = t
	} else {
		t, err := r.parseBase(entry)
		if err != nil {
			return Type{}, err
		}
		element = t
	}

	var lengths []uint64
	if entry.Children {
		child, err := reader.Next()
		if err != nil {
			return Type{}, err
		}
		for child != nil && child.Tag != 0 {
			if child.Tag == dwarf.TagSubrangeType {
				dim, err := parseArrayDimension(child)
				if err != nil {
					loc := r.sourceLocation(cu, child)
					return Type{}, wrapParseContext(err, fmt.Sprintf("array dimension %d", len(lengths)), r.entryName(child), loc)
				}
				lengths = append(lengths, dim)
			}
			if child.Children {
				reader.SkipChildren()
			}
			child, err = reader.Next()
			if err != nil {
				return Type{}, err
			}
		}
	}
	if len(lengths) == 0 {
		return Type{}, errCustom("array type has no subrange dimensions")
	}

	return NewArray(element, lengths), nil
}

func parseArrayDimension(entry *dwarf.Entry) (uint64, error) {
	if v, ok := entry.Val(dwarf.AttrCount).(int64); ok {
		return uint64(v), nil
	}

	lower := int64(0)
	if v, ok := entry.Val(dwarf.AttrLowerBound).(int64); ok {
		lower = v
	}

	upper, ok := entry.Val(dwarf.AttrUpperBound).(int64)
	if !ok {
		return 0, &NoAttributeError{Attr: "DW_AT_upper_bound"}
	}

	if uint64(upper) == maxArrayBound {
		return 0, nil
	}

	return uint64(1 + upper - lower), nil
}

// entryName returns the entry's DW_AT_name, or "<unnamed>" if absent.
func (r *typeResolver) entryName(entry *dwarf.Entry) string {
	if entry == nil {
		return "<unnamed>"
	}
	if name, ok := entry.Val(dwarf.AttrName).(string); ok {
		return name
	}
	return "<unnamed>"
}

// sourceLocation resolves "file:line:col" for entry using the compilation
// unit's line-number program. Returns "<unknown>" if any piece is
// unavailable.
func (r *typeResolver) sourceLocation(cu, entry *dwarf.Entry) string {
	if entry == nil {
		return "<unknown>"
	}
	fileIdx, ok := entry.Val(dwarf.AttrDeclFile).(int64)
	if !ok || fileIdx == 0 {
		return "<unknown>"
	}
	line, lok := entry.Val(dwarf.AttrDeclLine).(int64)
	col, cok := entry.Val(dwarf.AttrDeclColumn).(int64)
	if !lok || !cok {
		return "<unknown>"
	}

	lineReader, err := r.data.LineReader(cu)
	if err != nil || lineReader == nil {
		return "<unknown>"
	}
	files := lineReader.Files()
	if fileIdx < 0 || int(fileIdx) >= len(files) || files[fileIdx] == nil {
		return "<unknown>"
	}

	return fmt.Sprintf("%s:%d:%d", files[fileIdx].Name, line, col)
}
