// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// renderContext carries the ambient state a render pass needs that isn't
// part of the Var/DisplayHint themselves: the image's address size, which
// fixes the hex width a Pointer is zero-padded to.
type renderContext struct {
	addressSize int // bytes
}

// renderVar renders v under hint.
func (rc renderContext) renderVar(v Var, hint DisplayHint) string {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"

	case KindU8:
		if hint.Type == DisplayString {
			return byteAsString(v.U8)
		}
		return renderInt(int64(v.U8), uint64(v.U8), false, hint)
	case KindI8:
		if hint.Type == DisplayString {
			return byteAsString(byte(v.I8))
		}
		return renderInt(int64(v.I8), uint64(uint8(v.I8)), true, hint)
	case KindU16:
		return renderInt(int64(v.U16), uint64(v.U16), false, hint)
	case KindI16:
		return renderInt(int64(v.I16), uint64(uint16(v.I16)), true, hint)
	case KindU32:
		return renderInt(int64(v.U32), uint64(v.U32), false, hint)
	case KindI32:
		return renderInt(int64(v.I32), uint64(uint32(v.I32)), true, hint)
	case KindU64:
		return renderInt(int64(v.U64), v.U64, false, hint)
	case KindI64:
		return renderInt(v.I64, uint64(v.I64), true, hint)

	case KindF32:
		return renderFloat(float64(v.F32), 32, hint)
	case KindF64:
		return renderFloat(v.F64, 64, hint)

	case KindEnumeration:
		n, ok := v.EnumValue.AsInt()
		if !ok {
			return "<non-integer enum storage>"
		}
		if name, ok := v.EnumValidNames[n]; ok {
			return name
		}
		return strconv.FormatInt(n, 10)

	case KindStructure:
		start, join, end := "{ ", ", ", " }"
		if hint.Alternate {
			start, join, end = "{\n\t", ",\n\t", "\n}"
		}
		parts := make([]string, 0, len(v.Members))
		for _, m := range v.Members {
			parts = append(parts, fmt.Sprintf("%s: %s", m.Name, rc.renderVar(m.Value, hint)))
		}
		return start + strings.Join(parts, join) + end

	case KindPointer:
		// Width counts the 0x prefix, so the digit count always equals the
		// platform's address width in hex.
		width := rc.addressSize*2 + 2
		pointerHint := DisplayHint{
			Alternate: true,
			ZeroPad:   true,
			Width:     &width,
			Type:      DisplayLowerHex,
		}
		return rc.renderVar(*v.PointerValue, pointerHint)

	case KindArray:
		if hint.Type == DisplayString {
			var sb strings.Builder
			for _, e := range v.Elements {
				sb.WriteString(rc.renderVar(e, hint))
			}
			return sb.String()
		}
		parts := make([]string, 0, len(v.Elements))
		for _, e := range v.Elements {
			parts = append(parts, rc.renderVar(e, hint))
		}
		return "[" + strings.Join(parts, ", ") + "]"

	default:
		return fmt.Sprintf("<unrenderable %s>", v.Kind)
	}
}

// renderInt renders an integer Var under hint. signedVal is the value
// sign-extended to int64 (used for decimal/exp rendering); bits is its
// unsigned bit pattern at the value's own width (used for binary/octal/hex,
// which render the bit pattern rather than a signed magnitude).
func renderInt(signedVal int64, bits uint64, signed bool, hint DisplayHint) string {
	var body string
	switch hint.Type {
	case DisplayBinary:
		body = strconv.FormatUint(bits, 2)
	case DisplayLowerHex, DisplayPointer:
		body = strconv.FormatUint(bits, 16)
	case DisplayUpperHex:
		body = strings.ToUpper(strconv.FormatUint(bits, 16))
	case DisplayOctal:
		body = strconv.FormatUint(bits, 8)
	case DisplayLowerExp, DisplayUpperExp:
		f := float64(signedVal)
		if !signed {
			f = float64(bits)
		}
		return renderFloat(f, 64, hint)
	default:
		if signed {
			body = strconv.FormatInt(signedVal, 10)
		} else {
			body = strconv.FormatUint(bits, 10)
		}
	}

	prefix := ""
	if hint.Alternate || hint.Type == DisplayPointer {
		switch hint.Type {
		case DisplayBinary:
			prefix = "0b"
		case DisplayLowerHex, DisplayUpperHex, DisplayPointer:
			prefix = "0x"
		case DisplayOctal:
			prefix = "0o"
		}
	}

	sign := ""
	if hint.Sign && !strings.HasPrefix(body, "-") &&
		(hint.Type == DisplayDefault || hint.Type == DisplayDebug) {
		sign = "+"
	}

	return pad(sign+prefix+body, hint, len(sign)+len(prefix))
}

// renderFloat renders a float Var under hint. Default, LowerExp and
// UpperExp honor width and precision, precision defaulting to 6; every
// other type letter yields an error string.
func renderFloat(val float64, bits int, hint DisplayHint) string {
	precision := 6
	if hint.Precision != nil {
		precision = *hint.Precision
	}

	var body string
	switch hint.Type {
	case DisplayDefault, DisplayDebug:
		body = strconv.FormatFloat(val, 'f', precision, bits)
	case DisplayLowerExp:
		body = strconv.FormatFloat(val, 'e', precision, bits)
	case DisplayUpperExp:
		body = strings.ToUpper(strconv.FormatFloat(val, 'E', precision, bits))
	default:
		return fmt.Sprintf("Unable to format [%s] as %s!", strconv.FormatFloat(val, 'g', -1, bits), floatTypeName(hint.Type))
	}

	sign := ""
	if hint.Sign && !math.Signbit(val) {
		sign = "+"
	}
	return pad(sign+body, hint, len(sign))
}

// byteAsString renders a single byte as text the way a lossy UTF-8
// conversion would: ASCII passes through, anything else becomes the
// replacement character.
func byteAsString(b byte) string {
	if b < 0x80 {
		return string(rune(b))
	}
	return "�"
}

func floatTypeName(t DisplayType) string {
	switch t {
	case DisplayBinary:
		return "Binary"
	case DisplayLowerHex:
		return "LowerHex"
	case DisplayOctal:
		return "Octal"
	case DisplayString:
		return "String"
	case DisplayPointer:
		return "Pointer"
	case DisplayUpperHex:
		return "UpperHex"
	default:
		return "Unknown"
	}
}

// pad applies alignment, width and zero-padding to body. prefixLen is the
// length of a sign/base prefix already included in body that zero-padding
// must not insert digits before.
func pad(body string, hint DisplayHint, prefixLen int) string {
	if hint.Width == nil || *hint.Width <= len(body) {
		return body
	}
	padLen := *hint.Width - len(body)

	if hint.ZeroPad && hint.Align == AlignNone {
		return body[:prefixLen] + strings.Repeat("0", padLen) + body[prefixLen:]
	}

	padding := strings.Repeat(" ", padLen)
	switch hint.Align {
	case AlignLeft:
		return body + padding
	case AlignCenter:
		left := padLen / 2
		right := padLen - left
		return strings.Repeat(" ", left) + body + strings.Repeat(" ", right)
	case AlignRight:
		return padding + body
	default:
		return padding + body
	}
}
