// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"strconv"
	"strings"
)

// Align is the `<`/`^`/`>` alignment specifier.
type Align int

const (
	AlignNone Align = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// DisplayType is the `type` letter of a format spec. DisplayString (`s`)
// prints byte values as text, which is how byte arrays become strings.
type DisplayType int

const (
	DisplayDefault DisplayType = iota
	DisplayBinary
	DisplayDebug
	DisplayLowerExp
	DisplayLowerHex
	DisplayOctal
	DisplayPointer
	DisplayUpperExp
	DisplayUpperHex
	DisplayString
)

// DisplayHint is a parsed format spec: `[align][sign][alternate][zero_pad][width]['.'precision][type]`.
type DisplayHint struct {
	Align     Align
	Sign      bool
	Alternate bool
	ZeroPad   bool
	Width     *int
	Precision *int
	Type      DisplayType
}

// ParameterPositionKind distinguishes a placeholder's binding mode.
type ParameterPositionKind int

const (
	PositionImplicit ParameterPositionKind = iota
	PositionPositional
	PositionNamed
)

// ParameterPosition is the `position` portion of a placeholder spec: empty
// (implicit, args[running index]), a digit sequence (positional), or an
// identifier (named, looked up against the metadata's parameter names).
type ParameterPosition struct {
	Kind  ParameterPositionKind
	Index int    // valid when Kind == PositionPositional
	Name  string // valid when Kind == PositionNamed
}

// Parameter is one parsed `{...}` placeholder body.
type Parameter struct {
	Position ParameterPosition
	Hint     DisplayHint
}

// parseParameter parses the text between a placeholder's braces:
// `[position][':' format_spec]`. An empty or unparseable body degenerates
// to an implicit position with the default hint.
func parseParameter(body string) Parameter {
	rest := body
	position := ParameterPosition{Kind: PositionImplicit}

	if i := leadingDigits(rest); i > 0 {
		n, err := strconv.Atoi(rest[:i])
		if err == nil {
			position = ParameterPosition{Kind: PositionPositional, Index: n}
			rest = rest[i:]
		}
	} else if i := leadingIdent(rest); i > 0 {
		position = ParameterPosition{Kind: PositionNamed, Name: rest[:i]}
		rest = rest[i:]
	}

	hint := DisplayHint{Type: DisplayDefault}
	if strings.HasPrefix(rest, ":") {
		hint = parseFormatSpec(rest[1:])
	}

	return Parameter{Position: position, Hint: hint}
}

func leadingDigits(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

func leadingIdent(s string) int {
	i := 0
	for i < len(s) {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' {
			i++
			continue
		}
		break
	}
	return i
}

// parseFormatSpec parses `[align][sign][alternate][zero_pad][width]['.'precision][type]`.
func parseFormatSpec(s string) DisplayHint {
	h := DisplayHint{Type: DisplayDefault}

	if len(s) > 0 {
		switch s[0] {
		case '<':
			h.Align = AlignLeft
			s = s[1:]
		case '^':
			h.Align = AlignCenter
			s = s[1:]
		case '>':
			h.Align = AlignRight
			s = s[1:]
		}
	}

	if strings.HasPrefix(s, "+") {
		h.Sign = true
		s = s[1:]
	}
	if strings.HasPrefix(s, "#") {
		h.Alternate = true
		s = s[1:]
	}
	if strings.HasPrefix(s, "0") {
		h.ZeroPad = true
		s = s[1:]
	}

	if i := leadingDigits(s); i > 0 {
		w, _ := strconv.Atoi(s[:i])
		h.Width = &w
		s = s[i:]
	}

	if strings.HasPrefix(s, ".") {
		s = s[1:]
		if i := leadingDigits(s); i > 0 {
			p, _ := strconv.Atoi(s[:i])
			h.Precision = &p
			s = s[i:]
		}
	}

	if len(s) > 0 {
		switch s[0] {
		case 'b':
			h.Type = DisplayBinary
		case '?':
			h.Type = DisplayDebug
		case 'e':
			h.Type = DisplayLowerExp
		case 'x':
			h.Type = DisplayLowerHex
		case 'o':
			h.Type = DisplayOctal
		case 'p':
			h.Type = DisplayPointer
		case 'E':
			h.Type = DisplayUpperExp
		case 'X':
			h.Type = DisplayUpperHex
		case 's':
			h.Type = DisplayString
		}
	}

	return h
}

// FragmentKind discriminates a tokenized piece of a format string.
type FragmentKind int

const (
	FragmentLiteral FragmentKind = iota
	FragmentEscaped
	FragmentParameter
	FragmentError
)

// Fragment is one token produced by tokenizeFormat.
type Fragment struct {
	Kind      FragmentKind
	Literal   string // FragmentLiteral
	Escaped   byte   // FragmentEscaped: '{' or '}'
	Parameter Parameter
	ErrorText string // FragmentError: the raw unterminated remainder
}

// tokenizeFormat splits a format string into literal runs, `{{`/`}}`
// escapes, and `{...}` placeholders. An unterminated `{` (no matching `}`)
// yields a single trailing FragmentError carrying the rest of the string.
func tokenizeFormat(s string) []Fragment {
	var out []Fragment
	for len(s) > 0 {
		switch {
		case strings.HasPrefix(s, "{{"):
			out = append(out, Fragment{Kind: FragmentEscaped, Escaped: '{'})
			s = s[2:]
		case strings.HasPrefix(s, "}}"):
			out = append(out, Fragment{Kind: FragmentEscaped, Escaped: '}'})
			s = s[2:]
		case strings.HasPrefix(s, "{"):
			idx := strings.IndexByte(s, '}')
			if idx < 0 {
				out = append(out, Fragment{Kind: FragmentError, ErrorText: s})
				s = ""
				continue
			}
			body := s[1:idx]
			out = append(out, Fragment{Kind: FragmentParameter, Parameter: parseParameter(body)})
			s = s[idx+1:]
		default:
			// A literal run ends at the next placeholder or }} escape; a
			// lone } passes through as literal text.
			cut := strings.IndexByte(s, '{')
			if jdx := strings.Index(s, "}}"); jdx >= 0 && (cut < 0 || jdx < cut) {
				cut = jdx
			}
			if cut < 0 {
				out = append(out, Fragment{Kind: FragmentLiteral, Literal: s})
				s = ""
			} else {
				out = append(out, Fragment{Kind: FragmentLiteral, Literal: s[:cut]})
				s = s[cut:]
			}
		}
	}
	return out
}
