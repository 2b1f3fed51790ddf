// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"fmt"
	"strings"
)

// renderFormat binds args against fmtStr's placeholders and renders the
// full message. names is the metadata's parallel parameter-name list used
// for named lookups; rc supplies the image's address size for Pointer
// rendering. Binding failures never fail the render: each one emits an
// inline `{No ... parameter ...}` placeholder and the walk continues.
func renderFormat(fmtStr string, names []string, args []Var, rc renderContext) string {
	fragments := tokenizeFormat(fmtStr)
	var sb strings.Builder
	implicitIndex := 0

	for _, f := range fragments {
		switch f.Kind {
		case FragmentLiteral:
			sb.WriteString(f.Literal)
		case FragmentEscaped:
			sb.WriteByte(f.Escaped)
		case FragmentError:
			sb.WriteString(fmt.Sprintf("%s (malformed format string: missing closing brace)", f.ErrorText))
		case FragmentParameter:
			p := f.Parameter
			var idx int
			switch p.Position.Kind {
			case PositionPositional:
				idx = p.Position.Index
				if idx < 0 || idx >= len(args) {
					sb.WriteString(fmt.Sprintf("{No positional parameter at index %d}", idx))
					continue
				}
			case PositionNamed:
				found := -1
				for i, n := range names {
					if n == p.Position.Name {
						found = i
						break
					}
				}
				if found < 0 {
					sb.WriteString(fmt.Sprintf("{No named parameter '%s'}", p.Position.Name))
					continue
				}
				idx = found
				if idx >= len(args) {
					sb.WriteString(fmt.Sprintf("{No parameter at index %d}", idx))
					continue
				}
			default: // PositionImplicit
				idx = implicitIndex
				implicitIndex++
				if idx >= len(args) {
					sb.WriteString(fmt.Sprintf("{No parameter at index %d}", idx))
					continue
				}
			}
			sb.WriteString(rc.renderVar(args[idx], p.Hint))
		}
	}

	return sb.String()
}
