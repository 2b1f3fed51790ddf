// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"debug/elf"
	"strings"
)

// LogMetadataSymbol is one exported symbol whose name contains the
// cdefmt_log_metadata marker: its Offset is the byte offset of a log
// site's metadata record within the .cdefmt section.
type LogMetadataSymbol struct {
	Name   string
	Offset int
}

// LogMetadataSymbols returns every symbol (from the regular or dynamic
// symbol table) whose name contains cdefmt_log_metadata. These drive the
// log-site iterator and the precache pass.
func (img *Image) LogMetadataSymbols() ([]LogMetadataSymbol, error) {
	var out []LogMetadataSymbol

	if syms, err := img.elf.Symbols(); err == nil {
		out = append(out, filterLogMetadataSymbols(syms)...)
	} else if err != elf.ErrNoSymbols {
		return nil, err
	}
	if dsyms, err := img.elf.DynamicSymbols(); err == nil {
		out = append(out, filterLogMetadataSymbols(dsyms)...)
	} else if err != elf.ErrNoSymbols {
		return nil, err
	}

	return out, nil
}

func filterLogMetadataSymbols(syms []elf.Symbol) []LogMetadataSymbol {
	var out []LogMetadataSymbol
	for _, s := range syms {
		if !strings.Contains(s.Name, logMetadataMarker) {
			continue
		}
		out = append(out, LogMetadataSymbol{Name: s.Name, Offset: int(s.Value)})
	}
	return out
}
