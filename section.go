// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"bytes"
	"compress/zlib"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Section returns the uncompressed bytes of the named section, or
// NoSectionError if absent. Uncompressed sections come back as slice
// views over the image buffer; compressed ones are inflated into a fresh
// buffer.
func (img *Image) Section(name string) ([]byte, error) {
	s := img.elf.Section(name)
	if s == nil {
		return nil, &NoSectionError{Name: name}
	}
	return img.sectionBytes(s)
}

// sectionBytes materializes a section's contents, handling the
// SHF_COMPRESSED encodings toolchains apply to debug-heavy sections.
// debug/elf's own Data accessor predates zstd-compressed sections on some
// supported toolchains, so the compression header is parsed here and both
// zlib and zstd payloads are inflated explicitly.
func (img *Image) sectionBytes(s *elf.Section) ([]byte, error) {
	if s.Type == elf.SHT_NOBITS {
		return nil, &NoSectionError{Name: s.Name}
	}

	raw, err := img.rawSection(s)
	if err != nil {
		return nil, err
	}

	if s.Flags&elf.SHF_COMPRESSED == 0 {
		return raw, nil
	}

	ctype, size, payload, err := parseCompressionHeader(raw, img.elf.Class, img.order)
	if err != nil {
		return nil, fmt.Errorf("cdefmt: section %s: %w", s.Name, err)
	}

	switch ctype {
	case elf.COMPRESS_ZLIB:
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("cdefmt: section %s: %w", s.Name, err)
		}
		defer zr.Close()
		var buf bytes.Buffer
		buf.Grow(int(size))
		if _, err := io.CopyN(&buf, zr, int64(size)); err != nil {
			return nil, fmt.Errorf("cdefmt: section %s: %w", s.Name, err)
		}
		return buf.Bytes(), nil

	case elf.COMPRESS_ZSTD:
		zr, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		out, err := zr.DecodeAll(payload, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("cdefmt: section %s: %w", s.Name, err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("cdefmt: section %s has unsupported compression type %d", s.Name, ctype)
	}
}

// rawSection slices the section's on-disk bytes out of the image buffer,
// bypassing debug/elf's transparent decompression so the compression
// header is still visible.
func (img *Image) rawSection(s *elf.Section) ([]byte, error) {
	end := s.Offset + s.FileSize
	if end < s.Offset || end > uint64(len(img.raw)) {
		return nil, fmt.Errorf("cdefmt: section %s extends past the end of the image", s.Name)
	}
	return img.raw[s.Offset:end], nil
}

// parseCompressionHeader decodes the Elf32_Chdr/Elf64_Chdr leading a
// SHF_COMPRESSED section, returning the compression type, uncompressed
// size, and the compressed payload that follows the header.
func parseCompressionHeader(raw []byte, class elf.Class, order binary.ByteOrder) (elf.CompressionType, uint64, []byte, error) {
	switch class {
	case elf.ELFCLASS32:
		// Elf32_Chdr: ch_type, ch_size, ch_addralign, all u32.
		if len(raw) < 12 {
			return 0, 0, nil, errCustom("compressed section header is truncated")
		}
		ctype := elf.CompressionType(order.Uint32(raw[0:4]))
		size := uint64(order.Uint32(raw[4:8]))
		return ctype, size, raw[12:], nil
	case elf.ELFCLASS64:
		// Elf64_Chdr: ch_type u32, ch_reserved u32, ch_size u64,
		// ch_addralign u64.
		if len(raw) < 24 {
			return 0, 0, nil, errCustom("compressed section header is truncated")
		}
		ctype := elf.CompressionType(order.Uint32(raw[0:4]))
		size := order.Uint64(raw[8:16])
		return ctype, size, raw[24:], nil
	default:
		return 0, 0, nil, ErrNoAddressSize
	}
}
