// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

import (
	"bytes"
	"debug/dwarf"
	"debug/elf"
	"encoding/binary"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/cdefmt/cdefmt-go/internal/calog"
)

// metadataSectionName is the ELF section holding the concatenated
// per-log-site metadata records.
const metadataSectionName = ".cdefmt"

// logMetadataMarker is the substring every per-log-site symbol name
// contains; the symbol's value is the byte offset of that site's metadata
// record within the .cdefmt section.
const logMetadataMarker = "cdefmt_log_metadata"

// noteGNUBuildID is the standard ELF note type carrying a build-id.
const noteGNUBuildID = 3

// Options configures Image construction. A zero value is a usable
// default.
type Options struct {
	// Logger receives diagnostic output during parsing. Defaults to a
	// stderr logger filtered to LevelError and above.
	Logger calog.Logger
}

// Image is a read-only handle over a parsed executable container: an ELF
// file plus the address size, endianness, build-id, metadata section bytes
// and debug information the decoder needs. It borrows (or owns, when
// mmap'd) the image bytes for its entire lifetime and is read-only
// thereafter.
type Image struct {
	elf    *elf.File
	dwarf  *dwarf.Data
	raw    []byte    // the full image, for raw section access
	mapped mmap.MMap // non-nil only when opened via Open
	f      *os.File  // non-nil only when opened via Open

	order       binary.ByteOrder
	addressSize int
	buildID     []byte

	metadata []byte

	logger *calog.Helper
}

// Open memory-maps the file at name and parses it as an image.
func Open(name string, opts *Options) (*Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	img, err := newImage(data, opts)
	if err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	img.mapped = data
	img.f = f
	return img, nil
}

// OpenBytes parses an already-resident buffer as an image, without
// memory-mapping a file.
func OpenBytes(data []byte, opts *Options) (*Image, error) {
	return newImage(data, opts)
}

func newImage(data []byte, opts *Options) (*Image, error) {
	if opts == nil {
		opts = &Options{}
	}

	var logger *calog.Helper
	if opts.Logger == nil {
		logger = calog.Default()
	} else {
		logger = calog.NewHelper(opts.Logger)
	}

	ef, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	addressSize, err := addressSizeForClass(ef.Class)
	if err != nil {
		return nil, err
	}

	buildID, err := readBuildID(ef)
	if err != nil {
		return nil, err
	}

	img := &Image{
		elf:         ef,
		raw:         data,
		order:       ef.ByteOrder,
		addressSize: addressSize,
		buildID:     buildID,
		logger:      logger,
	}

	if img.elf.Section(metadataSectionName) == nil {
		return nil, ErrMissingSection
	}
	metadata, err := img.Section(metadataSectionName)
	if err != nil {
		return nil, err
	}
	img.metadata = metadata

	dwarfData, err := ef.DWARF()
	if err != nil {
		logger.Warnf("image has no usable debug information: %v", err)
		dwarfData = nil
	}
	img.dwarf = dwarfData

	return img, nil
}

// Close releases any memory mapping and underlying file held by Open.
// Images built with OpenBytes have nothing to release.
func (img *Image) Close() error {
	var err error
	if img.mapped != nil {
		err = img.mapped.Unmap()
	}
	if img.f != nil {
		if cerr := img.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ByteOrder is the image's endianness, used to decode every multi-byte
// field in metadata records and frame payloads.
func (img *Image) ByteOrder() binary.ByteOrder { return img.order }

// AddressSize is the image's pointer width in bytes (4 or 8), used to
// size the leading frame identifier and Pointer rendering.
func (img *Image) AddressSize() int { return img.addressSize }

// BuildID is the image's build-id note, used to validate the init frame.
func (img *Image) BuildID() []byte { return img.buildID }

// Metadata returns the raw, uncompressed bytes of the .cdefmt section.
func (img *Image) Metadata() []byte { return img.metadata }

// DWARF returns the image's parsed debug information, or nil if the
// image carries none.
func (img *Image) DWARF() *dwarf.Data { return img.dwarf }

// addressSizeForClass derives the platform address size from the ELF
// class.
func addressSizeForClass(class elf.Class) (int, error) {
	switch class {
	case elf.ELFCLASS32:
		return 4, nil
	case elf.ELFCLASS64:
		return 8, nil
	default:
		return 0, ErrNoAddressSize
	}
}

// readBuildID scans the image's note sections for a GNU build-id note.
// ELF stores notes as a sequence of (namesz, descsz, type, name, desc)
// records; debug/elf has no typed accessor for them, so the raw bytes are
// walked directly.
func readBuildID(ef *elf.File) ([]byte, error) {
	for _, sec := range ef.Sections {
		if sec.Type != elf.SHT_NOTE {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			continue
		}
		if id, ok := findBuildIDNote(data, ef.ByteOrder); ok {
			return id, nil
		}
	}
	return nil, ErrNoBuildID
}

func findBuildIDNote(data []byte, order binary.ByteOrder) ([]byte, bool) {
	for len(data) >= 12 {
		nameSize := order.Uint32(data[0:4])
		descSize := order.Uint32(data[4:8])
		noteType := order.Uint32(data[8:12])
		data = data[12:]

		nameEnd := align4(nameSize)
		descEnd := align4(descSize)
		if uint64(nameEnd)+uint64(descEnd) > uint64(len(data)) {
			return nil, false
		}

		name := data[:nameSize]
		desc := data[nameEnd : nameEnd+descSize]
		data = data[nameEnd+descEnd:]

		if noteType == noteGNUBuildID && string(trimNUL(name)) == "GNU" {
			return append([]byte(nil), desc...), true
		}
	}
	return nil, false
}

func align4(n uint32) uint32 { return (n + 3) &^ 3 }

func trimNUL(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}
