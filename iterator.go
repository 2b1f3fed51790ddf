// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

// LogSite pairs a resolved log site's metadata with its args-type, or a
// nil ArgsType when the site carries no arguments.
type LogSite struct {
	Metadata Metadata
	ArgsType *Type
}

// LogSites resolves every cdefmt_log_metadata* symbol in the image. It
// stops at the first error and returns it alongside
// whatever sites were resolved before the failure, leaving the caller
// free to report the partial result or discard it.
func (d *Decoder) LogSites() ([]LogSite, error) {
	symbols, err := d.img.LogMetadataSymbols()
	if err != nil {
		return nil, err
	}

	sites := make([]LogSite, 0, len(symbols))
	for _, sym := range symbols {
		e, err := d.lookup(sym.Offset)
		if err != nil {
			return sites, err
		}
		sites = append(sites, LogSite{Metadata: e.metadata, ArgsType: e.argsType})
	}
	return sites, nil
}
