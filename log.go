// Copyright 2024 The cdefmt-go Authors.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package cdefmt

// Log is one decoded frame: a log site's metadata paired with the argument
// values parsed from the frame's payload (args is nil for a log site with
// no argument structure).
type Log struct {
	metadata Metadata
	args     []Var
	rc       renderContext
}

func newLog(metadata Metadata, args []Var, rc renderContext) Log {
	return Log{metadata: metadata, args: args, rc: rc}
}

// Level returns the log site's severity.
func (l Log) Level() Level { return l.metadata.Level }

// File returns the log site's source/compilation-unit name.
func (l Log) File() string { return l.metadata.File }

// Line returns the log site's source line.
func (l Log) Line() int { return l.metadata.Line }

// Args returns the parsed argument values, or nil if the log site has no
// argument structure.
func (l Log) Args() []Var { return l.args }

// String renders the log's format string against its arguments. It never
// fails; binding and formatting problems are emitted inline.
func (l Log) String() string {
	return renderFormat(l.metadata.Fmt, l.metadata.Names, l.args, l.rc)
}
