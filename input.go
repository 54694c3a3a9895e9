// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package fy

import (
	"fmt"
	"io"
	"os"
)

// Source is the tagged union of input origins a Parser accepts (spec.md
// §6 "Input source"). Exactly one field group applies per Source; callers
// build one with the New*Source constructors rather than populating the
// struct directly.
type Source struct {
	name string
	kind sourceKind

	path     string // file
	r        io.Reader
	borrowed []byte // memory (not copied)
	owned    []byte // alloc (parser-owned, freed on Close)
	cb       func(buf []byte) (int, error)

	forcedMode JSONMode
	modeForced bool
}

type sourceKind int8

const (
	sourceFile sourceKind = iota
	sourceStream
	sourceMemory
	sourceAlloc
	sourceCallback
)

// NewFileSource opens path for reading. The file is read fully into
// memory (this port narrows the reference mmap option to a plain read;
// see SPEC_FULL.md's DOMAIN STACK section).
func NewFileSource(path string) Source {
	return Source{name: path, kind: sourceFile, path: path}
}

// NewStreamSource wraps an io.Reader with a display name for marks.
func NewStreamSource(name string, r io.Reader) Source {
	return Source{name: name, kind: sourceStream, r: r}
}

// NewMemorySource borrows buf, which must outlive the Parser.
func NewMemorySource(name string, buf []byte) Source {
	return Source{name: name, kind: sourceMemory, borrowed: buf}
}

// NewAllocSource takes ownership of buf.
func NewAllocSource(name string, buf []byte) Source {
	return Source{name: name, kind: sourceAlloc, owned: buf}
}

// NewCallbackSource pulls bytes from read, matching spec.md's
// `read_fn(user, buf, count) -> bytes | 0 EOF | <0 error` contract
// expressed as the idiomatic (n int, err error) Go shape: err == io.EOF
// ends the stream.
func NewCallbackSource(name string, read func(buf []byte) (int, error)) Source {
	return Source{name: name, kind: sourceCallback, cb: read}
}

// WithMode forces JSON or YAML scanning mode for this source, overriding
// extension-based detection and the parser-wide JSON_AUTO/NONE/FORCE
// flags.
func (s Source) WithMode(m JSONMode) Source {
	s.forcedMode = m
	s.modeForced = true
	return s
}

// input is the live, cursor-tracking form of a Source once attached to a
// Parser (spec.md §3 "Input" and §4.E). This port narrows scope to
// UTF-8-only (SPEC_FULL.md's encoding-detection supplement): the whole
// byte slice is materialized up front for every source kind, including
// callback/stream, so peek/advance operate on a flat buffer instead of a
// segmented raw/decoded ring pair. That loses the chunked-read variant of
// the reference reader but keeps Mark/Atom byte ranges trivially valid
// for the input's full lifetime.
type input struct {
	id   InputID
	name string
	buf  []byte
	mode JSONMode

	offset int // byte offset of the cursor
	line   int // 0-based
	column int // 0-based, codepoint/tab-aware

	tabSize int
}

func newInput(id InputID, src Source, flags Flag, tabSize int) (*input, error) {
	var buf []byte
	switch src.kind {
	case sourceFile:
		b, err := os.ReadFile(src.path)
		if err != nil {
			return nil, IOError{Err: err}
		}
		buf = b
	case sourceStream:
		b, err := io.ReadAll(src.r)
		if err != nil {
			return nil, IOError{Err: err}
		}
		buf = b
	case sourceMemory:
		buf = src.borrowed
	case sourceAlloc:
		buf = src.owned
	case sourceCallback:
		var acc []byte
		chunk := make([]byte, 4096)
		for {
			n, err := src.cb(chunk)
			if n > 0 {
				acc = append(acc, chunk[:n]...)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, IOError{Err: err}
			}
			if n == 0 {
				break
			}
		}
		buf = acc
	default:
		return nil, fmt.Errorf("fy: unknown source kind %d", src.kind)
	}

	mode := modeForName(flags, src.name)
	if src.modeForced {
		mode = src.forcedMode
	}
	return &input{id: id, name: src.name, buf: buf, mode: mode, tabSize: tabSize}, nil
}

func (in *input) mark() Mark {
	return Mark{Input: in.id, Index: in.offset, Line: in.line, Column: in.column}
}

// eof reports whether the cursor has consumed the whole buffer.
func (in *input) eof() bool { return in.offset >= len(in.buf) }

// peek decodes the codepoint at the cursor without advancing it. Returns
// (0, false) at EOF.
func (in *input) peek() (rune, bool) {
	return in.peekAt(0)
}

// peekAt decodes the codepoint n codepoints ahead of the cursor, walking
// forward one decode at a time (spec.md's `peek_at`); n is expected to
// stay small (lookahead for document indicators, escapes, etc).
func (in *input) peekAt(n int) (rune, bool) {
	off := in.offset
	for {
		if off >= len(in.buf) {
			return 0, false
		}
		cp, width, status := decodeUTF8(in.buf[off:])
		if status != DecodeOK {
			return 0, false
		}
		if n == 0 {
			return cp, true
		}
		n--
		off += width
	}
}

// strncmp reports whether s matches the bytes starting at the cursor.
func (in *input) strncmp(s string) bool {
	end := in.offset + len(s)
	if end > len(in.buf) {
		return false
	}
	return string(in.buf[in.offset:end]) == s
}

// isBlankzAt reports whether the codepoint n codepoints ahead is blank,
// a line break, or EOF (spec.md's `is_blankz_at_offset`).
func (in *input) isBlankzAt(n int) bool {
	cp, ok := in.peekAt(n)
	if !ok {
		return true
	}
	if cp < 0x80 && isBlankByte(byte(cp)) {
		return true
	}
	return isLineBreakCP(cp)
}

func isLineBreakCP(cp rune) bool {
	return cp == '\n' || cp == '\r' || cp == 0x85 || cp == 0x2028 || cp == 0x2029
}

// advance moves the cursor past one codepoint, updating line/column per
// the active tab policy (spec.md §4.E).
func (in *input) advance() {
	cp, ok := in.peek()
	if !ok {
		return
	}
	_, width, _ := decodeUTF8(in.buf[in.offset:])
	in.offset += width
	switch {
	case cp == '\r':
		// A bare \r is a line break; \r\n is one line break split across
		// two advances, so only \r itself bumps the line counter and the
		// following \n (if any) is column-neutral.
		in.line++
		in.column = 0
	case cp == '\n':
		if in.offset-width > 0 && in.buf[in.offset-width-1] == '\r' {
			// Already counted by the preceding \r.
			return
		}
		in.line++
		in.column = 0
	case isLineBreakCP(cp):
		in.line++
		in.column = 0
	case cp == '\t':
		if in.tabSize > 0 {
			in.column += in.tabSize
		} else {
			in.column++
		}
	default:
		in.column++
	}
}

// advanceBy advances n codepoints.
func (in *input) advanceBy(n int) {
	for i := 0; i < n; i++ {
		in.advance()
	}
}

// fillAtom builds an Atom spanning [start, current cursor).
func (in *input) fillAtom(start Mark, style ScalarStyle) Atom {
	return Atom{Start: start, End: in.mark(), Style: style}
}
