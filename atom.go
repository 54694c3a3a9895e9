// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package fy

// ScalarStyle classifies how a scalar atom was spelled in the source.
type ScalarStyle int8

const (
	// StylePlain is an unquoted scalar.
	StylePlain ScalarStyle = iota
	// StyleSingleQuoted is a '...' scalar.
	StyleSingleQuoted
	// StyleDoubleQuoted is a "..." scalar.
	StyleDoubleQuoted
	// StyleLiteral is a |-block scalar.
	StyleLiteral
	// StyleFolded is a >-block scalar.
	StyleFolded
	// StyleURI marks an atom holding a tag/anchor/verbatim-URI spelling.
	StyleURI
	// StyleComment marks an atom holding comment text.
	StyleComment
)

func (s ScalarStyle) String() string {
	switch s {
	case StylePlain:
		return "plain"
	case StyleSingleQuoted:
		return "single-quoted"
	case StyleDoubleQuoted:
		return "double-quoted"
	case StyleLiteral:
		return "literal"
	case StyleFolded:
		return "folded"
	case StyleURI:
		return "uri"
	case StyleComment:
		return "comment"
	default:
		return "unknown"
	}
}

// ChompMode controls how a block scalar's trailing line breaks are kept.
type ChompMode int8

const (
	// ChompClip keeps a single trailing line break (the default).
	ChompClip ChompMode = iota
	// ChompStrip removes all trailing line breaks.
	ChompStrip
	// ChompKeep keeps all trailing line breaks verbatim.
	ChompKeep
)

func (c ChompMode) String() string {
	switch c {
	case ChompStrip:
		return "strip"
	case ChompKeep:
		return "keep"
	default:
		return "clip"
	}
}

// autoIndent is the sentinel for Atom.Indent meaning "derive the block
// scalar's content indentation from the first non-empty line" rather than
// from an explicit indentation-indicator digit.
const autoIndent = -1

// Atom is a half-open byte range [Start, End) inside exactly one input,
// plus the scalar metadata the scanner computed while scanning it. Atoms
// are value objects: copying one is cheap and never mutates shared state.
type Atom struct {
	Start Mark
	End   Mark

	Style ScalarStyle
	Chomp ChompMode

	// Indent is the explicit block-scalar indentation increment, or
	// autoIndent when it must be derived from the first content line.
	Indent int

	// Precomputed booleans, filled in by the scanner as it scans the atom
	// so that downstream consumers never need to re-walk the bytes.
	HasWS        bool
	HasLB        bool
	StartsWithWS bool
	StartsWithLB bool
	EndsWithWS   bool
	EndsWithLB   bool
	TrailingLB   bool
	Empty        bool

	// DirectOutput is true when the atom's raw bytes are exactly its
	// logical content (no escape processing, no folding) and so may be
	// taken verbatim by a consumer that only wants the text.
	DirectOutput bool

	// StorageHint is the length, in bytes, of the fully processed
	// (unescaped/unfolded) representation of this atom's content. The
	// scanner sets it from the processed value; nothing recomputes it to
	// check it.
	StorageHint int
}

// Len returns the raw byte length of the atom's source span.
func (a Atom) Len() int {
	return a.End.Index - a.Start.Index
}

// Bytes returns the atom's raw (unescaped) byte slice out of src, which
// must be the buffer that owns a.Start.Input.
func (a Atom) Bytes(src []byte) []byte {
	if a.Start.Index < 0 || a.End.Index > len(src) || a.Start.Index > a.End.Index {
		return nil
	}
	return src[a.Start.Index:a.End.Index]
}
