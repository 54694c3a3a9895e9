// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package fy

// EventType is a tagged union discriminant over the event stream the
// parser produces. Every *_START has a matching *_END; SCALAR and ALIAS
// are leaves. See the grammar in §8 property 1 of the design (docstring on
// Parser).
type EventType int8

const (
	NoEvent EventType = iota
	StreamStartEvent
	StreamEndEvent
	DocumentStartEvent
	DocumentEndEvent
	AliasEvent
	ScalarEvent
	SequenceStartEvent
	SequenceEndEvent
	MappingStartEvent
	MappingEndEvent
)

func (e EventType) String() string {
	switch e {
	case StreamStartEvent:
		return "STREAM-START"
	case StreamEndEvent:
		return "STREAM-END"
	case DocumentStartEvent:
		return "DOCUMENT-START"
	case DocumentEndEvent:
		return "DOCUMENT-END"
	case AliasEvent:
		return "ALIAS"
	case ScalarEvent:
		return "SCALAR"
	case SequenceStartEvent:
		return "SEQUENCE-START"
	case SequenceEndEvent:
		return "SEQUENCE-END"
	case MappingStartEvent:
		return "MAPPING-START"
	case MappingEndEvent:
		return "MAPPING-END"
	default:
		return "NONE"
	}
}

// CollectionStyle distinguishes block from flow for SEQUENCE/MAPPING events.
type CollectionStyle int8

const (
	BlockStyle CollectionStyle = iota
	FlowStyle
)

// Event is a tagged union over EventType. It carries the producing tokens
// (AnchorToken, TagToken, ValueToken) rather than copying their data, so a
// consumer can recover styles, source marks, and comments straight from the
// tokens without the parser duplicating that state on every event.
type Event struct {
	Type EventType
	Mark Mark

	// AnchorTok and TagTok are non-nil when the node carried an &anchor
	// and/or a !tag. ValueTok is the SCALAR/ALIAS-producing token, nil for
	// collection start/end events.
	AnchorTok *Token
	TagTok    *Token
	ValueTok  *Token

	// Style is valid for SCALAR (as ScalarStyle) and for
	// SEQUENCE/MAPPING-START (as CollectionStyle).
	Style int8

	// Implicit flags: for SCALAR, whether the tag was implicit (resolved,
	// not explicit !tag); for DOCUMENT_START/END, the start/end-implicit
	// flags from §3 Document state.
	Implicit       bool
	QuotedImplicit bool

	// Doc is populated for DOCUMENT_START/END and nil otherwise.
	Doc *DocumentState

	// VersionDirective/TagDirectives mirror the teacher's
	// Event.GetVersionDirective/GetTagDirectives accessors. The parser
	// leaves both unset on every event; a document's directives are
	// reachable through Doc.
	VersionDirective *VersionDirective
	TagDirectives    []TagDirective
}

// Anchor returns the node's anchor name, or "" if it has none. For an
// ALIAS event it returns the name of the anchor the alias refers to.
func (e *Event) Anchor() string {
	if e.AnchorTok == nil {
		if e.Type == AliasEvent && e.ValueTok != nil {
			return e.ValueTok.Name
		}
		return ""
	}
	return e.AnchorTok.Name
}

// Tag returns the node's tag as written (handle followed by suffix, or the
// verbatim URI), or "" if it has none. Handles are not expanded through
// the document's %TAG directives.
func (e *Event) Tag() string {
	if e.TagTok == nil {
		return ""
	}
	if e.TagTok.Handle == "" {
		return e.TagTok.Suffix
	}
	return e.TagTok.Handle + e.TagTok.Suffix
}

// Value returns the scalar's fully processed text, or "" for non-scalar
// events.
func (e *Event) Value() string {
	if e.ValueTok == nil {
		return ""
	}
	return e.ValueTok.Value
}

// ScalarStyleOf returns Style as a ScalarStyle; only meaningful when
// Type == ScalarEvent.
func (e *Event) ScalarStyleOf() ScalarStyle { return ScalarStyle(e.Style) }

// CollectionStyleOf returns Style as a CollectionStyle; only meaningful
// when Type is SEQUENCE_START or MAPPING_START.
func (e *Event) CollectionStyleOf() CollectionStyle { return CollectionStyle(e.Style) }
