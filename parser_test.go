// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package fy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// collectEvents drains a Parser fed a single in-memory document, failing
// the test on any error instead of returning one (every scenario here is
// expected to parse cleanly unless noted otherwise).
func collectEvents(t *testing.T, src string) []*Event {
	t.Helper()
	p := NewParser()
	defer p.Close()
	require.NoError(t, p.AddInput(NewMemorySource("t", []byte(src))))
	var evs []*Event
	for {
		ev, err := p.Parse()
		require.NoError(t, err)
		if ev == nil {
			break
		}
		evs = append(evs, ev)
		if ev.Type == StreamEndEvent {
			break
		}
	}
	return evs
}

func eventTypes(evs []*Event) []EventType {
	out := make([]EventType, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}

// S1: flat mapping.
func TestParseFlatMapping(t *testing.T) {
	evs := collectEvents(t, "foo: bar\n")
	want := []EventType{
		StreamStartEvent, DocumentStartEvent, MappingStartEvent,
		ScalarEvent, ScalarEvent, MappingEndEvent, DocumentEndEvent, StreamEndEvent,
	}
	require.Equal(t, want, eventTypes(evs))
	require.Equal(t, "foo", evs[3].Value())
	require.Equal(t, "bar", evs[4].Value())
	require.True(t, evs[1].Implicit, "document start should be implicit")
	require.True(t, evs[6].Implicit, "document end should be implicit")
}

// S2: block sequence under a key.
func TestParseBlockSequenceUnderKey(t *testing.T) {
	evs := collectEvents(t, "items:\n  - 1\n  - 2\n")
	want := []EventType{
		StreamStartEvent, DocumentStartEvent, MappingStartEvent,
		ScalarEvent, SequenceStartEvent, ScalarEvent, ScalarEvent, SequenceEndEvent,
		MappingEndEvent, DocumentEndEvent, StreamEndEvent,
	}
	require.Equal(t, want, eventTypes(evs))
	require.Equal(t, "items", evs[3].Value())
	require.Equal(t, BlockStyle, evs[4].CollectionStyleOf())
	require.Equal(t, "1", evs[5].Value())
	require.Equal(t, "2", evs[6].Value())
}

// S3: anchor and alias.
func TestParseAnchorAndAlias(t *testing.T) {
	evs := collectEvents(t, "- &a 42\n- *a\n")
	want := []EventType{
		StreamStartEvent, DocumentStartEvent, SequenceStartEvent,
		ScalarEvent, AliasEvent, SequenceEndEvent, DocumentEndEvent, StreamEndEvent,
	}
	require.Equal(t, want, eventTypes(evs))
	require.Equal(t, "a", evs[3].Anchor())
	require.Equal(t, "42", evs[3].Value())
	require.Equal(t, "a", evs[4].Anchor())
}

// S4: folded block scalar with keep-chomp.
func TestParseFoldedBlockScalarKeepChomp(t *testing.T) {
	evs := collectEvents(t, "key: >+\n  one\n  two\n\n\n")
	var scalar *Event
	for _, e := range evs {
		if e.Type == ScalarEvent && e.Value() == "one two\n\n\n" {
			scalar = e
		}
	}
	require.NotNil(t, scalar, "expected a SCALAR event with the folded, keep-chomped text")
}

// S5: JSON-forced rejection of a single-quoted scalar.
func TestParseJSONForceRejectsSingleQuote(t *testing.T) {
	p := NewParser(WithFlags(FlagJSONForce))
	defer p.Close()
	require.NoError(t, p.AddInput(NewMemorySource("t", []byte("{'a': 1}"))))
	var lastErr error
	for {
		ev, err := p.Parse()
		if err != nil {
			lastErr = err
			break
		}
		if ev == nil {
			break
		}
	}
	require.Error(t, lastErr)
	var se SyntaxError
	require.ErrorAs(t, lastErr, &se)
}

// Boundary: empty input produces STREAM_START, STREAM_END and nothing else.
func TestParseEmptyInput(t *testing.T) {
	evs := collectEvents(t, "")
	require.Equal(t, []EventType{StreamStartEvent, StreamEndEvent}, eventTypes(evs))
}

// Boundary: a single plain scalar is its own document.
func TestParseSinglePlainScalar(t *testing.T) {
	evs := collectEvents(t, "hello\n")
	want := []EventType{StreamStartEvent, DocumentStartEvent, ScalarEvent, DocumentEndEvent, StreamEndEvent}
	require.Equal(t, want, eventTypes(evs))
	require.Equal(t, "hello", evs[2].Value())
}

// Boundary: a tab inside block-mapping indentation is a syntax error.
func TestParseTabInBlockMappingIndentationFails(t *testing.T) {
	p := NewParser()
	defer p.Close()
	require.NoError(t, p.AddInput(NewMemorySource("t", []byte("key:\n\tvalue: 1\n"))))
	var lastErr error
	for {
		ev, err := p.Parse()
		if err != nil {
			lastErr = err
			break
		}
		if ev == nil {
			break
		}
	}
	require.Error(t, lastErr)
}

// Boundary: a `---` mid-stream closes the prior (implicit) document and
// opens a new one.
func TestParseDocumentStartMidStreamClosesPrior(t *testing.T) {
	evs := collectEvents(t, "a: 1\n---\nb: 2\n")
	var starts, ends int
	for _, e := range evs {
		switch e.Type {
		case DocumentStartEvent:
			starts++
		case DocumentEndEvent:
			ends++
		}
	}
	require.Equal(t, 2, starts)
	require.Equal(t, 2, ends)
}

// Invariant 1: the event stream matches the grammar
// STREAM_START (DOCUMENT_START N DOCUMENT_END)* STREAM_END for every
// scenario above; check well-formed nesting (every START has a matching
// END, nothing closes what it didn't open) rather than re-deriving the
// full grammar.
func TestEventStreamIsWellFormed(t *testing.T) {
	inputs := []string{
		"foo: bar\n",
		"items:\n  - 1\n  - 2\n",
		"- &a 42\n- *a\n",
		"key: >+\n  one\n  two\n\n\n",
		"a: 1\n---\nb: 2\n",
		"",
	}
	for _, in := range inputs {
		evs := collectEvents(t, in)
		require.NotEmpty(t, evs)
		require.Equal(t, StreamStartEvent, evs[0].Type)
		require.Equal(t, StreamEndEvent, evs[len(evs)-1].Type)

		var stack []EventType
		for _, e := range evs {
			switch e.Type {
			case DocumentStartEvent, SequenceStartEvent, MappingStartEvent:
				stack = append(stack, e.Type)
			case DocumentEndEvent:
				require.NotEmpty(t, stack)
				require.Equal(t, DocumentStartEvent, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			case SequenceEndEvent:
				require.NotEmpty(t, stack)
				require.Equal(t, SequenceStartEvent, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			case MappingEndEvent:
				require.NotEmpty(t, stack)
				require.Equal(t, MappingStartEvent, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
		}
		require.Empty(t, stack)
	}
}

// Invariant 5: a document's tag-directive table is the same at
// DOCUMENT_START and DOCUMENT_END.
func TestDocumentStateStableAcrossStartAndEnd(t *testing.T) {
	evs := collectEvents(t, "%TAG !e! tag:example.com,2000:\n---\n!e!foo bar\n")
	var start, end *Event
	for _, e := range evs {
		switch e.Type {
		case DocumentStartEvent:
			start = e
		case DocumentEndEvent:
			end = e
		}
	}
	require.NotNil(t, start)
	require.NotNil(t, end)
	require.Equal(t, start.Doc.Directives, end.Doc.Directives)
}

// Multi-input: each queued source produces its own STREAM_START ...
// STREAM_END run, and after one source's STREAM_END the Parser moves on to
// the next, so two one-document sources yield two DOCUMENT_STARTs.
func TestParserMultipleInputs(t *testing.T) {
	p := NewParser()
	defer p.Close()
	require.NoError(t, p.AddInput(NewMemorySource("a", []byte("a: 1\n"))))
	require.NoError(t, p.AddInput(NewMemorySource("b", []byte("b: 2\n"))))

	var docStarts int
	for {
		ev, err := p.Parse()
		require.NoError(t, err)
		if ev == nil {
			break
		}
		if ev.Type == DocumentStartEvent {
			docStarts++
		}
	}
	require.Equal(t, 2, docStarts)
}

// StreamError stays sticky: once set, every subsequent Parse call returns
// the same error without re-scanning.
func TestStreamErrorIsSticky(t *testing.T) {
	p := NewParser(WithFlags(FlagJSONForce))
	defer p.Close()
	require.NoError(t, p.AddInput(NewMemorySource("t", []byte("{'a': 1}"))))

	var first error
	for {
		ev, err := p.Parse()
		if err != nil {
			first = err
			break
		}
		if ev == nil {
			break
		}
	}
	require.Error(t, first)
	_, second := p.Parse()
	require.Equal(t, first, second)
	require.Equal(t, first, p.StreamError())
}
