// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package fy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fy-yaml/fy/internal/testutil/assert"
)

func scanAll(t *testing.T, src string) []*Token {
	t.Helper()
	in, err := newInput(0, NewMemorySource("t", []byte(src)), 0, 0)
	require.NoError(t, err)
	sc := newScanner(in, defaultConfig())
	var toks []*Token
	for {
		if err := sc.fetchTokens(); err != nil {
			t.Fatalf("fetchTokens: %v", err)
		}
		if sc.err != nil {
			t.Fatalf("scanner error: %v", sc.err)
		}
		toks = append(toks[:0], sc.tokens...)
		if sc.streamEndReached {
			break
		}
	}
	return toks
}

func tokenTypes(toks []*Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestScanFlatMapping(t *testing.T) {
	toks := scanAll(t, "foo: bar\n")
	want := []TokenType{
		StreamStartToken, BlockMappingStartToken, KeyToken, ScalarToken,
		ValueToken, ScalarToken, BlockEndToken, StreamEndToken,
	}
	assert.StringerSequence(t, want, tokenTypes(toks))
	assert.Equal(t, "foo", toks[3].Value)
	assert.Equal(t, "bar", toks[5].Value)
}

func TestScanBlockSequence(t *testing.T) {
	toks := scanAll(t, "- 1\n- 2\n")
	want := []TokenType{
		StreamStartToken, BlockSequenceStartToken, BlockEntryToken, ScalarToken,
		BlockEntryToken, ScalarToken, BlockEndToken, StreamEndToken,
	}
	assert.StringerSequence(t, want, tokenTypes(toks))
}

// A scanner given no allocator (the zero value) passes scalar text through
// unchanged; intern is a no-op without allocImpl/tagOf wired.
func TestInternNoopWithoutAllocator(t *testing.T) {
	sc := &scanner{}
	v := "hello"
	assert.Equal(t, v, sc.intern(v))
}

// Invariant 6, reached the way Parser wires the scanner's intern() to a
// per-document tag: with the dedup allocator selected, two equal scalars
// both come through interning with their text intact. Backing-pointer
// identity is checked in internal/dedup's own tests.
func TestDedupAllocatorInterning(t *testing.T) {
	p := NewParser(WithAllocator("dedup"))
	defer p.Close()
	require.NotNil(t, p.allocImpl)

	require.NoError(t, p.AddInput(NewMemorySource("t", []byte("a: hello world\nb: hello world\n"))))

	var values []string
	for {
		ev, err := p.Parse()
		require.NoError(t, err)
		if ev == nil {
			break
		}
		if ev.Type == ScalarEvent && ev.Value() == "hello world" {
			values = append(values, ev.Value())
		}
		if ev.Type == StreamEndEvent {
			break
		}
	}
	require.Len(t, values, 2)
}

func TestScanEmptyInput(t *testing.T) {
	toks := scanAll(t, "")
	assert.StringerSequence(t, []TokenType{StreamStartToken, StreamEndToken}, tokenTypes(toks))
}
