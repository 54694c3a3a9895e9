// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

// The parser (component H) pops tokens from the scanner and produces an
// event stream. Grounded on the state machine and node-production
// functions of _examples/WillAbides-yaml/internal/parserc/parserc.go
// (yaml_parser_state_machine / yaml_parser_parse_node and friends),
// adapted from that package's token-array-with-head-index onto this
// module's scanner.tokens FIFO and Token/Event/DocumentState types.
package fy

import (
	"github.com/fy-yaml/fy/internal/alloc"
	// Registers the "dedup" allocator name that WithAllocator accepts.
	_ "github.com/fy-yaml/fy/internal/dedup"
)

// parseState is the closed set of parser states from spec.md §4.H.
type parseState int

const (
	stateNone parseState = iota
	stateStreamStart
	stateImplicitDocumentStart
	stateDocumentStart
	stateDocumentContent
	stateDocumentEnd
	stateBlockNode
	stateBlockNodeOrIndentlessSequence
	stateFlowNode
	stateBlockSequenceFirstEntry
	stateBlockSequenceEntry
	stateIndentlessSequenceEntry
	stateBlockMappingFirstKey
	stateBlockMappingKey
	stateBlockMappingValue
	stateFlowSequenceFirstEntry
	stateFlowSequenceEntry
	stateFlowSequenceEntryMappingKey
	stateFlowSequenceEntryMappingValue
	stateFlowSequenceEntryMappingEnd
	stateFlowMappingFirstKey
	stateFlowMappingKey
	stateFlowMappingValue
	stateFlowMappingEmptyValue
	stateSingleDocumentEnd
	stateEnd
)

// Parser consumes the token stream of one or more inputs and produces a
// well-formed event stream (spec.md §8 property 1: `STREAM_START
// (DOCUMENT_START N DOCUMENT_END)* STREAM_END`). A Parser is single
// threaded; see spec.md §5.
type Parser struct {
	cfg *config

	pending   []Source
	nextInput InputID

	sc   *scanner
	head int // read cursor into sc.tokens; never truncated, mirrors the teacher's Tokens_head index

	state  parseState
	states []parseState
	marks  []Mark

	defaultDoc *DocumentState
	doc        *DocumentState

	depth int

	streamErr error

	allocImpl alloc.Allocator
	allocTag  alloc.Tag
	hasTag    bool
}

// NewParser builds a Parser with the given options applied over the
// defaults (spec.md §6 "Parser configuration").
func NewParser(opts ...Option) *Parser {
	cfg := defaultConfig()
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}
	p := &Parser{cfg: cfg, state: stateStreamStart}
	a, err := alloc.New(cfg.allocatorName, alloc.DefaultConfig())
	if err == nil {
		if setupErr := a.Setup(); setupErr == nil {
			p.allocImpl = a
		}
	}
	return p
}

// AddInput queues src to be parsed. Inputs are consumed in the order
// added; once one input's stream is exhausted (STREAM_END produced) the
// parser moves on to the next, returning to state NONE between them
// (spec.md §4.H "Initial state NONE; terminal states END ... or
// returning to NONE when further queued inputs exist").
func (p *Parser) AddInput(src Source) error {
	p.pending = append(p.pending, src)
	return nil
}

// StreamError reports the sticky error that halted the event stream, if
// any (spec.md §7 "Propagation").
func (p *Parser) StreamError() error { return p.streamErr }

func (p *Parser) fail(err error) error {
	if p.streamErr == nil {
		p.streamErr = err
	}
	return err
}

// Close releases the allocator backing this parser's interned strings.
func (p *Parser) Close() {
	if p.allocImpl != nil {
		p.allocImpl.Cleanup()
	}
}

// advanceInput switches to the next queued Source, constructing a fresh
// scanner over it. Returns false once no input remains.
func (p *Parser) advanceInput() (bool, error) {
	if len(p.pending) == 0 {
		return false, nil
	}
	src := p.pending[0]
	p.pending = p.pending[1:]
	in, err := newInput(p.nextInput, src, p.cfg.flags, p.cfg.tabSize)
	if err != nil {
		return false, err
	}
	p.nextInput++
	p.sc = newScanner(in, p.cfg)
	p.sc.allocImpl = p.allocImpl
	p.sc.tagOf = func() (alloc.Tag, bool) { return p.allocTag, p.hasTag }
	p.head = 0
	return true, nil
}

// peek returns the token at the read cursor without consuming it,
// pulling more tokens from the scanner until one is queued and no
// simple-key candidate is open: while a candidate is open the scanner may
// still splice BLOCK_MAPPING_START/KEY in ahead of tokens already queued.
func (p *Parser) peek() (*Token, error) {
	for p.head >= len(p.sc.tokens) || len(p.sc.simpleKeys) > 0 {
		if p.sc.streamEndReached {
			break
		}
		if err := p.sc.fetchTokens(); err != nil {
			return nil, p.fail(err)
		}
		if p.sc.err != nil {
			return nil, p.fail(p.sc.err)
		}
	}
	if p.head >= len(p.sc.tokens) {
		return nil, p.fail(StructuralError{Module: ModuleInternal, Mark: p.sc.in.mark(), Message: "scanner produced no further tokens before stream end"})
	}
	return p.sc.tokens[p.head], nil
}

func (p *Parser) skip() {
	p.head++
}

// NextToken returns the next token from the scanner without running the
// event-construction state machine, for callers (fy-tool's "tokens"
// subcommand) that want the raw token stream. It returns (nil, nil) once
// STREAM-END has already been consumed.
func (p *Parser) NextToken() (*Token, error) {
	if p.streamErr != nil {
		return nil, p.streamErr
	}
	if p.state == stateEnd {
		return nil, nil
	}
	if p.sc == nil {
		ok, err := p.advanceInput()
		if err != nil {
			return nil, p.fail(err)
		}
		if !ok {
			return nil, nil
		}
	}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	p.skip()
	if tok.Type == StreamEndToken {
		more, err := p.advanceInput()
		if err != nil {
			return nil, p.fail(err)
		}
		if !more {
			p.state = stateEnd
		}
	}
	return tok, nil
}

func (p *Parser) pushState(s parseState) {
	p.states = append(p.states, s)
	p.depth++
}

func (p *Parser) popState() {
	p.state = p.states[len(p.states)-1]
	p.states = p.states[:len(p.states)-1]
	p.depth--
}

func (p *Parser) checkDepth(mark Mark) error {
	if p.cfg.hasFlag(FlagDisableDepthLimit) || p.cfg.depthLimit <= 0 {
		return nil
	}
	if p.depth > p.cfg.depthLimit {
		return p.fail(DepthLimitError{Module: ModuleParse, Mark: mark, Message: "maximum nesting depth exceeded"})
	}
	return nil
}

// Parse returns the next Event, or an error. Once StreamError is set, all
// further calls return (nil, that error) immediately (spec.md §7).
func (p *Parser) Parse() (*Event, error) {
	if p.streamErr != nil {
		return nil, p.streamErr
	}
	if p.state == stateEnd {
		return nil, nil
	}
	if p.sc == nil {
		ok, err := p.advanceInput()
		if err != nil {
			return nil, p.fail(err)
		}
		if !ok {
			p.state = stateEnd
			return nil, nil
		}
	}
	ev, err := p.dispatch()
	if err != nil {
		return nil, p.fail(err)
	}
	return ev, nil
}

func (p *Parser) dispatch() (*Event, error) {
	switch p.state {
	case stateStreamStart:
		return p.parseStreamStart()
	case stateImplicitDocumentStart:
		return p.parseDocumentStart(true)
	case stateDocumentStart:
		return p.parseDocumentStart(false)
	case stateDocumentContent:
		return p.parseDocumentContent()
	case stateDocumentEnd:
		return p.parseDocumentEnd()
	case stateBlockNode:
		return p.parseNode(true, false)
	case stateBlockNodeOrIndentlessSequence:
		return p.parseNode(true, true)
	case stateFlowNode:
		return p.parseNode(false, false)
	case stateBlockSequenceFirstEntry:
		return p.parseBlockSequenceEntry(true)
	case stateBlockSequenceEntry:
		return p.parseBlockSequenceEntry(false)
	case stateIndentlessSequenceEntry:
		return p.parseIndentlessSequenceEntry()
	case stateBlockMappingFirstKey:
		return p.parseBlockMappingKey(true)
	case stateBlockMappingKey:
		return p.parseBlockMappingKey(false)
	case stateBlockMappingValue:
		return p.parseBlockMappingValue()
	case stateFlowSequenceFirstEntry:
		return p.parseFlowSequenceEntry(true)
	case stateFlowSequenceEntry:
		return p.parseFlowSequenceEntry(false)
	case stateFlowSequenceEntryMappingKey:
		return p.parseFlowSequenceEntryMappingKey()
	case stateFlowSequenceEntryMappingValue:
		return p.parseFlowSequenceEntryMappingValue()
	case stateFlowSequenceEntryMappingEnd:
		return p.parseFlowSequenceEntryMappingEnd()
	case stateFlowMappingFirstKey:
		return p.parseFlowMappingKey(true)
	case stateFlowMappingKey:
		return p.parseFlowMappingKey(false)
	case stateFlowMappingValue:
		return p.parseFlowMappingValue(false)
	case stateFlowMappingEmptyValue:
		return p.parseFlowMappingValue(true)
	case stateSingleDocumentEnd:
		return p.parseSingleDocumentEnd()
	default:
		return nil, p.fail(StructuralError{Module: ModuleInternal, Message: "invalid parser state"})
	}
}

func (p *Parser) parseStreamStart() (*Event, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type != StreamStartToken {
		return nil, StructuralError{Module: ModuleParse, Mark: tok.Atom.Start, Message: "did not find expected <stream-start>"}
	}
	p.defaultDoc = newDocumentState(nil)
	p.state = stateImplicitDocumentStart
	ev := &Event{Type: StreamStartEvent, Mark: tok.Atom.Start}
	p.skip()
	return ev, nil
}

// processDirectives consumes a run of VERSION_DIRECTIVE/TAG_DIRECTIVE
// tokens into a fresh DocumentState cloned from p.defaultDoc (spec.md
// §4.I; SPEC_FULL.md's "%YAML directive duplicate ... carries the first
// directive's mark as context" supplement).
func (p *Parser) processDirectives() (*DocumentState, error) {
	ds := newDocumentState(p.defaultDoc)
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case VersionDirectiveToken:
			if ds.VersionExplicit {
				return nil, SyntaxError{
					Module:         ModuleParse,
					Mark:           tok.Atom.Start,
					ContextMark:    ds.versionToken.Atom.Start,
					ContextMessage: "first %YAML directive",
					Message:        "found duplicate %YAML directive",
				}
			}
			ds.Version = VersionDirective{Major: tok.VersionMajor, Minor: tok.VersionMinor}
			ds.VersionExplicit = true
			ds.versionToken = tok
			p.skip()
		case TagDirectiveToken:
			if err := ds.appendTagDirective(TagDirective{Handle: tok.Handle, Prefix: tok.Suffix}, tok.Atom.Start); err != nil {
				return nil, err
			}
			for i, d := range ds.Directives {
				if d.Handle == tok.Handle {
					tok.DirectiveIndex = i
				}
			}
			p.skip()
		default:
			return ds, nil
		}
	}
}

func (p *Parser) parseDocumentStart(implicit bool) (*Event, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if !implicit {
		for tok.Type == DocumentEndToken {
			p.skip()
			tok, err = p.peek()
			if err != nil {
				return nil, err
			}
		}
	}

	if implicit && tok.Type != VersionDirectiveToken && tok.Type != TagDirectiveToken &&
		tok.Type != DocumentStartToken && tok.Type != StreamEndToken {
		ds, err := p.processDirectives()
		if err != nil {
			return nil, err
		}
		p.doc = ds
		if err := p.openDocumentTag(); err != nil {
			return nil, err
		}
		ds.StartImplicit = true
		ds.StartMark = tok.Atom.Start
		p.pushState(stateDocumentEnd)
		p.state = stateBlockNode
		return &Event{Type: DocumentStartEvent, Mark: tok.Atom.Start, Implicit: true, Doc: ds}, nil
	}

	if tok.Type != StreamEndToken {
		startMark := tok.Atom.Start
		ds, err := p.processDirectives()
		if err != nil {
			return nil, err
		}
		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type != DocumentStartToken {
			return nil, StructuralError{Module: ModuleParse, Mark: tok.Atom.Start, ContextMark: startMark, Message: "did not find expected <document start>"}
		}
		p.doc = ds
		if err := p.openDocumentTag(); err != nil {
			return nil, err
		}
		ds.StartMark = startMark
		endMark := tok.Atom.End
		p.pushState(stateDocumentEnd)
		p.state = stateDocumentContent
		p.skip()
		return &Event{Type: DocumentStartEvent, Mark: endMark, Implicit: false, Doc: ds}, nil
	}

	p.state = stateEnd
	ev := &Event{Type: StreamEndEvent, Mark: tok.Atom.Start}
	p.skip()
	if ok, err := p.advanceInput(); err != nil {
		return nil, err
	} else if ok {
		p.state = stateStreamStart
	}
	return ev, nil
}

func (p *Parser) parseDocumentContent() (*Event, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case VersionDirectiveToken, TagDirectiveToken, DocumentStartToken, DocumentEndToken, StreamEndToken:
		p.popState()
		return emptyScalarEvent(tok.Atom.Start), nil
	}
	return p.parseNode(true, false)
}

func (p *Parser) parseDocumentEnd() (*Event, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	startMark := tok.Atom.Start
	endMark := tok.Atom.Start
	implicit := true
	if tok.Type == DocumentEndToken {
		endMark = tok.Atom.End
		implicit = false
		p.skip()
	}
	ds := p.doc
	ds.EndImplicit = implicit
	ds.EndMark = endMark
	p.closeDocumentTag()
	p.state = stateDocumentStart
	return &Event{Type: DocumentEndEvent, Mark: startMark, Implicit: implicit, Doc: ds}, nil
}

// parseSingleDocumentEnd exists for a future "parse exactly one document
// then stop" entry point; the default driver never reaches it (kept to
// round out the closed state set spec.md §4.H names).
func (p *Parser) parseSingleDocumentEnd() (*Event, error) {
	p.state = stateEnd
	return nil, nil
}

func emptyScalarEvent(mark Mark) *Event {
	return &Event{Type: ScalarEvent, Mark: mark, Implicit: true, Style: int8(StylePlain)}
}

// resolveTag maps a TAG token's (Handle, Suffix) through the active
// document's directive table, or returns ("", nil) for "no tag token at
// all" (spec.md §4.H "Node handling").
func (p *Parser) resolveTag(tagTok *Token) (string, error) {
	if tagTok == nil {
		return "", nil
	}
	if tagTok.Handle == "" {
		return tagTok.Suffix, nil
	}
	prefix, ok := p.doc.LookupHandle(tagTok.Handle)
	if !ok {
		return "", UndefinedTagPrefixError{Module: ModuleParse, Mark: tagTok.Atom.Start, Message: "found undefined tag handle " + tagTok.Handle}
	}
	return prefix + tagTok.Suffix, nil
}

// parseNode implements spec.md §4.H "Node handling": consume ANCHOR/TAG
// (either order), then dispatch on the producing token.
func (p *Parser) parseNode(block, indentlessSequence bool) (*Event, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	if tok.Type == AliasToken {
		p.popState()
		ev := &Event{Type: AliasEvent, Mark: tok.Atom.Start, ValueTok: tok}
		p.skip()
		return ev, nil
	}

	startMark := tok.Atom.Start
	var anchorTok, tagTok *Token
	if tok.Type == AnchorToken {
		anchorTok = tok
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type == TagToken {
			tagTok = tok
			p.skip()
			tok, err = p.peek()
			if err != nil {
				return nil, err
			}
		}
	} else if tok.Type == TagToken {
		tagTok = tok
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type == AnchorToken {
			anchorTok = tok
			p.skip()
			tok, err = p.peek()
			if err != nil {
				return nil, err
			}
		}
	}

	tag, err := p.resolveTag(tagTok)
	if err != nil {
		return nil, err
	}
	implicit := tag == ""

	if err := p.checkDepth(startMark); err != nil {
		return nil, err
	}

	if indentlessSequence && tok.Type == BlockEntryToken {
		p.state = stateIndentlessSequenceEntry
		return &Event{Type: SequenceStartEvent, Mark: startMark, AnchorTok: anchorTok, TagTok: tagTok, Implicit: implicit, Style: int8(BlockStyle)}, nil
	}

	if tok.Type == ScalarToken {
		plainImplicit := tag == "" && tok.ScalarStyle == StylePlain || tag == "!"
		quotedImplicit := tag == "" && tok.ScalarStyle != StylePlain
		p.popState()
		ev := &Event{
			Type: ScalarEvent, Mark: startMark,
			AnchorTok: anchorTok, TagTok: tagTok, ValueTok: tok,
			Style: int8(tok.ScalarStyle), Implicit: plainImplicit, QuotedImplicit: quotedImplicit,
		}
		p.skip()
		return ev, nil
	}

	if tok.Type == FlowSequenceStartToken {
		p.state = stateFlowSequenceFirstEntry
		return &Event{Type: SequenceStartEvent, Mark: startMark, AnchorTok: anchorTok, TagTok: tagTok, Implicit: implicit, Style: int8(FlowStyle)}, nil
	}
	if tok.Type == FlowMappingStartToken {
		p.state = stateFlowMappingFirstKey
		return &Event{Type: MappingStartEvent, Mark: startMark, AnchorTok: anchorTok, TagTok: tagTok, Implicit: implicit, Style: int8(FlowStyle)}, nil
	}
	if block && tok.Type == BlockSequenceStartToken {
		p.state = stateBlockSequenceFirstEntry
		return &Event{Type: SequenceStartEvent, Mark: startMark, AnchorTok: anchorTok, TagTok: tagTok, Implicit: implicit, Style: int8(BlockStyle)}, nil
	}
	if block && tok.Type == BlockMappingStartToken {
		p.state = stateBlockMappingFirstKey
		return &Event{Type: MappingStartEvent, Mark: startMark, AnchorTok: anchorTok, TagTok: tagTok, Implicit: implicit, Style: int8(BlockStyle)}, nil
	}
	if anchorTok != nil || tagTok != nil {
		p.popState()
		return &Event{Type: ScalarEvent, Mark: startMark, AnchorTok: anchorTok, TagTok: tagTok, Implicit: implicit, Style: int8(StylePlain)}, nil
	}
	return nil, StructuralError{Module: ModuleParse, Mark: tok.Atom.Start, ContextMark: startMark, Message: "did not find expected node content"}
}

func (p *Parser) parseBlockSequenceEntry(first bool) (*Event, error) {
	if first {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		p.marks = append(p.marks, tok.Atom.Start)
		p.skip()
	}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type == BlockEntryToken {
		mark := tok.Atom.End
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type != BlockEntryToken && tok.Type != BlockEndToken {
			p.pushState(stateBlockSequenceEntry)
			p.state = stateBlockNode
			return p.parseNode(true, false)
		}
		p.state = stateBlockSequenceEntry
		return emptyScalarEvent(mark), nil
	}
	if tok.Type == BlockEndToken {
		p.popState()
		p.marks = p.marks[:len(p.marks)-1]
		ev := &Event{Type: SequenceEndEvent, Mark: tok.Atom.Start}
		p.skip()
		return ev, nil
	}
	ctx := p.marks[len(p.marks)-1]
	p.marks = p.marks[:len(p.marks)-1]
	return nil, StructuralError{Module: ModuleParse, Mark: tok.Atom.Start, ContextMark: ctx, Message: "did not find expected '-' indicator"}
}

func (p *Parser) parseIndentlessSequenceEntry() (*Event, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type == BlockEntryToken {
		mark := tok.Atom.End
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type != BlockEntryToken && tok.Type != KeyToken && tok.Type != ValueToken && tok.Type != BlockEndToken {
			p.pushState(stateIndentlessSequenceEntry)
			p.state = stateBlockNode
			return p.parseNode(true, false)
		}
		p.state = stateIndentlessSequenceEntry
		return emptyScalarEvent(mark), nil
	}
	p.popState()
	return &Event{Type: SequenceEndEvent, Mark: tok.Atom.Start}, nil
}

func (p *Parser) parseBlockMappingKey(first bool) (*Event, error) {
	if first {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		p.marks = append(p.marks, tok.Atom.Start)
		p.skip()
	}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type == KeyToken {
		mark := tok.Atom.End
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type != KeyToken && tok.Type != ValueToken && tok.Type != BlockEndToken {
			p.pushState(stateBlockMappingValue)
			p.state = stateBlockNodeOrIndentlessSequence
			return p.parseNode(true, true)
		}
		p.state = stateBlockMappingValue
		return emptyScalarEvent(mark), nil
	}
	if tok.Type == BlockEndToken {
		p.popState()
		p.marks = p.marks[:len(p.marks)-1]
		ev := &Event{Type: MappingEndEvent, Mark: tok.Atom.Start}
		p.skip()
		return ev, nil
	}
	ctx := p.marks[len(p.marks)-1]
	p.marks = p.marks[:len(p.marks)-1]
	return nil, StructuralError{Module: ModuleParse, Mark: tok.Atom.Start, ContextMark: ctx, Message: "did not find expected key"}
}

func (p *Parser) parseBlockMappingValue() (*Event, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type == ValueToken {
		mark := tok.Atom.End
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type != KeyToken && tok.Type != ValueToken && tok.Type != BlockEndToken {
			p.pushState(stateBlockMappingKey)
			p.state = stateBlockNodeOrIndentlessSequence
			return p.parseNode(true, true)
		}
		p.state = stateBlockMappingKey
		return emptyScalarEvent(mark), nil
	}
	p.state = stateBlockMappingKey
	return emptyScalarEvent(tok.Atom.Start), nil
}

func (p *Parser) parseFlowSequenceEntry(first bool) (*Event, error) {
	if first {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		p.marks = append(p.marks, tok.Atom.Start)
		p.skip()
	}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type != FlowSequenceEndToken {
		if !first {
			if tok.Type == FlowEntryToken {
				p.skip()
				tok, err = p.peek()
				if err != nil {
					return nil, err
				}
				// A trailing comma immediately before ']' is a JSON error.
				if tok.Type == FlowSequenceEndToken && p.sc.in.mode == ModeJSON {
					return nil, SyntaxError{Module: ModuleParse, Mark: tok.Atom.Start, Message: "trailing comma not allowed in JSON mode"}
				}
			} else {
				ctx := p.marks[len(p.marks)-1]
				p.marks = p.marks[:len(p.marks)-1]
				return nil, StructuralError{Module: ModuleParse, Mark: tok.Atom.Start, ContextMark: ctx, Message: "did not find expected ',' or ']'"}
			}
		}
		if tok.Type == KeyToken {
			p.state = stateFlowSequenceEntryMappingKey
			ev := &Event{Type: MappingStartEvent, Mark: tok.Atom.Start, Implicit: true, Style: int8(FlowStyle)}
			p.skip()
			return ev, nil
		}
		if tok.Type != FlowSequenceEndToken {
			p.pushState(stateFlowSequenceEntry)
			p.state = stateFlowNode
			return p.parseNode(false, false)
		}
	}
	p.popState()
	p.marks = p.marks[:len(p.marks)-1]
	ev := &Event{Type: SequenceEndEvent, Mark: tok.Atom.Start}
	p.skip()
	return ev, nil
}

func (p *Parser) parseFlowSequenceEntryMappingKey() (*Event, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type != ValueToken && tok.Type != FlowEntryToken && tok.Type != FlowSequenceEndToken {
		p.pushState(stateFlowSequenceEntryMappingValue)
		p.state = stateFlowNode
		return p.parseNode(false, false)
	}
	mark := tok.Atom.End
	p.skip()
	p.state = stateFlowSequenceEntryMappingValue
	return emptyScalarEvent(mark), nil
}

func (p *Parser) parseFlowSequenceEntryMappingValue() (*Event, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type == ValueToken {
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type != FlowEntryToken && tok.Type != FlowSequenceEndToken {
			p.pushState(stateFlowSequenceEntryMappingEnd)
			p.state = stateFlowNode
			return p.parseNode(false, false)
		}
	}
	p.state = stateFlowSequenceEntryMappingEnd
	return emptyScalarEvent(tok.Atom.Start), nil
}

func (p *Parser) parseFlowSequenceEntryMappingEnd() (*Event, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	p.state = stateFlowSequenceEntry
	return &Event{Type: MappingEndEvent, Mark: tok.Atom.Start}, nil
}

func (p *Parser) parseFlowMappingKey(first bool) (*Event, error) {
	if first {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		p.marks = append(p.marks, tok.Atom.Start)
		p.skip()
	}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type != FlowMappingEndToken {
		if !first {
			if tok.Type == FlowEntryToken {
				p.skip()
				tok, err = p.peek()
				if err != nil {
					return nil, err
				}
				if tok.Type == FlowMappingEndToken && p.sc.in.mode == ModeJSON {
					return nil, SyntaxError{Module: ModuleParse, Mark: tok.Atom.Start, Message: "trailing comma not allowed in JSON mode"}
				}
			} else {
				ctx := p.marks[len(p.marks)-1]
				p.marks = p.marks[:len(p.marks)-1]
				return nil, StructuralError{Module: ModuleParse, Mark: tok.Atom.Start, ContextMark: ctx, Message: "did not find expected ',' or '}'"}
			}
		}
		if tok.Type == KeyToken {
			p.skip()
			tok, err = p.peek()
			if err != nil {
				return nil, err
			}
			if tok.Type != ValueToken && tok.Type != FlowEntryToken && tok.Type != FlowMappingEndToken {
				p.pushState(stateFlowMappingValue)
				p.state = stateFlowNode
				return p.parseNode(false, false)
			}
			p.state = stateFlowMappingValue
			return emptyScalarEvent(tok.Atom.Start), nil
		}
		if tok.Type != FlowMappingEndToken {
			p.pushState(stateFlowMappingEmptyValue)
			p.state = stateFlowNode
			return p.parseNode(false, false)
		}
	}
	p.popState()
	p.marks = p.marks[:len(p.marks)-1]
	ev := &Event{Type: MappingEndEvent, Mark: tok.Atom.Start}
	p.skip()
	return ev, nil
}

func (p *Parser) parseFlowMappingValue(empty bool) (*Event, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if empty {
		p.state = stateFlowMappingKey
		return emptyScalarEvent(tok.Atom.Start), nil
	}
	if tok.Type == ValueToken {
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type != FlowEntryToken && tok.Type != FlowMappingEndToken {
			p.pushState(stateFlowMappingKey)
			p.state = stateFlowNode
			return p.parseNode(false, false)
		}
	}
	p.state = stateFlowMappingKey
	return emptyScalarEvent(tok.Atom.Start), nil
}

// openDocumentTag/closeDocumentTag obtain and release the allocator tag
// backing this document's interned scalars (spec.md §3 "Allocator tag"
// lifecycle: "obtained by the owner subsystem at start of a document,
// released at document end").
func (p *Parser) openDocumentTag() error {
	if p.allocImpl == nil {
		return nil
	}
	tag, err := p.allocImpl.GetTag()
	if err != nil {
		return ResourceError{Err: err}
	}
	p.allocTag = tag
	p.hasTag = true
	return nil
}

func (p *Parser) closeDocumentTag() {
	if p.allocImpl == nil || !p.hasTag {
		return
	}
	p.allocImpl.ReleaseTag(p.allocTag)
	p.hasTag = false
}
