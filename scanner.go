// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

// The scanner (component G) tokenizes one input's codepoint stream into
// the token queue the parser consumes. Grounded on the dispatch and
// simple-key/indent-stack algorithms of
// _examples/WillAbides-yaml/internal/parserc/scannerc.go
// (yaml_parser_fetch_more_tokens / yaml_parser_fetch_next_token and the
// yaml_parser_scan_* family), adapted from that package's C-shaped
// yaml_parser_t/yaml_token_t types onto this module's Mark/Atom/Token.
package fy

import (
	"strings"

	"github.com/fy-yaml/fy/internal/alloc"
)

const preStreamIndent = -2

// indentFrame is a record on the scanner's indent stack (spec.md §3
// "Indent frame").
type indentFrame struct {
	indent     int
	generated  bool // this frame's BLOCK_MAPPING_START was synthesized
}

// flowFrame is a record on the scanner's flow stack (spec.md §3 "Flow frame").
type flowFrame struct {
	kind TokenType // FlowSequenceStartToken or FlowMappingStartToken
}

// simpleKey is a candidate scalar that might still turn out to be a
// mapping key (spec.md §3 "Simple-key candidate").
type simpleKey struct {
	mark      Mark
	flowLevel int
	required  bool
	tokenIdx  int // index into the scanner's pending queue slot reserved for this key's BLOCK_MAPPING_START/KEY splice
}

// scanner tokenizes one input. One scanner exists per input registered
// with a Parser; the Parser's token queue interleaves STREAM_START /
// STREAM_END around each input's own token run.
type scanner struct {
	in  *input
	cfg *config

	tokens []*Token // FIFO ready for the parser to consume

	indent       int
	indentStack  []indentFrame
	flowLevel    int
	flow         TokenType
	flowStack    []flowFrame

	simpleKeyAllowed bool
	simpleKeys       []simpleKey

	documentFirstContentToken bool
	lastBlockMappingKeyLine   int

	streamStartProduced bool
	streamEndProduced   bool
	streamEndReached    bool

	err error

	// allocImpl/tagOf back the interning of scalar text into the active
	// document's allocator tag (spec.md §3 "Long-lived interned byte
	// strings ... are placed in allocators ... keyed by the active
	// document's tag"). Both are nil/unset when no allocator is
	// configured; see intern.
	allocImpl alloc.Allocator
	tagOf     func() (alloc.Tag, bool)
}

// intern copies v into the scanner's configured allocator under the
// active document's tag, returning the interned string. With no
// allocator configured (or no document tag open yet, e.g. while scanning
// directives before DOCUMENT_START), v is returned unchanged.
func (s *scanner) intern(v string) string {
	if s.allocImpl == nil || s.tagOf == nil {
		return v
	}
	tag, ok := s.tagOf()
	if !ok {
		return v
	}
	stored, err := s.allocImpl.Store(tag, []byte(v))
	if err != nil {
		s.fail(ResourceError{Err: err})
		return v
	}
	return string(stored)
}

func newScanner(in *input, cfg *config) *scanner {
	return &scanner{
		in:                      in,
		cfg:                     cfg,
		indent:                  preStreamIndent,
		simpleKeyAllowed:        true,
		lastBlockMappingKeyLine: -1,
	}
}

func (s *scanner) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *scanner) push(tok *Token) { s.tokens = append(s.tokens, tok.retain()) }

// popTokens drains everything currently queued.
func (s *scanner) popTokens() []*Token {
	out := s.tokens
	s.tokens = nil
	return out
}

// fetchTokens is the scanner's top-level driver (spec.md §4.G
// "fetch_tokens"): it ensures at least one token is queued, or reports
// why none can be (EOF, or a hard error).
func (s *scanner) fetchTokens() error {
	if s.streamEndReached {
		return nil
	}
	if !s.streamStartProduced {
		s.streamStartProduced = true
		s.push(&Token{Type: StreamStartToken, Atom: Atom{Start: s.in.mark(), End: s.in.mark()}})
		return nil
	}

	if err := s.scanToNextToken(); err != nil {
		return err
	}
	if err := s.unrollIndent(s.in.column); err != nil {
		return err
	}
	s.stalePurgeSimpleKeys()

	cp, ok := s.in.peek()
	if !ok {
		if !s.in.eof() {
			return InvalidUTF8Error{Module: ModuleScan, Mark: s.in.mark(), Message: "invalid UTF-8 sequence"}
		}
		return s.fetchStreamEnd()
	}

	json := s.in.mode == ModeJSON

	switch {
	case cp == 0:
		return s.fetchStreamEnd()
	case s.in.column == 0 && cp == '%' && !json:
		return s.fetchDirective()
	case s.in.column == 0 && s.atDocumentIndicator("---") && !json:
		return s.fetchDocumentIndicator(DocumentStartToken, "---")
	case s.in.column == 0 && s.atDocumentIndicator("...") && !json:
		return s.fetchDocumentIndicator(DocumentEndToken, "...")
	case cp == '[':
		return s.fetchFlowCollectionStart(FlowSequenceStartToken)
	case cp == '{':
		return s.fetchFlowCollectionStart(FlowMappingStartToken)
	case cp == ']':
		return s.fetchFlowCollectionEnd(FlowSequenceEndToken)
	case cp == '}':
		return s.fetchFlowCollectionEnd(FlowMappingEndToken)
	case cp == ',':
		return s.fetchFlowEntry()
	case cp == '-' && !json && s.in.isBlankzAt(1):
		return s.fetchBlockEntry()
	case cp == '?' && !json && s.flowLevel == 0 && s.in.isBlankzAt(1):
		return s.fetchKey()
	case cp == ':' && ((s.flowLevel > 0 && !s.haveRequiredSimpleKey()) || s.in.isBlankzAt(1)):
		return s.fetchValue()
	case (cp == '*' || cp == '&') && !json:
		return s.fetchAnchorOrAlias(cp)
	case cp == '!' && !json:
		return s.fetchTag()
	case s.flowLevel == 0 && (cp == '|' || cp == '>') && !json:
		return s.fetchBlockScalar(cp)
	case cp == '\'':
		return s.fetchFlowScalar(StyleSingleQuoted)
	case cp == '"':
		return s.fetchFlowScalar(StyleDoubleQuoted)
	default:
		return s.fetchPlainScalar()
	}
}

func (s *scanner) atDocumentIndicator(ind string) bool {
	if !s.in.strncmp(ind) {
		return false
	}
	return s.in.isBlankzAt(3)
}

// scanToNextToken skips whitespace, line breaks, and comments, honoring
// the tab policy of spec.md §4.G "Whitespace policy".
func (s *scanner) scanToNextToken() error {
	for {
		if s.in.offset == 0 {
			// BOM is only significant at the very start of the input.
			if cp, ok := s.in.peek(); ok && cp == 0xFEFF {
				s.in.advance()
			}
		}
		cp, ok := s.in.peek()
		if !ok {
			return nil
		}
		switch {
		case cp == ' ':
			s.in.advance()
		case cp == '\t':
			allowTabs := s.cfg.tabSize > 0 || s.flowLevel > 0 || !s.simpleKeyAllowed
			if !allowTabs {
				if next, ok := s.in.peekAt(1); ok && (next == '[' || next == '{') {
					s.in.advance()
					continue
				}
				return SyntaxError{Mark: s.in.mark(), Message: "tab character found where indentation is expected"}
			}
			s.in.advance()
		case isLineBreakCP(cp):
			s.in.advance()
			if s.flowLevel == 0 {
				s.simpleKeyAllowed = true
			}
		case cp == '#':
			for {
				cp, ok := s.in.peek()
				if !ok || isLineBreakCP(cp) {
					break
				}
				s.in.advance()
			}
		default:
			return nil
		}
	}
}

// unrollIndent pops indent frames whose column exceeds col, emitting a
// BLOCK_END per pop (spec.md §4.G "Indent management").
func (s *scanner) unrollIndent(col int) error {
	if s.flowLevel > 0 {
		return nil
	}
	for s.indent > col {
		top := s.indentStack[len(s.indentStack)-1]
		s.indentStack = s.indentStack[:len(s.indentStack)-1]
		s.push(&Token{Type: BlockEndToken, Atom: Atom{Start: s.in.mark(), End: s.in.mark()}})
		s.indent = top.indent
	}
	return nil
}

func (s *scanner) pushIndent(col int, generated bool) {
	s.indentStack = append(s.indentStack, indentFrame{indent: s.indent, generated: generated})
	s.indent = col
}

func (s *scanner) rollIndentForBlockCollection(col int, mark Mark, startType TokenType) {
	if col <= s.indent {
		return
	}
	s.pushIndent(col, startType == BlockMappingStartToken)
	s.push(&Token{Type: startType, Atom: Atom{Start: mark, End: mark}})
}

func (s *scanner) haveRequiredSimpleKey() bool {
	for _, k := range s.simpleKeys {
		if k.flowLevel == s.flowLevel && k.required {
			return true
		}
	}
	return false
}

// stalePurgeSimpleKeys drops candidates that can no longer become keys
// per spec.md §4.G "Simple keys" staleness rules, failing the scan if a
// required candidate goes stale.
func (s *scanner) stalePurgeSimpleKeys() {
	kept := s.simpleKeys[:0]
	for _, k := range s.simpleKeys {
		stale := false
		if k.flowLevel == 0 && s.in.line > k.mark.Line {
			stale = true
		}
		if s.flowLevel < k.flowLevel {
			stale = true
		}
		if stale {
			if k.required && s.err == nil {
				s.fail(SyntaxError{Mark: k.mark, Message: "could not find expected ':'"})
			}
			continue
		}
		kept = append(kept, k)
	}
	s.simpleKeys = kept
}

// saveSimpleKey records a candidate whose producing token has not been
// pushed yet: tokenIdx is the slot it will occupy (len(s.tokens) right
// now), since every call site pushes its token immediately after saving.
func (s *scanner) saveSimpleKey(mark Mark) {
	if !s.simpleKeyAllowed {
		return
	}
	required := s.flowLevel == 0 && s.indent == s.in.column
	idx := len(s.tokens)
	// Replace any existing candidate at this flow level (only one
	// candidate is tracked per level, per spec.md §3).
	for i, k := range s.simpleKeys {
		if k.flowLevel == s.flowLevel {
			s.simpleKeys[i] = simpleKey{mark: mark, flowLevel: s.flowLevel, required: required, tokenIdx: idx}
			return
		}
	}
	s.simpleKeys = append(s.simpleKeys, simpleKey{mark: mark, flowLevel: s.flowLevel, required: required, tokenIdx: idx})
}

func (s *scanner) removeSimpleKey() {
	for i, k := range s.simpleKeys {
		if k.flowLevel == s.flowLevel {
			s.simpleKeys = append(s.simpleKeys[:i], s.simpleKeys[i+1:]...)
			return
		}
	}
}

func (s *scanner) fetchStreamEnd() error {
	s.indent = preStreamIndent
	for len(s.indentStack) > 0 {
		s.indentStack = s.indentStack[:len(s.indentStack)-1]
		s.push(&Token{Type: BlockEndToken, Atom: Atom{Start: s.in.mark(), End: s.in.mark()}})
	}
	s.simpleKeyAllowed = false
	s.simpleKeys = nil
	s.push(&Token{Type: StreamEndToken, Atom: Atom{Start: s.in.mark(), End: s.in.mark()}})
	s.streamEndReached = true
	return nil
}

func (s *scanner) fetchDocumentIndicator(t TokenType, lit string) error {
	s.unrollIndent(-1)
	s.removeAllSimpleKeys()
	s.simpleKeyAllowed = false
	start := s.in.mark()
	s.in.advanceBy(len(lit))
	s.push(&Token{Type: t, Atom: Atom{Start: start, End: s.in.mark()}})
	s.documentFirstContentToken = false
	return nil
}

func (s *scanner) removeAllSimpleKeys() { s.simpleKeys = nil }

func (s *scanner) fetchFlowCollectionStart(t TokenType) error {
	start := s.in.mark()
	s.saveSimpleKey(start)
	s.flowLevel++
	s.flow = t
	s.flowStack = append(s.flowStack, flowFrame{kind: t})
	s.in.advance()
	s.simpleKeyAllowed = true
	s.push(&Token{Type: t, Atom: Atom{Start: start, End: s.in.mark()}})
	return nil
}

func (s *scanner) fetchFlowCollectionEnd(t TokenType) error {
	if s.flowLevel == 0 {
		return StructuralError{Mark: s.in.mark(), Message: "flow collection close without matching open"}
	}
	s.removeSimpleKey()
	start := s.in.mark()
	s.in.advance()
	s.flowLevel--
	s.flowStack = s.flowStack[:len(s.flowStack)-1]
	if len(s.flowStack) > 0 {
		s.flow = s.flowStack[len(s.flowStack)-1].kind
	}
	s.simpleKeyAllowed = false
	s.push(&Token{Type: t, Atom: Atom{Start: start, End: s.in.mark()}})
	return nil
}

func (s *scanner) fetchFlowEntry() error {
	s.removeSimpleKey()
	s.simpleKeyAllowed = true
	start := s.in.mark()
	s.in.advance()
	s.push(&Token{Type: FlowEntryToken, Atom: Atom{Start: start, End: s.in.mark()}})
	return nil
}

func (s *scanner) fetchBlockEntry() error {
	start := s.in.mark()
	if s.flowLevel == 0 {
		if !s.simpleKeyAllowed {
			return StructuralError{Mark: start, Message: "block sequence entry not allowed in this context"}
		}
		s.rollIndentForBlockCollection(s.in.column, start, BlockSequenceStartToken)
	}
	s.removeSimpleKey()
	s.simpleKeyAllowed = true
	s.in.advance()
	s.push(&Token{Type: BlockEntryToken, Atom: Atom{Start: start, End: s.in.mark()}})
	return nil
}

func (s *scanner) fetchKey() error {
	start := s.in.mark()
	if s.flowLevel == 0 {
		if !s.simpleKeyAllowed {
			return StructuralError{Mark: start, Message: "mapping key not allowed in this context"}
		}
		s.rollIndentForBlockCollection(s.in.column, start, BlockMappingStartToken)
	}
	s.removeSimpleKey()
	s.simpleKeyAllowed = s.flowLevel == 0
	s.in.advance()
	s.push(&Token{Type: KeyToken, Atom: Atom{Start: start, End: s.in.mark()}})
	return nil
}

// fetchValue implements spec.md §4.G's simple-key splice: if the head of
// simpleKeys sits at the current flow level, a synthetic
// BLOCK_MAPPING_START + KEY pair is inserted before that key's token.
func (s *scanner) fetchValue() error {
	start := s.in.mark()
	var key *simpleKey
	for i := range s.simpleKeys {
		if s.simpleKeys[i].flowLevel == s.flowLevel {
			key = &s.simpleKeys[i]
			break
		}
	}
	if key != nil {
		idx := key.tokenIdx
		if s.flowLevel == 0 && s.rollIndentForBlockCollectionAt(key.mark, idx) {
			idx++
		}
		keyTok := &Token{Type: KeyToken, Atom: Atom{Start: key.mark, End: key.mark}}
		s.insertBefore(idx, keyTok)
		s.removeSimpleKey()
		s.simpleKeyAllowed = false
	} else {
		if s.flowLevel == 0 {
			if !s.simpleKeyAllowed {
				return StructuralError{Mark: start, Message: "mapping value not allowed in this context"}
			}
			s.rollIndentForBlockCollection(s.in.column, start, BlockMappingStartToken)
		}
		s.simpleKeyAllowed = s.flowLevel == 0
	}
	s.in.advance()
	s.push(&Token{Type: ValueToken, Atom: Atom{Start: start, End: s.in.mark()}})
	return nil
}

// rollIndentForBlockCollectionAt opens a BLOCK_MAPPING_START at mark's
// column when no frame is open there yet, inserted at idx, ahead of the
// already queued key token (spec.md's "splice before that key token"). It
// reports whether a token was inserted.
func (s *scanner) rollIndentForBlockCollectionAt(mark Mark, idx int) bool {
	if mark.Column <= s.indent {
		return false
	}
	s.pushIndent(mark.Column, true)
	s.insertBefore(idx, &Token{Type: BlockMappingStartToken, Atom: Atom{Start: mark, End: mark}})
	return true
}

func (s *scanner) insertBefore(idx int, tok *Token) {
	if idx < 0 || idx > len(s.tokens) {
		s.tokens = append(s.tokens, tok.retain())
		return
	}
	s.tokens = append(s.tokens, nil)
	copy(s.tokens[idx+1:], s.tokens[idx:])
	s.tokens[idx] = tok.retain()
}

func (s *scanner) fetchAnchorOrAlias(cp rune) error {
	start := s.in.mark()
	s.saveSimpleKey(start)
	s.simpleKeyAllowed = false
	tokType := AnchorToken
	if cp == '*' {
		tokType = AliasToken
	}
	s.in.advance()
	nameStart := s.in.mark()
	for {
		cp, ok := s.in.peek()
		if !ok || isWhitespaceByteOrFlow(cp) {
			break
		}
		s.in.advance()
	}
	if s.in.offset == nameStart.Index {
		return SyntaxError{Mark: s.in.mark(), Message: "anchor/alias name must have at least one character"}
	}
	name := string(s.in.buf[nameStart.Index:s.in.offset])
	s.push(&Token{Type: tokType, Name: name, Atom: Atom{Start: start, End: s.in.mark()}})
	return nil
}

func isWhitespaceByteOrFlow(cp rune) bool {
	if cp >= 0x80 {
		return false
	}
	b := byte(cp)
	return isWhitespaceByte(b) || isFlowIndicator(b)
}

func (s *scanner) fetchTag() error {
	start := s.in.mark()
	s.saveSimpleKey(start)
	s.simpleKeyAllowed = false
	s.in.advance()

	var handle, suffix string
	if cp, ok := s.in.peek(); ok && cp == '<' {
		s.in.advance()
		uriStart := s.in.offset
		for {
			cp, ok := s.in.peek()
			if !ok || cp == '>' {
				break
			}
			s.in.advance()
		}
		suffix = string(s.in.buf[uriStart:s.in.offset])
		if cp, ok := s.in.peek(); !ok || cp != '>' {
			return SyntaxError{Mark: s.in.mark(), Message: "unterminated verbatim tag"}
		}
		s.in.advance()
	} else {
		handleStart := s.in.offset
		sawBang := false
		for {
			cp, ok := s.in.peek()
			if !ok || isWhitespaceByteOrFlow(cp) || cp == '!' && sawBang {
				break
			}
			if cp == '!' {
				sawBang = true
				s.in.advance()
				break
			}
			s.in.advance()
		}
		if sawBang {
			handle = string(s.in.buf[start.Index:s.in.offset])
		} else {
			handle = "!"
			s.in.offset = handleStart
		}
		suffixStart := s.in.offset
		for {
			cp, ok := s.in.peek()
			if !ok || isWhitespaceByteOrFlow(cp) {
				break
			}
			s.in.advance()
		}
		suffix = string(s.in.buf[suffixStart:s.in.offset])
	}
	s.push(&Token{Type: TagToken, Handle: handle, Suffix: suffix, Atom: Atom{Start: start, End: s.in.mark()}})
	return nil
}

func (s *scanner) fetchDirective() error {
	start := s.in.mark()
	s.unrollIndent(-1)
	s.removeAllSimpleKeys()
	s.simpleKeyAllowed = false
	s.in.advance() // '%'

	nameStart := s.in.offset
	for {
		cp, ok := s.in.peek()
		if !ok || isWhitespaceByteOrFlow(cp) {
			break
		}
		s.in.advance()
	}
	name := string(s.in.buf[nameStart:s.in.offset])

	switch name {
	case "YAML":
		return s.scanVersionDirective(start)
	case "TAG":
		return s.scanTagDirective(start)
	default:
		if s.cfg.diag != nil {
			s.cfg.diag.Diag(Diagnostic{Module: ModuleScan, Severity: SeverityWarning, Mark: start, Message: "unknown directive: " + name})
		}
		s.skipToLineBreak()
		return nil
	}
}

func (s *scanner) skipToLineBreak() {
	for {
		cp, ok := s.in.peek()
		if !ok || isLineBreakCP(cp) {
			return
		}
		s.in.advance()
	}
}

func (s *scanner) skipBlanks() {
	for {
		cp, ok := s.in.peek()
		if !ok || (cp != ' ' && cp != '\t') {
			return
		}
		s.in.advance()
	}
}

func (s *scanner) scanVersionDirective(start Mark) error {
	s.skipBlanks()
	major, err := s.scanDecimal()
	if err != nil {
		return err
	}
	if cp, ok := s.in.peek(); !ok || cp != '.' {
		return SyntaxError{Mark: s.in.mark(), Message: "expected '.' in %YAML directive"}
	}
	s.in.advance()
	minor, err := s.scanDecimal()
	if err != nil {
		return err
	}
	if !(major == 1 && (minor == 1 || minor == 2 || minor == 3)) {
		return UnsupportedVersionError{Major: major, Minor: minor, MarkedError: MarkedError{Mark: start, Message: "unsupported %YAML version"}}
	}
	s.skipToLineBreak()
	s.push(&Token{Type: VersionDirectiveToken, VersionMajor: major, VersionMinor: minor, Atom: Atom{Start: start, End: s.in.mark()}})
	return nil
}

func (s *scanner) scanDecimal() (int, error) {
	start := s.in.offset
	for {
		cp, ok := s.in.peek()
		if !ok || cp < '0' || cp > '9' {
			break
		}
		s.in.advance()
	}
	if s.in.offset == start {
		return 0, SyntaxError{Mark: s.in.mark(), Message: "expected a decimal number"}
	}
	n := 0
	for _, c := range s.in.buf[start:s.in.offset] {
		n = n*10 + int(c-'0')
	}
	return n, nil
}

func (s *scanner) scanTagDirective(start Mark) error {
	s.skipBlanks()
	handleStart := s.in.offset
	if cp, ok := s.in.peek(); !ok || cp != '!' {
		return SyntaxError{Mark: s.in.mark(), Message: "tag handle must start with '!'"}
	}
	s.in.advance()
	for {
		cp, ok := s.in.peek()
		if !ok || cp == ' ' || cp == '\t' {
			break
		}
		s.in.advance()
		if cp == '!' {
			break
		}
	}
	handle := string(s.in.buf[handleStart:s.in.offset])
	s.skipBlanks()
	prefixStart := s.in.offset
	for {
		cp, ok := s.in.peek()
		if !ok || isWhitespaceByteOrFlow(cp) && cp != '%' {
			if !ok || cp == ' ' || cp == '\t' || isLineBreakCP(cp) {
				break
			}
		}
		s.in.advance()
	}
	prefix, err := decodePercentEscapes(string(s.in.buf[prefixStart:s.in.offset]))
	if err != nil {
		return SyntaxError{Mark: s.in.mark(), Message: err.Error()}
	}
	s.skipToLineBreak()
	s.push(&Token{Type: TagDirectiveToken, Handle: handle, Suffix: prefix, Atom: Atom{Start: start, End: s.in.mark()}})
	return nil
}

func decodePercentEscapes(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", errInvalidPercentEscape
		}
		hi, ok1 := hexDigit(s[i+1])
		lo, ok2 := hexDigit(s[i+2])
		if !ok1 || !ok2 {
			return "", errInvalidPercentEscape
		}
		b.WriteByte(byte(hi<<4 | lo))
		i += 2
	}
	return b.String(), nil
}

var errInvalidPercentEscape = &percentEscapeError{}

type percentEscapeError struct{}

func (*percentEscapeError) Error() string { return "invalid %XX escape in tag prefix" }
