// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

// Scalar scanning (plain, quoted, block) split out of scanner.go for
// readability; same scanner state, same package. Grounded on
// yaml_parser_scan_plain_scalar / yaml_parser_scan_flow_scalar /
// yaml_parser_scan_block_scalar in
// _examples/WillAbides-yaml/internal/parserc/scannerc.go, adapted onto
// this module's Atom/Token value shapes and utf8.go's escape/class
// helpers instead of that file's inline byte-range math.
package fy

import "strings"

// fetchPlainScalar implements spec.md §4.G "Plain scalars".
func (s *scanner) fetchPlainScalar() error {
	start := s.in.mark()
	s.saveSimpleKey(start)
	s.simpleKeyAllowed = false

	var sb strings.Builder
	hasLB := false
	leadingBlanks := 0
	startIndent := s.in.column
	json := s.in.mode == ModeJSON

	for {
		if !s.plainScalarLineHasContent(json) {
			break
		}
		lineStart := true
		pendingSpace := 0
		for {
			cp, ok := s.in.peek()
			if !ok || isLineBreakCP(cp) {
				break
			}
			if cp == ' ' || cp == '\t' {
				pendingSpace++
				s.in.advance()
				continue
			}
			if cp == '#' {
				if prevWasBlank(lineStart, pendingSpace) {
					break
				}
			}
			if cp == ':' {
				if s.flowLevel > 0 {
					if s.in.isBlankzAt(1) || isFlowIndicatorCP(peekNextOrZero(s.in, 1)) {
						break
					}
				} else if s.in.isBlankzAt(1) {
					break
				}
			}
			if s.flowLevel > 0 && isFlowIndicatorCP(cp) {
				break
			}
			for i := 0; i < pendingSpace; i++ {
				sb.WriteByte(' ')
			}
			pendingSpace = 0
			lineStart = false
			sb.WriteRune(cp)
			s.in.advance()
		}
		if pendingSpace > 0 {
			// Trailing blanks before a line break are not part of the content.
		}

		breaks := 0
		for {
			cp, ok := s.in.peek()
			if !ok || !isLineBreakCP(cp) {
				break
			}
			s.in.advance()
			breaks++
		}
		if breaks == 0 {
			break
		}
		hasLB = true
		s.skipBlanksTab(json)
		if s.in.column <= startIndent && s.flowLevel == 0 {
			break
		}
		if cp, ok := s.in.peek(); !ok || s.atDocumentIndicatorHere(cp) {
			break
		}
		if breaks == 1 {
			sb.WriteByte(' ')
		} else {
			for i := 0; i < breaks-1; i++ {
				sb.WriteByte('\n')
			}
		}
		leadingBlanks++
	}
	_ = leadingBlanks
	if hasLB {
		s.simpleKeyAllowed = true
	}

	value := s.intern(sb.String())
	tok := &Token{Type: ScalarToken, ScalarStyle: StylePlain, Value: value, Atom: Atom{Start: start, End: s.in.mark(), Style: StylePlain, HasLB: hasLB, StorageHint: len(value)}}
	s.push(tok)
	return nil
}

func prevWasBlank(lineStart bool, pendingSpace int) bool { return lineStart || pendingSpace > 0 }

func peekNextOrZero(in *input, n int) rune {
	cp, ok := in.peekAt(n)
	if !ok {
		return 0
	}
	return cp
}

func isFlowIndicatorCP(cp rune) bool {
	if cp >= 0x80 {
		return false
	}
	return isFlowIndicator(byte(cp))
}

func (s *scanner) atDocumentIndicatorHere(cp rune) bool {
	if s.in.column != 0 {
		return false
	}
	return s.atDocumentIndicator("---") || s.atDocumentIndicator("...")
}

func (s *scanner) plainScalarLineHasContent(json bool) bool {
	cp, ok := s.in.peek()
	if !ok {
		return false
	}
	if json && isLineBreakCP(cp) {
		return false
	}
	return true
}

func (s *scanner) skipBlanksTab(json bool) {
	for {
		cp, ok := s.in.peek()
		if !ok {
			return
		}
		if cp == ' ' {
			s.in.advance()
			continue
		}
		if cp == '\t' {
			s.in.advance()
			continue
		}
		return
	}
}

// fetchFlowScalar implements spec.md §4.G "Flow scalars (quoted)".
func (s *scanner) fetchFlowScalar(style ScalarStyle) error {
	start := s.in.mark()
	s.saveSimpleKey(start)
	s.simpleKeyAllowed = false
	json := s.in.mode == ModeJSON
	if json && style == StyleSingleQuoted {
		return SyntaxError{Mark: start, Message: "single-quoted scalars are not allowed in JSON mode"}
	}

	quote, _ := s.in.peek()
	s.in.advance()

	var sb strings.Builder
	flavor := FlavorDoubleQuote
	switch {
	case json:
		flavor = FlavorDoubleQuoteJSON
	case quote == '\'':
		flavor = FlavorSingleQuote
	}

	for {
		cp, ok := s.in.peek()
		if !ok {
			return SyntaxError{Mark: s.in.mark(), Message: "unterminated quoted scalar"}
		}
		if isLineBreakCP(cp) {
			if json {
				return SyntaxError{Mark: s.in.mark(), Message: "multi-line scalars are not allowed in JSON mode"}
			}
			breaks := 0
			for {
				cp, ok := s.in.peek()
				if !ok || !isLineBreakCP(cp) {
					break
				}
				s.in.advance()
				breaks++
			}
			s.skipBlanksTab(json)
			if breaks == 1 {
				sb.WriteByte(' ')
			} else {
				for i := 0; i < breaks-1; i++ {
					sb.WriteByte('\n')
				}
			}
			continue
		}
		if quote == '\'' && cp == '\'' {
			if next, ok := s.in.peekAt(1); ok && next == '\'' {
				sb.WriteByte('\'')
				s.in.advance()
				s.in.advance()
				continue
			}
			s.in.advance()
			break
		}
		if quote != '\'' && cp == '"' {
			s.in.advance()
			break
		}
		if quote != '\'' && cp == '\\' {
			decoded, consumed, ok := parseEscape(s.in.buf[s.in.offset+1:], flavor)
			if !ok {
				return SyntaxError{Mark: s.in.mark(), Message: "invalid escape sequence"}
			}
			s.in.advanceBy(1) // backslash
			s.advanceRaw(consumed)
			sb.WriteRune(decoded)
			continue
		}
		sb.WriteRune(cp)
		s.in.advance()
	}

	value := s.intern(sb.String())
	tok := &Token{Type: ScalarToken, ScalarStyle: style, Value: value, Atom: Atom{Start: start, End: s.in.mark(), Style: style, StorageHint: len(value)}}
	s.push(tok)
	return nil
}

// advanceRaw advances the cursor by n raw bytes already known to form
// whole codepoints (used after manually decoding an escape sequence,
// where walking codepoint-by-codepoint through parseEscape's own width
// accounting would duplicate work).
func (s *scanner) advanceRaw(n int) {
	end := s.in.offset + n
	for s.in.offset < end {
		s.in.advance()
	}
}

// fetchBlockScalar implements spec.md §4.G "Block scalars (`|` or `>`)".
func (s *scanner) fetchBlockScalar(indicator rune) error {
	start := s.in.mark()
	s.removeAllSimpleKeys()
	s.simpleKeyAllowed = true

	style := StyleLiteral
	if indicator == '>' {
		style = StyleFolded
	}
	s.in.advance()

	chomp := ChompClip
	explicitIndent := autoIndent
	for i := 0; i < 2; i++ {
		cp, ok := s.in.peek()
		if !ok {
			break
		}
		switch {
		case cp == '+':
			chomp = ChompKeep
			s.in.advance()
		case cp == '-':
			chomp = ChompStrip
			s.in.advance()
		case cp >= '1' && cp <= '9':
			explicitIndent = int(cp - '0')
			s.in.advance()
		default:
			i = 2
		}
	}
	s.skipBlanksTab(false)
	if cp, ok := s.in.peek(); ok && cp == '#' {
		s.skipToLineBreak()
	}
	if cp, ok := s.in.peek(); ok && !isLineBreakCP(cp) {
		return SyntaxError{Mark: s.in.mark(), Message: "unexpected characters after block scalar header"}
	}
	if _, ok := s.in.peek(); ok {
		s.in.advance() // the line break ending the header
	}

	outerIndent := s.indent
	if outerIndent < 0 {
		outerIndent = 0
	}
	contentIndent := outerIndent + 1
	if !s.documentFirstContentToken && outerIndent == 0 {
		contentIndent = 0
	}

	type blockLine struct {
		indent int
		text   string
		empty  bool
	}
	var lines []blockLine
	determined := explicitIndent != autoIndent
	if determined {
		contentIndent = outerIndent + explicitIndent
	}

	lastLineBreakConsumed := false

	for {
		col := 0
		for {
			cp, ok := s.in.peek()
			if !ok || cp != ' ' {
				break
			}
			s.in.advance()
			col++
		}
		cp, ok := s.in.peek()
		if !ok {
			break
		}
		if isLineBreakCP(cp) {
			lines = append(lines, blockLine{indent: col, empty: true})
			s.in.advance()
			continue
		}
		if !determined {
			contentIndent = col
			if contentIndent < outerIndent+1 {
				if outerIndent == 0 {
					contentIndent = col
				} else {
					break
				}
			}
			determined = true
		}
		if col < contentIndent {
			// This line belongs to the next token. Its leading spaces
			// are already consumed, so the cursor sits at column col,
			// where a fresh scan_to_next_token would have left it, and
			// unrollIndent sees that column via s.in.column.
			break
		}
		lineStart := s.in.offset
		for {
			cp, ok := s.in.peek()
			if !ok || isLineBreakCP(cp) {
				break
			}
			s.in.advance()
		}
		text := string(s.in.buf[lineStart:s.in.offset])
		extra := col - contentIndent
		if extra > 0 {
			text = strings.Repeat(" ", extra) + text
		}
		lines = append(lines, blockLine{indent: col, text: text})
		if _, ok := s.in.peek(); ok {
			s.in.advance()
			lastLineBreakConsumed = true
		} else {
			lastLineBreakConsumed = false
			break
		}
	}

	var sb strings.Builder
	trailingBreaks := 0
	flushTrailing := func() {
		for i := 0; i < trailingBreaks; i++ {
			sb.WriteByte('\n')
		}
		trailingBreaks = 0
	}
	first := true
	prevEmpty := false
	for _, ln := range lines {
		if ln.empty {
			trailingBreaks++
			prevEmpty = true
			continue
		}
		if style == StyleLiteral {
			flushTrailing()
			if !first {
				sb.WriteByte('\n')
			}
			sb.WriteString(ln.text)
		} else {
			flushTrailing()
			if !first {
				if prevEmpty || ln.indent > contentIndent {
					sb.WriteByte('\n')
				} else {
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(ln.text)
		}
		first = false
		prevEmpty = false
	}

	// The break that terminated the last content line was consumed from
	// the input but, unlike a genuine blank line, never became a
	// blockLine{empty:true} entry; account for it here so clip/keep
	// chomping sees the break that's actually there.
	if !first && lastLineBreakConsumed {
		trailingBreaks++
	}

	switch chomp {
	case ChompStrip:
		trailingBreaks = 0
	case ChompClip:
		if trailingBreaks > 0 {
			trailingBreaks = 1
		}
	case ChompKeep:
		// keep all counted trailing breaks
	}
	if !first {
		for i := 0; i < trailingBreaks; i++ {
			sb.WriteByte('\n')
		}
	}

	value := s.intern(sb.String())
	tok := &Token{
		Type:        ScalarToken,
		ScalarStyle: style,
		Value:       value,
		Atom: Atom{
			Start: start, End: s.in.mark(), Style: style, Chomp: chomp,
			Indent: explicitIndent, TrailingLB: trailingBreaks > 0, StorageHint: len(value),
		},
	}
	s.push(tok)
	return nil
}
