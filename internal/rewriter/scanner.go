package rewriter

import "strings"

// Segment is one top-level statement. Whitespace and comments between
// statements are not part of any segment.
type Segment struct {
	Start int // offset of the first statement byte
	End   int // exclusive; includes the terminating ';' when present
	Line  int // 1-based line of Start
}

// Block is a dollar-quoted body opened outside any other block, such as the
// body of DO $$ ... $$ or of a function.
type Block struct {
	Start      int // offset of the opening tag
	End        int // offset just past the closing tag, or len(doc)
	Line       int
	Terminated bool
}

// Scan splits doc into top-level statements. Dollar-quote tags are kept on a
// stack whose length is the block depth; semicolons only end a statement at
// depth zero. Comments, string literals and quoted identifiers are skipped.
func Scan(doc string) ([]Segment, []Block) {
	s := &scanner{doc: doc, line: 1, stmtStart: -1}

	for s.pos < len(s.doc) {
		if s.depth() > 0 {
			s.stepBlock()
		} else {
			s.stepTop()
		}
	}

	if s.depth() > 0 {
		s.blocks[len(s.blocks)-1].End = len(doc)
		s.contentEnd = len(doc)
	}

	s.closeStatement(s.contentEnd)

	return s.segs, s.blocks
}

type scanner struct {
	doc  string
	pos  int
	line int
	tags []string

	segs   []Segment
	blocks []Block

	stmtStart  int
	stmtLine   int
	contentEnd int
}

func (s *scanner) depth() int { return len(s.tags) }

func (s *scanner) stepTop() {
	c := s.doc[s.pos]

	switch {
	case c == '\n':
		s.line++
		s.pos++

		return
	case c == ' ' || c == '\t' || c == '\r' || c == '\f':
		s.pos++

		return
	case c == '-' && s.peek(1) == '-':
		s.skipLineComment()

		return
	case c == '/' && s.peek(1) == '*':
		s.skipBlockComment()

		return
	}

	if s.stmtStart < 0 {
		s.stmtStart = s.pos
		s.stmtLine = s.line
	}

	switch c {
	case '\'':
		s.skipString(s.isEscapeString())
	case '"':
		s.skipQuotedIdent()
	case '$':
		if tag, ok := s.openingTag(); ok {
			s.blocks = append(s.blocks, Block{Start: s.pos, Line: s.line})
			s.tags = append(s.tags, tag)
			s.pos += len(tag) + 2
		} else {
			s.pos++
		}
	case ';':
		s.pos++
		s.contentEnd = s.pos
		s.closeStatement(s.pos)

		return
	default:
		s.pos++
	}

	s.contentEnd = s.pos
}

// stepBlock advances inside a dollar-quoted body. Everything is literal
// except further dollar tags.
func (s *scanner) stepBlock() {
	c := s.doc[s.pos]

	if c == '\n' {
		s.line++
		s.pos++

		return
	}

	if c != '$' {
		s.pos++

		return
	}

	tag, ok := dollarTag(s.doc, s.pos)
	if !ok {
		s.pos++

		return
	}

	if i := s.tagIndex(tag); i >= 0 {
		s.tags = s.tags[:i]
	} else if isIdentChar(s.prev()) {
		s.pos++

		return
	} else {
		s.tags = append(s.tags, tag)
	}

	s.pos += len(tag) + 2
	s.contentEnd = s.pos

	if s.depth() == 0 {
		b := &s.blocks[len(s.blocks)-1]
		b.End = s.pos
		b.Terminated = true
	}
}

func (s *scanner) closeStatement(end int) {
	if s.stmtStart < 0 {
		return
	}

	s.segs = append(s.segs, Segment{Start: s.stmtStart, End: end, Line: s.stmtLine})
	s.stmtStart = -1
}

func (s *scanner) tagIndex(tag string) int {
	for i, t := range s.tags {
		if t == tag {
			return i
		}
	}

	return -1
}

func (s *scanner) peek(n int) byte {
	if s.pos+n < len(s.doc) {
		return s.doc[s.pos+n]
	}

	return 0
}

func (s *scanner) prev() byte {
	if s.pos > 0 {
		return s.doc[s.pos-1]
	}

	return 0
}

// openingTag reports a dollar tag at pos that is not the tail of an identifier.
func (s *scanner) openingTag() (string, bool) {
	if isIdentChar(s.prev()) {
		return "", false
	}

	return dollarTag(s.doc, s.pos)
}

// isEscapeString reports whether the quote at pos opens an E'...' literal.
func (s *scanner) isEscapeString() bool {
	if s.pos == 0 {
		return false
	}

	p := s.doc[s.pos-1]
	if p != 'e' && p != 'E' {
		return false
	}

	return s.pos < 2 || !isIdentChar(s.doc[s.pos-2])
}

func (s *scanner) skipLineComment() {
	for s.pos < len(s.doc) && s.doc[s.pos] != '\n' {
		s.pos++
	}
}

// skipBlockComment skips a /* */ comment; PostgreSQL lets them nest.
func (s *scanner) skipBlockComment() {
	nesting := 0

	for s.pos < len(s.doc) {
		switch {
		case s.doc[s.pos] == '/' && s.peek(1) == '*':
			nesting++
			s.pos += 2
		case s.doc[s.pos] == '*' && s.peek(1) == '/':
			nesting--
			s.pos += 2

			if nesting == 0 {
				return
			}
		default:
			if s.doc[s.pos] == '\n' {
				s.line++
			}

			s.pos++
		}
	}
}

func (s *scanner) skipString(backslashEscapes bool) {
	s.pos++ // opening quote

	for s.pos < len(s.doc) {
		c := s.doc[s.pos]

		switch {
		case c == '\n':
			s.line++
			s.pos++
		case backslashEscapes && c == '\\':
			if s.peek(1) == '\n' {
				s.line++
			}

			s.pos += 2
		case c == '\'':
			if s.peek(1) == '\'' {
				s.pos += 2

				continue
			}

			s.pos++

			return
		default:
			s.pos++
		}
	}

	s.pos = len(s.doc)
}

func (s *scanner) skipQuotedIdent() {
	s.pos++

	for s.pos < len(s.doc) {
		c := s.doc[s.pos]

		switch {
		case c == '\n':
			s.line++
			s.pos++
		case c == '"':
			if s.peek(1) == '"' {
				s.pos += 2

				continue
			}

			s.pos++

			return
		default:
			s.pos++
		}
	}
}

// dollarTag reads $tag$ or $$ at pos and returns the tag text.
func dollarTag(doc string, pos int) (string, bool) {
	j := pos + 1
	if j >= len(doc) {
		return "", false
	}

	if doc[j] == '$' {
		return "", true
	}

	if !isTagStart(doc[j]) {
		return "", false
	}

	j++
	for j < len(doc) && isIdentChar(doc[j]) {
		j++
	}

	if j < len(doc) && doc[j] == '$' {
		return doc[pos+1 : j], true
	}

	return "", false
}

func isTagStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isTagStart(c) || (c >= '0' && c <= '9')
}

// maskLiterals returns text with comments, string literals and dollar-quoted
// bodies blanked to spaces and quoted identifier contents replaced by 'x'.
// Offsets and line breaks are preserved, so a match in the mask can be read
// back from text.
func maskLiterals(text string) string {
	s := &scanner{doc: text, line: 1}
	out := []byte(text)

	blank := func(from, to int, fill byte) {
		for i := from; i < min(to, len(out)); i++ {
			if out[i] != '\n' {
				out[i] = fill
			}
		}
	}

	for s.pos < len(s.doc) {
		start := s.pos

		switch c := s.doc[s.pos]; {
		case c == '-' && s.peek(1) == '-':
			s.skipLineComment()
			blank(start, s.pos, ' ')
		case c == '/' && s.peek(1) == '*':
			s.skipBlockComment()
			blank(start, s.pos, ' ')
		case c == '\'':
			s.skipString(s.isEscapeString())
			blank(start, s.pos, ' ')
		case c == '"':
			s.skipQuotedIdent()
			blank(start+1, s.pos-1, 'x')
		case c == '$':
			tag, ok := s.openingTag()
			if !ok {
				s.pos++

				continue
			}

			delim := "$" + tag + "$"
			end := strings.Index(s.doc[start+len(delim):], delim)

			if end < 0 {
				s.pos = len(s.doc)
			} else {
				s.pos = start + len(delim) + end + len(delim)
			}

			blank(start, s.pos, ' ')
		default:
			s.pos++
		}
	}

	return string(out)
}
