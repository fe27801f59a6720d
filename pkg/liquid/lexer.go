package liquid

import "strings"

// The lexer scans template source and yields tokens for literal text and
// the two delimiter forms: output {{ }} and statements {% %}, with the
// usual '-' whitespace-trim variants.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokText
	tokVarStart  // {{ or {{-
	tokStmtStart // {% or {%-
)

type token struct {
	kind tokenKind
	val  string
	pos  int // byte offset in source
}

type lexer struct {
	src      []byte
	i        int
	n        int
	trimNext bool // a closing -}} / -%} requested trimming the next text
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src, n: len(src)}
}

// position converts a byte offset to a 1-based line and column.
func (l *lexer) position(pos int) (line, column int) {
	line, column = 1, 1
	for i := 0; i < pos && i < l.n; i++ {
		if l.src[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

func (l *lexer) at(s string) bool {
	if l.i+len(s) > l.n {
		return false
	}
	return string(l.src[l.i:l.i+len(s)]) == s
}

// nextTokenOutside scans in text context: it emits either a text token up
// to the next opening delimiter, an opening delimiter token, or EOF.
func (l *lexer) nextTokenOutside() token {
	if l.i >= l.n {
		return token{kind: tokEOF, pos: l.i}
	}
	start := l.i
	for l.i < l.n {
		if l.at("{{") || l.at("{%") {
			if l.i > start {
				return token{kind: tokText, val: l.textSegment(start, l.i, l.at4Trim()), pos: start}
			}
			l.trimNext = false
			kind := tokVarStart
			if l.src[l.i+1] == '%' {
				kind = tokStmtStart
			}
			pos := l.i
			l.i += 2
			if l.i < l.n && l.src[l.i] == '-' {
				l.i++
			}
			return token{kind: kind, pos: pos}
		}
		l.i++
	}
	return token{kind: tokText, val: l.textSegment(start, l.n, false), pos: start}
}

// at4Trim reports whether the delimiter at the cursor carries a leading
// trim marker ({{- or {%-).
func (l *lexer) at4Trim() bool {
	return l.i+2 < l.n && l.src[l.i+2] == '-'
}

// textSegment cuts src[start:end], honoring any pending right-side trim
// and an upcoming left-side trim.
func (l *lexer) textSegment(start, end int, trimRight bool) string {
	s := string(l.src[start:end])
	if l.trimNext {
		s = strings.TrimLeft(s, " \t\r\n")
		l.trimNext = false
	}
	if trimRight {
		s = strings.TrimRight(s, " \t\r\n")
	}
	return s
}

// readInside consumes tag content up to the matching close delimiter and
// returns it. Quoted strings may contain the delimiter.
func (l *lexer) readInside(close string) (string, bool) {
	start := l.i
	inStr := byte(0)
	for l.i < l.n {
		c := l.src[l.i]
		if inStr != 0 {
			if c == inStr {
				inStr = 0
			}
			l.i++
			continue
		}
		switch {
		case c == '\'' || c == '"':
			inStr = c
			l.i++
		case l.at("-"+close):
			s := string(l.src[start:l.i])
			l.i += 1 + len(close)
			l.trimNext = true
			return s, true
		case l.at(close):
			s := string(l.src[start:l.i])
			l.i += len(close)
			return s, true
		default:
			l.i++
		}
	}
	return string(l.src[start:]), false
}
