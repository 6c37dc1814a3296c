package compiler

import (
	"strconv"
)

// Checkpoint is a snapshot of a Cursor position. Restoring a checkpoint
// rolls back every piece of lexer state, line tracking included.
type Checkpoint struct {
	Offset    int // byte offset into the source
	LineStart int // byte offset of the first character of the current line
	Line      int // 1-based line number
}

// Position is a resolved source location used by diagnostics.
type Position struct {
	Offset int
	Line   int
	Column int // 1-based
}

// Cursor walks a source text one byte at a time. Every Match* method either
// consumes exactly what it matched or leaves the cursor where it was.
type Cursor struct {
	file      string
	src       string
	pos       int
	lineStart int
	line      int
}

// NewCursor returns a cursor positioned at the start of src. file is only
// used to label diagnostics.
func NewCursor(file, src string) *Cursor {
	return &Cursor{file: file, src: src, line: 1}
}

func (c *Cursor) File() string { return c.file }

// Save captures the current position.
func (c *Cursor) Save() Checkpoint {
	return Checkpoint{Offset: c.pos, LineStart: c.lineStart, Line: c.line}
}

// Restore resets the cursor to cp.
func (c *Cursor) Restore(cp Checkpoint) {
	c.pos = cp.Offset
	c.lineStart = cp.LineStart
	c.line = cp.Line
}

// Pos reports the current location.
func (c *Cursor) Pos() Position {
	return Position{Offset: c.pos, Line: c.line, Column: c.pos - c.lineStart + 1}
}

// AtEOF reports whether the whole source has been consumed.
func (c *Cursor) AtEOF() bool {
	return c.pos >= len(c.src)
}

// Rest returns the unconsumed part of the source.
func (c *Cursor) Rest() string {
	return c.src[c.pos:]
}

// peek returns the byte at the current position, or 0 at end of input.
func (c *Cursor) peek() byte {
	if c.pos >= len(c.src) {
		return 0
	}
	return c.src[c.pos]
}

// advance consumes one byte. Line bookkeeping is done by SkipWhitespace,
// the only primitive that can consume a newline.
func (c *Cursor) advance() byte {
	if c.pos >= len(c.src) {
		return 0
	}
	b := c.src[c.pos]
	c.pos++
	return b
}

// SkipWhitespace consumes a maximal run of whitespace and reports whether
// anything was consumed.
func (c *Cursor) SkipWhitespace() bool {
	if !isSpace(c.peek()) {
		return false
	}
	for isSpace(c.peek()) {
		if c.advance() == '\n' {
			c.lineStart = c.pos
			c.line++
		}
	}
	return true
}

// MatchChar consumes ch if it is the next byte.
func (c *Cursor) MatchChar(ch byte) bool {
	if c.AtEOF() || c.peek() != ch {
		return false
	}
	c.advance()
	return true
}

// MatchLiteral consumes s if the input continues with exactly s. There is
// no word-boundary check: "functionf" matches "function".
func (c *Cursor) MatchLiteral(s string) bool {
	cp := c.Save()
	for i := 0; i < len(s); i++ {
		if !c.MatchChar(s[i]) {
			c.Restore(cp)
			return false
		}
	}
	return true
}

// MatchIdentifier consumes a maximal run of [A-Za-z0-9_]. Leading digits are
// not rejected here.
func (c *Cursor) MatchIdentifier() (string, bool) {
	start := c.pos
	for isIdentChar(c.peek()) {
		c.advance()
	}
	if c.pos == start {
		return "", false
	}
	return c.src[start:c.pos], true
}

// ExtractFloat consumes a decimal floating point literal:
//
//	[+-]? (digits ('.' digits?)? | '.' digits) ([eE] [+-]? digits)?
//
// An exponent marker not followed by digits is left unconsumed. Literals
// that overflow float64 are rejected.
func (c *Cursor) ExtractFloat() (float64, bool) {
	cp := c.Save()

	if c.peek() == '+' || c.peek() == '-' {
		c.advance()
	}

	intDigits := c.skipDigits()
	fracDigits := 0
	if c.peek() == '.' {
		dot := c.Save()
		c.advance()
		fracDigits = c.skipDigits()
		if intDigits == 0 && fracDigits == 0 {
			c.Restore(dot)
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		c.Restore(cp)
		return 0, false
	}

	if c.peek() == 'e' || c.peek() == 'E' {
		exp := c.Save()
		c.advance()
		if c.peek() == '+' || c.peek() == '-' {
			c.advance()
		}
		if c.skipDigits() == 0 {
			c.Restore(exp)
		}
	}

	value, err := strconv.ParseFloat(c.src[cp.Offset:c.pos], 64)
	if err != nil {
		c.Restore(cp)
		return 0, false
	}
	return value, true
}

func (c *Cursor) skipDigits() int {
	n := 0
	for isDigit(c.peek()) {
		c.advance()
		n++
	}
	return n
}

// isSpace matches the C locale isspace set.
func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isIdentChar(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}
