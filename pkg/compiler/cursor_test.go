package compiler

import (
	"testing"
)

func TestSkipWhitespace(t *testing.T) {
	c := NewCursor("t", "x  ")
	before := c.Pos()
	if c.SkipWhitespace() {
		t.Error("expected false with no leading whitespace")
	}
	if c.Pos() != before {
		t.Errorf("expected no movement, got %+v", c.Pos())
	}

	c = NewCursor("t", "  \n\t x")
	if !c.SkipWhitespace() {
		t.Fatal("expected whitespace to be consumed")
	}
	pos := c.Pos()
	if pos.Offset != 5 || pos.Line != 2 || pos.Column != 3 {
		t.Errorf("expected offset 5 line 2 column 3, got %+v", pos)
	}
}

func TestMatchLiteral(t *testing.T) {
	c := NewCursor("t", "functionf(")
	if !c.MatchLiteral("function") {
		t.Fatal("expected literal to match without a word boundary")
	}
	if c.Rest() != "f(" {
		t.Errorf("expected rest %q, got %q", "f(", c.Rest())
	}

	c = NewCursor("t", "func x")
	if c.MatchLiteral("function") {
		t.Fatal("expected partial literal not to match")
	}
	if c.Pos().Offset != 0 {
		t.Errorf("expected cursor restored to 0, got %d", c.Pos().Offset)
	}
}

func TestMatchChar(t *testing.T) {
	c := NewCursor("t", "(")
	if c.MatchChar(')') {
		t.Error("matched the wrong character")
	}
	if !c.MatchChar('(') {
		t.Error("expected '(' to match")
	}
	if c.MatchChar('(') {
		t.Error("matched past end of input")
	}
}

func TestMatchIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"abc_1 rest", "abc_1", true},
		{"9lives", "9lives", true},
		{"_", "_", true},
		{"(x", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		c := NewCursor("t", tt.input)
		got, ok := c.MatchIdentifier()
		if ok != tt.ok || got != tt.want {
			t.Errorf("MatchIdentifier(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
		if !ok && c.Pos().Offset != 0 {
			t.Errorf("MatchIdentifier(%q) moved the cursor on failure", tt.input)
		}
	}
}

func TestExtractFloat(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
		rest  string
	}{
		{"3.14", 3.14, true, ""},
		{"-2 ", -2, true, " "},
		{"+7", 7, true, ""},
		{".5", 0.5, true, ""},
		{"5.", 5, true, ""},
		{"1e3", 1000, true, ""},
		{"1.5e+2x", 150, true, "x"},
		{"2E-1", 0.2, true, ""},
		{"1e", 1, true, "e"},
		{"4e+", 4, true, "e+"},
		{"abc", 0, false, "abc"},
		{".", 0, false, "."},
		{"+", 0, false, "+"},
		{"-.e1", 0, false, "-.e1"},
		{"1e999", 0, false, "1e999"},
	}
	for _, tt := range tests {
		c := NewCursor("t", tt.input)
		got, ok := c.ExtractFloat()
		if ok != tt.ok || got != tt.want {
			t.Errorf("ExtractFloat(%q) = %g, %v; want %g, %v", tt.input, got, ok, tt.want, tt.ok)
		}
		if c.Rest() != tt.rest {
			t.Errorf("ExtractFloat(%q) left %q, want %q", tt.input, c.Rest(), tt.rest)
		}
	}
}

func TestSaveRestore(t *testing.T) {
	c := NewCursor("t", "a\n\n  b")
	c.MatchChar('a')
	cp := c.Save()
	before := c.Pos()

	c.SkipWhitespace()
	c.MatchChar('b')
	if !c.AtEOF() {
		t.Fatal("expected to reach the end of input")
	}

	c.Restore(cp)
	if c.Pos() != before {
		t.Errorf("expected %+v after restore, got %+v", before, c.Pos())
	}
	if c.Rest() != "\n\n  b" {
		t.Errorf("unexpected rest after restore: %q", c.Rest())
	}
}
