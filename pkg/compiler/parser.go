package compiler

import (
	"errors"
	"log/slog"
)

// Parser is a backtracking recursive-descent parser working directly on a
// Cursor. There is no token stream and no lookahead buffer: every
// production saves a Checkpoint, tries to match, and restores it on any
// failure path before returning.
//
// Grammar:
//
//	module     = item+
//	item       = definition | declaration
//	definition = declaration "{" expr "}"
//	declaration = "function" IDENT "(" IDENT* ")"
//	expr       = primary (binop primary)*      precedence climbing
//	primary    = FLOAT | "(" expr ")"
//	binop      = "+" | "-" | "*" | "/"
type parser struct {
	unit *Unit
	cur  *Cursor
	log  *slog.Logger

	// furthest is the recoverable failure recorded deepest into the input.
	// It explains a fatal "nothing matched" error.
	furthest *Diagnostic
}

// errReject is a silent recoverable failure: the production simply did not
// start here.
var errReject = errors.Join(ErrNoMatch)

func newParser(u *Unit, cur *Cursor) *parser {
	return &parser{unit: u, cur: cur, log: u.log.With(slog.String("file", cur.File()))}
}

func isFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrNoMatch)
}

// fail records a recoverable failure at the current position. It must be
// called before the cursor is restored so the diagnostic points at the
// place the match gave up.
func (p *parser) fail(format string, args ...any) *Diagnostic {
	d := newDiagnostic(p.cur, SeverityError, ErrNoMatch, format, args...)
	if p.furthest == nil || d.Offset > p.furthest.Offset {
		p.furthest = d
	}
	p.log.Debug("match failed", slog.String("reason", d.Message), slog.Int("line", d.Line), slog.Int("column", d.Column))
	return d
}

// fatal builds an unrecoverable diagnostic at the current position.
func (p *parser) fatal(cause error, format string, args ...any) *Diagnostic {
	d := newDiagnostic(p.cur, SeverityError, cause, format, args...)
	p.log.Debug("fatal parse error", slog.String("reason", d.Message), slog.Int("line", d.Line), slog.Int("column", d.Column))
	return d
}

func (p *parser) warn(cause error, format string, args ...any) *Diagnostic {
	d := newDiagnostic(p.cur, SeverityWarning, cause, format, args...)
	p.log.Warn(d.Message, slog.Int("line", d.Line), slog.Int("column", d.Column))
	return d
}
