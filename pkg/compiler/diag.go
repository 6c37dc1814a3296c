package compiler

import (
	"errors"
	"fmt"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Sentinel causes carried by diagnostics. ErrNoMatch marks a recoverable
// failure: the input did not match the attempted production and the cursor
// has already been rolled back. Every other cause is fatal.
var (
	ErrNoMatch            = errors.New("no match")
	ErrReturnTypeMismatch = errors.New("function return type mismatch")
	ErrParamCountMismatch = errors.New("parameter count mismatch")
	ErrParamTypeMismatch  = errors.New("parameter type mismatch")
	ErrUnterminatedBody   = errors.New("unterminated function definition")
	ErrExpectedItem       = errors.New("expected function declaration or definition")
	ErrVerify             = errors.New("function failed verification")
)

// Diagnostic is a positioned compiler message.
type Diagnostic struct {
	File     string
	Line     int
	Column   int
	Offset   int
	Severity Severity
	Message  string
	Err      error

	// AtEOF is set when the failure was caused by running out of input.
	AtEOF bool
	// Cause is the innermost recoverable failure that led here, if any.
	Cause *Diagnostic
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// Fatal reports whether d ends the parse job.
func (d *Diagnostic) Fatal() bool {
	return d.Severity == SeverityError && !errors.Is(d.Err, ErrNoMatch)
}

// IsIncomplete reports whether err was caused by the input ending in the
// middle of a production, i.e. more text could still make it parse.
func IsIncomplete(err error) bool {
	var d *Diagnostic
	if !errors.As(err, &d) {
		return false
	}
	for ; d != nil; d = d.Cause {
		if d.AtEOF {
			return true
		}
	}
	return false
}

func newDiagnostic(cur *Cursor, sev Severity, cause error, format string, args ...any) *Diagnostic {
	pos := cur.Pos()
	rest := cur.Rest()
	atEOF := true
	for i := 0; i < len(rest); i++ {
		if !isSpace(rest[i]) {
			atEOF = false
			break
		}
	}
	return &Diagnostic{
		File:     cur.File(),
		Line:     pos.Line,
		Column:   pos.Column,
		Offset:   pos.Offset,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Err:      cause,
		AtEOF:    atEOF,
	}
}
