package compiler

import (
	"errors"
	"log/slog"
)

// declaration is a parsed function header reconciled against the scope.
type declaration struct {
	name   string
	params []string
	fn     Function
	pos    Position
}

// parseParamArray parses "(" IDENT* ")". Parameter names are separated by
// whitespace only.
func (p *parser) parseParamArray() ([]string, error) {
	start := p.cur.Save()
	if !p.cur.MatchChar('(') {
		d := p.fail("Expecting '('!")
		p.cur.Restore(start)
		return nil, d
	}
	p.cur.SkipWhitespace()

	var params []string
	for {
		name, ok := p.cur.MatchIdentifier()
		if !ok {
			break
		}
		params = append(params, name)
		p.cur.SkipWhitespace()
	}

	if !p.cur.MatchChar(')') {
		d := p.fail("Expecting ')'!")
		p.cur.Restore(start)
		return nil, d
	}
	return params, nil
}

// extractDeclaration parses a function header and reconciles it with any
// symbol already bound under the same name. A new name is declared with the
// backend and saved in the innermost scope frame.
func (p *parser) extractDeclaration() (*declaration, error) {
	start := p.cur.Save()
	p.cur.SkipWhitespace()
	pos := p.cur.Pos()

	if !p.cur.MatchLiteral("function") {
		p.cur.Restore(start)
		return nil, errReject
	}
	p.cur.SkipWhitespace()

	name, ok := p.cur.MatchIdentifier()
	if !ok {
		d := p.fail("Expecting identifier!")
		p.cur.Restore(start)
		return nil, d
	}
	p.cur.SkipWhitespace()

	params, err := p.parseParamArray()
	if err != nil {
		d := p.fail("Expecting parameter array!")
		p.cur.Restore(start)
		return nil, d
	}

	fn, exists := p.unit.scope.LoadFunction(name)
	if exists {
		var d *Diagnostic
		switch {
		case fn.ReturnType() != TypeDouble:
			d = p.fatal(ErrReturnTypeMismatch, "Function return type mismatch!")
		case fn.Arity() != len(params):
			d = p.fatal(ErrParamCountMismatch, "Parameter count mismatch!")
		default:
			for _, t := range fn.ParamTypes() {
				if t != TypeDouble {
					d = p.fatal(ErrParamTypeMismatch, "Parameter type mismatch!")
					break
				}
			}
		}
		if d != nil {
			p.cur.Restore(start)
			return nil, d
		}
	} else {
		fn, err = p.unit.backend.DeclareFunction(name, len(params))
		if err != nil {
			d := p.fatal(err, "Cannot declare function '%s': %v", name, err)
			p.cur.Restore(start)
			return nil, d
		}
		p.unit.scope.Save(name, fn)
		p.log.Debug("declared function", slog.String("name", name), slog.Int("arity", len(params)))
	}

	return &declaration{name: name, params: params, fn: fn, pos: pos}, nil
}

// parseDefinition parses a declaration followed by a braced expression body.
// Any failure rolls the cursor back to where the declaration started.
func (p *parser) parseDefinition() (*declaration, error) {
	start := p.cur.Save()

	decl, err := p.extractDeclaration()
	if err != nil {
		return nil, err
	}

	p.cur.SkipWhitespace()
	if !p.cur.MatchChar('{') {
		p.cur.Restore(start)
		return nil, errReject
	}

	b, err := p.unit.backend.BeginFunctionBody(decl.fn)
	if err != nil {
		var d *Diagnostic
		if errors.Is(err, ErrRedefinition) {
			d = p.fatal(ErrRedefinition, "Redefining function!")
		} else {
			d = p.fatal(err, "Cannot define function '%s': %v", decl.name, err)
		}
		p.cur.Restore(start)
		return nil, d
	}

	// Parameters live in a frame of their own for the duration of the body.
	p.unit.scope.Push()
	for i, name := range decl.params {
		p.unit.scope.Save(name, b.Param(i))
	}
	ret, err := p.parseExpression(b)
	if err == nil {
		if rerr := b.SetReturn(ret); rerr != nil {
			err = p.fatal(rerr, "Cannot return from '%s': %v", decl.name, rerr)
		}
	}
	p.unit.scope.Pop()

	if err != nil {
		p.unit.backend.DiscardBody(decl.fn)
		p.cur.Restore(start)
		return nil, err
	}

	p.cur.SkipWhitespace()
	if !p.cur.MatchChar('}') {
		p.unit.backend.DiscardBody(decl.fn)
		d := p.fatal(ErrUnterminatedBody, "Expecting '}' at end of function definition!")
		p.cur.Restore(start)
		return nil, d
	}

	if verr := p.unit.backend.Verify(decl.fn); verr != nil {
		w := p.warn(errors.Join(ErrVerify, verr), "Function '%s' failed verification: %v", decl.name, verr)
		p.unit.warnings = append(p.unit.warnings, w)
	}
	p.log.Debug("defined function", slog.String("name", decl.name))
	return decl, nil
}
