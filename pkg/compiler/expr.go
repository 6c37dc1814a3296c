package compiler

const (
	precAdditive       = 2000
	precMultiplicative = 4000
)

// binopChars lists the operator characters in the order they are tried.
const binopChars = "+-*/"

// precedence returns the binding power of an operator character; 0 means
// "not an operator" and ends an expression.
func precedence(op byte) int {
	switch op {
	case '+', '-':
		return precAdditive
	case '*', '/':
		return precMultiplicative
	}
	return 0
}

func opFor(ch byte) (Op, bool) {
	switch ch {
	case '+':
		return OpAdd, true
	case '-':
		return OpSub, true
	case '*':
		return OpMul, true
	case '/':
		return OpDiv, true
	}
	return 0, false
}

// extractBinop skips whitespace and consumes one operator character,
// returning 0 when none is present. Callers restore the cursor when they
// decide not to use the operator.
func (p *parser) extractBinop() byte {
	p.cur.SkipWhitespace()
	for i := 0; i < len(binopChars); i++ {
		if p.cur.MatchChar(binopChars[i]) {
			return binopChars[i]
		}
	}
	return 0
}

// parseExpression parses a full expression. On failure the cursor is back
// where it was on entry.
func (p *parser) parseExpression(b Builder) (Value, error) {
	start := p.cur.Save()
	lhs, err := p.parsePrimary(b)
	if err != nil {
		return nil, err
	}
	v, err := p.parseBinopRHS(b, 0, lhs)
	if err != nil {
		p.cur.Restore(start)
		return nil, err
	}
	return v, nil
}

// parsePrimary parses a floating point literal or a parenthesised
// expression, in that order.
func (p *parser) parsePrimary(b Builder) (Value, error) {
	start := p.cur.Save()
	p.cur.SkipWhitespace()

	if v, ok := p.cur.ExtractFloat(); ok {
		return p.unit.backend.ConstFloat(v), nil
	}

	v, err := p.parseParenExpr(b)
	if err == nil {
		return v, nil
	}
	if isFatal(err) {
		p.cur.Restore(start)
		return nil, err
	}

	d := p.fail("Expecting expression!")
	p.cur.Restore(start)
	return nil, d
}

func (p *parser) parseParenExpr(b Builder) (Value, error) {
	start := p.cur.Save()
	p.cur.SkipWhitespace()
	if !p.cur.MatchChar('(') {
		p.cur.Restore(start)
		return nil, errReject
	}

	v, err := p.parseExpression(b)
	if err != nil {
		if isFatal(err) {
			p.cur.Restore(start)
			return nil, err
		}
		d := p.fail("Expecting expression in brackets!")
		p.cur.Restore(start)
		return nil, d
	}

	p.cur.SkipWhitespace()
	if !p.cur.MatchChar(')') {
		d := p.fail("Expecting ')'!")
		p.cur.Restore(start)
		return nil, d
	}
	return v, nil
}

// parseBinopRHS folds "(binop primary)*" onto lhs by precedence climbing.
// Operators binding looser than minPrec are left unconsumed for the caller.
func (p *parser) parseBinopRHS(b Builder, minPrec int, lhs Value) (Value, error) {
	initial := p.cur.Save()
	for {
		cp := p.cur.Save()
		opCurr := p.extractBinop()
		precCurr := precedence(opCurr)
		if opCurr == 0 || precCurr < minPrec {
			p.cur.Restore(cp)
			return lhs, nil
		}

		rhs, err := p.parsePrimary(b)
		if err != nil {
			p.cur.Restore(cp)
			return nil, err
		}

		// Peek at the following operator without consuming it. A tighter
		// one takes rhs as its own left operand first.
		cp = p.cur.Save()
		opNext := p.extractBinop()
		p.cur.Restore(cp)
		if opNext != 0 && precedence(opNext) > precCurr {
			rhs, err = p.parseBinopRHS(b, precCurr+1, rhs)
			if err != nil {
				p.cur.Restore(initial)
				return nil, err
			}
		}

		op, _ := opFor(opCurr)
		lhs, err = b.BinaryOp(op, lhs, rhs)
		if err != nil {
			d := p.fatal(err, "Unexpected operator '%c': %v", opCurr, err)
			p.cur.Restore(initial)
			return nil, d
		}
	}
}
