package asm

import (
	"fmt"
	"strings"

	"bleurgh/pkg/cpu"
)

// Line is one decoded instruction.
type Line struct {
	Address uint32
	Length  int
	Inst    cpu.Instruction
}

func (l Line) String() string {
	return fmt.Sprintf("%04X  %s", l.Address, l.Inst)
}

// Disassemble decodes code from the start to the end. Decoding stops at the
// first invalid instruction and reports it along with everything decoded
// before it.
func Disassemble(code []byte) ([]Line, error) {
	var lines []Line
	var pc uint32
	for int(pc) < len(code) {
		in, n, err := cpu.Decode(code, pc)
		if err != nil {
			return lines, err
		}
		lines = append(lines, Line{Address: pc, Length: n, Inst: in})
		pc += uint32(n)
	}
	return lines, nil
}

// Listing renders p as assembly text that assembles back to the same code.
// Functions are bracketed by their .FUNC/.END directives and externs are
// listed first.
func Listing(p *Program) (string, error) {
	lines, err := Disassemble(p.Code)
	if err != nil {
		return "", err
	}

	starts := make(map[uint32]Symbol)
	var sb strings.Builder
	for _, s := range p.Symbols {
		if !s.Defined {
			fmt.Fprintf(&sb, ".EXTERN %s %d\n", s.Name, s.Arity)
			continue
		}
		starts[s.Address] = s
	}

	open := false
	for _, l := range lines {
		if s, ok := starts[l.Address]; ok {
			if open {
				sb.WriteString(".END\n")
			}
			fmt.Fprintf(&sb, ".FUNC %s %d %d\n", s.Name, s.Arity, s.Frame)
			open = true
		}
		fmt.Fprintf(&sb, "    %-28s ; %04X\n", l.Inst.String(), l.Address)
	}
	if open {
		sb.WriteString(".END\n")
	}
	return sb.String(), nil
}
