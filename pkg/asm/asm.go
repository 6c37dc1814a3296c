package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"bleurgh/pkg/cpu"
)

// Symbol is a function known to an assembled program.
type Symbol struct {
	Name    string `json:"name"`
	Arity   int    `json:"arity"`
	Frame   int    `json:"frame"`
	Address uint32 `json:"address"`
	Defined bool   `json:"defined"`
}

// Program is the result of assembling one source text.
type Program struct {
	Code []byte
	// Symbols lists .FUNC and .EXTERN entries in source order.
	Symbols []Symbol
	Labels  map[string]uint32
	// SourceMap maps instruction addresses to 1-based source lines.
	SourceMap map[uint32]int
}

// Lookup finds a symbol by name.
func (p *Program) Lookup(name string) (Symbol, bool) {
	for _, s := range p.Symbols {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

type Assembler struct {
	labels  map[string]uint32
	symbols []Symbol
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint32),
	}
}

func Assemble(code string) (*Program, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) (*Program, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}

	return a.pass2(lines)
}

// pass1 assigns addresses to labels and functions and checks directive
// nesting.
func (a *Assembler) pass1(lines []string) error {
	var address uint32
	var open *Symbol
	seen := make(map[string]bool)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[lbl] = address
		}

		switch p.mnemonic {
		case "":
			continue

		case ".FUNC", ".EXTERN":
			if open != nil {
				return fmt.Errorf("%s inside function '%s' on line %d", p.mnemonic, open.Name, lineNo)
			}
			sym, err := parseSymbol(p, lineNo)
			if err != nil {
				return err
			}
			if seen[sym.Name] {
				return fmt.Errorf("duplicate symbol '%s' on line %d", sym.Name, lineNo)
			}
			seen[sym.Name] = true
			if p.mnemonic == ".FUNC" {
				if _, exists := a.labels[sym.Name]; exists {
					return fmt.Errorf("duplicate label '%s' on line %d", sym.Name, lineNo)
				}
				sym.Address = address
				sym.Defined = true
				a.labels[sym.Name] = address
				a.symbols = append(a.symbols, sym)
				open = &a.symbols[len(a.symbols)-1]
			} else {
				a.symbols = append(a.symbols, sym)
			}
			continue

		case ".END":
			if open == nil {
				return fmt.Errorf(".END without .FUNC on line %d", lineNo)
			}
			if len(p.operands) != 0 {
				return fmt.Errorf(".END expects 0 operands on line %d", lineNo)
			}
			open = nil
			continue
		}

		op, ok := cpu.Lookup(p.mnemonic)
		if !ok {
			return fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
		}
		info, _ := cpu.Info(op)
		address += uint32(info.Length())
	}

	if open != nil {
		return fmt.Errorf("function '%s' is missing .END", open.Name)
	}
	return nil
}

func (a *Assembler) pass2(lines []string) (*Program, error) {
	program := make([]byte, 0)
	sourceMap := make(map[uint32]int)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}

		switch p.mnemonic {
		case "", ".FUNC", ".EXTERN", ".END":
			continue
		}

		op, _ := cpu.Lookup(p.mnemonic)
		info, _ := cpu.Info(op)

		want := info.Regs
		if info.Imm || info.Frame {
			want++
		}
		if len(p.operands) != want {
			return nil, fmt.Errorf("%s expects %d operands on line %d", p.mnemonic, want, lineNo)
		}

		in := cpu.Instruction{Op: op}
		for j := 0; j < info.Regs; j++ {
			r, err := parseRegister(p.operands[j], lineNo)
			if err != nil {
				return nil, err
			}
			in.Regs = append(in.Regs, r)
		}
		if info.Frame {
			n, err := strconv.ParseUint(p.operands[info.Regs], 0, 16)
			if err != nil {
				return nil, fmt.Errorf("invalid frame size '%s' on line %d", p.operands[info.Regs], lineNo)
			}
			in.Frame = uint16(n)
		}
		if info.Imm {
			v, err := parseImmediate(p.operands[info.Regs], lineNo)
			if err != nil {
				return nil, err
			}
			in.Imm = v
		}

		sourceMap[uint32(len(program))] = lineNo
		program, err = in.Encode(program)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	return &Program{
		Code:      program,
		Symbols:   a.symbols,
		Labels:    a.labels,
		SourceMap: sourceMap,
	}, nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(normalizeInstructionText(line))
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}
	return p, nil
}

// parseSymbol reads ".FUNC name arity frame" or ".EXTERN name arity".
func parseSymbol(p parsedLine, lineNo int) (Symbol, error) {
	want := 3
	if p.mnemonic == ".EXTERN" {
		want = 2
	}
	if len(p.operands) != want {
		return Symbol{}, fmt.Errorf("%s expects %d operands on line %d", p.mnemonic, want, lineNo)
	}

	sym := Symbol{Name: p.operands[0]}
	if !isIdentifier(sym.Name) {
		return Symbol{}, fmt.Errorf("invalid symbol name '%s' on line %d", sym.Name, lineNo)
	}
	arity, err := strconv.Atoi(p.operands[1])
	if err != nil || arity < 0 {
		return Symbol{}, fmt.Errorf("invalid arity '%s' on line %d", p.operands[1], lineNo)
	}
	sym.Arity = arity
	if want == 3 {
		frame, err := strconv.Atoi(p.operands[2])
		if err != nil || frame < arity || frame > 0xFFFF {
			return Symbol{}, fmt.Errorf("invalid frame size '%s' on line %d", p.operands[2], lineNo)
		}
		sym.Frame = frame
	}
	return sym, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func normalizeInstructionText(line string) string {
	return strings.ReplaceAll(line, ",", " ")
}

func parseRegister(token string, lineNo int) (uint16, error) {
	if len(token) < 2 || (token[0] != 'R' && token[0] != 'r') {
		return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
	}
	n, err := strconv.ParseUint(token[1:], 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
	}
	return uint16(n), nil
}

func parseImmediate(token string, lineNo int) (float64, error) {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
	}
	return v, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return false
		}
	}
	return true
}
