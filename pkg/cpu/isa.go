package cpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Opcodes. Every instruction is a one byte opcode followed by its operands:
// register numbers as little-endian uint16, ENTER's frame size as a
// little-endian uint16, and LDF's immediate as a little-endian IEEE-754
// float64.
const (
	OpHLT   byte = 0x00
	OpNOP   byte = 0x01
	OpENTER byte = 0x02 // ENTER n        grow the register frame to n
	OpLDF   byte = 0x03 // LDF rd, imm
	OpMOV   byte = 0x04 // MOV rd, rs
	OpFADD  byte = 0x05 // FADD rd, ra, rb
	OpFSUB  byte = 0x06
	OpFMUL  byte = 0x07
	OpFDIV  byte = 0x08
	OpRET   byte = 0x09 // RET rs
)

// OpInfo describes the operand layout of an opcode.
type OpInfo struct {
	Name  string
	Regs  int  // number of register operands
	Imm   bool // trailing float64 immediate
	Frame bool // single uint16 frame size operand
}

var opTable = map[byte]OpInfo{
	OpHLT:   {Name: "HLT"},
	OpNOP:   {Name: "NOP"},
	OpENTER: {Name: "ENTER", Frame: true},
	OpLDF:   {Name: "LDF", Regs: 1, Imm: true},
	OpMOV:   {Name: "MOV", Regs: 2},
	OpFADD:  {Name: "FADD", Regs: 3},
	OpFSUB:  {Name: "FSUB", Regs: 3},
	OpFMUL:  {Name: "FMUL", Regs: 3},
	OpFDIV:  {Name: "FDIV", Regs: 3},
	OpRET:   {Name: "RET", Regs: 1},
}

var opByName = func() map[string]byte {
	m := make(map[string]byte, len(opTable))
	for op, info := range opTable {
		m[info.Name] = op
	}
	return m
}()

// Info returns the layout of op.
func Info(op byte) (OpInfo, bool) {
	info, ok := opTable[op]
	return info, ok
}

// Lookup returns the opcode for an upper-case mnemonic.
func Lookup(mnemonic string) (byte, bool) {
	op, ok := opByName[mnemonic]
	return op, ok
}

// Length returns the encoded size of an instruction with opcode op.
func (info OpInfo) Length() int {
	n := 1 + 2*info.Regs
	if info.Imm {
		n += 8
	}
	if info.Frame {
		n += 2
	}
	return n
}

var (
	ErrBadOpcode   = errors.New("illegal opcode")
	ErrTruncated   = errors.New("truncated instruction")
	ErrBadRegister = errors.New("register outside frame")
	ErrPCRange     = errors.New("program counter out of range")
	ErrStepLimit   = errors.New("step limit exceeded")
	ErrNotCalled   = errors.New("no function has been called")
)

// Instruction is one decoded instruction.
type Instruction struct {
	Op    byte
	Regs  []uint16
	Imm   float64
	Frame uint16
}

// Encode appends the binary form of in to dst.
func (in Instruction) Encode(dst []byte) ([]byte, error) {
	info, ok := opTable[in.Op]
	if !ok {
		return dst, fmt.Errorf("%w: 0x%02X", ErrBadOpcode, in.Op)
	}
	if len(in.Regs) != info.Regs {
		return dst, fmt.Errorf("%s expects %d register operands, got %d", info.Name, info.Regs, len(in.Regs))
	}
	dst = append(dst, in.Op)
	for _, r := range in.Regs {
		dst = binary.LittleEndian.AppendUint16(dst, r)
	}
	if info.Frame {
		dst = binary.LittleEndian.AppendUint16(dst, in.Frame)
	}
	if info.Imm {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(in.Imm))
	}
	return dst, nil
}

// Decode reads the instruction starting at code[pc]. It returns the
// instruction and its encoded length.
func Decode(code []byte, pc uint32) (Instruction, int, error) {
	if uint64(pc) >= uint64(len(code)) {
		return Instruction{}, 0, fmt.Errorf("%w: 0x%04X", ErrPCRange, pc)
	}
	op := code[pc]
	info, ok := opTable[op]
	if !ok {
		return Instruction{}, 0, fmt.Errorf("%w: 0x%02X at 0x%04X", ErrBadOpcode, op, pc)
	}
	n := info.Length()
	if uint64(pc)+uint64(n) > uint64(len(code)) {
		return Instruction{}, 0, fmt.Errorf("%w: %s at 0x%04X", ErrTruncated, info.Name, pc)
	}

	in := Instruction{Op: op}
	p := pc + 1
	if info.Regs > 0 {
		in.Regs = make([]uint16, info.Regs)
		for i := range in.Regs {
			in.Regs[i] = binary.LittleEndian.Uint16(code[p:])
			p += 2
		}
	}
	if info.Frame {
		in.Frame = binary.LittleEndian.Uint16(code[p:])
		p += 2
	}
	if info.Imm {
		in.Imm = math.Float64frombits(binary.LittleEndian.Uint64(code[p:]))
	}
	return in, n, nil
}

// String renders in as assembly text accepted by the assembler.
func (in Instruction) String() string {
	info, ok := opTable[in.Op]
	if !ok {
		return fmt.Sprintf(".BYTE 0x%02X", in.Op)
	}
	var ops []string
	for _, r := range in.Regs {
		ops = append(ops, "R"+strconv.Itoa(int(r)))
	}
	if info.Frame {
		ops = append(ops, strconv.Itoa(int(in.Frame)))
	}
	if info.Imm {
		ops = append(ops, FormatFloat(in.Imm))
	}
	if len(ops) == 0 {
		return info.Name
	}
	return info.Name + " " + strings.Join(ops, ", ")
}

// FormatFloat prints v so that strconv.ParseFloat gives back the same bits.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
