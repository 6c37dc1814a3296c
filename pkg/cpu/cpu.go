package cpu

import (
	"fmt"
	"io"
)

// DefaultMaxSteps bounds a single call when the caller does not choose a
// limit.
const DefaultMaxSteps = 1_000_000

// CPU is a register machine over float64. Code lives in its own read-only
// memory; the only data storage is the register frame of the function
// being executed.
type CPU struct {
	Memory []byte

	PC   uint32
	Regs []float64

	Halted bool
	// Result holds the operand of the RET that ended the last call.
	Result float64
	// Fault is set when execution stopped on an error instead of a RET or
	// HLT.
	Fault error

	Steps    int
	MaxSteps int

	// Trace, when set, receives one line per executed instruction.
	Trace io.Writer

	called bool
}

// NewCPU returns a halted CPU with no code loaded.
func NewCPU() *CPU {
	return &CPU{Halted: true, MaxSteps: DefaultMaxSteps}
}

// Load replaces the code memory and resets all execution state.
func (c *CPU) Load(code []byte) {
	c.Memory = append(c.Memory[:0], code...)
	c.Reset()
}

// Reset clears registers and flags but keeps the loaded code.
func (c *CPU) Reset() {
	c.PC = 0
	c.Regs = nil
	c.Halted = true
	c.Result = 0
	c.Fault = nil
	c.Steps = 0
	c.called = false
}

// Call prepares a call to the function at addr. Arguments land in R0..Rn-1;
// the function's ENTER grows the frame from there.
func (c *CPU) Call(addr uint32, args ...float64) {
	c.Reset()
	c.Regs = append(make([]float64, 0, len(args)), args...)
	c.PC = addr
	c.Halted = false
	c.called = true
}

func (c *CPU) fault(err error) {
	c.Fault = err
	c.Halted = true
}

func (c *CPU) reg(r uint16) (*float64, bool) {
	if int(r) >= len(c.Regs) {
		c.fault(fmt.Errorf("%w: R%d (frame size %d) at 0x%04X", ErrBadRegister, r, len(c.Regs), c.PC))
		return nil, false
	}
	return &c.Regs[r], true
}

// Step executes one instruction.
func (c *CPU) Step() {
	if c.Halted {
		return
	}
	if c.MaxSteps > 0 && c.Steps >= c.MaxSteps {
		c.fault(fmt.Errorf("%w: %d", ErrStepLimit, c.MaxSteps))
		return
	}

	in, n, err := Decode(c.Memory, c.PC)
	if err != nil {
		c.fault(err)
		return
	}
	if c.Trace != nil {
		fmt.Fprintf(c.Trace, "%04X  %s\n", c.PC, in)
	}
	c.Steps++
	c.PC += uint32(n)

	switch in.Op {
	case OpHLT:
		c.Halted = true

	case OpNOP:

	case OpENTER:
		if size := int(in.Frame); size > len(c.Regs) {
			c.Regs = append(c.Regs, make([]float64, size-len(c.Regs))...)
		}

	case OpLDF:
		if d, ok := c.reg(in.Regs[0]); ok {
			*d = in.Imm
		}

	case OpMOV:
		d, ok := c.reg(in.Regs[0])
		if !ok {
			return
		}
		s, ok := c.reg(in.Regs[1])
		if !ok {
			return
		}
		*d = *s

	case OpFADD, OpFSUB, OpFMUL, OpFDIV:
		d, ok := c.reg(in.Regs[0])
		if !ok {
			return
		}
		a, ok := c.reg(in.Regs[1])
		if !ok {
			return
		}
		b, ok := c.reg(in.Regs[2])
		if !ok {
			return
		}
		switch in.Op {
		case OpFADD:
			*d = *a + *b
		case OpFSUB:
			*d = *a - *b
		case OpFMUL:
			*d = *a * *b
		case OpFDIV:
			*d = *a / *b
		}

	case OpRET:
		if s, ok := c.reg(in.Regs[0]); ok {
			c.Result = *s
			c.Halted = true
		}
	}
}

func (c *CPU) Run() {
	for !c.Halted {
		c.Step()
	}
}

// RunUntilDone runs the pending call to completion and returns its result.
func (c *CPU) RunUntilDone() (float64, error) {
	if !c.called {
		return 0, ErrNotCalled
	}
	c.Run()
	if c.Fault != nil {
		return 0, c.Fault
	}
	return c.Result, nil
}

// Execute is Call followed by RunUntilDone.
func (c *CPU) Execute(addr uint32, args ...float64) (float64, error) {
	c.Call(addr, args...)
	return c.RunUntilDone()
}
