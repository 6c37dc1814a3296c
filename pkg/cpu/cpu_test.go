package cpu

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

// loadProgram encodes ins back to back and loads them at address 0.
func loadProgram(t testing.TB, c *CPU, ins ...Instruction) {
	t.Helper()
	var code []byte
	for _, in := range ins {
		var err error
		code, err = in.Encode(code)
		if err != nil {
			t.Fatalf("Encode(%v): %v", in, err)
		}
	}
	c.Load(code)
}

func ldf(r uint16, v float64) Instruction { return Instruction{Op: OpLDF, Regs: []uint16{r}, Imm: v} }

func op3(op byte, d, a, b uint16) Instruction {
	return Instruction{Op: op, Regs: []uint16{d, a, b}}
}

func ret(r uint16) Instruction { return Instruction{Op: OpRET, Regs: []uint16{r}} }

func enter(n uint16) Instruction { return Instruction{Op: OpENTER, Frame: n} }

func TestALU(t *testing.T) {
	tests := []struct {
		op   byte
		a, b float64
		want float64
	}{
		{OpFADD, 10, 20, 30},
		{OpFSUB, 10, 25, -15},
		{OpFMUL, 1.5, 4, 6},
		{OpFDIV, 1, 4, 0.25},
	}
	for _, tc := range tests {
		c := NewCPU()
		loadProgram(t, c, enter(3), ldf(0, tc.a), ldf(1, tc.b), op3(tc.op, 2, 0, 1), ret(2))
		got, err := c.Execute(0)
		if err != nil {
			t.Fatalf("%s: %v", opTable[tc.op].Name, err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %g, got %g", opTable[tc.op].Name, tc.want, got)
		}
	}
}

func TestDivisionByZero(t *testing.T) {
	c := NewCPU()
	loadProgram(t, c, enter(3), ldf(0, 1), ldf(1, 0), op3(OpFDIV, 2, 0, 1), ret(2))
	got, err := c.Execute(0)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(got, 1) {
		t.Errorf("expected +Inf, got %g", got)
	}
}

func TestCallArguments(t *testing.T) {
	c := NewCPU()
	// f(a b) = a - b
	loadProgram(t, c, enter(3), op3(OpFSUB, 2, 0, 1), ret(2))
	got, err := c.Execute(0, 7, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("expected 5, got %g", got)
	}
	if len(c.Regs) != 3 || c.Regs[0] != 7 || c.Regs[1] != 2 {
		t.Errorf("unexpected frame %v", c.Regs)
	}
	if c.Steps != 3 {
		t.Errorf("expected 3 steps, got %d", c.Steps)
	}
}

func TestCallAtOffset(t *testing.T) {
	c := NewCPU()
	loadProgram(t, c,
		enter(1), ldf(0, 1), ret(0), // 0x00
		enter(1), ldf(0, 2), ret(0), // 0x11
	)
	got, err := c.Execute(0x11)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("expected 2, got %g", got)
	}
}

func TestMovAndNop(t *testing.T) {
	c := NewCPU()
	loadProgram(t, c, enter(2), Instruction{Op: OpNOP}, ldf(1, 9), Instruction{Op: OpMOV, Regs: []uint16{0, 1}}, ret(0))
	got, err := c.Execute(0)
	if err != nil || got != 9 {
		t.Errorf("expected 9, got %g, %v", got, err)
	}
}

func TestHLT(t *testing.T) {
	c := NewCPU()
	loadProgram(t, c, Instruction{Op: OpHLT}, ldf(0, 1))
	c.Call(0)
	c.Run()
	if !c.Halted || c.Fault != nil {
		t.Errorf("expected a clean halt, got halted=%v fault=%v", c.Halted, c.Fault)
	}
	if c.PC != 1 {
		t.Errorf("expected PC 1 after HLT, got %d", c.PC)
	}
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name string
		ins  []Instruction
		raw  []byte
		want error
	}{
		{name: "register outside frame", ins: []Instruction{enter(1), ldf(1, 0), ret(1)}, want: ErrBadRegister},
		{name: "no ENTER", ins: []Instruction{ret(0)}, want: ErrBadRegister},
		{name: "run off the end", ins: []Instruction{enter(1)}, want: ErrPCRange},
		{name: "illegal opcode", raw: []byte{0xEE}, want: ErrBadOpcode},
		{name: "truncated", raw: []byte{OpLDF, 0}, want: ErrTruncated},
	}
	for _, tc := range tests {
		c := NewCPU()
		if tc.raw != nil {
			c.Load(tc.raw)
		} else {
			loadProgram(t, c, tc.ins...)
		}
		_, err := c.Execute(0)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if !c.Halted || c.Fault == nil {
			t.Errorf("%s: expected a halted CPU with a fault", tc.name)
		}
	}
}

func TestStepLimit(t *testing.T) {
	c := NewCPU()
	c.MaxSteps = 3
	loadProgram(t, c, enter(1), Instruction{Op: OpNOP}, Instruction{Op: OpNOP}, Instruction{Op: OpNOP}, ldf(0, 1), ret(0))
	_, err := c.Execute(0)
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("expected ErrStepLimit, got %v", err)
	}
	if c.Steps != 3 {
		t.Errorf("expected 3 steps, got %d", c.Steps)
	}
}

func TestNotCalled(t *testing.T) {
	c := NewCPU()
	loadProgram(t, c, enter(1), ldf(0, 1), ret(0))
	if _, err := c.RunUntilDone(); !errors.Is(err, ErrNotCalled) {
		t.Errorf("expected ErrNotCalled, got %v", err)
	}
	c.Step()
	if c.Steps != 0 {
		t.Error("a halted CPU must not step")
	}
}

func TestResetKeepsCode(t *testing.T) {
	c := NewCPU()
	loadProgram(t, c, enter(1), ldf(0, 3), ret(0))
	if _, err := c.Execute(0); err != nil {
		t.Fatal(err)
	}
	n := len(c.Memory)
	c.Reset()
	if len(c.Memory) != n || c.Result != 0 || !c.Halted || c.Regs != nil {
		t.Errorf("unexpected state after reset: %+v", c)
	}
	if got, err := c.Execute(0); err != nil || got != 3 {
		t.Errorf("expected 3 after reset, got %g, %v", got, err)
	}
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	c := NewCPU()
	c.Trace = &buf
	loadProgram(t, c, enter(1), ldf(0, 2.5), ret(0))
	if _, err := c.Execute(0); err != nil {
		t.Fatal(err)
	}
	want := "0000  ENTER 1\n0003  LDF R0, 2.5\n000E  RET R0\n"
	if buf.String() != want {
		t.Errorf("expected trace:\n%s\ngot:\n%s", want, buf.String())
	}
	if strings.Count(buf.String(), "\n") != c.Steps {
		t.Error("expected one trace line per step")
	}
}
