package main

import (
	"fmt"

	"bleurgh/pkg/asm"
	"bleurgh/pkg/cpu"
)

// viewer steps one function of a program on the VM and keeps the
// disassembly needed to show where it is.
type viewer struct {
	prog  *asm.Program
	entry asm.Symbol
	lines []asm.Line
	vm    *cpu.CPU
}

func newViewer(prog *asm.Program, entry string, maxSteps int) (*viewer, error) {
	sym, ok := prog.Lookup(entry)
	if !ok {
		return nil, fmt.Errorf("entry point %q not found", entry)
	}
	if !sym.Defined {
		return nil, fmt.Errorf("entry point %q has no body", entry)
	}
	if sym.Arity != 0 {
		return nil, fmt.Errorf("entry point %q takes %d parameters", entry, sym.Arity)
	}
	lines, err := asm.Disassemble(prog.Code)
	if err != nil {
		return nil, err
	}

	vm := cpu.NewCPU()
	if maxSteps > 0 {
		vm.MaxSteps = maxSteps
	}
	vm.Load(prog.Code)

	v := &viewer{prog: prog, entry: sym, lines: lines, vm: vm}
	v.reset()
	return v, nil
}

func (v *viewer) reset() {
	v.vm.Call(v.entry.Address)
}

func (v *viewer) step() {
	v.vm.Step()
}

func (v *viewer) runToEnd() {
	v.vm.Run()
}

// currentLine is the index into lines of the next instruction, or -1.
func (v *viewer) currentLine() int {
	for i, l := range v.lines {
		if l.Address == v.vm.PC {
			return i
		}
	}
	return -1
}

// symbolAt returns the function starting at addr.
func (v *viewer) symbolAt(addr uint32) (asm.Symbol, bool) {
	for _, s := range v.prog.Symbols {
		if s.Defined && s.Address == addr {
			return s, true
		}
	}
	return asm.Symbol{}, false
}

func (v *viewer) status() string {
	switch {
	case v.vm.Fault != nil:
		return fmt.Sprintf("fault: %v", v.vm.Fault)
	case v.vm.Halted:
		return fmt.Sprintf("Output: %.6g  (%d steps)", v.vm.Result, v.vm.Steps)
	default:
		return fmt.Sprintf("running %s  pc=%04X  steps=%d", v.entry.Name, v.vm.PC, v.vm.Steps)
	}
}
