package compiler

import (
	"errors"
	"fmt"
	"log/slog"

	"bleurgh/pkg/asm"
	"bleurgh/pkg/cpu"
)

var (
	ErrNoEntryPoint     = errors.New("entry point not found")
	ErrEntryNotDefined  = errors.New("entry point has no body")
	ErrEntryPointParams = errors.New("entry point must take no parameters")
)

// Options controls a Compile call.
type Options struct {
	// File labels diagnostics.
	File   string
	Logger *slog.Logger
}

// Result is everything one compile produced.
type Result struct {
	Unit     *Unit
	Items    []Item
	Assembly string
	Program  *asm.Program
	Warnings []*Diagnostic
}

// Compile parses src with the assembly backend and assembles the output.
// Parse failures are returned as *Diagnostic, unwrapped, together with a
// partial Result.
func Compile(src string, opts Options) (*Result, error) {
	gen := NewCodeGen()
	unit := NewUnit(gen, WithLogger(opts.Logger))
	res := &Result{Unit: unit}

	items, err := unit.ParseSource(opts.File, src)
	res.Items = items
	res.Warnings = unit.Warnings()
	if err != nil {
		return res, err
	}

	res.Assembly = gen.Generate()
	prog, err := asm.Assemble(res.Assembly)
	if err != nil {
		return res, fmt.Errorf("assembly error: %w", err)
	}
	res.Program = prog
	return res, nil
}

// Run executes the zero-parameter function entry of prog on a fresh CPU.
// maxSteps <= 0 keeps the CPU default.
func Run(prog *asm.Program, entry string, maxSteps int) (float64, error) {
	sym, ok := prog.Lookup(entry)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoEntryPoint, entry)
	}
	if !sym.Defined {
		return 0, fmt.Errorf("%w: %s", ErrEntryNotDefined, entry)
	}
	if sym.Arity != 0 {
		return 0, fmt.Errorf("%w: %s takes %d", ErrEntryPointParams, entry, sym.Arity)
	}

	c := cpu.NewCPU()
	if maxSteps > 0 {
		c.MaxSteps = maxSteps
	}
	c.Load(prog.Code)
	v, err := c.Execute(sym.Address)
	if err != nil {
		return 0, fmt.Errorf("running %s: %w", entry, err)
	}
	return v, nil
}
