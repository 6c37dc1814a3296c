package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"bleurgh/pkg/asm"
	"bleurgh/pkg/compiler"
)

// session is one interactive compilation unit. Every submission is parsed
// into the same unit, so declarations made earlier are visible later.
type session struct {
	gen      *compiler.CodeGen
	unit     *compiler.Unit
	maxSteps int
	out      io.Writer
	count    int
	warned   int
}

func newSession(out io.Writer, logger *slog.Logger, maxSteps int) *session {
	gen := compiler.NewCodeGen()
	return &session{
		gen:      gen,
		unit:     compiler.NewUnit(gen, compiler.WithLogger(logger)),
		maxSteps: maxSteps,
		out:      out,
	}
}

// incomplete reports whether src stops in the middle of an item. The probe
// parses into a throwaway unit so the session is left untouched.
func incomplete(src string) bool {
	if strings.TrimSpace(src) == "" {
		return false
	}
	_, err := compiler.NewUnit(compiler.NewTreeBackend()).ParseSource("<probe>", src)
	return err != nil && compiler.IsIncomplete(err)
}

// eval parses src into the session. Each new zero-parameter definition is
// run immediately and its value printed.
func (s *session) eval(src string) error {
	s.count++
	items, err := s.unit.ParseSource(fmt.Sprintf("<input:%d>", s.count), src)
	warnings := s.unit.Warnings()
	for _, w := range warnings[s.warned:] {
		fmt.Fprintln(s.out, w)
	}
	s.warned = len(warnings)
	if err != nil {
		if len(items) > 0 {
			s.report(items, nil)
		}
		return err
	}

	prog, err := s.program()
	if err != nil {
		return err
	}
	s.report(items, prog)
	return nil
}

func (s *session) report(items []compiler.Item, prog *asm.Program) {
	for _, it := range items {
		if it.Kind == compiler.KindDeclaration {
			fmt.Fprintf(s.out, "declared %s/%d\n", it.Name, len(it.Params))
			continue
		}
		if len(it.Params) > 0 || prog == nil {
			fmt.Fprintf(s.out, "defined %s/%d\n", it.Name, len(it.Params))
			continue
		}
		v, err := compiler.Run(prog, it.Name, s.maxSteps)
		if err != nil {
			fmt.Fprintf(s.out, "%s: %v\n", it.Name, err)
			continue
		}
		fmt.Fprintf(s.out, "%s = %.6g\n", it.Name, v)
	}
}

func (s *session) program() (*asm.Program, error) {
	return asm.Assemble(s.gen.Generate())
}

// command runs a ":" command and reports whether the session should end.
func (s *session) command(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case ":quit", ":q":
		return true
	case ":symbols":
		s.printSymbols()
	case ":scope":
		fmt.Fprint(s.out, s.unit.Scope())
	case ":asm":
		fmt.Fprint(s.out, s.gen.Generate())
	case ":help":
		fmt.Fprintln(s.out, "commands: :symbols :scope :asm :quit")
	default:
		fmt.Fprintln(s.out, "unknown command. Type :help for a list.")
	}
	return false
}

func (s *session) printSymbols() {
	fns := s.gen.Functions()
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name() < fns[j].Name() })
	if len(fns) == 0 {
		fmt.Fprintln(s.out, "(no functions)")
		return
	}
	for _, fn := range fns {
		state := "declared"
		if fn.HasBody() {
			state = "defined"
		}
		fmt.Fprintf(s.out, "%-20s %d  %s\n", fn.Name(), fn.Arity(), state)
	}
}
