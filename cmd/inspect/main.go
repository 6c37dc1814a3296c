package main

import (
	"fmt"
	"os"

	"bleurgh/pkg/asm"
	"bleurgh/pkg/compiler"
)

const testSource = `function square(x)
function bleurgh_main() { 4 * 4 + 4 }
function square(x) { 3 * 3 }
`

func main() {
	src := testSource
	file := "<builtin>"
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
		file = os.Args[1]
	}

	fmt.Printf("Source:\n%s\n", src)

	// Parse into expression trees first; this backend never fails on
	// anything the parser accepts.
	trees := compiler.NewTreeBackend()
	unit := compiler.NewUnit(trees)
	items, err := unit.ParseSource(file, src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}

	fmt.Printf("Items (%d)\n", len(items))
	for _, it := range items {
		fmt.Printf("  %d:%d  %-11s %s(%v)\n", it.Pos.Line, it.Pos.Column, it.Kind, it.Name, it.Params)
	}
	fmt.Println()

	fmt.Println("Scope")
	fmt.Print(unit.Scope())
	fmt.Println()

	fmt.Println("Expression trees")
	fmt.Print(trees)
	fmt.Println()

	// code Generation
	res, err := compiler.Compile(src, compiler.Options{File: file})
	if err != nil {
		fmt.Fprintln(os.Stderr, "compile error:", err)
		os.Exit(1)
	}

	fmt.Println("Generated Assembly")
	fmt.Print(res.Assembly)
	fmt.Println()

	fmt.Println("Symbols")
	for _, s := range res.Program.Symbols {
		fmt.Printf("  %-20s arity=%d frame=%d addr=%04X defined=%v\n", s.Name, s.Arity, s.Frame, s.Address, s.Defined)
	}
	fmt.Println()

	listing, err := asm.Listing(res.Program)
	if err != nil {
		fmt.Fprintln(os.Stderr, "disassembly error:", err)
		os.Exit(1)
	}
	fmt.Printf("Disassembly (%d bytes)\n", len(res.Program.Code))
	fmt.Print(listing)

	if v, err := compiler.Run(res.Program, compiler.EntryPoint, 0); err == nil {
		fmt.Printf("\nOutput: %.6g\n", v)
	}
}
