// Package compiler is the bleurgh front end: a scannerless backtracking
// parser for function declarations and arithmetic bodies, the scope table
// that reconciles declarations with definitions, and two backends.
//
// Pipeline: source → Unit.Parse (Backend calls) → CodeGen.Generate → float VM
// assembly text → asm.Assemble
package compiler
