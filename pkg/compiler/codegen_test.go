package compiler

import (
	"errors"
	"strings"
	"testing"

	"bleurgh/pkg/cpu"
)

func generate(t *testing.T, src string) (*CodeGen, string) {
	t.Helper()
	gen := NewCodeGen()
	u := NewUnit(gen)
	if _, err := u.ParseSource("gen.bl", src); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(u.Warnings()) != 0 {
		t.Fatalf("unexpected warnings: %v", u.Warnings())
	}
	return gen, gen.Generate()
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "constant",
			src:  "function k() { 7 }",
			want: `; function/0 (defined)
.FUNC k 0 1
    ENTER 1
    LDF R0, 7
    RET R0
.END
`,
		},
		{
			name: "precedence",
			src:  "function f() { 2 * 3 + 4 }",
			want: `; function/0 (defined)
.FUNC f 0 5
    ENTER 5
    LDF R0, 2
    LDF R1, 3
    FMUL R2, R0, R1
    LDF R3, 4
    FADD R4, R2, R3
    RET R4
.END
`,
		},
		{
			name: "parameters reserve the low registers",
			src:  "function p(a b) { 0.5 }",
			want: `; function/2 (defined)
.FUNC p 2 3
    ENTER 3
    LDF R2, 0.5
    RET R2
.END
`,
		},
		{
			name: "declaration only",
			src:  "function ext(x y z)",
			want: ".EXTERN ext 3\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := generate(t, tt.src)
			if got != tt.want {
				t.Errorf("expected:\n%s\ngot:\n%s", tt.want, got)
			}
		})
	}
}

func TestGenerateDoesNotFold(t *testing.T) {
	_, out := generate(t, "function f() { 1 + 2 }")
	if !strings.Contains(out, "FADD") {
		t.Errorf("expected the addition to survive, got:\n%s", out)
	}
	if strings.Contains(out, "LDF R0, 3") {
		t.Errorf("constants were folded:\n%s", out)
	}
}

func TestGenerateOrder(t *testing.T) {
	_, out := generate(t, "function a() function b() { 1 } function a() { 2 }")
	ia := strings.Index(out, ".FUNC a")
	ib := strings.Index(out, ".FUNC b")
	if ia < 0 || ib < 0 || ia > ib {
		t.Errorf("expected functions in declaration order, got:\n%s", out)
	}
}

func TestCodeGenDeclare(t *testing.T) {
	gen := NewCodeGen()
	f, err := gen.DeclareFunction("f", 2)
	if err != nil {
		t.Fatal(err)
	}
	again, err := gen.DeclareFunction("f", 2)
	if err != nil || again != f {
		t.Errorf("expected redeclaration to return the same function, got %v, %v", again, err)
	}
	if _, err := gen.DeclareFunction("f", 1); !errors.Is(err, ErrArityConflict) {
		t.Errorf("expected ErrArityConflict, got %v", err)
	}
	if got, ok := gen.Function("f"); !ok || got != f {
		t.Error("expected Function to find f")
	}
	if n := len(gen.Functions()); n != 1 {
		t.Errorf("expected 1 function, got %d", n)
	}
}

func TestCodeGenBuilderErrors(t *testing.T) {
	gen := NewCodeGen()
	f, _ := gen.DeclareFunction("f", 1)
	g, _ := gen.DeclareFunction("g", 1)

	b, err := gen.BeginFunctionBody(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gen.BeginFunctionBody(f); !errors.Is(err, ErrRedefinition) {
		t.Errorf("expected ErrRedefinition, got %v", err)
	}
	if err := gen.Verify(f); err == nil {
		t.Error("expected an unfinished body to fail verification")
	}

	gb, _ := gen.BeginFunctionBody(g)
	if _, err := b.BinaryOp(OpAdd, gb.Param(0), gen.ConstFloat(1)); !errors.Is(err, ErrUnknownValue) {
		t.Errorf("expected a foreign register to be rejected, got %v", err)
	}
	if _, err := b.BinaryOp(Op(99), b.Param(0), gen.ConstFloat(1)); !errors.Is(err, ErrUnknownOp) {
		t.Errorf("expected ErrUnknownOp, got %v", err)
	}
	if b.Param(1) != nil {
		t.Error("expected an out of range parameter to be nil")
	}

	sum, err := b.BinaryOp(OpAdd, b.Param(0), gen.ConstFloat(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.SetReturn(sum); err != nil {
		t.Fatal(err)
	}
	if err := gen.Verify(f); err != nil {
		t.Errorf("expected a valid body, got %v", err)
	}
	if _, err := b.BinaryOp(OpAdd, sum, sum); !errors.Is(err, ErrBodyFinished) {
		t.Errorf("expected ErrBodyFinished, got %v", err)
	}
	if err := b.SetReturn(sum); !errors.Is(err, ErrBodyFinished) {
		t.Errorf("expected ErrBodyFinished, got %v", err)
	}

	foreign, _ := NewTreeBackend().DeclareFunction("f", 1)
	if _, err := gen.BeginFunctionBody(foreign); !errors.Is(err, ErrUnknownFunc) {
		t.Error("expected a foreign function to be rejected")
	}
}

func TestCodeGenDiscardBody(t *testing.T) {
	gen := NewCodeGen()
	f, _ := gen.DeclareFunction("f", 0)
	if _, err := gen.BeginFunctionBody(f); err != nil {
		t.Fatal(err)
	}
	gen.DiscardBody(f)
	if f.HasBody() {
		t.Error("expected no body after discard")
	}
	if _, err := gen.BeginFunctionBody(f); err != nil {
		t.Errorf("expected a new body to be allowed after discard, got %v", err)
	}
}

func TestCodeGenVerify(t *testing.T) {
	gen := NewCodeGen()
	fn, _ := gen.DeclareFunction("f", 0)
	b, _ := gen.BeginFunctionBody(fn)
	if err := b.SetReturn(gen.ConstFloat(1)); err != nil {
		t.Fatal(err)
	}
	body := fn.(*genFunc).body

	tests := []struct {
		name string
		code []genInstr
		want string
	}{
		{
			name: "read before write",
			code: []genInstr{{op: cpu.OpRET, dst: -1, srcs: []int{0}}},
			want: "read before written",
		},
		{
			name: "missing RET",
			code: []genInstr{{op: cpu.OpLDF, dst: 0, imm: 1}},
			want: "does not end in RET",
		},
		{
			name: "early RET",
			code: []genInstr{
				{op: cpu.OpLDF, dst: 0, imm: 1},
				{op: cpu.OpRET, dst: -1, srcs: []int{0}},
				{op: cpu.OpRET, dst: -1, srcs: []int{0}},
			},
			want: "RET before end",
		},
		{
			name: "outside frame",
			code: []genInstr{
				{op: cpu.OpLDF, dst: 4, imm: 1},
				{op: cpu.OpRET, dst: -1, srcs: []int{4}},
			},
			want: "outside frame",
		},
	}
	for _, tt := range tests {
		body.code = tt.code
		err := gen.Verify(fn)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected error containing %q, got %v", tt.name, tt.want, err)
		}
	}
}
