package compiler

import (
	"fmt"
	"strings"

	"bleurgh/pkg/cpu"
)

// CodeGen is a Backend that emits assembly text for the float VM.
//
// Every function gets its own register frame. Parameters arrive in
// R0..Rn-1 and each arithmetic result is written to a fresh register.
// Constants are not given registers up front: an LDF is emitted where a
// constant is first used as an operand.
type CodeGen struct {
	funcs  []*genFunc
	byName map[string]*genFunc
	out    strings.Builder
}

func NewCodeGen() *CodeGen {
	return &CodeGen{byName: make(map[string]*genFunc)}
}

type genFunc struct {
	name  string
	arity int
	body  *genBody
}

func (f *genFunc) Name() string     { return f.name }
func (f *genFunc) Arity() int       { return f.arity }
func (f *genFunc) ReturnType() Type { return TypeDouble }

func (f *genFunc) ParamTypes() []Type {
	types := make([]Type, f.arity)
	for i := range types {
		types[i] = TypeDouble
	}
	return types
}

func (f *genFunc) HasBody() bool { return f.body != nil && f.body.done }

func (f *genFunc) String() string { return describeValue(f) }

// genConst is a literal waiting to be materialised.
type genConst struct{ v float64 }

func (c genConst) String() string { return cpu.FormatFloat(c.v) }

// genReg is a register in one function's frame.
type genReg struct {
	body *genBody
	reg  int
}

func (r genReg) String() string { return fmt.Sprintf("R%d", r.reg) }

type genInstr struct {
	op   byte
	dst  int
	srcs []int
	imm  float64
}

type genBody struct {
	fn     *genFunc
	next   int
	code   []genInstr
	params []genReg
	done   bool
}

func (cg *CodeGen) DeclareFunction(name string, arity int) (Function, error) {
	if f, ok := cg.byName[name]; ok {
		if f.arity != arity {
			return nil, fmt.Errorf("%w: %s/%d vs %s/%d", ErrArityConflict, name, f.arity, name, arity)
		}
		return f, nil
	}
	f := &genFunc{name: name, arity: arity}
	cg.funcs = append(cg.funcs, f)
	cg.byName[name] = f
	return f, nil
}

func (cg *CodeGen) lookup(fn Function) (*genFunc, error) {
	f, ok := fn.(*genFunc)
	if !ok || cg.byName[f.name] != f {
		return nil, ErrUnknownFunc
	}
	return f, nil
}

func (cg *CodeGen) BeginFunctionBody(fn Function) (Builder, error) {
	f, err := cg.lookup(fn)
	if err != nil {
		return nil, err
	}
	if f.body != nil {
		return nil, fmt.Errorf("%w: %s", ErrRedefinition, f.name)
	}
	b := &genBody{fn: f, next: f.arity}
	for i := 0; i < f.arity; i++ {
		b.params = append(b.params, genReg{body: b, reg: i})
	}
	f.body = b
	return b, nil
}

func (cg *CodeGen) ConstFloat(v float64) Value {
	return genConst{v: v}
}

func (cg *CodeGen) DiscardBody(fn Function) {
	if f, err := cg.lookup(fn); err == nil {
		f.body = nil
	}
}

// Function returns the function declared under name.
func (cg *CodeGen) Function(name string) (Function, bool) {
	f, ok := cg.byName[name]
	if !ok {
		return nil, false
	}
	return f, true
}

// Functions returns every declared function in declaration order.
func (cg *CodeGen) Functions() []Function {
	out := make([]Function, len(cg.funcs))
	for i, f := range cg.funcs {
		out[i] = f
	}
	return out
}

func (b *genBody) Param(i int) Value {
	if i < 0 || i >= len(b.params) {
		return nil
	}
	return b.params[i]
}

func (b *genBody) alloc() int {
	r := b.next
	b.next++
	return r
}

// operand returns the register holding v, emitting an LDF for constants.
func (b *genBody) operand(v Value) (int, error) {
	switch x := v.(type) {
	case genConst:
		r := b.alloc()
		b.code = append(b.code, genInstr{op: cpu.OpLDF, dst: r, imm: x.v})
		return r, nil
	case genReg:
		if x.body != b {
			return 0, fmt.Errorf("%w: register from another function", ErrUnknownValue)
		}
		return x.reg, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnknownValue, v)
	}
}

var opcodes = map[Op]byte{
	OpAdd: cpu.OpFADD,
	OpSub: cpu.OpFSUB,
	OpMul: cpu.OpFMUL,
	OpDiv: cpu.OpFDIV,
}

func (b *genBody) BinaryOp(op Op, lhs, rhs Value) (Value, error) {
	if b.done {
		return nil, ErrBodyFinished
	}
	code, ok := opcodes[op]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOp, op)
	}
	a, err := b.operand(lhs)
	if err != nil {
		return nil, err
	}
	c, err := b.operand(rhs)
	if err != nil {
		return nil, err
	}
	d := b.alloc()
	b.code = append(b.code, genInstr{op: code, dst: d, srcs: []int{a, c}})
	return genReg{body: b, reg: d}, nil
}

func (b *genBody) SetReturn(v Value) error {
	if b.done {
		return ErrBodyFinished
	}
	r, err := b.operand(v)
	if err != nil {
		return err
	}
	b.code = append(b.code, genInstr{op: cpu.OpRET, dst: -1, srcs: []int{r}})
	b.done = true
	return nil
}

// Verify checks that fn's body ends in RET, that no register is read
// before it is written, and that every register fits in the frame.
func (cg *CodeGen) Verify(fn Function) error {
	f, err := cg.lookup(fn)
	if err != nil {
		return err
	}
	if f.body == nil || !f.body.done {
		return fmt.Errorf("function %s has no body", f.name)
	}
	b := f.body
	if len(b.code) == 0 || b.code[len(b.code)-1].op != cpu.OpRET {
		return fmt.Errorf("function %s does not end in RET", f.name)
	}

	written := make(map[int]bool)
	for i := 0; i < f.arity; i++ {
		written[i] = true
	}
	for i, in := range b.code {
		for _, s := range in.srcs {
			if s >= b.next {
				return fmt.Errorf("function %s: R%d outside frame of %d", f.name, s, b.next)
			}
			if !written[s] {
				return fmt.Errorf("function %s: R%d read before written at instruction %d", f.name, s, i)
			}
		}
		if in.dst >= 0 {
			if in.dst >= b.next {
				return fmt.Errorf("function %s: R%d outside frame of %d", f.name, in.dst, b.next)
			}
			written[in.dst] = true
		}
		if in.op == cpu.OpRET && i != len(b.code)-1 {
			return fmt.Errorf("function %s: RET before end of body", f.name)
		}
	}
	return nil
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

func (cg *CodeGen) comment(format string, args ...any) {
	cg.line("; "+format, args...)
}

// Generate renders every declared function as assembly. Functions without a
// body become .EXTERN entries.
func (cg *CodeGen) Generate() string {
	cg.out.Reset()
	for _, f := range cg.funcs {
		if !f.HasBody() {
			cg.line(".EXTERN %s %d", f.name, f.arity)
			continue
		}
		b := f.body
		cg.comment("%s", describeValue(f))
		cg.line(".FUNC %s %d %d", f.name, f.arity, b.next)
		cg.line("    ENTER %d", b.next)
		for _, in := range b.code {
			cg.line("    %s", in.text())
		}
		cg.line(".END")
	}
	return cg.out.String()
}

func (in genInstr) text() string {
	info, _ := cpu.Info(in.op)
	switch in.op {
	case cpu.OpLDF:
		return fmt.Sprintf("%s R%d, %s", info.Name, in.dst, cpu.FormatFloat(in.imm))
	case cpu.OpRET:
		return fmt.Sprintf("%s R%d", info.Name, in.srcs[0])
	default:
		return fmt.Sprintf("%s R%d, R%d, R%d", info.Name, in.dst, in.srcs[0], in.srcs[1])
	}
}
