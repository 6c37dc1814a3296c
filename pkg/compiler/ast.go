package compiler

import (
	"fmt"
	"strings"

	"bleurgh/pkg/cpu"
)

//  Expression nodes

// Expr is implemented by every node of an expression tree.
type Expr interface {
	exprNode()
	String() string
}

// NumberLit is a floating point constant.
//
//	function f() { 2.5 }
//	               ^^^  NumberLit{Value: 2.5}
type NumberLit struct {
	Value float64
}

func (*NumberLit) exprNode()        {}
func (l *NumberLit) String() string { return cpu.FormatFloat(l.Value) }

// ParamRef is the value of a parameter, by position.
type ParamRef struct {
	Index int
}

func (*ParamRef) exprNode()        {}
func (p *ParamRef) String() string { return fmt.Sprintf("$%d", p.Index) }

// BinaryExpr represents Left Op Right.
//
//	1 + 2 * 3
//	  ^        BinaryExpr{Op: OpAdd, Left: 1, Right: BinaryExpr{OpMul, 2, 3}}
type BinaryExpr struct {
	Op    Op
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

//  Functions

// TreeFunction is a function held by a TreeBackend. Body is nil until a
// definition has been parsed.
type TreeFunction struct {
	name  string
	arity int
	Body  Expr

	building bool
}

func (f *TreeFunction) Name() string     { return f.name }
func (f *TreeFunction) Arity() int       { return f.arity }
func (f *TreeFunction) ReturnType() Type { return TypeDouble }

func (f *TreeFunction) ParamTypes() []Type {
	types := make([]Type, f.arity)
	for i := range types {
		types[i] = TypeDouble
	}
	return types
}

func (f *TreeFunction) HasBody() bool { return f.Body != nil }

func (f *TreeFunction) String() string {
	if f.Body == nil {
		return fmt.Sprintf("function %s/%d", f.name, f.arity)
	}
	return fmt.Sprintf("function %s/%d = %s", f.name, f.arity, f.Body)
}

// TreeBackend is a Backend that builds expression trees and evaluates them
// directly. Nothing is folded: 1 + 2 stays a BinaryExpr.
type TreeBackend struct {
	funcs  []*TreeFunction
	byName map[string]*TreeFunction
}

func NewTreeBackend() *TreeBackend {
	return &TreeBackend{byName: make(map[string]*TreeFunction)}
}

func (t *TreeBackend) DeclareFunction(name string, arity int) (Function, error) {
	if f, ok := t.byName[name]; ok {
		if f.arity != arity {
			return nil, fmt.Errorf("%w: %s/%d vs %s/%d", ErrArityConflict, name, f.arity, name, arity)
		}
		return f, nil
	}
	f := &TreeFunction{name: name, arity: arity}
	t.funcs = append(t.funcs, f)
	t.byName[name] = f
	return f, nil
}

func (t *TreeBackend) own(fn Function) (*TreeFunction, error) {
	f, ok := fn.(*TreeFunction)
	if !ok || t.byName[f.name] != f {
		return nil, ErrUnknownFunc
	}
	return f, nil
}

func (t *TreeBackend) BeginFunctionBody(fn Function) (Builder, error) {
	f, err := t.own(fn)
	if err != nil {
		return nil, err
	}
	if f.Body != nil || f.building {
		return nil, fmt.Errorf("%w: %s", ErrRedefinition, f.name)
	}
	f.building = true
	return &treeBuilder{fn: f}, nil
}

func (t *TreeBackend) ConstFloat(v float64) Value {
	return &NumberLit{Value: v}
}

func (t *TreeBackend) DiscardBody(fn Function) {
	if f, err := t.own(fn); err == nil {
		f.Body = nil
		f.building = false
	}
}

func (t *TreeBackend) Verify(fn Function) error {
	f, err := t.own(fn)
	if err != nil {
		return err
	}
	if f.Body == nil {
		return fmt.Errorf("function %s has no body", f.name)
	}
	return checkTree(f.Body, f.arity)
}

func checkTree(e Expr, arity int) error {
	switch n := e.(type) {
	case *NumberLit:
		return nil
	case *ParamRef:
		if n.Index < 0 || n.Index >= arity {
			return fmt.Errorf("%w: $%d", ErrParamOutOfRange, n.Index)
		}
		return nil
	case *BinaryExpr:
		if err := checkTree(n.Left, arity); err != nil {
			return err
		}
		return checkTree(n.Right, arity)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownValue, e)
	}
}

// Function returns the function declared under name.
func (t *TreeBackend) Function(name string) (*TreeFunction, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// Functions returns every declared function in declaration order.
func (t *TreeBackend) Functions() []*TreeFunction {
	return append([]*TreeFunction(nil), t.funcs...)
}

// Eval runs the function called name.
func (t *TreeBackend) Eval(name string, args ...float64) (float64, error) {
	f, ok := t.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFunc, name)
	}
	if f.Body == nil {
		return 0, fmt.Errorf("function %s has no body", name)
	}
	if len(args) != f.arity {
		return 0, fmt.Errorf("function %s takes %d arguments, got %d", name, f.arity, len(args))
	}
	return EvalExpr(f.Body, args...)
}

// EvalExpr evaluates e with args bound to the parameter positions.
func EvalExpr(e Expr, args ...float64) (float64, error) {
	switch n := e.(type) {
	case *NumberLit:
		return n.Value, nil
	case *ParamRef:
		if n.Index < 0 || n.Index >= len(args) {
			return 0, fmt.Errorf("%w: $%d", ErrParamOutOfRange, n.Index)
		}
		return args[n.Index], nil
	case *BinaryExpr:
		l, err := EvalExpr(n.Left, args...)
		if err != nil {
			return 0, err
		}
		r, err := EvalExpr(n.Right, args...)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case OpAdd:
			return l + r, nil
		case OpSub:
			return l - r, nil
		case OpMul:
			return l * r, nil
		case OpDiv:
			return l / r, nil
		}
		return 0, fmt.Errorf("%w: %d", ErrUnknownOp, n.Op)
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnknownValue, e)
	}
}

// String lists every function and its tree.
func (t *TreeBackend) String() string {
	var sb strings.Builder
	for _, f := range t.funcs {
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

type treeBuilder struct {
	fn *TreeFunction
}

func (b *treeBuilder) Param(i int) Value {
	if i < 0 || i >= b.fn.arity {
		return nil
	}
	return &ParamRef{Index: i}
}

func (b *treeBuilder) BinaryOp(op Op, lhs, rhs Value) (Value, error) {
	if !b.fn.building {
		return nil, ErrBodyFinished
	}
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOp, op)
	}
	l, ok := lhs.(Expr)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnknownValue, lhs)
	}
	r, ok := rhs.(Expr)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnknownValue, rhs)
	}
	return &BinaryExpr{Op: op, Left: l, Right: r}, nil
}

func (b *treeBuilder) SetReturn(v Value) error {
	if !b.fn.building {
		return ErrBodyFinished
	}
	e, ok := v.(Expr)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnknownValue, v)
	}
	b.fn.Body = e
	b.fn.building = false
	return nil
}
