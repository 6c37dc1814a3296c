package compiler

import "errors"

// Value is an opaque handle produced by a Backend: a constant, the result of
// an arithmetic instruction, a parameter, or a Function. The parser only
// passes values back into the backend or stores them in a Scope.
type Value any

// Type is a scalar type known to a backend. The language has exactly one.
type Type int

const (
	TypeDouble Type = iota
)

func (t Type) String() string {
	switch t {
	case TypeDouble:
		return "double"
	default:
		return "unknown"
	}
}

// Op is a binary arithmetic operator.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
)

func (op Op) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return "?"
	}
}

// Function is a callable symbol registered with a backend.
type Function interface {
	Name() string
	Arity() int
	ReturnType() Type
	ParamTypes() []Type
	HasBody() bool
}

// Backend constructs code for the functions the parser discovers.
type Backend interface {
	// DeclareFunction registers name with a double return type and arity
	// double parameters. Declaring the same name again returns the same
	// function.
	DeclareFunction(name string, arity int) (Function, error)

	// BeginFunctionBody opens a builder for fn's body. It fails with
	// ErrRedefinition when fn already has one.
	BeginFunctionBody(fn Function) (Builder, error)

	ConstFloat(v float64) Value

	// DiscardBody drops whatever body construction was started for fn.
	DiscardBody(fn Function)

	// Verify runs a structural self-check over fn.
	Verify(fn Function) error
}

// Builder is the insertion context for one function body.
type Builder interface {
	Param(i int) Value
	BinaryOp(op Op, lhs, rhs Value) (Value, error)
	SetReturn(v Value) error
}

var (
	ErrRedefinition    = errors.New("redefining function")
	ErrUnknownValue    = errors.New("value does not belong to this backend")
	ErrUnknownOp       = errors.New("unexpected operator")
	ErrBodyFinished    = errors.New("function body already has a return value")
	ErrUnknownFunc     = errors.New("function does not belong to this backend")
	ErrArityConflict   = errors.New("function already declared with a different arity")
	ErrParamOutOfRange = errors.New("parameter index out of range")
)
