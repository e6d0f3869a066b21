package asm

import (
	"errors"

	"github.com/ezrec/aqa32/isa"
	"github.com/ezrec/aqa32/translate"
)

var f = translate.From

var (
	ErrParse           = errors.New(f("parse"))
	ErrEquateSyntax    = errors.New(f(".equ syntax"))
	ErrEquateDuplicate = errors.New(f(".equ duplicated"))
	ErrLiteralOperands = errors.New(f("literal word takes no operands"))
)

// ErrParseNumber is a malformed integer literal.
type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

func (err ErrParseNumber) Is(target error) bool {
	return target == ErrParse
}

// ErrParseExpression is a $(...) expression that does not evaluate to an integer.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

func (err ErrParseExpression) Is(target error) bool {
	return target == ErrParse
}

// ErrLabelSyntax is a label declaration with an unusable name.
type ErrLabelSyntax string

func (err ErrLabelSyntax) Error() string {
	return f("'%v' is not a valid label", string(err))
}

func (err ErrLabelSyntax) Is(target error) bool {
	return target == ErrParse
}

// ErrOperandRange is a literal that does not fit in operand2.
type ErrOperandRange string

func (err ErrOperandRange) Error() string {
	return f("'%v' does not fit in 16 bits", string(err))
}

func (err ErrOperandRange) Is(target error) bool {
	return target == ErrParse
}

// ErrOpcodeUnknown is a line that is neither an instruction nor a literal.
type ErrOpcodeUnknown string

func (err ErrOpcodeUnknown) Error() string {
	return f("unknown opcode '%v'", string(err))
}

// ErrArity is an operand count that does not match the opcode.
type ErrArity struct {
	Opcode isa.Opcode
	Got    int
}

func (err ErrArity) Error() string {
	return f("%v takes %d operands, got %d: %v", err.Opcode.String(), err.Opcode.Shape().Arity(), err.Got, err.Opcode.Syntax())
}

// ErrOperandUnresolved is an operand that is not a register, label or literal.
type ErrOperandUnresolved string

func (err ErrOperandUnresolved) Error() string {
	return f("'%v' is not a register, label or number", string(err))
}

// ErrRegisterUnknown is an unrecognized register name.
type ErrRegisterUnknown string

func (err ErrRegisterUnknown) Error() string {
	return f("unknown register '%v'", string(err))
}

// ErrLabelDuplicate is a label declared twice.
type ErrLabelDuplicate struct {
	Label      string
	Index      int // Source line index of the second declaration.
	FirstIndex int // Source line index of the first declaration.
}

func (err ErrLabelDuplicate) Error() string {
	return f("label %v on line %d already defined on line %d", err.Label, err.Index+1, err.FirstIndex+1)
}

// ErrSyntax locates an assembly failure.
type ErrSyntax struct {
	Address int    // Word address the line contributes to, or -1 if unknown.
	Index   int    // Zero-based source line index.
	Line    string // Trimmed source text.
	Err     error
}

func (err ErrSyntax) Error() string {
	return f("line %d (address %d) '%v' %v", err.Index+1, err.Address, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}
