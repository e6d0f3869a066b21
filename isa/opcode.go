// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package isa

import (
	"fmt"
	"strings"
)

// Opcode is an AQA32 operation.
type Opcode int

// The order of the opcodes is the wire format, and must never change.
const (
	OP_LDR  = Opcode(0)  // LDR
	OP_STR  = Opcode(1)  // STR
	OP_ADD  = Opcode(2)  // ADD
	OP_SUB  = Opcode(3)  // SUB
	OP_MOV  = Opcode(4)  // MOV
	OP_CMP  = Opcode(5)  // CMP
	OP_B    = Opcode(6)  // B
	OP_BEQ  = Opcode(7)  // BEQ
	OP_BNE  = Opcode(8)  // BNE
	OP_BGT  = Opcode(9)  // BGT
	OP_BLT  = Opcode(10) // BLT
	OP_AND  = Opcode(11) // AND
	OP_ORR  = Opcode(12) // ORR
	OP_EOR  = Opcode(13) // EOR
	OP_MVN  = Opcode(14) // MVN
	OP_LSL  = Opcode(15) // LSL
	OP_LSR  = Opcode(16) // LSR
	OP_HALT = Opcode(17) // HALT
	OP_INP  = Opcode(18) // INP
	OP_OUT  = Opcode(19) // OUT

	OPCODE_COUNT = 20 // Number of defined opcodes.
)

// Slot is an operand position in the assembly syntax of an opcode.
type Slot int

const (
	SLOT_RD  = Slot(0) // Destination register.
	SLOT_RN  = Slot(1) // Source register.
	SLOT_OP2 = Slot(2) // Operand2: register, label or literal.
)

// Shape is the fixed operand layout of an opcode.
type Shape int

const (
	SHAPE_NONE       = Shape(0)
	SHAPE_ADDRESS    = Shape(1) // <address>
	SHAPE_RD_ADDRESS = Shape(2) // Rd, <address>
	SHAPE_RN_ADDRESS = Shape(3) // Rn, <address>
	SHAPE_RD_OP2     = Shape(4) // Rd, <operand2>
	SHAPE_RD_RN_OP2  = Shape(5) // Rd, Rn, <operand2>
	SHAPE_RN_OP2     = Shape(6) // Rn, <operand2>
)

var shapeSlots = [...][]Slot{
	SHAPE_NONE:       nil,
	SHAPE_ADDRESS:    {SLOT_OP2},
	SHAPE_RD_ADDRESS: {SLOT_RD, SLOT_OP2},
	SHAPE_RN_ADDRESS: {SLOT_RN, SLOT_OP2},
	SHAPE_RD_OP2:     {SLOT_RD, SLOT_OP2},
	SHAPE_RD_RN_OP2:  {SLOT_RD, SLOT_RN, SLOT_OP2},
	SHAPE_RN_OP2:     {SLOT_RN, SLOT_OP2},
}

var shapeSyntax = [...]string{
	SHAPE_NONE:       "",
	SHAPE_ADDRESS:    "<address>",
	SHAPE_RD_ADDRESS: "Rd, <address>",
	SHAPE_RN_ADDRESS: "Rn, <address>",
	SHAPE_RD_OP2:     "Rd, <operand2>",
	SHAPE_RD_RN_OP2:  "Rd, Rn, <operand2>",
	SHAPE_RN_OP2:     "Rn, <operand2>",
}

// Slots returns the operand slots, in source order.
func (shape Shape) Slots() []Slot {
	return shapeSlots[shape]
}

// Arity returns the number of operands the shape takes.
func (shape Shape) Arity() int {
	return len(shapeSlots[shape])
}

// String returns the operand syntax of the shape.
func (shape Shape) String() string {
	return shapeSyntax[shape]
}

type opcodeInfo struct {
	name  string
	code  uint32
	shape Shape
}

// opcodeTable maps each Opcode to its mnemonic, 5-bit wire code and shape.
var opcodeTable = [OPCODE_COUNT]opcodeInfo{
	OP_LDR:  {"LDR", 0, SHAPE_RD_ADDRESS},
	OP_STR:  {"STR", 1, SHAPE_RD_ADDRESS},
	OP_ADD:  {"ADD", 2, SHAPE_RD_RN_OP2},
	OP_SUB:  {"SUB", 3, SHAPE_RD_RN_OP2},
	OP_MOV:  {"MOV", 4, SHAPE_RD_OP2},
	OP_CMP:  {"CMP", 5, SHAPE_RN_OP2},
	OP_B:    {"B", 6, SHAPE_ADDRESS},
	OP_BEQ:  {"BEQ", 7, SHAPE_ADDRESS},
	OP_BNE:  {"BNE", 8, SHAPE_ADDRESS},
	OP_BGT:  {"BGT", 9, SHAPE_ADDRESS},
	OP_BLT:  {"BLT", 10, SHAPE_ADDRESS},
	OP_AND:  {"AND", 11, SHAPE_RD_RN_OP2},
	OP_ORR:  {"ORR", 12, SHAPE_RD_RN_OP2},
	OP_EOR:  {"EOR", 13, SHAPE_RD_RN_OP2},
	OP_MVN:  {"MVN", 14, SHAPE_RD_OP2},
	OP_LSL:  {"LSL", 15, SHAPE_RD_RN_OP2},
	OP_LSR:  {"LSR", 16, SHAPE_RD_RN_OP2},
	OP_HALT: {"HALT", 17, SHAPE_NONE},
	OP_INP:  {"INP", 18, SHAPE_RN_ADDRESS},
	OP_OUT:  {"OUT", 19, SHAPE_RN_ADDRESS},
}

var (
	opcodeByCode [1 << OPCODE_BITS]Opcode
	opcodeByName = make(map[string]Opcode, OPCODE_COUNT)
)

func init() {
	for n := range opcodeByCode {
		opcodeByCode[n] = -1
	}

	for n, info := range opcodeTable {
		op := Opcode(n)
		if info.code >= (1 << OPCODE_BITS) {
			panic(fmt.Sprintf("isa: opcode %v code %d exceeds %d bits", info.name, info.code, OPCODE_BITS))
		}
		if prior := opcodeByCode[info.code]; prior >= 0 {
			panic(fmt.Sprintf("isa: opcode %v shares code %d with %v", info.name, info.code, prior))
		}
		if _, ok := opcodeByName[info.name]; ok {
			panic(fmt.Sprintf("isa: opcode %v duplicated", info.name))
		}
		opcodeByCode[info.code] = op
		opcodeByName[info.name] = op
	}
}

// Valid returns true if the opcode is part of the instruction set.
func (op Opcode) Valid() bool {
	return op >= 0 && op < OPCODE_COUNT
}

// Code returns the 5-bit wire encoding of the opcode.
func (op Opcode) Code() uint32 {
	return opcodeTable[op].code
}

// Shape returns the operand layout of the opcode.
func (op Opcode) Shape() Shape {
	return opcodeTable[op].shape
}

// String returns the mnemonic of the opcode.
func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("Opcode(%d)", int(op))
	}
	return opcodeTable[op].name
}

// Syntax returns the full assembly syntax of the opcode, ie "ADD Rd, Rn, <operand2>".
func (op Opcode) Syntax() string {
	return strings.TrimSpace(op.String() + " " + op.Shape().String())
}

// OpcodeFromCode returns the opcode for a 5-bit wire code.
func OpcodeFromCode(code uint32) (op Opcode, ok bool) {
	if code >= uint32(len(opcodeByCode)) {
		return
	}
	op = opcodeByCode[code]
	ok = op >= 0
	return
}

// ParseOpcode looks up a mnemonic, ignoring case.
func ParseOpcode(name string) (op Opcode, ok bool) {
	op, ok = opcodeByName[strings.ToUpper(name)]
	return
}
