package isa

import (
	"fmt"
	"iter"
	"maps"
)

// Word layout.
const (
	OPCODE_SHIFT = 27
	OPCODE_BITS  = 5
	RN_SHIFT     = 23
	RD_SHIFT     = 19
	REG_BITS     = 4
	MODE_SHIFT   = 16
	MODE_BITS    = 3
	OPERAND_BITS = 16

	OPERAND_MAX = (1 << OPERAND_BITS) - 1 // Largest encodable operand2.

	MEMORY_SIZE = 256 // Default memory size, in words.
)

// AddressMode selects how operand2 is interpreted.
type AddressMode int

const (
	MODE_DIRECT    = AddressMode(0) // operand2 is a register index.
	MODE_IMMEDIATE = AddressMode(1) // operand2 is a literal value.
)

// Valid returns true for the defined addressing modes.
func (am AddressMode) Valid() bool {
	return am == MODE_DIRECT || am == MODE_IMMEDIATE
}

// String returns the name of the addressing mode.
func (am AddressMode) String() string {
	switch am {
	case MODE_DIRECT:
		return "direct"
	case MODE_IMMEDIATE:
		return "immediate"
	}
	return fmt.Sprintf("AddressMode(%d)", int(am))
}

// Fields are the decoded fields of an instruction word.
type Fields struct {
	Opcode   Opcode
	Rn       Register
	Rd       Register
	Mode     AddressMode
	Operand2 uint16
}

// Word is a 32-bit memory word, holding either an instruction or data.
type Word uint32

func field(word Word, shift, bits int) uint32 {
	return (uint32(word) >> shift) & ((1 << bits) - 1)
}

// Encode packs the fields into an instruction word.
func Encode(f Fields) Word {
	return Word(f.Opcode.Code()<<OPCODE_SHIFT |
		(uint32(f.Rn)&((1<<REG_BITS)-1))<<RN_SHIFT |
		(uint32(f.Rd)&((1<<REG_BITS)-1))<<RD_SHIFT |
		(uint32(f.Mode)&((1<<MODE_BITS)-1))<<MODE_SHIFT |
		uint32(f.Operand2))
}

// Decode unpacks an instruction word.
// ok is false if the opcode field is outside of the opcode table.
func (word Word) Decode() (f Fields, ok bool) {
	f = Fields{
		Rn:       Register(field(word, RN_SHIFT, REG_BITS)),
		Rd:       Register(field(word, RD_SHIFT, REG_BITS)),
		Mode:     AddressMode(field(word, MODE_SHIFT, MODE_BITS)),
		Operand2: uint16(field(word, 0, OPERAND_BITS)),
	}
	f.Opcode, ok = OpcodeFromCode(field(word, OPCODE_SHIFT, OPCODE_BITS))
	return
}

// Valid returns true if every field is inside its defined range.
func (f Fields) Valid() bool {
	if !f.Opcode.Valid() || !f.Mode.Valid() || !f.Rn.Valid() || !f.Rd.Valid() {
		return false
	}
	return f.Mode != MODE_DIRECT || Register(f.Operand2).Valid()
}

// operand returns the assembly text of operand2.
func (f Fields) operand() string {
	if f.Mode == MODE_DIRECT {
		return Register(f.Operand2).String()
	}
	return fmt.Sprintf("#%d", f.Operand2)
}

// String disassembles the fields.
func (f Fields) String() string {
	if !f.Opcode.Valid() {
		return f.Opcode.String()
	}

	text := f.Opcode.String()
	for n, slot := range f.Opcode.Shape().Slots() {
		sep := ","
		if n == 0 {
			sep = ""
		}
		switch slot {
		case SLOT_RD:
			text += sep + " " + f.Rd.String()
		case SLOT_RN:
			text += sep + " " + f.Rn.String()
		case SLOT_OP2:
			text += sep + " " + f.operand()
		}
	}

	return text
}

// String disassembles the word. Words that do not decode are shown as data.
func (word Word) String() string {
	f, ok := word.Decode()
	if !ok || !f.Valid() {
		return fmt.Sprintf(".word 0x%08x", uint32(word))
	}
	return f.String()
}

var _isa_defines = map[string]string{
	"DEV_UINT":    fmt.Sprintf("%d", DEV_UINT),
	"DEV_CHAR":    fmt.Sprintf("%d", DEV_CHAR),
	"PC_INDEX":    fmt.Sprintf("%d", REG_PC),
	"MEMORY_SIZE": fmt.Sprintf("%d", MEMORY_SIZE),
}

// Defines returns the predefined assembler symbols of the instruction set.
func Defines() iter.Seq2[string, string] {
	return maps.All(_isa_defines)
}
