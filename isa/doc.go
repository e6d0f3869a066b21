// Package isa defines the AQA32 instruction set shared by the assembler and
// the virtual machine.
//
// Every instruction is a single 32-bit word:
//
//	   31   27 26  23 22  19 18 16 15                0
//	  +-------+------+------+-----+-------------------+
//	  |opcode | rn   | rd   | am  |     operand2      |
//	  +-------+------+------+-----+-------------------+
//
// The opcode field indexes the fixed opcode table, rn and rd name registers,
// am selects the addressing mode of operand2 (direct register or immediate).
package isa
