package isa

import (
	"fmt"
	"strconv"
	"strings"
)

// Register is an index into the register file.
type Register int

const (
	REG_R0  = Register(0)
	REG_R1  = Register(1)
	REG_R2  = Register(2)
	REG_R3  = Register(3)
	REG_R4  = Register(4)
	REG_R5  = Register(5)
	REG_R6  = Register(6)
	REG_R7  = Register(7)
	REG_R8  = Register(8)
	REG_R9  = Register(9)
	REG_R10 = Register(10)
	REG_R11 = Register(11)
	REG_R12 = Register(12)
	REG_PC  = Register(13) // Program counter, addressable as an ordinary register.

	REGISTER_COUNT = 14 // Size of the register file.
)

// Valid returns true if the register is in the register file.
func (reg Register) Valid() bool {
	return reg >= 0 && reg < REGISTER_COUNT
}

// String returns the assembly name of the register.
func (reg Register) String() string {
	switch {
	case reg == REG_PC:
		return "PC"
	case reg.Valid():
		return fmt.Sprintf("R%d", int(reg))
	default:
		return fmt.Sprintf("Register(%d)", int(reg))
	}
}

// Registers returns all registers, in index order.
func Registers() (regs []Register) {
	for n := range REGISTER_COUNT {
		regs = append(regs, Register(n))
	}
	return
}

// ParseRegister decodes a register name, ignoring case.
//
// If the name has register syntax ('R' followed by decimal digits) but is
// outside of the register file, known is true and ok is false.
func ParseRegister(name string) (reg Register, ok bool, known bool) {
	upper := strings.ToUpper(name)
	if upper == "PC" {
		return REG_PC, true, true
	}

	if len(upper) < 2 || upper[0] != 'R' {
		return
	}

	digits := upper[1:]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return
		}
	}

	known = true
	index, err := strconv.Atoi(digits)
	if err != nil || index >= int(REG_PC) {
		return
	}

	reg = Register(index)
	ok = true
	return
}
