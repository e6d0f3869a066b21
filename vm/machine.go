// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package vm implements the AQA32 virtual machine.
//
// The machine has thirteen general purpose registers (R0-R12), a program
// counter addressable as register 13 (PC), a flat word addressed memory, and
// a signed compare result consumed by the conditional branches.
package vm

import (
	"fmt"
	"log"
	"strconv"
	"unicode/utf8"

	"github.com/ezrec/aqa32/isa"
)

// Machine is the simulation context of a single AQA32 machine.
type Machine struct {
	Verbose bool // Set to enable verbose logging.

	Register [isa.REGISTER_COUNT]uint32 // Register file, PC included.
	Memory   []isa.Word                 // Word addressed memory.
	Cmp      int64                      // Result of the most recent CMP.
	Console  Console                    // INP and OUT device.

	Ticks int // Steps executed.

	halted bool
}

// NewMachine creates a machine with size words of memory.
// A size of zero selects the default memory size.
func NewMachine(size uint) (vm *Machine) {
	if size == 0 {
		size = isa.MEMORY_SIZE
	}

	vm = &Machine{
		Memory: make([]isa.Word, size),
	}

	return
}

// Load copies an image into memory, starting at address 0.
func (vm *Machine) Load(image []isa.Word) (err error) {
	if len(image) > len(vm.Memory) {
		err = ErrImageSize(len(image))
		return
	}

	copy(vm.Memory, image)

	if vm.Verbose {
		log.Printf("vm: loaded %d words", len(image))
	}

	return
}

// Halted returns true once HALT has executed.
func (vm *Machine) Halted() bool {
	return vm.halted
}

// Pc returns the address of the next word to fetch.
func (vm *Machine) Pc() uint32 {
	return vm.Register[isa.REG_PC]
}

// Output returns the output stream.
func (vm *Machine) Output() string {
	return vm.Console.Output()
}

// String returns the current machine state as a string.
func (vm *Machine) String() (text string) {
	for _, reg := range isa.Registers() {
		val := vm.Register[reg]
		text += fmt.Sprintf("% 4s: %04X_%04X\n", reg.String(), val>>16, val&0xffff)
	}
	text += fmt.Sprintf("% 4s: %d\n", "cmp", vm.Cmp)
	if vm.halted {
		text += "halted\n"
	}

	return
}

// Step performs a single fetch, decode and execute cycle.
//
// A failed step leaves the machine as it was before the step.
func (vm *Machine) Step() (err error) {
	if vm.halted {
		err = ErrHalted
		return
	}

	pc := vm.Register[isa.REG_PC]
	if pc >= uint32(len(vm.Memory)) {
		err = &ErrExecute{Address: pc, Err: ErrAddressRange{What: "memory", Index: pc}}
		return
	}

	word := vm.Memory[pc]

	defer func() {
		if err != nil {
			vm.Register[isa.REG_PC] = pc
			err = &ErrExecute{Address: pc, Word: word, Err: err}
		}
	}()

	if vm.Verbose {
		log.Printf("vm: %03x: %v", pc, word)
	}

	// PC is advanced before execution, so reads of PC see the next address.
	vm.Register[isa.REG_PC] = pc + 1

	fields, ok := word.Decode()
	if !ok {
		err = ErrOpcodeDecode
		return
	}

	op2, err := vm.resolve(fields)
	if err != nil {
		return
	}

	err = vm.execute(fields, op2)
	if err != nil {
		return
	}

	vm.Ticks++

	return
}

// resolve validates the registers used by the instruction, and returns the
// value of operand2 under its addressing mode.
func (vm *Machine) resolve(fields isa.Fields) (op2 uint32, err error) {
	for _, slot := range fields.Opcode.Shape().Slots() {
		switch slot {
		case isa.SLOT_RD:
			if !fields.Rd.Valid() {
				err = ErrAddressRange{What: "register", Index: uint32(fields.Rd)}
				return
			}
		case isa.SLOT_RN:
			if !fields.Rn.Valid() {
				err = ErrAddressRange{What: "register", Index: uint32(fields.Rn)}
				return
			}
		case isa.SLOT_OP2:
			switch fields.Mode {
			case isa.MODE_DIRECT:
				reg := isa.Register(fields.Operand2)
				if !reg.Valid() {
					err = ErrAddressRange{What: "register", Index: uint32(fields.Operand2)}
					return
				}
				op2 = vm.Register[reg]
			case isa.MODE_IMMEDIATE:
				op2 = uint32(fields.Operand2)
			default:
				err = ErrAddressMode
				return
			}
		}
	}

	return
}

// address checks that a memory address is in range.
func (vm *Machine) address(addr uint32) (err error) {
	if addr >= uint32(len(vm.Memory)) {
		err = ErrAddressRange{What: "memory", Index: addr}
	}
	return
}

// execute performs the decoded instruction.
func (vm *Machine) execute(fields isa.Fields, op2 uint32) (err error) {
	r := &vm.Register
	rd := fields.Rd
	rn := fields.Rn

	switch fields.Opcode {
	case isa.OP_LDR:
		err = vm.address(op2)
		if err != nil {
			return
		}
		r[rd] = uint32(vm.Memory[op2])
	case isa.OP_STR:
		err = vm.address(op2)
		if err != nil {
			return
		}
		vm.Memory[op2] = isa.Word(r[rd])
	case isa.OP_ADD:
		r[rd] = r[rn] + op2
	case isa.OP_SUB:
		r[rd] = r[rn] - op2
	case isa.OP_MOV:
		r[rd] = op2
	case isa.OP_CMP:
		vm.Cmp = int64(r[rn]) - int64(op2)
	case isa.OP_B:
		r[isa.REG_PC] = op2
	case isa.OP_BEQ:
		if vm.Cmp == 0 {
			r[isa.REG_PC] = op2
		}
	case isa.OP_BNE:
		if vm.Cmp != 0 {
			r[isa.REG_PC] = op2
		}
	case isa.OP_BGT:
		if vm.Cmp > 0 {
			r[isa.REG_PC] = op2
		}
	case isa.OP_BLT:
		if vm.Cmp < 0 {
			r[isa.REG_PC] = op2
		}
	case isa.OP_AND:
		r[rd] = r[rn] & op2
	case isa.OP_ORR:
		r[rd] = r[rn] | op2
	case isa.OP_EOR:
		r[rd] = r[rn] ^ op2
	case isa.OP_MVN:
		r[rd] = ^op2
	case isa.OP_LSL:
		r[rd] = r[rn] << op2
	case isa.OP_LSR:
		r[rd] = r[rn] >> op2
	case isa.OP_HALT:
		vm.halted = true
	case isa.OP_INP:
		_, err = vm.Console.ReadLine()
	case isa.OP_OUT:
		var text string
		switch isa.Device(op2) {
		case isa.DEV_UINT:
			text = strconv.FormatUint(uint64(r[rn]), 10)
		case isa.DEV_CHAR:
			if r[rn] > utf8.MaxRune || !utf8.ValidRune(rune(r[rn])) {
				err = ErrCharacterInvalid(r[rn])
				return
			}
			text = string(rune(r[rn]))
		default:
			err = ErrDeviceUnsupported(op2)
			return
		}
		err = vm.Console.Write(text)
	default:
		err = ErrOpcodeDecode
	}

	return
}
