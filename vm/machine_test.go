package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/aqa32/isa"
)

func imm(op isa.Opcode, rd, rn isa.Register, value uint16) isa.Word {
	return isa.Encode(isa.Fields{Opcode: op, Rd: rd, Rn: rn, Mode: isa.MODE_IMMEDIATE, Operand2: value})
}

func reg(op isa.Opcode, rd, rn, src isa.Register) isa.Word {
	return isa.Encode(isa.Fields{Opcode: op, Rd: rd, Rn: rn, Mode: isa.MODE_DIRECT, Operand2: uint16(src)})
}

var halt = isa.Encode(isa.Fields{Opcode: isa.OP_HALT})

func load(t *testing.T, image ...isa.Word) (vm *Machine) {
	vm = NewMachine(0)
	err := vm.Load(image)
	if err != nil {
		t.Fatal(err)
	}
	return
}

func run(t *testing.T, vm *Machine, limit int) {
	for range limit {
		if vm.Halted() {
			return
		}
		err := vm.Step()
		if err != nil {
			t.Log(vm.String())
			t.Fatal(err)
		}
	}
	t.Fatalf("not halted after %d steps", limit)
}

func TestMachine(t *testing.T) {
	assert := assert.New(t)

	vm := NewMachine(0)
	assert.Len(vm.Memory, isa.MEMORY_SIZE)
	assert.False(vm.Halted())
	assert.Equal(uint32(0), vm.Pc())
	assert.Equal("", vm.Output())

	vm = NewMachine(16)
	assert.Len(vm.Memory, 16)
}

func TestMachineAdd(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		imm(isa.OP_MOV, isa.REG_R0, 0, 5),
		imm(isa.OP_MOV, isa.REG_R1, 0, 6),
		reg(isa.OP_ADD, isa.REG_R2, isa.REG_R0, isa.REG_R1),
		halt,
	)

	for range 4 {
		assert.False(vm.Halted())
		assert.NoError(vm.Step())
	}

	assert.True(vm.Halted())
	assert.Equal(uint32(11), vm.Register[isa.REG_R2])
	assert.Equal(uint32(4), vm.Pc())
	assert.Equal(4, vm.Ticks)

	// No further mutation after HALT.
	registers := vm.Register
	err := vm.Step()
	assert.ErrorIs(err, ErrHalted)
	assert.Equal(registers, vm.Register)
	assert.Equal(4, vm.Ticks)
}

func TestMachineMemory(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		imm(isa.OP_MOV, isa.REG_R0, 0, 0x30),
		imm(isa.OP_STR, isa.REG_R0, 0, 10),
		imm(isa.OP_LDR, isa.REG_R3, 0, 10),
		imm(isa.OP_MOV, isa.REG_R4, 0, 11),
		reg(isa.OP_STR, isa.REG_R3, 0, isa.REG_R4), // memory[R4] = R3
		halt,
	)

	run(t, vm, 10)

	assert.Equal(uint32(0x30), vm.Register[isa.REG_R3])
	assert.Equal(isa.Word(0x30), vm.Memory[10])
	assert.Equal(isa.Word(0x30), vm.Memory[11])
}

func TestMachineAlu(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		op     isa.Opcode
		input  uint32
		value  uint32
		output uint32
	}){
		{"add", isa.OP_ADD, 3, 4, 7},
		{"add_wrap", isa.OP_ADD, 0xffffffff, 1, 0},
		{"sub", isa.OP_SUB, 10, 3, 7},
		{"sub_wrap", isa.OP_SUB, 0, 1, 0xffffffff},
		{"and", isa.OP_AND, 0b1100, 0b1010, 0b1000},
		{"orr", isa.OP_ORR, 0b1100, 0b1010, 0b1110},
		{"eor", isa.OP_EOR, 0b1100, 0b1010, 0b0110},
		{"lsl", isa.OP_LSL, 0x80000001, 1, 0x2},
		{"lsl_wide", isa.OP_LSL, 1, 32, 0},
		{"lsr", isa.OP_LSR, 0x80000000, 31, 1},
		{"mov", isa.OP_MOV, 0, 0x1234, 0x1234},
		{"mvn", isa.OP_MVN, 0, 0, 0xffffffff},
		{"mvn_value", isa.OP_MVN, 0, 0x0f0f, 0xfffff0f0},
	}

	for _, entry := range table {
		// Operand2 from a register.
		vm := load(t,
			reg(entry.op, isa.REG_R2, isa.REG_R0, isa.REG_R1),
			halt,
		)
		vm.Register[isa.REG_R0] = entry.input
		vm.Register[isa.REG_R1] = entry.value
		run(t, vm, 2)
		assert.Equal(entry.output, vm.Register[isa.REG_R2], entry.name)

		// Operand2 as an immediate.
		if entry.value > isa.OPERAND_MAX {
			continue
		}
		vm = load(t,
			imm(entry.op, isa.REG_R2, isa.REG_R0, uint16(entry.value)),
			halt,
		)
		vm.Register[isa.REG_R0] = entry.input
		run(t, vm, 2)
		assert.Equal(entry.output, vm.Register[isa.REG_R2], entry.name)
	}
}

func TestMachineBranch(t *testing.T) {
	assert := assert.New(t)

	const target = 10

	table := [](struct {
		a, b uint32
		cmp  int64
	}){
		{5, 5, 0},
		{6, 5, 1},
		{5, 6, -1},
		{0, 1, -1},
		{0xffffffff, 1, 0xfffffffe},
		{1, 0xffff, -0xfffe},
	}

	conds := map[isa.Opcode]func(cmp int64) bool{
		isa.OP_BEQ: func(cmp int64) bool { return cmp == 0 },
		isa.OP_BNE: func(cmp int64) bool { return cmp != 0 },
		isa.OP_BGT: func(cmp int64) bool { return cmp > 0 },
		isa.OP_BLT: func(cmp int64) bool { return cmp < 0 },
		isa.OP_B:   func(cmp int64) bool { return true },
	}

	for _, entry := range table {
		for op, taken := range conds {
			vm := load(t,
				reg(isa.OP_CMP, 0, isa.REG_R0, isa.REG_R1),
				imm(op, 0, 0, target),
			)
			vm.Register[isa.REG_R0] = entry.a
			vm.Register[isa.REG_R1] = entry.b

			assert.NoError(vm.Step())
			assert.Equal(entry.cmp, vm.Cmp, "%v %+v", op, entry)
			assert.NoError(vm.Step())

			expected := uint32(2)
			if taken(entry.cmp) {
				expected = target
			}
			assert.Equal(expected, vm.Pc(), "%v %+v", op, entry)
		}
	}
}

func TestMachineProgramCounter(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		reg(isa.OP_MOV, isa.REG_R6, 0, isa.REG_PC), // R6 = 1
		imm(isa.OP_ADD, isa.REG_R3, isa.REG_PC, 2), // R3 = 2 + 2
		reg(isa.OP_MOV, isa.REG_PC, 0, isa.REG_R3), // jump to 4
		imm(isa.OP_MOV, isa.REG_R0, 0, 0xbad),      // skipped
		imm(isa.OP_MOV, isa.REG_R1, 0, 0x600d),     // 4
		reg(isa.OP_B, 0, 0, isa.REG_R6),            // back to 1
		halt,
	)

	for range 4 {
		assert.NoError(vm.Step())
	}

	assert.Equal(uint32(1), vm.Register[isa.REG_R6])
	assert.Equal(uint32(4), vm.Register[isa.REG_R3])
	assert.Equal(uint32(0), vm.Register[isa.REG_R0])
	assert.Equal(uint32(0x600d), vm.Register[isa.REG_R1])
	assert.Equal(uint32(5), vm.Pc())

	assert.NoError(vm.Step())
	assert.Equal(uint32(1), vm.Pc())
}

func TestMachineOut(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		imm(isa.OP_MOV, isa.REG_R4, 0, 1234),
		imm(isa.OP_OUT, 0, isa.REG_R4, uint16(isa.DEV_UINT)),
		imm(isa.OP_MOV, isa.REG_R9, 0, '*'),
		imm(isa.OP_OUT, 0, isa.REG_R9, uint16(isa.DEV_CHAR)),
		imm(isa.OP_MOV, isa.REG_R8, 0, uint16(isa.DEV_UINT)),
		reg(isa.OP_OUT, 0, isa.REG_R4, isa.REG_R8),
		halt,
	)
	echo := &bytes.Buffer{}
	vm.Console.Echo = echo

	run(t, vm, 10)

	assert.Equal("1234*1234", vm.Output())
	assert.Equal("1234*1234", echo.String())
}

func TestMachineErrDevice(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		imm(isa.OP_OUT, 0, isa.REG_R0, 5),
	)

	err := vm.Step()
	assert.ErrorIs(err, ErrDeviceUnsupported(5))
	assert.Equal("", vm.Output())
	assert.Equal(uint32(0), vm.Pc())
	assert.Equal(0, vm.Ticks)

	var ee *ErrExecute
	assert.True(errors.As(err, &ee))
	assert.Equal(uint32(0), ee.Address)
	assert.Equal(vm.Memory[0], ee.Word)
}

func TestMachineErrCharacter(t *testing.T) {
	assert := assert.New(t)

	for _, value := range []uint32{0xffff0000, 0x110000, 0xd800, 0xdfff} {
		vm := load(t,
			imm(isa.OP_OUT, 0, isa.REG_R0, uint16(isa.DEV_CHAR)),
		)
		vm.Register[isa.REG_R0] = value

		err := vm.Step()
		assert.ErrorIs(err, ErrCharacterInvalid(value), "%#x", value)
		assert.Equal("", vm.Output())
		assert.Equal(uint32(0), vm.Pc())
	}

	vm := load(t,
		imm(isa.OP_OUT, 0, isa.REG_R0, uint16(isa.DEV_CHAR)),
		halt,
	)
	vm.Register[isa.REG_R0] = 0x10ffff
	run(t, vm, 2)
	assert.Equal("\U0010ffff", vm.Output())
}

func TestMachineInp(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		imm(isa.OP_INP, 0, isa.REG_R0, 0),
		imm(isa.OP_INP, 0, isa.REG_R0, 0),
		imm(isa.OP_INP, 0, isa.REG_R0, 0),
		halt,
	)
	vm.Register[isa.REG_R0] = 0x77
	vm.Console.Input = strings.NewReader("first\nsecond")

	assert.NoError(vm.Step())
	assert.NoError(vm.Step())
	assert.Equal(uint32(0x77), vm.Register[isa.REG_R0])

	err := vm.Step()
	assert.ErrorIs(err, ErrInput)
	assert.Equal(uint32(2), vm.Pc())

	vm = load(t, imm(isa.OP_INP, 0, isa.REG_R0, 0))
	assert.ErrorIs(vm.Step(), ErrInput)
}

func TestMachineErr(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		word isa.Word
		err  error
	}){
		{"decode", 0xffffffff, ErrOpcodeDecode},
		{"ldr_range", imm(isa.OP_LDR, isa.REG_R0, 0, 300), ErrAddressRange{What: "memory", Index: 300}},
		{"str_range", imm(isa.OP_STR, isa.REG_R0, 0, 256), ErrAddressRange{What: "memory", Index: 256}},
		{"rd_range", imm(isa.OP_MOV, 14, 0, 1), ErrAddressRange{What: "register", Index: 14}},
		{"rn_range", imm(isa.OP_CMP, 0, 15, 1), ErrAddressRange{What: "register", Index: 15}},
		{"op2_range", isa.Encode(isa.Fields{Opcode: isa.OP_MOV, Mode: isa.MODE_DIRECT, Operand2: 20}), ErrAddressRange{What: "register", Index: 20}},
		{"mode", isa.Encode(isa.Fields{Opcode: isa.OP_MOV, Mode: 2, Operand2: 1}), ErrAddressMode},
	}

	for _, entry := range table {
		vm := load(t, entry.word)
		err := vm.Step()
		assert.ErrorIs(err, entry.err, entry.name)
		assert.Equal(uint32(0), vm.Pc(), entry.name)
	}

	// Unused register fields are not checked.
	vm := load(t, isa.Encode(isa.Fields{Opcode: isa.OP_HALT, Rd: 15, Rn: 15, Mode: 7}))
	assert.NoError(vm.Step())
	assert.True(vm.Halted())

	// Running off the end of memory.
	vm = NewMachine(1)
	assert.NoError(vm.Load([]isa.Word{imm(isa.OP_MOV, isa.REG_R0, 0, 1)}))
	assert.NoError(vm.Step())
	assert.ErrorIs(vm.Step(), ErrAddressRange{What: "memory", Index: 1})
}

func TestMachineLoad(t *testing.T) {
	assert := assert.New(t)

	vm := NewMachine(2)
	err := vm.Load([]isa.Word{1, 2, 3})
	assert.ErrorIs(err, ErrImageSize(3))
	assert.Equal([]isa.Word{0, 0}, vm.Memory)

	assert.NoError(vm.Load([]isa.Word{7}))
	assert.Equal([]isa.Word{7, 0}, vm.Memory)
}

func TestMachineString(t *testing.T) {
	assert := assert.New(t)

	vm := load(t, halt)
	vm.Register[isa.REG_R1] = 0x12345678
	assert.NoError(vm.Step())

	text := vm.String()
	assert.Contains(text, "  R1: 1234_5678\n")
	assert.Contains(text, "  PC: 0000_0001\n")
	assert.Contains(text, "halted")
}
