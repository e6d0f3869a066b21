// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package render projects a machine snapshot onto a fixed size character frame.
//
//	R0        R1        ...  R7
//	00000005  00000006  ...  00000000
//	R8        ...  PC        CMP
//	00000000  ...  00000004  -1
//	  002: ADD R2, R0, R1            previous source line
//	> 003: HALT                      next to execute
//	  004:
//	>11                              output tail
//	1234.56Hz  4 ticks  HALTED
//	000: 20010005 20090006 ...       memory, eight words per row
package render

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ezrec/aqa32/asm"
	"github.com/ezrec/aqa32/isa"
	"github.com/ezrec/aqa32/vm"
)

const (
	WIDTH  = 80 // Frame width, in characters.
	HEIGHT = 24 // Frame height, in characters.

	CELL_WIDTH    = 10 // Register cell width.
	WORDS_PER_ROW = 8  // Memory words per frame row.

	ROW_REGISTERS = 0 // First register row.
	ROW_SOURCE    = 4 // First source line row.
	ROW_OUTPUT    = 7
	ROW_STATUS    = 8
	ROW_MEMORY    = 9 // First memory row.

	MEMORY_ROWS = HEIGHT - ROW_MEMORY // Memory rows in the frame.
)

// Frame is a rendered character grid.
type Frame [HEIGHT][WIDTH]rune

// NewFrame returns a blank frame.
func NewFrame() (frame *Frame) {
	frame = &Frame{}
	for y := range frame {
		for x := range frame[y] {
			frame[y][x] = ' '
		}
	}
	return
}

// Draw writes text at a position, clipped to the frame.
func (frame *Frame) Draw(x, y int, text string) {
	if y < 0 || y >= HEIGHT {
		return
	}
	for _, c := range text {
		if x >= WIDTH {
			break
		}
		if x >= 0 {
			frame[y][x] = c
		}
		x++
	}
}

// Lines returns the rows of the frame.
func (frame *Frame) Lines() (lines []string) {
	lines = make([]string, HEIGHT)
	for y := range frame {
		lines[y] = string(frame[y][:])
	}
	return
}

// String returns the frame as newline separated rows.
func (frame *Frame) String() string {
	return strings.Join(frame.Lines(), "\n")
}

// Render draws the machine state, the program source around the program
// counter and the execution rate in steps per second.
// prog may be nil, in which case no source lines are shown.
func Render(machine *vm.Machine, prog *asm.Program, rate float64) (frame *Frame) {
	frame = NewFrame()

	drawRegisters(frame, machine)
	drawSource(frame, machine, prog)

	frame.Draw(0, ROW_OUTPUT, ">"+outputTail(machine.Output(), WIDTH-1))

	status := fmt.Sprintf("%.2fHz  %d ticks", rate, machine.Ticks)
	if machine.Halted() {
		status += "  HALTED"
	}
	frame.Draw(0, ROW_STATUS, status)

	drawMemory(frame, machine)

	return
}

func drawRegisters(frame *Frame, machine *vm.Machine) {
	per_row := WIDTH / CELL_WIDTH

	cells := make([][2]string, 0, isa.REGISTER_COUNT+1)
	for _, reg := range isa.Registers() {
		cells = append(cells, [2]string{reg.String(), fmt.Sprintf("%08x", machine.Register[reg])})
	}
	cells = append(cells, [2]string{"CMP", fmt.Sprintf("%d", machine.Cmp)})

	for n, cell := range cells {
		x := (n % per_row) * CELL_WIDTH
		y := ROW_REGISTERS + (n/per_row)*2
		frame.Draw(x, y+0, cell[0])
		frame.Draw(x, y+1, clip(cell[1], CELL_WIDTH-1))
	}
}

func drawSource(frame *Frame, machine *vm.Machine, prog *asm.Program) {
	pc := int(machine.Pc())

	for n := range 3 {
		address := pc - 1 + n
		if address < 0 {
			continue
		}

		marker := " "
		if address == pc {
			marker = ">"
		}

		var text string
		if prog != nil {
			text = prog.Debug(address).Line
		}

		frame.Draw(0, ROW_SOURCE+n, fmt.Sprintf("%s %03x: %s", marker, address, text))
	}
}

// memoryWindow returns the first memory row shown, keeping the program
// counter row visible.
func memoryWindow(pc int, words int) (first int) {
	rows := (words + WORDS_PER_ROW - 1) / WORDS_PER_ROW
	if rows <= MEMORY_ROWS {
		return 0
	}

	first = pc/WORDS_PER_ROW - MEMORY_ROWS/2
	first = max(first, 0)
	first = min(first, rows-MEMORY_ROWS)

	return
}

func drawMemory(frame *Frame, machine *vm.Machine) {
	pc := int(machine.Pc())
	first := memoryWindow(pc, len(machine.Memory))

	for row := range MEMORY_ROWS {
		base := (first + row) * WORDS_PER_ROW
		if base >= len(machine.Memory) {
			break
		}

		y := ROW_MEMORY + row
		frame.Draw(0, y, fmt.Sprintf("%03x:", base))
		for n := range WORDS_PER_ROW {
			address := base + n
			if address >= len(machine.Memory) {
				break
			}
			marker := " "
			if address == pc {
				marker = ">"
			}
			frame.Draw(4+n*9, y, fmt.Sprintf("%s%08x", marker, uint32(machine.Memory[address])))
		}
	}
}

// outputTail returns at most width printable runes from the end of output.
func outputTail(output string, width int) string {
	runes := []rune(output)
	if len(runes) > width {
		runes = runes[len(runes)-width:]
	}
	for n, c := range runes {
		if !unicode.IsPrint(c) {
			runes[n] = '.'
		}
	}
	return string(runes)
}

func clip(text string, width int) string {
	runes := []rune(text)
	if len(runes) > width {
		return string(runes[:width])
	}
	return text
}
