// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"time"

	"github.com/ezrec/aqa32/asm"
	"github.com/ezrec/aqa32/internal"
	"github.com/ezrec/aqa32/isa"
	"github.com/ezrec/aqa32/vm"
)

const (
	RATE_SAMPLE = 20 // Ticks between execution rate samples.
)

// Emulator state. Machine + assembled program.
type Emulator struct {
	Verbose     bool         // If set, enables verbose logging.
	*vm.Machine              // Reference to the machine simulation.
	Program     *asm.Program // Reference to the currently loaded program listing.

	Input io.Reader // INP source, carried across resets.
	Echo  io.Writer // OUT copy, carried across resets.

	size       uint
	rate       float64
	sampleTick int
	sampleTime time.Time
	clock      func() time.Time
}

// NewEmulator creates a new emulator with size words of memory.
// A size of zero selects the default memory size.
func NewEmulator(size uint) (emu *Emulator) {
	if size == 0 {
		size = isa.MEMORY_SIZE
	}

	emu = &Emulator{
		Machine: vm.NewMachine(size),
		Program: &asm.Program{},
		size:    size,
		clock:   time.Now,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	emulator_defines := map[string]string{
		"MEMORY_SIZE": fmt.Sprintf("%d", emu.size),
	}
	return internal.IterSeq2Concat(isa.Defines(), maps.All(emulator_defines))
}

// Assemble replaces the program with one assembled from source text,
// and resets the machine.
func (emu *Emulator) Assemble(text string) (err error) {
	assembler := &asm.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		assembler.Predefine(key, value)
	}

	prog, err := assembler.Assemble(text)
	if err != nil {
		return
	}

	emu.Program = prog

	err = emu.Reset()
	return
}

// Reset restarts the machine with the program image loaded.
func (emu *Emulator) Reset() (err error) {
	machine := vm.NewMachine(emu.size)
	machine.Verbose = emu.Verbose
	machine.Console.Input = emu.Input
	machine.Console.Echo = emu.Echo

	err = machine.Load(emu.Program.Words)
	if err != nil {
		return
	}

	emu.Machine = machine
	emu.rate = 0
	emu.sampleTick = 0
	emu.sampleTime = emu.clock()

	if emu.Verbose {
		log.Printf("emulator: reset, %d words of %d", len(emu.Program.Words), emu.size)
	}

	return
}

// Debug returns the source location of the next instruction.
func (emu *Emulator) Debug() asm.Debug {
	return emu.Program.Debug(int(emu.Machine.Pc()))
}

// LineNo returns the one-based source line of the next instruction,
// or 0 if the address has no source.
func (emu *Emulator) LineNo() int {
	return emu.Debug().Index + 1
}

// Rate returns the execution rate in steps per second,
// sampled every RATE_SAMPLE ticks.
func (emu *Emulator) Rate() float64 {
	return emu.rate
}

// Tick performs a single step of the machine.
// done is set once the machine has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	if emu.Machine.Halted() {
		done = true
		return
	}

	emu.Machine.Verbose = emu.Verbose

	index := emu.Debug().Index
	defer func() {
		if err != nil {
			err = &ErrRuntime{Index: index, Err: err}
		}
	}()

	err = emu.Machine.Step()
	if err != nil {
		return
	}

	if emu.Machine.Ticks-emu.sampleTick >= RATE_SAMPLE {
		now := emu.clock()
		elapsed := now.Sub(emu.sampleTime).Seconds()
		if elapsed > 0 {
			emu.rate = float64(emu.Machine.Ticks-emu.sampleTick) / elapsed
		}
		emu.sampleTick = emu.Machine.Ticks
		emu.sampleTime = now
	}

	done = emu.Machine.Halted()

	return
}
