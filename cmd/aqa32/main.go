// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/k0kubun/pp/v3"

	"github.com/ezrec/aqa32/emulator"
	"github.com/ezrec/aqa32/render"
	"github.com/ezrec/aqa32/translate"
)

func main() {
	var delay time.Duration
	var memory uint
	var input string
	var quiet bool
	var dump bool
	var listing bool
	var tui bool
	var verbose bool
	var lang string

	flag.DurationVar(&delay, "delay", 100*time.Millisecond, "Delay between frames")
	flag.UintVar(&memory, "m", 0, "Memory size, in words (0 for the default)")
	flag.StringVar(&input, "i", "-", "INP input")
	flag.BoolVar(&quiet, "q", false, "Quiet mode; no frames, print output at the end")
	flag.BoolVar(&dump, "dump", false, "Dump the assembled program, do not execute")
	flag.BoolVar(&listing, "l", false, "Print the program listing, do not execute")
	flag.BoolVar(&tui, "tui", false, "Interactive viewer")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.StringVar(&lang, "lang", "", "Message locale (default is the host locale)")

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("%v: usage: %v [options] source.asm", os.Args[0], os.Args[0])
	}

	if len(lang) != 0 {
		translate.SetLocale(lang)
	}

	source := flag.Arg(0)
	text, err := os.ReadFile(source)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	emu := emulator.NewEmulator(memory)
	emu.Verbose = verbose

	err = emu.Assemble(string(text))
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	if dump {
		pp.Println(emu.Program)
		return
	}

	if listing {
		fmt.Print(emu.Program.Listing())
		return
	}

	if tui {
		err = runViewer(emu, delay)
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	if input == "-" {
		emu.Input = os.Stdin
	} else {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		emu.Input = inf
	}

	if quiet {
		emu.Echo = os.Stdout
	}

	err = emu.Reset()
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	err = run(emu, os.Stdout, delay, quiet)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}
}

// run ticks the emulator until it halts, drawing a frame per step.
func run(emu *emulator.Emulator, out io.Writer, delay time.Duration, quiet bool) (err error) {
	draw := func() {
		if quiet {
			return
		}
		fmt.Fprint(out, "\033[0;0H")
		fmt.Fprintln(out, render.Render(emu.Machine, emu.Program, emu.Rate()))
	}

	if !quiet {
		fmt.Fprint(out, "\033[2J")
	}

	for done := false; !done; {
		draw()
		done, err = emu.Tick()
		if err != nil {
			draw()
			return
		}
		if !quiet {
			time.Sleep(delay)
		}
	}

	draw()

	if quiet {
		fmt.Fprintln(out)
	}

	return
}
