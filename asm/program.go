package asm

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ezrec/aqa32/isa"
)

// Program is an assembled executable image.
type Program struct {
	Words     []isa.Word     // Memory image, loaded from address 0.
	SourceMap map[int]int    // Word address to zero-based source line index.
	Labels    map[string]int // Label to word address.
	Lines     []string       // Source text, one entry per line.
}

// Debug locates the source of a word address.
type Debug struct {
	Address int
	Index   int    // Zero-based source line index, or -1 if unknown.
	Line    string // Trimmed source text.
}

// Debug returns the source location of an address.
func (prog *Program) Debug(address int) (dbg Debug) {
	dbg = Debug{Address: address, Index: -1}

	index, ok := prog.SourceMap[address]
	if !ok || index >= len(prog.Lines) {
		return
	}

	dbg.Index = index
	dbg.Line = strings.TrimSpace(prog.Lines[index])
	return
}

// Binary returns the image as raw 32-bit words.
func (prog *Program) Binary() (bins []uint32) {
	for _, word := range prog.Words {
		bins = append(bins, uint32(word))
	}

	return
}

// Listing returns a disassembly of the image annotated with labels and source.
func (prog *Program) Listing() string {
	byAddress := map[int][]string{}
	for label, address := range prog.Labels {
		byAddress[address] = append(byAddress[address], label)
	}

	var out strings.Builder
	for address, word := range prog.Words {
		labels := byAddress[address]
		slices.Sort(labels)
		for _, label := range labels {
			fmt.Fprintf(&out, "%v:\n", label)
		}
		dbg := prog.Debug(address)
		fmt.Fprintf(&out, "%03x: %08x  %-20v ; %v\n", address, uint32(word), word.String(), dbg.Line)
	}

	// Labels past the end of the image.
	for _, address := range slices.Sorted(maps.Keys(byAddress)) {
		if address < len(prog.Words) {
			continue
		}
		labels := byAddress[address]
		slices.Sort(labels)
		for _, label := range labels {
			fmt.Fprintf(&out, "%v:\n", label)
		}
	}

	return out.String()
}
